package roulette

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DrawsTotal counts draws.
	// Labels: kind (draw, reroll), outcome (picked, no_candidates)
	DrawsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "choosethere",
			Subsystem: "roulette",
			Name:      "draws_total",
			Help:      "Total number of draws by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// RelaxationsTotal counts draws that had to relax exclusions.
	// Labels: stage (history, all)
	RelaxationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "choosethere",
			Subsystem: "roulette",
			Name:      "relaxations_total",
			Help:      "Total number of draws that relaxed anti-repetition exclusions",
		},
		[]string{"stage"},
	)

	// RerollsRejectedTotal counts re-rolls refused at the cap.
	RerollsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "choosethere",
			Subsystem: "roulette",
			Name:      "rerolls_rejected_total",
			Help:      "Total number of re-roll attempts past the limit",
		},
	)

	// DegradedInputsTotal counts collaborator failures absorbed by a draw.
	// Labels: input (restaurants, history)
	DegradedInputsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "choosethere",
			Subsystem: "roulette",
			Name:      "degraded_inputs_total",
			Help:      "Total number of draw inputs replaced by neutral values after a storage error",
		},
		[]string{"input"},
	)

	// EligibleCandidates observes the drawable pool size per draw.
	EligibleCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "choosethere",
			Subsystem: "roulette",
			Name:      "eligible_candidates",
			Help:      "Number of candidates left after filtering and exclusions",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)
)

func observeOutcome(kind string, o Outcome) {
	DrawsTotal.WithLabelValues(kind, o.Kind.String()).Inc()
	if o.Relaxation != RelaxNone {
		RelaxationsTotal.WithLabelValues(o.Relaxation.String()).Inc()
	}
	EligibleCandidates.Observe(float64(o.Eligible))
}
