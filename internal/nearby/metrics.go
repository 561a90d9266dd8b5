package nearby

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SearchesTotal counts place searches by where the answer came from.
	// Labels: source (cache, provider, error)
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "choosethere",
			Subsystem: "nearby",
			Name:      "searches_total",
			Help:      "Total number of nearby place searches by source",
		},
		[]string{"source"},
	)

	// BreakerState tracks the provider circuit breaker (0 closed, 1 half-open, 2 open).
	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "choosethere",
			Subsystem: "nearby",
			Name:      "breaker_state",
			Help:      "Provider circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// DrawsTotal counts nearby draws.
	// Labels: result (picked, no_results, all_filtered, error)
	DrawsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "choosethere",
			Subsystem: "nearby",
			Name:      "draws_total",
			Help:      "Total number of nearby draws by result",
		},
		[]string{"result"},
	)
)
