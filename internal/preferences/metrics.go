package preferences

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LearningUpdatesTotal counts learning attempts.
	// Labels: result (applied, disabled, neutral, error)
	LearningUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "choosethere",
			Subsystem: "preferences",
			Name:      "learning_updates_total",
			Help:      "Total number of learning attempts by result",
		},
		[]string{"result"},
	)

	// LearnedKeys tracks how many tag and category weights are stored.
	// Labels: kind (tag, category)
	LearnedKeys = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "choosethere",
			Subsystem: "preferences",
			Name:      "learned_keys",
			Help:      "Number of learned weights by kind",
		},
		[]string{"kind"},
	)
)

func observeTable(prefs LearnedPreferences) {
	LearnedKeys.WithLabelValues("tag").Set(float64(len(prefs.TagWeights)))
	LearnedKeys.WithLabelValues("category").Set(float64(len(prefs.CategoryWeights)))
}
