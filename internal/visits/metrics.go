package visits

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VisitsRecordedTotal counts stored visits by rating.
	VisitsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "choosethere",
			Subsystem: "visits",
			Name:      "recorded_total",
			Help:      "Total number of visits recorded by rating",
		},
		[]string{"rating"},
	)

	// SnapshotRefreshFailures counts rating snapshots left stale.
	SnapshotRefreshFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "choosethere",
			Subsystem: "visits",
			Name:      "snapshot_refresh_failures_total",
			Help:      "Total number of failed rating snapshot refreshes",
		},
	)

	// LearningFailures counts learning updates that failed after a visit
	// was stored.
	// Labels: stage (dispatch, apply)
	LearningFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "choosethere",
			Subsystem: "visits",
			Name:      "learning_failures_total",
			Help:      "Total number of failed learning updates by stage",
		},
		[]string{"stage"},
	)
)
