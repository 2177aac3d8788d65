package escalation

import (
	"github.com/medops/opsdesk/internal/lifecycle"
	"github.com/medops/opsdesk/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	incidentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "escalation",
			Name:      "incidents_created_total",
			Help:      "Incidents created from escalated notifications",
		},
		[]string{"severity"},
	)

	escalationRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "escalation",
			Name:      "runs_total",
			Help:      "Eligibility checks executed",
		},
	)

	lifecycleTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Lifecycle transition requests by entity and outcome",
		},
		[]string{"entity", "outcome"},
	)

	storeItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "store",
			Name:      "items",
			Help:      "Number of records held by the session store",
		},
		[]string{"kind"},
	)
)

func recordIncidentCreated(severity string) {
	incidentsCreated.WithLabelValues(severity).Inc()
}

func recordTransition(entity string, outcome lifecycle.Outcome) {
	lifecycleTransitions.WithLabelValues(entity, string(outcome)).Inc()
}

// RecordStoreStats updates store size metrics.
func RecordStoreStats(stats StoreStats) {
	storeItems.WithLabelValues("notifications").Set(float64(stats.Notifications))
	storeItems.WithLabelValues("incidents").Set(float64(stats.Incidents))
	storeItems.WithLabelValues("tasks").Set(float64(stats.Tasks))
	storeItems.WithLabelValues("processed").Set(float64(stats.Processed))
}
