// README: Prometheus counters for the order workflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wildwash_orders_created_total",
		Help: "Total number of orders created, by order type.",
	},
		[]string{"type"},
	)

	StatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wildwash_status_transitions_total",
		Help: "Total number of committed status changes, by target status.",
	},
		[]string{"to"},
	)

	AssignmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wildwash_assignments_total",
		Help: "Assignment attempts by worker kind and outcome (local, fallback, none, taken, error).",
	},
		[]string{"kind", "outcome"},
	)

	ClaimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wildwash_queue_claims_total",
		Help: "Pull-queue claims by worker kind and outcome.",
	},
		[]string{"kind", "outcome"},
	)

	NotificationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wildwash_notification_failures_total",
		Help: "Best-effort notification deliveries that failed, by channel.",
	},
		[]string{"channel"},
	)

	ConfigurationGapsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wildwash_configuration_gaps_total",
		Help: "Assignment runs that found no active location or no eligible worker.",
	},
		[]string{"reason"},
	)
)
