package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "camrent"

var (
	once sync.Once

	reservationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_created_total",
			Help:      "Count of reservations created.",
		},
	)

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Count of committed reservation status transitions.",
		},
		[]string{"from", "to"},
	)

	reconciliations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capacity_reconciliations_total",
			Help:      "Count of capacity reconciliations by whether the cached value changed.",
		},
		[]string{"changed"},
	)

	overbooked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overbooked_warnings_total",
			Help:      "Count of reconciliations that found more demand than units.",
		},
	)

	operationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_errors_total",
			Help:      "Count of failed lifecycle operations by error class.",
		},
		[]string{"operation", "class"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Count of outbound staff notifications by channel and result.",
		},
		[]string{"channel", "result"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Count of scheduled job runs by result.",
		},
		[]string{"job", "result"},
	)

	rpcDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Latency of API requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"transport", "method", "code"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reservationsCreated, statusTransitions, reconciliations, overbooked,
			operationErrors, notifications, jobRuns, rpcDuration)
	})
}

func IncReservationCreated() {
	reservationsCreated.Inc()
}

func IncTransition(from, to string) {
	statusTransitions.WithLabelValues(from, to).Inc()
}

func IncReconciliation(changed bool) {
	label := "false"
	if changed {
		label = "true"
	}
	reconciliations.WithLabelValues(label).Inc()
}

func IncOverbooked() {
	overbooked.Inc()
}

func IncOperationError(operation, class string) {
	operationErrors.WithLabelValues(operation, class).Inc()
}

func IncNotification(channel, result string) {
	notifications.WithLabelValues(channel, result).Inc()
}

func IncJobRun(job, result string) {
	jobRuns.WithLabelValues(job, result).Inc()
}

func ObserveRequest(transport, method, code string, started time.Time) {
	rpcDuration.WithLabelValues(transport, method, code).Observe(time.Since(started).Seconds())
}
