package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors shared by every process. Create it
// once per process; all observe methods are safe on a nil receiver.
type Metrics struct {
	// Booking and cancellation sagas by kind and final state
	SagaOutcome *prometheus.CounterVec

	// Latency of each saga step
	SagaStepLatency *prometheus.HistogramVec

	// Compensating releases by result: released, deferred
	Compensations *prometheus.CounterVec

	// Ledger reservations by result: reserved, unavailable
	Reservations *prometheus.CounterVec

	// Notifications recorded by channel and state
	Notifications *prometheus.CounterVec

	// Events that failed to publish
	PublishFailures prometheus.Counter

	// Pending releases resolved by the release worker
	ReconciledReleases *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		SagaOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduling_saga_outcomes_total",
			Help: "Saga executions by kind and final state",
		}, []string{"saga", "state"}), // saga: "book", "cancel"

		SagaStepLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scheduling_saga_step_duration_seconds",
			Help:    "Duration of individual saga steps",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"step"}),

		Compensations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduling_compensations_total",
			Help: "Compensating slot releases by result",
		}, []string{"result"}),

		Reservations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_reservations_total",
			Help: "Slot reservation attempts by result",
		}, []string{"result"}),

		Notifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Notifications recorded by channel and state",
		}, []string{"channel", "state"}),

		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scheduling_publish_failures_total",
			Help: "Notification events that could not be published",
		}),

		ReconciledReleases: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "release_worker_reconciled_total",
			Help: "Pending releases processed by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncrementSagaOutcome(saga, state string) {
	if m != nil {
		m.SagaOutcome.WithLabelValues(saga, state).Inc()
	}
}

func (m *Metrics) ObserveSagaStep(step string, d time.Duration) {
	if m != nil {
		m.SagaStepLatency.WithLabelValues(step).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementCompensation(result string) {
	if m != nil {
		m.Compensations.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementReservation(result string) {
	if m != nil {
		m.Reservations.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementNotification(channel, state string) {
	if m != nil {
		m.Notifications.WithLabelValues(channel, state).Inc()
	}
}

func (m *Metrics) IncrementPublishFailure() {
	if m != nil {
		m.PublishFailures.Inc()
	}
}

func (m *Metrics) IncrementReconciled(result string) {
	if m != nil {
		m.ReconciledReleases.WithLabelValues(result).Inc()
	}
}
