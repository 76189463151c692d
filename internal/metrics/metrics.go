package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lokato_booking"

// Metrics holds the collectors the booking service reports to Prometheus.
type Metrics struct {
	bookingsAdmitted     *prometheus.CounterVec
	availabilityOutcomes *prometheus.CounterVec
	paymentTimeouts      prometheus.Counter
	postCommitFailures   *prometheus.CounterVec
	notificationFailures *prometheus.CounterVec
	pricingDuration      prometheus.Histogram
}

// New creates the collectors and registers them with registerer. A nil
// registerer means prometheus.DefaultRegisterer.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		bookingsAdmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_admitted_total",
			Help:      "Bookings created, by initial status.",
		}, []string{"status"}),
		availabilityOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_checks_total",
			Help:      "Availability checks, by outcome.",
		}, []string{"outcome"}),
		paymentTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_timeouts_total",
			Help:      "Card bookings cancelled because payment never arrived.",
		}),
		postCommitFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "post_commit_failures_total",
			Help:      "Failed steps after a booking was committed.",
		}, []string{"step"}),
		notificationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Emails that could not be delivered, by template.",
		}, []string{"template"}),
		pricingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_duration_seconds",
			Help:      "Time spent computing a pricing breakdown.",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
	}

	registerer.MustRegister(
		m.bookingsAdmitted,
		m.availabilityOutcomes,
		m.paymentTimeouts,
		m.postCommitFailures,
		m.notificationFailures,
		m.pricingDuration,
	)
	return m
}

// BookingAdmitted counts a created booking under its initial status.
func (m *Metrics) BookingAdmitted(status string) {
	if m == nil {
		return
	}
	m.bookingsAdmitted.WithLabelValues(status).Inc()
}

// AvailabilityChecked counts one availability outcome.
func (m *Metrics) AvailabilityChecked(outcome string) {
	if m == nil {
		return
	}
	m.availabilityOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PaymentTimedOut() {
	if m == nil {
		return
	}
	m.paymentTimeouts.Inc()
}

// PostCommitFailed counts a failed post-commit step such as "snapshot" or "checkout".
func (m *Metrics) PostCommitFailed(step string) {
	if m == nil {
		return
	}
	m.postCommitFailures.WithLabelValues(step).Inc()
}

func (m *Metrics) NotificationFailed(template string) {
	if m == nil {
		return
	}
	m.notificationFailures.WithLabelValues(template).Inc()
}

// ObservePricing records how long one engine run took.
func (m *Metrics) ObservePricing(d time.Duration) {
	if m == nil {
		return
	}
	m.pricingDuration.Observe(d.Seconds())
}
