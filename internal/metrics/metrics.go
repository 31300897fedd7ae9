// Package metrics exposes Prometheus collectors for bookings, the sweeper and HTTP.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	bookingOps     *prometheus.CounterVec
	seatsConfirmed prometheus.Counter
	seatsReleased  prometheus.Counter
	sweeperRuns    *prometheus.CounterVec
	eventsArchived *prometheus.CounterVec
	publishFailed  *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookingOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventbooking",
			Name:      "booking_operations_total",
			Help:      "Booking workflow operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		seatsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbooking",
			Name:      "seats_confirmed_total",
			Help:      "Seats taken from inventory by confirmations.",
		}),
		seatsReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbooking",
			Name:      "seats_released_total",
			Help:      "Seats returned to inventory by cancellations of confirmed bookings.",
		}),
		sweeperRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventbooking",
			Name:      "sweeper_runs_total",
			Help:      "Lifecycle sweeper runs by outcome.",
		}, []string{"outcome"}),
		eventsArchived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventbooking",
			Name:      "events_archived_total",
			Help:      "Events archived, by reason.",
		}, []string{"reason"}),
		publishFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventbooking",
			Name:      "domain_event_publish_failures_total",
			Help:      "Domain events that could not be published.",
		}, []string{"subject"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "eventbooking",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.bookingOps,
			m.seatsConfirmed,
			m.seatsReleased,
			m.sweeperRuns,
			m.eventsArchived,
			m.publishFailed,
			m.httpDuration,
		)
	}
	return m
}

func (m *Metrics) BookingOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.bookingOps.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) SeatsConfirmed(n int) {
	if m == nil {
		return
	}
	m.seatsConfirmed.Add(float64(n))
}

func (m *Metrics) SeatsReleased(n int) {
	if m == nil {
		return
	}
	m.seatsReleased.Add(float64(n))
}

func (m *Metrics) SweeperRun(outcome string) {
	if m == nil {
		return
	}
	m.sweeperRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) EventsArchived(reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.eventsArchived.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) PublishFailed(subject string) {
	if m == nil {
		return
	}
	m.publishFailed.WithLabelValues(subject).Inc()
}

// GinMiddleware records request latency keyed by the matched route template.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
