// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "booking"

var (
	once sync.Once

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Count of booking requests accepted.",
		},
	)

	bookingDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_decisions_total",
			Help:      "Count of owner and scheduler decisions over bookings.",
		},
		[]string{"decision"},
	)

	calendarSyncs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calendar_syncs_total",
			Help:      "Count of external calendar syncs by outcome.",
		},
		[]string{"status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	wsClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Number of connected WebSocket clients.",
		},
	)
)

// Register registers the collectors with the default registry (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingsCreated, bookingDecisions, calendarSyncs, requestDuration, wsClients)
	})
}

func IncBookingCreated() {
	bookingsCreated.Inc()
}

func IncBookingDecision(decision string) {
	bookingDecisions.WithLabelValues(decision).Inc()
}

func IncCalendarSync(status string) {
	calendarSyncs.WithLabelValues(status).Inc()
}

func ObserveRequest(route, method string, status int, d time.Duration) {
	requestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}

func SetWSClients(n int) {
	wsClients.Set(float64(n))
}
