package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "roomreserve"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Bookings created by room.",
		},
		[]string{"room"},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conflicts_total",
			Help:      "Booking attempts rejected because the slot was taken.",
		},
	)

	bookingsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_cancelled_total",
			Help:      "Bookings cancelled by their representative.",
		},
	)

	validationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_validation_failures_total",
			Help:      "Rejected booking fields.",
		},
		[]string{"field"},
	)

	duplicateSubmits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_duplicate_submits_total",
			Help:      "Booking submissions dropped by the duplicate guard.",
		},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_notifications_total",
			Help:      "Admin notifications by result.",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			bookingsCreated,
			bookingConflicts,
			bookingsCancelled,
			validationFailures,
			duplicateSubmits,
			notifications,
		)
	})
}

// ObserveHTTP records one finished request.
func ObserveHTTP(endpoint string, code int, elapsed time.Duration) {
	httpRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func IncBookingCreated(roomID string) {
	bookingsCreated.WithLabelValues(roomID).Inc()
}

func IncConflict() {
	bookingConflicts.Inc()
}

func IncCancelled() {
	bookingsCancelled.Inc()
}

func IncValidationFailure(field string) {
	validationFailures.WithLabelValues(field).Inc()
}

func IncDuplicateSubmit() {
	duplicateSubmits.Inc()
}

// IncNotification counts a notification attempt; result is "sent" or "failed".
func IncNotification(result string) {
	notifications.WithLabelValues(result).Inc()
}
