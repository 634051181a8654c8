package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parkgate",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	gateScans = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parkgate",
			Name:      "gate_scans_total",
			Help:      "Gate scans by result (entry, exit, overtime_due, denied).",
		},
		[]string{"result"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "parkgate",
			Name:      "bookings_created_total",
			Help:      "Bookings successfully created.",
		},
	)

	payments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parkgate",
			Name:      "payments_total",
			Help:      "Payment lifecycle events (initiated, completed, failed).",
		},
		[]string{"status"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, gateScans, bookingsCreated, payments)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncGateScan increments the gate scan counter for a result label.
func IncGateScan(result string) {
	gateScans.WithLabelValues(result).Inc()
}

// IncBookingCreated increments the created-bookings counter.
func IncBookingCreated() {
	bookingsCreated.Inc()
}

// IncPayment increments the payment counter for a status label.
func IncPayment(status string) {
	payments.WithLabelValues(status).Inc()
}
