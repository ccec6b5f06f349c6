// Package metrics holds the Prometheus collectors of the service. Collectors
// are registered once on the default registry and exposed at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "restopos"

var (
	// Request metrics
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_errors_total",
		Help:      "HTTP responses by status category (4xx, 5xx)",
	}, []string{"category"})

	// Mesa lifecycle
	MesaTransiciones = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mesa_transiciones_total",
		Help:      "Mesa lifecycle operations by kind",
	}, []string{"operacion"})

	VentasRegistradas = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ventas_registradas_total",
		Help:      "Ventas attached to mesas",
	})

	// Integrity
	Inconsistencias = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "integridad_inconsistencias",
		Help:      "Findings of the last integrity check, by kind",
	}, []string{"tipo"})

	// Async jobs
	Jobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_total",
		Help:      "Processed async jobs by type and result",
	}, []string{"type", "result"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_state",
		Help:      "0 = closed, 1 = open, 2 = half-open",
	}, []string{"name"})
)

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }

// StatusCategory buckets an HTTP status code ("2xx", "4xx", ...).
func StatusCategory(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
