// Package metrics exposes Prometheus collectors for the HTTP surface and
// the sanitizer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dimria/pkg/security"
)

var (
	// HTTPRequests counts dispatched requests by method, route and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dimria_http_requests_total",
		Help: "Number of HTTP requests processed.",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes request latency per route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dimria_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// SecurityRejections counts sanitizer rejections by source tag.
	SecurityRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dimria_security_rejections_total",
		Help: "Untrusted inputs rejected by the sanitizer.",
	}, []string{"source"})
)

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// AuditSink increments the rejection counter for every audit event.
type AuditSink struct{}

func (AuditSink) Record(e security.AuditEvent) {
	SecurityRejections.WithLabelValues(e.Source).Inc()
}
