package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// SolveRuns counts optimization runs by terminal status
	SolveRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solve_runs_total", Help: "Optimization runs by terminal status."},
		[]string{"status"},
	)
	// SolveDuration tracks end-to-end solve wall time in seconds
	SolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "solve_duration_seconds", Help: "Solve wall time in seconds.", Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900}},
		[]string{"status"},
	)
	// ModelSize tracks variable counts of built models
	ModelSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "model_variables", Help: "Decision variable count per built model.", Buckets: prometheus.ExponentialBuckets(100, 4, 8)},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(SolveRuns)
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(ModelSize)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
