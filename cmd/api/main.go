package main

import (
	"bufio"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/decision-spot/net-opt/internal/api"
	"github.com/decision-spot/net-opt/internal/metrics"
)

func main() {
	srvDeps, err := api.NewServer()
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}
	metrics.RegisterDefault()

	mux := http.NewServeMux()

	// Scenarios
	mux.HandleFunc("/v1/scenarios", srvDeps.ScenariosHandler)
	mux.HandleFunc("/v1/scenarios/import", srvDeps.ScenarioImportHandler)
	mux.HandleFunc("/v1/scenarios/", srvDeps.ScenarioByIDHandler) // includes /map, /model.lp

	// Optimization
	mux.HandleFunc("/v1/solve", srvDeps.SolveHandler)
	mux.HandleFunc("/v1/solver/config", srvDeps.SolverConfigHandler)
	mux.HandleFunc("/v1/admin/solver/config", srvDeps.AdminSolverConfigHandler)

	// Runs
	mux.HandleFunc("/v1/runs", srvDeps.RunsHandler)
	mux.HandleFunc("/v1/runs/", srvDeps.RunByIDHandler) // includes /map, /events/stream

	// Webhook subscriptions
	mux.HandleFunc("/v1/subscriptions", srvDeps.SubscriptionsHandler)
	mux.HandleFunc("/v1/subscriptions/", srvDeps.SubscriptionByIDHandler)

	// Health
	mux.HandleFunc("/healthz", srvDeps.HealthHandler)
	mux.HandleFunc("/readyz", srvDeps.ReadyHandler)
	mux.HandleFunc("/debugz", srvDeps.DebugJSON)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// Admin
	mux.HandleFunc("/v1/admin/webhook-deliveries", srvDeps.WebhookDeliveriesHandler)
	mux.HandleFunc("/v1/admin/webhook-deliveries/", srvDeps.WebhookDeliveryRetryHandler)
	mux.HandleFunc("/v1/admin/runs/stats", srvDeps.RunStatsHandler)

	// WebSocket run events
	mux.HandleFunc("/v1/ws", srvDeps.RunEventsWSHandler)

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           logMiddleware(metricsMiddleware(mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("API listening on %s", addr)
	worker := srvDeps.NewWebhookWorker()
	worker.Start()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		dur := time.Since(start)
		log.Printf("%s %s %s %v", r.RemoteAddr, r.Method, r.URL.Path, dur)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// SSE handlers need Flush and the WebSocket upgrade needs Hijack.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		code := strconv.Itoa(rec.status)
		metrics.HTTPRequests.WithLabelValues(r.Method, r.URL.Path, code).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, r.URL.Path, code).Observe(time.Since(start).Seconds())
	})
}
