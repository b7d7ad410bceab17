package api

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/decision-spot/net-opt/internal/auth"
	"github.com/decision-spot/net-opt/internal/milp"
	"github.com/decision-spot/net-opt/internal/netopt"
	"github.com/decision-spot/net-opt/internal/store"
	"github.com/decision-spot/net-opt/internal/webhooks"
)

type Server struct {
	Store  store.Store
	Engine *netopt.Engine
	Pub    *webhooks.Publisher
	Auth   *auth.Verifier
	Broker EventBroker

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewServer creates a Server. If DATABASE_URL is unset, uses in-memory store.
func NewServer() (*Server, error) {
	dsn := os.Getenv("DATABASE_URL")
	var s store.Store
	if strings.TrimSpace(dsn) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		// Run migrations (dev helper)
		if os.Getenv("DB_MIGRATE") != "false" {
			_ = sp.MigrateDir(context.Background(), "db/migrations")
		}
		s = sp
	}
	var broker EventBroker
	if os.Getenv("REDIS_URL") != "" {
		if rb, err := NewRedisBroker(); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}
	rps := 1.0
	if v := os.Getenv("RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			rps = f
		}
	}
	burst := 5
	if v := os.Getenv("RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			burst = n
		}
	}
	return &Server{
		Store:    s,
		Engine:   netopt.NewEngine(milp.NewHiGHS()),
		Pub:      webhooks.NewPublisher(s),
		Auth:     auth.NewVerifierFromEnv(),
		Broker:   broker,
		limiters: map[string]*rate.Limiter{},
		rps:      rate.Limit(rps),
		burst:    burst,
	}, nil
}

// limiter returns the per-tenant rate limiter for the solve endpoint.
func (s *Server) limiter(tenant string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[tenant]
	if !ok {
		l = rate.NewLimiter(s.rps, s.burst)
		s.limiters[tenant] = l
	}
	return l
}

func (s *Server) withTenant(r *http.Request) (context.Context, string) {
	tenant := r.Header.Get("X-Tenant-Id")
	if tenant == "" {
		tenant = "t_demo"
	}
	ctx := context.WithValue(r.Context(), ctxKeyTenant{}, tenant)
	return ctx, tenant
}

type ctxKeyTenant struct{}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store)
}
