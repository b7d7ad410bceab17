package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/decision-spot/net-opt/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// MigrateDir applies every *.sql file in dir in lexical order. Applied file
// names are recorded in schema_migrations so reruns are no-ops.
func (p *Postgres) MigrateDir(ctx context.Context, dir string) error {
	if _, err := p.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (name text PRIMARY KEY, applied_at timestamptz NOT NULL DEFAULT now())`); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil { return err }
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		var done int
		err := p.db.QueryRowContext(ctx, `SELECT 1 FROM schema_migrations WHERE name=$1`, name).Scan(&done)
		if err == nil { continue }
		if !errors.Is(err, sql.ErrNoRows) { return err }
		body, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil { return err }
		tx, err := p.db.BeginTx(ctx, nil)
		if err != nil { return err }
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil { return err }
	}
	return nil
}

// Scenarios are stored as one JSONB document per row. The plant and customer
// lists travel with the scenario; nothing joins across them.

func (p *Postgres) CreateScenario(ctx context.Context, tenantID string, in model.ScenarioIn) (model.Scenario, error) {
	sc := model.Scenario{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Name:      in.Name,
		Plants:    in.Plants,
		Customers: in.Customers,
		Params:    in.Params,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	doc, err := json.Marshal(sc)
	if err != nil { return model.Scenario{}, err }
	_, err = p.db.ExecContext(ctx, `INSERT INTO scenarios (id, tenant_id, name, doc) VALUES ($1,$2,$3,$4)`, sc.ID, tenantID, sc.Name, doc)
	if err != nil { return model.Scenario{}, err }
	return sc, nil
}

func (p *Postgres) GetScenario(ctx context.Context, tenantID, id string) (model.Scenario, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx, `SELECT doc FROM scenarios WHERE tenant_id=$1 AND id=$2`, tenantID, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) { return model.Scenario{}, ErrNotFound }
	if err != nil { return model.Scenario{}, err }
	var sc model.Scenario
	if err := json.Unmarshal(doc, &sc); err != nil { return model.Scenario{}, err }
	return sc, nil
}

func (p *Postgres) ListScenarios(ctx context.Context, tenantID, cursor string, limit int) ([]model.Scenario, string, error) {
	if limit <= 0 || limit > 500 { limit = 100 }
	var rows *sql.Rows
	var err error
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx, `SELECT doc FROM scenarios WHERE tenant_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`, tenantID, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, `SELECT doc FROM scenarios WHERE tenant_id=$1 ORDER BY id LIMIT $2`, tenantID, limit)
	}
	if err != nil { return nil, "", err }
	defer rows.Close()
	out := []model.Scenario{}
	var last string
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil { return nil, "", err }
		var sc model.Scenario
		if err := json.Unmarshal(doc, &sc); err != nil { return nil, "", err }
		out = append(out, sc)
		last = sc.ID
	}
	next := ""
	if len(out) == limit { next = last }
	return out, next, nil
}

func (p *Postgres) DeleteScenario(ctx context.Context, tenantID, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM scenarios WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil { return err }
	if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
	return nil
}

func (p *Postgres) CreateRun(ctx context.Context, tenantID, scenarioID string, params model.Params) (model.Run, error) {
	var one int
	err := p.db.QueryRowContext(ctx, `SELECT 1 FROM scenarios WHERE tenant_id=$1 AND id=$2`, tenantID, scenarioID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) { return model.Run{}, ErrNotFound }
	if err != nil { return model.Run{}, err }
	run := model.Run{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		ScenarioID: scenarioID,
		Status:     model.RunStatusQueued,
		Params:     params,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	doc, err := json.Marshal(run)
	if err != nil { return model.Run{}, err }
	_, err = p.db.ExecContext(ctx, `INSERT INTO runs (id, tenant_id, scenario_id, status, solve_ms, doc) VALUES ($1,$2,$3,$4,0,$5)`,
		run.ID, tenantID, scenarioID, run.Status, doc)
	if err != nil { return model.Run{}, err }
	return run, nil
}

func (p *Postgres) UpdateRun(ctx context.Context, run model.Run) error {
	doc, err := json.Marshal(run)
	if err != nil { return err }
	res, err := p.db.ExecContext(ctx, `UPDATE runs SET status=$3, solve_ms=$4, doc=$5, updated_at=now() WHERE tenant_id=$1 AND id=$2`,
		run.TenantID, run.ID, run.Status, run.SolveMs, doc)
	if err != nil { return err }
	if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
	return nil
}

func (p *Postgres) GetRun(ctx context.Context, tenantID, id string) (model.Run, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx, `SELECT doc FROM runs WHERE tenant_id=$1 AND id=$2`, tenantID, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) { return model.Run{}, ErrNotFound }
	if err != nil { return model.Run{}, err }
	var run model.Run
	if err := json.Unmarshal(doc, &run); err != nil { return model.Run{}, err }
	return run, nil
}

func (p *Postgres) ListRuns(ctx context.Context, tenantID, scenarioID, cursor string, limit int) ([]model.Run, string, error) {
	if limit <= 0 || limit > 500 { limit = 100 }
	q := `SELECT doc FROM runs WHERE tenant_id=$1`
	args := []any{tenantID}
	if scenarioID != "" {
		args = append(args, scenarioID)
		q += ` AND scenario_id=$2`
	}
	if cursor != "" {
		args = append(args, cursor)
		q += ` AND id::text > $` + strconv.Itoa(len(args))
	}
	args = append(args, limit)
	q += ` ORDER BY id LIMIT $` + strconv.Itoa(len(args))
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil { return nil, "", err }
	defer rows.Close()
	out := []model.Run{}
	var last string
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil { return nil, "", err }
		var run model.Run
		if err := json.Unmarshal(doc, &run); err != nil { return nil, "", err }
		out = append(out, run)
		last = run.ID
	}
	next := ""
	if len(out) == limit { next = last }
	return out, next, nil
}

func (p *Postgres) RunStats(ctx context.Context, tenantID string) (map[string]any, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT status, COUNT(*), COALESCE(AVG(solve_ms),0) FROM runs WHERE tenant_id=$1 GROUP BY status`, tenantID)
	if err != nil { return nil, err }
	defer rows.Close()
	byStatus := map[string]int{}
	total := 0
	var weightedMs float64
	for rows.Next() {
		var status string
		var n int
		var avg float64
		if err := rows.Scan(&status, &n, &avg); err != nil { return nil, err }
		byStatus[status] = n
		total += n
		weightedMs += avg * float64(n)
	}
	avgMs := 0.0
	if total > 0 { avgMs = weightedMs / float64(total) }
	return map[string]any{"runs": total, "byStatus": byStatus, "avgSolveMs": avgMs}, nil
}

func (p *Postgres) GetSolverConfig(ctx context.Context, tenantID string) (map[string]any, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx, `SELECT config FROM solver_configs WHERE tenant_id=$1`, tenantID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) { return nil, nil }
	if err != nil { return nil, err }
	var cfg map[string]any
	if err := json.Unmarshal(doc, &cfg); err != nil { return nil, err }
	return cfg, nil
}

func (p *Postgres) SaveSolverConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
	doc, err := json.Marshal(cfg)
	if err != nil { return err }
	_, err = p.db.ExecContext(ctx, `INSERT INTO solver_configs (tenant_id, config, updated_at) VALUES ($1,$2,now())
		ON CONFLICT (tenant_id) DO UPDATE SET config=EXCLUDED.config, updated_at=now()`, tenantID, doc)
	return err
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	id := uuid.New().String()
	ev, _ := json.Marshal(req.Events)
	_, err := p.db.ExecContext(ctx, `INSERT INTO subscriptions (id, tenant_id, url, events, secret) VALUES ($1,$2,$3,$4,$5)`, id, req.TenantID, req.URL, ev, req.Secret)
	if err != nil { return model.Subscription{}, err }
	return model.Subscription{ID: id, TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, secret, events FROM subscriptions WHERE tenant_id=$1 AND events @> $2::jsonb`, tenantID, `["`+eventType+`"]`)
	if err != nil { return nil, err }
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		var s model.Subscription
		var ev []byte
		if err := rows.Scan(&s.ID, &s.URL, &s.Secret, &ev); err != nil { return nil, err }
		s.TenantID = tenantID
		_ = json.Unmarshal(ev, &s.Events)
		out = append(out, s)
	}
	return out, nil
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	if limit <= 0 || limit > 500 { limit = 100 }
	var rows *sql.Rows
	var err error
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx, `SELECT id::text, url, secret, events FROM subscriptions WHERE tenant_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`, tenantID, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, `SELECT id::text, url, secret, events FROM subscriptions WHERE tenant_id=$1 ORDER BY id LIMIT $2`, tenantID, limit)
	}
	if err != nil { return nil, "", err }
	defer rows.Close()
	var out []model.Subscription
	var last string
	for rows.Next() {
		var s model.Subscription
		var ev []byte
		if err := rows.Scan(&s.ID, &s.URL, &s.Secret, &ev); err != nil { return nil, "", err }
		s.TenantID = tenantID
		_ = json.Unmarshal(ev, &s.Events)
		out = append(out, s)
		last = s.ID
	}
	next := ""
	if len(out) == limit { next = last }
	return out, next, nil
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	return err
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	dk := computeDedupKey(payload)
	_, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, tenant_id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at, dedup_key)
		VALUES ($1,$2,$3,$4,$5,$6,$7,'pending',0,now(),$8)
		ON CONFLICT (tenant_id, event_type, url, dedup_key) DO NOTHING`, id, tenantID, nullIfEmpty(subscriptionID), eventType, url, nullIfEmpty(secret), payload, dk)
	if err != nil { return "", err }
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, tenant_id::text, COALESCE(subscription_id::text,''), event_type, url, COALESCE(secret,''), payload, status, attempts
		FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at ASC LIMIT $1`, limit)
	if err != nil { return nil, err }
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil { return nil, err }
		out = append(out, d)
	}
	return out, nil
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if !success {
		if nextAttemptAt == nil {
			t := time.Now().Add(1 * time.Minute)
			nextAttemptAt = &t
		}
		_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='retry', last_error=$2, next_attempt_at=$3, updated_at=now(), response_code=$4, latency_ms=$5 WHERE id=$1`,
			id, nullIfEmpty(lastError), *nextAttemptAt, responseCode, latencyMs)
		return err
	}
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered', delivered_at=now(), updated_at=now(), response_code=$2, latency_ms=$3 WHERE id=$1`, id, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='failed', last_error=$2, updated_at=now(), response_code=$3, latency_ms=$4 WHERE id=$1`, id, nullIfEmpty(lastError), responseCode, latencyMs)
	return err
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error) {
	if limit <= 0 || limit > 500 { limit = 100 }
	q := `SELECT id::text, event_type, status, attempts, next_attempt_at, last_error, url FROM webhook_deliveries WHERE tenant_id=$1`
	var rows *sql.Rows
	var err error
	if status != "" {
		q += ` AND status=$2 ORDER BY id LIMIT $3`
		rows, err = p.db.QueryContext(ctx, q, tenantID, status, limit)
	} else {
		q += ` ORDER BY id LIMIT $2`
		rows, err = p.db.QueryContext(ctx, q, tenantID, limit)
	}
	if err != nil { return nil, "", err }
	defer rows.Close()
	out := []map[string]any{}
	var last string
	for rows.Next() {
		var id, typ, st, url string
		var lastErr sql.NullString
		var attempts int
		var nextAt sql.NullTime
		if err := rows.Scan(&id, &typ, &st, &attempts, &nextAt, &lastErr, &url); err != nil { return nil, "", err }
		m := map[string]any{"id": id, "eventType": typ, "status": st, "attempts": attempts, "url": url}
		if nextAt.Valid { m["nextAttemptAt"] = nextAt.Time }
		if lastErr.Valid && lastErr.String != "" { m["lastError"] = lastErr.String }
		out = append(out, m)
		last = id
	}
	next := ""
	if len(out) == limit { next = last }
	return out, next, nil
}

func (p *Postgres) RetryWebhookDelivery(ctx context.Context, tenantID, id string) error {
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='pending', next_attempt_at=now() WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	return err
}

func computeDedupKey(payload []byte) string {
	var m map[string]any
	if json.Unmarshal(payload, &m) == nil {
		if v, ok := m["id"].(string); ok && v != "" {
			return v
		}
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8])
}

func nullIfEmpty(s string) any {
	if s == "" { return nil }
	return s
}

