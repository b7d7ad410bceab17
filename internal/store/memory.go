package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/decision-spot/net-opt/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu        sync.Mutex
	scenarios map[string]model.Scenario // id -> scenario
	scenByTen map[string][]string       // tenant -> scenario ids
	runs      map[string]model.Run      // id -> run
	runsByTen map[string][]string       // tenant -> run ids
	subs      map[string][]model.Subscription
	solverCfg map[string]map[string]any

	// Webhook queue state
	deliveries  map[string]*memDelivery
	deliveryIDs []string
}

// memDelivery augments WebhookDelivery with scheduling state.
type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
	DeliveredAt   *time.Time
}

func NewMemory() *Memory {
	return &Memory{
		scenarios:  map[string]model.Scenario{},
		scenByTen:  map[string][]string{},
		runs:       map[string]model.Run{},
		runsByTen:  map[string][]string{},
		subs:       map[string][]model.Subscription{},
		solverCfg:  map[string]map[string]any{},
		deliveries: map[string]*memDelivery{},
	}
}

func (m *Memory) CreateScenario(ctx context.Context, tenantID string, in model.ScenarioIn) (model.Scenario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc := model.Scenario{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Name:      in.Name,
		Plants:    in.Plants,
		Customers: in.Customers,
		Params:    in.Params,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	m.scenarios[sc.ID] = sc
	m.scenByTen[tenantID] = append(m.scenByTen[tenantID], sc.ID)
	return sc, nil
}

func (m *Memory) GetScenario(ctx context.Context, tenantID, id string) (model.Scenario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.scenarios[id]
	if !ok || sc.TenantID != tenantID {
		return model.Scenario{}, ErrNotFound
	}
	return sc, nil
}

func (m *Memory) ListScenarios(ctx context.Context, tenantID, cursor string, limit int) ([]model.Scenario, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.scenByTen[tenantID]
	start := 0
	if cursor != "" {
		for i, id := range ids {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 100
	}
	out := []model.Scenario{}
	var next string
	for i := start; i < len(ids) && len(out) < limit; i++ {
		out = append(out, m.scenarios[ids[i]])
		next = ids[i]
	}
	if start+len(out) >= len(ids) {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) DeleteScenario(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.scenarios[id]
	if !ok || sc.TenantID != tenantID {
		return ErrNotFound
	}
	delete(m.scenarios, id)
	ids := m.scenByTen[tenantID]
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	m.scenByTen[tenantID] = out
	return nil
}

func (m *Memory) CreateRun(ctx context.Context, tenantID, scenarioID string, params model.Params) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sc, ok := m.scenarios[scenarioID]; !ok || sc.TenantID != tenantID {
		return model.Run{}, ErrNotFound
	}
	run := model.Run{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		ScenarioID: scenarioID,
		Status:     model.RunStatusQueued,
		Params:     params,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	m.runs[run.ID] = run
	m.runsByTen[tenantID] = append(m.runsByTen[tenantID], run.ID)
	return run, nil
}

func (m *Memory) UpdateRun(ctx context.Context, run model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.runs[run.ID]
	if !ok || old.TenantID != run.TenantID {
		return ErrNotFound
	}
	m.runs[run.ID] = run
	return nil
}

func (m *Memory) GetRun(ctx context.Context, tenantID, id string) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok || run.TenantID != tenantID {
		return model.Run{}, ErrNotFound
	}
	return run, nil
}

func (m *Memory) ListRuns(ctx context.Context, tenantID, scenarioID, cursor string, limit int) ([]model.Run, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.runsByTen[tenantID]
	start := 0
	if cursor != "" {
		for i, id := range ids {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 100
	}
	out := []model.Run{}
	var next string
	i := start
	for ; i < len(ids) && len(out) < limit; i++ {
		r := m.runs[ids[i]]
		if scenarioID == "" || r.ScenarioID == scenarioID {
			out = append(out, r)
		}
		next = ids[i]
	}
	// The cursor ends when the scan does, not when limit ids were seen;
	// a scenario filter can skip ids without filling the page.
	if i >= len(ids) {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) RunStats(ctx context.Context, tenantID string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byStatus := map[string]int{}
	total := 0
	var totalMs int64
	for _, id := range m.runsByTen[tenantID] {
		r := m.runs[id]
		byStatus[r.Status]++
		total++
		totalMs += r.SolveMs
	}
	avgMs := 0.0
	if total > 0 {
		avgMs = float64(totalMs) / float64(total)
	}
	return map[string]any{"runs": total, "byStatus": byStatus, "avgSolveMs": avgMs}, nil
}

func (m *Memory) GetSolverConfig(ctx context.Context, tenantID string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg, ok := m.solverCfg[tenantID]; ok {
		return cfg, nil
	}
	return nil, nil
}

func (m *Memory) SaveSolverConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.solverCfg[tenantID] = cfg
	return nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.Subscription{ID: uuid.New().String(), TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}
	m.subs[req.TenantID] = append(m.subs[req.TenantID], s)
	return s, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Subscription
	for _, s := range m.subs[tenantID] {
		for _, e := range s.Events {
			if e == eventType {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.subs[tenantID]
	start := 0
	if cursor != "" {
		for i := range list {
			if list[i].ID == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 100
	}
	end := start + limit
	if end > len(list) {
		end = len(list)
	}
	items := append([]model.Subscription(nil), list[start:end]...)
	next := ""
	if end < len(list) {
		next = list[end-1].ID
	}
	return items, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	arr := m.subs[tenantID]
	out := make([]model.Subscription, 0, len(arr))
	for _, s := range arr {
		if s.ID != id {
			out = append(out, s)
		}
	}
	m.subs[tenantID] = out
	return nil
}

func (m *Memory) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	d := &memDelivery{
		WebhookDelivery: WebhookDelivery{ID: id, TenantID: tenantID, SubscriptionID: subscriptionID, EventType: eventType, URL: url, Secret: secret, Payload: payload, Status: "pending"},
		NextAttemptAt:   time.Now(),
	}
	m.deliveries[id] = d
	m.deliveryIDs = append(m.deliveryIDs, id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := []WebhookDelivery{}
	for _, id := range m.deliveryIDs {
		d := m.deliveries[id]
		if d == nil {
			continue
		}
		if (d.Status == "pending" || d.Status == "retry") && !d.NextAttemptAt.After(now) {
			out = append(out, d.WebhookDelivery)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return nil
	}
	d.Attempts++
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = "delivered"
		now := time.Now()
		d.DeliveredAt = &now
	} else {
		d.Status = "retry"
		d.LastError = lastError
		if nextAttemptAt != nil {
			d.NextAttemptAt = *nextAttemptAt
		} else {
			d.NextAttemptAt = time.Now().Add(1 * time.Minute)
		}
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d := m.deliveries[id]; d != nil {
		d.Status = "failed"
		d.LastError = lastError
		d.ResponseCode = responseCode
		d.LatencyMs = latencyMs
	}
	return nil
}

func (m *Memory) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []map[string]any{}
	ids := append([]string(nil), m.deliveryIDs...)
	sort.Strings(ids)
	for _, id := range ids {
		d := m.deliveries[id]
		if d == nil || d.TenantID != tenantID {
			continue
		}
		if status != "" && d.Status != status {
			continue
		}
		item := map[string]any{"id": d.ID, "eventType": d.EventType, "status": d.Status, "attempts": d.Attempts, "url": d.URL}
		if !d.NextAttemptAt.IsZero() {
			item["nextAttemptAt"] = d.NextAttemptAt
		}
		if d.LastError != "" {
			item["lastError"] = d.LastError
		}
		out = append(out, item)
	}
	return out, "", nil
}

func (m *Memory) RetryWebhookDelivery(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d != nil && d.TenantID == tenantID {
		d.Status = "pending"
		d.NextAttemptAt = time.Now()
	}
	return nil
}
