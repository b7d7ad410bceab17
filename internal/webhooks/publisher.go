// Package webhooks fans solve-pipeline events out to tenant-registered
// HTTP endpoints, with signed payloads and retried delivery.
package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/decision-spot/net-opt/internal/store"
)

// Event types emitted by the solve pipeline.
const (
	EventRunCompleted = "run.completed"
	EventRunFailed    = "run.failed"
)

// envelope is the JSON body POSTed to subscribers.
type envelope struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	TenantID string `json:"tenantId"`
	TS       string `json:"ts"`
	Data     any    `json:"data"`
}

// Publisher enqueues events; the worker handles delivery.
type Publisher struct {
	Store store.Store
}

func NewPublisher(s store.Store) *Publisher {
	return &Publisher{Store: s}
}

// Emit queues one delivery per subscription of the tenant listening to
// this event type. Emit never fails the caller: a run outcome must not
// depend on webhook bookkeeping.
func (p *Publisher) Emit(ctx context.Context, tenantID, eventType string, data any) {
	subs, err := p.Store.GetSubscriptionsForEvent(ctx, tenantID, eventType)
	if err != nil || len(subs) == 0 {
		return
	}
	now := time.Now()
	body, err := json.Marshal(envelope{
		ID:       fmt.Sprintf("evt_%d", now.UnixNano()),
		Type:     eventType,
		TenantID: tenantID,
		TS:       now.UTC().Format(time.RFC3339),
		Data:     data,
	})
	if err != nil {
		return
	}
	for _, s := range subs {
		_, _ = p.Store.EnqueueWebhook(ctx, tenantID, s.ID, eventType, s.URL, s.Secret, body)
	}
}
