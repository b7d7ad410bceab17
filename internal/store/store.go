package store

import (
	"context"
	"errors"
	"time"

	"github.com/decision-spot/net-opt/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Scenarios
	CreateScenario(ctx context.Context, tenantID string, in model.ScenarioIn) (model.Scenario, error)
	GetScenario(ctx context.Context, tenantID, id string) (model.Scenario, error)
	ListScenarios(ctx context.Context, tenantID, cursor string, limit int) ([]model.Scenario, string, error)
	DeleteScenario(ctx context.Context, tenantID, id string) error

	// Runs
	CreateRun(ctx context.Context, tenantID, scenarioID string, params model.Params) (model.Run, error)
	UpdateRun(ctx context.Context, run model.Run) error
	GetRun(ctx context.Context, tenantID, id string) (model.Run, error)
	ListRuns(ctx context.Context, tenantID, scenarioID, cursor string, limit int) ([]model.Run, string, error)
	RunStats(ctx context.Context, tenantID string) (map[string]any, error)

	// Solver config per tenant
	GetSolverConfig(ctx context.Context, tenantID string) (map[string]any, error)
	SaveSolverConfig(ctx context.Context, tenantID string, cfg map[string]any) error

	// Subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error)
	DeleteSubscription(ctx context.Context, tenantID, id string) error

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
	ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error)
	RetryWebhookDelivery(ctx context.Context, tenantID, id string) error
}

// WebhookDelivery is one queued outbound webhook call.
type WebhookDelivery struct {
	ID             string
	TenantID       string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Status         string
	Attempts       int
}

var ErrNotFound = errors.New("not found")
