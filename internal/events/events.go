package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// Task type names, shared between the API (enqueue) and the worker (handle).
const (
	TaskOrderCreated         = "event:order.created"
	TaskOrderStatusChanged   = "event:order.status_changed"
	TaskCustomRequestCreated = "event:custom_request.created"
)

// OrderCreated is emitted after checkout commits an order.
type OrderCreated struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	OrderType   string    `json:"order_type"`
	BuyerName   string    `json:"buyer_name"`
	TotalCents  int64     `json:"total_cents"`
	TotalQty    int       `json:"total_qty"`
	CreatedAt   time.Time `json:"created_at"`
}

// OrderStatusChanged is emitted when the back office transitions an order.
type OrderStatusChanged struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	FromStatus  string `json:"from_status"`
	ToStatus    string `json:"to_status"`
}

// CustomRequestCreated is emitted after a custom design request is stored.
type CustomRequestCreated struct {
	RequestID        string `json:"request_id"`
	RequestNumber    string `json:"request_number"`
	RequesterName    string `json:"requester_name"`
	QuantityEstimate int    `json:"quantity_estimate"`
}

// Publisher hands domain events to the delivery pipeline.
type Publisher interface {
	Publish(ctx context.Context, taskType string, payload any) error
}

// AsynqPublisher enqueues events as asynq tasks for the notification worker.
// Publishing is best-effort: a queue outage must never fail the request that
// produced the event, so callers log rather than propagate errors.
type AsynqPublisher struct {
	Client   *asynq.Client
	Log      zerolog.Logger
	MaxRetry int
}

func (p *AsynqPublisher) taskOptions() []asynq.Option {
	retry := p.MaxRetry
	if retry <= 0 {
		retry = 5
	}
	return []asynq.Option{asynq.MaxRetry(retry), asynq.Timeout(30 * time.Second)}
}

// Publish serialises the payload and enqueues the task with retry enabled.
func (p *AsynqPublisher) Publish(ctx context.Context, taskType string, payload any) error {
	if p == nil || p.Client == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	task := asynq.NewTask(taskType, data, p.taskOptions()...)
	if _, err := p.Client.EnqueueContext(ctx, task); err != nil {
		p.Log.Error().Err(err).Str("task", taskType).Msg("enqueue event failed")
		return err
	}
	p.Log.Debug().Str("task", taskType).Msg("event enqueued")
	return nil
}

// NopPublisher discards events. Used in tests and when notifications are
// disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
