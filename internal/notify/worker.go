package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/kaos-euy/backend-kaos/internal/events"
)

// Worker handles queued notification tasks by composing operator messages
// from event payloads and delivering them through the configured channels.
type Worker struct {
	Slack Notifier
	Email Notifier
	Log   zerolog.Logger
}

// Register mounts the task handlers on an asynq mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(events.TaskOrderCreated, w.HandleOrderCreated)
	mux.HandleFunc(events.TaskOrderStatusChanged, w.HandleOrderStatusChanged)
	mux.HandleFunc(events.TaskCustomRequestCreated, w.HandleCustomRequestCreated)
}

// HandleOrderCreated announces a fresh order.
func (w *Worker) HandleOrderCreated(ctx context.Context, t *asynq.Task) error {
	var evt events.OrderCreated
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		return fmt.Errorf("decode order created payload: %w", err)
	}
	text := fmt.Sprintf("NEW ORDER - %s\nBuyer: %s\nType: %s\nTotal: %s\nQty: %d\nAdmin: /admin/orders/%s",
		evt.OrderNumber, evt.BuyerName, evt.OrderType, formatIDR(evt.TotalCents), evt.TotalQty, evt.OrderID)
	return w.deliver(ctx, text)
}

// HandleOrderStatusChanged announces a back-office status transition.
func (w *Worker) HandleOrderStatusChanged(ctx context.Context, t *asynq.Task) error {
	var evt events.OrderStatusChanged
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		return fmt.Errorf("decode status change payload: %w", err)
	}
	text := fmt.Sprintf("ORDER %s - %s -> %s\nAdmin: /admin/orders/%s",
		evt.OrderNumber, evt.FromStatus, evt.ToStatus, evt.OrderID)
	return w.deliver(ctx, text)
}

// HandleCustomRequestCreated announces a new custom design request.
func (w *Worker) HandleCustomRequestCreated(ctx context.Context, t *asynq.Task) error {
	var evt events.CustomRequestCreated
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		return fmt.Errorf("decode custom request payload: %w", err)
	}
	text := fmt.Sprintf("NEW CUSTOM REQUEST - %s\nRequester: %s\nEstimated qty: %d\nAdmin: /admin/custom-requests/%s",
		evt.RequestNumber, evt.RequesterName, evt.QuantityEstimate, evt.RequestID)
	return w.deliver(ctx, text)
}

func (w *Worker) deliver(ctx context.Context, text string) error {
	if w.Email != nil {
		if err := w.Email.Send(ctx, text); err != nil {
			w.Log.Warn().Err(err).Msg("email notification failed")
		}
	}
	if w.Slack == nil {
		return nil
	}
	// Slack failures propagate so asynq retries with backoff.
	return w.Slack.Send(ctx, text)
}

// formatIDR renders minor units as a grouped rupiah amount, e.g. Rp540.000.
func formatIDR(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := fmt.Sprintf("%d", amount)
	var out []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, d)
	}
	if neg {
		return "-Rp" + string(out)
	}
	return "Rp" + string(out)
}
