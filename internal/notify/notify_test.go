package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kaos-euy/backend-kaos/internal/events"
)

func TestFormatIDR(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "Rp0"},
		{950, "Rp950"},
		{85000, "Rp85.000"},
		{540000, "Rp540.000"},
		{1700000, "Rp1.700.000"},
		{-25000, "-Rp25.000"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, formatIDR(tc.in))
	}
}

func TestSlackNotifierPostsPayload(t *testing.T) {
	var got struct {
		Text string `json:"text"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, 0, nil, zerolog.Nop())
	require.NoError(t, n.Send(context.Background(), "NEW ORDER - EUY-20250601-1234"))
	require.Equal(t, "NEW ORDER - EUY-20250601-1234", got.Text)
}

func TestSlackNotifierPropagatesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "channel_not_found", http.StatusNotFound)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, 0, nil, zerolog.Nop())
	err := n.Send(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")
}

func TestSlackNotifierDisabledWithoutURL(t *testing.T) {
	n := NewSlackNotifier("", 0, nil, zerolog.Nop())
	require.NoError(t, n.Send(context.Background(), "dropped"))
}

func TestWorkerHandlesOrderCreated(t *testing.T) {
	var sent []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		sent = append(sent, payload.Text)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := &Worker{
		Slack: NewSlackNotifier(srv.URL, 0, nil, zerolog.Nop()),
		Email: NopNotifier{},
		Log:   zerolog.Nop(),
	}

	payload, err := json.Marshal(events.OrderCreated{
		OrderID:     "ord-1",
		OrderNumber: "EUY-20250601-1234",
		OrderType:   "bulk",
		BuyerName:   "Budi",
		TotalCents:  540000,
		TotalQty:    10,
	})
	require.NoError(t, err)

	task := asynq.NewTask(events.TaskOrderCreated, payload)
	require.NoError(t, w.HandleOrderCreated(context.Background(), task))

	require.Len(t, sent, 1)
	require.True(t, strings.HasPrefix(sent[0], "NEW ORDER - EUY-20250601-1234"))
	require.Contains(t, sent[0], "Rp540.000")
	require.Contains(t, sent[0], "Admin: /admin/orders/ord-1")
}

func TestWorkerRejectsMalformedPayload(t *testing.T) {
	w := &Worker{Slack: NopNotifier{}, Log: zerolog.Nop()}
	task := asynq.NewTask(events.TaskOrderCreated, []byte("{not json"))
	require.Error(t, w.HandleOrderCreated(context.Background(), task))
}
