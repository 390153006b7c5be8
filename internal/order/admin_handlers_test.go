package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/kaos-euy/backend-kaos/internal/events"
)

type fakeRepo struct {
	orders map[string]Order
}

func (f *fakeRepo) GetByNumberAndToken(_ context.Context, number, token string) (Order, error) {
	for _, o := range f.orders {
		if o.OrderNumber == number && o.LookupToken == token {
			return o, nil
		}
	}
	return Order{}, ErrNotFound
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (Order, error) {
	if o, ok := f.orders[id]; ok {
		return o, nil
	}
	return Order{}, ErrNotFound
}

func (f *fakeRepo) List(_ context.Context, statuses []Status, limit, offset int) ([]Order, int64, error) {
	out := []Order{}
	for _, o := range f.orders {
		if len(statuses) == 0 {
			out = append(out, o)
			continue
		}
		for _, s := range statuses {
			if o.Status == s {
				out = append(out, o)
				break
			}
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id string, status Status) (Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	f.orders[id] = o
	return o, nil
}

type recordingPublisher struct {
	tasks []string
}

func (p *recordingPublisher) Publish(_ context.Context, taskType string, _ any) error {
	p.tasks = append(p.tasks, taskType)
	return nil
}

func seededRepo() *fakeRepo {
	return &fakeRepo{orders: map[string]Order{
		"ord-1": {
			ID:          "ord-1",
			OrderNumber: "EUY-20250601-1234",
			Status:      StatusPendingConfirmation,
			BuyerName:   "Budi",
			TotalCents:  540000,
			LookupToken: "tok-1",
		},
		"ord-2": {
			ID:          "ord-2",
			OrderNumber: "EUY-20250601-5678",
			Status:      StatusShipped,
			BuyerName:   "Sari",
			TotalCents:  85000,
			LookupToken: "tok-2",
		},
	}}
}

func patchStatus(t *testing.T, h *AdminHandler, id, status string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/orders/"+id+"/status",
		strings.NewReader(`{"status":"`+status+`"}`))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()
	h.PatchStatus(rec, req)
	return rec
}

func TestPatchStatusConcrete(t *testing.T) {
	pub := &recordingPublisher{}
	h := &AdminHandler{Repo: seededRepo(), Events: pub}

	rec := patchStatus(t, h, "ord-1", "CONFIRMED")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Status      Status      `json:"status"`
			StatusGroup StatusGroup `json:"status_group"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, StatusConfirmed, body.Data.Status)
	require.Equal(t, GroupInProgress, body.Data.StatusGroup)
	require.Equal(t, []string{events.TaskOrderStatusChanged}, pub.tasks)
}

func TestPatchStatusGroupResolvesCanonicalMember(t *testing.T) {
	h := &AdminHandler{Repo: seededRepo(), Events: events.NopPublisher{}}

	rec := patchStatus(t, h, "ord-1", "DONE")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Status Status `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, StatusCompleted, body.Data.Status)
}

func TestPatchStatusRejectsUnknownValue(t *testing.T) {
	h := &AdminHandler{Repo: seededRepo(), Events: events.NopPublisher{}}

	rec := patchStatus(t, h, "ord-1", "LOST_AT_SEA")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "INVALID_STATUS", body.Code)
}

func TestPatchStatusUnchangedEmitsNoEvent(t *testing.T) {
	pub := &recordingPublisher{}
	h := &AdminHandler{Repo: seededRepo(), Events: pub}

	rec := patchStatus(t, h, "ord-2", "SHIPPED")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, pub.tasks)
}

func TestListFiltersByGroup(t *testing.T) {
	h := &AdminHandler{Repo: seededRepo(), Events: events.NopPublisher{}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders?status=NEW", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []adminOrderView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "EUY-20250601-1234", body.Data[0].OrderNumber)
	require.Equal(t, GroupNew, body.Data[0].StatusGroup)
}

func TestListRejectsUnknownFilter(t *testing.T) {
	h := &AdminHandler{Repo: seededRepo(), Events: events.NopPublisher{}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders?status=WAT", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLookupRequiresMatchingToken(t *testing.T) {
	h := NewHandler(seededRepo())

	get := func(number, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+number+"?token="+token, nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("orderNumber", number)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
		rec := httptest.NewRecorder()
		h.Lookup(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, get("EUY-20250601-1234", "tok-1").Code)
	require.Equal(t, http.StatusNotFound, get("EUY-20250601-1234", "wrong").Code)
	require.Equal(t, http.StatusNotFound, get("EUY-20250601-1234", "").Code)
	require.Equal(t, http.StatusNotFound, get("EUY-00000000-0000", "tok-1").Code)
}
