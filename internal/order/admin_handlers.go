package order

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kaos-euy/backend-kaos/internal/common"
	"github.com/kaos-euy/backend-kaos/internal/events"
	"github.com/kaos-euy/backend-kaos/internal/obs"
)

// AdminHandler exposes the back-office order endpoints.
type AdminHandler struct {
	Repo    Repository
	Events  events.Publisher
	Metrics *obs.ShopMetrics
	Log     zerolog.Logger
}

// Routes mounts the admin order endpoints on the router.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Detail)
	r.Patch("/{id}/status", h.PatchStatus)
}

type adminOrderView struct {
	Order
	StatusGroup StatusGroup `json:"status_group"`
}

// List handles GET /api/v1/admin/orders. The status query accepts a concrete
// status, a group name, or ALL.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	statuses, ok := ResolveStatusFilter(strings.TrimSpace(r.URL.Query().Get("status")))
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "INVALID_STATUS", "unknown status filter",
			map[string]string{"status": "unknown status or group"})
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}

	orders, total, err := h.Repo.List(r.Context(), statuses, perPage, (page-1)*perPage)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	views := make([]adminOrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, adminOrderView{Order: o, StatusGroup: GroupOf(o.Status)})
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       views,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Detail handles GET /api/v1/admin/orders/{id}.
func (h *AdminHandler) Detail(w http.ResponseWriter, r *http.Request) {
	o, err := h.Repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if err == ErrNotFound {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": adminOrderView{Order: o, StatusGroup: GroupOf(o.Status)}})
}

// PatchStatus handles PATCH /api/v1/admin/orders/{id}/status. The payload
// status accepts a concrete status or a group name, which resolves to the
// group's canonical member.
func (h *AdminHandler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", nil)
		return
	}
	if strings.TrimSpace(body.Status) == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "status is required",
			map[string]string{"status": "is required"})
		return
	}
	resolved, ok := ResolveStatusInput(body.Status)
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "INVALID_STATUS", "unknown status",
			map[string]string{"status": "unknown status or group"})
		return
	}

	id := chi.URLParam(r, "id")
	before, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		if err == ErrNotFound {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.WriteError(w, err)
		return
	}

	updated, err := h.Repo.UpdateStatus(r.Context(), id, resolved)
	if err != nil {
		if err == ErrNotFound {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.WriteError(w, err)
		return
	}

	if h.Metrics != nil {
		h.Metrics.OrderStatusChanges.WithLabelValues(string(resolved)).Inc()
	}
	if h.Events != nil && before.Status != updated.Status {
		evt := events.OrderStatusChanged{
			OrderID:     updated.ID,
			OrderNumber: updated.OrderNumber,
			FromStatus:  string(before.Status),
			ToStatus:    string(updated.Status),
		}
		if err := h.Events.Publish(r.Context(), events.TaskOrderStatusChanged, evt); err != nil {
			h.Log.Warn().Err(err).Str("order", updated.OrderNumber).Msg("status change event not enqueued")
		}
	}

	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"id":           updated.ID,
		"status":       updated.Status,
		"status_group": GroupOf(updated.Status),
		"updated_at":   updated.UpdatedAt,
	}})
}
