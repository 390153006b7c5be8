package customreq

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kaos-euy/backend-kaos/internal/common"
)

// Handler exposes the public custom request endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /api/v1/custom-requests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", nil)
		return
	}
	stored, err := h.service.Submit(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]any{
		"id":             stored.ID,
		"request_number": stored.RequestNumber,
		"status":         stored.Status,
	}})
}

// AdminHandler exposes the back-office custom request endpoints.
type AdminHandler struct {
	Repo Repository
	Log  zerolog.Logger
}

// Routes mounts the admin endpoints on the router.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Detail)
	r.Patch("/{id}/status", h.PatchStatus)
}

type adminRequestView struct {
	Request
	StatusGroup StatusGroup `json:"status_group"`
}

// List handles GET /api/v1/admin/custom-requests.
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

	requests, total, err := h.Repo.List(r.Context(), statuses, perPage, (page-1)*perPage)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	views := make([]adminRequestView, 0, len(requests))
	for _, req := range requests {
		views = append(views, adminRequestView{Request: req, StatusGroup: GroupOf(req.Status)})
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       views,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Detail handles GET /api/v1/admin/custom-requests/{id}.
func (h *AdminHandler) Detail(w http.ResponseWriter, r *http.Request) {
	req, err := h.Repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if err == ErrNotFound {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "custom request not found", nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": adminRequestView{Request: req, StatusGroup: GroupOf(req.Status)}})
}

// PatchStatus handles PATCH /api/v1/admin/custom-requests/{id}/status.
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

	updated, err := h.Repo.UpdateStatus(r.Context(), chi.URLParam(r, "id"), resolved)
	if err != nil {
		if err == ErrNotFound {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "custom request not found", nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"id":           updated.ID,
		"status":       updated.Status,
		"status_group": GroupOf(updated.Status),
		"updated_at":   updated.UpdatedAt,
	}})
}
