package checkout

import (
	"encoding/json"
	"net/http"

	"github.com/kaos-euy/backend-kaos/internal/common"
)

// Handler exposes POST /api/v1/orders.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles guest checkout.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", nil)
		return
	}
	out, err := h.service.Submit(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}
