package order

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kaos-euy/backend-kaos/internal/common"
)

// Repository abstracts order persistence for the handlers.
type Repository interface {
	GetByNumberAndToken(ctx context.Context, number, token string) (Order, error)
	GetByID(ctx context.Context, id string) (Order, error)
	List(ctx context.Context, statuses []Status, limit, offset int) ([]Order, int64, error)
	UpdateStatus(ctx context.Context, id string, status Status) (Order, error)
}

// Handler exposes guest-facing order endpoints.
type Handler struct {
	repo Repository
}

// NewHandler constructs a Handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// Lookup handles GET /api/v1/orders/{orderNumber}. The lookup token must
// accompany the order number; a wrong token is indistinguishable from a
// missing order so the endpoint never confirms that a number exists.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	number := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if number == "" || token == "" {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		return
	}
	o, err := h.repo.GetByNumberAndToken(r.Context(), number, token)
	if err != nil {
		if err == ErrNotFound {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": lookupView(o)})
}

type lookupResponse struct {
	OrderNumber   string      `json:"order_number"`
	Status        Status      `json:"status"`
	StatusGroup   StatusGroup `json:"status_group"`
	OrderType     string      `json:"order_type"`
	SubtotalCents int64       `json:"subtotal_cents"`
	DiscountCents int64       `json:"discount_cents"`
	ShippingCents int64       `json:"shipping_cents"`
	TotalCents    int64       `json:"total_cents"`
	TotalQty      int         `json:"total_qty"`
	Items         []Item      `json:"items"`
	CreatedAt     string      `json:"created_at"`
}

func lookupView(o Order) lookupResponse {
	return lookupResponse{
		OrderNumber:   o.OrderNumber,
		Status:        o.Status,
		StatusGroup:   GroupOf(o.Status),
		OrderType:     string(o.OrderType),
		SubtotalCents: o.SubtotalCents,
		DiscountCents: o.DiscountCents,
		ShippingCents: o.ShippingCents,
		TotalCents:    o.TotalCents,
		TotalQty:      o.TotalQty,
		Items:         o.Items,
		CreatedAt:     o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
