package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kaos-euy/backend-kaos/internal/catalog"
	"github.com/kaos-euy/backend-kaos/internal/common"
	"github.com/kaos-euy/backend-kaos/internal/obs"
	"github.com/kaos-euy/backend-kaos/internal/pricing"
)

// ProductSource resolves authoritative product data for pricing.
type ProductSource interface {
	ProductsByID(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}

// AddInput captures the payload for adding a cart line. Prices are never part
// of the input; they are resolved from the catalog.
type AddInput struct {
	ProductID     string                `json:"product_id"`
	Size          string                `json:"size"`
	ColorCode     string                `json:"color_code"`
	Qty           int                   `json:"qty"`
	Customization pricing.Customization `json:"customization"`
}

// QuoteInput selects a subset of cart lines to price. A nil SelectedKeys
// prices the whole cart; an empty slice prices nothing.
type QuoteInput struct {
	SelectedKeys []string          `json:"selected_keys"`
	OrderType    pricing.OrderType `json:"order_type"`
	ShippingFee  int64             `json:"shipping_fee_cents"`
}

// Service encapsulates cart domain operations.
type Service struct {
	Store    Store
	Products ProductSource
	Metrics  *obs.ShopMetrics
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) countOp(op string) {
	if s.Metrics != nil {
		s.Metrics.CartOperationsTotal.WithLabelValues(op).Inc()
	}
}

// Create starts an empty cart.
func (s *Service) Create(ctx context.Context) (Cart, error) {
	now := s.now()
	c := Cart{ID: uuid.NewString(), Lines: []Line{}, CreatedAt: now, UpdatedAt: now}
	if err := s.Store.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	s.countOp("create")
	return c, nil
}

// Get loads a cart with a full-cart snapshot priced at the personal (no
// discount) rate. Bulk pricing is previewed through Quote.
func (s *Service) Get(ctx context.Context, id string) (Cart, pricing.Snapshot, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return Cart{}, pricing.Snapshot{}, err
	}
	snap := pricing.PriceSelection(pricingLines(c.Lines), nil, pricing.OrderTypePersonal, 0)
	return c, snap, nil
}

// AddItem resolves the product, prices the line server-side, and merges it
// into the cart. Identical product/size/color/customization selections merge
// into a single line.
func (s *Service) AddItem(ctx context.Context, cartID string, in AddInput) (Cart, error) {
	if in.Qty <= 0 {
		return Cart{}, common.NewValidationError("invalid cart line", map[string]string{"qty": "must be at least 1"})
	}
	in.ProductID = strings.TrimSpace(in.ProductID)
	if in.ProductID == "" {
		return Cart{}, common.NewValidationError("invalid cart line", map[string]string{"product_id": "is required"})
	}

	c, err := s.load(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}

	products, err := s.Products.ProductsByID(ctx, []string{in.ProductID})
	if err != nil {
		return Cart{}, err
	}
	product, ok := products[in.ProductID]
	if !ok {
		return Cart{}, common.NewAppError("INVALID_PRODUCT", "unknown product", http.StatusBadRequest, nil)
	}
	if err := validateOptions(product, in.Size, in.ColorCode); err != nil {
		return Cart{}, err
	}

	cust := in.Customization.Normalize()
	key := LineKey(in.ProductID, in.Size, in.ColorCode, cust)

	merged := false
	for i := range c.Lines {
		if c.Lines[i].Key == key {
			c.Lines[i].Qty += in.Qty
			merged = true
			break
		}
	}
	if !merged {
		c.Lines = append(c.Lines, Line{
			Key:            key,
			ProductID:      product.ID,
			ProductName:    product.Name,
			Size:           in.Size,
			ColorCode:      in.ColorCode,
			ColorName:      colorName(product, in.ColorCode),
			Qty:            in.Qty,
			UnitPriceCents: product.PriceCents,
			CustomFeeCents: int64(cust.Fee()),
			Customization:  cust,
		})
	}
	c.UpdatedAt = s.now()
	if err := s.Store.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	s.countOp("add_item")
	return c, nil
}

// UpdateQty sets a line's quantity. Zero removes the line; the write is
// last-write-wins.
func (s *Service) UpdateQty(ctx context.Context, cartID, key string, qty int) (Cart, error) {
	if qty < 0 {
		return Cart{}, common.NewValidationError("invalid quantity", map[string]string{"qty": "must not be negative"})
	}
	c, err := s.load(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}

	idx := -1
	for i := range c.Lines {
		if c.Lines[i].Key == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Cart{}, common.NewAppError("LINE_NOT_FOUND", "cart line not found", http.StatusNotFound, nil)
	}
	if qty == 0 {
		c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
	} else {
		c.Lines[idx].Qty = qty
	}
	c.UpdatedAt = s.now()
	if err := s.Store.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	s.countOp("update_qty")
	return c, nil
}

// RemoveItem deletes a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, cartID, key string) (Cart, error) {
	return s.UpdateQty(ctx, cartID, key, 0)
}

// Delete discards the whole cart.
func (s *Service) Delete(ctx context.Context, cartID string) error {
	if _, err := s.load(ctx, cartID); err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, cartID); err != nil {
		return err
	}
	s.countOp("delete")
	return nil
}

// Quote prices an explicit selection of cart lines. Unit prices and custom
// fees are refreshed from the catalog first so stale cart data never reaches
// a checkout preview.
func (s *Service) Quote(ctx context.Context, cartID string, in QuoteInput) (pricing.Snapshot, error) {
	c, err := s.load(ctx, cartID)
	if err != nil {
		return pricing.Snapshot{}, err
	}
	if in.OrderType != pricing.OrderTypeBulk {
		in.OrderType = pricing.OrderTypePersonal
	}

	if err := s.refreshPrices(ctx, &c); err != nil {
		return pricing.Snapshot{}, err
	}

	var selected map[string]bool
	if in.SelectedKeys != nil {
		selected = make(map[string]bool, len(in.SelectedKeys))
		for _, k := range in.SelectedKeys {
			selected[k] = true
		}
	}
	s.countOp("quote")
	return pricing.PriceSelection(pricingLines(c.Lines), selected, in.OrderType, in.ShippingFee), nil
}

func (s *Service) load(ctx context.Context, id string) (Cart, error) {
	if strings.TrimSpace(id) == "" {
		return Cart{}, common.NewAppError("NOT_FOUND", "cart not found", http.StatusNotFound, ErrNotFound)
	}
	c, err := s.Store.Get(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return Cart{}, common.NewAppError("NOT_FOUND", "cart not found", http.StatusNotFound, err)
		}
		return Cart{}, err
	}
	return c, nil
}

func (s *Service) refreshPrices(ctx context.Context, c *Cart) error {
	if len(c.Lines) == 0 {
		return nil
	}
	ids := make([]string, 0, len(c.Lines))
	seen := map[string]bool{}
	for _, ln := range c.Lines {
		if !seen[ln.ProductID] {
			seen[ln.ProductID] = true
			ids = append(ids, ln.ProductID)
		}
	}
	products, err := s.Products.ProductsByID(ctx, ids)
	if err != nil {
		return err
	}
	for i := range c.Lines {
		if p, ok := products[c.Lines[i].ProductID]; ok {
			c.Lines[i].UnitPriceCents = p.PriceCents
		}
		c.Lines[i].CustomFeeCents = int64(c.Lines[i].Customization.Fee())
	}
	return nil
}

// LineKey derives the stable identity of a cart line from the product, its
// options, and the canonical form of its customization.
func LineKey(productID, size, colorCode string, cust pricing.Customization) string {
	canonical, _ := json.Marshal(cust.Normalize())
	return common.Sha256Hex(productID + "|" + size + "|" + colorCode + "|" + string(canonical))
}

func pricingLines(lines []Line) []pricing.Line {
	out := make([]pricing.Line, 0, len(lines))
	for _, ln := range lines {
		out = append(out, pricing.Line{
			Key:              ln.Key,
			ProductID:        ln.ProductID,
			Size:             ln.Size,
			ColorCode:        ln.ColorCode,
			ColorName:        ln.ColorName,
			Qty:              ln.Qty,
			UnitPrice:        ln.UnitPriceCents,
			CustomFeePerUnit: ln.CustomFeeCents,
		})
	}
	return out
}

func validateOptions(p catalog.Product, size, colorCode string) error {
	fieldErrs := map[string]string{}
	if len(p.Sizes) > 0 {
		found := false
		for _, s := range p.Sizes {
			if strings.EqualFold(s, size) {
				found = true
				break
			}
		}
		if !found {
			fieldErrs["size"] = "not available for this product"
		}
	}
	if len(p.Colors) > 0 {
		found := false
		for _, c := range p.Colors {
			if strings.EqualFold(c.Code, colorCode) {
				found = true
				break
			}
		}
		if !found {
			fieldErrs["color_code"] = "not available for this product"
		}
	}
	if len(fieldErrs) > 0 {
		return common.NewValidationError("invalid product options", fieldErrs)
	}
	return nil
}

func colorName(p catalog.Product, code string) string {
	for _, c := range p.Colors {
		if strings.EqualFold(c.Code, code) {
			return c.Name
		}
	}
	return code
}
