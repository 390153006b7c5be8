package checkout

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/kaos-euy/backend-kaos/internal/catalog"
	"github.com/kaos-euy/backend-kaos/internal/common"
	"github.com/kaos-euy/backend-kaos/internal/events"
	"github.com/kaos-euy/backend-kaos/internal/obs"
	"github.com/kaos-euy/backend-kaos/internal/order"
	"github.com/kaos-euy/backend-kaos/internal/pricing"
)

// AddressInput is the shipping destination submitted at checkout.
type AddressInput struct {
	Line1      string `json:"address_line1" validate:"required"`
	Line2      string `json:"address_line2"`
	City       string `json:"city" validate:"required"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country" validate:"required"`
}

// ItemInput is one requested order line. It deliberately carries no price
// fields; all amounts are resolved server-side.
type ItemInput struct {
	ProductID     string                `json:"product_id" validate:"required"`
	Size          string                `json:"size"`
	ColorCode     string                `json:"color_code"`
	Qty           int                   `json:"qty" validate:"required,min=1"`
	Customization pricing.Customization `json:"customization"`
}

// Input is the guest checkout payload. CompanyWebsite is a honeypot: humans
// never see the field, so any content marks the submission as spam.
type Input struct {
	OrderType       string       `json:"order_type" validate:"omitempty,oneof=personal bulk"`
	BuyerName       string       `json:"buyer_name" validate:"required"`
	BuyerPhone      string       `json:"buyer_phone" validate:"required"`
	BuyerEmail      string       `json:"buyer_email" validate:"omitempty,email"`
	CompanyWebsite  string       `json:"company_website"`
	ShippingAddress AddressInput `json:"shipping_address"`
	Notes           string       `json:"notes"`
	Items           []ItemInput  `json:"items" validate:"required,min=1,dive"`
}

// Output is the checkout response payload.
type Output struct {
	ID            string `json:"id"`
	OrderNumber   string `json:"order_number"`
	Status        string `json:"status"`
	SubtotalCents int64  `json:"subtotal_cents"`
	DiscountCents int64  `json:"discount_cents"`
	ShippingCents int64  `json:"shipping_cents"`
	TotalCents    int64  `json:"total_cents"`
	LookupToken   string `json:"lookup_token"`
}

// OrderCreator abstracts order persistence for the service.
type OrderCreator interface {
	Create(ctx context.Context, o order.Order) (order.Order, error)
}

// ProductSource resolves authoritative product data.
type ProductSource interface {
	ProductsByID(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}

// Service turns a checkout payload into a stored order.
type Service struct {
	Orders   OrderCreator
	Products ProductSource
	Events   events.Publisher
	Metrics  *obs.ShopMetrics
	Log      zerolog.Logger
	Now      func() time.Time

	validate *validator.Validate
}

// NewService constructs a checkout service.
func NewService(orders OrderCreator, products ProductSource, pub events.Publisher) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{
		Orders:   orders,
		Products: products,
		Events:   pub,
		validate: v,
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Submit validates the payload, reprices it from the catalog, and stores the
// order. Client-side price or discount figures never enter the calculation.
func (s *Service) Submit(ctx context.Context, in Input) (Output, error) {
	if strings.TrimSpace(in.CompanyWebsite) != "" {
		return Output{}, common.NewAppError("SPAM_DETECTED", "submission rejected", http.StatusBadRequest, nil)
	}
	if err := s.validate.Struct(in); err != nil {
		return Output{}, validationError(err)
	}

	orderType := pricing.OrderType(in.OrderType)
	if orderType != pricing.OrderTypeBulk {
		orderType = pricing.OrderTypePersonal
	}

	ids := make([]string, 0, len(in.Items))
	seen := map[string]bool{}
	for _, item := range in.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	products, err := s.Products.ProductsByID(ctx, ids)
	if err != nil {
		return Output{}, err
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return Output{}, common.NewAppError("INVALID_PRODUCT", fmt.Sprintf("unknown product %s", id), http.StatusBadRequest, nil)
		}
	}

	items := make([]order.Item, 0, len(in.Items))
	lines := make([]pricing.Line, 0, len(in.Items))
	for i, item := range in.Items {
		product := products[item.ProductID]
		cust := item.Customization.Normalize()
		fee := cust.Fee()
		lineKey := fmt.Sprintf("line-%d", i)
		lines = append(lines, pricing.Line{
			Key:              lineKey,
			ProductID:        product.ID,
			Qty:              item.Qty,
			UnitPrice:        product.PriceCents,
			CustomFeePerUnit: fee,
		})
		items = append(items, order.Item{
			ProductID:      product.ID,
			ProductName:    product.Name,
			Size:           item.Size,
			ColorCode:      item.ColorCode,
			ColorName:      colorName(product, item.ColorCode),
			Qty:            item.Qty,
			UnitPriceCents: product.PriceCents,
			CustomFeeCents: int64(fee),
			LineTotalCents: (product.PriceCents + int64(fee)) * int64(item.Qty),
			Customization:  cust,
		})
	}

	// shipping is not a paid feature yet; the term stays in the snapshot
	// contract but checkout never takes a fee from the client
	snap := pricing.PriceSelection(lines, nil, orderType, 0)
	if snap.TotalQty == 0 {
		return Output{}, common.NewValidationError("order has no purchasable items",
			map[string]string{"items": "at least one item with positive quantity is required"})
	}

	token, err := newLookupToken()
	if err != nil {
		return Output{}, err
	}

	o := order.Order{
		OrderType:  orderType,
		Status:     order.StatusPendingConfirmation,
		BuyerName:  strings.TrimSpace(in.BuyerName),
		BuyerPhone: strings.TrimSpace(in.BuyerPhone),
		BuyerEmail: strings.TrimSpace(in.BuyerEmail),
		Shipping: order.Address{
			Line1:      strings.TrimSpace(in.ShippingAddress.Line1),
			Line2:      strings.TrimSpace(in.ShippingAddress.Line2),
			City:       strings.TrimSpace(in.ShippingAddress.City),
			Province:   strings.TrimSpace(in.ShippingAddress.Province),
			PostalCode: strings.TrimSpace(in.ShippingAddress.PostalCode),
			Country:    strings.TrimSpace(in.ShippingAddress.Country),
		},
		Notes:         strings.TrimSpace(in.Notes),
		SubtotalCents: snap.Subtotal,
		DiscountBps:   snap.DiscountBps,
		DiscountCents: snap.Discount,
		ShippingCents: snap.Shipping,
		TotalCents:    snap.Total,
		TotalQty:      snap.TotalQty,
		LookupToken:   token,
		Items:         items,
	}

	stored, err := s.createWithFreshNumber(ctx, o)
	if err != nil {
		return Output{}, err
	}

	if s.Metrics != nil {
		s.Metrics.OrdersCreated.WithLabelValues(string(orderType)).Inc()
	}
	if s.Events != nil {
		evt := events.OrderCreated{
			OrderID:     stored.ID,
			OrderNumber: stored.OrderNumber,
			OrderType:   string(stored.OrderType),
			BuyerName:   stored.BuyerName,
			TotalCents:  stored.TotalCents,
			TotalQty:    stored.TotalQty,
			CreatedAt:   stored.CreatedAt,
		}
		if err := s.Events.Publish(ctx, events.TaskOrderCreated, evt); err != nil {
			s.Log.Warn().Err(err).Str("order", stored.OrderNumber).Msg("order created event not enqueued")
		}
	}

	return Output{
		ID:            stored.ID,
		OrderNumber:   stored.OrderNumber,
		Status:        string(stored.Status),
		SubtotalCents: stored.SubtotalCents,
		DiscountCents: stored.DiscountCents,
		ShippingCents: stored.ShippingCents,
		TotalCents:    stored.TotalCents,
		LookupToken:   stored.LookupToken,
	}, nil
}

// createWithFreshNumber retries the insert with a new random suffix when the
// generated order number collides.
func (s *Service) createWithFreshNumber(ctx context.Context, o order.Order) (order.Order, error) {
	const attempts = 5
	for i := 0; i < attempts; i++ {
		number, err := s.newOrderNumber()
		if err != nil {
			return order.Order{}, err
		}
		o.OrderNumber = number
		stored, err := s.Orders.Create(ctx, o)
		if err == nil {
			return stored, nil
		}
		if !errors.Is(err, order.ErrDuplicateNumber) {
			return order.Order{}, err
		}
	}
	return order.Order{}, fmt.Errorf("could not allocate a unique order number after %d attempts", attempts)
}

// newOrderNumber builds EUY-YYYYMMDD-XXXX with a random 4-digit suffix.
func (s *Service) newOrderNumber() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("EUY-%s-%04d", s.now().Format("20060102"), n.Int64()), nil
}

func colorName(p catalog.Product, code string) string {
	for _, c := range p.Colors {
		if strings.EqualFold(c.Code, code) {
			return c.Name
		}
	}
	return code
}

func newLookupToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// validationError flattens validator output into the per-field error map.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return common.NewValidationError("invalid checkout payload", nil)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldName(fe)] = fieldMessage(fe)
	}
	return common.NewValidationError("invalid checkout payload", fields)
}

func fieldName(fe validator.FieldError) string {
	// Namespace uses registered JSON names, e.g.
	// Input.shipping_address.address_line1; drop the root struct segment.
	parts := strings.SplitN(fe.Namespace(), ".", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind().String() == "slice" {
			return "must contain at least " + fe.Param() + " item"
		}
		return "must be at least " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	}
	return "is invalid"
}
