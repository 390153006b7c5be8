package order

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kaos-euy/backend-kaos/internal/pricing"
)

// ErrNotFound reports a missing order.
var ErrNotFound = errors.New("order not found")

// ErrDuplicateNumber reports an order number collision on insert.
var ErrDuplicateNumber = errors.New("duplicate order number")

// Item is one line of a placed order with its price frozen at checkout time.
type Item struct {
	ID             string                `json:"id"`
	OrderID        string                `json:"order_id"`
	ProductID      string                `json:"product_id"`
	ProductName    string                `json:"product_name"`
	Size           string                `json:"size"`
	ColorCode      string                `json:"color_code"`
	ColorName      string                `json:"color_name"`
	Qty            int                   `json:"qty"`
	UnitPriceCents int64                 `json:"unit_price_cents"`
	CustomFeeCents int64                 `json:"custom_fee_cents"`
	LineTotalCents int64                 `json:"line_total_cents"`
	Customization  pricing.Customization `json:"customization"`
}

// Address is the shipping destination captured at checkout.
type Address struct {
	Line1      string `json:"address_line1"`
	Line2      string `json:"address_line2,omitempty"`
	City       string `json:"city"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
}

// Order is a placed guest order.
type Order struct {
	ID            string            `json:"id"`
	OrderNumber   string            `json:"order_number"`
	OrderType     pricing.OrderType `json:"order_type"`
	Status        Status            `json:"status"`
	BuyerName     string            `json:"buyer_name"`
	BuyerPhone    string            `json:"buyer_phone"`
	BuyerEmail    string            `json:"buyer_email,omitempty"`
	Shipping      Address           `json:"shipping_address"`
	Notes         string            `json:"notes,omitempty"`
	SubtotalCents int64             `json:"subtotal_cents"`
	DiscountBps   int               `json:"discount_bps"`
	DiscountCents int64             `json:"discount_cents"`
	ShippingCents int64             `json:"shipping_cents"`
	TotalCents    int64             `json:"total_cents"`
	TotalQty      int               `json:"total_qty"`
	LookupToken   string            `json:"-"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Items         []Item            `json:"items,omitempty"`
}

// Repo persists orders in Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepo constructs an order repository.
func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const orderColumns = `id, order_number, order_type, status, buyer_name, buyer_phone, buyer_email,
	address_line1, address_line2, city, province, postal_code, country, notes,
	subtotal_cents, discount_bps, discount_cents, shipping_cents, total_cents, total_qty,
	lookup_token, created_at, updated_at`

// Create inserts the order header and all items in one transaction. Any item
// failure rolls the whole order back. A unique violation on the order number
// surfaces as ErrDuplicateNumber so the caller can retry with a new suffix.
func (r *Repo) Create(ctx context.Context, o Order) (Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	err = tx.QueryRow(ctx,
		`INSERT INTO orders (order_number, order_type, status, buyer_name, buyer_phone, buyer_email,
			address_line1, address_line2, city, province, postal_code, country, notes,
			subtotal_cents, discount_bps, discount_cents, shipping_cents, total_cents, total_qty, lookup_token)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		 RETURNING id, created_at, updated_at`,
		o.OrderNumber, string(o.OrderType), string(o.Status), o.BuyerName, o.BuyerPhone, o.BuyerEmail,
		o.Shipping.Line1, o.Shipping.Line2, o.Shipping.City, o.Shipping.Province, o.Shipping.PostalCode, o.Shipping.Country, o.Notes,
		o.SubtotalCents, o.DiscountBps, o.DiscountCents, o.ShippingCents, o.TotalCents, o.TotalQty, o.LookupToken,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Order{}, ErrDuplicateNumber
		}
		return Order{}, err
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO order_items (order_id, product_id, product_name, size, color_code, color_name,
				qty, unit_price_cents, custom_fee_cents, line_total_cents, customization)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			 RETURNING id`,
			o.ID, item.ProductID, item.ProductName, item.Size, item.ColorCode, item.ColorName,
			item.Qty, item.UnitPriceCents, item.CustomFeeCents, item.LineTotalCents, item.Customization,
		).Scan(&item.ID)
		if err != nil {
			return Order{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

// GetByNumberAndToken returns an order for guest lookup. A wrong token reads
// the same as a missing order.
func (r *Repo) GetByNumberAndToken(ctx context.Context, number, token string) (Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_number = $1 AND lookup_token = $2`, number, token)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	o.Items, err = r.itemsFor(ctx, o.ID)
	return o, err
}

// GetByID returns an order with its items. A malformed id reads as missing so
// handlers answer 404 instead of surfacing a codec error.
func (r *Repo) GetByID(ctx context.Context, id string) (Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Order{}, ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	o.Items, err = r.itemsFor(ctx, o.ID)
	return o, err
}

// List returns order headers, newest first, optionally filtered by status.
func (r *Repo) List(ctx context.Context, statuses []Status, limit, offset int) ([]Order, int64, error) {
	filter := make([]string, 0, len(statuses))
	for _, s := range statuses {
		filter = append(filter, string(s))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	countQuery := `SELECT count(*) FROM orders`
	args := []any{}
	if len(filter) > 0 {
		query += ` WHERE status = ANY($1)`
		countQuery += ` WHERE status = ANY($1)`
		args = append(args, filter)
	}
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)

	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := make([]Order, 0, limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatus transitions an order and returns the updated header.
func (r *Repo) UpdateStatus(ctx context.Context, id string, status Status) (Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Order{}, ErrNotFound
	}
	row := r.pool.QueryRow(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1 RETURNING `+orderColumns, id, string(status))
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	return o, nil
}

func (r *Repo) itemsFor(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, product_id, product_name, size, color_code, color_name,
			qty, unit_price_cents, custom_fee_cents, line_total_cents, customization
		   FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Size, &it.ColorCode,
			&it.ColorName, &it.Qty, &it.UnitPriceCents, &it.CustomFeeCents, &it.LineTotalCents, &it.Customization); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var orderType, status string
	err := row.Scan(
		&o.ID, &o.OrderNumber, &orderType, &status, &o.BuyerName, &o.BuyerPhone, &o.BuyerEmail,
		&o.Shipping.Line1, &o.Shipping.Line2, &o.Shipping.City, &o.Shipping.Province, &o.Shipping.PostalCode,
		&o.Shipping.Country, &o.Notes,
		&o.SubtotalCents, &o.DiscountBps, &o.DiscountCents, &o.ShippingCents, &o.TotalCents, &o.TotalQty,
		&o.LookupToken, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return Order{}, err
	}
	o.OrderType = pricing.OrderType(orderType)
	o.Status = Status(status)
	return o, nil
}
