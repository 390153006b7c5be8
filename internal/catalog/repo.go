package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Color pairs a machine code with a display name.
type Color struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Product is an apparel product as served to the storefront.
type Product struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	Currency    string    `json:"currency"`
	Images      []string  `json:"images"`
	Sizes       []string  `json:"sizes"`
	Colors      []Color   `json:"colors"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ErrNotFound reports a missing product.
var ErrNotFound = errors.New("product not found")

// Repo reads products from Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepo constructs a product repository.
func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const productColumns = `id, slug, name, description, price_cents, currency, images, sizes, colors, is_active, created_at, updated_at`

// ListActive returns a page of active products ordered by creation time.
func (r *Repo) ListActive(ctx context.Context, limit, offset int) ([]Product, int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+`
		   FROM products
		  WHERE is_active
		  ORDER BY created_at DESC, id
		  LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products WHERE is_active`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// GetBySlug returns one active product by slug.
func (r *Repo) GetBySlug(ctx context.Context, slug string) (Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE slug = $1 AND is_active`, slug)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// GetByIDs returns active products for the given ids, keyed by id. Missing
// and malformed ids are simply absent from the result.
func (r *Repo) GetByIDs(ctx context.Context, ids []string) (map[string]Product, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return map[string]Product{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1) AND is_active`, valid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Slug, &p.Name, &p.Description, &p.PriceCents, &p.Currency,
		&p.Images, &p.Sizes, &p.Colors, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
