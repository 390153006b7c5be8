package customreq

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound reports a missing custom request.
var ErrNotFound = errors.New("custom request not found")

// ErrDuplicateNumber reports a request number collision on insert.
var ErrDuplicateNumber = errors.New("duplicate request number")

// FileMeta describes one uploaded design file attached to a request.
type FileMeta struct {
	Bucket       string `json:"bucket"`
	Path         string `json:"path"`
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
	SizeBytes    int64  `json:"size_bytes"`
}

// Request is a bulk custom-design quote request.
type Request struct {
	ID               string     `json:"id"`
	RequestNumber    string     `json:"request_number"`
	Status           Status     `json:"status"`
	RequesterName    string     `json:"requester_name"`
	OrgName          string     `json:"org_name,omitempty"`
	Whatsapp         string     `json:"whatsapp"`
	ProductTypes     []string   `json:"product_types"`
	QuantityEstimate int        `json:"quantity_estimate"`
	DeadlineDate     *time.Time `json:"deadline_date,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	UploadGroupID    string     `json:"upload_group_id,omitempty"`
	Files            []FileMeta `json:"files"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Repo persists custom requests in Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepo constructs a custom request repository.
func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const requestColumns = `id, request_number, status, requester_name, org_name, whatsapp,
	product_types, quantity_estimate, deadline_date, notes, upload_group_id, files,
	created_at, updated_at`

// Create inserts a request. A unique violation on the request number surfaces
// as ErrDuplicateNumber.
func (r *Repo) Create(ctx context.Context, req Request) (Request, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO custom_requests (request_number, status, requester_name, org_name, whatsapp,
			product_types, quantity_estimate, deadline_date, notes, upload_group_id, files)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 RETURNING id, created_at, updated_at`,
		req.RequestNumber, string(req.Status), req.RequesterName, req.OrgName, req.Whatsapp,
		req.ProductTypes, req.QuantityEstimate, req.DeadlineDate, req.Notes, req.UploadGroupID, req.Files,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Request{}, ErrDuplicateNumber
		}
		return Request{}, err
	}
	return req, nil
}

// GetByID returns one request. A malformed id reads as missing so handlers
// answer 404 instead of surfacing a codec error.
func (r *Repo) GetByID(ctx context.Context, id string) (Request, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Request{}, ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM custom_requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, err
	}
	return req, nil
}

// List returns requests, newest first, optionally filtered by status.
func (r *Repo) List(ctx context.Context, statuses []Status, limit, offset int) ([]Request, int64, error) {
	filter := make([]string, 0, len(statuses))
	for _, s := range statuses {
		filter = append(filter, string(s))
	}

	query := `SELECT ` + requestColumns + ` FROM custom_requests`
	countQuery := `SELECT count(*) FROM custom_requests`
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

	requests := make([]Request, 0, limit)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// UpdateStatus transitions a request and returns the updated row.
func (r *Repo) UpdateStatus(ctx context.Context, id string, status Status) (Request, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Request{}, ErrNotFound
	}
	row := r.pool.QueryRow(ctx,
		`UPDATE custom_requests SET status = $2, updated_at = now() WHERE id = $1 RETURNING `+requestColumns,
		id, string(status))
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, err
	}
	return req, nil
}

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	var status string
	err := row.Scan(
		&req.ID, &req.RequestNumber, &status, &req.RequesterName, &req.OrgName, &req.Whatsapp,
		&req.ProductTypes, &req.QuantityEstimate, &req.DeadlineDate, &req.Notes, &req.UploadGroupID, &req.Files,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return Request{}, err
	}
	req.Status = Status(status)
	return req, nil
}
