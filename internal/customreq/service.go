package customreq

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kaos-euy/backend-kaos/internal/common"
	"github.com/kaos-euy/backend-kaos/internal/events"
	"github.com/kaos-euy/backend-kaos/internal/obs"
)

// MaxFiles bounds the number of uploaded files per request.
const MaxFiles = 10

// Input is the public submission payload. CompanyWebsite is the honeypot.
type Input struct {
	RequesterName    string     `json:"requester_name"`
	OrgName          string     `json:"org_name"`
	Whatsapp         string     `json:"whatsapp"`
	CompanyWebsite   string     `json:"company_website"`
	ProductTypes     []string   `json:"product_types"`
	QuantityEstimate int        `json:"quantity_estimate"`
	DeadlineDate     string     `json:"deadline_date"`
	Notes            string     `json:"notes"`
	UploadGroupID    string     `json:"upload_group_id"`
	Files            []FileMeta `json:"files"`
}

// Repository abstracts request persistence.
type Repository interface {
	Create(ctx context.Context, req Request) (Request, error)
	GetByID(ctx context.Context, id string) (Request, error)
	List(ctx context.Context, statuses []Status, limit, offset int) ([]Request, int64, error)
	UpdateStatus(ctx context.Context, id string, status Status) (Request, error)
}

// Service handles custom request submission and review.
type Service struct {
	Repo    Repository
	Events  events.Publisher
	Metrics *obs.ShopMetrics
	Log     zerolog.Logger
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Submit validates and stores a new custom request.
func (s *Service) Submit(ctx context.Context, in Input) (Request, error) {
	if strings.TrimSpace(in.CompanyWebsite) != "" {
		return Request{}, common.NewAppError("SPAM_DETECTED", "submission rejected", http.StatusBadRequest, nil)
	}

	fieldErrs := map[string]string{}
	if strings.TrimSpace(in.RequesterName) == "" {
		fieldErrs["requester_name"] = "is required"
	}
	if strings.TrimSpace(in.Whatsapp) == "" {
		fieldErrs["whatsapp"] = "is required"
	}

	productTypes := make([]string, 0, len(in.ProductTypes))
	for _, pt := range in.ProductTypes {
		if trimmed := strings.TrimSpace(pt); trimmed != "" {
			productTypes = append(productTypes, trimmed)
		}
	}
	if len(productTypes) == 0 {
		fieldErrs["product_types"] = "select at least one product type"
	}
	if in.QuantityEstimate < 1 {
		fieldErrs["quantity_estimate"] = "must be at least 1"
	}

	var deadline *time.Time
	if strings.TrimSpace(in.DeadlineDate) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(in.DeadlineDate))
		if err != nil {
			fieldErrs["deadline_date"] = "must be a YYYY-MM-DD date"
		} else {
			deadline = &parsed
		}
	}

	if len(in.Files) > MaxFiles {
		fieldErrs["files"] = fmt.Sprintf("at most %d files are allowed", MaxFiles)
	}
	for i, f := range in.Files {
		prefix := "files." + strconv.Itoa(i) + "."
		if strings.TrimSpace(f.Bucket) == "" {
			fieldErrs[prefix+"bucket"] = "is required"
		}
		if strings.TrimSpace(f.Path) == "" {
			fieldErrs[prefix+"path"] = "is required"
		}
		if strings.TrimSpace(f.OriginalName) == "" {
			fieldErrs[prefix+"original_name"] = "is required"
		}
		if strings.TrimSpace(f.MimeType) == "" {
			fieldErrs[prefix+"mime_type"] = "is required"
		}
		if f.SizeBytes <= 0 {
			fieldErrs[prefix+"size_bytes"] = "must be positive"
		}
	}
	if len(fieldErrs) > 0 {
		return Request{}, common.NewValidationError("invalid custom request", fieldErrs)
	}

	req := Request{
		Status:           StatusPending,
		RequesterName:    strings.TrimSpace(in.RequesterName),
		OrgName:          strings.TrimSpace(in.OrgName),
		Whatsapp:         strings.TrimSpace(in.Whatsapp),
		ProductTypes:     productTypes,
		QuantityEstimate: in.QuantityEstimate,
		DeadlineDate:     deadline,
		Notes:            strings.TrimSpace(in.Notes),
		UploadGroupID:    strings.TrimSpace(in.UploadGroupID),
		Files:            in.Files,
	}
	if req.Files == nil {
		req.Files = []FileMeta{}
	}

	stored, err := s.createWithFreshNumber(ctx, req)
	if err != nil {
		return Request{}, err
	}

	if s.Metrics != nil {
		s.Metrics.CustomRequestsTotal.Inc()
	}
	if s.Events != nil {
		evt := events.CustomRequestCreated{
			RequestID:        stored.ID,
			RequestNumber:    stored.RequestNumber,
			RequesterName:    stored.RequesterName,
			QuantityEstimate: stored.QuantityEstimate,
		}
		if err := s.Events.Publish(ctx, events.TaskCustomRequestCreated, evt); err != nil {
			s.Log.Warn().Err(err).Str("request", stored.RequestNumber).Msg("custom request event not enqueued")
		}
	}
	return stored, nil
}

func (s *Service) createWithFreshNumber(ctx context.Context, req Request) (Request, error) {
	const attempts = 5
	for i := 0; i < attempts; i++ {
		number, err := s.newRequestNumber()
		if err != nil {
			return Request{}, err
		}
		req.RequestNumber = number
		stored, err := s.Repo.Create(ctx, req)
		if err == nil {
			return stored, nil
		}
		if !errors.Is(err, ErrDuplicateNumber) {
			return Request{}, err
		}
	}
	return Request{}, fmt.Errorf("could not allocate a unique request number after %d attempts", attempts)
}

// newRequestNumber builds EUY-CR-YYYYMMDD-XXXX with a random 4-digit suffix.
func (s *Service) newRequestNumber() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("EUY-CR-%s-%04d", s.now().Format("20060102"), n.Int64()), nil
}
