package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/kaos-euy/backend-kaos/internal/common"
)

// Querier abstracts the product repository for the service layer.
type Querier interface {
	ListActive(ctx context.Context, limit, offset int) ([]Product, int64, error)
	GetBySlug(ctx context.Context, slug string) (Product, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]Product, error)
}

// ListResult carries one page of products plus the total count.
type ListResult struct {
	Items []Product
	Total int64
	Page  int
	Limit int
}

// Service serves catalog reads through a Redis cache.
type Service struct {
	repo  Querier
	cache *Cache
}

// NewService constructs a catalog service.
func NewService(repo Querier, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// ListProducts returns a page of active products, caching each page.
func (s *Service) ListProducts(ctx context.Context, page, perPage int) (ListResult, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}

	key := fmt.Sprintf("catalog:products:p%d:n%d", page, perPage)
	var cached ListResult
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	items, total, err := s.repo.ListActive(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return ListResult{}, err
	}
	result := ListResult{Items: items, Total: total, Page: page, Limit: perPage}
	_ = s.cache.SetJSON(ctx, key, result)
	return result, nil
}

// GetProduct returns one active product by slug.
func (s *Service) GetProduct(ctx context.Context, slug string) (Product, error) {
	slug = strings.TrimSpace(strings.ToLower(slug))
	if slug == "" {
		return Product{}, common.NewAppError("NOT_FOUND", "product not found", http.StatusNotFound, nil)
	}

	key := "catalog:product:" + slug
	var cached Product
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	p, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		if err == ErrNotFound {
			return Product{}, common.NewAppError("NOT_FOUND", "product not found", http.StatusNotFound, err)
		}
		return Product{}, err
	}
	_ = s.cache.SetJSON(ctx, key, p)
	return p, nil
}

// ProductsByID returns active products keyed by id for price resolution. The
// read is uncached so checkout always prices against current data.
func (s *Service) ProductsByID(ctx context.Context, ids []string) (map[string]Product, error) {
	return s.repo.GetByIDs(ctx, ids)
}
