package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	products []Product
}

func (f *fakeRepo) ListActive(_ context.Context, limit, offset int) ([]Product, int64, error) {
	if offset >= len(f.products) {
		return nil, int64(len(f.products)), nil
	}
	end := offset + limit
	if end > len(f.products) {
		end = len(f.products)
	}
	return f.products[offset:end], int64(len(f.products)), nil
}

func (f *fakeRepo) GetBySlug(_ context.Context, slug string) (Product, error) {
	for _, p := range f.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (f *fakeRepo) GetByIDs(_ context.Context, ids []string) (map[string]Product, error) {
	out := map[string]Product{}
	for _, p := range f.products {
		for _, id := range ids {
			if p.ID == id {
				out[p.ID] = p
			}
		}
	}
	return out, nil
}

func newTestHandler(products []Product) *Handler {
	svc := NewService(&fakeRepo{products: products}, nil)
	return NewHandler(svc)
}

func testProducts() []Product {
	return []Product{
		{
			ID:         "11111111-1111-1111-1111-111111111111",
			Slug:       "kaos-polos-hitam",
			Name:       "Kaos Polos Hitam",
			PriceCents: 85000,
			Currency:   "IDR",
			Sizes:      []string{"S", "M", "L", "XL"},
			Colors:     []Color{{Code: "black", Name: "Hitam"}},
			IsActive:   true,
		},
		{
			ID:         "22222222-2222-2222-2222-222222222222",
			Slug:       "kaos-oversize-putih",
			Name:       "Kaos Oversize Putih",
			PriceCents: 110000,
			Currency:   "IDR",
			Sizes:      []string{"M", "L", "XL"},
			Colors:     []Color{{Code: "white", Name: "Putih"}},
			IsActive:   true,
		},
	}
}

func TestProductsListsActiveItems(t *testing.T) {
	h := newTestHandler(testProducts())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()
	h.Products(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "2", rec.Header().Get("X-Total-Count"))

	var body struct {
		Data []Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	require.Equal(t, "kaos-polos-hitam", body.Data[0].Slug)
}

func TestProductsPaginates(t *testing.T) {
	h := newTestHandler(testProducts())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?page=2&limit=1", nil)
	rec := httptest.NewRecorder()
	h.Products(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "kaos-oversize-putih", body.Data[0].Slug)
}

func TestProductDetailReturnsProduct(t *testing.T) {
	h := newTestHandler(testProducts())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/kaos-polos-hitam", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("slug", "kaos-polos-hitam")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.ProductDetail(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, int64(85000), body.Data.PriceCents)
}

func TestProductDetailUnknownSlugReturns404(t *testing.T) {
	h := newTestHandler(testProducts())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/tidak-ada", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("slug", "tidak-ada")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.ProductDetail(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "NOT_FOUND", body.Code)
}
