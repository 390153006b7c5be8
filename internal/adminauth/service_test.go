package adminauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, password string) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	require.NoError(t, err)

	return &Service{
		Redis:        client,
		PasswordHash: hash,
		SessionTTL:   8 * time.Hour,
	}, mr
}

func TestLoginAndValidate(t *testing.T) {
	svc, _ := newTestService(t, "rahasia-kaos")
	ctx := context.Background()

	token, err := svc.Login(ctx, "rahasia-kaos")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	ok, err := svc.Validate(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _ := newTestService(t, "rahasia-kaos")

	_, err := svc.Login(context.Background(), "salah")
	require.Error(t, err)
}

func TestSessionExpires(t *testing.T) {
	svc, mr := newTestService(t, "rahasia-kaos")
	ctx := context.Background()

	token, err := svc.Login(ctx, "rahasia-kaos")
	require.NoError(t, err)

	mr.FastForward(9 * time.Hour)

	ok, err := svc.Validate(ctx, token)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	svc, _ := newTestService(t, "rahasia-kaos")
	ctx := context.Background()

	token, err := svc.Login(ctx, "rahasia-kaos")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, token))

	ok, err := svc.Validate(ctx, token)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRequireAdminMiddleware(t *testing.T) {
	svc, _ := newTestService(t, "rahasia-kaos")
	h := &Handler{Service: svc}

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	guarded := h.RequireAdmin(next)

	// No cookie.
	rec := httptest.NewRecorder()
	guarded.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Bogus cookie.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "nope"})
	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid session.
	token, err := svc.Login(context.Background(), "rahasia-kaos")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLoginHandlerSetsCookie(t *testing.T) {
	svc, _ := newTestService(t, "rahasia-kaos")
	h := &Handler{Service: svc}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login",
		strings.NewReader(`{"password":"rahasia-kaos"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, CookieName, cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)
	require.NotEmpty(t, cookies[0].Value)
}

func TestSessionCookieCarriesDomainAndSameSite(t *testing.T) {
	svc, _ := newTestService(t, "rahasia-kaos")
	svc.CookieDomain = "shop.kaos-euy.id"
	svc.CookieSameSite = http.SameSiteStrictMode

	c := svc.SessionCookie("token-123")
	require.Equal(t, "shop.kaos-euy.id", c.Domain)
	require.Equal(t, http.SameSiteStrictMode, c.SameSite)

	// unset falls back to Lax
	svc.CookieSameSite = http.SameSiteDefaultMode
	require.Equal(t, http.SameSiteLaxMode, svc.SessionCookie("token-123").SameSite)
}
