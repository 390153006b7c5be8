package uploads

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"logo final.png", "logo_final.png"},
		{"  desain keren!!.svg ", "desain_keren.svg"},
		{"../../etc/passwd", "....etcpasswd"},
		{"", "file"},
		{"###", "file"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, SanitizeFileName(tc.in), "input %q", tc.in)
	}
	long := strings.Repeat("a", 200) + ".png"
	require.Len(t, SanitizeFileName(long), 120)
}

func TestAllowedExtension(t *testing.T) {
	require.True(t, AllowedExtension("design.PNG"))
	require.True(t, AllowedExtension("vector.ai"))
	require.False(t, AllowedExtension("shell.sh"))
	require.False(t, AllowedExtension("noextension"))
}

func TestSignerRoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s := &Signer{Key: []byte("test-key"), Now: func() time.Time { return now }}

	exp, sig := s.Sign("custom-requests/g1/a.png", 10*time.Minute)
	require.True(t, s.Verify("custom-requests/g1/a.png", exp, sig))

	// Tampered path or expiry must fail.
	require.False(t, s.Verify("custom-requests/g1/b.png", exp, sig))
	require.False(t, s.Verify("custom-requests/g1/a.png", exp+1, sig))

	// Expired URL must fail.
	s.Now = func() time.Time { return now.Add(11 * time.Minute) }
	require.False(t, s.Verify("custom-requests/g1/a.png", exp, sig))
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	return &Handler{
		Signer: &Signer{Key: []byte("test-key")},
		Store:  &FSStore{BaseDir: t.TempDir()},
		URLTTL: 10 * time.Minute,
	}
}

func presign(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads/presign", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Presign(rec, req)
	return rec
}

func TestPresignHappyPath(t *testing.T) {
	h := newTestHandler(t)

	rec := presign(t, h, `{
		"ownerType": "custom_request",
		"uploadGroupId": "group-1",
		"fileName": "logo final.png",
		"mimeType": "image/png",
		"sizeBytes": 1024
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data presignResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, strings.HasPrefix(body.Data.Path, "custom-requests/group-1/"))
	require.True(t, strings.HasSuffix(body.Data.Path, "_logo_final.png"))
	require.Contains(t, body.Data.UploadURL, "sig=")
}

func TestPresignRejectsBadInput(t *testing.T) {
	h := newTestHandler(t)

	rec := presign(t, h, `{
		"ownerType": "custom_request",
		"uploadGroupId": "group-1",
		"fileName": "malware.exe",
		"mimeType": "application/octet-stream",
		"sizeBytes": 99999999
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Code        string            `json:"code"`
		FieldErrors map[string]string `json:"fieldErrors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "VALIDATION_ERROR", body.Code)
	require.Contains(t, body.FieldErrors, "fileName")
	require.Contains(t, body.FieldErrors, "mimeType")
	require.Contains(t, body.FieldErrors, "sizeBytes")
}

func TestPutStoresSignedObject(t *testing.T) {
	dir := t.TempDir()
	h := &Handler{
		Signer: &Signer{Key: []byte("test-key")},
		Store:  &FSStore{BaseDir: dir},
		URLTTL: 10 * time.Minute,
	}

	path := "custom-requests/group-1/file.png"
	exp, sig := h.Signer.Sign(path, h.ttl())

	req := httptest.NewRequest(http.MethodPut,
		"/api/v1/uploads/"+path+"?exp="+strconv.FormatInt(exp, 10)+"&sig="+sig,
		strings.NewReader("png bytes"))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("*", path)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.Put(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(path)))
	require.NoError(t, err)
	require.Equal(t, "png bytes", string(data))
}

func TestPutRejectsBadSignature(t *testing.T) {
	h := newTestHandler(t)

	path := "custom-requests/group-1/file.png"
	exp, _ := h.Signer.Sign(path, h.ttl())

	req := httptest.NewRequest(http.MethodPut,
		"/api/v1/uploads/"+path+"?exp="+strconv.FormatInt(exp, 10)+"&sig=deadbeef",
		strings.NewReader("x"))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("*", path)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.Put(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestFSStoreRejectsTraversal(t *testing.T) {
	s := &FSStore{BaseDir: t.TempDir()}
	err := s.Put(context.Background(), "../escape.txt", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrUnsafePath)
}
