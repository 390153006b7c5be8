package uploads

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kaos-euy/backend-kaos/internal/common"
)

// Handler issues signed upload URLs and accepts the signed PUTs.
type Handler struct {
	Signer *Signer
	Store  BlobStore
	URLTTL time.Duration
}

func (h *Handler) ttl() time.Duration {
	if h.URLTTL <= 0 {
		return 10 * time.Minute
	}
	return h.URLTTL
}

type presignRequest struct {
	OwnerType     string `json:"ownerType"`
	UploadGroupID string `json:"uploadGroupId"`
	FileName      string `json:"fileName"`
	MimeType      string `json:"mimeType"`
	SizeBytes     int64  `json:"sizeBytes"`
}

type presignResponse struct {
	Path      string `json:"path"`
	UploadURL string `json:"uploadUrl"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Presign handles POST /api/v1/uploads/presign.
func (h *Handler) Presign(w http.ResponseWriter, r *http.Request) {
	var body presignRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", nil)
		return
	}

	fieldErrs := map[string]string{}
	if body.OwnerType != "custom_request" {
		fieldErrs["ownerType"] = "must be custom_request"
	}
	if strings.TrimSpace(body.UploadGroupID) == "" {
		fieldErrs["uploadGroupId"] = "is required"
	}
	switch {
	case strings.TrimSpace(body.FileName) == "":
		fieldErrs["fileName"] = "is required"
	case FileExtension(body.FileName) == "":
		fieldErrs["fileName"] = "must include a file extension"
	case !AllowedExtension(body.FileName):
		fieldErrs["fileName"] = "extension not allowed (" + strings.Join(AllowedExtensions, ", ") + ")"
	}
	switch {
	case strings.TrimSpace(body.MimeType) == "":
		fieldErrs["mimeType"] = "is required"
	case !AllowedMimeType(body.MimeType):
		fieldErrs["mimeType"] = "mime type not allowed"
	}
	switch {
	case body.SizeBytes <= 0:
		fieldErrs["sizeBytes"] = "must be positive"
	case body.SizeBytes > MaxFileSizeBytes:
		fieldErrs["sizeBytes"] = fmt.Sprintf("file must be at most %d MiB", MaxFileSizeBytes/(1024*1024))
	}
	if len(fieldErrs) > 0 {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid upload request", fieldErrs)
		return
	}

	path := fmt.Sprintf("custom-requests/%s/%s_%s",
		strings.TrimSpace(body.UploadGroupID), uuid.NewString(), SanitizeFileName(body.FileName))
	exp, sig := h.Signer.Sign(path, h.ttl())

	common.JSON(w, http.StatusOK, map[string]any{"data": presignResponse{
		Path:      path,
		UploadURL: fmt.Sprintf("/api/v1/uploads/%s?exp=%d&sig=%s", path, exp, sig),
		ExpiresAt: exp,
	}})
}

// Put handles PUT /api/v1/uploads/* against a previously signed URL.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	exp, err := strconv.ParseInt(r.URL.Query().Get("exp"), 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusForbidden, "INVALID_SIGNATURE", "upload url is not valid", nil)
		return
	}
	sig := r.URL.Query().Get("sig")
	if path == "" || sig == "" || !h.Signer.Verify(path, exp, sig) {
		common.JSONError(w, http.StatusForbidden, "INVALID_SIGNATURE", "upload url is not valid or has expired", nil)
		return
	}

	limited := http.MaxBytesReader(w, r.Body, MaxFileSizeBytes)
	if err := h.Store.Put(r.Context(), path, limited); err != nil {
		if errors.Is(err, ErrUnsafePath) {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid object path", nil)
			return
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds the upload size limit", nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"path": path}})
}
