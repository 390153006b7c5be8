package adminauth

import (
	"encoding/json"
	"net/http"

	"github.com/kaos-euy/backend-kaos/internal/common"
)

// Handler exposes the admin session endpoints.
type Handler struct {
	Service *Service
}

// Login handles POST /api/v1/admin/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", nil)
		return
	}
	if body.Password == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "password is required",
			map[string]string{"password": "is required"})
		return
	}

	token, err := h.Service.Login(r.Context(), body.Password)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	http.SetCookie(w, h.Service.SessionCookie(token))
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]bool{"ok": true}})
}

// Logout handles POST /api/v1/admin/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(CookieName); err == nil {
		_ = h.Service.Logout(r.Context(), cookie.Value)
	}
	http.SetCookie(w, h.Service.SessionCookie(""))
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]bool{"ok": true}})
}

// RequireAdmin gates back-office routes behind a valid session cookie.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "admin session required", nil)
			return
		}
		ok, err := h.Service.Validate(r.Context(), cookie.Value)
		if err != nil {
			common.WriteError(w, err)
			return
		}
		if !ok {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "admin session expired or invalid", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
