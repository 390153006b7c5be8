package adminauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/redis/go-redis/v9"

	"github.com/kaos-euy/backend-kaos/internal/common"
)

// CookieName is the admin session cookie.
const CookieName = "admin_session"

const sessionKeyPrefix = "admin:session:"

// ErrInvalidCredentials covers both a bad password and a malformed hash so
// the login endpoint gives a single answer for every failure.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service authenticates the shop operator and manages Redis-backed sessions.
type Service struct {
	Redis          *redis.Client
	PasswordHash   string
	SessionTTL     time.Duration
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite
}

func (s *Service) ttl() time.Duration {
	if s.SessionTTL <= 0 {
		return 8 * time.Hour
	}
	return s.SessionTTL
}

// Login verifies the operator password and creates a session. It returns the
// session token to be set as a cookie.
func (s *Service) Login(ctx context.Context, password string) (string, error) {
	match, err := argon2id.ComparePasswordAndHash(password, s.PasswordHash)
	if err != nil || !match {
		return "", common.NewAppError("UNAUTHORIZED", "invalid credentials", http.StatusUnauthorized, ErrInvalidCredentials)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)
	if err := s.Redis.Set(ctx, sessionKeyPrefix+token, time.Now().UTC().Format(time.RFC3339), s.ttl()).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Validate reports whether the session token is active.
func (s *Service) Validate(ctx context.Context, token string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}
	_, err := s.Redis.Get(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Logout deletes the session.
func (s *Service) Logout(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return s.Redis.Del(ctx, sessionKeyPrefix+token).Err()
}

// SessionCookie builds the HttpOnly session cookie for a token. An empty
// token produces an expired cookie for logout.
func (s *Service) SessionCookie(token string) *http.Cookie {
	sameSite := s.CookieSameSite
	if sameSite == http.SameSiteDefaultMode {
		sameSite = http.SameSiteLaxMode
	}
	c := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Domain:   s.CookieDomain,
		HttpOnly: true,
		Secure:   s.CookieSecure,
		SameSite: sameSite,
	}
	if token == "" {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(s.ttl().Seconds())
	}
	return c
}
