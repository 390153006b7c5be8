package uploads

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Signer issues and verifies HMAC-signed upload URLs. The signature covers
// the object path and the expiry so neither can be swapped after signing.
type Signer struct {
	Key []byte
	Now func() time.Time
}

func (s *Signer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Sign returns the expiry (unix seconds) and signature for an object path.
func (s *Signer) Sign(path string, ttl time.Duration) (int64, string) {
	exp := s.now().Add(ttl).Unix()
	return exp, s.signature(path, exp)
}

// Verify checks the signature and expiry for an object path.
func (s *Signer) Verify(path string, exp int64, sig string) bool {
	if exp < s.now().Unix() {
		return false
	}
	expected := s.signature(path, exp)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func (s *Signer) signature(path string, exp int64) string {
	mac := hmac.New(sha256.New, s.Key)
	mac.Write([]byte(path))
	mac.Write([]byte("\n"))
	mac.Write([]byte(strconv.FormatInt(exp, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
