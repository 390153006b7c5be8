package uploads

import (
	"regexp"
	"strings"
)

// Upload constraints for design files.
const (
	MaxFileCount     = 10
	MaxFileSizeBytes = 20 * 1024 * 1024
)

// AllowedExtensions lists the accepted design file extensions.
var AllowedExtensions = []string{"png", "jpg", "jpeg", "pdf", "svg", "ai"}

// AllowedMimeTypes lists the accepted MIME types.
var AllowedMimeTypes = []string{
	"image/png",
	"image/jpeg",
	"application/pdf",
	"image/svg+xml",
	"application/postscript",
}

// FileExtension returns the lowercase extension of a file name, without the
// dot, or empty when there is none.
func FileExtension(name string) string {
	parts := strings.Split(strings.ToLower(name), ".")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-1]
}

// AllowedExtension reports whether the file name carries an accepted extension.
func AllowedExtension(name string) bool {
	ext := FileExtension(name)
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// AllowedMimeType reports whether the MIME type is accepted.
func AllowedMimeType(mime string) bool {
	for _, allowed := range AllowedMimeTypes {
		if mime == allowed {
			return true
		}
	}
	return false
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
var whitespace = regexp.MustCompile(`\s+`)

// SanitizeFileName normalizes a user-supplied file name to a filesystem-safe
// form, capped at 120 characters.
func SanitizeFileName(name string) string {
	normalized := whitespace.ReplaceAllString(strings.TrimSpace(name), "_")
	normalized = unsafeChars.ReplaceAllString(normalized, "")
	if normalized == "" {
		normalized = "file"
	}
	if len(normalized) > 120 {
		normalized = normalized[:120]
	}
	return normalized
}
