package shortener

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Alphabet is the fixed set of characters a code is drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultCodeLength is the number of characters in a generated code.
const DefaultCodeLength = 7

const (
	reservationPrefix = "ShortCode:"
	recordPrefix      = "ShortUrl:"

	// ReservationTTL bounds how long a generated code is held before it is persisted.
	ReservationTTL = time.Hour
	// RecordTTL is the lifetime of a materialized record in the cache.
	RecordTTL = 7 * 24 * time.Hour
)

// Code represents a short URL code.
type Code string

// ShortenedURL represents a persisted mapping from a code to its long URL.
type ShortenedURL struct {
	ID        uuid.UUID
	Code      Code
	LongURL   string
	ShortURL  string
	CreatedAt time.Time
}

// ReservationKey is the cache key marking code as taken during generation.
func ReservationKey(code Code) string {
	return reservationPrefix + string(code)
}

// RecordKey is the cache key holding the serialized record for code.
func RecordKey(code Code) string {
	return recordPrefix + string(code)
}

// BuildShortURL joins the redirect base and the code.
func BuildShortURL(baseURL string, code Code) string {
	return strings.TrimRight(baseURL, "/") + "/" + string(code)
}

// ValidCode reports whether code has the given length and only alphabet characters.
func ValidCode(code Code, length int) bool {
	if len(code) != length {
		return false
	}

	for _, r := range string(code) {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}

	return true
}
