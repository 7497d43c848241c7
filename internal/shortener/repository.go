package shortener

import (
	"context"
	"time"
)

// Store is the durable backing for mappings. Code uniqueness is enforced here.
type Store interface {
	Exists(ctx context.Context, code Code) (bool, error)

	// Insert persists a new record.
	// Returns ErrCodeConflict if a record with the same code is already committed.
	Insert(ctx context.Context, shortURL *ShortenedURL) error

	// FindByCode returns ErrNotFound if the code was never committed.
	FindByCode(ctx context.Context, code Code) (*ShortenedURL, error)
}

// Cache is the fast key-value layer shared by reservations and materialized records.
type Cache interface {
	// Get returns ErrCacheMiss when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Reserver is implemented by caches that can set a key only when it is absent.
type Reserver interface {
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}
