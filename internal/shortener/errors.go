package shortener

import "errors"

var (
	// ErrInvalidArgument is returned for a nil record or a blank code.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is returned when no record exists for a code.
	ErrNotFound = errors.New("short url not found")
	// ErrCodeConflict is returned by a Store when the code is already committed.
	ErrCodeConflict = errors.New("short code already exists")
	// ErrExhaustedRetries is returned when no free code was found within the attempt budget.
	ErrExhaustedRetries = errors.New("exhausted code generation attempts")
	// ErrCacheMiss is returned by a Cache when the key is absent or expired.
	ErrCacheMiss = errors.New("cache miss")
	// ErrCacheWrite wraps a cache failure that happened after the durable write succeeded.
	ErrCacheWrite = errors.New("cache write failed")
	// ErrStaleEntry is returned when a cached value was written with an unknown envelope.
	ErrStaleEntry = errors.New("stale cache entry")
)
