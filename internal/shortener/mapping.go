package shortener

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// MappingStore keeps a Cache in front of a Store using the cache-aside pattern.
type MappingStore struct {
	store  Store
	cache  Cache
	logger *zap.Logger
}

// NewMappingStore creates a cache-aside mapping store.
func NewMappingStore(store Store, cache Cache, logger *zap.Logger) *MappingStore {
	return &MappingStore{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// Save writes the record durably and then caches it under RecordKey for RecordTTL.
// A cache failure after the durable write is returned wrapped in ErrCacheWrite.
func (m *MappingStore) Save(ctx context.Context, shortURL *ShortenedURL) error {
	if shortURL == nil {
		return fmt.Errorf("%w: short url is nil", ErrInvalidArgument)
	}

	if err := m.store.Insert(ctx, shortURL); err != nil {
		return err
	}

	return m.cacheRecord(ctx, shortURL)
}

// GetByCode returns the record for code, checking the cache first and backfilling it on a miss.
// Returns ErrNotFound if neither tier knows the code.
func (m *MappingStore) GetByCode(ctx context.Context, code Code) (*ShortenedURL, error) {
	if strings.TrimSpace(string(code)) == "" {
		return nil, fmt.Errorf("%w: code cannot be empty", ErrInvalidArgument)
	}

	data, err := m.cache.Get(ctx, RecordKey(code))

	switch {
	case err == nil:
		shortURL, decodeErr := DecodeRecord(data)
		if decodeErr == nil {
			return shortURL, nil
		}

		m.logger.Warn("discarding unreadable cache entry",
			zap.String("code", string(code)),
			zap.Error(decodeErr),
		)
	case !errors.Is(err, ErrCacheMiss):
		return nil, err
	}

	shortURL, err := m.store.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := m.cacheRecord(ctx, shortURL); err != nil {
		return nil, err
	}

	return shortURL, nil
}

// Refresh rewrites the cached copy of code from the durable store, replacing whatever the
// cache holds.
func (m *MappingStore) Refresh(ctx context.Context, code Code) (*ShortenedURL, error) {
	if strings.TrimSpace(string(code)) == "" {
		return nil, fmt.Errorf("%w: code cannot be empty", ErrInvalidArgument)
	}

	shortURL, err := m.store.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := m.cacheRecord(ctx, shortURL); err != nil {
		return nil, err
	}

	return shortURL, nil
}

func (m *MappingStore) cacheRecord(ctx context.Context, shortURL *ShortenedURL) error {
	value, err := EncodeRecord(shortURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCacheWrite, err)
	}

	if err := m.cache.Set(ctx, RecordKey(shortURL.Code), value, RecordTTL); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheWrite, err)
	}

	return nil
}
