package store

import (
	"context"
	"sync"

	"github.com/serroba/shortlink/internal/shortener"
)

// MemoryStore is an in-memory implementation of shortener.Store.
type MemoryStore struct {
	mu   sync.RWMutex
	urls map[shortener.Code]shortener.ShortenedURL
}

// NewMemoryStore creates a new in-memory URL store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		urls: make(map[shortener.Code]shortener.ShortenedURL),
	}
}

func (m *MemoryStore) Exists(ctx context.Context, code shortener.Code) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.urls[code]

	return ok, nil
}

func (m *MemoryStore) Insert(ctx context.Context, shortURL *shortener.ShortenedURL) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.urls[shortURL.Code]; ok {
		return shortener.ErrCodeConflict
	}

	m.urls[shortURL.Code] = *shortURL

	return nil
}

func (m *MemoryStore) FindByCode(ctx context.Context, code shortener.Code) (*shortener.ShortenedURL, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	shortURL, ok := m.urls[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return &shortURL, nil
}

// Compile-time check.
var _ shortener.Store = (*MemoryStore)(nil)
