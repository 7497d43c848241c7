package shortener_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/serroba/shortlink/internal/shortener"
	"github.com/serroba/shortlink/internal/store"
)

var errMock = errors.New("mock error")

const testURL = "https://example.com/very/long/path"

// spyCache records calls and delegates to an in-memory cache. It does not implement
// shortener.Reserver, so the generator reserves with Set.
type spyCache struct {
	mu      sync.Mutex
	backing *store.MemoryCache
	gets    []string
	sets    []string
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
}

func newSpyCache() *spyCache {
	return &spyCache{
		backing: store.NewMemoryCache(),
		ttls:    make(map[string]time.Duration),
	}
}

func (c *spyCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	c.gets = append(c.gets, key)
	c.mu.Unlock()

	if c.getErr != nil {
		return nil, c.getErr
	}

	return c.backing.Get(ctx, key)
}

func (c *spyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.sets = append(c.sets, key)
	c.ttls[key] = ttl
	c.mu.Unlock()

	if c.setErr != nil {
		return c.setErr
	}

	return c.backing.Set(ctx, key, value, ttl)
}

func (c *spyCache) getCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.gets)
}

func (c *spyCache) setCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.sets)
}

// reservingCache adds SetNX with a configurable number of lost races.
type reservingCache struct {
	*spyCache
	lose  int
	setNX []string
}

func (c *reservingCache) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	c.setNX = append(c.setNX, key)

	if c.lose > 0 {
		c.lose--

		return false, nil
	}

	return c.backing.SetNX(ctx, key, value, ttl)
}

// spyStore records calls and delegates to an in-memory store.
type spyStore struct {
	mu        sync.Mutex
	backing   *store.MemoryStore
	exists    int
	inserts   int
	finds     int
	existsErr error
	insertErr error
	findErr   error
}

func newSpyStore() *spyStore {
	return &spyStore{backing: store.NewMemoryStore()}
}

func (s *spyStore) Exists(ctx context.Context, code shortener.Code) (bool, error) {
	s.mu.Lock()
	s.exists++
	s.mu.Unlock()

	if s.existsErr != nil {
		return false, s.existsErr
	}

	return s.backing.Exists(ctx, code)
}

func (s *spyStore) Insert(ctx context.Context, shortURL *shortener.ShortenedURL) error {
	s.mu.Lock()
	s.inserts++
	s.mu.Unlock()

	if s.insertErr != nil {
		return s.insertErr
	}

	return s.backing.Insert(ctx, shortURL)
}

func (s *spyStore) FindByCode(ctx context.Context, code shortener.Code) (*shortener.ShortenedURL, error) {
	s.mu.Lock()
	s.finds++
	s.mu.Unlock()

	if s.findErr != nil {
		return nil, s.findErr
	}

	return s.backing.FindByCode(ctx, code)
}

// sequence returns a CodeGenerator that yields codes in order and fails the test when exhausted.
func sequence(t *testing.T, codes ...string) shortener.CodeGenerator {
	t.Helper()

	var (
		mu   sync.Mutex
		next int
	)

	return func() string {
		mu.Lock()
		defer mu.Unlock()

		if next >= len(codes) {
			t.Errorf("code sequence exhausted after %d codes", len(codes))

			return ""
		}

		code := codes[next]
		next++

		return code
	}
}
