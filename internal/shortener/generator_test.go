package shortener_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/serroba/shortlink/internal/shortener"
	"github.com/serroba/shortlink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRandomSource(t *testing.T) {
	t.Run("codes have fixed length over the alphabet", func(t *testing.T) {
		source, err := shortener.NewRandomSource(shortener.DefaultCodeLength)
		require.NoError(t, err)

		for range 1000 {
			code := source()

			assert.Len(t, code, shortener.DefaultCodeLength)

			for _, r := range code {
				assert.True(t, strings.ContainsRune(shortener.Alphabet, r), "unexpected character %q", r)
			}
		}
	})

	t.Run("rejects non-positive length", func(t *testing.T) {
		source, err := shortener.NewRandomSource(0)

		assert.Nil(t, source)
		assert.ErrorIs(t, err, shortener.ErrInvalidArgument)
	})

	t.Run("is safe for concurrent use", func(t *testing.T) {
		source, err := shortener.NewRandomSource(shortener.DefaultCodeLength)
		require.NoError(t, err)

		var wg sync.WaitGroup

		for range 8 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				for range 100 {
					assert.Len(t, source(), shortener.DefaultCodeLength)
				}
			}()
		}

		wg.Wait()
	})
}

func TestAlphabet(t *testing.T) {
	assert.Len(t, shortener.Alphabet, 62)

	seen := make(map[rune]bool)
	for _, r := range shortener.Alphabet {
		assert.False(t, seen[r], "duplicate character %q", r)
		seen[r] = true
	}
}

func TestGenerator_GenerateUniqueCode(t *testing.T) {
	t.Run("returns unique codes across sequential calls", func(t *testing.T) {
		cache := store.NewMemoryCache()
		source, err := shortener.NewRandomSource(shortener.DefaultCodeLength)
		require.NoError(t, err)

		gen := shortener.NewGenerator(cache, store.NewMemoryStore(), source, 0, zap.NewNop())
		issued := make(map[shortener.Code]bool)

		for range 500 {
			code, err := gen.GenerateUniqueCode(context.Background())
			require.NoError(t, err)

			assert.True(t, shortener.ValidCode(code, shortener.DefaultCodeLength))
			assert.False(t, issued[code], "code %s issued twice", code)
			issued[code] = true
		}
	})

	t.Run("never reissues a reserved code", func(t *testing.T) {
		cache := newSpyCache()
		gen := shortener.NewGenerator(cache, newSpyStore(),
			sequence(t, "AAAAAAA", "AAAAAAA", "BBBBBBB"), 5, zap.NewNop())

		first, err := gen.GenerateUniqueCode(context.Background())
		require.NoError(t, err)

		second, err := gen.GenerateUniqueCode(context.Background())
		require.NoError(t, err)

		assert.Equal(t, shortener.Code("AAAAAAA"), first)
		assert.Equal(t, shortener.Code("BBBBBBB"), second)
	})

	t.Run("retries when the cache reports the candidate taken", func(t *testing.T) {
		cache := newSpyCache()
		_ = cache.backing.Set(context.Background(), shortener.ReservationKey("TAKEN01"), []byte("exists"), 0)

		gen := shortener.NewGenerator(cache, newSpyStore(), sequence(t, "TAKEN01", "FREE001"), 5, zap.NewNop())

		code, err := gen.GenerateUniqueCode(context.Background())

		require.NoError(t, err)
		assert.Equal(t, shortener.Code("FREE001"), code)
		assert.GreaterOrEqual(t, cache.getCount(), 2)
	})

	t.Run("retries when the store already holds the candidate", func(t *testing.T) {
		durable := newSpyStore()
		_ = durable.backing.Insert(context.Background(), &shortener.ShortenedURL{
			ID: uuid.New(), Code: "STORED1", LongURL: testURL,
		})

		gen := shortener.NewGenerator(newSpyCache(), durable, sequence(t, "STORED1", "FREE001"), 5, zap.NewNop())

		code, err := gen.GenerateUniqueCode(context.Background())

		require.NoError(t, err)
		assert.Equal(t, shortener.Code("FREE001"), code)
		assert.Equal(t, 2, durable.exists)
	})

	t.Run("does not consult the store for a reserved candidate", func(t *testing.T) {
		cache := newSpyCache()
		_ = cache.backing.Set(context.Background(), shortener.ReservationKey("TAKEN01"), []byte("exists"), 0)
		durable := newSpyStore()

		gen := shortener.NewGenerator(cache, durable, sequence(t, "TAKEN01", "FREE001"), 5, zap.NewNop())

		_, err := gen.GenerateUniqueCode(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, durable.exists)
	})

	t.Run("reserves the returned code for one hour", func(t *testing.T) {
		cache := newSpyCache()
		gen := shortener.NewGenerator(cache, newSpyStore(), sequence(t, "FREE001"), 5, zap.NewNop())

		code, err := gen.GenerateUniqueCode(context.Background())
		require.NoError(t, err)

		key := shortener.ReservationKey(code)
		assert.Equal(t, []string{key}, cache.sets)
		assert.Equal(t, shortener.ReservationTTL, cache.ttls[key])

		_, err = cache.backing.Get(context.Background(), key)
		assert.NoError(t, err)

		_, err = cache.backing.Get(context.Background(), shortener.RecordKey(code))
		assert.ErrorIs(t, err, shortener.ErrCacheMiss)
	})

	t.Run("retries when the atomic reservation is lost", func(t *testing.T) {
		cache := &reservingCache{spyCache: newSpyCache(), lose: 1}
		gen := shortener.NewGenerator(cache, newSpyStore(), sequence(t, "RACED01", "FREE001"), 5, zap.NewNop())

		code, err := gen.GenerateUniqueCode(context.Background())

		require.NoError(t, err)
		assert.Equal(t, shortener.Code("FREE001"), code)
		assert.Equal(t, []string{shortener.ReservationKey("RACED01"), shortener.ReservationKey("FREE001")}, cache.setNX)
		assert.Empty(t, cache.sets, "SetNX replaces Set for reservations")
	})

	t.Run("fails with ErrExhaustedRetries after the attempt cap", func(t *testing.T) {
		cache := newSpyCache()
		for _, code := range []shortener.Code{"TAKEN01", "TAKEN02", "TAKEN03"} {
			_ = cache.backing.Set(context.Background(), shortener.ReservationKey(code), []byte("exists"), 0)
		}

		gen := shortener.NewGenerator(cache, newSpyStore(), sequence(t, "TAKEN01", "TAKEN02", "TAKEN03"), 3, zap.NewNop())

		code, err := gen.GenerateUniqueCode(context.Background())

		assert.Empty(t, code)
		require.ErrorIs(t, err, shortener.ErrExhaustedRetries)
		assert.Equal(t, 3, cache.getCount())
	})

	t.Run("propagates cache failures", func(t *testing.T) {
		cache := newSpyCache()
		cache.getErr = errMock
		durable := newSpyStore()

		gen := shortener.NewGenerator(cache, durable, sequence(t, "FREE001"), 5, zap.NewNop())

		code, err := gen.GenerateUniqueCode(context.Background())

		assert.Empty(t, code)
		require.ErrorIs(t, err, errMock)
		assert.Zero(t, durable.exists)
	})

	t.Run("propagates store failures", func(t *testing.T) {
		cache := newSpyCache()
		durable := newSpyStore()
		durable.existsErr = errMock

		gen := shortener.NewGenerator(cache, durable, sequence(t, "FREE001"), 5, zap.NewNop())

		_, err := gen.GenerateUniqueCode(context.Background())

		require.ErrorIs(t, err, errMock)
		assert.Zero(t, cache.setCount(), "no reservation after a failed check")
	})

	t.Run("propagates reservation failures", func(t *testing.T) {
		cache := newSpyCache()
		cache.setErr = errMock

		gen := shortener.NewGenerator(cache, newSpyStore(), sequence(t, "FREE001"), 5, zap.NewNop())

		_, err := gen.GenerateUniqueCode(context.Background())

		assert.ErrorIs(t, err, errMock)
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		cache := newSpyCache()
		gen := shortener.NewGenerator(cache, newSpyStore(), sequence(t), 5, zap.NewNop())

		_, err := gen.GenerateUniqueCode(ctx)

		require.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, cache.getCount())
	})

	t.Run("concurrent callers receive distinct codes", func(t *testing.T) {
		cache := store.NewMemoryCache()
		source, err := shortener.NewRandomSource(shortener.DefaultCodeLength)
		require.NoError(t, err)

		gen := shortener.NewGenerator(cache, store.NewMemoryStore(), source, 0, zap.NewNop())

		var (
			mu     sync.Mutex
			wg     sync.WaitGroup
			issued = make(map[shortener.Code]int)
		)

		for range 16 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				for range 50 {
					code, err := gen.GenerateUniqueCode(context.Background())
					if !assert.NoError(t, err) {
						return
					}

					mu.Lock()
					issued[code]++
					mu.Unlock()
				}
			}()
		}

		wg.Wait()

		assert.Len(t, issued, 16*50)
	})
}
