package shortener

import (
	"context"
	"errors"
	"fmt"

	"github.com/jaevor/go-nanoid"
	"go.uber.org/zap"
)

// DefaultMaxAttempts caps candidate draws per generation.
const DefaultMaxAttempts = 10

var reservationMarker = []byte("exists")

// CodeGenerator draws a random candidate code.
type CodeGenerator func() string

// NewRandomSource returns a CodeGenerator over Alphabet that is safe for concurrent use.
func NewRandomSource(length int) (CodeGenerator, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: code length must be positive, got %d", ErrInvalidArgument, length)
	}

	gen, err := nanoid.CustomASCII(Alphabet, length)
	if err != nil {
		return nil, err
	}

	return CodeGenerator(gen), nil
}

// Generator produces codes that are neither reserved in the cache nor committed in the store.
type Generator struct {
	cache       Cache
	store       Store
	next        CodeGenerator
	maxAttempts int
	logger      *zap.Logger
}

// NewGenerator creates a generator. A non-positive maxAttempts falls back to DefaultMaxAttempts.
func NewGenerator(cache Cache, store Store, next CodeGenerator, maxAttempts int, logger *zap.Logger) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Generator{
		cache:       cache,
		store:       store,
		next:        next,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// GenerateUniqueCode draws candidates until one is free, then reserves it for ReservationTTL.
// The reservation narrows but does not close the race with concurrent generators;
// the store's uniqueness constraint is the backstop.
func (g *Generator) GenerateUniqueCode(ctx context.Context) (Code, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code := Code(g.next())

		reserved, err := g.isReserved(ctx, code)
		if err != nil {
			return "", err
		}

		if reserved {
			g.logger.Debug("code already reserved", zap.String("code", string(code)), zap.Int("attempt", attempt))

			continue
		}

		exists, err := g.store.Exists(ctx, code)
		if err != nil {
			return "", err
		}

		if exists {
			g.logger.Debug("code already committed", zap.String("code", string(code)), zap.Int("attempt", attempt))

			continue
		}

		won, err := g.reserve(ctx, code)
		if err != nil {
			return "", err
		}

		if !won {
			g.logger.Debug("lost reservation race", zap.String("code", string(code)), zap.Int("attempt", attempt))

			continue
		}

		return code, nil
	}

	return "", fmt.Errorf("%w: %d attempts", ErrExhaustedRetries, g.maxAttempts)
}

func (g *Generator) isReserved(ctx context.Context, code Code) (bool, error) {
	_, err := g.cache.Get(ctx, ReservationKey(code))
	if err == nil {
		return true, nil
	}

	if errors.Is(err, ErrCacheMiss) {
		return false, nil
	}

	return false, err
}

func (g *Generator) reserve(ctx context.Context, code Code) (bool, error) {
	key := ReservationKey(code)

	if r, ok := g.cache.(Reserver); ok {
		return r.SetNX(ctx, key, reservationMarker, ReservationTTL)
	}

	if err := g.cache.Set(ctx, key, reservationMarker, ReservationTTL); err != nil {
		return false, err
	}

	return true, nil
}
