package shortener

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CodeSource hands out codes that are free at the time of return.
type CodeSource interface {
	GenerateUniqueCode(ctx context.Context) (Code, error)
}

// Mapping persists and resolves records.
type Mapping interface {
	Save(ctx context.Context, shortURL *ShortenedURL) error
	GetByCode(ctx context.Context, code Code) (*ShortenedURL, error)
}

// BackfillRequester asks for the cached copy of code to be rebuilt out of band.
type BackfillRequester func(ctx context.Context, code Code) error

// Service exposes the shorten and resolve operations.
type Service struct {
	codes       CodeSource
	mapping     Mapping
	maxAttempts int
	backfill    BackfillRequester
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a service. backfill may be nil.
func NewService(
	codes CodeSource,
	mapping Mapping,
	maxAttempts int,
	backfill BackfillRequester,
	logger *zap.Logger,
) *Service {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Service{
		codes:       codes,
		mapping:     mapping,
		maxAttempts: maxAttempts,
		backfill:    backfill,
		logger:      logger,
		now:         time.Now,
	}
}

// Shorten generates a code for longURL, persists the mapping and returns it.
// baseURL is the redirect prefix the code is appended to.
// A uniqueness violation at persist time discards the code and generates another.
func (s *Service) Shorten(ctx context.Context, longURL, baseURL string) (*ShortenedURL, error) {
	if strings.TrimSpace(longURL) == "" {
		return nil, fmt.Errorf("%w: long url cannot be empty", ErrInvalidArgument)
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code, err := s.codes.GenerateUniqueCode(ctx)
		if err != nil {
			return nil, err
		}

		shortURL := &ShortenedURL{
			ID:        uuid.New(),
			Code:      code,
			LongURL:   longURL,
			ShortURL:  BuildShortURL(baseURL, code),
			CreatedAt: s.now().UTC(),
		}

		err = s.mapping.Save(ctx, shortURL)
		if err == nil {
			return shortURL, nil
		}

		if errors.Is(err, ErrCodeConflict) {
			s.logger.Warn("code taken at persist time, regenerating",
				zap.String("code", string(code)),
				zap.Int("attempt", attempt),
			)

			continue
		}

		if errors.Is(err, ErrCacheWrite) {
			s.requestBackfill(ctx, code)
		}

		return nil, err
	}

	return nil, fmt.Errorf("%w: %d persist attempts", ErrExhaustedRetries, s.maxAttempts)
}

// Resolve returns the long URL for code, or ErrNotFound.
func (s *Service) Resolve(ctx context.Context, code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("%w: code cannot be empty", ErrInvalidArgument)
	}

	shortURL, err := s.mapping.GetByCode(ctx, Code(code))
	if err != nil {
		return "", err
	}

	return shortURL.LongURL, nil
}

func (s *Service) requestBackfill(ctx context.Context, code Code) {
	if s.backfill == nil {
		return
	}

	// The request context may already be done when the cache write timed out.
	if err := s.backfill(context.WithoutCancel(ctx), code); err != nil {
		s.logger.Error("failed to request cache backfill",
			zap.String("code", string(code)),
			zap.Error(err),
		)
	}
}
