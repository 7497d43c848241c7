// Package cachesync repairs cached short URL records out of band.
//
// When the durable write of a new short URL succeeds but the cache write fails, the
// service publishes a BackfillRequested event. A worker consumes it and rewrites the
// cached copy from the durable store.
package cachesync

import (
	"context"
	"errors"
	"time"

	"github.com/serroba/shortlink/internal/messaging"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// TopicBackfillRequested is the topic BackfillRequested events are published to.
const TopicBackfillRequested = "shorturl.backfill_requested"

// BackfillRequested asks for the cached record of Code to be rebuilt.
type BackfillRequested struct {
	Code        string    `json:"code"`
	RequestedAt time.Time `json:"requestedAt"`
}

// Refresher rebuilds the cached copy of a record from the durable store.
type Refresher interface {
	Refresh(ctx context.Context, code shortener.Code) (*shortener.ShortenedURL, error)
}

// NewRequester adapts a typed publish function to shortener.BackfillRequester.
func NewRequester(publish messaging.Publish[BackfillRequested]) shortener.BackfillRequester {
	return func(ctx context.Context, code shortener.Code) error {
		return publish(ctx, &BackfillRequested{
			Code:        string(code),
			RequestedAt: time.Now().UTC(),
		})
	}
}

// NewBackfillHandler returns a message handler that refreshes the cache for each event.
// Events for unknown or blank codes are acknowledged and dropped; other failures are
// returned so the message is redelivered.
func NewBackfillHandler(refresher Refresher, logger *zap.Logger) messaging.Handler[BackfillRequested] {
	return func(ctx context.Context, event *BackfillRequested) error {
		_, err := refresher.Refresh(ctx, shortener.Code(event.Code))

		switch {
		case err == nil:
			logger.Info("cache backfilled",
				zap.String("code", event.Code),
				zap.Duration("lag", time.Since(event.RequestedAt)),
			)

			return nil
		case errors.Is(err, shortener.ErrNotFound), errors.Is(err, shortener.ErrInvalidArgument):
			logger.Warn("skipping backfill",
				zap.String("code", event.Code),
				zap.Error(err),
			)

			return nil
		default:
			return err
		}
	}
}
