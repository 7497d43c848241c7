package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/handlers"
	"github.com/serroba/shortlink/internal/ratelimit"
	"go.uber.org/zap"
)

// RateLimiter returns a Huma middleware that applies policy-based rate limiting per client.
// It must run after RequestMeta, which supplies the client IP and User-Agent.
//
// Operations can carry a ratelimit.EndpointConfig under ratelimit.MetadataKey to:
//   - Disable rate limiting entirely (Disabled: true)
//   - Override the scope detection (Scope: ratelimit.ScopeRead)
//   - Define their own limits (Limits: []ratelimit.LimitConfig{...})
func RateLimiter(
	api huma.API,
	limiter *ratelimit.PolicyLimiter,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		cfg := ratelimit.EndpointConfigFor(op)

		if cfg != nil && cfg.Disabled {
			next(ctx)

			return
		}

		meta := handlers.RequestMetaFromContext(ctx.Context())
		key := clientKey(meta)
		path := operationPath(op)

		var (
			allowed  bool
			exceeded *ratelimit.LimitExceeded
			err      error
		)

		if cfg != nil && len(cfg.Limits) > 0 {
			allowed, exceeded, err = limiter.AllowRoute(ctx.Context(), key, path, cfg.Limits)
		} else {
			allowed, exceeded, err = limiter.Allow(ctx.Context(), key, ratelimit.ResolveScopes(ctx.Method(), cfg))
		}

		if err != nil {
			logger.Error("rate limit check failed", zap.String("path", path), zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error")

			return
		}

		if !allowed {
			rejectRequest(api, ctx, meta, exceeded, path, logger)

			return
		}

		next(ctx)
	}
}

// clientKey identifies a client by IP and User-Agent without storing either.
func clientKey(meta handlers.RequestMeta) string {
	hash := sha256.Sum256([]byte(meta.ClientIP + "|" + meta.UserAgent))

	return hex.EncodeToString(hash[:])
}

func operationPath(op *huma.Operation) string {
	if op != nil {
		return op.Path
	}

	return ""
}

func rejectRequest(
	api huma.API,
	ctx huma.Context,
	meta handlers.RequestMeta,
	exceeded *ratelimit.LimitExceeded,
	path string,
	logger *zap.Logger,
) {
	msg := "rate limit exceeded"

	if exceeded != nil {
		msg = fmt.Sprintf("rate limit exceeded: %d/%d requests in %s",
			exceeded.Count, exceeded.Config.Max, exceeded.Config.Window)

		ctx.SetHeader("Retry-After", strconv.Itoa(int(exceeded.Config.Window.Seconds())))

		logger.Warn("rate limit exceeded",
			zap.String("path", path),
			zap.String("method", ctx.Method()),
			zap.String("scope", string(exceeded.Scope)),
			zap.Int64("count", exceeded.Count),
			zap.Int64("max", exceeded.Config.Max),
			zap.Duration("window", exceeded.Config.Window),
			zap.String("client_ip", meta.ClientIP),
		)
	}

	_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, msg)
}
