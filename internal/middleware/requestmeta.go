package middleware

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/handlers"
)

// RequestMeta is a middleware that adds the client identity and the scheme and host
// the request was addressed to into the request context.
func RequestMeta(_ huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		meta := handlers.RequestMeta{
			ClientIP:  extractClientIP(ctx),
			UserAgent: ctx.Header("User-Agent"),
			Scheme:    extractScheme(ctx),
			Host:      extractHost(ctx),
		}

		newCtx := handlers.ContextWithRequestMeta(ctx.Context(), meta)
		ctx = huma.WithContext(ctx, newCtx)

		next(ctx)
	}
}

func extractClientIP(ctx huma.Context) string {
	// X-Forwarded-For may hold a chain; the first entry is the client.
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}

		return strings.TrimSpace(xff)
	}

	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return xri
	}

	addr := ctx.RemoteAddr()
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}

	return addr
}

func extractScheme(ctx huma.Context) string {
	if proto := firstValue(ctx.Header("X-Forwarded-Proto")); proto != "" {
		return strings.ToLower(proto)
	}

	if ctx.TLS() != nil {
		return "https"
	}

	return "http"
}

func extractHost(ctx huma.Context) string {
	if host := firstValue(ctx.Header("X-Forwarded-Host")); host != "" {
		return host
	}

	return ctx.Host()
}

func firstValue(header string) string {
	if idx := strings.Index(header, ","); idx != -1 {
		header = header[:idx]
	}

	return strings.TrimSpace(header)
}
