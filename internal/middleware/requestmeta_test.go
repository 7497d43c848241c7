package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/shortlink/internal/handlers"
	"github.com/serroba/shortlink/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testOutput struct {
	Body string `json:"body"`
}

// capture serves req through the middleware and returns the metadata the handler saw.
func capture(t *testing.T, req *http.Request) handlers.RequestMeta {
	t.Helper()

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
	api.UseMiddleware(middleware.RequestMeta(api))

	metaChan := make(chan handlers.RequestMeta, 1)

	huma.Get(api, "/test", func(ctx context.Context, _ *struct{}) (*testOutput, error) {
		metaChan <- handlers.RequestMetaFromContext(ctx)

		return &testOutput{Body: "ok"}, nil
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	return <-metaChan
}

func TestRequestMeta(t *testing.T) {
	t.Run("extracts user-agent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("User-Agent", "TestAgent/1.0")

		meta := capture(t, req)

		assert.Equal(t, "TestAgent/1.0", meta.UserAgent)
	})

	t.Run("extracts IP from X-Forwarded-For with single IP", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Forwarded-For", "192.168.1.1")

		assert.Equal(t, "192.168.1.1", capture(t, req).ClientIP)
	})

	t.Run("extracts first IP from X-Forwarded-For with multiple IPs", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Forwarded-For", "192.168.1.1, 10.0.0.1, 172.16.0.1")

		assert.Equal(t, "192.168.1.1", capture(t, req).ClientIP)
	})

	t.Run("extracts IP from X-Real-IP when X-Forwarded-For is absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Real-IP", "10.0.0.1")

		assert.Equal(t, "10.0.0.1", capture(t, req).ClientIP)
	})

	t.Run("falls back to remote addr when no IP headers present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "203.0.113.7:41234"

		assert.Equal(t, "203.0.113.7", capture(t, req).ClientIP)
	})

	t.Run("uses request host and plain http by default", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://sho.rt:8888/test", nil)

		meta := capture(t, req)

		assert.Equal(t, "http", meta.Scheme)
		assert.Equal(t, "sho.rt:8888", meta.Host)
	})

	t.Run("honours forwarded proto and host", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Forwarded-Proto", "HTTPS, http")
		req.Header.Set("X-Forwarded-Host", "links.example.com")

		meta := capture(t, req)

		assert.Equal(t, "https", meta.Scheme)
		assert.Equal(t, "links.example.com", meta.Host)
	})

	t.Run("reports https for TLS requests", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "https://sho.rt/test", nil)

		assert.Equal(t, "https", capture(t, req).Scheme)
	})
}
