package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// Shortener is the core the handler delegates to.
type Shortener interface {
	Shorten(ctx context.Context, longURL, baseURL string) (*shortener.ShortenedURL, error)
	Resolve(ctx context.Context, code string) (string, error)
}

// URLHandler handles URL shortening operations.
type URLHandler struct {
	service    Shortener
	baseURL    string
	codeLength int
	logger     *zap.Logger
}

// NewURLHandler creates a new URL handler. An empty baseURL derives the short URL
// prefix from each request. Redirects for codes that are not codeLength alphabet
// characters are answered with 404 without a lookup; codeLength <= 0 disables the check.
func NewURLHandler(service Shortener, baseURL string, codeLength int, logger *zap.Logger) *URLHandler {
	return &URLHandler{
		service:    service,
		baseURL:    strings.TrimRight(baseURL, "/"),
		codeLength: codeLength,
		logger:     logger,
	}
}

func (h *URLHandler) CreateShortURL(ctx context.Context, req *CreateShortURLRequest) (*CreateShortURLResponse, error) {
	longURL := strings.TrimSpace(req.Body.URL)
	if !isHTTPURL(longURL) {
		return nil, huma.Error400BadRequest("url must be an absolute http or https URL")
	}

	shortURL, err := h.service.Shorten(ctx, longURL, h.resolveBaseURL(ctx))
	if err != nil {
		if errors.Is(err, shortener.ErrInvalidArgument) {
			return nil, huma.Error400BadRequest(err.Error())
		}

		meta := RequestMetaFromContext(ctx)
		h.logger.Error("failed to shorten url",
			zap.String("client_ip", meta.ClientIP),
			zap.Error(err),
		)

		return nil, huma.Error500InternalServerError("failed to save url")
	}

	resp := &CreateShortURLResponse{}
	resp.Headers.Location = shortURL.ShortURL
	resp.Body.Code = string(shortURL.Code)
	resp.Body.ShortURL = shortURL.ShortURL
	resp.Body.LongURL = shortURL.LongURL

	return resp, nil
}

func (h *URLHandler) RedirectToURL(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	if h.codeLength > 0 && strings.TrimSpace(req.Code) != "" &&
		!shortener.ValidCode(shortener.Code(req.Code), h.codeLength) {
		return nil, huma.Error404NotFound("short url not found")
	}

	longURL, err := h.service.Resolve(ctx, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, shortener.ErrInvalidArgument):
			return nil, huma.Error400BadRequest("code cannot be empty")
		case errors.Is(err, shortener.ErrNotFound):
			return nil, huma.Error404NotFound("short url not found")
		}

		h.logger.Error("failed to resolve code",
			zap.String("code", req.Code),
			zap.Error(err),
		)

		return nil, huma.Error500InternalServerError("failed to get url")
	}

	resp := &RedirectResponse{
		Status: http.StatusFound,
	}
	resp.Headers.Location = longURL

	return resp, nil
}

// resolveBaseURL returns the configured base URL or scheme://host/api for the current request.
func (h *URLHandler) resolveBaseURL(ctx context.Context) string {
	if h.baseURL != "" {
		return h.baseURL
	}

	meta := RequestMetaFromContext(ctx)

	scheme := meta.Scheme
	if scheme == "" {
		scheme = "http"
	}

	return scheme + "://" + meta.Host + "/api"
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
