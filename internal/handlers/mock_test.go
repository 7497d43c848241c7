package handlers_test

import (
	"context"
	"errors"

	"github.com/serroba/shortlink/internal/shortener"
)

var errMock = errors.New("mock error")

const testURL = "https://example.com/very/long/path"

type mockService struct {
	shortenErr   error
	resolveErr   error
	longURL      string
	baseURLs     []string
	resolveCalls int
}

func (m *mockService) Shorten(_ context.Context, longURL, baseURL string) (*shortener.ShortenedURL, error) {
	m.baseURLs = append(m.baseURLs, baseURL)

	if m.shortenErr != nil {
		return nil, m.shortenErr
	}

	return &shortener.ShortenedURL{
		Code:     "abc1234",
		LongURL:  longURL,
		ShortURL: shortener.BuildShortURL(baseURL, "abc1234"),
	}, nil
}

func (m *mockService) Resolve(_ context.Context, _ string) (string, error) {
	m.resolveCalls++

	if m.resolveErr != nil {
		return "", m.resolveErr
	}

	return m.longURL, nil
}
