package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/shortlink/internal/shortener"
)

// PostgresStore is a PostgreSQL implementation of shortener.Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed URL store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) Exists(ctx context.Context, code shortener.Code) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM short_urls WHERE code = $1)`

	var exists bool
	if err := p.pool.QueryRow(ctx, query, string(code)).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

// Insert relies on the unique index on code: a duplicate inserts no row
// and is reported as shortener.ErrCodeConflict.
func (p *PostgresStore) Insert(ctx context.Context, shortURL *shortener.ShortenedURL) error {
	query := `
		INSERT INTO short_urls (id, code, long_url, short_url, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO NOTHING
	`

	tag, err := p.pool.Exec(ctx, query,
		shortURL.ID,
		string(shortURL.Code),
		shortURL.LongURL,
		shortURL.ShortURL,
		shortURL.CreatedAt,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", shortener.ErrCodeConflict, shortURL.Code)
	}

	return nil
}

func (p *PostgresStore) FindByCode(ctx context.Context, code shortener.Code) (*shortener.ShortenedURL, error) {
	query := `
		SELECT id, code, long_url, short_url, created_at
		FROM short_urls
		WHERE code = $1
	`

	var url shortener.ShortenedURL

	err := p.pool.QueryRow(ctx, query, string(code)).Scan(
		&url.ID,
		&url.Code,
		&url.LongURL,
		&url.ShortURL,
		&url.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	url.CreatedAt = url.CreatedAt.UTC()

	return &url, nil
}

// Compile-time check.
var _ shortener.Store = (*PostgresStore)(nil)
