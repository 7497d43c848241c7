//go:build integration

// Package testutil starts throwaway PostgreSQL and Redis containers for integration tests.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlink/internal/migrations"
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// Postgres returns a migrated pool. DATABASE_URL is used when set, otherwise a container is started.
func Postgres(t testing.TB) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		container, err := tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("shortlink"),
			tcpostgres.WithUsername("shortlink"),
			tcpostgres.WithPassword("shortlink"),
			tc.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		if err != nil {
			t.Skipf("PostgreSQL container not available: %v", err)
		}

		t.Cleanup(func() { _ = container.Terminate(context.Background()) })

		dsn, err = container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			t.Fatalf("postgres connection string: %v", err)
		}
	}

	migrator, err := migrations.New(dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("create migrator: %v", err)
	}

	if err := migrator.Up(); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	_ = migrator.Shutdown()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}

	t.Cleanup(pool.Close)

	if err := pool.Ping(ctx); err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}

	return pool
}

// Redis returns a client. REDIS_ADDR is used when set, otherwise a container is started.
func Redis(t testing.TB) *redis.Client {
	t.Helper()

	ctx := context.Background()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		container, err := tcredis.Run(ctx, "redis:7-alpine")
		if err != nil {
			t.Skipf("Redis container not available: %v", err)
		}

		t.Cleanup(func() { _ = container.Terminate(context.Background()) })

		addr, err = container.Endpoint(ctx, "")
		if err != nil {
			t.Fatalf("redis endpoint: %v", err)
		}
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	return client
}
