package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

type PoolConfig struct {
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetimeS int
	ConnMaxIdleTimeS int
}

const pingTimeout = 10 * time.Second

// Connect opens the audit database, retrying until it answers a ping or
// attempts run out. The database usually starts alongside the bot.
func Connect(ctx context.Context, databaseURL string, pool PoolConfig, attempts int, backoff time.Duration) (*sql.DB, error) {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		var db *sql.DB
		if db, err = open(ctx, databaseURL, pool); err == nil {
			return db, nil
		}
		if i == attempts {
			break
		}
		slog.Info("waiting for database", "attempt", i, "error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("Connect: %w", ctx.Err())
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("Connect: gave up after %d attempts: %w", attempts, err)
}

func open(ctx context.Context, databaseURL string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeS) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(pool.ConnMaxIdleTimeS) * time.Second)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}
