// Package catalog implements the History Store (C2) and Signal Store (C3)
// on top of a shared pgx-backed connection pool.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrInvalidDSN is returned when Connect is given an empty DSN.
var ErrInvalidDSN = errors.New("catalog: invalid or empty DSN")

// ErrStoreUnavailable wraps any database error surfaced to C2/C3 callers
// per the error-handling table: read failures propagate so the engine can
// skip the candle and resume at the next one; write failures propagate so
// the engine can skip forwarding (I2).
var ErrStoreUnavailable = errors.New("catalog: store unavailable")

// DB wraps *sql.DB with the retry-on-connect behavior the engine's startup
// path needs.
type DB struct {
	*sql.DB
}

// Connect opens the catalog connection pool, retrying with exponential
// backoff up to maxAttempts times.
func Connect(ctx context.Context, dsn string, maxAttempts int, retryDelay time.Duration) (*DB, error) {
	if dsn == "" {
		return nil, ErrInvalidDSN
	}

	var db *sql.DB
	var err error
	delay := retryDelay

	for attempt := 0; attempt <= maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}

		db, err = sql.Open("pgx", dsn)
		if err != nil {
			continue
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetConnMaxIdleTime(time.Minute)

		if err = db.PingContext(ctx); err != nil {
			db.Close()
			continue
		}
		return &DB{DB: db}, nil
	}

	return nil, fmt.Errorf("catalog: failed to connect after %d attempts: %w", maxAttempts+1, err)
}

// wrapUnavailable tags err as ErrStoreUnavailable while preserving the
// underlying cause for logging.
func wrapUnavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
