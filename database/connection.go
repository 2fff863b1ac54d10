package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB represents a database connection pool
type DB struct {
	*pgxpool.Pool
	isolation pgx.TxIsoLevel
}

// NewConnection creates a new database connection pool
func NewConnection(ctx context.Context, databaseURL string) (*DB, error) {
	// Parse config to set timezone
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Round windows are compared against UTC timestamps
	config.ConnConfig.RuntimeParams["timezone"] = "UTC"

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool, isolation: pgx.RepeatableRead}, nil
}

// SetIsolationLevel selects the isolation level used by BeginTx.
// Accepts "serializable" or "repeatable_read".
func (db *DB) SetIsolationLevel(level string) error {
	switch level {
	case "serializable":
		db.isolation = pgx.Serializable
	case "repeatable_read", "":
		db.isolation = pgx.RepeatableRead
	default:
		return fmt.Errorf("unsupported isolation level %q", level)
	}
	return nil
}

// BeginTx starts a transaction at the configured isolation level
func (db *DB) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return db.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: db.isolation})
}

// Close closes the database connection pool
func (db *DB) Close() {
	db.Pool.Close()
}
