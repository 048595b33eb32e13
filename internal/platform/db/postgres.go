// Package db opens the PostgreSQL pool that stores the export audit trail.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Options tunes the pool. Zero values keep the pgx defaults.
type Options struct {
	MaxConns    int32
	PingTimeout time.Duration
}

const auditSchema = `CREATE TABLE IF NOT EXISTS audit_logs (
	id          BIGSERIAL PRIMARY KEY,
	actor_id    TEXT,
	action      TEXT NOT NULL,
	entity      TEXT NOT NULL,
	entity_id   TEXT NOT NULL,
	meta        JSONB NOT NULL DEFAULT '{}'::jsonb,
	occurred_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_logs_entity_idx ON audit_logs (entity, occurred_at DESC)`

// New creates a pool, pings it and makes sure the audit table exists.
func New(ctx context.Context, dsn string, opts Options) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/db: parse config: %w", err)
	}
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 5 * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("platform/db: new pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("platform/db: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, auditSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("platform/db: audit schema: %w", err)
	}
	return pool, nil
}
