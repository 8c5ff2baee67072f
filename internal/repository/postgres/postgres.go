// Package postgres implements the profile, post and account stores on
// PostgreSQL through a pgx connection pool.
//
// Queries go through DatabaseIface rather than *pgxpool.Pool directly, so
// tests can swap in a pgxmock pool.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DatabaseIface is the subset of *pgxpool.Pool the stores use.
type DatabaseIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Connect opens a pool for connString and pings it.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	connString = strings.TrimSpace(connString)
	if connString == "" {
		return nil, fmt.Errorf("postgres: empty connection string")
	}

	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing connection string: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("postgres: connecting: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: pinging: %w", err)
	}

	return pool, nil
}

// DB implements backend.ProfileStore, backend.PostStore and
// repository.AccountRepository.
type DB struct {
	db     DatabaseIface
	logger *slog.Logger
}

func New(db DatabaseIface, logger *slog.Logger) *DB {
	return &DB{
		db:     db,
		logger: logger.With("component", "postgres"),
	}
}

// schema mirrors the SQLite one. char_length counts characters, not bytes.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		handle     TEXT NOT NULL DEFAULT '',
		avatar     TEXT NOT NULL DEFAULT '',
		bio        TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		content    TEXT NOT NULL CHECK (char_length(content) BETWEEN 1 AND 140),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name          TEXT NOT NULL DEFAULT '',
		handle        TEXT NOT NULL DEFAULT '',
		avatar        TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the tables when missing. Safe to run on every start.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrating: %w", err)
		}
	}
	d.logger.Info("schema ready")
	return nil
}

func (d *DB) Close() {
	d.db.Close()
}

// uniqueViolation is the SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"
