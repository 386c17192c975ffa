// Package database provides Postgres-backed persistence for run metadata
// and normalized listings. The blob store remains the source of truth; these
// rows exist for querying runs without scanning the bucket.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drdave-teaching/craigslist-scraper/internal/crawl"
	"github.com/drdave-teaching/craigslist-scraper/internal/extract"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Store records run summaries and normalized listings.
type Store interface {
	RecordRun(ctx context.Context, summary crawl.RunSummary, finished time.Time) error
	RecordListing(ctx context.Context, listing extract.Listing) error
	Close()
}

// NoOpStore discards all writes. Used when no DSN is configured.
type NoOpStore struct{}

// RecordRun for NoOpStore does nothing and returns nil.
func (NoOpStore) RecordRun(_ context.Context, _ crawl.RunSummary, _ time.Time) error { return nil }

// RecordListing for NoOpStore does nothing and returns nil.
func (NoOpStore) RecordListing(_ context.Context, _ extract.Listing) error { return nil }

// Close for NoOpStore does nothing.
func (NoOpStore) Close() {}

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	RunsTable       string
	ListingsTable   string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool          execCloser
	runsTable     string
	listingsTable string
}

// NewPostgresStore creates a Postgres-backed Store using the provided config.
//
// Expected schema:
//
//	CREATE TABLE runs (
//	  run_id TEXT PRIMARY KEY,
//	  index_csv TEXT NOT NULL,
//	  row_count INT NOT NULL,
//	  saved INT NOT NULL,
//	  skipped INT NOT NULL,
//	  finished_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE listings (
//	  post_id TEXT PRIMARY KEY,
//	  run_id TEXT,
//	  payload JSONB NOT NULL,
//	  scraped_at TIMESTAMPTZ
//	);
func NewPostgresStore(ctx context.Context, cfg Config) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return newPostgresStoreWithPool(pool, cfg)
}

// NewPostgresStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewPostgresStoreWithPool(pool execCloser, cfg Config) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return newPostgresStoreWithPool(pool, cfg)
}

func newPostgresStoreWithPool(pool execCloser, cfg Config) (*PostgresStore, error) {
	runs := cfg.RunsTable
	if runs == "" {
		runs = "runs"
	}
	listings := cfg.ListingsTable
	if listings == "" {
		listings = "listings"
	}
	for _, table := range []string{runs, listings} {
		if !validTableName.MatchString(table) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	return &PostgresStore{
		pool:          pool,
		runsTable:     runs,
		listingsTable: listings,
	}, nil
}

// RecordRun upserts one run summary row.
func (s *PostgresStore) RecordRun(ctx context.Context, summary crawl.RunSummary, finished time.Time) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (run_id, index_csv, row_count, saved, skipped, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO UPDATE SET
			index_csv = EXCLUDED.index_csv,
			row_count = EXCLUDED.row_count,
			saved = EXCLUDED.saved,
			skipped = EXCLUDED.skipped,
			finished_at = EXCLUDED.finished_at
	`, s.runsTable)

	_, err := s.pool.Exec(ctx, query,
		summary.RunID,
		summary.IndexLocation,
		summary.Rows,
		summary.Saved,
		summary.Skipped,
		finished,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", summary.RunID, err)
	}
	return nil
}

// RecordListing upserts one normalized listing as a JSONB payload.
func (s *PostgresStore) RecordListing(ctx context.Context, listing extract.Listing) error {
	payload, err := json.Marshal(listing)
	if err != nil {
		return fmt.Errorf("marshal listing %s: %w", listing.PostID, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (post_id, run_id, payload, scraped_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (post_id) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			payload = EXCLUDED.payload,
			scraped_at = EXCLUDED.scraped_at
	`, s.listingsTable)

	_, err = s.pool.Exec(ctx, query,
		listing.PostID,
		listing.RunID,
		payload,
		listing.ScrapedAt,
	)
	if err != nil {
		return fmt.Errorf("insert listing %s: %w", listing.PostID, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
