// Package history keeps a local SQLite ledger of scrape runs.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"menu-scraper/internal/scrape"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// Run is one recorded scrape.
type Run struct {
	ID        int64
	Summary   scrape.Summary
	Cancelled bool
}

// Store handles persistence of run summaries to SQLite.
type Store struct {
	db *sql.DB
}

// Open creates the database file and its directory if needed and applies the
// schema.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record saves a run summary.
func (s *Store) Record(ctx context.Context, summary scrape.Summary, cancelled bool) (int64, error) {
	started := summary.StartedAt
	if started.IsZero() {
		started = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO scrape_runs (
			started_at, duration_ms, combinations, failed_combinations,
			items, labels_missing, upserted, failed, cancelled
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		started.UTC(),
		summary.Duration.Milliseconds(),
		summary.Combinations,
		summary.FailedCombinations,
		summary.Items,
		summary.LabelsMissing,
		summary.Upserted,
		summary.Failed,
		cancelled,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record run: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, duration_ms, combinations, failed_combinations,
			items, labels_missing, upserted, failed, cancelled
		FROM scrape_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			durationMS int64
		)
		if err := rows.Scan(
			&r.ID,
			&r.Summary.StartedAt,
			&durationMS,
			&r.Summary.Combinations,
			&r.Summary.FailedCombinations,
			&r.Summary.Items,
			&r.Summary.LabelsMissing,
			&r.Summary.Upserted,
			&r.Summary.Failed,
			&r.Cancelled,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Summary.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Cleanup removes runs that started before now minus olderThan.
func (s *Store) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	threshold := time.Now().Add(-olderThan).UTC()
	res, err := s.db.ExecContext(ctx, `DELETE FROM scrape_runs WHERE started_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up runs: %w", err)
	}
	return res.RowsAffected()
}
