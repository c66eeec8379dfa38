// ABOUTME: SQLite implementation of the invocation ledger using modernc.org/sqlite
// ABOUTME: Provides durable invocation records with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteLedger implements the Ledger interface using SQLite
type SQLiteLedger struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteLedger creates a new SQLite ledger at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteLedger{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite ledger initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteLedger) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS invocations (
			id          TEXT PRIMARY KEY,
			session_id  TEXT NOT NULL,
			tool        TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			is_error    INTEGER NOT NULL DEFAULT 0,
			error       TEXT,
			created_at  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_invocations_tool ON invocations(tool);
		CREATE INDEX IF NOT EXISTS idx_invocations_session ON invocations(session_id);
		CREATE INDEX IF NOT EXISTS idx_invocations_created ON invocations(created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteLedger) Close() error {
	s.logger.Info("closing SQLite ledger")
	return s.db.Close()
}

// RecordInvocation stores one tool invocation record.
func (s *SQLiteLedger) RecordInvocation(ctx context.Context, inv *Invocation) error {
	query := `
		INSERT INTO invocations (id, session_id, tool, duration_ms, is_error, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		inv.ID,
		inv.SessionID,
		inv.Tool,
		inv.Duration.Milliseconds(),
		boolToInt(inv.IsError),
		nullString(inv.Error),
		inv.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting invocation: %w", err)
	}

	s.logger.Debug("recorded invocation",
		"id", inv.ID,
		"tool", inv.Tool,
		"session_id", inv.SessionID,
		"is_error", inv.IsError,
	)
	return nil
}

// ListRecentInvocations returns the most recent invocations, newest first.
// If limit is 0 or negative, a default limit of 100 is used.
func (s *SQLiteLedger) ListRecentInvocations(ctx context.Context, limit int) ([]*Invocation, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	query := `
		SELECT id, session_id, tool, duration_ms, is_error, error, created_at
		FROM invocations
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying invocations: %w", err)
	}
	defer rows.Close()

	var invs []*Invocation
	for rows.Next() {
		inv, err := scanInvocation(rows)
		if err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invocation rows: %w", err)
	}

	return invs, nil
}

// Stats returns aggregated usage statistics with optional filters.
func (s *SQLiteLedger) Stats(ctx context.Context, filter Filter) (*UsageStats, error) {
	where := " WHERE 1=1"
	args := []any{}

	if filter.Tool != nil {
		where += " AND tool = ?"
		args = append(args, *filter.Tool)
	}
	if filter.Since != nil {
		where += " AND created_at >= ?"
		args = append(args, filter.Since.UTC().Format(time.RFC3339))
	}
	if filter.Until != nil {
		where += " AND created_at < ?"
		args = append(args, filter.Until.UTC().Format(time.RFC3339))
	}

	var stats UsageStats
	totalQuery := `
		SELECT COUNT(*), COALESCE(SUM(is_error), 0)
		FROM invocations` + where
	if err := s.db.QueryRowContext(ctx, totalQuery, args...).Scan(
		&stats.TotalInvocations,
		&stats.TotalErrors,
	); err != nil {
		return nil, fmt.Errorf("querying usage totals: %w", err)
	}

	toolQuery := `
		SELECT tool, COUNT(*), COALESCE(SUM(is_error), 0),
		       COALESCE(AVG(duration_ms), 0), COALESCE(MAX(created_at), '')
		FROM invocations` + where + `
		GROUP BY tool
		ORDER BY COUNT(*) DESC
	`
	rows, err := s.db.QueryContext(ctx, toolQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("querying per-tool stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ts ToolStats
		if err := rows.Scan(&ts.Tool, &ts.Count, &ts.ErrorCount, &ts.AvgDuration, &ts.LastInvoked); err != nil {
			return nil, fmt.Errorf("scanning tool stats: %w", err)
		}
		stats.ByTool = append(stats.ByTool, ts)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tool stats rows: %w", err)
	}

	return &stats, nil
}

// scanInvocation scans a single row into an Invocation struct.
func scanInvocation(rows *sql.Rows) (*Invocation, error) {
	var inv Invocation
	var durationMs int64
	var isError int
	var errMsg sql.NullString
	var createdAtStr string

	err := rows.Scan(
		&inv.ID,
		&inv.SessionID,
		&inv.Tool,
		&durationMs,
		&isError,
		&errMsg,
		&createdAtStr,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning invocation row: %w", err)
	}

	inv.Duration = time.Duration(durationMs) * time.Millisecond
	inv.IsError = isError != 0
	if errMsg.Valid {
		inv.Error = errMsg.String
	}

	inv.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &inv, nil
}

// nullString returns nil for empty strings, otherwise the string itself
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Ensure SQLiteLedger implements Ledger interface
var _ Ledger = (*SQLiteLedger)(nil)
