package usage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS usage_logs (
    id          TEXT    PRIMARY KEY,
    user_id     TEXT    NOT NULL,
    tool_type   TEXT    NOT NULL,
    tokens_used INTEGER NOT NULL DEFAULT 0,
    success     INTEGER NOT NULL,
    created_at  TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_logs_user_created ON usage_logs(user_id, created_at);
`

// SQLiteStore writes usage records to a local SQLite file
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the database at path
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("usage: sqlite path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("usage: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("usage: open sqlite: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("usage: configure sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Migrate creates the usage_logs table
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("usage: migrate: %w", err)
	}
	return nil
}

// Insert implements Store
func (s *SQLiteStore) Insert(ctx context.Context, rec Record) error {
	rec = prepare(rec)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_logs (id, user_id, tool_type, tokens_used, success, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.UserID.String(), rec.ToolType.String(), rec.TokensUsed, rec.Success,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("usage: insert: %w", err)
	}
	return nil
}

// Count implements Counter
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM usage_logs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("usage: count: %w", err)
	}
	return n, nil
}

// Close implements Store
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
