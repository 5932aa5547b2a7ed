package usage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the DDL of the usage_logs table, compatible with the Supabase
// table the edge function wrote to
const Schema = `
CREATE TABLE IF NOT EXISTS usage_logs (
    id          UUID        PRIMARY KEY,
    user_id     UUID        NOT NULL,
    tool_type   TEXT        NOT NULL,
    tokens_used BIGINT      NOT NULL DEFAULT 0,
    success     BOOLEAN     NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_usage_logs_user_created ON usage_logs(user_id, created_at);
`

const insertSQL = `INSERT INTO usage_logs (id, user_id, tool_type, tokens_used, success, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

// DB is the subset of *pgxpool.Pool used by PostgresStore
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore writes usage records to PostgreSQL
type PostgresStore struct {
	db   DB
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore uses an existing connection or pool. Close does not
// close db.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres creates a pool for dsn and checks connectivity
func OpenPostgres(ctx context.Context, dsn string, maxConns int32) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("usage: postgres dsn is empty")
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("usage: parse dsn: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("usage: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("usage: ping: %w", err)
	}

	return &PostgresStore{db: pool, pool: pool}, nil
}

// Migrate executes Schema
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("usage: migrate: %w", err)
	}
	return nil
}

// Insert implements Store
func (s *PostgresStore) Insert(ctx context.Context, rec Record) error {
	rec = prepare(rec)
	_, err := s.db.Exec(ctx, insertSQL,
		rec.ID, rec.UserID, rec.ToolType.String(), rec.TokensUsed, rec.Success, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("usage: insert: %w", err)
	}
	return nil
}

// Count implements Counter
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM usage_logs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("usage: count: %w", err)
	}
	return n, nil
}

// Close closes the pool opened by OpenPostgres
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
