// Package usage persists one usage_logs row per proxied tool call.
package usage

import (
	"context"
	"fmt"
	"time"

	"careerkit/internal/config"
	"careerkit/internal/errors"
	"careerkit/internal/types"

	"github.com/google/uuid"
)

// Record is one row of the usage_logs table
type Record struct {
	ID         uuid.UUID      `json:"id"`
	UserID     uuid.UUID      `json:"user_id"`
	ToolType   types.ToolType `json:"tool_type"`
	TokensUsed int64          `json:"tokens_used"`
	Success    bool           `json:"success"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Store persists usage records
type Store interface {
	Insert(ctx context.Context, rec Record) error
	Migrate(ctx context.Context) error
	Close() error
}

// Counter is implemented by stores that can report their row count
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// prepare fills the generated fields of a record
func prepare(rec Record) Record {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return rec
}

// Open creates the store selected by cfg.Driver and migrates it when
// cfg.AutoMigrate is set
func Open(ctx context.Context, cfg config.UsageConfig, logger *errors.Logger) (Store, error) {
	var (
		store Store
		err   error
	)

	switch cfg.Driver {
	case "postgres":
		store, err = OpenPostgres(ctx, cfg.DSN, cfg.MaxConns)
	case "sqlite":
		store, err = OpenSQLite(cfg.SQLitePath)
	case "memory":
		store = NewMemoryStore()
	case "none", "":
		store = NopStore{}
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported usage driver: %s", cfg.Driver), nil)
	}
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeUsageLogFailed,
			fmt.Sprintf("Failed to open %s usage store", cfg.Driver), err)
	}

	if cfg.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, errors.NewStorageError(errors.ErrCodeUsageLogFailed,
				"Failed to migrate usage store", err)
		}
	}

	logger.Info("Usage store ready", "driver", cfg.Driver, "auto_migrate", cfg.AutoMigrate)
	return store, nil
}

// NopStore discards every record
type NopStore struct{}

func (NopStore) Insert(context.Context, Record) error { return nil }
func (NopStore) Migrate(context.Context) error        { return nil }
func (NopStore) Close() error                         { return nil }
