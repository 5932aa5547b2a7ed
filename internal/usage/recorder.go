package usage

import (
	"context"
	"time"

	"careerkit/internal/errors"
	"careerkit/internal/observability"
)

// Recorder writes usage records on a best-effort basis
type Recorder struct {
	store   Store
	timeout time.Duration
	logger  *errors.Logger
	metrics *observability.Metrics
}

// NewRecorder wraps store. A nil metrics records no failure metric.
func NewRecorder(store Store, timeout time.Duration, logger *errors.Logger, metrics *observability.Metrics) *Recorder {
	if store == nil {
		store = NopStore{}
	}
	return &Recorder{
		store:   store,
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
	}
}

// Record inserts rec. The insert outlives a canceled request and is bounded
// by the write timeout. Failures are logged and counted, never returned.
func (r *Recorder) Record(ctx context.Context, rec Record) {
	ctx = context.WithoutCancel(ctx)
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if err := r.store.Insert(ctx, rec); err != nil {
		r.logger.LogError(
			errors.NewStorageError(errors.ErrCodeUsageLogFailed, "Failed to log usage", err),
			"Usage log insert failed",
			"user_id", rec.UserID.String(),
			"tool_type", rec.ToolType.String(),
			"success", rec.Success)
		r.metrics.RecordUsageLogFailure(ctx, rec.ToolType.String())
	}
}

// Store returns the underlying store
func (r *Recorder) Store() Store {
	return r.store
}
