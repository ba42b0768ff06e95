package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// idempotencyRetention is how long processed idempotency keys are kept.
// Clients replaying after this window are treated as new requests.
const idempotencyRetention = 7 * 24 * time.Hour

// Cleaner prunes expired idempotency keys.
type Cleaner struct {
	idem   *shared.IdempotencyStore
	logger *slog.Logger
}

// NewCleaner constructs the cleanup task processor.
func NewCleaner(idem *shared.IdempotencyStore, logger *slog.Logger) *Cleaner {
	return &Cleaner{idem: idem, logger: logger}
}

// Handlers returns the task registrations for worker setup.
func (c *Cleaner) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskTypeIdempotencyCleanup, Handler: c.HandleCleanup},
	}
}

// HandleCleanup processes TaskTypeIdempotencyCleanup tasks.
func (c *Cleaner) HandleCleanup(ctx context.Context, t *asynq.Task) error {
	if err := c.idem.Cleanup(ctx, idempotencyRetention); err != nil {
		c.logger.Error("idempotency cleanup", slog.Any("error", err))
		return err
	}
	c.logger.Info("idempotency keys pruned", slog.Duration("retention", idempotencyRetention))
	return nil
}
