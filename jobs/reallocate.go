package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// backfillLockTTL caps how long a crashed backfill can hold its lock.
const backfillLockTTL = time.Hour

// Reallocator processes ledger reallocation tasks.
type Reallocator struct {
	service *ledger.Service
	redis   *redis.Client
	logger  *slog.Logger
}

// NewReallocator constructs the task processor.
func NewReallocator(service *ledger.Service, redisClient *redis.Client, logger *slog.Logger) *Reallocator {
	return &Reallocator{service: service, redis: redisClient, logger: logger}
}

// Handlers returns the task registrations for worker setup.
func (p *Reallocator) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskTypeReallocate, Handler: p.HandleReallocate},
		{Type: TaskTypeReallocateAll, Handler: p.HandleReallocateAll},
	}
}

// HandleReallocate processes TaskTypeReallocate tasks.
func (p *Reallocator) HandleReallocate(ctx context.Context, t *asynq.Task) error {
	var payload ReallocatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	ref := ledger.AccountRef{Kind: ledger.AccountKind(payload.Kind), AccountID: payload.AccountID}
	result, err := p.service.Reallocate(ctx, ref)
	if err != nil {
		p.logger.Error("reallocate task",
			slog.String("kind", payload.Kind),
			slog.Int64("account_id", payload.AccountID),
			slog.Any("error", err))
		return err
	}
	p.logger.Info("reallocated account",
		slog.String("kind", payload.Kind),
		slog.Int64("account_id", payload.AccountID),
		slog.Int("allocations", result.AllocationCount))
	return nil
}

// HandleReallocateAll processes TaskTypeReallocateAll tasks. A redis lock
// keeps two backfills of the same kind from overlapping.
func (p *Reallocator) HandleReallocateAll(ctx context.Context, t *asynq.Task) error {
	var payload ReallocateAllPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	lockKey := shared.BackfillLockKey(payload.Kind)
	locked, err := p.redis.SetNX(ctx, lockKey, "1", backfillLockTTL).Result()
	if err != nil {
		return err
	}
	if !locked {
		p.logger.Warn("backfill already running", slog.String("kind", payload.Kind))
		return asynq.SkipRetry
	}
	defer func() {
		if err := p.redis.Del(context.WithoutCancel(ctx), lockKey).Err(); err != nil {
			p.logger.Warn("release backfill lock", slog.Any("error", err))
		}
	}()

	count, err := p.service.ReallocateAll(ctx, ledger.AccountKind(payload.Kind))
	if err != nil {
		p.logger.Error("backfill task", slog.String("kind", payload.Kind), slog.Any("error", err))
		return err
	}
	p.logger.Info("backfill complete", slog.String("kind", payload.Kind), slog.Int("accounts", count))
	return nil
}
