package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeReallocate re-runs the allocation engine for one account.
	TaskTypeReallocate = "ledger:reallocate"
	// TaskTypeReallocateAll backfills allocations for every account of a kind.
	TaskTypeReallocateAll = "ledger:reallocate_all"
	// TaskTypeIdempotencyCleanup prunes expired idempotency keys.
	TaskTypeIdempotencyCleanup = "ledger:idempotency_cleanup"
)

// ReallocatePayload identifies the account to reallocate.
type ReallocatePayload struct {
	Kind      string `json:"kind"`
	AccountID int64  `json:"account_id"`
}

// ReallocateAllPayload identifies the account kind to backfill.
type ReallocateAllPayload struct {
	Kind string `json:"kind"`
}

// NewReallocateTask constructs an Asynq task for one account.
func NewReallocateTask(payload ReallocatePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeReallocate, data), nil
}

// NewReallocateAllTask constructs an Asynq backfill task.
func NewReallocateAllTask(payload ReallocateAllPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeReallocateAll, data), nil
}

// NewIdempotencyCleanupTask constructs the idempotency cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeIdempotencyCleanup, nil)
}
