package ledger

import "context"

// Store is the persistence boundary of the ledger. Read methods never
// lock; everything that mutates runs inside WithTx.
type Store interface {
	// WithTx runs fn in one transaction; a rollback leaves no partial
	// allocation state visible.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx StoreTx) error) error

	ListDebts(ctx context.Context, ref AccountRef, includeVoided bool) ([]Debt, error)
	ListCredits(ctx context.Context, ref AccountRef, includeVoided bool) ([]Credit, error)
	ListAllocations(ctx context.Context, ref AccountRef) ([]Allocation, error)
	ListAccountIDs(ctx context.Context, kind AccountKind) ([]int64, error)
	GetSummary(ctx context.Context, ref AccountRef) (*AccountSummary, error)
	GetDebt(ctx context.Context, kind AccountKind, id int64) (*Debt, error)
	GetCredit(ctx context.Context, kind AccountKind, id int64) (*Credit, error)
}

// StoreTx is the transactional surface. Engine-owned fields (paid_amount,
// status, unallocated_amount) are writable ONLY through ApplyEngineChanges;
// UpdateDebt/UpdateCredit must not touch them. That package boundary is
// what turns "don't mutate engine fields" from a convention into a rule.
type StoreTx interface {
	// Row locks, ordered (date, id) ascending. Locks are scoped to one
	// account so different accounts reallocate fully in parallel.
	LockDebts(ctx context.Context, ref AccountRef, includeVoided bool) ([]Debt, error)
	LockCredits(ctx context.Context, ref AccountRef, includeVoided bool) ([]Credit, error)

	GetDebtForUpdate(ctx context.Context, kind AccountKind, id int64) (*Debt, error)
	GetCreditForUpdate(ctx context.Context, kind AccountKind, id int64) (*Credit, error)
	GetAllocation(ctx context.Context, kind AccountKind, id int64) (*Allocation, error)

	InsertDebt(ctx context.Context, debt *Debt) error
	UpdateDebt(ctx context.Context, debt *Debt) error
	DeleteDebt(ctx context.Context, kind AccountKind, id int64) error

	InsertCredit(ctx context.Context, credit *Credit) error
	UpdateCredit(ctx context.Context, credit *Credit) error
	DeleteCredit(ctx context.Context, kind AccountKind, id int64) error

	DeleteAllocation(ctx context.Context, kind AccountKind, id int64) error

	// ReplaceAllocations wipes the account's allocation set and bulk
	// inserts the rebuilt one.
	ReplaceAllocations(ctx context.Context, ref AccountRef, allocations []Allocation) error
	// ApplyEngineChanges writes the engine-owned fields from a run result
	// as partial-field updates.
	ApplyEngineChanges(ctx context.Context, result RunResult) error

	UpsertSummary(ctx context.Context, summary AccountSummary) error
}
