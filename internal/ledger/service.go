package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// AuditRecorder persists reallocation audit entries. Optional.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ServiceConfig tunes service behavior.
type ServiceConfig struct {
	// OverdueAfter is the age of the oldest unpaid debt past which an
	// account is flagged overdue.
	OverdueAfter time.Duration
	// MaxParallel bounds concurrent per-account reallocations during a
	// backfill. Accounts are independent lock domains.
	MaxParallel int
}

// Service is the public face of the ledger: guarded mutations, the
// reallocation entry points and the read-side projections.
type Service struct {
	store    Store
	cache    *SummaryCache
	audit    AuditRecorder
	logger   *slog.Logger
	validate *validator.Validate
	cfg      ServiceConfig
	now      func() time.Time
}

// NewService builds a Service instance.
func NewService(store Store, cache *SummaryCache, audit AuditRecorder, logger *slog.Logger, cfg ServiceConfig) *Service {
	if cfg.OverdueAfter <= 0 {
		cfg.OverdueAfter = 30 * 24 * time.Hour
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 8
	}
	return &Service{
		store:    store,
		cache:    cache,
		audit:    audit,
		logger:   logger,
		validate: validator.New(),
		cfg:      cfg,
		now:      time.Now,
	}
}

// AllocationResult summarises one reallocation run.
type AllocationResult struct {
	Account         AccountRef      `json:"account"`
	AllocationCount int             `json:"allocation_count"`
	Summary         AccountSummary  `json:"summary"`
	TotalAllocated  decimal.Decimal `json:"total_allocated"`
}

// --- Reallocation entry points ---

// Reallocate re-runs the engine for one account inside a single
// transaction. Idempotent; safe to call redundantly. Retries once when the
// store reports a concurrency conflict.
func (s *Service) Reallocate(ctx context.Context, ref AccountRef) (*AllocationResult, error) {
	if !ref.Kind.Valid() {
		return nil, ErrUnknownKind
	}
	result, err := s.reallocateOnce(ctx, ref)
	if errors.Is(err, ErrConcurrency) {
		s.logger.Warn("reallocation conflict, retrying",
			slog.String("kind", string(ref.Kind)),
			slog.Int64("account_id", ref.AccountID))
		result, err = s.reallocateOnce(ctx, ref)
	}
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, shared.ActionReallocate, string(ref.Kind), strconv.FormatInt(ref.AccountID, 10), map[string]any{
		"run_id":      uuid.NewString(),
		"allocations": result.AllocationCount,
		"balance":     result.Summary.BalanceAmount.String(),
	})
	return result, nil
}

func (s *Service) recordAudit(ctx context.Context, action, entity, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Meta:     meta,
		At:       s.now(),
	})
}

func (s *Service) reallocateOnce(ctx context.Context, ref AccountRef) (*AllocationResult, error) {
	var result *AllocationResult
	err := s.store.WithTx(ctx, func(ctx context.Context, tx StoreTx) error {
		var err error
		result, err = s.reallocateInTx(ctx, tx, ref)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, result.Summary); err != nil {
		s.logger.Warn("summary cache set", slog.Any("error", err))
	}
	return result, nil
}

// reallocateInTx locks the account's rows, runs the engine on the snapshot
// and persists the rebuilt state. The in-flight guard suppresses the
// defensive allocation-deleted trigger for writes the run itself performs.
func (s *Service) reallocateInTx(ctx context.Context, tx StoreTx, ref AccountRef) (*AllocationResult, error) {
	ctx = withReallocationInFlight(ctx)

	debts, err := tx.LockDebts(ctx, ref, false)
	if err != nil {
		return nil, fmt.Errorf("lock debts: %w", err)
	}
	credits, err := tx.LockCredits(ctx, ref, false)
	if err != nil {
		return nil, fmt.Errorf("lock credits: %w", err)
	}

	result := Run(Snapshot{Account: ref, Debts: debts, Credits: credits})

	if err := tx.ReplaceAllocations(ctx, ref, result.Allocations); err != nil {
		return nil, fmt.Errorf("replace allocations: %w", err)
	}
	if err := tx.ApplyEngineChanges(ctx, result); err != nil {
		return nil, fmt.Errorf("apply engine changes: %w", err)
	}

	summary := ComputeSummary(ref, result.Debts, result.Credits, s.now(), s.cfg.OverdueAfter)
	if err := tx.UpsertSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("upsert summary: %w", err)
	}

	total := decimal.Zero
	for _, a := range result.Allocations {
		total = total.Add(a.Amount)
	}
	return &AllocationResult{
		Account:         ref,
		AllocationCount: len(result.Allocations),
		Summary:         summary,
		TotalAllocated:  total,
	}, nil
}

// ReallocateAll re-runs the engine for every account of one kind, used by
// backfill and maintenance tooling. Accounts reallocate in parallel up to
// MaxParallel since their lock scopes never overlap.
func (s *Service) ReallocateAll(ctx context.Context, kind AccountKind) (int, error) {
	if !kind.Valid() {
		return 0, ErrUnknownKind
	}
	ids, err := s.store.ListAccountIDs(ctx, kind)
	if err != nil {
		return 0, fmt.Errorf("list accounts: %w", err)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxParallel)
	for _, id := range ids {
		ref := AccountRef{Kind: kind, AccountID: id}
		g.Go(func() error {
			if _, err := s.Reallocate(ctx, ref); err != nil {
				return fmt.Errorf("account %d: %w", ref.AccountID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	s.recordAudit(ctx, shared.ActionBackfill, string(kind), "ALL", map[string]any{"accounts": len(ids)})
	return len(ids), nil
}

// applyTriggers runs a reallocation for each distinct account the decision
// table flagged, inside the caller's transaction. Writes performed by an
// in-flight run never cascade. Returns the rebuilt summaries so the caller
// can refresh the cache once the transaction commits.
func (s *Service) applyTriggers(ctx context.Context, tx StoreTx, refs []AccountRef, skip bool) ([]AccountSummary, error) {
	if skip || ReallocationInFlight(ctx) || len(refs) == 0 {
		return nil, nil
	}
	seen := make(map[AccountRef]bool, len(refs))
	summaries := make([]AccountSummary, 0, len(refs))
	for _, ref := range refs {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		result, err := s.reallocateInTx(ctx, tx, ref)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, result.Summary)
	}
	return summaries, nil
}

// syncSummaryCache runs after a mutation commits. Accounts the run rebuilt
// get their fresh summary cached; flagged accounts whose run was skipped
// get their cached entry dropped so reads fall back to the store.
func (s *Service) syncSummaryCache(ctx context.Context, flagged []AccountRef, summaries []AccountSummary) {
	refreshed := make(map[AccountRef]bool, len(summaries))
	for _, summary := range summaries {
		ref := AccountRef{Kind: summary.AccountKind, AccountID: summary.AccountID}
		refreshed[ref] = true
		if err := s.cache.Set(ctx, summary); err != nil {
			s.logger.Warn("summary cache set", slog.Any("error", err))
		}
	}
	for _, ref := range flagged {
		if refreshed[ref] {
			continue
		}
		if err := s.cache.Invalidate(ctx, ref); err != nil {
			s.logger.Warn("summary cache invalidate", slog.Any("error", err))
		}
	}
}

// --- Debt mutations ---

// RecordDebtInput creates an invoice. Engine-owned fields are absent on
// purpose.
type RecordDebtInput struct {
	Kind             AccountKind     `json:"kind" validate:"required,oneof=CUSTOMER SUPPLIER"`
	AccountID        int64           `json:"account_id" validate:"required,gt=0"`
	Number           string          `json:"number" validate:"omitempty,max=50"`
	DebtDate         time.Time       `json:"debt_date" validate:"required"`
	Type             DebtType        `json:"type" validate:"required,oneof=CASH CREDIT"`
	GrossAmount      decimal.Decimal `json:"gross_amount"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	AdvanceAmount    decimal.Decimal `json:"advance_amount"`
	CreatedBy        int64           `json:"created_by"`
	SkipReallocation bool            `json:"skip_reallocation"`
}

func (s *Service) validateDebtAmounts(typ DebtType, gross, discount, advance decimal.Decimal) error {
	if gross.IsNegative() {
		return errors.New("gross amount must not be negative")
	}
	if discount.IsNegative() || discount.GreaterThan(gross) {
		return errors.New("discount must be between zero and gross amount")
	}
	if advance.IsNegative() {
		return errors.New("advance must not be negative")
	}
	if typ != DebtCredit && advance.IsPositive() {
		return errors.New("advance applies to credit invoices only")
	}
	return nil
}

// RecordDebt creates a debt and reallocates its account when it
// participates in allocation.
func (s *Service) RecordDebt(ctx context.Context, input RecordDebtInput) (*Debt, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	if err := s.validateDebtAmounts(input.Type, input.GrossAmount, input.DiscountAmount, input.AdvanceAmount); err != nil {
		return nil, err
	}
	number := input.Number
	if number == "" {
		number = "INV-" + uuid.NewString()
	}
	debt := &Debt{
		AccountKind:    input.Kind,
		AccountID:      input.AccountID,
		Number:         number,
		DebtDate:       input.DebtDate,
		Type:           input.Type,
		GrossAmount:    input.GrossAmount,
		DiscountAmount: input.DiscountAmount,
		AdvanceAmount:  input.AdvanceAmount,
		PaidAmount:     decimal.Zero,
		Status:         StatusUnpaid,
		CreatedBy:      input.CreatedBy,
	}
	var (
		flagged   []AccountRef
		summaries []AccountSummary
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx StoreTx) error {
		if err := tx.InsertDebt(ctx, debt); err != nil {
			return err
		}
		var err error
		flagged = DecideDebt(nil, debt)
		summaries, err = s.applyTriggers(ctx, tx, flagged, input.SkipReallocation)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("record debt: %w", err)
	}
	s.syncSummaryCache(ctx, flagged, summaries)
	s.recordAudit(ctx, shared.ActionRecordDebt, string(debt.AccountKind)+"_invoice", strconv.FormatInt(debt.ID, 10), map[string]any{
		"number": debt.Number,
		"net":    debt.NetAmount().String(),
	})
	return debt, nil
}

// UpdateDebtInput patches caller-owned debt fields. Nil means unchanged.
type UpdateDebtInput struct {
	Number           *string          `json:"number,omitempty" validate:"omitempty,max=50"`
	DebtDate         *time.Time       `json:"debt_date,omitempty"`
	Type             *DebtType        `json:"type,omitempty" validate:"omitempty,oneof=CASH CREDIT"`
	GrossAmount      *decimal.Decimal `json:"gross_amount,omitempty"`
	DiscountAmount   *decimal.Decimal `json:"discount_amount,omitempty"`
	AdvanceAmount    *decimal.Decimal `json:"advance_amount,omitempty"`
	AccountID        *int64           `json:"account_id,omitempty" validate:"omitempty,gt=0"`
	SkipReallocation bool             `json:"skip_reallocation,omitempty"`
}

// UpdateDebt applies the patch and reallocates every account the change
// table flags, including both accounts when the debt moved.
func (s *Service) UpdateDebt(ctx context.Context, kind AccountKind, id int64, input UpdateDebtInput) (*Debt, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	var (
		updated   *Debt
		flagged   []AccountRef
		summaries []AccountSummary
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx StoreTx) error {
		old, err := tx.GetDebtForUpdate(ctx, kind, id)
		if err != nil {
			return err
		}
		next := *old
		if input.Number != nil {
			next.Number = *input.Number
		}
		if input.DebtDate != nil {
			next.DebtDate = *input.DebtDate
		}
		if input.Type != nil {
			next.Type = *input.Type
		}
		if input.GrossAmount != nil {
			next.GrossAmount = *input.GrossAmount
		}
		if input.DiscountAmount != nil {
			next.DiscountAmount = *input.DiscountAmount
		}
		if input.AdvanceAmount != nil {
			next.AdvanceAmount = *input.AdvanceAmount
		}
		if input.AccountID != nil {
			next.AccountID = *input.AccountID
		}
		if err := s.validateDebtAmounts(next.Type, next.GrossAmount, next.DiscountAmount, next.AdvanceAmount); err != nil {
			return err
		}
		if err := tx.UpdateDebt(ctx, &next); err != nil {
			return err
		}
		updated = &next
		flagged = DecideDebt(old, &next)
		summaries, err = s.applyTriggers(ctx, tx, flagged, input.SkipReallocation)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update debt: %w", err)
	}
	s.syncSummaryCache(ctx, flagged, summaries)
	return updated, nil
}

// SetDebtVoided flips the soft-void flag in either direction.
func (s *Service) SetDebtVoided(ctx context.Context, kind AccountKind, id int64, voided, skipReallocation bool) (*Debt, error) {
	var (
		updated   *Debt
		flagged   []AccountRef
		summaries []AccountSummary
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx StoreTx) error {
		old, err := tx.GetDebtForUpdate(ctx, kind, id)
		if err != nil {
			return err
		}
		if old.Voided == voided {
			updated = old
			return nil
		}
		next := *old
		next.Voided = voided
		if err := tx.UpdateDebt(ctx, &next); err != nil {
			return err
		}
		updated = &next
		flagged = DecideDebt(old, &next)
		summaries, err = s.applyTriggers(ctx, tx, flagged, skipReallocation)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("void debt: %w", err)
	}
	s.syncSummaryCache(ctx, flagged, summaries)
	s.recordAudit(ctx, shared.ActionVoid, string(kind)+"_invoice", strconv.FormatInt(id, 10), map[string]any{"voided": voided})
	return updated, nil
}

// DeleteDebt removes the row and reallocates the now-former account.
func (s *Service) DeleteDebt(ctx context.Context, kind AccountKind, id int64, skipReallocation bool) error {
	var (
		flagged   []AccountRef
		summaries []AccountSummary
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx StoreTx) error {
		old, err := tx.GetDebtForUpdate(ctx, kind, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteDebt(ctx, kind, id); err != nil {
			return err
		}
		flagged = DecideDebt(old, nil)
		summaries, err = s.applyTriggers(ctx, tx, flagged, skipReallocation)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete debt: %w", err)
	}
	s.syncSummaryCache(ctx, flagged, summaries)
	return nil
}

// --- Credit mutations ---

// RecordCreditInput creates a payment.
type RecordCreditInput struct {
	Kind             AccountKind     `json:"kind" validate:"required,oneof=CUSTOMER SUPPLIER"`
	AccountID        int64           `json:"account_id" validate:"required,gt=0"`
	Number           string          `json:"number" validate:"omitempty,max=50"`
	CreditDate       time.Time       `json:"credit_date" validate:"required"`
	CreditKind       CreditKind      `json:"credit_kind" validate:"required,oneof=PAID PURCHASED"`
	Amount           decimal.Decimal `json:"amount"`
	CreatedBy        int64           `json:"created_by"`
	SkipReallocation bool            `json:"skip_reallocation"`
}

// RecordCredit creates a credit and reallocates its account. PURCHASED is
// a customer-only kind.
func (s *Service) RecordCredit(ctx context.Context, input RecordCreditInput) (*Credit, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	if !input.Amount.IsPositive() {
		return nil, errors.New("amount must be positive")
	}
	if input.CreditKind == CreditPurchased && input.Kind != KindCustomer {
		return nil, errors.New("purchased credits exist on customer accounts only")
	}
	number := input.Number
	if number == "" {
		number = "PAY-" + uuid.NewString()
	}
	credit := &Credit{
		AccountKind:       input.Kind,
		AccountID:         input.AccountID,
		Number:            number,
		CreditDate:        input.CreditDate,
		Kind:              input.CreditKind,
		Amount:            input.Amount,
		UnallocatedAmount: input.Amount,
		CreatedBy:         input.CreatedBy,
	}
	var (
		flagged   []AccountRef
		summaries []AccountSummary
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx StoreTx) error {
		if err := tx.InsertCredit(ctx, credit); err != nil {
			return err
		}
		var err error
		flagged = DecideCredit(nil, credit)
		summaries, err = s.applyTriggers(ctx, tx, flagged, input.SkipReallocation)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("record credit: %w", err)
	}
	s.syncSummaryCache(ctx, flagged, summaries)
	s.recordAudit(ctx, shared.ActionRecordCredit, string(credit.AccountKind)+"_payment", strconv.FormatInt(credit.ID, 10), map[string]any{
		"number": credit.Number,
		"amount": credit.Amount.String(),
	})
	return credit, nil
}

// UpdateCreditInput patches caller-owned credit fields.
type UpdateCreditInput struct {
	Number           *string          `json:"number,omitempty" validate:"omitempty,max=50"`
	CreditDate       *time.Time       `json:"credit_date,omitempty"`
	CreditKind       *CreditKind      `json:"credit_kind,omitempty" validate:"omitempty,oneof=PAID PURCHASED"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	AccountID        *int64           `json:"account_id,omitempty" validate:"omitempty,gt=0"`
	SkipReallocation bool             `json:"skip_reallocation,omitempty"`
}

// UpdateCredit applies the patch and reallocates flagged accounts.
func (s *Service) UpdateCredit(ctx context.Context, kind AccountKind, id int64, input UpdateCreditInput) (*Credit, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	var (
		updated   *Credit
		flagged   []AccountRef
		summaries []AccountSummary
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx StoreTx) error {
		old, err := tx.GetCreditForUpdate(ctx, kind, id)
		if err != nil {
			return err
		}
		next := *old
		if input.Number != nil {
			next.Number = *input.Number
		}
		if input.CreditDate != nil {
			next.CreditDate = *input.CreditDate
		}
		if input.CreditKind != nil {
			next.Kind = *input.CreditKind
		}
		if input.Amount != nil {
			next.Amount = *input.Amount
		}
		if input.AccountID != nil {
			next.AccountID = *input.AccountID
		}
		if !next.Amount.IsPositive() {
			return errors.New("amount must be positive")
		}
		if next.Kind == CreditPurchased && next.AccountKind != KindCustomer {
			return errors.New("purchased credits exist on customer accounts only")
		}
		if err := tx.UpdateCredit(ctx, &next); err != nil {
			return err
		}
		updated = &next
		flagged = DecideCredit(old, &next)
		summaries, err = s.applyTriggers(ctx, tx, flagged, input.SkipReallocation)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update credit: %w", err)
	}
	s.syncSummaryCache(ctx, flagged, summaries)
	return updated, nil
}

// SetCreditVoided flips the soft-void flag in either direction.
func (s *Service) SetCreditVoided(ctx context.Context, kind AccountKind, id int64, voided, skipReallocation bool) (*Credit, error) {
	var (
		updated   *Credit
		flagged   []AccountRef
		summaries []AccountSummary
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx StoreTx) error {
		old, err := tx.GetCreditForUpdate(ctx, kind, id)
		if err != nil {
			return err
		}
		if old.Voided == voided {
			updated = old
			return nil
		}
		next := *old
		next.Voided = voided
		if err := tx.UpdateCredit(ctx, &next); err != nil {
			return err
		}
		updated = &next
		flagged = DecideCredit(old, &next)
		summaries, err = s.applyTriggers(ctx, tx, flagged, skipReallocation)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("void credit: %w", err)
	}
	s.syncSummaryCache(ctx, flagged, summaries)
	s.recordAudit(ctx, shared.ActionVoid, string(kind)+"_payment", strconv.FormatInt(id, 10), map[string]any{"voided": voided})
	return updated, nil
}

// DeleteCredit removes the row and reallocates the now-former account.
func (s *Service) DeleteCredit(ctx context.Context, kind AccountKind, id int64, skipReallocation bool) error {
	var (
		flagged   []AccountRef
		summaries []AccountSummary
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx StoreTx) error {
		old, err := tx.GetCreditForUpdate(ctx, kind, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteCredit(ctx, kind, id); err != nil {
			return err
		}
		flagged = DecideCredit(old, nil)
		summaries, err = s.applyTriggers(ctx, tx, flagged, skipReallocation)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete credit: %w", err)
	}
	s.syncSummaryCache(ctx, flagged, summaries)
	return nil
}

// DeleteAllocation is the defensive path for a directly removed allocation
// row: the affected account is reallocated so the set is rebuilt
// consistently. Guarded so runs never cascade into themselves.
func (s *Service) DeleteAllocation(ctx context.Context, kind AccountKind, id int64) error {
	var summaries []AccountSummary
	err := s.store.WithTx(ctx, func(ctx context.Context, tx StoreTx) error {
		alloc, err := tx.GetAllocation(ctx, kind, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteAllocation(ctx, kind, id); err != nil {
			return err
		}
		if ReallocationInFlight(ctx) {
			return nil
		}
		result, err := s.reallocateInTx(ctx, tx, AccountRef{Kind: kind, AccountID: alloc.AccountID})
		if err != nil {
			return err
		}
		summaries = append(summaries, result.Summary)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete allocation: %w", err)
	}
	s.syncSummaryCache(ctx, nil, summaries)
	s.recordAudit(ctx, shared.ActionDeleteAlloc, string(kind)+"_allocation", strconv.FormatInt(id, 10), nil)
	return nil
}

// --- Read-side projections ---

// GetStatement builds the chronological statement with running balances
// for one account and date range. Read-only.
func (s *Service) GetStatement(ctx context.Context, ref AccountRef, from, to time.Time) (*Statement, error) {
	if !ref.Kind.Valid() {
		return nil, ErrUnknownKind
	}
	debts, err := s.store.ListDebts(ctx, ref, false)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	credits, err := s.store.ListCredits(ctx, ref, false)
	if err != nil {
		return nil, fmt.Errorf("list credits: %w", err)
	}
	statement := BuildStatement(ref, debts, credits, from, to)
	return &statement, nil
}

// GetOpeningBalance folds all activity strictly before asOf into one
// figure.
func (s *Service) GetOpeningBalance(ctx context.Context, ref AccountRef, asOf time.Time) (decimal.Decimal, error) {
	if !ref.Kind.Valid() {
		return decimal.Zero, ErrUnknownKind
	}
	debts, err := s.store.ListDebts(ctx, ref, false)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list debts: %w", err)
	}
	credits, err := s.store.ListCredits(ctx, ref, false)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list credits: %w", err)
	}
	return OpeningBalance(debts, credits, asOf), nil
}

// GetSummary returns the account summary, preferring the cache, then the
// stored projection, then a fresh computation.
func (s *Service) GetSummary(ctx context.Context, ref AccountRef) (*AccountSummary, error) {
	if !ref.Kind.Valid() {
		return nil, ErrUnknownKind
	}
	if cached, err := s.cache.Get(ctx, ref); err != nil {
		s.logger.Warn("summary cache get", slog.Any("error", err))
	} else if cached != nil {
		return cached, nil
	}
	stored, err := s.store.GetSummary(ctx, ref)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if stored != nil {
		if err := s.cache.Set(ctx, *stored); err != nil {
			s.logger.Warn("summary cache set", slog.Any("error", err))
		}
		return stored, nil
	}
	debts, err := s.store.ListDebts(ctx, ref, false)
	if err != nil {
		return nil, err
	}
	credits, err := s.store.ListCredits(ctx, ref, false)
	if err != nil {
		return nil, err
	}
	summary := ComputeSummary(ref, debts, credits, s.now(), s.cfg.OverdueAfter)
	return &summary, nil
}

// GetAging buckets the account's outstanding debt by age.
func (s *Service) GetAging(ctx context.Context, ref AccountRef, asOf time.Time) (AgingBucket, error) {
	if !ref.Kind.Valid() {
		return AgingBucket{}, ErrUnknownKind
	}
	debts, err := s.store.ListDebts(ctx, ref, false)
	if err != nil {
		return AgingBucket{}, fmt.Errorf("list debts: %w", err)
	}
	return ComputeAging(debts, asOf), nil
}

// GetDebt fetches one debt.
func (s *Service) GetDebt(ctx context.Context, kind AccountKind, id int64) (*Debt, error) {
	return s.store.GetDebt(ctx, kind, id)
}

// GetCredit fetches one credit.
func (s *Service) GetCredit(ctx context.Context, kind AccountKind, id int64) (*Credit, error) {
	return s.store.GetCredit(ctx, kind, id)
}

// ListAllocations returns the current allocation set for one account.
func (s *Service) ListAllocations(ctx context.Context, ref AccountRef) ([]Allocation, error) {
	return s.store.ListAllocations(ctx, ref)
}
