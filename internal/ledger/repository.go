package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/platform/db"
)

// tableSet names the per-kind tables. Customer and supplier ledgers share
// one schema shape; only the table names differ.
type tableSet struct {
	debts       string
	credits     string
	allocations string
	accounts    string
}

func tablesFor(kind AccountKind) (tableSet, error) {
	switch kind {
	case KindCustomer:
		return tableSet{
			debts:       "customer_invoices",
			credits:     "customer_payments",
			allocations: "customer_payment_allocations",
			accounts:    "customers",
		}, nil
	case KindSupplier:
		return tableSet{
			debts:       "supplier_invoices",
			credits:     "supplier_payments",
			allocations: "supplier_payment_allocations",
			accounts:    "suppliers",
		}, nil
	default:
		return tableSet{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

const (
	debtColumns   = "id, account_id, number, debt_date, type, gross_amount, discount_amount, advance_amount, paid_amount, status, voided, created_by, created_at, updated_at"
	creditColumns = "id, account_id, number, credit_date, kind, amount, unallocated_amount, voided, created_by, created_at, updated_at"
	allocColumns  = "id, account_id, credit_id, target_type, target_id, amount, created_by, created_at"
)

// Repository provides PostgreSQL backed persistence for the ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx wraps fn in a repeatable-read transaction with a bounded lock
// wait, mapping retryable failures to ErrConcurrency.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx StoreTx) error) error {
	err := db.WithTx(ctx, r.pool, func(pgtx pgx.Tx) error {
		if _, err := pgtx.Exec(ctx, "SET LOCAL lock_timeout = '5s'"); err != nil {
			return err
		}
		return fn(ctx, &txStore{tx: pgtx})
	})
	return mapPgError(err)
}

// --- read-side (pool, no locks) ---

func (r *Repository) ListDebts(ctx context.Context, ref AccountRef, includeVoided bool) ([]Debt, error) {
	return selectDebts(ctx, r.pool, ref, includeVoided, false)
}

func (r *Repository) ListCredits(ctx context.Context, ref AccountRef, includeVoided bool) ([]Credit, error) {
	return selectCredits(ctx, r.pool, ref, includeVoided, false)
}

func (r *Repository) ListAllocations(ctx context.Context, ref AccountRef) ([]Allocation, error) {
	t, err := tablesFor(ref.Kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE account_id = $1 ORDER BY id", allocColumns, t.allocations)
	rows, err := r.pool.Query(ctx, query, ref.AccountID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var allocations []Allocation
	for rows.Next() {
		a, err := scanAllocation(rows, ref.Kind)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

func (r *Repository) ListAccountIDs(ctx context.Context, kind AccountKind) ([]int64, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, fmt.Sprintf("SELECT id FROM %s ORDER BY id", t.accounts))
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) GetSummary(ctx context.Context, ref AccountRef) (*AccountSummary, error) {
	query := `
		SELECT credit_amount, debit_amount, balance_amount, last_unpaid_date, is_overdue, computed_at
		FROM account_summaries
		WHERE account_kind = $1 AND account_id = $2`

	var credit, debit, balance pgtype.Numeric
	var lastUnpaid pgtype.Timestamptz
	var overdue bool
	var computedAt time.Time

	err := r.pool.QueryRow(ctx, query, string(ref.Kind), ref.AccountID).
		Scan(&credit, &debit, &balance, &lastUnpaid, &overdue, &computedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapPgError(err)
	}

	summary := AccountSummary{
		AccountKind:   ref.Kind,
		AccountID:     ref.AccountID,
		CreditAmount:  numericToDecimal(credit),
		DebitAmount:   numericToDecimal(debit),
		BalanceAmount: numericToDecimal(balance),
		IsOverdue:     overdue,
		ComputedAt:    computedAt,
	}
	if lastUnpaid.Valid {
		summary.LastUnpaidDate = &lastUnpaid.Time
	}
	return &summary, nil
}

func (r *Repository) GetDebt(ctx context.Context, kind AccountKind, id int64) (*Debt, error) {
	return getDebt(ctx, r.pool, kind, id, false)
}

func (r *Repository) GetCredit(ctx context.Context, kind AccountKind, id int64) (*Credit, error) {
	return getCredit(ctx, r.pool, kind, id, false)
}

// --- transactional store ---

type txStore struct {
	tx pgx.Tx
}

func (t *txStore) LockDebts(ctx context.Context, ref AccountRef, includeVoided bool) ([]Debt, error) {
	return selectDebts(ctx, t.tx, ref, includeVoided, true)
}

func (t *txStore) LockCredits(ctx context.Context, ref AccountRef, includeVoided bool) ([]Credit, error) {
	return selectCredits(ctx, t.tx, ref, includeVoided, true)
}

func (t *txStore) GetDebtForUpdate(ctx context.Context, kind AccountKind, id int64) (*Debt, error) {
	return getDebt(ctx, t.tx, kind, id, true)
}

func (t *txStore) GetCreditForUpdate(ctx context.Context, kind AccountKind, id int64) (*Credit, error) {
	return getCredit(ctx, t.tx, kind, id, true)
}

func (t *txStore) GetAllocation(ctx context.Context, kind AccountKind, id int64) (*Allocation, error) {
	tables, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", allocColumns, tables.allocations)
	a, err := scanAllocation(t.tx.QueryRow(ctx, query, id), kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	return &a, nil
}

func (t *txStore) InsertDebt(ctx context.Context, debt *Debt) error {
	tables, err := tablesFor(debt.AccountKind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (account_id, number, debt_date, type, gross_amount, discount_amount, advance_amount, paid_amount, status, voided, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING id, created_at, updated_at`, tables.debts)
	err = t.tx.QueryRow(ctx, query,
		debt.AccountID,
		debt.Number,
		debt.DebtDate,
		string(debt.Type),
		debt.GrossAmount.String(),
		debt.DiscountAmount.String(),
		debt.AdvanceAmount.String(),
		debt.PaidAmount.String(),
		string(debt.Status),
		debt.Voided,
		debt.CreatedBy,
	).Scan(&debt.ID, &debt.CreatedAt, &debt.UpdatedAt)
	return mapPgError(err)
}

// UpdateDebt writes caller-owned fields only; paid_amount and status stay
// untouched so the engine remains their sole writer.
func (t *txStore) UpdateDebt(ctx context.Context, debt *Debt) error {
	tables, err := tablesFor(debt.AccountKind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET account_id = $2, number = $3, debt_date = $4, type = $5,
			gross_amount = $6, discount_amount = $7, advance_amount = $8,
			voided = $9, updated_at = NOW()
		WHERE id = $1`, tables.debts)
	tag, err := t.tx.Exec(ctx, query,
		debt.ID,
		debt.AccountID,
		debt.Number,
		debt.DebtDate,
		string(debt.Type),
		debt.GrossAmount.String(),
		debt.DiscountAmount.String(),
		debt.AdvanceAmount.String(),
		debt.Voided,
	)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txStore) DeleteDebt(ctx context.Context, kind AccountKind, id int64) error {
	tables, err := tablesFor(kind)
	if err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", tables.debts), id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txStore) InsertCredit(ctx context.Context, credit *Credit) error {
	tables, err := tablesFor(credit.AccountKind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (account_id, number, credit_date, kind, amount, unallocated_amount, voided, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at`, tables.credits)
	err = t.tx.QueryRow(ctx, query,
		credit.AccountID,
		credit.Number,
		credit.CreditDate,
		string(credit.Kind),
		credit.Amount.String(),
		credit.UnallocatedAmount.String(),
		credit.Voided,
		credit.CreatedBy,
	).Scan(&credit.ID, &credit.CreatedAt, &credit.UpdatedAt)
	return mapPgError(err)
}

// UpdateCredit writes caller-owned fields only; unallocated_amount stays
// untouched outside the engine.
func (t *txStore) UpdateCredit(ctx context.Context, credit *Credit) error {
	tables, err := tablesFor(credit.AccountKind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET account_id = $2, number = $3, credit_date = $4, kind = $5,
			amount = $6, voided = $7, updated_at = NOW()
		WHERE id = $1`, tables.credits)
	tag, err := t.tx.Exec(ctx, query,
		credit.ID,
		credit.AccountID,
		credit.Number,
		credit.CreditDate,
		string(credit.Kind),
		credit.Amount.String(),
		credit.Voided,
	)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txStore) DeleteCredit(ctx context.Context, kind AccountKind, id int64) error {
	tables, err := tablesFor(kind)
	if err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", tables.credits), id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txStore) DeleteAllocation(ctx context.Context, kind AccountKind, id int64) error {
	tables, err := tablesFor(kind)
	if err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", tables.allocations), id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txStore) ReplaceAllocations(ctx context.Context, ref AccountRef, allocations []Allocation) error {
	tables, err := tablesFor(ref.Kind)
	if err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE account_id = $1", tables.allocations), ref.AccountID); err != nil {
		return mapPgError(err)
	}
	if len(allocations) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	insert := fmt.Sprintf(`
		INSERT INTO %s (account_id, credit_id, target_type, target_id, amount, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`, tables.allocations)
	for _, a := range allocations {
		batch.Queue(insert, ref.AccountID, a.CreditID, string(a.TargetType), a.TargetID, a.Amount.String(), a.CreatedBy)
	}
	return mapPgError(t.tx.SendBatch(ctx, batch).Close())
}

// ApplyEngineChanges is the single write path for engine-owned fields.
func (t *txStore) ApplyEngineChanges(ctx context.Context, result RunResult) error {
	tables, err := tablesFor(result.Account.Kind)
	if err != nil {
		return err
	}
	batch := &pgx.Batch{}
	debtUpdate := fmt.Sprintf("UPDATE %s SET paid_amount = $2, status = $3, updated_at = NOW() WHERE id = $1", tables.debts)
	for _, d := range result.Debts {
		if !d.Participates() {
			continue
		}
		batch.Queue(debtUpdate, d.ID, d.PaidAmount.String(), string(d.Status))
	}
	creditUpdate := fmt.Sprintf("UPDATE %s SET unallocated_amount = $2, updated_at = NOW() WHERE id = $1", tables.credits)
	for _, c := range result.Credits {
		batch.Queue(creditUpdate, c.ID, c.UnallocatedAmount.String())
	}
	if batch.Len() == 0 {
		return nil
	}
	return mapPgError(t.tx.SendBatch(ctx, batch).Close())
}

func (t *txStore) UpsertSummary(ctx context.Context, summary AccountSummary) error {
	query := `
		INSERT INTO account_summaries (account_kind, account_id, credit_amount, debit_amount, balance_amount, last_unpaid_date, is_overdue, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (account_kind, account_id) DO UPDATE
		SET credit_amount = EXCLUDED.credit_amount,
			debit_amount = EXCLUDED.debit_amount,
			balance_amount = EXCLUDED.balance_amount,
			last_unpaid_date = EXCLUDED.last_unpaid_date,
			is_overdue = EXCLUDED.is_overdue,
			computed_at = EXCLUDED.computed_at`
	var lastUnpaid any
	if summary.LastUnpaidDate != nil {
		lastUnpaid = *summary.LastUnpaidDate
	}
	_, err := t.tx.Exec(ctx, query,
		string(summary.AccountKind),
		summary.AccountID,
		summary.CreditAmount.String(),
		summary.DebitAmount.String(),
		summary.BalanceAmount.String(),
		lastUnpaid,
		summary.IsOverdue,
		summary.ComputedAt,
	)
	return mapPgError(err)
}

// --- shared query helpers ---

type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func selectDebts(ctx context.Context, q pgxQuerier, ref AccountRef, includeVoided, forUpdate bool) ([]Debt, error) {
	tables, err := tablesFor(ref.Kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE account_id = $1", debtColumns, tables.debts)
	if !includeVoided {
		query += " AND voided = FALSE"
	}
	query += " ORDER BY debt_date, id"
	if forUpdate {
		query += " FOR UPDATE"
	}
	rows, err := q.Query(ctx, query, ref.AccountID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var debts []Debt
	for rows.Next() {
		d, err := scanDebt(rows, ref.Kind)
		if err != nil {
			return nil, err
		}
		debts = append(debts, d)
	}
	return debts, rows.Err()
}

func selectCredits(ctx context.Context, q pgxQuerier, ref AccountRef, includeVoided, forUpdate bool) ([]Credit, error) {
	tables, err := tablesFor(ref.Kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE account_id = $1", creditColumns, tables.credits)
	if !includeVoided {
		query += " AND voided = FALSE"
	}
	query += " ORDER BY credit_date, id"
	if forUpdate {
		query += " FOR UPDATE"
	}
	rows, err := q.Query(ctx, query, ref.AccountID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var credits []Credit
	for rows.Next() {
		c, err := scanCredit(rows, ref.Kind)
		if err != nil {
			return nil, err
		}
		credits = append(credits, c)
	}
	return credits, rows.Err()
}

func getDebt(ctx context.Context, q pgxQuerier, kind AccountKind, id int64, forUpdate bool) (*Debt, error) {
	tables, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", debtColumns, tables.debts)
	if forUpdate {
		query += " FOR UPDATE"
	}
	d, err := scanDebt(q.QueryRow(ctx, query, id), kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	return &d, nil
}

func getCredit(ctx context.Context, q pgxQuerier, kind AccountKind, id int64, forUpdate bool) (*Credit, error) {
	tables, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", creditColumns, tables.credits)
	if forUpdate {
		query += " FOR UPDATE"
	}
	c, err := scanCredit(q.QueryRow(ctx, query, id), kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	return &c, nil
}

func scanDebt(row pgx.Row, kind AccountKind) (Debt, error) {
	var d Debt
	var gross, discount, advance, paid pgtype.Numeric
	var typ, status string
	err := row.Scan(
		&d.ID, &d.AccountID, &d.Number, &d.DebtDate, &typ,
		&gross, &discount, &advance, &paid, &status,
		&d.Voided, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return Debt{}, err
	}
	d.AccountKind = kind
	d.Type = DebtType(typ)
	d.Status = DebtStatus(status)
	d.GrossAmount = numericToDecimal(gross)
	d.DiscountAmount = numericToDecimal(discount)
	d.AdvanceAmount = numericToDecimal(advance)
	d.PaidAmount = numericToDecimal(paid)
	return d, nil
}

func scanCredit(row pgx.Row, kind AccountKind) (Credit, error) {
	var c Credit
	var amount, unallocated pgtype.Numeric
	var ckind string
	err := row.Scan(
		&c.ID, &c.AccountID, &c.Number, &c.CreditDate, &ckind,
		&amount, &unallocated, &c.Voided, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return Credit{}, err
	}
	c.AccountKind = kind
	c.Kind = CreditKind(ckind)
	c.Amount = numericToDecimal(amount)
	c.UnallocatedAmount = numericToDecimal(unallocated)
	return c, nil
}

func scanAllocation(row pgx.Row, kind AccountKind) (Allocation, error) {
	var a Allocation
	var amount pgtype.Numeric
	var targetType string
	err := row.Scan(&a.ID, &a.AccountID, &a.CreditID, &targetType, &a.TargetID, &amount, &a.CreatedBy, &a.CreatedAt)
	if err != nil {
		return Allocation{}, err
	}
	a.AccountKind = kind
	a.TargetType = TargetType(targetType)
	a.Amount = numericToDecimal(amount)
	return a, nil
}

// numericToDecimal converts pgtype.Numeric to an exact fixed-point
// decimal. Money never passes through float64.
func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
