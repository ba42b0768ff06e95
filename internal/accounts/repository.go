package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/shared"
)

var ErrAlreadyExists = errors.New("account already exists")

const accountColumns = "id, code, name, email, phone, tax_id, credit_limit, payment_terms_days, is_active, notes, created_by, created_at, updated_at"

// Repository persists accounts in per-kind tables.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func tableFor(kind ledger.AccountKind) (string, error) {
	switch kind {
	case ledger.KindCustomer:
		return "customers", nil
	case ledger.KindSupplier:
		return "suppliers", nil
	default:
		return "", fmt.Errorf("%w: %q", ledger.ErrUnknownKind, kind)
	}
}

func (r *Repository) Create(ctx context.Context, account Account) (int64, error) {
	table, err := tableFor(account.Kind)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (code, name, email, phone, tax_id, credit_limit, payment_terms_days, is_active, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id`, table)
	var id int64
	err = r.pool.QueryRow(ctx, query,
		account.Code,
		account.Name,
		account.Email,
		account.Phone,
		account.TaxID,
		account.CreditLimit.String(),
		account.PaymentTermsDays,
		account.IsActive,
		account.Notes,
		account.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repository) Get(ctx context.Context, kind ledger.AccountKind, id int64) (*Account, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", accountColumns, table)
	account, err := scanAccount(r.pool.QueryRow(ctx, query, id), kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *Repository) GetByCode(ctx context.Context, kind ledger.AccountKind, code string) (*Account, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE code = $1", accountColumns, table)
	account, err := scanAccount(r.pool.QueryRow(ctx, query, code), kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *Repository) List(ctx context.Context, kind ledger.AccountKind, req ListAccountsRequest) ([]Account, int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, 0, err
	}

	where := []string{"1=1"}
	args := []any{}
	argN := 1
	if req.IsActive != nil {
		where = append(where, fmt.Sprintf("is_active = $%d", argN))
		args = append(args, *req.IsActive)
		argN++
	}
	if req.Search != nil && *req.Search != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR code ILIKE $%d)", argN, argN))
		args = append(args, "%"+*req.Search+"%")
		argN++
	}
	cond := strings.Join(where, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, cond)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(req.Page, req.PerPage, total)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY code LIMIT $%d OFFSET $%d",
		accountColumns, table, cond, argN, argN+1)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		account, err := scanAccount(rows, kind)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, total, rows.Err()
}

func (r *Repository) Update(ctx context.Context, kind ledger.AccountKind, id int64, updates map[string]any) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}

	sets := make([]string, 0, len(updates)+1)
	args := []any{id}
	argN := 2
	for col, val := range updates {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argN))
		args = append(args, val)
		argN++
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1", table, strings.Join(sets, ", "))
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row, kind ledger.AccountKind) (*Account, error) {
	var a Account
	var creditLimit pgtype.Numeric
	err := row.Scan(
		&a.ID, &a.Code, &a.Name, &a.Email, &a.Phone, &a.TaxID,
		&creditLimit, &a.PaymentTermsDays, &a.IsActive, &a.Notes,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Kind = kind
	if creditLimit.Valid && creditLimit.Int != nil {
		a.CreditLimit = decimal.NewFromBigInt(creditLimit.Int, creditLimit.Exp)
	}
	return &a, nil
}
