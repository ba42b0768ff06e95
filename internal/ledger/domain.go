package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountKind selects which side of the ledger an account lives on.
type AccountKind string

const (
	KindCustomer AccountKind = "CUSTOMER"
	KindSupplier AccountKind = "SUPPLIER"
)

// Valid reports whether the kind is one of the known account kinds.
func (k AccountKind) Valid() bool {
	return k == KindCustomer || k == KindSupplier
}

// AccountRef identifies one account's ledger, the unit of locking and
// reallocation.
type AccountRef struct {
	Kind      AccountKind
	AccountID int64
}

// DebtStatus enumerates settlement states owned by the allocation engine.
type DebtStatus string

const (
	StatusUnpaid        DebtStatus = "UNPAID"
	StatusPartiallyPaid DebtStatus = "PARTIALLY_PAID"
	StatusPaid          DebtStatus = "PAID"
)

// DebtType distinguishes cash sales (settled at the till, never allocated)
// from credit sales that enter the receivables ledger.
type DebtType string

const (
	DebtCash   DebtType = "CASH"
	DebtCredit DebtType = "CREDIT"
)

// CreditKind splits customer payments into money received (PAID) and
// store-credit consumption (PURCHASED). Supplier payments are always PAID.
type CreditKind string

const (
	CreditPaid      CreditKind = "PAID"
	CreditPurchased CreditKind = "PURCHASED"
)

// TargetType says what an allocation row settled: an invoice, or a
// PURCHASED payment funded by a PAID payment.
type TargetType string

const (
	TargetDebt   TargetType = "DEBT"
	TargetCredit TargetType = "CREDIT"
)

// Debt is an obligation owed by the account (Invoice / SupplierInvoice).
// PaidAmount and Status are owned by the allocation engine and must never
// be written through any other path.
type Debt struct {
	ID             int64           `json:"id"`
	AccountKind    AccountKind     `json:"account_kind"`
	AccountID      int64           `json:"account_id"`
	Number         string          `json:"number"`
	DebtDate       time.Time       `json:"debt_date"`
	Type           DebtType        `json:"type"`
	GrossAmount    decimal.Decimal `json:"gross_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	AdvanceAmount  decimal.Decimal `json:"advance_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	Status         DebtStatus      `json:"status"`
	Voided         bool            `json:"voided"`
	CreatedBy      int64           `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NetAmount is what the debt is worth to the ledger before payments:
// gross - discount - advance.
func (d Debt) NetAmount() decimal.Decimal {
	return d.GrossAmount.Sub(d.DiscountAmount).Sub(d.AdvanceAmount)
}

// Outstanding is the unpaid remainder after engine allocations.
func (d Debt) Outstanding() decimal.Decimal {
	return d.NetAmount().Sub(d.PaidAmount)
}

// Participates reports whether the debt enters FIFO allocation.
// Cash sales never do; voided debts never do.
func (d Debt) Participates() bool {
	return d.Type == DebtCredit && !d.Voided
}

// Credit is money received (or, for PURCHASED, consumed) on an account.
// UnallocatedAmount is owned by the allocation engine: for PAID credits it
// is the amount not yet applied to any target, for PURCHASED credits it is
// the amount not yet funded by PAID credits.
type Credit struct {
	ID                int64           `json:"id"`
	AccountKind       AccountKind     `json:"account_kind"`
	AccountID         int64           `json:"account_id"`
	Number            string          `json:"number"`
	CreditDate        time.Time       `json:"credit_date"`
	Kind              CreditKind      `json:"kind"`
	Amount            decimal.Decimal `json:"amount"`
	UnallocatedAmount decimal.Decimal `json:"unallocated_amount"`
	Voided            bool            `json:"voided"`
	CreatedBy         int64           `json:"created_by"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Allocation binds one funding credit to one target for an exact amount.
// The full set for an account is rebuilt on every engine run.
type Allocation struct {
	ID          int64           `json:"id"`
	AccountKind AccountKind     `json:"account_kind"`
	AccountID   int64           `json:"account_id"`
	CreditID    int64           `json:"credit_id"`
	TargetType  TargetType      `json:"target_type"`
	TargetID    int64           `json:"target_id"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AccountSummary is the cached per-account aggregate. It is a projection of
// the authoritative rows and is recomputed after every engine run.
type AccountSummary struct {
	AccountKind    AccountKind     `json:"account_kind"`
	AccountID      int64           `json:"account_id"`
	CreditAmount   decimal.Decimal `json:"credit_amount"`
	DebitAmount    decimal.Decimal `json:"debit_amount"`
	BalanceAmount  decimal.Decimal `json:"balance_amount"`
	LastUnpaidDate *time.Time      `json:"last_unpaid_date,omitempty"`
	IsOverdue      bool            `json:"is_overdue"`
	ComputedAt     time.Time       `json:"computed_at"`
}
