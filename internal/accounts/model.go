package accounts

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// Account is a ledger counterparty, either a customer or a supplier.
// Both kinds share one shape; they live in separate tables.
type Account struct {
	ID               int64              `json:"id" db:"id"`
	Kind             ledger.AccountKind `json:"kind" db:"-"`
	Code             string             `json:"code" db:"code"`
	Name             string             `json:"name" db:"name"`
	Email            *string            `json:"email,omitempty" db:"email"`
	Phone            *string            `json:"phone,omitempty" db:"phone"`
	TaxID            *string            `json:"tax_id,omitempty" db:"tax_id"`
	CreditLimit      decimal.Decimal    `json:"credit_limit" db:"credit_limit"`
	PaymentTermsDays int                `json:"payment_terms_days" db:"payment_terms_days"`
	IsActive         bool               `json:"is_active" db:"is_active"`
	Notes            *string            `json:"notes,omitempty" db:"notes"`
	CreatedBy        int64              `json:"created_by" db:"created_by"`
	CreatedAt        time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at" db:"updated_at"`
}
