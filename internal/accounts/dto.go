package accounts

import "github.com/shopspring/decimal"

type CreateAccountRequest struct {
	Code             string          `json:"code" validate:"required,max=50"`
	Name             string          `json:"name" validate:"required,max=200"`
	Email            *string         `json:"email,omitempty" validate:"omitempty,email"`
	Phone            *string         `json:"phone,omitempty" validate:"omitempty,max=50"`
	TaxID            *string         `json:"tax_id,omitempty" validate:"omitempty,max=50"`
	CreditLimit      decimal.Decimal `json:"credit_limit"`
	PaymentTermsDays int             `json:"payment_terms_days" validate:"gte=0,lte=365"`
	Notes            *string         `json:"notes,omitempty"`
}

type UpdateAccountRequest struct {
	Name             *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Email            *string          `json:"email,omitempty" validate:"omitempty,email"`
	Phone            *string          `json:"phone,omitempty" validate:"omitempty,max=50"`
	TaxID            *string          `json:"tax_id,omitempty"`
	CreditLimit      *decimal.Decimal `json:"credit_limit,omitempty"`
	PaymentTermsDays *int             `json:"payment_terms_days,omitempty" validate:"omitempty,gte=0,lte=365"`
	IsActive         *bool            `json:"is_active,omitempty"`
	Notes            *string          `json:"notes,omitempty"`
}

type ListAccountsRequest struct {
	IsActive *bool   `json:"is_active,omitempty"`
	Search   *string `json:"search,omitempty"`
	Page     int     `json:"page" validate:"gte=0"`
	PerPage  int     `json:"per_page" validate:"gte=0,lte=1000"`
}
