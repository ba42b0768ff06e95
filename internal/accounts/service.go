package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/shared"
)

type Service struct {
	repo     *Repository
	validate *validator.Validate
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

func (s *Service) Create(ctx context.Context, kind ledger.AccountKind, req CreateAccountRequest, createdBy int64) (*Account, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	if req.CreditLimit.IsNegative() {
		return nil, errors.New("credit limit must not be negative")
	}

	existing, err := s.repo.GetByCode(ctx, kind, req.Code)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("check existing account: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: code %q", ErrAlreadyExists, req.Code)
	}

	account := Account{
		Kind:             kind,
		Code:             req.Code,
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		TaxID:            req.TaxID,
		CreditLimit:      req.CreditLimit,
		PaymentTermsDays: req.PaymentTermsDays,
		IsActive:         true,
		Notes:            req.Notes,
		CreatedBy:        createdBy,
	}
	id, err := s.repo.Create(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	account.ID = id
	return &account, nil
}

func (s *Service) Update(ctx context.Context, kind ledger.AccountKind, id int64, req UpdateAccountRequest) (*Account, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	existing, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.TaxID != nil {
		updates["tax_id"] = *req.TaxID
	}
	if req.CreditLimit != nil {
		if req.CreditLimit.IsNegative() {
			return nil, errors.New("credit limit must not be negative")
		}
		updates["credit_limit"] = req.CreditLimit.String()
	}
	if req.PaymentTermsDays != nil {
		updates["payment_terms_days"] = *req.PaymentTermsDays
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if len(updates) == 0 {
		return existing, nil
	}

	if err := s.repo.Update(ctx, kind, id, updates); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	return s.repo.Get(ctx, kind, id)
}

func (s *Service) Get(ctx context.Context, kind ledger.AccountKind, id int64) (*Account, error) {
	return s.repo.Get(ctx, kind, id)
}

func (s *Service) List(ctx context.Context, kind ledger.AccountKind, req ListAccountsRequest) ([]Account, int, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, kind, req)
}
