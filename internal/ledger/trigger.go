package ledger

import "context"

// The trigger layer decides when a mutation warrants a reallocation. It is
// a plain decision table over (old, new) snapshots of a row, with no ORM
// signals or implicit dispatch, so the table below is unit-testable in
// isolation.
//
// A nil old means the row was created; a nil new means it was deleted.

// DecideDebt returns the accounts that must be reallocated after a debt
// mutation. Reassigning a debt to another account returns both the old and
// the new account.
func DecideDebt(old, new *Debt) []AccountRef {
	switch {
	case old == nil && new == nil:
		return nil
	case old == nil:
		// Creation triggers only for debts that enter allocation.
		if !new.Participates() {
			return nil
		}
		return []AccountRef{{Kind: new.AccountKind, AccountID: new.AccountID}}
	case new == nil:
		return []AccountRef{{Kind: old.AccountKind, AccountID: old.AccountID}}
	}

	oldRef := AccountRef{Kind: old.AccountKind, AccountID: old.AccountID}
	newRef := AccountRef{Kind: new.AccountKind, AccountID: new.AccountID}
	if oldRef != newRef {
		return []AccountRef{oldRef, newRef}
	}

	changed := !old.GrossAmount.Equal(new.GrossAmount) ||
		!old.DiscountAmount.Equal(new.DiscountAmount) ||
		!old.AdvanceAmount.Equal(new.AdvanceAmount) ||
		old.Voided != new.Voided ||
		old.Type != new.Type ||
		!old.DebtDate.Equal(new.DebtDate)
	if !changed {
		return nil
	}
	return []AccountRef{newRef}
}

// DecideCredit returns the accounts that must be reallocated after a
// credit mutation.
func DecideCredit(old, new *Credit) []AccountRef {
	switch {
	case old == nil && new == nil:
		return nil
	case old == nil:
		return []AccountRef{{Kind: new.AccountKind, AccountID: new.AccountID}}
	case new == nil:
		return []AccountRef{{Kind: old.AccountKind, AccountID: old.AccountID}}
	}

	oldRef := AccountRef{Kind: old.AccountKind, AccountID: old.AccountID}
	newRef := AccountRef{Kind: new.AccountKind, AccountID: new.AccountID}
	if oldRef != newRef {
		return []AccountRef{oldRef, newRef}
	}

	changed := !old.Amount.Equal(new.Amount) ||
		old.Voided != new.Voided ||
		old.Kind != new.Kind ||
		!old.CreditDate.Equal(new.CreditDate)
	if !changed {
		return nil
	}
	return []AccountRef{newRef}
}

// Reentrancy guard: deleting allocation rows inside a run must not fire
// the defensive allocation-deleted trigger again. The flag is call-scoped
// (carried on the context), not global.

type reallocGuardKey struct{}

func withReallocationInFlight(ctx context.Context) context.Context {
	return context.WithValue(ctx, reallocGuardKey{}, true)
}

// ReallocationInFlight reports whether the current call stack is already
// inside a reallocation run.
func ReallocationInFlight(ctx context.Context) bool {
	v, _ := ctx.Value(reallocGuardKey{}).(bool)
	return v
}
