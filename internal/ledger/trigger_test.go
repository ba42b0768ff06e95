package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecideDebt(t *testing.T) {
	base := func() *Debt {
		d := supplierDebt(1, date(2025, 1, 1), 100)
		return &d
	}
	ref := AccountRef{Kind: KindSupplier, AccountID: 7}

	t.Run("create participating fires", func(t *testing.T) {
		require.Equal(t, []AccountRef{ref}, DecideDebt(nil, base()))
	})

	t.Run("create cash sale is silent", func(t *testing.T) {
		d := base()
		d.Type = DebtCash
		require.Nil(t, DecideDebt(nil, d))
	})

	t.Run("create voided is silent", func(t *testing.T) {
		d := base()
		d.Voided = true
		require.Nil(t, DecideDebt(nil, d))
	})

	t.Run("delete fires for old account", func(t *testing.T) {
		require.Equal(t, []AccountRef{ref}, DecideDebt(base(), nil))
	})

	t.Run("amount change fires", func(t *testing.T) {
		next := base()
		next.GrossAmount = dec(120)
		require.Equal(t, []AccountRef{ref}, DecideDebt(base(), next))
	})

	t.Run("discount change fires", func(t *testing.T) {
		next := base()
		next.DiscountAmount = dec(5)
		require.Equal(t, []AccountRef{ref}, DecideDebt(base(), next))
	})

	t.Run("advance change fires", func(t *testing.T) {
		next := base()
		next.AdvanceAmount = dec(5)
		require.Equal(t, []AccountRef{ref}, DecideDebt(base(), next))
	})

	t.Run("void flip fires", func(t *testing.T) {
		next := base()
		next.Voided = true
		require.Equal(t, []AccountRef{ref}, DecideDebt(base(), next))
	})

	t.Run("type flip fires", func(t *testing.T) {
		next := base()
		next.Type = DebtCash
		require.Equal(t, []AccountRef{ref}, DecideDebt(base(), next))
	})

	t.Run("date change fires", func(t *testing.T) {
		next := base()
		next.DebtDate = date(2025, 2, 1)
		require.Equal(t, []AccountRef{ref}, DecideDebt(base(), next))
	})

	t.Run("number change is silent", func(t *testing.T) {
		next := base()
		next.Number = "SINV-RENAMED"
		require.Nil(t, DecideDebt(base(), next))
	})

	t.Run("reassignment fires for both accounts", func(t *testing.T) {
		next := base()
		next.AccountID = 8
		require.Equal(t, []AccountRef{
			{Kind: KindSupplier, AccountID: 7},
			{Kind: KindSupplier, AccountID: 8},
		}, DecideDebt(base(), next))
	})
}

func TestDecideCredit(t *testing.T) {
	base := func() *Credit {
		c := supplierCredit(1, date(2025, 1, 1), 100)
		return &c
	}
	ref := AccountRef{Kind: KindSupplier, AccountID: 7}

	t.Run("create always fires", func(t *testing.T) {
		require.Equal(t, []AccountRef{ref}, DecideCredit(nil, base()))
	})

	t.Run("delete fires", func(t *testing.T) {
		require.Equal(t, []AccountRef{ref}, DecideCredit(base(), nil))
	})

	t.Run("amount change fires", func(t *testing.T) {
		next := base()
		next.Amount = dec(90)
		require.Equal(t, []AccountRef{ref}, DecideCredit(base(), next))
	})

	t.Run("kind flip fires", func(t *testing.T) {
		next := base()
		next.Kind = CreditPurchased
		require.Equal(t, []AccountRef{ref}, DecideCredit(base(), next))
	})

	t.Run("date change fires", func(t *testing.T) {
		next := base()
		next.CreditDate = date(2025, 3, 1)
		require.Equal(t, []AccountRef{ref}, DecideCredit(base(), next))
	})

	t.Run("number change is silent", func(t *testing.T) {
		next := base()
		next.Number = "SPAY-RENAMED"
		require.Nil(t, DecideCredit(base(), next))
	})

	t.Run("reassignment fires for both accounts", func(t *testing.T) {
		next := base()
		next.AccountID = 9
		require.Equal(t, []AccountRef{
			{Kind: KindSupplier, AccountID: 7},
			{Kind: KindSupplier, AccountID: 9},
		}, DecideCredit(base(), next))
	})
}

func TestReallocationInFlightGuard(t *testing.T) {
	ctx := context.Background()
	require.False(t, ReallocationInFlight(ctx))
	require.True(t, ReallocationInFlight(withReallocationInFlight(ctx)))
	// The flag is scoped to the derived context only.
	require.False(t, ReallocationInFlight(ctx))
}
