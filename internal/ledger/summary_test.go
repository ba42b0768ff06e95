package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestComputeSummary(t *testing.T) {
	ref := AccountRef{Kind: KindCustomer, AccountID: 3}
	debts := []Debt{
		{ID: 1, AccountKind: KindCustomer, AccountID: 3,
			DebtDate: date(2025, 1, 1), Type: DebtCredit, GrossAmount: dec(100)},
		{ID: 2, AccountKind: KindCustomer, AccountID: 3,
			DebtDate: date(2025, 2, 1), Type: DebtCredit, GrossAmount: dec(50),
			PaidAmount: dec(50), Status: StatusPaid},
		{ID: 3, AccountKind: KindCustomer, AccountID: 3,
			DebtDate: date(2025, 2, 15), Type: DebtCash, GrossAmount: dec(999)},
	}
	credits := []Credit{
		{ID: 1, AccountKind: KindCustomer, AccountID: 3,
			CreditDate: date(2025, 2, 5), Kind: CreditPaid, Amount: dec(70)},
		{ID: 2, AccountKind: KindCustomer, AccountID: 3,
			CreditDate: date(2025, 2, 10), Kind: CreditPurchased, Amount: dec(40)},
	}

	summary := ComputeSummary(ref, debts, credits, date(2025, 3, 1), 30*24*time.Hour)

	require.True(t, summary.CreditAmount.Equal(dec(190)))
	require.True(t, summary.DebitAmount.Equal(dec(70)))
	require.True(t, summary.BalanceAmount.Equal(dec(120)))
	require.NotNil(t, summary.LastUnpaidDate)
	require.True(t, summary.LastUnpaidDate.Equal(date(2025, 1, 1)))
	require.True(t, summary.IsOverdue)
}

func TestComputeSummaryNotOverdueInsideHorizon(t *testing.T) {
	ref := AccountRef{Kind: KindSupplier, AccountID: 7}
	debts := []Debt{supplierDebt(1, date(2025, 2, 20), 100)}

	summary := ComputeSummary(ref, debts, nil, date(2025, 3, 1), 30*24*time.Hour)

	require.NotNil(t, summary.LastUnpaidDate)
	require.False(t, summary.IsOverdue)
}

func TestComputeSummaryNoUnpaidDebts(t *testing.T) {
	ref := AccountRef{Kind: KindSupplier, AccountID: 7}
	d := supplierDebt(1, date(2025, 1, 1), 100)
	d.PaidAmount = dec(100)
	d.Status = StatusPaid

	summary := ComputeSummary(ref, []Debt{d}, nil, date(2025, 3, 1), 30*24*time.Hour)

	require.Nil(t, summary.LastUnpaidDate)
	require.False(t, summary.IsOverdue)
}

func TestSummaryCacheRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	cache := NewSummaryCache(client, time.Minute)
	ctx := context.Background()

	ref := AccountRef{Kind: KindCustomer, AccountID: 3}

	cached, err := cache.Get(ctx, ref)
	require.NoError(t, err)
	require.Nil(t, cached)

	summary := AccountSummary{
		AccountKind:   KindCustomer,
		AccountID:     3,
		CreditAmount:  dec(190),
		DebitAmount:   dec(70),
		BalanceAmount: dec(120),
		ComputedAt:    date(2025, 3, 1),
	}
	require.NoError(t, cache.Set(ctx, summary))

	cached, err = cache.Get(ctx, ref)
	require.NoError(t, err)
	require.NotNil(t, cached)
	require.True(t, cached.BalanceAmount.Equal(dec(120)))

	srv.FastForward(2 * time.Minute)
	cached, err = cache.Get(ctx, ref)
	require.NoError(t, err)
	require.Nil(t, cached)
}

func TestSummaryCacheInvalidate(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	cache := NewSummaryCache(client, time.Minute)
	ctx := context.Background()

	ref := AccountRef{Kind: KindSupplier, AccountID: 7}
	require.NoError(t, cache.Set(ctx, AccountSummary{AccountKind: KindSupplier, AccountID: 7}))
	require.NoError(t, cache.Invalidate(ctx, ref))

	cached, err := cache.Get(ctx, ref)
	require.NoError(t, err)
	require.Nil(t, cached)
}

func TestSummaryCacheNilClientIsNoop(t *testing.T) {
	cache := NewSummaryCache(nil, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, AccountSummary{}))
	cached, err := cache.Get(ctx, AccountRef{Kind: KindCustomer, AccountID: 1})
	require.NoError(t, err)
	require.Nil(t, cached)
}
