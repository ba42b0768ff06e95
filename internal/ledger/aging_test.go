package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeAging(t *testing.T) {
	asOf := date(2025, 6, 1)
	debts := []Debt{
		supplierDebt(1, date(2025, 6, 1), 10),   // current
		supplierDebt(2, date(2025, 5, 15), 20),  // <= 30
		supplierDebt(3, date(2025, 4, 10), 30),  // <= 60
		supplierDebt(4, date(2025, 3, 10), 40),  // <= 90
		supplierDebt(5, date(2024, 12, 1), 50),  // > 90
	}
	// Paid and cash rows never age.
	paid := supplierDebt(6, date(2025, 1, 1), 60)
	paid.PaidAmount = dec(60)
	paid.Status = StatusPaid
	cash := supplierDebt(7, date(2025, 1, 1), 70)
	cash.Type = DebtCash
	debts = append(debts, paid, cash)

	bucket := ComputeAging(debts, asOf)

	require.True(t, bucket.Current.Equal(dec(10)))
	require.True(t, bucket.Bucket30.Equal(dec(20)))
	require.True(t, bucket.Bucket60.Equal(dec(30)))
	require.True(t, bucket.Bucket90.Equal(dec(40)))
	require.True(t, bucket.Bucket120.Equal(dec(50)))
}

func TestComputeAgingPartialOutstanding(t *testing.T) {
	d := supplierDebt(1, date(2025, 5, 20), 100)
	d.PaidAmount = dec(30)
	d.Status = StatusPartiallyPaid

	bucket := ComputeAging([]Debt{d}, date(2025, 6, 1))

	require.True(t, bucket.Bucket30.Equal(dec(70)))
}
