package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func supplierDebt(id int64, day time.Time, gross int64) Debt {
	return Debt{
		ID:          id,
		AccountKind: KindSupplier,
		AccountID:   7,
		Number:      "SINV",
		DebtDate:    day,
		Type:        DebtCredit,
		GrossAmount: dec(gross),
	}
}

func supplierCredit(id int64, day time.Time, amount int64) Credit {
	return Credit{
		ID:          id,
		AccountKind: KindSupplier,
		AccountID:   7,
		Number:      "SPAY",
		CreditDate:  day,
		Kind:        CreditPaid,
		Amount:      dec(amount),
	}
}

func TestRunSupplierFIFO(t *testing.T) {
	snap := Snapshot{
		Account: AccountRef{Kind: KindSupplier, AccountID: 7},
		Debts: []Debt{
			supplierDebt(1, date(2025, 1, 1), 100),
			supplierDebt(2, date(2025, 1, 15), 50),
		},
		Credits: []Credit{
			supplierCredit(1, date(2025, 2, 1), 120),
		},
	}

	result := Run(snap)

	require.Len(t, result.Allocations, 2)
	require.Equal(t, int64(1), result.Allocations[0].TargetID)
	require.True(t, result.Allocations[0].Amount.Equal(dec(100)))
	require.Equal(t, int64(2), result.Allocations[1].TargetID)
	require.True(t, result.Allocations[1].Amount.Equal(dec(20)))

	require.Equal(t, StatusPaid, result.Debts[0].Status)
	require.True(t, result.Debts[0].PaidAmount.Equal(dec(100)))
	require.Equal(t, StatusPartiallyPaid, result.Debts[1].Status)
	require.True(t, result.Debts[1].PaidAmount.Equal(dec(20)))
	require.True(t, result.Credits[0].UnallocatedAmount.Equal(dec(0)))
}

func TestRunAfterVoidRedistributes(t *testing.T) {
	// The first invoice was voided, so it no longer appears in the locked
	// snapshot. Its former payment must flow to the remaining invoice even
	// though that one carries stale engine state.
	d2 := supplierDebt(2, date(2025, 1, 15), 50)
	d2.PaidAmount = dec(20)
	d2.Status = StatusPartiallyPaid

	result := Run(Snapshot{
		Account: AccountRef{Kind: KindSupplier, AccountID: 7},
		Debts:   []Debt{d2},
		Credits: []Credit{supplierCredit(1, date(2025, 2, 1), 120)},
	})

	require.Len(t, result.Allocations, 1)
	require.True(t, result.Allocations[0].Amount.Equal(dec(50)))
	require.Equal(t, StatusPaid, result.Debts[0].Status)
	require.True(t, result.Credits[0].UnallocatedAmount.Equal(dec(70)))
}

func TestRunCustomerCrossTypeMerge(t *testing.T) {
	// Targets are the chronological merge of invoices and PURCHASED
	// credits: Inv1 (Jan 1) then P1 (Jan 10). Only PAID credits fund.
	inv1 := Debt{
		ID: 1, AccountKind: KindCustomer, AccountID: 3, Number: "INV-1",
		DebtDate: date(2025, 1, 1), Type: DebtCredit, GrossAmount: dec(100),
	}
	p1 := Credit{
		ID: 1, AccountKind: KindCustomer, AccountID: 3, Number: "PUR-1",
		CreditDate: date(2025, 1, 10), Kind: CreditPurchased, Amount: dec(40),
	}
	pay1 := Credit{
		ID: 2, AccountKind: KindCustomer, AccountID: 3, Number: "PAY-1",
		CreditDate: date(2025, 1, 5), Kind: CreditPaid, Amount: dec(80),
	}
	pay2 := Credit{
		ID: 3, AccountKind: KindCustomer, AccountID: 3, Number: "PAY-2",
		CreditDate: date(2025, 1, 20), Kind: CreditPaid, Amount: dec(60),
	}

	result := Run(Snapshot{
		Account: AccountRef{Kind: KindCustomer, AccountID: 3},
		Debts:   []Debt{inv1},
		Credits: []Credit{p1, pay1, pay2},
	})

	require.Len(t, result.Allocations, 3)

	// pay1 covers 80 of the invoice.
	require.Equal(t, int64(2), result.Allocations[0].CreditID)
	require.Equal(t, TargetDebt, result.Allocations[0].TargetType)
	require.True(t, result.Allocations[0].Amount.Equal(dec(80)))

	// pay2 settles the invoice remainder, then funds the purchase.
	require.Equal(t, int64(3), result.Allocations[1].CreditID)
	require.Equal(t, TargetDebt, result.Allocations[1].TargetType)
	require.True(t, result.Allocations[1].Amount.Equal(dec(20)))

	require.Equal(t, int64(3), result.Allocations[2].CreditID)
	require.Equal(t, TargetCredit, result.Allocations[2].TargetType)
	require.Equal(t, int64(1), result.Allocations[2].TargetID)
	require.True(t, result.Allocations[2].Amount.Equal(dec(40)))

	require.Equal(t, StatusPaid, result.Debts[0].Status)
	for _, c := range result.Credits {
		require.True(t, c.UnallocatedAmount.IsZero(), "credit %d should be fully consumed", c.ID)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	snap := Snapshot{
		Account: AccountRef{Kind: KindSupplier, AccountID: 7},
		Debts: []Debt{
			supplierDebt(1, date(2025, 1, 1), 100),
			supplierDebt(2, date(2025, 1, 15), 50),
		},
		Credits: []Credit{supplierCredit(1, date(2025, 2, 1), 120)},
	}

	first := Run(snap)

	// Feed the run's own output back in, as a redundant trigger would.
	second := Run(Snapshot{Account: snap.Account, Debts: first.Debts, Credits: first.Credits})

	require.Equal(t, first.Allocations, second.Allocations)
	require.Equal(t, first.Debts, second.Debts)
	require.Equal(t, first.Credits, second.Credits)
}

func TestRunTieBreakSameDateLowerIDFirst(t *testing.T) {
	day := date(2025, 3, 1)
	result := Run(Snapshot{
		Account: AccountRef{Kind: KindSupplier, AccountID: 7},
		Debts: []Debt{
			supplierDebt(9, day, 50),
			supplierDebt(4, day, 50),
		},
		Credits: []Credit{supplierCredit(1, date(2025, 3, 2), 60)},
	})

	require.Len(t, result.Allocations, 2)
	require.Equal(t, int64(4), result.Allocations[0].TargetID)
	require.True(t, result.Allocations[0].Amount.Equal(dec(50)))
	require.Equal(t, int64(9), result.Allocations[1].TargetID)
	require.True(t, result.Allocations[1].Amount.Equal(dec(10)))
}

func TestRunOverpaymentLeavesSurplusOnCredit(t *testing.T) {
	result := Run(Snapshot{
		Account: AccountRef{Kind: KindSupplier, AccountID: 7},
		Debts:   []Debt{supplierDebt(1, date(2025, 1, 1), 30)},
		Credits: []Credit{
			supplierCredit(1, date(2025, 1, 2), 25),
			supplierCredit(2, date(2025, 1, 3), 50),
		},
	})

	require.True(t, result.Credits[0].UnallocatedAmount.IsZero())
	require.True(t, result.Credits[1].UnallocatedAmount.Equal(dec(45)))
	require.Equal(t, StatusPaid, result.Debts[0].Status)
}

func TestRunNoCreditsUnwindsToUnpaid(t *testing.T) {
	d := supplierDebt(1, date(2025, 1, 1), 100)
	d.PaidAmount = dec(100)
	d.Status = StatusPaid

	cash := supplierDebt(2, date(2025, 1, 2), 10)
	cash.Type = DebtCash
	cash.Status = StatusPaid

	result := Run(Snapshot{
		Account: AccountRef{Kind: KindSupplier, AccountID: 7},
		Debts:   []Debt{d, cash},
	})

	require.Empty(t, result.Allocations)
	require.Equal(t, StatusUnpaid, result.Debts[0].Status)
	require.True(t, result.Debts[0].PaidAmount.IsZero())
	// Cash debts never enter allocation and keep their state.
	require.Equal(t, StatusPaid, result.Debts[1].Status)
}

func TestRunAdvanceCoveredDebtSettlesWithoutAllocation(t *testing.T) {
	covered := Debt{
		ID: 1, AccountKind: KindSupplier, AccountID: 7,
		DebtDate: date(2025, 1, 1), Type: DebtCredit,
		GrossAmount: dec(100), AdvanceAmount: dec(100),
	}
	open := supplierDebt(2, date(2025, 1, 5), 40)

	result := Run(Snapshot{
		Account: AccountRef{Kind: KindSupplier, AccountID: 7},
		Debts:   []Debt{covered, open},
		Credits: []Credit{supplierCredit(1, date(2025, 1, 10), 40)},
	})

	require.Len(t, result.Allocations, 1)
	require.Equal(t, int64(2), result.Allocations[0].TargetID)
	require.Equal(t, StatusPaid, result.Debts[0].Status)
	require.True(t, result.Debts[0].PaidAmount.IsZero())
	require.Equal(t, StatusPaid, result.Debts[1].Status)
}

func TestRunDiscountReducesNet(t *testing.T) {
	d := Debt{
		ID: 1, AccountKind: KindSupplier, AccountID: 7,
		DebtDate: date(2025, 1, 1), Type: DebtCredit,
		GrossAmount: dec(100), DiscountAmount: dec(20), AdvanceAmount: dec(10),
	}
	result := Run(Snapshot{
		Account: AccountRef{Kind: KindSupplier, AccountID: 7},
		Debts:   []Debt{d},
		Credits: []Credit{supplierCredit(1, date(2025, 1, 2), 100)},
	})

	require.Len(t, result.Allocations, 1)
	require.True(t, result.Allocations[0].Amount.Equal(dec(70)))
	require.True(t, result.Credits[0].UnallocatedAmount.Equal(dec(30)))
}

func TestRunPanicsOnVoidedRowInSnapshot(t *testing.T) {
	voided := supplierDebt(1, date(2025, 1, 1), 100)
	voided.Voided = true

	require.Panics(t, func() {
		Run(Snapshot{
			Account: AccountRef{Kind: KindSupplier, AccountID: 7},
			Debts:   []Debt{voided},
			Credits: []Credit{supplierCredit(1, date(2025, 1, 2), 10)},
		})
	})
}

func TestRunCustomerSameDayDebtBeforePurchase(t *testing.T) {
	day := date(2025, 2, 1)
	inv := Debt{
		ID: 5, AccountKind: KindCustomer, AccountID: 3,
		DebtDate: day, Type: DebtCredit, GrossAmount: dec(50),
	}
	pur := Credit{
		ID: 5, AccountKind: KindCustomer, AccountID: 3,
		CreditDate: day, Kind: CreditPurchased, Amount: dec(50),
	}
	pay := Credit{
		ID: 6, AccountKind: KindCustomer, AccountID: 3,
		CreditDate: date(2025, 2, 2), Kind: CreditPaid, Amount: dec(60),
	}

	result := Run(Snapshot{
		Account: AccountRef{Kind: KindCustomer, AccountID: 3},
		Debts:   []Debt{inv},
		Credits: []Credit{pur, pay},
	})

	require.Len(t, result.Allocations, 2)
	require.Equal(t, TargetDebt, result.Allocations[0].TargetType)
	require.True(t, result.Allocations[0].Amount.Equal(dec(50)))
	require.Equal(t, TargetCredit, result.Allocations[1].TargetType)
	require.True(t, result.Allocations[1].Amount.Equal(dec(10)))
	require.True(t, result.Credits[0].UnallocatedAmount.Equal(dec(40)))
}
