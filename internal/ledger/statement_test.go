package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildStatementRunningBalance(t *testing.T) {
	ref := AccountRef{Kind: KindCustomer, AccountID: 3}
	debts := []Debt{
		{ID: 1, AccountKind: KindCustomer, AccountID: 3, Number: "INV-1",
			DebtDate: date(2025, 1, 1), Type: DebtCredit, GrossAmount: dec(100)},
		{ID: 2, AccountKind: KindCustomer, AccountID: 3, Number: "CASH-1",
			DebtDate: date(2025, 1, 2), Type: DebtCash, GrossAmount: dec(999)},
	}
	credits := []Credit{
		{ID: 1, AccountKind: KindCustomer, AccountID: 3, Number: "PAY-1",
			CreditDate: date(2025, 1, 5), Kind: CreditPaid, Amount: dec(80)},
		{ID: 2, AccountKind: KindCustomer, AccountID: 3, Number: "PUR-1",
			CreditDate: date(2025, 1, 10), Kind: CreditPurchased, Amount: dec(40)},
	}

	statement := BuildStatement(ref, debts, credits, time.Time{}, time.Time{})

	// Cash sales never appear on a receivables statement.
	require.Len(t, statement.Lines, 3)

	require.Equal(t, EntryInvoice, statement.Lines[0].Type)
	require.True(t, statement.Lines[0].RunningBalance.Equal(dec(100)))

	require.Equal(t, EntryPayment, statement.Lines[1].Type)
	require.True(t, statement.Lines[1].RunningBalance.Equal(dec(20)))

	require.Equal(t, EntryPurchase, statement.Lines[2].Type)
	require.True(t, statement.Lines[2].RunningBalance.Equal(dec(60)))

	require.True(t, statement.OpeningBalance.IsZero())
	require.True(t, statement.ClosingBalance.Equal(dec(60)))
}

func TestBuildStatementFoldsPreRangeIntoOpening(t *testing.T) {
	ref := AccountRef{Kind: KindSupplier, AccountID: 7}
	debts := []Debt{
		supplierDebt(1, date(2025, 1, 1), 100),
		supplierDebt(2, date(2025, 2, 10), 50),
	}
	credits := []Credit{
		supplierCredit(1, date(2025, 1, 15), 30),
		supplierCredit(2, date(2025, 2, 20), 60),
	}

	statement := BuildStatement(ref, debts, credits, date(2025, 2, 1), date(2025, 2, 28))

	require.True(t, statement.OpeningBalance.Equal(dec(70)))
	require.Len(t, statement.Lines, 2)
	require.True(t, statement.Lines[0].RunningBalance.Equal(dec(120)))
	require.True(t, statement.ClosingBalance.Equal(dec(60)))
}

func TestBuildStatementDropsPostRangeEntries(t *testing.T) {
	ref := AccountRef{Kind: KindSupplier, AccountID: 7}
	debts := []Debt{
		supplierDebt(1, date(2025, 1, 1), 100),
		supplierDebt(2, date(2025, 6, 1), 500),
	}

	statement := BuildStatement(ref, debts, nil, time.Time{}, date(2025, 3, 31))

	require.Len(t, statement.Lines, 1)
	require.True(t, statement.ClosingBalance.Equal(dec(100)))
}

func TestOpeningBalanceStandalone(t *testing.T) {
	debts := []Debt{supplierDebt(1, date(2025, 1, 1), 100)}
	credits := []Credit{supplierCredit(1, date(2025, 1, 15), 30)}

	require.True(t, OpeningBalance(debts, credits, date(2025, 1, 10)).Equal(dec(100)))
	require.True(t, OpeningBalance(debts, credits, date(2025, 2, 1)).Equal(dec(70)))
	require.True(t, OpeningBalance(debts, credits, date(2025, 1, 1)).IsZero())
}

func TestStatementAgreesWithSummaryBalance(t *testing.T) {
	// The statement's closing balance over all time and the summary's
	// balance amount are two projections of the same rows.
	ref := AccountRef{Kind: KindCustomer, AccountID: 3}
	result := Run(Snapshot{
		Account: ref,
		Debts: []Debt{
			{ID: 1, AccountKind: KindCustomer, AccountID: 3,
				DebtDate: date(2025, 1, 1), Type: DebtCredit, GrossAmount: dec(100)},
		},
		Credits: []Credit{
			{ID: 1, AccountKind: KindCustomer, AccountID: 3,
				CreditDate: date(2025, 1, 10), Kind: CreditPurchased, Amount: dec(40)},
			{ID: 2, AccountKind: KindCustomer, AccountID: 3,
				CreditDate: date(2025, 1, 5), Kind: CreditPaid, Amount: dec(80)},
		},
	})

	statement := BuildStatement(ref, result.Debts, result.Credits, time.Time{}, time.Time{})
	summary := ComputeSummary(ref, result.Debts, result.Credits, date(2025, 2, 1), 0)

	require.True(t, statement.ClosingBalance.Equal(summary.BalanceAmount))
}
