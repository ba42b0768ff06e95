package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Statement line entry types.
const (
	EntryInvoice  = "INVOICE"
	EntryPayment  = "PAYMENT"
	EntryPurchase = "PURCHASE"
)

// StatementLine is one chronological row of an account statement.
// CreditAmount increases what the account owes, DebitAmount decreases it.
type StatementLine struct {
	Date           time.Time       `json:"date"`
	Type           string          `json:"type"`
	Reference      string          `json:"reference"`
	CreditAmount   decimal.Decimal `json:"credit_amount"`
	DebitAmount    decimal.Decimal `json:"debit_amount"`
	RunningBalance decimal.Decimal `json:"running_balance"`
	Outstanding    decimal.Decimal `json:"outstanding"`
}

// Statement is the read-side projection of one account's ledger over a
// date range. It reflects engine state but never influences it.
type Statement struct {
	Account        AccountRef      `json:"account"`
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	Lines          []StatementLine `json:"lines"`
}

// statementEntry is the merged chronological shape before balances are
// accumulated.
type statementEntry struct {
	date        time.Time
	id          int64
	isDebt      bool
	typ         string
	reference   string
	credit      decimal.Decimal
	debit       decimal.Decimal
	outstanding decimal.Decimal
}

// BuildStatement merges an account's debts and credits into one dated
// sequence with running balances. Entries strictly before from are folded
// into the opening balance; entries after to are dropped. Zero from/to
// bounds are open-ended.
func BuildStatement(ref AccountRef, debts []Debt, credits []Credit, from, to time.Time) Statement {
	entries := mergeEntries(debts, credits)

	opening := decimal.Zero
	var lines []StatementLine
	running := decimal.Zero
	for _, e := range entries {
		if !from.IsZero() && e.date.Before(from) {
			opening = opening.Add(e.credit).Sub(e.debit)
			continue
		}
		if !to.IsZero() && e.date.After(to) {
			continue
		}
		lines = append(lines, StatementLine{
			Date:         e.date,
			Type:         e.typ,
			Reference:    e.reference,
			CreditAmount: e.credit,
			DebitAmount:  e.debit,
			Outstanding:  e.outstanding,
		})
	}
	running = opening
	for i := range lines {
		running = running.Add(lines[i].CreditAmount).Sub(lines[i].DebitAmount)
		lines[i].RunningBalance = running
	}

	return Statement{
		Account:        ref,
		From:           from,
		To:             to,
		OpeningBalance: opening,
		ClosingBalance: running,
		Lines:          lines,
	}
}

// OpeningBalance is the folded pre-range activity used to seed statements,
// also exposed standalone.
func OpeningBalance(debts []Debt, credits []Credit, asOf time.Time) decimal.Decimal {
	balance := decimal.Zero
	for _, e := range mergeEntries(debts, credits) {
		if !asOf.IsZero() && !e.date.Before(asOf) {
			continue
		}
		balance = balance.Add(e.credit).Sub(e.debit)
	}
	return balance
}

func mergeEntries(debts []Debt, credits []Credit) []statementEntry {
	entries := make([]statementEntry, 0, len(debts)+len(credits))
	for _, d := range debts {
		if !d.Participates() {
			continue
		}
		entries = append(entries, statementEntry{
			date:        d.DebtDate,
			id:          d.ID,
			isDebt:      true,
			typ:         EntryInvoice,
			reference:   d.Number,
			credit:      d.NetAmount(),
			outstanding: d.Outstanding(),
		})
	}
	for _, c := range credits {
		if c.Voided {
			continue
		}
		e := statementEntry{
			date:      c.CreditDate,
			id:        c.ID,
			reference: c.Number,
		}
		if c.Kind == CreditPurchased {
			e.typ = EntryPurchase
			e.credit = c.Amount
			e.outstanding = c.UnallocatedAmount
		} else {
			e.typ = EntryPayment
			e.debit = c.Amount
			e.outstanding = c.UnallocatedAmount
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].date.Equal(entries[j].date) {
			return entries[i].date.Before(entries[j].date)
		}
		if entries[i].id != entries[j].id {
			return entries[i].id < entries[j].id
		}
		return entries[i].isDebt && !entries[j].isDebt
	})
	return entries
}
