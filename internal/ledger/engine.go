package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Snapshot is the locked, non-voided state of one account's ledger. The
// engine is a pure function of this snapshot: identical inputs produce
// byte-identical allocation sets.
type Snapshot struct {
	Account AccountRef
	Debts   []Debt
	Credits []Credit
}

// RunResult carries everything a run decided: the rebuilt allocation set
// and the updated engine-owned fields on debts and credits. Only
// PaidAmount/Status on debts and UnallocatedAmount on credits differ from
// the snapshot.
type RunResult struct {
	Account     AccountRef
	Allocations []Allocation
	Debts       []Debt
	Credits     []Credit
}

// target is one payable entry in the FIFO work-list: either a credit-type
// debt or, on the customer side, a PURCHASED credit awaiting funding.
type target struct {
	typ         TargetType
	id          int64
	outstanding decimal.Decimal
}

// Run recomputes the full allocation state for one account.
//
// Credits are consumed in (date, id) order and walked against the
// work-list with a persistent cursor: once a target is exhausted it is
// never revisited. The work-list itself is account-kind specific, see
// buildWorklist.
func Run(snap Snapshot) RunResult {
	debts := make([]Debt, len(snap.Debts))
	copy(debts, snap.Debts)
	credits := make([]Credit, len(snap.Credits))
	copy(credits, snap.Credits)

	sortDebts(debts)
	sortCredits(credits)

	debtByID := make(map[int64]*Debt, len(debts))
	for i := range debts {
		invariant(!debts[i].Voided, "voided debt %d in snapshot", debts[i].ID)
		debtByID[debts[i].ID] = &debts[i]
	}
	creditByID := make(map[int64]*Credit, len(credits))
	for i := range credits {
		invariant(!credits[i].Voided, "voided credit %d in snapshot", credits[i].ID)
		creditByID[credits[i].ID] = &credits[i]
	}

	// Unwind path: with no credits left every participating debt reverts
	// to unpaid.
	if len(credits) == 0 {
		for i := range debts {
			if !debts[i].Participates() {
				continue
			}
			debts[i].PaidAmount = decimal.Zero
			debts[i].Status = StatusUnpaid
		}
		return RunResult{Account: snap.Account, Debts: debts, Credits: credits}
	}

	// Reset engine-owned state before redistribution.
	for i := range debts {
		if !debts[i].Participates() {
			continue
		}
		debts[i].PaidAmount = decimal.Zero
		debts[i].Status = StatusUnpaid
	}
	for i := range credits {
		credits[i].UnallocatedAmount = credits[i].Amount
	}

	worklist, funding := buildWorklist(snap.Account.Kind, debts, credits)

	var allocations []Allocation
	cursor := 0
	for _, fc := range funding {
		credit := creditByID[fc]
		remaining := credit.UnallocatedAmount
		for cursor < len(worklist) && remaining.IsPositive() {
			tgt := &worklist[cursor]
			if !tgt.outstanding.IsPositive() {
				cursor++
				continue
			}
			amount := decimal.Min(remaining, tgt.outstanding)
			allocations = append(allocations, Allocation{
				AccountKind: snap.Account.Kind,
				AccountID:   snap.Account.AccountID,
				CreditID:    credit.ID,
				TargetType:  tgt.typ,
				TargetID:    tgt.id,
				Amount:      amount,
			})
			tgt.outstanding = tgt.outstanding.Sub(amount)
			remaining = remaining.Sub(amount)
			applyToTarget(tgt, amount, debtByID, creditByID)
			if !tgt.outstanding.IsPositive() {
				cursor++
			}
		}
		credit.UnallocatedAmount = remaining
	}

	checkInvariants(debts, credits, allocations)

	return RunResult{
		Account:     snap.Account,
		Allocations: allocations,
		Debts:       debts,
		Credits:     credits,
	}
}

// buildWorklist assembles the FIFO targets and the ordered funding credits
// for one account kind.
//
// Supplier: every credit-type debt is a target, every credit funds.
//
// Customer: targets are the chronological merge of credit-type debts and
// PURCHASED credits, interleaved strictly by (date, id), never
// invoices-first. Only PAID credits fund. Debts already covered by their
// advance (net <= 0) are settled up front and skipped.
func buildWorklist(kind AccountKind, debts []Debt, credits []Credit) ([]target, []int64) {
	type entry struct {
		typ  TargetType
		id   int64
		date int64
		out  decimal.Decimal
	}
	var entries []entry

	for i := range debts {
		d := &debts[i]
		if !d.Participates() {
			continue
		}
		net := d.NetAmount()
		if !net.IsPositive() {
			// Fully covered by its own advance; nothing left to allocate.
			d.Status = StatusPaid
			continue
		}
		entries = append(entries, entry{typ: TargetDebt, id: d.ID, date: d.DebtDate.UnixNano(), out: net})
	}

	var funding []int64
	for i := range credits {
		c := &credits[i]
		switch {
		case kind == KindCustomer && c.Kind == CreditPurchased:
			entries = append(entries, entry{typ: TargetCredit, id: c.ID, date: c.CreditDate.UnixNano(), out: c.Amount})
		default:
			funding = append(funding, c.ID)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].date != entries[j].date {
			return entries[i].date < entries[j].date
		}
		if entries[i].id != entries[j].id {
			return entries[i].id < entries[j].id
		}
		// Full tie across types: debts first.
		return entries[i].typ == TargetDebt && entries[j].typ == TargetCredit
	})

	worklist := make([]target, len(entries))
	for i, e := range entries {
		worklist[i] = target{typ: e.typ, id: e.id, outstanding: e.out}
	}
	return worklist, funding
}

// applyToTarget records the settled amount on the underlying row and keeps
// its status in step.
func applyToTarget(tgt *target, amount decimal.Decimal, debtByID map[int64]*Debt, creditByID map[int64]*Credit) {
	switch tgt.typ {
	case TargetDebt:
		d := debtByID[tgt.id]
		d.PaidAmount = d.PaidAmount.Add(amount)
		if !d.Outstanding().IsPositive() {
			d.Status = StatusPaid
		} else if d.PaidAmount.IsPositive() {
			d.Status = StatusPartiallyPaid
		}
	case TargetCredit:
		c := creditByID[tgt.id]
		c.UnallocatedAmount = c.UnallocatedAmount.Sub(amount)
	}
}

// checkInvariants fails loudly when the run broke the algebra the rest of
// the system relies on.
func checkInvariants(debts []Debt, credits []Credit, allocations []Allocation) {
	byCredit := make(map[int64]decimal.Decimal)
	byTargetDebt := make(map[int64]decimal.Decimal)
	for _, a := range allocations {
		invariant(a.Amount.IsPositive(), "non-positive allocation %s for credit %d", a.Amount, a.CreditID)
		byCredit[a.CreditID] = byCredit[a.CreditID].Add(a.Amount)
		if a.TargetType == TargetDebt {
			byTargetDebt[a.TargetID] = byTargetDebt[a.TargetID].Add(a.Amount)
		}
	}
	for i := range debts {
		d := &debts[i]
		if !d.Participates() {
			continue
		}
		if d.NetAmount().IsPositive() {
			invariant(!d.Outstanding().IsNegative(), "debt %d over-allocated: outstanding %s", d.ID, d.Outstanding())
		}
		invariant(byTargetDebt[d.ID].Equal(d.PaidAmount), "debt %d paid %s != allocated %s", d.ID, d.PaidAmount, byTargetDebt[d.ID])
	}
	for i := range credits {
		c := &credits[i]
		if c.Kind == CreditPurchased {
			continue
		}
		allocated := byCredit[c.ID]
		invariant(allocated.LessThanOrEqual(c.Amount), "credit %d allocated %s beyond amount %s", c.ID, allocated, c.Amount)
		invariant(c.Amount.Sub(allocated).Equal(c.UnallocatedAmount), "credit %d unallocated drift", c.ID)
	}
}

func sortDebts(debts []Debt) {
	sort.SliceStable(debts, func(i, j int) bool {
		if !debts[i].DebtDate.Equal(debts[j].DebtDate) {
			return debts[i].DebtDate.Before(debts[j].DebtDate)
		}
		return debts[i].ID < debts[j].ID
	})
}

func sortCredits(credits []Credit) {
	sort.SliceStable(credits, func(i, j int) bool {
		if !credits[i].CreditDate.Equal(credits[j].CreditDate) {
			return credits[i].CreditDate.Before(credits[j].CreditDate)
		}
		return credits[i].ID < credits[j].ID
	})
}
