package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// ComputeSummary derives the cached per-account aggregate from the current
// rows. It is recomputed whole after every engine run, never incrementally
// maintained.
func ComputeSummary(ref AccountRef, debts []Debt, credits []Credit, asOf time.Time, overdueAfter time.Duration) AccountSummary {
	creditAmount := decimal.Zero
	debitAmount := decimal.Zero
	var lastUnpaid *time.Time

	for _, d := range debts {
		if !d.Participates() {
			continue
		}
		creditAmount = creditAmount.Add(d.NetAmount())
		if d.Status != StatusPaid && d.Outstanding().IsPositive() {
			if lastUnpaid == nil || d.DebtDate.Before(*lastUnpaid) {
				date := d.DebtDate
				lastUnpaid = &date
			}
		}
	}
	for _, c := range credits {
		if c.Voided {
			continue
		}
		if c.Kind == CreditPurchased {
			creditAmount = creditAmount.Add(c.Amount)
		} else {
			debitAmount = debitAmount.Add(c.Amount)
		}
	}

	overdue := false
	if lastUnpaid != nil && overdueAfter > 0 {
		overdue = asOf.Sub(*lastUnpaid) > overdueAfter
	}

	return AccountSummary{
		AccountKind:    ref.Kind,
		AccountID:      ref.AccountID,
		CreditAmount:   creditAmount,
		DebitAmount:    debitAmount,
		BalanceAmount:  creditAmount.Sub(debitAmount),
		LastUnpaidDate: lastUnpaid,
		IsOverdue:      overdue,
		ComputedAt:     asOf,
	}
}

// SummaryCache keeps the latest account summaries in Redis so statement
// and dashboard reads skip the database. It is a cache only; a miss falls
// back to the store.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSummaryCache instantiates the cache helper. A nil client disables
// caching.
func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{client: client, ttl: ttl}
}

func summaryKey(ref AccountRef) string {
	return fmt.Sprintf("ledger:summary:%s:%d", ref.Kind, ref.AccountID)
}

// Get returns the cached summary, or nil on a miss.
func (c *SummaryCache) Get(ctx context.Context, ref AccountRef) (*AccountSummary, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	payload, err := c.client.Get(ctx, summaryKey(ref)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var summary AccountSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Set stores the summary with the configured TTL.
func (c *SummaryCache) Set(ctx context.Context, summary AccountSummary) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	ref := AccountRef{Kind: summary.AccountKind, AccountID: summary.AccountID}
	return c.client.Set(ctx, summaryKey(ref), raw, c.ttl).Err()
}

// Invalidate drops the cached entry for one account.
func (c *SummaryCache) Invalidate(ctx context.Context, ref AccountRef) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, summaryKey(ref)).Err()
}
