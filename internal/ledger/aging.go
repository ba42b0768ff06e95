package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// AgingBucket groups outstanding debt by how long it has been open.
type AgingBucket struct {
	Current   decimal.Decimal `json:"current"`
	Bucket30  decimal.Decimal `json:"bucket_30"`
	Bucket60  decimal.Decimal `json:"bucket_60"`
	Bucket90  decimal.Decimal `json:"bucket_90"`
	Bucket120 decimal.Decimal `json:"bucket_120"`
}

// ComputeAging buckets each non-settled debt's outstanding amount by age
// in days as of the given date.
func ComputeAging(debts []Debt, asOf time.Time) AgingBucket {
	if asOf.IsZero() {
		asOf = time.Now()
	}
	bucket := AgingBucket{
		Current:   decimal.Zero,
		Bucket30:  decimal.Zero,
		Bucket60:  decimal.Zero,
		Bucket90:  decimal.Zero,
		Bucket120: decimal.Zero,
	}
	for _, d := range debts {
		if !d.Participates() || d.Status == StatusPaid {
			continue
		}
		outstanding := d.Outstanding()
		if !outstanding.IsPositive() {
			continue
		}
		days := int(asOf.Sub(d.DebtDate).Hours() / 24)
		switch {
		case days <= 0:
			bucket.Current = bucket.Current.Add(outstanding)
		case days <= 30:
			bucket.Bucket30 = bucket.Bucket30.Add(outstanding)
		case days <= 60:
			bucket.Bucket60 = bucket.Bucket60.Add(outstanding)
		case days <= 90:
			bucket.Bucket90 = bucket.Bucket90.Add(outstanding)
		default:
			bucket.Bucket120 = bucket.Bucket120.Add(outstanding)
		}
	}
	return bucket
}
