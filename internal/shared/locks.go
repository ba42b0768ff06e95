package shared

import "fmt"

// BackfillLockKey builds the redis key guarding a full-ledger backfill so
// two backfills for the same account kind never overlap.
func BackfillLockKey(kind string) string {
	return fmt.Sprintf("ledger:backfill:%s:lock", kind)
}
