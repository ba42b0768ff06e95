package ledger

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates a debt, credit or allocation does not exist.
	ErrNotFound = errors.New("ledger: not found")
	// ErrInvalidState indicates an attempt to write an engine-owned field
	// (paid_amount, status, unallocated_amount) outside the engine.
	ErrInvalidState = errors.New("ledger: engine-owned field mutated outside engine")
	// ErrConcurrency indicates a lock timeout or serialization conflict.
	// Callers may retry the whole reallocation once.
	ErrConcurrency = errors.New("ledger: concurrent reallocation conflict")
	// ErrUnknownKind indicates an account kind outside CUSTOMER/SUPPLIER.
	ErrUnknownKind = errors.New("ledger: unknown account kind")
)

// mapPgError converts retryable Postgres failures into ErrConcurrency so
// the service layer can apply its retry policy. Everything else passes
// through unchanged.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%w: %s", ErrConcurrency, pgErr.Code)
		}
	}
	return err
}

// invariant panics when an engine consistency check fails. Broken
// invariants are programming errors, not user errors, and must fail loudly
// rather than be clamped.
func invariant(ok bool, format string, args ...any) {
	if !ok {
		panic(fmt.Sprintf("ledger invariant violated: "+format, args...))
	}
}
