// Command migrate creates the Ledgerline schema. Statements are idempotent
// so the command is safe to re-run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/platform/db"
)

func main() {
	dsn := flag.String("dsn", os.Getenv("PG_DSN"), "postgres connection string")
	flag.Parse()

	ctx := context.Background()
	pool, err := db.New(ctx, *dsn)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect:", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := migrate(ctx, pool); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	fmt.Println("schema up to date")
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w\nstatement: %s", err, stmt)
		}
	}
	return nil
}

var statements = []string{
	accountTable("customers"),
	accountTable("suppliers"),

	debtTable("customer_invoices", "customers"),
	debtTable("supplier_invoices", "suppliers"),
	dateIndex("customer_invoices", "debt_date"),
	dateIndex("supplier_invoices", "debt_date"),

	creditTable("customer_payments", "customers"),
	creditTable("supplier_payments", "suppliers"),
	dateIndex("customer_payments", "credit_date"),
	dateIndex("supplier_payments", "credit_date"),

	allocationTable("customer_payment_allocations", "customers", "customer_payments"),
	allocationTable("supplier_payment_allocations", "suppliers", "supplier_payments"),
	`CREATE INDEX IF NOT EXISTS idx_customer_payment_allocations_account ON customer_payment_allocations (account_id)`,
	`CREATE INDEX IF NOT EXISTS idx_supplier_payment_allocations_account ON supplier_payment_allocations (account_id)`,

	`CREATE TABLE IF NOT EXISTS account_summaries (
		account_kind     TEXT NOT NULL,
		account_id       BIGINT NOT NULL,
		credit_amount    NUMERIC(18,2) NOT NULL DEFAULT 0,
		debit_amount     NUMERIC(18,2) NOT NULL DEFAULT 0,
		balance_amount   NUMERIC(18,2) NOT NULL DEFAULT 0,
		last_unpaid_date DATE,
		is_overdue       BOOLEAN NOT NULL DEFAULT FALSE,
		computed_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (account_kind, account_id)
	)`,

	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		key        TEXT PRIMARY KEY,
		module     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS audit_logs (
		id          BIGSERIAL PRIMARY KEY,
		actor_id    BIGINT NOT NULL DEFAULT 0,
		action      TEXT NOT NULL,
		entity      TEXT NOT NULL,
		entity_id   TEXT NOT NULL,
		meta        JSONB,
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

func accountTable(name string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id                 BIGSERIAL PRIMARY KEY,
		code               TEXT NOT NULL UNIQUE,
		name               TEXT NOT NULL,
		email              TEXT NOT NULL DEFAULT '',
		phone              TEXT NOT NULL DEFAULT '',
		tax_id             TEXT NOT NULL DEFAULT '',
		credit_limit       NUMERIC(18,2) NOT NULL DEFAULT 0,
		payment_terms_days INT NOT NULL DEFAULT 0,
		is_active          BOOLEAN NOT NULL DEFAULT TRUE,
		notes              TEXT NOT NULL DEFAULT '',
		created_by         BIGINT NOT NULL DEFAULT 0,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, name)
}

func debtTable(name, accounts string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id              BIGSERIAL PRIMARY KEY,
		account_id      BIGINT NOT NULL REFERENCES %s(id),
		number          TEXT NOT NULL,
		debt_date       DATE NOT NULL,
		type            TEXT NOT NULL,
		gross_amount    NUMERIC(18,2) NOT NULL DEFAULT 0,
		discount_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		advance_amount  NUMERIC(18,2) NOT NULL DEFAULT 0,
		paid_amount     NUMERIC(18,2) NOT NULL DEFAULT 0,
		status          TEXT NOT NULL DEFAULT 'UNPAID',
		voided          BOOLEAN NOT NULL DEFAULT FALSE,
		created_by      BIGINT NOT NULL DEFAULT 0,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, name, accounts)
}

func dateIndex(table, dateColumn string) string {
	return fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_account_date ON %s (account_id, %s, id)`,
		table, table, dateColumn)
}

func creditTable(name, accounts string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id                 BIGSERIAL PRIMARY KEY,
		account_id         BIGINT NOT NULL REFERENCES %s(id),
		number             TEXT NOT NULL,
		credit_date        DATE NOT NULL,
		kind               TEXT NOT NULL DEFAULT 'PAID',
		amount             NUMERIC(18,2) NOT NULL DEFAULT 0,
		unallocated_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		voided             BOOLEAN NOT NULL DEFAULT FALSE,
		created_by         BIGINT NOT NULL DEFAULT 0,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, name, accounts)
}

func allocationTable(name, accounts, credits string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id          BIGSERIAL PRIMARY KEY,
		account_id  BIGINT NOT NULL REFERENCES %s(id),
		credit_id   BIGINT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
		target_type TEXT NOT NULL,
		target_id   BIGINT NOT NULL,
		amount      NUMERIC(18,2) NOT NULL,
		created_by  BIGINT NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, name, accounts, credits)
}
