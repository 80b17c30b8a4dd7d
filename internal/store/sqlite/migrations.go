package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates every table of the ledger. Money is stored as decimal TEXT
// and timestamps as RFC 3339 TEXT in UTC.
const schema = `
CREATE TABLE IF NOT EXISTS members (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    name_key     TEXT NOT NULL,
    nickname     TEXT NOT NULL DEFAULT '',
    avatar       TEXT NOT NULL DEFAULT '',
    balance      TEXT NOT NULL DEFAULT '0',
    total_paid   TEXT NOT NULL DEFAULT '0',
    total_unpaid TEXT NOT NULL DEFAULT '0',
    status       TEXT NOT NULL DEFAULT 'active',
    created_at   TEXT NOT NULL,
    updated_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS dues (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    name_key   TEXT NOT NULL,
    amount     TEXT NOT NULL,
    archived   INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS beverages (
    id       TEXT PRIMARY KEY,
    name     TEXT NOT NULL,
    category TEXT NOT NULL,
    price    TEXT NOT NULL DEFAULT '0'
);

CREATE TABLE IF NOT EXISTS entries (
    kind          TEXT NOT NULL,
    member_id     TEXT NOT NULL,
    id            TEXT NOT NULL,
    amount        TEXT NOT NULL,
    paid          INTEGER NOT NULL DEFAULT 0,
    amount_paid   TEXT,
    paid_at       TEXT,
    status        TEXT NOT NULL DEFAULT 'active',
    created_at    TEXT NOT NULL,
    deleted_at    TEXT,
    reason        TEXT NOT NULL DEFAULT '',
    fine_type     TEXT NOT NULL DEFAULT '',
    beverage_id   TEXT NOT NULL DEFAULT '',
    beverage_name TEXT NOT NULL DEFAULT '',
    quantity      INTEGER NOT NULL DEFAULT 0,
    unit_price    TEXT NOT NULL DEFAULT '0',
    due_id        TEXT NOT NULL DEFAULT '',
    due_name      TEXT NOT NULL DEFAULT '',
    exempt        INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (kind, member_id, id)
);

CREATE INDEX IF NOT EXISTS idx_members_name_key ON members(name_key);
CREATE INDEX IF NOT EXISTS idx_dues_name_key ON dues(name_key);
CREATE INDEX IF NOT EXISTS idx_entries_member ON entries(member_id, created_at);
`

// runMigrations executes the schema setup.
func runMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
