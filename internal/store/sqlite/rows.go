package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fjacquet/teamkasse/internal/models"
	"fjacquet/teamkasse/internal/store"

	"github.com/shopspring/decimal"
)

const memberColumns = "id, name, nickname, avatar, balance, total_paid, total_unpaid, status, created_at, updated_at"

const entryColumns = `kind, member_id, id, amount, paid, amount_paid, paid_at, status, created_at, deleted_at,
    reason, fine_type, beverage_id, beverage_name, quantity, unit_price, due_id, due_name, exempt`

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return d, nil
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDecimal(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := parseDecimal(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ==================== Members ====================

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (*models.Member, error) {
	var m models.Member
	var balance, paid, unpaid, status, created, updated string
	if err := row.Scan(&m.ID, &m.Name, &m.Nickname, &m.Avatar, &balance, &paid, &unpaid, &status, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if m.Balance, err = parseDecimal(balance); err != nil {
		return nil, err
	}
	if m.TotalPaid, err = parseDecimal(paid); err != nil {
		return nil, err
	}
	if m.TotalUnpaid, err = parseDecimal(unpaid); err != nil {
		return nil, err
	}
	if m.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	m.Status = models.Lifecycle(status)
	return &m, nil
}

func getMember(ctx context.Context, q querier, id string) (*models.Member, error) {
	row := q.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM members WHERE id = ?", id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.MemberNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

func queryMembers(ctx context.Context, q querier, clause string, args ...any) ([]*models.Member, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+memberColumns+" FROM members "+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var out []*models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func putMember(ctx context.Context, q querier, m *models.Member) error {
	_, err := q.ExecContext(ctx, `INSERT OR REPLACE INTO members
    (id, name, name_key, nickname, avatar, balance, total_paid, total_unpaid, status, created_at, updated_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, models.NormalizeName(m.Name), m.Nickname, m.Avatar,
		m.Balance.String(), m.TotalPaid.String(), m.TotalUnpaid.String(),
		string(m.Status), formatTime(m.CreatedAt), formatTime(m.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to put member %s: %w", m.ID, err)
	}
	return nil
}

// ==================== Dues & beverages ====================

func queryDues(ctx context.Context, q querier, clause string, args ...any) ([]*models.Due, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, name, amount, archived, created_at FROM dues "+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dues: %w", err)
	}
	defer rows.Close()

	var out []*models.Due
	for rows.Next() {
		var d models.Due
		var amount, created string
		var archived int
		if err := rows.Scan(&d.ID, &d.Name, &amount, &archived, &created); err != nil {
			return nil, fmt.Errorf("failed to scan due: %w", err)
		}
		if d.Amount, err = parseDecimal(amount); err != nil {
			return nil, err
		}
		if d.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		d.Archived = archived != 0
		out = append(out, &d)
	}
	return out, rows.Err()
}

func putDue(ctx context.Context, q querier, d *models.Due) error {
	_, err := q.ExecContext(ctx,
		"INSERT OR REPLACE INTO dues (id, name, name_key, amount, archived, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		d.ID, d.Name, models.NormalizeName(d.Name), d.Amount.String(), boolInt(d.Archived), formatTime(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to put due %s: %w", d.ID, err)
	}
	return nil
}

func putBeverage(ctx context.Context, q querier, b *models.Beverage) error {
	_, err := q.ExecContext(ctx,
		"INSERT OR REPLACE INTO beverages (id, name, category, price) VALUES (?, ?, ?, ?)",
		b.ID, b.Name, string(b.Category), b.Price.String())
	if err != nil {
		return fmt.Errorf("failed to put beverage %s: %w", b.ID, err)
	}
	return nil
}

// ==================== Entries ====================

func scanEntry(row scanner) (models.Entry, error) {
	var r store.Record
	var kind, amount, status, created, fineType, unitPrice string
	var amountPaid, paidAt, deletedAt sql.NullString
	var paid, exempt int
	err := row.Scan(&kind, &r.MemberID, &r.ID, &amount, &paid, &amountPaid, &paidAt, &status, &created, &deletedAt,
		&r.Reason, &fineType, &r.BeverageID, &r.BeverageName, &r.Quantity, &unitPrice, &r.DueID, &r.DueName, &exempt)
	if err != nil {
		return nil, err
	}

	r.Kind = models.EntryKind(kind)
	r.Status = models.Lifecycle(status)
	r.FineType = models.FineType(fineType)
	r.Paid = paid != 0
	r.Exempt = exempt != 0
	if r.Amount, err = parseDecimal(amount); err != nil {
		return nil, err
	}
	if r.UnitPrice, err = parseDecimal(unitPrice); err != nil {
		return nil, err
	}
	if r.AmountPaid, err = parseNullDecimal(amountPaid); err != nil {
		return nil, err
	}
	if r.PaidAt, err = parseNullTime(paidAt); err != nil {
		return nil, err
	}
	if r.DeletedAt, err = parseNullTime(deletedAt); err != nil {
		return nil, err
	}
	if r.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return r.Entry()
}

func getEntry(ctx context.Context, q querier, key models.EntryKey) (models.Entry, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE kind = ? AND member_id = ? AND id = ?",
		string(key.Kind), key.MemberID, key.ID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.EntryNotFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry %s: %w", key, err)
	}
	return e, nil
}

func loadLedger(ctx context.Context, q querier, memberID string) (*models.Ledger, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE member_id = ? ORDER BY created_at, id", memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	l := &models.Ledger{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		l.Add(e)
	}
	return l, rows.Err()
}

func putEntry(ctx context.Context, q querier, e models.Entry) error {
	r, err := store.ToRecord(e)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, "INSERT OR REPLACE INTO entries ("+entryColumns+`)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(r.Kind), r.MemberID, r.ID, r.Amount.String(), boolInt(r.Paid),
		nullDecimal(r.AmountPaid), nullTime(r.PaidAt), string(r.Status), formatTime(r.CreatedAt), nullTime(r.DeletedAt),
		r.Reason, string(r.FineType), r.BeverageID, r.BeverageName, r.Quantity, r.UnitPrice.String(),
		r.DueID, r.DueName, boolInt(r.Exempt),
	)
	if err != nil {
		return fmt.Errorf("failed to put entry %s: %w", r.Key(), err)
	}
	return nil
}
