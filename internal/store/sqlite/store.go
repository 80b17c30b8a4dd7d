// Package sqlite provides a SQLite-backed implementation of store.Store.
//
// The database is opened with a single connection, so transactions are
// serialized by the connection pool and never conflict. Code running inside
// RunTransaction must use the Tx it is given, never the Store itself.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fjacquet/teamkasse/internal/models"
	"fjacquet/teamkasse/internal/store"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements store.Store using SQLite.
type Store struct {
	db       *sql.DB
	maxBatch int
}

// Open creates the database file if needed, runs migrations and returns the
// store. Use ":memory:" for a private in-memory database.
func Open(ctx context.Context, dbPath string, maxBatch int) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), models.PermissionDirectory); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set %q: %w", pragma, err)
		}
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if maxBatch <= 0 || maxBatch > store.DefaultMaxBatchSize {
		maxBatch = store.DefaultMaxBatchSize
	}
	return &Store{db: db, maxBatch: maxBatch}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// MaxBatchSize returns the batch limit.
func (s *Store) MaxBatchSize() int { return s.maxBatch }

func (s *Store) GetMember(ctx context.Context, id string) (*models.Member, error) {
	return getMember(ctx, s.db, id)
}

func (s *Store) ListMembers(ctx context.Context) ([]*models.Member, error) {
	return queryMembers(ctx, s.db, "ORDER BY name, id")
}

func (s *Store) FindMemberByName(ctx context.Context, name string) (*models.Member, error) {
	// active members win over deleted ones with the same name
	members, err := queryMembers(ctx, s.db,
		"WHERE name_key = ? ORDER BY CASE status WHEN ? THEN 0 ELSE 1 END, created_at, id LIMIT 1",
		models.NormalizeName(name), string(models.LifecycleActive))
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, store.MemberNotFound(name)
	}
	return members[0], nil
}

func (s *Store) GetDue(ctx context.Context, id string) (*models.Due, error) {
	dues, err := queryDues(ctx, s.db, "WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(dues) == 0 {
		return nil, store.ErrDueNotFound
	}
	return dues[0], nil
}

func (s *Store) ListDues(ctx context.Context) ([]*models.Due, error) {
	return queryDues(ctx, s.db, "ORDER BY created_at, name")
}

func (s *Store) FindDueByName(ctx context.Context, name string) (*models.Due, error) {
	dues, err := queryDues(ctx, s.db, "WHERE name_key = ? ORDER BY created_at LIMIT 1", models.NormalizeName(name))
	if err != nil {
		return nil, err
	}
	if len(dues) == 0 {
		return nil, store.ErrDueNotFound
	}
	return dues[0], nil
}

func (s *Store) ListBeverages(ctx context.Context) ([]*models.Beverage, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, category, price FROM beverages ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query beverages: %w", err)
	}
	defer rows.Close()

	var out []*models.Beverage
	for rows.Next() {
		var b models.Beverage
		var category, price string
		if err := rows.Scan(&b.ID, &b.Name, &category, &price); err != nil {
			return nil, fmt.Errorf("failed to scan beverage: %w", err)
		}
		b.Category = models.BeverageCategory(category)
		if b.Price, err = parseDecimal(price); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

func (s *Store) GetEntry(ctx context.Context, key models.EntryKey) (models.Entry, error) {
	return getEntry(ctx, s.db, key)
}

func (s *Store) LoadLedger(ctx context.Context, memberID string) (*models.Ledger, error) {
	return loadLedger(ctx, s.db, memberID)
}

// RunTransaction runs fn inside BEGIN ... COMMIT and rolls back on error.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", errors.Join(store.ErrUnavailable, err))
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(ctx, &tx{q: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", errors.Join(store.ErrUnavailable, err))
	}
	return nil
}

// tx adapts *sql.Tx to store.Tx.
type tx struct {
	q querier
}

func (t *tx) GetMember(ctx context.Context, id string) (*models.Member, error) {
	return getMember(ctx, t.q, id)
}

func (t *tx) GetEntry(ctx context.Context, key models.EntryKey) (models.Entry, error) {
	return getEntry(ctx, t.q, key)
}

func (t *tx) LoadLedger(ctx context.Context, memberID string) (*models.Ledger, error) {
	return loadLedger(ctx, t.q, memberID)
}

func (t *tx) PutMember(ctx context.Context, m *models.Member) error {
	return putMember(ctx, t.q, m)
}

func (t *tx) PutEntry(ctx context.Context, e models.Entry) error {
	return putEntry(ctx, t.q, e)
}

func (t *tx) DeleteEntry(ctx context.Context, key models.EntryKey) error {
	_, err := t.q.ExecContext(ctx,
		"DELETE FROM entries WHERE kind = ? AND member_id = ? AND id = ?",
		string(key.Kind), key.MemberID, key.ID)
	if err != nil {
		return fmt.Errorf("failed to delete entry %s: %w", key, err)
	}
	return nil
}
