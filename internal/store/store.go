// Package store defines the persistence contract of the ledger: point reads,
// member-scoped read-modify-write transactions and bounded unconditional batches.
package store

import (
	"context"

	"fjacquet/teamkasse/internal/models"
)

// DefaultMaxBatchSize is the largest batch a backend accepts.
const DefaultMaxBatchSize = 500

// Reader is the read side shared by stores and transactions.
type Reader interface {
	GetMember(ctx context.Context, id string) (*models.Member, error)
	GetEntry(ctx context.Context, key models.EntryKey) (models.Entry, error)
	LoadLedger(ctx context.Context, memberID string) (*models.Ledger, error)
}

// Store is a ledger persistence backend.
//
// Values returned by a Store are copies; mutating them has no effect until
// they are written back through a Tx or Batch.
type Store interface {
	Reader

	ListMembers(ctx context.Context) ([]*models.Member, error)
	// FindMemberByName matches normalized names. An active member is
	// preferred; a deleted one is returned only when no active member
	// carries the name.
	FindMemberByName(ctx context.Context, name string) (*models.Member, error)
	GetDue(ctx context.Context, id string) (*models.Due, error)
	ListDues(ctx context.Context) ([]*models.Due, error)
	FindDueByName(ctx context.Context, name string) (*models.Due, error)
	ListBeverages(ctx context.Context) ([]*models.Beverage, error)

	// RunTransaction runs fn atomically. Either every write made through tx
	// becomes visible or none does. fn may be invoked more than once when a
	// concurrent writer conflicts, so it must not have side effects outside tx.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// NewBatch starts an unconditional write batch of at most MaxBatchSize writes.
	NewBatch() Batch
	MaxBatchSize() int

	Close() error
}

// Tx is the view of the store inside a transaction. Reads observe the
// transaction's own writes.
type Tx interface {
	Reader
	PutMember(ctx context.Context, m *models.Member) error
	PutEntry(ctx context.Context, e models.Entry) error
	DeleteEntry(ctx context.Context, key models.EntryKey) error
}

// Batch collects writes that are committed together without reading.
type Batch interface {
	PutMember(m *models.Member) error
	PutDue(d *models.Due) error
	PutBeverage(b *models.Beverage) error
	PutEntry(e models.Entry) error
	Len() int
	Commit(ctx context.Context) error
}
