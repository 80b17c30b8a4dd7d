package sqlite

import (
	"context"
	"errors"
	"fmt"

	"fjacquet/teamkasse/internal/models"
	"fjacquet/teamkasse/internal/store"
)

type batch struct {
	s   *Store
	ops []func(ctx context.Context, q querier) error
}

// NewBatch starts an empty batch. The batch is written in one SQL
// transaction on Commit.
func (s *Store) NewBatch() store.Batch {
	return &batch{s: s}
}

func (b *batch) Len() int { return len(b.ops) }

func (b *batch) add(op func(ctx context.Context, q querier) error) error {
	if len(b.ops) >= b.s.maxBatch {
		return fmt.Errorf("%w: limit %d", store.ErrBatchTooLarge, b.s.maxBatch)
	}
	b.ops = append(b.ops, op)
	return nil
}

func (b *batch) PutMember(m *models.Member) error {
	c := m.Clone()
	return b.add(func(ctx context.Context, q querier) error { return putMember(ctx, q, c) })
}

func (b *batch) PutDue(d *models.Due) error {
	c := *d
	return b.add(func(ctx context.Context, q querier) error { return putDue(ctx, q, &c) })
}

func (b *batch) PutBeverage(bev *models.Beverage) error {
	c := *bev
	return b.add(func(ctx context.Context, q querier) error { return putBeverage(ctx, q, &c) })
}

func (b *batch) PutEntry(e models.Entry) error {
	c := models.CloneEntry(e)
	return b.add(func(ctx context.Context, q querier) error { return putEntry(ctx, q, c) })
}

func (b *batch) Commit(ctx context.Context) error {
	sqlTx, err := b.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", errors.Join(store.ErrUnavailable, err))
	}
	defer func() { _ = sqlTx.Rollback() }()

	for _, op := range b.ops {
		if err := op(ctx, sqlTx); err != nil {
			return err
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", errors.Join(store.ErrUnavailable, err))
	}
	return nil
}
