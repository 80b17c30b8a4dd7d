package memory

import (
	"context"
	"fmt"

	"fjacquet/teamkasse/internal/models"
	"fjacquet/teamkasse/internal/store"
)

type batch struct {
	s         *Store
	members   []*models.Member
	dues      []*models.Due
	beverages []*models.Beverage
	entries   []models.Entry
}

// NewBatch starts an empty batch.
func (s *Store) NewBatch() store.Batch {
	return &batch{s: s}
}

func (b *batch) Len() int {
	return len(b.members) + len(b.dues) + len(b.beverages) + len(b.entries)
}

func (b *batch) full() error {
	if b.Len() >= b.s.maxBatch {
		return fmt.Errorf("%w: limit %d", store.ErrBatchTooLarge, b.s.maxBatch)
	}
	return nil
}

func (b *batch) PutMember(m *models.Member) error {
	if err := b.full(); err != nil {
		return err
	}
	b.members = append(b.members, m.Clone())
	return nil
}

func (b *batch) PutDue(d *models.Due) error {
	if err := b.full(); err != nil {
		return err
	}
	c := *d
	b.dues = append(b.dues, &c)
	return nil
}

func (b *batch) PutBeverage(bev *models.Beverage) error {
	if err := b.full(); err != nil {
		return err
	}
	c := *bev
	b.beverages = append(b.beverages, &c)
	return nil
}

func (b *batch) PutEntry(e models.Entry) error {
	if err := b.full(); err != nil {
		return err
	}
	b.entries = append(b.entries, models.CloneEntry(e))
	return nil
}

// Commit applies every write at once.
func (b *batch) Commit(ctx context.Context) error {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}

	s.batchSeq++
	if s.hook != nil {
		if err := s.hook(ctx, CommitInfo{Kind: "batch", Seq: s.batchSeq, Size: b.Len()}); err != nil {
			return err
		}
	}

	s.version++
	for _, m := range b.members {
		s.members[m.ID] = memberDoc{member: m, version: s.version}
	}
	for _, d := range b.dues {
		s.dues[d.ID] = d
	}
	for _, bev := range b.beverages {
		s.beverages[bev.ID] = bev
	}
	for _, e := range b.entries {
		s.entries[e.Key()] = entryDoc{entry: e, version: s.version}
	}
	return nil
}
