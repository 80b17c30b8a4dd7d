package mongo

import (
	"context"
	"errors"
	"fmt"

	"fjacquet/teamkasse/internal/models"
	"fjacquet/teamkasse/internal/store"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// batch groups upserts per collection and writes each group with BulkWrite.
type batch struct {
	s      *Store
	writes map[string][]mongo.WriteModel
	order  []string
	n      int
	err    error
}

// NewBatch starts an empty batch.
func (s *Store) NewBatch() store.Batch {
	return &batch{s: s, writes: make(map[string][]mongo.WriteModel)}
}

func (b *batch) Len() int { return b.n }

func (b *batch) add(col, id string, doc any) error {
	if b.n >= b.s.maxBatch {
		return fmt.Errorf("%w: limit %d", store.ErrBatchTooLarge, b.s.maxBatch)
	}
	if _, ok := b.writes[col]; !ok {
		b.order = append(b.order, col)
	}
	model := mongo.NewReplaceOneModel().SetFilter(bson.M{"_id": id}).SetReplacement(doc).SetUpsert(true)
	b.writes[col] = append(b.writes[col], model)
	b.n++
	return nil
}

func (b *batch) PutMember(m *models.Member) error {
	doc, err := toMemberModel(m)
	if err != nil {
		return err
	}
	return b.add(colMembers, doc.ID, doc)
}

func (b *batch) PutDue(d *models.Due) error {
	doc, err := toDueModel(d)
	if err != nil {
		return err
	}
	return b.add(colDues, doc.ID, doc)
}

func (b *batch) PutBeverage(bev *models.Beverage) error {
	doc, err := toBeverageModel(bev)
	if err != nil {
		return err
	}
	return b.add(colBeverages, doc.ID, doc)
}

func (b *batch) PutEntry(e models.Entry) error {
	col, ok := entryCollections[e.Key().Kind]
	if !ok {
		return fmt.Errorf("teamkasse/mongo: unknown entry kind %q", e.Key().Kind)
	}
	doc, err := toEntryModel(e)
	if err != nil {
		return err
	}
	return b.add(col, doc.DocID, doc)
}

// Commit writes every group inside one session transaction so the batch is
// applied as a unit.
func (b *batch) Commit(ctx context.Context) error {
	if b.n == 0 {
		return nil
	}
	session, err := b.s.client.StartSession()
	if err != nil {
		return fmt.Errorf("teamkasse/mongo: start session: %w", errors.Join(store.ErrUnavailable, err))
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		for _, col := range b.order {
			_, err := b.s.db.Collection(col).BulkWrite(ctx, b.writes[col], options.BulkWrite().SetOrdered(true))
			if err != nil {
				return nil, fmt.Errorf("teamkasse/mongo: bulk write %s: %w", col, err)
			}
		}
		return nil, nil
	})
	return mapError(err)
}
