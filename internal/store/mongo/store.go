// Package mongo implements store.Store on MongoDB. Members, dues and
// beverages live in flat collections; every entry kind has its own
// collection keyed by member. Transactions use client sessions and need a
// replica set.
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

// Collection name constants.
const (
	colMembers   = "members"
	colDues      = "dues"
	colBeverages = "beverages"
)

var entryCollections = map[models.EntryKind]string{
	models.KindFine:                "fines",
	models.KindDuePayment:          "due_payments",
	models.KindBeverageConsumption: "beverage_consumptions",
	models.KindPayment:             "payments",
}

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using the MongoDB driver.
type Store struct {
	client   *mongo.Client
	db       *mongo.Database
	maxBatch int
}

// Connect dials uri and returns a store on database name.
func Connect(ctx context.Context, uri, name string, maxBatch int) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("teamkasse/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("teamkasse/mongo: ping: %w", errors.Join(store.ErrUnavailable, err))
	}
	s := New(client, name, maxBatch)
	if err := s.Migrate(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// New wraps an existing client.
func New(client *mongo.Client, name string, maxBatch int) *Store {
	if maxBatch <= 0 || maxBatch > store.DefaultMaxBatchSize {
		maxBatch = store.DefaultMaxBatchSize
	}
	return &Store{client: client, db: client.Database(name), maxBatch: maxBatch}
}

// Migrate creates the indexes used by name lookups and ledger loads.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colMembers: {{Keys: bson.D{{Key: "name_key", Value: 1}}}},
		colDues:    {{Keys: bson.D{{Key: "name_key", Value: 1}}}},
	}
	for _, col := range entryCollections {
		indexes[col] = []mongo.IndexModel{{Keys: bson.D{{Key: "member_id", Value: 1}, {Key: "created_at", Value: 1}}}}
	}
	for col, models := range indexes {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("teamkasse/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// MaxBatchSize returns the batch limit.
func (s *Store) MaxBatchSize() int { return s.maxBatch }

func (s *Store) entries(kind models.EntryKind) (*mongo.Collection, error) {
	name, ok := entryCollections[kind]
	if !ok {
		return nil, fmt.Errorf("teamkasse/mongo: unknown entry kind %q", kind)
	}
	return s.db.Collection(name), nil
}

func (s *Store) GetMember(ctx context.Context, id string) (*models.Member, error) {
	var mm memberModel
	err := s.db.Collection(colMembers).FindOne(ctx, bson.M{"_id": id}).Decode(&mm)
	if err != nil {
		if isNoDocuments(err) {
			return nil, store.MemberNotFound(id)
		}
		return nil, fmt.Errorf("teamkasse/mongo: get member: %w", err)
	}
	return fromMemberModel(&mm)
}

func (s *Store) ListMembers(ctx context.Context) ([]*models.Member, error) {
	return s.findMembers(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}))
}

func (s *Store) FindMemberByName(ctx context.Context, name string) (*models.Member, error) {
	members, err := s.findMembers(ctx, bson.M{"name_key": models.NormalizeName(name)},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, store.MemberNotFound(name)
	}
	for _, m := range members {
		if !m.IsDeleted() {
			return m, nil
		}
	}
	return members[0], nil
}

func (s *Store) findMembers(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]*models.Member, error) {
	cursor, err := s.db.Collection(colMembers).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("teamkasse/mongo: list members: %w", err)
	}
	var docs []memberModel
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("teamkasse/mongo: decode members: %w", err)
	}
	out := make([]*models.Member, 0, len(docs))
	for i := range docs {
		m, err := fromMemberModel(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) GetDue(ctx context.Context, id string) (*models.Due, error) {
	dues, err := s.findDues(ctx, bson.M{"_id": id}, options.Find().SetLimit(1))
	if err != nil {
		return nil, err
	}
	if len(dues) == 0 {
		return nil, store.ErrDueNotFound
	}
	return dues[0], nil
}

func (s *Store) ListDues(ctx context.Context) ([]*models.Due, error) {
	return s.findDues(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "name", Value: 1}}))
}

func (s *Store) FindDueByName(ctx context.Context, name string) (*models.Due, error) {
	dues, err := s.findDues(ctx, bson.M{"name_key": models.NormalizeName(name)},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}).SetLimit(1))
	if err != nil {
		return nil, err
	}
	if len(dues) == 0 {
		return nil, store.ErrDueNotFound
	}
	return dues[0], nil
}

func (s *Store) findDues(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]*models.Due, error) {
	cursor, err := s.db.Collection(colDues).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("teamkasse/mongo: list dues: %w", err)
	}
	var docs []dueModel
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("teamkasse/mongo: decode dues: %w", err)
	}
	out := make([]*models.Due, 0, len(docs))
	for i := range docs {
		d, err := fromDueModel(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) ListBeverages(ctx context.Context) ([]*models.Beverage, error) {
	cursor, err := s.db.Collection(colBeverages).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("teamkasse/mongo: list beverages: %w", err)
	}
	var docs []beverageModel
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("teamkasse/mongo: decode beverages: %w", err)
	}
	out := make([]*models.Beverage, 0, len(docs))
	for i := range docs {
		b, err := fromBeverageModel(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *Store) GetEntry(ctx context.Context, key models.EntryKey) (models.Entry, error) {
	col, err := s.entries(key.Kind)
	if err != nil {
		return nil, err
	}
	var em entryModel
	if err := col.FindOne(ctx, bson.M{"_id": docID(key.MemberID, key.ID)}).Decode(&em); err != nil {
		if isNoDocuments(err) {
			return nil, store.EntryNotFound(key)
		}
		return nil, fmt.Errorf("teamkasse/mongo: get entry: %w", err)
	}
	return fromEntryModel(key.Kind, &em)
}

func (s *Store) LoadLedger(ctx context.Context, memberID string) (*models.Ledger, error) {
	l := &models.Ledger{}
	for _, kind := range models.EntryKinds {
		col, err := s.entries(kind)
		if err != nil {
			return nil, err
		}
		cursor, err := col.Find(ctx, bson.M{"member_id": memberID},
			options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "entry_id", Value: 1}}))
		if err != nil {
			return nil, fmt.Errorf("teamkasse/mongo: load %s: %w", kind, err)
		}
		var docs []entryModel
		if err := cursor.All(ctx, &docs); err != nil {
			return nil, fmt.Errorf("teamkasse/mongo: decode %s: %w", kind, err)
		}
		for i := range docs {
			e, err := fromEntryModel(kind, &docs[i])
			if err != nil {
				return nil, err
			}
			l.Add(e)
		}
	}
	return l, nil
}

// RunTransaction runs fn in a session transaction. The driver retries fn
// on transient transaction errors.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("teamkasse/mongo: start session: %w", errors.Join(store.ErrUnavailable, err))
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx, &tx{s: s})
	})
	return mapError(err)
}

// tx runs store operations on the session bound to ctx.
type tx struct {
	s *Store
}

func (t *tx) GetMember(ctx context.Context, id string) (*models.Member, error) {
	return t.s.GetMember(ctx, id)
}

func (t *tx) GetEntry(ctx context.Context, key models.EntryKey) (models.Entry, error) {
	return t.s.GetEntry(ctx, key)
}

func (t *tx) LoadLedger(ctx context.Context, memberID string) (*models.Ledger, error) {
	return t.s.LoadLedger(ctx, memberID)
}

func (t *tx) PutMember(ctx context.Context, m *models.Member) error {
	doc, err := toMemberModel(m)
	if err != nil {
		return err
	}
	_, err = t.s.db.Collection(colMembers).ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("teamkasse/mongo: put member: %w", err)
	}
	return nil
}

func (t *tx) PutEntry(ctx context.Context, e models.Entry) error {
	col, err := t.s.entries(e.Key().Kind)
	if err != nil {
		return err
	}
	doc, err := toEntryModel(e)
	if err != nil {
		return err
	}
	_, err = col.ReplaceOne(ctx, bson.M{"_id": doc.DocID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("teamkasse/mongo: put entry: %w", err)
	}
	return nil
}

func (t *tx) DeleteEntry(ctx context.Context, key models.EntryKey) error {
	col, err := t.s.entries(key.Kind)
	if err != nil {
		return err
	}
	if _, err := col.DeleteOne(ctx, bson.M{"_id": docID(key.MemberID, key.ID)}); err != nil {
		return fmt.Errorf("teamkasse/mongo: delete entry: %w", err)
	}
	return nil
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// mapError translates driver errors into store sentinels while keeping the
// original error in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var se mongo.ServerError
	if errors.As(err, &se) && (se.HasErrorLabel("TransientTransactionError") || se.HasErrorCode(112)) {
		return errors.Join(store.ErrConflict, err)
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return errors.Join(store.ErrUnavailable, err)
	}
	return err
}
