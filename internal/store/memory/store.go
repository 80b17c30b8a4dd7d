// Package memory is an in-process store.Store with optimistic transactions.
// It is the test double for every component above the store and the
// backend for throwaway runs.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"fjacquet/teamkasse/internal/models"
	"fjacquet/teamkasse/internal/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

const defaultMaxRetries = 8

// CommitInfo describes a commit about to be applied.
type CommitInfo struct {
	Kind string // "tx" or "batch"
	Seq  int    // 1-based count of commits of this kind
	Size int    // number of writes
}

// CommitHook may veto a commit by returning an error. Tests use it to
// simulate an unavailable backend.
type CommitHook func(ctx context.Context, info CommitInfo) error

// Option configures a Store.
type Option func(*Store)

// WithMaxBatchSize overrides the batch limit.
func WithMaxBatchSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxBatch = n
		}
	}
}

// WithCommitHook installs a hook that runs before every commit.
func WithCommitHook(h CommitHook) Option {
	return func(s *Store) { s.hook = h }
}

// WithMaxRetries sets how often a conflicting transaction is retried.
func WithMaxRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

type memberDoc struct {
	member  *models.Member
	version uint64
}

type entryDoc struct {
	entry   models.Entry
	version uint64
}

// Store keeps every document in maps guarded by one lock. Each document
// carries the version of the commit that last wrote it.
type Store struct {
	mu         sync.RWMutex
	members    map[string]memberDoc
	dues       map[string]*models.Due
	beverages  map[string]*models.Beverage
	entries    map[models.EntryKey]entryDoc
	version    uint64
	closed     bool
	maxBatch   int
	maxRetries int
	hook       CommitHook
	txSeq      int
	batchSeq   int
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		members:    make(map[string]memberDoc),
		dues:       make(map[string]*models.Due),
		beverages:  make(map[string]*models.Beverage),
		entries:    make(map[models.EntryKey]entryDoc),
		maxBatch:   store.DefaultMaxBatchSize,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxBatchSize returns the batch limit.
func (s *Store) MaxBatchSize() int { return s.maxBatch }

// Close marks the store closed. Later calls fail with store.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) GetMember(_ context.Context, id string) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	doc, ok := s.members[id]
	if !ok {
		return nil, store.MemberNotFound(id)
	}
	return doc.member.Clone(), nil
}

func (s *Store) ListMembers(_ context.Context) ([]*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	out := make([]*models.Member, 0, len(s.members))
	for _, doc := range s.members {
		out = append(out, doc.member.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) FindMemberByName(ctx context.Context, name string) (*models.Member, error) {
	members, err := s.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	want := models.NormalizeName(name)
	var deleted *models.Member
	for _, m := range members {
		if models.NormalizeName(m.Name) != want {
			continue
		}
		if !m.IsDeleted() {
			return m, nil
		}
		if deleted == nil {
			deleted = m
		}
	}
	if deleted != nil {
		return deleted, nil
	}
	return nil, store.MemberNotFound(name)
}

func (s *Store) GetDue(_ context.Context, id string) (*models.Due, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	d, ok := s.dues[id]
	if !ok {
		return nil, store.ErrDueNotFound
	}
	c := *d
	return &c, nil
}

func (s *Store) ListDues(_ context.Context) ([]*models.Due, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	out := make([]*models.Due, 0, len(s.dues))
	for _, d := range s.dues {
		c := *d
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) FindDueByName(ctx context.Context, name string) (*models.Due, error) {
	dues, err := s.ListDues(ctx)
	if err != nil {
		return nil, err
	}
	want := models.NormalizeName(name)
	for _, d := range dues {
		if models.NormalizeName(d.Name) == want {
			return d, nil
		}
	}
	return nil, store.ErrDueNotFound
}

func (s *Store) ListBeverages(_ context.Context) ([]*models.Beverage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	out := make([]*models.Beverage, 0, len(s.beverages))
	for _, b := range s.beverages {
		c := *b
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetEntry(_ context.Context, key models.EntryKey) (models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	doc, ok := s.entries[key]
	if !ok {
		return nil, store.EntryNotFound(key)
	}
	return models.CloneEntry(doc.entry), nil
}

func (s *Store) LoadLedger(_ context.Context, memberID string) (*models.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	return s.ledgerLocked(memberID, nil), nil
}

// ledgerLocked collects memberID's entries, overlaid with pending writes.
func (s *Store) ledgerLocked(memberID string, pending map[models.EntryKey]*pendingEntry) *models.Ledger {
	var entries []models.Entry
	for key, doc := range s.entries {
		if key.MemberID != memberID {
			continue
		}
		if _, overridden := pending[key]; overridden {
			continue
		}
		entries = append(entries, models.CloneEntry(doc.entry))
	}
	for key, p := range pending {
		if key.MemberID == memberID && !p.deleted {
			entries = append(entries, models.CloneEntry(p.entry))
		}
	}
	sortEntries(entries)

	l := &models.Ledger{}
	for _, e := range entries {
		l.Add(e)
	}
	return l
}

func sortEntries(entries []models.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := createdAt(entries[i]), createdAt(entries[j])
		if a.Equal(b) {
			return entries[i].Key().ID < entries[j].Key().ID
		}
		return a.Before(b)
	})
}

// RunTransaction buffers fn's writes and applies them only if no document
// fn read was changed in the meantime. On conflict fn is run again, up to
// the configured number of retries.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	var err error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		tx := newTx(s)
		if err = fn(ctx, tx); err != nil {
			return err
		}
		err = s.commit(ctx, tx)
		if !errors.Is(err, store.ErrConflict) {
			return err
		}
	}
	return err
}

func (s *Store) commit(ctx context.Context, tx *txn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}

	for id, v := range tx.memberReads {
		if s.members[id].version != v {
			return store.ErrConflict
		}
	}
	for key, v := range tx.entryReads {
		if s.entries[key].version != v {
			return store.ErrConflict
		}
	}

	if len(tx.members) == 0 && len(tx.entries) == 0 {
		return nil
	}

	s.txSeq++
	if s.hook != nil {
		info := CommitInfo{Kind: "tx", Seq: s.txSeq, Size: len(tx.members) + len(tx.entries)}
		if err := s.hook(ctx, info); err != nil {
			return err
		}
	}

	s.version++
	for id, m := range tx.members {
		s.members[id] = memberDoc{member: m, version: s.version}
	}
	for key, p := range tx.entries {
		if p.deleted {
			delete(s.entries, key)
			continue
		}
		s.entries[key] = entryDoc{entry: p.entry, version: s.version}
	}
	return nil
}
