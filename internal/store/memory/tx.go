package memory

import (
	"context"
	"time"

	"fjacquet/teamkasse/internal/models"
	"fjacquet/teamkasse/internal/store"
)

type pendingEntry struct {
	entry   models.Entry
	deleted bool
}

// txn records the version of every document it reads and buffers writes
// until commit.
type txn struct {
	s           *Store
	memberReads map[string]uint64
	entryReads  map[models.EntryKey]uint64
	members     map[string]*models.Member
	entries     map[models.EntryKey]*pendingEntry
}

func newTx(s *Store) *txn {
	return &txn{
		s:           s,
		memberReads: make(map[string]uint64),
		entryReads:  make(map[models.EntryKey]uint64),
		members:     make(map[string]*models.Member),
		entries:     make(map[models.EntryKey]*pendingEntry),
	}
}

func (t *txn) GetMember(_ context.Context, id string) (*models.Member, error) {
	if m, ok := t.members[id]; ok {
		return m.Clone(), nil
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if t.s.closed {
		return nil, store.ErrClosed
	}
	doc, ok := t.s.members[id]
	if _, seen := t.memberReads[id]; !seen {
		t.memberReads[id] = doc.version
	}
	if !ok {
		return nil, store.MemberNotFound(id)
	}
	return doc.member.Clone(), nil
}

func (t *txn) GetEntry(_ context.Context, key models.EntryKey) (models.Entry, error) {
	if p, ok := t.entries[key]; ok {
		if p.deleted {
			return nil, store.EntryNotFound(key)
		}
		return models.CloneEntry(p.entry), nil
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if t.s.closed {
		return nil, store.ErrClosed
	}
	doc, ok := t.s.entries[key]
	if _, seen := t.entryReads[key]; !seen {
		t.entryReads[key] = doc.version
	}
	if !ok {
		return nil, store.EntryNotFound(key)
	}
	return models.CloneEntry(doc.entry), nil
}

func (t *txn) LoadLedger(_ context.Context, memberID string) (*models.Ledger, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if t.s.closed {
		return nil, store.ErrClosed
	}
	for key, doc := range t.s.entries {
		if key.MemberID != memberID {
			continue
		}
		if _, seen := t.entryReads[key]; !seen {
			t.entryReads[key] = doc.version
		}
	}
	return t.s.ledgerLocked(memberID, t.entries), nil
}

func (t *txn) PutMember(_ context.Context, m *models.Member) error {
	t.members[m.ID] = m.Clone()
	return nil
}

func (t *txn) PutEntry(_ context.Context, e models.Entry) error {
	t.entries[e.Key()] = &pendingEntry{entry: models.CloneEntry(e)}
	return nil
}

func (t *txn) DeleteEntry(_ context.Context, key models.EntryKey) error {
	t.entries[key] = &pendingEntry{deleted: true}
	return nil
}

func createdAt(e models.Entry) time.Time {
	switch v := e.(type) {
	case models.DebtEntry:
		return v.DebtPart().CreatedAt
	case *models.Payment:
		return v.CreatedAt
	default:
		return time.Time{}
	}
}
