package ingest

import (
	"context"
	"errors"
	"strings"
	"time"

	"fjacquet/teamkasse/internal/ledger"
	"fjacquet/teamkasse/internal/models"
	"fjacquet/teamkasse/internal/store"

	"github.com/shopspring/decimal"
)

// memberState is a member touched by the run. Its Balance is the running
// balance later rows allocate against.
type memberState struct {
	*models.Member
	created bool
	dirty   bool
	// dueIDs holds the dues this member already has a payment for; nil
	// until loaded.
	dueIDs map[string]struct{}
}

// charge applies an entry's effect to the running balance and counters.
func (m *memberState) charge(e models.Entry, now time.Time) {
	credit, remaining := decimal.Zero, decimal.Zero
	switch v := e.(type) {
	case *models.Payment:
		credit = ledger.Credit(v)
	case models.DebtEntry:
		remaining = ledger.Remaining(v)
	}
	if credit.IsZero() && remaining.IsZero() {
		return
	}
	ledger.Adjust(m.Member, credit, remaining, now)
	m.dirty = true
}

// errMemberDeleted is returned for rows naming a soft-deleted member when
// no active member carries the name.
var errMemberDeleted = errors.New("member is deleted")

// resolver maps names from the export to members: first those already seen
// in this run, then the store, else a new member is queued.
type resolver struct {
	store  store.Store
	now    time.Time
	byName map[string]*memberState
	byID   map[string]*memberState
	order  []*memberState
}

func newResolver(s store.Store, now time.Time) *resolver {
	return &resolver{
		store:  s,
		now:    now,
		byName: make(map[string]*memberState),
		byID:   make(map[string]*memberState),
	}
}

// resolve returns the member for name. A non-empty id is tried first and
// becomes the id of a newly created member.
func (r *resolver) resolve(ctx context.Context, name, id string) (*memberState, error) {
	id = strings.TrimSpace(id)
	key := models.NormalizeName(name)

	if id != "" {
		if st, ok := r.byID[id]; ok {
			return st, nil
		}
		m, err := r.store.GetMember(ctx, id)
		switch {
		case err == nil && m.IsDeleted():
			return nil, errMemberDeleted
		case err == nil:
			return r.track(m, false, key), nil
		case !store.IsNotFound(err):
			return nil, err
		}
	}

	if st, ok := r.byName[key]; ok {
		return st, nil
	}
	m, err := r.store.FindMemberByName(ctx, name)
	switch {
	case err == nil && m.IsDeleted():
		return nil, errMemberDeleted
	case err == nil:
		return r.track(m, false, key), nil
	case !store.IsNotFound(err):
		return nil, err
	}

	m = models.NewMember(name, r.now)
	if id != "" {
		m.ID = id
	}
	st := r.track(m, true, key)
	st.dueIDs = make(map[string]struct{})
	return st, nil
}

func (r *resolver) track(m *models.Member, created bool, key string) *memberState {
	if st, ok := r.byID[m.ID]; ok {
		r.byName[key] = st
		return st
	}
	st := &memberState{Member: m, created: created}
	r.byID[m.ID] = st
	r.byName[key] = st
	if own := models.NormalizeName(m.Name); own != key {
		if _, taken := r.byName[own]; !taken {
			r.byName[own] = st
		}
	}
	r.order = append(r.order, st)
	return st
}

// hasDue reports whether the member already owes or paid dueID, loading the
// member's ledger on first use.
func (r *resolver) hasDue(ctx context.Context, st *memberState, dueID string) (bool, error) {
	if st.dueIDs == nil {
		l, err := r.store.LoadLedger(ctx, st.ID)
		if err != nil {
			return false, err
		}
		st.dueIDs = make(map[string]struct{}, len(l.DuePayments))
		for _, dp := range l.DuePayments {
			if dp.Lifecycle() == models.LifecycleActive {
				st.dueIDs[dp.DueID] = struct{}{}
			}
		}
	}
	_, ok := st.dueIDs[dueID]
	return ok, nil
}

// changed returns the members that must be written: new ones and those
// whose balance moved.
func (r *resolver) changed() []*memberState {
	var out []*memberState
	for _, st := range r.order {
		if st.created || st.dirty {
			out = append(out, st)
		}
	}
	return out
}
