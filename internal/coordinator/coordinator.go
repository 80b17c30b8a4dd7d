// Package coordinator performs every single-member ledger write: it changes
// one entry and the member's cached balance in the same store transaction so
// that the cache always equals the balance recomputed from the ledger.
package coordinator

import (
	"context"
	"time"

	"fjacquet/teamkasse/internal/ledger"
	"fjacquet/teamkasse/internal/logging"
	"fjacquet/teamkasse/internal/metrics"
	"fjacquet/teamkasse/internal/models"
	"fjacquet/teamkasse/internal/store"

	"github.com/shopspring/decimal"
)

// Operation names used in errors, logs and metrics.
const (
	OpCreateFine                = "create_fine"
	OpCreateDuePayment          = "create_due_payment"
	OpCreateBeverageConsumption = "create_beverage_consumption"
	OpCreatePayment             = "create_payment"
	OpApplyPayment              = "apply_payment"
	OpSetPaid                   = "set_paid"
	OpDelete                    = "delete"
	OpReconcile                 = "reconcile"
)

// Result is the committed outcome of a write.
type Result struct {
	Entry  models.Entry
	Member *models.Member
	// Delta is the change applied to the cached balance.
	Delta decimal.Decimal
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// Coordinator runs ledger writes against a store.
type Coordinator struct {
	store  store.Store
	logger logging.Logger
	now    func() time.Time
}

// New creates a coordinator. A nil logger falls back to the default adapter.
func New(s store.Store, logger logging.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  s,
		logger: logging.OrDefault(logger),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// delta is a change of the member's informational counters. The balance
// moves by Credit - Remaining.
type delta struct {
	Credit    decimal.Decimal
	Remaining decimal.Decimal
}

func (d delta) balance() decimal.Decimal {
	return d.Credit.Sub(d.Remaining)
}

func (d delta) isZero() bool {
	return d.Credit.IsZero() && d.Remaining.IsZero()
}

func applyDelta(m *models.Member, d delta, now time.Time) {
	ledger.Adjust(m, d.Credit, d.Remaining, now)
}

// change returns how the member counters move when before becomes after.
// A nil side contributes nothing.
func change(before, after models.Entry) delta {
	return delta{
		Credit:    credit(after).Sub(credit(before)),
		Remaining: remaining(after).Sub(remaining(before)),
	}
}

func credit(e models.Entry) decimal.Decimal {
	if p, ok := e.(*models.Payment); ok {
		return ledger.Credit(p)
	}
	return decimal.Zero
}

func remaining(e models.Entry) decimal.Decimal {
	if d, ok := e.(models.DebtEntry); ok {
		return ledger.Remaining(d)
	}
	return decimal.Zero
}

// run executes fn in a transaction and turns its outcome into a Result or
// a WriteError. fn may run several times.
func (c *Coordinator) run(
	ctx context.Context,
	op string,
	key models.EntryKey,
	fn func(ctx context.Context, tx store.Tx) (*Result, error),
) (*Result, error) {
	start := time.Now()
	var res *Result
	err := c.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		r, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		res = r
		return nil
	})

	kind := string(key.Kind)
	if kind == "" {
		kind = "member"
	}
	metrics.LedgerWrites.WithLabelValues(op, kind, metrics.Result(err)).Inc()
	metrics.LedgerWriteDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	log := c.logger.WithFields(
		logging.F(logging.FieldOperation, op),
		logging.F(logging.FieldMember, key.MemberID),
		logging.F(logging.FieldKind, string(key.Kind)),
		logging.F(logging.FieldEntryID, key.ID),
	)
	if err != nil {
		log.WithError(err).Warn("Ledger write failed")
		return nil, &WriteError{Op: op, Key: key, Err: err}
	}
	log.Debug("Ledger write committed",
		logging.F(logging.FieldDelta, res.Delta.String()),
		logging.F(logging.FieldBalance, res.Member.Balance.String()))
	return res, nil
}

// loadMember reads the member an entry belongs to and refuses deleted ones.
func loadMember(ctx context.Context, tx store.Tx, id string) (*models.Member, error) {
	if id == "" {
		return nil, ErrMemberMissing
	}
	m, err := tx.GetMember(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.IsDeleted() {
		return nil, ErrMemberDeleted
	}
	return m, nil
}

// commit writes the entry and, when the counters moved, the member.
func commit(ctx context.Context, tx store.Tx, m *models.Member, e models.Entry, d delta, now time.Time) (*Result, error) {
	if err := tx.PutEntry(ctx, e); err != nil {
		return nil, err
	}
	if !d.isZero() {
		applyDelta(m, d, now)
		if err := tx.PutMember(ctx, m); err != nil {
			return nil, err
		}
	}
	return &Result{Entry: models.CloneEntry(e), Member: m.Clone(), Delta: d.balance()}, nil
}
