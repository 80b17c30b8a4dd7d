package coordinator

import (
	"context"

	"fjacquet/teamkasse/internal/ledger"
	"fjacquet/teamkasse/internal/logging"
	"fjacquet/teamkasse/internal/metrics"
	"fjacquet/teamkasse/internal/models"
	"fjacquet/teamkasse/internal/store"

	"github.com/shopspring/decimal"
)

// Reconciliation is the outcome of Reconcile.
type Reconciliation struct {
	Member *models.Member
	// Drift is the cached balance minus the recomputed one before the fix.
	Drift decimal.Decimal
	// Corrected is true when the member record was rewritten.
	Corrected bool
}

// Reconcile recomputes a member's balance and counters from the full ledger
// inside a transaction and overwrites the cache if it disagrees.
func (c *Coordinator) Reconcile(ctx context.Context, memberID string) (*Reconciliation, error) {
	var out *Reconciliation
	key := models.EntryKey{MemberID: memberID}
	_, err := c.run(ctx, OpReconcile, key, func(ctx context.Context, tx store.Tx) (*Result, error) {
		m, err := tx.GetMember(ctx, memberID)
		if err != nil {
			return nil, err
		}
		l, err := tx.LoadLedger(ctx, memberID)
		if err != nil {
			return nil, err
		}

		totals := ledger.Summarize(memberID, l)
		drift := m.Balance.Sub(totals.Balance())
		r := &Reconciliation{Drift: drift}
		if !drift.IsZero() || !m.TotalPaid.Equal(totals.Paid) || !m.TotalUnpaid.Equal(totals.Unpaid) {
			m.Balance = totals.Balance()
			m.TotalPaid = totals.Paid
			m.TotalUnpaid = totals.Unpaid
			m.UpdatedAt = c.now()
			if err := tx.PutMember(ctx, m); err != nil {
				return nil, err
			}
			r.Corrected = true
		}
		r.Member = m.Clone()
		out = r
		return &Result{Member: r.Member, Delta: drift.Neg()}, nil
	})
	if err != nil {
		return nil, err
	}
	if out.Corrected {
		metrics.BalanceCorrections.Inc()
		c.logger.Warn("Cached balance corrected",
			logging.F(logging.FieldMember, memberID),
			logging.F(logging.FieldDelta, out.Drift.String()),
			logging.F(logging.FieldBalance, out.Member.Balance.String()))
	}
	return out, nil
}

// ReconcileAll reconciles every member and returns the corrected ones. It
// stops at the first failure.
func (c *Coordinator) ReconcileAll(ctx context.Context) ([]*Reconciliation, error) {
	members, err := c.store.ListMembers(ctx)
	if err != nil {
		return nil, &WriteError{Op: OpReconcile, Err: err}
	}
	var corrected []*Reconciliation
	for _, m := range members {
		r, err := c.Reconcile(ctx, m.ID)
		if err != nil {
			return corrected, err
		}
		if r.Corrected {
			corrected = append(corrected, r)
		}
	}
	return corrected, nil
}
