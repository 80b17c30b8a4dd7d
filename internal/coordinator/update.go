package coordinator

import (
	"context"
	"fmt"

	"fjacquet/teamkasse/internal/ledger"
	"fjacquet/teamkasse/internal/models"
	"fjacquet/teamkasse/internal/store"

	"github.com/shopspring/decimal"
)

// ApplyPayment adds extra to the amount paid on an open debt and raises the
// balance by the same amount. The debt becomes paid once fully covered.
func (c *Coordinator) ApplyPayment(ctx context.Context, key models.EntryKey, extra decimal.Decimal) (*Result, error) {
	if !extra.IsPositive() {
		return nil, &WriteError{Op: OpApplyPayment, Key: key, Err: fmt.Errorf("%w: %s", ErrInvalidAmount, extra)}
	}
	now := c.now()
	return c.run(ctx, OpApplyPayment, key, func(ctx context.Context, tx store.Tx) (*Result, error) {
		before, err := tx.GetEntry(ctx, key)
		if err != nil {
			return nil, err
		}
		debt, ok := before.(models.DebtEntry)
		if !ok {
			return nil, ErrNotDebt
		}
		switch {
		case debt.Lifecycle() == models.LifecycleDeleted:
			return nil, ErrEntryDeleted
		case debt.IsExempt():
			return nil, ErrExempt
		case debt.DebtPart().Paid:
			return nil, ErrSettled
		}
		if open := ledger.Remaining(debt); extra.GreaterThan(open) {
			return nil, fmt.Errorf("%w: %s of %s open", ErrOverpayment, extra, open)
		}

		m, err := loadMember(ctx, tx, key.MemberID)
		if err != nil {
			return nil, err
		}
		after := models.CloneEntry(debt).(models.DebtEntry)
		ledger.AddPayment(after.DebtPart(), extra, now)
		if err := ledger.CheckSettlement(after.DebtPart()); err != nil {
			return nil, err
		}
		return commit(ctx, tx, m, after, change(debt, after), now)
	})
}

// SetPaid marks an entry paid or unpaid and moves the balance by the change
// in what the entry contributes. Entries already in the target state are
// returned unchanged without a write.
//
// Marking a debt unpaid reopens it in full. For payments the paid flag
// decides whether the amount is credited.
func (c *Coordinator) SetPaid(ctx context.Context, key models.EntryKey, paid bool) (*Result, error) {
	now := c.now()
	return c.run(ctx, OpSetPaid, key, func(ctx context.Context, tx store.Tx) (*Result, error) {
		before, err := tx.GetEntry(ctx, key)
		if err != nil {
			return nil, err
		}
		if before.Lifecycle() == models.LifecycleDeleted {
			return nil, ErrEntryDeleted
		}
		m, err := loadMember(ctx, tx, key.MemberID)
		if err != nil {
			return nil, err
		}

		after := models.CloneEntry(before)
		switch e := after.(type) {
		case *models.Payment:
			if e.Paid == paid {
				return unchanged(m, before), nil
			}
			e.Paid = paid
			e.PaidAt = nil
			if paid {
				e.PaidAt = models.TimePtr(now)
			}
		case models.DebtEntry:
			d := e.DebtPart()
			if d.Paid == paid {
				return unchanged(m, before), nil
			}
			if paid {
				ledger.MarkPaid(d, now)
			} else {
				ledger.MarkUnpaid(d)
			}
			if err := ledger.CheckSettlement(d); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unsupported entry %T", before)
		}
		return commit(ctx, tx, m, after, change(before, after), now)
	})
}

func unchanged(m *models.Member, e models.Entry) *Result {
	return &Result{Entry: e, Member: m, Delta: decimal.Zero}
}
