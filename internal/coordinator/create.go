package coordinator

import (
	"context"
	"fmt"
	"time"

	"fjacquet/teamkasse/internal/ledger"
	"fjacquet/teamkasse/internal/logging"
	"fjacquet/teamkasse/internal/models"
	"fjacquet/teamkasse/internal/store"

	"github.com/shopspring/decimal"
)

// CreateFine records a fine and covers it from the member's credit.
func (c *Coordinator) CreateFine(ctx context.Context, f *models.Fine) (*Result, error) {
	in := models.CloneEntry(f).(*models.Fine)
	if in.FineType == "" {
		in.FineType = models.FineTypeRegular
	}
	return c.createDebt(ctx, OpCreateFine, in)
}

// CreateDuePayment records a member's share of a due. Exempt due payments
// skip allocation and never touch the balance.
func (c *Coordinator) CreateDuePayment(ctx context.Context, p *models.DuePayment) (*Result, error) {
	return c.createDebt(ctx, OpCreateDuePayment, models.CloneEntry(p).(*models.DuePayment))
}

// CreateBeverageConsumption records a drink charge. A zero total is derived
// from quantity and unit price.
func (c *Coordinator) CreateBeverageConsumption(ctx context.Context, b *models.BeverageConsumption) (*Result, error) {
	in := models.CloneEntry(b).(*models.BeverageConsumption)
	if in.TotalAmount.IsZero() && in.Quantity > 0 {
		in.TotalAmount = in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity)))
	}
	return c.createDebt(ctx, OpCreateBeverageConsumption, in)
}

// CreatePayment records a paid credit and raises the balance by its amount.
func (c *Coordinator) CreatePayment(ctx context.Context, p *models.Payment) (*Result, error) {
	now := c.now()
	in := models.CloneEntry(p).(*models.Payment)
	prepare(&in.ID, &in.CreatedAt, now)
	in.Status = models.LifecycleActive
	in.DeletedAt = nil
	in.Paid = true
	if in.PaidAt == nil {
		in.PaidAt = models.TimePtr(now)
	}

	key := in.Key()
	if !in.Amount.IsPositive() {
		return nil, &WriteError{Op: OpCreatePayment, Key: key, Err: fmt.Errorf("%w: %s", ErrInvalidAmount, in.Amount)}
	}

	return c.run(ctx, OpCreatePayment, key, func(ctx context.Context, tx store.Tx) (*Result, error) {
		m, err := loadMember(ctx, tx, in.MemberID)
		if err != nil {
			return nil, err
		}
		if err := ensureAbsent(ctx, tx, key); err != nil {
			return nil, err
		}
		e := models.CloneEntry(in)
		return commit(ctx, tx, m, e, change(nil, e), now)
	})
}

// createDebt allocates the member's current balance against the new debt
// and writes both inside one transaction. Debts submitted as paid are
// stored as settled in full.
func (c *Coordinator) createDebt(ctx context.Context, op string, in models.DebtEntry) (*Result, error) {
	now := c.now()
	d := in.DebtPart()
	prepare(&d.ID, &d.CreatedAt, now)
	d.Status = models.LifecycleActive
	d.DeletedAt = nil
	settled := d.Paid
	paidAt := now
	if d.PaidAt != nil {
		paidAt = *d.PaidAt
	}

	key := in.Key()
	if d.TotalAmount.IsNegative() {
		return nil, &WriteError{Op: op, Key: key, Err: fmt.Errorf("%w: %s", ErrInvalidAmount, d.TotalAmount)}
	}

	return c.run(ctx, op, key, func(ctx context.Context, tx store.Tx) (*Result, error) {
		m, err := loadMember(ctx, tx, d.MemberID)
		if err != nil {
			return nil, err
		}
		if err := ensureAbsent(ctx, tx, key); err != nil {
			return nil, err
		}

		e := models.CloneEntry(in).(models.DebtEntry)
		var alloc ledger.Allocation
		switch {
		case e.IsExempt():
			alloc = ledger.Exempt()
		case settled:
			alloc = ledger.PaidOn(d.TotalAmount, paidAt)
		default:
			alloc = ledger.Allocate(d.TotalAmount, m.Balance, now)
		}
		alloc.Apply(&e.DebtPart().Settlement)
		if err := ledger.CheckSettlement(e.DebtPart()); err != nil {
			return nil, err
		}
		if alloc.Partial() {
			c.logger.Debug("Debt partially covered by credit",
				logging.F(logging.FieldMember, m.ID),
				logging.F(logging.FieldAmount, d.TotalAmount.String()),
				logging.F("covered", alloc.Covered().String()))
		}
		return commit(ctx, tx, m, e, change(nil, e), now)
	})
}

// ensureAbsent refuses to overwrite an existing entry, which would count it twice.
func ensureAbsent(ctx context.Context, tx store.Tx, key models.EntryKey) error {
	_, err := tx.GetEntry(ctx, key)
	switch {
	case err == nil:
		return ErrEntryExists
	case store.IsNotFound(err):
		return nil
	default:
		return err
	}
}

// prepare assigns an id and creation time to a new entry when the caller
// left them empty.
func prepare(id *string, createdAt *time.Time, now time.Time) {
	if *id == "" {
		*id = models.NewID()
	}
	if createdAt.IsZero() {
		*createdAt = now
	}
}
