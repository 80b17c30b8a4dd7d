// Package ledger holds the pure balance rules: how a member's existing credit
// covers a new debt, and how a balance is recomputed from a full ledger.
package ledger

import (
	"time"

	"fjacquet/teamkasse/internal/models"

	"github.com/shopspring/decimal"
)

// Allocation is the payment state decided for a new debt instrument.
type Allocation struct {
	Paid       bool
	AmountPaid *decimal.Decimal
	PaidAt     *time.Time
}

// Allocate decides how much of a new debt of amount the member's current
// balance covers:
//
//	balance >= amount      paid, AmountPaid = amount, PaidAt = now
//	0 < balance < amount   partially paid, AmountPaid = balance
//	balance <= 0           unpaid, AmountPaid unset
func Allocate(amount, balance decimal.Decimal, now time.Time) Allocation {
	switch {
	case balance.GreaterThanOrEqual(amount):
		return Allocation{Paid: true, AmountPaid: models.DecimalPtr(amount), PaidAt: models.TimePtr(now)}
	case balance.IsPositive():
		return Allocation{AmountPaid: models.DecimalPtr(balance)}
	default:
		return Allocation{}
	}
}

// Exempt is the state of an instrument that skips allocation.
func Exempt() Allocation {
	return Allocation{}
}

// PaidOn is the state of an instrument the source already marks as settled.
func PaidOn(amount decimal.Decimal, at time.Time) Allocation {
	return Allocation{Paid: true, AmountPaid: models.DecimalPtr(amount), PaidAt: models.TimePtr(at)}
}

// Covered returns the part of the debt paid by the allocation.
func (a Allocation) Covered() decimal.Decimal {
	return models.DecimalOrZero(a.AmountPaid)
}

// Partial reports whether the allocation covers only part of the debt.
func (a Allocation) Partial() bool {
	return !a.Paid && a.AmountPaid != nil
}

// Settlement converts the allocation into the stored payment state.
func (a Allocation) Settlement() models.Settlement {
	s := models.Settlement{Paid: a.Paid}
	if a.AmountPaid != nil {
		s.AmountPaid = models.DecimalPtr(*a.AmountPaid)
	}
	if a.PaidAt != nil {
		s.PaidAt = models.TimePtr(*a.PaidAt)
	}
	return s
}

// Apply copies the allocation into s.
func (a Allocation) Apply(s *models.Settlement) {
	*s = a.Settlement()
}
