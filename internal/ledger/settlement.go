package ledger

import (
	"errors"
	"fmt"
	"time"

	"fjacquet/teamkasse/internal/models"

	"github.com/shopspring/decimal"
)

// ErrSettlementBounds reports a debt whose AmountPaid is outside [0, TotalAmount]
// or whose paid flag disagrees with it.
var ErrSettlementBounds = errors.New("settlement out of bounds")

// CheckSettlement verifies that 0 <= AmountPaid <= TotalAmount and that the
// paid flag is set exactly when AmountPaid reaches TotalAmount. Zero-amount
// debts may be either paid or unpaid.
func CheckSettlement(d *models.Debt) error {
	paid := d.PaidAmount()
	if paid.IsNegative() || paid.GreaterThan(d.TotalAmount) {
		return fmt.Errorf("%w: amount paid %s of %s", ErrSettlementBounds, paid, d.TotalAmount)
	}
	covered := paid.GreaterThanOrEqual(d.TotalAmount)
	if d.Paid != covered && !(covered && d.TotalAmount.IsZero()) {
		return fmt.Errorf("%w: paid=%t with amount paid %s of %s", ErrSettlementBounds, d.Paid, paid, d.TotalAmount)
	}
	return nil
}

// AddPayment records an incremental payment of extra on d.
func AddPayment(d *models.Debt, extra decimal.Decimal, now time.Time) {
	newPaid := d.PaidAmount().Add(extra)
	d.AmountPaid = models.DecimalPtr(newPaid)
	d.Paid = newPaid.GreaterThanOrEqual(d.TotalAmount)
	if d.Paid {
		d.PaidAt = models.TimePtr(now)
	}
}

// MarkPaid settles d in full.
func MarkPaid(d *models.Debt, now time.Time) {
	d.Paid = true
	d.AmountPaid = models.DecimalPtr(d.TotalAmount)
	d.PaidAt = models.TimePtr(now)
}

// MarkUnpaid reopens d with its full amount outstanding.
func MarkUnpaid(d *models.Debt) {
	d.Paid = false
	d.AmountPaid = nil
	d.PaidAt = nil
}
