package ledger

import (
	"time"

	"fjacquet/teamkasse/internal/models"

	"github.com/shopspring/decimal"
)

// RemainingDebt is what a debt instrument still adds to the member's debt.
// Exempt, paid and deleted instruments contribute nothing; a paid flag wins
// over an inconsistent AmountPaid. A missing AmountPaid counts as zero.
func RemainingDebt(d *models.Debt, exempt bool) decimal.Decimal {
	if exempt || d.Paid || d.Lifecycle() == models.LifecycleDeleted {
		return decimal.Zero
	}
	remaining := d.TotalAmount.Sub(d.PaidAmount())
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// Remaining is RemainingDebt for any debt entry.
func Remaining(e models.DebtEntry) decimal.Decimal {
	return RemainingDebt(e.DebtPart(), e.IsExempt())
}

// Credit is what a payment adds to the balance.
func Credit(p *models.Payment) decimal.Decimal {
	if !p.Paid || p.Lifecycle() == models.LifecycleDeleted {
		return decimal.Zero
	}
	return p.Amount
}

// Contribution is the signed effect of one entry on the balance.
func Contribution(e models.Entry) decimal.Decimal {
	switch v := e.(type) {
	case *models.Payment:
		return Credit(v)
	case models.DebtEntry:
		return Remaining(v).Neg()
	default:
		return decimal.Zero
	}
}

// Recompute returns the authoritative balance of memberID: paid payments
// minus the remaining debt of every non-exempt debt instrument. Entries of
// other members are ignored.
func Recompute(
	memberID string,
	payments []*models.Payment,
	fines []*models.Fine,
	duePayments []*models.DuePayment,
	beverages []*models.BeverageConsumption,
) decimal.Decimal {
	t := totals(memberID, payments, fines, duePayments, beverages)
	return t.Balance()
}

// RecomputeLedger is Recompute over a Ledger.
func RecomputeLedger(memberID string, l *models.Ledger) decimal.Decimal {
	return Summarize(memberID, l).Balance()
}

// Totals is the decomposition of a balance into credits and open debt.
type Totals struct {
	Paid   decimal.Decimal
	Unpaid decimal.Decimal
}

// Balance returns Paid - Unpaid.
func (t Totals) Balance() decimal.Decimal {
	return t.Paid.Sub(t.Unpaid)
}

// Summarize computes the totals of memberID's ledger.
func Summarize(memberID string, l *models.Ledger) Totals {
	if l == nil {
		return Totals{Paid: decimal.Zero, Unpaid: decimal.Zero}
	}
	return totals(memberID, l.Payments, l.Fines, l.DuePayments, l.BeverageConsumptions)
}

func totals(
	memberID string,
	payments []*models.Payment,
	fines []*models.Fine,
	duePayments []*models.DuePayment,
	beverages []*models.BeverageConsumption,
) Totals {
	t := Totals{Paid: decimal.Zero, Unpaid: decimal.Zero}
	for _, p := range payments {
		if p.MemberID == memberID {
			t.Paid = t.Paid.Add(Credit(p))
		}
	}
	for _, f := range fines {
		if f.MemberID == memberID {
			t.Unpaid = t.Unpaid.Add(Remaining(f))
		}
	}
	for _, d := range duePayments {
		if d.MemberID == memberID {
			t.Unpaid = t.Unpaid.Add(Remaining(d))
		}
	}
	for _, b := range beverages {
		if b.MemberID == memberID {
			t.Unpaid = t.Unpaid.Add(Remaining(b))
		}
	}
	return t
}

// Drift returns the cached balance minus the recomputed one. Any non-zero
// value is a defect.
func Drift(m *models.Member, l *models.Ledger) decimal.Decimal {
	return m.Balance.Sub(RecomputeLedger(m.ID, l))
}

// Adjust moves a member's cached balance and counters by a change in credit
// and a change in remaining debt.
func Adjust(m *models.Member, credit, remaining decimal.Decimal, now time.Time) {
	m.TotalPaid = m.TotalPaid.Add(credit)
	m.TotalUnpaid = m.TotalUnpaid.Add(remaining)
	m.Balance = m.Balance.Add(credit).Sub(remaining)
	m.UpdatedAt = now
}
