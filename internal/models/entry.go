package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryKey addresses one ledger record inside a member's sub-collection.
type EntryKey struct {
	Kind     EntryKind `json:"kind"`
	MemberID string    `json:"member_id"`
	ID       string    `json:"id"`
}

func (k EntryKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.MemberID, k.Kind, k.ID)
}

// Entry is implemented by Fine, DuePayment, BeverageConsumption and Payment.
type Entry interface {
	Key() EntryKey
	Lifecycle() Lifecycle
	MarkDeleted(at time.Time)
}

// DebtEntry is an Entry that carries a Debt.
type DebtEntry interface {
	Entry
	DebtPart() *Debt
	IsExempt() bool
}

// Settlement is the payment state shared by all debt instruments.
type Settlement struct {
	Paid       bool             `json:"paid"`
	AmountPaid *decimal.Decimal `json:"amount_paid,omitempty"`
	PaidAt     *time.Time       `json:"paid_at,omitempty"`
}

// PaidAmount returns AmountPaid, treating unset as zero.
func (s Settlement) PaidAmount() decimal.Decimal {
	return DecimalOrZero(s.AmountPaid)
}

func (s Settlement) clone() Settlement {
	return Settlement{
		Paid:       s.Paid,
		AmountPaid: cloneDecimal(s.AmountPaid),
		PaidAt:     cloneTime(s.PaidAt),
	}
}

// Debt is the common shape of every debt instrument.
type Debt struct {
	ID          string          `json:"id"`
	MemberID    string          `json:"member_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Settlement
	Status    Lifecycle  `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// DebtPart returns the embedded debt.
func (d *Debt) DebtPart() *Debt { return d }

// Lifecycle returns the record's lifecycle state.
func (d *Debt) Lifecycle() Lifecycle {
	if d.Status == "" {
		return LifecycleActive
	}
	return d.Status
}

// MarkDeleted soft deletes the record.
func (d *Debt) MarkDeleted(at time.Time) {
	d.Status = LifecycleDeleted
	d.DeletedAt = TimePtr(at)
}

func (d Debt) clone() Debt {
	c := d
	c.Settlement = d.Settlement.clone()
	c.DeletedAt = cloneTime(d.DeletedAt)
	return c
}

// Fine is a penalty charged to a member.
type Fine struct {
	Debt
	Reason     string   `json:"reason"`
	FineType   FineType `json:"fine_type"`
	BeverageID string   `json:"beverage_id,omitempty"`
}

func (f *Fine) Key() EntryKey {
	return EntryKey{Kind: KindFine, MemberID: f.MemberID, ID: f.ID}
}

// IsExempt is always false for fines.
func (f *Fine) IsExempt() bool { return false }

// DuePayment is one member's share of a Due.
type DuePayment struct {
	Debt
	DueID   string `json:"due_id"`
	DueName string `json:"due_name"`
	Exempt  bool   `json:"exempt"`
}

func (p *DuePayment) Key() EntryKey {
	return EntryKey{Kind: KindDuePayment, MemberID: p.MemberID, ID: p.ID}
}

// IsExempt reports whether the due payment never contributes to the balance.
func (p *DuePayment) IsExempt() bool { return p.Exempt }

// BeverageConsumption is a drink charge.
type BeverageConsumption struct {
	Debt
	BeverageID   string          `json:"beverage_id"`
	BeverageName string          `json:"beverage_name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

func (b *BeverageConsumption) Key() EntryKey {
	return EntryKey{Kind: KindBeverageConsumption, MemberID: b.MemberID, ID: b.ID}
}

// IsExempt is always false for beverage consumptions.
func (b *BeverageConsumption) IsExempt() bool { return false }

// Payment is a credit received from a member. Payments created through the
// normal flow are always paid; reversals imported from bank exports are not.
type Payment struct {
	ID        string          `json:"id"`
	MemberID  string          `json:"member_id"`
	Amount    decimal.Decimal `json:"amount"`
	Paid      bool            `json:"paid"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	Reason    string          `json:"reason"`
	Status    Lifecycle       `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty"`
}

func (p *Payment) Key() EntryKey {
	return EntryKey{Kind: KindPayment, MemberID: p.MemberID, ID: p.ID}
}

// Lifecycle returns the record's lifecycle state.
func (p *Payment) Lifecycle() Lifecycle {
	if p.Status == "" {
		return LifecycleActive
	}
	return p.Status
}

// MarkDeleted soft deletes the payment.
func (p *Payment) MarkDeleted(at time.Time) {
	p.Status = LifecycleDeleted
	p.DeletedAt = TimePtr(at)
}

// CloneEntry returns a deep copy of e.
func CloneEntry(e Entry) Entry {
	switch v := e.(type) {
	case *Fine:
		c := *v
		c.Debt = v.Debt.clone()
		return &c
	case *DuePayment:
		c := *v
		c.Debt = v.Debt.clone()
		return &c
	case *BeverageConsumption:
		c := *v
		c.Debt = v.Debt.clone()
		return &c
	case *Payment:
		c := *v
		c.PaidAt = cloneTime(v.PaidAt)
		c.DeletedAt = cloneTime(v.DeletedAt)
		return &c
	default:
		return e
	}
}
