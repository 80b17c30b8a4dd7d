package models

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FromCents converts an integer cent amount to currency units.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// CentsToUnits converts a decimal cent amount to currency units.
// Fractional cents are kept, so 123456 becomes 1234.56 and 1234.56 becomes 12.3456.
func CentsToUnits(cents decimal.Decimal) decimal.Decimal {
	return cents.Div(hundred)
}

// ToCents rounds an amount to whole cents.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FormatMoney renders an amount with two decimal places.
func FormatMoney(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// DecimalPtr returns a pointer to a copy of d.
func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// TimePtr returns a pointer to a copy of t.
func TimePtr(t time.Time) *time.Time {
	return &t
}

// DecimalOrZero dereferences d, treating nil as zero.
func DecimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	return DecimalPtr(*d)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return TimePtr(*t)
}
