package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Due is a recurring named charge definition, e.g. "Saison 2024/25".
// One Due fans out into many per-member DuePayments.
type Due struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Archived  bool            `json:"archived"`
	CreatedAt time.Time       `json:"created_at"`
}

// IsStale reports whether a due is too old to create debt on import: it is
// archived or was created more than months before now.
func (d *Due) IsStale(now time.Time, months int) bool {
	if d.Archived {
		return true
	}
	if d.CreatedAt.IsZero() || months <= 0 {
		return false
	}
	return d.CreatedAt.Before(now.AddDate(0, -months, 0))
}

// Beverage is an entry of the drink taxonomy.
type Beverage struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Category BeverageCategory `json:"category"`
	Price    decimal.Decimal  `json:"price"`
}

// NewBeverage returns the taxonomy document for a bucket.
func NewBeverage(category BeverageCategory, price decimal.Decimal) *Beverage {
	return &Beverage{
		ID:       BeverageID(category),
		Name:     category.DisplayName(),
		Category: category,
		Price:    price,
	}
}
