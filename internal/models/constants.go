package models

// Lifecycle is the state of a member or ledger entry.
type Lifecycle string

const (
	LifecycleActive  Lifecycle = "active"
	LifecycleDeleted Lifecycle = "deleted"
)

// EntryKind discriminates the four ledger record shapes.
type EntryKind string

const (
	KindFine                EntryKind = "fine"
	KindDuePayment          EntryKind = "due_payment"
	KindBeverageConsumption EntryKind = "beverage_consumption"
	KindPayment             EntryKind = "payment"
)

// EntryKinds lists every kind in flush order.
var EntryKinds = []EntryKind{KindFine, KindDuePayment, KindBeverageConsumption, KindPayment}

// IsDebt reports whether the kind is a debt instrument.
func (k EntryKind) IsDebt() bool {
	return k == KindFine || k == KindDuePayment || k == KindBeverageConsumption
}

// Valid reports whether k is a known kind.
func (k EntryKind) Valid() bool {
	return k.IsDebt() || k == KindPayment
}

// FineType separates ordinary fines from drink charges.
type FineType string

const (
	FineTypeRegular  FineType = "regular"
	FineTypeBeverage FineType = "beverage"
)

// BeverageCategory is the three-bucket drink taxonomy.
type BeverageCategory string

const (
	BeverageCider    BeverageCategory = "cider"
	BeverageBeerSoft BeverageCategory = "beer_soft"
	BeverageOther    BeverageCategory = "other"
)

// Display names used when staging beverage taxonomy documents
var beverageNames = map[BeverageCategory]string{
	BeverageCider:    "Apfelwein / Cider",
	BeverageBeerSoft: "Bier / Softdrinks",
	BeverageOther:    "Sonstige Getränke",
}

// DisplayName returns the human readable bucket name.
func (c BeverageCategory) DisplayName() string {
	if name, ok := beverageNames[c]; ok {
		return name
	}
	return string(c)
}

// File permissions
const (
	PermissionConfigFile = 0600
	PermissionDirectory  = 0750
)
