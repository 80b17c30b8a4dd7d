package models

// Ledger is the full set of ledger records of one member.
type Ledger struct {
	Payments             []*Payment             `json:"payments"`
	Fines                []*Fine                `json:"fines"`
	DuePayments          []*DuePayment          `json:"due_payments"`
	BeverageConsumptions []*BeverageConsumption `json:"beverage_consumptions"`
}

// Add appends e to the matching slice.
func (l *Ledger) Add(e Entry) {
	switch v := e.(type) {
	case *Payment:
		l.Payments = append(l.Payments, v)
	case *Fine:
		l.Fines = append(l.Fines, v)
	case *DuePayment:
		l.DuePayments = append(l.DuePayments, v)
	case *BeverageConsumption:
		l.BeverageConsumptions = append(l.BeverageConsumptions, v)
	}
}

// Entries returns every record of the ledger.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, 0, l.Len())
	for _, p := range l.Payments {
		out = append(out, p)
	}
	for _, f := range l.Fines {
		out = append(out, f)
	}
	for _, d := range l.DuePayments {
		out = append(out, d)
	}
	for _, b := range l.BeverageConsumptions {
		out = append(out, b)
	}
	return out
}

// Debts returns the debt instruments of the ledger.
func (l *Ledger) Debts() []DebtEntry {
	out := make([]DebtEntry, 0, len(l.Fines)+len(l.DuePayments)+len(l.BeverageConsumptions))
	for _, f := range l.Fines {
		out = append(out, f)
	}
	for _, d := range l.DuePayments {
		out = append(out, d)
	}
	for _, b := range l.BeverageConsumptions {
		out = append(out, b)
	}
	return out
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	return len(l.Payments) + len(l.Fines) + len(l.DuePayments) + len(l.BeverageConsumptions)
}
