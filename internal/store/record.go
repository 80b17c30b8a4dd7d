package store

import (
	"fmt"
	"time"

	"fjacquet/teamkasse/internal/models"

	"github.com/shopspring/decimal"
)

// Record is the flat persistence shape of any ledger entry. Backends that
// store all kinds alike (one table, or one document layout per collection)
// convert through it.
type Record struct {
	Kind       models.EntryKind
	ID         string
	MemberID   string
	Amount     decimal.Decimal
	Paid       bool
	AmountPaid *decimal.Decimal
	PaidAt     *time.Time
	Status     models.Lifecycle
	CreatedAt  time.Time
	DeletedAt  *time.Time

	Reason       string
	FineType     models.FineType
	BeverageID   string
	BeverageName string
	Quantity     int
	UnitPrice    decimal.Decimal
	DueID        string
	DueName      string
	Exempt       bool
}

// Key returns the entry key of the record.
func (r Record) Key() models.EntryKey {
	return models.EntryKey{Kind: r.Kind, MemberID: r.MemberID, ID: r.ID}
}

// ToRecord flattens an entry.
func ToRecord(e models.Entry) (Record, error) {
	switch v := e.(type) {
	case *models.Fine:
		r := fromDebt(models.KindFine, &v.Debt)
		r.Reason = v.Reason
		r.FineType = v.FineType
		r.BeverageID = v.BeverageID
		return r, nil
	case *models.DuePayment:
		r := fromDebt(models.KindDuePayment, &v.Debt)
		r.DueID = v.DueID
		r.DueName = v.DueName
		r.Exempt = v.Exempt
		return r, nil
	case *models.BeverageConsumption:
		r := fromDebt(models.KindBeverageConsumption, &v.Debt)
		r.BeverageID = v.BeverageID
		r.BeverageName = v.BeverageName
		r.Quantity = v.Quantity
		r.UnitPrice = v.UnitPrice
		return r, nil
	case *models.Payment:
		return Record{
			Kind:      models.KindPayment,
			ID:        v.ID,
			MemberID:  v.MemberID,
			Amount:    v.Amount,
			Paid:      v.Paid,
			PaidAt:    v.PaidAt,
			Status:    v.Lifecycle(),
			CreatedAt: v.CreatedAt,
			DeletedAt: v.DeletedAt,
			Reason:    v.Reason,
		}, nil
	default:
		return Record{}, fmt.Errorf("store: unsupported entry type %T", e)
	}
}

func fromDebt(kind models.EntryKind, d *models.Debt) Record {
	return Record{
		Kind:       kind,
		ID:         d.ID,
		MemberID:   d.MemberID,
		Amount:     d.TotalAmount,
		Paid:       d.Paid,
		AmountPaid: d.AmountPaid,
		PaidAt:     d.PaidAt,
		Status:     d.Lifecycle(),
		CreatedAt:  d.CreatedAt,
		DeletedAt:  d.DeletedAt,
	}
}

// Entry rebuilds the typed entry.
func (r Record) Entry() (models.Entry, error) {
	status := r.Status
	if status == "" {
		status = models.LifecycleActive
	}
	debt := models.Debt{
		ID:          r.ID,
		MemberID:    r.MemberID,
		TotalAmount: r.Amount,
		Settlement: models.Settlement{
			Paid:       r.Paid,
			AmountPaid: r.AmountPaid,
			PaidAt:     r.PaidAt,
		},
		Status:    status,
		CreatedAt: r.CreatedAt,
		DeletedAt: r.DeletedAt,
	}

	switch r.Kind {
	case models.KindFine:
		fineType := r.FineType
		if fineType == "" {
			fineType = models.FineTypeRegular
		}
		return &models.Fine{Debt: debt, Reason: r.Reason, FineType: fineType, BeverageID: r.BeverageID}, nil
	case models.KindDuePayment:
		return &models.DuePayment{Debt: debt, DueID: r.DueID, DueName: r.DueName, Exempt: r.Exempt}, nil
	case models.KindBeverageConsumption:
		return &models.BeverageConsumption{
			Debt:         debt,
			BeverageID:   r.BeverageID,
			BeverageName: r.BeverageName,
			Quantity:     r.Quantity,
			UnitPrice:    r.UnitPrice,
		}, nil
	case models.KindPayment:
		return &models.Payment{
			ID:        r.ID,
			MemberID:  r.MemberID,
			Amount:    r.Amount,
			Paid:      r.Paid,
			PaidAt:    r.PaidAt,
			Reason:    r.Reason,
			Status:    status,
			CreatedAt: r.CreatedAt,
			DeletedAt: r.DeletedAt,
		}, nil
	default:
		return nil, fmt.Errorf("store: unknown entry kind %q", r.Kind)
	}
}
