package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"fjacquet/teamkasse/internal/coordinator"
	"fjacquet/teamkasse/internal/models"

	"github.com/shopspring/decimal"
)

// EntryInput is the union of the fields of the four entry kinds. Fields
// that do not apply to the kind being created are ignored.
type EntryInput struct {
	ID        string          `json:"id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Paid      bool            `json:"paid,omitempty"`
	PaidAt    *time.Time      `json:"paidAt,omitempty"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`

	// fine and payment
	Reason   string          `json:"reason,omitempty"`
	FineType models.FineType `json:"fineType,omitempty"`

	// fine and beverage consumption
	BeverageID string `json:"beverageId,omitempty"`

	// due payment
	DueID  string `json:"dueId,omitempty"`
	Exempt bool   `json:"exempt,omitempty"`

	// beverage consumption
	Quantity  int             `json:"quantity,omitempty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// ParseKind accepts the entry kind names used in URLs, singular or plural.
func ParseKind(s string) (models.EntryKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "fine", "fines":
		return models.KindFine, nil
	case "due_payment", "due_payments", "due-payments", "dues":
		return models.KindDuePayment, nil
	case "beverage_consumption", "beverage_consumptions", "beverage-consumptions", "beverages", "drinks":
		return models.KindBeverageConsumption, nil
	case "payment", "payments":
		return models.KindPayment, nil
	}
	return "", fmt.Errorf("%w: unknown entry kind %q", ErrInvalidInput, s)
}

// CreateEntry creates an entry of the given kind for a member.
func (s *Service) CreateEntry(ctx context.Context, memberID string, kind models.EntryKind, in EntryInput) (*coordinator.Result, error) {
	var created time.Time
	if in.CreatedAt != nil {
		created = *in.CreatedAt
	}
	debt := models.Debt{
		ID:          in.ID,
		MemberID:    memberID,
		TotalAmount: in.Amount,
		Settlement:  models.Settlement{Paid: in.Paid, PaidAt: in.PaidAt},
		CreatedAt:   created,
	}

	switch kind {
	case models.KindFine:
		if strings.TrimSpace(in.Reason) == "" {
			return nil, fmt.Errorf("%w: fine reason is required", ErrInvalidInput)
		}
		return s.coord.CreateFine(ctx, &models.Fine{
			Debt:       debt,
			Reason:     strings.TrimSpace(in.Reason),
			FineType:   in.FineType,
			BeverageID: in.BeverageID,
		})

	case models.KindDuePayment:
		if in.DueID == "" {
			return nil, fmt.Errorf("%w: dueId is required", ErrInvalidInput)
		}
		due, err := s.store.GetDue(ctx, in.DueID)
		if err != nil {
			return nil, err
		}
		if debt.TotalAmount.IsZero() {
			debt.TotalAmount = due.Amount
		}
		return s.coord.CreateDuePayment(ctx, &models.DuePayment{
			Debt:    debt,
			DueID:   due.ID,
			DueName: due.Name,
			Exempt:  in.Exempt,
		})

	case models.KindBeverageConsumption:
		b := &models.BeverageConsumption{
			Debt:       debt,
			BeverageID: in.BeverageID,
			Quantity:   in.Quantity,
			UnitPrice:  in.UnitPrice,
		}
		if b.Quantity <= 0 {
			b.Quantity = 1
		}
		if err := s.fillBeverage(ctx, b); err != nil {
			return nil, err
		}
		return s.coord.CreateBeverageConsumption(ctx, b)

	case models.KindPayment:
		return s.coord.CreatePayment(ctx, &models.Payment{
			ID:        in.ID,
			MemberID:  memberID,
			Amount:    in.Amount,
			Reason:    strings.TrimSpace(in.Reason),
			CreatedAt: created,
		})
	}
	return nil, fmt.Errorf("%w: unknown entry kind %q", ErrInvalidInput, kind)
}

// fillBeverage copies name and price from the taxonomy when the drink is known.
func (s *Service) fillBeverage(ctx context.Context, b *models.BeverageConsumption) error {
	if b.BeverageID == "" {
		return nil
	}
	all, err := s.store.ListBeverages(ctx)
	if err != nil {
		return err
	}
	for _, bev := range all {
		if bev.ID != b.BeverageID {
			continue
		}
		b.BeverageName = bev.Name
		if b.UnitPrice.IsZero() {
			b.UnitPrice = bev.Price
		}
		return nil
	}
	return fmt.Errorf("%w: unknown beverage %q", ErrInvalidInput, b.BeverageID)
}

// GetEntry returns a single entry.
func (s *Service) GetEntry(ctx context.Context, key models.EntryKey) (models.Entry, error) {
	return s.store.GetEntry(ctx, key)
}

// ListEntries returns a member's entries of one kind, oldest first.
func (s *Service) ListEntries(ctx context.Context, memberID string, kind models.EntryKind, includeDeleted bool) ([]models.Entry, error) {
	if _, err := s.store.GetMember(ctx, memberID); err != nil {
		return nil, err
	}
	l, err := s.store.LoadLedger(ctx, memberID)
	if err != nil {
		return nil, err
	}
	out := []models.Entry{}
	for _, e := range l.Entries() {
		if e.Key().Kind != kind {
			continue
		}
		if !includeDeleted && e.Lifecycle() == models.LifecycleDeleted {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return createdAt(out[i]).Before(createdAt(out[j]))
	})
	return out, nil
}

// Ledger returns a member's full ledger.
func (s *Service) Ledger(ctx context.Context, memberID string) (*models.Ledger, error) {
	if _, err := s.store.GetMember(ctx, memberID); err != nil {
		return nil, err
	}
	return s.store.LoadLedger(ctx, memberID)
}

// ApplyPayment records a further partial payment on a debt.
func (s *Service) ApplyPayment(ctx context.Context, key models.EntryKey, amount decimal.Decimal) (*coordinator.Result, error) {
	return s.coord.ApplyPayment(ctx, key, amount)
}

// SetPaid marks an entry paid or unpaid.
func (s *Service) SetPaid(ctx context.Context, key models.EntryKey, paid bool) (*coordinator.Result, error) {
	return s.coord.SetPaid(ctx, key, paid)
}

// DeleteEntry removes an entry with the given strategy.
func (s *Service) DeleteEntry(ctx context.Context, key models.EntryKey, strategy coordinator.DeleteStrategy) (*coordinator.Result, error) {
	return s.coord.Delete(ctx, key, strategy)
}

func createdAt(e models.Entry) time.Time {
	switch v := e.(type) {
	case *models.Payment:
		return v.CreatedAt
	case models.DebtEntry:
		return v.DebtPart().CreatedAt
	}
	return time.Time{}
}
