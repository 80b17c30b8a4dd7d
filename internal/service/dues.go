package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"fjacquet/teamkasse/internal/logging"
	"fjacquet/teamkasse/internal/models"
	"fjacquet/teamkasse/internal/store"

	"github.com/shopspring/decimal"
)

// DueInput holds the fields of a new due.
type DueInput struct {
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`
}

// AssignInput selects the members a due is assigned to. No member IDs
// means every active member.
type AssignInput struct {
	MemberIDs []string `json:"memberIds,omitempty"`
	Exempt    bool     `json:"exempt,omitempty"`
}

// AssignResult reports a due fan-out. Members are handled one transaction
// each, so a failure for one member does not undo the others.
type AssignResult struct {
	DueID    string               `json:"dueId"`
	Assigned []*models.DuePayment `json:"assigned"`
	Skipped  []string             `json:"skipped"`
	Failed   map[string]string    `json:"failed,omitempty"`
}

// CreateDue defines a new due. Due names are unique, ignoring case.
func (s *Service) CreateDue(ctx context.Context, in DueInput) (*models.Due, error) {
	name := strings.Join(strings.Fields(in.Name), " ")
	if name == "" {
		return nil, fmt.Errorf("%w: due name is required", ErrInvalidInput)
	}
	if in.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: due amount must not be negative", ErrInvalidInput)
	}

	_, err := s.store.FindDueByName(ctx, name)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", ErrDueExists, name)
	case !store.IsNotFound(err):
		return nil, err
	}

	d := &models.Due{
		ID:        models.NewID(),
		Name:      name,
		Amount:    in.Amount,
		CreatedAt: s.now(),
	}
	if in.CreatedAt != nil && !in.CreatedAt.IsZero() {
		d.CreatedAt = *in.CreatedAt
	}
	if err := s.putDue(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create due: %w", err)
	}
	s.logger.Info("Due created", logging.F("due_id", d.ID), logging.F(logging.FieldAmount, d.Amount.String()))
	return d, nil
}

// ListDues returns dues, newest first.
func (s *Service) ListDues(ctx context.Context, includeArchived bool) ([]*models.Due, error) {
	all, err := s.store.ListDues(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Due, 0, len(all))
	for _, d := range all {
		if includeArchived || !d.Archived {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ArchiveDue archives a due. Existing due payments are not touched.
func (s *Service) ArchiveDue(ctx context.Context, id string) (*models.Due, error) {
	d, err := s.store.GetDue(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Archived {
		return d, nil
	}
	d.Archived = true
	if err := s.putDue(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to archive due: %w", err)
	}
	s.logger.Info("Due archived", logging.F("due_id", d.ID))
	return d, nil
}

// AssignDue creates a due payment for each selected member that does not
// have one for this due yet. Every payment is allocated against the
// member's balance at that moment.
func (s *Service) AssignDue(ctx context.Context, dueID string, in AssignInput) (*AssignResult, error) {
	due, err := s.store.GetDue(ctx, dueID)
	if err != nil {
		return nil, err
	}
	if due.Archived {
		return nil, fmt.Errorf("%w: %s", ErrDueArchived, due.Name)
	}

	ids := in.MemberIDs
	if len(ids) == 0 {
		members, err := s.ListMembers(ctx, false)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			ids = append(ids, m.ID)
		}
	}

	res := &AssignResult{DueID: due.ID, Assigned: []*models.DuePayment{}, Skipped: []string{}}
	for _, id := range ids {
		assigned, err := s.hasDuePayment(ctx, id, due.ID)
		if err != nil {
			res.fail(id, err)
			continue
		}
		if assigned {
			res.Skipped = append(res.Skipped, id)
			continue
		}

		out, err := s.coord.CreateDuePayment(ctx, &models.DuePayment{
			Debt:    models.Debt{MemberID: id, TotalAmount: due.Amount},
			DueID:   due.ID,
			DueName: due.Name,
			Exempt:  in.Exempt,
		})
		if err != nil {
			res.fail(id, err)
			continue
		}
		res.Assigned = append(res.Assigned, out.Entry.(*models.DuePayment))
	}

	s.logger.Info("Due assigned",
		logging.F("due_id", due.ID),
		logging.F(logging.FieldCount, len(res.Assigned)),
		logging.F("skipped", len(res.Skipped)),
		logging.F("failed", len(res.Failed)))
	return res, nil
}

func (r *AssignResult) fail(memberID string, err error) {
	if r.Failed == nil {
		r.Failed = make(map[string]string)
	}
	r.Failed[memberID] = err.Error()
}

func (s *Service) hasDuePayment(ctx context.Context, memberID, dueID string) (bool, error) {
	l, err := s.store.LoadLedger(ctx, memberID)
	if err != nil {
		return false, err
	}
	for _, p := range l.DuePayments {
		if p.DueID == dueID && p.Lifecycle() == models.LifecycleActive {
			return true, nil
		}
	}
	return false, nil
}

// putDue writes a due as a batch of one; dues carry no balance.
func (s *Service) putDue(ctx context.Context, d *models.Due) error {
	b := s.store.NewBatch()
	if err := b.PutDue(d); err != nil {
		return err
	}
	return b.Commit(ctx)
}
