package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"fjacquet/teamkasse/internal/coordinator"
	"fjacquet/teamkasse/internal/ledger"
	"fjacquet/teamkasse/internal/logging"
	"fjacquet/teamkasse/internal/models"
	"fjacquet/teamkasse/internal/store"

	"github.com/shopspring/decimal"
)

// MemberInput holds the fields of a new member.
type MemberInput struct {
	Name     string `json:"name"`
	Nickname string `json:"nickname,omitempty"`
}

// BalanceReport compares the cached balance with the ledger.
type BalanceReport struct {
	MemberID   string          `json:"memberId"`
	Cached     decimal.Decimal `json:"cached"`
	Recomputed decimal.Decimal `json:"recomputed"`
	Drift      decimal.Decimal `json:"drift"`
}

// CreateMember adds an active member with a zero balance. Names are unique
// among active members, ignoring case.
func (s *Service) CreateMember(ctx context.Context, in MemberInput) (*models.Member, error) {
	name := strings.Join(strings.Fields(in.Name), " ")
	if name == "" {
		return nil, fmt.Errorf("%w: member name is required", ErrInvalidInput)
	}

	active, err := s.ListMembers(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, m := range active {
		if models.NormalizeName(m.Name) == models.NormalizeName(name) {
			return nil, fmt.Errorf("%w: %s", ErrMemberExists, name)
		}
	}

	m := models.NewMember(name, s.now())
	if nick := strings.TrimSpace(in.Nickname); nick != "" {
		m.Nickname = nick
	}
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.PutMember(ctx, m)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}

	s.logger.Info("Member created",
		logging.F(logging.FieldMember, m.ID), logging.F(logging.FieldMemberKey, m.Name))
	return m, nil
}

// GetMember returns a member, deleted or not.
func (s *Service) GetMember(ctx context.Context, id string) (*models.Member, error) {
	return s.store.GetMember(ctx, id)
}

// ListMembers returns members sorted by name.
func (s *Service) ListMembers(ctx context.Context, includeDeleted bool) ([]*models.Member, error) {
	all, err := s.store.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Member, 0, len(all))
	for _, m := range all {
		if includeDeleted || !m.IsDeleted() {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return models.NormalizeName(out[i].Name) < models.NormalizeName(out[j].Name)
	})
	return out, nil
}

// DeleteMember soft deletes a member. The ledger and the cached balance are
// kept; a deleted member cannot receive new entries.
func (s *Service) DeleteMember(ctx context.Context, id string) (*models.Member, error) {
	var out *models.Member
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		m, err := tx.GetMember(ctx, id)
		if err != nil {
			return err
		}
		out = m
		if m.IsDeleted() {
			return nil
		}
		m.Status = models.LifecycleDeleted
		m.UpdatedAt = s.now()
		return tx.PutMember(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Member deleted", logging.F(logging.FieldMember, id))
	return out, nil
}

// RecomputeBalance recomputes the balance from the ledger without writing.
func (s *Service) RecomputeBalance(ctx context.Context, id string) (*BalanceReport, error) {
	m, err := s.store.GetMember(ctx, id)
	if err != nil {
		return nil, err
	}
	l, err := s.store.LoadLedger(ctx, id)
	if err != nil {
		return nil, err
	}
	recomputed := ledger.RecomputeLedger(id, l)
	return &BalanceReport{
		MemberID:   id,
		Cached:     m.Balance,
		Recomputed: recomputed,
		Drift:      m.Balance.Sub(recomputed),
	}, nil
}

// Reconcile rewrites a member's cached balance from the ledger.
func (s *Service) Reconcile(ctx context.Context, id string) (*coordinator.Reconciliation, error) {
	return s.coord.Reconcile(ctx, id)
}

// ReconcileAll reconciles every member and returns the corrected ones.
func (s *Service) ReconcileAll(ctx context.Context) ([]*coordinator.Reconciliation, error) {
	return s.coord.ReconcileAll(ctx)
}
