package coordinator

import (
	"context"
	"fmt"
	"strings"

	"fjacquet/teamkasse/internal/models"
	"fjacquet/teamkasse/internal/store"
)

// DeleteStrategy selects how an entry leaves the ledger.
type DeleteStrategy string

const (
	// SoftDelete keeps the entry with lifecycle deleted.
	SoftDelete DeleteStrategy = "soft"
	// HardDelete removes the entry from the store.
	HardDelete DeleteStrategy = "hard"
)

// ParseDeleteStrategy accepts "soft" and "hard"; empty means soft.
func ParseDeleteStrategy(s string) (DeleteStrategy, error) {
	switch DeleteStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", SoftDelete:
		return SoftDelete, nil
	case HardDelete:
		return HardDelete, nil
	default:
		return "", fmt.Errorf("unknown delete strategy %q", s)
	}
}

// Delete removes an entry and reverses its contribution to the balance. The
// reversal is the same for both strategies: a credit is taken back in full
// and open debt is forgiven. Soft deleting an entry that is already deleted
// is a no-op; hard deleting it removes the record without a balance change.
func (c *Coordinator) Delete(ctx context.Context, key models.EntryKey, strategy DeleteStrategy) (*Result, error) {
	if strategy != SoftDelete && strategy != HardDelete {
		return nil, &WriteError{Op: OpDelete, Key: key, Err: fmt.Errorf("unknown delete strategy %q", strategy)}
	}
	now := c.now()
	return c.run(ctx, OpDelete, key, func(ctx context.Context, tx store.Tx) (*Result, error) {
		before, err := tx.GetEntry(ctx, key)
		if err != nil {
			return nil, err
		}
		m, err := tx.GetMember(ctx, key.MemberID)
		if err != nil {
			return nil, err
		}

		after := models.CloneEntry(before)
		after.MarkDeleted(now)
		d := change(before, after)

		switch strategy {
		case HardDelete:
			if err := tx.DeleteEntry(ctx, key); err != nil {
				return nil, err
			}
		default:
			if before.Lifecycle() == models.LifecycleDeleted {
				return unchanged(m, before), nil
			}
			if err := tx.PutEntry(ctx, after); err != nil {
				return nil, err
			}
		}

		if !d.isZero() {
			applyDelta(m, d, now)
			if err := tx.PutMember(ctx, m); err != nil {
				return nil, err
			}
		}
		return &Result{Entry: models.CloneEntry(after), Member: m.Clone(), Delta: d.balance()}, nil
	})
}
