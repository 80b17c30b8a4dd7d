package coordinator

import (
	"errors"
	"fmt"

	"fjacquet/teamkasse/internal/models"
)

// Rejections of ledger writes. Store failures are passed through unchanged
// inside a WriteError.
var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrOverpayment   = errors.New("payment exceeds remaining debt")
	ErrSettled       = errors.New("entry already settled")
	ErrExempt        = errors.New("entry is exempt")
	ErrNotDebt       = errors.New("entry is not a debt instrument")
	ErrEntryDeleted  = errors.New("entry is deleted")
	ErrMemberDeleted = errors.New("member is deleted")
	ErrEntryExists   = errors.New("entry already exists")
	ErrMemberMissing = errors.New("entry has no member")
)

// WriteError is returned by every coordinator operation that did not commit.
// The member's cached balance is untouched when a WriteError is returned.
type WriteError struct {
	Op  string
	Key models.EntryKey
	Err error
}

func (e *WriteError) Error() string {
	if e.Key.ID == "" {
		if e.Key.MemberID != "" {
			return fmt.Sprintf("%s for member %s: %v", e.Op, e.Key.MemberID, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsRejected reports whether err is a business rule rejection rather than a
// store failure. Rejected writes must not be retried unchanged.
func IsRejected(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount, ErrOverpayment, ErrSettled, ErrExempt, ErrNotDebt,
		ErrEntryDeleted, ErrMemberDeleted, ErrEntryExists, ErrMemberMissing,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
