package models

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const avatarBaseURL = "https://api.dicebear.com/9.x/initials/svg?seed="

// Member is a team member and their cached ledger summary.
//
// Balance is a materialized view of the member's ledger: paid payments minus
// the remaining debt of every non-exempt debt instrument. TotalPaid and
// TotalUnpaid are informational counters only.
type Member struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Nickname    string          `json:"nickname"`
	Avatar      string          `json:"avatar"`
	Balance     decimal.Decimal `json:"balance"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	TotalUnpaid decimal.Decimal `json:"total_unpaid"`
	Status      Lifecycle       `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewMember creates an active member with a zero balance and derived
// nickname and avatar.
func NewMember(name string, now time.Time) *Member {
	name = strings.Join(strings.Fields(name), " ")
	return &Member{
		ID:          NewID(),
		Name:        name,
		Nickname:    DefaultNickname(name),
		Avatar:      DefaultAvatar(name),
		Balance:     decimal.Zero,
		TotalPaid:   decimal.Zero,
		TotalUnpaid: decimal.Zero,
		Status:      LifecycleActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsDeleted reports whether the member was soft deleted.
func (m *Member) IsDeleted() bool {
	return m.Status == LifecycleDeleted
}

// Clone returns a copy of the member.
func (m *Member) Clone() *Member {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

// DefaultNickname derives a short display name: the first name followed by
// the initial of the last name, e.g. "Anna Maria Schmidt" -> "Anna S.".
func DefaultNickname(name string) string {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	last := parts[len(parts)-1]
	r, _ := utf8.DecodeRuneInString(last)
	return fmt.Sprintf("%s %c.", parts[0], unicode.ToUpper(r))
}

// DefaultAvatar derives a deterministic avatar URL from the name.
func DefaultAvatar(name string) string {
	return avatarBaseURL + NameSeed(name)
}
