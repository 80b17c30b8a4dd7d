package ingest

import (
	"strings"
	"time"

	"fjacquet/teamkasse/internal/dateutils"
)

type statusKind int

const (
	statusUnpaid statusKind = iota
	statusPaid
	statusExempt
	statusUnknown
)

// paidStatus is the parsed settlement column of a row.
type paidStatus struct {
	kind statusKind
	at   *time.Time
	raw  string
}

// parseStatus reads a paid-status token. STATUS_PAID, or a date, marks the
// row settled; STATUS_EXEMPT exempts it; STATUS_UNPAID and blank leave it
// open. Anything else is unknown and treated as open by callers.
func parseStatus(token, paymentDate string) paidStatus {
	raw := strings.TrimSpace(token)
	switch strings.ToUpper(raw) {
	case "", "STATUS_UNPAID", "UNPAID", "FALSE", "0", "NO", "NEIN", "OFFEN":
		return paidStatus{kind: statusUnpaid, raw: raw}
	case "STATUS_PAID", "PAID", "TRUE", "1", "YES", "JA", "BEZAHLT":
		s := paidStatus{kind: statusPaid, raw: raw}
		if t, err := dateutils.ParseDate(paymentDate); err == nil {
			s.at = &t
		}
		return s
	case "STATUS_EXEMPT", "EXEMPT", "BEFREIT":
		return paidStatus{kind: statusExempt, raw: raw}
	}
	if t, err := dateutils.ParseDate(raw); err == nil {
		return paidStatus{kind: statusPaid, at: &t, raw: raw}
	}
	return paidStatus{kind: statusUnknown, raw: raw}
}

// paidAt returns the settlement date, falling back to the given times in order.
func (s paidStatus) paidAt(fallbacks ...time.Time) time.Time {
	if s.at != nil {
		return *s.at
	}
	return firstSet(fallbacks...)
}

// parseFlag reads a boolean column such as due_archived.
func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "ja", "x", "wahr":
		return true
	default:
		return false
	}
}
