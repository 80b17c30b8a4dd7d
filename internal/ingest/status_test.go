package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	paidDay := time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		token  string
		date   string
		want   statusKind
		wantAt *time.Time
	}{
		{"", "", statusUnpaid, nil},
		{"STATUS_UNPAID", "", statusUnpaid, nil},
		{"status_paid", "", statusPaid, nil},
		{"STATUS_PAID", "15.09.2024", statusPaid, &paidDay},
		{"15-09-2024", "", statusPaid, &paidDay},
		{"STATUS_EXEMPT", "", statusExempt, nil},
		{"true", "", statusPaid, nil},
		{"nein", "", statusUnpaid, nil},
		{"vielleicht", "", statusUnknown, nil},
		{"31-02-2024", "", statusUnknown, nil},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got := parseStatus(tt.token, tt.date)
			assert.Equal(t, tt.want, got.kind)
			if tt.wantAt == nil {
				assert.Nil(t, got.at)
				return
			}
			require.NotNil(t, got.at)
			assert.True(t, tt.wantAt.Equal(*got.at))
		})
	}
}

func TestPaidAtFallback(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, b, paidStatus{kind: statusPaid}.paidAt(time.Time{}, b))
	assert.Equal(t, a, paidStatus{kind: statusPaid, at: &a}.paidAt(b))
}

func TestParseFlag(t *testing.T) {
	for _, s := range []string{"1", "true", "JA", " x "} {
		assert.True(t, parseFlag(s), s)
	}
	for _, s := range []string{"", "0", "false", "nein"} {
		assert.False(t, parseFlag(s), s)
	}
}

func TestParseSubject(t *testing.T) {
	tests := []struct {
		subject       string
		category      string
		name          string
		detail        string
		bracketed, ok bool
	}{
		{"Beitrag: Anna Schmidt (Saison 2024/25)", "Beitrag", "Anna Schmidt", "Saison 2024/25", true, true},
		{"Einzahlung: Ben Meier", "Einzahlung", "Ben Meier", "", false, true},
		{"Beitrag: Anna Schmidt (Saison", "Beitrag", "Anna Schmidt", "", false, true},
		{"Beitrag: Anna Schmidt ()", "Beitrag", "Anna Schmidt", "", false, true},
		{"Ohne Kategorie", "", "", "", false, false},
		{"Beitrag: (Saison)", "Beitrag", "", "Saison", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			category, name, detail, bracketed, ok := parseSubject(tt.subject)
			assert.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.category, category)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.detail, detail)
			assert.Equal(t, tt.bracketed, bracketed)
		})
	}
}
