package ingest

import (
	"strings"
	"testing"

	"fjacquet/teamkasse/internal/parsererror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNormalizesHeader(t *testing.T) {
	in := "\ufeff Date ;AMOUNT; Subject\n01.02.2025;1500;Einzahlung: Anna\n"

	rows, err := decode[transactionRecord](strings.NewReader(in), ';', SchemaTransactions, "bank.csv")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "01.02.2025", rows[0].Date)
	assert.Equal(t, "1500", rows[0].Amount)
	assert.Equal(t, "Einzahlung: Anna", rows[0].Subject)
}

func TestDecodeRejectsBrokenFiles(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty file", ""},
		{"missing column", "date;amount\n01.02.2025;100\n"},
		{"wrong delimiter", "date,amount,subject\n01.02.2025,100,Einzahlung: Anna\n"},
		{"inconsistent field count", "date;amount;subject\n01.02.2025;100\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode[transactionRecord](strings.NewReader(tt.in), ';', SchemaTransactions, "bank.csv")
			require.Error(t, err)
			var fe *parsererror.InvalidFormatError
			assert.ErrorAs(t, err, &fe)
			assert.Equal(t, "bank.csv", fe.FilePath)
		})
	}
}

func TestDecodeHeaderOnly(t *testing.T) {
	rows, err := decode[punishmentRecord](strings.NewReader("user_name;reason;amount\n"), ';', SchemaPunishments, "p.csv")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMissingColumns(t *testing.T) {
	assert.Empty(t, missingColumns([]string{"a", "b"}, []string{"a"}))
	assert.Equal(t, []string{"c"}, missingColumns([]string{"a", "b"}, []string{"a", "c"}))
}

func TestParseSchema(t *testing.T) {
	s, err := ParseSchema(" Dues ")
	require.NoError(t, err)
	assert.Equal(t, SchemaDues, s)

	_, err = ParseSchema("loans")
	assert.Error(t, err)
}
