package importcmd

import (
	"bytes"
	"testing"

	"fjacquet/teamkasse/internal/ingest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportCommand_Flags(t *testing.T) {
	assert.Equal(t, "import", Cmd.Use)
	assert.NotNil(t, Cmd.RunE)

	for _, name := range []string{"schema", "input", "stale-months", "json"} {
		assert.NotNil(t, Cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "s", Cmd.Flags().Lookup("schema").Shorthand)
	assert.Contains(t, Cmd.Flags().Lookup("schema").Usage, "dues, punishments, transactions")
}

func TestPrintResult(t *testing.T) {
	r := &ingest.Result{
		Schema:         ingest.SchemaDues,
		RowsProcessed:  3,
		PlayersCreated: 1,
		RecordsCreated: 2,
		Errors:         []string{"batch 1: conflict"},
		Warnings:       []string{"row 3: unknown status"},
		SkippedItems:   []ingest.SkippedItem{{Row: 2, Reason: "zero amount"}},
	}

	t.Run("text", func(t *testing.T) {
		asJSON = false
		var buf bytes.Buffer
		require.NoError(t, printResult(&buf, r))
		out := buf.String()
		assert.Contains(t, out, "Schema:          dues")
		assert.Contains(t, out, "Success:         false")
		assert.Contains(t, out, "error: batch 1: conflict")
		assert.Contains(t, out, "warning: row 3: unknown status")
		assert.Contains(t, out, "Skipped rows:    1")
	})

	t.Run("json", func(t *testing.T) {
		asJSON = true
		defer func() { asJSON = false }()
		var buf bytes.Buffer
		require.NoError(t, printResult(&buf, r))
		assert.Contains(t, buf.String(), `"rowsProcessed": 3`)
		assert.Contains(t, buf.String(), `"reason": "zero amount"`)
	})
}
