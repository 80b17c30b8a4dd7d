// Package importcmd imports legacy CSV exports into the ledger
package importcmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"fjacquet/teamkasse/cmd/root"
	"fjacquet/teamkasse/internal/ingest"
	"fjacquet/teamkasse/internal/logging"

	"github.com/spf13/cobra"
)

var (
	schema      string
	input       string
	staleMonths int
	asJSON      bool
)

// Cmd represents the import command
var Cmd = &cobra.Command{
	Use:   "import",
	Short: "Import a legacy CSV export",
	Long: `Import one of the legacy semicolon-delimited exports (dues, punishments or
transactions) into the ledger. The input is a local path or a gs://bucket/object URI.`,
	RunE: importFunc,
}

func init() {
	Cmd.Flags().StringVarP(&schema, "schema", "s", "", "Export type: "+schemaNames())
	Cmd.Flags().StringVarP(&input, "input", "i", "", "Input file or gs:// URI")
	Cmd.Flags().IntVar(&staleMonths, "stale-months", 0, "Age in months after which unpaid dues are imported as exempt")
	Cmd.Flags().BoolVar(&asJSON, "json", false, "Print the import result as JSON")
	_ = Cmd.MarkFlagRequired("schema")
	_ = Cmd.MarkFlagRequired("input")
}

func schemaNames() string {
	names := make([]string, len(ingest.Schemas))
	for i, s := range ingest.Schemas {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func importFunc(cmd *cobra.Command, args []string) error {
	s, err := ingest.ParseSchema(schema)
	if err != nil {
		return err
	}

	log := root.Log.WithFields(logging.F(logging.FieldSchema, s), logging.F(logging.FieldInputFile, input))
	log.Info("Import started")

	opts := ingest.Options{
		StaleDueMonths: staleMonths,
		Progress: func(row, total int) {
			if row == total || row%100 == 0 {
				log.Debug("Import progress", logging.F(logging.FieldRow, row), logging.F(logging.FieldCount, total))
			}
		},
	}
	result, err := root.App().GetService().ImportURI(cmd.Context(), input, s, opts)
	if result != nil {
		if perr := printResult(cmd.OutOrStdout(), result); perr != nil {
			return perr
		}
	}
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	log.Info("Import completed",
		logging.F(logging.FieldCount, result.RowsProcessed),
		logging.F("records_created", result.RecordsCreated))
	return nil
}

func printResult(w io.Writer, r *ingest.Result) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Fprintf(w, "Schema:          %s\n", r.Schema)
	fmt.Fprintf(w, "Success:         %t\n", r.Success)
	fmt.Fprintf(w, "Rows processed:  %d\n", r.RowsProcessed)
	fmt.Fprintf(w, "Players created: %d\n", r.PlayersCreated)
	fmt.Fprintf(w, "Records created: %d\n", r.RecordsCreated)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "error: %s\n", e)
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	if len(r.SkippedItems) > 0 {
		fmt.Fprintf(w, "Skipped rows:    %d\n", len(r.SkippedItems))
	}
	return nil
}
