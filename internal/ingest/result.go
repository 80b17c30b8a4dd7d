package ingest

import (
	"fmt"

	"fjacquet/teamkasse/internal/parsererror"
)

// SkippedItem is a row that produced no ledger entry.
type SkippedItem struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
	Value  string `json:"value,omitempty"`
}

// Result summarizes one import run. Success is true iff Errors is empty;
// warnings do not affect it.
type Result struct {
	Schema         Schema        `json:"schema"`
	Success        bool          `json:"success"`
	RowsProcessed  int           `json:"rowsProcessed"`
	PlayersCreated int           `json:"playersCreated"`
	RecordsCreated int           `json:"recordsCreated"`
	Errors         []string      `json:"errors"`
	Warnings       []string      `json:"warnings"`
	SkippedItems   []SkippedItem `json:"skippedItems"`
}

func newResult(schema Schema) *Result {
	return &Result{
		Schema:       schema,
		Errors:       []string{},
		Warnings:     []string{},
		SkippedItems: []SkippedItem{},
	}
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// skip records a rejected row as warning and skipped item.
func (r *Result) skip(e *parsererror.RowError, value string) {
	r.Warnings = append(r.Warnings, e.Error())
	r.SkippedItems = append(r.SkippedItems, SkippedItem{Row: e.Row, Reason: e.Reason, Value: value})
}

// ignore records a row that is deliberately not imported.
func (r *Result) ignore(row int, reason, value string) {
	r.SkippedItems = append(r.SkippedItems, SkippedItem{Row: row, Reason: reason, Value: value})
}

func (r *Result) fail(err error) {
	r.Errors = append(r.Errors, err.Error())
}

func (r *Result) finish() *Result {
	r.Success = len(r.Errors) == 0
	return r
}
