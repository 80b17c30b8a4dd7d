package ingest

import (
	"fmt"
	"strings"
)

// Schema identifies one of the legacy export layouts.
type Schema string

const (
	SchemaDues         Schema = "dues"
	SchemaPunishments  Schema = "punishments"
	SchemaTransactions Schema = "transactions"
)

// Schemas lists the supported schemas.
var Schemas = []Schema{SchemaDues, SchemaPunishments, SchemaTransactions}

// ParseSchema resolves a schema name case-insensitively.
func ParseSchema(s string) (Schema, error) {
	want := Schema(strings.ToLower(strings.TrimSpace(s)))
	for _, schema := range Schemas {
		if schema == want {
			return schema, nil
		}
	}
	return "", fmt.Errorf("unknown import schema %q (expected dues, punishments or transactions)", s)
}

// Required returns the header columns a file of this schema must carry.
func (s Schema) Required() []string {
	switch s {
	case SchemaDues:
		return []string{"due_name", "due_amount", "due_created_at", "username", "user_paid"}
	case SchemaPunishments:
		return []string{"user_name", "reason", "amount"}
	case SchemaTransactions:
		return []string{"date", "amount", "subject"}
	default:
		return nil
	}
}

// duesRecord is one raw row of a dues export.
type duesRecord struct {
	DueName         string `csv:"due_name"`
	DueAmount       string `csv:"due_amount"`
	DueCreatedAt    string `csv:"due_created_at"`
	DueArchived     string `csv:"due_archived"`
	Username        string `csv:"username"`
	UserID          string `csv:"user_id"`
	UserPaid        string `csv:"user_paid"`
	UserPaymentDate string `csv:"user_payment_date"`
}

// punishmentRecord is one raw row of a punishments export.
type punishmentRecord struct {
	UserName  string `csv:"user_name"`
	Reason    string `csv:"reason"`
	Amount    string `csv:"amount"`
	CreatedAt string `csv:"created_at"`
	Paid      string `csv:"paid"`
}

// transactionRecord is one raw row of an account transactions export.
type transactionRecord struct {
	Date    string `csv:"date"`
	Amount  string `csv:"amount"`
	Subject string `csv:"subject"`
}
