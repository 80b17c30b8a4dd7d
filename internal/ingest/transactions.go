package ingest

import (
	"context"
	"io"
	"strings"
	"time"

	"fjacquet/teamkasse/internal/currencyutils"
	"fjacquet/teamkasse/internal/dateutils"
	"fjacquet/teamkasse/internal/models"

	"github.com/shopspring/decimal"
)

// transactionRow is a validated account transaction.
type transactionRow struct {
	Row      int
	Date     time.Time
	Amount   decimal.Decimal
	Subject  string
	Category string
	Name     string
	Detail   string
	// Bracketed is true when the subject ends in a well formed "(detail)".
	Bracketed bool
}

// parseSubject splits "<Category>: <Name> (<detail>)" or "<Category>: <Name>".
// An unbalanced bracket leaves Bracketed false and Name as the text before it.
func parseSubject(subject string) (category, name, detail string, bracketed, ok bool) {
	category, rest, found := strings.Cut(subject, ":")
	category = strings.TrimSpace(category)
	rest = strings.TrimSpace(rest)
	if !found || category == "" || rest == "" {
		return "", "", "", false, false
	}

	open := strings.Index(rest, "(")
	if open < 0 {
		return category, rest, "", false, true
	}
	name = strings.TrimSpace(rest[:open])
	tail := rest[open+1:]
	if strings.HasSuffix(tail, ")") && !strings.ContainsAny(tail[:len(tail)-1], "()") {
		detail = strings.TrimSpace(tail[:len(tail)-1])
		bracketed = detail != ""
	}
	return category, name, detail, bracketed, name != ""
}

func (r *run) validateTransaction(row int, rec transactionRecord) (transactionRow, *rowIssue) {
	out := transactionRow{Row: row, Subject: strings.TrimSpace(rec.Subject)}
	if strings.TrimSpace(rec.Date) == "" {
		return out, &rowIssue{reason: "missing date", value: out.Subject}
	}
	if strings.TrimSpace(rec.Amount) == "" {
		return out, &rowIssue{reason: "missing amount", value: out.Subject}
	}
	if out.Subject == "" {
		return out, &rowIssue{reason: "missing subject"}
	}

	date, err := dateutils.ParseDate(rec.Date)
	if err != nil {
		return out, r.fieldIssue("invalid date", "date", rec.Date, err)
	}
	out.Date = date

	amount, err := currencyutils.ParseCents(rec.Amount)
	if err != nil {
		return out, r.fieldIssue("invalid amount", "amount", rec.Amount, err)
	}
	if amount.IsZero() {
		return out, &rowIssue{reason: "zero amount", value: out.Subject}
	}
	out.Amount = amount

	var ok bool
	out.Category, out.Name, out.Detail, out.Bracketed, ok = parseSubject(out.Subject)
	if !ok {
		return out, &rowIssue{reason: "unrecognized subject", value: out.Subject}
	}
	if r.classifier.IsPlaceholder(out.Name) {
		return out, &rowIssue{reason: "missing or placeholder member name", value: out.Subject}
	}
	return out, nil
}

func (r *run) importTransactions(ctx context.Context, in io.Reader) error {
	recs, err := decode[transactionRecord](in, r.delimiter, SchemaTransactions, r.opts.Source)
	if err != nil {
		return err
	}
	return r.rows(len(recs), func(row int) error {
		tx, issue := r.validateTransaction(row, recs[row-1])
		if issue != nil {
			r.skip(row, issue.reason, issue.value, issue.err)
			return nil
		}
		return r.importTransaction(ctx, tx)
	})
}

// importTransaction turns a bank booking into a Payment. Dues contributions
// with a readable detail are left to the dues export; a negative amount is
// a reversal stored unpaid so it never credits the balance.
func (r *run) importTransaction(ctx context.Context, row transactionRow) error {
	if r.classifier.IsDuesCategory(row.Category) && row.Bracketed {
		r.result.ignore(row.Row, "dues contribution, imported from the dues export", row.Subject)
		return nil
	}

	st, err := r.member(ctx, row.Row, row.Name, "")
	if err != nil || st == nil {
		return err
	}

	p := &models.Payment{
		ID:        models.NewID(),
		MemberID:  st.ID,
		Amount:    row.Amount,
		Paid:      true,
		PaidAt:    models.TimePtr(row.Date),
		Reason:    row.Subject,
		Status:    models.LifecycleActive,
		CreatedAt: row.Date,
	}
	if row.Amount.IsNegative() {
		p.Amount = row.Amount.Abs()
		p.Paid = false
		p.PaidAt = nil
		r.warn(row.Row, "negative amount %s for %s imported as unpaid reversal", row.Amount, st.Name)
	}
	r.stage(st, p)
	return nil
}
