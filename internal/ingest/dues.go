package ingest

import (
	"context"
	"io"
	"strings"
	"time"

	"fjacquet/teamkasse/internal/currencyutils"
	"fjacquet/teamkasse/internal/dateutils"
	"fjacquet/teamkasse/internal/ledger"
	"fjacquet/teamkasse/internal/models"
	"fjacquet/teamkasse/internal/parsererror"
	"fjacquet/teamkasse/internal/store"

	"github.com/shopspring/decimal"
)

// dueRow is a validated dues row.
type dueRow struct {
	Row       int
	DueName   string
	Amount    decimal.Decimal
	CreatedAt time.Time
	Archived  bool
	Username  string
	UserID    string
	Status    paidStatus
}

// rowIssue describes why a raw row was rejected.
type rowIssue struct {
	reason string
	value  string
	err    error
}

// fieldIssue rejects a row whose field could not be parsed.
func (r *run) fieldIssue(reason, field, value string, err error) *rowIssue {
	return &rowIssue{
		reason: reason,
		value:  value,
		err:    &parsererror.ParseError{Parser: string(r.schema), Field: field, Value: value, Err: err},
	}
}

func (r *run) validateDue(row int, rec duesRecord) (dueRow, *rowIssue) {
	out := dueRow{
		Row:      row,
		DueName:  strings.TrimSpace(rec.DueName),
		Username: strings.Join(strings.Fields(rec.Username), " "),
		UserID:   strings.TrimSpace(rec.UserID),
		Archived: parseFlag(rec.DueArchived),
		Status:   parseStatus(rec.UserPaid, rec.UserPaymentDate),
	}
	if out.DueName == "" {
		return out, &rowIssue{reason: "missing due_name"}
	}
	if strings.TrimSpace(rec.DueAmount) == "" {
		return out, &rowIssue{reason: "missing due_amount", value: out.DueName}
	}
	if r.classifier.IsPlaceholder(out.Username) {
		return out, &rowIssue{reason: "missing or placeholder member name", value: rec.Username}
	}

	amount, err := currencyutils.ParseCents(rec.DueAmount)
	if err != nil {
		return out, r.fieldIssue("invalid due_amount", "due_amount", rec.DueAmount, err)
	}
	if amount.IsNegative() {
		return out, &rowIssue{reason: "negative due_amount", value: rec.DueAmount}
	}
	out.Amount = amount

	if strings.TrimSpace(rec.DueCreatedAt) != "" {
		created, err := dateutils.ParseDate(rec.DueCreatedAt)
		if err != nil {
			return out, r.fieldIssue("invalid due_created_at", "due_created_at", rec.DueCreatedAt, err)
		}
		out.CreatedAt = created
	}
	return out, nil
}

func (r *run) importDues(ctx context.Context, in io.Reader) error {
	recs, err := decode[duesRecord](in, r.delimiter, SchemaDues, r.opts.Source)
	if err != nil {
		return err
	}
	return r.rows(len(recs), func(row int) error {
		d, issue := r.validateDue(row, recs[row-1])
		if issue != nil {
			r.skip(row, issue.reason, issue.value, issue.err)
			return nil
		}
		return r.importDue(ctx, d)
	})
}

func (r *run) importDue(ctx context.Context, row dueRow) error {
	now := r.opts.Now
	st, err := r.member(ctx, row.Row, row.Username, row.UserID)
	if err != nil || st == nil {
		return err
	}
	due, err := r.resolveDue(ctx, row)
	if err != nil {
		return err
	}
	seen, err := r.members.hasDue(ctx, st, due.ID)
	if err != nil {
		return err
	}
	if seen {
		r.result.ignore(row.Row, "due already recorded for member", row.Username+": "+due.Name)
		return nil
	}

	dp := &models.DuePayment{
		Debt: models.Debt{
			ID:          models.NewID(),
			MemberID:    st.ID,
			TotalAmount: row.Amount,
			Status:      models.LifecycleActive,
			CreatedAt:   firstSet(row.CreatedAt, due.CreatedAt, now),
		},
		DueID:   due.ID,
		DueName: due.Name,
	}

	var alloc ledger.Allocation
	switch row.Status.kind {
	case statusExempt:
		dp.Exempt = true
		alloc = ledger.Exempt()
	case statusPaid:
		alloc = ledger.PaidOn(row.Amount, row.Status.paidAt(row.CreatedAt, due.CreatedAt, now))
	default:
		if row.Status.kind == statusUnknown {
			r.warn(row.Row, "unknown paid status %q for %s, treated as unpaid", row.Status.raw, row.Username)
		}
		if due.IsStale(now, r.opts.StaleDueMonths) {
			dp.Exempt = true
			alloc = ledger.Exempt()
			r.warn(row.Row, "due %q of %s is archived or older than %d months, imported as exempt for %s",
				due.Name, dateutils.FormatDate(due.CreatedAt, dateutils.DateLayoutEuropean), r.opts.StaleDueMonths, st.Name)
		} else {
			alloc = ledger.Allocate(row.Amount, st.Balance, now)
		}
	}
	alloc.Apply(&dp.Settlement)

	st.dueIDs[due.ID] = struct{}{}
	r.stage(st, dp)
	return nil
}

// resolveDue returns the due named in the row: from this run, the store,
// or a new one staged for writing.
func (r *run) resolveDue(ctx context.Context, row dueRow) (*models.Due, error) {
	key := models.NormalizeName(row.DueName)
	if d, ok := r.dues[key]; ok {
		return d, nil
	}
	d, err := r.store.FindDueByName(ctx, row.DueName)
	switch {
	case err == nil:
	case store.IsNotFound(err):
		d = &models.Due{
			ID:        models.NewID(),
			Name:      row.DueName,
			Amount:    row.Amount,
			Archived:  row.Archived,
			CreatedAt: firstSet(row.CreatedAt, r.opts.Now),
		}
		r.newDues = append(r.newDues, d)
	default:
		return nil, err
	}
	r.dues[key] = d
	return d, nil
}

func firstSet(times ...time.Time) time.Time {
	for _, t := range times {
		if !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}
