package ingest

import (
	"context"
	"io"
	"strings"
	"time"

	"fjacquet/teamkasse/internal/classifier"
	"fjacquet/teamkasse/internal/currencyutils"
	"fjacquet/teamkasse/internal/dateutils"
	"fjacquet/teamkasse/internal/ledger"
	"fjacquet/teamkasse/internal/models"

	"github.com/shopspring/decimal"
)

// punishmentRow is a validated punishments row.
type punishmentRow struct {
	Row       int
	UserName  string
	Reason    string
	Amount    decimal.Decimal
	CreatedAt time.Time
	Status    paidStatus
}

func (r *run) validatePunishment(row int, rec punishmentRecord) (punishmentRow, *rowIssue) {
	out := punishmentRow{
		Row:      row,
		UserName: strings.Join(strings.Fields(rec.UserName), " "),
		Reason:   strings.TrimSpace(rec.Reason),
		Status:   parseStatus(rec.Paid, ""),
	}
	if r.classifier.IsPlaceholder(out.UserName) {
		return out, &rowIssue{reason: "missing or placeholder member name", value: rec.UserName}
	}
	if out.Reason == "" {
		return out, &rowIssue{reason: "missing reason", value: out.UserName}
	}
	if strings.TrimSpace(rec.Amount) == "" {
		return out, &rowIssue{reason: "missing amount", value: out.Reason}
	}

	amount, err := currencyutils.ParseCents(rec.Amount)
	switch {
	case err != nil:
		return out, r.fieldIssue("invalid amount", "amount", rec.Amount, err)
	case amount.IsZero():
		return out, &rowIssue{reason: "zero amount", value: out.Reason}
	case amount.IsNegative():
		return out, &rowIssue{reason: "negative amount", value: rec.Amount}
	}
	out.Amount = amount

	out.CreatedAt = r.opts.Now
	if strings.TrimSpace(rec.CreatedAt) != "" {
		created, err := dateutils.ParseDate(rec.CreatedAt)
		if err != nil {
			return out, r.fieldIssue("invalid created_at", "created_at", rec.CreatedAt, err)
		}
		out.CreatedAt = created
	}
	return out, nil
}

func (r *run) importPunishments(ctx context.Context, in io.Reader) error {
	recs, err := decode[punishmentRecord](in, r.delimiter, SchemaPunishments, r.opts.Source)
	if err != nil {
		return err
	}
	if err := r.loadBeverages(ctx); err != nil {
		return err
	}
	return r.rows(len(recs), func(row int) error {
		p, issue := r.validatePunishment(row, recs[row-1])
		if issue != nil {
			r.skip(row, issue.reason, issue.value, issue.err)
			return nil
		}
		return r.importPunishment(ctx, p)
	})
}

func (r *run) importPunishment(ctx context.Context, row punishmentRow) error {
	now := r.opts.Now
	st, err := r.member(ctx, row.Row, row.UserName, "")
	if err != nil || st == nil {
		return err
	}

	cls := r.classifier.Analyze(row.Reason)
	if cls.Kind == classifier.KindCredit {
		r.stage(st, &models.Payment{
			ID:        models.NewID(),
			MemberID:  st.ID,
			Amount:    row.Amount,
			Paid:      true,
			PaidAt:    models.TimePtr(row.CreatedAt),
			Reason:    row.Reason,
			Status:    models.LifecycleActive,
			CreatedAt: row.CreatedAt,
		})
		return nil
	}

	fine := &models.Fine{
		Debt: models.Debt{
			ID:          models.NewID(),
			MemberID:    st.ID,
			TotalAmount: row.Amount,
			Status:      models.LifecycleActive,
			CreatedAt:   row.CreatedAt,
		},
		Reason:   row.Reason,
		FineType: models.FineTypeRegular,
	}
	if cls.Kind == classifier.KindBeverage {
		fine.FineType = models.FineTypeBeverage
		fine.BeverageID = r.beverage(cls.Beverage, row.Amount).ID
	}

	var alloc ledger.Allocation
	switch row.Status.kind {
	case statusPaid:
		alloc = ledger.PaidOn(row.Amount, row.Status.paidAt(row.CreatedAt, now))
	case statusExempt:
		r.warn(row.Row, "fines cannot be exempt, %q for %s treated as unpaid", row.Status.raw, st.Name)
		alloc = ledger.Allocate(row.Amount, st.Balance, now)
	case statusUnknown:
		r.warn(row.Row, "unknown paid status %q for %s, treated as unpaid", row.Status.raw, st.Name)
		alloc = ledger.Allocate(row.Amount, st.Balance, now)
	default:
		alloc = ledger.Allocate(row.Amount, st.Balance, now)
	}
	alloc.Apply(&fine.Settlement)

	r.stage(st, fine)
	return nil
}

// loadBeverages reads the existing beverage taxonomy.
func (r *run) loadBeverages(ctx context.Context) error {
	bevs, err := r.store.ListBeverages(ctx)
	if err != nil {
		return err
	}
	for _, b := range bevs {
		r.beverages[b.Category] = b
	}
	return nil
}

// beverage returns the taxonomy document of a bucket, staging it on first
// use with the first price seen.
func (r *run) beverage(cat models.BeverageCategory, price decimal.Decimal) *models.Beverage {
	if b, ok := r.beverages[cat]; ok {
		return b
	}
	b := models.NewBeverage(cat, price)
	r.beverages[cat] = b
	r.newBevs = append(r.newBevs, b)
	return b
}
