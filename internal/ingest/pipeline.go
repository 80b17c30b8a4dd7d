// Package ingest imports the legacy spreadsheet exports (dues, punishments
// and account transactions) into the ledger. A run validates every row,
// resolves members, classifies and allocates, stages the resulting
// documents and flushes them in bounded batches.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"fjacquet/teamkasse/internal/classifier"
	"fjacquet/teamkasse/internal/logging"
	"fjacquet/teamkasse/internal/metrics"
	"fjacquet/teamkasse/internal/models"
	"fjacquet/teamkasse/internal/parsererror"
	"fjacquet/teamkasse/internal/store"
)

// DefaultDelimiter separates fields in every legacy export.
const DefaultDelimiter = ';'

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDelimiter overrides the field delimiter.
func WithDelimiter(d rune) Option {
	return func(p *Pipeline) {
		if d != 0 {
			p.delimiter = d
		}
	}
}

// Pipeline imports exports into a store.
type Pipeline struct {
	store      store.Store
	classifier *classifier.Classifier
	logger     logging.Logger
	delimiter  rune
}

// New creates a pipeline. A nil classifier uses the built-in keywords.
func New(s store.Store, c *classifier.Classifier, logger logging.Logger, opts ...Option) *Pipeline {
	if c == nil {
		c = classifier.Default()
	}
	p := &Pipeline{
		store:      s,
		classifier: c,
		logger:     logging.OrDefault(logger),
		delimiter:  DefaultDelimiter,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run is the state of one import.
type run struct {
	*Pipeline
	schema    Schema
	opts      Options
	result    *Result
	members   *resolver
	log       logging.Logger
	dues      map[string]*models.Due
	newDues   []*models.Due
	beverages map[models.BeverageCategory]*models.Beverage
	newBevs   []*models.Beverage
	entries   []models.Entry
}

// Run imports one file. The returned Result is never nil. A non-nil error
// means the file was rejected as a whole and nothing was written; failures
// while flushing are reported in Result.Errors only, since batches that
// committed before the failure stay committed.
func (p *Pipeline) Run(ctx context.Context, in io.Reader, schema Schema, opts Options) (*Result, error) {
	opts = opts.withDefaults(p.store.MaxBatchSize())
	r := &run{
		Pipeline:  p,
		schema:    schema,
		opts:      opts,
		result:    newResult(schema),
		members:   newResolver(p.store, opts.Now),
		log:       p.logger.WithFields(logging.F(logging.FieldSchema, string(schema)), logging.F(logging.FieldInputFile, opts.Source)),
		dues:      make(map[string]*models.Due),
		beverages: make(map[models.BeverageCategory]*models.Beverage),
	}
	start := time.Now()

	var err error
	switch schema {
	case SchemaDues:
		err = r.importDues(ctx, in)
	case SchemaPunishments:
		err = r.importPunishments(ctx, in)
	case SchemaTransactions:
		err = r.importTransactions(ctx, in)
	default:
		_, err = ParseSchema(string(schema))
	}
	if err != nil {
		r.result.fail(err)
		r.log.WithError(err).Error("Import aborted")
		return r.result.finish(), err
	}

	if err := r.flush(ctx); err != nil {
		r.result.fail(err)
		r.log.WithError(err).Error("Import flush failed")
	}

	res := r.result.finish()
	r.log.Info("Import finished",
		logging.F("rows", res.RowsProcessed),
		logging.F("players_created", res.PlayersCreated),
		logging.F("records_created", res.RecordsCreated),
		logging.F("warnings", len(res.Warnings)),
		logging.F("skipped", len(res.SkippedItems)),
		logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))
	return res, nil
}

// rows drives the per-row loop shared by every schema.
func (r *run) rows(total int, each func(row int) error) error {
	for i := 0; i < total; i++ {
		row := i + 1
		skipped := len(r.result.SkippedItems)
		if err := each(row); err != nil {
			return err
		}
		r.result.RowsProcessed++

		outcome := metrics.OutcomeImported
		if len(r.result.SkippedItems) > skipped {
			outcome = metrics.OutcomeSkipped
		}
		metrics.IngestRows.WithLabelValues(string(r.schema), outcome).Inc()

		if r.opts.Progress != nil {
			r.opts.Progress(row, total)
		}
	}
	return nil
}

// skip rejects a row.
func (r *run) skip(row int, reason, value string, cause error) {
	e := &parsererror.RowError{Schema: string(r.schema), Row: row, Reason: reason, Err: cause}
	r.result.skip(e, value)
	r.log.Warn("Row skipped",
		logging.F(logging.FieldRow, row),
		logging.F(logging.FieldReason, reason))
}

func (r *run) warn(row int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.result.warn("%s row %d: %s", r.schema, row, msg)
	r.log.Warn(msg, logging.F(logging.FieldRow, row))
}

// member resolves the member a row names. Rows naming a deleted member are
// skipped and yield a nil state.
func (r *run) member(ctx context.Context, row int, name, id string) (*memberState, error) {
	st, err := r.members.resolve(ctx, name, id)
	if errors.Is(err, errMemberDeleted) {
		r.skip(row, "member is deleted", name, err)
		return nil, nil
	}
	return st, err
}

// stage queues an entry and applies it to the member's running balance.
func (r *run) stage(st *memberState, e models.Entry) {
	st.charge(e, r.opts.Now)
	r.entries = append(r.entries, e)
}
