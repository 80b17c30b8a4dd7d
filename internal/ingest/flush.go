package ingest

import (
	"context"
	"fmt"

	"fjacquet/teamkasse/internal/logging"
	"fjacquet/teamkasse/internal/metrics"
	"fjacquet/teamkasse/internal/store"
)

// write is one staged document.
type write struct {
	put     func(b store.Batch) error
	created bool // a new member
	record  bool // a ledger entry
}

// plan orders staged documents: members, dues, beverages, then entries.
func (r *run) plan() []write {
	var ws []write
	for _, st := range r.members.changed() {
		m := st.Member
		ws = append(ws, write{put: func(b store.Batch) error { return b.PutMember(m) }, created: st.created})
	}
	for _, d := range r.newDues {
		ws = append(ws, write{put: func(b store.Batch) error { return b.PutDue(d) }})
	}
	for _, bev := range r.newBevs {
		ws = append(ws, write{put: func(b store.Batch) error { return b.PutBeverage(bev) }})
	}
	for _, e := range r.entries {
		ws = append(ws, write{put: func(b store.Batch) error { return b.PutEntry(e) }, record: true})
	}
	return ws
}

// flush commits the staged documents in batches. It stops at the first
// batch that fails; earlier batches stay committed and are counted.
func (r *run) flush(ctx context.Context) error {
	ws := r.plan()
	size := r.opts.BatchSize
	for n, start := 1, 0; start < len(ws); n, start = n+1, start+size {
		end := min(start+size, len(ws))
		chunk := ws[start:end]

		b := r.store.NewBatch()
		for _, w := range chunk {
			if err := w.put(b); err != nil {
				metrics.IngestBatches.WithLabelValues(metrics.ResultError).Inc()
				return fmt.Errorf("stage batch %d: %w", n, err)
			}
		}
		if err := b.Commit(ctx); err != nil {
			metrics.IngestBatches.WithLabelValues(metrics.ResultError).Inc()
			return fmt.Errorf("commit batch %d of %d writes: %w", n, len(chunk), err)
		}
		metrics.IngestBatches.WithLabelValues(metrics.ResultOK).Inc()

		for _, w := range chunk {
			if w.created {
				r.result.PlayersCreated++
			}
			if w.record {
				r.result.RecordsCreated++
			}
		}
		r.log.Debug("Batch committed",
			logging.F(logging.FieldBatch, n),
			logging.F(logging.FieldCount, len(chunk)))
	}
	return nil
}
