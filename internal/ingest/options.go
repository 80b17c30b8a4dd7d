package ingest

import "time"

// DefaultStaleDueMonths is the age after which an unpaid due is imported
// as exempt.
const DefaultStaleDueMonths = 18

// Options tune a single import run.
type Options struct {
	// Now is the reference time for allocation and staleness. Zero means time.Now.
	Now time.Time
	// Progress is called once per processed row with the 1-based row and the row count.
	Progress func(row, total int)
	// StaleDueMonths defaults to DefaultStaleDueMonths.
	StaleDueMonths int
	// BatchSize is capped by the store's maximum batch size.
	BatchSize int
	// Source names the input in errors, e.g. a file path.
	Source string
}

func (o Options) withDefaults(maxBatch int) Options {
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	if o.StaleDueMonths <= 0 {
		o.StaleDueMonths = DefaultStaleDueMonths
	}
	if o.BatchSize <= 0 || o.BatchSize > maxBatch {
		o.BatchSize = maxBatch
	}
	if o.Source == "" {
		o.Source = "<input>"
	}
	return o
}
