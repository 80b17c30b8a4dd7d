// Package metrics holds the Prometheus collectors of the ledger and the
// import pipeline. They register with the default registry and are served by
// the API's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "teamkasse"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Ingest outcome label values.
const (
	OutcomeImported = "imported"
	OutcomeSkipped  = "skipped"
	OutcomeWarning  = "warning"
)

// LedgerWrites counts coordinator operations by operation, entry kind and result.
var LedgerWrites = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "writes_total",
	Help:      "Total ledger write operations.",
}, []string{"op", "kind", "result"})

// LedgerWriteDuration observes coordinator transaction latency.
var LedgerWriteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "write_duration_seconds",
	Help:      "Latency of ledger write transactions.",
	Buckets:   prometheus.DefBuckets,
}, []string{"op"})

// BalanceCorrections counts cached balances rewritten by reconciliation.
var BalanceCorrections = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "balance_corrections_total",
	Help:      "Total cached balances corrected by reconciliation.",
})

// IngestRows counts processed import rows by schema and outcome.
var IngestRows = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ingest",
	Name:      "rows_total",
	Help:      "Total import rows processed.",
}, []string{"schema", "outcome"})

// IngestBatches counts flushed batches by result.
var IngestBatches = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ingest",
	Name:      "batches_total",
	Help:      "Total import write batches committed.",
}, []string{"result"})

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
