package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/boddenberg/recomatch-go/internal/domain"
)

// Run outcome labels.
const (
	RunSuccess  = "success"
	RunInvalid  = "invalid"
	RunFailed   = "error"
	RunRejected = "busy"
)

// Metrics holds all Prometheus metrics of the reconciliation service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	runsTotal         *prometheus.CounterVec
	rowsTotal         *prometheus.CounterVec
	matchesTotal      *prometheus.CounterVec
	unparsedTotal     *prometheus.CounterVec
	fileErrors        *prometheus.CounterVec
	externalErrors    *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. A private registry lets tests call NewMetrics
// repeatedly.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recomatch_operation_duration_seconds",
				Help:    "Duration of read, analyze and report operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recomatch_runs_total",
				Help: "Analysis runs by outcome.",
			},
			[]string{"status"},
		),
		rowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recomatch_rows_total",
				Help: "Ledger rows processed per side.",
			},
			[]string{"side"},
		),
		matchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recomatch_match_records_total",
				Help: "Match records produced, by kind and status.",
			},
			[]string{"kind", "status"},
		),
		unparsedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recomatch_unparsed_values_total",
				Help: "Cells that fell back to zero or null.",
			},
			[]string{"kind"},
		),
		fileErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recomatch_file_errors_total",
				Help: "Uploaded files that could not be read.",
			},
			[]string{"side"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recomatch_external_errors_total",
				Help: "Errors from collaborators such as the template store.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recomatch_cache_hits_total",
				Help: "Mapping lookups that found a value.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recomatch_cache_misses_total",
				Help: "Mapping lookups that found nothing.",
			},
			[]string{"cache"},
		),
	}
}

// RecordDuration records the duration of an operation.
func (m *Metrics) RecordDuration(operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrRun counts a run outcome.
func (m *Metrics) IncrRun(status string) {
	m.runsTotal.WithLabelValues(status).Inc()
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordResult adds the row, match, parse and file counters of a finished run.
func (m *Metrics) RecordResult(r *domain.AnalysisResult) {
	m.rowsTotal.WithLabelValues(string(domain.SideOurs)).Add(float64(r.Ours.Rows))
	m.rowsTotal.WithLabelValues(string(domain.SideTheirs)).Add(float64(r.Theirs.Rows))

	t := r.Totals
	m.matchesTotal.WithLabelValues("invoice", string(domain.StatusMatched)).Add(float64(t.InvoicesMatched))
	m.matchesTotal.WithLabelValues("invoice", string(domain.StatusOursOnly)).Add(float64(t.InvoicesOursOnly))
	m.matchesTotal.WithLabelValues("invoice", string(domain.StatusTheirsOnly)).Add(float64(t.InvoicesTheirsOnly))
	m.matchesTotal.WithLabelValues("payment", string(domain.StatusMatched)).Add(float64(t.PaymentsMatched))
	m.matchesTotal.WithLabelValues("payment", string(domain.StatusOursOnly)).Add(float64(t.PaymentsOursOnly))
	m.matchesTotal.WithLabelValues("payment", string(domain.StatusTheirsOnly)).Add(float64(t.PaymentsTheirsOnly))

	m.unparsedTotal.WithLabelValues("amount").Add(float64(r.Ours.UnparsedAmounts + r.Theirs.UnparsedAmounts))
	m.unparsedTotal.WithLabelValues("date").Add(float64(r.Ours.UnparsedDates + r.Theirs.UnparsedDates))

	for _, fe := range r.FileErrors {
		m.fileErrors.WithLabelValues(string(fe.Side)).Inc()
	}
}

// GetRunSnapshot returns cumulative run metrics for GET /v1/metrics/runs.
func (m *Metrics) GetRunSnapshot() *domain.RunMetrics {
	success := getCounterValue(m.runsTotal, RunSuccess)
	invalid := getCounterValue(m.runsTotal, RunInvalid)
	failed := getCounterValue(m.runsTotal, RunFailed)
	rejected := getCounterValue(m.runsTotal, RunRejected)
	total := success + invalid + failed

	errorRate := float64(0)
	if total > 0 {
		errorRate = (invalid + failed) / total
	}

	hits := getCounterValue(m.cacheHits, "template")
	misses := getCounterValue(m.cacheMisses, "template")
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	sum, count := getHistogramValue(m.operationDuration, "analyze")
	avgMs := float64(0)
	if count > 0 {
		avgMs = sum / float64(count) * 1000
	}

	return &domain.RunMetrics{
		TotalRuns:       int64(total),
		FailedRuns:      int64(invalid + failed),
		RejectedRuns:    int64(rejected),
		ErrorRate:       errorRate,
		AvgRunMs:        avgMs,
		RowsOurs:        int64(getCounterValue(m.rowsTotal, string(domain.SideOurs))),
		RowsTheirs:      int64(getCounterValue(m.rowsTotal, string(domain.SideTheirs))),
		InvoicesMatched: int64(getCounterValue(m.matchesTotal, "invoice", string(domain.StatusMatched))),
		InvoicesOpen: int64(getCounterValue(m.matchesTotal, "invoice", string(domain.StatusOursOnly)) +
			getCounterValue(m.matchesTotal, "invoice", string(domain.StatusTheirsOnly))),
		PaymentsMatched: int64(getCounterValue(m.matchesTotal, "payment", string(domain.StatusMatched))),
		PaymentsOpen: int64(getCounterValue(m.matchesTotal, "payment", string(domain.StatusOursOnly)) +
			getCounterValue(m.matchesTotal, "payment", string(domain.StatusTheirsOnly))),
		UnparsedAmounts: int64(getCounterValue(m.unparsedTotal, "amount")),
		UnparsedDates:   int64(getCounterValue(m.unparsedTotal, "date")),
		FileErrors: int64(getCounterValue(m.fileErrors, string(domain.SideOurs)) +
			getCounterValue(m.fileErrors, string(domain.SideTheirs))),
		TemplateHitRate: hitRate,
		Period:          "all_time",
	}
}

// getCounterValue extracts the current value of one labelled counter.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// getHistogramValue returns the sample sum and count of one labelled histogram.
func getHistogramValue(hv *prometheus.HistogramVec, labels ...string) (float64, uint64) {
	obs := hv.WithLabelValues(labels...)
	metric, ok := obs.(prometheus.Metric)
	if !ok {
		return 0, 0
	}
	m := &dto.Metric{}
	if err := metric.Write(m); err != nil || m.Histogram == nil {
		return 0, 0
	}
	return m.Histogram.GetSampleSum(), m.Histogram.GetSampleCount()
}
