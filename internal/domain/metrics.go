package domain

// RunMetrics is the snapshot served by GET /v1/metrics/runs.
type RunMetrics struct {
	TotalRuns       int64   `json:"total_runs"`
	FailedRuns      int64   `json:"failed_runs"`
	RejectedRuns    int64   `json:"rejected_runs"`
	ErrorRate       float64 `json:"error_rate"`
	AvgRunMs        float64 `json:"avg_run_ms"`
	RowsOurs        int64   `json:"rows_ours"`
	RowsTheirs      int64   `json:"rows_theirs"`
	InvoicesMatched int64   `json:"invoices_matched"`
	InvoicesOpen    int64   `json:"invoices_open"`
	PaymentsMatched int64   `json:"payments_matched"`
	PaymentsOpen    int64   `json:"payments_open"`
	UnparsedAmounts int64   `json:"unparsed_amounts"`
	UnparsedDates   int64   `json:"unparsed_dates"`
	FileErrors      int64   `json:"file_errors"`
	TemplateHitRate float64 `json:"template_hit_rate"`
	Period          string  `json:"period"`
}
