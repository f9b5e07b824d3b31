package observability_test

import (
	"testing"
	"time"

	"github.com/boddenberg/recomatch-go/internal/domain"
	"github.com/boddenberg/recomatch-go/internal/infra/observability"
)

func TestMetrics_RunSnapshot(t *testing.T) {
	m := observability.NewMetrics()

	m.IncrRun(observability.RunSuccess)
	m.IncrRun(observability.RunSuccess)
	m.IncrRun(observability.RunSuccess)
	m.IncrRun(observability.RunInvalid)
	m.IncrRun(observability.RunRejected)
	m.IncrCacheHit("template")
	m.IncrCacheMiss("template")
	m.RecordDuration("analyze", 100*time.Millisecond)
	m.RecordDuration("analyze", 300*time.Millisecond)

	m.RecordResult(&domain.AnalysisResult{
		Totals: domain.Totals{
			InvoicesMatched:    4,
			InvoicesOursOnly:   1,
			InvoicesTheirsOnly: 2,
			PaymentsMatched:    3,
			PaymentsTheirsOnly: 1,
		},
		Ours:       domain.SideStats{Rows: 10, UnparsedAmounts: 1},
		Theirs:     domain.SideStats{Rows: 8, UnparsedDates: 2},
		FileErrors: []domain.FileError{{Side: domain.SideTheirs, File: "b.csv", Message: "empty"}},
	})

	snap := m.GetRunSnapshot()
	if snap.TotalRuns != 4 || snap.FailedRuns != 1 || snap.RejectedRuns != 1 {
		t.Errorf("unexpected run counts %+v", snap)
	}
	if snap.ErrorRate != 0.25 {
		t.Errorf("expected error rate 0.25, got %v", snap.ErrorRate)
	}
	if snap.TemplateHitRate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %v", snap.TemplateHitRate)
	}
	if snap.AvgRunMs < 199 || snap.AvgRunMs > 201 {
		t.Errorf("expected ~200ms average, got %v", snap.AvgRunMs)
	}
	if snap.RowsOurs != 10 || snap.RowsTheirs != 8 {
		t.Errorf("unexpected row counts %+v", snap)
	}
	if snap.InvoicesMatched != 4 || snap.InvoicesOpen != 3 || snap.PaymentsMatched != 3 || snap.PaymentsOpen != 1 {
		t.Errorf("unexpected match counts %+v", snap)
	}
	if snap.UnparsedAmounts != 1 || snap.UnparsedDates != 2 || snap.FileErrors != 1 {
		t.Errorf("unexpected audit counts %+v", snap)
	}
}

func TestMetrics_EmptySnapshot(t *testing.T) {
	snap := observability.NewMetrics().GetRunSnapshot()
	if snap.TotalRuns != 0 || snap.ErrorRate != 0 || snap.AvgRunMs != 0 {
		t.Errorf("expected zero snapshot, got %+v", snap)
	}
	if snap.Period != "all_time" {
		t.Errorf("expected all_time period, got %s", snap.Period)
	}
}
