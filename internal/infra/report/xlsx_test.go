package report_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/boddenberg/recomatch-go/internal/domain"
	"github.com/boddenberg/recomatch-go/internal/infra/report"
)

func sampleResult() *domain.AnalysisResult {
	d := domain.NewDate(2024, 1, 10)
	return &domain.AnalysisResult{
		ID:      "run-1",
		Options: domain.RunOptions{Role: domain.RoleBuyer, PaymentScenario: domain.ScenarioReferenceAmount, LocalCurrency: "TRY"},
		InvoicesMatched: []domain.InvoiceMatch{{
			Key:    "INV001",
			Ours:   &domain.InvoiceAggregate{InvoiceNo: "INV-001", Local: decimal.NewFromInt(1000), LatestDate: d, RowCount: 1, SourceFile: "ours.csv", SourceRow: 1, Extra: map[string]string{"Açıklama": "ilk"}},
			Theirs: &domain.InvoiceAggregate{InvoiceNo: "inv001", Local: decimal.NewFromInt(1000), LatestDate: d, RowCount: 1, SourceFile: "theirs.csv", SourceRow: 4},
			Status: domain.StatusMatched,
		}},
		InvoicesOursOnly:   []domain.InvoiceMatch{},
		InvoicesTheirsOnly: []domain.InvoiceMatch{},
		Payments: []domain.PaymentMatch{{
			Key:       "2024-01-10|R1|500.00#1",
			Ours:      &domain.PaymentSide{Date: d, Reference: "R1", Category: domain.CategoryPayment, Currency: "TRY", Local: decimal.NewFromInt(-500)},
			DiffLocal: decimal.NewFromInt(-500),
			Status:    domain.StatusOursOnly,
		}},
		Balances: []domain.BalanceSummary{{
			Currency: "TRY", OurLocal: decimal.NewFromInt(500), TheirLocal: decimal.NewFromInt(1000), NetLocal: decimal.NewFromInt(1500),
		}},
		FileErrors: []domain.FileError{{Side: domain.SideTheirs, File: "bad.pdf", Message: "unsupported"}},
	}
}

func TestXLSXWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	w := report.NewXLSXWriter()
	if err := w.Write(context.Background(), &buf, sampleResult()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer f.Close()

	want := []string{
		report.SheetSummary, report.SheetInvoiceMatched, report.SheetInvoiceOursOnly,
		report.SheetInvoiceTheirsOnly, report.SheetPaymentMatch, report.SheetBalanceSummary,
		report.SheetFileErrors,
	}
	got := f.GetSheetList()
	if len(got) != len(want) {
		t.Fatalf("expected sheets %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sheet %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	rows, err := f.GetRows(report.SheetInvoiceMatched)
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and one record, got %d rows", len(rows))
	}
	header := rows[0]
	if header[0] != "Key" || header[len(header)-1] != "Our Açıklama" {
		t.Errorf("unexpected header %q", header)
	}
	if rows[1][0] != "INV001" || rows[1][2] != "INV-001" || rows[1][3] != "1000" {
		t.Errorf("unexpected record %q", rows[1])
	}

	if v, _ := f.GetCellValue(report.SheetPaymentMatch, "A2"); v != "2024-01-10|R1|500.00#1" {
		t.Errorf("unexpected payment key %q", v)
	}
	if v, _ := f.GetCellValue(report.SheetBalanceSummary, "D2"); v != "1500" {
		t.Errorf("expected net 1500, got %q", v)
	}
	if v, _ := f.GetCellValue(report.SheetFileErrors, "B2"); v != "bad.pdf" {
		t.Errorf("expected failed file name, got %q", v)
	}
}

func TestXLSXWriter_EmptyResult(t *testing.T) {
	var buf bytes.Buffer
	if err := report.NewXLSXWriter().Write(context.Background(), &buf, &domain.AnalysisResult{ID: "empty"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer f.Close()
	if n := len(f.GetSheetList()); n != 6 {
		t.Errorf("expected 6 sheets without file errors, got %d", n)
	}
}
