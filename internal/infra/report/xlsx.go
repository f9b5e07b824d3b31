// Package report renders analysis results as an XLSX workbook with one flat
// table per sheet.
package report

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/recomatch-go/internal/domain"
)

var tracer = otel.Tracer("infra/report")

// Sheet names, in workbook order.
const (
	SheetSummary           = "Summary"
	SheetInvoiceMatched    = "Invoice_Matched"
	SheetInvoiceOursOnly   = "Invoice_OursOnly"
	SheetInvoiceTheirsOnly = "Invoice_TheirsOnly"
	SheetPaymentMatch      = "Payment_Match"
	SheetBalanceSummary    = "Balance_Summary"
	SheetFileErrors        = "File_Errors"
)

const (
	xlsxContentType      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	defaultWorkbookSheet = "Sheet1"
	columnWidth          = 16.0
)

type sheet struct {
	name   string
	header []string
	rows   [][]interface{}
}

// XLSXWriter implements port.ReportWriter.
type XLSXWriter struct{}

// NewXLSXWriter creates the spreadsheet report writer.
func NewXLSXWriter() *XLSXWriter { return &XLSXWriter{} }

func (XLSXWriter) ContentType() string { return xlsxContentType }

func (XLSXWriter) Extension() string { return ".xlsx" }

// Write renders r into w.
func (XLSXWriter) Write(ctx context.Context, w io.Writer, r *domain.AnalysisResult) error {
	_, span := tracer.Start(ctx, "XLSXWriter.Write")
	defer span.End()
	span.SetAttributes(attribute.String("analysis.id", r.ID))

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("report style: %w", err)
	}

	for i, s := range sheets(r) {
		if i == 0 {
			if err := f.SetSheetName(defaultWorkbookSheet, s.name); err != nil {
				return fmt.Errorf("report sheet %s: %w", s.name, err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("report sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s, bold); err != nil {
			return fmt.Errorf("report sheet %s: %w", s.name, err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("report write: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, s sheet, headerStyle int) error {
	header := make([]interface{}, len(s.header))
	for i, h := range s.header {
		header[i] = h
	}
	if err := f.SetSheetRow(s.name, "A1", &header); err != nil {
		return err
	}
	if err := f.SetRowStyle(s.name, 1, 1, headerStyle); err != nil {
		return err
	}
	for i, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return err
		}
	}
	if len(s.header) > 0 {
		last, err := excelize.ColumnNumberToName(len(s.header))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(s.name, "A", last, columnWidth); err != nil {
			return err
		}
	}
	return f.SetPanes(s.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// sheets lays out every table of r. File_Errors is present only when some
// file failed.
func sheets(r *domain.AnalysisResult) []sheet {
	out := []sheet{
		summarySheet(r),
		invoiceSheet(SheetInvoiceMatched, r.InvoicesMatched),
		invoiceSheet(SheetInvoiceOursOnly, r.InvoicesOursOnly),
		invoiceSheet(SheetInvoiceTheirsOnly, r.InvoicesTheirsOnly),
		paymentSheet(r.Payments),
		balanceSheet(r.Balances),
	}
	if len(r.FileErrors) > 0 {
		s := sheet{name: SheetFileErrors, header: []string{"Side", "File", "Error"}}
		for _, fe := range r.FileErrors {
			s.rows = append(s.rows, []interface{}{string(fe.Side), fe.File, fe.Message})
		}
		out = append(out, s)
	}
	return out
}

func summarySheet(r *domain.AnalysisResult) sheet {
	t := r.Totals
	s := sheet{name: SheetSummary, header: []string{"Metric", "Value"}}
	add := func(k string, v interface{}) { s.rows = append(s.rows, []interface{}{k, v}) }

	add("Analysis ID", r.ID)
	if !r.CreatedAt.IsZero() {
		add("Created At", r.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	}
	add("Role", string(r.Options.Role))
	add("Payment Scenario", string(r.Options.PaymentScenario))
	add("Group By Currency", r.Options.GroupByCurrency)
	add("Local Currency", r.Options.LocalCurrency)
	add("Our Rows", r.Ours.Rows)
	add("Their Rows", r.Theirs.Rows)
	add("Invoices Matched", t.InvoicesMatched)
	add("Invoices Ours Only", t.InvoicesOursOnly)
	add("Invoices Theirs Only", t.InvoicesTheirsOnly)
	add("Invoice Diff Local", money(t.InvoiceDiffLocal))
	add("Invoice Diff Foreign", money(t.InvoiceDiffForeign))
	add("Payments Matched", t.PaymentsMatched)
	add("Payments Ours Only", t.PaymentsOursOnly)
	add("Payments Theirs Only", t.PaymentsTheirsOnly)
	add("Payment Diff Local", money(t.PaymentDiffLocal))
	add("Payment Diff Foreign", money(t.PaymentDiffForeign))
	add("Unparsed Amounts", r.Ours.UnparsedAmounts+r.Theirs.UnparsedAmounts)
	add("Unparsed Dates", r.Ours.UnparsedDates+r.Theirs.UnparsedDates)
	for _, f := range r.Ours.Files {
		add("Our File", fmt.Sprintf("%s (%d rows, blake2b %s)", f.Name, f.Rows, short(f.Digest)))
	}
	for _, f := range r.Theirs.Files {
		add("Their File", fmt.Sprintf("%s (%d rows, blake2b %s)", f.Name, f.Rows, short(f.Digest)))
	}
	return s
}

func invoiceSheet(name string, records []domain.InvoiceMatch) sheet {
	ourExtra := extraColumns(len(records), func(i int) map[string]string {
		if records[i].Ours == nil {
			return nil
		}
		return records[i].Ours.Extra
	})
	theirExtra := extraColumns(len(records), func(i int) map[string]string {
		if records[i].Theirs == nil {
			return nil
		}
		return records[i].Theirs.Extra
	})

	s := sheet{name: name, header: []string{
		"Key", "Currency",
		"Our Invoice No", "Our Local", "Our Foreign", "Our Date", "Our Rows", "Our Source",
		"Their Invoice No", "Their Local", "Their Foreign", "Their Date", "Their Rows", "Their Source",
		"Diff Local", "Diff Foreign", "Status",
	}}
	for _, c := range ourExtra {
		s.header = append(s.header, "Our "+c)
	}
	for _, c := range theirExtra {
		s.header = append(s.header, "Their "+c)
	}

	for _, m := range records {
		row := []interface{}{m.Key, m.Currency}
		row = append(row, aggregateCells(m.Ours)...)
		row = append(row, aggregateCells(m.Theirs)...)
		row = append(row, money(m.DiffLocal), money(m.DiffForeign), string(m.Status))
		row = append(row, extraCells(ourExtra, m.Ours)...)
		row = append(row, extraCells(theirExtra, m.Theirs)...)
		s.rows = append(s.rows, row)
	}
	return s
}

func aggregateCells(a *domain.InvoiceAggregate) []interface{} {
	if a == nil {
		return []interface{}{"", "", "", "", "", ""}
	}
	return []interface{}{
		a.InvoiceNo, money(a.Local), money(a.Foreign), dateCell(a.LatestDate),
		a.RowCount, fmt.Sprintf("%s:%d", a.SourceFile, a.SourceRow),
	}
}

func extraCells(cols []string, a *domain.InvoiceAggregate) []interface{} {
	out := make([]interface{}, len(cols))
	for i, c := range cols {
		out[i] = ""
		if a != nil {
			out[i] = a.Extra[c]
		}
	}
	return out
}

func paymentSheet(records []domain.PaymentMatch) sheet {
	s := sheet{name: SheetPaymentMatch, header: []string{
		"Key",
		"Our Date", "Our Reference", "Our Category", "Our Currency", "Our Local", "Our Foreign", "Our Source",
		"Their Date", "Their Reference", "Their Category", "Their Currency", "Their Local", "Their Foreign", "Their Source",
		"Diff Local", "Diff Foreign", "Status",
	}}
	for _, m := range records {
		row := []interface{}{m.Key}
		row = append(row, paymentCells(m.Ours)...)
		row = append(row, paymentCells(m.Theirs)...)
		row = append(row, money(m.DiffLocal), money(m.DiffForeign), string(m.Status))
		s.rows = append(s.rows, row)
	}
	return s
}

func paymentCells(p *domain.PaymentSide) []interface{} {
	if p == nil {
		return []interface{}{"", "", "", "", "", "", ""}
	}
	return []interface{}{
		dateCell(p.Date), p.Reference, string(p.Category), p.Currency,
		money(p.Local), money(p.Foreign), fmt.Sprintf("%s:%d", p.SourceFile, p.SourceRow),
	}
}

func balanceSheet(balances []domain.BalanceSummary) sheet {
	s := sheet{name: SheetBalanceSummary, header: []string{
		"Currency", "Our Local", "Their Local", "Net Local",
		"Our Foreign", "Their Foreign", "Net Foreign", "Our Rows", "Their Rows",
	}}
	for _, b := range balances {
		s.rows = append(s.rows, []interface{}{
			b.Currency, money(b.OurLocal), money(b.TheirLocal), money(b.NetLocal),
			money(b.OurForeign), money(b.TheirForeign), money(b.NetForeign), b.OurRows, b.TheirRows,
		})
	}
	return s
}

// extraColumns collects the passthrough column names used by any record.
func extraColumns(n int, extra func(int) map[string]string) []string {
	seen := make(map[string]bool)
	var cols []string
	for i := 0; i < n; i++ {
		for c := range extra(i) {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func dateCell(d domain.Date) string {
	if !d.Valid {
		return ""
	}
	return d.String()
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
