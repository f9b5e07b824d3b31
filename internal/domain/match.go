package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchStatus is the partition a match record falls into.
type MatchStatus string

const (
	StatusMatched    MatchStatus = "matched"
	StatusOursOnly   MatchStatus = "ours_only"
	StatusTheirsOnly MatchStatus = "theirs_only"
)

// InvoiceAggregate is one side of an invoice group.
type InvoiceAggregate struct {
	InvoiceNo  string            `json:"invoice_no"`
	Local      decimal.Decimal   `json:"local"`
	Foreign    decimal.Decimal   `json:"foreign"`
	LatestDate Date              `json:"latest_date"`
	SourceFile string            `json:"source_file"`
	SourceRow  int               `json:"source_row"`
	Extra      map[string]string `json:"extra,omitempty"`
	RowCount   int               `json:"row_count"`
}

// InvoiceMatch is one outer-join record keyed by canonical invoice key.
type InvoiceMatch struct {
	Key         string            `json:"key"`
	Currency    string            `json:"currency,omitempty"`
	Ours        *InvoiceAggregate `json:"ours,omitempty"`
	Theirs      *InvoiceAggregate `json:"theirs,omitempty"`
	DiffLocal   decimal.Decimal   `json:"diff_local"`
	DiffForeign decimal.Decimal   `json:"diff_foreign"`
	Status      MatchStatus       `json:"status"`
}

// PaymentSide is one side of a payment pair.
type PaymentSide struct {
	Date       Date              `json:"date"`
	Reference  string            `json:"reference,omitempty"`
	Category   Category          `json:"category"`
	Currency   string            `json:"currency"`
	Local      decimal.Decimal   `json:"local"`
	Foreign    decimal.Decimal   `json:"foreign"`
	SourceFile string            `json:"source_file"`
	SourceRow  int               `json:"source_row"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// PaymentMatch is one outer-join record keyed by the ranked composite key.
type PaymentMatch struct {
	Key         string          `json:"key"`
	Ours        *PaymentSide    `json:"ours,omitempty"`
	Theirs      *PaymentSide    `json:"theirs,omitempty"`
	DiffLocal   decimal.Decimal `json:"diff_local"`
	DiffForeign decimal.Decimal `json:"diff_foreign"`
	Status      MatchStatus     `json:"status"`
}

// BalanceSummary holds per-currency totals of both sides.
type BalanceSummary struct {
	Currency     string          `json:"currency"`
	OurLocal     decimal.Decimal `json:"our_local"`
	TheirLocal   decimal.Decimal `json:"their_local"`
	OurForeign   decimal.Decimal `json:"our_foreign"`
	TheirForeign decimal.Decimal `json:"their_foreign"`
	NetLocal     decimal.Decimal `json:"net_local"`
	NetForeign   decimal.Decimal `json:"net_foreign"`
	OurRows      int             `json:"our_rows"`
	TheirRows    int             `json:"their_rows"`
}

// SideStats counts rows and parse fallbacks of one side.
type SideStats struct {
	Rows            int              `json:"rows"`
	ByCategory      map[Category]int `json:"by_category"`
	UnparsedAmounts int              `json:"unparsed_amounts"`
	UnparsedDates   int              `json:"unparsed_dates"`
	Files           []SourceFile     `json:"files,omitempty"`
}

// Totals are the headline numbers of a run.
type Totals struct {
	InvoiceDiffLocal   decimal.Decimal `json:"invoice_diff_local"`
	InvoiceDiffForeign decimal.Decimal `json:"invoice_diff_foreign"`
	PaymentDiffLocal   decimal.Decimal `json:"payment_diff_local"`
	PaymentDiffForeign decimal.Decimal `json:"payment_diff_foreign"`

	InvoicesMatched    int `json:"invoices_matched"`
	InvoicesOursOnly   int `json:"invoices_ours_only"`
	InvoicesTheirsOnly int `json:"invoices_theirs_only"`
	PaymentsMatched    int `json:"payments_matched"`
	PaymentsOursOnly   int `json:"payments_ours_only"`
	PaymentsTheirsOnly int `json:"payments_theirs_only"`
}

// AnalysisResult is the complete output of one run.
type AnalysisResult struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Options   RunOptions `json:"options"`

	InvoicesMatched    []InvoiceMatch   `json:"invoices_matched"`
	InvoicesOursOnly   []InvoiceMatch   `json:"invoices_ours_only"`
	InvoicesTheirsOnly []InvoiceMatch   `json:"invoices_theirs_only"`
	Payments           []PaymentMatch   `json:"payments"`
	Balances           []BalanceSummary `json:"balances"`

	Totals     Totals      `json:"totals"`
	Ours       SideStats   `json:"ours"`
	Theirs     SideStats   `json:"theirs"`
	FileErrors []FileError `json:"file_errors,omitempty"`
}

// AnalysisSummary is the compact view returned after a run.
type AnalysisSummary struct {
	ID         string           `json:"id"`
	CreatedAt  time.Time        `json:"created_at"`
	Totals     Totals           `json:"totals"`
	Balances   []BalanceSummary `json:"balances"`
	Ours       SideStats        `json:"ours"`
	Theirs     SideStats        `json:"theirs"`
	FileErrors []FileError      `json:"file_errors,omitempty"`
}

// Summary returns the compact view of the result.
func (r *AnalysisResult) Summary() *AnalysisSummary {
	return &AnalysisSummary{
		ID:         r.ID,
		CreatedAt:  r.CreatedAt,
		Totals:     r.Totals,
		Balances:   r.Balances,
		Ours:       r.Ours,
		Theirs:     r.Theirs,
		FileErrors: r.FileErrors,
	}
}
