package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Side identifies which of the two ledgers a row comes from.
type Side string

const (
	SideOurs   Side = "ours"
	SideTheirs Side = "theirs"
)

// Role is the reporting party's position in the commercial relationship.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// Category classifies a ledger row.
type Category string

const (
	CategoryInvoice       Category = "Invoice"
	CategoryInvoiceReturn Category = "InvoiceReturn"
	CategoryPayment       Category = "Payment"
	CategoryPaymentReturn Category = "PaymentReturn"
	CategoryOther         Category = "Other"
)

// IsInvoice reports whether the category belongs to the invoice family.
func (c Category) IsInvoice() bool {
	return c == CategoryInvoice || c == CategoryInvoiceReturn
}

// IsPayment reports whether the category belongs to the payment family.
func (c Category) IsPayment() bool {
	return c == CategoryPayment || c == CategoryPaymentReturn
}

// Date is a calendar date that may be null.
type Date struct {
	Time  time.Time
	Valid bool
}

// NewDate builds a valid date at UTC midnight.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), Valid: true}
}

// String returns YYYY-MM-DD, or "null" for a null date.
func (d Date) String() string {
	if !d.Valid {
		return "null"
	}
	return d.Time.Format("2006-01-02")
}

// Before orders null dates first.
func (d Date) Before(o Date) bool {
	switch {
	case !d.Valid:
		return o.Valid
	case !o.Valid:
		return false
	default:
		return d.Time.Before(o.Time)
	}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// RawRow is one row as produced by a table reader: trimmed header names
// mapped to trimmed cell text.
type RawRow struct {
	Fields     map[string]string
	SourceFile string
	SourceRow  int
}

// Get returns the trimmed value of a column, or "" when the column is
// unset or missing.
func (r RawRow) Get(column string) string {
	if column == "" {
		return ""
	}
	return r.Fields[column]
}

// Table is the concatenation of every file read for one side.
type Table struct {
	Side    Side
	Columns []string
	Rows    []RawRow
	Files   []SourceFile
}

// SourceFile describes one file that was read successfully.
type SourceFile struct {
	Name   string `json:"name"`
	Digest string `json:"digest"`
	Rows   int    `json:"rows"`
}

// FileError records a file that could not be read. The run continues
// with the remaining files of that side.
type FileError struct {
	Side    Side   `json:"side"`
	File    string `json:"file"`
	Message string `json:"message"`
}

// LedgerRow is a normalized, classified and signed transaction line.
type LedgerRow struct {
	Side       Side              `json:"side"`
	SourceFile string            `json:"source_file"`
	SourceRow  int               `json:"source_row"`
	Fields     map[string]string `json:"fields,omitempty"`

	InvoiceNo  string   `json:"invoice_no"`
	InvoiceKey string   `json:"invoice_key"`
	Reference  string   `json:"reference,omitempty"`
	DocType    string   `json:"doc_type,omitempty"`
	Category   Category `json:"category"`
	Date       Date     `json:"date"`
	Currency   string   `json:"currency"`

	SignedLocal   decimal.Decimal `json:"signed_local"`
	SignedForeign decimal.Decimal `json:"signed_foreign"`

	// Parse audit: false when a configured amount or date could not be read
	// and the zero/null fallback was used.
	LocalParsed   bool `json:"local_parsed"`
	ForeignParsed bool `json:"foreign_parsed"`
	DateParsed    bool `json:"date_parsed"`
}
