package recon

import (
	"github.com/boddenberg/recomatch-go/internal/domain"
)

// BuildRows turns the raw rows of one side into normalized, classified and
// signed ledger rows, and counts what it saw.
func BuildRows(raw []domain.RawRow, side domain.Side, m *domain.Mapping, opts domain.RunOptions) ([]domain.LedgerRow, domain.SideStats) {
	role := opts.Role
	if m.Role != "" {
		role = m.Role
	}
	classifier := NewClassifier(m)
	directions := newDirectionResolver(m)

	stats := domain.SideStats{ByCategory: make(map[domain.Category]int)}
	rows := make([]domain.LedgerRow, 0, len(raw))

	for _, r := range raw {
		row := domain.LedgerRow{
			Side:       side,
			SourceFile: r.SourceFile,
			SourceRow:  r.SourceRow,
			Fields:     projectFields(r, m),
			InvoiceNo:  r.Get(m.InvoiceNo),
			Reference:  r.Get(m.PaymentRef),
			DocType:    r.Get(m.DocType),
			Currency:   NormalizeCurrency(r.Get(m.Currency), opts.LocalCurrency),
			DateParsed: true,
		}
		row.InvoiceKey = InvoiceKeySuffix(InvoiceKey(row.InvoiceNo), opts.KeyDigits())
		row.Category = classifier.Classify(row.DocType)

		if m.Date != "" {
			cell := r.Get(m.Date)
			row.Date = ParseDate(cell)
			row.DateParsed = row.Date.Valid || cell == ""
		}

		signed := Sign(SignInput{
			Role:      role,
			Category:  row.Category,
			Direction: directions.resolve(r.Get(m.Direction)),
			Local:     amountInput(r, m.Local),
			Foreign:   amountInput(r, m.Foreign),
		})
		row.SignedLocal = signed.Local
		row.SignedForeign = signed.Foreign
		row.LocalParsed = signed.LocalParsed
		row.ForeignParsed = signed.ForeignParsed

		stats.Rows++
		stats.ByCategory[row.Category]++
		if !row.LocalParsed || !row.ForeignParsed {
			stats.UnparsedAmounts++
		}
		if !row.DateParsed {
			stats.UnparsedDates++
		}
		rows = append(rows, row)
	}
	return rows, stats
}

func amountInput(r domain.RawRow, spec domain.AmountSpec) AmountInput {
	if !spec.Configured() {
		return AmountInput{}
	}
	return AmountInput{
		Mode:   spec.Mode,
		Signed: spec.Signed,
		Value:  r.Get(spec.Column),
		Debit:  r.Get(spec.Debit),
		Credit: r.Get(spec.Credit),
	}
}

// projectFields keeps only the columns the mapping references.
func projectFields(r domain.RawRow, m *domain.Mapping) map[string]string {
	cols := m.Columns()
	out := make(map[string]string, len(cols))
	for _, c := range cols {
		if v, ok := r.Fields[c]; ok {
			out[c] = v
		}
	}
	return out
}

type directionResolver struct {
	enabled bool
	values  map[string]Direction
}

func newDirectionResolver(m *domain.Mapping) directionResolver {
	d := directionResolver{values: make(map[string]Direction)}
	if m.Direction == "" {
		return d
	}
	d.enabled = true

	dv := m.DirectionValues
	if len(dv.Debit) == 0 && len(dv.Credit) == 0 {
		dv = domain.DefaultDirectionValues
	}
	for _, v := range dv.Debit {
		d.values[NormalizeText(v)] = DirectionDebit
	}
	for _, v := range dv.Credit {
		if _, taken := d.values[NormalizeText(v)]; !taken {
			d.values[NormalizeText(v)] = DirectionCredit
		}
	}
	return d
}

func (d directionResolver) resolve(raw string) Direction {
	if !d.enabled {
		return DirectionNone
	}
	return d.values[NormalizeText(raw)]
}
