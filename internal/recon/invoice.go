package recon

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/recomatch-go/internal/domain"
)

type invoiceGroupKey struct {
	key      string
	currency string
}

// InvoiceOptions controls invoice grouping.
type InvoiceOptions struct {
	ByCurrency  bool
	OursExtra   []string
	TheirsExtra []string
}

// InvoiceMatches groups the invoice rows of both sides and outer-joins them
// on the canonical key, plus currency when ByCurrency is set. Every key
// from either side yields exactly one record, sorted by key then currency.
func InvoiceMatches(ours, theirs []domain.LedgerRow, opts InvoiceOptions) []domain.InvoiceMatch {
	ourGroups := groupInvoices(ours, opts.ByCurrency, opts.OursExtra)
	theirGroups := groupInvoices(theirs, opts.ByCurrency, opts.TheirsExtra)

	keys := make([]invoiceGroupKey, 0, len(ourGroups)+len(theirGroups))
	for k := range ourGroups {
		keys = append(keys, k)
	}
	for k := range theirGroups {
		if _, ok := ourGroups[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].key != keys[j].key {
			return keys[i].key < keys[j].key
		}
		return keys[i].currency < keys[j].currency
	})

	out := make([]domain.InvoiceMatch, 0, len(keys))
	for _, k := range keys {
		m := domain.InvoiceMatch{
			Key:         k.key,
			Currency:    k.currency,
			Ours:        ourGroups[k],
			Theirs:      theirGroups[k],
			DiffLocal:   decimal.Zero,
			DiffForeign: decimal.Zero,
		}
		if m.Ours != nil {
			m.DiffLocal = m.DiffLocal.Add(m.Ours.Local)
			m.DiffForeign = m.DiffForeign.Add(m.Ours.Foreign)
		}
		if m.Theirs != nil {
			m.DiffLocal = m.DiffLocal.Sub(m.Theirs.Local)
			m.DiffForeign = m.DiffForeign.Sub(m.Theirs.Foreign)
		}
		m.Status = status(m.Ours != nil, m.Theirs != nil)
		out = append(out, m)
	}
	return out
}

// PartitionInvoices splits records by status, preserving order.
func PartitionInvoices(all []domain.InvoiceMatch) (matched, oursOnly, theirsOnly []domain.InvoiceMatch) {
	matched = []domain.InvoiceMatch{}
	oursOnly = []domain.InvoiceMatch{}
	theirsOnly = []domain.InvoiceMatch{}
	for _, m := range all {
		switch m.Status {
		case domain.StatusMatched:
			matched = append(matched, m)
		case domain.StatusOursOnly:
			oursOnly = append(oursOnly, m)
		default:
			theirsOnly = append(theirsOnly, m)
		}
	}
	return matched, oursOnly, theirsOnly
}

func groupInvoices(rows []domain.LedgerRow, byCurrency bool, extra []string) map[invoiceGroupKey]*domain.InvoiceAggregate {
	groups := make(map[invoiceGroupKey]*domain.InvoiceAggregate)
	for _, r := range rows {
		if !r.Category.IsInvoice() {
			continue
		}
		k := invoiceGroupKey{key: r.InvoiceKey}
		if byCurrency {
			k.currency = r.Currency
		}

		agg, ok := groups[k]
		if !ok {
			agg = &domain.InvoiceAggregate{
				Local:      decimal.Zero,
				Foreign:    decimal.Zero,
				SourceFile: r.SourceFile,
				SourceRow:  r.SourceRow,
			}
			groups[k] = agg
		}
		agg.RowCount++
		agg.Local = agg.Local.Add(r.SignedLocal)
		agg.Foreign = agg.Foreign.Add(r.SignedForeign)
		if agg.LatestDate.Before(r.Date) {
			agg.LatestDate = r.Date
		}
		if agg.InvoiceNo == "" {
			agg.InvoiceNo = r.InvoiceNo
		}
		fillExtra(&agg.Extra, r.Fields, extra)
	}
	return groups
}

// fillExtra sets each passthrough column to the first non-empty value seen.
func fillExtra(dst *map[string]string, fields map[string]string, extra []string) {
	for _, c := range extra {
		v := fields[c]
		if v == "" {
			continue
		}
		if *dst == nil {
			*dst = make(map[string]string, len(extra))
		}
		if _, set := (*dst)[c]; !set {
			(*dst)[c] = v
		}
	}
}

func status(ours, theirs bool) domain.MatchStatus {
	switch {
	case ours && theirs:
		return domain.StatusMatched
	case ours:
		return domain.StatusOursOnly
	default:
		return domain.StatusTheirsOnly
	}
}
