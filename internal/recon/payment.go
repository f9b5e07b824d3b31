package recon

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/recomatch-go/internal/domain"
)

// PaymentOptions controls payment key construction.
type PaymentOptions struct {
	Scenario    domain.PaymentScenario
	OursExtra   []string
	TheirsExtra []string
}

// PaymentBaseKey is the composite key of a payment row before ranking:
// date, then reference or category depending on the scenario, then the
// absolute local amount at two decimals.
func PaymentBaseKey(r domain.LedgerRow, scenario domain.PaymentScenario) string {
	mid := string(r.Category)
	if scenario == domain.ScenarioReferenceAmount {
		mid = NormalizeText(r.Reference)
	}
	return r.Date.String() + "|" + mid + "|" + r.SignedLocal.Abs().StringFixed(2)
}

type rankedPayment struct {
	key string
	row domain.LedgerRow
}

// rankPayments keys every payment row of one side. Rows sharing a base key
// get ranks 1..N ordered by date, absolute amount and original position.
func rankPayments(rows []domain.LedgerRow, scenario domain.PaymentScenario) []rankedPayment {
	var payments []domain.LedgerRow
	for _, r := range rows {
		if r.Category.IsPayment() {
			payments = append(payments, r)
		}
	}

	order := make([]int, len(payments))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := payments[order[a]], payments[order[b]]
		if ra.Date.Before(rb.Date) {
			return true
		}
		if rb.Date.Before(ra.Date) {
			return false
		}
		if c := ra.SignedLocal.Abs().Cmp(rb.SignedLocal.Abs()); c != 0 {
			return c < 0
		}
		return order[a] < order[b]
	})

	seen := make(map[string]int, len(payments))
	out := make([]rankedPayment, 0, len(payments))
	for _, i := range order {
		base := PaymentBaseKey(payments[i], scenario)
		seen[base]++
		out = append(out, rankedPayment{
			key: base + "#" + strconv.Itoa(seen[base]),
			row: payments[i],
		})
	}
	return out
}

// PaymentMatches pairs payment rows one to one on their ranked keys and
// returns the outer join sorted by key. The diff is our + their: a true
// match sums to zero under the opposite role conventions of the two sides.
func PaymentMatches(ours, theirs []domain.LedgerRow, opts PaymentOptions) []domain.PaymentMatch {
	byKey := make(map[string]*domain.PaymentMatch)
	var keys []string

	add := func(ranked []rankedPayment, extra []string, ourSide bool) {
		for _, rp := range ranked {
			m, ok := byKey[rp.key]
			if !ok {
				m = &domain.PaymentMatch{Key: rp.key}
				byKey[rp.key] = m
				keys = append(keys, rp.key)
			}
			ps := paymentSide(rp.row, extra)
			if ourSide {
				m.Ours = ps
			} else {
				m.Theirs = ps
			}
		}
	}
	add(rankPayments(ours, opts.Scenario), opts.OursExtra, true)
	add(rankPayments(theirs, opts.Scenario), opts.TheirsExtra, false)

	sort.Strings(keys)
	out := make([]domain.PaymentMatch, 0, len(keys))
	for _, k := range keys {
		m := byKey[k]
		m.DiffLocal, m.DiffForeign = decimal.Zero, decimal.Zero
		if m.Ours != nil {
			m.DiffLocal = m.DiffLocal.Add(m.Ours.Local)
			m.DiffForeign = m.DiffForeign.Add(m.Ours.Foreign)
		}
		if m.Theirs != nil {
			m.DiffLocal = m.DiffLocal.Add(m.Theirs.Local)
			m.DiffForeign = m.DiffForeign.Add(m.Theirs.Foreign)
		}
		m.Status = status(m.Ours != nil, m.Theirs != nil)
		out = append(out, *m)
	}
	return out
}

func paymentSide(r domain.LedgerRow, extra []string) *domain.PaymentSide {
	ps := &domain.PaymentSide{
		Date:       r.Date,
		Reference:  r.Reference,
		Category:   r.Category,
		Currency:   r.Currency,
		Local:      r.SignedLocal,
		Foreign:    r.SignedForeign,
		SourceFile: r.SourceFile,
		SourceRow:  r.SourceRow,
	}
	fillExtra(&ps.Extra, r.Fields, extra)
	return ps
}
