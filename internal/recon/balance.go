package recon

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/recomatch-go/internal/domain"
)

// Balances sums every row of each side per currency, regardless of
// category, and outer-joins the two sides. Net values are our + their.
func Balances(ours, theirs []domain.LedgerRow) []domain.BalanceSummary {
	byCurrency := make(map[string]*domain.BalanceSummary)
	get := func(cur string) *domain.BalanceSummary {
		b, ok := byCurrency[cur]
		if !ok {
			b = &domain.BalanceSummary{
				Currency:     cur,
				OurLocal:     decimal.Zero,
				TheirLocal:   decimal.Zero,
				OurForeign:   decimal.Zero,
				TheirForeign: decimal.Zero,
			}
			byCurrency[cur] = b
		}
		return b
	}

	for _, r := range ours {
		b := get(r.Currency)
		b.OurLocal = b.OurLocal.Add(r.SignedLocal)
		b.OurForeign = b.OurForeign.Add(r.SignedForeign)
		b.OurRows++
	}
	for _, r := range theirs {
		b := get(r.Currency)
		b.TheirLocal = b.TheirLocal.Add(r.SignedLocal)
		b.TheirForeign = b.TheirForeign.Add(r.SignedForeign)
		b.TheirRows++
	}

	out := make([]domain.BalanceSummary, 0, len(byCurrency))
	for _, b := range byCurrency {
		b.NetLocal = b.OurLocal.Add(b.TheirLocal)
		b.NetForeign = b.OurForeign.Add(b.TheirForeign)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}
