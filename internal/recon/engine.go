package recon

import (
	"github.com/shopspring/decimal"

	"github.com/boddenberg/recomatch-go/internal/domain"
)

// Input is one analysis: both sides' tables and their configuration.
type Input struct {
	Ours   *domain.Table
	Theirs *domain.Table
	Config domain.RunConfig
}

// Run executes the whole pipeline. It fails only on invalid configuration;
// bad cell values are absorbed and counted in the side stats. The caller
// assigns ID and CreatedAt.
func Run(in Input) (*domain.AnalysisResult, error) {
	cfg := in.Config
	cfg.Options = cfg.Options.WithDefaults(DefaultLocalCurrency)
	if err := cfg.Ours.Validate(domain.SideOurs); err != nil {
		return nil, err
	}
	if err := cfg.Theirs.Validate(domain.SideTheirs); err != nil {
		return nil, err
	}
	if err := cfg.Options.Validate(); err != nil {
		return nil, err
	}

	ourRows, ourStats := BuildRows(tableRows(in.Ours), domain.SideOurs, cfg.Ours, cfg.Options)
	theirRows, theirStats := BuildRows(tableRows(in.Theirs), domain.SideTheirs, cfg.Theirs, cfg.Options)
	ourStats.Files = tableFiles(in.Ours)
	theirStats.Files = tableFiles(in.Theirs)

	invoices := InvoiceMatches(ourRows, theirRows, InvoiceOptions{
		ByCurrency:  cfg.Options.GroupByCurrency && cfg.Ours.Currency != "" && cfg.Theirs.Currency != "",
		OursExtra:   cfg.Ours.Extra,
		TheirsExtra: cfg.Theirs.Extra,
	})
	payments := PaymentMatches(ourRows, theirRows, PaymentOptions{
		Scenario:    cfg.Options.PaymentScenario,
		OursExtra:   cfg.Ours.Extra,
		TheirsExtra: cfg.Theirs.Extra,
	})

	res := &domain.AnalysisResult{
		Options:  cfg.Options,
		Payments: payments,
		Balances: Balances(ourRows, theirRows),
		Ours:     ourStats,
		Theirs:   theirStats,
	}
	res.InvoicesMatched, res.InvoicesOursOnly, res.InvoicesTheirsOnly = PartitionInvoices(invoices)
	res.Totals = totals(invoices, payments)
	return res, nil
}

func totals(invoices []domain.InvoiceMatch, payments []domain.PaymentMatch) domain.Totals {
	t := domain.Totals{
		InvoiceDiffLocal:   decimal.Zero,
		InvoiceDiffForeign: decimal.Zero,
		PaymentDiffLocal:   decimal.Zero,
		PaymentDiffForeign: decimal.Zero,
	}
	for _, m := range invoices {
		t.InvoiceDiffLocal = t.InvoiceDiffLocal.Add(m.DiffLocal)
		t.InvoiceDiffForeign = t.InvoiceDiffForeign.Add(m.DiffForeign)
		switch m.Status {
		case domain.StatusMatched:
			t.InvoicesMatched++
		case domain.StatusOursOnly:
			t.InvoicesOursOnly++
		default:
			t.InvoicesTheirsOnly++
		}
	}
	for _, m := range payments {
		t.PaymentDiffLocal = t.PaymentDiffLocal.Add(m.DiffLocal)
		t.PaymentDiffForeign = t.PaymentDiffForeign.Add(m.DiffForeign)
		switch m.Status {
		case domain.StatusMatched:
			t.PaymentsMatched++
		case domain.StatusOursOnly:
			t.PaymentsOursOnly++
		default:
			t.PaymentsTheirsOnly++
		}
	}
	return t
}

func tableRows(t *domain.Table) []domain.RawRow {
	if t == nil {
		return nil
	}
	return t.Rows
}

func tableFiles(t *domain.Table) []domain.SourceFile {
	if t == nil {
		return nil
	}
	return t.Files
}
