package recon

import "github.com/boddenberg/recomatch-go/internal/domain"

// Classifier assigns document categories from the value sets of one mapping.
type Classifier struct {
	enabled bool
	lookup  map[string]domain.Category
}

// NewClassifier normalizes the mapping's value sets. When a literal appears
// in more than one set the first set wins, in the order Invoice,
// InvoiceReturn, Payment, PaymentReturn.
func NewClassifier(m *domain.Mapping) *Classifier {
	c := &Classifier{lookup: make(map[string]domain.Category)}
	if m == nil || m.DocType == "" {
		return c
	}
	c.enabled = true

	sets := []struct {
		values []string
		cat    domain.Category
	}{
		{m.DocTypes.Invoice, domain.CategoryInvoice},
		{m.DocTypes.InvoiceReturn, domain.CategoryInvoiceReturn},
		{m.DocTypes.Payment, domain.CategoryPayment},
		{m.DocTypes.PaymentReturn, domain.CategoryPaymentReturn},
	}
	for _, set := range sets {
		for _, v := range set.values {
			key := NormalizeText(v)
			if key == "" {
				continue
			}
			if _, taken := c.lookup[key]; !taken {
				c.lookup[key] = set.cat
			}
		}
	}
	return c
}

// Classify returns the category of a raw document-type value, or Other.
func (c *Classifier) Classify(raw string) domain.Category {
	if !c.enabled {
		return domain.CategoryOther
	}
	if cat, ok := c.lookup[NormalizeText(raw)]; ok {
		return cat
	}
	return domain.CategoryOther
}
