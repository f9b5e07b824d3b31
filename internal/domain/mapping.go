package domain

import "strings"

// AmountMode describes how an amount is laid out in the source ledger.
type AmountMode string

const (
	AmountNone     AmountMode = ""
	AmountSingle   AmountMode = "single"
	AmountSeparate AmountMode = "separate"
)

// AmountSpec locates an amount: one column, or separate debit/credit columns.
type AmountSpec struct {
	Mode   AmountMode `json:"mode"`
	Column string     `json:"column,omitempty"`
	Debit  string     `json:"debit,omitempty"`
	Credit string     `json:"credit,omitempty"`
	// Signed marks a single column whose values already carry their sign.
	Signed bool `json:"signed,omitempty"`
}

// Configured reports whether the spec points at any column.
func (a AmountSpec) Configured() bool {
	switch a.Mode {
	case AmountSingle:
		return a.Column != ""
	case AmountSeparate:
		return a.Debit != "" || a.Credit != ""
	default:
		return false
	}
}

// DocTypeSets are the raw document-type literals the user assigned to each
// category.
type DocTypeSets struct {
	Invoice       []string `json:"invoice,omitempty"`
	InvoiceReturn []string `json:"invoice_return,omitempty"`
	Payment       []string `json:"payment,omitempty"`
	PaymentReturn []string `json:"payment_return,omitempty"`
}

// DirectionValues are the literals meaning debit or credit in an explicit
// direction column.
type DirectionValues struct {
	Debit  []string `json:"debit,omitempty"`
	Credit []string `json:"credit,omitempty"`
}

// DefaultDirectionValues covers Turkish and English bookkeeping exports.
var DefaultDirectionValues = DirectionValues{
	Debit:  []string{"B", "BORÇ", "BORC", "DEBIT", "D", "DR"},
	Credit: []string{"A", "ALACAK", "CREDIT", "C", "CR"},
}

// Mapping is the column mapping for one side of a run.
type Mapping struct {
	InvoiceNo  string `json:"invoice_no"`
	Date       string `json:"date,omitempty"`
	Currency   string `json:"currency,omitempty"`
	PaymentRef string `json:"payment_ref,omitempty"`
	DocType    string `json:"doc_type,omitempty"`
	Direction  string `json:"direction,omitempty"`

	Local   AmountSpec `json:"local"`
	Foreign AmountSpec `json:"foreign"`

	DocTypes        DocTypeSets     `json:"doc_types"`
	DirectionValues DirectionValues `json:"direction_values"`

	Extra []string `json:"extra,omitempty"`

	// Role overrides the run-wide role for this side when set.
	Role Role `json:"role,omitempty"`
}

// Validate checks the fields the engine cannot run without.
func (m *Mapping) Validate(side Side) error {
	if m == nil || strings.TrimSpace(m.InvoiceNo) == "" {
		return &ErrValidation{Field: string(side) + ".invoice_no", Message: "invoice number column is required"}
	}
	if m.Role != "" && m.Role != RoleBuyer && m.Role != RoleSeller {
		return &ErrValidation{Field: string(side) + ".role", Message: "must be buyer or seller"}
	}
	for _, spec := range []struct {
		name string
		a    AmountSpec
	}{{"local", m.Local}, {"foreign", m.Foreign}} {
		switch spec.a.Mode {
		case AmountNone, AmountSingle, AmountSeparate:
		default:
			return &ErrValidation{Field: string(side) + "." + spec.name + ".mode", Message: "must be single or separate"}
		}
	}
	return nil
}

// Columns lists every column the mapping references, in a stable order.
func (m *Mapping) Columns() []string {
	var cols []string
	add := func(c string) {
		if c != "" {
			cols = append(cols, c)
		}
	}
	add(m.InvoiceNo)
	add(m.Date)
	add(m.Currency)
	add(m.PaymentRef)
	add(m.DocType)
	add(m.Direction)
	for _, a := range []AmountSpec{m.Local, m.Foreign} {
		add(a.Column)
		add(a.Debit)
		add(a.Credit)
	}
	for _, c := range m.Extra {
		add(c)
	}
	return cols
}

// PaymentScenario selects the middle component of the payment key.
type PaymentScenario string

const (
	ScenarioReferenceAmount PaymentScenario = "reference_amount"
	ScenarioTypeAmount      PaymentScenario = "type_amount"
)

// RunOptions are the run-wide settings shared by both sides.
type RunOptions struct {
	Role            Role            `json:"role"`
	GroupByCurrency bool            `json:"group_by_currency"`
	PaymentScenario PaymentScenario `json:"payment_scenario"`
	LocalCurrency   string          `json:"local_currency"`
	// InvoiceKeyDigits, when positive, reduces invoice keys to their last
	// N digits. Nil defers to the server default; an explicit 0 keeps the
	// full key.
	InvoiceKeyDigits *int `json:"invoice_key_digits,omitempty"`
}

// KeyDigits is the effective invoice key suffix length, 0 for the full key.
func (o RunOptions) KeyDigits() int {
	if o.InvoiceKeyDigits == nil {
		return 0
	}
	return *o.InvoiceKeyDigits
}

// WithDefaults fills unset options.
func (o RunOptions) WithDefaults(localCurrency string) RunOptions {
	if o.Role == "" {
		o.Role = RoleBuyer
	}
	if o.PaymentScenario == "" {
		o.PaymentScenario = ScenarioReferenceAmount
	}
	if o.LocalCurrency == "" {
		o.LocalCurrency = localCurrency
	}
	if o.LocalCurrency == "" {
		o.LocalCurrency = "TRY"
	}
	return o
}

// Validate checks option values.
func (o RunOptions) Validate() error {
	if o.Role != RoleBuyer && o.Role != RoleSeller {
		return &ErrValidation{Field: "options.role", Message: "must be buyer or seller"}
	}
	if o.PaymentScenario != ScenarioReferenceAmount && o.PaymentScenario != ScenarioTypeAmount {
		return &ErrValidation{Field: "options.payment_scenario", Message: "must be reference_amount or type_amount"}
	}
	if o.KeyDigits() < 0 {
		return &ErrValidation{Field: "options.invoice_key_digits", Message: "must not be negative"}
	}
	return nil
}

// RunConfig is everything the engine reads for one analysis.
type RunConfig struct {
	Ours    *Mapping   `json:"ours"`
	Theirs  *Mapping   `json:"theirs"`
	Options RunOptions `json:"options"`
}
