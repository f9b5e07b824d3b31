package recon

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/recomatch-go/internal/domain"
)

// Direction is the value of an explicit debit/credit indicator column.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionDebit
	DirectionCredit
)

// AmountInput carries the raw cells of one amount (local or foreign).
type AmountInput struct {
	Mode   domain.AmountMode
	Signed bool
	Value  string
	Debit  string
	Credit string
}

// SignInput is everything the sign calculation of one row depends on.
type SignInput struct {
	Role      domain.Role
	Category  domain.Category
	Direction Direction
	Local     AmountInput
	Foreign   AmountInput
}

// SignOutput holds the signed amounts. A Parsed flag is false when a
// non-empty cell could not be read and zero was used instead.
type SignOutput struct {
	Local         decimal.Decimal
	Foreign       decimal.Decimal
	LocalParsed   bool
	ForeignParsed bool
}

var one = decimal.NewFromInt(1)

// RoleMultiplier is the sign applied to an unsigned single-column amount.
//
//	         Invoice  InvoiceReturn  Payment  PaymentReturn
//	Buyer      +1         -1           -1          +1
//	Seller     -1         +1           +1          -1
//
// Other rows keep their parsed value.
func RoleMultiplier(role domain.Role, cat domain.Category) decimal.Decimal {
	var buyer int64
	switch cat {
	case domain.CategoryInvoice, domain.CategoryPaymentReturn:
		buyer = 1
	case domain.CategoryInvoiceReturn, domain.CategoryPayment:
		buyer = -1
	default:
		return one
	}
	if role == domain.RoleSeller {
		buyer = -buyer
	}
	return decimal.NewFromInt(buyer)
}

// Sign computes the signed local and foreign amounts of one row. It never
// fails: unreadable or missing values become zero.
func Sign(in SignInput) SignOutput {
	var out SignOutput

	// local debit/credit evidence for the foreign amount
	localDir := DirectionNone

	switch in.Local.Mode {
	case domain.AmountSeparate:
		debit, dOK := parseCell(in.Local.Debit)
		credit, cOK := parseCell(in.Local.Credit)
		out.Local = credit.Sub(debit)
		out.LocalParsed = dOK && cOK
		switch {
		case !debit.IsZero() && credit.IsZero():
			localDir = DirectionDebit
		case debit.IsZero() && !credit.IsZero():
			localDir = DirectionCredit
		}
	case domain.AmountSingle:
		v, ok := parseCell(in.Local.Value)
		out.Local = signSingle(v, in.Local.Signed, in.Direction, in.Role, in.Category)
		out.LocalParsed = ok
	default:
		out.Local = decimal.Zero
		out.LocalParsed = true
	}

	switch in.Foreign.Mode {
	case domain.AmountSeparate:
		debit, dOK := parseCell(in.Foreign.Debit)
		credit, cOK := parseCell(in.Foreign.Credit)
		out.Foreign = credit.Sub(debit)
		out.ForeignParsed = dOK && cOK
	case domain.AmountSingle:
		v, ok := parseCell(in.Foreign.Value)
		out.ForeignParsed = ok
		switch {
		case in.Foreign.Signed:
			out.Foreign = v
		case localDir == DirectionDebit:
			out.Foreign = v.Abs().Neg()
		case localDir == DirectionCredit:
			out.Foreign = v.Abs()
		default:
			out.Foreign = signSingle(v, false, in.Direction, in.Role, in.Category)
		}
	default:
		out.Foreign = decimal.Zero
		out.ForeignParsed = true
	}

	return out
}

// signSingle applies, in order: pre-signed verbatim, direction column,
// role table.
func signSingle(v decimal.Decimal, signed bool, dir Direction, role domain.Role, cat domain.Category) decimal.Decimal {
	switch {
	case signed:
		return v
	case dir == DirectionDebit:
		return v.Abs()
	case dir == DirectionCredit:
		return v.Abs().Neg()
	case cat == domain.CategoryOther:
		return v
	default:
		return v.Abs().Mul(RoleMultiplier(role, cat))
	}
}

// parseCell treats an empty cell as a parsed zero.
func parseCell(s string) (decimal.Decimal, bool) {
	d, ok := ParseAmount(s)
	if !ok {
		return decimal.Zero, strings.TrimSpace(s) == ""
	}
	return d, true
}
