package recon

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultLocalCurrency is the canonical code for the Turkish lira family.
const DefaultLocalCurrency = "TRY"

// currencyAliases maps folded spellings to canonical codes.
var currencyAliases = map[string]string{
	"TRY": "TRY", "TRL": "TRY", "YTL": "TRY", "TL": "TRY", "₺": "TRY",
	"TURKLIRASI": "TRY", "TURKLIRA": "TRY", "TURKISHLIRA": "TRY",

	"USD": "USD", "DOLAR": "USD", "DOLLAR": "USD", "USDOLAR": "USD",
	"US$": "USD", "$": "USD", "ABDDOLARI": "USD",

	"EUR": "EUR", "EURO": "EUR", "AVRO": "EUR", "€": "EUR",

	"GBP": "GBP", "STERLIN": "GBP", "STERLING": "GBP", "£": "GBP",
	"INGILIZSTERLINI": "GBP",

	"CHF": "CHF", "FRANK": "CHF", "ISVICREFRANGI": "CHF",
}

// foldCurrency upper-cases, strips diacritics and drops punctuation and
// spaces, keeping currency symbols.
func foldCurrency(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToUpper(s))
	if err != nil {
		folded = strings.ToUpper(s)
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == 'İ', r == 'I', r == 'ı':
			return 'I'
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case r == '$', r == '€', r == '£', r == '₺':
			return r
		default:
			return -1
		}
	}, folded)
}

// NormalizeCurrency maps a raw currency cell to its canonical code. Unknown
// values pass through trimmed; an empty cell means the local currency.
func NormalizeCurrency(raw, local string) string {
	if local == "" {
		local = DefaultLocalCurrency
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return local
	}
	if code, ok := currencyAliases[foldCurrency(trimmed)]; ok {
		return code
	}
	return trimmed
}
