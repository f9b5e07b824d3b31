package recon

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var scientific = regexp.MustCompile(`^[+-]?\d+(\.\d+)?[eE][+-]?\d+$`)

// currencyTokens may wrap an amount on either side. Longer tokens come
// first so "YTL" is not read as "Y" + "TL".
var currencyTokens = []string{"US$", "TRY", "TRL", "YTL", "USD", "EUR", "GBP", "CHF", "TL", "₺", "$", "€", "£"}

// ParseAmount reads a locale-ambiguous number such as "1.234,56",
// "1,234.56", "1234,5", "(250,00)" or "-1 500 TL".
//
// When both separators are present the right-most one is the decimal
// separator. A lone comma is a decimal separator. A separator repeated more
// than once is a thousands separator and every group after the first must
// have three digits. A leading or trailing minus, or enclosing brackets,
// make the value negative. Only currency codes and symbols at either end
// are ignored; any other text makes the value unparseable.
//
// Empty or unparseable input yields zero and ok=false. It never fails.
func ParseAmount(s string) (d decimal.Decimal, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}

	if scientific.MatchString(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(f), true
	}

	bracketed := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		bracketed = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = trimCurrency(s)
	negative := bracketed
	if !bracketed {
		switch {
		case strings.HasPrefix(s, "-"):
			negative = true
			s = s[1:]
		case strings.HasSuffix(s, "-"):
			negative = true
			s = s[:len(s)-1]
		case strings.HasPrefix(s, "+"):
			s = s[1:]
		}
		s = trimCurrency(s)
	}

	s, ok = ungroup(s)
	if !ok {
		return decimal.Zero, false
	}
	s, ok = normalizeSeparators(s)
	if !ok {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// trimCurrency removes at most one currency token from each end of s.
func trimCurrency(s string) string {
	s = strings.TrimSpace(s)
	for _, tok := range currencyTokens {
		if len(s) >= len(tok) && strings.EqualFold(s[:len(tok)], tok) {
			s = strings.TrimSpace(s[len(tok):])
			break
		}
	}
	for _, tok := range currencyTokens {
		if len(s) >= len(tok) && strings.EqualFold(s[len(s)-len(tok):], tok) {
			s = strings.TrimSpace(s[:len(s)-len(tok)])
			break
		}
	}
	return s
}

// ungroup removes space and apostrophe digit grouping ("1 500", "1'500").
// Every group after the first must start with exactly three digits. Any
// character other than digits, separators and grouping fails the value.
func ungroup(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\'' || r == '\u00a0' || r == '\u202f'
	})
	for i, p := range parts {
		for _, r := range p {
			if (r < '0' || r > '9') && r != ',' && r != '.' {
				return "", false
			}
		}
		if i > 0 && leadingDigits(p) != 3 {
			return "", false
		}
	}
	return strings.Join(parts, ""), true
}

// normalizeSeparators rewrites s so that '.' is the only (optional) decimal
// separator and no grouping characters remain.
func normalizeSeparators(s string) (string, bool) {
	commas := strings.Count(s, ",")
	dots := strings.Count(s, ".")

	var intPart, frac string
	switch {
	case commas > 0 && dots > 0:
		dec, group := byte('.'), ","
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			// 1.234,56
			dec, group = ',', "."
		}
		i := strings.LastIndexByte(s, dec)
		intPart, frac = s[:i], s[i+1:]
		if strings.IndexByte(intPart, dec) >= 0 || !validGroups(intPart, group) {
			return "", false
		}
		intPart = strings.ReplaceAll(intPart, group, "")
	case commas == 1:
		intPart, frac, _ = strings.Cut(s, ",")
	case dots == 1:
		intPart, frac, _ = strings.Cut(s, ".")
	case commas > 1:
		if !validGroups(s, ",") {
			return "", false
		}
		intPart = strings.ReplaceAll(s, ",", "")
	case dots > 1:
		if !validGroups(s, ".") {
			return "", false
		}
		intPart = strings.ReplaceAll(s, ".", "")
	default:
		intPart = s
	}

	if intPart == "" && frac == "" {
		return "", false
	}
	if intPart == "" {
		intPart = "0"
	}
	if frac == "" {
		return intPart, true
	}
	return intPart + "." + frac, true
}

// validGroups reports whether s is digit groups joined by sep where the
// first group has one to three digits and the rest exactly three.
func validGroups(s, sep string) bool {
	groups := strings.Split(s, sep)
	for i, g := range groups {
		if leadingDigits(g) != len(g) {
			return false
		}
		if i == 0 && (len(g) < 1 || len(g) > 3) {
			return false
		}
		if i > 0 && len(g) != 3 {
			return false
		}
	}
	return true
}

func leadingDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}
