// Package recon is the reconciliation engine: parsing and normalization of
// raw ledger values, document classification, sign assignment, invoice and
// payment matching and per-currency balance summaries.
//
// Everything in this package is a pure, synchronous function of its input.
package recon

import (
	"strings"
	"unicode"
)

// NormalizeText trims, upper-cases, removes every whitespace rune and
// replaces the letter O with the digit 0. It is idempotent.
func NormalizeText(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		if r == 'O' {
			return '0'
		}
		return r
	}, s)
	return s
}

// InvoiceKey is the canonical invoice key: NormalizeText with every
// non-alphanumeric rune removed, so "INV-001", "inv 001" and "INV-0O1"
// collapse to one key. It is idempotent.
func InvoiceKey(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, NormalizeText(raw))
}

// InvoiceKeySuffix reduces a key to the last n digits it contains. Some
// counterparties prefix invoice numbers with series letters or years; the
// trailing digits are what both sides agree on. n <= 0 returns key unchanged.
func InvoiceKeySuffix(key string, n int) string {
	if n <= 0 {
		return key
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, key)
	if len(digits) <= n {
		return digits
	}
	return digits[len(digits)-n:]
}
