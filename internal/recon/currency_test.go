package recon_test

import (
	"testing"

	"github.com/boddenberg/recomatch-go/internal/recon"
)

func TestNormalizeCurrency(t *testing.T) {
	tests := []struct {
		in, local, want string
	}{
		{"TL", "TRY", "TRY"},
		{"tl.", "TRY", "TRY"},
		{"YTL", "TRY", "TRY"},
		{"Türk Lirası", "TRY", "TRY"},
		{"₺", "TRY", "TRY"},
		{"usd", "TRY", "USD"},
		{"Dolar", "TRY", "USD"},
		{"US$", "TRY", "USD"},
		{"Avro", "TRY", "EUR"},
		{"€", "TRY", "EUR"},
		{"STERLİN", "TRY", "GBP"},
		{"chf", "TRY", "CHF"},
		{" jpy ", "TRY", "jpy"},
		{"", "TRY", "TRY"},
		{"  ", "EUR", "EUR"},
		{"", "", "TRY"},
	}
	for _, tt := range tests {
		if got := recon.NormalizeCurrency(tt.in, tt.local); got != tt.want {
			t.Errorf("NormalizeCurrency(%q, %q) = %q, want %q", tt.in, tt.local, got, tt.want)
		}
	}
}
