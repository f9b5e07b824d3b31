package recon_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/recomatch-go/internal/recon"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"1.234,56", "1234.56", true},
		{"1,234.56", "1234.56", true},
		{"1234,5", "1234.5", true},
		{"1.234.567", "1234567", true},
		{"1,234,567", "1234567", true},
		{"12.50", "12.5", true},
		{"(250,00)", "-250", true},
		{"-1 500 TL", "-1500", true},
		{"1500-", "-1500", true},
		{"+42", "42", true},
		{"₺1.250,00", "1250", true},
		{"1.5E3", "1500", true},
		{"1000", "1000", true},
		{"", "0", false},
		{"   ", "0", false},
		{"abc", "0", false},
		{"--5", "0", false},
		{"1,2,3.4,5", "0", false},
		{"1 500,25", "1500.25", true},
		{"1'500", "1500", true},
		{"USD 1,250.00", "1250", true},
		{"250 ytl", "250", true},
		{",5", "0.5", true},
		{"12abc34", "0", false},
		{"12.05.2024", "0", false},
		{"1,23,456", "0", false},
		{"12.345,67.8", "0", false},
		{"1/2", "0", false},
		{"INV-001", "0", false},
		{"Ref 12", "0", false},
		{"(-5)", "0", false},
		{"1 50", "0", false},
		{"TL", "0", false},
	}
	for _, tt := range tests {
		got, ok := recon.ParseAmount(tt.in)
		if ok != tt.wantOK {
			t.Errorf("ParseAmount(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			continue
		}
		if want := decimal.RequireFromString(tt.want); !got.Equal(want) {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, want)
		}
	}
}
