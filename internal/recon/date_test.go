package recon_test

import (
	"testing"

	"github.com/boddenberg/recomatch-go/internal/recon"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.01.2024", "2024-01-10"},
		{"10/01/2024", "2024-01-10"},
		{"10-01-2024", "2024-01-10"},
		{"1.2.2024", "2024-02-01"},
		{"10.01.2024 14:30:00", "2024-01-10"},
		{"2024-01-10", "2024-01-10"},
		{"2024/01/10", "2024-01-10"},
		{"2024-01-10 08:15:00", "2024-01-10"},
		{"2024-01-10T08:00:00Z", "2024-01-10"},
		{"20240110", "2024-01-10"},
		{"10.01.24", "2024-01-10"},
		{"45301", "2024-01-10"},
		{"45301.75", "2024-01-10"},
		{"", "null"},
		{"garbage", "null"},
		{"12", "null"},
		{"31.02.2024", "null"},
	}
	for _, tt := range tests {
		if got := recon.ParseDate(tt.in).String(); got != tt.want {
			t.Errorf("ParseDate(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
