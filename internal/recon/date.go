package recon

import (
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/recomatch-go/internal/domain"
)

// dateLayouts are tried in order. Day-first layouts come before ISO ones;
// Go's non-padded day/month verbs also accept zero-padded input.
var dateLayouts = []string{
	"2.1.2006",
	"2/1/2006",
	"2-1-2006",
	"2.1.2006 15:04:05",
	"2.1.2006 15:04",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2-1-2006 15:04:05",
	"2006-01-02",
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"20060102",
	"2.1.06",
	"2/1/06",
	"2-1-06",
	"2 Jan 2006",
	"02-Jan-2006",
	"Jan 2, 2006",
}

// Spreadsheet serial dates count days since 1899-12-30. Values at or below
// 60 hit the 1900 leap-year bug and are too small to be ledger dates;
// 2958465 is 9999-12-31.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

const (
	minSerial = 61
	maxSerial = 2958465
)

// ParseDate reads a date in any of the supported layouts, or as a
// spreadsheet serial number. Unreadable input yields a null date.
func ParseDate(s string) domain.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Date{}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.NewDate(t.Year(), t.Month(), t.Day())
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && isSerialText(s) {
		days := int(serial)
		if days >= minSerial && days <= maxSerial {
			t := serialEpoch.AddDate(0, 0, days)
			return domain.NewDate(t.Year(), t.Month(), t.Day())
		}
	}

	return domain.Date{}
}

// isSerialText accepts plain digits with an optional fractional part.
func isSerialText(s string) bool {
	dot := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' && !dot && i > 0:
			dot = true
		default:
			return false
		}
	}
	return true
}
