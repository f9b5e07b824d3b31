package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// delimiters are the candidates tried by sniffDelimiter, in order of
// preference on a tie.
var delimiters = []rune{';', ',', '\t', '|'}

// parseCSV decodes delimited text. Content that is not valid UTF-8 is
// read as Windows-1254, the usual encoding of Turkish accounting exports.
func parseCSV(content []byte) ([][]string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		decoded, err := charmap.Windows1254.NewDecoder().Bytes(content)
		if err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		content = decoded
	}

	r := csv.NewReader(bytes.NewReader(content))
	r.Comma = sniffDelimiter(content)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	return records, nil
}

// sniffDelimiter picks the candidate whose most common per-line field count
// is shared by the most lines, preferring more fields on a tie. Title lines
// above the header and quoted sections do not disturb it.
func sniffDelimiter(content []byte) rune {
	lines := firstLines(content, 10)
	best, bestLines, bestCount := ',', 0, 0
	for _, d := range delimiters {
		freq := make(map[int]int)
		for _, line := range lines {
			if c := countOutsideQuotes(line, d); c > 0 {
				freq[c]++
			}
		}
		for count, n := range freq {
			if n > bestLines || (n == bestLines && count > bestCount) {
				best, bestLines, bestCount = d, n, count
			}
		}
	}
	return best
}

func firstLines(content []byte, n int) []string {
	var out []string
	for len(content) > 0 && len(out) < n {
		i := bytes.IndexByte(content, '\n')
		var line []byte
		if i < 0 {
			line, content = content, nil
		} else {
			line, content = content[:i], content[i+1:]
		}
		line = bytes.TrimRight(line, "\r")
		if len(bytes.TrimSpace(line)) > 0 {
			out = append(out, string(line))
		}
	}
	return out
}

func countOutsideQuotes(line string, d rune) int {
	n, quoted := 0, false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == d && !quoted:
			n++
		}
	}
	return n
}
