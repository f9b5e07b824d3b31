// Package tabular reads uploaded ledger exports (CSV and XLSX) into generic
// rows keyed by trimmed header names.
package tabular

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/boddenberg/recomatch-go/internal/domain"
	"github.com/boddenberg/recomatch-go/internal/infra/resilience"
)

var tracer = otel.Tracer("infra/tabular")

// Reader parses ledger files. The zero value is not usable; see NewReader.
type Reader struct {
	headerRow int
	maxBytes  int64
	retry     resilience.Config
	logger    *zap.Logger
}

// Options configures a Reader.
type Options struct {
	// HeaderRow is the 1-based row holding column names.
	HeaderRow int
	// MaxBytes caps the size of a single file; 0 means unlimited.
	MaxBytes int64
	Retry    resilience.Config
}

// NewReader creates a table reader.
func NewReader(opts Options, logger *zap.Logger) *Reader {
	if opts.HeaderRow < 1 {
		opts.HeaderRow = 1
	}
	retry := opts.Retry
	retry.Retryable = isTransient
	return &Reader{
		headerRow: opts.HeaderRow,
		maxBytes:  opts.MaxBytes,
		retry:     retry,
		logger:    logger,
	}
}

// Read parses one file. Opening and reading the upload is retried; parse
// failures are not.
func (r *Reader) Read(ctx context.Context, side domain.Side, f domain.UploadFile) (*domain.Table, error) {
	ctx, span := tracer.Start(ctx, "Reader.Read")
	defer span.End()
	span.SetAttributes(attribute.String("file.name", f.Name), attribute.String("side", string(side)))

	ext := strings.ToLower(filepath.Ext(f.Name))
	var parse func([]byte) ([][]string, error)
	switch ext {
	case ".csv", ".txt", ".tsv":
		parse = parseCSV
	case ".xlsx", ".xlsm":
		parse = parseXLSX
	default:
		return nil, &domain.ErrUnsupportedFormat{File: f.Name, Extension: ext}
	}

	var content []byte
	err := resilience.RetryWithBackoff(ctx, r.retry, func() error {
		var loadErr error
		content, loadErr = r.load(f)
		return loadErr
	})
	if err != nil {
		return nil, &domain.ErrFileRead{File: f.Name, Err: err}
	}

	records, err := parse(content)
	if err != nil {
		return nil, &domain.ErrFileRead{File: f.Name, Err: err}
	}
	table, err := buildTable(side, f.Name, records, r.headerRow)
	if err != nil {
		return nil, &domain.ErrFileRead{File: f.Name, Err: err}
	}

	sum := blake2b.Sum256(content)
	table.Files = []domain.SourceFile{{
		Name:   f.Name,
		Digest: hex.EncodeToString(sum[:]),
		Rows:   len(table.Rows),
	}}
	span.SetAttributes(attribute.Int("rows", len(table.Rows)))

	r.logger.Debug("file read",
		zap.String("side", string(side)),
		zap.String("file", f.Name),
		zap.Int("rows", len(table.Rows)),
		zap.Int("columns", len(table.Columns)),
	)
	return table, nil
}

// ReadSide reads every file of one side and concatenates the rows. A file
// that cannot be read is reported and skipped.
func (r *Reader) ReadSide(ctx context.Context, side domain.Side, files []domain.UploadFile) (*domain.Table, []domain.FileError) {
	out := &domain.Table{Side: side}
	var fileErrs []domain.FileError
	seen := make(map[string]bool)

	for _, f := range files {
		t, err := r.Read(ctx, side, f)
		if err != nil {
			r.logger.Warn("file skipped",
				zap.String("side", string(side)),
				zap.String("file", f.Name),
				zap.Error(err),
			)
			fileErrs = append(fileErrs, domain.FileError{Side: side, File: f.Name, Message: err.Error()})
			continue
		}
		for _, c := range t.Columns {
			if !seen[c] {
				seen[c] = true
				out.Columns = append(out.Columns, c)
			}
		}
		out.Rows = append(out.Rows, t.Rows...)
		out.Files = append(out.Files, t.Files...)
	}
	return out, fileErrs
}

type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

var errTooLarge = errors.New("file exceeds size limit")

func (r *Reader) load(f domain.UploadFile) ([]byte, error) {
	if f.Open == nil {
		return nil, errors.New("no content")
	}
	if r.maxBytes > 0 && f.Size > r.maxBytes {
		return nil, errTooLarge
	}
	rc, err := f.Open()
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("open: %w", err)}
	}
	defer rc.Close()

	src := io.Reader(rc)
	if r.maxBytes > 0 {
		src = io.LimitReader(rc, r.maxBytes+1)
	}
	content, err := io.ReadAll(src)
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("read: %w", err)}
	}
	if r.maxBytes > 0 && int64(len(content)) > r.maxBytes {
		return nil, errTooLarge
	}
	return content, nil
}

// buildTable turns raw records into a Table using the header at headerRow.
// Blank header cells become "Column N" and repeated names get a " (n)"
// suffix. Rows with only blank cells are dropped.
func buildTable(side domain.Side, name string, records [][]string, headerRow int) (*domain.Table, error) {
	if len(records) < headerRow {
		return nil, errors.New("no header row")
	}

	header := records[headerRow-1]
	columns := make([]string, len(header))
	used := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		used[h]++
		if n := used[h]; n > 1 {
			h = fmt.Sprintf("%s (%d)", h, n)
		}
		columns[i] = h
	}
	if len(columns) == 0 {
		return nil, errors.New("empty header row")
	}

	t := &domain.Table{Side: side, Columns: columns}
	for _, rec := range records[headerRow:] {
		fields := make(map[string]string, len(columns))
		blank := true
		for i, col := range columns {
			if i >= len(rec) {
				break
			}
			v := strings.TrimSpace(rec[i])
			if v != "" {
				blank = false
			}
			fields[col] = v
		}
		if blank {
			continue
		}
		t.Rows = append(t.Rows, domain.RawRow{
			Fields:     fields,
			SourceFile: name,
			SourceRow:  len(t.Rows) + 1,
		})
	}
	return t, nil
}
