// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from file formats, storage and rendering.
package port

import (
	"context"
	"io"

	"github.com/boddenberg/recomatch-go/internal/domain"
)

// TableReader turns uploaded ledger files into generic rows.
type TableReader interface {
	// Read parses a single file.
	Read(ctx context.Context, side domain.Side, f domain.UploadFile) (*domain.Table, error)
	// ReadSide concatenates every file of one side. Files that fail are
	// reported and skipped.
	ReadSide(ctx context.Context, side domain.Side, files []domain.UploadFile) (*domain.Table, []domain.FileError)
}

// TemplateStore remembers mappings keyed by a filename fragment.
type TemplateStore interface {
	// Match returns the template whose key is the longest substring of filename.
	Match(ctx context.Context, filename string) (*domain.Template, bool, error)
	Get(ctx context.Context, key string) (*domain.Template, bool, error)
	Put(ctx context.Context, key string, m domain.Mapping) error
	List(ctx context.Context) ([]domain.Template, error)
	Delete(ctx context.Context, key string) error
}

// ReportWriter renders an analysis result as a downloadable document.
type ReportWriter interface {
	Write(ctx context.Context, w io.Writer, r *domain.AnalysisResult) error
	ContentType() string
	Extension() string
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Update(key string, fn func(cur T, found bool) T) T
	Delete(key string)
	// Len counts entries that have not expired.
	Len() int
}
