// Package templates persists column mappings in a JSON file, keyed by a
// filename fragment, so a recurring export is mapped automatically.
package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/boddenberg/recomatch-go/internal/domain"
	"github.com/boddenberg/recomatch-go/internal/infra/resilience"
)

// FileStore is a TemplateStore backed by one JSON object on disk, mapping
// key to mapping. The file is re-read on every lookup so edits made by
// another process are picked up; writes replace it atomically.
type FileStore struct {
	path    string
	mu      sync.Mutex
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewFileStore creates a store at path. The file need not exist yet.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{
		path:    path,
		breaker: resilience.NewCircuitBreaker("template_store"),
		logger:  logger,
	}
}

// Match returns the template whose key occurs in filename, ignoring case.
// When several keys occur the longest wins, then the lexically smallest.
func (s *FileStore) Match(ctx context.Context, filename string) (*domain.Template, bool, error) {
	all, err := s.load(ctx)
	if err != nil {
		return nil, false, err
	}
	name := strings.ToLower(filepath.Base(filename))

	var best string
	found := false
	for key := range all {
		k := strings.ToLower(key)
		if k == "" || !strings.Contains(name, k) {
			continue
		}
		if !found || len(key) > len(best) || (len(key) == len(best) && key < best) {
			best, found = key, true
		}
	}
	if !found {
		return nil, false, nil
	}
	return &domain.Template{Key: best, Mapping: all[best]}, true, nil
}

// Get returns the template stored under exactly key.
func (s *FileStore) Get(ctx context.Context, key string) (*domain.Template, bool, error) {
	key = strings.TrimSpace(key)
	all, err := s.load(ctx)
	if err != nil {
		return nil, false, err
	}
	m, ok := all[key]
	if !ok {
		return nil, false, nil
	}
	return &domain.Template{Key: key, Mapping: m}, true, nil
}

// Put stores or replaces the mapping under key.
func (s *FileStore) Put(ctx context.Context, key string, m domain.Mapping) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return &domain.ErrValidation{Field: "key", Message: "template key must not be empty"}
	}
	return s.modify(ctx, func(all map[string]domain.Mapping) error {
		all[key] = m
		return nil
	})
}

// Delete removes key. Deleting a missing key is an ErrNotFound.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	return s.modify(ctx, func(all map[string]domain.Mapping) error {
		if _, ok := all[key]; !ok {
			return &domain.ErrNotFound{Resource: "template", ID: key}
		}
		delete(all, key)
		return nil
	})
}

// List returns every template sorted by key.
func (s *FileStore) List(ctx context.Context) ([]domain.Template, error) {
	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Template, 0, len(all))
	for k, m := range all {
		out = append(out, domain.Template{Key: k, Mapping: m})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *FileStore) load(ctx context.Context) (map[string]domain.Mapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return resilience.Call(s.breaker, s.readFile)
}

func (s *FileStore) modify(ctx context.Context, fn func(map[string]domain.Mapping) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := resilience.Call(s.breaker, s.readFile)
	if err != nil {
		return err
	}
	if err := fn(all); err != nil {
		return err
	}
	_, err = resilience.Call(s.breaker, func() (struct{}, error) {
		return struct{}{}, s.writeFile(all)
	})
	if err != nil {
		s.logger.Error("template store write failed", zap.String("path", s.path), zap.Error(err))
	}
	return err
}

// readFile treats a missing or empty file as an empty store.
func (s *FileStore) readFile() (map[string]domain.Mapping, error) {
	all := make(map[string]domain.Mapping)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return all, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading templates: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decoding templates %s: %w", s.path, err)
	}
	return all, nil
}

func (s *FileStore) writeFile(all map[string]domain.Mapping) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding templates: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating template dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".templates-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing templates: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing templates: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing templates: %w", err)
	}
	return nil
}
