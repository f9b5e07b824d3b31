package templates_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/boddenberg/recomatch-go/internal/domain"
	"github.com/boddenberg/recomatch-go/internal/infra/templates"
)

func newStore(t *testing.T) (*templates.FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "templates.json")
	return templates.NewFileStore(path, zap.NewNop()), path
}

func TestFileStore_PutGetList(t *testing.T) {
	store, path := newStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "acme_ekstre", domain.Mapping{InvoiceNo: "Belge No"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "bayi", domain.Mapping{InvoiceNo: "Fatura"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	tpl, ok, err := store.Get(ctx, "acme_ekstre")
	if err != nil || !ok {
		t.Fatalf("expected template, got ok=%v err=%v", ok, err)
	}
	if tpl.Mapping.InvoiceNo != "Belge No" {
		t.Errorf("unexpected mapping %+v", tpl.Mapping)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "acme_ekstre" || list[1].Key != "bayi" {
		t.Errorf("unexpected list %+v", list)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file on disk: %v", err)
	}

	reopened := templates.NewFileStore(path, zap.NewNop())
	if _, ok, _ := reopened.Get(ctx, "bayi"); !ok {
		t.Error("expected template to survive reopen")
	}
}

func TestFileStore_MatchLongestKey(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	_ = store.Put(ctx, "acme", domain.Mapping{InvoiceNo: "short"})
	_ = store.Put(ctx, "ACME_2024", domain.Mapping{InvoiceNo: "long"})
	_ = store.Put(ctx, "globex", domain.Mapping{InvoiceNo: "other"})

	tpl, ok, err := store.Match(ctx, "uploads/acme_2024_ocak.xlsx")
	if err != nil || !ok {
		t.Fatalf("expected a match, got ok=%v err=%v", ok, err)
	}
	if tpl.Key != "ACME_2024" {
		t.Errorf("expected longest key, got %s", tpl.Key)
	}

	if _, ok, _ := store.Match(ctx, "initech.csv"); ok {
		t.Error("expected no match")
	}
}

func TestFileStore_Delete(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	_ = store.Put(ctx, "acme", domain.Mapping{InvoiceNo: "No"})

	if err := store.Delete(ctx, "acme"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err := store.Delete(ctx, "acme")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStore_EmptyKey(t *testing.T) {
	store, _ := newStore(t)
	err := store.Put(context.Background(), "  ", domain.Mapping{})
	var valErr *domain.ErrValidation
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	store, path := newStore(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.List(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFileStore_ReadsLegacyFormat(t *testing.T) {
	store, path := newStore(t)
	legacy := `{"ekstre_ocak.xlsx": {"invoice_no": "Fatura No", "local": {"mode": "single", "column": "Tutar"}}}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	tpl, ok, err := store.Match(context.Background(), "ekstre_ocak.xlsx")
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}
	if tpl.Mapping.Local.Column != "Tutar" || tpl.Mapping.Local.Mode != domain.AmountSingle {
		t.Errorf("unexpected mapping %+v", tpl.Mapping)
	}
}
