package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/recomatch-go/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "LOCAL_CURRENCY", "SESSION_TTL", "MAX_CONCURRENT_RUNS", "TRACING_ENABLED", "HEADER_ROW"} {
		t.Setenv(k, "")
	}
	cfg := config.Load()

	if cfg.Port != 8080 || cfg.LocalCurrency != "TRY" || cfg.SessionTTL != 2*time.Hour {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.MaxConcurrentRuns != 4 || cfg.HeaderRow != 1 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.TracingEndpoint() != "" {
		t.Errorf("expected tracing off by default, got %q", cfg.TracingEndpoint())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LOCAL_CURRENCY", "eur")
	t.Setenv("READ_BACKOFF", "5ms")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("MAX_UPLOAD_MB", "not-a-number")

	cfg := config.Load()
	if cfg.Port != 9000 || cfg.LocalCurrency != "EUR" || cfg.ReadBackoff != 5*time.Millisecond {
		t.Errorf("unexpected overrides %+v", cfg)
	}
	if cfg.MaxUploadMB != 32 || cfg.MaxUploadBytes() != 32<<20 {
		t.Errorf("expected fallback on bad int, got %d", cfg.MaxUploadMB)
	}
	if cfg.TracingEndpoint() != "localhost:4317" {
		t.Errorf("expected default collector endpoint, got %q", cfg.TracingEndpoint())
	}
}

func TestValidate_Rejects(t *testing.T) {
	cfg := config.Load()
	cfg.HeaderRow = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for header row 0")
	}
	cfg = config.Load()
	cfg.SessionSecret = "short"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for short secret")
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# local\nexport RECOMATCH_TEST_A=\"one\"\nRECOMATCH_TEST_B='two'\nbroken line\nRECOMATCH_TEST_C=three\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RECOMATCH_TEST_C", "kept")
	os.Unsetenv("RECOMATCH_TEST_A")
	os.Unsetenv("RECOMATCH_TEST_B")
	t.Cleanup(func() {
		os.Unsetenv("RECOMATCH_TEST_A")
		os.Unsetenv("RECOMATCH_TEST_B")
	})

	if err := config.LoadDotEnv(path); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if os.Getenv("RECOMATCH_TEST_A") != "one" || os.Getenv("RECOMATCH_TEST_B") != "two" {
		t.Errorf("expected values from file, got %q %q", os.Getenv("RECOMATCH_TEST_A"), os.Getenv("RECOMATCH_TEST_B"))
	}
	if os.Getenv("RECOMATCH_TEST_C") != "kept" {
		t.Errorf("expected existing env to win, got %q", os.Getenv("RECOMATCH_TEST_C"))
	}
}

func TestLoad_CORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	if got := config.Load().CORSOrigins; len(got) != 1 || got[0] != "*" {
		t.Errorf("expected wildcard default, got %v", got)
	}

	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	got := config.Load().CORSOrigins
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Errorf("unexpected origins %v", got)
	}
}
