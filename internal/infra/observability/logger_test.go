package observability_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/boddenberg/recomatch-go/internal/infra/observability"
)

func TestZapLoggerMiddleware_LevelsAndRoute(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := chi.NewRouter()
	r.Use(observability.ZapLoggerMiddleware(zap.New(core)))
	r.Use(observability.TracingMiddleware)
	r.Get("/v1/templates/{key}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/ok", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("fine"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/templates/acme", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}

	notFound := entries[0]
	if notFound.Level != zapcore.WarnLevel {
		t.Errorf("expected warn for 404, got %s", notFound.Level)
	}
	if got := notFound.ContextMap()["route"]; got != "/v1/templates/{key}" {
		t.Errorf("expected route pattern, got %v", got)
	}

	ok := entries[1]
	if ok.Level != zapcore.DebugLevel {
		t.Errorf("expected debug for 200, got %s", ok.Level)
	}
	if got := ok.ContextMap()["response_bytes"]; got != int64(4) {
		t.Errorf("expected 4 response bytes, got %v (%T)", got, got)
	}
}

func TestNewLogger_Levels(t *testing.T) {
	if l := observability.NewLogger("warn"); l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info disabled at warn level")
	}
	if l := observability.NewLogger("nonsense"); !l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info enabled on fallback level")
	}
	if l := observability.NewLogger("debug"); !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug enabled")
	}
}
