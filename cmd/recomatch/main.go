package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/recomatch-go/internal/config"
	"github.com/boddenberg/recomatch-go/internal/handler"
	"github.com/boddenberg/recomatch-go/internal/infra/cache"
	"github.com/boddenberg/recomatch-go/internal/infra/observability"
	"github.com/boddenberg/recomatch-go/internal/infra/report"
	"github.com/boddenberg/recomatch-go/internal/infra/resilience"
	"github.com/boddenberg/recomatch-go/internal/infra/tabular"
	"github.com/boddenberg/recomatch-go/internal/infra/templates"
	"github.com/boddenberg/recomatch-go/internal/service"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("local_currency", cfg.LocalCurrency),
		zap.String("template_path", cfg.TemplatePath),
		zap.Int("header_row", cfg.HeaderRow),
		zap.Int("max_upload_mb", cfg.MaxUploadMB),
		zap.Int("max_concurrent_runs", cfg.MaxConcurrentRuns),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Bool("tracing_enabled", cfg.TracingEnabled),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.TracingEndpoint(), "recomatch")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Session state ---
	sessions := cache.New[*service.SessionState](cfg.SessionTTL)
	defer sessions.Close()

	// --- Adapters ---
	reader := tabular.NewReader(tabular.Options{
		HeaderRow: cfg.HeaderRow,
		MaxBytes:  cfg.MaxUploadBytes(),
		Retry: resilience.Config{
			MaxRetries:     cfg.ReadRetries,
			InitialBackoff: cfg.ReadBackoff,
		},
	}, logger)
	store := templates.NewFileStore(cfg.TemplatePath, logger)

	// --- Services ---
	reconSvc := service.NewReconciliationService(
		reader,
		store,
		report.NewXLSXWriter(),
		sessions,
		resilience.NewBulkhead(cfg.MaxConcurrentRuns),
		service.Defaults{
			LocalCurrency:    cfg.LocalCurrency,
			InvoiceKeyDigits: cfg.InvoiceKeyDigits,
		},
		metrics,
		logger,
	)
	sessionSvc := service.NewSessionService(cfg.SessionSecret, cfg.SessionTTL, logger)

	// --- Router ---
	router := handler.NewRouter(reconSvc, sessionSvc, metrics, handler.Options{
		MaxUploadBytes: cfg.MaxUploadBytes(),
		AllowedOrigins: cfg.CORSOrigins,
	}, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
