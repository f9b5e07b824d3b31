package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/recomatch-go/internal/domain"
	"github.com/boddenberg/recomatch-go/internal/infra/observability"
	"github.com/boddenberg/recomatch-go/internal/service"
)

var tracer = otel.Tracer("handler")

// Options tunes request handling.
type Options struct {
	// MaxUploadBytes caps the multipart body of one analysis request.
	MaxUploadBytes int64
	// AllowedOrigins lists the browser origins allowed to call the API.
	AllowedOrigins []string
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(recon *service.ReconciliationService, sessions *service.SessionService, metrics *observability.Metrics, opts Options, logger *zap.Logger) http.Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", healthzHandler(recon, logger))
	r.Get("/readyz", readyzHandler(recon, logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/sessions", createSessionHandler(sessions, logger))
		r.Get("/metrics/runs", runMetricsHandler(metrics))

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(sessions, logger))

			r.Delete("/sessions/current", endSessionHandler(recon, logger))

			r.Post("/analysis", analyzeHandler(recon, opts.MaxUploadBytes, logger))
			r.Get("/analysis/latest", latestHandler(recon, logger))
			r.Get("/analysis/latest/report.xlsx", reportHandler(recon, logger))
			r.Get("/analysis/latest/{table}", tableHandler(recon, logger))

			r.Get("/templates", listTemplatesHandler(recon, logger))
			r.Get("/templates/match", matchTemplateHandler(recon, logger))
			r.Get("/templates/{key}", getTemplateHandler(recon, logger))
			r.Put("/templates/{key}", putTemplateHandler(recon, logger))
			r.Delete("/templates/{key}", deleteTemplateHandler(recon, logger))
		})
	})

	return r
}

func healthzHandler(recon *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC().Format(time.RFC3339)
		status := domain.HealthStatus{
			Status:     "healthy",
			Components: []domain.Component{{Name: "recomatch-api", Status: "healthy", LastChecked: now}},
		}

		if recon != nil {
			start := time.Now()
			err := recon.Ready(r.Context())
			c := domain.Component{
				Name:        "template_store",
				Status:      "healthy",
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			}
			if err != nil {
				c.Status = "degraded"
				c.Error = err.Error()
				status.Status = "degraded"
				logger.Warn("health: template store degraded", zap.Error(err))
			}
			status.Components = append(status.Components, c)
			status.Runs = recon.Capacity()
		}

		writeJSON(w, http.StatusOK, status)
	}
}

func readyzHandler(recon *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if recon != nil {
			if err := recon.Ready(r.Context()); err != nil {
				logger.Warn("not ready", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func runMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetRunSnapshot())
	}
}

func createSessionHandler(sessions *service.SessionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /sessions")
		defer span.End()

		sess, err := sessions.Create(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, sess)
	}
}

func endSessionHandler(recon *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /sessions/current")
		defer span.End()

		sid := SessionIDFromContext(ctx)
		if err := recon.EndSession(ctx, sid); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "session state cleared", ID: sid})
	}
}
