package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/recomatch-go/internal/domain"
	"github.com/boddenberg/recomatch-go/internal/service"
)

func listTemplatesHandler(recon *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /templates")
		defer span.End()

		list, err := recon.ListTemplates(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"templates": list, "total": len(list)})
	}
}

func matchTemplateHandler(recon *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /templates/match")
		defer span.End()

		tpl, err := recon.MatchTemplate(ctx, r.URL.Query().Get("filename"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tpl)
	}
}

func getTemplateHandler(recon *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /templates/{key}")
		defer span.End()

		tpl, err := recon.GetTemplate(ctx, chi.URLParam(r, "key"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tpl)
	}
}

func putTemplateHandler(recon *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /templates/{key}")
		defer span.End()

		key := chi.URLParam(r, "key")
		var m domain.Mapping
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := recon.SaveTemplate(ctx, key, m); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.Template{Key: key, Mapping: m})
	}
}

func deleteTemplateHandler(recon *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /templates/{key}")
		defer span.End()

		key := chi.URLParam(r, "key")
		if err := recon.DeleteTemplate(ctx, key); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "template deleted", ID: key})
	}
}
