package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/recomatch-go/internal/domain"
	"github.com/boddenberg/recomatch-go/internal/service"
)

// multipartMemory is how much of an upload is held in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

func analyzeHandler(recon *service.ReconciliationService, maxBytes int64, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /analysis")
		defer span.End()

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", maxBytes))
				return
			}
			writeError(w, http.StatusBadRequest, "expected multipart/form-data body")
			return
		}
		defer r.MultipartForm.RemoveAll()

		req := &service.AnalyzeRequest{
			SessionID: SessionIDFromContext(ctx),
			Ours:      uploads(r.MultipartForm.File["ours"]),
			Theirs:    uploads(r.MultipartForm.File["theirs"]),
		}
		if raw := strings.TrimSpace(r.FormValue("config")); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Config); err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid config JSON: " + err.Error(), Field: "config"})
				return
			}
		}
		span.SetAttributes(
			attribute.Int("files.ours", len(req.Ours)),
			attribute.Int("files.theirs", len(req.Theirs)),
		)

		summary, err := recon.Analyze(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func uploads(headers []*multipart.FileHeader) []domain.UploadFile {
	out := make([]domain.UploadFile, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		out = append(out, domain.UploadFile{
			Name: fh.Filename,
			Size: fh.Size,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return out
}

func latestHandler(recon *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /analysis/latest")
		defer span.End()

		res, err := recon.Latest(ctx, SessionIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func tableHandler(recon *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /analysis/latest/{table}")
		defer span.End()

		table, err := recon.Table(ctx, SessionIDFromContext(ctx), chi.URLParam(r, "table"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, table)
	}
}

func reportHandler(recon *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /analysis/latest/report")
		defer span.End()

		sid := SessionIDFromContext(ctx)
		res, err := recon.Latest(ctx, sid)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var buf bytes.Buffer
		if err := recon.WriteReport(ctx, sid, &buf); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		contentType, ext := recon.ReportFormat()
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="reconciliation-%s%s"`, shortID(res.ID), ext))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			logger.Warn("report download interrupted", zap.Error(err))
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
