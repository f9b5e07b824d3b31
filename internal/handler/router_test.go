package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/recomatch-go/internal/domain"
	"github.com/boddenberg/recomatch-go/internal/handler"
	"github.com/boddenberg/recomatch-go/internal/infra/cache"
	"github.com/boddenberg/recomatch-go/internal/infra/observability"
	"github.com/boddenberg/recomatch-go/internal/infra/report"
	"github.com/boddenberg/recomatch-go/internal/infra/resilience"
	"github.com/boddenberg/recomatch-go/internal/infra/tabular"
	"github.com/boddenberg/recomatch-go/internal/infra/templates"
	"github.com/boddenberg/recomatch-go/internal/service"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	sessions := cache.New[*service.SessionState](time.Hour)
	t.Cleanup(sessions.Close)

	recon := service.NewReconciliationService(
		tabular.NewReader(tabular.Options{HeaderRow: 1}, logger),
		templates.NewFileStore(filepath.Join(t.TempDir(), "templates.json"), logger),
		report.NewXLSXWriter(),
		sessions,
		resilience.NewBulkhead(2),
		service.Defaults{LocalCurrency: "TRY"},
		metrics,
		logger,
	)
	auth := service.NewSessionService("test-secret", time.Hour, logger)
	return handler.NewRouter(recon, auth, metrics, handler.Options{MaxUploadBytes: 1 << 20}, logger)
}

func do(t *testing.T, router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func openSession(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := do(t, router, httptest.NewRequest(http.MethodPost, "/v1/sessions", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var sess domain.Session
	if err := json.NewDecoder(rec.Body).Decode(&sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return sess.Token
}

func authed(method, target, token string, body *bytes.Buffer) *http.Request {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

const oursCSV = "Invoice;Date;Type;Amount\nA-1;05.01.2024;INV;100,00\nA-2;06.01.2024;INV;50,00\n"
const theirsCSV = "Invoice,Date,Type,Amount\na1,2024-01-05,INV,100\n"

const mappingJSON = `{"invoice_no":"Invoice","date":"Date","doc_type":"Type",
"local":{"mode":"single","column":"Amount"},"doc_types":{"invoice":["INV"],"payment":["PAY"]}}`

func analysisBody(t *testing.T, withConfig bool) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for field, file := range map[string][2]string{
		"ours":   {"acme_ours.csv", oursCSV},
		"theirs": {"acme_theirs.csv", theirsCSV},
	} {
		fw, err := mw.CreateFormFile(field, file[0])
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write([]byte(file[1]))
	}
	if withConfig {
		mw.WriteField("config", `{"ours":`+mappingJSON+`,"theirs":`+mappingJSON+`,"options":{"role":"buyer"}}`)
	}
	mw.Close()
	return body, mw.FormDataContentType()
}

func analyze(t *testing.T, router http.Handler, token string, withConfig bool) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := analysisBody(t, withConfig)
	req := authed(http.MethodPost, "/v1/analysis", token, body)
	req.Header.Set("Content-Type", ct)
	return do(t, router, req)
}

func TestHealthz(t *testing.T) {
	router := handler.NewRouter(nil, nil, observability.NewMetrics(), handler.Options{}, zap.NewNop())

	rec := do(t, router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	rec := do(t, newTestRouter(t), httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	rec := do(t, newTestRouter(t), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestSessionRequired(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, httptest.NewRequest(http.MethodGet, "/v1/analysis/latest", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	rec = do(t, router, authed(http.MethodGet, "/v1/analysis/latest", "garbage", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with bad token, got %d", rec.Code)
	}
}

func TestAnalysisFlow(t *testing.T) {
	router := newTestRouter(t)
	token := openSession(t, router)

	rec := do(t, router, authed(http.MethodGet, "/v1/analysis/latest", token, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any run, got %d", rec.Code)
	}

	rec = analyze(t, router, token, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var summary domain.AnalysisSummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Totals.InvoicesMatched != 1 || summary.Totals.InvoicesOursOnly != 1 {
		t.Errorf("unexpected totals: %+v", summary.Totals)
	}

	rec = do(t, router, authed(http.MethodGet, "/v1/analysis/latest/invoices-ours-only", token, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var oursOnly []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&oursOnly); err != nil {
		t.Fatalf("decode table: %v", err)
	}
	if len(oursOnly) != 1 || oursOnly[0]["key"] != "A2" {
		t.Errorf("unexpected ours-only table: %v", oursOnly)
	}

	rec = do(t, router, authed(http.MethodGet, "/v1/analysis/latest/unknown", token, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown table, got %d", rec.Code)
	}

	rec = do(t, router, authed(http.MethodGet, "/v1/analysis/latest/report.xlsx", token, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), ".xlsx") {
		t.Errorf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}
	if rec.Body.Len() == 0 {
		t.Error("expected report body")
	}

	// The explicit mappings were saved, so a second run needs no config.
	rec = analyze(t, router, openSession(t, router), false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected template-driven run to succeed, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAnalysis_MissingMapping(t *testing.T) {
	router := newTestRouter(t)
	rec := analyze(t, router, openSession(t, router), false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAnalysis_BadConfig(t *testing.T) {
	router := newTestRouter(t)
	token := openSession(t, router)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	mw.WriteField("config", "{not json")
	mw.Close()
	req := authed(http.MethodPost, "/v1/analysis", token, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := do(t, router, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAnalysis_NotMultipart(t *testing.T) {
	router := newTestRouter(t)
	req := authed(http.MethodPost, "/v1/analysis", openSession(t, router), bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")

	rec := do(t, router, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestTemplatesCRUD(t *testing.T) {
	router := newTestRouter(t)
	token := openSession(t, router)

	rec := do(t, router, authed(http.MethodPut, "/v1/templates/globex", token, bytes.NewBufferString(mappingJSON)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, authed(http.MethodPut, "/v1/templates/broken", token, bytes.NewBufferString(`{"date":"Date"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for mapping without invoice column, got %d", rec.Code)
	}

	rec = do(t, router, authed(http.MethodGet, "/v1/templates/match?filename=GLOBEX_2024.xlsx", token, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var tpl domain.Template
	if err := json.NewDecoder(rec.Body).Decode(&tpl); err != nil {
		t.Fatalf("decode template: %v", err)
	}
	if tpl.Key != "globex" || tpl.Mapping.InvoiceNo != "Invoice" {
		t.Errorf("unexpected template: %+v", tpl)
	}

	rec = do(t, router, authed(http.MethodGet, "/v1/templates/globex", token, nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"invoice_no":"Invoice"`) {
		t.Errorf("unexpected template response %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(t, router, authed(http.MethodGet, "/v1/templates/initech", token, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown template, got %d", rec.Code)
	}

	rec = do(t, router, authed(http.MethodGet, "/v1/templates", token, nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("unexpected list response %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, authed(http.MethodDelete, "/v1/templates/globex", token, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	rec = do(t, router, authed(http.MethodDelete, "/v1/templates/globex", token, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestEndSession(t *testing.T) {
	router := newTestRouter(t)
	token := openSession(t, router)

	rec := do(t, router, authed(http.MethodDelete, "/v1/sessions/current", token, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without state, got %d", rec.Code)
	}

	if rec = analyze(t, router, token, true); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(t, router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if !strings.Contains(rec.Body.String(), `"active_sessions":1`) {
		t.Errorf("expected one active session in health, got %s", rec.Body.String())
	}

	rec = do(t, router, authed(http.MethodDelete, "/v1/sessions/current", token, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(t, router, authed(http.MethodGet, "/v1/analysis/latest", token, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after ending session, got %d", rec.Code)
	}
}

func TestRunMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)
	analyze(t, router, openSession(t, router), true)

	rec := do(t, router, httptest.NewRequest(http.MethodGet, "/v1/metrics/runs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap domain.RunMetrics
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if snap.TotalRuns != 1 {
		t.Errorf("expected 1 run, got %+v", snap)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := handler.NewRouter(nil, nil, observability.NewMetrics(), handler.Options{
		AllowedOrigins: []string{"https://app.example"},
	}, zap.NewNop())

	req := httptest.NewRequest(http.MethodOptions, "/v1/analysis", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := do(t, router, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("expected allowed origin header, got %q", got)
	}
}
