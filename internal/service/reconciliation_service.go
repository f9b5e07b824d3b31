package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/recomatch-go/internal/domain"
	"github.com/boddenberg/recomatch-go/internal/infra/observability"
	"github.com/boddenberg/recomatch-go/internal/infra/resilience"
	"github.com/boddenberg/recomatch-go/internal/port"
	"github.com/boddenberg/recomatch-go/internal/recon"
)

var tracer = otel.Tracer("service/reconciliation")

// Result table names served by Table.
const (
	TableInvoicesMatched    = "invoices-matched"
	TableInvoicesOursOnly   = "invoices-ours-only"
	TableInvoicesTheirsOnly = "invoices-theirs-only"
	TablePayments           = "payments"
	TableBalances           = "balances"
)

// SessionState is what a session remembers between requests: the last
// successful result and the mappings that produced it.
type SessionState struct {
	Result  *domain.AnalysisResult
	Ours    *domain.Mapping
	Theirs  *domain.Mapping
	Options domain.RunOptions
}

// AnalyzeRequest is one "run analysis" action. A nil mapping is looked up
// in the template store by filename, then in the session.
type AnalyzeRequest struct {
	SessionID string
	Ours      []domain.UploadFile
	Theirs    []domain.UploadFile
	Config    domain.RunConfig
}

// Defaults are the run options applied when a request leaves them unset.
type Defaults struct {
	LocalCurrency    string
	InvoiceKeyDigits int
}

// EngineFunc runs the reconciliation pipeline.
type EngineFunc func(recon.Input) (*domain.AnalysisResult, error)

// Option customizes a ReconciliationService.
type Option func(*ReconciliationService)

// WithEngine replaces the pipeline, for tests.
func WithEngine(fn EngineFunc) Option {
	return func(s *ReconciliationService) { s.engine = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *ReconciliationService) { s.now = now }
}

// ReconciliationService reads uploads, resolves mappings, runs the engine
// and keeps the latest result per session.
type ReconciliationService struct {
	reader    port.TableReader
	templates port.TemplateStore
	reports   port.ReportWriter
	sessions  port.Cache[*SessionState]
	bulkhead  *resilience.Bulkhead
	defaults  Defaults
	metrics   *observability.Metrics
	logger    *zap.Logger
	engine    EngineFunc
	now       func() time.Time
}

// NewReconciliationService creates the service with all dependencies injected.
func NewReconciliationService(
	reader port.TableReader,
	templates port.TemplateStore,
	reports port.ReportWriter,
	sessions port.Cache[*SessionState],
	bulkhead *resilience.Bulkhead,
	defaults Defaults,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts ...Option,
) *ReconciliationService {
	s := &ReconciliationService{
		reader:    reader,
		templates: templates,
		reports:   reports,
		sessions:  sessions,
		bulkhead:  bulkhead,
		defaults:  defaults,
		metrics:   metrics,
		logger:    logger,
		engine:    recon.Run,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze runs one analysis and makes it the session's latest result. On
// any error the previous result stays in place.
func (s *ReconciliationService) Analyze(ctx context.Context, req *AnalyzeRequest) (*domain.AnalysisSummary, error) {
	ctx, span := tracer.Start(ctx, "ReconciliationService.Analyze")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", req.SessionID),
		attribute.Int("files.ours", len(req.Ours)),
		attribute.Int("files.theirs", len(req.Theirs)),
	)

	if !s.bulkhead.TryAcquire() {
		s.metrics.IncrRun(observability.RunRejected)
		s.logger.Warn("analysis rejected", zap.String("session_id", req.SessionID), zap.Int("limit", s.bulkhead.Capacity()))
		return nil, &domain.ErrBusy{Limit: s.bulkhead.Capacity()}
	}
	defer s.bulkhead.Release()

	start := s.now()
	res, err := s.analyze(ctx, req)
	s.metrics.RecordDuration("analyze", s.now().Sub(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.IncrRun(runStatus(err))
		s.logger.Warn("analysis failed", zap.String("session_id", req.SessionID), zap.Error(err))
		return nil, err
	}

	s.metrics.IncrRun(observability.RunSuccess)
	s.metrics.RecordResult(res)
	s.logger.Info("analysis completed",
		zap.String("session_id", req.SessionID),
		zap.String("analysis_id", res.ID),
		zap.Int("rows_ours", res.Ours.Rows),
		zap.Int("rows_theirs", res.Theirs.Rows),
		zap.Int("invoices_matched", res.Totals.InvoicesMatched),
		zap.Int("payments_matched", res.Totals.PaymentsMatched),
		zap.Int("file_errors", len(res.FileErrors)),
		zap.Duration("latency", s.now().Sub(start)),
	)
	return res.Summary(), nil
}

func (s *ReconciliationService) analyze(ctx context.Context, req *AnalyzeRequest) (*domain.AnalysisResult, error) {
	if len(req.Ours) == 0 {
		return nil, &domain.ErrValidation{Field: "ours", Message: "at least one file is required"}
	}
	if len(req.Theirs) == 0 {
		return nil, &domain.ErrValidation{Field: "theirs", Message: "at least one file is required"}
	}

	state, _ := s.sessions.Get(req.SessionID)

	opts := req.Config.Options
	if opts.InvoiceKeyDigits == nil {
		digits := s.defaults.InvoiceKeyDigits
		opts.InvoiceKeyDigits = &digits
	}
	opts = opts.WithDefaults(s.defaults.LocalCurrency)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	ours, oursExplicit, err := s.resolveMapping(ctx, domain.SideOurs, req.Config.Ours, req.Ours, state)
	if err != nil {
		return nil, err
	}
	theirs, theirsExplicit, err := s.resolveMapping(ctx, domain.SideTheirs, req.Config.Theirs, req.Theirs, state)
	if err != nil {
		return nil, err
	}

	var (
		ourTable, theirTable *domain.Table
		ourErrs, theirErrs   []domain.FileError
	)
	readStart := s.now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ourTable, ourErrs = s.reader.ReadSide(gctx, domain.SideOurs, req.Ours)
		return gctx.Err()
	})
	g.Go(func() error {
		theirTable, theirErrs = s.reader.ReadSide(gctx, domain.SideTheirs, req.Theirs)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &domain.ErrTimeout{Operation: "read uploads"}
		}
		return nil, err
	}
	s.metrics.RecordDuration("read", s.now().Sub(readStart))

	if err := requireReadable(domain.SideOurs, ourTable, ourErrs); err != nil {
		return nil, err
	}
	if err := requireReadable(domain.SideTheirs, theirTable, theirErrs); err != nil {
		return nil, err
	}

	res, err := s.runEngine(recon.Input{
		Ours:   ourTable,
		Theirs: theirTable,
		Config: domain.RunConfig{Ours: ours, Theirs: theirs, Options: opts},
	})
	if err != nil {
		return nil, err
	}
	res.ID = uuid.NewString()
	res.CreatedAt = s.now().UTC()
	res.FileErrors = append(append([]domain.FileError{}, ourErrs...), theirErrs...)

	s.sessions.Update(req.SessionID, func(_ *SessionState, _ bool) *SessionState {
		return &SessionState{Result: res, Ours: ours, Theirs: theirs, Options: opts}
	})

	if oursExplicit {
		s.rememberMapping(ctx, req.Ours, ours)
	}
	if theirsExplicit {
		s.rememberMapping(ctx, req.Theirs, theirs)
	}
	return res, nil
}

// runEngine converts a panic inside the pipeline into ErrAnalysis.
func (s *ReconciliationService) runEngine(in recon.Input) (res *domain.AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("analysis panicked", zap.Any("panic", r))
			res, err = nil, &domain.ErrAnalysis{Cause: fmt.Sprint(r)}
		}
	}()
	return s.engine(in)
}

// resolveMapping picks the mapping for one side: the request's, then a
// template matching one of the filenames, then the session's last one.
func (s *ReconciliationService) resolveMapping(ctx context.Context, side domain.Side, explicit *domain.Mapping, files []domain.UploadFile, state *SessionState) (*domain.Mapping, bool, error) {
	if explicit != nil {
		return explicit, true, nil
	}

	for _, f := range files {
		tpl, ok, err := s.templates.Match(ctx, f.Name)
		if err != nil {
			s.metrics.IncrExternalError("template_store")
			s.logger.Warn("template lookup failed", zap.String("file", f.Name), zap.Error(err))
			break
		}
		if ok {
			s.metrics.IncrCacheHit("template")
			s.logger.Debug("template applied", zap.String("side", string(side)), zap.String("key", tpl.Key))
			m := tpl.Mapping
			return &m, false, nil
		}
	}
	s.metrics.IncrCacheMiss("template")

	if state != nil {
		last := state.Ours
		if side == domain.SideTheirs {
			last = state.Theirs
		}
		if last != nil {
			return last, false, nil
		}
	}
	return nil, false, &domain.ErrValidation{
		Field:   string(side) + ".mapping",
		Message: "no mapping given and none saved for these files",
	}
}

// rememberMapping saves m under the first file's name. Failures only log.
func (s *ReconciliationService) rememberMapping(ctx context.Context, files []domain.UploadFile, m *domain.Mapping) {
	key := filepath.Base(files[0].Name)
	if err := s.templates.Put(ctx, key, *m); err != nil {
		s.metrics.IncrExternalError("template_store")
		s.logger.Warn("template auto-save failed", zap.String("key", key), zap.Error(err))
	}
}

func requireReadable(side domain.Side, t *domain.Table, errs []domain.FileError) error {
	if t != nil && len(t.Files) > 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return &domain.ErrValidation{
		Field:   string(side),
		Message: "no readable file: " + strings.Join(msgs, "; "),
	}
}

func runStatus(err error) string {
	var validation *domain.ErrValidation
	if errors.As(err, &validation) {
		return observability.RunInvalid
	}
	return observability.RunFailed
}

// Latest returns the session's latest result.
func (s *ReconciliationService) Latest(ctx context.Context, sessionID string) (*domain.AnalysisResult, error) {
	_, span := tracer.Start(ctx, "ReconciliationService.Latest")
	defer span.End()

	state, ok := s.sessions.Get(sessionID)
	if !ok || state == nil || state.Result == nil {
		return nil, &domain.ErrNotFound{Resource: "analysis", ID: sessionID}
	}
	return state.Result, nil
}

// Table returns one table of the latest result by name.
func (s *ReconciliationService) Table(ctx context.Context, sessionID, name string) (any, error) {
	res, err := s.Latest(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch name {
	case TableInvoicesMatched:
		return res.InvoicesMatched, nil
	case TableInvoicesOursOnly:
		return res.InvoicesOursOnly, nil
	case TableInvoicesTheirsOnly:
		return res.InvoicesTheirsOnly, nil
	case TablePayments:
		return res.Payments, nil
	case TableBalances:
		return res.Balances, nil
	default:
		return nil, &domain.ErrNotFound{Resource: "table", ID: name}
	}
}

// WriteReport renders the latest result into w.
func (s *ReconciliationService) WriteReport(ctx context.Context, sessionID string, w io.Writer) error {
	ctx, span := tracer.Start(ctx, "ReconciliationService.WriteReport")
	defer span.End()

	res, err := s.Latest(ctx, sessionID)
	if err != nil {
		return err
	}
	start := s.now()
	if err := s.reports.Write(ctx, w, res); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	s.metrics.RecordDuration("report", s.now().Sub(start))
	return nil
}

// ReportFormat returns the content type and file extension of reports.
func (s *ReconciliationService) ReportFormat() (contentType, ext string) {
	return s.reports.ContentType(), s.reports.Extension()
}

// ListTemplates returns every saved mapping.
func (s *ReconciliationService) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	return s.templates.List(ctx)
}

// MatchTemplate returns the saved mapping that applies to filename.
func (s *ReconciliationService) MatchTemplate(ctx context.Context, filename string) (*domain.Template, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, &domain.ErrValidation{Field: "filename", Message: "is required"}
	}
	tpl, ok, err := s.templates.Match(ctx, filename)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "template", ID: filename}
	}
	return tpl, nil
}

// GetTemplate returns the mapping saved under key.
func (s *ReconciliationService) GetTemplate(ctx context.Context, key string) (*domain.Template, error) {
	tpl, ok, err := s.templates.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "template", ID: key}
	}
	return tpl, nil
}

// SaveTemplate validates and stores a mapping under key.
func (s *ReconciliationService) SaveTemplate(ctx context.Context, key string, m domain.Mapping) error {
	if err := m.Validate(domain.Side("mapping")); err != nil {
		return err
	}
	if err := s.templates.Put(ctx, key, m); err != nil {
		return err
	}
	s.logger.Info("template saved", zap.String("key", key))
	return nil
}

// DeleteTemplate removes a saved mapping.
func (s *ReconciliationService) DeleteTemplate(ctx context.Context, key string) error {
	if err := s.templates.Delete(ctx, key); err != nil {
		return err
	}
	s.logger.Info("template deleted", zap.String("key", key))
	return nil
}

// Ready reports whether the template store can be read.
func (s *ReconciliationService) Ready(ctx context.Context) error {
	_, err := s.templates.List(ctx)
	return err
}

// RunMetrics returns cumulative run statistics.
func (s *ReconciliationService) RunMetrics() *domain.RunMetrics {
	return s.metrics.GetRunSnapshot()
}

// EndSession drops the result, mappings and options held for a session.
func (s *ReconciliationService) EndSession(ctx context.Context, sessionID string) error {
	_, span := tracer.Start(ctx, "ReconciliationService.EndSession")
	defer span.End()

	if _, ok := s.sessions.Get(sessionID); !ok {
		return &domain.ErrNotFound{Resource: "session state", ID: sessionID}
	}
	s.sessions.Delete(sessionID)
	s.logger.Info("session state cleared", zap.String("session_id", sessionID))
	return nil
}

// Capacity reports running analyses against the concurrency limit.
func (s *ReconciliationService) Capacity() *domain.RunCapacity {
	return &domain.RunCapacity{
		InFlight:       s.bulkhead.InFlight(),
		Limit:          s.bulkhead.Capacity(),
		ActiveSessions: s.sessions.Len(),
	}
}
