package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/marketlens/internal/domain"
	"github.com/kailas-cloud/marketlens/internal/logger"
	"github.com/kailas-cloud/marketlens/internal/metrics"
	healthuc "github.com/kailas-cloud/marketlens/internal/usecase/health"
)

// maxTraceIDLen keeps caller ids usable as storage keys.
const maxTraceIDLen = 128

// ErrorCode is the machine-readable error category in API error bodies.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeValidationFailed   ErrorCode = "validation_failed"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeAnalysisNotFound   ErrorCode = "analysis_not_found"
	CodeBudgetExceeded     ErrorCode = "llm_budget_exceeded"
	CodeStageOutputMissing ErrorCode = "stage_output_missing"
	CodeAnalysisFailed     ErrorCode = "analysis_failed"
	CodeLLMProviderError   ErrorCode = "llm_provider_error"
	CodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Stage   string    `json:"stage,omitempty"`
}

// CreateAnalysisRequest is the body of POST /v1/analyses.
type CreateAnalysisRequest struct {
	MarketOpportunity string `json:"market_opportunity"`
	TraceID           string `json:"trace_id,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Analyzer runs the research pipeline.
type Analyzer interface {
	Run(ctx context.Context, subject, traceID string) (domain.Report, error)
}

// ReportStore persists finished reports.
type ReportStore interface {
	Save(ctx context.Context, rep domain.Report) error
	Get(ctx context.Context, traceID string) (domain.Report, error)
}

// UsageReporter reports LLM token consumption.
type UsageReporter interface {
	GetReport(ctx context.Context, period domain.BudgetPeriod) domain.UsageReport
}

// UsageResponse is the body of GET /v1/usage.
type UsageResponse struct {
	Period          string `json:"period"`
	PeriodStart     int64  `json:"period_start"`
	PeriodEnd       int64  `json:"period_end"`
	Model           string `json:"model,omitempty"`
	TokensUsed      int64  `json:"tokens_used"`
	TokensLimit     int64  `json:"tokens_limit"`
	TokensRemaining int64  `json:"tokens_remaining"`
	Exhausted       bool   `json:"is_exhausted"`
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the analyses API.
type Server struct {
	analyzer      Analyzer
	reports       ReportStore
	health        HealthChecker
	usage         UsageReporter
	logger        *zap.Logger
	newTraceID    func() string
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(analyzer Analyzer, reports ReportStore, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		analyzer:   analyzer,
		reports:    reports,
		health:     health,
		logger:     logger,
		newTraceID: uuid.NewString,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeAnalysisNotFound),
		sentinelHandler(domain.ErrTokenBudgetExceeded, http.StatusPaymentRequired, CodeBudgetExceeded),
		stageErrorHandler(domain.ErrStageOutputMissing, CodeStageOutputMissing),
		stageErrorHandler(domain.ErrLLMProviderError, CodeLLMProviderError),
		stageErrorHandler(domain.ErrExecutorFailed, CodeAnalysisFailed),
	}
	return s
}

// WithUsage enables GET /v1/usage.
func (s *Server) WithUsage(u UsageReporter) *Server {
	s.usage = u
	return s
}

// Router mounts the API on a chi router with the standard middleware stack.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Post("/v1/analyses", s.CreateAnalysis)
	r.Get("/v1/analyses/{traceID}", s.GetAnalysis)
	if s.usage != nil {
		r.Get("/v1/usage", s.GetUsage)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// CreateAnalysis handles POST /v1/analyses. The pipeline runs synchronously.
func (s *Server) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req CreateAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	subject := strings.TrimSpace(req.MarketOpportunity)
	if subject == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "market_opportunity is required")
		return
	}

	traceID := strings.TrimSpace(req.TraceID)
	if traceID == "" {
		traceID = s.newTraceID()
	}
	if len(traceID) > maxTraceIDLen {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "trace_id is too long")
		return
	}

	ctx := logger.ContextWithLogger(r.Context(),
		logger.FromContext(r.Context()).With(zap.String("trace_id", traceID)))

	rep, err := s.analyzer.Run(ctx, subject, traceID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if err := s.reports.Save(ctx, rep); err != nil {
		// The report is still returned; only later lookups are affected.
		logger.FromContext(ctx).Error("Failed to store report", zap.Error(err))
	}

	writeJSON(w, http.StatusCreated, rep)
}

// GetAnalysis handles GET /v1/analyses/{traceID}.
func (s *Server) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	traceID := chi.URLParam(r, "traceID")
	if traceID == "" || len(traceID) > maxTraceIDLen {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "invalid trace id")
		return
	}

	rep, err := s.reports.Get(r.Context(), traceID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// GetUsage handles GET /v1/usage?period=day|month.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period, err := domain.ParseBudgetPeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	rep := s.usage.GetReport(r.Context(), period)
	writeJSON(w, http.StatusOK, UsageResponse{
		Period:          string(rep.Period),
		PeriodStart:     rep.PeriodStart.UnixMilli(),
		PeriodEnd:       rep.PeriodEnd.UnixMilli(),
		Model:           rep.Model,
		TokensUsed:      rep.Budget.Used,
		TokensLimit:     rep.Budget.Limit,
		TokensRemaining: rep.Budget.Remaining,
		Exhausted:       rep.Exhausted,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrNotFound,
		domain.ErrTokenBudgetExceeded,
		domain.ErrStageOutputMissing,
		domain.ErrLLMProviderError,
		domain.ErrExecutorFailed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// stageErrorHandler maps pipeline failures to 502 and names the failing stage.
func stageErrorHandler(sentinel error, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		resp := ErrorResponse{Code: code, Message: msg}
		var se *domain.StageError
		if errors.As(err, &se) {
			resp.Stage = se.Stage
		}
		writeJSON(w, http.StatusBadGateway, resp)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
