package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/fetchcascade/internal/domain/fetch"
	"github.com/kailas-cloud/fetchcascade/internal/usecase/fetcher"
	"github.com/kailas-cloud/fetchcascade/pkg/browser"
)

// cascadeClient is the subset of pkg/browser.Client the façade drives,
// declared locally so handlers can be tested against a fake.
type cascadeClient interface {
	Browse(ctx context.Context, req fetch.BrowseRequest) (fetch.BrowseResult, error)
	BatchBrowse(ctx context.Context, reqs []fetch.BrowseRequest) []browser.BatchResult
	DomainIntelligence(ctx context.Context, hostname string) (browser.DomainIntelligenceResult, error)
	LearningStats(ctx context.Context) (browser.LearningStatsResult, error)
	Health(ctx context.Context) browser.HealthReport
	Usage(ctx context.Context, period browser.UsagePeriod) browser.UsageReport
}

// Server adapts pkg/browser's in-process Client to an HTTP surface for
// callers that don't import the Go module directly.
type Server struct {
	client    cascadeClient
	logger    *zap.Logger
	validator *validator.Validate
}

// NewServer creates an HTTP API server over an already-wired Client.
func NewServer(client *browser.Client, logger *zap.Logger) *Server {
	return &Server{client: client, logger: logger, validator: validator.New()}
}

// Routes mounts every handler onto r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Post("/v1/browse", s.Browse)
	r.Post("/v1/batch-browse", s.BatchBrowse)
	r.Get("/v1/domains/{hostname}/intelligence", s.DomainIntelligence)
	r.Get("/v1/stats", s.Stats)
	r.Get("/v1/usage", s.Usage)
}

// Browse handles POST /v1/browse.
func (s *Server) Browse(w http.ResponseWriter, r *http.Request) {
	var body BrowseRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "malformed request body")
		return
	}
	if s.validator != nil {
		if err := s.validator.Struct(body); err != nil {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
			return
		}
	}

	req := body.toBrowseRequest()
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}

	result, err := s.client.Browse(r.Context(), req)
	if err != nil {
		s.writeBrowseError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newBrowseResponseBody(result))
}

// BatchBrowse handles POST /v1/batch-browse.
func (s *Server) BatchBrowse(w http.ResponseWriter, r *http.Request) {
	var body BatchBrowseRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "malformed request body")
		return
	}
	if s.validator != nil {
		if err := s.validator.Struct(body); err != nil {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
			return
		}
	}

	browseReqs := make([]fetch.BrowseRequest, len(body.Requests))
	for i, b := range body.Requests {
		browseReqs[i] = b.toBrowseRequest()
	}

	results := s.client.BatchBrowse(r.Context(), browseReqs)

	out := BatchBrowseResponseBody{Results: make([]BatchBrowseResultBody, len(results))}
	for i, res := range results {
		entry := BatchBrowseResultBody{URL: res.Request.URL}
		if res.Err != nil {
			entry.Error = res.Err.Error()
		} else {
			resBody := newBrowseResponseBody(res.Result)
			entry.Result = &resBody
		}
		out.Results[i] = entry
	}

	writeJSON(w, http.StatusOK, out)
}

// DomainIntelligence handles GET /v1/domains/{hostname}/intelligence.
func (s *Server) DomainIntelligence(w http.ResponseWriter, r *http.Request) {
	hostname := chi.URLParam(r, "hostname")
	if hostname == "" {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "hostname is required")
		return
	}

	result, err := s.client.DomainIntelligence(r.Context(), hostname)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternal, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, newDomainIntelligenceResponseBody(result))
}

// Stats handles GET /v1/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	result, err := s.client.LearningStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternal, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, newLearningStatsResponseBody(result))
}

// Usage handles GET /v1/usage?period=day|month|total.
func (s *Server) Usage(w http.ResponseWriter, r *http.Request) {
	period := browser.UsagePeriod(r.URL.Query().Get("period"))
	switch period {
	case browser.UsagePeriodDay, browser.UsagePeriodMonth, browser.UsagePeriodTotal:
	case "":
		period = browser.UsagePeriodDay
	default:
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "period must be one of day, month, total")
		return
	}

	report := s.client.Usage(r.Context(), period)
	writeJSON(w, http.StatusOK, newUsageResponseBody(report))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.client.Health(r.Context())
	httpStatus := http.StatusOK
	if report.Status != browser.HealthStatusHealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, newHealthResponseBody(report))
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// writeBrowseError maps the Tiered Fetcher's error taxonomy (spec §7) onto
// HTTP status codes and the façade's error codes.
func (s *Server) writeBrowseError(w http.ResponseWriter, err error) {
	var invalidErr *fetcher.InvalidRequestError
	var budgetErr *fetcher.BudgetExhaustedError
	var allTiersErr *fetcher.AllTiersFailedError
	var terminalErr *fetcher.TerminalError
	var cancelledErr *fetcher.CancelledError

	switch {
	case errors.As(err, &invalidErr):
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
	case errors.As(err, &budgetErr):
		writeError(w, http.StatusRequestTimeout, ErrorResponseCodeBudgetExhausted, err.Error())
	case errors.As(err, &allTiersErr):
		writeError(w, http.StatusBadGateway, ErrorResponseCodeAllTiersFailed, err.Error())
	case errors.As(err, &terminalErr):
		writeError(w, http.StatusForbidden, ErrorResponseCodeTerminal, err.Error())
	case errors.As(err, &cancelledErr):
		writeError(w, http.StatusRequestTimeout, ErrorResponseCodeCancelled, err.Error())
	default:
		if s.logger != nil {
			s.logger.Error("browse failed", zap.Error(err))
		}
		writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternal, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
