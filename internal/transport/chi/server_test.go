package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/fetchcascade/internal/domain/fetch"
	"github.com/kailas-cloud/fetchcascade/internal/usecase/fetcher"
	"github.com/kailas-cloud/fetchcascade/pkg/browser"
)

type fakeClient struct {
	browseFn     func(ctx context.Context, req fetch.BrowseRequest) (fetch.BrowseResult, error)
	healthReport browser.HealthReport
}

func (f *fakeClient) Browse(ctx context.Context, req fetch.BrowseRequest) (fetch.BrowseResult, error) {
	return f.browseFn(ctx, req)
}

func (f *fakeClient) BatchBrowse(ctx context.Context, reqs []fetch.BrowseRequest) []browser.BatchResult {
	out := make([]browser.BatchResult, len(reqs))
	for i, req := range reqs {
		res, err := f.Browse(ctx, req)
		out[i] = browser.BatchResult{Request: req, Result: res, Err: err}
	}
	return out
}

func (f *fakeClient) DomainIntelligence(ctx context.Context, hostname string) (browser.DomainIntelligenceResult, error) {
	return browser.DomainIntelligenceResult{
		Hostname: hostname,
		Patterns: []browser.LearnedPattern{{ID: "p1", Confidence: 0.9}},
	}, nil
}

func (f *fakeClient) LearningStats(ctx context.Context) (browser.LearningStatsResult, error) {
	return browser.LearningStatsResult{PatternCount: 3, VectorRecordCount: 10}, nil
}

func (f *fakeClient) Usage(ctx context.Context, period browser.UsagePeriod) browser.UsageReport {
	return browser.UsageReport{Period: period, TokensLimit: 1_000_000, TokensRemaining: 999_000}
}

func (f *fakeClient) Health(ctx context.Context) browser.HealthReport {
	if f.healthReport.Status == "" {
		return browser.HealthReport{Status: browser.HealthStatusHealthy}
	}
	return f.healthReport
}

func newTestServer(client *fakeClient) (*Server, chirouter.Router) {
	s := &Server{client: client, validator: validator.New()}
	r := chirouter.NewRouter()
	s.Routes(r)
	return s, r
}

func TestServer_Browse_Success(t *testing.T) {
	fc := &fakeClient{
		browseFn: func(_ context.Context, req fetch.BrowseRequest) (fetch.BrowseResult, error) {
			return fetch.BrowseResult{URL: req.URL, Title: "Example"}, nil
		},
	}
	_, r := newTestServer(fc)

	body, _ := json.Marshal(BrowseRequestBody{URL: "https://example.com"})
	req := httptest.NewRequest(http.MethodPost, "/v1/browse", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp BrowseResponseBody
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Title != "Example" {
		t.Errorf("title = %q, want Example", resp.Title)
	}
}

func TestServer_Browse_MissingURL(t *testing.T) {
	fc := &fakeClient{browseFn: func(context.Context, fetch.BrowseRequest) (fetch.BrowseResult, error) {
		t.Fatal("browse should not be called for an invalid request")
		return fetch.BrowseResult{}, nil
	}}
	_, r := newTestServer(fc)

	body, _ := json.Marshal(BrowseRequestBody{})
	req := httptest.NewRequest(http.MethodPost, "/v1/browse", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestServer_Browse_AllTiersFailed(t *testing.T) {
	fc := &fakeClient{
		browseFn: func(context.Context, fetch.BrowseRequest) (fetch.BrowseResult, error) {
			return fetch.BrowseResult{}, &fetcher.AllTiersFailedError{LastReason: fetch.ReasonTimeout}
		},
	}
	_, r := newTestServer(fc)

	body, _ := json.Marshal(BrowseRequestBody{URL: "https://example.com"})
	req := httptest.NewRequest(http.MethodPost, "/v1/browse", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadGateway)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != ErrorResponseCodeAllTiersFailed {
		t.Errorf("code = %q, want %q", errResp.Code, ErrorResponseCodeAllTiersFailed)
	}
}

func TestServer_BatchBrowse(t *testing.T) {
	fc := &fakeClient{
		browseFn: func(_ context.Context, req fetch.BrowseRequest) (fetch.BrowseResult, error) {
			return fetch.BrowseResult{URL: req.URL}, nil
		},
	}
	_, r := newTestServer(fc)

	body, _ := json.Marshal(BatchBrowseRequestBody{Requests: []BrowseRequestBody{
		{URL: "https://a.example.com"},
		{URL: "https://b.example.com"},
	}})
	req := httptest.NewRequest(http.MethodPost, "/v1/batch-browse", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp BatchBrowseResponseBody
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results len = %d, want 2", len(resp.Results))
	}
}

func TestServer_DomainIntelligence(t *testing.T) {
	fc := &fakeClient{}
	_, r := newTestServer(fc)

	req := httptest.NewRequest(http.MethodGet, "/v1/domains/example.com/intelligence", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp DomainIntelligenceResponseBody
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Hostname != "example.com" {
		t.Errorf("hostname = %q, want example.com", resp.Hostname)
	}
	if len(resp.Patterns) != 1 {
		t.Fatalf("patterns len = %d, want 1", len(resp.Patterns))
	}
}

func TestServer_Stats(t *testing.T) {
	fc := &fakeClient{}
	_, r := newTestServer(fc)

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp LearningStatsResponseBody
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.PatternCount != 3 {
		t.Errorf("pattern count = %d, want 3", resp.PatternCount)
	}
}

func TestServer_Usage(t *testing.T) {
	fc := &fakeClient{}
	_, r := newTestServer(fc)

	req := httptest.NewRequest(http.MethodGet, "/v1/usage?period=month", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp UsageResponseBody
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Period != "month" {
		t.Errorf("period = %q, want month", resp.Period)
	}
	if resp.TokensRemaining != 999_000 {
		t.Errorf("tokens remaining = %d, want 999000", resp.TokensRemaining)
	}
}

func TestServer_Usage_BadPeriod(t *testing.T) {
	fc := &fakeClient{}
	_, r := newTestServer(fc)

	req := httptest.NewRequest(http.MethodGet, "/v1/usage?period=fortnight", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestServer_HealthCheck(t *testing.T) {
	fc := &fakeClient{}
	_, r := newTestServer(fc)

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestServer_HealthCheck_Unhealthy(t *testing.T) {
	fc := &fakeClient{healthReport: browser.HealthReport{
		Status: browser.HealthStatusUnhealthy,
		Checks: map[string]string{"database": "error"},
	}}
	_, r := newTestServer(fc)

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}

	var resp HealthResponseBody
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Checks["database"] != "error" {
		t.Errorf("checks[database] = %q, want error", resp.Checks["database"])
	}
}
