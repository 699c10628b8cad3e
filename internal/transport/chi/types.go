package chi

import (
	"github.com/kailas-cloud/fetchcascade/internal/domain/changepattern"
	"github.com/kailas-cloud/fetchcascade/internal/domain/fetch"
	"github.com/kailas-cloud/fetchcascade/internal/domain/pattern"
	"github.com/kailas-cloud/fetchcascade/pkg/browser"
)

// ErrorResponseCode is the closed set of machine-readable error codes the
// façade returns alongside a human-readable message.
type ErrorResponseCode string

// Error codes.
const (
	ErrorResponseCodeBadRequest       ErrorResponseCode = "bad_request"
	ErrorResponseCodeBudgetExhausted  ErrorResponseCode = "budget_exhausted"
	ErrorResponseCodeAllTiersFailed   ErrorResponseCode = "all_tiers_failed"
	ErrorResponseCodeTerminal         ErrorResponseCode = "terminal_failure"
	ErrorResponseCodeCancelled        ErrorResponseCode = "cancelled"
	ErrorResponseCodeInternal         ErrorResponseCode = "internal_error"
)

// ErrorResponse is the façade's JSON error envelope.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// BrowseRequestBody is the wire shape of POST /v1/browse.
type BrowseRequestBody struct {
	URL             string   `json:"url" validate:"required,url"`
	ContentTypeHint string   `json:"content_type_hint,omitempty"`
	SessionProfile  string   `json:"session_profile,omitempty"`
	MaxLatencyMs    int64    `json:"max_latency_ms,omitempty" validate:"omitempty,min=0"`
	MaxCostTier     string   `json:"max_cost_tier,omitempty" validate:"omitempty,oneof=intelligence lightweight playwright"`
	Freshness       string   `json:"freshness,omitempty"`
	VerifyMode      string   `json:"verify_mode,omitempty" validate:"omitempty,oneof=basic standard thorough"`
	MustContain     []string `json:"must_contain,omitempty"`
	RegexPatterns   []string `json:"regex_patterns,omitempty"`
}

// toBrowseRequest converts the wire body into a fetch.BrowseRequest,
// applying cascade defaults to any unset budget field.
func (b BrowseRequestBody) toBrowseRequest() fetch.BrowseRequest {
	req := fetch.BrowseRequest{
		URL:             b.URL,
		ContentTypeHint: b.ContentTypeHint,
		SessionProfile:  b.SessionProfile,
		Budget: fetch.Budget{
			MaxLatencyMs: b.MaxLatencyMs,
			MaxCostTier:  fetch.Tier(b.MaxCostTier),
			Freshness:    fetch.Freshness(b.Freshness),
		},
	}
	if b.VerifyMode != "" || len(b.MustContain) > 0 || len(b.RegexPatterns) > 0 {
		req.Verify = &fetch.Verification{
			Mode:          fetch.VerifyMode(b.VerifyMode),
			MustContain:   b.MustContain,
			RegexPatterns: b.RegexPatterns,
		}
	}
	return req.WithDefaults()
}

// BrowseResponseBody is the wire shape of a single browse result.
type BrowseResponseBody struct {
	URL            string             `json:"url"`
	FinalURL       string             `json:"final_url"`
	Title          string             `json:"title"`
	Markdown       string             `json:"markdown"`
	Text           string             `json:"text"`
	HTML           string             `json:"html,omitempty"`
	Tables         []fetch.Table      `json:"tables,omitempty"`
	DiscoveredAPIs []string           `json:"discovered_apis,omitempty"`
	TierUsed       string             `json:"tier_used"`
	TiersAttempted []string           `json:"tiers_attempted"`
	LoadTimeMs     int64              `json:"load_time_ms"`
	Cached         bool               `json:"cached"`
	Confidence     float64            `json:"confidence"`
	ContentChanged bool               `json:"content_changed"`
}

func newBrowseResponseBody(r fetch.BrowseResult) BrowseResponseBody {
	tiers := make([]string, len(r.Metadata.TiersAttempted))
	for i, t := range r.Metadata.TiersAttempted {
		tiers[i] = string(t)
	}
	return BrowseResponseBody{
		URL:            r.URL,
		FinalURL:       r.FinalURL,
		Title:          r.Title,
		Markdown:       r.Content.Markdown,
		Text:           r.Content.Text,
		HTML:           r.Content.HTML,
		Tables:         r.Tables,
		DiscoveredAPIs: r.DiscoveredAPIs,
		TierUsed:       string(r.Metadata.TierUsed),
		TiersAttempted: tiers,
		LoadTimeMs:     r.Metadata.LoadTimeMs,
		Cached:         r.Metadata.Cached,
		Confidence:     r.Learning.Confidence,
		ContentChanged: r.Learning.ContentChanged,
	}
}

// BatchBrowseRequestBody is the wire shape of POST /v1/batch-browse.
type BatchBrowseRequestBody struct {
	Requests []BrowseRequestBody `json:"requests" validate:"required,min=1,dive"`
}

// BatchBrowseResultBody pairs one batch entry's outcome with its error, if any.
type BatchBrowseResultBody struct {
	URL    string               `json:"url"`
	Result *BrowseResponseBody  `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// BatchBrowseResponseBody is the wire shape of a batch browse response.
type BatchBrowseResponseBody struct {
	Results []BatchBrowseResultBody `json:"results"`
}

// LearnedPatternBody summarizes one learned API pattern for the wire.
type LearnedPatternBody struct {
	ID                string          `json:"id"`
	TemplateType      pattern.Template `json:"template_type"`
	Method            string          `json:"method"`
	Confidence        float64         `json:"confidence"`
	SuccessCount      int             `json:"success_count"`
	FailureCount      int             `json:"failure_count"`
	AvgResponseTimeMs float64         `json:"avg_response_time_ms"`
	Source            pattern.Source  `json:"source"`
}

// ChangePatternBody summarizes one tracked content-change pattern for the wire.
type ChangePatternBody struct {
	URLPattern         string                          `json:"url_pattern"`
	DetectedType       changepattern.DetectedType       `json:"detected_type"`
	TypeConfidence     float64                          `json:"type_confidence"`
	NextExpectedChange string                           `json:"next_expected_change"`
	PredictionHits     int                              `json:"prediction_hits"`
	PredictionMisses   int                              `json:"prediction_misses"`
	Urgency            changepattern.Urgency             `json:"urgency"`
}

// DomainIntelligenceResponseBody is the wire shape of GET /v1/domains/{hostname}/intelligence.
type DomainIntelligenceResponseBody struct {
	Hostname       string               `json:"hostname"`
	Patterns       []LearnedPatternBody `json:"patterns"`
	ChangePatterns []ChangePatternBody  `json:"change_patterns"`
}

func newDomainIntelligenceResponseBody(r browser.DomainIntelligenceResult) DomainIntelligenceResponseBody {
	out := DomainIntelligenceResponseBody{Hostname: r.Hostname}
	for _, p := range r.Patterns {
		out.Patterns = append(out.Patterns, LearnedPatternBody{
			ID:                p.ID,
			TemplateType:      p.TemplateType,
			Method:            p.Method,
			Confidence:        p.Confidence,
			SuccessCount:      p.SuccessCount,
			FailureCount:      p.FailureCount,
			AvgResponseTimeMs: p.AvgResponseTimeMs,
			Source:            p.Source,
		})
	}
	for _, p := range r.ChangePatterns {
		out.ChangePatterns = append(out.ChangePatterns, ChangePatternBody{
			URLPattern:         p.URLPattern,
			DetectedType:       p.DetectedType,
			TypeConfidence:     p.TypeConfidence,
			NextExpectedChange: p.NextExpectedChange,
			PredictionHits:     p.PredictionHits,
			PredictionMisses:   p.PredictionMisses,
			Urgency:            p.Urgency,
		})
	}
	return out
}

// LearningStatsResponseBody is the wire shape of GET /v1/stats.
type LearningStatsResponseBody struct {
	PatternCount      int `json:"pattern_count"`
	VectorRecordCount int `json:"vector_record_count"`
	InFlightBrowses   int `json:"in_flight_browses"`
}

func newLearningStatsResponseBody(r browser.LearningStatsResult) LearningStatsResponseBody {
	return LearningStatsResponseBody{
		PatternCount:      r.PatternCount,
		VectorRecordCount: r.VectorRecordCount,
		InFlightBrowses:   r.InFlightBrowses,
	}
}

// UsageResponseBody is the wire shape of GET /v1/usage.
type UsageResponseBody struct {
	Period            string `json:"period"`
	PeriodStartMs     int64  `json:"period_start_ms"`
	PeriodEndMs       int64  `json:"period_end_ms"`
	EmbeddingRequests int    `json:"embedding_requests"`
	TokensUsed        int    `json:"tokens_used"`
	TokensLimit       int    `json:"tokens_limit"`
	TokensRemaining   int    `json:"tokens_remaining"`
	BudgetExhausted   bool   `json:"budget_exhausted"`
	ResetsAtMs        int64  `json:"resets_at_ms"`
	Provider          string `json:"provider,omitempty"`
}

func newUsageResponseBody(r browser.UsageReport) UsageResponseBody {
	return UsageResponseBody{
		Period:            string(r.Period),
		PeriodStartMs:     r.PeriodStartMs,
		PeriodEndMs:       r.PeriodEndMs,
		EmbeddingRequests: r.EmbeddingRequests,
		TokensUsed:        r.TokensUsed,
		TokensLimit:       r.TokensLimit,
		TokensRemaining:   r.TokensRemaining,
		BudgetExhausted:   r.BudgetExhausted,
		ResetsAtMs:        r.ResetsAtMs,
		Provider:          r.Provider,
	}
}

// HealthResponseBody is the wire shape of GET /health.
type HealthResponseBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func newHealthResponseBody(r browser.HealthReport) HealthResponseBody {
	return HealthResponseBody{Status: string(r.Status), Checks: r.Checks}
}
