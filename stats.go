package fetchcascade

import (
	"context"
	"net/url"
)

// LearnedPattern mirrors pkg/browser.LearnedPattern over the wire.
type LearnedPattern struct {
	ID                string
	Method            string
	Confidence        float64
	SuccessCount      int
	FailureCount      int
	AvgResponseTimeMs float64
}

// ChangePattern mirrors pkg/browser.ChangePattern over the wire.
type ChangePattern struct {
	URLPattern         string
	NextExpectedChange string
	PredictionHits     int
	PredictionMisses   int
}

// DomainIntelligenceResult mirrors pkg/browser.DomainIntelligenceResult.
type DomainIntelligenceResult struct {
	Hostname       string
	Patterns       []LearnedPattern
	ChangePatterns []ChangePattern
}

// DomainIntelligence fetches everything the remote server has learned about hostname.
func (c *Client) DomainIntelligence(ctx context.Context, hostname string) (DomainIntelligenceResult, error) {
	var wire struct {
		Hostname string `json:"hostname"`
		Patterns []struct {
			ID                string  `json:"id"`
			Method            string  `json:"method"`
			Confidence        float64 `json:"confidence"`
			SuccessCount      int     `json:"success_count"`
			FailureCount      int     `json:"failure_count"`
			AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
		} `json:"patterns"`
		ChangePatterns []struct {
			URLPattern         string `json:"url_pattern"`
			NextExpectedChange string `json:"next_expected_change"`
			PredictionHits     int    `json:"prediction_hits"`
			PredictionMisses   int    `json:"prediction_misses"`
		} `json:"change_patterns"`
	}

	path := "/v1/domains/" + url.PathEscape(hostname) + "/intelligence"
	if err := c.do(ctx, "GET", path, nil, &wire); err != nil {
		return DomainIntelligenceResult{}, err
	}

	out := DomainIntelligenceResult{Hostname: wire.Hostname}
	for _, p := range wire.Patterns {
		out.Patterns = append(out.Patterns, LearnedPattern{
			ID: p.ID, Method: p.Method, Confidence: p.Confidence,
			SuccessCount: p.SuccessCount, FailureCount: p.FailureCount, AvgResponseTimeMs: p.AvgResponseTimeMs,
		})
	}
	for _, p := range wire.ChangePatterns {
		out.ChangePatterns = append(out.ChangePatterns, ChangePattern{
			URLPattern: p.URLPattern, NextExpectedChange: p.NextExpectedChange,
			PredictionHits: p.PredictionHits, PredictionMisses: p.PredictionMisses,
		})
	}
	return out, nil
}

// LearningStatsResult mirrors pkg/browser.LearningStatsResult.
type LearningStatsResult struct {
	PatternCount      int
	VectorRecordCount int
	InFlightBrowses   int
}

// LearningStats fetches aggregate learning counters from the remote server.
func (c *Client) LearningStats(ctx context.Context) (LearningStatsResult, error) {
	var wire struct {
		PatternCount      int `json:"pattern_count"`
		VectorRecordCount int `json:"vector_record_count"`
		InFlightBrowses   int `json:"in_flight_browses"`
	}
	if err := c.do(ctx, "GET", "/v1/stats", nil, &wire); err != nil {
		return LearningStatsResult{}, err
	}
	return LearningStatsResult{
		PatternCount:      wire.PatternCount,
		VectorRecordCount: wire.VectorRecordCount,
		InFlightBrowses:   wire.InFlightBrowses,
	}, nil
}

// UsagePeriod is the aggregation granularity for UsageResult.
type UsagePeriod string

// Aggregation periods.
const (
	UsagePeriodDay   UsagePeriod = "day"
	UsagePeriodMonth UsagePeriod = "month"
	UsagePeriodTotal UsagePeriod = "total"
)

// UsageResult mirrors pkg/browser.UsageReport.
type UsageResult struct {
	Period            string
	PeriodStartMs     int64
	PeriodEndMs       int64
	EmbeddingRequests int
	TokensUsed        int
	TokensLimit       int
	TokensRemaining   int
	BudgetExhausted   bool
	ResetsAtMs        int64
	Provider          string
}

// Usage fetches embedding token budget usage for period from the remote server.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) (UsageResult, error) {
	var wire struct {
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
	path := "/v1/usage?period=" + url.QueryEscape(string(period))
	if err := c.do(ctx, "GET", path, nil, &wire); err != nil {
		return UsageResult{}, err
	}
	return UsageResult{
		Period:            wire.Period,
		PeriodStartMs:     wire.PeriodStartMs,
		PeriodEndMs:       wire.PeriodEndMs,
		EmbeddingRequests: wire.EmbeddingRequests,
		TokensUsed:        wire.TokensUsed,
		TokensLimit:       wire.TokensLimit,
		TokensRemaining:   wire.TokensRemaining,
		BudgetExhausted:   wire.BudgetExhausted,
		ResetsAtMs:        wire.ResetsAtMs,
		Provider:          wire.Provider,
	}, nil
}
