package browser

import (
	"context"

	domainchangepattern "github.com/kailas-cloud/fetchcascade/internal/domain/changepattern"
	domainpattern "github.com/kailas-cloud/fetchcascade/internal/domain/pattern"
)

// LearnedPattern summarizes one registered API pattern for a domain, without
// exposing the registry's internal regex/extractor machinery.
type LearnedPattern struct {
	ID                string
	TemplateType      domainpattern.Template
	Method            string
	Confidence        float64
	SuccessCount      int
	FailureCount      int
	AvgResponseTimeMs float64
	Source            domainpattern.Source
}

// ChangePattern summarizes one tracked content-change pattern for a domain.
type ChangePattern struct {
	URLPattern         string
	DetectedType       domainchangepattern.DetectedType
	TypeConfidence     float64
	NextExpectedChange string
	PredictionHits     int
	PredictionMisses   int
	Urgency            domainchangepattern.Urgency
}

// DomainIntelligenceResult is everything fetchcascade has learned about one
// hostname: its API shortcuts and its content-change rhythm.
type DomainIntelligenceResult struct {
	Hostname       string
	Patterns       []LearnedPattern
	ChangePatterns []ChangePattern
}

// DomainIntelligence reports every learned API pattern and content-change
// pattern fetchcascade has accumulated for hostname. Read-only: it never
// triggers a fetch or mutates learned state.
func (c *Client) DomainIntelligence(ctx context.Context, hostname string) (DomainIntelligenceResult, error) {
	out := DomainIntelligenceResult{Hostname: hostname}

	for _, p := range c.registry.ForHostname(hostname) {
		out.Patterns = append(out.Patterns, LearnedPattern{
			ID:                p.ID,
			TemplateType:      p.TemplateType,
			Method:            p.Method,
			Confidence:        p.Confidence(),
			SuccessCount:      p.SuccessCount,
			FailureCount:      p.FailureCount,
			AvgResponseTimeMs: p.AvgResponseTimeMs,
			Source:            p.Source,
		})
	}

	for _, p := range c.predictor.ForHostname(hostname) {
		out.ChangePatterns = append(out.ChangePatterns, ChangePattern{
			URLPattern:         p.URLPattern,
			DetectedType:       p.DetectedType,
			TypeConfidence:     p.TypeConfidence,
			NextExpectedChange: p.LastPrediction.NextExpectedChange.Format("2006-01-02T15:04:05Z07:00"),
			PredictionHits:     p.PredictionHits,
			PredictionMisses:   p.PredictionMisses,
			Urgency:            p.Urgency(),
		})
	}

	return out, nil
}
