package registry

import (
	"fmt"
	"net/url"
	"regexp"
	"time"

	domainpattern "github.com/kailas-cloud/fetchcascade/internal/domain/pattern"
)

// fuzzedSuccessCount/fuzzedFailureCount seed a fuzzing-sourced pattern at
// the "moderate initial confidence" (0.8) spec.md §4.6 calls for, the same
// success/failure-ratio trick Bootstrap uses for its confidence=1.0 seeds.
const (
	fuzzedSuccessCount = 8
	fuzzedFailureCount = 2
)

// LearnFromProbe turns one successful Discovery Orchestrator probe into a
// LearnedApiPattern: endpoint was hit directly (no source page), so the
// pattern matches its own URL and serves it append-style via the {url}
// sentinel. requiresAuth records a 401/403 probe outcome in the pattern's
// headers so the intelligence adapter can short-circuit rather than retry
// blindly against a host it already knows needs credentials.
func (s *Service) LearnFromProbe(hostname string, endpoint *url.URL, requiresAuth bool, now time.Time) (*domainpattern.LearnedApiPattern, error) {
	id := fmt.Sprintf("fuzzed-%s-%d", hostname, now.UnixNano())
	urlRegex := "^" + regexp.QuoteMeta(endpoint.String()) + "$"

	var headers map[string]string
	if requiresAuth {
		headers = map[string]string{"X-Requires-Auth": "true"}
	}

	p, err := domainpattern.New(
		id, hostname, urlRegex, domainpattern.RESTResource, domainpattern.URLSentinel, "GET",
		headers, nil, domainpattern.ContentMapping{}, domainpattern.ValidationSpec{},
		domainpattern.SourceFuzzing, now,
	)
	if err != nil {
		return nil, fmt.Errorf("learn from probe: %w", err)
	}
	p.SuccessCount = fuzzedSuccessCount
	p.FailureCount = fuzzedFailureCount
	p.LastSuccess = now

	s.repo.Put(p)
	s.onEvent(domainpattern.Event{
		Kind: domainpattern.EventLearned, PatternID: p.ID, Hostname: p.Hostname,
		Confidence: p.Confidence(), Reason: string(domainpattern.SourceFuzzing),
	})
	return p, nil
}
