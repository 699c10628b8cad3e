// Package learning implements the Learning Engine (C9): the single
// consumer that serializes every mutation to the API Pattern Registry, the
// Content-Change Predictor, and the Vector Store. No other component holds
// a direct reference to those three; they only ever learn about outcomes
// through a LearningEvent routed here.
package learning

import (
	"net/url"
	"time"

	domainchangepattern "github.com/kailas-cloud/fetchcascade/internal/domain/changepattern"
	"github.com/kailas-cloud/fetchcascade/internal/domain/fetch"
	domainpattern "github.com/kailas-cloud/fetchcascade/internal/domain/pattern"
	"github.com/kailas-cloud/fetchcascade/internal/usecase/registry"
)

// Registry is the subset of the pattern registry service the engine drives.
type Registry interface {
	Get(id string) (*domainpattern.LearnedApiPattern, bool)
	ApplyOutcome(p *domainpattern.LearnedApiPattern, hostname string, success bool, latencyMs float64, reason string, now time.Time)
	LearnNew(sourceURL, apiEndpoint *url.URL, hint registry.StrategyHint, mapping domainpattern.ContentMapping, validation domainpattern.ValidationSpec, now time.Time) (*domainpattern.LearnedApiPattern, error)
	LearnFromProbe(hostname string, endpoint *url.URL, requiresAuth bool, now time.Time) (*domainpattern.LearnedApiPattern, error)
}

// Predictor is the subset of the predictor service the engine drives.
type Predictor interface {
	ObserveFetch(hostname, urlPattern, contentHash string, now time.Time) (*domainchangepattern.ContentChangePattern, bool)
}

// VectorIndexer is the subset of the vector store the engine uses to index
// successful fetches for later semantic recall.
type VectorIndexer interface {
	IndexFetch(hostname, sourceURL, title, text string, now time.Time) error
}

// TierHints is C9's success-weighted tier preference tracker, consulted by
// the Tiered Fetcher's selection algorithm. The engine feeds it one outcome
// per completed attempt; it never reads from it.
type TierHints interface {
	Observe(hostname string, tier fetch.Tier, success bool)
}
