// Package fetcher implements the Tiered Fetcher (C8): the scheduler core
// that drives one BrowseRequest through the cascade of render adapters,
// applies validation, retries transient failures, and reports every
// attempt's outcome to the Learning Engine.
package fetcher

import (
	"context"
	"net/url"
	"time"

	"github.com/kailas-cloud/fetchcascade/internal/adapter"
	"github.com/kailas-cloud/fetchcascade/internal/domain/fetch"
	domainpattern "github.com/kailas-cloud/fetchcascade/internal/domain/pattern"
	"github.com/kailas-cloud/fetchcascade/internal/repository/fetchcache"
	"github.com/kailas-cloud/fetchcascade/internal/usecase/registry"
)

// Registry is the subset of the pattern registry the fetcher consults to
// pick a candidate API endpoint for the intelligence tier.
type Registry interface {
	Match(u *url.URL) (*domainpattern.LearnedApiPattern, registry.MatchResult)
}

// Predictor answers whether a tracked (hostname, urlPattern) pair is due
// for a live check, gating the intelligence tier's cache-serve path.
type Predictor interface {
	ShouldCheckNow(hostname, urlPattern string, now time.Time) bool
}

// Cache is the fetch-result cache consulted on the realtime-exempt path.
// internal/repository/fetchcache.Repo satisfies this.
type Cache interface {
	Get(ctx context.Context, rawURL string) (fetchcache.Entry, bool, error)
	Put(ctx context.Context, rawURL string, entry fetchcache.Entry) error
}

// TierHints supplies C9's per-domain preferred tier, consulted before the
// default cascade order.
type TierHints interface {
	PreferredTier(hostname string) (fetch.Tier, bool)
}

// Learner is the Learning Engine's inbound edge: fire-and-forget.
type Learner interface {
	Submit(evt fetch.LearningEvent)
}

// Adapters maps each tier to the adapter.Adapter that implements it. A
// Service need not have every tier wired; AllTiers() candidates with no
// entry here are simply skipped during selection.
type Adapters map[fetch.Tier]adapter.Adapter
