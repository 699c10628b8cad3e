// Package discovery implements the Discovery Orchestrator (C10): a
// background task that fuzzes a bounded list of common API paths against a
// domain and feeds any hit to the Learning Engine as a new, fuzzing-sourced
// LearnedApiPattern (spec §4.6). It never touches the registry directly —
// like every other component, it only ever signals C9 through a
// LearningEvent, preserving the single-writer rule.
package discovery

import (
	"context"
	"net/http"
	"time"

	"github.com/kailas-cloud/fetchcascade/internal/domain/fetch"
)

// ProbeLog tracks which hostnames were probed recently, so a domain within
// its TTL window is skipped rather than re-fuzzed.
type ProbeLog interface {
	SeenRecently(ctx context.Context, hostname string) (bool, error)
	MarkProbed(ctx context.Context, hostname string, ttl time.Duration) error
}

// HTTPDoer is the narrow consumer interface over *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Learner is the orchestrator's sole output channel — identical in shape to
// the Tiered Fetcher's, since both are just LearningEvent producers.
type Learner interface {
	Submit(evt fetch.LearningEvent)
}

// LoadMonitor reports how many live browse requests are currently
// in-flight. The orchestrator is strictly lower priority than live traffic
// and yields whenever this is non-zero (spec §5 Backpressure). Nil disables
// the check (always proceed).
type LoadMonitor interface {
	InFlight() int
}
