package fetch

import "time"

// LearningEventKind is the closed set of outcomes the Tiered Fetcher
// reports to the Learning Engine after every tier attempt.
type LearningEventKind string

// Learning event kinds.
const (
	LearningEventSuccess LearningEventKind = "success"
	LearningEventFailure LearningEventKind = "failure"

	// LearningEventProbe reports a Discovery Orchestrator (C10) probe hit.
	// It never carries a Tier or PatternID — a probe is a direct HEAD/GET
	// against a candidate API path, not a cascade attempt — and is the only
	// other way, besides a live fetch, that a new LearnedApiPattern enters
	// the registry (still exclusively through the Learning Engine, per the
	// single-writer rule).
	LearningEventProbe LearningEventKind = "probe"
)

// LearningEvent is C8's single output signal to C9. Exactly one of
// PatternID or (no pattern) applies depending on whether the attempt went
// through a known API pattern.
type LearningEvent struct {
	Kind        LearningEventKind
	Domain      string
	URL         string
	URLPattern  string // coarse shape of URL, used as the predictor's per-key bucket
	Tier        Tier
	PatternID   string
	LatencyMs   int64
	Reason      FailureReason // only set when Kind == LearningEventFailure
	OccurredAt  time.Time
	ContentHash string
	Title       string // only set on success, used to index the fetch for semantic recall
	BodyText    string // only set on success

	// DiscoveredAPIEndpoint is set when a lightweight/playwright adapter
	// observed an underlying JSON API call (network capture, or a direct
	// .json/query-string response) while PatternID was empty — the
	// Learning Engine uses it to infer a brand new LearnedApiPattern.
	DiscoveredAPIEndpoint string

	// RequiresAuth is only meaningful when Kind == LearningEventProbe: set
	// when the probe got a 401/403, so the learned pattern records that the
	// endpoint needs credentials rather than retrying it blind.
	RequiresAuth bool
}
