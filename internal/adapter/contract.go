// Package adapter defines the shared contract every render-tier adapter
// (C7) implements: intelligence, lightweight, and playwright. The Tiered
// Fetcher (C8) depends only on this interface, never on a concrete adapter,
// so a given tier attempt is interchangeable regardless of what runs
// underneath it.
package adapter

import (
	"context"
	"time"

	"github.com/kailas-cloud/fetchcascade/internal/domain/fetch"
)

// Options carries the per-attempt knobs a tier may honor. Lightweight and
// intelligence adapters ignore everything but the ones that apply to them.
type Options struct {
	WaitHints      fetch.WaitHints
	SessionProfile string
	Verify         *fetch.Verification
}

// Output is what a successful adapter call produces, before validation.
type Output struct {
	FinalURL   string
	Title      string
	HTML       string
	Text       string
	Markdown   string
	Tables     []fetch.Table
	Structured map[string]string

	// DiscoveredAPIEndpoint is set when the adapter observed an underlying
	// JSON API call producing the content (network capture on the
	// playwright tier, or the API URL itself on the intelligence/
	// lightweight tiers) — fed to the Learning Engine to infer a new
	// LearnedApiPattern when PatternID was empty going in.
	DiscoveredAPIEndpoint string

	Network []NetworkEntry
	Console []string
}

// NetworkEntry is one captured request/response pair, only populated when
// Options.WaitHints.CaptureNetwork is set on the playwright tier.
type NetworkEntry struct {
	URL        string
	Method     string
	StatusCode int
	RespBody   string
}

// Error is the adapter's classified failure, carrying enough for the
// Tiered Fetcher to decide retry vs. escalate vs. terminate per §4.4.
type Error struct {
	Reason    fetch.FailureReason
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Reason) + ": " + e.Err.Error()
	}
	return string(e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with reason, deriving Retryable from the reason's own
// classification unless overridden by the caller.
func NewError(reason fetch.FailureReason, err error) *Error {
	return &Error{Reason: reason, Retryable: reason.IsRetryableWithinTier(), Err: err}
}

// Adapter is the contract every render tier implements. deadline is an
// absolute time; implementations must abort in-flight IO once it passes.
type Adapter interface {
	Tier() fetch.Tier
	Fetch(ctx context.Context, url string, opts Options, deadline time.Time) (Output, error)
}

// WithDeadline is a small helper every adapter uses to derive a
// context.Context bounded by both ctx's own cancellation and deadline.
func WithDeadline(ctx context.Context, deadline time.Time) (context.Context, context.CancelFunc) {
	return context.WithDeadline(ctx, deadline)
}
