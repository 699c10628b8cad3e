package fetcher

import (
	"fmt"

	"github.com/kailas-cloud/fetchcascade/internal/domain/fetch"
)

// InvalidRequestError wraps a malformed BrowseRequest (bad URL, failed
// validation).
type InvalidRequestError struct {
	Err error
}

func (e *InvalidRequestError) Error() string { return fmt.Sprintf("invalid request: %v", e.Err) }
func (e *InvalidRequestError) Unwrap() error  { return e.Err }

// BudgetExhaustedError means no tier could be attempted within the
// request's max-latency-ms / max-cost-tier ceiling.
type BudgetExhaustedError struct{}

func (e *BudgetExhaustedError) Error() string { return "budget exhausted: no tier could be attempted" }

// AllTiersFailedError means every attempted tier failed; LastReason carries
// the final attempt's failure classification.
type AllTiersFailedError struct {
	LastReason fetch.FailureReason
}

func (e *AllTiersFailedError) Error() string {
	return fmt.Sprintf("all tiers failed: last reason %s", e.LastReason)
}

// TerminalError means the last attempt failed for a reason that ends the
// cascade outright (auth, rate_limit) rather than escalating.
type TerminalError struct {
	Reason fetch.FailureReason
}

func (e *TerminalError) Error() string { return fmt.Sprintf("terminal failure: %s", e.Reason) }

// CancelledError wraps caller-initiated cancellation of an in-flight
// request.
type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string { return fmt.Sprintf("cancelled: %v", e.Err) }
func (e *CancelledError) Unwrap() error  { return e.Err }
