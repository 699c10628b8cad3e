package fetchcascade

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError wraps a non-2xx response from the fetchcascade server, carrying
// the server's machine-readable error code alongside the HTTP status.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fetchcascade: server returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// IsBudgetExhausted reports whether err is an APIError for a budget that
// was exhausted before any tier could be attempted.
func (e *APIError) IsBudgetExhausted() bool { return e.Code == "budget_exhausted" }

// IsAllTiersFailed reports whether err is an APIError for a request that
// exhausted every eligible tier without success.
func (e *APIError) IsAllTiersFailed() bool { return e.Code == "all_tiers_failed" }

// IsTerminal reports whether err is an APIError for a failure that ended
// the cascade outright (auth, rate limiting) rather than escalating.
func (e *APIError) IsTerminal() bool { return e.Code == "terminal_failure" }

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Code: "unknown", Message: resp.Status}
	}
	return &APIError{StatusCode: resp.StatusCode, Code: body.Code, Message: body.Message}
}
