package fetch

import "fmt"

// VerifyMode layers stricter post-fetch assertions on top of base
// validation, supplied by the caller.
type VerifyMode string

// Verification strictness levels.
const (
	VerifyBasic    VerifyMode = "basic"
	VerifyStandard VerifyMode = "standard"
	VerifyThorough VerifyMode = "thorough"
)

// Verification carries caller-supplied extra assertions applied on top of
// a pattern's own ValidationSpec.
type Verification struct {
	Mode          VerifyMode
	MustContain   []string
	RegexPatterns []string
}

// WaitHints are Playwright-tier-only hints; ignored by the cheaper tiers.
type WaitHints struct {
	WaitForSelector string
	ScrollToLoad    bool
	CaptureNetwork  bool
	CaptureConsole  bool
}

// BrowseRequest is C11's programmatic entry point: a URL plus the
// budget/quality contract the cascade must respect.
type BrowseRequest struct {
	URL             string
	ContentTypeHint string
	WaitHints       WaitHints
	SessionProfile  string
	Budget          Budget
	Verify          *Verification
}

// Validate checks the request is well-formed before it reaches the
// scheduler: URL is required, MaxCostTier (if set) must be a known tier.
func (r BrowseRequest) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("url is required")
	}
	if r.Budget.MaxCostTier != "" && !r.Budget.MaxCostTier.IsValid() {
		return fmt.Errorf("invalid max cost tier %q", r.Budget.MaxCostTier)
	}
	return nil
}

// WithDefaults returns a copy with zero-valued Budget fields filled from
// DefaultBudget, leaving any explicitly set fields untouched.
func (r BrowseRequest) WithDefaults() BrowseRequest {
	def := DefaultBudget()
	if r.Budget.MaxLatencyMs == 0 {
		r.Budget.MaxLatencyMs = def.MaxLatencyMs
	}
	if r.Budget.MaxCostTier == "" {
		r.Budget.MaxCostTier = def.MaxCostTier
	}
	if r.Budget.Freshness == "" {
		r.Budget.Freshness = def.Freshness
	}
	return r
}
