package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/fetchcascade/internal/adapter"
	"github.com/kailas-cloud/fetchcascade/internal/domain/fetch"
	domainpattern "github.com/kailas-cloud/fetchcascade/internal/domain/pattern"
	"github.com/kailas-cloud/fetchcascade/internal/metrics"
	"github.com/kailas-cloud/fetchcascade/internal/repository/fetchcache"
)

// Service is the Tiered Fetcher (C8). It holds no long-lived state of its
// own beyond its dependencies: every mutation of shared learning state
// flows one-way into Learner, never back through Service.
type Service struct {
	adapters  Adapters
	registry  Registry
	predictor Predictor
	cache     Cache
	hints     TierHints
	learner   Learner
	logger    *zap.Logger

	// sleep is overridden in tests to avoid real wall-clock waits during
	// retry-backoff assertions.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Service. Every dependency past adapters may be nil to
// disable that piece of behaviour: predictor+cache nil disables the
// intelligence tier's cache-serve path, hints nil disables tier-preference
// reordering, learner nil means outcomes are never reported upstream.
func New(adapters Adapters, reg Registry, pred Predictor, cache Cache, hints TierHints, learner Learner, logger *zap.Logger) *Service {
	return &Service{
		adapters:  adapters,
		registry:  reg,
		predictor: pred,
		cache:     cache,
		hints:     hints,
		learner:   learner,
		logger:    logger,
		sleep:     ctxSleep,
	}
}

// Browse drives req through the cascade and returns the winning tier's
// result, or one of InvalidRequestError / BudgetExhaustedError /
// AllTiersFailedError / TerminalError / CancelledError.
func (s *Service) Browse(ctx context.Context, req fetch.BrowseRequest) (fetch.BrowseResult, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return fetch.BrowseResult{}, &InvalidRequestError{Err: err}
	}
	u, err := url.Parse(req.URL)
	if err != nil || u.Host == "" {
		if err == nil {
			err = fmt.Errorf("url %q has no host", req.URL)
		}
		return fetch.BrowseResult{}, &InvalidRequestError{Err: err}
	}

	start := time.Now()
	deadline := req.Budget.Deadline(start)
	hostname := u.Hostname()
	urlPattern := coarseURLPattern(u)

	outcome := "all_tiers_failed"
	defer func() { metrics.CascadeOutcomeTotal.WithLabelValues(outcome).Inc() }()

	if res, ok := s.tryCacheServe(ctx, req, u, urlPattern, start); ok {
		outcome = "succeeded"
		return res, nil
	}

	var matchedPattern *domainpattern.LearnedApiPattern
	if s.registry != nil {
		matchedPattern, _ = s.registry.Match(u)
	}

	order := s.selectionOrder(hostname, req.Budget, matchedPattern != nil)
	if len(order) == 0 {
		outcome = "budget_exhausted"
		return fetch.BrowseResult{}, &BudgetExhaustedError{}
	}

	var (
		tiersAttempted []fetch.Tier
		lastReason     fetch.FailureReason
	)

	for _, tier := range order {
		elapsed := time.Since(start)
		if !req.Budget.Fits(tier, elapsed) {
			continue
		}

		res, attempted, err := s.attemptTier(ctx, tier, req, u, matchedPattern, hostname, urlPattern, start, deadline)
		if !attempted {
			continue
		}
		tiersAttempted = append(tiersAttempted, tier)

		if err == nil {
			outcome = "succeeded"
			return s.buildSuccess(req, tier, res, tiersAttempted, matchedPattern, start), nil
		}

		var cancelled *CancelledError
		if errors.As(err, &cancelled) {
			outcome = "cancelled"
			return fetch.BrowseResult{}, err
		}

		lastReason = res.reason
		if lastReason.IsTerminal() {
			outcome = "terminal"
			return fetch.BrowseResult{}, &TerminalError{Reason: lastReason}
		}
	}

	if len(tiersAttempted) == 0 {
		outcome = "budget_exhausted"
		return fetch.BrowseResult{}, &BudgetExhaustedError{}
	}
	return fetch.BrowseResult{}, &AllTiersFailedError{LastReason: lastReason}
}

// tierAttempt holds everything one completed tier attempt needs to pass
// along, whether it ended in success or failure.
type tierAttempt struct {
	out        adapter.Output
	reason     fetch.FailureReason
	patternID  string
	latencyMs  int64
	vo         validationOutcome
}

// selectionOrder implements §4.1's selection algorithm: seed with tiers
// under the budget's max-cost-tier, then reorder either by a pattern hit
// (always wins, regardless of hint) or by C9's hint map.
func (s *Service) selectionOrder(hostname string, budget fetch.Budget, patternHit bool) []fetch.Tier {
	var base []fetch.Tier
	for _, t := range fetch.AllTiers() {
		if _, ok := s.adapters[t]; !ok {
			continue
		}
		if !budget.Allows(t) {
			continue
		}
		base = append(base, t)
	}
	if len(base) == 0 {
		return base
	}

	if patternHit {
		return moveToFront(base, fetch.TierIntelligence)
	}
	if s.hints != nil {
		if preferred, ok := s.hints.PreferredTier(hostname); ok {
			return moveToFront(base, preferred)
		}
	}
	return base
}

func moveToFront(tiers []fetch.Tier, target fetch.Tier) []fetch.Tier {
	idx := -1
	for i, t := range tiers {
		if t == target {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return tiers
	}
	out := make([]fetch.Tier, 0, len(tiers))
	out = append(out, target)
	for i, t := range tiers {
		if i != idx {
			out = append(out, t)
		}
	}
	return out
}

// attemptTier runs one tier to completion: up to maxTierAttempts retries
// for transient reasons, a single shot otherwise. attempted reports
// whether the adapter was actually invoked (false when the tier has no
// registered adapter).
func (s *Service) attemptTier(
	ctx context.Context,
	tier fetch.Tier,
	req fetch.BrowseRequest,
	u *url.URL,
	pattern *domainpattern.LearnedApiPattern,
	hostname, urlPattern string,
	start, deadline time.Time,
) (tierAttempt, bool, error) {
	ad, ok := s.adapters[tier]
	if !ok {
		return tierAttempt{}, false, nil
	}

	opts := adapter.Options{WaitHints: req.WaitHints, SessionProfile: req.SessionProfile, Verify: req.Verify}

	var spec *domainpattern.ValidationSpec
	var patternID string
	if tier == fetch.TierIntelligence && pattern != nil {
		spec = &pattern.Validation
		patternID = pattern.ID
	}

	attempted := false
	result := tierAttempt{patternID: patternID, reason: fetch.ReasonUnknown}

	for attempt := 1; attempt <= maxTierAttempts; attempt++ {
		if ctx.Err() != nil {
			return result, attempted, &CancelledError{Err: ctx.Err()}
		}

		attemptStart := time.Now()
		out, err := ad.Fetch(ctx, req.URL, opts, deadline)
		attempted = true
		result.latencyMs = time.Since(attemptStart).Milliseconds()
		result.out = out

		if err == nil {
			result.vo = validateOutput(out, spec, req.Verify)
			if result.vo.passed {
				s.emitSuccess(req, tier, patternID, out, hostname, urlPattern, result.latencyMs)
				return result, attempted, nil
			}
			result.reason = fetch.ReasonValidation
			s.emitFailure(req, tier, patternID, fetch.ReasonValidation, hostname, result.latencyMs)
			return result, attempted, fmt.Errorf("validation failed: %v", result.vo.failed)
		}

		if ctx.Err() != nil {
			return result, attempted, &CancelledError{Err: ctx.Err()}
		}

		reason, retryable := classifyErr(err)
		result.reason = reason

		if retryable && attempt < maxTierAttempts {
			delay := backoffDelay(attempt)
			if !req.Budget.Fits(tier, time.Since(start)+delay) {
				break
			}
			if sleepErr := s.sleep(ctx, delay); sleepErr != nil {
				return result, attempted, &CancelledError{Err: sleepErr}
			}
			continue
		}
		break
	}

	s.emitFailure(req, tier, patternID, result.reason, hostname, result.latencyMs)
	return result, attempted, fmt.Errorf("tier %s failed: %s", tier, result.reason)
}

func classifyErr(err error) (fetch.FailureReason, bool) {
	var aerr *adapter.Error
	if errors.As(err, &aerr) {
		return aerr.Reason, aerr.Retryable
	}
	return fetch.ReasonUnknown, false
}

// tryCacheServe implements the intelligence tier's cache-serve path: when
// freshness allows a non-live answer and C5 says the content isn't due to
// change, serve the last cached fetch instead of running any adapter.
func (s *Service) tryCacheServe(ctx context.Context, req fetch.BrowseRequest, u *url.URL, urlPattern string, start time.Time) (fetch.BrowseResult, bool) {
	if req.Budget.Freshness == fetch.FreshnessRealtime {
		return fetch.BrowseResult{}, false
	}
	if s.predictor == nil || s.cache == nil {
		return fetch.BrowseResult{}, false
	}
	if s.predictor.ShouldCheckNow(u.Hostname(), urlPattern, start) {
		return fetch.BrowseResult{}, false
	}
	entry, ok, err := s.cache.Get(ctx, req.URL)
	if err != nil || !ok {
		return fetch.BrowseResult{}, false
	}
	return fetch.BrowseResult{
		URL:      req.URL,
		FinalURL: req.URL,
		Title:    entry.Title,
		Content:  fetch.Content{Markdown: entry.Markdown, Text: entry.Text, HTML: entry.HTML},
		Metadata: fetch.Metadata{
			LoadTimeMs:     time.Since(start).Milliseconds(),
			TierUsed:       fetch.TierIntelligence,
			TiersAttempted: []fetch.Tier{fetch.TierIntelligence},
			Cached:         true,
		},
		Learning: fetch.Learning{Confidence: 1, ValidationPassed: true},
	}, true
}

func (s *Service) buildSuccess(req fetch.BrowseRequest, tier fetch.Tier, res tierAttempt, tiersAttempted []fetch.Tier, pattern *domainpattern.LearnedApiPattern, start time.Time) fetch.BrowseResult {
	out := res.out
	finalURL := out.FinalURL
	if finalURL == "" {
		finalURL = req.URL
	}

	confidence := 1.0
	if tier == fetch.TierIntelligence && pattern != nil {
		confidence = pattern.Confidence()
	}

	var discovered []string
	if out.DiscoveredAPIEndpoint != "" {
		discovered = append(discovered, out.DiscoveredAPIEndpoint)
	} else if tier == fetch.TierIntelligence && pattern != nil {
		if u, err := url.Parse(req.URL); err == nil {
			if ep, err := pattern.BuildEndpoint(u); err == nil {
				discovered = append(discovered, ep)
			}
		}
	}

	var selectors []string
	if tier == fetch.TierPlaywright && req.WaitHints.WaitForSelector != "" {
		selectors = append(selectors, req.WaitHints.WaitForSelector)
	}

	var verResult *fetch.VerificationResult
	if req.Verify != nil {
		verResult = &fetch.VerificationResult{Passed: res.vo.passed, Checks: res.vo.checks, Failed: res.vo.failed}
	}

	return fetch.BrowseResult{
		URL:            req.URL,
		FinalURL:       finalURL,
		Title:          out.Title,
		Content:        fetch.Content{Markdown: out.Markdown, Text: out.Text, HTML: out.HTML},
		Tables:         out.Tables,
		DiscoveredAPIs: discovered,
		Metadata: fetch.Metadata{
			LoadTimeMs:     time.Since(start).Milliseconds(),
			TierUsed:       tier,
			TiersAttempted: tiersAttempted,
			Cached:         false,
		},
		Learning: fetch.Learning{
			Confidence:       confidence,
			ValidationPassed: true,
			ContentChanged:   false,
			SelectorsApplied: selectors,
		},
		Verification: verResult,
	}
}

func (s *Service) emitSuccess(req fetch.BrowseRequest, tier fetch.Tier, patternID string, out adapter.Output, hostname, urlPattern string, latencyMs int64) {
	metrics.TierAttemptsTotal.WithLabelValues(string(tier), "success").Inc()
	metrics.TierLatencySeconds.WithLabelValues(string(tier)).Observe(float64(latencyMs) / 1000)

	hash := contentHash(out.Text)
	if s.cache != nil {
		entry := fetchcache.Entry{
			Title: out.Title, Text: out.Text, Markdown: out.Markdown, HTML: out.HTML,
			ContentHash: hash, Structured: out.Structured,
		}
		// Detached from the request's own ctx: a client cancelling its browse
		// call shouldn't also discard the cache write for the next caller.
		if err := s.cache.Put(context.Background(), req.URL, entry); err != nil && s.logger != nil {
			s.logger.Warn("fetch cache put failed", zap.String("url", req.URL), zap.Error(err))
		}
	}
	if s.learner == nil {
		return
	}
	s.learner.Submit(fetch.LearningEvent{
		Kind: fetch.LearningEventSuccess, Domain: hostname, URL: req.URL, URLPattern: urlPattern,
		Tier: tier, PatternID: patternID, LatencyMs: latencyMs, OccurredAt: time.Now(),
		ContentHash: hash, Title: out.Title, BodyText: out.Text,
		DiscoveredAPIEndpoint: out.DiscoveredAPIEndpoint,
	})
}

func (s *Service) emitFailure(req fetch.BrowseRequest, tier fetch.Tier, patternID string, reason fetch.FailureReason, hostname string, latencyMs int64) {
	metrics.TierAttemptsTotal.WithLabelValues(string(tier), "failure").Inc()
	metrics.TierLatencySeconds.WithLabelValues(string(tier)).Observe(float64(latencyMs) / 1000)
	metrics.FailureReasonsTotal.WithLabelValues(string(tier), string(reason)).Inc()

	if s.learner == nil {
		return
	}
	s.learner.Submit(fetch.LearningEvent{
		Kind: fetch.LearningEventFailure, Domain: hostname, URL: req.URL,
		Tier: tier, PatternID: patternID, LatencyMs: latencyMs, Reason: reason, OccurredAt: time.Now(),
	})
}

func contentHash(text string) string {
	if text == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
