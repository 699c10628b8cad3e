package learning

import (
	"context"
	"errors"
	"net/url"

	"go.uber.org/zap"

	"github.com/kailas-cloud/fetchcascade/internal/domain/fetch"
	domainpattern "github.com/kailas-cloud/fetchcascade/internal/domain/pattern"
)

var errEmptyURL = errors.New("empty url")

const defaultQueueCap = 256

// Engine is the Learning Engine's single-consumer channel: the Tiered
// Fetcher posts a LearningEvent per completed tier attempt via Submit,
// never blocking; Run drains the channel serially so registry and
// predictor mutations never race each other.
type Engine struct {
	registry  Registry
	predictor Predictor
	vector    VectorIndexer
	hints     TierHints
	logger    *zap.Logger
	queue     chan fetch.LearningEvent
}

// New creates an Engine. vector may be nil if the vector store isn't
// configured; predictor may be nil to disable change tracking; hints may be
// nil to disable tier-preference tracking.
func New(reg Registry, pred Predictor, vec VectorIndexer, hints TierHints, logger *zap.Logger) *Engine {
	return &Engine{
		registry:  reg,
		predictor: pred,
		vector:    vec,
		hints:     hints,
		logger:    logger,
		queue:     make(chan fetch.LearningEvent, defaultQueueCap),
	}
}

// Submit enqueues an event for processing. Non-blocking: if the queue is
// saturated the event is dropped and logged, per the concurrency model's
// "learning updates never poison the request path" rule.
func (e *Engine) Submit(evt fetch.LearningEvent) {
	select {
	case e.queue <- evt:
	default:
		if e.logger != nil {
			e.logger.Warn("learning engine queue full, dropping event",
				zap.String("domain", evt.Domain), zap.String("kind", string(evt.Kind)))
		}
	}
}

// Run drains the queue until ctx is cancelled, at which point it finishes
// any event already pulled off the channel and returns.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-e.queue:
			e.process(evt)
		}
	}
}

func (e *Engine) process(evt fetch.LearningEvent) {
	switch evt.Kind {
	case fetch.LearningEventSuccess:
		e.processSuccess(evt)
	case fetch.LearningEventFailure:
		e.processFailure(evt)
	case fetch.LearningEventProbe:
		e.processProbe(evt)
	}
}

func (e *Engine) processSuccess(evt fetch.LearningEvent) {
	if e.hints != nil {
		e.hints.Observe(evt.Domain, evt.Tier, true)
	}

	if evt.PatternID != "" {
		e.applyToExistingPattern(evt, true)
	} else if evt.Tier != fetch.TierIntelligence {
		e.learnFromSuccess(evt)
	}

	if e.predictor != nil && evt.ContentHash != "" {
		urlPattern := evt.URLPattern
		if urlPattern == "" {
			urlPattern = evt.URL
		}
		if _, err := safeParse(evt.URL); err == nil {
			_, _ = e.predictor.ObserveFetch(evt.Domain, urlPattern, evt.ContentHash, evt.OccurredAt)
		}
	}

	if e.vector != nil && evt.Title != "" {
		if err := e.vector.IndexFetch(evt.Domain, evt.URL, evt.Title, evt.BodyText, evt.OccurredAt); err != nil && e.logger != nil {
			e.logger.Warn("vector index failed", zap.String("url", evt.URL), zap.Error(err))
		}
	}
}

func (e *Engine) processFailure(evt fetch.LearningEvent) {
	if e.hints != nil {
		e.hints.Observe(evt.Domain, evt.Tier, false)
	}

	if evt.PatternID != "" {
		e.applyToExistingPattern(evt, false)
	}
}

// processProbe turns a Discovery Orchestrator probe hit into a new
// LearnedApiPattern. Unlike a live fetch, a probe has no source page — the
// endpoint was hit directly — so there is nothing to dedupe against an
// existing pattern; every probe hit is a brand new fuzzing-sourced row.
func (e *Engine) processProbe(evt fetch.LearningEvent) {
	endpoint, err := safeParse(evt.URL)
	if err != nil {
		return
	}
	if _, err := e.registry.LearnFromProbe(evt.Domain, endpoint, evt.RequiresAuth, evt.OccurredAt); err != nil && e.logger != nil {
		e.logger.Warn("learn from probe failed", zap.String("url", evt.URL), zap.Error(err))
	}
}

func (e *Engine) applyToExistingPattern(evt fetch.LearningEvent, success bool) {
	p, ok := e.registry.Get(evt.PatternID)
	if !ok {
		return
	}
	e.registry.ApplyOutcome(p, evt.Domain, success, float64(evt.LatencyMs), string(evt.Reason), evt.OccurredAt)
}

func (e *Engine) learnFromSuccess(evt fetch.LearningEvent) {
	if evt.DiscoveredAPIEndpoint == "" {
		return
	}
	sourceURL, err := safeParse(evt.URL)
	if err != nil {
		return
	}
	apiURL, err := safeParse(evt.DiscoveredAPIEndpoint)
	if err != nil {
		return
	}
	// No ContentMapping is known yet for a freshly discovered endpoint; the
	// registry starts it with an empty one and the next successful apply
	// refines it once the response shape is confirmed.
	mapping := domainpattern.ContentMapping{}
	validation := domainpattern.ValidationSpec{MinContentLength: 1}
	if _, err := e.registry.LearnNew(sourceURL, apiURL, "", mapping, validation, evt.OccurredAt); err != nil && e.logger != nil {
		e.logger.Warn("learn new pattern failed", zap.String("url", evt.URL), zap.Error(err))
	}
}

func safeParse(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errEmptyURL
	}
	return url.Parse(raw)
}
