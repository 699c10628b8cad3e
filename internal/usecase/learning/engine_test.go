package learning

import (
	"context"
	"net/url"
	"testing"
	"time"

	domainchangepattern "github.com/kailas-cloud/fetchcascade/internal/domain/changepattern"
	"github.com/kailas-cloud/fetchcascade/internal/domain/fetch"
	domainpattern "github.com/kailas-cloud/fetchcascade/internal/domain/pattern"
	"github.com/kailas-cloud/fetchcascade/internal/usecase/registry"
)

type fakeRegistry struct {
	patterns      map[string]*domainpattern.LearnedApiPattern
	applyCalls    int
	learnCalls    int
	lastLearnedAt time.Time
	probeCalls    int
	lastProbeAuth bool
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{patterns: make(map[string]*domainpattern.LearnedApiPattern)}
}

func (r *fakeRegistry) Get(id string) (*domainpattern.LearnedApiPattern, bool) {
	p, ok := r.patterns[id]
	return p, ok
}

func (r *fakeRegistry) ApplyOutcome(p *domainpattern.LearnedApiPattern, hostname string, success bool, latencyMs float64, reason string, now time.Time) {
	r.applyCalls++
	if success {
		p.ApplySuccess(hostname, latencyMs, now)
	} else {
		p.ApplyFailure(reason)
	}
}

func (r *fakeRegistry) LearnNew(sourceURL, apiEndpoint *url.URL, hint registry.StrategyHint, mapping domainpattern.ContentMapping, validation domainpattern.ValidationSpec, now time.Time) (*domainpattern.LearnedApiPattern, error) {
	r.learnCalls++
	r.lastLearnedAt = now
	p, err := domainpattern.New("learned-1", sourceURL.Hostname(), `^.*$`, domainpattern.QueryAPI, apiEndpoint.String(), "GET", nil, nil, mapping, validation, domainpattern.SourceLearned, now)
	return p, err
}

func (r *fakeRegistry) LearnFromProbe(hostname string, endpoint *url.URL, requiresAuth bool, now time.Time) (*domainpattern.LearnedApiPattern, error) {
	r.probeCalls++
	r.lastProbeAuth = requiresAuth
	return domainpattern.New("fuzzed-1", hostname, `^.*$`, domainpattern.RESTResource, domainpattern.URLSentinel, "GET", nil, nil, domainpattern.ContentMapping{}, domainpattern.ValidationSpec{}, domainpattern.SourceFuzzing, now)
}

type fakePredictor struct {
	observeCalls int
}

func (p *fakePredictor) ObserveFetch(hostname, urlPattern, contentHash string, now time.Time) (*domainchangepattern.ContentChangePattern, bool) {
	p.observeCalls++
	return domainchangepattern.NewContentChangePattern(hostname+":"+urlPattern, hostname, urlPattern, now), false
}

type fakeVector struct {
	indexCalls int
}

func (v *fakeVector) IndexFetch(hostname, sourceURL, title, text string, now time.Time) error {
	v.indexCalls++
	return nil
}

type fakeHints struct {
	observations []hintObservation
}

type hintObservation struct {
	hostname string
	tier     fetch.Tier
	success  bool
}

func (h *fakeHints) Observe(hostname string, tier fetch.Tier, success bool) {
	h.observations = append(h.observations, hintObservation{hostname, tier, success})
}

func TestEngine_SubmitThenRun_AppliesOutcomeForKnownPattern(t *testing.T) {
	reg := newFakeRegistry()
	now := time.Now()
	p, _ := domainpattern.New("p1", "example.org", `^.*$`, domainpattern.RESTResource, domainpattern.URLSentinel, "GET", nil, nil, domainpattern.ContentMapping{}, domainpattern.ValidationSpec{}, domainpattern.SourceLearned, now)
	reg.patterns["p1"] = p

	eng := New(reg, nil, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)

	eng.Submit(fetch.LearningEvent{
		Kind: fetch.LearningEventSuccess, Domain: "example.org", URL: "https://example.org/x",
		Tier: fetch.TierIntelligence, PatternID: "p1", LatencyMs: 50, OccurredAt: now,
	})

	waitUntil(t, func() bool { return reg.applyCalls == 1 })
	cancel()
	if p.SuccessCount != 1 {
		t.Errorf("SuccessCount = %d, want 1", p.SuccessCount)
	}
}

func TestEngine_SuccessWithDiscoveredEndpoint_LearnsNewPattern(t *testing.T) {
	reg := newFakeRegistry()
	eng := New(reg, nil, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)
	defer cancel()

	eng.Submit(fetch.LearningEvent{
		Kind: fetch.LearningEventSuccess, Domain: "example.org", URL: "https://example.org/widgets/1",
		Tier: fetch.TierLightweight, DiscoveredAPIEndpoint: "https://api.example.org/widgets/1",
		OccurredAt: time.Now(),
	})

	waitUntil(t, func() bool { return reg.learnCalls == 1 })
}

func TestEngine_IntelligenceTierSuccessWithoutPattern_NeverLearns(t *testing.T) {
	reg := newFakeRegistry()
	eng := New(reg, nil, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)
	defer cancel()

	eng.Submit(fetch.LearningEvent{
		Kind: fetch.LearningEventSuccess, Domain: "example.org", URL: "https://example.org/x",
		Tier: fetch.TierIntelligence, DiscoveredAPIEndpoint: "https://api.example.org/x",
		OccurredAt: time.Now(),
	})
	// Give the (wrongly-triggered) path a moment to fire if the guard were missing.
	time.Sleep(20 * time.Millisecond)
	if reg.learnCalls != 0 {
		t.Errorf("learnCalls = %d, want 0 (intelligence tier never learns a new pattern)", reg.learnCalls)
	}
}

func TestEngine_SuccessWithContentHash_ObservesPredictor(t *testing.T) {
	reg := newFakeRegistry()
	pred := &fakePredictor{}
	eng := New(reg, pred, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)
	defer cancel()

	eng.Submit(fetch.LearningEvent{
		Kind: fetch.LearningEventSuccess, Domain: "example.org", URL: "https://example.org/x",
		Tier: fetch.TierLightweight, ContentHash: "h1", OccurredAt: time.Now(),
	})
	waitUntil(t, func() bool { return pred.observeCalls == 1 })
}

func TestEngine_SuccessWithTitle_IndexesVector(t *testing.T) {
	reg := newFakeRegistry()
	vec := &fakeVector{}
	eng := New(reg, nil, vec, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)
	defer cancel()

	eng.Submit(fetch.LearningEvent{
		Kind: fetch.LearningEventSuccess, Domain: "example.org", URL: "https://example.org/x",
		Tier: fetch.TierLightweight, Title: "Example", BodyText: "hello", OccurredAt: time.Now(),
	})
	waitUntil(t, func() bool { return vec.indexCalls == 1 })
}

func TestEngine_QueueFullDropsEventWithoutBlocking(t *testing.T) {
	reg := newFakeRegistry()
	eng := New(reg, nil, nil, nil, nil)
	// Never started: Run is not consuming, so the queue fills and the next
	// Submit past capacity must return immediately rather than block.
	for i := 0; i < defaultQueueCap; i++ {
		eng.Submit(fetch.LearningEvent{Kind: fetch.LearningEventSuccess})
	}
	done := make(chan struct{})
	go func() {
		eng.Submit(fetch.LearningEvent{Kind: fetch.LearningEventSuccess})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a full queue")
	}
}

func TestEngine_Success_ObservesHintOnce(t *testing.T) {
	reg := newFakeRegistry()
	hints := &fakeHints{}
	eng := New(reg, nil, nil, hints, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)
	defer cancel()

	eng.Submit(fetch.LearningEvent{
		Kind: fetch.LearningEventSuccess, Domain: "example.org", URL: "https://example.org/x",
		Tier: fetch.TierLightweight, OccurredAt: time.Now(),
	})
	waitUntil(t, func() bool { return len(hints.observations) == 1 })
	got := hints.observations[0]
	if got.hostname != "example.org" || got.tier != fetch.TierLightweight || !got.success {
		t.Errorf("observation = %+v, want success on example.org/lightweight", got)
	}
}

func TestEngine_Failure_ObservesHintAsUnsuccessful(t *testing.T) {
	reg := newFakeRegistry()
	p, _ := domainpattern.New("p1", "example.org", `^.*$`, domainpattern.RESTResource, domainpattern.URLSentinel, "GET", nil, nil, domainpattern.ContentMapping{}, domainpattern.ValidationSpec{}, domainpattern.SourceLearned, time.Now())
	reg.patterns["p1"] = p
	hints := &fakeHints{}
	eng := New(reg, nil, nil, hints, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)
	defer cancel()

	eng.Submit(fetch.LearningEvent{
		Kind: fetch.LearningEventFailure, Domain: "example.org", URL: "https://example.org/x",
		Tier: fetch.TierPlaywright, PatternID: "p1", OccurredAt: time.Now(),
	})
	waitUntil(t, func() bool { return len(hints.observations) == 1 })
	got := hints.observations[0]
	if got.success {
		t.Errorf("observation = %+v, want success=false", got)
	}
}

func TestEngine_ProbeEvent_LearnsFromProbeWithAuthFlag(t *testing.T) {
	reg := newFakeRegistry()
	eng := New(reg, nil, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)
	defer cancel()

	eng.Submit(fetch.LearningEvent{
		Kind: fetch.LearningEventProbe, Domain: "example.org", URL: "https://example.org/api/v1",
		RequiresAuth: true, OccurredAt: time.Now(),
	})
	waitUntil(t, func() bool { return reg.probeCalls == 1 })
	if !reg.lastProbeAuth {
		t.Error("expected RequiresAuth to propagate to LearnFromProbe")
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
