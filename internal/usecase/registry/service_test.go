package registry

import (
	"net/url"
	"testing"
	"time"

	domainpattern "github.com/kailas-cloud/fetchcascade/internal/domain/pattern"
)

func mustPattern(t *testing.T, id, hostname, urlRegex string, now time.Time) *domainpattern.LearnedApiPattern {
	t.Helper()
	p, err := domainpattern.New(
		id, hostname, urlRegex, domainpattern.RESTResource, domainpattern.URLSentinel, "GET", nil,
		nil, domainpattern.ContentMapping{}, domainpattern.ValidationSpec{}, domainpattern.SourceLearned, now,
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestMatch_HostIndexHit(t *testing.T) {
	repo := newFakeRepo()
	now := time.Now()
	p := mustPattern(t, "p1", "example.org", `^https://example\.org/a/.*$`, now)
	repo.Put(p)

	svc := New(repo, Config{}, nil, nil)
	u, _ := url.Parse("https://example.org/a/b")
	hit, result := svc.Match(u)
	if hit == nil || hit.ID != "p1" {
		t.Fatalf("Match = %v, want p1", hit)
	}
	if result != MatchHitHost {
		t.Errorf("result = %v, want hit_host", result)
	}
}

func TestMatch_CrossDomainFallbackOnlyWhenHostEmpty(t *testing.T) {
	repo := newFakeRepo()
	now := time.Now()
	p := mustPattern(t, "p1", "other.org", `^https://[^/]+/a/.*$`, now)
	repo.Put(p)

	svc := New(repo, Config{}, nil, nil)
	u, _ := url.Parse("https://example.org/a/b")
	hit, result := svc.Match(u)
	if hit == nil || hit.ID != "p1" {
		t.Fatalf("Match = %v, want cross-domain hit p1", hit)
	}
	if result != MatchHitCrossDomain {
		t.Errorf("result = %v, want hit_cross_domain", result)
	}
}

func TestMatch_HostIndexNonEmptyNeverFallsBack(t *testing.T) {
	repo := newFakeRepo()
	now := time.Now()
	// example.org has a pattern, but it doesn't match this particular URL.
	p := mustPattern(t, "p1", "example.org", `^https://example\.org/only-this/.*$`, now)
	repo.Put(p)
	// another host has a pattern that WOULD match, but must not be consulted.
	p2 := mustPattern(t, "p2", "other.org", `^https://[^/]+/a/.*$`, now)
	repo.Put(p2)

	svc := New(repo, Config{}, nil, nil)
	u, _ := url.Parse("https://example.org/a/b")
	hit, result := svc.Match(u)
	if hit != nil {
		t.Fatalf("Match = %v, want nil (non-empty host index must not fall back)", hit)
	}
	if result != MatchMiss {
		t.Errorf("result = %v, want miss", result)
	}
}

func TestMatch_SortsByConfidenceDescending(t *testing.T) {
	repo := newFakeRepo()
	now := time.Now()
	low := mustPattern(t, "low", "example.org", `^https://example\.org/.*$`, now)
	low.SuccessCount, low.FailureCount = 1, 9
	high := mustPattern(t, "high", "example.org", `^https://example\.org/.*$`, now)
	high.SuccessCount, high.FailureCount = 9, 1
	repo.Put(low)
	repo.Put(high)

	svc := New(repo, Config{}, nil, nil)
	u, _ := url.Parse("https://example.org/x")
	hit, _ := svc.Match(u)
	if hit.ID != "high" {
		t.Errorf("hit = %s, want high (higher confidence)", hit.ID)
	}
}

func TestApplyOutcome_SuccessIncrementsAndPersists(t *testing.T) {
	repo := newFakeRepo()
	now := time.Now()
	p := mustPattern(t, "p1", "example.org", `^https://example\.org/.*$`, now)
	repo.Put(p)

	var events []domainpattern.Event
	svc := New(repo, Config{}, func(e domainpattern.Event) { events = append(events, e) }, nil)
	svc.ApplyOutcome(p, "example.org", true, 120.0, "", now)

	if p.SuccessCount != 1 {
		t.Errorf("SuccessCount = %d, want 1", p.SuccessCount)
	}
	if len(events) == 0 || events[0].Kind != domainpattern.EventApplied {
		t.Errorf("expected an Applied event, got %v", events)
	}
}

func TestApplyOutcome_ConfidenceChangedEmittedOnMaterialDelta(t *testing.T) {
	repo := newFakeRepo()
	now := time.Now()
	p := mustPattern(t, "p1", "example.org", `^https://example\.org/.*$`, now)
	repo.Put(p)

	var kinds []domainpattern.EventKind
	svc := New(repo, Config{}, func(e domainpattern.Event) { kinds = append(kinds, e.Kind) }, nil)
	svc.ApplyOutcome(p, "example.org", true, 100, "", now)

	found := false
	for _, k := range kinds {
		if k == domainpattern.EventConfidenceChanged {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a ConfidenceChanged event on first apply, got %v", kinds)
	}
}

func TestCleanup_ArchivesLowConfidenceAndIdle(t *testing.T) {
	repo := newFakeRepo()
	now := time.Now()

	stale := mustPattern(t, "stale", "a.org", `^https://a\.org/.*$`, now)
	stale.SuccessCount = 10
	stale.LastSuccess = now.Add(-100 * 24 * time.Hour)
	repo.Put(stale)

	healthy := mustPattern(t, "healthy", "b.org", `^https://b\.org/.*$`, now)
	healthy.SuccessCount = 10
	healthy.LastSuccess = now
	repo.Put(healthy)

	svc := New(repo, Config{ArchiveAfterDays: 90, MinConfidenceThreshold: 0.1}, nil, nil)
	archived := svc.Cleanup(now)
	if archived != 1 {
		t.Fatalf("archived = %d, want 1", archived)
	}
	if _, ok := repo.Get("stale"); ok {
		t.Error("stale pattern should have been deleted")
	}
	if _, ok := repo.Get("healthy"); !ok {
		t.Error("healthy pattern should remain")
	}
}

func TestCleanup_EvictsLowestConfidenceOverMaxPatterns(t *testing.T) {
	repo := newFakeRepo()
	now := time.Now()

	for _, id := range []string{"a", "b", "c"} {
		p := mustPattern(t, id, id+".org", `^https://`+id+`\.org/.*$`, now)
		p.LastSuccess = now
		repo.Put(p)
	}
	// Give "a" the lowest confidence, "c" the highest, so "a" is evicted first.
	a, _ := repo.Get("a")
	a.SuccessCount, a.FailureCount = 1, 9
	b, _ := repo.Get("b")
	b.SuccessCount, b.FailureCount = 5, 5
	c, _ := repo.Get("c")
	c.SuccessCount, c.FailureCount = 9, 1

	svc := New(repo, Config{MaxPatterns: 2, MinConfidenceThreshold: 0, ArchiveAfterDays: 0}, nil, nil)
	svc.Cleanup(now)

	if repo.Count() != 2 {
		t.Fatalf("Count after cleanup = %d, want 2", repo.Count())
	}
	if _, ok := repo.Get("a"); ok {
		t.Error("lowest-confidence pattern should have been evicted")
	}
}
