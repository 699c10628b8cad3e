package pattern

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

func mustExtractor(t *testing.T, name string, source ExtractSource, re string, group int) VariableExtractor {
	t.Helper()
	e, err := NewVariableExtractor(name, source, re, group, TransformNone)
	if err != nil {
		t.Fatalf("NewVariableExtractor: %v", err)
	}
	return e
}

func TestNew_RejectsUnmappedPlaceholder(t *testing.T) {
	_, err := New(
		"p1", "example.org", `https://example\.org/.*`, RESTResource,
		"https://api.example.org/{owner}/{repo}", "", nil, nil,
		ContentMapping{}, ValidationSpec{}, SourceLearned, time.Now(),
	)
	if err == nil {
		t.Fatal("expected error for unmapped {owner}/{repo}")
	}
}

func TestNew_AllowsURLSentinel(t *testing.T) {
	p, err := New(
		"p2", "example.org", `https://example\.org/.*`, JSONSuffix,
		URLSentinel, "", nil, nil, ContentMapping{}, ValidationSpec{}, SourceLearned, time.Now(),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.EndpointTemplate != URLSentinel {
		t.Errorf("EndpointTemplate = %q, want sentinel", p.EndpointTemplate)
	}
}

func TestBuildEndpoint_SubstitutesAllExtractors(t *testing.T) {
	owner := mustExtractor(t, "owner", SourcePath, `^/([^/]+)/([^/]+)`, 1)
	repo := mustExtractor(t, "repo", SourcePath, `^/([^/]+)/([^/]+)`, 2)

	p, err := New(
		"p3", "github.com", `https://github\.com/[^/]+/[^/]+`, RESTResource,
		"https://api.github.com/repos/{owner}/{repo}", "", nil,
		[]VariableExtractor{owner, repo}, ContentMapping{}, ValidationSpec{}, SourceLearned, time.Now(),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	u, _ := url.Parse("https://github.com/golang/go")
	endpoint, err := p.BuildEndpoint(u)
	if err != nil {
		t.Fatalf("BuildEndpoint: %v", err)
	}
	if endpoint != "https://api.github.com/repos/golang/go" {
		t.Errorf("endpoint = %q", endpoint)
	}
	if strings.Contains(endpoint, "{") {
		t.Errorf("endpoint still contains a placeholder: %q", endpoint)
	}
}

func TestConfidence_ExactFormula(t *testing.T) {
	p := &LearnedApiPattern{}
	if p.Confidence() != 0 {
		t.Fatalf("fresh pattern confidence = %v, want 0", p.Confidence())
	}

	p.ApplySuccess("example.org", 100, time.Now())
	p.ApplySuccess("example.org", 120, time.Now())
	p.ApplyFailure("timeout")

	want := 2.0 / 3.0
	if got := p.Confidence(); got != want {
		t.Errorf("Confidence() = %v, want %v", got, want)
	}
}

func TestApplySuccessThenFailure_ConfidenceStaysInOpenInterval(t *testing.T) {
	p := &LearnedApiPattern{}
	p.ApplySuccess("a.com", 10, time.Now())
	p.ApplyFailure("network")

	c := p.Confidence()
	if c <= 0 || c >= 1 {
		t.Errorf("Confidence() = %v, want in (0, 1)", c)
	}
}

func TestApplySuccess_IncrementalMean(t *testing.T) {
	p := &LearnedApiPattern{}
	p.ApplySuccess("a.com", 100, time.Now())
	p.ApplySuccess("a.com", 200, time.Now())
	p.ApplySuccess("a.com", 300, time.Now())

	if p.AvgResponseTimeMs != 200 {
		t.Errorf("AvgResponseTimeMs = %v, want 200", p.AvgResponseTimeMs)
	}
}

func TestShouldArchive_LowConfidence(t *testing.T) {
	p := &LearnedApiPattern{}
	p.ApplySuccess("a.com", 10, time.Now())
	for i := 0; i < 20; i++ {
		p.ApplyFailure("network")
	}

	archive, reason := p.ShouldArchive(time.Now(), 90*24*time.Hour, 0.10)
	if !archive || reason != "low_confidence" {
		t.Errorf("ShouldArchive = (%v, %q), want (true, low_confidence)", archive, reason)
	}
}

func TestShouldArchive_Idle(t *testing.T) {
	p := &LearnedApiPattern{}
	now := time.Now()
	p.ApplySuccess("a.com", 10, now.Add(-100*24*time.Hour))

	archive, reason := p.ShouldArchive(now, 90*24*time.Hour, 0.10)
	if !archive || reason != "idle" {
		t.Errorf("ShouldArchive = (%v, %q), want (true, idle)", archive, reason)
	}
}
