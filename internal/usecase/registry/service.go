package registry

import (
	"net/url"
	"sort"
	"time"

	"go.uber.org/zap"

	domainpattern "github.com/kailas-cloud/fetchcascade/internal/domain/pattern"
	"github.com/kailas-cloud/fetchcascade/internal/metrics"
)

// MatchResult classifies how Match found its candidate, for metrics and
// for the caller's own decision of whether the hit crossed hosts.
type MatchResult string

// Match outcomes.
const (
	MatchHitHost        MatchResult = "hit_host"
	MatchHitCrossDomain MatchResult = "hit_cross_domain"
	MatchMiss           MatchResult = "miss"
)

// Service is the API Pattern Registry's mutation boundary. Every method is
// safe to call only from the Learning Engine's single serialized consumer
// (internal/usecase/learning) — the registry itself does no locking beyond
// what Repo already provides for reads.
type Service struct {
	repo          Repo
	maxPatterns   int
	minConfidence float64
	archiveAfter  time.Duration
	onEvent       EventSink
	logger        *zap.Logger
}

// Config carries the tunables from config.RegistryConfig the service needs.
type Config struct {
	MaxPatterns            int
	MinConfidenceThreshold float64
	ArchiveAfterDays       int
}

// New creates a registry Service. onEvent may be nil.
func New(repo Repo, cfg Config, onEvent EventSink, logger *zap.Logger) *Service {
	if onEvent == nil {
		onEvent = func(domainpattern.Event) {}
	}
	return &Service{
		repo:          repo,
		maxPatterns:   cfg.MaxPatterns,
		minConfidence: cfg.MinConfidenceThreshold,
		archiveAfter:  time.Duration(cfg.ArchiveAfterDays) * 24 * time.Hour,
		onEvent:       onEvent,
		logger:        logger,
	}
}

// Match implements the match algorithm: host index first, sorted by
// confidence descending; only when the host index holds no matching
// pattern do we fall back to a cross-domain scan over every pattern.
func (s *Service) Match(u *url.URL) (*domainpattern.LearnedApiPattern, MatchResult) {
	hostname := u.Hostname()

	hostCandidates := s.repo.ForHostname(hostname)
	if len(hostCandidates) > 0 {
		// The host has its own patterns: match against those only, even if
		// none of them match this particular URL. Cross-domain transfer is
		// reserved for hosts with no patterns at all.
		if hit := bestMatch(hostCandidates, u); hit != nil {
			metrics.PatternMatchTotal.WithLabelValues(string(MatchHitHost)).Inc()
			return hit, MatchHitHost
		}
		metrics.PatternMatchTotal.WithLabelValues(string(MatchMiss)).Inc()
		return nil, MatchMiss
	}

	if hit := bestMatch(s.repo.All(), u); hit != nil {
		metrics.PatternMatchTotal.WithLabelValues(string(MatchHitCrossDomain)).Inc()
		return hit, MatchHitCrossDomain
	}

	metrics.PatternMatchTotal.WithLabelValues(string(MatchMiss)).Inc()
	return nil, MatchMiss
}

// bestMatch filters candidates to those whose regex matches u and returns
// the one with the highest confidence, nil if none match.
func bestMatch(candidates []*domainpattern.LearnedApiPattern, u *url.URL) *domainpattern.LearnedApiPattern {
	var matching []*domainpattern.LearnedApiPattern
	for _, p := range candidates {
		if p.Matches(u) {
			matching = append(matching, p)
		}
	}
	if len(matching) == 0 {
		return nil
	}
	sort.Slice(matching, func(i, j int) bool {
		return matching[i].Confidence() > matching[j].Confidence()
	})
	return matching[0]
}

// ApplyOutcome records a success or failure against p and persists the
// update. hostname is the requesting domain, used for the coverage set.
func (s *Service) ApplyOutcome(p *domainpattern.LearnedApiPattern, hostname string, success bool, latencyMs float64, reason string, now time.Time) {
	var delta float64
	if success {
		delta = p.ApplySuccess(hostname, latencyMs, now)
	} else {
		delta = p.ApplyFailure(reason)
	}

	s.repo.Put(p)

	conf := p.Confidence()
	metrics.PatternConfidence.WithLabelValues(p.Hostname, p.ID).Set(conf)

	s.onEvent(domainpattern.Event{
		Kind: domainpattern.EventApplied, PatternID: p.ID, Hostname: p.Hostname,
		Confidence: conf, Delta: delta, Reason: reason,
	})
	metrics.PatternEventsTotal.WithLabelValues(string(domainpattern.EventApplied)).Inc()

	if delta > 0.01 || delta < -0.01 {
		s.onEvent(domainpattern.Event{
			Kind: domainpattern.EventConfidenceChanged, PatternID: p.ID, Hostname: p.Hostname,
			Confidence: conf, Delta: delta,
		})
		metrics.PatternEventsTotal.WithLabelValues(string(domainpattern.EventConfidenceChanged)).Inc()
	}
}

// Cleanup sweeps every pattern and archives (deletes) those that are idle
// beyond archiveAfter or have fallen below minConfidence, then enforces
// maxPatterns as a soft cap by evicting the lowest-confidence survivors,
// oldest first, until the registry is back under the limit.
func (s *Service) Cleanup(now time.Time) int {
	archived := 0
	remaining := make([]*domainpattern.LearnedApiPattern, 0)
	for _, p := range s.repo.All() {
		should, reason := p.ShouldArchive(now, s.archiveAfter, s.minConfidence)
		if !should {
			remaining = append(remaining, p)
			continue
		}
		s.archiveOne(p, reason)
		archived++
	}

	if s.maxPatterns <= 0 || len(remaining) <= s.maxPatterns {
		return archived
	}

	sort.Slice(remaining, func(i, j int) bool {
		ci, cj := remaining[i].Confidence(), remaining[j].Confidence()
		if ci != cj {
			return ci < cj
		}
		return remaining[i].CreatedAt.Before(remaining[j].CreatedAt)
	})
	overflow := len(remaining) - s.maxPatterns
	for _, p := range remaining[:overflow] {
		s.archiveOne(p, "max_patterns_exceeded")
		archived++
	}
	return archived
}

func (s *Service) archiveOne(p *domainpattern.LearnedApiPattern, reason string) {
	s.repo.Delete(p.ID)
	s.onEvent(domainpattern.Event{Kind: domainpattern.EventArchived, PatternID: p.ID, Hostname: p.Hostname, Reason: reason})
	metrics.PatternEventsTotal.WithLabelValues(string(domainpattern.EventArchived)).Inc()
	if s.logger != nil {
		s.logger.Info("archived pattern", zap.String("pattern_id", p.ID), zap.String("reason", reason))
	}
}

// Count returns the number of patterns currently registered.
func (s *Service) Count() int { return s.repo.Count() }

// Get returns a pattern by id, used by the Learning Engine to re-fetch the
// exact pattern a tier attempt was run against rather than re-matching (a
// concurrent mutation could otherwise change which pattern ranks highest).
func (s *Service) Get(id string) (*domainpattern.LearnedApiPattern, bool) {
	return s.repo.Get(id)
}

// ForHostname returns every pattern registered for hostname, for the
// programmatic façade's domain-intelligence introspection.
func (s *Service) ForHostname(hostname string) []*domainpattern.LearnedApiPattern {
	return s.repo.ForHostname(hostname)
}
