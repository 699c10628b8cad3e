// Package tierhint tracks C9's per-domain tier preference hint map: a
// success-weighted exponential moving average per (hostname, tier),
// consulted by the Tiered Fetcher's selection algorithm (spec §4.1 step 2:
// "Prepend any tier 'preferred' for the domain by C9's hint map").
package tierhint

import (
	"sync"

	"github.com/kailas-cloud/fetchcascade/internal/domain/fetch"
)

const defaultAlpha = 0.2

// Service is a process-wide, concurrency-safe EMA tracker. Independent
// hostnames never contend on the same lock section for long: each
// Observe/PreferredTier call holds the lock only for its own map lookup.
type Service struct {
	mu     sync.Mutex
	scores map[string]map[fetch.Tier]float64
	alpha  float64
}

// New creates a Service. alpha is the EMA smoothing factor in (0, 1];
// <= 0 defaults to 0.2 (recent outcomes matter, but a handful of flukes
// don't flip the preference).
func New(alpha float64) *Service {
	if alpha <= 0 || alpha > 1 {
		alpha = defaultAlpha
	}
	return &Service{scores: make(map[string]map[fetch.Tier]float64), alpha: alpha}
}

// Observe folds one outcome for (hostname, tier) into its running EMA.
func (s *Service) Observe(hostname string, tier fetch.Tier, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.scores[hostname]
	if !ok {
		m = make(map[fetch.Tier]float64)
		s.scores[hostname] = m
	}

	obs := 0.0
	if success {
		obs = 1.0
	}
	prev, seen := m[tier]
	if !seen {
		m[tier] = obs
		return
	}
	m[tier] = prev + s.alpha*(obs-prev)
}

// PreferredTier returns the tier with the highest EMA for hostname, if any
// tier has a positive score. Ties prefer the cheaper tier, matching §4.1's
// tie-break rule.
func (s *Service) PreferredTier(hostname string) (fetch.Tier, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.scores[hostname]
	if !ok {
		return "", false
	}

	var best fetch.Tier
	bestScore := -1.0
	for _, tier := range fetch.AllTiers() {
		score, seen := m[tier]
		if !seen {
			continue
		}
		if score > bestScore {
			bestScore = score
			best = tier
		}
	}
	if bestScore <= 0 {
		return "", false
	}
	return best, true
}
