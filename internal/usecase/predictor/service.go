package predictor

import (
	"time"

	domainchangepattern "github.com/kailas-cloud/fetchcascade/internal/domain/changepattern"
	"github.com/kailas-cloud/fetchcascade/internal/metrics"
)

// Service is the Content-Change Predictor's mutation boundary. Like the
// pattern registry, every method here is only safe to call from the
// Learning Engine's single serialized consumer for a given key; distinct
// (hostname, urlPattern) keys may be updated concurrently since each one
// owns an independent aggregate.
type Service struct {
	repo Repo
	cfg  domainchangepattern.Config
}

// New creates a predictor Service.
func New(repo Repo, cfg domainchangepattern.Config) *Service {
	return &Service{repo: repo, cfg: cfg}
}

// ObserveFetch records a single successful fetch's content hash for
// (hostname, urlPattern), deriving Changed by comparing against the most
// recent prior observation, and, once enough history has accumulated,
// re-runs classification.
func (s *Service) ObserveFetch(hostname, urlPattern, contentHash string, now time.Time) (*domainchangepattern.ContentChangePattern, bool) {
	p := s.repo.GetOrCreate(hostname, urlPattern, now)

	changed := contentHash != "" && lastHash(p) != "" && lastHash(p) != contentHash
	p.Observe(domainchangepattern.ChangeObservation{CheckedAt: now, Changed: changed, ContentHash: contentHash}, s.cfg)
	p.AnalyzeAndUpdatePattern(now, s.cfg)
	s.repo.Save()

	metrics.PredictorClassificationTotal.WithLabelValues(string(p.DetectedType)).Inc()
	metrics.PredictorUrgencyGauge.WithLabelValues(hostname).Set(float64(p.Urgency()))
	return p, changed
}

func lastHash(p *domainchangepattern.ContentChangePattern) string {
	if len(p.Observations) == 0 {
		return ""
	}
	return p.Observations[len(p.Observations)-1].ContentHash
}

// RecordAccuracy folds a hit/miss outcome for the last prediction back into
// the pattern's confidence, used when a scheduled check comes back with or
// without the predicted change.
func (s *Service) RecordAccuracy(hostname, urlPattern string, hit bool, now time.Time) {
	p := s.repo.GetOrCreate(hostname, urlPattern, now)
	p.RecordPredictionAccuracy(hit, now)
	s.repo.Save()

	metrics.PredictorAccuracyTotal.WithLabelValues(boolLabel(hit)).Inc()
}

// ShouldCheckNow reports whether the tracked (hostname, urlPattern) pair is
// due for a check, per its last prediction.
func (s *Service) ShouldCheckNow(hostname, urlPattern string, now time.Time) bool {
	p := s.repo.GetOrCreate(hostname, urlPattern, now)
	return p.ShouldCheckNow(now, s.cfg)
}

// DueForCheck returns every tracked pattern that's currently due for a
// check, used by a periodic scheduler sweep.
func (s *Service) DueForCheck(now time.Time) []*domainchangepattern.ContentChangePattern {
	var due []*domainchangepattern.ContentChangePattern
	for _, p := range s.repo.All() {
		if p.ShouldCheckNow(now, s.cfg) {
			due = append(due, p)
		}
	}
	return due
}

// ForHostname returns every tracked change pattern for hostname, for the
// programmatic façade's domain-intelligence introspection.
func (s *Service) ForHostname(hostname string) []*domainchangepattern.ContentChangePattern {
	var out []*domainchangepattern.ContentChangePattern
	for _, p := range s.repo.All() {
		if p.Hostname == hostname {
			out = append(out, p)
		}
	}
	return out
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
