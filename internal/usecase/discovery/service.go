package discovery

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/fetchcascade/internal/domain/fetch"
	"github.com/kailas-cloud/fetchcascade/internal/metrics"
)

// Config carries the tunables from config.DiscoveryConfig.
type Config struct {
	MaxDurationSec  int
	ProbeTimeoutSec int
	DomainTTLHours  int
}

// Service is the Discovery Orchestrator.
type Service struct {
	client   HTTPDoer
	probeLog ProbeLog
	learner  Learner
	load     LoadMonitor
	logger   *zap.Logger

	maxDuration  time.Duration
	probeTimeout time.Duration
	domainTTL    time.Duration
}

// New creates a Service. client defaults to a no-redirect *http.Client; load
// may be nil to disable the backpressure check.
func New(client HTTPDoer, probeLog ProbeLog, learner Learner, load LoadMonitor, cfg Config, logger *zap.Logger) *Service {
	if client == nil {
		client = &http.Client{
			Timeout:       time.Duration(cfg.ProbeTimeoutSec) * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		}
	}
	return &Service{
		client:       client,
		probeLog:     probeLog,
		learner:      learner,
		load:         load,
		logger:       logger,
		maxDuration:  time.Duration(cfg.MaxDurationSec) * time.Second,
		probeTimeout: time.Duration(cfg.ProbeTimeoutSec) * time.Second,
		domainTTL:    time.Duration(cfg.DomainTTLHours) * time.Hour,
	}
}

// ProbeDomain fuzzes hostname's common API paths over scheme, within
// maxDuration, unless it was already probed within its TTL or live traffic
// is currently in flight. Every successful probe is reported to the
// Learning Engine as a LearningEventProbe.
func (s *Service) ProbeDomain(ctx context.Context, scheme, hostname string, now time.Time) error {
	if s.load != nil && s.load.InFlight() > 0 {
		return nil
	}

	seen, err := s.probeLog.SeenRecently(ctx, hostname)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	deadline := now.Add(s.maxDuration)
	for _, target := range commonAPIPaths {
		if ctx.Err() != nil {
			break
		}
		if time.Now().After(deadline) {
			if s.logger != nil {
				s.logger.Info("discovery probe budget exhausted", zap.String("hostname", hostname))
			}
			break
		}
		if s.load != nil && s.load.InFlight() > 0 {
			break
		}

		s.probeOne(ctx, scheme, hostname, target)
	}

	return s.probeLog.MarkProbed(ctx, hostname, s.domainTTL)
}

func (s *Service) probeOne(ctx context.Context, scheme, hostname string, target probeTarget) {
	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	rawURL := scheme + "://" + hostname + target.path
	req, err := http.NewRequestWithContext(probeCtx, target.method, rawURL, nil)
	if err != nil {
		return
	}

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.DiscoveryProbesTotal.WithLabelValues("failure").Inc()
		return
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		metrics.DiscoveryProbesTotal.WithLabelValues("requires_auth").Inc()
		s.reportHit(hostname, rawURL, true)
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		metrics.DiscoveryProbesTotal.WithLabelValues("success").Inc()
		s.reportHit(hostname, rawURL, false)
	default:
		metrics.DiscoveryProbesTotal.WithLabelValues("failure").Inc()
	}
}

func (s *Service) reportHit(hostname, rawURL string, requiresAuth bool) {
	if s.learner == nil {
		return
	}
	s.learner.Submit(fetch.LearningEvent{
		Kind:         fetch.LearningEventProbe,
		Domain:       hostname,
		URL:          rawURL,
		RequiresAuth: requiresAuth,
		OccurredAt:   time.Now(),
	})
}
