package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/fetchcascade/internal/adapter/intelligence"
	"github.com/kailas-cloud/fetchcascade/internal/adapter/lightweight"
	"github.com/kailas-cloud/fetchcascade/internal/adapter/playwright"
	"github.com/kailas-cloud/fetchcascade/internal/db"
	dbredis "github.com/kailas-cloud/fetchcascade/internal/db/redis"
	"github.com/kailas-cloud/fetchcascade/internal/domain"
	"github.com/kailas-cloud/fetchcascade/internal/domain/changepattern"
	"github.com/kailas-cloud/fetchcascade/internal/domain/fetch"
	changepatternrepo "github.com/kailas-cloud/fetchcascade/internal/repository/changepattern"
	"github.com/kailas-cloud/fetchcascade/internal/repository/fetchcache"
	patternrepo "github.com/kailas-cloud/fetchcascade/internal/repository/pattern"
	"github.com/kailas-cloud/fetchcascade/internal/repository/probelog"
	searchrepo "github.com/kailas-cloud/fetchcascade/internal/repository/search"
	"github.com/kailas-cloud/fetchcascade/internal/repository/session"
	"github.com/kailas-cloud/fetchcascade/internal/repository/vectorrecord"
	budgetrepo "github.com/kailas-cloud/fetchcascade/internal/repository/budget"
	"github.com/kailas-cloud/fetchcascade/internal/usecase/discovery"
	"github.com/kailas-cloud/fetchcascade/internal/usecase/embedding"
	"github.com/kailas-cloud/fetchcascade/internal/usecase/fetcher"
	healthuc "github.com/kailas-cloud/fetchcascade/internal/usecase/health"
	"github.com/kailas-cloud/fetchcascade/internal/usecase/learning"
	"github.com/kailas-cloud/fetchcascade/internal/usecase/predictor"
	"github.com/kailas-cloud/fetchcascade/internal/usecase/registry"
	"github.com/kailas-cloud/fetchcascade/internal/usecase/tierhint"
	"github.com/kailas-cloud/fetchcascade/internal/usecase/usage"
	"github.com/kailas-cloud/fetchcascade/internal/usecase/vectorstore"
)

const defaultReadinessTimeout = 10 * time.Second

// fetchUseCase is the subset of the Tiered Fetcher the client drives.
type fetchUseCase interface {
	Browse(ctx context.Context, req fetch.BrowseRequest) (fetch.BrowseResult, error)
}

// Client is the fetchcascade in-process entry point: one cascade of render
// tiers, backed by Redis, over a single domain's worth of learned state.
type Client struct {
	store       db.Store
	fetchSvc    fetchUseCase
	registry    *registry.Service
	predictor   *predictor.Service
	vector      *vectorstore.Service
	engine      *learning.Engine
	discovery   *discovery.Service
	inFlight    *inFlightCounter
	patternRepo *patternrepo.Repo
	changeRepo  *changepatternrepo.Repo
	healthSvc   *healthuc.Service
	usageSvc    *usage.Service
	cancel      context.CancelFunc
	logger      *zap.Logger
}

// New creates a Client, connects to Redis, bootstraps the pattern
// registry's built-in seeds, and starts the Learning Engine's background
// consumer. The provided context bounds only the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		dataDir:                "./data",
		vectorDimensions:       domain.DefaultVectorConfig().Dimensions,
		maxPatterns:            500,
		minConfidenceThreshold: 0.10,
		archiveAfterDays:       90,
		persistDebounceMs:      5000,
		maxConcurrentPlaywright: 4,
		discoveryMaxDurationSec:  30,
		discoveryProbeTimeoutSec: 10,
		discoveryDomainTTLHours:  24,
		tierHintAlpha:            0.2,
	}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.addr == "" {
		return nil, errors.New("fetchcascade: redis address required (use WithRedis)")
	}

	store, err := dbredis.NewStore(dbredis.Config{Addrs: []string{cfg.addr}, Password: cfg.password})
	if err != nil {
		return nil, fmt.Errorf("fetchcascade: create redis store: %w", err)
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("fetchcascade: redis not ready: %w", err)
	}

	client, err := wireClient(store, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return client, nil
}

func wireClient(store db.Store, cfg *clientConfig) (*Client, error) {
	logger := cfg.logger

	patternRepo := patternrepo.New(filepath.Join(cfg.dataDir, "learned-patterns.json"), cfg.persistDebounceMs, logger)
	changeRepo := changepatternrepo.New(filepath.Join(cfg.dataDir, "change-patterns.json"), cfg.persistDebounceMs, logger)
	sessionRepo := session.New(filepath.Join(cfg.dataDir, "sessions"))
	probeLogRepo := probelog.New(store)
	fetchCacheRepo := fetchcache.New(store)

	vectorRecordRepo := vectorrecord.New(store, cfg.vectorDimensions)
	if cfg.hnswM > 0 || cfg.hnswEFConstruct > 0 {
		vectorRecordRepo = vectorRecordRepo.WithHNSW(cfg.hnswM, cfg.hnswEFConstruct)
	}
	searchRepo := searchrepo.New(store)

	var budgetChecker embedding.BudgetChecker
	var budgetTracker *embedding.BudgetTracker
	if cfg.embedder != nil && (cfg.budgetDailyLimit > 0 || cfg.budgetMonthlyLimit > 0) {
		action := embedding.BudgetActionWarn
		if cfg.budgetAction == "reject" {
			action = embedding.BudgetActionReject
		}
		budgetTracker = embedding.NewBudgetTracker(cfg.embeddingProvider, cfg.budgetDailyLimit, cfg.budgetMonthlyLimit, action, logger)
		budgetTracker.WithStore(context.Background(), budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour))
		budgetChecker = budgetTracker
	}

	var innerEmbedder domain.Embedder = noopEmbedder{}
	if cfg.embedder != nil {
		innerEmbedder = embedding.NewInstrumentedEmbedder(
			&embedderAdapter{inner: cfg.embedder}, cfg.embeddingProvider, cfg.embeddingModel, budgetChecker, logger,
		)
	}
	vectorCfg := domain.DefaultVectorConfig()
	vectorCfg.Dimensions = cfg.vectorDimensions
	docEmbedder := domain.NewInstructionEmbedder(innerEmbedder, vectorCfg.DocumentInstruction)
	queryEmbedder := domain.NewInstructionEmbedder(innerEmbedder, vectorCfg.QueryInstruction)

	registrySvc := registry.New(patternRepo, registry.Config{
		MaxPatterns:            cfg.maxPatterns,
		MinConfidenceThreshold: cfg.minConfidenceThreshold,
		ArchiveAfterDays:       cfg.archiveAfterDays,
	}, nil, logger)
	if err := registrySvc.Bootstrap(time.Now()); err != nil {
		return nil, fmt.Errorf("fetchcascade: bootstrap registry: %w", err)
	}

	predictorSvc := predictor.New(changeRepo, changepattern.Config{
		MinChangesForPattern:          orDefault(cfg.predictorCfg.minChangesForPattern, 3),
		MinObservationsForPattern:     orDefault(cfg.predictorCfg.minObservationsForPattern, 5),
		MaxObservationsToKeep:         orDefault(cfg.predictorCfg.maxObservationsToKeep, 200),
		MaxChangeTimestamps:           orDefault(cfg.predictorCfg.maxChangeTimestamps, 100),
		TimeOfDayToleranceHours:       orDefaultF(cfg.predictorCfg.timeOfDayToleranceHours, 2),
		StaticContentDaysThreshold:    orDefault(cfg.predictorCfg.staticContentDaysThreshold, 30),
		MinPollIntervalMs:             orDefault64(cfg.predictorCfg.minPollIntervalMs, 60_000),
		MaxPollIntervalMs:             orDefault64(cfg.predictorCfg.maxPollIntervalMs, 86_400_000),
		ConfidenceThresholdForPredict: orDefaultF(cfg.predictorCfg.confidenceThresholdForPredict, 0.6),
		CalendarTriggerLeadDays:       orDefault(cfg.predictorCfg.calendarTriggerLeadDays, 1),
		MinCalendarTriggerObs:         orDefault(cfg.predictorCfg.minCalendarTriggerObs, 3),
		EarlyCheckWindowHours:         orDefaultF(cfg.predictorCfg.earlyCheckWindowHours, 6),
	})

	vectorSvc := vectorstore.New(vectorRecordRepo, searchRepo, docEmbedder, queryEmbedder, vectorCfg, logger)

	tierHints := tierhint.New(cfg.tierHintAlpha)

	engine := learning.New(registrySvc, predictorSvc, vectorSvc, tierHints, logger)
	runCtx, cancel := context.WithCancel(context.Background())
	go engine.Run(runCtx)

	adapters := fetcher.Adapters{
		fetch.TierIntelligence: intelligence.New(registrySvc, http.DefaultClient),
		fetch.TierLightweight:  lightweight.New(http.DefaultClient),
	}
	if cfg.browserFactory != nil {
		adapters[fetch.TierPlaywright] = playwright.New(cfg.browserFactory, sessionRepo, cfg.maxConcurrentPlaywright)
	}

	fetchSvc := fetcher.New(adapters, registrySvc, predictorSvc, fetchCacheRepo, tierHints, engine, logger)

	inFlight := &inFlightCounter{}
	discoverySvc := discovery.New(nil, probeLogRepo, engine, inFlight, discovery.Config{
		MaxDurationSec:  cfg.discoveryMaxDurationSec,
		ProbeTimeoutSec: cfg.discoveryProbeTimeoutSec,
		DomainTTLHours:  cfg.discoveryDomainTTLHours,
	}, logger)

	// cfg.embedder is the caller's un-decorated Embedder, checked directly
	// (rather than the wrapped docEmbedder/queryEmbedder chain) so the
	// health check actually reaches a HealthCheck method instead of
	// silently no-opping behind several layers of interface wrapping.
	var embeddingChecker healthuc.EmbeddingChecker
	if hc, ok := cfg.embedder.(healthuc.EmbeddingChecker); ok {
		embeddingChecker = hc
	}
	healthSvc := healthuc.New(store, embeddingChecker)

	// budgetTracker is a *embedding.BudgetTracker, possibly nil; usage.New
	// takes nil to mean unlimited mode, so the nil check below avoids
	// handing it a typed-nil interface (the same gotcha noted above).
	var budgetReader usage.BudgetReader
	if budgetTracker != nil {
		budgetReader = budgetTracker
	}
	usageSvc := usage.New(budgetReader)

	return &Client{
		store:       store,
		fetchSvc:    fetchSvc,
		registry:    registrySvc,
		predictor:   predictorSvc,
		vector:      vectorSvc,
		engine:      engine,
		discovery:   discoverySvc,
		inFlight:    inFlight,
		patternRepo: patternRepo,
		changeRepo:  changeRepo,
		healthSvc:   healthSvc,
		usageSvc:    usageSvc,
		cancel:      cancel,
		logger:      logger,
	}, nil
}

// Flush forces the pattern registry and change predictor's debounced JSON
// snapshots to disk immediately, rather than waiting for their persist
// debounce window to elapse. Safe to call concurrently with Browse.
func (c *Client) Flush() error {
	if c.patternRepo != nil {
		if err := c.patternRepo.Flush(); err != nil {
			return fmt.Errorf("fetchcascade: flush patterns: %w", err)
		}
	}
	if c.changeRepo != nil {
		if err := c.changeRepo.Flush(); err != nil {
			return fmt.Errorf("fetchcascade: flush change patterns: %w", err)
		}
	}
	return nil
}

// Close flushes learned state to disk, stops the Learning Engine, and
// releases the Redis connection.
func (c *Client) Close() {
	if err := c.Flush(); err != nil && c.logger != nil {
		c.logger.Warn("flush on close failed", zap.Error(err))
	}
	c.cancel()
	if c.patternRepo != nil {
		_ = c.patternRepo.Close()
	}
	if c.changeRepo != nil {
		_ = c.changeRepo.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("fetchcascade: ping: %w", err)
	}
	return nil
}

// inFlightCounter satisfies internal/usecase/discovery.LoadMonitor: the
// Discovery Orchestrator yields whenever a live Browse call is in flight.
type inFlightCounter struct {
	n int64
}

func (c *inFlightCounter) InFlight() int { return int(atomic.LoadInt64(&c.n)) }
func (c *inFlightCounter) inc()          { atomic.AddInt64(&c.n, 1) }
func (c *inFlightCounter) dec()          { atomic.AddInt64(&c.n, -1) }

// embedderAdapter wraps the public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{Embedding: r.Embedding, PromptTokens: r.PromptTokens, TotalTokens: r.TotalTokens}, nil
}

// noopEmbedder errors on every call; used when the caller never configured
// an embedder. Browse and pattern learning work fine without one.
type noopEmbedder struct{}

func (noopEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, errors.New("fetchcascade: embedder not configured (use WithEmbedder)")
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDefault64(v, def int64) int64 {
	if v <= 0 {
		return def
	}
	return v
}

func orDefaultF(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}
