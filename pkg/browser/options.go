package browser

import (
	"go.uber.org/zap"

	"github.com/kailas-cloud/fetchcascade/internal/adapter/playwright"
)

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	addr     string
	password string
	dataDir  string

	embedder            Embedder
	embeddingProvider   string
	embeddingModel      string
	budgetDailyLimit    int64
	budgetMonthlyLimit  int64
	budgetAction        string
	vectorDimensions     int
	vectorDocInstruction string
	vectorQryInstruction string
	hnswM                int
	hnswEFConstruct      int

	maxPatterns            int
	minConfidenceThreshold float64
	archiveAfterDays       int
	persistDebounceMs      int

	predictorCfg predictorTunables

	maxConcurrentPlaywright int

	discoveryMaxDurationSec  int
	discoveryProbeTimeoutSec int
	discoveryDomainTTLHours  int

	browserFactory playwright.BrowserFactory
	tierHintAlpha  float64
	logger         *zap.Logger
}

// predictorTunables mirrors config.PredictorConfig's fields the client
// exposes; zero values fall back to changepattern's own package defaults.
type predictorTunables struct {
	minChangesForPattern          int
	minObservationsForPattern     int
	maxObservationsToKeep         int
	maxChangeTimestamps           int
	timeOfDayToleranceHours       float64
	staticContentDaysThreshold    int
	minPollIntervalMs             int64
	maxPollIntervalMs             int64
	confidenceThresholdForPredict float64
	calendarTriggerLeadDays       int
	minCalendarTriggerObs         int
	earlyCheckWindowHours         float64
}

// WithRedis configures the client to connect to a Redis 8+ instance
// (search module required for the vector store and pattern registry).
func WithRedis(addr, password string) Option {
	return func(c *clientConfig) {
		c.addr = addr
		c.password = password
	}
}

// WithDataDir sets the directory the registry, predictor, and session
// store persist their JSON snapshots to. Defaults to "./data".
func WithDataDir(dir string) Option {
	return func(c *clientConfig) { c.dataDir = dir }
}

// WithEmbedder sets the text embedding provider backing the vector store.
// Without one, Browse and pattern learning still work; semantic indexing
// and search are disabled.
func WithEmbedder(e Embedder) Option {
	return func(c *clientConfig) { c.embedder = e }
}

// WithEmbeddingBudget caps the daily/monthly token spend of the configured
// Embedder, recorded against provider/model labels for metrics and
// persisted to Redis so the count survives restarts. dailyLimit and
// monthlyLimit <= 0 mean unlimited; action is "warn" (log only, default)
// or "reject" (Embed calls fail once the limit is hit). Has no effect
// unless an Embedder is also configured via WithEmbedder.
func WithEmbeddingBudget(provider, model string, dailyLimit, monthlyLimit int64, action string) Option {
	return func(c *clientConfig) {
		c.embeddingProvider = provider
		c.embeddingModel = model
		c.budgetDailyLimit = dailyLimit
		c.budgetMonthlyLimit = monthlyLimit
		c.budgetAction = action
	}
}

// WithVectorDimensions sets the embedding model's output dimension.
// Defaults to 384 (bge-small-en-v1.5).
func WithVectorDimensions(dim int) Option {
	return func(c *clientConfig) { c.vectorDimensions = dim }
}

// WithHNSW configures HNSW index parameters (M and EF construction) for
// the vector store's backing FT index.
func WithHNSW(m, efConstruct int) Option {
	return func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	}
}

// WithRegistryTuning configures the API Pattern Registry's archival and
// confidence thresholds. maxPatterns <= 0 means unbounded.
func WithRegistryTuning(maxPatterns int, minConfidenceThreshold float64, archiveAfterDays int) Option {
	return func(c *clientConfig) {
		c.maxPatterns = maxPatterns
		c.minConfidenceThreshold = minConfidenceThreshold
		c.archiveAfterDays = archiveAfterDays
	}
}

// WithPersistDebounce sets how long the registry and predictor coalesce
// writes before flushing to disk. Defaults to 5000ms.
func WithPersistDebounce(ms int) Option {
	return func(c *clientConfig) { c.persistDebounceMs = ms }
}

// WithPredictorTuning configures the Content-Change Predictor's
// classification thresholds. Any zero-valued field here falls back to
// changepattern's own package defaults.
func WithPredictorTuning(
	minChangesForPattern, minObservationsForPattern, maxObservationsToKeep, maxChangeTimestamps int,
	timeOfDayToleranceHours float64, staticContentDaysThreshold int,
	minPollIntervalMs, maxPollIntervalMs int64, confidenceThresholdForPredict float64,
	calendarTriggerLeadDays, minCalendarTriggerObs int, earlyCheckWindowHours float64,
) Option {
	return func(c *clientConfig) {
		c.predictorCfg = predictorTunables{
			minChangesForPattern:           minChangesForPattern,
			minObservationsForPattern:      minObservationsForPattern,
			maxObservationsToKeep:          maxObservationsToKeep,
			maxChangeTimestamps:            maxChangeTimestamps,
			timeOfDayToleranceHours:        timeOfDayToleranceHours,
			staticContentDaysThreshold:     staticContentDaysThreshold,
			minPollIntervalMs:              minPollIntervalMs,
			maxPollIntervalMs:              maxPollIntervalMs,
			confidenceThresholdForPredict:  confidenceThresholdForPredict,
			calendarTriggerLeadDays:        calendarTriggerLeadDays,
			minCalendarTriggerObs:          minCalendarTriggerObs,
			earlyCheckWindowHours:          earlyCheckWindowHours,
		}
	}
}

// WithMaxConcurrentPlaywright caps how many playwright-tier pages may be
// in flight at once. Defaults to 4.
func WithMaxConcurrentPlaywright(n int) Option {
	return func(c *clientConfig) { c.maxConcurrentPlaywright = n }
}

// WithBrowserFactory supplies the concrete browser automation engine for
// the playwright tier. Without one, the client still browses via the
// intelligence and lightweight tiers; only playwright is unavailable.
func WithBrowserFactory(f playwright.BrowserFactory) Option {
	return func(c *clientConfig) { c.browserFactory = f }
}

// WithDiscovery configures the Discovery Orchestrator's probe budget and
// per-domain idempotence TTL.
func WithDiscovery(maxDurationSec, probeTimeoutSec, domainTTLHours int) Option {
	return func(c *clientConfig) {
		c.discoveryMaxDurationSec = maxDurationSec
		c.discoveryProbeTimeoutSec = probeTimeoutSec
		c.discoveryDomainTTLHours = domainTTLHours
	}
}

// WithTierHintAlpha sets the EMA smoothing factor for C9's per-domain tier
// preference tracker. Defaults to 0.2.
func WithTierHintAlpha(alpha float64) Option {
	return func(c *clientConfig) { c.tierHintAlpha = alpha }
}

// WithLogger sets the structured logger every component logs through.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = logger }
}
