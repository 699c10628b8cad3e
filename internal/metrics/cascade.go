package metrics

import "github.com/prometheus/client_golang/prometheus"

// Tiered Fetcher (C8) Prometheus metrics.
var (
	TierAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fetchcascade",
			Name:      "tier_attempts_total",
			Help:      "Total tier attempts by tier and outcome",
		},
		[]string{"tier", "outcome"}, // outcome: success, failure
	)

	TierLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fetchcascade",
			Name:      "tier_latency_seconds",
			Help:      "Per-tier adapter latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		},
		[]string{"tier"},
	)

	FailureReasonsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fetchcascade",
			Name:      "failure_reasons_total",
			Help:      "Tier failures by classified reason",
		},
		[]string{"tier", "reason"},
	)

	CascadeOutcomeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fetchcascade",
			Name:      "cascade_outcome_total",
			Help:      "Terminal outcome of a browse() call",
		},
		[]string{"outcome"}, // succeeded, budget_exhausted, all_tiers_failed, terminal, cancelled
	)
)

// API Pattern Registry (C4) Prometheus metrics.
var (
	PatternConfidence = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fetchcascade",
			Name:      "pattern_confidence",
			Help:      "Current confidence of a learned pattern",
		},
		[]string{"hostname", "pattern_id"},
	)

	PatternEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fetchcascade",
			Name:      "pattern_events_total",
			Help:      "Pattern lifecycle events",
		},
		[]string{"event"}, // applied, confidence_changed, archived, learned, bootstrap
	)

	PatternMatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fetchcascade",
			Name:      "pattern_match_total",
			Help:      "Pattern match lookups by result",
		},
		[]string{"result"}, // hit_host, hit_cross_domain, miss
	)
)

// Content-Change Predictor (C5) Prometheus metrics.
var (
	PredictorClassificationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fetchcascade",
			Name:      "predictor_classification_total",
			Help:      "Content change pattern classifications",
		},
		[]string{"detected"}, // hourly, daily, workday, weekly, monthly, irregular, static
	)

	PredictorAccuracyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fetchcascade",
			Name:      "predictor_accuracy_total",
			Help:      "Prediction accuracy outcomes",
		},
		[]string{"accurate"}, // true, false
	)

	PredictorUrgencyGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fetchcascade",
			Name:      "predictor_urgency",
			Help:      "Current urgency level (0-3) for a tracked domain/url-pattern",
		},
		[]string{"domain"},
	)
)

// Vector Store (C2) Prometheus metrics.
var (
	VectorOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fetchcascade",
			Name:      "vector_ops_total",
			Help:      "Vector store operations",
		},
		[]string{"op"}, // add, add_batch, delete, delete_by_filter, search, search_filtered, get
	)

	VectorSearchLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fetchcascade",
			Name:      "vector_search_latency_seconds",
			Help:      "Vector search latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"op"}, // search, search_filtered
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fetchcascade",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // hit, miss
	)

	EmbeddingBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fetchcascade",
			Name:      "embedding_budget_tokens_remaining",
			Help:      "Remaining embedding token budget",
		},
		[]string{"provider", "period"},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fetchcascade",
			Name:      "embedding_requests_total",
			Help:      "Embedding provider requests by outcome",
		},
		[]string{"provider", "model", "outcome"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fetchcascade",
			Name:      "embedding_errors_total",
			Help:      "Embedding provider errors by class",
		},
		[]string{"provider", "model", "class"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fetchcascade",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding provider request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fetchcascade",
			Name:      "embedding_tokens_total",
			Help:      "Embedding tokens consumed",
		},
		[]string{"provider", "model", "kind"}, // kind: prompt, total
	)
)

// Discovery Orchestrator (C10) Prometheus metrics.
var (
	DiscoveryProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fetchcascade",
			Name:      "discovery_probes_total",
			Help:      "Discovery probe attempts by result",
		},
		[]string{"result"}, // success, requires_auth, failure
	)
)

var cascadeMetricsRegistered bool

// RegisterCascadeMetrics registers all cascade Prometheus metrics. Must be called once from main.
func RegisterCascadeMetrics() {
	if cascadeMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		TierAttemptsTotal, TierLatencySeconds, FailureReasonsTotal, CascadeOutcomeTotal,
		PatternConfidence, PatternEventsTotal, PatternMatchTotal,
		PredictorClassificationTotal, PredictorAccuracyTotal, PredictorUrgencyGauge,
		VectorOpsTotal, VectorSearchLatencySeconds, EmbeddingCacheTotal, EmbeddingBudgetTokensRemaining,
		EmbeddingRequestsTotal, EmbeddingErrorsTotal, EmbeddingRequestDuration, EmbeddingTokensTotal,
		DiscoveryProbesTotal,
	)
	cascadeMetricsRegistered = true
}
