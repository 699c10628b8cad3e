package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/fetchcascade/internal/config"
	logpkg "github.com/kailas-cloud/fetchcascade/internal/logger"
	"github.com/kailas-cloud/fetchcascade/internal/metrics"
	chiTransport "github.com/kailas-cloud/fetchcascade/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/fetchcascade/internal/transport/openai"
	"github.com/kailas-cloud/fetchcascade/internal/version"
	"github.com/kailas-cloud/fetchcascade/pkg/browser"
)

func main() {
	root := &cobra.Command{
		Use:   "fetchcascade",
		Short: "Tiered web-fetching engine for autonomous agents",
	}
	root.AddCommand(newServeCmd(), newProbeCmd(), newStatsCmd(), newUsageCmd(), newFlushCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildClient loads configuration and wires a pkg/browser.Client the way
// every subcommand needs it: connected to Redis, with an embedder when one
// is configured, ready for the caller to Close() when done.
func buildClient(ctx context.Context, logger *zap.Logger) (*browser.Client, config.Config, error) {
	metrics.RegisterCascadeMetrics()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("load config: %w", err)
	}

	opts := []browser.Option{
		browser.WithRedis(firstOrEmpty(cfg.Database.Addrs), cfg.Database.Password),
		browser.WithVectorDimensions(cfg.Vector.Dimensions),
		browser.WithHNSW(cfg.Vector.HNSWM, cfg.Vector.HNSWEFC),
		browser.WithRegistryTuning(cfg.Registry.MaxPatterns, cfg.Registry.MinConfidenceThreshold, cfg.Registry.ArchiveAfterDays),
		browser.WithPersistDebounce(cfg.Registry.PersistDebounceMs),
		browser.WithPredictorTuning(
			cfg.Predictor.MinChangesForPattern, cfg.Predictor.MinObservationsForPattern,
			cfg.Predictor.MaxObservationsToKeep, cfg.Predictor.MaxChangeTimestamps,
			cfg.Predictor.TimeOfDayToleranceHours, cfg.Predictor.StaticContentDaysThreshold,
			cfg.Predictor.MinPollIntervalMs, cfg.Predictor.MaxPollIntervalMs,
			cfg.Predictor.ConfidenceThresholdForPredict,
			cfg.Predictor.CalendarTriggerLeadDays, cfg.Predictor.MinCalendarTriggerObs,
			cfg.Predictor.EarlyCheckWindowHours,
		),
		browser.WithMaxConcurrentPlaywright(cfg.Fetcher.MaxConcurrentPlaywright),
		browser.WithDiscovery(cfg.Discovery.MaxDurationSec, cfg.Discovery.ProbeTimeoutSec, cfg.Discovery.DomainTTLHours),
		browser.WithLogger(logger),
	}
	if cfg.Embedding.Provider != "" {
		opts = append(opts, browser.WithEmbedder(newEmbedderAdapter(cfg.Embedding, logger)))
		opts = append(opts, browser.WithEmbeddingBudget(
			cfg.Embedding.Provider, cfg.Embedding.Model,
			cfg.Embedding.Budget.DailyTokenLimit, cfg.Embedding.Budget.MonthlyTokenLimit, cfg.Embedding.Budget.Action,
		))
	}

	client, err := browser.New(ctx, opts...)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("create client: %w", err)
	}
	return client, cfg, nil
}

func firstOrEmpty(addrs []string) string {
	if len(addrs) == 0 {
		return ""
	}
	return addrs[0]
}

// embedderAdapter wraps the OpenAI-compatible transport embedder (which
// implements the internal domain.Embedder shape) to satisfy pkg/browser's
// narrower public Embedder interface.
type embedderAdapter struct {
	inner *openaiEmb.Embedder
}

func newEmbedderAdapter(cfg config.EmbeddingConfig, logger *zap.Logger) *embedderAdapter {
	return &embedderAdapter{inner: openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})}
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (browser.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return browser.EmbeddingResult{}, err
	}
	return browser.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// HealthCheck forwards to the underlying provider so pkg/browser's Health
// aggregation can exercise it (satisfies internal/usecase/health.EmbeddingChecker).
func (a *embedderAdapter) HealthCheck(ctx context.Context) error {
	return a.inner.HealthCheck(ctx)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP façade over pkg/browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	env := config.GetEnv()
	logger, err := newRootLogger(env)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	client, cfg, err := buildClient(ctx, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	logger.Info("starting fetchcascade server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	server := chiTransport.NewServer(client, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("listening", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
	logger.Info("server stopped gracefully")
	return nil
}

func newProbeCmd() *cobra.Command {
	var scheme string
	cmd := &cobra.Command{
		Use:   "probe <hostname>",
		Short: "Run the Discovery Orchestrator against a single domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := config.GetEnv()
			logger, err := newRootLogger(env)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := context.Background()
			client, _, err := buildClient(ctx, logger)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.ProbeDomain(ctx, scheme, args[0]); err != nil {
				return fmt.Errorf("probe: %w", err)
			}

			result, err := client.DomainIntelligence(ctx, args[0])
			if err != nil {
				return fmt.Errorf("read back intelligence: %w", err)
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVar(&scheme, "scheme", "https", "URL scheme to probe with")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print aggregate learning counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := config.GetEnv()
			logger, err := newRootLogger(env)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := context.Background()
			client, _, err := buildClient(ctx, logger)
			if err != nil {
				return err
			}
			defer client.Close()

			stats, err := client.LearningStats(ctx)
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
}

func newUsageCmd() *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Print embedding token budget usage for the current day, month, or total",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := config.GetEnv()
			logger, err := newRootLogger(env)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := context.Background()
			client, _, err := buildClient(ctx, logger)
			if err != nil {
				return err
			}
			defer client.Close()

			report := client.Usage(ctx, browser.UsagePeriod(period))
			return printJSON(report)
		},
	}
	cmd.Flags().StringVar(&period, "period", "day", "reporting period: day, month, or total")
	return cmd
}

func newFlushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Force the pattern registry and change predictor to persist immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := config.GetEnv()
			logger, err := newRootLogger(env)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := context.Background()
			client, _, err := buildClient(ctx, logger)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Flush(); err != nil {
				return err
			}
			fmt.Println("flushed")
			return nil
		},
	}
}

func newRootLogger(env string) (*zap.Logger, error) {
	cfg, err := config.Load(env)
	if err != nil {
		// Fall back to defaults (e.g. "probe" run before config exists locally)
		// so the logger itself never blocks reporting the real load error.
		return logpkg.NewLogger(env)
	}
	return logpkg.NewLogger(env, cfg.Logging.Level)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
