// Package config loads the fetchcascade engine configuration from YAML
// with ${VAR} environment-variable substitution.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the fetchcascade engine configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Registry  RegistryConfig  `yaml:"registry"`
	Predictor PredictorConfig `yaml:"predictor"`
	Fetcher   FetcherConfig   `yaml:"fetcher"`
	Vector    VectorConfig    `yaml:"vector"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// AuthConfig holds API key settings for the thin HTTP façade.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings for the debug/façade server.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the backing store connection settings (C2/C3/C6 persistence).
// Only the redis driver is wired — see DESIGN.md for why valkey was dropped.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings for the vector store (C2).
type EmbeddingConfig struct {
	Provider   string       `yaml:"provider"`
	APIKey     string       `yaml:"api_key"`
	BaseURL    string       `yaml:"base_url"`
	Model      string       `yaml:"model"`
	Dimensions int          `yaml:"dimensions"`
	Budget     BudgetConfig `yaml:"budget"`
}

// BudgetConfig holds embedding token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// RegistryConfig holds API Pattern Registry (C4) settings.
type RegistryConfig struct {
	MaxPatterns            int     `yaml:"max_patterns"`             // 500
	MinConfidenceThreshold float64 `yaml:"min_confidence_threshold"` // 0.10
	ArchiveAfterDays       int     `yaml:"archive_after_days"`       // 90
	PersistDebounceMs      int     `yaml:"persist_debounce_ms"`      // 5000
}

// PredictorConfig holds Content-Change Predictor (C5) settings.
type PredictorConfig struct {
	MinChangesForPattern          int     `yaml:"min_changes_for_pattern"`
	MinObservationsForPattern     int     `yaml:"min_observations_for_pattern"`
	MaxObservationsToKeep         int     `yaml:"max_observations_to_keep"`
	MaxChangeTimestamps           int     `yaml:"max_change_timestamps"`
	TimeOfDayToleranceHours       float64 `yaml:"time_of_day_tolerance_hours"`
	StaticContentDaysThreshold    int     `yaml:"static_content_days_threshold"`
	MinPollIntervalMs             int64   `yaml:"min_poll_interval_ms"`
	MaxPollIntervalMs             int64   `yaml:"max_poll_interval_ms"`
	ConfidenceThresholdForPredict float64 `yaml:"confidence_threshold_for_prediction"`
	CalendarTriggerLeadDays       int     `yaml:"calendar_trigger_lead_days"`
	MinCalendarTriggerObs         int     `yaml:"min_calendar_trigger_observations"`
	EarlyCheckWindowHours         float64 `yaml:"early_check_window_hours"`
}

// FetcherConfig holds Tiered Fetcher (C8) settings.
type FetcherConfig struct {
	MaxConcurrentPlaywright int   `yaml:"max_concurrent_playwright"`
	DefaultMaxLatencyMs     int64 `yaml:"default_max_latency_ms"`
}

// VectorConfig holds Vector Store (C2) settings.
type VectorConfig struct {
	Dimensions int    `yaml:"dimensions"`
	HNSWM      int    `yaml:"hnsw_m"`
	HNSWEFC    int    `yaml:"hnsw_ef_construction"`
	KeyPrefix  string `yaml:"key_prefix"`
}

// DiscoveryConfig holds Discovery Orchestrator (C10) settings.
type DiscoveryConfig struct {
	MaxDurationSec  int `yaml:"max_duration_sec"`
	ProbeTimeoutSec int `yaml:"probe_timeout_sec"`
	DomainTTLHours  int `yaml:"domain_ttl_hours"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with the defaults enumerated in SPEC_FULL.md §6.3.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Registry.MaxPatterns <= 0 {
		c.Registry.MaxPatterns = 500
	}
	if c.Registry.MinConfidenceThreshold <= 0 {
		c.Registry.MinConfidenceThreshold = 0.10
	}
	if c.Registry.ArchiveAfterDays <= 0 {
		c.Registry.ArchiveAfterDays = 90
	}
	if c.Registry.PersistDebounceMs <= 0 {
		c.Registry.PersistDebounceMs = 5000
	}
	if c.Predictor.MinChangesForPattern <= 0 {
		c.Predictor.MinChangesForPattern = 3
	}
	if c.Predictor.MinObservationsForPattern <= 0 {
		c.Predictor.MinObservationsForPattern = 5
	}
	if c.Predictor.MaxObservationsToKeep <= 0 {
		c.Predictor.MaxObservationsToKeep = 200
	}
	if c.Predictor.MaxChangeTimestamps <= 0 {
		c.Predictor.MaxChangeTimestamps = 100
	}
	if c.Predictor.TimeOfDayToleranceHours <= 0 {
		c.Predictor.TimeOfDayToleranceHours = 1
	}
	if c.Predictor.StaticContentDaysThreshold <= 0 {
		c.Predictor.StaticContentDaysThreshold = 30
	}
	if c.Predictor.MinPollIntervalMs <= 0 {
		c.Predictor.MinPollIntervalMs = 5 * 60 * 1000
	}
	if c.Predictor.MaxPollIntervalMs <= 0 {
		c.Predictor.MaxPollIntervalMs = 24 * 60 * 60 * 1000
	}
	if c.Predictor.ConfidenceThresholdForPredict <= 0 {
		c.Predictor.ConfidenceThresholdForPredict = 0.55
	}
	if c.Predictor.CalendarTriggerLeadDays <= 0 {
		c.Predictor.CalendarTriggerLeadDays = 3
	}
	if c.Predictor.MinCalendarTriggerObs <= 0 {
		c.Predictor.MinCalendarTriggerObs = 2
	}
	if c.Predictor.EarlyCheckWindowHours <= 0 {
		c.Predictor.EarlyCheckWindowHours = 2
	}
	if c.Fetcher.MaxConcurrentPlaywright <= 0 {
		c.Fetcher.MaxConcurrentPlaywright = 4
	}
	if c.Fetcher.DefaultMaxLatencyMs <= 0 {
		c.Fetcher.DefaultMaxLatencyMs = 10000
	}
	if c.Vector.Dimensions <= 0 {
		c.Vector.Dimensions = 384
	}
	if c.Vector.HNSWM <= 0 {
		c.Vector.HNSWM = 32
	}
	if c.Vector.HNSWEFC <= 0 {
		c.Vector.HNSWEFC = 400
	}
	if c.Vector.KeyPrefix == "" {
		c.Vector.KeyPrefix = "fetchcascade:"
	}
	if c.Discovery.MaxDurationSec <= 0 {
		c.Discovery.MaxDurationSec = 30
	}
	if c.Discovery.ProbeTimeoutSec <= 0 {
		c.Discovery.ProbeTimeoutSec = 3
	}
	if c.Discovery.DomainTTLHours <= 0 {
		c.Discovery.DomainTTLHours = 24
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Database.Driver != "redis" {
		return fmt.Errorf("database.driver must be \"redis\", got %q", c.Database.Driver)
	}
	switch c.Embedding.Budget.Action {
	case "", "warn", "reject":
	default:
		return fmt.Errorf("embedding.budget.action must be \"warn\" or \"reject\", got %q", c.Embedding.Budget.Action)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
