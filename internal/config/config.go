// Package config provides configuration loading and validation for the validator
// service and CLI. Values come from built-in defaults, an optional JSON file and
// JOBCHECK_* environment variables, in that order.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. JOBCHECK_PROBER_TIMEOUT.
const EnvPrefix = "JOBCHECK"

// Config is the complete service configuration.
type Config struct {
	Prober       ProberConfig       `json:"prober" envconfig:"PROBER"`
	Classifier   ClassifierConfig   `json:"classifier" envconfig:"CLASSIFIER"`
	Extraction   ExtractionConfig   `json:"extraction" envconfig:"EXTRACTION"`
	Cache        CacheConfig        `json:"cache" envconfig:"CACHE"`
	Breaker      BreakerConfig      `json:"breaker" envconfig:"BREAKER"`
	Orchestrator OrchestratorConfig `json:"orchestrator" envconfig:"ORCHESTRATOR"`
	RateLimit    RateLimitConfig    `json:"rate_limit" envconfig:"RATE_LIMIT"`
	LLM          LLMConfig          `json:"llm" envconfig:"LLM"`
	Server       ServerConfig       `json:"server" envconfig:"SERVER"`
	Logging      LoggingConfig      `json:"logging" envconfig:"LOG"`
}

// RelevanceWeights tunes the URL job-relevance heuristic.
type RelevanceWeights struct {
	Base               float64 `json:"base" envconfig:"BASE" validate:"gte=0,lte=1"`
	JobIDBoost         float64 `json:"job_id_boost" envconfig:"JOB_ID_BOOST" validate:"gte=0,lte=1"`
	JobPathBoost       float64 `json:"job_path_boost" envconfig:"JOB_PATH_BOOST" validate:"gte=0,lte=1"`
	ATSParamBoost      float64 `json:"ats_param_boost" envconfig:"ATS_PARAM_BOOST" validate:"gte=0,lte=1"`
	TitleSlugBoost     float64 `json:"title_slug_boost" envconfig:"TITLE_SLUG_BOOST" validate:"gte=0,lte=1"`
	PlatformMatchBoost float64 `json:"platform_match_boost" envconfig:"PLATFORM_MATCH_BOOST" validate:"gte=0,lte=1"`
	AntiPatternPenalty float64 `json:"anti_pattern_penalty" envconfig:"ANTI_PATTERN_PENALTY" validate:"gte=0,lte=1"`
	IndexPenalty       float64 `json:"index_penalty" envconfig:"INDEX_PENALTY" validate:"gte=0,lte=1"`
	GenericRootPenalty float64 `json:"generic_root_penalty" envconfig:"GENERIC_ROOT_PENALTY" validate:"gte=0,lte=1"`
}

// ProberConfig configures the reachability tier.
type ProberConfig struct {
	Timeout            Duration         `json:"timeout" envconfig:"TIMEOUT"`
	CacheTTL           Duration         `json:"cache_ttl" envconfig:"CACHE_TTL"`
	UserAgent          string           `json:"user_agent" envconfig:"USER_AGENT"`
	AllowPrivateHosts  bool             `json:"allow_private_hosts" envconfig:"ALLOW_PRIVATE_HOSTS"`
	RelevanceThreshold float64          `json:"relevance_threshold" envconfig:"RELEVANCE_THRESHOLD" validate:"gte=0,lte=1"`
	Weights            RelevanceWeights `json:"weights" envconfig:"WEIGHTS"`
}

// ClassifierConfig configures the content classification tier.
type ClassifierConfig struct {
	Timeout         Duration `json:"timeout" envconfig:"TIMEOUT"`
	MaxBodyBytes    int64    `json:"max_body_bytes" envconfig:"MAX_BODY_BYTES" validate:"gte=1024"`
	MinWordCount    int      `json:"min_word_count" envconfig:"MIN_WORD_COUNT" validate:"gte=0"`
	ConfidenceFloor float64  `json:"confidence_floor" envconfig:"CONFIDENCE_FLOOR" validate:"gte=0,lte=1"`
	StalenessWindow Duration `json:"staleness_window" envconfig:"STALENESS_WINDOW"`
	UseBrowser      bool     `json:"use_browser" envconfig:"USE_BROWSER"`
	BrowserTimeout  Duration `json:"browser_timeout" envconfig:"BROWSER_TIMEOUT"`
}

// ExtractionConfig configures the generative extraction adapter.
type ExtractionConfig struct {
	Timeout         Duration `json:"timeout" envconfig:"TIMEOUT"`
	Temperature     float32  `json:"temperature" envconfig:"TEMPERATURE" validate:"gte=0,lte=2"`
	MaxOutputTokens int32    `json:"max_output_tokens" envconfig:"MAX_OUTPUT_TOKENS" validate:"gte=64"`
	MinConfidence   float64  `json:"min_confidence" envconfig:"MIN_CONFIDENCE" validate:"gte=0,lte=1"`
	MaxContentChars int      `json:"max_content_chars" envconfig:"MAX_CONTENT_CHARS" validate:"gte=500"`
	ModelTier       string   `json:"model_tier" envconfig:"MODEL_TIER" validate:"oneof=lite standard advanced"`
}

// CacheConfig configures the extraction result cache.
type CacheConfig struct {
	Capacity        int      `json:"capacity" envconfig:"CAPACITY" validate:"gte=1"`
	SweepInterval   Duration `json:"sweep_interval" envconfig:"SWEEP_INTERVAL"`
	HashPrefixBytes int      `json:"hash_prefix_bytes" envconfig:"HASH_PREFIX_BYTES" validate:"gte=256"`
	MinTTL          Duration `json:"min_ttl" envconfig:"MIN_TTL"`
	MaxTTL          Duration `json:"max_ttl" envconfig:"MAX_TTL"`
}

// BreakerConfig configures the circuit breakers.
type BreakerConfig struct {
	FailureThreshold    int      `json:"failure_threshold" envconfig:"FAILURE_THRESHOLD" validate:"gte=1"`
	SuccessThreshold    int      `json:"success_threshold" envconfig:"SUCCESS_THRESHOLD" validate:"gte=1"`
	Timeout             Duration `json:"timeout" envconfig:"TIMEOUT"`
	Window              Duration `json:"window" envconfig:"WINDOW"`
	HalfOpenMaxRequests int      `json:"half_open_max_requests" envconfig:"HALF_OPEN_MAX_REQUESTS" validate:"gte=1"`
	PerDomain           bool     `json:"per_domain" envconfig:"PER_DOMAIN"`
	MonitorInterval     Duration `json:"monitor_interval" envconfig:"MONITOR_INTERVAL"`
	IdleTTL             Duration `json:"idle_ttl" envconfig:"IDLE_TTL"`
}

// OrchestratorConfig configures tier sequencing, retry and aggregation.
type OrchestratorConfig struct {
	EnableTier3         bool     `json:"enable_tier3" envconfig:"ENABLE_TIER3"`
	AllowManualOverride bool     `json:"allow_manual_override" envconfig:"ALLOW_MANUAL_OVERRIDE"`
	MaxAttempts         int      `json:"max_attempts" envconfig:"MAX_ATTEMPTS" validate:"gte=1,lte=5"`
	BaseBackoff         Duration `json:"base_backoff" envconfig:"BASE_BACKOFF"`
	MaxBackoff          Duration `json:"max_backoff" envconfig:"MAX_BACKOFF"`
	TotalTimeout        Duration `json:"total_timeout" envconfig:"TOTAL_TIMEOUT"`
	BatchConcurrency    int      `json:"batch_concurrency" envconfig:"BATCH_CONCURRENCY" validate:"gte=1,lte=32"`
	RelevanceFloor      float64  `json:"relevance_floor" envconfig:"RELEVANCE_FLOOR" validate:"gte=0,lte=1"`
}

// RateLimitConfig configures per-domain validation limits.
type RateLimitConfig struct {
	Enabled bool     `json:"enabled" envconfig:"ENABLED"`
	Limit   int      `json:"limit" envconfig:"LIMIT" validate:"gte=1"`
	Window  Duration `json:"window" envconfig:"WINDOW"`
	Burst   int      `json:"burst" envconfig:"BURST" validate:"gte=1"`
}

// LLMConfig configures the generative capability.
type LLMConfig struct {
	APIKey        string `json:"api_key,omitempty" envconfig:"API_KEY"`
	LiteModel     string `json:"lite_model" envconfig:"LITE_MODEL"`
	StandardModel string `json:"standard_model" envconfig:"STANDARD_MODEL"`
	AdvancedModel string `json:"advanced_model" envconfig:"ADVANCED_MODEL"`
}

// ServerConfig configures the HTTP shell.
type ServerConfig struct {
	Port               int      `json:"port" envconfig:"PORT" validate:"gte=1,lte=65535"`
	JWTSecret          string   `json:"jwt_secret,omitempty" envconfig:"JWT_SECRET"`
	JWTExpirationHours int      `json:"jwt_expiration_hours" envconfig:"JWT_EXPIRATION_HOURS" validate:"gte=1"`
	CORSOrigins        []string `json:"cors_origins" envconfig:"CORS_ORIGINS"`
	ClientLimit        int      `json:"client_limit" envconfig:"CLIENT_LIMIT" validate:"gte=1"`
	ShutdownTimeout    Duration `json:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `json:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `json:"format" envconfig:"FORMAT" validate:"oneof=console json"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Prober: ProberConfig{
			Timeout:            Duration(8 * time.Second),
			CacheTTL:           Duration(5 * time.Minute),
			RelevanceThreshold: 0.4,
			Weights: RelevanceWeights{
				Base:               0.3,
				JobIDBoost:         0.4,
				JobPathBoost:       0.3,
				ATSParamBoost:      0.2,
				TitleSlugBoost:     0.1,
				PlatformMatchBoost: 0.5,
				AntiPatternPenalty: 0.4,
				IndexPenalty:       0.2,
				GenericRootPenalty: 0.1,
			},
		},
		Classifier: ClassifierConfig{
			Timeout:         Duration(10 * time.Second),
			MaxBodyBytes:    2 << 20,
			MinWordCount:    50,
			ConfidenceFloor: 0.7,
			StalenessWindow: Duration(90 * 24 * time.Hour),
			BrowserTimeout:  Duration(20 * time.Second),
		},
		Extraction: ExtractionConfig{
			Timeout:         Duration(30 * time.Second),
			Temperature:     0.1,
			MaxOutputTokens: 1024,
			MinConfidence:   0.3,
			MaxContentChars: 12000,
			ModelTier:       "lite",
		},
		Cache: CacheConfig{
			Capacity:        1000,
			SweepInterval:   Duration(5 * time.Minute),
			HashPrefixBytes: 10000,
			MinTTL:          Duration(time.Hour),
			MaxTTL:          Duration(36 * time.Hour),
		},
		Breaker: BreakerConfig{
			FailureThreshold:    5,
			SuccessThreshold:    3,
			Timeout:             Duration(60 * time.Second),
			Window:              Duration(5 * time.Minute),
			HalfOpenMaxRequests: 3,
			MonitorInterval:     Duration(5 * time.Second),
			IdleTTL:             Duration(30 * time.Minute),
		},
		Orchestrator: OrchestratorConfig{
			EnableTier3:         true,
			AllowManualOverride: true,
			MaxAttempts:         2,
			BaseBackoff:         Duration(500 * time.Millisecond),
			MaxBackoff:          Duration(5 * time.Second),
			TotalTimeout:        Duration(45 * time.Second),
			BatchConcurrency:    3,
			RelevanceFloor:      0.5,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Limit:   30,
			Window:  Duration(time.Minute),
			Burst:   5,
		},
		LLM: LLMConfig{
			LiteModel:     "gemini-2.5-flash-lite",
			StandardModel: "gemini-2.5-flash",
			AdvancedModel: "gemini-2.5-pro",
		},
		Server: ServerConfig{
			Port:               8080,
			JWTExpirationHours: 24,
			ClientLimit:        120,
			ShutdownTimeout:    Duration(30 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from a JSON file on top of the defaults.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return cfg, nil
}

// Load builds the effective configuration: defaults, then the JSON file at
// path when path is not empty, then environment overrides. The result is
// validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from JOBCHECK_* environment variables. The
// conventional GEMINI_API_KEY is honored when no prefixed key is set.
func (c *Config) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	return nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	positive := map[string]Duration{
		"prober.timeout":              c.Prober.Timeout,
		"classifier.timeout":          c.Classifier.Timeout,
		"extraction.timeout":          c.Extraction.Timeout,
		"breaker.timeout":             c.Breaker.Timeout,
		"breaker.idle_ttl":            c.Breaker.IdleTTL,
		"orchestrator.total_timeout":  c.Orchestrator.TotalTimeout,
		"cache.sweep_interval":        c.Cache.SweepInterval,
		"classifier.staleness_window": c.Classifier.StalenessWindow,
		"rate_limit.window":           c.RateLimit.Window,
	}
	for name, d := range positive {
		if d <= 0 {
			return fmt.Errorf("config error: '%s' must be positive", name)
		}
	}

	if c.Cache.MinTTL > c.Cache.MaxTTL {
		return fmt.Errorf("config error: 'cache.min_ttl' must not exceed 'cache.max_ttl'")
	}
	if c.Orchestrator.BaseBackoff > c.Orchestrator.MaxBackoff {
		return fmt.Errorf("config error: 'orchestrator.base_backoff' must not exceed 'orchestrator.max_backoff'")
	}
	if c.Orchestrator.RelevanceFloor < c.Prober.RelevanceThreshold {
		return fmt.Errorf("config error: 'orchestrator.relevance_floor' must be at least 'prober.relevance_threshold'")
	}
	tierBudget := c.Prober.Timeout + c.Classifier.Timeout
	if c.Orchestrator.TotalTimeout < tierBudget {
		return fmt.Errorf("config error: 'orchestrator.total_timeout' (%s) is shorter than the tier 1 and 2 timeouts (%s)",
			c.Orchestrator.TotalTimeout.D(), tierBudget.D())
	}

	return nil
}
