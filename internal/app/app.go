// Package app assembles the validation pipeline from configuration.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/job-validator/internal/breaker"
	"github.com/jonathan/job-validator/internal/cache"
	"github.com/jonathan/job-validator/internal/classify"
	"github.com/jonathan/job-validator/internal/config"
	"github.com/jonathan/job-validator/internal/extraction"
	"github.com/jonathan/job-validator/internal/llm"
	"github.com/jonathan/job-validator/internal/pipeline"
	"github.com/jonathan/job-validator/internal/ratelimit"
	"github.com/jonathan/job-validator/internal/reachability"
	"github.com/jonathan/job-validator/internal/types"
)

// App owns the orchestrator and the resources behind it.
type App struct {
	Orchestrator *pipeline.Orchestrator
	Config       *config.Config

	llm     llm.Client
	limiter *ratelimit.Limiter
	logger  *zap.Logger
}

// New builds every tier from cfg. Without an API key the extraction tier
// reports itself unavailable instead of failing here.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := llm.NewClient(ctx, LLMConfig(cfg.LLM), cfg.LLM.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	if _, ok := client.(llm.Unavailable); ok {
		logger.Warn("no LLM API key configured, extraction will be unavailable")
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewLimiter(RateLimitConfig(cfg.RateLimit))
	}

	var extractor pipeline.Extractor
	if cfg.Orchestrator.EnableTier3 {
		extractor = extraction.New(client, ExtractionConfig(cfg.Extraction), logger)
	}

	orch := pipeline.New(PipelineConfig(cfg), pipeline.Options{
		Prober:     reachability.New(ProberConfig(cfg.Prober), logger),
		Classifier: classify.New(ClassifierConfig(cfg.Classifier, cfg.Cache, cfg.Prober), logger),
		Extractor:  extractor,
		Cache: cache.New(cache.Config{
			Capacity:      cfg.Cache.Capacity,
			SweepInterval: cfg.Cache.SweepInterval.D(),
		}, (*types.ExtractedJobFields).Clone, logger),
		Limiter: limiter,
		Logger:  logger,
	})

	return &App{
		Orchestrator: orch,
		Config:       cfg,
		llm:          client,
		limiter:      limiter,
		logger:       logger,
	}, nil
}

// Start launches background work.
func (a *App) Start(ctx context.Context) {
	a.Orchestrator.Start(ctx)
}

// Close stops background work and releases the LLM client.
func (a *App) Close() error {
	a.Orchestrator.Stop()
	if a.limiter != nil {
		a.limiter.Stop()
	}
	return a.llm.Close()
}

// ProberConfig converts the reachability settings.
func ProberConfig(c config.ProberConfig) reachability.Config {
	out := reachability.DefaultConfig()
	out.Timeout = c.Timeout.D()
	out.CacheTTL = c.CacheTTL.D()
	out.AllowPrivateHosts = c.AllowPrivateHosts
	out.RelevanceThreshold = c.RelevanceThreshold
	if c.UserAgent != "" {
		out.UserAgent = c.UserAgent
	}
	out.Weights = reachability.Weights{
		Base:               c.Weights.Base,
		JobIDBoost:         c.Weights.JobIDBoost,
		JobPathBoost:       c.Weights.JobPathBoost,
		ATSParamBoost:      c.Weights.ATSParamBoost,
		TitleSlugBoost:     c.Weights.TitleSlugBoost,
		PlatformMatchBoost: c.Weights.PlatformMatchBoost,
		AntiPatternPenalty: c.Weights.AntiPatternPenalty,
		IndexPenalty:       c.Weights.IndexPenalty,
		GenericRootPenalty: c.Weights.GenericRootPenalty,
	}
	return out
}

// ClassifierConfig converts the content tier settings. The page hash prefix
// comes from the cache settings so cache keys and page hashes agree.
func ClassifierConfig(c config.ClassifierConfig, cc config.CacheConfig, pc config.ProberConfig) classify.Config {
	out := classify.DefaultConfig()
	out.Timeout = c.Timeout.D()
	out.MaxBodyBytes = c.MaxBodyBytes
	out.MinWordCount = c.MinWordCount
	out.ConfidenceFloor = c.ConfidenceFloor
	out.StalenessWindow = c.StalenessWindow.D()
	out.UseBrowser = c.UseBrowser
	out.BrowserTimeout = c.BrowserTimeout.D()
	out.HashPrefixBytes = cc.HashPrefixBytes
	out.AllowPrivateHosts = pc.AllowPrivateHosts
	if pc.UserAgent != "" {
		out.UserAgent = pc.UserAgent
	}
	return out
}

// ExtractionConfig converts the adapter settings.
func ExtractionConfig(c config.ExtractionConfig) extraction.Config {
	return extraction.Config{
		Temperature:     c.Temperature,
		MaxOutputTokens: c.MaxOutputTokens,
		Tier:            llm.ModelTier(c.ModelTier),
		MinConfidence:   c.MinConfidence,
		MaxContentChars: c.MaxContentChars,
		Timeout:         c.Timeout.D(),
	}
}

// LLMConfig converts the model names.
func LLMConfig(c config.LLMConfig) *llm.Config {
	out := llm.DefaultConfig()
	if c.LiteModel != "" {
		out = out.WithModel(llm.TierLite, c.LiteModel)
	}
	if c.StandardModel != "" {
		out = out.WithModel(llm.TierStandard, c.StandardModel)
	}
	if c.AdvancedModel != "" {
		out = out.WithModel(llm.TierAdvanced, c.AdvancedModel)
	}
	return out
}

// BreakerConfig converts the breaker thresholds.
func BreakerConfig(c config.BreakerConfig) breaker.Config {
	return breaker.Config{
		FailureThreshold:    c.FailureThreshold,
		SuccessThreshold:    c.SuccessThreshold,
		Timeout:             c.Timeout.D(),
		Window:              c.Window.D(),
		HalfOpenMaxRequests: c.HalfOpenMaxRequests,
		IdleTTL:             c.IdleTTL.D(),
	}
}

// RateLimitConfig converts the per-domain limits.
func RateLimitConfig(c config.RateLimitConfig) *ratelimit.Config {
	out := ratelimit.DefaultConfig()
	out.Enabled = c.Enabled
	out.DefaultLimit = c.Limit
	out.DefaultWindow = c.Window.D()
	out.DefaultBurst = c.Burst
	return out
}

// PipelineConfig converts the orchestrator settings.
func PipelineConfig(cfg *config.Config) pipeline.Config {
	out := pipeline.DefaultConfig()
	o := cfg.Orchestrator
	out.EnableTier3 = o.EnableTier3
	out.AllowManualOverride = o.AllowManualOverride
	out.MaxAttempts = o.MaxAttempts
	out.BaseBackoff = o.BaseBackoff.D()
	out.MaxBackoff = o.MaxBackoff.D()
	out.TotalTimeout = o.TotalTimeout.D()
	out.BatchConcurrency = o.BatchConcurrency
	out.RelevanceFloor = o.RelevanceFloor
	out.ConfidenceFloor = cfg.Classifier.ConfidenceFloor
	out.PerDomainExtraction = cfg.Breaker.PerDomain
	out.MonitorInterval = cfg.Breaker.MonitorInterval.D()
	out.FetchBreaker = BreakerConfig(cfg.Breaker)
	out.ExtractionBreaker = BreakerConfig(cfg.Breaker)
	out.TTL.Min = cfg.Cache.MinTTL.D()
	out.TTL.Max = cfg.Cache.MaxTTL.D()
	return out
}
