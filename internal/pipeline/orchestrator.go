// Package pipeline runs the three validation tiers for a URL and renders a
// single verdict with user guidance.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/job-validator/internal/breaker"
	"github.com/jonathan/job-validator/internal/cache"
	"github.com/jonathan/job-validator/internal/extraction"
	"github.com/jonathan/job-validator/internal/fetch"
	"github.com/jonathan/job-validator/internal/metrics"
	"github.com/jonathan/job-validator/internal/ratelimit"
	"github.com/jonathan/job-validator/internal/types"
	"github.com/jonathan/job-validator/internal/urlutil"
)

// Prober runs the reachability tier.
type Prober interface {
	Probe(ctx context.Context, rawURL string) *types.TierResult[types.URLAnalysis]
}

// Classifier runs the content tier.
type Classifier interface {
	Classify(ctx context.Context, rawURL string, analysis *types.URLAnalysis) (*types.TierResult[types.ContentClassification], *types.PageContent)
}

// Extractor runs the extraction tier.
type Extractor interface {
	Extract(ctx context.Context, page *types.PageContent) (*extraction.Result, error)
}

// lifecycle is implemented by components that own background work.
type lifecycle interface {
	Start(ctx context.Context)
	Stop()
}

// Config configures an Orchestrator.
type Config struct {
	EnableTier3         bool
	AllowManualOverride bool
	// MaxAttempts bounds tries per tier for transient failures.
	MaxAttempts  int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
	TotalTimeout time.Duration
	// BatchConcurrency bounds parallel validations in ValidateBatch.
	BatchConcurrency int
	// RelevanceFloor and ConfidenceFloor gate the extraction tier.
	RelevanceFloor  float64
	ConfidenceFloor float64
	// PerDomainExtraction partitions the extraction breaker by domain.
	PerDomainExtraction bool
	MonitorInterval     time.Duration
	FetchBreaker        breaker.Config
	ExtractionBreaker   breaker.Config
	TTL                 cache.TTLPolicy
	// LowQualityThreshold marks extractions below it as low quality.
	LowQualityThreshold float64
}

// DefaultConfig returns the standard orchestration settings.
func DefaultConfig() Config {
	return Config{
		EnableTier3:         true,
		AllowManualOverride: true,
		MaxAttempts:         2,
		BaseBackoff:         500 * time.Millisecond,
		MaxBackoff:          5 * time.Second,
		TotalTimeout:        45 * time.Second,
		BatchConcurrency:    3,
		RelevanceFloor:      0.5,
		ConfidenceFloor:     0.7,
		MonitorInterval:     5 * time.Second,
		FetchBreaker:        breaker.DefaultConfig(),
		ExtractionBreaker:   breaker.DefaultConfig(),
		TTL:                 cache.DefaultTTLPolicy(),
		LowQualityThreshold: 0.5,
	}
}

// Options carries the orchestrator's collaborators.
type Options struct {
	Prober     Prober
	Classifier Classifier
	// Extractor may be nil, in which case the extraction tier reports the
	// capability as unavailable.
	Extractor Extractor
	Cache     *cache.Cache[*types.ExtractedJobFields]
	// Limiter limits validations per target domain. Nil disables limiting.
	Limiter    *ratelimit.Limiter
	Logger     *zap.Logger
	OnProgress ProgressCallback
	Clock      func() time.Time
}

// Orchestrator sequences the tiers. It is safe for concurrent use.
type Orchestrator struct {
	cfg        Config
	prober     Prober
	classifier Classifier
	extractor  Extractor
	cache      *cache.Cache[*types.ExtractedJobFields]
	limiter    *ratelimit.Limiter
	hosts      *breaker.Registry
	engines    *breaker.Registry
	logger     *zap.Logger
	onProgress ProgressCallback
	now        func() time.Time
	startedAt  time.Time

	stats counters

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

type counters struct {
	validations  atomic.Uint64
	valid        atomic.Uint64
	invalid      atomic.Uint64
	cacheHits    atomic.Uint64
	cacheMisses  atomic.Uint64
	rateLimited  atomic.Uint64
	circuitOpen  atomic.Uint64
	systemErrors atomic.Uint64
}

// New creates an Orchestrator.
func New(cfg Config, opts Options) *Orchestrator {
	d := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = d.BaseBackoff
	}
	if cfg.MaxBackoff < cfg.BaseBackoff {
		cfg.MaxBackoff = cfg.BaseBackoff
	}
	if cfg.TotalTimeout <= 0 {
		cfg.TotalTimeout = d.TotalTimeout
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = d.BatchConcurrency
	}
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = d.MonitorInterval
	}
	if cfg.TTL == (cache.TTLPolicy{}) {
		cfg.TTL = d.TTL
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("pipeline")
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	c := opts.Cache
	if c == nil {
		c = cache.New(cache.Config{}, (*types.ExtractedJobFields).Clone, logger)
	}

	onChange := breaker.WithStateChange(func(name string, from, to breaker.State) {
		metrics.SetBreakerState(name, string(to))
	})
	breakerOpts := []breaker.Option{onChange}
	if opts.Clock != nil {
		breakerOpts = append(breakerOpts, breaker.WithClock(opts.Clock))
	}

	return &Orchestrator{
		cfg:        cfg,
		prober:     opts.Prober,
		classifier: opts.Classifier,
		extractor:  opts.Extractor,
		cache:      c,
		limiter:    opts.Limiter,
		hosts:      breaker.NewRegistry("fetch", cfg.FetchBreaker, logger, breakerOpts...),
		engines:    breaker.NewRegistry("extraction", cfg.ExtractionBreaker, logger, breakerOpts...),
		logger:     logger,
		onProgress: opts.OnProgress,
		now:        now,
		startedAt:  now(),
	}
}

// Start launches the cache sweep, the breaker monitors, and any background
// work owned by the tiers. It is a no-op when already running.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return
	}
	ctx, o.cancel = context.WithCancel(ctx)
	o.running = true

	o.cache.Start(ctx)
	if lc, ok := o.prober.(lifecycle); ok {
		lc.Start(ctx)
	}
	for _, reg := range []*breaker.Registry{o.hosts, o.engines} {
		o.wg.Add(1)
		go func(r *breaker.Registry) {
			defer o.wg.Done()
			r.Run(ctx, o.cfg.MonitorInterval)
		}(reg)
	}
	o.logger.Info("orchestrator started", zap.Bool("tier3", o.cfg.EnableTier3))
}

// Stop halts background work and waits for it to finish.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return
	}
	o.cancel()
	o.wg.Wait()
	o.cache.Stop()
	if lc, ok := o.prober.(lifecycle); ok {
		lc.Stop()
	}
	o.running = false
	o.logger.Info("orchestrator stopped")
}

// ValidateBatch validates urls with bounded concurrency. Results are in input
// order.
func (o *Orchestrator) ValidateBatch(ctx context.Context, urls []string) []*types.UnifiedValidationResult {
	results := make([]*types.UnifiedValidationResult, len(urls))
	var g errgroup.Group
	g.SetLimit(o.cfg.BatchConcurrency)
	for i, u := range urls {
		g.Go(func() error {
			results[i] = o.Validate(ctx, u)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Validate runs the pipeline for rawURL. It always returns a well-formed
// result; internal faults become a retryable SYSTEM_ERROR.
func (o *Orchestrator) Validate(ctx context.Context, rawURL string) (res *types.UnifiedValidationResult) {
	start := o.now()
	res = &types.UnifiedValidationResult{
		ID:          uuid.New(),
		URL:         rawURL,
		ValidatedAt: start,
	}
	log := o.logger.With(zap.String("url", rawURL), zap.String("id", res.ID.String()))

	defer func() {
		if r := recover(); r != nil {
			log.Error("validation panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			res.Errors = append(res.Errors, types.NewError(types.CodeSystemError, fmt.Sprintf("internal error: %v", r)))
			o.finalize(res, tierOutcome{})
		}
		res.ProcessingTimeMs = o.now().Sub(start).Milliseconds()
		o.record(res)
		log.Debug("validation finished",
			zap.Bool("valid", res.IsValid),
			zap.Int("tier", int(res.HighestTierReached)),
			zap.Float64("confidence", res.OverallConfidence),
			zap.Int64("ms", res.ProcessingTimeMs))
	}()

	ctx, cancel := context.WithTimeout(ctx, o.cfg.TotalTimeout)
	defer cancel()

	o.finalize(res, o.run(ctx, res, log))
	return res
}

// tierOutcome tells finalize how far the pipeline got and why it stopped.
type tierOutcome struct {
	// gatePassed is true when every tier the configuration requires ran and
	// passed.
	gatePassed bool
	tier3Ran   bool
}

func (o *Orchestrator) run(ctx context.Context, res *types.UnifiedValidationResult, log *zap.Logger) tierOutcome {
	domain := ""
	if u, err := urlutil.Parse(res.URL); err == nil {
		domain = urlutil.Domain(u)
	}

	if domain != "" && o.limiter != nil {
		if ok, info := o.limiter.Allow(domain); !ok {
			o.stats.rateLimited.Add(1)
			metrics.IncRateLimited()
			log.Info("rate limited", zap.String("domain", domain), zap.Duration("retry_after", info.RetryAfter))
			res.Errors = append(res.Errors, types.NewError(types.CodeSystemRateLimited,
				fmt.Sprintf("domain %s exceeded %d validations per window, retry after %s", domain, info.Limit, info.RetryAfter.Round(time.Second))))
			return tierOutcome{}
		}
	}

	fetchDone := func(breaker.Outcome) {}
	if domain != "" {
		done, err := o.hosts.Get(domain).Allow()
		if err != nil {
			o.stats.circuitOpen.Add(1)
			res.Errors = append(res.Errors, types.NewError(types.CodeSystemCircuitOpen, err.Error()))
			return tierOutcome{}
		}
		fetchDone = done
	}
	fetchOutcome := breaker.Ignore
	defer func() { fetchDone(fetchOutcome) }()

	// Tier 1
	t1 := o.runTier1(ctx, res.URL)
	res.Tier1 = t1
	res.HighestTierReached = types.TierReachability
	o.emit(ctx, res, "reachability", t1.IsValid, t1)
	fetchOutcome = fetchHealth(t1.Errors, t1.Data != nil && t1.Data.IsAccessible)
	if !t1.IsValid || t1.Data == nil || t1.Data.RequiresAuth {
		return tierOutcome{}
	}

	// Tier 2
	t2, content := o.runTier2(ctx, res.URL, t1.Data)
	res.Tier2 = t2
	res.HighestTierReached = types.TierContent
	o.emit(ctx, res, "content", t2.IsValid, t2)
	if t2.Data == nil {
		fetchOutcome = fetchHealth(t2.Errors, false)
	}
	if !t2.IsValid || t2.Data == nil {
		return tierOutcome{}
	}
	if !o.tier3Gate(t2) {
		if t2.Data.JobRelevanceScore < o.cfg.RelevanceFloor {
			t2.AddWarning(types.NewWarning(types.WarnLowJobRelevance,
				fmt.Sprintf("job relevance %.2f below %.2f", t2.Data.JobRelevanceScore, o.cfg.RelevanceFloor), types.ImpactHigh))
		}
		log.Debug("extraction gate closed",
			zap.String("type", string(t2.Data.ContentType)),
			zap.Float64("confidence", t2.Confidence),
			zap.Float64("relevance", t2.Data.JobRelevanceScore))
		return tierOutcome{}
	}
	if !o.cfg.EnableTier3 || content == nil {
		return tierOutcome{gatePassed: true}
	}

	// Tier 3
	t3, fromCache := o.runTier3(ctx, content, t2.Confidence, log)
	res.Tier3 = t3
	res.FromCache = fromCache
	res.HighestTierReached = types.TierExtraction
	if t3.Data != nil {
		res.FinalData = t3.Data.Clone()
	}
	o.emit(ctx, res, "extraction", t3.IsValid, t3)
	return tierOutcome{gatePassed: true, tier3Ran: true}
}

// tier3Gate reports whether classification is strong enough to spend an
// extraction call.
func (o *Orchestrator) tier3Gate(t2 *types.TierResult[types.ContentClassification]) bool {
	return t2.Data.ContentType == types.ContentJobPosting &&
		t2.Confidence >= o.cfg.ConfidenceFloor &&
		t2.Data.JobRelevanceScore >= o.cfg.RelevanceFloor
}

func (o *Orchestrator) runTier1(ctx context.Context, rawURL string) *types.TierResult[types.URLAnalysis] {
	start := o.now()
	defer func() { metrics.ObserveTier(1, o.now().Sub(start)) }()

	var res *types.TierResult[types.URLAnalysis]
	for attempt := 1; ; attempt++ {
		res = o.prober.Probe(ctx, rawURL)
		if attempt >= o.cfg.MaxAttempts || !shouldRetry(res.Errors) {
			return res
		}
		if err := sleep(ctx, o.backoff(attempt)); err != nil {
			return res
		}
	}
}

func (o *Orchestrator) runTier2(ctx context.Context, rawURL string, analysis *types.URLAnalysis) (*types.TierResult[types.ContentClassification], *types.PageContent) {
	start := o.now()
	defer func() { metrics.ObserveTier(2, o.now().Sub(start)) }()

	for attempt := 1; ; attempt++ {
		res, content := o.classifier.Classify(ctx, rawURL, analysis)
		if attempt >= o.cfg.MaxAttempts || !shouldRetry(res.Errors) {
			return res, content
		}
		if err := sleep(ctx, o.backoff(attempt)); err != nil {
			return res, content
		}
	}
}

// runTier3 serves the extraction from cache or calls the extractor through
// its breaker, retrying transient failures.
func (o *Orchestrator) runTier3(ctx context.Context, content *types.PageContent, t2Confidence float64, log *zap.Logger) (*types.TierResult[types.ExtractedJobFields], bool) {
	start := o.now()
	defer func() { metrics.ObserveTier(3, o.now().Sub(start)) }()

	key := cache.Key(content.Domain, content.Path, content.ContentLength, content.Platform)
	if fields, ok := o.cache.Get(key, content.ContentHash); ok {
		o.stats.cacheHits.Add(1)
		metrics.ObserveCacheLookup(true)
		log.Debug("extraction cache hit")
		res := o.extractionSuccess(fields, nil, "cache")
		res.Metadata.ProcessingTimeMs = 0
		return res, true
	}
	o.stats.cacheMisses.Add(1)
	metrics.ObserveCacheLookup(false)

	if o.extractor == nil {
		metrics.ObserveExtraction(string(extraction.KindUnavailable))
		return o.extractionFailure(start, types.NewError(types.CodeSystemCapabilityUnavailable, "no extraction engine configured")), false
	}

	brKey := "engine"
	if o.cfg.PerDomainExtraction && content.Domain != "" {
		brKey = content.Domain
	}
	br := o.engines.Get(brKey)

	for attempt := 1; ; attempt++ {
		done, err := br.Allow()
		if err != nil {
			o.stats.circuitOpen.Add(1)
			metrics.ObserveExtraction("circuit_open")
			// The page itself checked out; only the extraction is deferred.
			ve := types.NewError(types.CodeSystemCircuitOpen, err.Error())
			ve.Severity = types.SeverityDegraded
			return o.extractionFailure(start, ve), false
		}

		out, err := o.extractor.Extract(ctx, content)
		if err == nil {
			done(breaker.Success)
			metrics.ObserveExtraction("success")
			ttl := o.cfg.TTL.TTL(out.Fields.Confidence.Overall, fetch.Platform(content.Platform))
			o.cache.Set(key, out.Fields, ttl, content.ContentHash)
			log.Debug("extracted fields", zap.String("model", out.Model), zap.Duration("ttl", ttl))
			res := o.extractionSuccess(out.Fields, out.Warnings, "engine")
			res.Metadata.ProcessingTimeMs = o.now().Sub(start).Milliseconds()
			return res, false
		}

		xerr, ok := extraction.AsError(err)
		if !ok {
			xerr = &extraction.Error{Kind: extraction.KindTransport, Message: "unexpected extractor error", Cause: err}
		}
		if xerr.CountsAsFailure() {
			done(breaker.Failure)
		} else {
			done(breaker.Success)
		}
		metrics.ObserveExtraction(string(xerr.Kind))
		log.Warn("extraction failed", zap.Int("attempt", attempt), zap.String("kind", string(xerr.Kind)), zap.Error(err))

		retryable := xerr.Transient() && xerr.Kind != extraction.KindUnavailable
		if attempt >= o.cfg.MaxAttempts || !retryable {
			return o.extractionFailure(start, extractionError(xerr)), false
		}
		if err := sleep(ctx, o.backoff(attempt)); err != nil {
			return o.extractionFailure(start, extractionError(xerr)), false
		}
	}
}

func (o *Orchestrator) extractionSuccess(fields *types.ExtractedJobFields, warnings []types.ValidationWarning, method string) *types.TierResult[types.ExtractedJobFields] {
	res := &types.TierResult[types.ExtractedJobFields]{
		IsValid:    true,
		Confidence: fields.Confidence.Overall,
		Data:       fields.Clone(),
		Warnings:   append([]types.ValidationWarning(nil), warnings...),
		Metadata: types.TierMetadata{
			Tier:        types.TierExtraction,
			ValidatedAt: o.now(),
			Method:      method,
		},
	}
	var missing []string
	if fields.Title == "" {
		missing = append(missing, "title")
	}
	if fields.Company == "" {
		missing = append(missing, "company")
	}
	if len(missing) > 0 {
		res.AddError(types.NewError(types.CodeParsingMissingField, fmt.Sprintf("missing %v", missing)))
	}
	if fields.Confidence.Overall < o.cfg.LowQualityThreshold {
		res.AddError(types.NewError(types.CodeParsingLowQuality,
			fmt.Sprintf("overall confidence %.2f", fields.Confidence.Overall)))
	}
	return res
}

func (o *Orchestrator) extractionFailure(start time.Time, e types.ValidationError) *types.TierResult[types.ExtractedJobFields] {
	res := &types.TierResult[types.ExtractedJobFields]{
		Metadata: types.TierMetadata{
			Tier:             types.TierExtraction,
			ProcessingTimeMs: o.now().Sub(start).Milliseconds(),
			ValidatedAt:      o.now(),
			Method:           "engine",
		},
	}
	res.AddError(e)
	return res
}

// extractionError maps an adapter failure to a catalog error.
func extractionError(e *extraction.Error) types.ValidationError {
	switch e.Kind {
	case extraction.KindUnavailable:
		return types.NewError(types.CodeSystemCapabilityUnavailable, e.Error())
	case extraction.KindLowConfidence:
		return types.NewError(types.CodeParsingLowQuality, e.Error())
	case extraction.KindMalformed, extraction.KindSchema:
		ve := types.NewError(types.CodeParsingExtractionFailed, e.Error())
		ve.Retryable = false
		return ve
	default:
		return types.NewError(types.CodeParsingExtractionFailed, e.Error())
	}
}

// record updates counters and metrics for a finished validation.
func (o *Orchestrator) record(res *types.UnifiedValidationResult) {
	o.stats.validations.Add(1)
	if res.IsValid {
		o.stats.valid.Add(1)
	} else {
		o.stats.invalid.Add(1)
	}
	for _, e := range res.Errors {
		if e.Code == types.CodeSystemError {
			o.stats.systemErrors.Add(1)
		}
	}
	metrics.ObserveValidation(res.IsValid, int(res.HighestTierReached))
}
