// Package reachability implements the first validation tier: URL syntax and
// safety checks, a job-relevance heuristic and a lightweight network probe.
package reachability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/job-validator/internal/cache"
	"github.com/jonathan/job-validator/internal/fetch"
	"github.com/jonathan/job-validator/internal/types"
	"github.com/jonathan/job-validator/internal/urlutil"
)

// Config configures a Prober.
type Config struct {
	Timeout      time.Duration
	UserAgent    string
	MaxRedirects int
	// CacheTTL is how long a valid probe result is reused.
	CacheTTL      time.Duration
	CacheCapacity int
	// AllowPrivateHosts disables the private address checks. Tests and
	// internal deployments only.
	AllowPrivateHosts  bool
	RelevanceThreshold float64
	Weights            Weights
}

// DefaultConfig returns the standard prober settings.
func DefaultConfig() Config {
	return Config{
		Timeout:            8 * time.Second,
		UserAgent:          fetch.DefaultUserAgent,
		MaxRedirects:       fetch.DefaultMaxRedirects,
		CacheTTL:           5 * time.Minute,
		CacheCapacity:      cache.DefaultCapacity,
		RelevanceThreshold: 0.4,
		Weights:            DefaultWeights(),
	}
}

// Prober runs Tier 1.
type Prober struct {
	cfg    Config
	opts   *fetch.Options
	client *http.Client
	cache  *cache.Cache[*types.TierResult[types.URLAnalysis]]
	logger *zap.Logger
}

// New creates a Prober.
func New(cfg Config, logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	if cfg.CacheTTL < 0 {
		cfg.CacheTTL = 0
	}
	if cfg.RelevanceThreshold <= 0 {
		cfg.RelevanceThreshold = d.RelevanceThreshold
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = d.Weights
	}

	opts := fetch.DefaultOptions()
	opts.Timeout = cfg.Timeout
	opts.AllowPrivate = cfg.AllowPrivateHosts
	if cfg.UserAgent != "" {
		opts.UserAgent = cfg.UserAgent
	}
	if cfg.MaxRedirects > 0 {
		opts.MaxRedirects = cfg.MaxRedirects
	}

	logger = logger.Named("reachability")
	return &Prober{
		cfg:    cfg,
		opts:   opts,
		client: fetch.NewHTTPClient(opts),
		cache: cache.New(cache.Config{Capacity: cfg.CacheCapacity, SweepInterval: time.Minute},
			(*types.TierResult[types.URLAnalysis]).Clone, logger),
		logger: logger,
	}
}

// Start runs the probe cache sweep until ctx is done or Stop is called.
func (p *Prober) Start(ctx context.Context) {
	p.cache.Start(ctx)
}

// Stop halts background work.
func (p *Prober) Stop() {
	p.cache.Stop()
}

// CacheStats reports probe cache statistics.
func (p *Prober) CacheStats() cache.Stats {
	return p.cache.Stats()
}

// Probe validates raw and returns the Tier 1 result. It never returns nil.
func (p *Prober) Probe(ctx context.Context, raw string) *types.TierResult[types.URLAnalysis] {
	start := time.Now()
	analysis := &types.URLAnalysis{URL: strings.TrimSpace(raw)}
	result := &types.TierResult[types.URLAnalysis]{
		IsValid: true,
		Data:    analysis,
		Metadata: types.TierMetadata{
			Tier:   types.TierReachability,
			Method: "probe",
		},
	}

	u, err := urlutil.Parse(raw)
	if err != nil {
		code := types.CodeURLInvalidFormat
		if errors.Is(err, urlutil.ErrUnsupportedScheme) {
			code = types.CodeURLUnsupportedScheme
		}
		result.AddError(types.NewError(code, err.Error()))
		return p.finish(result, start, nil)
	}

	analysis.NormalizedURL = urlutil.Normalize(u)
	analysis.Domain = urlutil.Domain(u)
	platform := fetch.DetectPlatformHost(u.Hostname(), u.Path)
	analysis.Platform = string(platform)

	if !p.cfg.AllowPrivateHosts && urlutil.IsPrivateHost(u.Hostname()) {
		result.AddError(types.NewError(types.CodeURLPrivateHost,
			fmt.Sprintf("host %s is not publicly routable", u.Hostname())))
		return p.finish(result, start, nil)
	}

	if cached, ok := p.cache.Get(analysis.NormalizedURL, ""); ok {
		cached.Data.URL = analysis.URL
		cached.Metadata.Method = "cache"
		cached.Metadata.ProcessingTimeMs = 0
		return cached
	}

	rel := Score(u, platform, p.cfg.Weights)
	analysis.RelevanceScore = rel.Score
	analysis.HasJobIndicators = rel.Score >= p.cfg.RelevanceThreshold
	for _, w := range rel.Warnings {
		result.AddWarning(w)
	}
	if !analysis.HasJobIndicators && hasHighImpact(rel.Warnings) {
		result.AddError(types.NewError(types.CodeURLNotJobPage,
			fmt.Sprintf("URL path %q does not point to a job posting", u.EscapedPath())))
		return p.finish(result, start, &rel)
	}
	if !analysis.HasJobIndicators {
		result.AddWarning(types.NewWarning(types.WarnLowJobRelevance,
			fmt.Sprintf("URL relevance %.2f is below %.2f", rel.Score, p.cfg.RelevanceThreshold), types.ImpactMedium))
	}

	res, err := fetch.Probe(ctx, p.client, u.String(), p.opts)
	if err != nil {
		result.AddError(probeError(err))
		p.logger.Debug("probe failed", zap.String("url", u.String()), zap.Error(err))
		return p.finish(result, start, &rel)
	}

	analysis.ResponseTimeMs = res.Elapsed.Milliseconds()
	analysis.HTTPStatus = res.StatusCode
	analysis.ContentType = res.ContentType
	analysis.FinalURL = res.FinalURL
	p.applyStatus(result, res, rel)

	p.logger.Debug("probed",
		zap.String("url", u.String()),
		zap.Int("status", res.StatusCode),
		zap.String("method", res.Method),
		zap.Float64("relevance", rel.Score))

	return p.finish(result, start, &rel)
}

func (p *Prober) applyStatus(result *types.TierResult[types.URLAnalysis], res *fetch.ProbeResult, rel Relevance) {
	analysis := result.Data
	status := res.StatusCode

	switch {
	case status >= 200 && status < 400:
		analysis.IsAccessible = true
	case status == http.StatusNotFound:
		result.AddError(types.NewError(types.CodeURLNotFound, "server returned 404"))
	case status == http.StatusGone:
		analysis.IsExpired = true
		result.AddError(types.NewError(types.CodeURLExpired, "server returned 410"))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		analysis.RequiresAuth = true
		result.AddError(types.NewError(types.CodeURLAuthRequired, fmt.Sprintf("server returned %d", status)))
	case status == http.StatusTooManyRequests:
		result.AddError(types.NewError(types.CodeURLRateLimited, "server returned 429"))
	case status >= 500:
		result.AddError(types.NewError(types.CodeURLServerError, fmt.Sprintf("server returned %d", status)))
	default:
		result.AddError(types.NewError(types.CodeURLClientError, fmt.Sprintf("server returned %d", status)))
	}

	if !analysis.IsAccessible {
		return
	}

	if ct := strings.ToLower(res.ContentType); ct != "" && !strings.Contains(ct, "html") {
		result.AddWarning(types.NewWarning(types.WarnNonHTMLContent,
			fmt.Sprintf("content type %s is not HTML", res.ContentType), types.ImpactMedium))
	}

	if !res.Redirected {
		return
	}
	result.AddWarning(types.NewWarning(types.WarnRedirected,
		fmt.Sprintf("redirected to %s", res.FinalURL), types.ImpactLow))

	final, err := url.Parse(res.FinalURL)
	if err != nil {
		return
	}
	if IsAuthPath(final.Path) {
		analysis.RequiresAuth = true
		result.AddError(types.NewError(types.CodeURLAuthRequired, "redirected to a login page"))
		return
	}

	finalPlatform := fetch.DetectPlatformHost(final.Hostname(), final.Path)
	if !fetch.Platform(analysis.Platform).IsKnown() && finalPlatform.IsKnown() {
		analysis.Platform = string(finalPlatform)
	}
	// A posting URL that now lands on a board index or homepage was taken down.
	if rel.HasJobSignal() {
		after := Score(final, finalPlatform, p.cfg.Weights)
		if (after.Index || after.AntiPattern) && !after.HasJobSignal() {
			analysis.IsExpired = true
			result.AddError(types.NewError(types.CodeURLExpired,
				fmt.Sprintf("job URL redirected to listing page %s", res.FinalURL)))
		}
	}
}

// finish computes validity and confidence and caches valid results.
func (p *Prober) finish(result *types.TierResult[types.URLAnalysis], start time.Time, rel *Relevance) *types.TierResult[types.URLAnalysis] {
	analysis := result.Data
	result.IsValid = !result.HasBlocking() && analysis.IsAccessible

	score := 0.0
	if rel != nil {
		score = rel.Score
	}
	conf := 0.4 + 0.4*score
	if analysis.IsAccessible {
		conf += 0.2
	}
	if fetch.Platform(analysis.Platform).IsKnown() {
		conf += 0.05
	}
	for _, e := range result.Errors {
		if e.Severity == types.SeverityDegraded {
			conf -= 0.1
		}
	}
	result.Confidence = clamp01(conf)

	result.Metadata.ValidatedAt = time.Now().UTC()
	result.Metadata.ProcessingTimeMs = time.Since(start).Milliseconds()

	if result.IsValid && p.cfg.CacheTTL > 0 && analysis.NormalizedURL != "" {
		p.cache.Set(analysis.NormalizedURL, result, p.cfg.CacheTTL, "")
	}
	return result
}

func hasHighImpact(warnings []types.ValidationWarning) bool {
	for _, w := range warnings {
		if w.Impact == types.ImpactHigh {
			return true
		}
	}
	return false
}

// probeError maps a transport failure to a catalog error.
func probeError(err error) types.ValidationError {
	var fe *fetch.Error
	if !errors.As(err, &fe) {
		return types.NewError(types.CodeURLUnreachable, err.Error())
	}
	switch fe.Kind {
	case fetch.KindTimeout, fetch.KindCanceled:
		return types.NewError(types.CodeURLTimeout, fe.Error())
	case fetch.KindDNS:
		return types.NewError(types.CodeURLDNSFailure, fe.Error())
	case fetch.KindPrivateAddress:
		return types.NewError(types.CodeURLPrivateHost, fe.Error())
	case fetch.KindInvalidURL:
		return types.NewError(types.CodeURLInvalidFormat, fe.Error())
	case fetch.KindTooManyRedirects:
		return types.NewError(types.CodeURLClientError, fe.Error())
	default:
		return types.NewError(types.CodeURLUnreachable, fe.Error())
	}
}
