// Package classify decides whether a fetched page is a single job posting.
// Textual, structural, and metadata extractors run concurrently over the same
// page and their signals are fused into one classification.
package classify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/job-validator/internal/fetch"
	"github.com/jonathan/job-validator/internal/ingestion"
	"github.com/jonathan/job-validator/internal/types"
)

// Config configures a Classifier.
type Config struct {
	Timeout           time.Duration
	UserAgent         string
	MaxBodyBytes      int64
	MinWordCount      int
	ConfidenceFloor   float64
	StalenessWindow   time.Duration
	UseBrowser        bool
	BrowserTimeout    time.Duration
	HashPrefixBytes   int
	AllowPrivateHosts bool
}

// DefaultConfig returns the default classifier settings.
func DefaultConfig() Config {
	return Config{
		Timeout:         10 * time.Second,
		UserAgent:       fetch.DefaultUserAgent,
		MaxBodyBytes:    fetch.DefaultMaxBodyBytes,
		MinWordCount:    50,
		ConfidenceFloor: 0.7,
		StalenessWindow: 90 * 24 * time.Hour,
		BrowserTimeout:  20 * time.Second,
	}
}

// Classifier is the content tier.
type Classifier struct {
	cfg    Config
	loader *ingestion.Loader
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Classifier.
func New(cfg Config, logger *zap.Logger) *Classifier {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MinWordCount <= 0 {
		cfg.MinWordCount = def.MinWordCount
	}
	if cfg.ConfidenceFloor <= 0 {
		cfg.ConfidenceFloor = def.ConfidenceFloor
	}
	if cfg.StalenessWindow <= 0 {
		cfg.StalenessWindow = def.StalenessWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := fetch.DefaultOptions()
	opts.Timeout = cfg.Timeout
	opts.AllowPrivate = cfg.AllowPrivateHosts
	if cfg.UserAgent != "" {
		opts.UserAgent = cfg.UserAgent
	}
	if cfg.MaxBodyBytes > 0 {
		opts.MaxBodyBytes = cfg.MaxBodyBytes
	}
	return &Classifier{
		cfg: cfg,
		loader: ingestion.NewLoader(ingestion.LoaderConfig{
			Fetch:           opts,
			UseBrowser:      cfg.UseBrowser,
			BrowserTimeout:  cfg.BrowserTimeout,
			HashPrefixBytes: cfg.HashPrefixBytes,
		}, logger),
		logger: logger.Named("classify"),
		now:    time.Now,
	}
}

// SetClock replaces the clock used for staleness checks.
func (c *Classifier) SetClock(now func() time.Time) {
	c.now = now
}

// ConfidenceFloor returns the configured minimum confidence.
func (c *Classifier) ConfidenceFloor() float64 {
	return c.cfg.ConfidenceFloor
}

// Classify fetches rawURL and classifies it. analysis is the reachability
// result and may be nil. The page content is returned only when the fetch
// succeeded.
func (c *Classifier) Classify(ctx context.Context, rawURL string, analysis *types.URLAnalysis) (*types.TierResult[types.ContentClassification], *types.PageContent) {
	start := c.now()
	target := rawURL
	platform := fetch.DetectPlatform(rawURL)
	if analysis != nil {
		if analysis.FinalURL != "" {
			target = analysis.FinalURL
		}
		if analysis.Platform != "" {
			platform = fetch.Platform(analysis.Platform)
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	page, err := c.loader.Load(fetchCtx, target, platform)
	if err != nil {
		c.logger.Debug("content fetch failed", zap.String("url", target), zap.Error(err))
		res := &types.TierResult[types.ContentClassification]{
			Metadata: c.metadata(start, "http"),
		}
		res.AddError(fetchError(err))
		return res, nil
	}
	page.URL = rawURL

	res := c.ClassifyPage(ctx, page, analysis)
	res.Metadata.ProcessingTimeMs = c.now().Sub(start).Milliseconds()
	return res, page.Content()
}

// ClassifyPage classifies an already loaded page.
func (c *Classifier) ClassifyPage(ctx context.Context, page *ingestion.Page, analysis *types.URLAnalysis) *types.TierResult[types.ContentClassification] {
	start := c.now()
	method := "http"
	if page.RenderedWithBrowser {
		method = "browser"
	}

	var (
		text  textSignals
		shape structureSignals
		meta  metaSignals
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text = analyzeText(page)
		return gctx.Err()
	})
	g.Go(func() error {
		shape = analyzeStructure(page)
		return gctx.Err()
	})
	g.Go(func() error {
		meta = analyzeMetadata(page)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		res := &types.TierResult[types.ContentClassification]{Metadata: c.metadata(start, method)}
		res.AddError(types.NewError(types.CodeContentFetchFailed, fmt.Sprintf("classification interrupted: %v", err)))
		return res
	}

	res := c.fuse(page, analysis, text, shape, meta)
	res.Metadata = c.metadata(start, method)
	c.logger.Debug("classified page",
		zap.String("url", page.URL),
		zap.String("type", string(res.Data.ContentType)),
		zap.Float64("confidence", res.Confidence),
		zap.Int("words", res.Data.WordCount))
	return res
}

// fuse combines the extractor signals into the tier result.
func (c *Classifier) fuse(page *ingestion.Page, analysis *types.URLAnalysis, text textSignals, shape structureSignals, meta metaSignals) *types.TierResult[types.ContentClassification] {
	now := c.now()
	ct, confidence := text.decide()
	confidence += shape.adjustment(ct) + meta.adjustment(ct)
	if ct == types.ContentJobPosting && page.Platform.IsKnown() && analysis != nil && analysis.HasJobIndicators {
		confidence += 0.05
	}
	confidence = clamp01(confidence)

	cl := types.ContentClassification{
		ContentType:        ct,
		JobRelevanceScore:  clamp01(0.7*text.Scores[types.ContentJobPosting] + 0.3*shape.relevance()),
		HasRequirements:    text.Requirements,
		HasSalary:          text.Salary || meta.HasSalary,
		HasApplicationInfo: text.Application || shape.ApplicationForm || shape.ApplyButton,
		HasDescription:     meta.HasDescription || (text.WordCount >= 150 && (text.Responsibilities || text.Requirements)),
		Language:           text.Language,
		WordCount:          text.WordCount,
		DetectedTitle:      meta.detectedTitle(page),
		DetectedCompany:    meta.detectedCompany(page.Platform.DisplayName()),
	}
	cl.HasTitle = meta.JobTitle != "" || (cl.DetectedTitle != "" && jobTitlePattern.MatchString(cl.DetectedTitle))
	cl.HasCompany = cl.DetectedCompany != ""

	res := &types.TierResult[types.ContentClassification]{IsValid: true}

	expired := text.ExpiryPhrase != "" || (!meta.ValidThrough.IsZero() && meta.ValidThrough.Before(now))
	stale := false
	if posted := meta.postedAt(); !posted.IsZero() {
		p := posted
		cl.PublishedAt = &p
		stale = now.Sub(posted) > c.cfg.StalenessWindow
	}

	if ct != types.ContentJobPosting {
		res.AddError(types.NewError(types.CodeContentWrongType,
			fmt.Sprintf("page classified as %s", ct)))
	}
	if expired {
		cl.IsExpired = true
		detail := fmt.Sprintf("page says %q", text.ExpiryPhrase)
		if text.ExpiryPhrase == "" {
			detail = fmt.Sprintf("validThrough %s is in the past", meta.ValidThrough.Format(time.DateOnly))
		}
		res.AddError(types.NewError(types.CodeContentExpired, detail))
	} else if stale {
		cl.IsExpired = true
		confidence *= 0.8
		res.AddError(types.NewError(types.CodeContentStale,
			fmt.Sprintf("posted %s, older than %s", cl.PublishedAt.Format(time.DateOnly), c.cfg.StalenessWindow)))
	}
	if text.WordCount < c.cfg.MinWordCount {
		res.AddError(types.NewError(types.CodeContentTooShort,
			fmt.Sprintf("%d words, need at least %d", text.WordCount, c.cfg.MinWordCount)))
	}

	confidence = clamp01(confidence)
	if confidence < c.cfg.ConfidenceFloor {
		res.AddError(types.NewError(types.CodeContentLowConfidence,
			fmt.Sprintf("confidence %.2f below %.2f", confidence, c.cfg.ConfidenceFloor)))
	}
	if text.Language != "en" && text.Language != LanguageUnknown {
		res.AddWarning(types.NewWarning(types.WarnLanguage,
			fmt.Sprintf("content appears to be in %q", text.Language), types.ImpactLow))
	}
	if page.Truncated {
		res.AddWarning(types.NewWarning(types.WarnContentTruncated,
			"page exceeded the body limit and was truncated", types.ImpactLow))
	}

	cl.Confidence = confidence
	cl.QualityScore = quality(cl)
	res.Confidence = confidence
	res.Data = &cl
	return res
}

// quality scores how complete the posting looks.
func quality(cl types.ContentClassification) float64 {
	q := 0.0
	if cl.HasTitle {
		q += 0.2
	}
	if cl.HasCompany {
		q += 0.15
	}
	if cl.HasDescription {
		q += 0.25
	}
	if cl.HasRequirements {
		q += 0.15
	}
	if cl.HasApplicationInfo {
		q += 0.1
	}
	switch {
	case cl.WordCount >= 300:
		q += 0.15
	case cl.WordCount >= 150:
		q += 0.1
	case cl.WordCount >= 50:
		q += 0.05
	}
	if cl.IsExpired {
		q -= 0.3
	}
	return clamp01(q)
}

func (c *Classifier) metadata(start time.Time, method string) types.TierMetadata {
	return types.TierMetadata{
		Tier:             types.TierContent,
		ProcessingTimeMs: c.now().Sub(start).Milliseconds(),
		ValidatedAt:      c.now(),
		Method:           method,
	}
}

// fetchError maps a page load failure to a catalog error.
func fetchError(err error) types.ValidationError {
	var fe *fetch.Error
	if !errors.As(err, &fe) {
		return types.NewError(types.CodeContentFetchFailed, err.Error())
	}
	switch fe.Kind {
	case fetch.KindInvalidURL:
		return types.NewError(types.CodeURLInvalidFormat, fe.Message)
	case fetch.KindPrivateAddress:
		return types.NewError(types.CodeURLPrivateHost, fe.Message)
	case fetch.KindDNS:
		return types.NewError(types.CodeURLDNSFailure, fe.Message)
	case fetch.KindTooManyRedirects:
		return types.NewError(types.CodeURLClientError, fe.Message)
	case fetch.KindStatus:
		switch {
		case fe.StatusCode == http.StatusNotFound:
			return types.NewError(types.CodeURLNotFound, fe.Message)
		case fe.StatusCode == http.StatusGone:
			return types.NewError(types.CodeContentExpired, fe.Message)
		case fe.StatusCode == http.StatusUnauthorized || fe.StatusCode == http.StatusForbidden:
			return types.NewError(types.CodeURLAuthRequired, fe.Message)
		case fe.Retryable():
			return types.NewError(types.CodeContentFetchFailed, fe.Message)
		default:
			return types.NewError(types.CodeURLClientError, fe.Message)
		}
	default:
		return types.NewError(types.CodeContentFetchFailed, fe.Error())
	}
}
