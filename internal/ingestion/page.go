package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/jonathan/job-validator/internal/cache"
	"github.com/jonathan/job-validator/internal/fetch"
	"github.com/jonathan/job-validator/internal/types"
	"github.com/jonathan/job-validator/internal/urlutil"
)

// Page is a fetched page prepared for classification and extraction.
type Page struct {
	URL          string
	FinalURL     string
	Platform     fetch.Platform
	StatusCode   int
	ContentType  string
	LastModified time.Time
	// Doc is the sanitized full document.
	Doc *goquery.Document
	// Text is the cleaned main content text.
	Text                string
	Meta                Metadata
	JSONLD              []any
	ContentHash         string
	Truncated           bool
	RenderedWithBrowser bool
}

// Content returns the hand-off form of the page used by extraction.
func (p *Page) Content() *types.PageContent {
	pc := &types.PageContent{
		URL:             p.URL,
		FinalURL:        p.FinalURL,
		Platform:        string(p.Platform),
		Title:           p.Meta.Title,
		MetaDescription: p.Meta.Description,
		Text:            p.Text,
		ContentLength:   len(p.Text),
		ContentHash:     p.ContentHash,
	}
	if u, err := url.Parse(p.FinalURL); err == nil {
		pc.Domain = urlutil.Domain(u)
		pc.Path = u.Path
	}
	return pc
}

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	Fetch           *fetch.Options
	UseBrowser      bool
	BrowserTimeout  time.Duration
	HashPrefixBytes int
}

// Loader fetches pages and turns them into Page values.
type Loader struct {
	cfg    LoaderConfig
	client *http.Client
	logger *zap.Logger
}

// NewLoader creates a Loader.
func NewLoader(cfg LoaderConfig, logger *zap.Logger) *Loader {
	if cfg.Fetch == nil {
		cfg.Fetch = fetch.DefaultOptions()
	}
	if cfg.BrowserTimeout <= 0 {
		cfg.BrowserTimeout = 20 * time.Second
	}
	if cfg.HashPrefixBytes <= 0 {
		cfg.HashPrefixBytes = cache.DefaultHashPrefixBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		cfg:    cfg,
		client: fetch.NewHTTPClient(cfg.Fetch),
		logger: logger.Named("ingestion"),
	}
}

// Load fetches urlStr and prepares it. It uses platform detection to apply
// platform-specific selectors, and falls back to a headless browser for SPA
// sites with insufficient content when enabled.
func (l *Loader) Load(ctx context.Context, urlStr string, platform fetch.Platform) (*Page, error) {
	log := l.logger.With(zap.String("url", urlStr), zap.String("platform", string(platform)))

	result, err := fetch.Get(ctx, l.client, urlStr, l.cfg.Fetch)
	if err != nil {
		return nil, err
	}
	log.Debug("fetched page", zap.Int("bytes", len(result.HTML)), zap.Bool("truncated", result.Truncated))

	rendered := false
	if l.cfg.UseBrowser {
		text, err := fetch.ExtractMainText(result.HTML, fetch.PlatformContentSelectors(platform), fetch.PlatformNoiseSelectors(platform)...)
		if err == nil && fetch.ShouldUseBrowser(text) {
			log.Debug("content too short, falling back to browser rendering",
				zap.Int("chars", len(text)), zap.Int("min", fetch.MinContentLength))

			browserHTML, browserErr := fetch.WithBrowser(ctx, urlStr, l.cfg.BrowserTimeout, l.cfg.Fetch.AllowPrivate, log)
			if browserErr != nil {
				log.Warn("browser rendering failed, using HTTP content", zap.Error(browserErr))
			} else {
				result.HTML = browserHTML
				rendered = true
			}
		}
	}

	page, err := NewPage(urlStr, result, platform, l.cfg.HashPrefixBytes)
	if err != nil {
		return nil, err
	}
	page.RenderedWithBrowser = rendered
	log.Debug("prepared page", zap.Int("chars", len(page.Text)), zap.Int("jsonld_blocks", len(page.JSONLD)))
	return page, nil
}

// NewPage builds a Page from an already fetched result without touching the
// network.
func NewPage(urlStr string, result *fetch.Result, platform fetch.Platform, hashPrefix int) (*Page, error) {
	if hashPrefix <= 0 {
		hashPrefix = cache.DefaultHashPrefixBytes
	}
	textContent, err := fetch.ExtractMainText(result.HTML, fetch.PlatformContentSelectors(platform), fetch.PlatformNoiseSelectors(platform)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContentExtractionFailed, err)
	}

	// JSON-LD lives in script tags, so read it before sanitizing.
	jsonld := ExtractJSONLD(result.HTML)

	doc, err := fetch.Sanitize(result.HTML)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContentExtractionFailed, err)
	}

	cleaned := CleanText(textContent)
	page := &Page{
		URL:          urlStr,
		FinalURL:     result.FinalURL,
		Platform:     platform,
		StatusCode:   result.StatusCode,
		ContentType:  result.ContentType,
		LastModified: result.LastModified,
		Doc:          doc,
		Text:         cleaned,
		Meta:         ReadMetadata(doc),
		JSONLD:       jsonld,
		ContentHash:  cache.HashContent(cleaned, hashPrefix),
		Truncated:    result.Truncated,
	}
	if page.FinalURL == "" {
		page.FinalURL = urlStr
	}
	return page, nil
}
