// Package fetch provides guarded URL probing and fetching plus HTML-to-text processing.
// This package centralizes HTTP logic used by the reachability and classification tiers.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/job-validator/internal/urlutil"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; JobValidator/1.0)"

// DefaultMaxBodyBytes bounds how much of a response body is read.
const DefaultMaxBodyBytes = 2 << 20

// DefaultMaxRedirects bounds redirect chains.
const DefaultMaxRedirects = 5

// ErrPrivateAddress is returned when a host resolves to internal address space.
var ErrPrivateAddress = errors.New("refusing to connect to private address")

// Result holds the raw and processed content from a URL fetch.
type Result struct {
	URL          string
	FinalURL     string
	HTML         string
	Text         string
	ContentType  string
	StatusCode   int
	LastModified time.Time
	Truncated    bool
}

// Kind classifies a fetch failure.
type Kind string

const (
	KindInvalidURL       Kind = "invalid_url"
	KindTimeout          Kind = "timeout"
	KindDNS              Kind = "dns"
	KindConnection       Kind = "connection"
	KindPrivateAddress   Kind = "private_address"
	KindStatus           Kind = "status"
	KindTooManyRedirects Kind = "too_many_redirects"
	KindBody             Kind = "body"
	KindCanceled         Kind = "canceled"
)

// Error represents an error during URL fetching.
type Error struct {
	URL        string
	Message    string
	Kind       Kind
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the failure is likely transient.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindConnection, KindBody:
		return true
	case KindStatus:
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
	default:
		return false
	}
}

// Options configures the fetch behavior.
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	Headers      map[string]string
	MaxBodyBytes int64
	MaxRedirects int
	// AllowPrivate disables the private address guard. Tests only.
	AllowPrivate bool
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:      DefaultTimeout,
		UserAgent:    DefaultUserAgent,
		MaxBodyBytes: DefaultMaxBodyBytes,
		MaxRedirects: DefaultMaxRedirects,
	}
}

func (o *Options) withDefaults() *Options {
	if o == nil {
		return DefaultOptions()
	}
	c := *o
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = DefaultMaxRedirects
	}
	return &c
}

// NewHTTPClient builds an http.Client whose dialer refuses private addresses
// after DNS resolution unless opts.AllowPrivate is set.
func NewHTTPClient(opts *Options) *http.Client {
	opts = opts.withDefaults()
	dialer := &net.Dialer{Timeout: opts.Timeout, KeepAlive: 30 * time.Second}
	if !opts.AllowPrivate {
		dialer.Control = func(_, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			if ip := net.ParseIP(host); ip != nil && urlutil.IsPrivateIP(ip) {
				return fmt.Errorf("%w: %s", ErrPrivateAddress, ip)
			}
			return nil
		}
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   opts.Timeout,
		ResponseHeaderTimeout: opts.Timeout,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
	}
	maxRedirects := opts.MaxRedirects
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			if !opts.AllowPrivate && urlutil.IsPrivateHost(req.URL.Hostname()) {
				return fmt.Errorf("%w: redirect to %s", ErrPrivateAddress, req.URL.Hostname())
			}
			return nil
		},
	}
}

// URL retrieves HTML content from a URL. On a non-200 status the partial
// result is returned together with an *Error of KindStatus.
func URL(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	return Get(ctx, NewHTTPClient(opts), urlStr, opts)
}

// Get retrieves HTML content from a URL with the given client.
func Get(ctx context.Context, client *http.Client, urlStr string, opts *Options) (*Result, error) {
	opts = opts.withDefaults()

	if err := checkURL(urlStr); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to create request", Kind: KindInvalidURL, Cause: err}
	}
	setHeaders(req, opts)

	resp, err := client.Do(req)
	if err != nil {
		return nil, transportError(ctx, urlStr, err)
	}
	defer func() { _ = resp.Body.Close() }()

	limited := io.LimitReader(resp.Body, opts.MaxBodyBytes+1)
	bodyBytes, err := io.ReadAll(limited)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to read response body", Kind: KindBody, Cause: err}
	}
	truncated := int64(len(bodyBytes)) > opts.MaxBodyBytes
	if truncated {
		bodyBytes = bodyBytes[:opts.MaxBodyBytes]
	}

	result := &Result{
		URL:          urlStr,
		FinalURL:     resp.Request.URL.String(),
		HTML:         string(bodyBytes),
		ContentType:  resp.Header.Get("Content-Type"),
		StatusCode:   resp.StatusCode,
		LastModified: parseHTTPTime(resp.Header.Get("Last-Modified")),
		Truncated:    truncated,
	}

	if resp.StatusCode != http.StatusOK {
		return result, &Error{
			URL:        urlStr,
			Message:    fmt.Sprintf("HTTP status %d", resp.StatusCode),
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
		}
	}

	return result, nil
}

func checkURL(urlStr string) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return &Error{URL: urlStr, Message: "invalid URL", Kind: KindInvalidURL, Cause: err}
	}
	return nil
}

func setHeaders(req *http.Request, opts *Options) {
	req.Header.Set("User-Agent", opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}
}

func transportError(ctx context.Context, urlStr string, err error) *Error {
	fe := &Error{URL: urlStr, Message: "HTTP request failed", Kind: KindConnection, Cause: err}

	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, ErrPrivateAddress):
		fe.Kind = KindPrivateAddress
	case errors.Is(err, context.Canceled) && ctx.Err() == context.Canceled:
		fe.Kind = KindCanceled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		fe.Kind = KindTimeout
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			fe.Kind = KindTimeout
		} else {
			fe.Kind = KindDNS
		}
	case errors.As(err, &netErr) && netErr.Timeout():
		fe.Kind = KindTimeout
	case strings.Contains(err.Error(), "stopped after"):
		fe.Kind = KindTooManyRedirects
	}
	return fe
}

func parseHTTPTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := http.ParseTime(v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ExtractMainText parses HTML and returns the main body text.
// It removes noise elements using noiseSelectors, then finds content using contentSelectors.
// If no content selectors match, it falls back to the body element.
func ExtractMainText(html string, contentSelectors []string, noiseSelectors ...string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	return ExtractDocumentText(doc, contentSelectors, noiseSelectors...), nil
}

// ExtractDocumentText is ExtractMainText over an already parsed document.
// The document is modified in place.
func ExtractDocumentText(doc *goquery.Document, contentSelectors []string, noiseSelectors ...string) string {
	// Remove common unwanted elements (nav, footer, scripts, ads, etc.)
	doc.Find("nav, footer, header, script, style, noscript, .ad, .advertisement, .ads, .sidebar, .cookie-banner, .popup").Remove()

	if len(noiseSelectors) > 0 {
		noiseSelector := strings.Join(noiseSelectors, ", ")
		if noiseSelector != "" {
			doc.Find(noiseSelector).Remove()
		}
	}

	var mainContent *goquery.Selection
	for _, selector := range contentSelectors {
		if selection := doc.Find(selector); selection.Length() > 0 {
			mainContent = selection.First()
			break
		}
	}

	if mainContent == nil {
		mainContent = doc.Find("body")
	}

	return cleanWhitespace(textWithBreaks(mainContent))
}

// textWithBreaks returns the text of sel with block-level boundaries kept as newlines.
func textWithBreaks(sel *goquery.Selection) string {
	sel.Find("p, div, li, br, h1, h2, h3, h4, h5, h6, tr, section, article").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	return sel.Text()
}

// DefaultTextSelectors returns standard selectors for general web content.
func DefaultTextSelectors() []string {
	return []string{
		"main",
		"article",
		".content",
		"#content",
		".main-content",
		"#main-content",
	}
}

// JobPostingSelectors returns selectors optimized for job board pages.
func JobPostingSelectors() []string {
	return []string{
		".job-description",
		".job-content",
		"#job-description",
		"#job-content",
		".posting-content",
		".job-details",
		"[data-testid='job-description']",
		"main",
		"article",
		".content",
		"#content",
	}
}

// cleanWhitespace normalizes whitespace in text.
func cleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
