// Package fetch - browser.go provides headless browser rendering for SPA sites.
package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/jonathan/job-validator/internal/urlutil"
)

// RenderSettle is how long the browser waits for client-side rendering.
const RenderSettle = 2 * time.Second

// MinContentLength is the minimum extracted text length to consider HTTP fetch successful.
// If content is shorter, we should fall back to browser rendering.
const MinContentLength = 500

// ShouldUseBrowser returns true if the extracted text is too short,
// indicating the page is likely a JavaScript-rendered SPA.
func ShouldUseBrowser(extractedText string) bool {
	return len(strings.TrimSpace(extractedText)) < MinContentLength
}

// WithBrowser renders a page in a headless browser and returns the rendered HTML.
// This is useful for JavaScript-heavy pages that don't render content on initial load.
// Requires Chrome/Chromium to be installed on the system.
//
// Chrome uses its own network stack, so the private address dialer does not
// apply. Unless allowPrivate is set, the start URL and the location the page
// settled on are checked by host name and the render is discarded when either
// is internal.
func WithBrowser(ctx context.Context, pageURL string, timeout time.Duration, allowPrivate bool, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := checkBrowserLocation(pageURL, allowPrivate); err != nil {
		return "", err
	}
	logger.Debug("starting headless browser", zap.String("url", pageURL))

	// Create browser context with timeout
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	// Set timeout
	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html, location string

	// Navigate, wait for page to be ready, then extract HTML
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		// Wait for the page to load - use a combination of strategies
		chromedp.WaitReady("body"),
		// Additional wait for JavaScript to render content
		chromedp.Sleep(RenderSettle),
		// Extract the full HTML
		chromedp.OuterHTML("html", &html),
		chromedp.Location(&location),
	)

	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}
	if err := checkBrowserLocation(location, allowPrivate); err != nil {
		return "", err
	}

	logger.Debug("rendered page", zap.String("url", pageURL), zap.String("location", location), zap.Int("bytes", len(html)))

	return html, nil
}

func checkBrowserLocation(loc string, allowPrivate bool) error {
	if allowPrivate {
		return nil
	}
	u, err := url.Parse(loc)
	if err != nil || u.Hostname() == "" {
		return &Error{URL: loc, Message: "browser ended on an unusable location", Kind: KindInvalidURL, Cause: err}
	}
	if urlutil.IsPrivateHost(u.Hostname()) {
		return &Error{
			URL:     loc,
			Message: "browser navigated to internal host",
			Kind:    KindPrivateAddress,
			Cause:   fmt.Errorf("%w: %s", ErrPrivateAddress, u.Hostname()),
		}
	}
	return nil
}
