// Package fetch - probe.go provides the lightweight reachability request.
package fetch

import (
	"context"
	"io"
	"net/http"
	"time"
)

// probeRangeBytes is the body prefix requested when HEAD is refused.
const probeRangeBytes = 4095

// ProbeResult describes the outcome of a lightweight reachability request.
// Any HTTP status is a successful probe; only transport failures are errors.
type ProbeResult struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Method      string
	Redirected  bool
	Elapsed     time.Duration
}

// Probe issues a HEAD request for urlStr and falls back to a ranged GET when
// the server rejects HEAD.
func Probe(ctx context.Context, client *http.Client, urlStr string, opts *Options) (*ProbeResult, error) {
	opts = opts.withDefaults()
	if err := checkURL(urlStr); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := probeOnce(ctx, client, http.MethodHead, urlStr, opts)
	if err != nil {
		return nil, err
	}
	if headRejected(res.StatusCode) {
		res, err = probeOnce(ctx, client, http.MethodGet, urlStr, opts)
		if err != nil {
			return nil, err
		}
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

func headRejected(status int) bool {
	switch status {
	case http.StatusMethodNotAllowed, http.StatusNotImplemented, http.StatusForbidden, http.StatusBadRequest:
		return true
	}
	return false
}

func probeOnce(ctx context.Context, client *http.Client, method, urlStr string, opts *Options) (*ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, method, urlStr, nil)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to create request", Kind: KindInvalidURL, Cause: err}
	}
	setHeaders(req, opts)
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-4095")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, transportError(ctx, urlStr, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, probeRangeBytes+1))

	status := resp.StatusCode
	if status == http.StatusPartialContent {
		status = http.StatusOK
	}
	finalURL := resp.Request.URL.String()
	return &ProbeResult{
		URL:         urlStr,
		FinalURL:    finalURL,
		StatusCode:  status,
		ContentType: resp.Header.Get("Content-Type"),
		Method:      method,
		Redirected:  finalURL != urlStr,
	}, nil
}
