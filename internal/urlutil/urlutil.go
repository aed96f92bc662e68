// Package urlutil parses, checks and normalizes candidate job URLs.
package urlutil

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"path"
	"sort"
	"strings"
)

var (
	// ErrInvalidFormat is returned for URLs that cannot be parsed or lack a host.
	ErrInvalidFormat = errors.New("invalid URL format")
	// ErrUnsupportedScheme is returned for schemes other than http and https.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
)

var trackingParams = map[string]struct{}{
	"gclid":      {},
	"fbclid":     {},
	"ref":        {},
	"source":     {},
	"trk":        {},
	"trackingid": {},
	"refid":      {},
	"mc_cid":     {},
	"mc_eid":     {},
}

var privateSuffixes = []string{".localhost", ".local", ".internal", ".lan", ".home.arpa"}

var cgnat = netip.MustParsePrefix("100.64.0.0/10")

// Parse trims and parses raw, requiring an http(s) scheme and a host.
func Parse(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty URL", ErrInvalidFormat)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: missing scheme", ErrInvalidFormat)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidFormat)
	}
	if strings.ContainsAny(u.Hostname(), " \t") {
		return nil, fmt.Errorf("%w: malformed host", ErrInvalidFormat)
	}
	u.Scheme = scheme
	return u, nil
}

// Normalize returns a canonical form of u: lowercase host without "www.",
// cleaned path, no fragment, tracking parameters removed and query keys sorted.
func Normalize(u *url.URL) string {
	c := *u
	c.Host = NormalizeHost(c.Host)
	c.Fragment = ""
	c.RawFragment = ""
	c.Path = normalizePath(c.Path)
	c.RawPath = ""
	c.RawQuery = normalizeQuery(c.RawQuery)
	return c.String()
}

// NormalizeHost lowercases host and strips a leading "www.".
func NormalizeHost(host string) string {
	host = strings.ToLower(host)
	return strings.TrimPrefix(host, "www.")
}

// Domain returns the normalized hostname of u without port.
func Domain(u *url.URL) string {
	return NormalizeHost(u.Hostname())
}

// Segments splits a URL path into its non-empty segments.
func Segments(p string) []string {
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// IsTrackingParam reports whether key is a known tracking parameter.
func IsTrackingParam(key string) bool {
	lk := strings.ToLower(key)
	if strings.HasPrefix(lk, "utm_") {
		return true
	}
	_, ok := trackingParams[lk]
	return ok
}

// IsPrivateHost reports whether host names loopback, private, link-local or
// otherwise internal address space. Only literal IPs and reserved names are
// recognized; resolved addresses are checked at dial time.
func IsPrivateHost(host string) bool {
	h := strings.ToLower(strings.TrimSuffix(host, "."))
	h = strings.TrimPrefix(strings.TrimSuffix(h, "]"), "[")
	if h == "localhost" || h == "" {
		return true
	}
	for _, suffix := range privateSuffixes {
		if strings.HasSuffix(h, suffix) {
			return true
		}
	}
	if ip := net.ParseIP(h); ip != nil {
		return IsPrivateIP(ip)
	}
	return false
}

// IsPrivateIP reports whether ip must never be dialed.
func IsPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified() || ip.IsMulticast() ||
		ip.IsInterfaceLocalMulticast() {
		return true
	}
	if addr, ok := netip.AddrFromSlice(ip); ok && cgnat.Contains(addr.Unmap()) {
		return true
	}
	return false
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	clean := path.Clean(p)
	if clean == "." {
		return "/"
	}
	return clean
}

func normalizeQuery(raw string) string {
	if raw == "" {
		return ""
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return ""
	}
	for key := range values {
		if IsTrackingParam(key) {
			delete(values, key)
		}
	}
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		vals := values[k]
		sort.Strings(vals)
		for j, v := range vals {
			if i > 0 || j > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
