package cache

import (
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/jonathan/job-validator/internal/fetch"
)

// DefaultHashPrefixBytes bounds how much content feeds the content hash.
const DefaultHashPrefixBytes = 10000

// Key derives a cache key from page identity rather than the raw URL, so
// tracking-parameter variants of the same page share an entry.
func Key(domain, path string, contentLength int, platform string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(domain))
	b.WriteByte('|')
	b.WriteString(strings.TrimSuffix(path, "/"))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(contentLength))
	b.WriteByte('|')
	b.WriteString(platform)
	return strconv.FormatUint(xxhash.Sum64String(b.String()), 16)
}

// HashContent fingerprints at most prefix bytes of content.
func HashContent(content string, prefix int) string {
	if prefix > 0 && len(content) > prefix {
		content = content[:prefix]
	}
	return strconv.FormatUint(xxhash.Sum64String(content), 16)
}

// TTLPolicy maps result confidence and platform stability to a TTL.
type TTLPolicy struct {
	High               time.Duration // confidence >= 0.9
	Good               time.Duration // confidence >= 0.7
	Fair               time.Duration // confidence >= 0.5
	Low                time.Duration
	StableMultiplier   float64
	VolatileMultiplier float64
	Min                time.Duration
	Max                time.Duration
}

// DefaultTTLPolicy returns the standard TTL policy.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		High:               24 * time.Hour,
		Good:               12 * time.Hour,
		Fair:               4 * time.Hour,
		Low:                time.Hour,
		StableMultiplier:   1.5,
		VolatileMultiplier: 0.75,
		Min:                time.Hour,
		Max:                36 * time.Hour,
	}
}

// TTL returns how long a result with the given confidence from platform
// should be cached. Hosted ATS pages change rarely and cache longer;
// aggregating boards churn and cache shorter.
func (p TTLPolicy) TTL(confidence float64, platform fetch.Platform) time.Duration {
	var base time.Duration
	switch {
	case confidence >= 0.9:
		base = p.High
	case confidence >= 0.7:
		base = p.Good
	case confidence >= 0.5:
		base = p.Fair
	default:
		base = p.Low
	}

	ttl := float64(base)
	switch {
	case platform.IsATS() && p.StableMultiplier > 0:
		ttl *= p.StableMultiplier
	case platform.IsJobBoard() && p.VolatileMultiplier > 0:
		ttl *= p.VolatileMultiplier
	}

	d := time.Duration(ttl)
	if p.Min > 0 && d < p.Min {
		d = p.Min
	}
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	return d
}
