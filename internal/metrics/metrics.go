// Package metrics exports Prometheus collectors for the validation pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "jobcheck"

	// Labels
	outcomeLabel = "outcome"
	tierLabel    = "tier"
	resultLabel  = "result"
	nameLabel    = "name"
)

/**
* Metrics definition
**/
var validationsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validations_total",
		Help:      "number of validations by outcome and highest tier reached",
	},
	[]string{outcomeLabel, tierLabel},
)

var tierDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "tier_duration_seconds",
		Help:      "time spent in each pipeline tier",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
	[]string{tierLabel},
)

var cacheLookupsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "number of extraction cache lookups by result",
	},
	[]string{resultLabel},
)

var breakerStateMetric = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "breaker_state",
		Help:      "circuit breaker state: 0 closed, 1 half-open, 2 open",
	},
	[]string{nameLabel},
)

var extractionCallsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extraction_calls_total",
		Help:      "number of extraction engine calls by outcome",
	},
	[]string{outcomeLabel},
)

var rateLimitedTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "number of validations rejected by the per-domain rate limiter",
	},
)

// ObserveValidation counts one finished validation.
func ObserveValidation(valid bool, tier int) {
	outcome := "invalid"
	if valid {
		outcome = "valid"
	}
	validationsTotalMetric.With(prometheus.Labels{
		outcomeLabel: outcome,
		tierLabel:    tierName(tier),
	}).Inc()
}

// ObserveTier records how long one tier took.
func ObserveTier(tier int, d time.Duration) {
	tierDurationMetric.With(prometheus.Labels{tierLabel: tierName(tier)}).Observe(d.Seconds())
}

// ObserveCacheLookup counts a cache hit or miss.
func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotalMetric.With(prometheus.Labels{resultLabel: result}).Inc()
}

// SetBreakerState publishes a breaker state by name.
func SetBreakerState(name, state string) {
	v := 0.0
	switch state {
	case "HALF_OPEN":
		v = 1
	case "OPEN":
		v = 2
	}
	breakerStateMetric.With(prometheus.Labels{nameLabel: name}).Set(v)
}

// ObserveExtraction counts one extraction call. outcome is "success" or an
// extraction error kind.
func ObserveExtraction(outcome string) {
	extractionCallsTotalMetric.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

// IncRateLimited counts one rate-limited validation.
func IncRateLimited() {
	rateLimitedTotalMetric.Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func tierName(tier int) string {
	switch tier {
	case 1:
		return "reachability"
	case 2:
		return "content"
	case 3:
		return "extraction"
	}
	return "none"
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(validationsTotalMetric)
	prometheus.MustRegister(tierDurationMetric)
	prometheus.MustRegister(cacheLookupsTotalMetric)
	prometheus.MustRegister(breakerStateMetric)
	prometheus.MustRegister(extractionCallsTotalMetric)
	prometheus.MustRegister(rateLimitedTotalMetric)
}
