package pipeline

import (
	"time"

	"github.com/jonathan/job-validator/internal/breaker"
	"github.com/jonathan/job-validator/internal/cache"
)

// Health states.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Counters are cumulative validation counts since construction.
type Counters struct {
	Validations  uint64 `json:"validations"`
	Valid        uint64 `json:"valid"`
	Invalid      uint64 `json:"invalid"`
	CacheHits    uint64 `json:"cache_hits"`
	CacheMisses  uint64 `json:"cache_misses"`
	RateLimited  uint64 `json:"rate_limited"`
	CircuitOpen  uint64 `json:"circuit_open"`
	SystemErrors uint64 `json:"system_errors"`
}

// HealthSnapshot is a read-only view for dashboards and the health endpoint.
type HealthSnapshot struct {
	Status             string             `json:"status"`
	Tier3Enabled       bool               `json:"tier3_enabled"`
	ExtractorAvailable bool               `json:"extractor_available"`
	Uptime             string             `json:"uptime"`
	Counters           Counters           `json:"counters"`
	Cache              cache.Stats        `json:"cache"`
	ExtractionBreakers []breaker.Snapshot `json:"extraction_breakers"`
	FetchBreakers      []breaker.Snapshot `json:"fetch_breakers"`
	CheckedAt          time.Time          `json:"checked_at"`
}

// Health reports the orchestrator's current state. An open extraction
// breaker makes it unhealthy; open fetch breakers, half-open breakers, or a
// missing extractor make it degraded.
func (o *Orchestrator) Health() HealthSnapshot {
	now := o.now()
	snap := HealthSnapshot{
		Status:             StatusHealthy,
		Tier3Enabled:       o.cfg.EnableTier3,
		ExtractorAvailable: o.extractor != nil,
		Uptime:             now.Sub(o.startedAt).Round(time.Second).String(),
		Counters: Counters{
			Validations:  o.stats.validations.Load(),
			Valid:        o.stats.valid.Load(),
			Invalid:      o.stats.invalid.Load(),
			CacheHits:    o.stats.cacheHits.Load(),
			CacheMisses:  o.stats.cacheMisses.Load(),
			RateLimited:  o.stats.rateLimited.Load(),
			CircuitOpen:  o.stats.circuitOpen.Load(),
			SystemErrors: o.stats.systemErrors.Load(),
		},
		Cache:              o.cache.Stats(),
		ExtractionBreakers: o.engines.Snapshots(),
		FetchBreakers:      o.hosts.Snapshots(),
		CheckedAt:          now,
	}

	if o.cfg.EnableTier3 && o.extractor == nil {
		snap.Status = StatusDegraded
	}
	for _, s := range snap.FetchBreakers {
		if s.State != breaker.StateClosed {
			snap.Status = StatusDegraded
		}
	}
	for _, s := range snap.ExtractionBreakers {
		switch s.State {
		case breaker.StateOpen:
			snap.Status = StatusUnhealthy
			return snap
		case breaker.StateHalfOpen:
			snap.Status = StatusDegraded
		}
	}
	return snap
}
