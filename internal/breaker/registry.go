package breaker

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry hands out one breaker per key, creating them on first use.
type Registry struct {
	prefix string
	cfg    Config
	ttl    time.Duration
	opts   []Option
	logger *zap.Logger

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry creates a registry whose breakers share cfg and opts.
func NewRegistry(prefix string, cfg Config, logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		prefix:   prefix,
		cfg:      cfg,
		ttl:      cfg.withDefaults().IdleTTL,
		opts:     append([]Option{WithLogger(logger)}, opts...),
		logger:   logger,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for key.
func (r *Registry) Get(key string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[key]; ok {
		b.touch()
		return b
	}
	name := key
	if r.prefix != "" {
		name = r.prefix + ":" + key
	}
	b := New(name, r.cfg, r.opts...)
	r.breakers[key] = b
	return b
}

func (r *Registry) all() []*Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		out = append(out, b)
	}
	return out
}

// Snapshots returns every breaker's snapshot ordered by name.
func (r *Registry) Snapshots() []Snapshot {
	breakers := r.all()
	out := make([]Snapshot, 0, len(breakers))
	for _, b := range breakers {
		out = append(out, b.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of tracked breakers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.breakers)
}

// Tick applies due timeout transitions to every breaker and drops closed
// breakers that have been idle for the configured IdleTTL.
func (r *Registry) Tick() {
	for _, b := range r.all() {
		b.Tick()
	}
	r.Prune()
}

// Prune removes idle closed breakers and returns how many were dropped.
func (r *Registry) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	pruned := 0
	for key, b := range r.breakers {
		if b.idle(r.ttl) {
			delete(r.breakers, key)
			pruned++
		}
	}
	if pruned > 0 {
		r.logger.Debug("pruned idle breakers", zap.String("registry", r.prefix), zap.Int("count", pruned))
	}
	return pruned
}

// Run ticks every interval until ctx is done, so open breakers move to
// half-open on schedule even when no requests arrive.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Tick()
		}
	}
}
