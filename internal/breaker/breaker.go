// Package breaker implements a circuit breaker that fails fast while a
// dependency is unhealthy and probes it again after a cooldown.
package breaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the breaker state.
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// Outcome reports how a permitted call went.
type Outcome int

const (
	// Success counts toward closing the breaker.
	Success Outcome = iota
	// Failure counts toward opening the breaker.
	Failure
	// Ignore releases the slot without affecting counters.
	Ignore
)

// ErrOpen is returned by Allow while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

// OpenError carries the time until the breaker will admit a probe.
type OpenError struct {
	Name       string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open, retry after %s", e.Name, e.RetryAfter.Round(time.Millisecond))
}

func (e *OpenError) Unwrap() error {
	return ErrOpen
}

// Config configures a Breaker.
type Config struct {
	// FailureThreshold failures within Window open the breaker.
	FailureThreshold int
	// SuccessThreshold consecutive half-open successes close it again.
	SuccessThreshold int
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// Window bounds how far apart counted failures may be. Zero disables it.
	Window time.Duration
	// HalfOpenMaxRequests caps concurrent probes while half-open.
	HalfOpenMaxRequests int
	// IdleTTL is how long a quiet closed breaker stays in a Registry.
	IdleTTL time.Duration
}

// DefaultConfig returns the standard breaker settings.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:    5,
		SuccessThreshold:    3,
		Timeout:             60 * time.Second,
		Window:              5 * time.Minute,
		HalfOpenMaxRequests: 3,
		IdleTTL:             30 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = d.SuccessThreshold
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.HalfOpenMaxRequests <= 0 {
		c.HalfOpenMaxRequests = c.SuccessThreshold
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = d.IdleTTL
	}
	return c
}

// Snapshot is a read-only view of breaker state.
type Snapshot struct {
	Name                 string     `json:"name"`
	State                State      `json:"state"`
	ConsecutiveFailures  int        `json:"consecutive_failures"`
	ConsecutiveSuccesses int        `json:"consecutive_successes"`
	TotalFailures        uint64     `json:"total_failures"`
	TotalSuccesses       uint64     `json:"total_successes"`
	Rejected             uint64     `json:"rejected"`
	LastFailureAt        *time.Time `json:"last_failure_at,omitempty"`
	OpenedAt             *time.Time `json:"opened_at,omitempty"`
}

// StateChangeFunc observes transitions.
type StateChangeFunc func(name string, from, to State)

// Breaker is a CLOSED/OPEN/HALF_OPEN state machine safe for concurrent use.
type Breaker struct {
	name     string
	cfg      Config
	now      func() time.Time
	logger   *zap.Logger
	onChange StateChangeFunc

	mu                   sync.Mutex
	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	firstFailureAt       time.Time
	lastFailureAt        time.Time
	openedAt             time.Time
	halfOpenInFlight     int
	inFlight             int
	generation           uint64
	lastUsedAt           time.Time
	totalFailures        uint64
	totalSuccesses       uint64
	rejected             uint64
}

// Option customizes a Breaker.
type Option func(*Breaker)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Breaker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithStateChange registers a transition observer. It is called with the
// breaker lock held and must not call back into the breaker.
func WithStateChange(fn StateChangeFunc) Option {
	return func(b *Breaker) { b.onChange = fn }
}

// New creates a closed breaker.
func New(name string, cfg Config, opts ...Option) *Breaker {
	b := &Breaker{
		name:   name,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
		logger: zap.NewNop(),
		state:  StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lastUsedAt = b.now()
	b.logger = b.logger.Named("breaker").With(zap.String("breaker", name))
	return b
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.name
}

// Allow asks permission for one call. On success the returned done func must
// be called exactly once with the call's outcome. Outcomes of calls admitted
// before the last state change are discarded. While open, Allow returns an
// *OpenError without incurring any work.
func (b *Breaker) Allow() (func(Outcome), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.advanceLocked(now)
	b.lastUsedAt = now

	switch b.state {
	case StateOpen:
		b.rejected++
		return nil, &OpenError{Name: b.name, RetryAfter: b.openedAt.Add(b.cfg.Timeout).Sub(now)}
	case StateHalfOpen:
		if b.halfOpenInFlight >= b.cfg.HalfOpenMaxRequests {
			b.rejected++
			return nil, &OpenError{Name: b.name}
		}
		b.halfOpenInFlight++
	}

	b.inFlight++
	var once sync.Once
	gen := b.generation
	return func(o Outcome) {
		once.Do(func() { b.record(o, gen) })
	}, nil
}

// Execute runs fn if the breaker allows it and records its result.
func (b *Breaker) Execute(fn func() error) error {
	done, err := b.Allow()
	if err != nil {
		return err
	}
	if err := fn(); err != nil {
		done(Failure)
		return err
	}
	done(Success)
	return nil
}

func (b *Breaker) record(o Outcome, gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.lastUsedAt = now
	if b.inFlight > 0 {
		b.inFlight--
	}
	if gen != b.generation {
		return
	}
	if b.state == StateHalfOpen && b.halfOpenInFlight > 0 {
		b.halfOpenInFlight--
	}

	switch o {
	case Success:
		b.totalSuccesses++
		b.onSuccessLocked()
	case Failure:
		b.totalFailures++
		b.onFailureLocked(now)
	}
}

func (b *Breaker) onSuccessLocked() {
	switch b.state {
	case StateClosed:
		b.consecutiveFailures = 0
		b.firstFailureAt = time.Time{}
	case StateHalfOpen:
		b.consecutiveSuccesses++
		if b.consecutiveSuccesses >= b.cfg.SuccessThreshold {
			b.transitionLocked(StateClosed, time.Time{})
		}
	}
}

func (b *Breaker) onFailureLocked(now time.Time) {
	b.lastFailureAt = now
	switch b.state {
	case StateClosed:
		if b.cfg.Window > 0 && !b.firstFailureAt.IsZero() && now.Sub(b.firstFailureAt) > b.cfg.Window {
			b.consecutiveFailures = 0
		}
		if b.consecutiveFailures == 0 {
			b.firstFailureAt = now
		}
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			b.transitionLocked(StateOpen, now)
		}
	case StateHalfOpen:
		b.consecutiveFailures++
		b.transitionLocked(StateOpen, now)
	}
}

// advanceLocked moves an open breaker to half-open once its timeout elapsed.
func (b *Breaker) advanceLocked(now time.Time) {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.cfg.Timeout {
		b.transitionLocked(StateHalfOpen, now)
	}
}

func (b *Breaker) transitionLocked(to State, now time.Time) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.generation++
	switch to {
	case StateOpen:
		b.openedAt = now
		b.consecutiveSuccesses = 0
		b.halfOpenInFlight = 0
	case StateHalfOpen:
		b.consecutiveSuccesses = 0
		b.halfOpenInFlight = 0
	case StateClosed:
		b.consecutiveFailures = 0
		b.consecutiveSuccesses = 0
		b.firstFailureAt = time.Time{}
		b.openedAt = time.Time{}
	}
	b.logger.Info("circuit state changed", zap.String("from", string(from)), zap.String("to", string(to)))
	if b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}

// Tick applies time-based transitions without a request. The registry
// monitor calls it periodically.
func (b *Breaker) Tick() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advanceLocked(b.now())
}

// State returns the current state, applying any due timeout transition.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advanceLocked(b.now())
	return b.state
}

func (b *Breaker) touch() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastUsedAt = b.now()
}

// idle reports whether the breaker is closed with a clean record, has no
// calls outstanding and has not been used for ttl.
func (b *Breaker) idle(ttl time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateClosed &&
		b.consecutiveFailures == 0 &&
		b.inFlight == 0 &&
		b.now().Sub(b.lastUsedAt) >= ttl
}

// Reset forces the breaker closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionLocked(StateClosed, time.Time{})
	b.consecutiveFailures = 0
}

// Snapshot returns a read-only view of the breaker.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Snapshot{
		Name:                 b.name,
		State:                b.state,
		ConsecutiveFailures:  b.consecutiveFailures,
		ConsecutiveSuccesses: b.consecutiveSuccesses,
		TotalFailures:        b.totalFailures,
		TotalSuccesses:       b.totalSuccesses,
		Rejected:             b.rejected,
	}
	if !b.lastFailureAt.IsZero() {
		t := b.lastFailureAt
		s.LastFailureAt = &t
	}
	if !b.openedAt.IsZero() {
		t := b.openedAt
		s.OpenedAt = &t
	}
	return s
}
