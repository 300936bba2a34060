// Package breaker tracks per-provider health and circuit-breaker state.
// Eligibility is the scheduler's only read from this package; state
// transitions are fed externally via RecordSuccess/RecordFailure and the
// operator health API.
package breaker

import (
	"sync"
	"time"
)

// State is one of the three circuit-breaker states.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

const (
	defaultFailureThreshold = 5
	defaultCooldownSeconds  = 60
)

// providerState holds one provider's health bit and breaker state.
type providerState struct {
	healthy          bool
	state            State
	failureCount     int
	failureThreshold int
	cooldownSeconds  int
	openedAt         time.Time
}

// Registry is the shared, mutex-guarded store of per-provider health and
// circuit-breaker state described in spec.md 4.2 and 5. A single RWMutex
// protects the whole map: reads (eligibility checks) happen on every
// scheduling call, writes only from operator API calls and
// RecordSuccess/RecordFailure.
type Registry struct {
	mu       sync.RWMutex
	states   map[string]*providerState
	now      func() time.Time
	failureThreshold int
	cooldownSeconds  int
}

// Option configures a Registry at construction.
type Option func(*Registry)

// WithFailureThreshold overrides the default consecutive-failure threshold
// (5) applied to every provider the registry creates.
func WithFailureThreshold(n int) Option {
	return func(r *Registry) { r.failureThreshold = n }
}

// WithCooldownSeconds overrides the default open-state cooldown (60s).
func WithCooldownSeconds(n int) Option {
	return func(r *Registry) { r.cooldownSeconds = n }
}

// NewRegistry creates an empty Registry. Providers are lazily created on
// first reference, defaulting to healthy=true and state=Closed.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		states:           make(map[string]*providerState),
		now:              time.Now,
		failureThreshold: defaultFailureThreshold,
		cooldownSeconds:  defaultCooldownSeconds,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) getOrCreateLocked(provider string) *providerState {
	ps, ok := r.states[provider]
	if !ok {
		ps = &providerState{
			healthy:          true,
			state:            Closed,
			failureThreshold: r.failureThreshold,
			cooldownSeconds:  r.cooldownSeconds,
		}
		r.states[provider] = ps
	}
	return ps
}

// effectiveState checked against now the way spec.md 4.2 specifies: OPEN
// transitions to HALF_OPEN lazily, on read, once the cooldown has elapsed.
// Caller must hold r.mu.
func (r *Registry) effectiveStateLocked(ps *providerState) State {
	if ps.state == Open && r.now().Sub(ps.openedAt) >= time.Duration(ps.cooldownSeconds)*time.Second {
		return HalfOpen
	}
	return ps.state
}

// Eligible reports whether provider is usable: health=true AND breaker state
// in {CLOSED, HALF_OPEN}.
func (r *Registry) Eligible(provider string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ps := r.getOrCreateLocked(provider)
	if !ps.healthy {
		return false
	}
	eff := r.effectiveStateLocked(ps)
	if eff == HalfOpen && ps.state == Open {
		// Persist the lazy transition so Snapshot reflects it too.
		ps.state = HalfOpen
		ps.openedAt = r.now()
	}
	return eff == Closed || eff == HalfOpen
}

// SetHealth sets the operator-controlled health bit for provider.
func (r *Registry) SetHealth(provider string, healthy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ps := r.getOrCreateLocked(provider)
	ps.healthy = healthy
}

// Health returns the operator-controlled health bit for provider.
func (r *Registry) Health(provider string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ps, ok := r.states[provider]
	if !ok {
		return true
	}
	return ps.healthy
}

// RecordSuccess records a successful downstream operation for provider.
func (r *Registry) RecordSuccess(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ps := r.getOrCreateLocked(provider)

	switch r.effectiveStateLocked(ps) {
	case Closed:
		ps.failureCount = 0
	case HalfOpen:
		ps.state = Closed
		ps.failureCount = 0
		ps.openedAt = time.Time{}
	}
}

// RecordFailure records a failed downstream operation for provider.
func (r *Registry) RecordFailure(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ps := r.getOrCreateLocked(provider)

	switch r.effectiveStateLocked(ps) {
	case Closed:
		ps.failureCount++
		if ps.failureCount >= ps.failureThreshold {
			ps.state = Open
			ps.openedAt = r.now()
		}
	case HalfOpen:
		ps.state = Open
		ps.failureCount = ps.failureThreshold
		ps.openedAt = r.now()
	case Open:
		ps.openedAt = r.now()
	}
}

// Snapshot is a read-only view of one provider's breaker state, for the
// /api/providers/health read path.
type Snapshot struct {
	Provider         string    `json:"provider"`
	Healthy          bool      `json:"healthy"`
	State            string    `json:"state"`
	FailureCount     int       `json:"failureCount"`
	FailureThreshold int       `json:"failureThreshold"`
	CooldownSeconds  int       `json:"cooldownSeconds"`
	OpenedAt         time.Time `json:"openedAt,omitempty"`
}

// All returns a snapshot of every provider the registry has observed.
func (r *Registry) All() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Snapshot, 0, len(r.states))
	for provider, ps := range r.states {
		out = append(out, Snapshot{
			Provider:         provider,
			Healthy:          ps.healthy,
			State:            r.effectiveStateLocked(ps).String(),
			FailureCount:     ps.failureCount,
			FailureThreshold: ps.failureThreshold,
			CooldownSeconds:  ps.cooldownSeconds,
			OpenedAt:         ps.openedAt,
		})
	}
	return out
}
