// Package flags implements process-wide named boolean switches that the
// scheduler consults while resolving scoring weights (spec.md 4.1, C6). This
// is deliberately a plain CRUD map, not a remote-eval SaaS client: the
// teacher's featureflag package wires SSE streaming and pluggable backends
// (generic/launchdarkly) that this domain has no use for -- there is no
// requirement to stream flag changes to a remote agent, just to flip a named
// switch the scheduler reads on its next call.
package flags

import "sync"

// PreferCostOptimization is the one flag named explicitly in spec.md 4.1;
// operators may also define arbitrary named flags for future scheduler
// extensions.
const PreferCostOptimization = "prefer_cost_optimization"

// Store is the mutable, operator-managed set of feature flags.
type Store struct {
	mu    sync.RWMutex
	flags map[string]bool
}

// NewStore creates an empty flag store. All named flags default to false
// (absent) until set.
func NewStore() *Store {
	return &Store{flags: make(map[string]bool)}
}

// Set enables or disables the named flag.
func (s *Store) Set(name string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[name] = enabled
}

// Delete removes a flag, equivalent to setting it back to its false default.
func (s *Store) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flags, name)
}

// Enabled reports whether the named flag is currently set.
func (s *Store) Enabled(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[name]
}

// List returns a snapshot of every flag the store has an opinion on.
func (s *Store) List() []Flag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Flag, 0, len(s.flags))
	for name, enabled := range s.flags {
		out = append(out, Flag{Name: name, Enabled: enabled})
	}
	return out
}

// Flag is the wire representation of one flag for list/read endpoints.
type Flag struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}
