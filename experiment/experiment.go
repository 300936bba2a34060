// Package experiment implements deterministic, process- and release-stable
// A/B bucketing for placement requests. The hash function is specified
// exactly (64-bit FNV-1a over "<experimentId>:<requestName>") because arm
// assignment is part of the externally observable audit contract.
package experiment

import (
	"hash/fnv"
	"sync"

	"github.com/GoCodeAlone/cellplacement/placement"
)

const buckets = 10_000

// bucket returns a deterministic value in [0, 1) for (experimentID, name).
// It must never change across processes, platforms, or releases.
func bucket(experimentID, name string) float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(experimentID))
	_, _ = h.Write([]byte(":"))
	_, _ = h.Write([]byte(name))
	return float64(h.Sum64()%buckets) / float64(buckets)
}

// ErrDuplicateID is returned when Store.Create is given an id already in use.
type ErrDuplicateID struct{ ID string }

func (e ErrDuplicateID) Error() string { return "experiment id already exists: " + e.ID }

// Store holds the mutable, operator-managed set of experiments, guarded by a
// single RWMutex per spec.md 5. Creation order is preserved because arm
// assignment must try experiments in that order and the first match wins.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]placement.ExperimentSpec
	order   []string
}

// NewStore creates an empty experiment store.
func NewStore() *Store {
	return &Store{byID: make(map[string]placement.ExperimentSpec)}
}

// Create registers a new experiment. Returns ErrDuplicateID if the id is
// already in use.
func (s *Store) Create(spec placement.ExperimentSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[spec.ID]; ok {
		return ErrDuplicateID{ID: spec.ID}
	}
	s.byID[spec.ID] = spec
	s.order = append(s.order, spec.ID)
	return nil
}

// Get returns the experiment with the given id.
func (s *Store) Get(id string) (placement.ExperimentSpec, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	spec, ok := s.byID[id]
	return spec, ok
}

// Delete removes an experiment by id.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return
	}
	delete(s.byID, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// List returns all experiments in creation order.
func (s *Store) List() []placement.ExperimentSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]placement.ExperimentSpec, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Active returns experiments scoped to tier (or unscoped), in creation order,
// for AssignArm to iterate.
func (s *Store) Active(tier placement.TierID) []placement.ExperimentSpec {
	all := s.List()
	out := make([]placement.ExperimentSpec, 0, len(all))
	for _, e := range all {
		if e.Tier == nil || *e.Tier == tier {
			out = append(out, e)
		}
	}
	return out
}

// AssignArm iterates experiments (in creation order, tier-scoped) and
// returns the first whose traffic bucket assigns request.Name to variant.
// Returns nil, nil if no experiment claims the request -- the caller treats
// that as plain "control" with no weight override.
func AssignArm(experiments []placement.ExperimentSpec, requestName string) (*placement.ExperimentAssignment, *placement.ExperimentSpec) {
	for i := range experiments {
		e := experiments[i]
		b := bucket(e.ID, requestName)
		if b < e.TrafficPercentage {
			return &placement.ExperimentAssignment{ExperimentID: e.ID, Arm: placement.ArmVariant}, &e
		}
	}
	return nil, nil
}
