package claimstore

import (
	"context"
	"sync"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// MemoryStore is the simplest Store implementation: an in-process map, used
// by tests; the controlplane command does not offer it as a -store mode.
// Every ApplyClaim reports StandaloneOnly since there is no orchestrator to
// reconcile the document.
type MemoryStore struct {
	mu     sync.RWMutex
	claims map[Key]*unstructured.Unstructured
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{claims: make(map[Key]*unstructured.Unstructured)}
}

func (m *MemoryStore) GetClaim(_ context.Context, key Key) (*unstructured.Unstructured, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.claims[key]
	if !ok {
		return nil, ErrNotFound
	}
	return c.DeepCopy(), nil
}

func (m *MemoryStore) ApplyClaim(_ context.Context, key Key, claim *unstructured.Unstructured) (ApplyOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims[key] = claim.DeepCopy()
	return StandaloneOnly, nil
}

func (m *MemoryStore) DeleteClaim(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.claims[key]; !ok {
		return ErrNotFound
	}
	delete(m.claims, key)
	return nil
}

func (m *MemoryStore) ConnectionSecretExists(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}
