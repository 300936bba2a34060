// Package claimstore is the sticky-store adapter: lookup, apply, and delete
// of Claim documents keyed by {product, namespace, name}, abstracted behind
// an interface so the control plane is not tied to any one orchestrator
// (spec.md 4.7).
package claimstore

import (
	"context"
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// ErrNotFound is returned by Get/Delete when no Claim exists for the key.
var ErrNotFound = errors.New("claim not found")

// ErrDependencyMissing is returned when the orchestrator's CRD for the
// product kind is not installed; the handler layer surfaces this as
// 424 Failed Dependency.
type ErrDependencyMissing struct {
	Kind string
}

func (e ErrDependencyMissing) Error() string {
	return fmt.Sprintf("orchestrator dependency missing: CRD for kind %q is not installed", e.Kind)
}

// ApplyOutcome reports whether an apply reached the orchestrator or only
// persisted locally in standalone mode.
type ApplyOutcome int

const (
	Applied ApplyOutcome = iota
	StandaloneOnly
)

// Key identifies a Claim by its logical resource name.
type Key struct {
	Product   string
	Namespace string
	Name      string
}

// Store is the sticky-store adapter contract. Implementations may block on
// I/O; every call must honor ctx's deadline (spec.md 5: 10s total, 3s per
// attempt, one retry on transient errors -- retries are the caller's
// responsibility via WithRetry, not baked into every implementation).
type Store interface {
	GetClaim(ctx context.Context, key Key) (*unstructured.Unstructured, error)
	ApplyClaim(ctx context.Context, key Key, claim *unstructured.Unstructured) (ApplyOutcome, error)
	DeleteClaim(ctx context.Context, key Key) error
	ConnectionSecretExists(ctx context.Context, namespace, name string) (bool, error)
}
