// KubeStore is the production Store implementation: it applies Claims as
// unstructured.Unstructured resources through client-go's dynamic client,
// the same representation a real Crossplane/Kubernetes orchestrator
// consumes. Apply uses server-side apply semantics so repeated applies with
// the same logical content converge (spec.md 4.7) without the control plane
// needing per-key locks (spec.md 5).
package claimstore

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
)

// fieldManager identifies this control plane's writes for server-side apply
// field ownership.
const fieldManager = "cellplacement-control-plane"

// KubeStore implements Store against a dynamic.Interface.
type KubeStore struct {
	client dynamic.Interface
	// gvrForKind maps a product name (Key.Product) to the GroupVersionResource
	// the orchestrator's CRD for that product's kind registers.
	// DependencyMissing is reported for any product not present here or whose
	// CRD the API server reports unknown.
	gvrForKind map[string]schema.GroupVersionResource
}

// NewKubeStore creates a KubeStore. gvrForKind must be keyed by product name
// and populated from each registered product's {apiVersion, kind} at startup.
func NewKubeStore(client dynamic.Interface, gvrForKind map[string]schema.GroupVersionResource) *KubeStore {
	return &KubeStore{client: client, gvrForKind: gvrForKind}
}

func (s *KubeStore) resourceFor(kind string) (dynamic.NamespaceableResourceInterface, error) {
	gvr, ok := s.gvrForKind[kind]
	if !ok {
		return nil, ErrDependencyMissing{Kind: kind}
	}
	return s.client.Resource(gvr), nil
}

func (s *KubeStore) GetClaim(ctx context.Context, key Key) (*unstructured.Unstructured, error) {
	res, err := s.resourceFor(key.Product)
	if err != nil {
		return nil, err
	}
	obj, err := res.Namespace(key.Namespace).Get(ctx, key.Name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, ErrNotFound
		}
		if meta_IsNoMatchError(err) {
			return nil, ErrDependencyMissing{Kind: key.Product}
		}
		return nil, fmt.Errorf("%w: get claim: %v", ErrUpstreamTransient, err)
	}
	return obj, nil
}

func (s *KubeStore) ApplyClaim(ctx context.Context, key Key, claim *unstructured.Unstructured) (ApplyOutcome, error) {
	res, err := s.resourceFor(key.Product)
	if err != nil {
		return 0, err
	}
	_, err = res.Namespace(key.Namespace).Apply(ctx, key.Name, claim, metav1.ApplyOptions{
		FieldManager: fieldManager,
		Force:        true,
	})
	if err != nil {
		if meta_IsNoMatchError(err) {
			return 0, ErrDependencyMissing{Kind: key.Product}
		}
		return 0, fmt.Errorf("%w: apply claim: %v", ErrUpstreamTransient, err)
	}
	return Applied, nil
}

func (s *KubeStore) DeleteClaim(ctx context.Context, key Key) error {
	res, err := s.resourceFor(key.Product)
	if err != nil {
		return err
	}
	err = res.Namespace(key.Namespace).Delete(ctx, key.Name, metav1.DeleteOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: delete claim: %v", ErrUpstreamTransient, err)
	}
	return nil
}

// ConnectionSecretExists checks only for the secret's presence, never
// reading its contents (spec.md's "no connection-secret data egress"
// non-goal).
func (s *KubeStore) ConnectionSecretExists(ctx context.Context, namespace, name string) (bool, error) {
	gvr := schema.GroupVersionResource{Version: "v1", Resource: "secrets"}
	_, err := s.client.Resource(gvr).Namespace(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: check connection secret: %v", ErrUpstreamTransient, err)
	}
	return true, nil
}

// meta_IsNoMatchError reports whether err indicates the API server has no
// registered resource for the requested kind -- the CRD is not installed.
// resourceFor already catches the common case (a kind absent from
// gvrForKind); this covers the rarer case of a RESTMapper-backed caller
// reporting the same condition after discovery.
func meta_IsNoMatchError(err error) bool {
	return meta.IsNoMatchError(err)
}
