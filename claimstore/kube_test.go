package claimstore

import (
	"context"
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic/fake"
)

func newTestKubeStore(t *testing.T, objects ...*unstructured.Unstructured) (*KubeStore, schema.GroupVersionResource) {
	t.Helper()
	gvr := schema.GroupVersionResource{Group: "database.example.org", Version: "v1alpha1", Resource: "mysqlinstances"}
	listKinds := map[schema.GroupVersionResource]string{gvr: "MySQLInstanceList"}

	scheme := runtime.NewScheme()
	runtimeObjs := make([]runtime.Object, len(objects))
	for i, o := range objects {
		runtimeObjs[i] = o
	}
	client := fake.NewSimpleDynamicClientWithCustomListKinds(scheme, listKinds, runtimeObjs...)

	return NewKubeStore(client, map[string]schema.GroupVersionResource{"MySQLInstance": gvr}), gvr
}

func mysqlClaim(namespace, name string) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]any{
		"apiVersion": "database.example.org/v1alpha1",
		"kind":       "MySQLInstance",
		"metadata": map[string]any{
			"name":      name,
			"namespace": namespace,
		},
	}}
}

func TestKubeStoreGetNotFound(t *testing.T) {
	store, _ := newTestKubeStore(t)
	_, err := store.GetClaim(context.Background(), Key{Product: "MySQLInstance", Namespace: "ns", Name: "x"})
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestKubeStoreGetUnknownKindIsDependencyMissing(t *testing.T) {
	store, _ := newTestKubeStore(t)
	_, err := store.GetClaim(context.Background(), Key{Product: "PostgresInstance", Namespace: "ns", Name: "x"})
	if _, ok := err.(ErrDependencyMissing); !ok {
		t.Fatalf("expected ErrDependencyMissing for an unregistered kind, got %v (%T)", err, err)
	}
}

func TestKubeStoreGetExisting(t *testing.T) {
	store, _ := newTestKubeStore(t, mysqlClaim("ns", "x"))
	got, err := store.GetClaim(context.Background(), Key{Product: "MySQLInstance", Namespace: "ns", Name: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if got.GetName() != "x" {
		t.Fatalf("unexpected claim: %+v", got.Object)
	}
}

func TestKubeStoreDeleteThenGetNotFound(t *testing.T) {
	store, _ := newTestKubeStore(t, mysqlClaim("ns", "x"))
	ctx := context.Background()
	key := Key{Product: "MySQLInstance", Namespace: "ns", Name: "x"}

	if err := store.DeleteClaim(ctx, key); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetClaim(ctx, key); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestKubeStoreDeleteNotFound(t *testing.T) {
	store, _ := newTestKubeStore(t)
	err := store.DeleteClaim(context.Background(), Key{Product: "MySQLInstance", Namespace: "ns", Name: "x"})
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestKubeStoreConnectionSecretExists(t *testing.T) {
	secret := &unstructured.Unstructured{Object: map[string]any{
		"apiVersion": "v1",
		"kind":       "Secret",
		"metadata": map[string]any{
			"name":      "orders-db-conn",
			"namespace": "ns",
		},
	}}
	store, _ := newTestKubeStore(t, secret)

	exists, err := store.ConnectionSecretExists(context.Background(), "ns", "orders-db-conn")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("expected connection secret to exist")
	}

	missing, err := store.ConnectionSecretExists(context.Background(), "ns", "does-not-exist")
	if err != nil {
		t.Fatal(err)
	}
	if missing {
		t.Fatal("expected missing secret to report false")
	}
}
