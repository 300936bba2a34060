package claimstore

import (
	"context"
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func TestMemoryStoreGetNotFound(t *testing.T) {
	m := NewMemoryStore()
	if _, err := m.GetClaim(context.Background(), Key{Product: "mysql", Namespace: "ns", Name: "x"}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreApplyThenGet(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	key := Key{Product: "mysql", Namespace: "ns", Name: "x"}
	claim := &unstructured.Unstructured{Object: map[string]any{"kind": "MySQLInstance"}}

	outcome, err := m.ApplyClaim(ctx, key, claim)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != StandaloneOnly {
		t.Fatalf("expected StandaloneOnly, got %v", outcome)
	}

	got, err := m.GetClaim(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if got.Object["kind"] != "MySQLInstance" {
		t.Fatalf("unexpected claim: %+v", got.Object)
	}
}

func TestMemoryStoreApplyDoesNotAliasCallerObject(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	key := Key{Product: "mysql", Namespace: "ns", Name: "x"}
	claim := &unstructured.Unstructured{Object: map[string]any{"kind": "MySQLInstance"}}

	m.ApplyClaim(ctx, key, claim)
	claim.Object["kind"] = "mutated"

	got, _ := m.GetClaim(ctx, key)
	if got.Object["kind"] != "MySQLInstance" {
		t.Fatal("ApplyClaim must deep-copy the input, not alias it")
	}
}

func TestMemoryStoreDeleteNotFound(t *testing.T) {
	m := NewMemoryStore()
	if err := m.DeleteClaim(context.Background(), Key{Product: "mysql", Namespace: "ns", Name: "x"}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreDeleteThenGetNotFound(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	key := Key{Product: "mysql", Namespace: "ns", Name: "x"}
	m.ApplyClaim(ctx, key, &unstructured.Unstructured{Object: map[string]any{}})

	if err := m.DeleteClaim(ctx, key); err != nil {
		t.Fatal(err)
	}
	if _, err := m.GetClaim(ctx, key); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStoreConnectionSecretNeverExists(t *testing.T) {
	m := NewMemoryStore()
	exists, err := m.ConnectionSecretExists(context.Background(), "ns", "x")
	if err != nil || exists {
		t.Fatalf("in-memory store has no secret backend, expected false/nil, got %v/%v", exists, err)
	}
}
