package claim

import (
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/GoCodeAlone/cellplacement/placement"
	"github.com/GoCodeAlone/cellplacement/product"
)

func testDef() product.Definition {
	return product.Definition{
		Name:             "mysql",
		APIVersion:       "database.example.org/v1alpha1",
		Kind:             "MySQLInstance",
		CompositionClass: "mysql-standard",
		CompositionGroup: "database.example.org",
	}
}

func testRequest() placement.Request {
	return placement.Request{
		Product:   "mysql",
		Namespace: "team-payments",
		Name:      "orders-db",
		Cell:      "primary",
		Tier:      placement.TierCritical,
	}
}

func testPlacement() placement.Placement {
	return placement.Placement{
		Provider:       "aws",
		Region:         "us-east-1",
		RuntimeCluster: "aws-use1-a",
		Network:        map[string]string{"vpc": "vpc-use1-prod"},
	}
}

func TestBuildSetsCoreFields(t *testing.T) {
	obj, err := Build(testDef(), testRequest(), testPlacement(), placement.Reason{}, map[string]any{"version": "8.0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj.GetAPIVersion() != "database.example.org/v1alpha1" {
		t.Fatalf("unexpected apiVersion: %v", obj.GetAPIVersion())
	}
	if obj.GetKind() != "MySQLInstance" {
		t.Fatalf("unexpected kind: %v", obj.GetKind())
	}
	if obj.GetNamespace() != "team-payments" || obj.GetName() != "orders-db" {
		t.Fatalf("unexpected namespace/name: %s/%s", obj.GetNamespace(), obj.GetName())
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	def := testDef()
	req := testRequest()
	p := testPlacement()
	reason := placement.Reason{Tier: placement.TierCritical, Selected: placement.ScoredCandidate{Provider: "aws", Region: "us-east-1", Total: 0.9}}
	params := map[string]any{"version": "8.0"}

	a, err := Build(def, req, p, reason, params)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build(def, req, p, reason, params)
	if err != nil {
		t.Fatal(err)
	}

	diff, err := Diff(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if diff {
		t.Fatal("re-invoking Build with identical inputs must yield byte-identical output")
	}
}

func TestBuildSetsCompositionSelector(t *testing.T) {
	obj, err := Build(testDef(), testRequest(), testPlacement(), placement.Reason{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	labels, found, err := unstructured.NestedStringMap(obj.Object, "spec", "compositionSelector", "matchLabels")
	if err != nil || !found {
		t.Fatalf("expected matchLabels to be set, found=%v err=%v", found, err)
	}
	if labels["database.example.org/provider"] != "aws" {
		t.Fatalf("expected provider label aws, got %+v", labels)
	}
	if labels["database.example.org/class"] != "mysql-standard" {
		t.Fatalf("expected class label mysql-standard, got %+v", labels)
	}
}

func TestExtractReasonRoundTrips(t *testing.T) {
	reason := placement.Reason{
		Tier:     placement.TierCritical,
		Selected: placement.ScoredCandidate{Provider: "aws", Region: "us-east-1", Total: 0.87},
	}
	obj, err := Build(testDef(), testRequest(), testPlacement(), reason, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ExtractReason(obj)
	if err != nil {
		t.Fatal(err)
	}
	if got.Selected.Provider != "aws" || got.Selected.Total != 0.87 {
		t.Fatalf("reason did not round-trip: %+v", got)
	}
}

func TestExtractPlacementRoundTrips(t *testing.T) {
	p := testPlacement()
	obj, err := Build(testDef(), testRequest(), p, placement.Reason{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ExtractPlacement(obj)
	if err != nil {
		t.Fatal(err)
	}
	if got.Provider != p.Provider || got.Region != p.Region || got.RuntimeCluster != p.RuntimeCluster {
		t.Fatalf("placement did not round-trip: got %+v, want %+v", got, p)
	}
}

func TestExtractRequestRoundTrips(t *testing.T) {
	req := testRequest()
	obj, err := Build(testDef(), req, testPlacement(), placement.Reason{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ExtractRequest(obj)
	if err != nil {
		t.Fatal(err)
	}
	if got.Cell != req.Cell || got.Tier != req.Tier || got.Namespace != req.Namespace {
		t.Fatalf("request did not round-trip: got %+v, want %+v", got, req)
	}
}
