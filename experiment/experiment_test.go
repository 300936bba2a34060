package experiment

import (
	"testing"

	"github.com/GoCodeAlone/cellplacement/placement"
)

func TestBucketIsDeterministic(t *testing.T) {
	a := bucket("exp-1", "orders-db")
	b := bucket("exp-1", "orders-db")
	if a != b {
		t.Fatalf("bucket must be deterministic for the same inputs, got %v and %v", a, b)
	}
}

func TestBucketVariesByName(t *testing.T) {
	a := bucket("exp-1", "orders-db")
	b := bucket("exp-1", "inventory-db")
	if a == b {
		t.Skip("hash collision between these two names is plausible but unlikely; not a correctness failure")
	}
}

func TestAssignArmAlwaysControlAtZeroTraffic(t *testing.T) {
	specs := []placement.ExperimentSpec{{ID: "exp-1", TrafficPercentage: 0}}
	for _, name := range []string{"a", "b", "c", "orders-db"} {
		arm, _ := AssignArm(specs, name)
		if arm != nil {
			t.Fatalf("expected control (nil) at trafficPercentage=0 for %q, got %+v", name, arm)
		}
	}
}

func TestAssignArmAlwaysVariantAtFullTraffic(t *testing.T) {
	specs := []placement.ExperimentSpec{{ID: "exp-1", TrafficPercentage: 1.0}}
	for _, name := range []string{"a", "b", "c", "orders-db"} {
		arm, spec := AssignArm(specs, name)
		if arm == nil || arm.Arm != placement.ArmVariant {
			t.Fatalf("expected variant at trafficPercentage=1.0 for %q, got %+v", name, arm)
		}
		if spec == nil || spec.ID != "exp-1" {
			t.Fatalf("expected matched spec exp-1, got %+v", spec)
		}
	}
}

func TestAssignArmFirstMatchWins(t *testing.T) {
	specs := []placement.ExperimentSpec{
		{ID: "exp-a", TrafficPercentage: 1.0},
		{ID: "exp-b", TrafficPercentage: 1.0},
	}
	_, spec := AssignArm(specs, "orders-db")
	if spec == nil || spec.ID != "exp-a" {
		t.Fatalf("expected first experiment in order to win, got %+v", spec)
	}
}

func TestActiveFiltersByTierAndPreservesOrder(t *testing.T) {
	s := NewStore()
	low := placement.TierLow
	if err := s.Create(placement.ExperimentSpec{ID: "a", Tier: &low}); err != nil {
		t.Fatal(err)
	}
	if err := s.Create(placement.ExperimentSpec{ID: "b"}); err != nil {
		t.Fatal(err)
	}
	critical := placement.TierCritical
	if err := s.Create(placement.ExperimentSpec{ID: "c", Tier: &critical}); err != nil {
		t.Fatal(err)
	}

	active := s.Active(placement.TierLow)
	if len(active) != 2 || active[0].ID != "a" || active[1].ID != "b" {
		t.Fatalf("expected [a, b] active for tier low, got %+v", active)
	}
}

func TestCreateDuplicateID(t *testing.T) {
	s := NewStore()
	if err := s.Create(placement.ExperimentSpec{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Create(placement.ExperimentSpec{ID: "a"}); err == nil {
		t.Fatal("expected ErrDuplicateID on re-creation of the same id")
	}
}

func TestDeletePreservesOrderOfRemaining(t *testing.T) {
	s := NewStore()
	s.Create(placement.ExperimentSpec{ID: "a"})
	s.Create(placement.ExperimentSpec{ID: "b"})
	s.Create(placement.ExperimentSpec{ID: "c"})
	s.Delete("b")

	list := s.List()
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "c" {
		t.Fatalf("expected [a, c] after deleting b, got %+v", list)
	}
}
