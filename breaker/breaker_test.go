package breaker

import (
	"testing"
	"time"
)

func TestEligibleDefaultsToTrue(t *testing.T) {
	r := NewRegistry()
	if !r.Eligible("aws") {
		t.Fatal("a never-seen provider should default to eligible")
	}
}

func TestOpensAfterFailureThreshold(t *testing.T) {
	r := NewRegistry(WithFailureThreshold(3))
	for i := 0; i < 2; i++ {
		r.RecordFailure("aws")
	}
	if !r.Eligible("aws") {
		t.Fatal("should remain eligible below threshold")
	}
	r.RecordFailure("aws")
	if r.Eligible("aws") {
		t.Fatal("should be ineligible at threshold")
	}
}

func TestHalfOpenAfterCooldown(t *testing.T) {
	now := time.Now()
	r := NewRegistry(WithFailureThreshold(1), WithCooldownSeconds(60))
	r.now = func() time.Time { return now }

	r.RecordFailure("aws")
	if r.Eligible("aws") {
		t.Fatal("should be open immediately after breaching threshold")
	}

	r.now = func() time.Time { return now.Add(61 * time.Second) }
	if !r.Eligible("aws") {
		t.Fatal("should be half-open (eligible) after cooldown elapses")
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	r := NewRegistry(WithFailureThreshold(1), WithCooldownSeconds(60))
	r.now = func() time.Time { return now }
	r.RecordFailure("aws")

	r.now = func() time.Time { return now.Add(61 * time.Second) }
	if !r.Eligible("aws") {
		t.Fatal("expected half-open probe to be eligible")
	}
	r.RecordFailure("aws")
	if r.Eligible("aws") {
		t.Fatal("a failure during half-open must reopen the breaker")
	}
}

func TestHalfOpenSuccessCloses(t *testing.T) {
	now := time.Now()
	r := NewRegistry(WithFailureThreshold(1), WithCooldownSeconds(60))
	r.now = func() time.Time { return now }
	r.RecordFailure("aws")

	r.now = func() time.Time { return now.Add(61 * time.Second) }
	if !r.Eligible("aws") {
		t.Fatal("expected half-open probe to be eligible")
	}
	r.RecordSuccess("aws")

	snaps := r.All()
	found := false
	for _, s := range snaps {
		if s.Provider == "aws" {
			found = true
			if s.State != "CLOSED" {
				t.Fatalf("expected CLOSED after half-open success, got %s", s.State)
			}
		}
	}
	if !found {
		t.Fatal("expected aws in snapshot")
	}
}

func TestUnhealthyOverridesBreakerState(t *testing.T) {
	r := NewRegistry()
	r.SetHealth("aws", false)
	if r.Eligible("aws") {
		t.Fatal("operator-marked-unhealthy provider must be ineligible regardless of breaker state")
	}
}

func TestClosedSuccessResetsFailureCount(t *testing.T) {
	r := NewRegistry(WithFailureThreshold(3))
	r.RecordFailure("aws")
	r.RecordFailure("aws")
	r.RecordSuccess("aws")
	r.RecordFailure("aws")
	r.RecordFailure("aws")
	if !r.Eligible("aws") {
		t.Fatal("failure count should have reset on success, so two more failures shouldn't trip the breaker")
	}
}
