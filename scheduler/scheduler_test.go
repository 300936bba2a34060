package scheduler

import (
	"reflect"
	"testing"

	"github.com/GoCodeAlone/cellplacement/placement"
)

func businessCriticalTier() placement.TierSpec {
	return placement.TierSpec{
		ID:                   placement.TierBusinessCritical,
		RTOMinutes:           15,
		RPOMinutes:           5,
		RequiredCapabilities: []placement.Capability{placement.CapabilityPITR},
		Weights:              placement.Weights{Latency: 0.3, DR: 0.4, Maturity: 0.2, Cost: 0.1},
		FailoverRequired:     true,
	}
}

func awsCandidate() placement.Candidate {
	return placement.Candidate{
		Provider:     "aws",
		Region:       "us-east-1",
		Capabilities: []placement.Capability{placement.CapabilityPITR, placement.CapabilityMultiAZ},
		BaselineScores: placement.Weights{Latency: 0.9, DR: 0.8, Maturity: 0.95, Cost: 0.5},
		Healthy:      true,
	}
}

func gcpCandidate() placement.Candidate {
	return placement.Candidate{
		Provider:     "gcp",
		Region:       "us-central1",
		Capabilities: []placement.Capability{placement.CapabilityPITR, placement.CapabilityMultiAZ},
		BaselineScores: placement.Weights{Latency: 0.85, DR: 0.9, Maturity: 0.7, Cost: 0.6},
		Healthy:      true,
	}
}

func TestScheduleSelectsHighestScoringCandidate(t *testing.T) {
	in := Input{
		Request:    placement.Request{Name: "orders-db"},
		Tier:       businessCriticalTier(),
		Candidates: []placement.Candidate{awsCandidate(), gcpCandidate()},
	}

	placed, reason, err := Schedule(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if placed.Provider != reason.Selected.Provider {
		t.Fatalf("placement provider %q does not match reason.Selected %q", placed.Provider, reason.Selected.Provider)
	}

	for _, sc := range reason.Top3 {
		if sc.Total > reason.Selected.Total {
			t.Fatalf("selected candidate is not the max: %+v beats %+v", sc, reason.Selected)
		}
	}

	found := false
	for _, sc := range reason.Top3 {
		if sc.Provider == reason.Selected.Provider && sc.Region == reason.Selected.Region {
			found = true
		}
	}
	if !found {
		t.Fatal("selected candidate must appear in top3")
	}
}

func TestScheduleIsDeterministic(t *testing.T) {
	in := Input{
		Request:    placement.Request{Name: "orders-db"},
		Tier:       businessCriticalTier(),
		Candidates: []placement.Candidate{awsCandidate(), gcpCandidate()},
	}

	p1, r1, _ := Schedule(in)
	p2, r2, _ := Schedule(in)
	if !reflect.DeepEqual(p1, p2) {
		t.Fatalf("placement not deterministic: %+v != %+v", p1, p2)
	}
	if r1.Selected != r2.Selected {
		t.Fatalf("reason not deterministic: %+v != %+v", r1.Selected, r2.Selected)
	}
}

func TestScheduleFailoverPicksDifferentProvider(t *testing.T) {
	in := Input{
		Request:    placement.Request{Name: "orders-db"},
		Tier:       businessCriticalTier(),
		Candidates: []placement.Candidate{awsCandidate(), gcpCandidate()},
	}

	_, reason, err := Schedule(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reason.FailoverUnavailable {
		t.Fatal("expected failover to be available with two providers")
	}
	if reason.Failover == nil {
		t.Fatal("expected non-nil failover")
	}
	if reason.Failover.Provider == reason.Selected.Provider {
		t.Fatalf("failover provider must differ from selected: both %q", reason.Selected.Provider)
	}
}

func TestScheduleFailoverUnavailableWithSingleProvider(t *testing.T) {
	in := Input{
		Request:    placement.Request{Name: "orders-db"},
		Tier:       businessCriticalTier(),
		Candidates: []placement.Candidate{awsCandidate()},
	}

	_, reason, err := Schedule(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reason.FailoverUnavailable {
		t.Fatal("expected failover unavailable with only one provider")
	}
	if reason.Failover != nil {
		t.Fatal("expected nil failover")
	}
}

func TestScheduleGateFilterExcludesMissingCapability(t *testing.T) {
	noPITR := awsCandidate()
	noPITR.Capabilities = []placement.Capability{placement.CapabilityMultiAZ}

	in := Input{
		Request:    placement.Request{Name: "orders-db"},
		Tier:       businessCriticalTier(),
		Candidates: []placement.Candidate{noPITR, gcpCandidate()},
	}

	_, reason, err := Schedule(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reason.Excluded) != 1 {
		t.Fatalf("expected 1 excluded candidate, got %d: %+v", len(reason.Excluded), reason.Excluded)
	}
	if reason.Excluded[0].Provider != "aws" {
		t.Fatalf("expected aws excluded, got %q", reason.Excluded[0].Provider)
	}
	if reason.Selected.Provider != "gcp" {
		t.Fatalf("expected gcp selected, got %q", reason.Selected.Provider)
	}
}

func TestScheduleNoViableCandidate(t *testing.T) {
	unhealthy := awsCandidate()
	unhealthy.Healthy = false

	in := Input{
		Request:    placement.Request{Name: "orders-db"},
		Tier:       businessCriticalTier(),
		Candidates: []placement.Candidate{unhealthy},
	}

	_, _, err := Schedule(in)
	nvc, ok := err.(ErrNoViableCandidate)
	if !ok {
		t.Fatalf("expected ErrNoViableCandidate, got %v", err)
	}
	if len(nvc.Excluded) != 0 {
		t.Fatalf("health-filtered candidates should not appear in gate-excluded list, got %+v", nvc.Excluded)
	}
}

func TestScheduleHAAddsMultiAZGate(t *testing.T) {
	noHA := awsCandidate()
	noHA.Capabilities = []placement.Capability{placement.CapabilityPITR}

	tier := businessCriticalTier()
	in := Input{
		Request:    placement.Request{Name: "orders-db"},
		Tier:       tier,
		HA:         true,
		Candidates: []placement.Candidate{noHA},
	}

	_, _, err := Schedule(in)
	nvc, ok := err.(ErrNoViableCandidate)
	if !ok {
		t.Fatalf("expected ErrNoViableCandidate (missing multi_az under HA), got %v", err)
	}
	if len(nvc.Excluded) != 1 || nvc.Excluded[0].GateFailures[0] != placement.CapabilityMultiAZ {
		t.Fatalf("expected multi_az gate failure, got %+v", nvc.Excluded)
	}
}

func TestScheduleExcludeProvidersIsHonored(t *testing.T) {
	in := Input{
		Request:          placement.Request{Name: "orders-db"},
		Tier:             businessCriticalTier(),
		Candidates:       []placement.Candidate{awsCandidate(), gcpCandidate()},
		ExcludeProviders: map[string]bool{"aws": true},
	}

	_, reason, err := Schedule(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reason.Selected.Provider != "gcp" {
		t.Fatalf("expected gcp selected after excluding aws, got %q", reason.Selected.Provider)
	}
	if reason.CandidatesEvaluated != 2 {
		t.Fatalf("expected 2 candidates evaluated, got %d", reason.CandidatesEvaluated)
	}
}
