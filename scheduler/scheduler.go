// Package scheduler implements the placement pipeline: health filter, hard
// gate filter, weighted scoring, deterministic ranking, primary selection,
// and cross-cloud failover selection. The scheduler is a pure function of
// its inputs -- it holds no mutable state across invocations, per spec.md 5.
package scheduler

import (
	"sort"

	"github.com/GoCodeAlone/cellplacement/experiment"
	"github.com/GoCodeAlone/cellplacement/placement"
	"github.com/GoCodeAlone/cellplacement/policy"
)

// ErrNoViableCandidate is returned when every candidate was excluded by
// health or gates.
type ErrNoViableCandidate struct {
	Excluded []placement.ExcludedCandidate
}

func (e ErrNoViableCandidate) Error() string { return "no viable candidate" }

// HealthView answers whether a provider is currently eligible (health bit AND
// breaker state), matching breaker.Registry's read surface without the
// scheduler importing the breaker package directly -- the scheduler consumes
// eligibility only, per spec.md 4.2.
type HealthView interface {
	Eligible(provider string) bool
}

// Input bundles everything the scheduler pipeline needs for one request.
type Input struct {
	Request          placement.Request
	Tier             placement.TierSpec
	HA               bool
	Candidates       []placement.Candidate
	Health           HealthView
	Experiments      []placement.ExperimentSpec
	PreferCostOptimization bool
	ExcludeProviders map[string]bool
}

// Schedule runs the full pipeline described in spec.md 4.4 and returns the
// winning Placement plus its audit Reason. On failure it returns
// ErrNoViableCandidate carrying the excluded report.
func Schedule(in Input) (placement.Placement, placement.Reason, error) {
	evaluated := len(in.Candidates)

	// 1. Health filter.
	var afterHealth []placement.Candidate
	for _, c := range in.Candidates {
		if in.ExcludeProviders[c.Provider] {
			continue
		}
		if !c.Healthy {
			continue
		}
		if in.Health != nil && !in.Health.Eligible(c.Provider) {
			continue
		}
		afterHealth = append(afterHealth, c)
	}
	healthy := len(afterHealth)

	// 2. Arm assignment + effective weights.
	arm, expSpec := experiment.AssignArm(in.Experiments, in.Request.Name)
	weights := policy.EffectiveWeights(in.Tier, arm, expSpec, in.PreferCostOptimization)

	// 3. Gate filter.
	gates := policy.EffectiveGates(in.Tier, in.HA)
	var survivors []placement.Candidate
	var excluded []placement.ExcludedCandidate
	for _, c := range afterHealth {
		missing := c.MissingCapabilities(gates)
		if len(missing) > 0 {
			excluded = append(excluded, placement.ExcludedCandidate{
				Provider:     c.Provider,
				Region:       c.Region,
				GateFailures: missing,
			})
			continue
		}
		survivors = append(survivors, c)
	}
	passedGates := len(survivors)

	// 4. Scoring.
	scored := make([]placement.ScoredCandidate, 0, len(survivors))
	byKey := make(map[string]placement.Candidate, len(survivors))
	for _, c := range survivors {
		sub := placement.Weights{
			Latency:  c.BaselineScores.Latency * weights.Latency,
			DR:       c.BaselineScores.DR * weights.DR,
			Maturity: c.BaselineScores.Maturity * weights.Maturity,
			Cost:     c.BaselineScores.Cost * weights.Cost,
		}
		total := sub.Latency + sub.DR + sub.Maturity + sub.Cost
		sc := placement.ScoredCandidate{
			Provider:  c.Provider,
			Region:    c.Region,
			SubScores: sub,
			Total:     total,
		}
		scored = append(scored, sc)
		byKey[candidateKey(c.Provider, c.Region)] = c
	}

	// 5. Ranking: descending total, then higher dr sub-score, then
	// lexicographic (provider, region) ascending.
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		if a.SubScores.DR != b.SubScores.DR {
			return a.SubScores.DR > b.SubScores.DR
		}
		if a.Provider != b.Provider {
			return a.Provider < b.Provider
		}
		return a.Region < b.Region
	})

	if len(scored) == 0 {
		return placement.Placement{}, placement.Reason{}, ErrNoViableCandidate{Excluded: excluded}
	}

	winner := scored[0]
	winnerCandidate := byKey[candidateKey(winner.Provider, winner.Region)]

	// 7. Failover selection.
	var failover *placement.Placement
	failoverUnavailable := false
	if in.Tier.FailoverRequired {
		for _, sc := range scored {
			if sc.Provider != winner.Provider {
				cand := byKey[candidateKey(sc.Provider, sc.Region)]
				failover = &placement.Placement{
					Provider:       cand.Provider,
					Region:         cand.Region,
					RuntimeCluster: cand.RuntimeCluster,
					Network:        cand.Network,
				}
				break
			}
		}
		if failover == nil {
			failoverUnavailable = true
		}
	}

	top3 := scored
	if len(top3) > 3 {
		top3 = top3[:3]
	}

	reason := placement.Reason{
		Tier:                  in.Tier.ID,
		RTOMinutes:            in.Tier.RTOMinutes,
		RPOMinutes:            in.Tier.RPOMinutes,
		Gates:                 gates,
		HAEnforced:            in.HA,
		Weights:               weights,
		ExperimentArm:         arm,
		Selected:              winner,
		Top3:                  append([]placement.ScoredCandidate{}, top3...),
		Excluded:              excluded,
		CandidatesEvaluated:   evaluated,
		CandidatesHealthy:     healthy,
		CandidatesPassedGates: passedGates,
		Failover:              failover,
		FailoverUnavailable:   failoverUnavailable,
	}

	result := placement.Placement{
		Provider:       winnerCandidate.Provider,
		Region:         winnerCandidate.Region,
		RuntimeCluster: winnerCandidate.RuntimeCluster,
		Network:        winnerCandidate.Network,
	}

	return result, reason, nil
}

func candidateKey(provider, region string) string { return provider + "/" + region }
