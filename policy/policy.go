// Package policy holds the canonical tier table and the pure functions that
// derive gates and scoring weights from a tier, an HA flag, an optional
// experiment arm, and feature flags.
package policy

import (
	"fmt"
	"math"
	"sync"

	"github.com/GoCodeAlone/cellplacement/placement"
)

// ErrUnknownTier is returned by Table.Tier for an unrecognized tier id.
type ErrUnknownTier struct{ Tier placement.TierID }

func (e ErrUnknownTier) Error() string { return fmt.Sprintf("unknown tier %q", e.Tier) }

// Table is the read-only, config-loaded tier table.
type Table struct {
	mu    sync.RWMutex
	tiers map[placement.TierID]placement.TierSpec
}

// NewTable builds a Table from the configured tier specs.
func NewTable(specs []placement.TierSpec) *Table {
	t := &Table{tiers: make(map[placement.TierID]placement.TierSpec, len(specs))}
	for _, s := range specs {
		t.tiers[s.ID] = s
	}
	return t
}

// Tier returns the TierSpec for id, or ErrUnknownTier.
func (t *Table) Tier(id placement.TierID) (placement.TierSpec, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.tiers[id]
	if !ok {
		return placement.TierSpec{}, ErrUnknownTier{Tier: id}
	}
	return s, nil
}

// EffectiveGates returns tier.RequiredCapabilities unioned with multi_az when
// ha is set.
func EffectiveGates(tier placement.TierSpec, ha bool) []placement.Capability {
	seen := make(map[placement.Capability]bool, len(tier.RequiredCapabilities)+1)
	gates := make([]placement.Capability, 0, len(tier.RequiredCapabilities)+1)
	for _, c := range tier.RequiredCapabilities {
		if !seen[c] {
			seen[c] = true
			gates = append(gates, c)
		}
	}
	if ha && !seen[placement.CapabilityMultiAZ] {
		gates = append(gates, placement.CapabilityMultiAZ)
	}
	return gates
}

// costOptimizationBoost is the fixed weight shift applied when the
// prefer_cost_optimization flag is enabled (spec.md 4.1).
const costOptimizationBoost = 0.20

// EffectiveWeights resolves the scoring weights for a request: start from the
// tier's base weights, substitute the experiment's variant weights if arm is
// ArmVariant, then apply the cost-optimization redistribution if the flag is
// set.
func EffectiveWeights(tier placement.TierSpec, arm *placement.ExperimentAssignment, experiment *placement.ExperimentSpec, preferCostOptimization bool) placement.Weights {
	w := tier.Weights
	if arm != nil && arm.Arm == placement.ArmVariant && experiment != nil {
		w = experiment.VariantWeights
	}
	if preferCostOptimization {
		w = redistributeForCost(w)
	}
	return w
}

// redistributeForCost increases Cost by costOptimizationBoost and removes
// that amount proportionally from {Latency, DR, Maturity}, clamping any
// dimension at zero rather than going negative. When clamping leaves the
// weights unbalanced, all four are rescaled so they sum to 1.0 again.
func redistributeForCost(w placement.Weights) placement.Weights {
	remainder := w.Latency + w.DR + w.Maturity
	out := w
	out.Cost = w.Cost + costOptimizationBoost
	if remainder <= 0 {
		return scaleToUnitSum(out)
	}
	toRemove := costOptimizationBoost
	latencyShare := toRemove * (w.Latency / remainder)
	drShare := toRemove * (w.DR / remainder)
	maturityShare := toRemove * (w.Maturity / remainder)

	out.Latency = clampNonNegative(w.Latency - latencyShare)
	out.DR = clampNonNegative(w.DR - drShare)
	out.Maturity = clampNonNegative(w.Maturity - maturityShare)
	return scaleToUnitSum(out)
}

// scaleToUnitSum divides every dimension by the total when the total is off
// 1.0 by more than 1e-9; otherwise it returns w unchanged.
func scaleToUnitSum(w placement.Weights) placement.Weights {
	sum := w.Sum()
	if sum <= 0 || math.Abs(sum-1.0) <= 1e-9 {
		return w
	}
	return placement.Weights{Latency: w.Latency / sum, DR: w.DR / sum, Maturity: w.Maturity / sum, Cost: w.Cost / sum}
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
