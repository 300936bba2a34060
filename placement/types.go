// Package placement holds the shared data types that flow through the
// control plane: requests, candidates, tiers, scoring output, and the
// audit record attached to every emitted Claim.
package placement

import "time"

// Capability is a closed vocabulary of gate-able properties a Candidate may
// offer. All gate logic must draw from this set.
type Capability string

const (
	CapabilityPITR                   Capability = "pitr"
	CapabilityMultiAZ                Capability = "multi_az"
	CapabilityPrivateNetworking      Capability = "private_networking"
	CapabilityCrossRegionReplication Capability = "cross_region_replication"
)

// TierID identifies a criticality class.
type TierID string

const (
	TierLow             TierID = "low"
	TierMedium          TierID = "medium"
	TierCritical        TierID = "critical"
	TierBusinessCritical TierID = "business_critical"
)

// Weights holds the four scoring dimensions. Values are expected to sum to
// 1.0 within an epsilon after any policy-level redistribution.
type Weights struct {
	Latency  float64 `json:"latency"`
	DR       float64 `json:"dr"`
	Maturity float64 `json:"maturity"`
	Cost     float64 `json:"cost"`
}

// Sum returns the sum of the four dimensions.
func (w Weights) Sum() float64 {
	return w.Latency + w.DR + w.Maturity + w.Cost
}

// TierSpec is the static, config-loaded policy for one criticality tier.
type TierSpec struct {
	ID                   TierID                `yaml:"id" json:"id"`
	RTOMinutes           int                   `yaml:"rtoMinutes" json:"rtoMinutes"`
	RPOMinutes           int                   `yaml:"rpoMinutes" json:"rpoMinutes"`
	RequiredCapabilities []Capability          `yaml:"requiredCapabilities" json:"requiredCapabilities"`
	Weights              Weights               `yaml:"weights" json:"weights"`
	FailoverRequired     bool                  `yaml:"failoverRequired" json:"failoverRequired"`
}

// Candidate is a placement target: one provider/region/runtimeCluster tuple
// within a cell, with static baseline scores and a mutable health bit.
type Candidate struct {
	Provider       string            `yaml:"provider" json:"provider"`
	Region         string            `yaml:"region" json:"region"`
	RuntimeCluster string            `yaml:"runtimeCluster" json:"runtimeCluster"`
	Network        map[string]string `yaml:"network" json:"network"`
	Capabilities   []Capability      `yaml:"capabilities" json:"capabilities"`
	BaselineScores Weights           `yaml:"baselineScores" json:"baselineScores"`
	Healthy        bool              `yaml:"-" json:"healthy"`
}

// HasCapability reports whether the candidate carries cap.
func (c Candidate) HasCapability(cap Capability) bool {
	for _, have := range c.Capabilities {
		if have == cap {
			return true
		}
	}
	return false
}

// MissingCapabilities returns the subset of gates the candidate lacks.
func (c Candidate) MissingCapabilities(gates []Capability) []Capability {
	var missing []Capability
	for _, g := range gates {
		if !c.HasCapability(g) {
			missing = append(missing, g)
		}
	}
	return missing
}

// ExperimentArm identifies whether a request landed in control or variant.
type ExperimentArm string

const (
	ArmControl ExperimentArm = "control"
	ArmVariant ExperimentArm = "variant"
)

// ExperimentSpec declares an A/B test over scoring weights.
type ExperimentSpec struct {
	ID                string     `json:"id"`
	Description       string     `json:"description"`
	VariantWeights    Weights    `json:"variantWeights"`
	TrafficPercentage float64    `json:"trafficPercentage"`
	Tier              *TierID    `json:"tier,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// ExperimentAssignment is the outcome of bucketing a request against an
// experiment.
type ExperimentAssignment struct {
	ExperimentID string        `json:"experimentId"`
	Arm          ExperimentArm `json:"arm"`
}

// FeatureFlag is a process-wide named boolean.
type FeatureFlag struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Request is the common envelope for every service-creation call.
type Request struct {
	Product     string         `json:"product"`
	Namespace   string         `json:"namespace"`
	Name        string         `json:"name"`
	Cell        string         `json:"cell"`
	Tier        TierID         `json:"tier"`
	Environment string         `json:"environment"`
	HA          bool           `json:"ha"`
	Params      map[string]any `json:"params"`
}

// Placement is the decided physical target for a Request.
type Placement struct {
	Provider       string            `json:"provider"`
	Region         string            `json:"region"`
	RuntimeCluster string            `json:"runtimeCluster"`
	Network        map[string]string `json:"network"`
}

// ScoredCandidate is a Candidate annotated with its computed sub-scores and
// total, as it survives into the audit record.
type ScoredCandidate struct {
	Provider  string  `json:"provider"`
	Region    string  `json:"region"`
	SubScores Weights `json:"subScores"`
	Total     float64 `json:"totalScore"`
}

// ExcludedCandidate records why a candidate did not survive the gate filter.
type ExcludedCandidate struct {
	Provider     string       `json:"provider"`
	Region       string       `json:"region"`
	GateFailures []Capability `json:"gateFailures"`
}

// Reason is the full audit record of how a Placement was chosen. It is
// serialized verbatim (with sorted keys) into the Claim's placement-reason
// annotation.
type Reason struct {
	Tier                TierID                 `json:"tier"`
	RTOMinutes          int                    `json:"rtoMinutes"`
	RPOMinutes          int                    `json:"rpoMinutes"`
	Gates               []Capability           `json:"gates"`
	HAEnforced          bool                   `json:"haEnforced"`
	Weights             Weights                `json:"weights"`
	ExperimentArm       *ExperimentAssignment  `json:"experimentArm,omitempty"`
	Selected            ScoredCandidate        `json:"selected"`
	Top3                []ScoredCandidate      `json:"top3"`
	Excluded            []ExcludedCandidate    `json:"excluded"`
	CandidatesEvaluated int                    `json:"candidatesEvaluated"`
	CandidatesHealthy   int                    `json:"candidatesHealthy"`
	CandidatesPassedGates int                  `json:"candidatesPassedGates"`
	Failover            *Placement             `json:"failover,omitempty"`
	FailoverUnavailable bool                   `json:"failoverUnavailable,omitempty"`
}
