// Package analytics maintains in-memory counters and running means over
// placement outcomes: per-provider/region/tier distributions and per-
// experiment-arm statistics. It is process-local and resets at restart;
// implementations may add durability (see PGStore) without changing read
// semantics.
package analytics

import "sync"

// runningMean implements Welford's online algorithm so the recorder never
// accumulates an unbounded sum of observed scores.
type runningMean struct {
	count int64
	mean  float64
}

func (m *runningMean) observe(x float64) {
	m.count++
	delta := x - m.mean
	m.mean += delta / float64(m.count)
}

// armStats holds per-arm counters for one experiment.
type armStats struct {
	control runningMean
	variant runningMean
}

// Recorder is the mutex-guarded analytics store described in spec.md 4.8/5.
type Recorder struct {
	mu sync.RWMutex

	totalPlacements int64
	totalRequests   int64
	gateRejections  int64

	providerCounts map[string]int64
	regionCounts   map[string]int64
	tierCounts     map[string]int64

	avgScoreByProvider map[string]*runningMean
	experiments        map[string]*armStats
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		providerCounts:     make(map[string]int64),
		regionCounts:       make(map[string]int64),
		tierCounts:         make(map[string]int64),
		avgScoreByProvider: make(map[string]*runningMean),
		experiments:        make(map[string]*armStats),
	}
}

// RecordGateRejection increments totalRequests and gateRejections for a
// request that never reached scoring (spec.md: "requests includes gate
// rejections").
func (r *Recorder) RecordGateRejection() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalRequests++
	r.gateRejections++
}

// RecordPlacement records a successful placement outcome.
func (r *Recorder) RecordPlacement(provider, region, tier string, score float64, experimentID string, arm string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.totalRequests++
	r.totalPlacements++
	r.providerCounts[provider]++
	r.regionCounts[region]++
	r.tierCounts[tier]++

	mean, ok := r.avgScoreByProvider[provider]
	if !ok {
		mean = &runningMean{}
		r.avgScoreByProvider[provider] = mean
	}
	mean.observe(score)

	if experimentID == "" {
		return
	}
	stats, ok := r.experiments[experimentID]
	if !ok {
		stats = &armStats{}
		r.experiments[experimentID] = stats
	}
	if arm == "variant" {
		stats.variant.observe(score)
	} else {
		stats.control.observe(score)
	}
}

// Distribution is a count and its percentage of totalRequests.
type Distribution struct {
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ExperimentArmSnapshot is the count and mean score observed for one arm.
type ExperimentArmSnapshot struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"meanScore"`
}

// Snapshot is an immutable point-in-time copy of the recorder's state.
type Snapshot struct {
	TotalPlacements    int64                            `json:"totalPlacements"`
	TotalRequests      int64                            `json:"totalRequests"`
	GateRejectionRate  float64                          `json:"gateRejectionRate"`
	ProviderDistribution map[string]Distribution         `json:"providerDistribution"`
	RegionDistribution   map[string]Distribution         `json:"regionDistribution"`
	TierDistribution     map[string]Distribution         `json:"tierDistribution"`
	AvgScoreByProvider   map[string]float64              `json:"avgScoreByProvider"`
	Experiments          map[string]map[string]ExperimentArmSnapshot `json:"experiments"`
}

// Snapshot returns an immutable copy of the recorder's current state.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Snapshot{
		TotalPlacements:      r.totalPlacements,
		TotalRequests:        r.totalRequests,
		ProviderDistribution: distributionOf(r.providerCounts, r.totalRequests),
		RegionDistribution:   distributionOf(r.regionCounts, r.totalRequests),
		TierDistribution:     distributionOf(r.tierCounts, r.totalRequests),
		AvgScoreByProvider:   make(map[string]float64, len(r.avgScoreByProvider)),
		Experiments:          make(map[string]map[string]ExperimentArmSnapshot, len(r.experiments)),
	}
	if r.totalRequests > 0 {
		s.GateRejectionRate = float64(r.gateRejections) / float64(r.totalRequests)
	}
	for provider, m := range r.avgScoreByProvider {
		s.AvgScoreByProvider[provider] = m.mean
	}
	for id, stats := range r.experiments {
		s.Experiments[id] = map[string]ExperimentArmSnapshot{
			"control": {Count: stats.control.count, Mean: stats.control.mean},
			"variant": {Count: stats.variant.count, Mean: stats.variant.mean},
		}
	}
	return s
}

func distributionOf(counts map[string]int64, total int64) map[string]Distribution {
	out := make(map[string]Distribution, len(counts))
	for k, v := range counts {
		d := Distribution{Count: v}
		if total > 0 {
			d.Percentage = float64(v) / float64(total)
		}
		out[k] = d
	}
	return out
}
