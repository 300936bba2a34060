package api

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/GoCodeAlone/cellplacement/experiment"
	"github.com/GoCodeAlone/cellplacement/placement"
)

// weightSumEpsilon matches the universal "sum of weights used == 1.0 +-
// 1e-9" invariant in spec.md 8.
const weightSumEpsilon = 1e-9

// --- provider health ---

func (s *Server) handleListProviderHealth(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, s.Breakers.All())
}

func (s *Server) handleGetProviderHealth(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	for _, snap := range s.Breakers.All() {
		if snap.Provider == provider {
			WriteJSON(w, http.StatusOK, snap)
			return
		}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"provider": provider,
		"healthy":  s.Breakers.Health(provider),
		"state":    "CLOSED",
	})
}

type setHealthBody struct {
	Healthy bool `json:"healthy"`
}

func (s *Server) handleSetProviderHealth(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	var body setHealthBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteErrorKind(w, http.StatusBadRequest, "ValidationError", "invalid JSON body: "+err.Error(), nil)
		return
	}
	s.Breakers.SetHealth(provider, body.Healthy)
	WriteJSON(w, http.StatusOK, map[string]any{"provider": provider, "healthy": body.Healthy})
}

type setHealthBulkBody struct {
	Providers map[string]bool `json:"providers"`
}

func (s *Server) handleSetProviderHealthBulk(w http.ResponseWriter, r *http.Request) {
	var body setHealthBulkBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteErrorKind(w, http.StatusBadRequest, "ValidationError", "invalid JSON body: "+err.Error(), nil)
		return
	}
	for provider, healthy := range body.Providers {
		s.Breakers.SetHealth(provider, healthy)
	}
	WriteJSON(w, http.StatusOK, s.Breakers.All())
}

// --- experiments ---

type experimentBody struct {
	ID                string           `json:"id"`
	Description       string           `json:"description"`
	VariantWeights    placement.Weights `json:"variantWeights"`
	TrafficPercentage float64          `json:"trafficPercentage"`
	Tier              *string          `json:"tier,omitempty"`
}

func (s *Server) handleListExperiments(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, s.Experiments.List())
}

func (s *Server) handleCreateExperiment(w http.ResponseWriter, r *http.Request) {
	var body experimentBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteErrorKind(w, http.StatusBadRequest, "ValidationError", "invalid JSON body: "+err.Error(), nil)
		return
	}

	if math.Abs(body.VariantWeights.Sum()-1.0) > weightSumEpsilon {
		WriteErrorKind(w, http.StatusBadRequest, "ValidationError",
			"variantWeights must sum to 1.0", map[string]any{"sum": body.VariantWeights.Sum()})
		return
	}
	if body.TrafficPercentage < 0 || body.TrafficPercentage > 1 {
		WriteErrorKind(w, http.StatusBadRequest, "ValidationError",
			"trafficPercentage must be in [0, 1]", map[string]any{"trafficPercentage": body.TrafficPercentage})
		return
	}

	spec := placement.ExperimentSpec{
		ID:                body.ID,
		Description:       body.Description,
		VariantWeights:    body.VariantWeights,
		TrafficPercentage: body.TrafficPercentage,
		CreatedAt:         time.Now(),
	}
	if body.Tier != nil {
		tier := placement.TierID(*body.Tier)
		spec.Tier = &tier
	}

	if err := s.Experiments.Create(spec); err != nil {
		if _, ok := err.(experiment.ErrDuplicateID); ok {
			WriteErrorKind(w, http.StatusBadRequest, "ValidationError", err.Error(), nil)
			return
		}
		s.writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, spec)
}

func (s *Server) handleDeleteExperiment(w http.ResponseWriter, r *http.Request) {
	s.Experiments.Delete(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// --- feature flags ---

func (s *Server) handleListFlags(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, s.Flags.List())
}

type setFlagBody struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleSetFlag(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var body setFlagBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteErrorKind(w, http.StatusBadRequest, "ValidationError", "invalid JSON body: "+err.Error(), nil)
		return
	}
	s.Flags.Set(name, body.Enabled)
	WriteJSON(w, http.StatusOK, map[string]any{"name": name, "enabled": body.Enabled})
}

func (s *Server) handleDeleteFlag(w http.ResponseWriter, r *http.Request) {
	s.Flags.Delete(r.PathValue("name"))
	w.WriteHeader(http.StatusNoContent)
}

// --- analytics ---

func (s *Server) handleAnalytics(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, s.Recorder.Snapshot())
}
