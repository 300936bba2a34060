package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/GoCodeAlone/cellplacement/claim"
	"github.com/GoCodeAlone/cellplacement/claimstore"
	"github.com/GoCodeAlone/cellplacement/placement"
	"github.com/GoCodeAlone/cellplacement/product"
	"github.com/GoCodeAlone/cellplacement/scheduler"
)

// forbiddenInboundKeys are the scheduler-computed fields a caller must never
// set directly, at the request's top level or inside params (spec.md 3:
// "presence causes validation failure").
var forbiddenInboundKeys = []string{"provider", "region", "runtimeCluster", "network"}

// checkForbiddenKeys reports the forbidden keys present in m, if any.
func checkForbiddenKeys(m map[string]any) []string {
	var found []string
	for _, k := range forbiddenInboundKeys {
		if _, ok := m[k]; ok {
			found = append(found, k)
		}
	}
	sort.Strings(found)
	return found
}

// createRequestBody is the wire shape for POST /api/services/<product>.
type createRequestBody struct {
	Namespace   string         `json:"namespace"`
	Name        string         `json:"name"`
	Cell        string         `json:"cell"`
	Tier        string         `json:"tier"`
	Environment string         `json:"environment"`
	HA          bool           `json:"ha"`
	Params      map[string]any `json:"params"`
}

// failoverRequestBody is the optional body for the failover endpoint.
type failoverRequestBody struct {
	ExcludeProviders []string `json:"excludeProviders"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	s.create(w, r, r.PathValue("product"))
}

func (s *Server) handleCreateMySQL(w http.ResponseWriter, r *http.Request) {
	s.create(w, r, "mysql")
}

func (s *Server) create(w http.ResponseWriter, r *http.Request, productName string) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		WriteErrorKind(w, http.StatusBadRequest, "ValidationError", "read request body: "+err.Error(), nil)
		return
	}

	var rawBody map[string]any
	if err := json.Unmarshal(raw, &rawBody); err != nil {
		WriteErrorKind(w, http.StatusBadRequest, "ValidationError", "invalid JSON body: "+err.Error(), nil)
		return
	}
	if forbidden := checkForbiddenKeys(rawBody); len(forbidden) > 0 {
		WriteErrorKind(w, http.StatusBadRequest, "ValidationError",
			"forbidden inbound key(s): "+strings.Join(forbidden, ", "), map[string]any{"forbiddenKeys": forbidden})
		return
	}
	if params, ok := rawBody["params"].(map[string]any); ok {
		if forbidden := checkForbiddenKeys(params); len(forbidden) > 0 {
			WriteErrorKind(w, http.StatusBadRequest, "ValidationError",
				"forbidden inbound key(s) in params: "+strings.Join(forbidden, ", "), map[string]any{"forbiddenKeys": forbidden})
			return
		}
	}

	var body createRequestBody
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&body); err != nil {
		WriteErrorKind(w, http.StatusBadRequest, "ValidationError", "invalid JSON body: "+err.Error(), nil)
		return
	}

	def, err := s.Products.Get(productName)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	validated, verrs := product.Validate(def, body.Params)
	if len(verrs) > 0 {
		s.writeDomainError(w, verrs)
		return
	}

	tier, err := s.Tiers.Tier(placement.TierID(body.Tier))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	req := placement.Request{
		Product:     productName,
		Namespace:   body.Namespace,
		Name:        body.Name,
		Cell:        body.Cell,
		Tier:        tier.ID,
		Environment: body.Environment,
		HA:          body.HA,
		Params:      body.Params,
	}

	key := claimstore.Key{Product: productName, Namespace: body.Namespace, Name: body.Name}
	ctx := r.Context()

	var existing *unstructured.Unstructured
	lookupErr := claimstore.WithRetry(ctx, s.Deadlines, func(ctx context.Context) error {
		var err error
		existing, err = s.Store.GetClaim(ctx, key)
		return err
	})
	if lookupErr == nil {
		reason, err := claim.ExtractReason(existing)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		p, err := claim.ExtractPlacement(existing)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{
			"status":    "exists",
			"sticky":    true,
			"placement": p,
			"reason":    reason,
		})
		return
	}
	if lookupErr != claimstore.ErrNotFound {
		s.writeDomainError(w, lookupErr)
		return
	}

	candidates, err := s.Catalog.Candidates(body.Cell)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.annotateHealth(candidates)

	placed, reason, claimObj, applyErr := s.schedule(ctx, def, req, tier, validated, candidates, nil)
	if applyErr != nil {
		s.writeDomainError(w, applyErr)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"status":    "created",
		"sticky":    false,
		"placement": placed,
		"reason":    reason,
		"claim":     claimObj,
	})
}

// annotateHealth sets each candidate's Healthy bit from the breaker
// registry's operator-controlled health flag, leaving any already-false bit
// (e.g. from static config) untouched only if it is already unhealthy.
func (s *Server) annotateHealth(candidates []placement.Candidate) {
	for i := range candidates {
		if candidates[i].Healthy {
			candidates[i].Healthy = s.Breakers.Health(candidates[i].Provider)
		}
	}
}

// schedule runs the scheduler, builds the Claim, and applies it, recording
// analytics and feeding the circuit breaker from the apply outcome (spec.md
// 9's open question (b)).
func (s *Server) schedule(ctx context.Context, def product.Definition, req placement.Request, tier placement.TierSpec, validated map[string]any, candidates []placement.Candidate, excludeProviders map[string]bool) (placement.Placement, placement.Reason, *unstructured.Unstructured, error) {
	experiments := s.Experiments.Active(tier.ID)
	preferCost := s.Flags.Enabled("prefer_cost_optimization")

	placed, reason, err := scheduler.Schedule(scheduler.Input{
		Request:                req,
		Tier:                   tier,
		HA:                     req.HA,
		Candidates:             candidates,
		Health:                 s.Breakers,
		Experiments:            experiments,
		PreferCostOptimization: preferCost,
		ExcludeProviders:       excludeProviders,
	})
	if err != nil {
		s.Recorder.RecordGateRejection()
		return placement.Placement{}, placement.Reason{}, nil, err
	}

	claimObj, err := claim.Build(def, req, placed, reason, validated)
	if err != nil {
		return placement.Placement{}, placement.Reason{}, nil, fmt.Errorf("build claim: %w", err)
	}

	key := claimstore.Key{Product: req.Product, Namespace: req.Namespace, Name: req.Name}
	var applyErr error
	applyErr = claimstore.WithRetry(ctx, s.Deadlines, func(ctx context.Context) error {
		_, err := s.Store.ApplyClaim(ctx, key, claimObj)
		return err
	})
	if applyErr != nil {
		s.Breakers.RecordFailure(placed.Provider)
		return placement.Placement{}, placement.Reason{}, nil, applyErr
	}
	s.Breakers.RecordSuccess(placed.Provider)

	var experimentID, arm string
	if reason.ExperimentArm != nil {
		experimentID = reason.ExperimentArm.ExperimentID
		arm = string(reason.ExperimentArm.Arm)
	}
	s.Recorder.RecordPlacement(placed.Provider, placed.Region, string(tier.ID), reason.Selected.Total, experimentID, arm)

	return placed, reason, claimObj, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.status(w, r, r.PathValue("product"), r.PathValue("ns"), r.PathValue("name"))
}

func (s *Server) handleStatusMySQL(w http.ResponseWriter, r *http.Request) {
	s.status(w, r, "mysql", r.PathValue("ns"), r.PathValue("name"))
}

func (s *Server) status(w http.ResponseWriter, r *http.Request, productName, ns, name string) {
	key := claimstore.Key{Product: productName, Namespace: ns, Name: name}
	ctx := r.Context()

	var obj *unstructured.Unstructured
	err := claimstore.WithRetry(ctx, s.Deadlines, func(ctx context.Context) error {
		var err error
		obj, err = s.Store.GetClaim(ctx, key)
		return err
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	exists, err := s.Store.ConnectionSecretExists(ctx, ns, name)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"claim": obj,
		"connectionSecret": map[string]any{
			"name":      name,
			"namespace": ns,
			"exists":    exists,
		},
	})
}

func (s *Server) handleFailover(w http.ResponseWriter, r *http.Request) {
	s.failover(w, r, r.PathValue("product"), r.PathValue("ns"), r.PathValue("name"))
}

func (s *Server) handleFailoverMySQL(w http.ResponseWriter, r *http.Request) {
	s.failover(w, r, "mysql", r.PathValue("ns"), r.PathValue("name"))
}

func (s *Server) failover(w http.ResponseWriter, r *http.Request, productName, ns, name string) {
	var body failoverRequestBody
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	key := claimstore.Key{Product: productName, Namespace: ns, Name: name}
	ctx := r.Context()

	var existing *unstructured.Unstructured
	err := claimstore.WithRetry(ctx, s.Deadlines, func(ctx context.Context) error {
		var err error
		existing, err = s.Store.GetClaim(ctx, key)
		return err
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	prevReq, err := claim.ExtractRequest(existing)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	prevPlacement, err := claim.ExtractPlacement(existing)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	def, err := s.Products.Get(productName)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	tier, err := s.Tiers.Tier(prevReq.Tier)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	candidates, err := s.Catalog.Candidates(prevReq.Cell)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.annotateHealth(candidates)

	validated, verrs := product.Validate(def, prevReq.Params)
	if len(verrs) > 0 {
		s.writeDomainError(w, verrs)
		return
	}

	exclude := map[string]bool{prevPlacement.Provider: true}
	for _, p := range body.ExcludeProviders {
		exclude[p] = true
	}

	if err := claimstore.WithRetry(ctx, s.Deadlines, func(ctx context.Context) error {
		return s.Store.DeleteClaim(ctx, key)
	}); err != nil {
		s.writeDomainError(w, err)
		return
	}

	placed, reason, claimObj, err := s.schedule(ctx, def, prevReq, tier, validated, candidates, exclude)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"status":           "failover_complete",
		"previousProvider": prevPlacement.Provider,
		"placement":        placed,
		"reason":           reason,
		"claim":            claimObj,
	})
}
