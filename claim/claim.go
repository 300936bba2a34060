// Package claim builds the declarative Claim document the control plane
// emits for the external orchestrator to reconcile. A Claim is represented
// as unstructured.Unstructured, the same shape a real Kubernetes/Crossplane
// client works with, so the sticky-store adapter can apply it through
// client-go's dynamic client without any intermediate conversion.
package claim

import (
	"bytes"
	"encoding/json"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/GoCodeAlone/cellplacement/placement"
	"github.com/GoCodeAlone/cellplacement/product"
)

// PlacementReasonAnnotation is the well-known annotation key carrying the
// JSON-serialized audit record.
const PlacementReasonAnnotation = "platform.example.org/placement-reason"

// RequestAnnotation carries the original placement request that produced
// this Claim, so a later failover can rebuild the scheduler input (cell,
// tier, ha) without a separate request store.
const RequestAnnotation = "platform.example.org/request"

// Build is a pure function of (product definition, request, placement,
// reason, validated params) producing a Claim. Re-invoking Build with the
// same inputs yields byte-identical JSON (required for the idempotent
// re-apply and audit-diff properties in spec.md 4.6/8).
func Build(def product.Definition, req placement.Request, p placement.Placement, reason placement.Reason, validatedParams map[string]any) (*unstructured.Unstructured, error) {
	reasonJSON, err := canonicalJSON(reason)
	if err != nil {
		return nil, fmt.Errorf("canonicalize placement reason: %w", err)
	}
	requestJSON, err := canonicalJSON(req)
	if err != nil {
		return nil, fmt.Errorf("canonicalize request: %w", err)
	}

	specParams := make(map[string]any, len(validatedParams)+4)
	for k, v := range validatedParams {
		specParams[k] = v
	}
	specParams["provider"] = p.Provider
	specParams["region"] = p.Region
	specParams["runtimeCluster"] = p.RuntimeCluster
	if p.Network != nil {
		network := make(map[string]any, len(p.Network))
		for k, v := range p.Network {
			network[k] = v
		}
		specParams["network"] = network
	}

	obj := &unstructured.Unstructured{}
	obj.SetAPIVersion(def.APIVersion)
	obj.SetKind(def.Kind)
	obj.SetNamespace(req.Namespace)
	obj.SetName(req.Name)
	obj.SetAnnotations(map[string]string{
		PlacementReasonAnnotation: string(reasonJSON),
		RequestAnnotation:         string(requestJSON),
	})

	if err := unstructured.SetNestedStringMap(obj.Object, map[string]string{
		def.CompositionGroup + "/provider": p.Provider,
		def.CompositionGroup + "/class":    def.CompositionClass,
	}, "spec", "compositionSelector", "matchLabels"); err != nil {
		return nil, fmt.Errorf("set compositionSelector: %w", err)
	}

	if err := unstructured.SetNestedMap(obj.Object, specParams, "spec", "parameters"); err != nil {
		return nil, fmt.Errorf("set spec.parameters: %w", err)
	}

	return obj, nil
}

// canonicalJSON marshals v with ascending, sorted object keys, matching
// spec.md 4.6's audit-diff requirement. encoding/json already sorts map
// keys; for v being a struct this relies on a stable field order, so reason
// is round-tripped through a map before final encoding to guarantee sorted
// keys at every nesting level, including nested structs.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ExtractReason decodes the placement-reason annotation back into a
// placement.Reason, for the create handler's sticky response.
func ExtractReason(obj *unstructured.Unstructured) (placement.Reason, error) {
	var reason placement.Reason
	raw, ok := obj.GetAnnotations()[PlacementReasonAnnotation]
	if !ok {
		return reason, fmt.Errorf("claim has no %s annotation", PlacementReasonAnnotation)
	}
	if err := json.Unmarshal([]byte(raw), &reason); err != nil {
		return reason, fmt.Errorf("decode placement reason: %w", err)
	}
	return reason, nil
}

// ExtractRequest decodes the original request annotation, for the failover
// handler to rebuild scheduler input.
func ExtractRequest(obj *unstructured.Unstructured) (placement.Request, error) {
	var req placement.Request
	raw, ok := obj.GetAnnotations()[RequestAnnotation]
	if !ok {
		return req, fmt.Errorf("claim has no %s annotation", RequestAnnotation)
	}
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return req, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

// ExtractPlacement reads back the provider/region/runtimeCluster/network
// that Build wrote into spec.parameters.
func ExtractPlacement(obj *unstructured.Unstructured) (placement.Placement, error) {
	var p placement.Placement
	params, found, err := unstructured.NestedMap(obj.Object, "spec", "parameters")
	if err != nil {
		return p, err
	}
	if !found {
		return p, fmt.Errorf("claim has no spec.parameters")
	}
	if s, ok := params["provider"].(string); ok {
		p.Provider = s
	}
	if s, ok := params["region"].(string); ok {
		p.Region = s
	}
	if s, ok := params["runtimeCluster"].(string); ok {
		p.RuntimeCluster = s
	}
	if n, ok := params["network"].(map[string]any); ok {
		p.Network = make(map[string]string, len(n))
		for k, v := range n {
			if s, ok := v.(string); ok {
				p.Network[k] = s
			}
		}
	}
	return p, nil
}

// Diff reports whether the canonical JSON of two Claims' full objects
// differs. No field is ignored, including orchestrator-owned metadata such
// as resourceVersion. Used only by
// tests to assert the round-trip/idempotence law in spec.md 8 -- not an
// operator-facing feature.
func Diff(a, b *unstructured.Unstructured) (bool, error) {
	aJSON, err := canonicalJSON(a.Object)
	if err != nil {
		return false, err
	}
	bJSON, err := canonicalJSON(b.Object)
	if err != nil {
		return false, err
	}
	return !bytes.Equal(aJSON, bJSON), nil
}
