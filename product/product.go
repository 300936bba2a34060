// Package product holds the declarative product registry (service kinds the
// control plane knows how to place) and total parameter validation, grounded
// on the ValidationError/ValidationErrors pattern used for config validation
// across the corpus: a path to the offending field plus a human-readable
// message, aggregated into one error for the caller.
package product

import (
	"fmt"
	"strings"
)

// ParameterType is the closed set of value kinds a product parameter may
// declare.
type ParameterType string

const (
	TypeString ParameterType = "string"
	TypeInt    ParameterType = "int"
	TypeBool   ParameterType = "bool"
	TypeChoice ParameterType = "choice"
)

// ParameterSpec declares one product-specific input parameter.
type ParameterSpec struct {
	Name     string        `yaml:"name" json:"name"`
	Type     ParameterType `yaml:"type" json:"type"`
	Required bool          `yaml:"required" json:"required"`
	Default  any           `yaml:"default,omitempty" json:"default,omitempty"`
	Min      *float64      `yaml:"min,omitempty" json:"min,omitempty"`
	Max      *float64      `yaml:"max,omitempty" json:"max,omitempty"`
	Choices  []string      `yaml:"choices,omitempty" json:"choices,omitempty"`
}

// Definition declares a product kind the control plane can place.
type Definition struct {
	Name              string          `yaml:"name" json:"name"`
	DisplayName       string          `yaml:"displayName" json:"displayName"`
	Description       string          `yaml:"description" json:"description"`
	APIVersion        string          `yaml:"apiVersion" json:"apiVersion"`
	Kind              string          `yaml:"kind" json:"kind"`
	CompositionClass  string          `yaml:"compositionClass" json:"compositionClass"`
	CompositionGroup  string          `yaml:"compositionGroup" json:"compositionGroup"`
	Parameters        []ParameterSpec `yaml:"parameters" json:"parameters"`
}

// Kind distinguishes the three named failure modes spec.md 4.5/7 requires.
type Kind int

const (
	KindMissingParameter Kind = iota
	KindUnknownParameter
	KindInvalidParameterType
)

// ValidationError is a single parameter validation failure.
type ValidationError struct {
	Path    string
	Message string
	Kind    Kind
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors aggregates one or more ValidationError.
type ValidationErrors []*ValidationError

func (ve ValidationErrors) Error() string {
	msgs := make([]string, len(ve))
	for i, e := range ve {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("parameter validation failed with %d error(s): %s",
		len(ve), strings.Join(msgs, "; "))
}

// ErrDuplicateProduct is returned by Registry.Register for a name already in
// use; registration is write-once at startup (spec.md 4.5).
type ErrDuplicateProduct struct{ Name string }

func (e ErrDuplicateProduct) Error() string { return "duplicate product registration: " + e.Name }

// ErrUnknownProduct is returned by Registry.Get for an unregistered name.
type ErrUnknownProduct struct{ Name string }

func (e ErrUnknownProduct) Error() string { return "unknown product: " + e.Name }

// Registry is the write-once-at-startup product catalog.
type Registry struct {
	byName map[string]Definition
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Definition)}
}

// Register adds a product definition. Duplicate names are a configuration
// error.
func (r *Registry) Register(def Definition) error {
	if _, ok := r.byName[def.Name]; ok {
		return ErrDuplicateProduct{Name: def.Name}
	}
	r.byName[def.Name] = def
	r.order = append(r.order, def.Name)
	return nil
}

// Get returns the definition for name.
func (r *Registry) Get(name string) (Definition, error) {
	def, ok := r.byName[name]
	if !ok {
		return Definition{}, ErrUnknownProduct{Name: name}
	}
	return def, nil
}

// List returns every registered product in registration order.
func (r *Registry) List() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Validate is a total function over a product's parameter specs and an
// inbound params map: every spec either has its value type/range/choice
// checked, or its default substituted, or contributes a ValidationError.
// Unknown keys in params (not named by any spec) are also reported.
func Validate(def Definition, params map[string]any) (map[string]any, ValidationErrors) {
	var errs ValidationErrors
	out := make(map[string]any, len(def.Parameters))
	known := make(map[string]bool, len(def.Parameters))

	for _, spec := range def.Parameters {
		known[spec.Name] = true
		raw, present := params[spec.Name]
		if !present {
			if spec.Required && spec.Default == nil {
				errs = append(errs, &ValidationError{
					Path:    spec.Name,
					Message: "missing required parameter",
					Kind:    KindMissingParameter,
				})
				continue
			}
			out[spec.Name] = spec.Default
			continue
		}
		val, err := validateValue(spec, raw)
		if err != nil {
			errs = append(errs, &ValidationError{
				Path:    spec.Name,
				Message: err.Error(),
				Kind:    KindInvalidParameterType,
			})
			continue
		}
		out[spec.Name] = val
	}

	for key := range params {
		if !known[key] {
			errs = append(errs, &ValidationError{
				Path:    key,
				Message: "unknown parameter",
				Kind:    KindUnknownParameter,
			})
		}
	}

	return out, errs
}

func validateValue(spec ParameterSpec, raw any) (any, error) {
	switch spec.Type {
	case TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", raw)
		}
		return s, nil
	case TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", raw)
		}
		return b, nil
	case TypeInt:
		n, ok := asFloat(raw)
		if !ok {
			return nil, fmt.Errorf("expected int, got %T", raw)
		}
		if spec.Min != nil && n < *spec.Min {
			return nil, fmt.Errorf("value %v below minimum %v", n, *spec.Min)
		}
		if spec.Max != nil && n > *spec.Max {
			return nil, fmt.Errorf("value %v above maximum %v", n, *spec.Max)
		}
		return int(n), nil
	case TypeChoice:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string choice, got %T", raw)
		}
		for _, choice := range spec.Choices {
			if choice == s {
				return s, nil
			}
		}
		return nil, fmt.Errorf("value %q not among choices %v", s, spec.Choices)
	default:
		return nil, fmt.Errorf("unknown parameter type %q", spec.Type)
	}
}

func asFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
