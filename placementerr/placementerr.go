// Package placementerr implements the error taxonomy from spec.md 7 as
// typed errors, each carrying a Kind and its HTTP status mapping. Only the
// api package's handler boundary imports net/http status codes from this
// package's Status field; inner packages (scheduler, product, catalog,
// policy, claimstore) raise their own domain errors and never import this
// package, keeping the mapping a one-way translation at the edge.
package placementerr

import "net/http"

// Kind is the machine-readable taxonomy member surfaced in the {error,
// kind, details} response body.
type Kind string

const (
	KindValidation        Kind = "ValidationError"
	KindUnknownTier       Kind = "UnknownTier"
	KindUnknownProduct    Kind = "UnknownProduct"
	KindUnknownCell       Kind = "UnknownCell"
	KindDependencyMissing Kind = "DependencyMissing"
	KindNoViableCandidate Kind = "NoViableCandidate"
	KindNotFound          Kind = "NotFound"
	KindUpstreamTransient Kind = "UpstreamTransient"
	KindInternal          Kind = "Internal"
)

// statusFor is the fixed Kind -> HTTP status mapping from spec.md 7.
var statusFor = map[Kind]int{
	KindValidation:        http.StatusBadRequest,
	KindUnknownTier:       http.StatusBadRequest,
	KindUnknownProduct:    http.StatusBadRequest,
	KindUnknownCell:       http.StatusBadRequest,
	KindDependencyMissing: http.StatusFailedDependency,
	KindNoViableCandidate: http.StatusUnprocessableEntity,
	KindNotFound:          http.StatusNotFound,
	KindUpstreamTransient: http.StatusBadGateway,
	KindInternal:          http.StatusInternalServerError,
}

// Error is a taxonomy error: a human message, its Kind, and an optional
// Details payload (e.g. the excluded-candidate report for
// NoViableCandidate).
type Error struct {
	Kind    Kind
	Message string
	Details any
}

func (e *Error) Error() string { return e.Message }

// Status returns the HTTP status code this Kind maps to, defaulting to 500
// for an unrecognized Kind (a programmer bug, never a taxonomy member).
func (e *Error) Status() int {
	if s, ok := statusFor[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New constructs a taxonomy Error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithDetails attaches a details payload and returns the same Error for
// chaining at the call site.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}
