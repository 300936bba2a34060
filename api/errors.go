package api

import (
	"errors"
	"net/http"

	"github.com/GoCodeAlone/cellplacement/catalog"
	"github.com/GoCodeAlone/cellplacement/claimstore"
	"github.com/GoCodeAlone/cellplacement/placementerr"
	"github.com/GoCodeAlone/cellplacement/policy"
	"github.com/GoCodeAlone/cellplacement/product"
	"github.com/GoCodeAlone/cellplacement/scheduler"
)

// writeDomainError translates any error raised by the domain packages into
// the {error, kind, details} response body, matching the taxonomy in
// spec.md 7. An error that matches nothing here is a programmer bug and is
// logged with full detail but exposed only as a generic 500.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var unknownTier policy.ErrUnknownTier
	if errors.As(err, &unknownTier) {
		WriteErrorKind(w, http.StatusBadRequest, string(placementerr.KindUnknownTier), err.Error(), nil)
		return
	}

	var unknownProduct product.ErrUnknownProduct
	if errors.As(err, &unknownProduct) {
		WriteErrorKind(w, http.StatusBadRequest, string(placementerr.KindUnknownProduct), err.Error(), nil)
		return
	}

	var unknownCell catalog.ErrUnknownCell
	if errors.As(err, &unknownCell) {
		WriteErrorKind(w, http.StatusBadRequest, string(placementerr.KindUnknownCell), err.Error(), nil)
		return
	}

	var valErrs product.ValidationErrors
	if errors.As(err, &valErrs) {
		WriteErrorKind(w, http.StatusBadRequest, string(placementerr.KindValidation), err.Error(), valErrs)
		return
	}

	var depMissing claimstore.ErrDependencyMissing
	if errors.As(err, &depMissing) {
		WriteErrorKind(w, http.StatusFailedDependency, string(placementerr.KindDependencyMissing), err.Error(), nil)
		return
	}

	var noViable scheduler.ErrNoViableCandidate
	if errors.As(err, &noViable) {
		WriteErrorKind(w, http.StatusUnprocessableEntity, string(placementerr.KindNoViableCandidate), err.Error(), noViable.Excluded)
		return
	}

	if errors.Is(err, claimstore.ErrNotFound) {
		WriteErrorKind(w, http.StatusNotFound, string(placementerr.KindNotFound), err.Error(), nil)
		return
	}

	if errors.Is(err, claimstore.ErrUpstreamTransient) {
		WriteErrorKind(w, http.StatusBadGateway, string(placementerr.KindUpstreamTransient), err.Error(), nil)
		return
	}

	var taxonomy *placementerr.Error
	if errors.As(err, &taxonomy) {
		WriteErrorKind(w, taxonomy.Status(), string(taxonomy.Kind), taxonomy.Message, taxonomy.Details)
		return
	}

	s.logger().Error("unhandled internal error", "error", err)
	WriteErrorKind(w, http.StatusInternalServerError, string(placementerr.KindInternal), "internal error", nil)
}
