// Package api exposes the control plane's HTTP surface (spec.md 6): product
// listing, service create/status/failover, provider health, experiments,
// feature flags, and analytics. Handlers translate domain errors to the
// {error, kind, details} taxonomy at this boundary only (spec.md 7) -- no
// inner package imports net/http.
package api

import (
	"log/slog"
	"net/http"

	"github.com/GoCodeAlone/cellplacement/analytics"
	"github.com/GoCodeAlone/cellplacement/breaker"
	"github.com/GoCodeAlone/cellplacement/catalog"
	"github.com/GoCodeAlone/cellplacement/claimstore"
	"github.com/GoCodeAlone/cellplacement/experiment"
	"github.com/GoCodeAlone/cellplacement/flags"
	"github.com/GoCodeAlone/cellplacement/policy"
	"github.com/GoCodeAlone/cellplacement/product"
)

// Server holds every injected dependency the handlers need. Nothing here is
// a package-level global: a Server is constructed once at startup (cmd) and
// its dependencies flow explicitly through every handler, matching the
// "explicitly injected, interface-typed services" guidance in spec.md 9.
type Server struct {
	Catalog     *catalog.Catalog
	Tiers       *policy.Table
	Breakers    *breaker.Registry
	Experiments *experiment.Store
	Flags       *flags.Store
	Products    *product.Registry
	Store       claimstore.Store
	Recorder    *analytics.Recorder
	Deadlines   claimstore.Deadlines
	Log         *slog.Logger
}

// logger returns the injected logger, falling back to slog.Default when the
// Server was constructed without one (same fallback the teacher's
// featureflag.NewService uses).
func (s *Server) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// Router builds the full route table described in spec.md 6.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/products", s.handleListProducts)

	mux.HandleFunc("POST /api/services/{product}", s.handleCreate)
	mux.HandleFunc("GET /api/services/{product}/{ns}/{name}", s.handleStatus)
	mux.HandleFunc("POST /api/services/{product}/{ns}/{name}/failover", s.handleFailover)

	// Legacy aliases to the mysql product, grounded on the teacher's
	// versioned-route-aliasing convention.
	mux.HandleFunc("POST /api/mysql", s.handleCreateMySQL)
	mux.HandleFunc("GET /api/status/mysql/{ns}/{name}", s.handleStatusMySQL)
	mux.HandleFunc("POST /api/mysql/{ns}/{name}/failover", s.handleFailoverMySQL)

	mux.HandleFunc("GET /api/providers/health", s.handleListProviderHealth)
	mux.HandleFunc("PUT /api/providers/health", s.handleSetProviderHealthBulk)
	mux.HandleFunc("GET /api/providers/{provider}/health", s.handleGetProviderHealth)
	mux.HandleFunc("PUT /api/providers/{provider}/health", s.handleSetProviderHealth)

	mux.HandleFunc("GET /api/experiments", s.handleListExperiments)
	mux.HandleFunc("POST /api/experiments", s.handleCreateExperiment)
	mux.HandleFunc("DELETE /api/experiments/{id}", s.handleDeleteExperiment)

	mux.HandleFunc("GET /api/flags", s.handleListFlags)
	mux.HandleFunc("PUT /api/flags/{name}", s.handleSetFlag)
	mux.HandleFunc("DELETE /api/flags/{name}", s.handleDeleteFlag)

	mux.HandleFunc("GET /api/analytics", s.handleAnalytics)

	return s.withRequestLogging(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListProducts(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, s.Products.List())
}
