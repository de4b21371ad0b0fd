// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/speciesdex/internal/adapters/auth"
	"github.com/okian/speciesdex/internal/adapters/dataservice"
	service "github.com/okian/speciesdex/internal/app"
	"github.com/okian/speciesdex/internal/domain/species"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	AnimalsDependencies
	SpeciesDependencies
}

// AnimalsDependencies exposes the speed dataset.
type AnimalsDependencies interface {
	Snapshot() *service.Snapshot
	// RequestReload returns false when a reload is already pending.
	RequestReload(ctx context.Context, reason string) bool
}

// SpeciesDependencies exposes the species table.
type SpeciesDependencies interface {
	ListSpecies(ctx context.Context, caller dataservice.Caller) ([]species.Species, error)
	GetSpecies(ctx context.Context, caller dataservice.Caller, id species.ID) (*species.Species, error)
	UpdateSpecies(ctx context.Context, caller dataservice.Caller, current species.Species, form species.EditForm) (service.UpdateResult, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	animalsHandler *AnimalsHandler
	speciesHandler *SpeciesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, resolver auth.Resolver) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		animalsHandler: NewAnimalsHandler(deps, resolver),
		speciesHandler: NewSpeciesHandler(deps, resolver),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /api/animals", MetricsMiddleware(s.animalsHandler.HandleGetAnimals, "animals"))
	mux.HandleFunc("POST /api/animals/reload", MetricsMiddleware(s.animalsHandler.HandleReload, "animals_reload"))
	mux.HandleFunc("GET /api/species", MetricsMiddleware(s.speciesHandler.HandleListSpecies, "species"))
	mux.HandleFunc("PATCH /api/species/{id}", MetricsMiddleware(s.speciesHandler.HandlePatchSpecies, "species_update"))
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func callerOf(id auth.Identity) dataservice.Caller {
	return dataservice.Caller{AccessToken: id.AccessToken, UserID: id.UserID}
}
