package api

import (
	"net/http"

	"github.com/okian/speciesdex/internal/adapters/auth"
)

// AnimalsHandler serves the speed dataset.
type AnimalsHandler struct {
	deps     AnimalsDependencies
	resolver auth.Resolver
}

// NewAnimalsHandler creates a new animals handler. Reloads are only accepted
// from requests resolver signs in.
func NewAnimalsHandler(deps AnimalsDependencies, resolver auth.Resolver) *AnimalsHandler {
	if resolver == nil {
		resolver = auth.StaticResolver{}
	}
	return &AnimalsHandler{deps: deps, resolver: resolver}
}

type reloadResponse struct {
	Status string `json:"status"`
}

// HandleGetAnimals handles GET /api/animals with the ranked records and the
// row counts of the last ingestion.
func (h *AnimalsHandler) HandleGetAnimals(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Snapshot())
}

// HandleReload handles POST /api/animals/reload. The reload runs in the
// background; a request that finds one already pending is coalesced into it.
func (h *AnimalsHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	const op = "api.reload_animals"
	if !h.resolver.Resolve(r).SignedIn() {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}
	status := "queued"
	if !h.deps.RequestReload(r.Context(), "api") {
		status = "coalesced"
	}
	writeJSON(w, http.StatusAccepted, reloadResponse{Status: status})
}
