package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/speciesdex/internal/adapters/auth"
	"github.com/okian/speciesdex/internal/adapters/dataservice"
	service "github.com/okian/speciesdex/internal/app"
	"github.com/okian/speciesdex/internal/domain/species"
)

// IdempotencyKeyHeader carries the submission token of a PATCH.
const IdempotencyKeyHeader = "Idempotency-Key"

// SpeciesHandler serves the species table.
type SpeciesHandler struct {
	deps     SpeciesDependencies
	resolver auth.Resolver
}

// NewSpeciesHandler creates a new species handler.
func NewSpeciesHandler(deps SpeciesDependencies, resolver auth.Resolver) *SpeciesHandler {
	if resolver == nil {
		resolver = auth.StaticResolver{}
	}
	return &SpeciesHandler{deps: deps, resolver: resolver}
}

// patchRequest accepts total_population as a JSON number or string.
type patchRequest struct {
	CommonName      string          `json:"common_name"`
	ScientificName  string          `json:"scientific_name"`
	Kingdom         string          `json:"kingdom"`
	TotalPopulation json.RawMessage `json:"total_population"`
	Image           string          `json:"image"`
	Description     string          `json:"description"`
}

func (p patchRequest) form() (species.EditForm, error) {
	f := species.EditForm{
		CommonName:     p.CommonName,
		ScientificName: p.ScientificName,
		Kingdom:        p.Kingdom,
		Image:          p.Image,
		Description:    p.Description,
	}
	raw := bytes.TrimSpace(p.TotalPopulation)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '"':
		if err := json.Unmarshal(raw, &f.TotalPopulation); err != nil {
			return f, err
		}
	default:
		f.TotalPopulation = string(raw)
	}
	return f, nil
}

// HandleListSpecies handles GET /api/species.
func (h *SpeciesHandler) HandleListSpecies(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_species"
	list, err := h.deps.ListSpecies(r.Context(), callerOf(h.resolver.Resolve(r)))
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream_error", WrapKind(op, ErrUpstream, err))
		return
	}
	if list == nil {
		list = []species.Species{}
	}
	writeJSON(w, http.StatusOK, list)
}

// HandlePatchSpecies handles PATCH /api/species/{id}. Only the author of a
// row can change it; the data service decides that.
func (h *SpeciesHandler) HandlePatchSpecies(w http.ResponseWriter, r *http.Request) {
	const op = "api.patch_species"
	id, err := species.ParseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	identity := h.resolver.Resolve(r)
	if !identity.SignedIn() {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}

	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	form, err := req.form()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	form.Token = r.Header.Get(IdempotencyKeyHeader)

	caller := callerOf(identity)
	current, err := h.deps.GetSpecies(r.Context(), caller, id)
	switch {
	case errors.Is(err, dataservice.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, "upstream_error", WrapKind(op, ErrUpstream, err))
		return
	}

	res, err := h.deps.UpdateSpecies(r.Context(), caller, *current, form)
	if err != nil {
		writeUpdateError(w, err)
		return
	}
	if len(res.FieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "validation_failed",
			Message: res.FieldErrors.Error(),
			Fields:  res.FieldErrors,
		})
		return
	}
	writeJSON(w, http.StatusOK, res.Species)
}

func writeUpdateError(w http.ResponseWriter, err error) {
	var ue *service.UpdateError
	if !errors.As(err, &ue) {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	switch {
	case errors.Is(ue, service.ErrDuplicateSubmission):
		writeError(w, http.StatusConflict, "duplicate_submission", ue)
	case errors.Is(ue, service.ErrNoRowReturned):
		writeError(w, http.StatusNotFound, "no_row", ue)
	case errors.Is(ue, service.ErrUpdateFailed):
		writeError(w, http.StatusBadGateway, "update_failed", ue)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", ue)
	}
}
