package site

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/okian/speciesdex/internal/adapters/auth"
	"github.com/okian/speciesdex/internal/adapters/dataservice"
	service "github.com/okian/speciesdex/internal/app"
	"github.com/okian/speciesdex/internal/domain/species"
	"github.com/okian/speciesdex/pkg/logger"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	id := s.resolver.Resolve(r)
	s.render(w, r, http.StatusOK, pageHome, page{Nav: s.nav(id.SignedIn()), Title: "Home"})
}

// requireSession redirects anonymous visitors home. It returns false when
// the request was answered.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id := s.resolver.Resolve(r)
	if !id.SignedIn() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return id, false
	}
	return id, true
}

func (s *Server) handleSpeciesList(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	list, err := s.deps.ListSpecies(r.Context(), callerOf(id))
	if err != nil {
		s.logger.Error(r.Context(), "list species failed", logger.Error(err))
		s.renderError(w, r, true, http.StatusBadGateway, "Could not load species: "+dataservice.UserMessage(err))
		return
	}
	cards := make([]cardView, 0, len(list))
	for _, sp := range list {
		cards = append(cards, newCardView(sp))
	}
	s.render(w, r, http.StatusOK, pageSpecies, page{Nav: s.nav(true), Title: "Species", Data: cards})
}

// loadSpecies resolves the session and the species of the {id} path value.
// It returns false when the request was answered.
func (s *Server) loadSpecies(w http.ResponseWriter, r *http.Request) (auth.Identity, *species.Species, bool) {
	id, ok := s.requireSession(w, r)
	if !ok {
		return id, nil, false
	}
	sid, err := species.ParseID(r.PathValue("id"))
	if err != nil {
		s.renderError(w, r, true, http.StatusBadRequest, "Invalid species id.")
		return id, nil, false
	}
	sp, err := s.deps.GetSpecies(r.Context(), callerOf(id), sid)
	switch {
	case errors.Is(err, dataservice.ErrNotFound):
		s.renderError(w, r, true, http.StatusNotFound, "Species not found.")
		return id, nil, false
	case err != nil:
		s.logger.Error(r.Context(), "get species failed", logger.String("id", sid.String()), logger.Error(err))
		s.renderError(w, r, true, http.StatusBadGateway, "Could not load species: "+dataservice.UserMessage(err))
		return id, nil, false
	}
	return id, sp, true
}

func (s *Server) handleSpeciesDetail(w http.ResponseWriter, r *http.Request) {
	id, sp, ok := s.loadSpecies(w, r)
	if !ok {
		return
	}
	view := newDetailView(*sp, id.UserID)
	view.Updated = r.URL.Query().Get("updated") == "1"
	s.render(w, r, http.StatusOK, pageDetail, page{Nav: s.nav(true), Title: view.Title, Data: view})
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	id, sp, ok := s.loadSpecies(w, r)
	if !ok {
		return
	}
	if !species.CanEdit(id.UserID, *sp) {
		http.Redirect(w, r, "/species/"+sp.ID.String(), http.StatusSeeOther)
		return
	}

	var dialog species.Dialog
	if !s.step(w, r, dialog.Open()) {
		return
	}
	form := species.FormFrom(*sp)
	form.Token = uuid.NewString()
	s.renderEdit(w, r, http.StatusOK, *sp, form, nil, &dialog)
}

// handleEditSubmit runs one submission of the edit dialog. The data service
// decides whether the user may edit the row, so the post is sent even when
// the session user is not the recorded author.
func (s *Server) handleEditSubmit(w http.ResponseWriter, r *http.Request) {
	id, sp, ok := s.loadSpecies(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, true, http.StatusBadRequest, "Malformed form submission.")
		return
	}
	form := species.EditForm{
		CommonName:      r.PostFormValue(species.FieldCommonName),
		ScientificName:  r.PostFormValue(species.FieldScientificName),
		Kingdom:         r.PostFormValue(species.FieldKingdom),
		TotalPopulation: r.PostFormValue(species.FieldTotalPopulation),
		Image:           r.PostFormValue(species.FieldImage),
		Description:     r.PostFormValue(species.FieldDescription),
		Token:           r.PostFormValue("token"),
	}

	var dialog species.Dialog
	if !s.step(w, r, dialog.Open()) {
		return
	}
	if _, fieldErrs := form.Validate(); len(fieldErrs) > 0 {
		s.renderEdit(w, r, http.StatusUnprocessableEntity, *sp, form, fieldErrs, &dialog)
		return
	}

	if !s.step(w, r, dialog.Submit()) {
		return
	}
	res, err := s.deps.UpdateSpecies(r.Context(), callerOf(id), *sp, form)
	if err != nil {
		var ue *service.UpdateError
		msg := service.MsgUnexpectedUpdate
		status := http.StatusInternalServerError
		if errors.As(err, &ue) {
			msg = ue.Message
			status = updateStatus(ue)
		}
		if !s.step(w, r, dialog.Fail(msg)) {
			return
		}
		s.renderEdit(w, r, status, *sp, form, nil, &dialog)
		return
	}
	if len(res.FieldErrors) > 0 {
		if !s.step(w, r, dialog.Fail("")) {
			return
		}
		s.renderEdit(w, r, http.StatusUnprocessableEntity, *sp, form, res.FieldErrors, &dialog)
		return
	}

	if !s.step(w, r, dialog.Succeed()) {
		return
	}
	s.logger.Info(r.Context(), "species updated",
		logger.String("id", res.Species.ID.String()),
		logger.String("user", id.UserID),
	)
	http.Redirect(w, r, "/species/"+res.Species.ID.String()+"?updated=1", http.StatusSeeOther)
}

// step checks one dialog transition. A refused transition answers the request
// with 500 and returns false.
func (s *Server) step(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return true
	}
	s.logger.Error(r.Context(), "edit dialog transition refused", logger.Error(err))
	s.renderError(w, r, true, http.StatusInternalServerError, service.MsgUnexpectedUpdate)
	return false
}

func (s *Server) renderEdit(w http.ResponseWriter, r *http.Request, status int, sp species.Species, form species.EditForm, fieldErrs species.FieldErrors, dialog *species.Dialog) {
	view := editView{
		ID:          sp.ID.String(),
		Title:       sp.Title(),
		Form:        form,
		FieldErrors: fieldErrs,
		State:       dialog.State().String(),
		Error:       dialog.Err(),
	}
	s.render(w, r, status, pageEdit, page{Nav: s.nav(true), Title: "Edit species", Data: view})
}

func updateStatus(ue *service.UpdateError) int {
	switch {
	case errors.Is(ue, service.ErrDuplicateSubmission):
		return http.StatusConflict
	case errors.Is(ue, service.ErrNoRowReturned):
		return http.StatusForbidden
	case errors.Is(ue, service.ErrUpdateFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
