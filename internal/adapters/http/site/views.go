package site

import (
	"github.com/dustin/go-humanize"
	"github.com/okian/speciesdex/internal/domain/species"
)

// PlaceholderImage is shown for species without an image.
const PlaceholderImage = "/images/placeholder-species.svg"

type cardView struct {
	ID             string
	Name           string
	ScientificName string
	Description    string
	Image          string
}

func newCardView(sp species.Species) cardView {
	v := cardView{
		ID:             sp.ID.String(),
		Name:           orDefault(sp.CommonName, "Unnamed"),
		ScientificName: orDefault(sp.ScientificName, ""),
		Description:    orDefault(sp.Description, "No brief description available."),
		Image:          orDefault(sp.Image, PlaceholderImage),
	}
	return v
}

type detailView struct {
	ID             string
	Title          string
	ScientificName string
	Kingdom        string
	Population     string
	Description    string
	Image          string
	CanEdit        bool
	Updated        bool
}

func newDetailView(sp species.Species, sessionUserID string) detailView {
	pop := "Unknown"
	if sp.TotalPopulation != nil {
		pop = humanize.Comma(*sp.TotalPopulation)
	}
	return detailView{
		ID:             sp.ID.String(),
		Title:          sp.Title(),
		ScientificName: orDefault(sp.ScientificName, ""),
		Kingdom:        orDefault(sp.Kingdom, "—"),
		Population:     pop,
		Description:    orDefault(sp.Description, "No description available."),
		Image:          orDefault(sp.Image, PlaceholderImage),
		CanEdit:        species.CanEdit(sessionUserID, sp),
	}
}

type editView struct {
	ID          string
	Title       string
	Form        species.EditForm
	FieldErrors species.FieldErrors
	State       string
	Error       string
}

type speedView struct {
	Shown    int
	Accepted int
	Dropped  int
	Width    int
}

func orDefault(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}
