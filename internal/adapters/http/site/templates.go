package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/okian/speciesdex/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var assetFS embed.FS

// staticFS exposes the assets rooted at static/.
func staticFS() fs.FS {
	sub, err := fs.Sub(assetFS, "static")
	if err != nil {
		return assetFS
	}
	return sub
}

// Page templates, each rendered inside layout.html.
const (
	pageHome    = "home.html"
	pageSpecies = "species.html"
	pageDetail  = "detail.html"
	pageEdit    = "edit.html"
	pageSpeed   = "speed.html"
	pageError   = "error.html"
)

var pageNames = []string{pageHome, pageSpecies, pageDetail, pageEdit, pageSpeed, pageError}

// nav drives the navbar links.
type nav struct {
	SignedIn    bool
	AuthEnabled bool
}

type page struct {
	Nav   nav
	Title string
	Data  any
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrTemplate, name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// render executes a page into a buffer first so a template error never
// leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	var buf bytes.Buffer
	if err := s.pages[name].ExecuteTemplate(&buf, "layout", p); err != nil {
		s.logger.Error(r.Context(), "page render failed",
			logger.String("page", name),
			logger.Error(err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, signedIn bool, status int, msg string) {
	s.render(w, r, status, pageError, page{
		Nav:   s.nav(signedIn),
		Title: http.StatusText(status),
		Data:  msg,
	})
}

func (s *Server) nav(signedIn bool) nav {
	return nav{SignedIn: signedIn, AuthEnabled: s.authn != nil}
}
