// Package site renders the HTML pages: home, the species catalog with its
// edit form, the speed chart and the sign-in flow.
package site

import (
	"context"
	"html/template"
	"io"
	"net/http"

	"github.com/okian/speciesdex/internal/adapters/auth"
	"github.com/okian/speciesdex/internal/adapters/dataservice"
	"github.com/okian/speciesdex/internal/adapters/http/api"
	service "github.com/okian/speciesdex/internal/app"
	"github.com/okian/speciesdex/internal/domain/species"
	"github.com/okian/speciesdex/pkg/logger"
)

// Deps is what the pages need from the service.
type Deps interface {
	Snapshot() *service.Snapshot
	RenderChart(w io.Writer, width int) error
	RenderInteractive(w io.Writer) error
	ListSpecies(ctx context.Context, caller dataservice.Caller) ([]species.Species, error)
	GetSpecies(ctx context.Context, caller dataservice.Caller, id species.ID) (*species.Species, error)
	UpdateSpecies(ctx context.Context, caller dataservice.Caller, current species.Species, form species.EditForm) (service.UpdateResult, error)
}

// Authenticator runs the OAuth code flow. *auth.Client implements it.
type Authenticator interface {
	AuthorizeURL(provider, redirectTo, challenge string) string
	ExchangeCode(ctx context.Context, code, verifier string) (auth.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Server serves the HTML pages.
type Server struct {
	deps     Deps
	resolver auth.Resolver
	authn    Authenticator
	provider string
	siteURL  string
	cookies  auth.CookieStore
	pages    map[string]*template.Template
	logger   logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithAuth enables the sign-in routes.
func WithAuth(a Authenticator, provider, siteURL string) Option {
	return func(s *Server) {
		s.authn = a
		s.provider = provider
		s.siteURL = siteURL
	}
}

// WithResolver sets how requests are mapped to users.
func WithResolver(r auth.Resolver) Option {
	return func(s *Server) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithCookies sets the cookie policy.
func WithCookies(c auth.CookieStore) Option {
	return func(s *Server) {
		s.cookies = c
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Server. It fails only when the embedded templates do not
// parse.
func New(deps Deps, opts ...Option) (*Server, error) {
	s := &Server{
		deps:     deps,
		resolver: auth.StaticResolver{},
		siteURL:  "http://localhost:9080",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	s.logger = s.logger.Named("site")

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	s.pages = pages
	return s, nil
}

// Register attaches the page routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	assets := http.FileServerFS(staticFS())
	mux.Handle("GET /static/", http.StripPrefix("/static", assets))
	mux.Handle("GET /images/", assets)

	mux.HandleFunc("GET /{$}", api.MetricsMiddleware(s.handleHome, "page_home"))
	mux.HandleFunc("GET /species", api.MetricsMiddleware(s.handleSpeciesList, "page_species"))
	mux.HandleFunc("GET /species/{id}", api.MetricsMiddleware(s.handleSpeciesDetail, "page_species_detail"))
	mux.HandleFunc("GET /species/{id}/edit", api.MetricsMiddleware(s.handleEditForm, "page_species_edit"))
	mux.HandleFunc("POST /species/{id}/edit", api.MetricsMiddleware(s.handleEditSubmit, "page_species_edit"))
	mux.HandleFunc("GET /species-speed", api.MetricsMiddleware(s.handleSpeedPage, "page_speed"))
	mux.HandleFunc("GET /species-speed/chart.svg", api.MetricsMiddleware(s.handleChartSVG, "chart_svg"))
	mux.HandleFunc("GET /species-speed/interactive", api.MetricsMiddleware(s.handleInteractive, "chart_interactive"))

	if s.authn != nil {
		mux.HandleFunc("GET /auth/login", s.handleLogin)
		mux.HandleFunc("GET /auth/callback", s.handleCallback)
		mux.HandleFunc("POST /auth/logout", s.handleLogout)
	}
}

func callerOf(id auth.Identity) dataservice.Caller {
	return dataservice.Caller{AccessToken: id.AccessToken, UserID: id.UserID}
}
