package site

import (
	"net/http"
	"strings"

	"github.com/okian/speciesdex/internal/adapters/auth"
	"github.com/okian/speciesdex/pkg/logger"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	verifier := auth.NewVerifier()
	s.cookies.SetVerifier(w, verifier)
	redirectTo := strings.TrimRight(s.siteURL, "/") + "/auth/callback"
	http.Redirect(w, r, s.authn.AuthorizeURL(s.provider, redirectTo, auth.Challenge(verifier)), http.StatusFound)
}

// handleCallback exchanges the code once. Without a code, or when the
// exchange fails, the visitor lands on /species and is sent home from there.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if code := r.URL.Query().Get("code"); code != "" {
		verifier, _ := s.cookies.Get(r, auth.CookieVerifier)
		sess, err := s.authn.ExchangeCode(r.Context(), code, verifier)
		if err != nil {
			s.logger.Warn(r.Context(), "auth code exchange failed", logger.Error(err))
		} else {
			s.cookies.SetSession(w, sess)
			s.logger.Info(r.Context(), "user signed in", logger.String("user", sess.User.ID))
		}
		s.cookies.Remove(w, auth.CookieVerifier)
	}
	http.Redirect(w, r, "/species", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := s.cookies.AccessToken(r); token != "" {
		if err := s.authn.SignOut(r.Context(), token); err != nil {
			s.logger.Warn(r.Context(), "sign out failed", logger.Error(err))
		}
	}
	s.cookies.ClearSession(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
