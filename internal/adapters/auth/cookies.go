package auth

import (
	"net/http"
	"time"
)

// Cookie names.
const (
	CookieAccessToken  = "sd-access-token"
	CookieRefreshToken = "sd-refresh-token"
	CookieVerifier     = "sd-pkce-verifier"
)

const verifierMaxAge = 10 * time.Minute

// CookieStore reads and writes session cookies.
type CookieStore struct {
	Secure bool
}

// Get returns the value of cookie name.
func (s CookieStore) Get(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Set writes cookie name. maxAge <= 0 makes it a session cookie.
func (s CookieStore) Set(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		c.MaxAge = int(maxAge / time.Second)
	}
	http.SetCookie(w, c)
}

// Remove expires cookie name.
func (s CookieStore) Remove(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetSession stores the tokens of sess.
func (s CookieStore) SetSession(w http.ResponseWriter, sess Session) {
	s.Set(w, CookieAccessToken, sess.AccessToken, time.Duration(sess.ExpiresIn)*time.Second)
	if sess.RefreshToken != "" {
		s.Set(w, CookieRefreshToken, sess.RefreshToken, 0)
	}
}

// ClearSession removes every auth cookie.
func (s CookieStore) ClearSession(w http.ResponseWriter) {
	s.Remove(w, CookieAccessToken)
	s.Remove(w, CookieRefreshToken)
	s.Remove(w, CookieVerifier)
}

// SetVerifier stores a PKCE verifier for the callback.
func (s CookieStore) SetVerifier(w http.ResponseWriter, verifier string) {
	s.Set(w, CookieVerifier, verifier, verifierMaxAge)
}

// AccessToken returns the session access token from r.
func (s CookieStore) AccessToken(r *http.Request) string {
	v, _ := s.Get(r, CookieAccessToken)
	return v
}
