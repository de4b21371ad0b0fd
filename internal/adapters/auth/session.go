package auth

import (
	"net/http"
	"strings"

	"github.com/okian/speciesdex/pkg/logger"
)

// Identity is the signed-in user of a request, if any.
type Identity struct {
	AccessToken string
	UserID      string
}

// SignedIn reports whether a user was resolved.
func (i Identity) SignedIn() bool { return i.UserID != "" }

// Resolver finds the Identity of a request.
type Resolver interface {
	Resolve(r *http.Request) Identity
}

// SessionResolver validates the session cookie (or a bearer header) against
// the auth service on every call.
type SessionResolver struct {
	client  *Client
	cookies CookieStore
}

// NewSessionResolver creates a SessionResolver.
func NewSessionResolver(c *Client, cookies CookieStore) *SessionResolver {
	return &SessionResolver{client: c, cookies: cookies}
}

// Resolve returns an empty Identity when there is no valid session.
func (s *SessionResolver) Resolve(r *http.Request) Identity {
	token := s.cookies.AccessToken(r)
	if token == "" {
		token = bearerToken(r)
	}
	if token == "" {
		return Identity{}
	}
	user, err := s.client.GetUser(r.Context(), token)
	if err != nil {
		s.client.logger.Debug(r.Context(), "session rejected", logger.Error(err))
		return Identity{}
	}
	return Identity{AccessToken: token, UserID: user.ID}
}

// StaticResolver treats every request as UserID. Used when no auth service
// is configured.
type StaticResolver struct {
	UserID string
}

// Resolve implements Resolver.
func (s StaticResolver) Resolve(*http.Request) Identity {
	return Identity{UserID: s.UserID}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
