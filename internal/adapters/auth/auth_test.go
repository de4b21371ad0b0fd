package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func newAuthServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if r.URL.Query().Get("grant_type") != "pkce" || in["auth_code"] != "good-code" || in["code_verifier"] == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(Session{
			AccessToken:  "access-1",
			TokenType:    "bearer",
			ExpiresIn:    3600,
			RefreshToken: "refresh-1",
			User:         User{ID: "user-1"},
		})
	})
	mux.HandleFunc("GET /auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" || r.Header.Get("apikey") != "anon" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"user-1","email":"a@example.com"}`))
	})
	mux.HandleFunc("POST /auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return httptest.NewServer(mux)
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	Convey("Given an auth server", t, func() {
		srv := newAuthServer()
		defer srv.Close()
		c, err := NewClient(srv.URL, "anon", srv.Client(), nil)
		So(err, ShouldBeNil)

		Convey("When exchanging a valid code", func() {
			sess, err := c.ExchangeCode(ctx, "good-code", NewVerifier())

			Convey("Then a session is returned", func() {
				So(err, ShouldBeNil)
				So(sess.AccessToken, ShouldEqual, "access-1")
				So(sess.User.ID, ShouldEqual, "user-1")
			})
		})

		Convey("When exchanging a bad code", func() {
			_, err := c.ExchangeCode(ctx, "bad-code", NewVerifier())

			Convey("Then the exchange fails", func() {
				So(errors.Is(err, ErrExchange), ShouldBeTrue)
			})
		})

		Convey("When looking up the user", func() {
			u, err := c.GetUser(ctx, "access-1")
			_, badErr := c.GetUser(ctx, "stale")
			_, emptyErr := c.GetUser(ctx, "")

			Convey("Then only a valid token resolves", func() {
				So(err, ShouldBeNil)
				So(u.ID, ShouldEqual, "user-1")
				So(errors.Is(badErr, ErrUnauthorized), ShouldBeTrue)
				So(errors.Is(emptyErr, ErrUnauthorized), ShouldBeTrue)
			})
		})

		Convey("When signing out", func() {
			Convey("Then it succeeds", func() {
				So(c.SignOut(ctx, "access-1"), ShouldBeNil)
				So(c.SignOut(ctx, ""), ShouldBeNil)
			})
		})

		Convey("When building the authorize URL", func() {
			raw := c.AuthorizeURL("github", "http://localhost:9080/auth/callback", "chal")
			u, err := url.Parse(raw)

			Convey("Then it carries the provider and PKCE challenge", func() {
				So(err, ShouldBeNil)
				So(u.Path, ShouldEqual, "/auth/v1/authorize")
				So(u.Query().Get("provider"), ShouldEqual, "github")
				So(u.Query().Get("redirect_to"), ShouldEqual, "http://localhost:9080/auth/callback")
				So(u.Query().Get("code_challenge"), ShouldEqual, "chal")
				So(u.Query().Get("code_challenge_method"), ShouldEqual, "s256")
			})
		})
	})

	Convey("Given an invalid base URL", t, func() {
		_, err := NewClient("not a url", "anon", nil, nil)

		Convey("Then construction fails", func() {
			So(errors.Is(err, ErrAuthRequest), ShouldBeTrue)
		})
	})
}

func TestPKCE(t *testing.T) {
	Convey("Given a verifier", t, func() {
		v := NewVerifier()

		Convey("Then it has a valid PKCE length and is unique", func() {
			So(len(v), ShouldBeBetweenOrEqual, 43, 128)
			So(NewVerifier(), ShouldNotEqual, v)
		})

		Convey("And the challenge matches the RFC 7636 example", func() {
			So(Challenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"), ShouldEqual, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM")
		})
	})
}

func TestCookieStore(t *testing.T) {
	Convey("Given a cookie store", t, func() {
		store := CookieStore{Secure: true}

		Convey("When a session is stored", func() {
			rec := httptest.NewRecorder()
			store.SetSession(rec, Session{AccessToken: "access-1", RefreshToken: "refresh-1", ExpiresIn: 60})
			cookies := rec.Result().Cookies()

			Convey("Then both tokens are set as secure http-only cookies", func() {
				So(len(cookies), ShouldEqual, 2)
				So(cookies[0].Name, ShouldEqual, CookieAccessToken)
				So(cookies[0].MaxAge, ShouldEqual, 60)
				So(cookies[0].HttpOnly, ShouldBeTrue)
				So(cookies[0].Secure, ShouldBeTrue)
			})

			Convey("And they can be read back", func() {
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				for _, c := range cookies {
					req.AddCookie(c)
				}
				So(store.AccessToken(req), ShouldEqual, "access-1")
				v, ok := store.Get(req, CookieRefreshToken)
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, "refresh-1")
			})
		})

		Convey("When the session is cleared", func() {
			rec := httptest.NewRecorder()
			store.ClearSession(rec)

			Convey("Then every cookie is expired", func() {
				cookies := rec.Result().Cookies()
				So(len(cookies), ShouldEqual, 3)
				for _, c := range cookies {
					So(c.Value, ShouldEqual, "")
					So(c.MaxAge, ShouldEqual, -1)
				}
			})
		})

		Convey("When a cookie is missing", func() {
			_, ok := store.Get(httptest.NewRequest(http.MethodGet, "/", nil), CookieVerifier)

			Convey("Then it is reported absent", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestSessionResolver(t *testing.T) {
	Convey("Given a session resolver backed by the auth server", t, func() {
		srv := newAuthServer()
		defer srv.Close()
		c, err := NewClient(srv.URL, "anon", srv.Client(), nil)
		So(err, ShouldBeNil)
		res := NewSessionResolver(c, CookieStore{})

		Convey("When the session cookie is valid", func() {
			r := httptest.NewRequest(http.MethodGet, "/species", nil)
			r.AddCookie(&http.Cookie{Name: CookieAccessToken, Value: "access-1"})
			id := res.Resolve(r)

			Convey("Then the user is resolved", func() {
				So(id.SignedIn(), ShouldBeTrue)
				So(id.UserID, ShouldEqual, "user-1")
				So(id.AccessToken, ShouldEqual, "access-1")
			})
		})

		Convey("When the token comes in a bearer header", func() {
			r := httptest.NewRequest(http.MethodGet, "/api/species", nil)
			r.Header.Set("Authorization", "Bearer access-1")

			Convey("Then it is accepted", func() {
				So(res.Resolve(r).UserID, ShouldEqual, "user-1")
			})
		})

		Convey("When the token is stale", func() {
			r := httptest.NewRequest(http.MethodGet, "/species", nil)
			r.AddCookie(&http.Cookie{Name: CookieAccessToken, Value: "expired"})

			Convey("Then the request is anonymous", func() {
				So(res.Resolve(r).SignedIn(), ShouldBeFalse)
			})
		})

		Convey("When there is no token", func() {
			Convey("Then the request is anonymous", func() {
				So(res.Resolve(httptest.NewRequest(http.MethodGet, "/", nil)), ShouldResemble, Identity{})
			})
		})
	})

	Convey("Given a static resolver", t, func() {
		res := StaticResolver{UserID: "dev"}

		Convey("Then every request belongs to the configured user", func() {
			id := res.Resolve(httptest.NewRequest(http.MethodGet, "/", nil))
			So(id.UserID, ShouldEqual, "dev")
			So(id.AccessToken, ShouldBeEmpty)
		})
	})
}
