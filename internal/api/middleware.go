// Package api implements the resummarize HTTP API and entry pages using chi.
package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/starford/resummarize/internal/auth"
)

// sessionToken returns the session token carried by the cookie or, for API
// clients, an "Authorization: Bearer <token>" header.
func sessionToken(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// SessionMiddleware resolves the session on every request and, when it is
// valid, stores the user in the request context. It never rejects.
func SessionMiddleware(svc *auth.Service, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r, cookieName)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			u, err := svc.CurrentUser(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), u)))
		})
	}
}

// RequireUser answers 401 JSON for requests without a signed-in user.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.UserFromContext(r.Context()); !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody("not authenticated"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePage redirects anonymous visitors of protected pages to the login
// page, remembering where they were going.
func RequirePage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.UserFromContext(r.Context()); !ok {
			target := "/auth?mode=login&next=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
