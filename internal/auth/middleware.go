package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// PATCookieName is the cookie the browser keeps the operator's GitHub token in.
const PATCookieName = "github_pat"

// contextKey is an unexported type used for context keys in this package.
//
// CONTEXT KEYS:
// context.WithValue uses any as the key type. A package-private type means
// only this package can create (and therefore read or overwrite) the key.
type contextKey string

const credentialKey contextKey = "githubCredential"

// publicPrefixes never require a site session. The API authenticates with
// the GitHub credential instead; /auth/* is the OAuth round trip.
var publicPrefixes = []string{"/login", "/api/", "/static/", "/metrics", "/auth/"}

// RequireSession is the page guard: any path outside publicPrefixes needs a
// logged-in site session, otherwise the browser is sent to /login.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware takes an http.Handler and returns a new http.Handler that
// wraps it. Chi applies them as a chain: req → M1 → M2 → Handler → M2 → M1.
func RequireSession(sessions *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) || sessions.Load(r).IsLoggedIn {
				next.ServeHTTP(w, r)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		})
	}
}

func isPublicPath(path string) bool {
	if path == "/api" {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// RequireCredential rejects API requests that carry no GitHub credential and
// stores the credential in the request context for handlers.
func RequireCredential(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ExtractCredential(r)
		if token == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "GitHub personal access token is required",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCredential(r.Context(), token)))
	})
}

// ExtractCredential reads the operator's token from the request.
//
// Order:
//  1. Authorization: Bearer <token>   (or the older "token <token>" scheme)
//  2. the github_pat cookie
func ExtractCredential(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, value, ok := strings.Cut(h, " ")
		if ok && (strings.EqualFold(scheme, "bearer") || strings.EqualFold(scheme, "token")) {
			if v := strings.TrimSpace(value); v != "" {
				return v
			}
		}
	}
	if c, err := r.Cookie(PATCookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// WithCredential returns ctx carrying token.
func WithCredential(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, credentialKey, token)
}

// CredentialFromContext returns the token stored by RequireCredential.
func CredentialFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(credentialKey).(string)
	return token, ok && token != ""
}
