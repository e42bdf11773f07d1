package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// =========================================================================
// PAGE GUARD
// =========================================================================

func TestRequireSession(t *testing.T) {
	store := newTestSessionStore(t)
	guard := RequireSession(store)(okHandler)

	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(rec))
	session := cookieFrom(t, rec, SessionCookieName)

	tests := []struct {
		name         string
		path         string
		loggedIn     bool
		wantStatus   int
		wantLocation string
	}{
		{"dashboard without session", "/", false, http.StatusSeeOther, "/login"},
		{"nested page without session", "/organizations/octo/manage", false, http.StatusSeeOther, "/login"},
		{"dashboard with session", "/", true, http.StatusOK, ""},
		{"login page is public", "/login", false, http.StatusOK, ""},
		{"api is public", "/api/contexts", false, http.StatusOK, ""},
		{"static is public", "/static/app.js", false, http.StatusOK, ""},
		{"metrics is public", "/metrics", false, http.StatusOK, ""},
		{"oauth is public", "/auth/github/callback", false, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.loggedIn {
				req.AddCookie(session)
			}
			rec := httptest.NewRecorder()
			guard.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
		})
	}
}

// =========================================================================
// CREDENTIAL EXTRACTION
// =========================================================================

func TestExtractCredential(t *testing.T) {
	tests := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{"bearer header", "Bearer ghp_abc", "", "ghp_abc"},
		{"token scheme", "token ghp_abc", "", "ghp_abc"},
		{"case-insensitive scheme", "BEARER ghp_abc", "", "ghp_abc"},
		{"header wins over cookie", "Bearer from-header", "from-cookie", "from-header"},
		{"cookie fallback", "", "ghp_cookie", "ghp_cookie"},
		{"unknown scheme falls back to cookie", "Basic dXNlcjpwYXNz", "ghp_cookie", "ghp_cookie"},
		{"nothing", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/contexts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: PATCookieName, Value: tt.cookie})
			}
			assert.Equal(t, tt.want, ExtractCredential(req))
		})
	}
}

func TestRequireCredential(t *testing.T) {
	var seen string
	h := RequireCredential(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = CredentialFromContext(r.Context())
	}))

	t.Run("missing credential is 401 JSON", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/contexts", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"error":"GitHub personal access token is required"}`, rec.Body.String())
	})

	t.Run("credential reaches the handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/contexts", nil)
		req.Header.Set("Authorization", "Bearer ghp_secret")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ghp_secret", seen)
	})
}
