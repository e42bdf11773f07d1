package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/access-git/internal/apperror"
	"github.com/sakif/access-git/internal/auth"
	"github.com/sakif/access-git/internal/github/githubtest"
	"github.com/sakif/access-git/internal/handler"
	"github.com/sakif/access-git/internal/model"
	"github.com/sakif/access-git/internal/queue"
	"github.com/sakif/access-git/internal/repository/sqlite"
	"github.com/sakif/access-git/internal/service"
)

// =========================================================================
// HELPERS
// =========================================================================

const testToken = "ghp_handler_test"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSessions(t *testing.T) *auth.SessionStore {
	t.Helper()
	tokens, err := auth.NewTokenService(strings.Repeat("s", 32), time.Hour)
	require.NoError(t, err)
	sessions, err := auth.NewSessionStore(tokens, []byte(strings.Repeat("h", 32)), []byte(strings.Repeat("b", 16)), time.Hour, false)
	require.NoError(t, err)
	return sessions
}

// newAuthHandler wires an AuthHandler to a fresh in-memory store. When
// password is non-empty it becomes the site password.
func newAuthHandler(t *testing.T, fake *githubtest.Fake, password string, oauth *auth.GitHubProvider) (*handler.AuthHandler, *auth.SessionStore) {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	site := service.NewSiteAuthService(
		db,
		auth.NewPasswordServiceWithCost(bcrypt.MinCost),
		fake,
		queue.New(2),
		testLogger(),
	)
	if password != "" {
		require.NoError(t, site.SetPassword(context.Background(), password))
	}

	sessions := testSessions(t)
	return handler.NewAuthHandler(site, sessions, oauth, false, testLogger()), sessions
}

// serveAPI routes one request through chi with the credential gate in
// front, the way the server mounts every /api handler.
func serveAPI(method, pattern, target, body string, h http.HandlerFunc) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.With(auth.RequireCredential).Method(method, pattern, h)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer "+testToken)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

// =========================================================================
// SITE PASSWORD
// =========================================================================

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
		wantCookie bool
	}{
		{name: "correct password", body: `{"password":"hunter2"}`, wantStatus: http.StatusOK, wantCookie: true},
		{name: "wrong password", body: `{"password":"nope"}`, wantStatus: http.StatusUnauthorized, wantError: "Invalid password."},
		{name: "empty password", body: `{"password":""}`, wantStatus: http.StatusBadRequest, wantError: "Password is required."},
		{name: "malformed body", body: `{"password":`, wantStatus: http.StatusBadRequest, wantError: "Password is required."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newAuthHandler(t, githubtest.New(), "hunter2", nil)

			rec := httptest.NewRecorder()
			h.HandleLogin(rec, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCookie, findCookie(rec, auth.SessionCookieName) != nil)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decodeError(t, rec).Error)
			} else {
				assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
			}
		})
	}
}

func TestAuthHandler_LoginNotConfigured(t *testing.T) {
	h, _ := newAuthHandler(t, githubtest.New(), "", nil)

	rec := httptest.NewRecorder()
	h.HandleLogin(rec, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"password":"x"}`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t,
		"Site login is not configured correctly. Please contact an administrator.",
		decodeError(t, rec).Error)
}

func TestAuthHandler_StatusFollowsSession(t *testing.T) {
	h, _ := newAuthHandler(t, githubtest.New(), "hunter2", nil)

	// Anonymous.
	rec := httptest.NewRecorder()
	h.HandleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/auth/status", nil))
	assert.JSONEq(t, `{"isLoggedIn":false}`, rec.Body.String())

	// Log in and replay the cookie.
	login := httptest.NewRecorder()
	h.HandleLogin(login, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"password":"hunter2"}`)))
	cookie := findCookie(login, auth.SessionCookieName)
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/status", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.HandleStatus(rec, req)
	assert.JSONEq(t, `{"isLoggedIn":true}`, rec.Body.String())
}

func TestAuthHandler_LogoutClearsCookie(t *testing.T) {
	h, _ := newAuthHandler(t, githubtest.New(), "hunter2", nil)

	rec := httptest.NewRecorder()
	h.HandleLogout(rec, httptest.NewRequest(http.MethodPost, "/api/logout", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	cookie := findCookie(rec, auth.SessionCookieName)
	require.NotNil(t, cookie)
	assert.Less(t, cookie.MaxAge, 0)
}

// =========================================================================
// GITHUB CREDENTIAL
// =========================================================================

func TestAuthHandler_ValidatePAT(t *testing.T) {
	fake := githubtest.New()
	fake.Viewer = model.User{ID: 1, Login: "octocat", Name: "The Octocat", AvatarURL: "https://avatars/1", HTMLURL: "https://github.com/octocat"}
	h, _ := newAuthHandler(t, fake, "", nil)

	rec := httptest.NewRecorder()
	h.HandleValidatePAT(rec, httptest.NewRequest(http.MethodPost, "/api/auth/validate-pat", strings.NewReader(`{"pat":"ghp_abc"}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"valid": true,
		"user": {"login": "octocat", "avatar_url": "https://avatars/1", "name": "The Octocat", "html_url": "https://github.com/octocat"}
	}`, rec.Body.String())
	assert.Equal(t, []string{"ghp_abc"}, fake.Tokens())
}

func TestAuthHandler_ValidatePATRejected(t *testing.T) {
	fake := githubtest.New()
	fake.Fail("AuthenticatedUser", "", apperror.Upstream(http.StatusUnauthorized, "Bad credentials", nil))
	h, _ := newAuthHandler(t, fake, "", nil)

	rec := httptest.NewRecorder()
	h.HandleValidatePAT(rec, httptest.NewRequest(http.MethodPost, "/api/auth/validate-pat", strings.NewReader(`{"pat":"ghp_revoked"}`)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid Personal Access Token", decodeError(t, rec).Error)
}

func TestAuthHandler_ValidatePATMissing(t *testing.T) {
	for _, body := range []string{`{}`, `not json`} {
		h, _ := newAuthHandler(t, githubtest.New(), "", nil)

		rec := httptest.NewRecorder()
		h.HandleValidatePAT(rec, httptest.NewRequest(http.MethodPost, "/api/auth/validate-pat", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "Personal Access Token is required", decodeError(t, rec).Error, body)
	}
}

// =========================================================================
// OAUTH
// =========================================================================

func TestAuthHandler_OAuthDisabled(t *testing.T) {
	h, _ := newAuthHandler(t, githubtest.New(), "", nil)

	rec := httptest.NewRecorder()
	h.HandleGitHubLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthHandler_OAuthRoundTrip(t *testing.T) {
	provider := auth.NewGitHubProvider("client-id", "client-secret", "http://localhost:8080/auth/github/callback")
	h, _ := newAuthHandler(t, githubtest.New(), "", provider)

	rec := httptest.NewRecorder()
	h.HandleGitHubLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	state := findCookie(rec, auth.StateCookieName)
	require.NotNil(t, state)
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, state.Value, location.Query().Get("state"))

	t.Run("state mismatch", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=abc&state=forged", nil)
		req.AddCookie(state)
		rec := httptest.NewRecorder()
		h.HandleGitHubCallback(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("denied on GitHub", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?error=access_denied&state="+state.Value, nil)
		req.AddCookie(state)
		rec := httptest.NewRecorder()
		h.HandleGitHubCallback(rec, req)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/?auth=denied", rec.Header().Get("Location"))
		assert.Nil(t, findCookie(rec, auth.PATCookieName))
	})
}

// =========================================================================
// CREDENTIAL GATE
// =========================================================================

func TestAPI_RequiresCredential(t *testing.T) {
	r := chi.NewRouter()
	r.With(auth.RequireCredential).Get("/api/contexts", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/contexts", bytes.NewReader(nil)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
