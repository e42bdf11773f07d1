package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/access-git/internal/auth"
	"github.com/sakif/access-git/internal/service"
)

// oauthStateTTL is how long the operator has to approve on GitHub.
const oauthStateTTL = 600

// AuthHandler serves both gates: the site password session and the GitHub
// credential.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLogin          → check the site password, set the session cookie
//   - HandleLogout         → clear the session cookie
//   - HandleStatus         → report whether the session is logged in
//   - HandleValidatePAT    → ask GitHub who a pasted token belongs to
//   - HandleGitHubLogin    → redirect to GitHub's authorization page
//   - HandleGitHubCallback → exchange the code, hand the token to the browser
type AuthHandler struct {
	site     *service.SiteAuthService
	sessions *auth.SessionStore
	oauth    *auth.GitHubProvider // nil when OAuth sign-in is not configured
	secure   bool
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. oauth may be nil.
func NewAuthHandler(
	site *service.SiteAuthService,
	sessions *auth.SessionStore,
	oauth *auth.GitHubProvider,
	secure bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		site:     site,
		sessions: sessions,
		oauth:    oauth,
		secure:   secure,
		logger:   logger,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

// HandleLogin checks the site password.
//
// HTTP: POST /api/login
// REQUEST BODY: {"password": "..."}
// RESPONSE: {"ok": true} with the session cookie set.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Password is required."})
		return
	}

	if err := h.site.Login(r.Context(), req.Password); err != nil {
		if errors.Is(err, service.ErrSiteLoginNotConfigured) {
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{
				Error: "Site login is not configured correctly. Please contact an administrator.",
			})
			return
		}
		writeError(w, err)
		return
	}

	if err := h.sessions.Save(w); err != nil {
		h.logger.Error("saving session failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "An internal error occurred"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleLogout ends the site session. The GitHub credential lives in the
// browser and is the browser's to forget.
//
// HTTP: POST /api/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleStatus reports the session state.
//
// HTTP: GET /api/auth/status
// RESPONSE: {"isLoggedIn": true|false}
func (h *AuthHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.Load(r))
}

type validatePATRequest struct {
	PAT string `json:"pat"`
}

type validatePATResponse struct {
	Valid bool          `json:"valid"`
	User  validatedUser `json:"user"`
}

type validatedUser struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	Name      string `json:"name"`
	HTMLURL   string `json:"html_url"`
}

// HandleValidatePAT checks a pasted personal access token before the browser
// stores it.
//
// HTTP: POST /api/auth/validate-pat
// REQUEST BODY: {"pat": "ghp_..."}
func (h *AuthHandler) HandleValidatePAT(w http.ResponseWriter, r *http.Request) {
	var req validatePATRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Personal Access Token is required"})
		return
	}

	user, err := h.site.ValidateCredential(r.Context(), req.PAT)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, validatePATResponse{
		Valid: true,
		User: validatedUser{
			Login:     user.Login,
			AvatarURL: user.AvatarURL,
			Name:      user.Name,
			HTMLURL:   user.HTMLURL,
		},
	})
}

// HandleGitHubLogin redirects the operator to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state goes into a short-lived HttpOnly cookie and into the
// authorization URL; the callback refuses any request where they differ.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		http.NotFound(w, r)
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     auth.StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   oauthStateTTL,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.oauth.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for an access token
//  3. Put the token in the github_pat cookie, where a pasted token would live
//  4. Redirect to the dashboard
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		http.NotFound(w, r)
		return
	}

	// --- Step 1: Validate CSRF state ---
	stateCookie, err := r.Cookie(auth.StateCookieName)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{
		Name:   auth.StateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	// --- Step 2: Exchange code for a token ---
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}
	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	// --- Step 3: Hand the token to the browser ---
	// Not HttpOnly: the dashboard script reads it to show which identity
	// is active, the same as a pasted token.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.PATCookieName,
		Value:    token,
		Path:     "/",
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("GitHub sign-in completed")

	// --- Step 4: Redirect to the app ---
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
