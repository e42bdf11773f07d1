package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// StateCookieName holds the OAuth state between redirect and callback.
const StateCookieName = "access-git-oauth-state"

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code
// flow. It is an alternative to pasting a personal access token: the token
// GitHub hands back is given to the browser in the github_pat cookie, exactly
// where a pasted token would live. The server keeps nothing.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. /auth/github/login redirects to GitHub with ClientID, scopes and state.
//  2. The operator approves on GitHub.
//  3. GitHub redirects to /auth/github/callback with a short-lived code.
//  4. The server exchanges code + ClientSecret for an access token.
type GitHubProvider struct {
	config *oauth2.Config
}

// Scopes the dashboard needs: repository administration for collaborator
// grants, and org administration for team membership and team repositories.
var oauthScopes = []string{"repo", "read:org", "admin:org"}

// NewGitHubProvider creates a GitHubProvider. callbackURL must match the
// "Authorization callback URL" of the registered OAuth App exactly.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return newGitHubProvider(clientID, clientSecret, callbackURL, github.Endpoint)
}

func newGitHubProvider(clientID, clientSecret, callbackURL string, endpoint oauth2.Endpoint) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       oauthScopes,
			Endpoint:     endpoint,
		},
	}
}

// AuthURL returns the GitHub authorization URL for state.
//
// STATE PARAMETER:
// The handler stores a random state (an xid) in a short-lived cookie before
// redirecting and compares it on callback, so a forged callback carrying an
// attacker's code is refused.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for an access token.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", errors.New("auth: missing OAuth code")
	}

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}
	if token.AccessToken == "" {
		return "", errors.New("auth: GitHub returned an empty access token")
	}
	return token.AccessToken, nil
}
