package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/access-git/internal/apperror"
	"github.com/sakif/access-git/internal/model"
)

// newStubClient starts an httptest server with the given routes and returns a
// Client pointed at it. The server is closed when the test ends.
func newStubClient(t *testing.T, routes func(r chi.Router)) Client {
	t.Helper()

	r := chi.NewRouter()
	routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	p, err := NewRESTProvider(srv.URL)
	require.NoError(t, err)
	return p.Client("ghp_testtoken")
}

func TestRESTClient_SendsBearerToken(t *testing.T) {
	var got string
	c := newStubClient(t, func(r chi.Router) {
		r.Get("/user", func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("Authorization")
			fmt.Fprint(w, `{"id": 1, "login": "octocat", "name": "Mona", "avatar_url": "https://a/1", "html_url": "https://github.com/octocat"}`)
		})
	})

	u, err := c.AuthenticatedUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer ghp_testtoken", got)
	assert.Equal(t, &model.User{ID: 1, Login: "octocat", Name: "Mona", AvatarURL: "https://a/1", HTMLURL: "https://github.com/octocat"}, u)
}

func TestRESTClient_ListOrgTeamsFollowsPages(t *testing.T) {
	var srvURL string
	c := newStubClient(t, func(r chi.Router) {
		r.Get("/orgs/octo/teams", func(w http.ResponseWriter, r *http.Request) {
			srvURL = "http://" + r.Host
			if r.URL.Query().Get("page") == "2" {
				fmt.Fprint(w, `[{"id": 2, "name": "Ops", "slug": "ops"}]`)
				return
			}
			w.Header().Set("Link", fmt.Sprintf(`<%s/orgs/octo/teams?page=2&per_page=100>; rel="next"`, srvURL))
			fmt.Fprint(w, `[{"id": 1, "name": "Platform", "slug": "platform"}]`)
		})
	})

	teams, err := c.ListOrgTeams(context.Background(), "octo")
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, "platform", teams[0].Slug)
	assert.Equal(t, "ops", teams[1].Slug)
}

func TestRESTClient_TranslatesErrorResponse(t *testing.T) {
	c := newStubClient(t, func(r chi.Router) {
		r.Get("/orgs/octo/teams/platform/memberships/alice", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message": "Not Found"}`)
		})
		r.Put("/repos/octo/demo/collaborators/bob", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			fmt.Fprint(w, `{"message": "Validation Failed", "errors": [{"resource": "Repository", "field": "permission", "code": "invalid"}]}`)
		})
	})

	_, err := c.TeamMembership(context.Background(), "octo", "platform", "alice")
	require.Error(t, err)
	assert.True(t, apperror.IsUpstreamNotFound(err))
	assert.True(t, errors.Is(err, apperror.ErrUpstream))

	err = c.SetCollaborator(context.Background(), "octo", "demo", "bob", model.PermissionPush)
	require.Error(t, err)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)
	assert.Equal(t, "Validation Failed", appErr.Message)
	assert.Equal(t, []apperror.Detail{{Resource: "Repository", Field: "permission", Code: "invalid"}}, appErr.Details)
}

func TestRESTClient_IsOrgMember(t *testing.T) {
	c := newStubClient(t, func(r chi.Router) {
		r.Get("/orgs/octo/members/alice", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		r.Get("/orgs/octo/members/mallory", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message": "Not Found"}`)
		})
		r.Get("/orgs/octo/members/eve", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"message": "Server Error"}`)
		})
	})
	ctx := context.Background()

	ok, err := c.IsOrgMember(ctx, "octo", "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.IsOrgMember(ctx, "octo", "mallory")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.IsOrgMember(ctx, "octo", "eve")
	assert.Equal(t, http.StatusInternalServerError, apperror.StatusOf(err))
}

func TestRESTClient_TeamReposCarryTeamPermission(t *testing.T) {
	c := newStubClient(t, func(r chi.Router) {
		r.Get("/orgs/octo/teams/platform/repos", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[
				{"id": 10, "name": "api", "full_name": "octo/api", "private": true,
				 "permissions": {"admin": false, "maintain": true, "push": true, "triage": true, "pull": true}},
				{"id": 11, "name": "docs", "full_name": "octo/docs",
				 "permissions": {"pull": true}}
			]`)
		})
	})

	repos, err := c.ListTeamRepos(context.Background(), "octo", "platform")
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, model.PermissionMaintain, repos[0].Permission)
	assert.True(t, repos[0].Private)
	assert.Equal(t, model.PermissionPull, repos[1].Permission)
}

func TestRESTClient_CollaboratorPermission(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantLevel model.Permission
		wantOK    bool
	}{
		{
			name:      "maintain is read from role_name",
			body:      `{"permission": "write", "role_name": "maintain", "user": {"login": "alice"}}`,
			wantLevel: model.PermissionMaintain,
			wantOK:    true,
		},
		{
			name:      "triage is read from role_name",
			body:      `{"permission": "read", "role_name": "triage", "user": {"login": "alice"}}`,
			wantLevel: model.PermissionTriage,
			wantOK:    true,
		},
		{
			name:      "legacy answer without role_name",
			body:      `{"permission": "admin", "user": {"login": "alice"}}`,
			wantLevel: model.PermissionAdmin,
			wantOK:    true,
		},
		{
			name:   "no access",
			body:   `{"permission": "none", "role_name": "none", "user": {"login": "alice"}}`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newStubClient(t, func(r chi.Router) {
				r.Get("/repos/octo/api/collaborators/alice/permission", func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/json")
					fmt.Fprint(w, tt.body)
				})
			})

			perm, err := c.CollaboratorPermission(context.Background(), "octo", "api", "alice")
			require.NoError(t, err)
			level, ok := perm.Level()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantLevel, level)
			}
			require.NotNil(t, perm.User)
			assert.Equal(t, "alice", perm.User.Login)
		})
	}
}

func TestRESTClient_CollaboratorPermissionNotFound(t *testing.T) {
	c := newStubClient(t, func(r chi.Router) {
		r.Get("/repos/octo/api/collaborators/bob/permission", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message": "Not Found"}`)
		})
	})

	_, err := c.CollaboratorPermission(context.Background(), "octo", "api", "bob")
	require.Error(t, err)
	assert.True(t, apperror.IsUpstreamNotFound(err))
}

func TestNewRESTProvider_RejectsBadURL(t *testing.T) {
	_, err := NewRESTProvider("://nope")
	assert.Error(t, err)
}
