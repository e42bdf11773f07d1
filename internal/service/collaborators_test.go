package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/access-git/internal/apperror"
	"github.com/sakif/access-git/internal/cache"
	"github.com/sakif/access-git/internal/github/githubtest"
	"github.com/sakif/access-git/internal/model"
	"github.com/sakif/access-git/internal/queue"
)

// =========================================================================
// COLLABORATORS
// =========================================================================

func TestCollaborators_List(t *testing.T) {
	fake := githubtest.New()
	fake.AddRepo("octo", 1, "api", true)
	fake.GrantDirect("octo", "api", "bob", model.PermissionPush)
	fake.GrantDirect("octo", "api", "alice", model.PermissionAdmin)
	svc := NewCollaboratorService(fake, queue.New(2), testLogger())

	got, err := svc.List(context.Background(), "ghp_token", "octo", "api")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alice", got[0].Login)
	assert.Equal(t, "admin", got[0].RoleName)
}

func TestCollaborators_ListNotFoundIsEmpty(t *testing.T) {
	svc := NewCollaboratorService(githubtest.New(), queue.New(2), testLogger())

	got, err := svc.List(context.Background(), "ghp_token", "octo", "missing")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCollaborators_ListOtherFailuresPropagate(t *testing.T) {
	fake := githubtest.New()
	fake.Fail("ListCollaborators", "", githubtest.ServerError())
	svc := NewCollaboratorService(fake, queue.New(2), testLogger())

	_, err := svc.List(context.Background(), "ghp_token", "octo", "api")
	assert.ErrorIs(t, err, apperror.ErrUpstream)
	assert.Equal(t, 502, apperror.StatusOf(err))
}

func TestCollaborators_SetValidation(t *testing.T) {
	tests := []struct {
		name       string
		owner      string
		username   string
		permission string
	}{
		{"missing owner", "", "bob", "push"},
		{"missing username", "octo", "", "push"},
		{"missing permission", "octo", "bob", ""},
		{"unknown permission", "octo", "bob", "superuser"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := githubtest.New()
			svc := NewCollaboratorService(fake, queue.New(2), testLogger())

			err := svc.Set(context.Background(), "ghp_token", tt.owner, "api", tt.username, tt.permission)
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.Zero(t, fake.TotalCalls())
		})
	}
}

func TestCollaborators_SetAndRemove(t *testing.T) {
	fake := githubtest.New()
	fake.AddRepo("octo", 1, "api", true)
	svc := NewCollaboratorService(fake, queue.New(2), testLogger())
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "ghp_token", "octo", "api", "bob", "write"))
	assert.Equal(t, model.PermissionPush, fake.Collaborators["octo/api"]["bob"])

	perm, err := svc.Permission(ctx, "ghp_token", "octo", "api", "bob")
	require.NoError(t, err)
	level, ok := perm.Level()
	assert.True(t, ok)
	assert.Equal(t, model.PermissionPush, level)

	require.NoError(t, svc.Remove(ctx, "ghp_token", "octo", "api", "bob"))
	_, err = svc.Permission(ctx, "ghp_token", "octo", "api", "bob")
	assert.True(t, apperror.IsUpstreamNotFound(err))
}

// =========================================================================
// TEAMS
// =========================================================================

func newTeamService(fake *githubtest.Fake) *TeamService {
	return NewTeamService(fake, queue.New(2), cache.New[[]model.Team]("teams", cache.DefaultSize, time.Minute), testLogger())
}

func TestTeams_ListOrgTeamsIsCached(t *testing.T) {
	fake := githubtest.New()
	fake.AddTeam("octo", 1, "Platform", "platform")
	svc := newTeamService(fake)
	ctx := context.Background()

	for range 3 {
		teams, err := svc.ListOrgTeams(ctx, "ghp_token", "octo")
		require.NoError(t, err)
		assert.Len(t, teams, 1)
	}
	assert.Equal(t, 1, fake.Calls("ListOrgTeams"))
}

func TestTeams_ListRepoTeamsNotFoundIsEmpty(t *testing.T) {
	fake := githubtest.New()
	fake.Fail("ListRepoTeams", "octo/gone", githubtest.NotFound())
	svc := newTeamService(fake)

	teams, err := svc.ListRepoTeams(context.Background(), "ghp_token", "octo", "gone")
	require.NoError(t, err)
	assert.NotNil(t, teams)
	assert.Empty(t, teams)
}

func TestTeams_Membership(t *testing.T) {
	fake := githubtest.New()
	fake.AddTeam("octo", 1, "Platform", "platform")
	svc := newTeamService(fake)
	ctx := context.Background()

	m, err := svc.SetMembership(ctx, "ghp_token", "octo", "platform", "bob", "maintainer")
	require.NoError(t, err)
	assert.Equal(t, "maintainer", m.Role)

	_, err = svc.SetMembership(ctx, "ghp_token", "octo", "platform", "bob", "owner")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	m, err = svc.SetMembership(ctx, "ghp_token", "octo", "platform", "carol", "")
	require.NoError(t, err)
	assert.Equal(t, "member", m.Role)

	require.NoError(t, svc.RemoveMembership(ctx, "ghp_token", "octo", "platform", "bob"))
	assert.NotContains(t, fake.TeamMembers["octo/platform"], "bob")
}

func TestTeams_RepoPermission(t *testing.T) {
	fake := githubtest.New()
	fake.AddTeam("octo", 1, "Platform", "platform")
	fake.AddRepo("octo", 7, "api", true)
	svc := newTeamService(fake)
	ctx := context.Background()

	require.NoError(t, svc.SetRepoPermission(ctx, "ghp_token", "octo", "platform", "octo", "api", "maintain"))
	repos, err := svc.ListTeamRepos(ctx, "ghp_token", "octo", "platform")
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, model.PermissionMaintain, repos[0].Permission)

	err = svc.SetRepoPermission(ctx, "ghp_token", "octo", "platform", "octo", "api", "everything")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	require.NoError(t, svc.RemoveRepo(ctx, "ghp_token", "octo", "platform", "octo", "api"))
	repos, err = svc.ListTeamRepos(ctx, "ghp_token", "octo", "platform")
	require.NoError(t, err)
	assert.Empty(t, repos)
}

// =========================================================================
// MEMBERS AND CONTEXTS
// =========================================================================

func TestMembers_List(t *testing.T) {
	fake := githubtest.New()
	fake.AddMember("octo", "alice")
	fake.AddMember("octo", "bob")
	svc := NewMemberService(fake, queue.New(2))

	members, err := svc.ListOrgMembers(context.Background(), "ghp_token", "octo")
	require.NoError(t, err)
	assert.Len(t, members, 2)

	_, err = svc.ListOrgMembers(context.Background(), "ghp_token", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestContexts_UserFirstThenOrgs(t *testing.T) {
	fake := githubtest.New()
	fake.Viewer = model.User{Login: "octocat", AvatarURL: "https://avatars/1"}
	fake.Orgs = []model.Context{
		{Type: model.ContextOrg, Login: "octo", Name: "octo"},
		{Type: model.ContextOrg, Login: "github", Name: "github"},
	}
	svc := NewContextService(fake, queue.New(2), testLogger())

	contexts, err := svc.List(context.Background(), "ghp_token")
	require.NoError(t, err)
	require.Len(t, contexts, 3)
	assert.Equal(t, model.Context{Type: model.ContextUser, Login: "octocat", Name: "octocat", AvatarURL: "https://avatars/1"}, contexts[0])
	assert.Equal(t, "octo", contexts[1].Login)
	assert.Equal(t, "github", contexts[2].Login)
}
