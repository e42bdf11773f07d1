// Package github is the remote API client: every call this application makes
// to the GitHub REST API goes through the Client interface defined here.
//
// CREDENTIAL PER REQUEST:
// The server never stores a GitHub credential. Each incoming request carries
// the operator's token, and the service layer asks a Provider for a Client
// bound to that token. Nothing ambient, nothing global.
//
// ERRORS:
// Any non-2xx answer comes back as an *apperror.AppError of kind ErrUpstream
// carrying GitHub's status code, message and error details. Callers decide
// whether a 404 means "no such thing" or "empty list".
package github

import (
	"context"

	"github.com/sakif/access-git/internal/model"
)

// Provider hands out clients bound to one credential.
type Provider interface {
	Client(token string) Client
}

// Client is the subset of the GitHub REST API the dashboard uses.
// List methods without a page argument walk every page.
type Client interface {
	// Identity
	AuthenticatedUser(ctx context.Context) (*model.User, error)
	ListUserOrgs(ctx context.Context) ([]model.Context, error)

	// Repositories
	ListOrgRepos(ctx context.Context, org string, page, perPage int) ([]model.Repository, error)
	ListAllOrgRepos(ctx context.Context, org string) ([]model.Repository, error)
	ListOwnRepos(ctx context.Context, page, perPage int) ([]model.Repository, error)
	ListUserRepos(ctx context.Context, login string, page, perPage int) ([]model.Repository, error)
	SearchOrgRepos(ctx context.Context, org, term string) ([]model.Repository, error)
	GetRepository(ctx context.Context, owner, repo string) (*model.RepositoryDetails, error)
	ListLanguages(ctx context.Context, owner, repo string) (map[string]int, error)
	ListContributors(ctx context.Context, owner, repo string, perPage int) ([]model.Contributor, error)
	ListPulls(ctx context.Context, owner, repo, state string, perPage int) ([]model.PullRequest, error)
	ListBranches(ctx context.Context, owner, repo string, perPage int) ([]model.Branch, error)
	ListCommits(ctx context.Context, owner, repo string, perPage int) ([]model.Commit, error)

	// Direct collaborators
	ListCollaborators(ctx context.Context, owner, repo string) ([]model.Collaborator, error)
	SetCollaborator(ctx context.Context, owner, repo, user string, perm model.Permission) error
	RemoveCollaborator(ctx context.Context, owner, repo, user string) error
	CollaboratorPermission(ctx context.Context, owner, repo, user string) (*model.CollaboratorPermission, error)

	// Organizations and teams
	ListOrgMembers(ctx context.Context, org string) ([]model.Member, error)
	IsOrgMember(ctx context.Context, org, user string) (bool, error)
	ListOrgTeams(ctx context.Context, org string) ([]model.Team, error)
	ListRepoTeams(ctx context.Context, owner, repo string) ([]model.Team, error)
	TeamMembership(ctx context.Context, org, slug, user string) (*model.TeamMembership, error)
	SetTeamMembership(ctx context.Context, org, slug, user string, role model.TeamRole) (*model.TeamMembership, error)
	RemoveTeamMembership(ctx context.Context, org, slug, user string) error
	ListTeamRepos(ctx context.Context, org, slug string) ([]model.TeamRepository, error)
	SetTeamRepoPermission(ctx context.Context, org, slug, owner, repo string, perm model.Permission) error
	RemoveTeamRepo(ctx context.Context, org, slug, owner, repo string) error
}
