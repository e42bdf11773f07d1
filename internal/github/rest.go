package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v61/github"
	"golang.org/x/oauth2"

	"github.com/sakif/access-git/internal/model"
)

// RESTProvider builds go-github clients authenticated with a static token.
type RESTProvider struct {
	baseURL *url.URL // nil means api.github.com
}

// NewRESTProvider returns a provider for api.github.com, or for the API root
// in apiURL when it is set (GitHub Enterprise, or a stub server in tests).
func NewRESTProvider(apiURL string) (*RESTProvider, error) {
	p := &RESTProvider{}
	if apiURL == "" {
		return p, nil
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("github: parsing API URL: %w", err)
	}
	p.baseURL = u
	return p, nil
}

// Client returns a Client that sends token as a bearer credential on every call.
//
// oauth2.StaticTokenSource never refreshes: a personal access token either
// works or GitHub answers 401, which surfaces as an upstream error.
func (p *RESTProvider) Client(token string) Client {
	httpClient := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	))
	client := gh.NewClient(httpClient)
	if p.baseURL != nil {
		client.BaseURL = p.baseURL
	}
	return &restClient{gh: client}
}

var _ Provider = (*RESTProvider)(nil)

// restClient implements Client on top of go-github.
type restClient struct {
	gh *gh.Client
}

var _ Client = (*restClient)(nil)

func listOpts(page, perPage int) gh.ListOptions {
	if page < 1 {
		page = 1
	}
	return gh.ListOptions{Page: page, PerPage: perPage}
}

// =========================================================================
// IDENTITY
// =========================================================================

func (c *restClient) AuthenticatedUser(ctx context.Context) (*model.User, error) {
	u, _, err := call("users.get", func() (*gh.User, *gh.Response, error) {
		return c.gh.Users.Get(ctx, "")
	})
	if err != nil {
		return nil, err
	}
	return toUser(u), nil
}

func (c *restClient) ListUserOrgs(ctx context.Context) ([]model.Context, error) {
	orgs, err := collectAll("orgs.list", func(opts gh.ListOptions) ([]*gh.Organization, *gh.Response, error) {
		return c.gh.Organizations.List(ctx, "", &opts)
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Context, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, toContext(o))
	}
	return out, nil
}

// =========================================================================
// REPOSITORIES
// =========================================================================

func (c *restClient) ListOrgRepos(ctx context.Context, org string, page, perPage int) ([]model.Repository, error) {
	repos, _, err := call("repos.list_by_org", func() ([]*gh.Repository, *gh.Response, error) {
		return c.gh.Repositories.ListByOrg(ctx, org, &gh.RepositoryListByOrgOptions{
			Type:        "all",
			Sort:        "updated",
			Direction:   "desc",
			ListOptions: listOpts(page, clampPerPage(perPage, 30)),
		})
	})
	if err != nil {
		return nil, err
	}
	return toRepositories(repos), nil
}

func (c *restClient) ListAllOrgRepos(ctx context.Context, org string) ([]model.Repository, error) {
	repos, err := collectAll("repos.list_by_org", func(opts gh.ListOptions) ([]*gh.Repository, *gh.Response, error) {
		return c.gh.Repositories.ListByOrg(ctx, org, &gh.RepositoryListByOrgOptions{
			Type:        "all",
			ListOptions: opts,
		})
	})
	if err != nil {
		return nil, err
	}
	return toRepositories(repos), nil
}

func (c *restClient) ListOwnRepos(ctx context.Context, page, perPage int) ([]model.Repository, error) {
	repos, _, err := call("repos.list_own", func() ([]*gh.Repository, *gh.Response, error) {
		return c.gh.Repositories.ListByAuthenticatedUser(ctx, &gh.RepositoryListByAuthenticatedUserOptions{
			Sort:        "updated",
			Direction:   "desc",
			ListOptions: listOpts(page, clampPerPage(perPage, 30)),
		})
	})
	if err != nil {
		return nil, err
	}
	return toRepositories(repos), nil
}

func (c *restClient) ListUserRepos(ctx context.Context, login string, page, perPage int) ([]model.Repository, error) {
	repos, _, err := call("repos.list_by_user", func() ([]*gh.Repository, *gh.Response, error) {
		return c.gh.Repositories.ListByUser(ctx, login, &gh.RepositoryListByUserOptions{
			Sort:        "updated",
			Direction:   "desc",
			ListOptions: listOpts(page, clampPerPage(perPage, 30)),
		})
	})
	if err != nil {
		return nil, err
	}
	return toRepositories(repos), nil
}

// SearchOrgRepos finds repositories in org whose name contains term.
func (c *restClient) SearchOrgRepos(ctx context.Context, org, term string) ([]model.Repository, error) {
	query := fmt.Sprintf("org:%s %s in:name", org, term)
	repos, err := collectAll("search.repositories", func(opts gh.ListOptions) ([]*gh.Repository, *gh.Response, error) {
		result, resp, err := c.gh.Search.Repositories(ctx, query, &gh.SearchOptions{ListOptions: opts})
		if err != nil {
			return nil, resp, err
		}
		return result.Repositories, resp, nil
	})
	if err != nil {
		return nil, err
	}
	return toRepositories(repos), nil
}

func (c *restClient) GetRepository(ctx context.Context, owner, repo string) (*model.RepositoryDetails, error) {
	r, _, err := call("repos.get", func() (*gh.Repository, *gh.Response, error) {
		return c.gh.Repositories.Get(ctx, owner, repo)
	})
	if err != nil {
		return nil, err
	}
	return toRepositoryDetails(r), nil
}

func (c *restClient) ListLanguages(ctx context.Context, owner, repo string) (map[string]int, error) {
	langs, _, err := call("repos.list_languages", func() (map[string]int, *gh.Response, error) {
		return c.gh.Repositories.ListLanguages(ctx, owner, repo)
	})
	if err != nil {
		return nil, err
	}
	if langs == nil {
		langs = map[string]int{}
	}
	return langs, nil
}

func (c *restClient) ListContributors(ctx context.Context, owner, repo string, perPage int) ([]model.Contributor, error) {
	contributors, _, err := call("repos.list_contributors", func() ([]*gh.Contributor, *gh.Response, error) {
		return c.gh.Repositories.ListContributors(ctx, owner, repo, &gh.ListContributorsOptions{
			ListOptions: listOpts(1, clampPerPage(perPage, 15)),
		})
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Contributor, 0, len(contributors))
	for _, ct := range contributors {
		out = append(out, toContributor(ct))
	}
	return out, nil
}

func (c *restClient) ListPulls(ctx context.Context, owner, repo, state string, perPage int) ([]model.PullRequest, error) {
	if state == "" {
		state = "open"
	}
	pulls, _, err := call("pulls.list", func() ([]*gh.PullRequest, *gh.Response, error) {
		return c.gh.PullRequests.List(ctx, owner, repo, &gh.PullRequestListOptions{
			State:       state,
			ListOptions: listOpts(1, clampPerPage(perPage, 5)),
		})
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.PullRequest, 0, len(pulls))
	for _, p := range pulls {
		out = append(out, toPullRequest(p))
	}
	return out, nil
}

func (c *restClient) ListBranches(ctx context.Context, owner, repo string, perPage int) ([]model.Branch, error) {
	branches, _, err := call("repos.list_branches", func() ([]*gh.Branch, *gh.Response, error) {
		return c.gh.Repositories.ListBranches(ctx, owner, repo, &gh.BranchListOptions{
			ListOptions: listOpts(1, clampPerPage(perPage, 5)),
		})
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Branch, 0, len(branches))
	for _, b := range branches {
		out = append(out, toBranch(b))
	}
	return out, nil
}

func (c *restClient) ListCommits(ctx context.Context, owner, repo string, perPage int) ([]model.Commit, error) {
	commits, _, err := call("repos.list_commits", func() ([]*gh.RepositoryCommit, *gh.Response, error) {
		return c.gh.Repositories.ListCommits(ctx, owner, repo, &gh.CommitsListOptions{
			ListOptions: listOpts(1, clampPerPage(perPage, 5)),
		})
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Commit, 0, len(commits))
	for _, cm := range commits {
		out = append(out, toCommit(cm))
	}
	return out, nil
}

// =========================================================================
// COLLABORATORS
// =========================================================================

// ListCollaborators lists direct collaborators only; org members who reach the
// repository through a team or base permission are not included.
func (c *restClient) ListCollaborators(ctx context.Context, owner, repo string) ([]model.Collaborator, error) {
	users, err := collectAll("repos.list_collaborators", func(opts gh.ListOptions) ([]*gh.User, *gh.Response, error) {
		return c.gh.Repositories.ListCollaborators(ctx, owner, repo, &gh.ListCollaboratorsOptions{
			Affiliation: "direct",
			ListOptions: opts,
		})
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Collaborator, 0, len(users))
	for _, u := range users {
		out = append(out, toCollaborator(u))
	}
	return out, nil
}

func (c *restClient) SetCollaborator(ctx context.Context, owner, repo, user string, perm model.Permission) error {
	_, _, err := call("repos.add_collaborator", func() (*gh.CollaboratorInvitation, *gh.Response, error) {
		return c.gh.Repositories.AddCollaborator(ctx, owner, repo, user, &gh.RepositoryAddCollaboratorOptions{
			Permission: perm.String(),
		})
	})
	return err
}

func (c *restClient) RemoveCollaborator(ctx context.Context, owner, repo, user string) error {
	return callNoBody("repos.remove_collaborator", func() (*gh.Response, error) {
		return c.gh.Repositories.RemoveCollaborator(ctx, owner, repo, user)
	})
}

// permissionLevel is the collaborator permission payload. go-github's own
// RepositoryPermissionLevel drops role_name, and the legacy permission field
// folds maintain into write and triage into read.
type permissionLevel struct {
	Permission string   `json:"permission"`
	RoleName   string   `json:"role_name"`
	User       *gh.User `json:"user"`
}

func (c *restClient) CollaboratorPermission(ctx context.Context, owner, repo, user string) (*model.CollaboratorPermission, error) {
	path := fmt.Sprintf("repos/%s/%s/collaborators/%s/permission",
		url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(user))
	level, _, err := call("repos.get_permission_level", func() (*permissionLevel, *gh.Response, error) {
		req, err := c.gh.NewRequest("GET", path, nil)
		if err != nil {
			return nil, nil, err
		}
		out := new(permissionLevel)
		resp, err := c.gh.Do(ctx, req, out)
		if err != nil {
			return nil, resp, err
		}
		return out, resp, nil
	})
	if err != nil {
		return nil, err
	}
	return &model.CollaboratorPermission{
		Permission: level.Permission,
		RoleName:   level.RoleName,
		User:       toUser(level.User),
	}, nil
}

// =========================================================================
// ORGANIZATIONS AND TEAMS
// =========================================================================

func (c *restClient) ListOrgMembers(ctx context.Context, org string) ([]model.Member, error) {
	users, err := collectAll("orgs.list_members", func(opts gh.ListOptions) ([]*gh.User, *gh.Response, error) {
		return c.gh.Organizations.ListMembers(ctx, org, &gh.ListMembersOptions{ListOptions: opts})
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Member, 0, len(users))
	for _, u := range users {
		out = append(out, toMember(u))
	}
	return out, nil
}

// IsOrgMember answers GitHub's membership check. go-github already maps the
// 404 "not a member" answer to false; any other failure is an error.
func (c *restClient) IsOrgMember(ctx context.Context, org, user string) (bool, error) {
	member, _, err := call("orgs.is_member", func() (bool, *gh.Response, error) {
		return c.gh.Organizations.IsMember(ctx, org, user)
	})
	return member, err
}

func (c *restClient) ListOrgTeams(ctx context.Context, org string) ([]model.Team, error) {
	teams, err := collectAll("teams.list", func(opts gh.ListOptions) ([]*gh.Team, *gh.Response, error) {
		return c.gh.Teams.ListTeams(ctx, org, &opts)
	})
	if err != nil {
		return nil, err
	}
	return toTeams(teams), nil
}

func (c *restClient) ListRepoTeams(ctx context.Context, owner, repo string) ([]model.Team, error) {
	teams, err := collectAll("repos.list_teams", func(opts gh.ListOptions) ([]*gh.Team, *gh.Response, error) {
		return c.gh.Repositories.ListTeams(ctx, owner, repo, &opts)
	})
	if err != nil {
		return nil, err
	}
	return toTeams(teams), nil
}

func (c *restClient) TeamMembership(ctx context.Context, org, slug, user string) (*model.TeamMembership, error) {
	m, _, err := call("teams.get_membership", func() (*gh.Membership, *gh.Response, error) {
		return c.gh.Teams.GetTeamMembershipBySlug(ctx, org, slug, user)
	})
	if err != nil {
		return nil, err
	}
	return toMembership(m), nil
}

func (c *restClient) SetTeamMembership(ctx context.Context, org, slug, user string, role model.TeamRole) (*model.TeamMembership, error) {
	var opts *gh.TeamAddTeamMembershipOptions
	if role != "" {
		opts = &gh.TeamAddTeamMembershipOptions{Role: string(role)}
	}
	m, _, err := call("teams.add_membership", func() (*gh.Membership, *gh.Response, error) {
		return c.gh.Teams.AddTeamMembershipBySlug(ctx, org, slug, user, opts)
	})
	if err != nil {
		return nil, err
	}
	return toMembership(m), nil
}

func (c *restClient) RemoveTeamMembership(ctx context.Context, org, slug, user string) error {
	return callNoBody("teams.remove_membership", func() (*gh.Response, error) {
		return c.gh.Teams.RemoveTeamMembershipBySlug(ctx, org, slug, user)
	})
}

func (c *restClient) ListTeamRepos(ctx context.Context, org, slug string) ([]model.TeamRepository, error) {
	repos, err := collectAll("teams.list_repos", func(opts gh.ListOptions) ([]*gh.Repository, *gh.Response, error) {
		return c.gh.Teams.ListTeamReposBySlug(ctx, org, slug, &opts)
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.TeamRepository, 0, len(repos))
	for _, r := range repos {
		out = append(out, toTeamRepository(r))
	}
	return out, nil
}

func (c *restClient) SetTeamRepoPermission(ctx context.Context, org, slug, owner, repo string, perm model.Permission) error {
	return callNoBody("teams.add_repo", func() (*gh.Response, error) {
		return c.gh.Teams.AddTeamRepoBySlug(ctx, org, slug, owner, repo, &gh.TeamAddTeamRepoOptions{
			Permission: perm.String(),
		})
	})
}

func (c *restClient) RemoveTeamRepo(ctx context.Context, org, slug, owner, repo string) error {
	return callNoBody("teams.remove_repo", func() (*gh.Response, error) {
		return c.gh.Teams.RemoveTeamRepoBySlug(ctx, org, slug, owner, repo)
	})
}
