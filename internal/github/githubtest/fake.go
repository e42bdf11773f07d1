// Package githubtest provides an in-memory stand-in for the GitHub API.
//
// Fake implements both github.Provider and github.Client. Tests seed it with
// an organization model (members, teams, repositories, grants), inject
// failures per method or per target, and read call counters afterwards.
package githubtest

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/sakif/access-git/internal/apperror"
	"github.com/sakif/access-git/internal/github"
	"github.com/sakif/access-git/internal/model"
)

// Fake is a concurrency-safe in-memory GitHub.
type Fake struct {
	mu sync.Mutex

	Viewer        model.User
	Orgs          []model.Context
	OrgMembers    map[string][]model.Member                  // org → members
	Teams         map[string][]model.Team                    // org → teams
	TeamMembers   map[string]map[string]model.TeamMembership // "org/slug" → user → membership
	TeamRepos     map[string][]model.TeamRepository          // "org/slug" → repos
	Repos         map[string][]model.Repository              // owner → repos
	Collaborators map[string]map[string]model.Permission     // "owner/repo" → user → level
	Contributors  map[string][]model.Contributor             // "owner/repo" → contributors
	RepoTeams     map[string][]model.Team                    // "owner/repo" → teams

	// Errors injects failures. Keys are "Method" (every call fails) or
	// "Method:target" where target is the method's natural key, e.g.
	// "TeamMembership:octo/platform/alice" or "CollaboratorPermission:octo/api/alice".
	Errors map[string]error

	calls  map[string]int
	tokens []string
}

// New returns an empty Fake with every map initialised.
func New() *Fake {
	return &Fake{
		OrgMembers:    map[string][]model.Member{},
		Teams:         map[string][]model.Team{},
		TeamMembers:   map[string]map[string]model.TeamMembership{},
		TeamRepos:     map[string][]model.TeamRepository{},
		Repos:         map[string][]model.Repository{},
		Collaborators: map[string]map[string]model.Permission{},
		Contributors:  map[string][]model.Contributor{},
		RepoTeams:     map[string][]model.Team{},
		Errors:        map[string]error{},
		calls:         map[string]int{},
	}
}

var (
	_ github.Provider = (*Fake)(nil)
	_ github.Client   = (*Fake)(nil)
)

// NotFound is the error GitHub's 404 answer translates into.
func NotFound() error {
	return apperror.Upstream(http.StatusNotFound, "Not Found", nil)
}

// ServerError is a generic 5xx answer.
func ServerError() error {
	return apperror.Upstream(http.StatusBadGateway, "Bad Gateway", nil)
}

// =========================================================================
// SEEDING HELPERS
// =========================================================================

// AddMember makes user a member of org.
func (f *Fake) AddMember(org, user string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.OrgMembers[org] = append(f.OrgMembers[org], model.Member{ID: int64(len(f.OrgMembers[org]) + 1), Login: user})
}

// AddRepo adds a repository owned by owner and returns it.
func (f *Fake) AddRepo(owner string, id int64, name string, private bool) model.Repository {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := model.Repository{
		ID:       id,
		Name:     name,
		FullName: owner + "/" + name,
		Private:  private,
		HTMLURL:  "https://github.com/" + owner + "/" + name,
		Owner:    model.Owner{Login: owner, Type: "Organization"},
	}
	f.Repos[owner] = append(f.Repos[owner], r)
	return r
}

// AddTeam adds a team to org.
func (f *Fake) AddTeam(org string, id int64, name, slug string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Teams[org] = append(f.Teams[org], model.Team{ID: id, Name: name, Slug: slug})
}

// AddTeamMember adds user to org/slug with an active membership.
func (f *Fake) AddTeamMember(org, slug, user string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := org + "/" + slug
	if f.TeamMembers[key] == nil {
		f.TeamMembers[key] = map[string]model.TeamMembership{}
	}
	f.TeamMembers[key][user] = model.TeamMembership{State: "active", Role: string(model.TeamRoleMember)}
}

// GrantTeam gives org/slug perm on repo.
func (f *Fake) GrantTeam(org, slug string, repo model.Repository, perm model.Permission) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := org + "/" + slug
	f.TeamRepos[key] = append(f.TeamRepos[key], model.TeamRepository{Repository: repo, Permission: perm})
}

// GrantDirect makes user a direct collaborator on owner/repo with perm.
func (f *Fake) GrantDirect(owner, repo, user string, perm model.Permission) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := owner + "/" + repo
	if f.Collaborators[key] == nil {
		f.Collaborators[key] = map[string]model.Permission{}
	}
	f.Collaborators[key][user] = perm
}

// Fail makes every call to method (optionally only for target) return err.
func (f *Fake) Fail(method, target string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := method
	if target != "" {
		key += ":" + target
	}
	f.Errors[key] = err
}

// =========================================================================
// OBSERVATION
// =========================================================================

// Calls returns how many times method was called.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// TotalCalls returns the number of calls across all methods.
func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// Tokens returns every credential a client was requested for, in order.
func (f *Fake) Tokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
}

// record counts a call and returns the injected error for it, if any.
// Callers must hold f.mu.
func (f *Fake) record(method string, target ...string) error {
	f.calls[method]++
	if err, ok := f.Errors[method]; ok {
		return err
	}
	if len(target) > 0 {
		if err, ok := f.Errors[method+":"+strings.Join(target, "/")]; ok {
			return err
		}
	}
	return nil
}

// =========================================================================
// PROVIDER
// =========================================================================

// Client records the credential and returns the fake itself.
func (f *Fake) Client(token string) github.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	return f
}

// =========================================================================
// CLIENT
// =========================================================================

func (f *Fake) AuthenticatedUser(ctx context.Context) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AuthenticatedUser"); err != nil {
		return nil, err
	}
	u := f.Viewer
	return &u, nil
}

func (f *Fake) ListUserOrgs(ctx context.Context) ([]model.Context, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListUserOrgs"); err != nil {
		return nil, err
	}
	return append([]model.Context(nil), f.Orgs...), nil
}

func page[T any](items []T, pageNum, perPage int) []T {
	if perPage <= 0 {
		perPage = 30
	}
	if pageNum < 1 {
		pageNum = 1
	}
	start := (pageNum - 1) * perPage
	if start >= len(items) {
		return []T{}
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return append([]T(nil), items[start:end]...)
}

// orgRepos resolves org the way GitHub does, ignoring case. Callers hold f.mu.
func (f *Fake) orgRepos(org string) []model.Repository {
	if repos, ok := f.Repos[org]; ok {
		return repos
	}
	for owner, repos := range f.Repos {
		if strings.EqualFold(owner, org) {
			return repos
		}
	}
	return nil
}

func (f *Fake) ListOrgRepos(ctx context.Context, org string, pageNum, perPage int) ([]model.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListOrgRepos", org); err != nil {
		return nil, err
	}
	return page(f.orgRepos(org), pageNum, perPage), nil
}

func (f *Fake) ListAllOrgRepos(ctx context.Context, org string) ([]model.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListAllOrgRepos", org); err != nil {
		return nil, err
	}
	return append([]model.Repository(nil), f.orgRepos(org)...), nil
}

func (f *Fake) ListOwnRepos(ctx context.Context, pageNum, perPage int) ([]model.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListOwnRepos"); err != nil {
		return nil, err
	}
	return page(f.Repos[f.Viewer.Login], pageNum, perPage), nil
}

func (f *Fake) ListUserRepos(ctx context.Context, login string, pageNum, perPage int) ([]model.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListUserRepos", login); err != nil {
		return nil, err
	}
	var public []model.Repository
	for _, r := range f.Repos[login] {
		if !r.Private {
			public = append(public, r)
		}
	}
	return page(public, pageNum, perPage), nil
}

func (f *Fake) SearchOrgRepos(ctx context.Context, org, term string) ([]model.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SearchOrgRepos", org); err != nil {
		return nil, err
	}
	var out []model.Repository
	for _, r := range f.orgRepos(org) {
		if strings.Contains(strings.ToLower(r.Name), strings.ToLower(term)) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *Fake) findRepo(owner, repo string) (model.Repository, bool) {
	for _, r := range f.Repos[owner] {
		if r.Name == repo {
			return r, true
		}
	}
	return model.Repository{}, false
}

func (f *Fake) GetRepository(ctx context.Context, owner, repo string) (*model.RepositoryDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetRepository", owner, repo); err != nil {
		return nil, err
	}
	r, ok := f.findRepo(owner, repo)
	if !ok {
		return nil, NotFound()
	}
	return &model.RepositoryDetails{Repository: r}, nil
}

func (f *Fake) ListLanguages(ctx context.Context, owner, repo string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListLanguages", owner, repo); err != nil {
		return nil, err
	}
	return map[string]int{"Go": 1000}, nil
}

func (f *Fake) ListContributors(ctx context.Context, owner, repo string, perPage int) ([]model.Contributor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListContributors", owner, repo); err != nil {
		return nil, err
	}
	return page(f.Contributors[owner+"/"+repo], 1, perPage), nil
}

func (f *Fake) ListPulls(ctx context.Context, owner, repo, state string, perPage int) ([]model.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListPulls", owner, repo); err != nil {
		return nil, err
	}
	return []model.PullRequest{{Number: 1, Title: "Initial", State: "open"}}, nil
}

func (f *Fake) ListBranches(ctx context.Context, owner, repo string, perPage int) ([]model.Branch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListBranches", owner, repo); err != nil {
		return nil, err
	}
	return []model.Branch{{Name: "main", Protected: true}}, nil
}

func (f *Fake) ListCommits(ctx context.Context, owner, repo string, perPage int) ([]model.Commit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListCommits", owner, repo); err != nil {
		return nil, err
	}
	return []model.Commit{{SHA: "abc123", Message: "init"}}, nil
}

func (f *Fake) ListCollaborators(ctx context.Context, owner, repo string) ([]model.Collaborator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListCollaborators", owner, repo); err != nil {
		return nil, err
	}
	if _, ok := f.findRepo(owner, repo); !ok {
		return nil, NotFound()
	}
	grants := f.Collaborators[owner+"/"+repo]
	logins := make([]string, 0, len(grants))
	for login := range grants {
		logins = append(logins, login)
	}
	sort.Strings(logins)
	out := make([]model.Collaborator, 0, len(logins))
	for _, login := range logins {
		out = append(out, model.Collaborator{Login: login, RoleName: string(grants[login])})
	}
	return out, nil
}

func (f *Fake) SetCollaborator(ctx context.Context, owner, repo, user string, perm model.Permission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetCollaborator", owner, repo, user); err != nil {
		return err
	}
	key := owner + "/" + repo
	if f.Collaborators[key] == nil {
		f.Collaborators[key] = map[string]model.Permission{}
	}
	f.Collaborators[key][user] = perm
	return nil
}

func (f *Fake) RemoveCollaborator(ctx context.Context, owner, repo, user string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("RemoveCollaborator", owner, repo, user); err != nil {
		return err
	}
	delete(f.Collaborators[owner+"/"+repo], user)
	return nil
}

// CollaboratorPermission mimics GitHub: 404 when the user has no direct grant.
func (f *Fake) CollaboratorPermission(ctx context.Context, owner, repo, user string) (*model.CollaboratorPermission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CollaboratorPermission", owner, repo, user); err != nil {
		return nil, err
	}
	perm, ok := f.Collaborators[owner+"/"+repo][user]
	if !ok {
		return nil, NotFound()
	}
	return &model.CollaboratorPermission{
		Permission: legacyPermission(perm),
		RoleName:   string(perm),
		User:       &model.User{Login: user},
	}, nil
}

// legacyPermission is the coarse value GitHub still sends in "permission":
// maintain folds into write and triage into read.
func legacyPermission(p model.Permission) string {
	switch p {
	case model.PermissionAdmin:
		return "admin"
	case model.PermissionMaintain, model.PermissionPush:
		return "write"
	default:
		return "read"
	}
}

func (f *Fake) ListOrgMembers(ctx context.Context, org string) ([]model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListOrgMembers", org); err != nil {
		return nil, err
	}
	return append([]model.Member(nil), f.OrgMembers[org]...), nil
}

func (f *Fake) IsOrgMember(ctx context.Context, org, user string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("IsOrgMember", org, user); err != nil {
		return false, err
	}
	for _, m := range f.OrgMembers[org] {
		if m.Login == user {
			return true, nil
		}
	}
	return false, nil
}

func (f *Fake) ListOrgTeams(ctx context.Context, org string) ([]model.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListOrgTeams", org); err != nil {
		return nil, err
	}
	return append([]model.Team(nil), f.Teams[org]...), nil
}

func (f *Fake) ListRepoTeams(ctx context.Context, owner, repo string) ([]model.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListRepoTeams", owner, repo); err != nil {
		return nil, err
	}
	return append([]model.Team(nil), f.RepoTeams[owner+"/"+repo]...), nil
}

// TeamMembership mimics GitHub: 404 when the user is not in the team.
func (f *Fake) TeamMembership(ctx context.Context, org, slug, user string) (*model.TeamMembership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("TeamMembership", org, slug, user); err != nil {
		return nil, err
	}
	m, ok := f.TeamMembers[org+"/"+slug][user]
	if !ok {
		return nil, NotFound()
	}
	return &m, nil
}

func (f *Fake) SetTeamMembership(ctx context.Context, org, slug, user string, role model.TeamRole) (*model.TeamMembership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetTeamMembership", org, slug, user); err != nil {
		return nil, err
	}
	if role == "" {
		role = model.TeamRoleMember
	}
	key := org + "/" + slug
	if f.TeamMembers[key] == nil {
		f.TeamMembers[key] = map[string]model.TeamMembership{}
	}
	m := model.TeamMembership{State: "active", Role: string(role)}
	f.TeamMembers[key][user] = m
	return &m, nil
}

func (f *Fake) RemoveTeamMembership(ctx context.Context, org, slug, user string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("RemoveTeamMembership", org, slug, user); err != nil {
		return err
	}
	delete(f.TeamMembers[org+"/"+slug], user)
	return nil
}

func (f *Fake) ListTeamRepos(ctx context.Context, org, slug string) ([]model.TeamRepository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListTeamRepos", org, slug); err != nil {
		return nil, err
	}
	return append([]model.TeamRepository(nil), f.TeamRepos[org+"/"+slug]...), nil
}

func (f *Fake) SetTeamRepoPermission(ctx context.Context, org, slug, owner, repo string, perm model.Permission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetTeamRepoPermission", org, slug, owner, repo); err != nil {
		return err
	}
	key := org + "/" + slug
	r, ok := f.findRepo(owner, repo)
	if !ok {
		return NotFound()
	}
	for i, existing := range f.TeamRepos[key] {
		if existing.ID == r.ID {
			f.TeamRepos[key][i].Permission = perm
			return nil
		}
	}
	f.TeamRepos[key] = append(f.TeamRepos[key], model.TeamRepository{Repository: r, Permission: perm})
	return nil
}

func (f *Fake) RemoveTeamRepo(ctx context.Context, org, slug, owner, repo string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("RemoveTeamRepo", org, slug, owner, repo); err != nil {
		return err
	}
	key := org + "/" + slug
	kept := f.TeamRepos[key][:0]
	for _, existing := range f.TeamRepos[key] {
		if existing.FullName != owner+"/"+repo {
			kept = append(kept, existing)
		}
	}
	f.TeamRepos[key] = kept
	return nil
}
