package github

import (
	"strings"
	"time"

	gh "github.com/google/go-github/v61/github"

	"github.com/sakif/access-git/internal/model"
)

// The converters below copy go-github's pointer-heavy structs into the
// app's flat model types. The Get* accessors are nil-safe, so a partially
// populated payload never panics.

func toUser(u *gh.User) *model.User {
	if u == nil {
		return nil
	}
	return &model.User{
		ID:        u.GetID(),
		Login:     u.GetLogin(),
		Name:      u.GetName(),
		AvatarURL: u.GetAvatarURL(),
		HTMLURL:   u.GetHTMLURL(),
	}
}

func toPermissions(flags map[string]bool) *model.RepoPermissions {
	if flags == nil {
		return nil
	}
	return &model.RepoPermissions{
		Admin:    flags["admin"],
		Maintain: flags["maintain"],
		Push:     flags["push"],
		Triage:   flags["triage"],
		Pull:     flags["pull"],
	}
}

func timePtr(ts *gh.Timestamp) *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.Time
	return &t
}

func toRepository(r *gh.Repository) model.Repository {
	return model.Repository{
		ID:          r.GetID(),
		Name:        r.GetName(),
		FullName:    r.GetFullName(),
		Private:     r.GetPrivate(),
		Visibility:  r.GetVisibility(),
		Description: r.GetDescription(),
		HTMLURL:     r.GetHTMLURL(),
		Owner: model.Owner{
			Login: r.GetOwner().GetLogin(),
			Type:  r.GetOwner().GetType(),
		},
		Permissions: toPermissions(r.GetPermissions()),
		UpdatedAt:   timePtr(r.UpdatedAt),
	}
}

func toRepositories(repos []*gh.Repository) []model.Repository {
	out := make([]model.Repository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, toRepository(r))
		}
	}
	return out
}

func toRepositoryDetails(r *gh.Repository) *model.RepositoryDetails {
	license := r.GetLicense().GetSPDXID()
	if license == "" {
		license = r.GetLicense().GetName()
	}
	return &model.RepositoryDetails{
		Repository:      toRepository(r),
		DefaultBranch:   r.GetDefaultBranch(),
		StargazersCount: r.GetStargazersCount(),
		ForksCount:      r.GetForksCount(),
		OpenIssuesCount: r.GetOpenIssuesCount(),
		License:         license,
		Topics:          r.Topics,
	}
}

func toTeamRepository(r *gh.Repository) model.TeamRepository {
	return model.TeamRepository{
		Repository: toRepository(r),
		Permission: model.HighestFromFlags(r.GetPermissions()),
	}
}

func toTeam(t *gh.Team) model.Team {
	return model.Team{
		ID:          t.GetID(),
		Name:        t.GetName(),
		Slug:        t.GetSlug(),
		Description: t.GetDescription(),
		Privacy:     t.GetPrivacy(),
		Permission:  t.GetPermission(),
		HTMLURL:     t.GetHTMLURL(),
	}
}

func toTeams(teams []*gh.Team) []model.Team {
	out := make([]model.Team, 0, len(teams))
	for _, t := range teams {
		if t != nil {
			out = append(out, toTeam(t))
		}
	}
	return out
}

func toMembership(m *gh.Membership) *model.TeamMembership {
	if m == nil {
		return nil
	}
	return &model.TeamMembership{
		State: m.GetState(),
		Role:  m.GetRole(),
		URL:   m.GetURL(),
	}
}

func toMember(u *gh.User) model.Member {
	return model.Member{
		ID:        u.GetID(),
		Login:     u.GetLogin(),
		AvatarURL: u.GetAvatarURL(),
		HTMLURL:   u.GetHTMLURL(),
	}
}

func toCollaborator(u *gh.User) model.Collaborator {
	return model.Collaborator{
		ID:          u.GetID(),
		Login:       u.GetLogin(),
		AvatarURL:   u.GetAvatarURL(),
		HTMLURL:     u.GetHTMLURL(),
		RoleName:    u.GetRoleName(),
		Permissions: toPermissions(u.GetPermissions()),
	}
}

func toContributor(c *gh.Contributor) model.Contributor {
	return model.Contributor{
		ID:            c.GetID(),
		Login:         c.GetLogin(),
		AvatarURL:     c.GetAvatarURL(),
		HTMLURL:       c.GetHTMLURL(),
		Contributions: c.GetContributions(),
	}
}

func toPullRequest(p *gh.PullRequest) model.PullRequest {
	return model.PullRequest{
		Number:    p.GetNumber(),
		Title:     p.GetTitle(),
		State:     p.GetState(),
		HTMLURL:   p.GetHTMLURL(),
		User:      p.GetUser().GetLogin(),
		CreatedAt: timePtr(p.CreatedAt),
		UpdatedAt: timePtr(p.UpdatedAt),
	}
}

func toBranch(b *gh.Branch) model.Branch {
	return model.Branch{
		Name:      b.GetName(),
		Protected: b.GetProtected(),
		CommitSHA: b.GetCommit().GetSHA(),
	}
}

func toCommit(c *gh.RepositoryCommit) model.Commit {
	message, _, _ := strings.Cut(c.GetCommit().GetMessage(), "\n")
	var date *time.Time
	if author := c.GetCommit().GetAuthor(); author != nil {
		date = timePtr(author.Date)
	}
	return model.Commit{
		SHA:         c.GetSHA(),
		HTMLURL:     c.GetHTMLURL(),
		Message:     message,
		AuthorName:  c.GetCommit().GetAuthor().GetName(),
		AuthorLogin: c.GetAuthor().GetLogin(),
		Date:        date,
	}
}

func toContext(o *gh.Organization) model.Context {
	name := o.GetName()
	if name == "" {
		name = o.GetLogin()
	}
	return model.Context{
		Type:      model.ContextOrg,
		Login:     o.GetLogin(),
		Name:      name,
		AvatarURL: o.GetAvatarURL(),
	}
}
