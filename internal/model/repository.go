package model

import "time"

// Owner is the account that owns a repository.
type Owner struct {
	Login string `json:"login"`
	Type  string `json:"type,omitempty"` // "User" or "Organization"
}

// RepoPermissions mirrors the permission flags GitHub attaches to repository
// payloads. They are relative to the credential that made the request.
type RepoPermissions struct {
	Admin    bool `json:"admin"`
	Maintain bool `json:"maintain"`
	Push     bool `json:"push"`
	Triage   bool `json:"triage"`
	Pull     bool `json:"pull"`
}

// Highest returns the strongest level set in the flags.
func (p RepoPermissions) Highest() Permission {
	return HighestFromFlags(map[string]bool{
		"admin":    p.Admin,
		"maintain": p.Maintain,
		"push":     p.Push,
		"triage":   p.Triage,
		"pull":     p.Pull,
	})
}

// Repository is the lean repository shape used by list endpoints.
// This application never creates or deletes repositories; it only reads them
// and adjusts who can access them.
type Repository struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	FullName    string           `json:"full_name"`
	Private     bool             `json:"private"`
	Visibility  string           `json:"visibility,omitempty"`
	Description string           `json:"description,omitempty"`
	HTMLURL     string           `json:"html_url"`
	Owner       Owner            `json:"owner"`
	Permissions *RepoPermissions `json:"permissions,omitempty"`
	UpdatedAt   *time.Time       `json:"updated_at,omitempty"`
}

// TeamRepository is a repository as seen through a team, carrying the team's
// permission on it.
type TeamRepository struct {
	Repository
	Permission Permission `json:"role_name"`
}

// RepositoryDetails is the payload of the details view: the repository plus
// its language breakdown and top contributors.
type RepositoryDetails struct {
	Repository
	DefaultBranch   string         `json:"default_branch,omitempty"`
	StargazersCount int            `json:"stargazers_count"`
	ForksCount      int            `json:"forks_count"`
	OpenIssuesCount int            `json:"open_issues_count"`
	License         string         `json:"license,omitempty"`
	Topics          []string       `json:"topics,omitempty"`
	Languages       map[string]int `json:"languages"`
	Contributors    []Contributor  `json:"contributors"`
}

// PullRequest is a lean pull request row.
type PullRequest struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	State     string     `json:"state"`
	HTMLURL   string     `json:"html_url"`
	User      string     `json:"user,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Branch is a lean branch row.
type Branch struct {
	Name      string `json:"name"`
	Protected bool   `json:"protected"`
	CommitSHA string `json:"commit_sha,omitempty"`
}

// Commit is a lean commit row. Message is only the first line.
type Commit struct {
	SHA         string     `json:"sha"`
	HTMLURL     string     `json:"html_url"`
	Message     string     `json:"message"`
	AuthorName  string     `json:"author_name,omitempty"`
	AuthorLogin string     `json:"author_login,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
}

// ActivitySummary groups the four best-effort sections of the activity view.
// A section that failed to load is nil rather than failing the whole summary.
type ActivitySummary struct {
	Details  *RepositoryDetails `json:"details"`
	Pulls    []PullRequest      `json:"pulls"`
	Branches []Branch           `json:"branches"`
	Commits  []Commit           `json:"commits"`
}

// Team is an organization-scoped group.
type Team struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Privacy     string `json:"privacy,omitempty"`
	Permission  string `json:"permission,omitempty"` // set when listed for a repository
	HTMLURL     string `json:"html_url,omitempty"`
}

// TeamMembership is a user's membership record inside a team.
type TeamMembership struct {
	State string `json:"state"` // "active" or "pending"
	Role  string `json:"role"`  // "member" or "maintainer"
	URL   string `json:"url,omitempty"`
}

// Active reports whether the membership counts (pending invitations do not).
func (m TeamMembership) Active() bool {
	return m.State == "" || m.State == "active"
}
