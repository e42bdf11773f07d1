package model

// User is the slice of a GitHub user profile the dashboard shows.
//
// GitHub returns a much larger object; the remote client copies only these
// fields so the rest of the app never imports go-github types.
type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`                // GitHub username, e.g. "octocat"
	Name      string `json:"name,omitempty"`       // Display name (may be empty)
	AvatarURL string `json:"avatar_url,omitempty"` // Profile picture URL
	HTMLURL   string `json:"html_url,omitempty"`
}

// ContextType says whether a Context is the operator's own account or an org.
type ContextType string

const (
	ContextUser ContextType = "user"
	ContextOrg  ContextType = "org"
)

// ParseContextType accepts "user" and "org".
func ParseContextType(s string) (ContextType, bool) {
	switch ContextType(s) {
	case ContextUser, ContextOrg:
		return ContextType(s), true
	}
	return "", false
}

// Context is one entry in the "browse as" selector: the authenticated identity
// or one organization it belongs to. Never persisted; recomputed per request
// from whatever the credential can see.
type Context struct {
	Type      ContextType `json:"type"`
	Login     string      `json:"login"`
	Name      string      `json:"name"`
	AvatarURL string      `json:"avatar_url"`
}

// Member is an organization member as listed by /orgs/{org}/members.
type Member struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url,omitempty"`
}

// Collaborator is a user with a direct grant on a repository.
type Collaborator struct {
	ID          int64            `json:"id"`
	Login       string           `json:"login"`
	AvatarURL   string           `json:"avatar_url"`
	HTMLURL     string           `json:"html_url,omitempty"`
	RoleName    string           `json:"role_name,omitempty"`
	Permissions *RepoPermissions `json:"permissions,omitempty"`
}

// CollaboratorPermission is GitHub's answer to "what can user X do on repo Y".
//
// Permission holds the legacy value (admin|write|read|none); RoleName holds
// the precise role (admin|maintain|write|triage|read) when GitHub sends it.
type CollaboratorPermission struct {
	Permission string `json:"permission"`
	RoleName   string `json:"role_name,omitempty"`
	User       *User  `json:"user,omitempty"`
}

// Level converts the answer into the ordered Permission set.
// ok is false when the user has no access ("none" or an unknown role).
func (c CollaboratorPermission) Level() (Permission, bool) {
	if c.RoleName != "" {
		if p, ok := ParsePermission(c.RoleName); ok {
			return p, true
		}
	}
	return ParsePermission(c.Permission)
}

// Contributor is one entry from the repository contributors list.
type Contributor struct {
	ID            int64  `json:"id,omitempty"`
	Login         string `json:"login"`
	AvatarURL     string `json:"avatar_url"`
	HTMLURL       string `json:"html_url,omitempty"`
	Contributions int    `json:"contributions,omitempty"`
}
