package model

// AccessPathType tags where a grant comes from.
type AccessPathType string

const (
	AccessViaTeam   AccessPathType = "team"
	AccessViaDirect AccessPathType = "direct"
)

// AccessPath is one grant contributing to a user's effective permission.
// Name is the team name for team paths and empty for direct paths.
type AccessPath struct {
	Type AccessPathType `json:"type"`
	Name string         `json:"name,omitempty"`
}

// RepoAccess is one row of an effective-access summary: what a user can do on
// one repository and every path that grants it.
//
// INVARIANT:
// PermissionLevel is always the maximum over the levels of AccessVia. Paths are
// only ever appended; a weaker path stays listed even when a stronger one wins.
type RepoAccess struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	FullName        string       `json:"full_name"`
	Private         bool         `json:"private"`
	Visibility      string       `json:"visibility,omitempty"`
	HTMLURL         string       `json:"html_url"`
	PermissionLevel Permission   `json:"permission_level"`
	AccessVia       []AccessPath `json:"access_via"`
}

// HasPath reports whether p is already recorded.
func (r *RepoAccess) HasPath(p AccessPath) bool {
	for _, existing := range r.AccessVia {
		if existing == p {
			return true
		}
	}
	return false
}

// LookupKind names the per-item lookup that could not be resolved.
type LookupKind string

const (
	LookupTeamMembership         LookupKind = "team_membership"
	LookupCollaboratorPermission LookupKind = "collaborator_permission"
)

// UnresolvedLookup records a per-item check whose outcome is unknown because
// the upstream call failed with something other than 404. The grant it would
// have contributed is absent from the summary.
type UnresolvedLookup struct {
	Kind    LookupKind `json:"kind"`
	Target  string     `json:"target"` // team slug or repository full name
	Status  int        `json:"status,omitempty"`
	Message string     `json:"message"`
}

// AccessSummary is the output of the access aggregator for one (org, user).
type AccessSummary struct {
	Organization string             `json:"organization"`
	User         string             `json:"user"`
	Repositories []RepoAccess       `json:"repositories"`
	Unresolved   []UnresolvedLookup `json:"unresolved"`
}

// Complete reports whether every per-item lookup resolved.
func (s *AccessSummary) Complete() bool {
	return len(s.Unresolved) == 0
}
