// Package model defines the data structures used throughout the application.
// Structs here carry JSON tags matching the field names the dashboard script
// reads; none of them import go-github.
package model

import "strings"

// Permission is a repository access level as GitHub names it.
//
// ORDERED SET:
// The five levels form a total order:
//
//	pull < triage < push < maintain < admin
//
// Every place that combines two grants (a team grant and a direct grant, or two
// teams granting the same repository) keeps the HIGHER one, so the order lives
// here and nowhere else.
type Permission string

const (
	PermissionPull     Permission = "pull"
	PermissionTriage   Permission = "triage"
	PermissionPush     Permission = "push"
	PermissionMaintain Permission = "maintain"
	PermissionAdmin    Permission = "admin"
)

// Permissions lists every valid level, lowest first.
var Permissions = []Permission{
	PermissionPull,
	PermissionTriage,
	PermissionPush,
	PermissionMaintain,
	PermissionAdmin,
}

// Rank returns the position of p in the ordering (1 = pull ... 5 = admin).
// Unknown values rank 0, so any valid permission beats them.
func (p Permission) Rank() int {
	for i, candidate := range Permissions {
		if candidate == p {
			return i + 1
		}
	}
	return 0
}

// Valid reports whether p is one of the five known levels.
func (p Permission) Valid() bool {
	return p.Rank() > 0
}

func (p Permission) String() string {
	return string(p)
}

// ParsePermission maps user input and GitHub role names onto a Permission.
//
// GitHub's collaborator-permission endpoint still reports the legacy names
// "read" and "write"; they are accepted as aliases for pull and push.
// "none" (and anything else) is not a permission and returns ok=false.
func ParsePermission(s string) (Permission, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pull", "read":
		return PermissionPull, true
	case "triage":
		return PermissionTriage, true
	case "push", "write":
		return PermissionPush, true
	case "maintain":
		return PermissionMaintain, true
	case "admin":
		return PermissionAdmin, true
	}
	return "", false
}

// MaxPermission returns the higher of a and b. Ties return a.
func MaxPermission(a, b Permission) Permission {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// HighestFromFlags picks the highest level set in a GitHub permissions map
// (the {"admin": true, "push": true, ...} object on repository payloads).
// A repository listed for a team always grants at least pull.
func HighestFromFlags(flags map[string]bool) Permission {
	for i := len(Permissions) - 1; i >= 0; i-- {
		if flags[string(Permissions[i])] {
			return Permissions[i]
		}
	}
	return PermissionPull
}

// TeamRole is a member's role inside a team.
type TeamRole string

const (
	TeamRoleMember     TeamRole = "member"
	TeamRoleMaintainer TeamRole = "maintainer"
)

// ParseTeamRole validates a team role. An empty string is allowed and means
// "let GitHub pick the default" (member).
func ParseTeamRole(s string) (TeamRole, bool) {
	switch TeamRole(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return "", true
	case TeamRoleMember:
		return TeamRoleMember, true
	case TeamRoleMaintainer:
		return TeamRoleMaintainer, true
	}
	return "", false
}
