package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/access-git/internal/model"
	"github.com/sakif/access-git/internal/service"
)

// UnresolvedHeader carries how many per-item lookups of an access summary
// could not be resolved. Zero means the summary is complete.
const UnresolvedHeader = "X-Access-Unresolved"

// OrganizationHandler serves team, member and effective-access endpoints.
type OrganizationHandler struct {
	teams   *service.TeamService
	members *service.MemberService
	access  *service.AccessService
	logger  *slog.Logger
}

func NewOrganizationHandler(
	teams *service.TeamService,
	members *service.MemberService,
	access *service.AccessService,
	logger *slog.Logger,
) *OrganizationHandler {
	return &OrganizationHandler{teams: teams, members: members, access: access, logger: logger}
}

// HTTP: GET /api/organizations/{org}/teams
func (h *OrganizationHandler) HandleTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teams.ListOrgTeams(r.Context(), credential(r), param(r, "org"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

// HTTP: GET /api/organizations/{org}/members
func (h *OrganizationHandler) HandleMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.ListOrgMembers(r.Context(), credential(r), param(r, "org"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// HTTP: GET /api/organizations/{org}/teams/{slug}/repositories
func (h *OrganizationHandler) HandleTeamRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := h.teams.ListTeamRepos(r.Context(), credential(r), param(r, "org"), param(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, repos)
}

type setMembershipRequest struct {
	Role string `json:"role"`
}

// HandleSetMembership adds a user to a team.
//
// HTTP: PUT /api/organizations/{org}/teams/{slug}/members/{username}
// REQUEST BODY (optional): {"role": "member"|"maintainer"}
func (h *OrganizationHandler) HandleSetMembership(w http.ResponseWriter, r *http.Request) {
	var req setMembershipRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, err)
		return
	}
	_, err := h.teams.SetMembership(r.Context(), credential(r), param(r, "org"), param(r, "slug"), param(r, "username"), req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	noContent(w)
}

// HTTP: DELETE /api/organizations/{org}/teams/{slug}/members/{username}
func (h *OrganizationHandler) HandleRemoveMembership(w http.ResponseWriter, r *http.Request) {
	err := h.teams.RemoveMembership(r.Context(), credential(r), param(r, "org"), param(r, "slug"), param(r, "username"))
	if err != nil {
		writeError(w, err)
		return
	}
	noContent(w)
}

type setTeamRepoRequest struct {
	Permission string `json:"permission"`
}

// HandleSetTeamRepository grants a team a level on a repository.
//
// HTTP: PUT /api/organizations/{org}/teams/{slug}/repositories/{owner}/{repo}
// REQUEST BODY: {"permission": "push"}
func (h *OrganizationHandler) HandleSetTeamRepository(w http.ResponseWriter, r *http.Request) {
	var req setTeamRepoRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	err := h.teams.SetRepoPermission(r.Context(), credential(r),
		param(r, "org"), param(r, "slug"), param(r, "owner"), param(r, "repo"), req.Permission)
	if err != nil {
		writeError(w, err)
		return
	}
	noContent(w)
}

// HTTP: DELETE /api/organizations/{org}/teams/{slug}/repositories/{owner}/{repo}
func (h *OrganizationHandler) HandleRemoveTeamRepository(w http.ResponseWriter, r *http.Request) {
	err := h.teams.RemoveRepo(r.Context(), credential(r),
		param(r, "org"), param(r, "slug"), param(r, "owner"), param(r, "repo"))
	if err != nil {
		writeError(w, err)
		return
	}
	noContent(w)
}

// HandleAccessSummary returns every repository of org the user can reach and
// how.
//
// HTTP: GET /api/organizations/{org}/members/{username}/access-summary
//
// The body is the plain list of repositories. Lookups that failed for a
// reason other than "no access" are not in the body; their count is in the
// X-Access-Unresolved header and the details are in the server log.
func (h *OrganizationHandler) HandleAccessSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.access.Summary(r.Context(), credential(r), param(r, "org"), param(r, "username"))
	if err != nil {
		writeError(w, err)
		return
	}

	repos := summary.Repositories
	if repos == nil {
		repos = []model.RepoAccess{}
	}
	w.Header().Set(UnresolvedHeader, strconv.Itoa(len(summary.Unresolved)))
	writeJSON(w, http.StatusOK, repos)
}
