package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/access-git/internal/service"
)

// RepositoryHandler serves the repository browser and the per-repository
// management screens.
type RepositoryHandler struct {
	contexts      *service.ContextService
	repositories  *service.RepositoryService
	collaborators *service.CollaboratorService
	teams         *service.TeamService
	logger        *slog.Logger
}

func NewRepositoryHandler(
	contexts *service.ContextService,
	repositories *service.RepositoryService,
	collaborators *service.CollaboratorService,
	teams *service.TeamService,
	logger *slog.Logger,
) *RepositoryHandler {
	return &RepositoryHandler{
		contexts:      contexts,
		repositories:  repositories,
		collaborators: collaborators,
		teams:         teams,
		logger:        logger,
	}
}

// HandleContexts lists the identities the credential can browse as.
//
// HTTP: GET /api/contexts
func (h *RepositoryHandler) HandleContexts(w http.ResponseWriter, r *http.Request) {
	contexts, err := h.contexts.List(r.Context(), credential(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contexts)
}

// HandleList returns one page of repositories for a context.
//
// HTTP: GET /api/repositories?context_type=org|user&context_login=X&page=N
func (h *RepositoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	repos, err := h.repositories.List(r.Context(), credential(r), q.Get("context_type"), q.Get("context_login"), queryInt(r, "page"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, repos)
}

// HTTP: GET /api/repositories/{owner}/{repo}/details
func (h *RepositoryHandler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.repositories.Details(r.Context(), credential(r), param(r, "owner"), param(r, "repo"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// HTTP: GET /api/repositories/{owner}/{repo}/activity-summary
func (h *RepositoryHandler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	summary, err := h.repositories.Activity(r.Context(), credential(r), param(r, "owner"), param(r, "repo"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HTTP: GET /api/repositories/{owner}/{repo}/pulls?state=open&per_page=5
func (h *RepositoryHandler) HandlePulls(w http.ResponseWriter, r *http.Request) {
	pulls, err := h.repositories.Pulls(r.Context(), credential(r), param(r, "owner"), param(r, "repo"),
		r.URL.Query().Get("state"), queryInt(r, "per_page"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pulls)
}

// HTTP: GET /api/repositories/{owner}/{repo}/commits?per_page=5
func (h *RepositoryHandler) HandleCommits(w http.ResponseWriter, r *http.Request) {
	commits, err := h.repositories.Commits(r.Context(), credential(r), param(r, "owner"), param(r, "repo"), queryInt(r, "per_page"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commits)
}

// HTTP: GET /api/repositories/{owner}/{repo}/teams
func (h *RepositoryHandler) HandleTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teams.ListRepoTeams(r.Context(), credential(r), param(r, "owner"), param(r, "repo"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

// =========================================================================
// COLLABORATORS
// =========================================================================

// HTTP: GET /api/repositories/{owner}/{repo}/collaborators
func (h *RepositoryHandler) HandleListCollaborators(w http.ResponseWriter, r *http.Request) {
	collaborators, err := h.collaborators.List(r.Context(), credential(r), param(r, "owner"), param(r, "repo"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collaborators)
}

type setCollaboratorRequest struct {
	Username   string `json:"username"`
	Permission string `json:"permission"`
}

// HandleSetCollaborator adds a collaborator or changes their level.
//
// HTTP: PUT /api/repositories/{owner}/{repo}/collaborators
// REQUEST BODY: {"username": "octocat", "permission": "push"}
func (h *RepositoryHandler) HandleSetCollaborator(w http.ResponseWriter, r *http.Request) {
	var req setCollaboratorRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	err := h.collaborators.Set(r.Context(), credential(r), param(r, "owner"), param(r, "repo"), req.Username, req.Permission)
	if err != nil {
		writeError(w, err)
		return
	}
	noContent(w)
}

// HTTP: DELETE /api/repositories/{owner}/{repo}/collaborators/{username}
func (h *RepositoryHandler) HandleRemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	err := h.collaborators.Remove(r.Context(), credential(r), param(r, "owner"), param(r, "repo"), param(r, "username"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: GET /api/repositories/{owner}/{repo}/collaborators/{username}/permission
func (h *RepositoryHandler) HandlePermission(w http.ResponseWriter, r *http.Request) {
	perm, err := h.collaborators.Permission(r.Context(), credential(r), param(r, "owner"), param(r, "repo"), param(r, "username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, perm)
}
