package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/access-git/internal/apperror"
	"github.com/sakif/access-git/internal/cache"
	"github.com/sakif/access-git/internal/github"
	"github.com/sakif/access-git/internal/model"
	"github.com/sakif/access-git/internal/queue"
)

// TeamService reads teams and changes what they contain: members on one side,
// repository grants on the other.
type TeamService struct {
	github github.Provider
	queue  *queue.Queue
	teams  *cache.Cache[[]model.Team]
	logger *slog.Logger
}

func NewTeamService(gh github.Provider, q *queue.Queue, teams *cache.Cache[[]model.Team], logger *slog.Logger) *TeamService {
	return &TeamService{github: gh, queue: q, teams: teams, logger: logger}
}

// ListOrgTeams returns every team of org, cached per org and credential.
func (s *TeamService) ListOrgTeams(ctx context.Context, token, org string) ([]model.Team, error) {
	org = strings.TrimSpace(org)
	if org == "" {
		return nil, apperror.ValidationFailed("org", "organization is required")
	}

	key := cache.Key("teams", org, cache.CredentialFragment(token))
	if teams, ok := s.teams.Get(key); ok {
		return teams, nil
	}

	client := s.github.Client(token)
	teams, err := queue.Do(s.queue, ctx, func(ctx context.Context) ([]model.Team, error) {
		return client.ListOrgTeams(ctx, org)
	})
	if err != nil {
		return nil, err
	}
	if teams == nil {
		teams = []model.Team{}
	}
	s.teams.Set(key, teams)
	return teams, nil
}

// ListRepoTeams returns the teams with a direct grant on owner/repo. A 404
// means none.
func (s *TeamService) ListRepoTeams(ctx context.Context, token, owner, repo string) ([]model.Team, error) {
	if err := requireRepo(owner, repo); err != nil {
		return nil, err
	}

	client := s.github.Client(token)
	teams, err := queue.Do(s.queue, ctx, func(ctx context.Context) ([]model.Team, error) {
		return client.ListRepoTeams(ctx, owner, repo)
	})
	if apperror.IsUpstreamNotFound(err) {
		return []model.Team{}, nil
	}
	if err != nil {
		return nil, err
	}
	if teams == nil {
		teams = []model.Team{}
	}
	return teams, nil
}

// ListTeamRepos returns the repositories org/slug can access with its level on each.
func (s *TeamService) ListTeamRepos(ctx context.Context, token, org, slug string) ([]model.TeamRepository, error) {
	if err := requireTeam(org, slug); err != nil {
		return nil, err
	}

	client := s.github.Client(token)
	repos, err := queue.Do(s.queue, ctx, func(ctx context.Context) ([]model.TeamRepository, error) {
		return client.ListTeamRepos(ctx, org, slug)
	})
	if err != nil {
		return nil, err
	}
	if repos == nil {
		repos = []model.TeamRepository{}
	}
	return repos, nil
}

// SetMembership adds username to the team. role may be empty (GitHub's
// default, member) or one of member|maintainer.
func (s *TeamService) SetMembership(ctx context.Context, token, org, slug, username, role string) (*model.TeamMembership, error) {
	if err := requireTeam(org, slug); err != nil {
		return nil, err
	}
	if strings.TrimSpace(username) == "" {
		return nil, apperror.ValidationFailed("username", "Username is required.")
	}
	teamRole, ok := model.ParseTeamRole(role)
	if !ok {
		return nil, apperror.ValidationFailed("role", "Role must be 'member' or 'maintainer'.")
	}

	client := s.github.Client(token)
	m, err := queue.Do(s.queue, ctx, func(ctx context.Context) (*model.TeamMembership, error) {
		return client.SetTeamMembership(ctx, org, slug, username, teamRole)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("team membership set",
		slog.String("team", org+"/"+slug),
		slog.String("user", username),
		slog.String("state", m.State),
	)
	return m, nil
}

// RemoveMembership takes username out of the team.
func (s *TeamService) RemoveMembership(ctx context.Context, token, org, slug, username string) error {
	if err := requireTeam(org, slug); err != nil {
		return err
	}
	if strings.TrimSpace(username) == "" {
		return apperror.ValidationFailed("username", "Username is required.")
	}

	client := s.github.Client(token)
	_, err := queue.Do(s.queue, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, client.RemoveTeamMembership(ctx, org, slug, username)
	})
	if err != nil {
		return err
	}
	s.logger.Info("team membership removed",
		slog.String("team", org+"/"+slug),
		slog.String("user", username),
	)
	return nil
}

// SetRepoPermission grants the team permission on owner/repo, adding the
// repository to the team when needed.
func (s *TeamService) SetRepoPermission(ctx context.Context, token, org, slug, owner, repo, permission string) error {
	if err := requireTeam(org, slug); err != nil {
		return err
	}
	if err := requireRepo(owner, repo); err != nil {
		return err
	}
	perm, ok := model.ParsePermission(permission)
	if !ok {
		return apperror.ValidationFailed("permission", "Permission must be one of pull, triage, push, maintain, admin.")
	}

	client := s.github.Client(token)
	_, err := queue.Do(s.queue, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, client.SetTeamRepoPermission(ctx, org, slug, owner, repo, perm)
	})
	if err != nil {
		return err
	}
	s.logger.Info("team repository permission set",
		slog.String("team", org+"/"+slug),
		slog.String("repository", owner+"/"+repo),
		slog.String("permission", perm.String()),
	)
	return nil
}

// RemoveRepo removes owner/repo from the team.
func (s *TeamService) RemoveRepo(ctx context.Context, token, org, slug, owner, repo string) error {
	if err := requireTeam(org, slug); err != nil {
		return err
	}
	if err := requireRepo(owner, repo); err != nil {
		return err
	}

	client := s.github.Client(token)
	_, err := queue.Do(s.queue, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, client.RemoveTeamRepo(ctx, org, slug, owner, repo)
	})
	if err != nil {
		return err
	}
	s.logger.Info("team repository removed",
		slog.String("team", org+"/"+slug),
		slog.String("repository", owner+"/"+repo),
	)
	return nil
}

func requireTeam(org, slug string) error {
	if strings.TrimSpace(org) == "" || strings.TrimSpace(slug) == "" {
		return apperror.ValidationFailed("team", "Organization and team slug are required.")
	}
	return nil
}
