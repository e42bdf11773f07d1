package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/access-git/internal/apperror"
	"github.com/sakif/access-git/internal/github"
	"github.com/sakif/access-git/internal/model"
	"github.com/sakif/access-git/internal/queue"
)

// CollaboratorService manages direct collaborator grants on one repository.
// Every call goes through the shared queue.
type CollaboratorService struct {
	github github.Provider
	queue  *queue.Queue
	logger *slog.Logger
}

func NewCollaboratorService(gh github.Provider, q *queue.Queue, logger *slog.Logger) *CollaboratorService {
	return &CollaboratorService{github: gh, queue: q, logger: logger}
}

// List returns the direct collaborators of owner/repo. GitHub answers 404 for
// a repository without any; that is an empty list here, not an error.
func (s *CollaboratorService) List(ctx context.Context, token, owner, repo string) ([]model.Collaborator, error) {
	if err := requireRepo(owner, repo); err != nil {
		return nil, err
	}

	client := s.github.Client(token)
	collaborators, err := queue.Do(s.queue, ctx, func(ctx context.Context) ([]model.Collaborator, error) {
		return client.ListCollaborators(ctx, owner, repo)
	})
	if apperror.IsUpstreamNotFound(err) {
		return []model.Collaborator{}, nil
	}
	if err != nil {
		return nil, err
	}
	if collaborators == nil {
		collaborators = []model.Collaborator{}
	}
	return collaborators, nil
}

// Set adds username as a collaborator or changes their level.
func (s *CollaboratorService) Set(ctx context.Context, token, owner, repo, username, permission string) error {
	if err := requireRepo(owner, repo); err != nil {
		return err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return apperror.ValidationFailed("username", "Owner, repository name, and username are required.")
	}
	if strings.TrimSpace(permission) == "" {
		return apperror.ValidationFailed("permission", "Permission level is required.")
	}
	perm, ok := model.ParsePermission(permission)
	if !ok {
		return apperror.ValidationFailed("permission", "Permission must be one of pull, triage, push, maintain, admin.")
	}

	client := s.github.Client(token)
	_, err := queue.Do(s.queue, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, client.SetCollaborator(ctx, owner, repo, username, perm)
	})
	if err != nil {
		return err
	}
	s.logger.Info("collaborator set",
		slog.String("repository", owner+"/"+repo),
		slog.String("user", username),
		slog.String("permission", perm.String()),
	)
	return nil
}

// Remove revokes username's direct grant.
func (s *CollaboratorService) Remove(ctx context.Context, token, owner, repo, username string) error {
	if err := requireRepo(owner, repo); err != nil {
		return err
	}
	if strings.TrimSpace(username) == "" {
		return apperror.ValidationFailed("username", "Username is required")
	}

	client := s.github.Client(token)
	_, err := queue.Do(s.queue, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, client.RemoveCollaborator(ctx, owner, repo, username)
	})
	if err != nil {
		return err
	}
	s.logger.Info("collaborator removed",
		slog.String("repository", owner+"/"+repo),
		slog.String("user", username),
	)
	return nil
}

// Permission reports username's effective level on owner/repo. Unlike the
// aggregator, a 404 is passed through to the caller.
func (s *CollaboratorService) Permission(ctx context.Context, token, owner, repo, username string) (*model.CollaboratorPermission, error) {
	if err := requireRepo(owner, repo); err != nil {
		return nil, err
	}
	if strings.TrimSpace(username) == "" {
		return nil, apperror.ValidationFailed("username", "Owner, repository name, and username are required.")
	}

	client := s.github.Client(token)
	return queue.Do(s.queue, ctx, func(ctx context.Context) (*model.CollaboratorPermission, error) {
		return client.CollaboratorPermission(ctx, owner, repo, username)
	})
}

func requireRepo(owner, repo string) error {
	if strings.TrimSpace(owner) == "" || strings.TrimSpace(repo) == "" {
		return apperror.ValidationFailed("repository", "Owner and repository name are required.")
	}
	return nil
}
