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

// MemberService lists organization members.
type MemberService struct {
	github github.Provider
	queue  *queue.Queue
}

func NewMemberService(gh github.Provider, q *queue.Queue) *MemberService {
	return &MemberService{github: gh, queue: q}
}

func (s *MemberService) ListOrgMembers(ctx context.Context, token, org string) ([]model.Member, error) {
	if strings.TrimSpace(org) == "" {
		return nil, apperror.ValidationFailed("org", "organization is required")
	}

	client := s.github.Client(token)
	members, err := queue.Do(s.queue, ctx, func(ctx context.Context) ([]model.Member, error) {
		return client.ListOrgMembers(ctx, org)
	})
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []model.Member{}
	}
	return members, nil
}

// ContextService builds the "browse as" selector.
type ContextService struct {
	github github.Provider
	queue  *queue.Queue
	logger *slog.Logger
}

func NewContextService(gh github.Provider, q *queue.Queue, logger *slog.Logger) *ContextService {
	return &ContextService{github: gh, queue: q, logger: logger}
}

// List returns the authenticated identity followed by every organization it
// belongs to. The user entry's name falls back to the login.
func (s *ContextService) List(ctx context.Context, token string) ([]model.Context, error) {
	client := s.github.Client(token)

	user, err := queue.Do(s.queue, ctx, func(ctx context.Context) (*model.User, error) {
		return client.AuthenticatedUser(ctx)
	})
	if err != nil {
		return nil, err
	}
	orgs, err := queue.Do(s.queue, ctx, func(ctx context.Context) ([]model.Context, error) {
		return client.ListUserOrgs(ctx)
	})
	if err != nil {
		return nil, err
	}

	name := user.Name
	if name == "" {
		name = user.Login
	}
	contexts := make([]model.Context, 0, len(orgs)+1)
	contexts = append(contexts, model.Context{
		Type:      model.ContextUser,
		Login:     user.Login,
		Name:      name,
		AvatarURL: user.AvatarURL,
	})
	contexts = append(contexts, orgs...)

	s.logger.Debug("contexts listed",
		slog.String("login", user.Login),
		slog.Int("orgs", len(orgs)),
	)
	return contexts, nil
}
