package service

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/access-git/internal/apperror"
	"github.com/sakif/access-git/internal/github"
	"github.com/sakif/access-git/internal/model"
	"github.com/sakif/access-git/internal/queue"
)

const (
	repositoryPageSize  = 30
	detailsContributors = 15
	activitySectionSize = 5
	defaultListSize     = 5
	maxListSize         = 100
)

// RepositoryService backs the repository browser: the paged list for a
// context and the read-only views of one repository.
type RepositoryService struct {
	github github.Provider
	queue  *queue.Queue
	logger *slog.Logger
}

func NewRepositoryService(gh github.Provider, q *queue.Queue, logger *slog.Logger) *RepositoryService {
	return &RepositoryService{github: gh, queue: q, logger: logger}
}

// List returns one page (30 repositories, most recently updated first) for
// the selected context.
//
// USER CONTEXTS:
// When login is the credential's own account the private repositories it
// owns are included; any other login only shows public ones.
func (s *RepositoryService) List(ctx context.Context, token, contextType, login string, page int) ([]model.Repository, error) {
	login = strings.TrimSpace(login)
	if contextType == "" || login == "" {
		return nil, apperror.ValidationFailed("context", "Missing 'context_type' or 'context_login' query parameters.")
	}
	ct, ok := model.ParseContextType(contextType)
	if !ok {
		return nil, apperror.ValidationFailed("context_type", "Invalid 'context_type' specified. Use 'org' or 'user'.")
	}
	if page < 1 {
		page = 1
	}

	client := s.github.Client(token)
	var (
		repos []model.Repository
		err   error
	)
	switch ct {
	case model.ContextOrg:
		repos, err = queue.Do(s.queue, ctx, func(ctx context.Context) ([]model.Repository, error) {
			return client.ListOrgRepos(ctx, login, page, repositoryPageSize)
		})
	case model.ContextUser:
		var viewer *model.User
		viewer, err = queue.Do(s.queue, ctx, func(ctx context.Context) (*model.User, error) {
			return client.AuthenticatedUser(ctx)
		})
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(viewer.Login, login) {
			repos, err = queue.Do(s.queue, ctx, func(ctx context.Context) ([]model.Repository, error) {
				return client.ListOwnRepos(ctx, page, repositoryPageSize)
			})
		} else {
			repos, err = queue.Do(s.queue, ctx, func(ctx context.Context) ([]model.Repository, error) {
				return client.ListUserRepos(ctx, login, page, repositoryPageSize)
			})
		}
	}
	if err != nil {
		return nil, err
	}
	if repos == nil {
		repos = []model.Repository{}
	}
	return repos, nil
}

// Details loads the repository, its languages and its top contributors in
// parallel. Any failure fails the whole view.
func (s *RepositoryService) Details(ctx context.Context, token, owner, repo string) (*model.RepositoryDetails, error) {
	if err := requireRepo(owner, repo); err != nil {
		return nil, err
	}

	client := s.github.Client(token)
	var (
		details      *model.RepositoryDetails
		languages    map[string]int
		contributors []model.Contributor
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		details, err = queue.Do(s.queue, gctx, func(ctx context.Context) (*model.RepositoryDetails, error) {
			return client.GetRepository(ctx, owner, repo)
		})
		return err
	})
	g.Go(func() (err error) {
		languages, err = queue.Do(s.queue, gctx, func(ctx context.Context) (map[string]int, error) {
			return client.ListLanguages(ctx, owner, repo)
		})
		return err
	})
	g.Go(func() (err error) {
		contributors, err = queue.Do(s.queue, gctx, func(ctx context.Context) ([]model.Contributor, error) {
			return client.ListContributors(ctx, owner, repo, detailsContributors)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if languages == nil {
		languages = map[string]int{}
	}
	if contributors == nil {
		contributors = []model.Contributor{}
	}
	details.Languages = languages
	details.Contributors = contributors
	return details, nil
}

// Activity gathers four independent sections. A section whose call fails is
// left nil (and logged); the summary itself only fails on bad input or a
// cancelled request.
func (s *RepositoryService) Activity(ctx context.Context, token, owner, repo string) (*model.ActivitySummary, error) {
	if err := requireRepo(owner, repo); err != nil {
		return nil, err
	}

	client := s.github.Client(token)
	details := queue.Submit(s.queue, ctx, func(ctx context.Context) (*model.RepositoryDetails, error) {
		return client.GetRepository(ctx, owner, repo)
	})
	pulls := queue.Submit(s.queue, ctx, func(ctx context.Context) ([]model.PullRequest, error) {
		return client.ListPulls(ctx, owner, repo, "open", activitySectionSize)
	})
	branches := queue.Submit(s.queue, ctx, func(ctx context.Context) ([]model.Branch, error) {
		return client.ListBranches(ctx, owner, repo, activitySectionSize)
	})
	commits := queue.Submit(s.queue, ctx, func(ctx context.Context) ([]model.Commit, error) {
		return client.ListCommits(ctx, owner, repo, activitySectionSize)
	})

	summary := &model.ActivitySummary{}
	var err error
	if summary.Details, err = section(ctx, s, owner, repo, "details", details); err != nil {
		return nil, err
	}
	if summary.Pulls, err = section(ctx, s, owner, repo, "pulls", pulls); err != nil {
		return nil, err
	}
	if summary.Branches, err = section(ctx, s, owner, repo, "branches", branches); err != nil {
		return nil, err
	}
	if summary.Commits, err = section(ctx, s, owner, repo, "commits", commits); err != nil {
		return nil, err
	}
	if summary.Commits == nil {
		summary.Commits = []model.Commit{}
	}
	return summary, nil
}

// section waits for one activity section. Upstream failures yield the zero
// value; only the request's own cancellation is returned.
func section[T any](ctx context.Context, s *RepositoryService, owner, repo, name string, f *queue.Future[T]) (T, error) {
	v, err := f.Wait(ctx)
	if err == nil {
		return v, nil
	}
	var zero T
	if cerr := contextDone(ctx, err); cerr != nil {
		return zero, cerr
	}
	s.sectionFailed(owner, repo, name, err)
	return zero, nil
}

func (s *RepositoryService) sectionFailed(owner, repo, section string, err error) {
	s.logger.Warn("activity section unavailable",
		slog.String("repository", owner+"/"+repo),
		slog.String("section", section),
		slog.String("error", err.Error()),
	)
}

// Pulls lists pull requests in state (open, closed or all; default open).
func (s *RepositoryService) Pulls(ctx context.Context, token, owner, repo, state string, perPage int) ([]model.PullRequest, error) {
	if err := requireRepo(owner, repo); err != nil {
		return nil, err
	}
	switch state {
	case "":
		state = "open"
	case "open", "closed", "all":
	default:
		return nil, apperror.ValidationFailed("state", "State must be one of open, closed, all.")
	}

	client := s.github.Client(token)
	pulls, err := queue.Do(s.queue, ctx, func(ctx context.Context) ([]model.PullRequest, error) {
		return client.ListPulls(ctx, owner, repo, state, clampListSize(perPage))
	})
	if err != nil {
		return nil, err
	}
	if pulls == nil {
		pulls = []model.PullRequest{}
	}
	return pulls, nil
}

// Commits lists the most recent commits on the default branch.
func (s *RepositoryService) Commits(ctx context.Context, token, owner, repo string, perPage int) ([]model.Commit, error) {
	if err := requireRepo(owner, repo); err != nil {
		return nil, err
	}

	client := s.github.Client(token)
	commits, err := queue.Do(s.queue, ctx, func(ctx context.Context) ([]model.Commit, error) {
		return client.ListCommits(ctx, owner, repo, clampListSize(perPage))
	})
	if err != nil {
		return nil, err
	}
	if commits == nil {
		commits = []model.Commit{}
	}
	return commits, nil
}

func clampListSize(n int) int {
	switch {
	case n <= 0:
		return defaultListSize
	case n > maxListSize:
		return maxListSize
	}
	return n
}
