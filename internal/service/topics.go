package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/access-git/internal/apperror"
	"github.com/sakif/access-git/internal/cache"
	"github.com/sakif/access-git/internal/github"
	"github.com/sakif/access-git/internal/metrics"
	"github.com/sakif/access-git/internal/model"
	"github.com/sakif/access-git/internal/queue"
	"github.com/sakif/access-git/internal/repository"
)

// topicContributors is how many contributors a topic page shows per repository.
const topicContributors = 5

// TopicService maintains the repository → topic taxonomy.
//
// The metadata store is the only place topics live; GitHub's own repository
// topics are not used. Topics arrive two ways:
//   - Sync derives one from every unseen repository's name.
//   - Assign searches repositories by name and labels all matches.
type TopicService struct {
	github     github.Provider
	store      repository.TopicRepository
	queue      *queue.Queue
	repoIDs    *cache.Cache[[]int64]
	allowedOrg string
	logger     *slog.Logger
}

// NewTopicService creates a TopicService. allowedOrg, when non-empty, is the
// only organization Assign accepts.
func NewTopicService(gh github.Provider, store repository.TopicRepository, q *queue.Queue, repoIDs *cache.Cache[[]int64], allowedOrg string, logger *slog.Logger) *TopicService {
	return &TopicService{
		github:     gh,
		store:      store,
		queue:      q,
		repoIDs:    repoIDs,
		allowedOrg: allowedOrg,
		logger:     logger,
	}
}

// SyncResult reports what a sync or an assignment wrote.
type SyncResult struct {
	RunID   string                    `json:"run_id,omitempty"`
	Message string                    `json:"message"`
	Synced  []model.TrackedRepository `json:"synced_repos"`
}

// Sync records every organization repository the store has not seen yet,
// with a topic derived from its name. Existing rows are never touched, so a
// manual assignment survives later syncs.
//
// ALL OR NOTHING:
// A failed repository listing or a storage error aborts the run before
// anything is written; the insert itself is one transaction.
func (s *TopicService) Sync(ctx context.Context, token, org string) (*SyncResult, error) {
	org = strings.TrimSpace(org)
	if org == "" {
		return nil, apperror.ValidationFailed("org", "organization is required")
	}

	runID := xid.New().String()
	log := s.logger.With(slog.String("org", org), slog.String("run_id", runID))
	client := s.github.Client(token)

	repos, err := queue.Do(s.queue, ctx, func(ctx context.Context) ([]model.Repository, error) {
		return client.ListAllOrgRepos(ctx, org)
	})
	if err != nil {
		metrics.TopicSyncs.WithLabelValues("upstream_error").Inc()
		return nil, err
	}

	// GitHub matches org names case-insensitively; rows carry the owner
	// login GitHub reports, not the spelling in the request.
	owner := org
	if len(repos) > 0 {
		owner = repoOwner(repos[0], org)
	}

	known, err := s.store.KnownRepositoryIDs(ctx, owner)
	if err != nil {
		metrics.TopicSyncs.WithLabelValues("storage_error").Inc()
		log.Error("topic sync: reading known repositories", slog.String("error", err.Error()))
		return nil, err
	}

	rows := make([]model.TrackedRepository, 0)
	for _, r := range repos {
		if _, seen := known[r.ID]; seen {
			continue
		}
		rows = append(rows, model.TrackedRepository{
			ID:       r.ID,
			Name:     r.Name,
			FullName: r.FullName,
			HTMLURL:  r.HTMLURL,
			Owner:    repoOwner(r, owner),
			Topic:    model.StringPtr(model.DeriveTopic(r.Name)),
		})
	}

	inserted := 0
	if len(rows) > 0 {
		inserted, err = s.store.InsertRepositories(ctx, rows)
		if err != nil {
			metrics.TopicSyncs.WithLabelValues("storage_error").Inc()
			log.Error("topic sync: inserting repositories", slog.String("error", err.Error()))
			return nil, err
		}
	}

	// Rows that raced in since the diff are skipped by the insert, so the
	// reported count is what the store actually wrote.
	if inserted == 0 {
		metrics.TopicSyncs.WithLabelValues("up_to_date").Inc()
		log.Info("topic sync: nothing new", slog.Int("repositories", len(repos)))
		return &SyncResult{
			RunID:   runID,
			Message: "All repositories are already up to date.",
			Synced:  []model.TrackedRepository{},
		}, nil
	}

	metrics.TopicSyncs.WithLabelValues("ok").Inc()
	log.Info("topic sync complete",
		slog.Int("repositories", len(repos)),
		slog.Int("inserted", inserted),
	)
	return &SyncResult{
		RunID:   runID,
		Message: fmt.Sprintf("Successfully synced %d new repositories.", inserted),
		Synced:  rows,
	}, nil
}

// List counts topics over the repositories the credential can see in org.
// Miscellaneous is reported separately; named topics are sorted by name.
func (s *TopicService) List(ctx context.Context, token, org string) (*model.TopicList, error) {
	org = strings.TrimSpace(org)
	if org == "" {
		return nil, apperror.ValidationFailed("org", "organization is required")
	}

	ids, err := s.visibleRepositoryIDs(ctx, token, org)
	if err != nil {
		return nil, err
	}

	list := &model.TopicList{Topics: []model.TopicCount{}}
	if len(ids) == 0 {
		return list, nil
	}

	topics, err := s.store.TopicsForRepositories(ctx, org, ids)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, t := range topics {
		counts[t]++
	}
	list.MiscellaneousCount = counts[model.MiscellaneousTopic]
	delete(counts, model.MiscellaneousTopic)

	for name, count := range counts {
		list.Topics = append(list.Topics, model.TopicCount{Name: name, Count: count})
	}
	sort.Slice(list.Topics, func(i, j int) bool {
		return list.Topics[i].Name < list.Topics[j].Name
	})
	return list, nil
}

// visibleRepositoryIDs lists the ids of org's repositories the credential can
// see, cached per org and credential.
func (s *TopicService) visibleRepositoryIDs(ctx context.Context, token, org string) ([]int64, error) {
	key := cache.Key("user-repos", org, cache.CredentialFragment(token))
	if ids, ok := s.repoIDs.Get(key); ok {
		return ids, nil
	}

	client := s.github.Client(token)
	repos, err := queue.Do(s.queue, ctx, func(ctx context.Context) ([]model.Repository, error) {
		return client.ListAllOrgRepos(ctx, org)
	})
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(repos))
	for _, r := range repos {
		ids = append(ids, r.ID)
	}
	s.repoIDs.Set(key, ids)
	return ids, nil
}

// Assign labels every org repository whose name contains topic, replacing
// any topic those rows had.
func (s *TopicService) Assign(ctx context.Context, token, org, topic string) (*SyncResult, error) {
	org = strings.TrimSpace(org)
	topic = strings.TrimSpace(topic)
	if s.allowedOrg != "" && !strings.EqualFold(org, s.allowedOrg) {
		return nil, apperror.Forbidden(fmt.Sprintf("This feature is only available for the '%s' organization.", s.allowedOrg))
	}
	if topic == "" {
		return nil, apperror.ValidationFailed("topic", "Topic is required and must be a string.")
	}

	client := s.github.Client(token)
	repos, err := queue.Do(s.queue, ctx, func(ctx context.Context) ([]model.Repository, error) {
		return client.SearchOrgRepos(ctx, org, topic)
	})
	if err != nil {
		return nil, err
	}

	rows := make([]model.TrackedRepository, 0, len(repos))
	for _, r := range repos {
		if r.Owner.Login == "" {
			continue
		}
		rows = append(rows, model.TrackedRepository{
			ID:       r.ID,
			Name:     r.Name,
			FullName: r.FullName,
			HTMLURL:  r.HTMLURL,
			Owner:    r.Owner.Login,
			Topic:    model.StringPtr(topic),
		})
	}

	if len(rows) == 0 {
		return &SyncResult{
			Message: fmt.Sprintf("No new repositories found for topic '%s'.", topic),
			Synced:  rows,
		}, nil
	}

	if _, err := s.store.AssignTopic(ctx, rows, topic); err != nil {
		return nil, err
	}

	s.logger.Info("topic assigned",
		slog.String("org", org),
		slog.String("topic", topic),
		slog.Int("repositories", len(rows)),
	)
	return &SyncResult{
		Message: fmt.Sprintf("Successfully synced %d repositories for topic '%s'.", len(rows), topic),
		Synced:  rows,
	}, nil
}

// Delete removes topic from every row of org that carries it. Rows stay.
func (s *TopicService) Delete(ctx context.Context, org, topic string) (int64, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return 0, apperror.ValidationFailed("topic", "Topic is required.")
	}

	n, err := s.store.ClearTopic(ctx, org, topic)
	if err != nil {
		return 0, err
	}
	s.logger.Info("topic removed",
		slog.String("org", org),
		slog.String("topic", topic),
		slog.Int64("repositories", n),
	)
	return n, nil
}

// Repositories lists org's repositories carrying topic, each with up to five
// contributors. A failed contributor lookup leaves that repository with an
// empty list; it never fails the page.
func (s *TopicService) Repositories(ctx context.Context, token, org, topic string) ([]model.TopicRepository, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, apperror.ValidationFailed("topic", "A 'topic' query parameter is required.")
	}

	rows, err := s.store.RepositoriesByTopic(ctx, org, topic)
	if err != nil {
		return nil, err
	}

	client := s.github.Client(token)
	futures := make([]*queue.Future[[]model.Contributor], len(rows))
	for i, row := range rows {
		name := row.Name
		futures[i] = queue.Submit(s.queue, ctx, func(ctx context.Context) ([]model.Contributor, error) {
			return client.ListContributors(ctx, org, name, topicContributors)
		})
	}

	out := make([]model.TopicRepository, 0, len(rows))
	for i, row := range rows {
		entry := model.TopicRepository{
			ID:           row.ID,
			Name:         row.Name,
			FullName:     row.FullName,
			HTMLURL:      row.HTMLURL,
			Contributors: []model.Contributor{},
		}

		contributors, err := futures[i].Wait(ctx)
		switch {
		case err == nil:
			for _, c := range contributors {
				entry.Contributors = append(entry.Contributors, model.Contributor{Login: c.Login, AvatarURL: c.AvatarURL})
			}
		case contextDone(ctx, err) != nil:
			return nil, ctx.Err()
		default:
			s.logger.Warn("listing contributors failed",
				slog.String("repository", row.FullName),
				slog.String("error", err.Error()),
			)
		}
		out = append(out, entry)
	}
	return out, nil
}
