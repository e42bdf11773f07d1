// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	GitHub client / store    → talks to the GitHub REST API or the database
//
// Services never see *http.Request. They take the operator's credential as a
// plain string argument, ask the github.Provider for a client bound to it and
// return domain values or *apperror.AppError. The handler translates those
// into status codes.
//
// SHARED PROCESS RESOURCES:
// The bounded queue and the caches are created once in server.New and
// injected here. Every outbound call a service fans out goes through the
// queue, so concurrent dashboard users share one budget of in-flight GitHub
// requests.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/access-git/internal/apperror"
	"github.com/sakif/access-git/internal/cache"
	"github.com/sakif/access-git/internal/github"
	"github.com/sakif/access-git/internal/model"
	"github.com/sakif/access-git/internal/queue"
)

// AccessService is the access aggregator: it reconstructs a user's effective
// permission on every repository of an organization.
//
// GitHub has no "effective permission" endpoint. The answer is rebuilt by
// crossing team membership with team grants, then overlaying direct
// collaborator grants:
//
//	precondition  user ∈ org?                  (1 call, 404 → NotFound)
//	step A        teams of org, user ∈ team?   (1 + T calls, queued)
//	step B        repositories of each team    (M calls, queued, abort on error)
//	step C        merge team grants
//	step D        repositories of org, direct permission on each (1 + R calls, queued)
//	step E        merge direct grants
type AccessService struct {
	github github.Provider
	queue  *queue.Queue
	cache  *cache.Cache[*model.AccessSummary]
	logger *slog.Logger
}

// NewAccessService creates an AccessService.
func NewAccessService(gh github.Provider, q *queue.Queue, c *cache.Cache[*model.AccessSummary], logger *slog.Logger) *AccessService {
	return &AccessService{github: gh, queue: q, cache: c, logger: logger}
}

// lookupOutcome is the tri-state result of a per-item check.
type lookupOutcome int

const (
	outcomeNegative lookupOutcome = iota // GitHub said no (404, pending, "none")
	outcomePositive
	outcomeUnknown // the call failed; we cannot tell
)

// Summary returns the effective-access summary of user in org.
//
// A summary with Unresolved entries is returned (not failed) but is not
// cached, so the next request retries the lookups that failed.
func (s *AccessService) Summary(ctx context.Context, token, org, user string) (*model.AccessSummary, error) {
	org = strings.TrimSpace(org)
	user = strings.TrimSpace(user)
	if org == "" {
		return nil, apperror.ValidationFailed("org", "organization is required")
	}
	if user == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}

	key := cache.Key("access-summary", org, user, cache.CredentialFragment(token))
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	start := time.Now()
	client := s.github.Client(token)
	log := s.logger.With(slog.String("org", org), slog.String("user", user))

	// === PRECONDITION: ORG MEMBERSHIP ===
	member, err := queue.Do(s.queue, ctx, func(ctx context.Context) (bool, error) {
		return client.IsOrgMember(ctx, org, user)
	})
	if err != nil {
		if apperror.IsUpstreamNotFound(err) {
			return nil, apperror.NotFoundMessage("user is not a member of the organization")
		}
		return nil, err
	}
	if !member {
		return nil, apperror.NotFoundMessage("user is not a member of the organization")
	}

	summary := &model.AccessSummary{
		Organization: org,
		User:         user,
		Unresolved:   []model.UnresolvedLookup{},
	}
	access := newAccessMap()

	// === STEP A: TEAMS THE USER BELONGS TO ===
	userTeams, err := s.memberTeams(ctx, client, org, user, summary, log)
	if err != nil {
		return nil, err
	}

	// === STEP B: REPOSITORIES OF THOSE TEAMS ===
	teamRepos, err := s.teamRepositories(ctx, client, org, userTeams)
	if err != nil {
		return nil, err
	}

	// === STEP C: MERGE TEAM GRANTS ===
	for i, team := range userTeams {
		for _, repo := range teamRepos[i] {
			access.mergeTeamGrant(repo.Repository, repo.Permission, team.Name)
		}
	}

	// === STEP D: DIRECT COLLABORATOR GRANTS ===
	direct, err := s.directGrants(ctx, client, org, user, summary, log)
	if err != nil {
		return nil, err
	}

	// === STEP E: MERGE DIRECT GRANTS ===
	for _, g := range direct {
		access.mergeDirectGrant(g.repo, g.level)
	}

	summary.Repositories = access.list()

	log.Info("access summary computed",
		slog.Int("teams", len(userTeams)),
		slog.Int("repositories", len(summary.Repositories)),
		slog.Int("unresolved", len(summary.Unresolved)),
		slog.Duration("duration", time.Since(start)),
	)

	if summary.Complete() {
		s.cache.Set(key, summary)
	}
	return summary, nil
}

// memberTeams lists the org's teams and keeps those with an active
// membership for user. Listing failures abort; per-team failures other than
// 404 are recorded as unresolved.
func (s *AccessService) memberTeams(ctx context.Context, client github.Client, org, user string, summary *model.AccessSummary, log *slog.Logger) ([]model.Team, error) {
	teams, err := queue.Do(s.queue, ctx, func(ctx context.Context) ([]model.Team, error) {
		return client.ListOrgTeams(ctx, org)
	})
	if err != nil {
		return nil, err
	}

	futures := make([]*queue.Future[*model.TeamMembership], len(teams))
	for i, team := range teams {
		slug := team.Slug
		futures[i] = queue.Submit(s.queue, ctx, func(ctx context.Context) (*model.TeamMembership, error) {
			return client.TeamMembership(ctx, org, slug, user)
		})
	}

	var kept []model.Team
	for i, f := range futures {
		membership, err := f.Wait(ctx)
		if ctxErr := contextDone(ctx, err); ctxErr != nil {
			return nil, ctxErr
		}

		switch classify(err, membership != nil && membership.Active()) {
		case outcomePositive:
			kept = append(kept, teams[i])
		case outcomeNegative:
			log.Debug("not a team member", slog.String("team", teams[i].Slug))
		case outcomeUnknown:
			log.Warn("team membership lookup failed",
				slog.String("team", teams[i].Slug),
				slog.String("error", err.Error()),
			)
			summary.Unresolved = append(summary.Unresolved, unresolved(model.LookupTeamMembership, teams[i].Slug, err))
		}
	}
	return kept, nil
}

// teamRepositories lists every repository of every team, concurrently.
// Any failure cancels the rest and aborts the summary.
//
// ERRGROUP:
// errgroup.WithContext returns a context cancelled on the first error.
// Units still waiting in the queue see the cancellation and never run.
func (s *AccessService) teamRepositories(ctx context.Context, client github.Client, org string, teams []model.Team) ([][]model.TeamRepository, error) {
	results := make([][]model.TeamRepository, len(teams))

	g, gctx := errgroup.WithContext(ctx)
	for i, team := range teams {
		slug := team.Slug
		g.Go(func() error {
			repos, err := queue.Do(s.queue, gctx, func(ctx context.Context) ([]model.TeamRepository, error) {
				return client.ListTeamRepos(ctx, org, slug)
			})
			if err != nil {
				return err
			}
			results[i] = repos
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type directGrant struct {
	repo  model.Repository
	level model.Permission
}

// directGrants asks for user's direct permission on every org repository.
func (s *AccessService) directGrants(ctx context.Context, client github.Client, org, user string, summary *model.AccessSummary, log *slog.Logger) ([]directGrant, error) {
	repos, err := queue.Do(s.queue, ctx, func(ctx context.Context) ([]model.Repository, error) {
		return client.ListAllOrgRepos(ctx, org)
	})
	if err != nil {
		return nil, err
	}

	futures := make([]*queue.Future[*model.CollaboratorPermission], len(repos))
	for i, repo := range repos {
		owner, name := repoOwner(repo, org), repo.Name
		futures[i] = queue.Submit(s.queue, ctx, func(ctx context.Context) (*model.CollaboratorPermission, error) {
			return client.CollaboratorPermission(ctx, owner, name, user)
		})
	}

	var grants []directGrant
	for i, f := range futures {
		perm, err := f.Wait(ctx)
		if ctxErr := contextDone(ctx, err); ctxErr != nil {
			return nil, ctxErr
		}

		var level model.Permission
		hasLevel := false
		if err == nil && perm != nil {
			level, hasLevel = perm.Level()
		}

		switch classify(err, hasLevel) {
		case outcomePositive:
			grants = append(grants, directGrant{repo: repos[i], level: level})
		case outcomeNegative:
		case outcomeUnknown:
			log.Warn("collaborator permission lookup failed",
				slog.String("repository", repos[i].FullName),
				slog.String("error", err.Error()),
			)
			summary.Unresolved = append(summary.Unresolved, unresolved(model.LookupCollaboratorPermission, repos[i].FullName, err))
		}
	}
	return grants, nil
}

// classify folds a per-item lookup into member / not-member / unknown.
// A 404 is GitHub's way of saying "no"; anything else is a failed call.
func classify(err error, positive bool) lookupOutcome {
	switch {
	case err == nil && positive:
		return outcomePositive
	case err == nil, apperror.IsUpstreamNotFound(err):
		return outcomeNegative
	default:
		return outcomeUnknown
	}
}

// contextDone returns the request's own cancellation, if that is why err happened.
func contextDone(ctx context.Context, err error) error {
	if err == nil || ctx.Err() == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ctx.Err()
	}
	return nil
}

func unresolved(kind model.LookupKind, target string, err error) model.UnresolvedLookup {
	u := model.UnresolvedLookup{
		Kind:    kind,
		Target:  target,
		Status:  apperror.StatusOf(err),
		Message: err.Error(),
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		u.Message = appErr.Message
	}
	return u
}

func repoOwner(repo model.Repository, fallback string) string {
	if repo.Owner.Login != "" {
		return repo.Owner.Login
	}
	return fallback
}

// =========================================================================
// EFFECTIVE-ACCESS MAP
// =========================================================================

// accessMap folds grants into per-repository records, remembering first-seen
// order so one invocation always lists repositories the same way.
type accessMap struct {
	byID  map[int64]*model.RepoAccess
	order []int64
}

func newAccessMap() *accessMap {
	return &accessMap{byID: make(map[int64]*model.RepoAccess)}
}

func (m *accessMap) entry(repo model.Repository, level model.Permission) (*model.RepoAccess, bool) {
	if existing, ok := m.byID[repo.ID]; ok {
		return existing, true
	}
	ra := &model.RepoAccess{
		ID:              repo.ID,
		Name:            repo.Name,
		FullName:        repo.FullName,
		Private:         repo.Private,
		Visibility:      repo.Visibility,
		HTMLURL:         repo.HTMLURL,
		PermissionLevel: level,
		AccessVia:       []model.AccessPath{},
	}
	m.byID[repo.ID] = ra
	m.order = append(m.order, repo.ID)
	return ra, false
}

// mergeTeamGrant records that team grants level on repo. The level only ever
// rises, and the same team is listed once however often it is merged.
func (m *accessMap) mergeTeamGrant(repo model.Repository, level model.Permission, team string) {
	ra, existed := m.entry(repo, level)
	if existed {
		ra.PermissionLevel = model.MaxPermission(ra.PermissionLevel, level)
	}
	path := model.AccessPath{Type: model.AccessViaTeam, Name: team}
	if !ra.HasPath(path) {
		ra.AccessVia = append(ra.AccessVia, path)
	}
}

// mergeDirectGrant records a direct collaborator grant: raise the level if
// higher and add a single direct path.
func (m *accessMap) mergeDirectGrant(repo model.Repository, level model.Permission) {
	ra, existed := m.entry(repo, level)
	if existed {
		ra.PermissionLevel = model.MaxPermission(ra.PermissionLevel, level)
	}
	path := model.AccessPath{Type: model.AccessViaDirect}
	if !ra.HasPath(path) {
		ra.AccessVia = append(ra.AccessVia, path)
	}
}

func (m *accessMap) list() []model.RepoAccess {
	out := make([]model.RepoAccess, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.byID[id])
	}
	return out
}
