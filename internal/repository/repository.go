// Package repository defines the metadata store interfaces.
//
// The store holds only what GitHub does not: a topic label per repository
// and the hashed site password. Two implementations exist, postgres (the
// production store) and sqlite (single-file store for local runs); services
// only ever see these interfaces.
package repository

import (
	"context"

	"github.com/sakif/access-git/internal/model"
)

// SitePasswordName is the gh_login row holding the dashboard password.
const SitePasswordName = "site_password"

// TopicRepository stores the repository → topic mapping.
//
// Every method scopes by owner (the organization login) so two orgs can share
// one database. Owners compare case-insensitively, as GitHub logins do.
// Driver failures come back as apperror.ErrStorage.
type TopicRepository interface {
	// KnownRepositoryIDs returns the ids already recorded for owner.
	KnownRepositoryIDs(ctx context.Context, owner string) (map[int64]struct{}, error)

	// InsertRepositories records unseen rows in one transaction. Rows whose id
	// already exists are left untouched (their topic is never overwritten).
	// Returns how many rows were inserted.
	InsertRepositories(ctx context.Context, rows []model.TrackedRepository) (int, error)

	// AssignTopic upserts rows with the given topic: new ids are inserted,
	// existing ids get their topic replaced. Returns how many rows changed.
	AssignTopic(ctx context.Context, rows []model.TrackedRepository, topic string) (int, error)

	// TopicsForRepositories returns the non-null topic of every recorded row
	// of owner whose id is in ids (one entry per row, duplicates kept).
	TopicsForRepositories(ctx context.Context, owner string, ids []int64) ([]string, error)

	// RepositoriesByTopic lists the rows of owner carrying topic, by name.
	RepositoriesByTopic(ctx context.Context, owner, topic string) ([]model.TrackedRepository, error)

	// ClearTopic sets topic to NULL on every row of owner carrying it and
	// returns how many rows were cleared. Rows are never deleted.
	ClearTopic(ctx context.Context, owner, topic string) (int64, error)
}

// CredentialRepository stores named password hashes (only the site password today).
type CredentialRepository interface {
	// PasswordHash returns the stored hash, or apperror.ErrNotFound.
	PasswordHash(ctx context.Context, name string) (string, error)
	SetPasswordHash(ctx context.Context, name, hash string) error
}

// Store is everything the server needs from a metadata backend.
type Store interface {
	TopicRepository
	CredentialRepository
	Ping(ctx context.Context) error
	Close() error
}
