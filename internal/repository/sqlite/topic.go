package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sakif/access-git/internal/apperror"
	"github.com/sakif/access-git/internal/model"
)

// KnownRepositoryIDs returns the ids already recorded for owner.
func (db *DB) KnownRepositoryIDs(ctx context.Context, owner string) (map[int64]struct{}, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id FROM gh_repositories WHERE owner = ? COLLATE NOCASE`, owner)
	if err != nil {
		return nil, apperror.Storage("listing known repositories", fmt.Errorf("sqlite: %w", err))
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperror.Storage("listing known repositories", fmt.Errorf("sqlite: scanning id: %w", err))
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Storage("listing known repositories", fmt.Errorf("sqlite: iterating ids: %w", err))
	}
	return ids, nil
}

// InsertRepositories records unseen rows in one transaction.
//
// ON CONFLICT DO NOTHING:
// A row that raced in between the caller's diff and this insert keeps its
// existing topic. Either every row lands or none does.
func (db *DB) InsertRepositories(ctx context.Context, rows []model.TrackedRepository) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	return db.upsert(ctx, rows, `
		INSERT INTO gh_repositories (id, name, full_name, html_url, owner, topic)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`, nil)
}

// AssignTopic inserts or updates rows so they all carry topic.
func (db *DB) AssignTopic(ctx context.Context, rows []model.TrackedRepository, topic string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	return db.upsert(ctx, rows, `
		INSERT INTO gh_repositories (id, name, full_name, html_url, owner, topic)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET topic = excluded.topic`, &topic)
}

func (db *DB) upsert(ctx context.Context, rows []model.TrackedRepository, query string, topic *string) (int, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperror.Storage("saving repositories", fmt.Errorf("sqlite: beginning transaction: %w", err))
	}
	defer tx.Rollback() // no-op after Commit

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, apperror.Storage("saving repositories", fmt.Errorf("sqlite: preparing upsert: %w", err))
	}
	defer stmt.Close()

	affected := 0
	for _, r := range rows {
		t := r.Topic
		if topic != nil {
			t = topic
		}
		res, err := stmt.ExecContext(ctx, r.ID, r.Name, r.FullName, r.HTMLURL, r.Owner, nullString(t))
		if err != nil {
			return 0, apperror.Storage("saving repositories", fmt.Errorf("sqlite: upserting repository %d: %w", r.ID, err))
		}
		if n, err := res.RowsAffected(); err == nil {
			affected += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, apperror.Storage("saving repositories", fmt.Errorf("sqlite: committing: %w", err))
	}
	return affected, nil
}

// TopicsForRepositories returns the non-null topics of the given rows.
func (db *DB) TopicsForRepositories(ctx context.Context, owner string, ids []int64) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, owner)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT topic FROM gh_repositories
		 WHERE owner = ? COLLATE NOCASE AND topic IS NOT NULL AND id IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, apperror.Storage("counting topics", fmt.Errorf("sqlite: %w", err))
	}
	defer rows.Close()

	topics := []string{}
	for rows.Next() {
		var topic string
		if err := rows.Scan(&topic); err != nil {
			return nil, apperror.Storage("counting topics", fmt.Errorf("sqlite: scanning topic: %w", err))
		}
		topics = append(topics, topic)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Storage("counting topics", fmt.Errorf("sqlite: iterating topics: %w", err))
	}
	return topics, nil
}

// RepositoriesByTopic lists the rows of owner carrying topic, ordered by name.
func (db *DB) RepositoriesByTopic(ctx context.Context, owner, topic string) ([]model.TrackedRepository, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, full_name, html_url, owner, topic
		 FROM gh_repositories
		 WHERE owner = ? COLLATE NOCASE AND topic = ?
		 ORDER BY name`,
		owner, topic)
	if err != nil {
		return nil, apperror.Storage("listing repositories by topic", fmt.Errorf("sqlite: %w", err))
	}
	defer rows.Close()

	repos := []model.TrackedRepository{}
	for rows.Next() {
		var r model.TrackedRepository
		var t sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &r.FullName, &r.HTMLURL, &r.Owner, &t); err != nil {
			return nil, apperror.Storage("listing repositories by topic", fmt.Errorf("sqlite: scanning row: %w", err))
		}
		if t.Valid {
			r.Topic = &t.String
		}
		repos = append(repos, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Storage("listing repositories by topic", fmt.Errorf("sqlite: iterating rows: %w", err))
	}
	return repos, nil
}

// ClearTopic nulls topic on every matching row of owner.
func (db *DB) ClearTopic(ctx context.Context, owner, topic string) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE gh_repositories SET topic = NULL WHERE owner = ? COLLATE NOCASE AND topic = ?`,
		owner, topic)
	if err != nil {
		return 0, apperror.Storage("deleting topic", fmt.Errorf("sqlite: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperror.Storage("deleting topic", fmt.Errorf("sqlite: rows affected: %w", err))
	}
	return n, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
