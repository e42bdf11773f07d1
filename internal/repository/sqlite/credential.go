package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/access-git/internal/apperror"
)

// PasswordHash returns the stored hash for name.
// Returns apperror.ErrNotFound if no row exists.
func (db *DB) PasswordHash(ctx context.Context, name string) (string, error) {
	var hash string
	err := db.conn.QueryRowContext(ctx,
		`SELECT hashed_password FROM gh_login WHERE name = ?`, name,
	).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperror.NotFound("password", name)
		}
		return "", apperror.Storage("reading password", fmt.Errorf("sqlite: %w", err))
	}
	return hash, nil
}

// SetPasswordHash creates or replaces the hash for name.
func (db *DB) SetPasswordHash(ctx context.Context, name, hash string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO gh_login (name, hashed_password) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET hashed_password = excluded.hashed_password`,
		name, hash)
	if err != nil {
		return apperror.Storage("saving password", fmt.Errorf("sqlite: %w", err))
	}
	return nil
}
