package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/access-git/internal/apperror"
	"github.com/sakif/access-git/internal/auth"
	"github.com/sakif/access-git/internal/github"
	"github.com/sakif/access-git/internal/model"
	"github.com/sakif/access-git/internal/queue"
	"github.com/sakif/access-git/internal/repository"
)

// ErrSiteLoginNotConfigured means no site password row exists yet. Run
// `access-git set-password` to create one.
var ErrSiteLoginNotConfigured = errors.New("site login is not configured")

// SiteAuthService handles the two gates in front of the dashboard.
//
//	SiteAuthService ─┬─ CredentialRepository (site password hash)
//	                 ├─ PasswordService      (bcrypt)
//	                 └─ github.Provider      (PAT validation)
//
// The site password opens the pages; the GitHub credential is what every API
// call runs with. This service never stores the credential.
type SiteAuthService struct {
	credentials repository.CredentialRepository
	passwords   *auth.PasswordService
	github      github.Provider
	queue       *queue.Queue
	logger      *slog.Logger
}

// NewSiteAuthService creates a SiteAuthService with all required dependencies.
func NewSiteAuthService(
	credentials repository.CredentialRepository,
	passwords *auth.PasswordService,
	gh github.Provider,
	q *queue.Queue,
	logger *slog.Logger,
) *SiteAuthService {
	return &SiteAuthService{
		credentials: credentials,
		passwords:   passwords,
		github:      gh,
		queue:       q,
		logger:      logger,
	}
}

// Login checks password against the stored site password.
//
// ERRORS:
//   - empty password          → validation (400 "Password is required.")
//   - no stored password      → ErrSiteLoginNotConfigured (500)
//   - mismatch                → unauthorized (401 "Invalid password.")
//   - store failure           → storage error
func (s *SiteAuthService) Login(ctx context.Context, password string) error {
	if password == "" {
		return apperror.ValidationFailed("password", "Password is required.")
	}

	hash, err := s.credentials.PasswordHash(ctx, repository.SitePasswordName)
	if errors.Is(err, apperror.ErrNotFound) {
		s.logger.Error("site login attempted but no password is configured")
		return ErrSiteLoginNotConfigured
	}
	if err != nil {
		return err
	}

	if err := s.passwords.Verify(hash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Warn("site login rejected")
			return apperror.Unauthorized("Invalid password.")
		}
		return fmt.Errorf("service/auth: verifying site password: %w", err)
	}

	s.logger.Info("site login succeeded")
	return nil
}

// SetPassword hashes password and stores it as the site password, replacing
// any previous one.
func (s *SiteAuthService) SetPassword(ctx context.Context, password string) error {
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return apperror.ValidationFailed("password", err.Error())
	}
	if err := s.credentials.SetPasswordHash(ctx, repository.SitePasswordName, hash); err != nil {
		return err
	}
	s.logger.Info("site password updated")
	return nil
}

// ValidateCredential asks GitHub who token belongs to. Any failure, whatever
// GitHub answered, is reported as an invalid token.
func (s *SiteAuthService) ValidateCredential(ctx context.Context, token string) (*model.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperror.ValidationFailed("pat", "Personal Access Token is required")
	}

	client := s.github.Client(token)
	user, err := queue.Do(s.queue, ctx, func(ctx context.Context) (*model.User, error) {
		return client.AuthenticatedUser(ctx)
	})
	if err != nil {
		if cerr := contextDone(ctx, err); cerr != nil {
			return nil, cerr
		}
		s.logger.Info("credential rejected",
			slog.Int("ghStatus", apperror.StatusOf(err)),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unauthorized("Invalid Personal Access Token").WithCause(err)
	}
	return user, nil
}
