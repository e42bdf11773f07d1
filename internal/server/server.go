// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware and
// routes, and decides:
//   - which URL patterns map to which handler functions
//   - which gate (site session or GitHub credential) guards which routes
//   - how the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go opens the store and builds the GitHub provider, then:
//
//	Server.New() creates:
//	  queue + caches → services → handlers → routes
//
// This is the "composition root" pattern: all dependencies are wired in one
// place, rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/access-git/internal/auth"
	"github.com/sakif/access-git/internal/cache"
	"github.com/sakif/access-git/internal/config"
	"github.com/sakif/access-git/internal/github"
	"github.com/sakif/access-git/internal/handler"
	"github.com/sakif/access-git/internal/middleware"
	"github.com/sakif/access-git/internal/model"
	"github.com/sakif/access-git/internal/queue"
	"github.com/sakif/access-git/internal/repository"
	"github.com/sakif/access-git/internal/repository/postgres"
	"github.com/sakif/access-git/internal/repository/sqlite"
	"github.com/sakif/access-git/internal/service"
)

// shutdownTimeout is how long in-flight requests get to finish.
const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store. When the server shuts down it closes the store
// so pooled connections are released.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  repository.Store
}

// OpenStore opens the metadata store selected by cfg.Database.Driver.
func OpenStore(ctx context.Context, cfg config.Config) (repository.Store, error) {
	// Each branch returns explicitly so a failed open never yields a
	// non-nil interface around a nil *DB.
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverSQLite:
		db, err := sqlite.New(cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// New wires every service and handler and builds the router. The server
// takes ownership of store.
func New(cfg config.Config, logger *slog.Logger, store repository.Store, gh github.Provider) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := s.setupRoutes(gh); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET  /login, /                      pages (site session)
//	GET  /static/*, /metrics            public
//	GET  /auth/github/{login,callback}  OAuth round trip (when configured)
//	POST /api/login, /api/logout        site password
//	GET  /api/auth/status               site session state
//	POST /api/auth/validate-pat         credential check
//	*    /api/...                       everything else needs a GitHub credential
//
// MIDDLEWARE ORDER MATTERS:
// RequestID first so every later log line carries it, Recoverer before the
// handlers so a panic still gets logged and measured as a 500.
func (s *Server) setupRoutes(gh github.Provider) error {
	cfg := s.config

	// === Shared infrastructure ===
	q := queue.New(cfg.QueueConcurrency)
	summaries := cache.New[*model.AccessSummary]("access-summary", cfg.CacheSize, cfg.CacheTTL)
	repoIDs := cache.New[[]int64]("user-repos", cfg.CacheSize, cfg.CacheTTL)
	teams := cache.New[[]model.Team]("teams", cfg.CacheSize, cfg.CacheTTL)

	tokens, err := auth.NewTokenService(cfg.Session.Secret, cfg.Session.TTL)
	if err != nil {
		return err
	}
	sessions, err := auth.NewSessionStore(tokens,
		[]byte(cfg.Session.Secret), []byte(cfg.Session.EncryptionKey),
		cfg.Session.TTL, cfg.Session.CookieSecure)
	if err != nil {
		return err
	}

	var oauth *auth.GitHubProvider
	if cfg.GitHub.OAuthEnabled() {
		oauth = auth.NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.CallbackURL)
	} else {
		s.logger.Info("GitHub OAuth not configured, sign-in is by pasted token only")
	}

	// === Services ===
	teamService := service.NewTeamService(gh, q, teams, s.logger)
	siteAuth := service.NewSiteAuthService(s.store, auth.NewPasswordService(), gh, q, s.logger)
	topics := service.NewTopicService(gh, s.store, q, repoIDs, cfg.TopicsAllowedOrg, s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(siteAuth, sessions, oauth, cfg.Session.CookieSecure, s.logger)
	pages, err := handler.NewPageHandler(cfg.TemplateDir, sessions, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}
	repos := handler.NewRepositoryHandler(
		service.NewContextService(gh, q, s.logger),
		service.NewRepositoryService(gh, q, s.logger),
		service.NewCollaboratorService(gh, q, s.logger),
		teamService,
		s.logger,
	)
	orgs := handler.NewOrganizationHandler(
		teamService,
		service.NewMemberService(gh, q),
		service.NewAccessService(gh, q, summaries, s.logger),
		s.logger,
	)
	topicHandler := handler.NewTopicHandler(topics, s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)
	s.router.Use(chimiddleware.Recoverer)

	// === Public ===
	fileServer := http.FileServer(http.Dir(cfg.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/healthz", s.handleHealth)

	if oauth != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	}

	// === Pages ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(sessions))
		r.Get("/login", pages.HandleLogin)
		r.Get("/", pages.HandleDashboard)
		r.Get("/repositories/*", pages.HandleDashboard)
		r.Get("/organizations/*", pages.HandleDashboard)
	})

	// === API ===
	s.router.Route("/api", func(r chi.Router) {
		if len(cfg.CORSAllowedOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   cfg.CORSAllowedOrigins,
				AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
				ExposedHeaders:   []string{handler.UnresolvedHeader},
				AllowCredentials: true,
				MaxAge:           300,
			}))
		}

		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/auth/status", authHandler.HandleStatus)
		r.Post("/auth/validate-pat", authHandler.HandleValidatePAT)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireCredential)

			r.Get("/contexts", repos.HandleContexts)
			r.Get("/repositories", repos.HandleList)
			r.Route("/repositories/{owner}/{repo}", func(r chi.Router) {
				r.Get("/details", repos.HandleDetails)
				r.Get("/activity-summary", repos.HandleActivity)
				r.Get("/pulls", repos.HandlePulls)
				r.Get("/commits", repos.HandleCommits)
				r.Get("/teams", repos.HandleTeams)
				r.Get("/collaborators", repos.HandleListCollaborators)
				r.Put("/collaborators", repos.HandleSetCollaborator)
				r.Delete("/collaborators/{username}", repos.HandleRemoveCollaborator)
				r.Get("/collaborators/{username}/permission", repos.HandlePermission)
			})

			r.Route("/organizations/{org}", func(r chi.Router) {
				r.Get("/teams", orgs.HandleTeams)
				r.Get("/teams/{slug}/repositories", orgs.HandleTeamRepositories)
				r.Put("/teams/{slug}/repositories/{owner}/{repo}", orgs.HandleSetTeamRepository)
				r.Delete("/teams/{slug}/repositories/{owner}/{repo}", orgs.HandleRemoveTeamRepository)
				r.Put("/teams/{slug}/members/{username}", orgs.HandleSetMembership)
				r.Delete("/teams/{slug}/members/{username}", orgs.HandleRemoveMembership)
				r.Get("/members", orgs.HandleMembers)
				r.Get("/members/{username}/access-summary", orgs.HandleAccessSummary)

				r.Get("/topics", topicHandler.HandleList)
				r.Post("/topics", topicHandler.HandleAssign)
				r.Post("/topics/sync", topicHandler.HandleSync)
				r.Delete("/topics/{topic}", topicHandler.HandleDelete)
				r.Get("/repositories", topicHandler.HandleRepositories)
			})
		})
	})

	return nil
}

// handleHealth reports whether the store answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// Close releases the store.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the store
func (s *Server) Start() error {
	defer s.Close()

	// WriteTimeout covers the slowest endpoint: an access summary over a
	// large organization fans out into hundreds of queued GitHub calls.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.Database.Driver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
