package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/access-git/internal/github"
	"github.com/sakif/access-git/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	store, err := server.OpenStore(cmd.Context(), cfg)
	if err != nil {
		logger.Error("failed to open store", slog.String("error", err.Error()))
		return err
	}

	gh, err := github.NewRESTProvider(cfg.GitHub.APIURL)
	if err != nil {
		store.Close()
		logger.Error("failed to create GitHub provider", slog.String("error", err.Error()))
		return err
	}

	srv, err := server.New(cfg, logger, store, gh)
	if err != nil {
		store.Close()
		logger.Error("failed to create server", slog.String("error", err.Error()))
		return err
	}

	// Start blocks until SIGINT/SIGTERM and closes the store on the way out.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		return err
	}
	return nil
}
