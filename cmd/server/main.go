// Package main is the entry point for the access-git server and its admin
// commands.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in main() of the "main" package. The main
// package stays minimal:
//  1. Read configuration
//  2. Create dependencies (logger, store, GitHub provider)
//  3. Hand them to internal/server, or run a one-off admin task
//
// COMMANDS (spf13/cobra):
//
//	access-git               same as `access-git serve`
//	access-git serve         run the HTTP server
//	access-git set-password  store the site password hash
//	access-git sync-topics   record unseen repositories of an org with derived topics
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/access-git/internal/config"
)

func main() {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "access-git",
		Short:         "GitHub organization access dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newSetPasswordCmd())
	root.AddCommand(newSyncTopicsCmd())
	return root
}

// setup loads the configuration and builds the process logger from it.
// Configuration errors are printed before any logger exists.
func setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return config.Config{}, nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return config.Config{}, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// newLogger builds a text or JSON slog logger at the configured level.
//
// Log levels (from least to most severe): Debug → Info → Warn → Error.
func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	var lv slog.LevelVar
	lv.Set(level)

	opts := &slog.HandlerOptions{Level: &lv}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts)), nil
}
