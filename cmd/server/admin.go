package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/access-git/internal/auth"
	"github.com/sakif/access-git/internal/cache"
	"github.com/sakif/access-git/internal/github"
	"github.com/sakif/access-git/internal/queue"
	"github.com/sakif/access-git/internal/server"
	"github.com/sakif/access-git/internal/service"
)

// newSetPasswordCmd stores the bcrypt hash of the site password. Without it
// every login answers "Site login is not configured correctly".
//
//	access-git set-password --password 's3cret'
//	echo 's3cret' | access-git set-password
func newSetPasswordCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Set the site password (reads stdin when --password is absent)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password given on --password or stdin")
				}
				password = strings.TrimRight(line, "\r\n")
			}

			store, err := server.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			// PAT validation is never used here, so no provider or queue.
			site := service.NewSiteAuthService(store, auth.NewPasswordService(), nil, nil, logger)
			if err := site.SetPassword(cmd.Context(), password); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Site password updated.")
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "new site password")
	return cmd
}

// newSyncTopicsCmd runs one topic sync from the command line, for cron jobs
// and first-time setup.
//
//	GITHUB_TOKEN=ghp_... access-git sync-topics --org octo
func newSyncTopicsCmd() *cobra.Command {
	var org, token string

	cmd := &cobra.Command{
		Use:   "sync-topics",
		Short: "Record unseen repositories of an organization with derived topics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if token == "" {
				token = os.Getenv("GITHUB_TOKEN")
			}
			if token == "" {
				return errors.New("a GitHub token is required (--token or GITHUB_TOKEN)")
			}

			store, err := server.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			gh, err := github.NewRESTProvider(cfg.GitHub.APIURL)
			if err != nil {
				return err
			}

			topics := service.NewTopicService(
				gh,
				store,
				queue.New(cfg.QueueConcurrency),
				cache.New[[]int64]("user-repos", cfg.CacheSize, cfg.CacheTTL),
				cfg.TopicsAllowedOrg,
				logger,
			)
			res, err := topics.Sync(cmd.Context(), token, org)
			if err != nil {
				logger.Error("topic sync failed", slog.String("org", org), slog.String("error", err.Error()))
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "organization to sync")
	cmd.Flags().StringVar(&token, "token", "", "GitHub token (defaults to $GITHUB_TOKEN)")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
