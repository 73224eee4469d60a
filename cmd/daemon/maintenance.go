// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/thesisgrey/internal/config"
	"github.com/ManuGH/thesisgrey/internal/domain/session/stats"
	"github.com/ManuGH/thesisgrey/internal/persistence/sqlite"
	"github.com/ManuGH/thesisgrey/internal/version"
)

// newMigrateCmd opens the store, which brings its schema up to date.
func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", cfg.Store.Backend)
			return err
		},
	}
}

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	var path, mode string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check SQLite database integrity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				cfg, err := opts.load()
				if err != nil {
					return err
				}
				if cfg.Store.Backend != config.BackendSQLite {
					return fmt.Errorf("verify needs the sqlite backend, configured %q", cfg.Store.Backend)
				}
				path = cfg.Store.Path
			}
			rep, err := sqlite.Verify(cmd.Context(), path, mode)
			if err != nil {
				return err
			}
			if !rep.OK() {
				problems := rep.Problems()
				for _, p := range problems {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), p)
				}
				return fmt.Errorf("%s: %d integrity problem(s)", path, len(problems))
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%s)\n", path, mode)
			return err
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "database file (defaults to the configured store)")
	cmd.Flags().StringVar(&mode, "mode", sqlite.ModeQuick, "quick, or full to include foreign key checks")
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "stats", Short: "Maintain per-user statistics"}

	var users []string
	recompute := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute statistics offline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(users) == 0 {
				return fmt.Errorf("at least one --user is required")
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			agg := stats.NewAggregator(st)
			for _, u := range users {
				row, err := agg.Recompute(cmd.Context(), u)
				if err != nil {
					return fmt.Errorf("recompute %s: %w", u, err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d sessions, %.1f%% complete, productivity %.1f\n",
					u, row.TotalSessions, row.CompletionRate, row.ProductivityScore)
			}
			return nil
		},
	}
	recompute.Flags().StringSliceVar(&users, "user", nil, "user id (repeatable)")
	cmd.AddCommand(recompute)
	return cmd
}

func newHealthcheckCmd() *cobra.Command {
	var (
		addr    string
		live    bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe a running daemon (for container HEALTHCHECK)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := "/readyz"
			if live {
				path = "/healthz"
			}
			client := http.Client{Timeout: timeout}
			resp, err := client.Get("http://" + addr + path)
			if err != nil {
				return fmt.Errorf("healthcheck failed: %w", err)
			}
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("healthcheck failed: %s", resp.Status)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "healthy (%s)\n", path)
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "daemon address")
	cmd.Flags().BoolVar(&live, "live", false, "probe liveness instead of readiness")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "probe timeout")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
}
