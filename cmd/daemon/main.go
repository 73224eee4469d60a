// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Command thesisgrey runs the literature-review session service.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ManuGH/thesisgrey/internal/config"
	xglog "github.com/ManuGH/thesisgrey/internal/log"
	"github.com/ManuGH/thesisgrey/internal/version"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "thesisgrey",
		Short:         "Literature-review session service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// safe defaults until the config is loaded
			xglog.Configure(xglog.Config{Level: "info", Service: "thesisgrey", Version: version.Version})
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (YAML)")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newVerifyCmd(opts),
		newStatsCmd(opts),
		newHealthcheckCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return root
}

// load reads the configuration and reconfigures logging from it.
func (o *rootOptions) load() (config.AppConfig, error) {
	cfg, err := config.NewLoader(o.configPath, version.Version).Load()
	if err != nil {
		return cfg, err
	}
	xglog.Configure(xglog.Config{Level: cfg.Log.Level, Service: cfg.Log.Service, Version: cfg.Version})
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger := xglog.WithComponent("daemon")
		logger.Error().Err(err).Str(xglog.FieldEvent, "command.failed").Msg("command failed")
		os.Exit(1)
	}
}
