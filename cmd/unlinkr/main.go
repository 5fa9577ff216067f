// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/autobrr/unlinkr/internal/buildinfo"
	"github.com/autobrr/unlinkr/internal/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlinkr",
		Short: "Hardlink-aware media cleanup",
		Long: `unlinkr watches download and library directories. When a file is deleted it
removes the file's other hardlinks, or for .strm placeholders the remote media
file they point at, after a short grace period.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.AddCommand(
		RunServeCommand(),
		RunScanCommand(),
		RunHistoryCommand(),
		RunNotifyCommand(),
		RunConfigCommand(),
		RunVersionCommand(),
	)
	return cmd
}

// addConfigFlag registers --config on cmd. Commands load the configuration
// themselves so each can be run and tested on its own.
func addConfigFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "config", "", "Path to config.toml or its directory (default: $XDG_CONFIG_HOME/unlinkr)")
}

func loadConfig(path string) (*config.AppConfig, error) {
	cfg, err := config.New(path)
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		return nil, err
	}
	return cfg, nil
}
