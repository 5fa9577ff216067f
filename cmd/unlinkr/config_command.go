// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

func RunConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and update the configuration file",
	}
	cmd.AddCommand(runConfigShowCommand(), runConfigPathCommand(), runConfigLogCommand())
	return cmd
}

func runConfigShowCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			out, err := toml.Marshal(cfg.Config.Redacted())
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", cfg.ConfigPath(), out)
			return err
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runConfigPathCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "path",
		Short: "Print the location of the configuration file and database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			cmd.Printf("config:   %s\n", cfg.ConfigPath())
			cmd.Printf("database: %s\n", cfg.GetDatabasePath())
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runConfigLogCommand() *cobra.Command {
	var (
		configPath string
		level      string
		path       string
		maxSize    int
		maxBackups int
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Update the log settings in the configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			current := cfg.Config
			if !cmd.Flags().Changed("level") {
				level = current.LogLevel
			}
			if !cmd.Flags().Changed("path") {
				path = current.LogPath
			}
			if !cmd.Flags().Changed("max-size") {
				maxSize = current.LogMaxSize
			}
			if !cmd.Flags().Changed("max-backups") {
				maxBackups = current.LogMaxBackups
			}

			switch strings.ToUpper(level) {
			case "TRACE", "DEBUG", "INFO", "WARN", "ERROR":
			default:
				return fmt.Errorf("invalid log level %q", level)
			}

			if err := cfg.UpdateLogSettings(level, path, maxSize, maxBackups); err != nil {
				return err
			}
			cmd.Printf("Updated log settings in %s\n", cfg.ConfigPath())
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&level, "level", "", "Log level: TRACE, DEBUG, INFO, WARN or ERROR")
	cmd.Flags().StringVar(&path, "path", "", "Log file path, empty for stdout only")
	cmd.Flags().IntVar(&maxSize, "max-size", 0, "Log file size in MB before rotation")
	cmd.Flags().IntVar(&maxBackups, "max-backups", 0, "Rotated log files to keep")
	return cmd
}
