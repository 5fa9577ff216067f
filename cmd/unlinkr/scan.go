// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/autobrr/unlinkr/internal/reaper"
	"github.com/autobrr/unlinkr/pkg/hardlink"
)

type scanGroup struct {
	Inode string   `json:"inode" yaml:"inode"`
	Paths []string `json:"paths" yaml:"paths"`
}

type scanReport struct {
	Roots      []string    `json:"roots" yaml:"roots"`
	Files      int         `json:"files" yaml:"files"`
	Inodes     int         `json:"inodes" yaml:"inodes"`
	StatErrors int         `json:"stat_errors" yaml:"stat_errors"`
	Duration   string      `json:"duration" yaml:"duration"`
	Groups     []scanGroup `json:"groups" yaml:"groups"`
}

func RunScanCommand() *cobra.Command {
	var (
		configPath string
		format     string
		all        bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Index the monitored directories once and print hardlink groups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch format {
			case "text", "json", "yaml":
			default:
				return fmt.Errorf("unknown format %q: use text, json or yaml", format)
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			logger, logCloser := cfg.SetupLogging()
			defer logCloser.Close()

			ec := cfg.EngineConfig(logger)
			mappings := ec.StrmMappings
			if !ec.MonitorStrm {
				mappings = nil
			}
			roots := reaper.NewPathMapper(ec.HardlinkRoots, mappings).Roots()
			if len(roots) == 0 {
				return reaper.ErrNoRoots
			}

			report, err := buildScanReport(cmd.Context(), roots, all, logger)
			if err != nil {
				return err
			}
			return writeScanReport(cmd.OutOrStdout(), format, report)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json or yaml")
	cmd.Flags().BoolVar(&all, "all", false, "Include files without other hardlinks")
	return cmd
}

func buildScanReport(ctx context.Context, roots []string, all bool, logger zerolog.Logger) (scanReport, error) {
	idx, stats, err := reaper.BuildIndex(ctx, roots, time.Now(), logger)
	if err != nil {
		return scanReport{}, fmt.Errorf("build index: %w", err)
	}

	byInode := make(map[hardlink.FileID][]string)
	var order []hardlink.FileID
	for _, entry := range idx.Entries() {
		if _, ok := byInode[entry.Inode]; !ok {
			order = append(order, entry.Inode)
		}
		byInode[entry.Inode] = append(byInode[entry.Inode], entry.Path)
	}

	groups := make([]scanGroup, 0, len(order))
	for _, id := range order {
		paths := byInode[id]
		if len(paths) < 2 && !all {
			continue
		}
		sort.Strings(paths)
		groups = append(groups, scanGroup{Inode: id.String(), Paths: paths})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Paths[0] < groups[j].Paths[0] })

	return scanReport{
		Roots:      roots,
		Files:      stats.Files,
		Inodes:     stats.Inodes,
		StatErrors: stats.StatErrors,
		Duration:   stats.Duration.Round(time.Millisecond).String(),
		Groups:     groups,
	}, nil
}

func writeScanReport(w io.Writer, format string, report scanReport) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	}

	fmt.Fprintf(w, "Indexed %d files (%d inodes) under %d roots in %s\n", report.Files, report.Inodes, len(report.Roots), report.Duration)
	if report.StatErrors > 0 {
		fmt.Fprintf(w, "Stat errors: %d\n", report.StatErrors)
	}
	fmt.Fprintf(w, "Hardlink groups: %d\n", len(report.Groups))
	for _, g := range report.Groups {
		fmt.Fprintf(w, "\n%s\n", g.Inode)
		for _, p := range g.Paths {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
	return nil
}
