// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/autobrr/unlinkr/internal/buildinfo"
	"github.com/autobrr/unlinkr/internal/services/notifications"
)

var errNoNotificationTargets = errors.New("no notification targets configured: set notify = true and add notificationURLs or [[notifications]]")

func RunNotifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification utilities",
	}
	cmd.AddCommand(runNotifyTestCommand(), runNotifyEventsCommand())
	return cmd
}

func runNotifyTestCommand() *cobra.Command {
	var (
		configPath string
		message    string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Send a test message to every configured notification target",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			targets, err := cfg.NotificationTargets()
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				return errNoNotificationTargets
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			svc := notifications.NewService(targets, log.Logger)
			if err := svc.SendTest(ctx, "unlinkr test", message); err != nil {
				return err
			}
			cmd.Printf("Sent test notification to %d target(s)\n", len(targets))
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&message, "message", "Test notification from "+buildinfo.UserAgent, "Message body")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Give up after this long")
	return cmd
}

func runNotifyEventsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List the event types accepted by [[notifications]] events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, def := range notifications.EventDefinitions() {
				fmt.Fprintf(tw, "%s\t%s\n", def.Type, def.Description)
			}
			return tw.Flush()
		},
	}
}
