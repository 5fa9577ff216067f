// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/autobrr/unlinkr/internal/buildinfo"
	"github.com/autobrr/unlinkr/internal/config"
	"github.com/autobrr/unlinkr/internal/database"
	"github.com/autobrr/unlinkr/internal/metrics"
	"github.com/autobrr/unlinkr/internal/models"
	"github.com/autobrr/unlinkr/internal/reaper"
	"github.com/autobrr/unlinkr/internal/services/notifications"
	"github.com/autobrr/unlinkr/internal/services/torrentsignal"
	"github.com/autobrr/unlinkr/internal/storage"
	"github.com/autobrr/unlinkr/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

func RunServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Watch the monitored directories and reconcile deletions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			logger, logCloser := cfg.SetupLogging()
			defer logCloser.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func serve(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) error {
	logger.Info().
		Str("version", buildinfo.Version).
		Str("userAgent", buildinfo.UserAgent).
		Str("config", cfg.ConfigPath()).
		Msg("Starting unlinkr")

	db, err := database.New(cfg.GetDatabasePath())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	history := models.NewTransferHistoryStore(db)

	targets, err := cfg.NotificationTargets()
	if err != nil {
		return err
	}
	notifier := notifications.NewService(targets, logger)
	// Deliveries queued during shutdown still go out.
	notifier.Start(context.WithoutCancel(ctx))

	registry := storage.NewRegistry()
	for _, sc := range cfg.SFTPConfigs() {
		backend, err := storage.DialSFTP(sc)
		if err != nil {
			logger.Warn().Err(err).Str("backend", sc.Name).Msg("storage: sftp backend unavailable, strm deletions on it will be skipped")
			continue
		}
		registry.Register(sc.Name, backend)
		logger.Info().Str("backend", sc.Name).Str("host", sc.Host).Msg("storage: sftp backend connected")
	}

	deps := reaper.Deps{
		Backends: registry,
		History:  history,
		Logger:   logger,
	}
	if notifier != nil {
		deps.Notifier = notifier
	}

	var signalSvc *torrentsignal.Service
	if tsCfg, ok := cfg.TorrentSignalConfig(); ok {
		client, err := torrentsignal.NewClient(tsCfg)
		if err != nil {
			return err
		}
		signalSvc = torrentsignal.NewService(tsCfg, client, logger)
		deps.Signal = signalSvc
	} else if cfg.Config.DeleteTorrents {
		logger.Warn().Msg("deleteTorrents is enabled but no [qbittorrent] host is configured")
	}

	engine := reaper.New(cfg.EngineConfig(logger), deps)

	var manager *metrics.Manager
	if cfg.Config.MetricsEnabled {
		manager = metrics.NewManager(engine, db)
	}

	if signalSvc != nil {
		if manager != nil {
			signalSvc.WithMetrics(manager.Signal)
		}
		// Signals flushed by Stop are processed after ctx is cancelled.
		if err := signalSvc.Start(context.WithoutCancel(ctx)); err != nil {
			logger.Warn().Err(err).Msg("torrentsignal: qbittorrent unavailable, torrents will not be removed")
		}
	}

	if err := engine.Start(ctx); err != nil {
		return err
	}

	w := watcher.New(watcher.Config{Roots: engine.Roots()}, engine, engine, logger)
	if err := w.Start(ctx); err != nil {
		engine.Shutdown()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if manager != nil {
		srv := metrics.NewMetricsServer(manager, cfg.Config.MetricsHost, cfg.Config.MetricsPort, cfg.Config.MetricsBasicAuthUsers)
		g.Go(srv.ListenAndServe)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	runErr := g.Wait()
	logger.Info().Msg("Shutting down")

	// Held renames become deletions, then the engine runs every pending task
	// before the sinks it reports to go away.
	if err := w.Stop(); err != nil {
		logger.Debug().Err(err).Msg("watcher: close failed")
	}
	engine.Shutdown()
	if signalSvc != nil {
		signalSvc.Stop()
	}
	notifier.Close()
	if err := registry.Close(); err != nil {
		logger.Warn().Err(err).Msg("storage: failed to close backends")
	}

	return runErr
}
