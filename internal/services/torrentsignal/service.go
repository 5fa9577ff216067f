// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package torrentsignal removes qBittorrent torrents whose payload was deleted
// from a monitored download directory.
package torrentsignal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/avast/retry-go"
	"github.com/rs/zerolog"

	"github.com/autobrr/unlinkr/internal/metrics/collector"
	"github.com/autobrr/unlinkr/pkg/debounce"
	"github.com/autobrr/unlinkr/pkg/pathcmp"
)

// Client is the part of the qBittorrent API the service needs.
type Client interface {
	LoginCtx(ctx context.Context) error
	GetTorrentsCtx(ctx context.Context, o qbt.TorrentFilterOptions) ([]qbt.Torrent, error)
	DeleteTorrentsCtx(ctx context.Context, hashes []string, deleteFiles bool) error
}

type Config struct {
	Host      string
	Username  string
	Password  string
	BasicUser string
	BasicPass string
	// DeleteFiles asks qBittorrent to remove remaining payload files too.
	DeleteFiles bool
	// BatchWindow coalesces signals before querying qBittorrent.
	BatchWindow time.Duration
}

const (
	defaultBatchWindow = 2 * time.Second
	requestTimeout     = 30 * time.Second
)

var ErrNoHost = errors.New("qbittorrent host is required")

// NewClient builds a go-qbittorrent client from cfg.
func NewClient(cfg Config) (Client, error) {
	if cfg.Host == "" {
		return nil, ErrNoHost
	}
	return qbt.NewClient(qbt.Config{
		Host:      cfg.Host,
		Username:  cfg.Username,
		Password:  cfg.Password,
		BasicUser: cfg.BasicUser,
		BasicPass: cfg.BasicPass,
		Timeout:   int(requestTimeout / time.Second),
	}), nil
}

// Service consumes DownloadFileDeleted signals.
type Service struct {
	cfg    Config
	client Client
	log    zerolog.Logger
	exists func(string) bool

	metrics *collector.SignalCollector

	mu      sync.Mutex
	ctx     context.Context
	batcher *debounce.Batcher

	attempts uint
	delay    time.Duration
}

func NewService(cfg Config, client Client, logger zerolog.Logger) *Service {
	if cfg.BatchWindow <= 0 {
		cfg.BatchWindow = defaultBatchWindow
	}
	return &Service{
		cfg:      cfg,
		client:   client,
		log:      logger.With().Str("module", "torrentsignal").Logger(),
		exists:   pathExists,
		attempts: 3,
		delay:    time.Second,
	}
}

// WithMetrics records signal and request counters on m.
func (s *Service) WithMetrics(m *collector.SignalCollector) *Service {
	s.metrics = m
	return s
}

func pathExists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}

// Start logs in and begins accepting signals. Signals received before Start
// are dropped.
func (s *Service) Start(ctx context.Context) error {
	err := s.retry(ctx, func() error {
		err := s.client.LoginCtx(ctx)
		s.metrics.ObserveRequest("login", err)
		return err
	})
	if err != nil {
		return fmt.Errorf("login to qbittorrent: %w", err)
	}

	s.mu.Lock()
	s.ctx = ctx
	s.batcher = debounce.New(s.cfg.BatchWindow, func(paths []string) {
		s.process(s.context(), paths)
	})
	s.mu.Unlock()

	s.log.Info().Str("host", s.cfg.Host).Bool("deleteFiles", s.cfg.DeleteFiles).Msg("torrentsignal: connected to qbittorrent")
	return nil
}

// Stop flushes queued signals.
func (s *Service) Stop() {
	s.mu.Lock()
	b := s.batcher
	s.mu.Unlock()
	if b != nil {
		b.Stop()
	}
}

func (s *Service) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// DownloadFileDeleted records that src was removed. It never blocks on the
// download client.
func (s *Service) DownloadFileDeleted(src string) {
	s.mu.Lock()
	b := s.batcher
	s.mu.Unlock()
	if b == nil {
		s.log.Debug().Str("path", src).Msg("torrentsignal: not started, dropping signal")
		return
	}
	s.metrics.ObserveSignal()
	b.Add(filepath.Clean(src))
}

func (s *Service) process(ctx context.Context, paths []string) {
	if len(paths) == 0 {
		return
	}

	var torrents []qbt.Torrent
	err := s.retry(ctx, func() error {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		var err error
		torrents, err = s.client.GetTorrentsCtx(reqCtx, qbt.TorrentFilterOptions{})
		s.metrics.ObserveRequest("list", err)
		return err
	})
	if err != nil {
		s.log.Error().Err(err).Int("paths", len(paths)).Msg("torrentsignal: failed to list torrents")
		return
	}

	matches := s.matchTorrents(torrents, paths)
	if len(matches) == 0 {
		s.log.Debug().Strs("paths", paths).Msg("torrentsignal: no torrent owns the deleted paths")
		return
	}

	hashes := make([]string, 0, len(matches))
	for _, t := range matches {
		hashes = append(hashes, t.Hash)
	}

	err = s.retry(ctx, func() error {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		err := s.client.DeleteTorrentsCtx(reqCtx, hashes, s.cfg.DeleteFiles)
		s.metrics.ObserveRequest("delete", err)
		return err
	})
	if err != nil {
		s.log.Error().Err(err).Strs("hashes", hashes).Msg("torrentsignal: failed to delete torrents")
		return
	}
	s.metrics.ObserveRemoved(len(matches))

	for _, t := range matches {
		s.log.Info().Str("hash", t.Hash).Str("name", t.Name).Str("contentPath", t.ContentPath).Msg("torrentsignal: removed torrent")
	}
}

// matchTorrents returns the torrents whose whole payload is gone: the deleted
// path is the content path, contains it, or lies inside a content directory
// that no longer exists.
func (s *Service) matchTorrents(torrents []qbt.Torrent, paths []string) []qbt.Torrent {
	var out []qbt.Torrent
	seen := make(map[string]struct{})

	for _, t := range torrents {
		content := torrentContentPath(t)
		if content == "" {
			continue
		}
		for _, p := range paths {
			p = pathcmp.NormalizePath(p)
			matched := p == content || pathcmp.HasPathPrefix(content, p)
			if !matched && pathcmp.HasPathPrefix(p, content) {
				matched = !s.exists(filepath.FromSlash(content))
			}
			if !matched {
				continue
			}
			if _, ok := seen[t.Hash]; !ok {
				seen[t.Hash] = struct{}{}
				out = append(out, t)
			}
			break
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	return out
}

func torrentContentPath(t qbt.Torrent) string {
	if t.ContentPath != "" {
		return pathcmp.NormalizePath(t.ContentPath)
	}
	if t.SavePath == "" || t.Name == "" {
		return ""
	}
	return pathcmp.NormalizePath(pathcmp.Join(t.SavePath, t.Name))
}

func (s *Service) retry(ctx context.Context, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
	)
}
