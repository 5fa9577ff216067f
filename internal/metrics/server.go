// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type MetricsServer struct {
	manager        *Manager
	server         *http.Server
	basicAuthUsers map[string]string
}

// NewMetricsServer serves /metrics on host:port. basicAuthUsers is a comma
// separated list of user:password pairs; malformed entries are skipped.
func NewMetricsServer(manager *Manager, host string, port int, basicAuthUsers string) *MetricsServer {
	users := parseBasicAuthUsers(basicAuthUsers)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	handler := promhttp.HandlerFor(manager.GetRegistry(), promhttp.HandlerOpts{
		EnableOpenMetrics: false,
	})

	r.Group(func(r chi.Router) {
		if len(users) > 0 {
			r.Use(BasicAuth("metrics", users))
		}
		r.Method(http.MethodGet, "/metrics", handler)
	})

	return &MetricsServer{
		manager:        manager,
		basicAuthUsers: users,
		server: &http.Server{
			Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func parseBasicAuthUsers(raw string) map[string]string {
	users := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		user, pass, ok := strings.Cut(entry, ":")
		if !ok || user == "" {
			log.Warn().Msg("Skipping malformed metrics basic auth entry")
			continue
		}
		users[user] = pass
	}
	return users
}

// BasicAuth rejects requests that do not carry one of the given credentials.
func BasicAuth(realm string, users map[string]string) func(http.Handler) http.Handler {
	return middleware.BasicAuth(realm, users)
}

func (s *MetricsServer) ListenAndServe() error {
	log.Info().Str("addr", s.server.Addr).Bool("basicAuth", len(s.basicAuthUsers) > 0).Msg("Starting metrics server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
