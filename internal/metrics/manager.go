// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/unlinkr/internal/database"
	"github.com/autobrr/unlinkr/internal/metrics/collector"
)

type Manager struct {
	registry        *prometheus.Registry
	reaperCollector *ReaperCollector
	Signal          *collector.SignalCollector
}

// NewManager builds a registry with runtime collectors, the engine stats and,
// when db is non-nil, the database write counters.
func NewManager(source StatsSource, db *database.DB) *Manager {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	reaperCollector := NewReaperCollector(source)
	registry.MustRegister(reaperCollector)

	if db != nil {
		registry.MustRegister(database.NewMetricsCollector(db))
	}

	log.Info().Bool("database", db != nil).Msg("Metrics manager initialized")

	return &Manager{
		registry:        registry,
		reaperCollector: reaperCollector,
		Signal:          collector.NewSignalCollector(registry),
	}
}

func (m *Manager) GetRegistry() *prometheus.Registry {
	return m.registry
}
