// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package collector

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SignalCollector counts download client work triggered by deletions.
type SignalCollector struct {
	SignalsTotal         prometheus.Counter
	RequestsTotal        *prometheus.CounterVec
	TorrentsRemovedTotal prometheus.Counter
}

func NewSignalCollector(r prometheus.Registerer) *SignalCollector {
	m := &SignalCollector{
		SignalsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "unlinkr",
			Subsystem: "torrentsignal",
			Name:      "signals_total",
			Help:      "Total number of deleted download paths reported to the download client",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unlinkr",
			Subsystem: "torrentsignal",
			Name:      "requests_total",
			Help:      "Total number of download client requests by operation and result",
		}, []string{"operation", "result"}),
		TorrentsRemovedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "unlinkr",
			Subsystem: "torrentsignal",
			Name:      "torrents_removed_total",
			Help:      "Total number of torrents removed because their payload was deleted",
		}),
	}

	r.MustRegister(m.SignalsTotal)
	r.MustRegister(m.RequestsTotal)
	r.MustRegister(m.TorrentsRemovedTotal)
	return m
}

// ObserveRequest records the outcome of one download client call. A nil
// collector is a no-op.
func (m *SignalCollector) ObserveRequest(operation string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.RequestsTotal.With(prometheus.Labels{"operation": operation, "result": result}).Inc()
}

func (m *SignalCollector) ObserveSignal() {
	if m == nil {
		return
	}
	m.SignalsTotal.Inc()
}

func (m *SignalCollector) ObserveRemoved(n int) {
	if m == nil {
		return
	}
	m.TorrentsRemovedTotal.Add(float64(n))
}
