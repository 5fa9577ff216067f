// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package database

import "github.com/prometheus/client_golang/prometheus"

type MetricsCollector struct {
	db              *DB
	writesDesc      *prometheus.Desc
	writeErrorsDesc *prometheus.Desc
	writeQueueDesc  *prometheus.Desc
}

func NewMetricsCollector(db *DB) *MetricsCollector {
	return &MetricsCollector{
		db: db,
		writesDesc: prometheus.NewDesc(
			"unlinkr_db_writes_total",
			"Number of write statements executed by the single writer",
			nil,
			nil,
		),
		writeErrorsDesc: prometheus.NewDesc(
			"unlinkr_db_write_errors_total",
			"Number of write statements that returned an error",
			nil,
			nil,
		),
		writeQueueDesc: prometheus.NewDesc(
			"unlinkr_db_write_queue_length",
			"Write statements waiting for the writer",
			nil,
			nil,
		),
	}
}

func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.writesDesc
	ch <- c.writeErrorsDesc
	ch <- c.writeQueueDesc
}

func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.writesDesc, prometheus.CounterValue, float64(c.db.writes.Load()))
	ch <- prometheus.MustNewConstMetric(c.writeErrorsDesc, prometheus.CounterValue, float64(c.db.writeErrors.Load()))
	ch <- prometheus.MustNewConstMetric(c.writeQueueDesc, prometheus.GaugeValue, float64(len(c.db.writeCh)))
}
