// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/autobrr/unlinkr/internal/reaper"
)

// StatsSource is satisfied by *reaper.Engine.
type StatsSource interface {
	Stats() reaper.Stats
}

type ReaperCollector struct {
	source StatsSource

	indexedPathsDesc       *prometheus.Desc
	indexedInodesDesc      *prometheus.Desc
	pendingTasksDesc       *prometheus.Desc
	immediateModeDesc      *prometheus.Desc
	eventsDesc             *prometheus.Desc
	tasksDesc              *prometheus.Desc
	hardlinksDesc          *prometheus.Desc
	remoteFilesDeletedDesc *prometheus.Desc
	sidecarsDeletedDesc    *prometheus.Desc
	dirsPrunedDesc         *prometheus.Desc
}

func NewReaperCollector(source StatsSource) *ReaperCollector {
	return &ReaperCollector{
		source: source,

		indexedPathsDesc: prometheus.NewDesc(
			"unlinkr_index_paths",
			"Number of paths in the file index",
			nil,
			nil,
		),
		indexedInodesDesc: prometheus.NewDesc(
			"unlinkr_index_inodes",
			"Number of distinct inodes in the file index",
			nil,
			nil,
		),
		pendingTasksDesc: prometheus.NewDesc(
			"unlinkr_pending_tasks",
			"Number of deletion tasks waiting for their grace period",
			nil,
			nil,
		),
		immediateModeDesc: prometheus.NewDesc(
			"unlinkr_immediate_mode",
			"Whether deletions are reconciled immediately (1) or after a delay (0)",
			nil,
			nil,
		),
		eventsDesc: prometheus.NewDesc(
			"unlinkr_events_total",
			"Total number of filesystem events handled",
			nil,
			nil,
		),
		tasksDesc: prometheus.NewDesc(
			"unlinkr_tasks_total",
			"Total number of deletion tasks by outcome",
			[]string{"outcome"},
			nil,
		),
		hardlinksDesc: prometheus.NewDesc(
			"unlinkr_hardlinks_total",
			"Total number of hardlinked copies removed or failed to remove",
			[]string{"result"},
			nil,
		),
		remoteFilesDeletedDesc: prometheus.NewDesc(
			"unlinkr_remote_files_deleted_total",
			"Total number of remote media files removed for deleted .strm placeholders",
			nil,
			nil,
		),
		sidecarsDeletedDesc: prometheus.NewDesc(
			"unlinkr_sidecars_deleted_total",
			"Total number of sidecar files removed",
			nil,
			nil,
		),
		dirsPrunedDesc: prometheus.NewDesc(
			"unlinkr_dirs_pruned_total",
			"Total number of empty directories removed",
			nil,
			nil,
		),
	}
}

func (c *ReaperCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.indexedPathsDesc
	ch <- c.indexedInodesDesc
	ch <- c.pendingTasksDesc
	ch <- c.immediateModeDesc
	ch <- c.eventsDesc
	ch <- c.tasksDesc
	ch <- c.hardlinksDesc
	ch <- c.remoteFilesDeletedDesc
	ch <- c.sidecarsDeletedDesc
	ch <- c.dirsPrunedDesc
}

func (c *ReaperCollector) Collect(ch chan<- prometheus.Metric) {
	// Without an engine every series is reported as zero so dashboards keep
	// their shape.
	var s reaper.Stats
	if c.source != nil {
		s = c.source.Stats()
	}

	immediate := 0.0
	if s.Immediate {
		immediate = 1
	}

	ch <- prometheus.MustNewConstMetric(c.indexedPathsDesc, prometheus.GaugeValue, float64(s.IndexedPaths))
	ch <- prometheus.MustNewConstMetric(c.indexedInodesDesc, prometheus.GaugeValue, float64(s.IndexedInodes))
	ch <- prometheus.MustNewConstMetric(c.pendingTasksDesc, prometheus.GaugeValue, float64(s.PendingTasks))
	ch <- prometheus.MustNewConstMetric(c.immediateModeDesc, prometheus.GaugeValue, immediate)
	ch <- prometheus.MustNewConstMetric(c.eventsDesc, prometheus.CounterValue, float64(s.Events))

	for outcome, v := range map[string]int64{
		"scheduled": s.TasksScheduled,
		"completed": s.TasksCompleted,
		"aborted":   s.TasksAborted,
		"failed":    s.TasksFailed,
	} {
		ch <- prometheus.MustNewConstMetric(c.tasksDesc, prometheus.CounterValue, float64(v), outcome)
	}

	ch <- prometheus.MustNewConstMetric(c.hardlinksDesc, prometheus.CounterValue, float64(s.HardlinksDeleted), "deleted")
	ch <- prometheus.MustNewConstMetric(c.hardlinksDesc, prometheus.CounterValue, float64(s.HardlinksFailed), "failed")
	ch <- prometheus.MustNewConstMetric(c.remoteFilesDeletedDesc, prometheus.CounterValue, float64(s.RemoteFilesDeleted))
	ch <- prometheus.MustNewConstMetric(c.sidecarsDeletedDesc, prometheus.CounterValue, float64(s.SidecarsDeleted))
	ch <- prometheus.MustNewConstMetric(c.dirsPrunedDesc, prometheus.CounterValue, float64(s.DirsPruned))
}
