// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package reaper

import (
	"fmt"
	"strings"
)

// Notification titles. Sinks may route on them.
const (
	TitleCleanup       = "Media cleanup"
	TitleCleanupFailed = "Media cleanup failed"
	TitleDirCleanup    = "Directory cleanup"
)

func (e *Engine) send(title string, lines []string) {
	if !e.cfg.Notify || e.notifier == nil {
		return
	}
	payload := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			payload = append(payload, line)
		}
	}
	if len(payload) == 0 {
		return
	}
	e.notifier.Send(title, strings.Join(payload, "\n"))
}

func line(label, value string) string {
	label = strings.TrimSpace(label)
	value = strings.TrimSpace(value)
	if label == "" || value == "" {
		return ""
	}
	return label + ": " + value
}

func (e *Engine) markerLine() string {
	if e.scheduler.Immediate() {
		return line("Mode", "immediate deletion complete")
	}
	return line("Mode", "delayed deletion complete")
}

func cleanupLines(c Cleanup) []string {
	var lines []string
	if c.HistoryCleared {
		lines = append(lines, line("History", "cleared"))
	}
	if c.SignalSent {
		lines = append(lines, line("Torrents", "removal requested"))
	}
	if n := len(c.Sidecars); n > 0 {
		lines = append(lines, line("Sidecars", fmt.Sprintf("%d removed", n)))
	}
	return lines
}

func (e *Engine) reportHardlink(res HardlinkResult) {
	if res.Aborted != "" || len(res.Deleted) == 0 {
		return
	}

	lines := []string{
		e.markerLine(),
		line("Source", res.Target),
	}
	if len(res.Deleted) == 1 {
		lines = append(lines, line("Hardlink", res.Deleted[0]))
	} else {
		lines = append(lines, line("Hardlinks", fmt.Sprintf("%d deleted", len(res.Deleted))))
	}
	if len(res.Failed) > 0 {
		lines = append(lines, line("Failed", fmt.Sprintf("%d", len(res.Failed))))
	}
	lines = append(lines, cleanupLines(res.Cleanup)...)
	e.send(TitleCleanup, lines)

	e.reportPruned(res.Cleanup.PrunedDirs, "")
}

// reportStrm notifies about a resolved placeholder. A failed lookup or delete
// on the backend is reported with the best remote path known.
func (e *Engine) reportStrm(res StrmResult, err error) {
	if res.DeleteFailed {
		target := res.MediaPath
		if target == "" {
			target = res.RemotePath
		}
		var reason string
		if err != nil {
			reason = err.Error()
		}
		e.send(TitleCleanupFailed, []string{
			line("STRM", res.Target),
			line("Remote", fmt.Sprintf("[%s] %s", res.Backend, target)),
			line("Error", reason),
		})
		return
	}
	if err != nil || res.MediaPath == "" {
		return
	}

	remote := fmt.Sprintf("[%s] %s", res.Backend, res.MediaPath)

	cleanup := res.RemoteCleanup
	cleanup.Sidecars = append(append([]string(nil), res.LocalCleanup.Sidecars...), res.RemoteCleanup.Sidecars...)
	lines := []string{
		e.markerLine(),
		line("STRM", res.Target),
		line("Remote", remote),
	}
	if !cleanup.HistoryCleared && e.cfg.DeleteHistory {
		lines = append(lines, line("History", "none found"))
	}
	lines = append(lines, cleanupLines(cleanup)...)
	e.send(TitleCleanup, lines)

	e.reportPruned(res.LocalCleanup.PrunedDirs, "")
	e.reportPruned(res.RemoteCleanup.PrunedDirs, res.Backend)
}

// reportPruned sends one notification per removed directory, deepest first.
func (e *Engine) reportPruned(dirs []string, backend string) {
	for _, dir := range dirs {
		if backend != "" {
			dir = fmt.Sprintf("[%s] %s", backend, dir)
		}
		e.send(TitleDirCleanup, []string{line("Directory", dir)})
	}
}
