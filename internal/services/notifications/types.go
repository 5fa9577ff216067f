// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package notifications

import (
	"fmt"
	"strings"

	"github.com/autobrr/unlinkr/internal/reaper"
)

type EventType string

const (
	EventMediaCleanup       EventType = "media_cleanup"
	EventMediaCleanupFailed EventType = "media_cleanup_failed"
	EventDirectoryCleanup   EventType = "directory_cleanup"
)

type EventDefinition struct {
	Type        EventType `json:"type"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
}

var eventDefinitions = []EventDefinition{
	{Type: EventMediaCleanup, Label: "Media cleanup", Description: "Hardlinks or remote media were removed after a deletion."},
	{Type: EventMediaCleanupFailed, Label: "Media cleanup failed", Description: "A remote media file could not be removed."},
	{Type: EventDirectoryCleanup, Label: "Directory cleanup", Description: "Empty directories were pruned."},
}

var eventTypeIndex = func() map[string]int {
	idx := make(map[string]int, len(eventDefinitions))
	for i, def := range eventDefinitions {
		idx[string(def.Type)] = i
	}
	return idx
}()

// eventForTitle maps reaper notification titles onto event types.
var eventForTitle = map[string]EventType{
	reaper.TitleCleanup:       EventMediaCleanup,
	reaper.TitleCleanupFailed: EventMediaCleanupFailed,
	reaper.TitleDirCleanup:    EventDirectoryCleanup,
}

func EventDefinitions() []EventDefinition {
	out := make([]EventDefinition, len(eventDefinitions))
	copy(out, eventDefinitions)
	return out
}

func IsValidEventType(value string) bool {
	_, ok := eventTypeIndex[value]
	return ok
}

func NormalizeEventTypes(input []string) ([]string, error) {
	if len(input) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(input))
	for _, raw := range input {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		if !IsValidEventType(value) {
			return nil, fmt.Errorf("unknown event type: %s", value)
		}
		seen[value] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for _, def := range eventDefinitions {
		value := string(def.Type)
		if _, ok := seen[value]; ok {
			out = append(out, value)
		}
	}

	return out, nil
}
