package model

import (
	"sort"
	"strings"
)

// BuildingDirectoryEntry is one selectable building. Value and Label are always equal.
type BuildingDirectoryEntry struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// BuildingOf extracts the building from a room string such as "Abernethy Hall-Rm 0102".
// The building is everything before the last hyphen. ok is false when the room has no
// hyphen or either side of it is blank.
func BuildingOf(room string) (building string, ok bool) {
	idx := strings.LastIndex(room, "-")
	if idx < 0 {
		return "", false
	}
	building = strings.TrimSpace(room[:idx])
	if building == "" || strings.TrimSpace(room[idx+1:]) == "" {
		return "", false
	}
	return building, true
}

// BuildingDirectory derives the sorted, de-duplicated building list from room names.
func BuildingDirectory(rooms []string) []BuildingDirectoryEntry {
	seen := make(map[string]struct{}, len(rooms))
	names := make([]string, 0, len(rooms))
	for _, room := range rooms {
		b, ok := BuildingOf(room)
		if !ok {
			continue
		}
		if _, dup := seen[b]; dup {
			continue
		}
		seen[b] = struct{}{}
		names = append(names, b)
	}
	sort.Strings(names)

	entries := make([]BuildingDirectoryEntry, len(names))
	for i, n := range names {
		entries[i] = BuildingDirectoryEntry{Value: n, Label: n}
	}
	return entries
}
