package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// Slots returns 48 half-hour markers, "off" inside each [from, to) slot
// range and "on" elsewhere.
func Slots(offRanges ...[2]int) []string {
	slots := make([]string, 48)
	for i := range slots {
		slots[i] = "on"
	}
	for _, r := range offRanges {
		for i := r[0]; i < r[1] && i < len(slots); i++ {
			slots[i] = "off"
		}
	}
	return slots
}

// Snapshot builds a schedule document for date with today's slots, and
// for tomorrowDate when tomorrow is non-nil.
func Snapshot(date string, today []string, tomorrowDate string, tomorrow []string) map[string]any {
	doc := map[string]any{
		"date":         date,
		"today_48half": today,
	}
	if tomorrow != nil {
		doc["tomorrow_date"] = tomorrowDate
		doc["tomorrow_48half"] = tomorrow
	}
	return doc
}

// WriteSnapshot writes doc as JSON into dir and returns the file path.
func WriteSnapshot(t testing.TB, dir string, doc any) string {
	t.Helper()

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	path := filepath.Join(dir, "schedule.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	return path
}
