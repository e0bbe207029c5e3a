package main

import (
	"testing"

	"github.com/modwatch/citywatch/internal/eventlog"
)

func recAt(ms int64) eventlog.Record {
	return eventlog.NewRecord(ms, eventlog.CategoryInfo, false, "in_game", "in_game", "x")
}

func TestDisplayNewRecordsAdvancesHighWaterMark(t *testing.T) {
	records := []eventlog.Record{recAt(100), recAt(200), recAt(300)}

	got := displayNewRecords(records, 200)
	if got != 300 {
		t.Errorf("high-water mark = %d, want 300", got)
	}
}

func TestDisplayNewRecordsEmptyKeepsMark(t *testing.T) {
	if got := displayNewRecords(nil, 500); got != 500 {
		t.Errorf("high-water mark = %d, want 500", got)
	}
}

func TestDisplayNewRecordsResetsAfterClear(t *testing.T) {
	// The log was cleared: offsets start over below the previous mark.
	records := []eventlog.Record{recAt(10), recAt(20)}

	got := displayNewRecords(records, 5000)
	if got != 20 {
		t.Errorf("high-water mark = %d, want 20 after reset", got)
	}
}
