package eventlog

import (
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		want     int
	}{
		{name: "explicit capacity", capacity: 50, want: 50},
		{name: "zero uses default", capacity: 0, want: DefaultCapacity},
		{name: "negative uses default", capacity: -5, want: DefaultCapacity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(tt.capacity)
			if l.Capacity() != tt.want {
				t.Errorf("capacity = %d, want %d", l.Capacity(), tt.want)
			}
			if l.Len() != 0 {
				t.Errorf("initial length = %d, want 0", l.Len())
			}
		})
	}
}

func TestLog_AppendEvictsFIFO(t *testing.T) {
	l := New(5)
	for i := 0; i < 12; i++ {
		l.Append(NewRecord(int64(i), CategoryInfo, false, "in_game", "in_game", fmt.Sprintf("event %d", i)))
	}

	if l.Len() != 5 {
		t.Fatalf("length = %d, want 5", l.Len())
	}

	got := l.All()
	for i, rec := range got {
		wantMs := int64(7 + i)
		if rec.RelativeMs != wantMs {
			t.Errorf("record %d: relative_ms = %d, want %d", i, rec.RelativeMs, wantMs)
		}
	}
}

func TestLog_LengthNeverExceedsCapacity(t *testing.T) {
	l := New(DefaultCapacity)
	for i := 0; i < DefaultCapacity*3; i++ {
		l.Append(NewRecord(int64(i), CategoryLifecycle, false, "city_loading", "unknown", "append storm"))
		if l.Len() > DefaultCapacity {
			t.Fatalf("length %d exceeded capacity %d after %d appends", l.Len(), DefaultCapacity, i+1)
		}
	}
	// Retains exactly the most recent window in original relative order.
	all := l.All()
	if all[0].RelativeMs != int64(DefaultCapacity*2) {
		t.Errorf("oldest retained record = %d, want %d", all[0].RelativeMs, DefaultCapacity*2)
	}
	if all[len(all)-1].RelativeMs != int64(DefaultCapacity*3-1) {
		t.Errorf("newest retained record = %d, want %d", all[len(all)-1].RelativeMs, DefaultCapacity*3-1)
	}
}

func TestLog_Recent(t *testing.T) {
	l := New(10)
	for i := 0; i < 6; i++ {
		l.Append(NewRecord(int64(i), CategoryTransition, false, "game_init", "unknown", "t"))
	}

	tests := []struct {
		name    string
		n       int
		wantLen int
		firstMs int64
	}{
		{name: "subset", n: 3, wantLen: 3, firstMs: 3},
		{name: "exact", n: 6, wantLen: 6, firstMs: 0},
		{name: "more than held", n: 20, wantLen: 6, firstMs: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.Recent(tt.n)
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			if got[0].RelativeMs != tt.firstMs {
				t.Errorf("first record = %d, want %d", got[0].RelativeMs, tt.firstMs)
			}
		})
	}

	if got := l.Recent(0); got != nil {
		t.Errorf("Recent(0) = %v, want nil", got)
	}
}

func TestLog_RecentDoesNotAliasInternalSlice(t *testing.T) {
	l := New(10)
	l.Append(NewRecord(1, CategoryInfo, false, "menu", "main_menu", "original"))

	got := l.Recent(1)
	got[0].Message = "mutated"

	if l.All()[0].Message != "original" {
		t.Error("mutating a Recent result leaked into the log")
	}
}

func TestLog_Clear(t *testing.T) {
	l := New(10)
	for i := 0; i < 4; i++ {
		l.Append(NewRecord(int64(i), CategoryError, true, "api_ready", "unknown", "boom"))
	}
	l.Clear()
	if l.Len() != 0 {
		t.Errorf("length after clear = %d, want 0", l.Len())
	}
}

func TestLog_Restore(t *testing.T) {
	l := New(3)
	records := make([]Record, 7)
	for i := range records {
		records[i] = NewRecord(int64(i), CategorySystem, false, "uninitialized", "unknown", "restored")
	}
	l.Restore(records)

	if l.Len() != 3 {
		t.Fatalf("length after restore = %d, want 3", l.Len())
	}
	if l.All()[0].RelativeMs != 4 {
		t.Errorf("oldest restored = %d, want 4", l.All()[0].RelativeMs)
	}
}
