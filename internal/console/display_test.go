package console

import (
	"testing"

	"github.com/modwatch/citywatch/internal/eventlog"
)

func TestFormatRelMs(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "00:00.000"},
		{999, "00:00.999"},
		{1000, "00:01.000"},
		{61250, "01:01.250"},
		{3599999, "59:59.999"},
	}
	for _, tt := range tests {
		if got := formatRelMs(tt.ms); got != tt.want {
			t.Errorf("formatRelMs(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestCategoryIconErrorWins(t *testing.T) {
	rec := eventlog.NewRecord(0, eventlog.CategoryTransition, true, "in_game", "in_game", "invalid transition")
	if got := categoryIcon(rec); got != "❌" {
		t.Errorf("error record icon = %q, want error icon regardless of category", got)
	}
}

func TestCategoryIconKnownCategories(t *testing.T) {
	for _, cat := range []eventlog.Category{
		eventlog.CategorySystem, eventlog.CategoryAPI, eventlog.CategoryLifecycle,
		eventlog.CategoryTransition, eventlog.CategoryUserAction,
		eventlog.CategoryContext, eventlog.CategoryInfo,
	} {
		rec := eventlog.NewRecord(0, cat, false, "menu", "main_menu", "x")
		if got := categoryIcon(rec); got == "•" {
			t.Errorf("category %s fell through to the fallback icon", cat)
		}
	}
}
