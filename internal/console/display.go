package console

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/modwatch/citywatch/internal/eventlog"
)

// DisplayRecord formats and prints a single event record with color
func DisplayRecord(rec eventlog.Record) {
	icon := categoryIcon(rec)
	msgColor := messageColor(rec)

	// Relative session time, mm:ss.mmm
	stamp := formatRelMs(rec.RelativeMs)

	stateColor := color.New(color.FgGreen)
	catColor := color.New(color.FgMagenta)

	fmt.Printf("%s [%s] %s %s: %s\n",
		icon,
		stamp,
		stateColor.Sprint(rec.State),
		catColor.Sprint(string(rec.Category)),
		msgColor.Sprint(rec.Message),
	)
}

// categoryIcon returns the icon for a record's category
func categoryIcon(rec eventlog.Record) string {
	if rec.IsError {
		return "❌"
	}
	switch rec.Category {
	case eventlog.CategorySystem:
		return "⚙️"
	case eventlog.CategoryAPI:
		return "🔌"
	case eventlog.CategoryLifecycle:
		return "🏙️"
	case eventlog.CategoryTransition:
		return "➡️"
	case eventlog.CategoryUserAction:
		return "🖱️"
	case eventlog.CategoryContext:
		return "🪟"
	case eventlog.CategoryInfo:
		return "ℹ️"
	default:
		return "•"
	}
}

// messageColor returns the message color for a record
func messageColor(rec eventlog.Record) *color.Color {
	if rec.IsError {
		return color.New(color.FgRed)
	}
	switch rec.Category {
	case eventlog.CategoryTransition:
		return color.New(color.FgCyan)
	case eventlog.CategoryUserAction:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgWhite)
	}
}

// formatRelMs formats milliseconds since session start as mm:ss.mmm
func formatRelMs(ms int64) string {
	minutes := ms / 60000
	seconds := (ms % 60000) / 1000
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d.%03d", minutes, seconds, millis)
}
