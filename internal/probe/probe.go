// Package probe answers "what screen/mode is the host currently showing".
// The engine consumes it as a push-based interface; the concrete detection
// mechanism (polling a query, watching a state file) stays behind it.
package probe

import "context"

// Context is the coarse-grained screen/mode the host is presenting.
type Context string

const (
	MainMenu       Context = "main_menu"
	InGame         Context = "in_game"
	InGameMenu     Context = "in_game_menu"
	LoadSaveScreen Context = "load_save_screen"
	Unknown        Context = "unknown"
)

// Valid reports whether c is one of the known contexts.
func (c Context) Valid() bool {
	switch c {
	case MainMenu, InGame, InGameMenu, LoadSaveScreen, Unknown:
		return true
	}
	return false
}

// Parse maps a raw host token to a Context, degrading to Unknown for
// anything unrecognized. A probe that cannot determine the context is not
// an error condition; it simply disables context-dependent detection.
func Parse(raw string) Context {
	c := Context(raw)
	if !c.Valid() {
		return Unknown
	}
	return c
}

// Sink receives context changes. The lifecycle engine implements it.
type Sink interface {
	SetContext(c Context)
}

// Probe pushes context changes to a sink until its context is cancelled.
type Probe interface {
	Run(ctx context.Context) error
	Current() Context
}
