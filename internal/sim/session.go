package sim

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/modwatch/citywatch/internal/lifecycle"
	"github.com/modwatch/citywatch/internal/probe"
)

// Session drives a scripted play-through against an attached observer. Each
// step fires host hooks or moves the simulated UI, separated by StepDelay so
// the output is watchable when run interactively.
type Session struct {
	host   *Host
	engine *lifecycle.Engine
	logger zerolog.Logger

	// StepDelay is the pause between scripted steps. Zero runs the script
	// as fast as possible.
	StepDelay time.Duration
}

// NewSession builds a session over an already-attached host and engine.
func NewSession(host *Host, engine *lifecycle.Engine, logger zerolog.Logger) *Session {
	return &Session{host: host, engine: engine, logger: logger}
}

type step struct {
	name string
	run  func()
}

// Run plays the demo script: start at the main menu, load a save, reach
// gameplay, save under a new name, then load the original back from in-game.
// It exercises every hook, the correlator, and two scenario detections
// (load from menu, then in-game load of a different save).
func (s *Session) Run(ctx context.Context) error {
	steps := []step{
		{"main menu", func() {
			s.host.SetUIContext(probe.MainMenu)
			s.engine.SetContext(probe.MainMenu)
		}},
		{"user picks a save", func() {
			s.host.SetUIContext(probe.LoadSaveScreen)
			s.engine.SetContext(probe.LoadSaveScreen)
			s.engine.ObserveIntent(lifecycle.Intent{
				Kind: lifecycle.IntentLoad, Target: "Riverton", Context: probe.LoadSaveScreen,
			})
		}},
		{"city loads", func() { s.host.EmitCityLoad(0) }},
		{"load resolves", func() { s.host.EmitGameLoaded("Riverton") }},
		{"pre-game demand ticks", func() {
			s.host.EmitDemandChange(0)
			s.host.EmitDemandChange(0)
		}},
		{"game initializes", func() { s.host.EmitGameInit() }},
		{"map ready", func() {
			s.host.EmitMapReady()
			s.host.SetUIContext(probe.InGame)
			s.engine.SetContext(probe.InGame)
		}},
		{"player saves", func() { s.host.EmitGameSaved("Riverton Evening") }},
		{"in-game load of original save", func() {
			s.host.SetUIContext(probe.InGameMenu)
			s.engine.SetContext(probe.InGameMenu)
			// The host kicks off the reload before the intent report
			// arrives from the presentation surface.
			s.host.EmitCityLoad(0)
			s.engine.ObserveIntent(lifecycle.Intent{
				Kind: lifecycle.IntentLoad, Target: "Riverton", Context: probe.InGameMenu,
			})
			s.host.EmitGameLoaded("Riverton")
			s.host.EmitMapReady()
			s.host.SetUIContext(probe.InGame)
			s.engine.SetContext(probe.InGame)
		}},
	}

	for _, st := range steps {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.logger.Info().Str("step", st.name).Msg("simulated session step")
		st.run()
		if s.StepDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.StepDelay):
			}
		}
	}
	return nil
}
