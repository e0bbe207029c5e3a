// Package checks runs a functional checklist against the host's action
// surface: pause control, simulation speed, money grants, and the mod
// storage roundtrip. Each check restores what it touched so a run leaves the
// session as it found it.
package checks

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/modwatch/citywatch/internal/hooks"
)

// Result is the outcome of one named check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Runner executes the checklist.
type Runner struct {
	actions hooks.Actions
	logger  zerolog.Logger
}

// NewRunner builds a Runner over the given action surface.
func NewRunner(actions hooks.Actions, logger zerolog.Logger) *Runner {
	return &Runner{actions: actions, logger: logger}
}

// Run executes every check and returns one Result per check, in checklist
// order. A failing check never stops the rest of the list.
func (r *Runner) Run() []Result {
	checks := []struct {
		name string
		run  func() error
	}{
		{"pause_resume", r.checkPauseResume},
		{"simulation_speed", r.checkSimulationSpeed},
		{"money_grant", r.checkMoneyGrant},
		{"storage_roundtrip", r.checkStorageRoundtrip},
	}

	results := make([]Result, 0, len(checks))
	for _, c := range checks {
		res := Result{Name: c.name, Passed: true}
		if err := c.run(); err != nil {
			res.Passed = false
			res.Detail = err.Error()
			r.logger.Warn().Str("check", c.name).Err(err).Msg("host check failed")
		} else {
			r.logger.Debug().Str("check", c.name).Msg("host check passed")
		}
		results = append(results, res)
	}
	return results
}

func (r *Runner) checkPauseResume() error {
	original, err := r.actions.IsPaused()
	if err != nil {
		return fmt.Errorf("failed to read pause state: %w", err)
	}
	if err := r.actions.SetPaused(!original); err != nil {
		return fmt.Errorf("failed to toggle pause: %w", err)
	}
	toggled, err := r.actions.IsPaused()
	if err != nil {
		return fmt.Errorf("failed to read pause state after toggle: %w", err)
	}
	if toggled == original {
		return fmt.Errorf("pause state did not change after toggle")
	}
	if err := r.actions.SetPaused(original); err != nil {
		return fmt.Errorf("failed to restore pause state: %w", err)
	}
	return nil
}

func (r *Runner) checkSimulationSpeed() error {
	original, err := r.actions.SimulationSpeed()
	if err != nil {
		return fmt.Errorf("failed to read simulation speed: %w", err)
	}
	target := 2
	if original == 2 {
		target = 3
	}
	if err := r.actions.SetSimulationSpeed(target); err != nil {
		return fmt.Errorf("failed to set speed %d: %w", target, err)
	}
	got, err := r.actions.SimulationSpeed()
	if err != nil {
		return fmt.Errorf("failed to read speed after set: %w", err)
	}
	if got != target {
		return fmt.Errorf("speed is %d after setting %d", got, target)
	}
	if err := r.actions.SetSimulationSpeed(original); err != nil {
		return fmt.Errorf("failed to restore speed %d: %w", original, err)
	}
	return nil
}

func (r *Runner) checkMoneyGrant() error {
	const grant = 1000
	before, err := r.actions.Money()
	if err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}
	if err := r.actions.GrantMoney(grant); err != nil {
		return fmt.Errorf("failed to grant money: %w", err)
	}
	after, err := r.actions.Money()
	if err != nil {
		return fmt.Errorf("failed to read balance after grant: %w", err)
	}
	if after != before+grant {
		return fmt.Errorf("balance is %d after granting %d to %d", after, grant, before)
	}
	// Take the grant back.
	if err := r.actions.GrantMoney(-grant); err != nil {
		return fmt.Errorf("failed to revert grant: %w", err)
	}
	return nil
}

func (r *Runner) checkStorageRoundtrip() error {
	const key = "citywatch.check"
	const want = "roundtrip"
	if err := r.actions.StorageSet(key, want); err != nil {
		return fmt.Errorf("failed to write storage key: %w", err)
	}
	got, err := r.actions.StorageGet(key)
	if err != nil {
		return fmt.Errorf("failed to read storage key back: %w", err)
	}
	if got != want {
		return fmt.Errorf("storage returned %q, want %q", got, want)
	}
	return nil
}
