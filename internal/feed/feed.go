// Package feed decodes a JSONL stream of host events into typed engine
// calls. One JSON object per line; the "type" field selects the shape.
// Malformed or out-of-range lines are counted and logged, never fatal: a
// broken producer must not take the observer down with it.
package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/modwatch/citywatch/internal/hooks"
	"github.com/modwatch/citywatch/internal/lifecycle"
	"github.com/modwatch/citywatch/internal/probe"
)

// Consumer is the slice of the engine the feed drives.
type Consumer interface {
	MarkAPIReady(apiVersion string)
	HandleSignal(sig hooks.Signal)
	ObserveIntent(in lifecycle.Intent)
	SetContext(c probe.Context)
	ModsReloaded()
}

// line is the union of every accepted line shape; Type selects which fields
// are meaningful.
type line struct {
	Type string `json:"type"`

	// type=signal
	Hook     string `json:"hook,omitempty"`
	Code     int    `json:"code,omitempty"`
	Name     string `json:"name,omitempty"`
	PopCount int    `json:"pop_count,omitempty"`

	// type=intent
	Kind   string `json:"kind,omitempty"`
	Target string `json:"target,omitempty"`

	// type=intent and type=context
	Context string `json:"context,omitempty"`

	// type=api_ready
	Version string `json:"version,omitempty"`
}

// Stats reports what a feed run consumed.
type Stats struct {
	Lines     int
	Applied   int
	Malformed int
}

// Reader consumes one JSONL stream.
type Reader struct {
	consumer Consumer
	logger   zerolog.Logger
}

// NewReader builds a Reader feeding the given consumer.
func NewReader(consumer Consumer, logger zerolog.Logger) *Reader {
	return &Reader{consumer: consumer, logger: logger}
}

// Run decodes lines from r until EOF or context cancellation.
func (f *Reader) Run(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		stats.Lines++
		if err := f.apply(raw); err != nil {
			stats.Malformed++
			f.logger.Warn().Err(err).Int("line", stats.Lines).Msg("skipping malformed feed line")
			continue
		}
		stats.Applied++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read feed: %w", err)
	}
	return stats, nil
}

func (f *Reader) apply(raw []byte) error {
	var ln line
	if err := json.Unmarshal(raw, &ln); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	switch ln.Type {
	case "signal":
		sig, err := decodeSignal(ln)
		if err != nil {
			return err
		}
		f.consumer.HandleSignal(sig)

	case "intent":
		switch ln.Kind {
		case lifecycle.IntentLoad, lifecycle.IntentNewGame:
		default:
			return fmt.Errorf("unknown intent kind %q", ln.Kind)
		}
		f.consumer.ObserveIntent(lifecycle.Intent{
			Kind:    ln.Kind,
			Target:  ln.Target,
			Context: probe.Parse(ln.Context),
		})

	case "context":
		f.consumer.SetContext(probe.Parse(ln.Context))

	case "api_ready":
		f.consumer.MarkAPIReady(ln.Version)

	case "mods_reloaded":
		f.consumer.ModsReloaded()

	default:
		return fmt.Errorf("unknown line type %q", ln.Type)
	}
	return nil
}

func decodeSignal(ln line) (hooks.Signal, error) {
	switch hooks.Kind(ln.Hook) {
	case hooks.KindGameInitialized:
		return hooks.GameInitialized{}, nil
	case hooks.KindCityLoaded:
		return hooks.CityLoaded{Code: ln.Code}, nil
	case hooks.KindMapReady:
		return hooks.MapReady{}, nil
	case hooks.KindGameLoaded:
		if ln.Name == "" {
			return nil, fmt.Errorf("game_loaded signal missing name")
		}
		return hooks.GameLoaded{Name: ln.Name}, nil
	case hooks.KindGameSaved:
		if ln.Name == "" {
			return nil, fmt.Errorf("game_saved signal missing name")
		}
		return hooks.GameSaved{Name: ln.Name}, nil
	case hooks.KindDemandChanged:
		if ln.PopCount < 0 {
			return nil, fmt.Errorf("demand_changed signal with negative population %d", ln.PopCount)
		}
		return hooks.DemandChanged{PopCount: ln.PopCount}, nil
	default:
		return nil, fmt.Errorf("unknown hook %q", ln.Hook)
	}
}
