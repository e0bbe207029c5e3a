package feed

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/modwatch/citywatch/internal/hooks"
	"github.com/modwatch/citywatch/internal/lifecycle"
	"github.com/modwatch/citywatch/internal/probe"
)

type recordingConsumer struct {
	apiVersions []string
	signals     []hooks.Signal
	intents     []lifecycle.Intent
	contexts    []probe.Context
	reloads     int
}

func (r *recordingConsumer) MarkAPIReady(v string) { r.apiVersions = append(r.apiVersions, v) }

func (r *recordingConsumer) HandleSignal(sig hooks.Signal) { r.signals = append(r.signals, sig) }

func (r *recordingConsumer) ObserveIntent(in lifecycle.Intent) { r.intents = append(r.intents, in) }

func (r *recordingConsumer) SetContext(c probe.Context) { r.contexts = append(r.contexts, c) }

func (r *recordingConsumer) ModsReloaded() { r.reloads++ }

func runFeed(t *testing.T, input string) (*recordingConsumer, Stats) {
	t.Helper()
	consumer := &recordingConsumer{}
	reader := NewReader(consumer, zerolog.Nop())
	stats, err := reader.Run(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	return consumer, stats
}

func TestDecodesFullSession(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"api_ready","version":"1.2.0"}`,
		`{"type":"context","context":"main_menu"}`,
		`{"type":"intent","kind":"load","target":"Riverton","context":"main_menu"}`,
		`{"type":"signal","hook":"city_loaded","code":0}`,
		`{"type":"signal","hook":"game_loaded","name":"Riverton"}`,
		`{"type":"signal","hook":"game_initialized"}`,
		`{"type":"signal","hook":"map_ready"}`,
		`{"type":"signal","hook":"demand_changed","pop_count":1200}`,
		`{"type":"signal","hook":"game_saved","name":"Riverton Evening"}`,
		`{"type":"mods_reloaded"}`,
	}, "\n")

	consumer, stats := runFeed(t, input)

	if stats.Malformed != 0 {
		t.Errorf("malformed = %d, want 0", stats.Malformed)
	}
	if stats.Applied != 10 {
		t.Errorf("applied = %d, want 10", stats.Applied)
	}
	if len(consumer.apiVersions) != 1 || consumer.apiVersions[0] != "1.2.0" {
		t.Errorf("api versions = %v", consumer.apiVersions)
	}
	if len(consumer.signals) != 6 {
		t.Fatalf("signals = %d, want 6", len(consumer.signals))
	}
	loaded, ok := consumer.signals[1].(hooks.GameLoaded)
	if !ok || loaded.Name != "Riverton" {
		t.Errorf("signal[1] = %#v, want GameLoaded{Riverton}", consumer.signals[1])
	}
	if len(consumer.intents) != 1 || consumer.intents[0].Context != probe.MainMenu {
		t.Errorf("intents = %+v", consumer.intents)
	}
	if consumer.reloads != 1 {
		t.Errorf("reloads = %d, want 1", consumer.reloads)
	}
}

func TestMalformedLinesAreSkipped(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"signal","hook":"map_ready"}`,
		`{not json`,
		`{"type":"warp_drive"}`,
		`{"type":"signal","hook":"teleport"}`,
		`{"type":"signal","hook":"game_loaded"}`,
		`{"type":"intent","kind":"quit"}`,
		`{"type":"signal","hook":"demand_changed","pop_count":-5}`,
		`{"type":"context","context":"in_game"}`,
	}, "\n")

	consumer, stats := runFeed(t, input)

	if stats.Lines != 8 {
		t.Errorf("lines = %d, want 8", stats.Lines)
	}
	if stats.Malformed != 6 {
		t.Errorf("malformed = %d, want 6", stats.Malformed)
	}
	if stats.Applied != 2 {
		t.Errorf("applied = %d, want 2", stats.Applied)
	}
	if len(consumer.signals) != 1 {
		t.Errorf("signals = %d, want only map_ready", len(consumer.signals))
	}
	if len(consumer.contexts) != 1 || consumer.contexts[0] != probe.InGame {
		t.Errorf("contexts = %v", consumer.contexts)
	}
}

func TestUnknownContextDegradesToUnknown(t *testing.T) {
	consumer, stats := runFeed(t, `{"type":"context","context":"photo_mode"}`)

	if stats.Malformed != 0 {
		t.Errorf("unknown context should degrade, not fail (malformed = %d)", stats.Malformed)
	}
	if len(consumer.contexts) != 1 || consumer.contexts[0] != probe.Unknown {
		t.Errorf("contexts = %v, want [unknown]", consumer.contexts)
	}
}

func TestEmptyLinesIgnored(t *testing.T) {
	_, stats := runFeed(t, "\n\n"+`{"type":"mods_reloaded"}`+"\n\n")
	if stats.Lines != 1 || stats.Applied != 1 {
		t.Errorf("stats = %+v, want exactly one counted line", stats)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reader := NewReader(&recordingConsumer{}, zerolog.Nop())
	if _, err := reader.Run(ctx, strings.NewReader(`{"type":"mods_reloaded"}`)); err == nil {
		t.Fatal("expected context error")
	}
}
