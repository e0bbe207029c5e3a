package probe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type captureSink struct {
	mu     sync.Mutex
	pushed []Context
}

func (c *captureSink) SetContext(ctx Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushed = append(c.pushed, ctx)
}

func (c *captureSink) all() []Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Context, len(c.pushed))
	copy(out, c.pushed)
	return out
}

func TestPollProbePushesOnlyChanges(t *testing.T) {
	var mu sync.Mutex
	answers := []Context{MainMenu, MainMenu, InGame, InGame}
	idx := 0
	query := func() (Context, error) {
		mu.Lock()
		defer mu.Unlock()
		a := answers[idx]
		if idx < len(answers)-1 {
			idx++
		}
		return a, nil
	}

	sink := &captureSink{}
	p := NewPollProbe(query, sink, time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = p.Run(ctx)

	pushed := sink.all()
	if len(pushed) != 2 {
		t.Fatalf("pushed %v, want exactly [main_menu in_game]", pushed)
	}
	if pushed[0] != MainMenu || pushed[1] != InGame {
		t.Errorf("pushed %v, want [main_menu in_game]", pushed)
	}
	if p.Current() != InGame {
		t.Errorf("Current() = %s, want in_game", p.Current())
	}
}

func TestPollProbeDegradesOnQueryError(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	query := func() (Context, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return InGame, nil
		}
		return "", errors.New("host gone")
	}

	sink := &captureSink{}
	p := NewPollProbe(query, sink, time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = p.Run(ctx)

	if p.Current() != Unknown {
		t.Errorf("Current() = %s, want unknown after query failures", p.Current())
	}
	pushed := sink.all()
	if len(pushed) < 2 || pushed[len(pushed)-1] != Unknown {
		t.Errorf("pushed %v, want a final degrade to unknown", pushed)
	}
}

func TestPollProbeInvalidContextDegrades(t *testing.T) {
	query := func() (Context, error) { return Context("photo_mode"), nil }
	sink := &captureSink{}
	p := NewPollProbe(query, sink, time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_ = p.Run(ctx)

	if p.Current() != Unknown {
		t.Errorf("Current() = %s, want unknown for invalid token", p.Current())
	}
}
