package probe

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// QueryFunc asks the host for its current context. Implementations may fail
// transiently; failures degrade to Unknown.
type QueryFunc func() (Context, error)

// PollProbe re-evaluates a query on a fixed interval and pushes changes to
// the sink. It is the fallback mechanism for hosts with no change
// notification surface.
type PollProbe struct {
	mu sync.RWMutex

	query    QueryFunc
	sink     Sink
	interval time.Duration
	logger   zerolog.Logger

	current Context
}

// NewPollProbe creates a polling probe. Non-positive intervals fall back to
// one second.
func NewPollProbe(query QueryFunc, sink Sink, interval time.Duration, logger zerolog.Logger) *PollProbe {
	if interval <= 0 {
		interval = time.Second
	}
	return &PollProbe{
		query:    query,
		sink:     sink,
		interval: interval,
		logger:   logger,
		current:  Unknown,
	}
}

// Run polls until ctx is cancelled. Only changes are pushed to the sink.
func (p *PollProbe) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.evaluate()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.evaluate()
		}
	}
}

// Current returns the most recently observed context.
func (p *PollProbe) Current() Context {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

func (p *PollProbe) evaluate() {
	next, err := p.query()
	if err != nil {
		// Probe failure is not an anomaly: degrade to Unknown and keep going.
		p.logger.Debug().Err(err).Msg("context probe query failed")
		next = Unknown
	}
	if !next.Valid() {
		next = Unknown
	}

	p.mu.Lock()
	changed := next != p.current
	p.current = next
	p.mu.Unlock()

	if changed && p.sink != nil {
		p.sink.SetContext(next)
	}
}
