package probe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// FileProbe watches a host-exported UI-state file. The host's presentation
// bridge writes the current screen token to the file; structural change
// notifications from the filesystem trigger re-evaluation. Bursty rewrites
// are debounced with a rate limiter so one screen change costs one
// re-evaluation.
type FileProbe struct {
	mu sync.RWMutex

	path    string
	sink    Sink
	logger  zerolog.Logger
	limiter *rate.Limiter

	current Context
}

// NewFileProbe creates a probe over the given state file path.
func NewFileProbe(path string, sink Sink, logger zerolog.Logger) *FileProbe {
	return &FileProbe{
		path:   path,
		sink:   sink,
		logger: logger,
		// At most 5 re-evaluations per second, with room for one burst.
		limiter: rate.NewLimiter(rate.Limit(5), 1),
		current: Unknown,
	}
}

// Run watches the state file until ctx is cancelled.
func (p *FileProbe) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory rather than the file: editors and the host bridge
	// replace the file atomically, which drops file-level watches.
	dir := filepath.Dir(p.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	p.evaluate()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name != p.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if err := p.limiter.Wait(ctx); err != nil {
				return err
			}
			p.evaluate()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Debug().Err(err).Msg("context probe watcher error")
		}
	}
}

// Current returns the most recently observed context.
func (p *FileProbe) Current() Context {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

func (p *FileProbe) evaluate() {
	next := p.read()

	p.mu.Lock()
	changed := next != p.current
	p.current = next
	p.mu.Unlock()

	if changed && p.sink != nil {
		p.sink.SetContext(next)
	}
}

func (p *FileProbe) read() Context {
	data, err := os.ReadFile(p.path)
	if err != nil {
		p.logger.Debug().Err(err).Str("path", p.path).Msg("context state file unreadable")
		return Unknown
	}
	return Parse(strings.TrimSpace(string(data)))
}
