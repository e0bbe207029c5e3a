package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/modwatch/citywatch/internal/api"
	"github.com/modwatch/citywatch/internal/feed"
	"github.com/modwatch/citywatch/internal/hooks"
	"github.com/modwatch/citywatch/internal/lifecycle"
	"github.com/modwatch/citywatch/internal/metrics"
	"github.com/modwatch/citywatch/internal/probe"
	"github.com/modwatch/citywatch/internal/sim"
	"github.com/modwatch/citywatch/internal/storage"
)

var (
	runSimulate  bool
	runStepDelay time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the lifecycle observer",
	Long: `Run the observer: restore the archived snapshot, serve the HTTP API,
and ingest host signals until interrupted.

Signal sources:
  --simulate            drive a scripted in-process host (demo/testing)
  feed_path config      decode a JSONL signal feed (file, or "-" for stdin)
  probe_state_path      watch a host-exported UI-state file for context changes

The snapshot is persisted on an interval and once more on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runObserver()
	},
}

func init() {
	runCmd.Flags().BoolVar(&runSimulate, "simulate", false, "Drive a scripted in-process host instead of attaching to a real one")
	runCmd.Flags().DurationVar(&runStepDelay, "step-delay", 500*time.Millisecond, "Delay between simulated session steps")
	rootCmd.AddCommand(runCmd)
}

func runObserver() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	registry := prometheus.NewRegistry()
	engine := lifecycle.New(lifecycle.Deps{
		Config: &lifecycle.Config{
			LogCapacity:            cfg.LogCapacity,
			PreGameDemandThreshold: cfg.PreGameDemandThreshold,
		},
		Logger:   logger,
		Observer: metrics.New(registry),
	})

	// A failed restore is a degraded start, not a fatal one.
	if persisted, err := store.LoadSnapshot(ctx, cfg.LogCapacity); err != nil {
		logger.Warn().Err(err).Msg("failed to restore archived snapshot")
	} else if persisted != nil {
		engine.Restore(persisted.Events, persisted.ValidTransitions, persisted.ErrorCount)
		logger.Info().
			Int("events", len(persisted.Events)).
			Time("saved_at", persisted.SavedAt).
			Msg("restored archived snapshot")
	}

	g, ctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.New(engine, store, registry, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("observer API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		runPersistLoop(ctx, store, engine, logger)
		return nil
	})

	if cfg.ProbeStatePath != "" {
		fileProbe := probe.NewFileProbe(cfg.ProbeStatePath, engine, logger)
		g.Go(func() error {
			if err := fileProbe.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if cfg.FeedPath != "" {
		g.Go(func() error {
			return runFeed(ctx, engine, logger)
		})
	}

	if runSimulate {
		if err := startSimulation(ctx, g, engine); err != nil {
			return err
		}
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("observer stopped")
	return nil
}

// runPersistLoop writes the snapshot on the configured interval, enforces
// retention, and performs one final save on shutdown.
func runPersistLoop(ctx context.Context, store *storage.Store, engine *lifecycle.Engine, logger zerolog.Logger) {
	ticker := time.NewTicker(cfg.PersistInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			persistSnapshot(flushCtx, store, engine, logger)
			cancel()
			return
		case <-ticker.C:
			persistSnapshot(ctx, store, engine, logger)
		}
	}
}

func persistSnapshot(ctx context.Context, store *storage.Store, engine *lifecycle.Engine, logger zerolog.Logger) {
	if err := store.SaveSnapshot(ctx, engine.Export()); err != nil {
		logger.Warn().Err(err).Msg("failed to persist snapshot")
		return
	}
	deleted, err := store.CleanupByLimit(ctx, cfg.RetentionMaxEvents, cfg.RetentionBatchSize)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to enforce event retention")
		return
	}
	if deleted > 0 {
		logger.Debug().Int("deleted", deleted).Msg("enforced event retention")
	}
}

func runFeed(ctx context.Context, engine *lifecycle.Engine, logger zerolog.Logger) error {
	input := os.Stdin
	if cfg.FeedPath != "-" {
		f, err := os.Open(cfg.FeedPath)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		input = f
	}

	stats, err := feed.NewReader(engine, logger).Run(ctx, input)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().
		Int("lines", stats.Lines).
		Int("applied", stats.Applied).
		Int("malformed", stats.Malformed).
		Msg("signal feed drained")
	return nil
}

// startSimulation attaches a scripted host and plays the demo session.
func startSimulation(ctx context.Context, g *errgroup.Group, engine *lifecycle.Engine) error {
	host := sim.NewHost("1.4.2")

	ready := hooks.DefaultReadyConfig()
	ready.MinAPIVersion = cfg.MinHostAPIVersion
	located, err := hooks.WaitReady(ctx, func() (hooks.Host, error) { return host, nil }, ready)
	if err != nil {
		return err
	}
	engine.MarkAPIReady(located.APIVersion())
	detach := hooks.Attach(located, engine)

	pollProbe := probe.NewPollProbe(func() (probe.Context, error) {
		raw, err := host.QueryContext()
		if err != nil {
			return probe.Unknown, err
		}
		return probe.Parse(raw), nil
	}, engine, cfg.ProbeInterval, logger)
	g.Go(func() error {
		if err := pollProbe.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	session := sim.NewSession(host, engine, logger)
	session.StepDelay = runStepDelay
	g.Go(func() error {
		defer detach()
		if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Info().Msg("simulated session finished")
		return nil
	})
	return nil
}
