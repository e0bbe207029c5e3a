package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/modwatch/citywatch/internal/api"
	"github.com/modwatch/citywatch/internal/config"
)

var (
	cfgPath  string
	addrFlag string

	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "citywatch",
	Short: "Runtime lifecycle observer for a city-builder game host",
	Long: `citywatch attaches to a running game host and observes its runtime
lifecycle: state transitions, hook firings, user load/new-game intents, and
higher-level usage scenarios. Anomalies in hook cadence are detected and
logged; the diagnostic trail is kept in a bounded in-memory event log and
archived to SQLite.

Run the observer with 'citywatch run', then inspect it from another terminal
with 'status', 'tail', 'console', or 'export'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if addrFlag != "" {
			cfg.ListenAddr = addrFlag
		}

		level, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.TimeOnly,
		}).Level(level).With().Timestamp().Logger()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&addrFlag, "addr", "", "Observer API address (overrides config)")
}

// apiClient returns a client for the configured observer address.
func apiClient() *api.Client {
	return api.NewClient(cfg.ListenAddr)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
