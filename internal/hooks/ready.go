package hooks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// ReadyConfig controls the bounded retry/backoff used while waiting for the
// host registration API to come up.
type ReadyConfig struct {
	// MaxAttempts is the number of locate attempts before giving up (default: 10)
	MaxAttempts int
	// InitialBackoff is the delay after the first failed attempt (default: 250ms)
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between attempts (default: 5s)
	MaxBackoff time.Duration
	// BackoffMultiplier grows the delay between attempts (default: 2.0)
	BackoffMultiplier float64
	// MinAPIVersion, when set, rejects hosts whose API version is older (semver)
	MinAPIVersion string
}

// DefaultReadyConfig returns the default readiness handshake configuration.
func DefaultReadyConfig() *ReadyConfig {
	return &ReadyConfig{
		MaxAttempts:       10,
		InitialBackoff:    250 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// WaitReady resolves the host exactly once, retrying with exponential
// backoff while the registration API is not yet present. When the config
// names a minimum API version, an incompatible host is a terminal error,
// not a retry.
func WaitReady(ctx context.Context, locate func() (Host, error), cfg *ReadyConfig) (Host, error) {
	if cfg == nil {
		cfg = DefaultReadyConfig()
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 10
	}
	backoff := cfg.InitialBackoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	multiplier := cfg.BackoffMultiplier
	if multiplier < 1.0 {
		multiplier = 2.0
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		host, err := locate()
		if err == nil {
			if err := checkAPIVersion(host, cfg.MinAPIVersion); err != nil {
				return nil, err
			}
			return host, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for host: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = time.Duration(float64(backoff) * multiplier)
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
	return nil, fmt.Errorf("host not ready after %d attempts: %w", attempts, lastErr)
}

func checkAPIVersion(h Host, minVersion string) error {
	if minVersion == "" {
		return nil
	}
	got := canonicalVersion(h.APIVersion())
	want := canonicalVersion(minVersion)
	if !semver.IsValid(got) {
		return fmt.Errorf("host reported invalid API version %q", h.APIVersion())
	}
	if !semver.IsValid(want) {
		return fmt.Errorf("invalid minimum API version %q", minVersion)
	}
	if semver.Compare(got, want) < 0 {
		return fmt.Errorf("host API version %s is older than required %s", got, want)
	}
	return nil
}

func canonicalVersion(v string) string {
	if v == "" {
		return v
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
