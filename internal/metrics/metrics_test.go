package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/modwatch/citywatch/internal/lifecycle"
)

func TestTransitionAcceptedMovesStateGauge(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.TransitionAccepted(lifecycle.StateAPIReady, lifecycle.StateCityLoading)
	m.TransitionAccepted(lifecycle.StateCityLoading, lifecycle.StateInGame)

	count := testutil.ToFloat64(m.transitionsAccepted.WithLabelValues("api_ready", "city_loading"))
	if count != 1 {
		t.Errorf("accepted counter = %v, want 1", count)
	}
	if got := testutil.ToFloat64(m.currentState.WithLabelValues("city_loading")); got != 0 {
		t.Errorf("city_loading gauge = %v, want 0 after leaving", got)
	}
	if got := testutil.ToFloat64(m.currentState.WithLabelValues("in_game")); got != 1 {
		t.Errorf("in_game gauge = %v, want 1", got)
	}
}

func TestRejectedAndMismatchCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.TransitionRejected(lifecycle.StateAPIReady, lifecycle.StateInGame)
	m.CorrelationMismatch()
	m.CorrelationMismatch()

	if got := testutil.ToFloat64(m.transitionsRejected.WithLabelValues("api_ready", "in_game")); got != 1 {
		t.Errorf("rejected counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.mismatches); got != 2 {
		t.Errorf("mismatch counter = %v, want 2", got)
	}
}

func TestHookFiredLabels(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.HookFired("map_ready")
	m.HookFired("map_ready")
	m.HookFired("game_saved")

	if got := testutil.ToFloat64(m.hookFirings.WithLabelValues("map_ready")); got != 2 {
		t.Errorf("map_ready firings = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.hookFirings.WithLabelValues("game_saved")); got != 1 {
		t.Errorf("game_saved firings = %v, want 1", got)
	}
}
