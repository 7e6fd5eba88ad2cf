package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldloom/internal/config"
	"worldloom/internal/domain/frontier"
	"worldloom/internal/engine"
)

func tickCount(t *testing.T, r *Recorder) uint64 {
	t.Helper()
	families, err := r.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "worldloom_simulation_tick_duration_seconds" {
			return mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	t.Fatalf("tick histogram not registered")
	return 0
}

func TestRecorder(t *testing.T) {
	r := New()

	r.ObserveTick(3 * time.Millisecond)
	r.ObserveTick(time.Millisecond)
	r.SetPressure("conflict", 42)
	r.SetPressure("conflict", 17.5)
	r.SetGraphSize(12, 30)
	r.CountCommit("template", true)
	r.CountCommit("template", true)
	r.CountCommit("action", false)
	r.CountNarrativeEvent("coalescence")

	assert.Equal(t, uint64(2), tickCount(t, r))
	assert.Equal(t, 17.5, testutil.ToFloat64(r.Pressure.WithLabelValues("conflict")))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.Entities))
	assert.Equal(t, 30.0, testutil.ToFloat64(r.Relationships))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Commits.WithLabelValues("template", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Commits.WithLabelValues("action", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.NarrativeEvents.WithLabelValues("coalescence")))
}

func TestRecordersDoNotShareRegistries(t *testing.T) {
	a, b := New(), New()
	a.SetGraphSize(5, 5)

	assert.Equal(t, 5.0, testutil.ToFloat64(a.Entities))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Entities))
}

func TestHandler(t *testing.T) {
	r := New()
	r.SetPressure("scarcity", 3)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body), `worldloom_simulation_pressure{pressure="scarcity"} 3`), string(body))
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New().Serve(ctx, "127.0.0.1:0", nil) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestRecorderFollowsSimulation(t *testing.T) {
	d, err := frontier.New(nil)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Project = "metrics"
	cfg.Seed = 11
	cfg.Ticks = 15
	opts, err := engine.OptionsFromConfig(&cfg)
	require.NoError(t, err)

	r := New()
	opts.Recorder = r
	sim, err := engine.New(d, opts, nil)
	require.NoError(t, err)
	snap, err := sim.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(15), tickCount(t, r))
	assert.Equal(t, float64(snap.Metadata.EntityCount), testutil.ToFloat64(r.Entities))
	for id, value := range snap.Pressures {
		assert.InDelta(t, value, testutil.ToFloat64(r.Pressure.WithLabelValues(id)), 1e-9, id)
	}
}
