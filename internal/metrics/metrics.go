// Package metrics exports simulation measurements to Prometheus.
//
// A Recorder is handed to the engine through engine.Options and updated
// once per tick. Serve exposes the registry on /metrics for the lifetime
// of a run.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"worldloom/internal/engine"
)

const namespace = "worldloom"

const simulationSubsystem = "simulation"

var _ engine.Recorder = (*Recorder)(nil)

// Recorder holds the collectors for one simulation process.
type Recorder struct {
	registry *prometheus.Registry

	TickDuration    prometheus.Histogram
	Pressure        *prometheus.GaugeVec
	Entities        prometheus.Gauge
	Relationships   prometheus.Gauge
	Commits         *prometheus.CounterVec
	NarrativeEvents *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: simulationSubsystem,
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent executing one simulation tick",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}),
		Pressure: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: simulationSubsystem,
			Name:      "pressure",
			Help:      "Current value of each pressure",
		}, []string{"pressure"}),
		Entities: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: simulationSubsystem,
			Name:      "entities",
			Help:      "Entities in the world graph",
		}),
		Relationships: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: simulationSubsystem,
			Name:      "relationships",
			Help:      "Active relationships in the world graph",
		}),
		Commits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: simulationSubsystem,
			Name:      "commits_total",
			Help:      "Graph mutations by source and result",
		}, []string{"source", "result"}),
		NarrativeEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: simulationSubsystem,
			Name:      "narrative_events_total",
			Help:      "Narrative events extracted by type",
		}, []string{"type"}),
	}
}

func (r *Recorder) ObserveTick(d time.Duration) {
	r.TickDuration.Observe(d.Seconds())
}

func (r *Recorder) SetPressure(id string, value float64) {
	r.Pressure.WithLabelValues(id).Set(value)
}

func (r *Recorder) SetGraphSize(entities, relationships int) {
	r.Entities.Set(float64(entities))
	r.Relationships.Set(float64(relationships))
}

func (r *Recorder) CountCommit(source string, ok bool) {
	result := "applied"
	if !ok {
		result = "failed"
	}
	r.Commits.WithLabelValues(source, result).Inc()
}

func (r *Recorder) CountNarrativeEvent(eventType string) {
	r.NarrativeEvents.WithLabelValues(eventType).Inc()
}

// Registry exposes the underlying registry for gathering in tests and tools.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Serve listens on addr until ctx is cancelled. It returns nil after a
// clean shutdown.
func (r *Recorder) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("metrics listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving metrics: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down metrics: %w", err)
		}
		return nil
	}
}
