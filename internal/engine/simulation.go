// Package engine runs the tick scheduler: the fixed per-tick phase order
// over the world graph and every subsystem that mutates it.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"worldloom/internal/catalyst"
	"worldloom/internal/config"
	"worldloom/internal/lifecycle"
	"worldloom/internal/narrative"
	"worldloom/internal/pressure"
	"worldloom/internal/systems"
	"worldloom/internal/template"
	"worldloom/internal/world"
)

// Simulation owns one run. It is not safe for concurrent use.
type Simulation struct {
	domain Domain
	opts   Options
	logger *slog.Logger
	rec    Recorder

	rand      *rand.Rand
	graph     *world.Graph
	pressures *pressure.System
	templates *template.Engine
	catalysts *catalyst.System
	lifecycle *lifecycle.Manager
	systems   *systems.Runner
	narrative *narrative.Extractor

	runID string
	tick  int

	era        int
	eraEntity  string
	eraStarted int

	history []HistoryEvent
	events  []narrative.Event
}

func New(d Domain, opts Options, logger *slog.Logger) (*Simulation, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if opts.Ticks <= 0 {
		opts.Ticks = config.DefaultTicks
	}
	if opts.EpochLength <= 0 {
		opts.EpochLength = config.DefaultEpochLength
	}
	rec := opts.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}

	s := &Simulation{
		domain: d,
		opts:   opts,
		logger: logger,
		rec:    rec,
		rand:   rand.New(rand.NewSource(opts.Seed)),
		graph:  world.New(d.Schema),
		era:    -1,
		runID:  RunID(opts.Project, d.Name, opts.Seed, opts.Ticks),
	}

	var err error
	if s.pressures, err = pressure.NewSystem(logger, d.Pressures...); err != nil {
		return nil, fmt.Errorf("building pressures: %w", err)
	}
	s.templates, err = template.NewEngine(d.Templates, template.NewPlacer(opts.Seed), template.Options{
		Overshoot:         opts.Overshoot,
		PopulationTargets: opts.PopulationTargets,
		Parameters:        opts.Parameters,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("building templates: %w", err)
	}
	s.catalysts, err = catalyst.NewSystem(d.Actions, catalyst.Options{
		ActivityRates:    opts.ActivityRates,
		MaxSuccessChance: opts.MaxSuccessChance,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("building actions: %w", err)
	}
	if s.lifecycle, err = lifecycle.New(d.Schema, d.Links, logger); err != nil {
		return nil, fmt.Errorf("building lifecycle: %w", err)
	}

	selected, unknown := systems.Select(opts.Systems)
	for _, name := range unknown {
		logger.Warn("unknown system skipped", "system", name)
	}
	s.systems = systems.NewRunner(selected, logger)

	s.narrative = narrative.New(opts.Narrative, logger)
	s.narrative.SetSchema(d.Schema)
	s.graph.SetObserver(s.narrative)
	return s, nil
}

// RunID derives a stable run id from the inputs that determine a run.
func RunID(project, domain string, seed int64, ticks int) string {
	name := fmt.Sprintf("worldloom:%s:%s:%d:%d", project, domain, seed, ticks)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func (s *Simulation) RunID() string { return s.runID }
func (s *Simulation) Tick() int { return s.tick }
func (s *Simulation) Graph() *world.Graph { return s.graph }
func (s *Simulation) Pressures() *pressure.System { return s.pressures }
func (s *Simulation) History() []HistoryEvent { return s.history }
func (s *Simulation) Events() []narrative.Event { return s.events }

// Done reports whether every configured tick has run.
func (s *Simulation) Done() bool {
	return s.tick >= s.opts.Ticks
}

// Run steps until the configured tick count is reached. Cancellation is
// checked between ticks, so the graph is never left mid-commit.
func (s *Simulation) Run(ctx context.Context) (*Snapshot, error) {
	s.logger.Info("simulation started", "run", s.runID, "domain", s.domain.Name, "seed", s.opts.Seed, "ticks", s.opts.Ticks)
	for !s.Done() {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("simulation stopped", "tick", s.tick, "error", err)
			return s.Snapshot(), err
		}
		s.Step()
	}
	s.logger.Info("simulation finished",
		"run", s.runID,
		"entities", s.graph.EntityCount(),
		"relationships", s.graph.RelationshipCount(),
		"history", len(s.history),
		"narrative_events", len(s.events),
	)
	return s.Snapshot(), nil
}

// Step runs one tick in the fixed phase order and returns the narrative
// events it produced.
func (s *Simulation) Step() []narrative.Event {
	start := time.Now()
	s.tick++
	s.graph.SetTick(s.tick)
	s.narrative.StartTick(s.graph, s.tick, s.eraID())

	s.advanceEra()
	s.grow()
	s.act()

	decayed := s.lifecycle.Decay(s.graph)
	reinforced := s.lifecycle.Reinforce(s.graph)

	s.runSystems()

	culled := s.lifecycle.Cull(s.graph)

	s.occurrences()
	s.pressures.Update(s.graph)

	events := s.narrative.Flush()
	s.events = append(s.events, events...)

	for _, p := range s.pressures.Pressures() {
		s.rec.SetPressure(p.ID, p.Value)
	}
	for _, ev := range events {
		s.rec.CountNarrativeEvent(string(ev.Type))
	}
	s.rec.SetGraphSize(s.graph.EntityCount(), s.graph.ActiveRelationshipCount())
	s.rec.ObserveTick(time.Since(start))

	s.logger.Debug("tick complete",
		"tick", s.tick,
		"era", s.eraID(),
		"entities", s.graph.EntityCount(),
		"active_relationships", s.graph.ActiveRelationshipCount(),
		"decayed", decayed,
		"reinforced", reinforced,
		"culled", len(culled),
		"events", len(events),
	)
	return events
}

// grow runs tick templates, then epoch templates on epoch boundaries.
func (s *Simulation) grow() {
	env := template.Env{
		Graph:      s.graph,
		Pressures:  s.pressures,
		Rand:       s.rand,
		Tick:       s.tick,
		Era:        s.eraID(),
		EraWeights: s.currentEra().TemplateWeights,
	}
	results := s.templates.Run(env, template.TriggerTick)
	if s.tick%s.opts.EpochLength == 0 {
		s.logger.Debug("epoch boundary", "tick", s.tick, "epoch", s.epoch())
		results = append(results, s.templates.Run(env, template.TriggerEpoch)...)
	}
	for _, res := range results {
		if res.Err != nil {
			s.rec.CountCommit(string(SourceTemplate), false)
			continue
		}
		if !res.Applied() {
			continue
		}
		s.rec.CountCommit(string(SourceTemplate), true)
		s.record(SourceTemplate, res.TemplateID, res.Description, res.Committed)
	}
}

func (s *Simulation) act() {
	attempts := s.catalysts.Run(catalyst.Env{
		Graph:         s.graph,
		Pressures:     s.pressures,
		Rand:          s.rand,
		Tick:          s.tick,
		Era:           s.eraID(),
		ActionWeights: s.currentEra().ActionWeights,
	})
	for _, a := range attempts {
		if a.Err != nil {
			s.rec.CountCommit(string(SourceAction), false)
			continue
		}
		if !a.Success {
			s.history = append(s.history, HistoryEvent{
				Tick:        s.tick,
				Era:         s.eraID(),
				Source:      SourceAction,
				SourceID:    a.ActionID,
				Actor:       a.ActorID,
				Description: a.Description,
				Failed:      true,
			})
			continue
		}
		s.rec.CountCommit(string(SourceAction), true)
		s.record(SourceAction, a.ActionID, a.Description, a.Committed)
		last := &s.history[len(s.history)-1]
		last.Actor = a.ActorID
		last.EntitiesModified = a.Modified
	}
}

func (s *Simulation) runSystems() {
	results := s.systems.Run(&systems.Context{
		Graph:     s.graph,
		Pressures: s.pressures,
		Rand:      s.rand,
		Tick:      s.tick,
		Era:       s.eraID(),
		Vocab:     s.domain.Vocabulary,
		Tuning:    s.opts.Tuning,
	})
	for _, res := range results {
		if res.Err != nil {
			s.rec.CountCommit(string(SourceSystem), false)
			continue
		}
		s.rec.CountCommit(string(SourceSystem), true)
		s.record(SourceSystem, res.System, res.Description, res.Committed)
	}
}

func (s *Simulation) epoch() int {
	return s.tick / s.opts.EpochLength
}
