package pressure

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"

	"worldloom/internal/world"
)

type Mode string

const (
	Enables   Mode = "enables"
	Amplifies Mode = "amplifies"
)

// Affect ties a pressure to a template or action id.
type Affect struct {
	Target    string
	Mode      Mode
	Threshold float64
	Factor    float64
}

type Equilibrium struct {
	ExpectedRange [2]float64
}

type Contract struct {
	Sources     []string
	Sinks       []string
	Affects     []Affect
	Equilibrium Equilibrium
}

// GrowthFunc computes the per-tick growth from ratios of graph state.
type GrowthFunc func(g *world.Graph) float64

// Occurrence makes a pressure spawn an occurrence entity while it stays high.
type Occurrence struct {
	Subtype      string
	Name         string
	Threshold    float64
	EndBelow     float64
	InvolveKind  string
	InvolveCount int
}

type Pressure struct {
	ID           string
	Name         string
	Value        float64
	Decay        float64
	RestingPoint float64
	Max          float64
	Growth       GrowthFunc
	Contract     Contract
	Occurrence   *Occurrence
}

var ErrInvalidPressure = errors.New("invalid pressure")

// Step applies one tick of the decay law:
// value - decay*(value-resting)/100 + growth, floored at 0 and capped at max
// when max is positive. Non-finite growth counts as 0.
func Step(value, decay, resting, max, growth float64) float64 {
	if math.IsNaN(growth) || math.IsInf(growth, 0) {
		growth = 0
	}
	next := value - decay*(value-resting)/100 + growth
	if math.IsNaN(next) || next < 0 {
		next = 0
	}
	if max > 0 && next > max {
		next = max
	}
	return next
}

// Ratio returns num/den, or 0 when den is not positive.
func Ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}

// System owns the pressures of one run, updated in registration order.
type System struct {
	pressures []*Pressure
	index     map[string]*Pressure
	logger    *slog.Logger
}

func NewSystem(logger *slog.Logger, pressures ...Pressure) (*System, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &System{index: make(map[string]*Pressure), logger: logger}
	for i := range pressures {
		p := pressures[i]
		if p.ID == "" {
			return nil, fmt.Errorf("pressure %d: %w: id is required", i, ErrInvalidPressure)
		}
		if _, dup := s.index[p.ID]; dup {
			return nil, fmt.Errorf("pressure %s: %w: duplicate id", p.ID, ErrInvalidPressure)
		}
		if p.Decay < 0 || p.Decay > 100 {
			return nil, fmt.Errorf("pressure %s: %w: decay %g outside [0, 100]", p.ID, ErrInvalidPressure, p.Decay)
		}
		if p.Value < 0 || p.RestingPoint < 0 {
			return nil, fmt.Errorf("pressure %s: %w: negative value", p.ID, ErrInvalidPressure)
		}
		if p.Name == "" {
			p.Name = p.ID
		}
		s.pressures = append(s.pressures, &p)
		s.index[p.ID] = &p
	}
	return s, nil
}

// Update advances every pressure by one tick.
func (s *System) Update(g *world.Graph) {
	for _, p := range s.pressures {
		growth := s.growth(p, g)
		p.Value = Step(p.Value, p.Decay, p.RestingPoint, p.Max, growth)
	}
}

func (s *System) growth(p *Pressure, g *world.Graph) (growth float64) {
	if p.Growth == nil {
		return 0
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("pressure growth panicked", "pressure", p.ID, "error", r)
			growth = 0
		}
	}()
	growth = p.Growth(g)
	if math.IsNaN(growth) || math.IsInf(growth, 0) {
		s.logger.Warn("pressure growth not finite", "pressure", p.ID, "growth", growth)
		return 0
	}
	return growth
}

func (s *System) Value(id string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	p, ok := s.index[id]
	if !ok {
		return 0, false
	}
	return p.Value, true
}

func (s *System) Get(id string) (*Pressure, bool) {
	p, ok := s.index[id]
	return p, ok
}

// Pressures returns the pressures in registration order.
func (s *System) Pressures() []*Pressure {
	return slices.Clone(s.pressures)
}

func (s *System) Values() map[string]float64 {
	out := make(map[string]float64, len(s.pressures))
	for _, p := range s.pressures {
		out[p.ID] = p.Value
	}
	return out
}

// Gate reports whether every enables affect on target is met.
func (s *System) Gate(target string) bool {
	if s == nil {
		return true
	}
	for _, p := range s.pressures {
		for _, a := range p.Contract.Affects {
			if a.Target == target && a.Mode == Enables && p.Value < a.Threshold {
				return false
			}
		}
	}
	return true
}

// Amplifier multiplies 1+factor*value/100 over the met amplifies affects on target.
func (s *System) Amplifier(target string) float64 {
	if s == nil {
		return 1
	}
	amp := 1.0
	for _, p := range s.pressures {
		for _, a := range p.Contract.Affects {
			if a.Target == target && a.Mode == Amplifies && p.Value >= a.Threshold {
				amp *= amplify(a.Factor, p.Value)
			}
		}
	}
	return amp
}

// Scaled multiplies 1+factor*value/100 over a pressure id to factor mapping.
// Unknown ids are ignored.
func (s *System) Scaled(factors map[string]float64) float64 {
	if s == nil {
		return 1
	}
	ids := make([]string, 0, len(factors))
	for id := range factors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	amp := 1.0
	for _, id := range ids {
		if p, ok := s.index[id]; ok {
			amp *= amplify(factors[id], p.Value)
		}
	}
	return amp
}

func amplify(factor, value float64) float64 {
	m := 1 + factor*value/100
	if m < 0 {
		return 0
	}
	return m
}

// AtLeast reports whether every listed pressure is at or above its threshold.
func (s *System) AtLeast(thresholds map[string]float64) bool {
	for id, threshold := range thresholds {
		v, ok := s.Value(id)
		if !ok || v < threshold {
			return false
		}
	}
	return true
}

type EquilibriumStatus struct {
	ID      string  `json:"id"`
	Value   float64 `json:"value"`
	Low     float64 `json:"low"`
	High    float64 `json:"high"`
	InRange bool    `json:"inRange"`
}

// EquilibriumReport compares each value with its expected range. The
// range is diagnostic only.
func (s *System) EquilibriumReport() []EquilibriumStatus {
	out := make([]EquilibriumStatus, 0, len(s.pressures))
	for _, p := range s.pressures {
		lo, hi := p.Contract.Equilibrium.ExpectedRange[0], p.Contract.Equilibrium.ExpectedRange[1]
		out = append(out, EquilibriumStatus{
			ID:      p.ID,
			Value:   p.Value,
			Low:     lo,
			High:    hi,
			InRange: (lo == 0 && hi == 0) || (p.Value >= lo && p.Value <= hi),
		})
	}
	return out
}
