package narrative

import "math"

type EventType string

const (
	StateChange           EventType = "state_change"
	Downfall              EventType = "downfall"
	Triumph               EventType = "triumph"
	Betrayal              EventType = "betrayal"
	Reconciliation        EventType = "reconciliation"
	RelationshipDissolved EventType = "relationship_dissolved"
	RivalryFormed         EventType = "rivalry_formed"
	AllianceFormed        EventType = "alliance_formed"
	Succession            EventType = "succession"
	PowerVacuum           EventType = "power_vacuum"
	Coalescence           EventType = "coalescence"
)

// baseWeight is the significance of an event type before prominence scaling.
var baseWeight = map[EventType]float64{
	Downfall:              0.8,
	Triumph:               0.8,
	Betrayal:              0.9,
	Reconciliation:        0.7,
	RivalryFormed:         0.6,
	AllianceFormed:        0.6,
	Succession:            0.85,
	PowerVacuum:           0.9,
	Coalescence:           0.6,
	StateChange:           0.4,
	RelationshipDissolved: 0.3,
}

// BaseWeight returns the unscaled significance of t.
func BaseWeight(t EventType) float64 {
	return baseWeight[t]
}

// Event is one story hook derived from a tick's changes.
type Event struct {
	ID           string    `json:"id"`
	Tick         int       `json:"tick"`
	Era          string    `json:"era,omitempty"`
	Type         EventType `json:"type"`
	Significance float64   `json:"significance"`
	Headline     string    `json:"headline"`
	Subject      string    `json:"subject"`
	Affected     []string  `json:"affected,omitempty"`
	Catalyst     string    `json:"catalyst,omitempty"`

	Field            string `json:"field,omitempty"`
	Previous         string `json:"previous,omitempty"`
	Current          string `json:"current,omitempty"`
	RelationshipKind string `json:"relationshipKind,omitempty"`
	Counterpart      string `json:"counterpart,omitempty"`
}

// significance scales the base weight by the mean prominence of the
// involved entities: base * (0.5 + 0.5*mean), clamped to [0, 1].
func significance(base float64, weights []float64) float64 {
	mean := 0.0
	if len(weights) > 0 {
		for _, w := range weights {
			mean += w
		}
		mean /= float64(len(weights))
	}
	return math.Max(0, math.Min(1, base*(0.5+0.5*mean)))
}
