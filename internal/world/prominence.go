package world

import (
	"fmt"
	"strings"
)

// Prominence is an ordered fame scale.
type Prominence int

const (
	Forgotten Prominence = iota
	Marginal
	Recognized
	Renowned
	Mythic
)

var prominenceNames = [...]string{"forgotten", "marginal", "recognized", "renowned", "mythic"}

// ProminenceLevels returns every level from lowest to highest.
func ProminenceLevels() []Prominence {
	return []Prominence{Forgotten, Marginal, Recognized, Renowned, Mythic}
}

func (p Prominence) String() string {
	if p < Forgotten || p > Mythic {
		return fmt.Sprintf("prominence(%d)", int(p))
	}
	return prominenceNames[p]
}

func ParseProminence(s string) (Prominence, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, name := range prominenceNames {
		if name == key {
			return Prominence(i), nil
		}
	}
	return Forgotten, fmt.Errorf("unknown prominence: %q", s)
}

func (p Prominence) MarshalText() ([]byte, error) {
	if p < Forgotten || p > Mythic {
		return nil, fmt.Errorf("invalid prominence: %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Prominence) UnmarshalText(b []byte) error {
	parsed, err := ParseProminence(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Weight maps the scale onto [0, 1].
func (p Prominence) Weight() float64 {
	return float64(p) / float64(Mythic)
}

func (p Prominence) Raise() Prominence {
	if p >= Mythic {
		return Mythic
	}
	return p + 1
}

func (p Prominence) Lower() Prominence {
	if p <= Forgotten {
		return Forgotten
	}
	return p - 1
}
