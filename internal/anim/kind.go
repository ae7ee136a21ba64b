package anim

import (
	"fmt"
	"strings"
)

// Kind identifies one motion kernel.
type Kind uint8

const (
	Wave Kind = iota
	Spin
	Pulse
	Ripple
	Spiral
	Radial
	Pendulum
	Breathe
	Orbit
	Heartbeat
	Tide
	Sweep
	Checker
	Interference
	TripleWave
	Lissajous
	Harmonics
	Kaleidoscope
	Beat
	Moire
	Rosette
	FlowField
	Storm
	ChaoticAttractor
	Turbulence
	Drift
	RandomWalk
	Flocking
	VortexGrowth
	MouseFollow

	numKinds
)

// NumKinds is the number of defined kinds.
const NumKinds = int(numKinds)

func (k Kind) Valid() bool { return k < numKinds }

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return variants[k].name
}

// Label is the human readable name.
func (k Kind) Label() string {
	if !k.Valid() {
		return k.String()
	}
	return variants[k].label
}

// Defaults returns the parameter set the kind starts with.
func (k Kind) Defaults() Params {
	if !k.Valid() {
		return Params{Frequency: 1, Amplitude: 1, Elasticity: 0.5, MaxLength: 1}
	}
	return variants[k].defaults
}

// UsesPointer reports whether the kernel reads the pointer position.
func (k Kind) UsesPointer() bool { return k.Valid() && variants[k].pointer }

// NeedsNeighbors reports whether the kernel reads the previous frame.
func (k Kind) NeedsNeighbors() bool { return k.Valid() && variants[k].neighbors }

// Periodic reports whether the kind has an exact period for some parameters.
func (k Kind) Periodic() bool { return k.Valid() && variants[k].rates != nil }

// All returns every kind in declaration order.
func All() []Kind {
	out := make([]Kind, NumKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// ParseKind resolves a kind name, case-insensitively. Underscores and spaces
// are accepted in place of dashes.
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", "-", " ", "-").Replace(norm)
	for i := range variants {
		if variants[i].name == norm {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Next cycles through kinds in declaration order.
func (k Kind) Next() Kind {
	return Kind((int(k) + 1) % NumKinds)
}
