package render

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/gg"
)

const (
	MinStops = 2
	MaxStops = 6
)

// GradientType selects linear or radial interpolation.
type GradientType uint8

const (
	GradientLinear GradientType = iota
	GradientRadial
)

func (t GradientType) String() string {
	if t == GradientRadial {
		return "radial"
	}
	return "linear"
}

func (t GradientType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *GradientType) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "linear", "":
		*t = GradientLinear
	case "radial":
		*t = GradientRadial
	default:
		return fmt.Errorf("%w: gradient type %q", ErrUnknownOption, b)
	}
	return nil
}

// GradientScope decides whether a gradient runs along each glyph or across
// the whole field.
type GradientScope uint8

const (
	ScopeGlyph GradientScope = iota
	ScopeField
)

func (s GradientScope) String() string {
	if s == ScopeField {
		return "field"
	}
	return "glyph"
}

func (s GradientScope) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *GradientScope) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "glyph", "":
		*s = ScopeGlyph
	case "field":
		*s = ScopeField
	default:
		return fmt.Errorf("%w: gradient scope %q", ErrUnknownOption, b)
	}
	return nil
}

type ColorStop struct {
	Color    gg.RGBA
	Position float64
}

// Gradient keeps between MinStops and MaxStops stops sorted by position.
// Build one with NewGradient; the zero value is a disabled gradient.
type Gradient struct {
	Type  GradientType
	Scope GradientScope
	// Angle is in radians, measured counter-clockwise from +x.
	Angle float64

	stops []ColorStop
}

func NewGradient(typ GradientType, scope GradientScope, angle float64, stops ...ColorStop) (Gradient, error) {
	g := Gradient{Type: typ, Scope: scope, Angle: angle}
	if len(stops) < MinStops || len(stops) > MaxStops {
		return Gradient{}, fmt.Errorf("%w: got %d", ErrStopCount, len(stops))
	}
	for _, s := range stops {
		if s.Position < 0 || s.Position > 1 {
			return Gradient{}, fmt.Errorf("%w: %v", ErrStopPosition, s.Position)
		}
	}
	g.stops = slices.Clone(stops)
	g.sort()
	return g, nil
}

func (g *Gradient) sort() {
	slices.SortStableFunc(g.stops, func(a, b ColorStop) int {
		switch {
		case a.Position < b.Position:
			return -1
		case a.Position > b.Position:
			return 1
		}
		return 0
	})
}

// Enabled reports whether the gradient has stops.
func (g Gradient) Enabled() bool { return len(g.stops) >= MinStops }

// Stops returns a copy of the sorted stops.
func (g Gradient) Stops() []ColorStop { return slices.Clone(g.stops) }

// AddStop inserts a stop, keeping the set sorted.
func (g *Gradient) AddStop(s ColorStop) error {
	if len(g.stops) >= MaxStops {
		return fmt.Errorf("%w: already %d", ErrStopCount, len(g.stops))
	}
	if s.Position < 0 || s.Position > 1 {
		return fmt.Errorf("%w: %v", ErrStopPosition, s.Position)
	}
	g.stops = append(g.stops, s)
	g.sort()
	return nil
}

// RemoveStop deletes stop i unless that would leave fewer than MinStops.
func (g *Gradient) RemoveStop(i int) error {
	if len(g.stops) <= MinStops {
		return fmt.Errorf("%w: cannot drop below %d", ErrStopCount, MinStops)
	}
	if i < 0 || i >= len(g.stops) {
		return fmt.Errorf("render: stop index %d out of range", i)
	}
	g.stops = slices.Delete(g.stops, i, i+1)
	return nil
}

// Descriptor packs type, angle, stop count and scope for the uniform record.
func (g Gradient) Descriptor() [4]float32 {
	if !g.Enabled() {
		return [4]float32{}
	}
	return [4]float32{float32(g.Type), float32(g.Angle), float32(len(g.stops)), float32(g.Scope)}
}

// brush builds a gg gradient spanning (x0,y0)-(x1,y1) for linear gradients
// or centered on (x0,y0) with radius r for radial ones. alpha scales every
// stop.
func (g Gradient) brush(x0, y0, x1, y1, r, alpha float64) gg.Brush {
	if g.Type == GradientRadial {
		b := gg.NewRadialGradientBrush(x0, y0, 0, r)
		for _, s := range g.stops {
			b.AddColorStop(s.Position, withAlpha(s.Color, alpha))
		}
		return b
	}
	b := gg.NewLinearGradientBrush(x0, y0, x1, y1)
	for _, s := range g.stops {
		b.AddColorStop(s.Position, withAlpha(s.Color, alpha))
	}
	return b
}

func withAlpha(c gg.RGBA, alpha float64) gg.RGBA {
	c.A *= alpha
	return c
}
