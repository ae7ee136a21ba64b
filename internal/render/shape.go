package render

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownShape   = errors.New("render: unknown shape")
	ErrStopCount      = errors.New("render: gradient needs 2 to 6 stops")
	ErrStopPosition   = errors.New("render: gradient stop position outside [0, 1]")
	ErrUnknownOption  = errors.New("render: unknown option")
	ErrInvalidSurface = errors.New("render: surface size must be positive")
)

// Shape is the primitive drawn for each glyph.
type Shape uint8

const (
	ShapeLine Shape = iota
	ShapeTriangle
	ShapeArc
	ShapeCircle
)

var shapeNames = [...]string{"line", "triangle", "arc", "circle"}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return fmt.Sprintf("shape(%d)", uint8(s))
}

func ParseShape(s string) (Shape, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for i, n := range shapeNames {
		if n == norm {
			return Shape(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownShape, s)
}

func (s Shape) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Shape) UnmarshalText(b []byte) error {
	v, err := ParseShape(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Fade is how trail opacity decays with age.
type Fade uint8

const (
	FadeLinear Fade = iota
	FadeExponential
)

func (f Fade) String() string {
	if f == FadeExponential {
		return "exponential"
	}
	return "linear"
}

func (f Fade) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *Fade) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "linear", "":
		*f = FadeLinear
	case "exponential", "exp":
		*f = FadeExponential
	default:
		return fmt.Errorf("%w: fade %q", ErrUnknownOption, b)
	}
	return nil
}
