package engine

import (
	"errors"
	"fmt"

	"github.com/gogpu/gg"

	"github.com/san-kum/vecfield/internal/anim"
	"github.com/san-kum/vecfield/internal/coords"
	"github.com/san-kum/vecfield/internal/post"
	"github.com/san-kum/vecfield/internal/render"
)

const (
	DefaultRows   = 15
	DefaultCols   = 20
	DefaultWidth  = 960
	DefaultHeight = 540
	DefaultLength = 0.05
)

var (
	ErrInvalidGrid    = errors.New("engine: rows and cols must be positive")
	ErrInvalidSurface = errors.New("engine: surface size must be positive")
	ErrVectorLength   = errors.New("engine: vector data length must be rows*cols*4")
	ErrClosed         = errors.New("engine: closed")
)

// Config is everything the engine needs to build a field. It carries no
// file format; the config package maps its YAML onto it.
type Config struct {
	Rows    int
	Cols    int
	Layout  coords.Layout
	Spacing float32

	// VectorLength is the glyph length in normalized units.
	VectorLength float32
	VectorWidth  float64
	Shape        render.Shape

	Width  int
	Height int

	Kind     anim.Kind
	Params   anim.Params
	Speed    float32
	Zoom     float32
	Seed     uint32
	AutoSeed bool

	Color      gg.RGBA
	Background gg.RGBA
	Gradient   render.Gradient
	Trails     render.TrailConfig
	Post       post.Settings
}

func DefaultConfig() Config {
	style := render.DefaultStyle()
	return Config{
		Rows:         DefaultRows,
		Cols:         DefaultCols,
		Layout:       coords.LayoutFixed,
		VectorLength: DefaultLength,
		VectorWidth:  style.Width,
		Shape:        style.Shape,
		Width:        DefaultWidth,
		Height:       DefaultHeight,
		Kind:         anim.Wave,
		Params:       anim.Wave.Defaults(),
		Speed:        1,
		Zoom:         1,
		Color:        style.Color,
		Background:   style.Background,
		Trails:       style.Trails,
		Post:         post.DefaultSettings(),
	}
}

// VectorCount is rows*cols.
func (c Config) VectorCount() int { return c.Rows * c.Cols }

// FloatCount is the vector buffer length in floats.
func (c Config) FloatCount() int { return c.VectorCount() * 4 }

func (c Config) Aspect() float32 {
	return coords.Viewport{Width: float32(c.Width), Height: float32(c.Height)}.Aspect()
}

func (c Config) Validate() error {
	if c.Rows <= 0 || c.Cols <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidGrid, c.Rows, c.Cols)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSurface, c.Width, c.Height)
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: %d", anim.ErrUnknownKind, c.Kind)
	}
	if c.VectorLength <= 0 {
		return fmt.Errorf("engine: vector length %v must be positive", c.VectorLength)
	}
	return c.Post.Validate()
}

func (c Config) style() render.Style {
	return render.Style{
		Shape:      c.Shape,
		Width:      c.VectorWidth,
		Color:      c.Color,
		Background: c.Background,
		Gradient:   c.Gradient,
		Trails:     c.Trails,
	}
}

// sameGrid reports whether switching from c to o keeps the generated
// positions.
func (c Config) sameGrid(o Config) bool {
	return c.Rows == o.Rows && c.Cols == o.Cols && c.Layout == o.Layout &&
		c.Spacing == o.Spacing && c.VectorLength == o.VectorLength &&
		c.Aspect() == o.Aspect()
}
