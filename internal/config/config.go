package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gogpu/gg"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/vecfield/internal/anim"
	"github.com/san-kum/vecfield/internal/coords"
	"github.com/san-kum/vecfield/internal/engine"
	"github.com/san-kum/vecfield/internal/post"
	"github.com/san-kum/vecfield/internal/record"
	"github.com/san-kum/vecfield/internal/render"
)

const (
	DefaultRows       = engine.DefaultRows
	DefaultCols       = engine.DefaultCols
	DefaultWidth      = engine.DefaultWidth
	DefaultHeight     = engine.DefaultHeight
	DefaultLength     = engine.DefaultLength
	DefaultLineWidth  = 2.0
	DefaultSpeed      = 1.0
	DefaultZoom       = 1.0
	DefaultColor      = "#59ccff"
	DefaultBackground = "#05050d"
	DefaultTrail      = 6
)

var ErrInvalidColor = errors.New("config: invalid color")

type Config struct {
	Grid      GridConfig      `yaml:"grid"`
	Surface   SurfaceConfig   `yaml:"surface"`
	Animation AnimationConfig `yaml:"animation"`
	Style     StyleConfig     `yaml:"style"`
	Post      post.Settings   `yaml:"post"`
	Recording record.Config   `yaml:"recording"`
}

type GridConfig struct {
	Rows         int          `yaml:"rows"`
	Cols         int          `yaml:"cols"`
	Layout       string       `yaml:"layout"`
	Spacing      float32      `yaml:"spacing,omitempty"`
	VectorLength float32      `yaml:"vector_length"`
	VectorWidth  float64      `yaml:"vector_width"`
	Shape        render.Shape `yaml:"shape"`
}

type SurfaceConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type AnimationConfig struct {
	Kind anim.Kind `yaml:"kind"`
	// Params falls back to the kind's defaults when omitted.
	Params   *anim.Params `yaml:"params,omitempty"`
	Speed    float32      `yaml:"speed"`
	Zoom     float32      `yaml:"zoom"`
	Seed     uint32       `yaml:"seed"`
	AutoSeed bool         `yaml:"auto_seed"`
}

type StyleConfig struct {
	Color      string         `yaml:"color"`
	Background string         `yaml:"background"`
	Gradient   GradientConfig `yaml:"gradient"`
	Trails     TrailConfig    `yaml:"trails"`
}

type GradientConfig struct {
	Type  render.GradientType  `yaml:"type"`
	Scope render.GradientScope `yaml:"scope"`
	Angle float64              `yaml:"angle"`
	Stops []StopConfig         `yaml:"stops,omitempty"`
}

type StopConfig struct {
	Color    string  `yaml:"color"`
	Position float64 `yaml:"position"`
}

type TrailConfig struct {
	Enabled bool        `yaml:"enabled"`
	Length  int         `yaml:"length"`
	Fade    render.Fade `yaml:"fade"`
	Decay   float64     `yaml:"decay"`
}

func DefaultConfig() *Config {
	return &Config{
		Grid: GridConfig{
			Rows:         DefaultRows,
			Cols:         DefaultCols,
			Layout:       coords.LayoutFixed.String(),
			VectorLength: DefaultLength,
			VectorWidth:  DefaultLineWidth,
			Shape:        render.ShapeLine,
		},
		Surface: SurfaceConfig{Width: DefaultWidth, Height: DefaultHeight},
		Animation: AnimationConfig{
			Kind:  anim.Wave,
			Speed: DefaultSpeed,
			Zoom:  DefaultZoom,
		},
		Style: StyleConfig{
			Color:      DefaultColor,
			Background: DefaultBackground,
			Trails:     TrailConfig{Length: DefaultTrail, Fade: render.FadeLinear, Decay: 0.6},
		},
		Post:      post.DefaultSettings(),
		Recording: record.DefaultConfig(),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse overlays YAML data on the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Params returns the explicit parameters or the kind's defaults.
func (c *Config) Params() anim.Params {
	if c.Animation.Params != nil {
		return *c.Animation.Params
	}
	return c.Animation.Kind.Defaults()
}

// Validate checks everything the engine and recorder would reject.
func (c *Config) Validate() error {
	ec, err := c.Engine()
	if err != nil {
		return err
	}
	if err := ec.Validate(); err != nil {
		return err
	}
	if _, err := c.Recording.Resolve(); err != nil {
		return err
	}
	return nil
}

// Engine converts the file form into the engine's config.
func (c *Config) Engine() (engine.Config, error) {
	color, err := parseColor(c.Style.Color)
	if err != nil {
		return engine.Config{}, err
	}
	bg, err := parseColor(c.Style.Background)
	if err != nil {
		return engine.Config{}, err
	}
	grad, err := c.Style.Gradient.build()
	if err != nil {
		return engine.Config{}, err
	}

	return engine.Config{
		Rows:         c.Grid.Rows,
		Cols:         c.Grid.Cols,
		Layout:       coords.ParseLayout(c.Grid.Layout),
		Spacing:      c.Grid.Spacing,
		VectorLength: c.Grid.VectorLength,
		VectorWidth:  c.Grid.VectorWidth,
		Shape:        c.Grid.Shape,
		Width:        c.Surface.Width,
		Height:       c.Surface.Height,
		Kind:         c.Animation.Kind,
		Params:       c.Params().Clamp(),
		Speed:        c.Animation.Speed,
		Zoom:         c.Animation.Zoom,
		Seed:         c.Animation.Seed,
		AutoSeed:     c.Animation.AutoSeed,
		Color:        color,
		Background:   bg,
		Gradient:     grad,
		Trails: render.TrailConfig{
			Enabled: c.Style.Trails.Enabled,
			Length:  c.Style.Trails.Length,
			Fade:    c.Style.Trails.Fade,
			Decay:   c.Style.Trails.Decay,
		},
		Post: c.Post,
	}, nil
}

// build returns a disabled gradient when no stops are configured.
func (g GradientConfig) build() (render.Gradient, error) {
	if len(g.Stops) == 0 {
		return render.Gradient{}, nil
	}
	stops := make([]render.ColorStop, 0, len(g.Stops))
	for _, s := range g.Stops {
		c, err := parseColor(s.Color)
		if err != nil {
			return render.Gradient{}, err
		}
		stops = append(stops, render.ColorStop{Color: c, Position: s.Position})
	}
	return render.NewGradient(g.Type, g.Scope, g.Angle, stops...)
}

func parseColor(s string) (gg.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(hex) {
	case 3, 4, 6, 8:
	default:
		return gg.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	for _, r := range hex {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return gg.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
	}
	return gg.Hex(hex), nil
}
