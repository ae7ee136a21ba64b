package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/vecfield/internal/anim"
	"github.com/san-kum/vecfield/internal/coords"
	"github.com/san-kum/vecfield/internal/record"
	"github.com/san-kum/vecfield/internal/render"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Animation.Kind != anim.Wave {
		t.Errorf("expected kind wave, got %s", cfg.Animation.Kind)
	}
	if cfg.Grid.Rows*cfg.Grid.Cols != 300 {
		t.Errorf("expected 300 glyphs, got %d", cfg.Grid.Rows*cfg.Grid.Cols)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Params() != anim.Wave.Defaults() {
		t.Errorf("expected wave defaults, got %v", cfg.Params())
	}
}

func TestParseOverlaysDefaults(t *testing.T) {
	data := []byte(`
grid:
  rows: 4
  shape: triangle
animation:
  kind: lissajous
  params:
    frequency: 3
    amplitude: 1
    elasticity: 2
    max_length: 1
style:
  gradient:
    type: radial
    scope: field
    stops:
      - {color: "#ff0000", position: 1}
      - {color: "#0000ff", position: 0}
recording:
  format: mp4
  quality: high
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Grid.Rows != 4 || cfg.Grid.Cols != DefaultCols {
		t.Errorf("grid = %dx%d, want 4x%d", cfg.Grid.Rows, cfg.Grid.Cols, DefaultCols)
	}
	if cfg.Grid.Shape != render.ShapeTriangle {
		t.Errorf("shape = %v", cfg.Grid.Shape)
	}
	if cfg.Animation.Kind != anim.Lissajous || cfg.Params().Frequency != 3 {
		t.Errorf("animation = %v %v", cfg.Animation.Kind, cfg.Params())
	}
	if cfg.Animation.Speed != DefaultSpeed {
		t.Errorf("speed = %v, want default", cfg.Animation.Speed)
	}
	if cfg.Recording.Format != record.FormatMP4 || cfg.Recording.Quality != record.QualityHigh {
		t.Errorf("recording = %+v", cfg.Recording)
	}

	ec, err := cfg.Engine()
	if err != nil {
		t.Fatal(err)
	}
	stops := ec.Gradient.Stops()
	if len(stops) != 2 || stops[0].Position != 0 {
		t.Errorf("stops not sorted: %+v", stops)
	}
	if ec.Gradient.Type != render.GradientRadial || ec.Gradient.Scope != render.ScopeField {
		t.Errorf("gradient = %v/%v", ec.Gradient.Type, ec.Gradient.Scope)
	}
}

func TestParseRejectsUnknownKind(t *testing.T) {
	if _, err := Parse([]byte("animation:\n  kind: cartpole\n")); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"bad color", func(c *Config) { c.Style.Color = "#zzz" }},
		{"empty grid", func(c *Config) { c.Grid.Cols = 0 }},
		{"bad quality", func(c *Config) { c.Recording.Quality = "ultra" }},
		{"bad blur", func(c *Config) { c.Post.Bloom.Quality = 7 }},
		{"one stop", func(c *Config) { c.Style.Gradient.Stops = []StopConfig{{Color: "#fff"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Style.Background = "nope"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidColor) {
		t.Errorf("expected ErrInvalidColor, got %v", err)
	}
}

func TestEngineConversion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Grid.Layout = "uniform"
	cfg.Animation.Params = &anim.Params{Frequency: 99, MaxLength: 1}
	ec, err := cfg.Engine()
	if err != nil {
		t.Fatal(err)
	}
	if ec.Layout != coords.LayoutUniform {
		t.Errorf("layout = %v", ec.Layout)
	}
	if ec.Params.Frequency != anim.ParamSpecs[0].Max {
		t.Errorf("frequency not clamped: %v", ec.Params.Frequency)
	}
	if ec.Gradient.Enabled() {
		t.Error("gradient should be off without stops")
	}
	if ec.Color.B != 1 {
		t.Errorf("color = %+v", ec.Color)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vecfield.yaml")
	cfg := DefaultConfig()
	cfg.Animation.Kind = anim.Spiral
	cfg.Animation.Seed = 42
	cfg.Style.Trails.Fade = render.FadeExponential
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Animation.Kind != anim.Spiral || got.Animation.Seed != 42 {
		t.Errorf("animation = %+v", got.Animation)
	}
	if got.Style.Trails.Fade != render.FadeExponential {
		t.Errorf("fade = %v", got.Style.Trails.Fade)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("spiral", "galaxy")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Animation.Kind != anim.Spiral || cfg.Grid.Shape != render.ShapeTriangle {
		t.Errorf("unexpected preset %+v", cfg.Animation)
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("spiral", "nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if cfg := GetPreset("nonexistent", "slow"); cfg != nil {
		t.Error("expected nil for nonexistent kind")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("wave")
	if len(presets) != 2 || presets[0] != "gentle" {
		t.Errorf("wave presets = %v", presets)
	}
	if presets := ListPresets("nonexistent"); presets != nil {
		t.Error("expected nil for nonexistent kind")
	}
}

func TestPresetsValid(t *testing.T) {
	for _, kind := range PresetKinds() {
		k, err := anim.ParseKind(kind)
		if err != nil {
			t.Errorf("preset group %q is not a kind: %v", kind, err)
			continue
		}
		for _, name := range ListPresets(kind) {
			cfg := GetPreset(kind, name)
			if cfg.Animation.Kind != k {
				t.Errorf("%s/%s: kind %v", kind, name, cfg.Animation.Kind)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("%s/%s: %v", kind, name, err)
			}
		}
	}
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vecfield.yaml")
	if err := Save(path, DefaultConfig()); err != nil {
		t.Fatal(err)
	}

	changes := make(chan *Config, 4)
	errs := make(chan error, 4)
	w, err := Watch(path, func(c *Config) { changes <- c },
		WithDebounce(20*time.Millisecond),
		WithErrorHandler(func(err error) { errs <- err }))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("animation:\n  kind: vortex-growth\n"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-changes:
		if c.Animation.Kind != anim.VortexGrowth {
			t.Errorf("reloaded kind = %v", c.Animation.Kind)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload delivered")
	}

	if err := os.WriteFile(path, []byte("grid:\n  rows: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-errs:
	case c := <-changes:
		t.Errorf("invalid config delivered: %+v", c.Grid)
	case <-time.After(3 * time.Second):
		t.Fatal("no error reported")
	}

	if err := w.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}
