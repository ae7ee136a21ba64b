package config

import (
	"maps"
	"slices"

	"github.com/san-kum/vecfield/internal/anim"
	"github.com/san-kum/vecfield/internal/render"
)

func preset(k anim.Kind, p anim.Params, edit func(*Config)) *Config {
	cfg := DefaultConfig()
	cfg.Animation.Kind = k
	cfg.Animation.Params = &p
	if edit != nil {
		edit(cfg)
	}
	return cfg
}

func withTrails(n int, fade render.Fade) func(*Config) {
	return func(c *Config) {
		c.Style.Trails = TrailConfig{Enabled: true, Length: n, Fade: fade, Decay: 0.6}
	}
}

// Presets maps a kind name to named configurations.
var Presets = map[string]map[string]*Config{
	"wave": {
		"gentle": preset(anim.Wave, anim.Params{Frequency: 0.5, Amplitude: 0.6, Elasticity: 1, MaxLength: 1}, nil),
		"surf":   preset(anim.Wave, anim.Params{Frequency: 2, Amplitude: 1.5, Elasticity: 1, MaxLength: 1.2}, withTrails(8, render.FadeLinear)),
	},
	"spiral": {
		"slow": preset(anim.Spiral, anim.Params{Frequency: 0.5, Amplitude: 1, Elasticity: 1, MaxLength: 1}, nil),
		"galaxy": preset(anim.Spiral, anim.Params{Frequency: 1.5, Amplitude: 3, Elasticity: 2, MaxLength: 1.4}, func(c *Config) {
			c.Grid.Shape = render.ShapeTriangle
			c.Grid.Rows, c.Grid.Cols = 30, 40
		}),
	},
	"lissajous": {
		"classic": preset(anim.Lissajous, anim.Lissajous.Defaults(), nil),
		"ribbon":  preset(anim.Lissajous, anim.Params{Frequency: 1, Amplitude: 2, Elasticity: 1, MaxLength: 1}, withTrails(12, render.FadeExponential)),
	},
	"flow-field": {
		"calm": preset(anim.FlowField, anim.Params{Frequency: 0.3, Amplitude: 1, Elasticity: 0.5, MaxLength: 1}, nil),
		"storm": preset(anim.FlowField, anim.Params{Frequency: 2, Amplitude: 4, Elasticity: 2, MaxLength: 1.5}, func(c *Config) {
			c.Post.Bloom.Intensity = 1.2
		}),
	},
	"flocking": {
		"school": preset(anim.Flocking, anim.Flocking.Defaults(), func(c *Config) {
			c.Grid.Layout = "uniform"
		}),
	},
	"mouse-follow": {
		"compass": preset(anim.MouseFollow, anim.MouseFollow.Defaults(), func(c *Config) {
			c.Grid.Shape = render.ShapeArc
		}),
	},
}

func GetPreset(kind, preset string) *Config {
	kindPresets, ok := Presets[kind]
	if !ok {
		return nil
	}
	cfg, ok := kindPresets[preset]
	if !ok {
		return nil
	}
	return cfg
}

// ListPresets returns the preset names of kind in sorted order.
func ListPresets(kind string) []string {
	kindPresets, ok := Presets[kind]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(kindPresets))
}

// PresetKinds lists the kinds that have presets.
func PresetKinds() []string {
	return slices.Sorted(maps.Keys(Presets))
}
