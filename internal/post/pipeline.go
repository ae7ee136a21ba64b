package post

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/san-kum/vecfield/internal/logx"
)

type Bloom struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float32 `yaml:"threshold"`
	Intensity float32 `yaml:"intensity"`
	Quality   int     `yaml:"quality"`
	Radius    float32 `yaml:"radius"`
}

type Chromatic struct {
	Enabled   bool    `yaml:"enabled"`
	Intensity float32 `yaml:"intensity"`
	MaxOffset float32 `yaml:"max_offset"`
}

type Vignette struct {
	Enabled   bool    `yaml:"enabled"`
	Intensity float32 `yaml:"intensity"`
	Softness  float32 `yaml:"softness"`
}

type Tone struct {
	Enabled    bool    `yaml:"enabled"`
	Exposure   float32 `yaml:"exposure"`
	Contrast   float32 `yaml:"contrast"`
	Saturation float32 `yaml:"saturation"`
	Brightness float32 `yaml:"brightness"`
}

// Settings toggles each effect independently. Nothing runs unless Enabled.
type Settings struct {
	Enabled   bool      `yaml:"enabled"`
	Bloom     Bloom     `yaml:"bloom"`
	Chromatic Chromatic `yaml:"chromatic"`
	Vignette  Vignette  `yaml:"vignette"`
	Tone      Tone      `yaml:"tone"`
}

func DefaultSettings() Settings {
	return Settings{
		Enabled:   true,
		Bloom:     Bloom{Enabled: true, Threshold: 0.6, Intensity: 0.8, Quality: 9, Radius: 1.5},
		Chromatic: Chromatic{Enabled: false, Intensity: 0.5, MaxOffset: 4},
		Vignette:  Vignette{Enabled: true, Intensity: 0.4, Softness: 0.5},
		Tone:      Tone{Enabled: true, Exposure: 0, Contrast: 1, Saturation: 1, Brightness: 0},
	}
}

func (s Settings) Validate() error {
	if s.Bloom.Enabled {
		if _, err := GaussianWeights(s.Bloom.Quality); err != nil {
			return err
		}
	}
	if s.Vignette.Softness < 0 || s.Vignette.Softness > 1 {
		return fmt.Errorf("post: vignette softness %v outside [0, 1]", s.Vignette.Softness)
	}
	return nil
}

// PassStats counts how often each pass ran.
type PassStats struct {
	Frames    uint64
	Bloom     uint64
	Chromatic uint64
	Combine   uint64
}

// Pipeline runs the passes in their fixed order: bright-pass, blur,
// chromatic aberration, then vignette and tone combine.
type Pipeline struct {
	mu       sync.RWMutex
	settings Settings
	weights  []float32

	frames, bloom, chromatic, combine atomic.Uint64
}

func NewPipeline(s Settings) (*Pipeline, error) {
	p := &Pipeline{}
	if err := p.SetSettings(s); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) Settings() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings
}

func (p *Pipeline) SetSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	var w []float32
	if s.Bloom.Enabled {
		w, _ = GaussianWeights(s.Bloom.Quality)
	}
	p.mu.Lock()
	p.settings, p.weights = s, w
	p.mu.Unlock()
	return nil
}

func (p *Pipeline) Stats() PassStats {
	return PassStats{
		Frames:    p.frames.Load(),
		Bloom:     p.bloom.Load(),
		Chromatic: p.chromatic.Load(),
		Combine:   p.combine.Load(),
	}
}

// Apply returns the post-processed image. With post-processing disabled the
// input is returned unchanged.
func (p *Pipeline) Apply(img *image.RGBA) *image.RGBA {
	p.mu.RLock()
	s, weights := p.settings, p.weights
	p.mu.RUnlock()

	p.frames.Add(1)
	if !s.Enabled {
		return img
	}

	src := FromImage(img)

	var glow *Frame
	if s.Bloom.Enabled {
		bright := BrightPass(src, s.Bloom.Threshold)
		glow = Blur(Blur(bright, weights, s.Bloom.Radius, true), weights, s.Bloom.Radius, false)
		p.bloom.Add(1)
	}

	cur := src
	if s.Chromatic.Enabled && s.Chromatic.Intensity > 0 {
		cur = ChromaticAberration(cur, s.Chromatic.Intensity, s.Chromatic.MaxOffset)
		p.chromatic.Add(1)
	}

	if glow == nil && !s.Vignette.Enabled && !s.Tone.Enabled {
		return cur.ToImage()
	}
	out := Combine(cur, glow, s)
	p.combine.Add(1)
	logx.L().Debug("post frame", "bloom", glow != nil, "w", out.W, "h", out.H)
	return out.ToImage()
}
