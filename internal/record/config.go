package record

import (
	"fmt"
	"path/filepath"
	"strings"
)

type Format string

const (
	FormatMP4  Format = "mp4"
	FormatWebM Format = "webm"
	FormatGIF  Format = "gif"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatMP4, FormatWebM, FormatGIF:
		return f, nil
	}
	return "", fmt.Errorf("%w: format %q", ErrUnsupported, s)
}

type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
	QualityMax    Quality = "max"
)

// Preset is the fixed encoding target of a quality level.
type Preset struct {
	Width   int
	Height  int
	Bitrate int
	FPS     int
}

func (p Preset) Resolution() string { return fmt.Sprintf("%dp", p.Height) }

var presets = map[Quality]Preset{
	QualityLow:    {Width: 854, Height: 480, Bitrate: 2_500_000, FPS: 30},
	QualityMedium: {Width: 1280, Height: 720, Bitrate: 8_000_000, FPS: 30},
	QualityHigh:   {Width: 1920, Height: 1080, Bitrate: 18_000_000, FPS: 60},
	QualityMax:    {Width: 3840, Height: 2160, Bitrate: 45_000_000, FPS: 60},
}

func PresetFor(q Quality) (Preset, error) {
	p, ok := presets[Quality(strings.ToLower(string(q)))]
	if !ok {
		return Preset{}, fmt.Errorf("%w: quality %q", ErrUnsupported, q)
	}
	return p, nil
}

// Qualities lists quality levels from lowest to highest.
func Qualities() []Quality {
	return []Quality{QualityLow, QualityMedium, QualityHigh, QualityMax}
}

// Config describes one recording session.
type Config struct {
	Format    Format  `yaml:"format"`
	Quality   Quality `yaml:"quality"`
	FrameRate int     `yaml:"frame_rate"`
	FileName  string  `yaml:"file_name"`

	// Backend overrides the encoder normally implied by Format.
	Backend BackendKind `yaml:"backend,omitempty"`
	// FFmpegPath is the ffmpeg binary; empty means look it up on PATH.
	FFmpegPath string `yaml:"ffmpeg_path,omitempty"`
}

func DefaultConfig() Config {
	return Config{Format: FormatGIF, Quality: QualityLow, FileName: "vecfield"}
}

// Resolve validates c and returns its preset with FrameRate applied.
func (c Config) Resolve() (Preset, error) {
	if _, err := ParseFormat(string(c.Format)); err != nil {
		return Preset{}, err
	}
	p, err := PresetFor(c.Quality)
	if err != nil {
		return Preset{}, err
	}
	if c.FrameRate < 0 {
		return Preset{}, fmt.Errorf("%w: frame rate %d", ErrUnsupported, c.FrameRate)
	}
	if c.FrameRate > 0 {
		p.FPS = c.FrameRate
	}
	return p, nil
}

// BackendFor returns the encoder backend used for c.
func (c Config) BackendFor() BackendKind {
	if c.Backend != BackendAuto {
		return c.Backend
	}
	if c.Format == FormatGIF {
		return BackendGIF
	}
	return BackendFFmpeg
}

// OutputName is FileName with the extension of the produced file.
func (c Config) OutputName() string {
	name := c.FileName
	if name == "" {
		name = "recording"
	}
	ext := "." + string(c.Format)
	if c.BackendFor() == BackendFrames {
		ext = ".zip"
	}
	if strings.EqualFold(filepath.Ext(name), ext) {
		return name
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}
