package record

import (
	"fmt"
	"image"
	"strings"
)

// BackendKind is the closed set of encoder backends.
type BackendKind uint8

const (
	BackendAuto BackendKind = iota
	BackendGIF
	BackendFFmpeg
	BackendFrames
)

var backendNames = [...]string{"auto", "gif", "ffmpeg", "frames"}

func (b BackendKind) String() string {
	if int(b) < len(backendNames) {
		return backendNames[b]
	}
	return fmt.Sprintf("backend(%d)", uint8(b))
}

func ParseBackend(s string) (BackendKind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if norm == "" {
		return BackendAuto, nil
	}
	for i, n := range backendNames {
		if n == norm {
			return BackendKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: backend %q", ErrUnsupported, s)
}

func (b BackendKind) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

func (b *BackendKind) UnmarshalText(text []byte) error {
	v, err := ParseBackend(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Encoder accumulates frames for one session. Backends do not agree on when
// the encoded bytes become available, so the finalize methods are tried in
// order by the strategy chain until one returns a non-empty buffer. Any of
// them may return an empty buffer without an error.
type Encoder interface {
	Kind() BackendKind
	AddFrame(img *image.RGBA) error

	Stop() ([]byte, error)
	Flush() error
	Render() ([]byte, error)
	Buffer() ([]byte, error)
	Finalize() ([]byte, error)

	// Close releases the encoder. It is safe after any finalize call.
	Close() error
}

// EncoderSettings is what a backend needs to start.
type EncoderSettings struct {
	Format     Format
	Width      int
	Height     int
	FPS        int
	Bitrate    int
	FFmpegPath string
}

// EncoderFactory creates the encoder for a session.
type EncoderFactory func(kind BackendKind, s EncoderSettings) (Encoder, error)

// NewEncoder is the default factory.
func NewEncoder(kind BackendKind, s EncoderSettings) (Encoder, error) {
	switch kind {
	case BackendGIF:
		return newGIFEncoder(s), nil
	case BackendFFmpeg:
		return newFFmpegEncoder(s)
	case BackendFrames:
		return newFramesEncoder(s), nil
	}
	return nil, fmt.Errorf("%w: backend %v", ErrUnsupported, kind)
}
