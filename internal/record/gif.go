package record

import (
	"bytes"
	"fmt"
	"image"
	"image/color/palette"
	"image/gif"
	"sync"

	"golang.org/x/image/draw"
)

// gifEncoder quantizes frames to the Plan 9 palette and encodes on Stop.
type gifEncoder struct {
	mu     sync.Mutex
	delay  int
	frames []*image.Paletted
	out    []byte
	closed bool
}

func newGIFEncoder(s EncoderSettings) *gifEncoder {
	fps := s.FPS
	if fps <= 0 {
		fps = 30
	}
	delay := 100 / fps
	if delay < 2 {
		delay = 2
	}
	return &gifEncoder{delay: delay}
}

func (e *gifEncoder) Kind() BackendKind { return BackendGIF }

func (e *gifEncoder) AddFrame(img *image.RGBA) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.out != nil {
		return ErrEncoderClosed
	}
	p := image.NewPaletted(img.Bounds(), palette.Plan9)
	draw.FloydSteinberg.Draw(p, p.Bounds(), img, img.Bounds().Min)
	e.frames = append(e.frames, p)
	return nil
}

func (e *gifEncoder) encode() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.out != nil {
		return e.out, nil
	}
	if len(e.frames) == 0 {
		return nil, fmt.Errorf("gif: no frames")
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range e.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, e.delay)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, &anim); err != nil {
		return nil, fmt.Errorf("gif: %w", err)
	}
	e.out = buf.Bytes()
	e.frames = nil
	return e.out, nil
}

func (e *gifEncoder) Stop() ([]byte, error)     { return e.encode() }
func (e *gifEncoder) Flush() error              { return nil }
func (e *gifEncoder) Render() ([]byte, error)   { return nil, nil }
func (e *gifEncoder) Finalize() ([]byte, error) { return e.encode() }

func (e *gifEncoder) Buffer() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.out, nil
}

func (e *gifEncoder) Close() error {
	e.mu.Lock()
	e.closed = true
	e.frames = nil
	e.mu.Unlock()
	return nil
}
