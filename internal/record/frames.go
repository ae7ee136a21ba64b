package record

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"
)

// framesEncoder writes every frame as a PNG into a zip archive. Stop does
// not produce the archive; Render closes it and Buffer returns it.
type framesEncoder struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	zw     *zip.Writer
	n      int
	out    []byte
	closed bool
}

func newFramesEncoder(EncoderSettings) *framesEncoder {
	e := &framesEncoder{}
	e.zw = zip.NewWriter(&e.buf)
	return e
}

func (e *framesEncoder) Kind() BackendKind { return BackendFrames }

func (e *framesEncoder) AddFrame(img *image.RGBA) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.out != nil {
		return ErrEncoderClosed
	}
	w, err := e.zw.Create(fmt.Sprintf("frame_%06d.png", e.n))
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return err
	}
	e.n++
	return nil
}

func (e *framesEncoder) Stop() ([]byte, error) { return nil, nil }

func (e *framesEncoder) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.out != nil {
		return nil
	}
	return e.zw.Flush()
}

// Render closes the archive so Buffer can return it.
func (e *framesEncoder) Render() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.out != nil || e.closed {
		return nil, nil
	}
	if e.n == 0 {
		return nil, fmt.Errorf("frames: no frames")
	}
	if err := e.zw.Close(); err != nil {
		return nil, err
	}
	e.out = e.buf.Bytes()
	return nil, nil
}

func (e *framesEncoder) Buffer() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.out, nil
}

func (e *framesEncoder) Finalize() ([]byte, error) {
	if _, err := e.Render(); err != nil {
		return nil, err
	}
	return e.Buffer()
}

func (e *framesEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
