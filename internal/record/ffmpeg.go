package record

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"sync"
)

// ffmpegEncoder pipes raw RGBA frames into an ffmpeg process and collects
// the container it writes to stdout.
type ffmpegEncoder struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	w      *bufio.Writer
	stderr bytes.Buffer
	copied chan struct{}
	result []byte

	width, height int

	out     []byte
	stopped bool
	waitErr error
}

func ffmpegArgs(s EncoderSettings) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "rawvideo", "-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", s.Width, s.Height),
		"-r", strconv.Itoa(s.FPS),
		"-i", "pipe:0",
		"-b:v", strconv.Itoa(s.Bitrate),
	}
	switch s.Format {
	case FormatWebM:
		args = append(args, "-c:v", "libvpx-vp9", "-f", "webm")
	default:
		args = append(args, "-c:v", "libx264", "-pix_fmt", "yuv420p",
			"-movflags", "frag_keyframe+empty_moov", "-f", "mp4")
	}
	return append(args, "pipe:1")
}

func newFFmpegEncoder(s EncoderSettings) (*ffmpegEncoder, error) {
	bin := s.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	e := &ffmpegEncoder{width: s.Width, height: s.Height, copied: make(chan struct{})}
	e.cmd = exec.Command(path, ffmpegArgs(s)...)
	e.cmd.Stderr = &e.stderr

	stdout, err := e.cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	e.stdin, err = e.cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := e.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	e.w = bufio.NewWriterSize(e.stdin, 1<<20)

	go func() {
		defer close(e.copied)
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, stdout)
		e.mu.Lock()
		e.result = buf.Bytes()
		e.mu.Unlock()
	}()
	return e, nil
}

func (e *ffmpegEncoder) Kind() BackendKind { return BackendFFmpeg }

func (e *ffmpegEncoder) AddFrame(img *image.RGBA) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrEncoderClosed
	}
	b := img.Bounds()
	if b.Dx() != e.width || b.Dy() != e.height {
		return fmt.Errorf("ffmpeg: frame %dx%d, encoder expects %dx%d", b.Dx(), b.Dy(), e.width, e.height)
	}
	for y := 0; y < e.height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+e.width*4]
		if _, err := e.w.Write(row); err != nil {
			return fmt.Errorf("ffmpeg: write frame: %w", err)
		}
	}
	return nil
}

func (e *ffmpegEncoder) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return nil
	}
	return e.w.Flush()
}

// Stop closes stdin and waits for ffmpeg to exit.
func (e *ffmpegEncoder) Stop() ([]byte, error) {
	e.mu.Lock()
	if e.stopped {
		out, err := e.out, e.waitErr
		e.mu.Unlock()
		return out, err
	}
	e.stopped = true
	flushErr := e.w.Flush()
	closeErr := e.stdin.Close()
	e.mu.Unlock()

	<-e.copied
	waitErr := e.cmd.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := errors.Join(flushErr, closeErr, waitErr); err != nil {
		e.waitErr = fmt.Errorf("ffmpeg: %w: %s", err, bytes.TrimSpace(e.stderr.Bytes()))
		return nil, e.waitErr
	}
	e.out = e.result
	return e.out, nil
}

func (e *ffmpegEncoder) Render() ([]byte, error) { return nil, nil }

func (e *ffmpegEncoder) Buffer() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.out, nil
}

func (e *ffmpegEncoder) Finalize() ([]byte, error) { return e.Stop() }

func (e *ffmpegEncoder) Close() error {
	e.mu.Lock()
	stopped := e.stopped
	e.mu.Unlock()
	if stopped {
		return nil
	}
	_, err := e.Stop()
	return err
}
