package record

import (
	"context"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/san-kum/vecfield/internal/logx"
)

// State is the recorder lifecycle position.
type State uint8

const (
	StateIdle State = iota
	StateRecording
	StatePaused
	StateProcessing
	StateError
)

var stateNames = [...]string{"idle", "recording", "paused", "processing", "error"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Stats describes the running session.
type Stats struct {
	Duration      time.Duration
	FrameCount    int
	EstimatedSize int64
	CurrentFPS    float64
}

// DefaultPollInterval is how often stats are recomputed while capturing.
const DefaultPollInterval = 250 * time.Millisecond

type Option func(*Recorder)

func WithEncoderFactory(f EncoderFactory) Option {
	return func(r *Recorder) { r.newEncoder = f }
}

func WithStrategies(s []Strategy) Option {
	return func(r *Recorder) { r.strategies = s }
}

func WithPollInterval(d time.Duration) Option {
	return func(r *Recorder) { r.pollInterval = d }
}

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithStatsHook is called with every polled snapshot.
func WithStatsHook(fn func(Stats)) Option {
	return func(r *Recorder) { r.onStats = fn }
}

// Recorder captures frames into an encoder and finalizes them through the
// strategy chain. It is safe for concurrent use.
type Recorder struct {
	newEncoder   EncoderFactory
	strategies   []Strategy
	pollInterval time.Duration
	now          func() time.Time
	onStats      func(Stats)

	mu       sync.Mutex
	state    State
	cfg      Config
	preset   Preset
	session  uuid.UUID
	enc      Encoder
	output   []byte
	lastErr  *Error
	disposed bool
	// finalizing is closed when an in-flight Stop has released the encoder.
	finalizing chan struct{}

	started     time.Time
	pausedAt    time.Time
	pausedTotal time.Duration
	frames      int
	captureErrs int
	stats       Stats
	lastPoll    time.Time
	lastFrames  int

	pollStop chan struct{}
	pollDone chan struct{}
}

func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		newEncoder:   NewEncoder,
		strategies:   DefaultStrategies(),
		pollInterval: DefaultPollInterval,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) Session() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

func (r *Recorder) Config() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// LastError returns the error that put the recorder into StateError.
func (r *Recorder) LastError() *Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

func transition(from State, op string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, op, from)
}

// Start begins a session. Only valid from idle; clears any previous output
// and stats.
func (r *Recorder) Start(cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disposed {
		return ErrDisposed
	}
	if r.state != StateIdle {
		return transition(r.state, "start")
	}
	preset, err := cfg.Resolve()
	if err != nil {
		return initializationError("invalid recording config", err)
	}

	kind := cfg.BackendFor()
	enc, err := r.newEncoder(kind, EncoderSettings{
		Format:     cfg.Format,
		Width:      preset.Width,
		Height:     preset.Height,
		FPS:        preset.FPS,
		Bitrate:    preset.Bitrate,
		FFmpegPath: cfg.FFmpegPath,
	})
	if err != nil {
		logx.L().Error("encoder setup failed", "backend", kind, "err", err)
		return initializationError(fmt.Sprintf("%v encoder setup", kind), err)
	}

	now := r.now()
	r.cfg, r.preset, r.enc = cfg, preset, enc
	r.session = uuid.New()
	r.output, r.lastErr = nil, nil
	r.started, r.pausedAt, r.pausedTotal = now, time.Time{}, 0
	r.frames, r.captureErrs, r.lastFrames = 0, 0, 0
	r.stats, r.lastPoll = Stats{}, now
	r.state = StateRecording
	r.startPollerLocked()

	logx.L().Info("recording started",
		"session", r.session, "format", cfg.Format, "quality", cfg.Quality,
		"backend", kind, "resolution", preset.Resolution(), "fps", preset.FPS)
	return nil
}

func (r *Recorder) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return transition(r.state, "pause")
	}
	r.state = StatePaused
	r.pausedAt = r.now()
	logx.L().Debug("recording paused", "session", r.session, "frames", r.frames)
	return nil
}

func (r *Recorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StatePaused {
		return transition(r.state, "resume")
	}
	r.pausedTotal += r.now().Sub(r.pausedAt)
	r.pausedAt = time.Time{}
	r.state = StateRecording
	logx.L().Debug("recording resumed", "session", r.session)
	return nil
}

// Stop finalizes the session and returns the encoded bytes. Calling Stop
// again after a successful stop returns the same buffer without encoding
// anything.
func (r *Recorder) Stop(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	if r.state == StateIdle && r.output != nil {
		out := r.output
		r.mu.Unlock()
		return out, nil
	}
	if r.state != StateRecording && r.state != StatePaused {
		st := r.state
		r.mu.Unlock()
		return nil, transition(st, "stop")
	}
	if r.state == StatePaused {
		r.pausedTotal += r.now().Sub(r.pausedAt)
	}
	r.state = StateProcessing
	r.refreshStatsLocked()
	enc, session := r.enc, r.session
	done := make(chan struct{})
	r.finalizing = done
	r.mu.Unlock()

	r.stopPoller()

	log := logx.L().With("session", session)
	out, strategy, err := Finalize(ctx, enc, r.strategies, log)
	if cerr := enc.Close(); cerr != nil {
		log.Warn("encoder close failed", "err", cerr)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.enc = nil
	r.finalizing = nil
	close(done)
	if err != nil {
		re, _ := err.(*Error)
		if re == nil {
			re = encodingError("finalize", err)
		}
		r.state, r.lastErr = StateError, re
		log.Error("recording failed", "err", re)
		return nil, re
	}
	r.output = out
	r.stats.EstimatedSize = int64(len(out))
	r.state = StateIdle
	log.Info("recording stopped", "strategy", strategy, "frames", r.frames, "bytes", len(out))
	return out, nil
}

// Reset clears an error so a new session can start.
func (r *Recorder) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case StateError, StateIdle:
		r.state = StateIdle
		r.lastErr = nil
		r.output = nil
		r.stats = Stats{}
		return nil
	}
	return transition(r.state, "reset")
}

// CaptureFrame adds a frame to the session. It is a no-op unless recording.
// Frames are scaled to the preset height keeping the source aspect.
func (r *Recorder) CaptureFrame(img image.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRecording {
		return nil
	}
	frame := r.frames + 1
	scaled := r.fit(img)
	if err := r.enc.AddFrame(scaled); err != nil {
		r.captureErrs++
		ce := captureError(frame, err)
		logx.L().Warn("frame capture failed", "session", r.session, "frame", frame, "err", err)
		return ce
	}
	r.frames = frame
	return nil
}

func (r *Recorder) fit(img image.Image) *image.RGBA {
	b := img.Bounds()
	w, h := r.targetSize(b.Dx(), b.Dy())
	if rgba, ok := img.(*image.RGBA); ok && b.Dx() == w && b.Dy() == h && b.Min == (image.Point{}) {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// targetSize keeps the source aspect at the preset height. Video backends
// get the exact preset frame and even dimensions.
func (r *Recorder) targetSize(sw, sh int) (int, int) {
	if r.cfg.BackendFor() == BackendFFmpeg {
		return r.preset.Width, r.preset.Height
	}
	h := r.preset.Height
	if sh <= 0 {
		return r.preset.Width, h
	}
	w := (sw*h/sh + 1) &^ 1
	if w < 2 {
		w = 2
	}
	return w, h
}

// Output returns the last finished recording.
func (r *Recorder) Output() ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.output, r.output != nil
}

// OutputName is the file name for the finished recording.
func (r *Recorder) OutputName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg.OutputName()
}

// WriteTo writes the finished recording to w.
func (r *Recorder) WriteTo(w io.Writer) (int64, error) {
	r.mu.Lock()
	out := r.output
	r.mu.Unlock()

	if out == nil {
		return 0, downloadError("nothing to download", ErrNoOutput)
	}
	n, err := w.Write(out)
	if err != nil {
		logx.L().Warn("download failed", "bytes", n, "err", err)
		return int64(n), downloadError("write output", err)
	}
	return int64(n), nil
}

// Stats returns the most recent polled snapshot.
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Dispose stops any session without finalizing and releases the encoder.
// If Stop is finalizing on another goroutine, Dispose waits for it first.
func (r *Recorder) Dispose() {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	r.disposed = true
	// The encoder belongs to Stop until its finalize chain returns.
	if done := r.finalizing; done != nil {
		r.mu.Unlock()
		<-done
		r.mu.Lock()
	}
	enc := r.enc
	r.enc = nil
	r.state = StateIdle
	r.output = nil
	r.mu.Unlock()

	r.stopPoller()
	if enc != nil {
		if err := enc.Close(); err != nil {
			logx.L().Warn("encoder close failed", "err", err)
		}
	}
}
