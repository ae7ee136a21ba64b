// Package engine owns the device, buffers, dispatcher, renderer, post
// pipeline and recorder of one vector field and advances them frame by
// frame. There is no global instance; callers create an Engine and pass it
// where it is needed.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"
	"sync/atomic"
	"time"

	"github.com/san-kum/vecfield/internal/anim"
	"github.com/san-kum/vecfield/internal/compute"
	"github.com/san-kum/vecfield/internal/coords"
	"github.com/san-kum/vecfield/internal/gpu"
	"github.com/san-kum/vecfield/internal/logx"
	"github.com/san-kum/vecfield/internal/post"
	"github.com/san-kum/vecfield/internal/record"
	"github.com/san-kum/vecfield/internal/render"
)

// FrameInfo describes one completed frame.
type FrameInfo struct {
	Index   uint64
	Time    float64
	Delta   float64
	Paused  bool
	Kind    anim.Kind
	Elapsed time.Duration
}

// Observer is notified after every frame, on the frame goroutine.
type Observer interface {
	OnFrame(FrameInfo)
}

type Option func(*options)

type options struct {
	newDevice func() (gpu.Device, error)
	recorder  *record.Recorder
}

// WithDevice uses dev instead of the automatically selected device.
func WithDevice(dev gpu.Device) Option {
	return func(o *options) {
		o.newDevice = func() (gpu.Device, error) { return dev, nil }
	}
}

// WithDeviceFactory defers device creation to fn.
func WithDeviceFactory(fn func() (gpu.Device, error)) Option {
	return func(o *options) { o.newDevice = fn }
}

func WithRecorder(r *record.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

type Engine struct {
	dev        gpu.Device
	buffers    *gpu.BufferManager
	dispatcher *compute.Dispatcher
	renderer   *render.Renderer
	post       *post.Pipeline
	recorder   *record.Recorder

	pending atomic.Pointer[Config]

	mu            sync.Mutex
	cfg           Config
	vectors       *gpu.Buffer
	uniforms      *gpu.Buffer
	count         int
	u             gpu.Uniforms
	time          float64
	paused        bool
	pointer       coords.Point
	pointerActive bool
	frames        uint64
	last          *image.RGBA
	observers     []Observer
	closed        bool

	closeOnce sync.Once
}

// New builds an engine for cfg. Device and buffer setup failures are
// returned as non-recoverable initialization errors.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, initError("invalid config", err)
	}
	o := options{newDevice: func() (gpu.Device, error) { return gpu.AutoSelect(), nil }}
	for _, opt := range opts {
		opt(&o)
	}

	dev, err := o.newDevice()
	if err != nil {
		logx.L().Error("device init failed", "err", err)
		return nil, initError("device setup", err)
	}

	renderer, err := render.NewRenderer(cfg.Width, cfg.Height, cfg.style())
	if err != nil {
		dev.Destroy()
		return nil, initError("renderer setup", err)
	}
	pipeline, err := post.NewPipeline(cfg.Post)
	if err != nil {
		dev.Destroy()
		return nil, initError("post pipeline setup", err)
	}
	rec := o.recorder
	if rec == nil {
		rec = record.NewRecorder()
	}

	e := &Engine{
		dev:        dev,
		buffers:    gpu.NewBufferManager(dev),
		dispatcher: compute.NewDispatcher(dev, cfg.Kind, compute.Options{Seed: cfg.Seed, AutoSeed: cfg.AutoSeed}),
		renderer:   renderer,
		post:       pipeline,
		recorder:   rec,
		cfg:        cfg,
	}

	e.uniforms, err = e.buffers.CreateUniformBuffer(gpu.UniformFloatCount)
	if err == nil {
		err = e.regenerateLocked()
	}
	if err == nil {
		err = e.writeUniformsLocked()
	}
	if err != nil {
		e.Close()
		return nil, initError("buffer setup", err)
	}

	logx.L().Info("engine ready",
		"device", dev.Name(), "glyphs", e.count, "kind", cfg.Kind,
		"surface", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))
	return e, nil
}

func initError(msg string, err error) *record.Error {
	return &record.Error{Code: record.CodeInitialization, Message: msg, Err: err}
}

func (e *Engine) AddObserver(o Observer) {
	e.mu.Lock()
	e.observers = append(e.observers, o)
	e.mu.Unlock()
}

func (e *Engine) Recorder() *record.Recorder { return e.recorder }
func (e *Engine) Device() gpu.Device         { return e.dev }

func (e *Engine) BufferStats() gpu.ManagerStats { return e.buffers.Stats() }

func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

func (e *Engine) Time() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.time
}

// Seek sets the simulation clock. The next frame computes angles at t.
func (e *Engine) Seek(t float64) {
	e.mu.Lock()
	e.time = t
	e.mu.Unlock()
}

func (e *Engine) Seed() uint32 { return e.dispatcher.Seed() }

func (e *Engine) FrameCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

// LastFrame returns the most recent post-processed frame, or nil.
func (e *Engine) LastFrame() *image.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// SetPaused freezes the simulation clock. Frames keep rendering.
func (e *Engine) SetPaused(p bool) {
	e.mu.Lock()
	e.paused = p
	e.mu.Unlock()
}

func (e *Engine) TogglePause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = !e.paused
	return e.paused
}

// SetZoom changes the view zoom. It is a viewing adjustment and is allowed
// while paused.
func (e *Engine) SetZoom(z float32) {
	if z <= 0 {
		return
	}
	e.mu.Lock()
	e.cfg.Zoom = z
	e.mu.Unlock()
}

// SetKind switches the active motion and resets the parameters to the new
// kind's defaults.
func (e *Engine) SetKind(k anim.Kind) error {
	if !k.Valid() {
		return fmt.Errorf("%w: %d", anim.ErrUnknownKind, k)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.Kind = k
	e.cfg.Params = k.Defaults()
	e.dispatcher.SetKind(k)
	e.cfg.Seed = e.dispatcher.Seed()
	if !k.UsesPointer() {
		e.pointerActive = false
	}
	if k.NeedsNeighbors() {
		e.renderer.ClearTrails()
	}
	return nil
}

func (e *Engine) SetParams(p anim.Params) {
	e.mu.Lock()
	e.cfg.Params = p.Clamp()
	e.mu.Unlock()
}

func (e *Engine) SetStyle(s render.Style) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.Shape, e.cfg.VectorWidth = s.Shape, s.Width
	e.cfg.Color, e.cfg.Background = s.Color, s.Background
	e.cfg.Gradient, e.cfg.Trails = s.Gradient, s.Trails
	e.renderer.SetStyle(s)
}

func (e *Engine) SetPostSettings(s post.Settings) error {
	if err := e.post.SetSettings(s); err != nil {
		return err
	}
	e.mu.Lock()
	e.cfg.Post = s
	e.mu.Unlock()
	return nil
}

func (e *Engine) PostStats() post.PassStats { return e.post.Stats() }

// SetPointer feeds a pointer position in surface pixels. It is ignored,
// returning false, unless the active kind reads the pointer.
func (e *Engine) SetPointer(x, y float32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.cfg.Kind.UsesPointer() {
		return false
	}
	vp := coords.Viewport{Width: float32(e.cfg.Width), Height: float32(e.cfg.Height)}
	e.pointer = coords.ScreenToNormalized(x, y, vp)
	e.pointerActive = true
	return true
}

func (e *Engine) ClearPointer() {
	e.mu.Lock()
	e.pointerActive = false
	e.mu.Unlock()
}

// ApplyConfig queues cfg. It replaces the running config at the start of
// the next frame, never mid-frame. A later call before that frame wins.
func (e *Engine) ApplyConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.pending.Store(&cfg)
	return nil
}

func (e *Engine) applyPendingLocked() error {
	next := e.pending.Swap(nil)
	if next == nil {
		return nil
	}
	prev := e.cfg
	e.cfg = *next

	if err := e.post.SetSettings(next.Post); err != nil {
		e.cfg = prev
		return err
	}
	if err := e.renderer.Resize(next.Width, next.Height); err != nil {
		e.cfg = prev
		return err
	}
	e.renderer.SetStyle(next.style())
	e.dispatcher.SetAutoSeed(next.AutoSeed)
	e.dispatcher.SetKind(next.Kind)
	if next.Seed != prev.Seed {
		e.dispatcher.SetSeed(next.Seed)
	}
	e.cfg.Seed = e.dispatcher.Seed()
	if !next.Kind.UsesPointer() {
		e.pointerActive = false
	}

	if !prev.sameGrid(*next) {
		if err := e.regenerateLocked(); err != nil {
			e.cfg.Rows, e.cfg.Cols, e.cfg.Layout = prev.Rows, prev.Cols, prev.Layout
			e.cfg.Spacing, e.cfg.VectorLength = prev.Spacing, prev.VectorLength
			return err
		}
	}
	logx.L().Info("config applied", "kind", e.cfg.Kind, "glyphs", e.count)
	return nil
}

// Regenerate rebuilds the grid positions and reallocates the vector buffer
// when rows*cols changed.
func (e *Engine) Regenerate() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return e.regenerateLocked()
}

func (e *Engine) regenerateLocked() error {
	count := e.cfg.VectorCount()
	if e.vectors == nil || e.count != count {
		buf, err := e.buffers.CreateVectorBuffer(count)
		if err != nil {
			return err
		}
		if e.vectors != nil {
			e.buffers.RecycleBuffer(e.vectors)
		}
		logx.L().Debug("vector buffer allocated", "glyphs", count, "bytes", buf.Size())
		e.vectors, e.count = buf, count
	}

	pts := coords.Generate(e.cfg.Layout, e.cfg.Rows, e.cfg.Cols, e.cfg.Aspect(), e.cfg.Spacing)
	data := make([]float32, count*gpu.VectorFloats)
	for i, p := range pts {
		rec := data[i*gpu.VectorFloats:]
		rec[gpu.FieldBaseX] = p.X
		rec[gpu.FieldBaseY] = p.Y
		rec[gpu.FieldLength] = e.cfg.VectorLength
	}
	e.dispatcher.SetGrid(e.cfg.Cols, count)
	e.renderer.ClearTrails()
	return e.buffers.UpdateBuffer(e.vectors, data, 0)
}

// UpdateVectorBuffer replaces the whole vector buffer, for example to
// restore the exact layout of a saved artifact.
func (e *Engine) UpdateVectorBuffer(data []float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if len(data) != e.count*gpu.VectorFloats {
		return fmt.Errorf("%w: got %d, want %d", ErrVectorLength, len(data), e.count*gpu.VectorFloats)
	}
	e.renderer.ClearTrails()
	return e.buffers.UpdateBuffer(e.vectors, data, 0)
}

// UpdateUniforms writes u as the whole uniform record and adopts its
// time, zoom, speed, params, color, pointer and seed. Aspect and the
// gradient descriptor are derived from the config on the next frame.
func (e *Engine) UpdateUniforms(u gpu.Uniforms) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.time = float64(u.Time)
	if u.Zoom > 0 {
		e.cfg.Zoom = u.Zoom
	}
	e.cfg.Speed = u.Speed
	e.cfg.Params = anim.ParamsFromArray(u.Params)
	e.cfg.Color.R, e.cfg.Color.G = float64(u.Color[0]), float64(u.Color[1])
	e.cfg.Color.B, e.cfg.Color.A = float64(u.Color[2]), float64(u.Color[3])
	e.pointer = coords.Point{X: u.Mouse[0], Y: u.Mouse[1]}
	e.pointerActive = u.MouseActive > 0.5 && e.cfg.Kind.UsesPointer()
	e.dispatcher.SetSeed(uint32(u.Seed))
	e.cfg.Seed = e.dispatcher.Seed()

	e.u = u
	return e.buffers.UpdateBuffer(e.uniforms, u.Floats(), 0)
}

func (e *Engine) uniformsLocked() gpu.Uniforms {
	g := e.cfg.Gradient.Descriptor()
	c := e.cfg.Color
	u := gpu.Uniforms{
		Aspect:        e.cfg.Aspect(),
		Time:          float32(e.time),
		Zoom:          e.cfg.Zoom,
		Speed:         e.cfg.Speed,
		Params:        e.cfg.Params.Array(),
		Color:         [4]float32{float32(c.R), float32(c.G), float32(c.B), float32(c.A)},
		GradientType:  g[0],
		GradientAngle: g[1],
		GradientStops: g[2],
		GradientScope: g[3],
		Seed:          float32(e.dispatcher.Seed()),
	}
	if e.pointerActive && e.cfg.Kind.UsesPointer() {
		u.Mouse = [2]float32{e.pointer.X, e.pointer.Y}
		u.MouseActive = 1
	}
	return u
}

// writeUniformsLocked always writes the full record.
func (e *Engine) writeUniformsLocked() error {
	e.u = e.uniformsLocked()
	return e.buffers.UpdateBuffer(e.uniforms, e.u.Floats(), 0)
}

func (e *Engine) readVectorsLocked(ctx context.Context) ([]float32, error) {
	raw, err := e.dev.Queue().ReadBuffer(ctx, e.vectors)
	if err != nil {
		return nil, err
	}
	return gpu.DecodeFloats(raw)[:e.count*gpu.VectorFloats], nil
}

// Frame runs one compute, render, post and capture step and returns the
// post-processed frame. While paused the clock does not advance but the
// frame is still rendered. Capture failures are logged and never returned.
func (e *Engine) Frame(ctx context.Context, delta float64) (*image.RGBA, error) {
	start := time.Now()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	if err := e.applyPendingLocked(); err != nil {
		logx.L().Warn("queued config rejected", "err", err)
	}
	if e.paused {
		delta = 0
	}
	if delta > 0 {
		e.time += delta
	}

	if err := e.writeUniformsLocked(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	// Neighbor kernels read the previous frame, so rerunning them at a
	// frozen time would still move the glyphs.
	if !(e.paused && e.cfg.Kind.NeedsNeighbors()) {
		if err := e.dispatcher.Dispatch(e.vectors, e.uniforms); err != nil {
			e.mu.Unlock()
			return nil, err
		}
	}

	floats, err := e.readVectorsLocked(ctx)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	img, err := e.renderer.Render(floats, e.count, e.u, false)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	// Pushed after drawing so trail age 1 is the previous frame's heading.
	if !e.paused {
		e.renderer.AdvanceTrails(floats, e.count)
	}
	out := e.post.Apply(img)

	e.frames++
	e.last = out
	info := FrameInfo{
		Index:  e.frames,
		Time:   e.time,
		Delta:  delta,
		Paused: e.paused,
		Kind:   e.cfg.Kind,
	}
	observers := e.observers
	e.mu.Unlock()

	if e.recorder.State() == record.StateRecording {
		if err := e.recorder.CaptureFrame(out); err != nil {
			logx.L().Debug("frame skipped by recorder", "frame", info.Index, "err", err)
		}
	}

	info.Elapsed = time.Since(start)
	for _, o := range observers {
		o.OnFrame(info)
	}
	return out, nil
}

// Angles waits for submitted work and returns one angle per glyph.
func (e *Engine) Angles(ctx context.Context) ([]float32, error) {
	floats, err := e.Vectors(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(floats)/gpu.VectorFloats)
	for i := range out {
		out[i] = floats[i*gpu.VectorFloats+gpu.FieldAngle]
	}
	return out, nil
}

// Vectors waits for submitted work and returns a copy of the vector buffer.
func (e *Engine) Vectors(ctx context.Context) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	return e.readVectorsLocked(ctx)
}

// Snapshot renders the current state as PNG. The opaque path goes through
// post-processing; the transparent path draws bare glyphs with no
// background.
func (e *Engine) Snapshot(ctx context.Context, transparent bool) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}

	floats, err := e.readVectorsLocked(ctx)
	if err != nil {
		return nil, err
	}
	img, err := e.renderer.Render(floats, e.count, e.u, transparent)
	if err != nil {
		return nil, err
	}
	if !transparent {
		img = e.post.Apply(img)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("engine: encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Close disposes the recorder and destroys every buffer and the device. It
// is safe to call more than once.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()

		e.recorder.Dispose()
		e.buffers.DestroyAll()
		e.dev.Destroy()
		logx.L().Info("engine closed")
	})
}
