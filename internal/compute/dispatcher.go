package compute

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/san-kum/vecfield/internal/anim"
	"github.com/san-kum/vecfield/internal/coords"
	"github.com/san-kum/vecfield/internal/gpu"
	"github.com/san-kum/vecfield/internal/logx"
)

// WorkGroupSize is the number of glyphs one work-group processes.
const WorkGroupSize = 64

// SeedMask keeps seeds exactly representable in a float32 uniform slot.
const SeedMask = 1<<24 - 1

var (
	ErrBufferTooSmall = errors.New("compute: vector buffer smaller than glyph count")
	ErrNoGrid         = errors.New("compute: grid not set")
)

// Groups returns the number of work-groups needed for count glyphs.
func Groups(count int) int {
	if count <= 0 {
		return 0
	}
	return (count + WorkGroupSize - 1) / WorkGroupSize
}

type Options struct {
	Seed     uint32
	AutoSeed bool
}

type Dispatcher struct {
	dev gpu.Device

	mu       sync.Mutex
	kind     anim.Kind
	seed     uint32
	autoSeed bool
	rng      *rand.Rand
	cols     int
	count    int

	// prev is only touched on the device timeline.
	prev []float32

	dispatches atomic.Uint64
}

func NewDispatcher(dev gpu.Device, kind anim.Kind, opts Options) *Dispatcher {
	return &Dispatcher{
		dev:      dev,
		kind:     kind,
		seed:     opts.Seed & SeedMask,
		autoSeed: opts.AutoSeed,
		rng:      rand.New(rand.NewSource(int64(opts.Seed))),
	}
}

func (d *Dispatcher) Kind() anim.Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.kind
}

// SetKind switches the active kernel. With auto-seed on the seed is redrawn
// immediately; otherwise it is kept so the new kernel continues from its
// closed form at the current time.
func (d *Dispatcher) SetKind(k anim.Kind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if k == d.kind {
		return
	}
	logx.L().Debug("kernel switched", "from", d.kind, "to", k)
	d.kind = k
	if d.autoSeed {
		d.reseedLocked()
	}
}

func (d *Dispatcher) Seed() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seed
}

func (d *Dispatcher) SetSeed(s uint32) {
	d.mu.Lock()
	d.seed = s & SeedMask
	d.mu.Unlock()
}

func (d *Dispatcher) SetAutoSeed(on bool) {
	d.mu.Lock()
	d.autoSeed = on
	d.mu.Unlock()
}

// Reseed draws the next seed from the dispatcher's source.
func (d *Dispatcher) Reseed() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reseedLocked()
}

func (d *Dispatcher) reseedLocked() uint32 {
	d.seed = uint32(d.rng.Int63()) & SeedMask
	return d.seed
}

// SetGrid records the grid shape. count is rows*cols.
func (d *Dispatcher) SetGrid(cols, count int) {
	d.mu.Lock()
	d.cols, d.count = cols, count
	d.mu.Unlock()
}

func (d *Dispatcher) Dispatches() uint64 { return d.dispatches.Load() }

// Dispatch submits the active kernel over every glyph. It does not wait for
// the device.
func (d *Dispatcher) Dispatch(vectors, uniforms *gpu.Buffer) error {
	d.mu.Lock()
	kind, cols, count := d.kind, d.cols, d.count
	d.mu.Unlock()

	if count <= 0 || cols <= 0 {
		return ErrNoGrid
	}
	if need := count * gpu.VectorRecordSize; vectors.Size() < need {
		return fmt.Errorf("%w: %d < %d bytes", ErrBufferTooSmall, vectors.Size(), need)
	}

	q := d.dev.Queue()
	if kind.NeedsNeighbors() {
		q.Submit(d.snapshot(vectors, count))
	}

	q.Submit(func() error {
		u := gpu.DecodeUniforms(uniforms.Floats())
		words := vectors.Floats()
		base := anim.Input{
			Time:        u.Time,
			Speed:       u.Speed,
			Params:      anim.ParamsFromArray(u.Params),
			Aspect:      u.Aspect,
			Mouse:       coords.Point{X: u.Mouse[0], Y: u.Mouse[1]},
			MouseActive: u.MouseActive > 0.5,
			Seed:        uint32(u.Seed),
			Cols:        cols,
			Count:       count,
		}
		if kind.NeedsNeighbors() {
			base.Prev = d.prev
		}

		kernel := func(group int) {
			start := group * WorkGroupSize
			for i := start; i < start+WorkGroupSize; i++ {
				if i >= count {
					return
				}
				rec := words[i*gpu.VectorFloats : (i+1)*gpu.VectorFloats]
				in := base
				in.Index = i
				in.X, in.Y = rec[gpu.FieldBaseX], rec[gpu.FieldBaseY]
				rec[gpu.FieldAngle] = anim.Angle(kind, &in)
			}
		}
		return d.dev.Dispatch(Groups(count), kernel)()
	})
	d.dispatches.Add(1)
	return nil
}

func (d *Dispatcher) snapshot(vectors *gpu.Buffer, count int) gpu.Command {
	return func() error {
		n := count * gpu.VectorFloats
		if cap(d.prev) < n {
			d.prev = make([]float32, n)
		}
		d.prev = d.prev[:n]
		copy(d.prev, vectors.Floats()[:n])
		return nil
	}
}
