package gpu

import (
	"context"
	"encoding/binary"
	"math"
	"strings"
	"sync/atomic"
)

// Usage is a bit set describing how a buffer is bound.
type Usage uint32

const (
	UsageStorage Usage = 1 << iota
	UsageUniform
	UsageVertex
	UsageCopySrc
	UsageCopyDst
	UsageMapRead
)

func (u Usage) String() string {
	if u == 0 {
		return "none"
	}
	names := []string{"storage", "uniform", "vertex", "copy-src", "copy-dst", "map-read"}
	parts := make([]string, 0, len(names))
	for i, n := range names {
		if u&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, "|")
}

// BufferDescriptor describes a buffer to create. Two buffers are
// interchangeable only when Size and Usage both match.
type BufferDescriptor struct {
	Size  int
	Usage Usage
	Label string
}

type poolKey struct {
	size  int
	usage Usage
}

func (d BufferDescriptor) key() poolKey { return poolKey{size: d.Size, usage: d.Usage} }

var nextBufferID atomic.Uint64

// Buffer is a device-resident allocation. Its contents may only be touched on
// the device timeline (inside a Command) or after OnSubmittedWorkDone.
type Buffer struct {
	id        uint64
	desc      BufferDescriptor
	words     []float32
	destroyed atomic.Bool
}

func newBuffer(desc BufferDescriptor) *Buffer {
	return &Buffer{
		id:    nextBufferID.Add(1),
		desc:  desc,
		words: make([]float32, (desc.Size+3)/4),
	}
}

func (b *Buffer) ID() uint64                   { return b.id }
func (b *Buffer) Size() int                    { return b.desc.Size }
func (b *Buffer) Usage() Usage                 { return b.desc.Usage }
func (b *Buffer) Label() string                { return b.desc.Label }
func (b *Buffer) Descriptor() BufferDescriptor { return b.desc }
func (b *Buffer) Destroyed() bool              { return b.destroyed.Load() }

// Floats exposes the buffer contents as float32 words.
func (b *Buffer) Floats() []float32 {
	return b.words
}

func (b *Buffer) write(offset int, data []byte) {
	base := offset / 4
	for i := 0; i+4 <= len(data); i += 4 {
		b.words[base+i/4] = math.Float32frombits(binary.LittleEndian.Uint32(data[i:]))
	}
}

func (b *Buffer) bytes() []byte {
	out := make([]byte, b.desc.Size)
	for i := 0; i+4 <= len(out); i += 4 {
		binary.LittleEndian.PutUint32(out[i:], math.Float32bits(b.words[i/4]))
	}
	return out
}

// Command is a unit of work executed in submission order on the device timeline.
type Command func() error

// Queue orders buffer writes and commands on the device timeline.
type Queue interface {
	// WriteBuffer copies data immediately and schedules the write. Offset and
	// len(data) must be multiples of 4.
	WriteBuffer(b *Buffer, offset int, data []byte) error
	// Submit enqueues commands without waiting for them.
	Submit(cmds ...Command)
	// OnSubmittedWorkDone blocks until everything submitted so far has run and
	// returns the first command error since the previous call.
	OnSubmittedWorkDone(ctx context.Context) error
	// ReadBuffer waits for submitted work and returns a copy of b's bytes.
	ReadBuffer(ctx context.Context, b *Buffer) ([]byte, error)
}

// Device creates buffers and runs compute work.
type Device interface {
	Name() string
	CreateBuffer(desc BufferDescriptor) (*Buffer, error)
	DestroyBuffer(b *Buffer)
	Queue() Queue
	// Dispatch returns a command that runs kernel once per work-group index.
	Dispatch(groups int, kernel func(group int)) Command
	Destroy()
}

// AutoSelect returns the best available device.
func AutoSelect() Device {
	return NewCPUDevice(0)
}
