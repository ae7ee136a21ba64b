package gpu

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/san-kum/vecfield/internal/logx"
)

// DefaultMaxBufferSize bounds a single allocation on the CPU device.
const DefaultMaxBufferSize = 256 << 20

// CPUDevice runs work-groups on a pool of goroutines. Its queue is drained by
// a dedicated goroutine so that submission never blocks the caller.
type CPUDevice struct {
	workers       int
	maxBufferSize int

	queue *cpuQueue

	mu        sync.Mutex
	destroyed bool
}

// CPUOption configures a CPUDevice.
type CPUOption func(*CPUDevice)

// WithMaxBufferSize overrides the per-buffer allocation limit.
func WithMaxBufferSize(n int) CPUOption {
	return func(d *CPUDevice) { d.maxBufferSize = n }
}

// NewCPUDevice starts a CPU device. workers <= 0 uses runtime.NumCPU.
func NewCPUDevice(workers int, opts ...CPUOption) *CPUDevice {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	d := &CPUDevice{
		workers:       workers,
		maxBufferSize: DefaultMaxBufferSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = newCPUQueue()
	logx.L().Info("compute device selected", "device", d.Name(), "workers", workers)
	return d
}

func (d *CPUDevice) Name() string { return "cpu" }
func (d *CPUDevice) Queue() Queue { return d.queue }

func (d *CPUDevice) CreateBuffer(desc BufferDescriptor) (*Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroyed {
		return nil, ErrDeviceDestroyed
	}
	if desc.Size <= 0 {
		return nil, &AllocationError{Label: desc.Label, Size: desc.Size, Reason: "size must be positive"}
	}
	if desc.Size > d.maxBufferSize {
		return nil, &AllocationError{
			Label:  desc.Label,
			Size:   desc.Size,
			Reason: fmt.Sprintf("exceeds device limit of %d bytes", d.maxBufferSize),
		}
	}
	if desc.Usage == 0 {
		return nil, &AllocationError{Label: desc.Label, Size: desc.Size, Reason: "usage must not be empty"}
	}
	return newBuffer(desc), nil
}

func (d *CPUDevice) DestroyBuffer(b *Buffer) {
	if b == nil {
		return
	}
	b.destroyed.Store(true)
}

// Dispatch splits the work-group range into contiguous chunks, one per worker.
func (d *CPUDevice) Dispatch(groups int, kernel func(group int)) Command {
	workers := d.workers
	return func() error {
		if groups <= 0 {
			return nil
		}
		if groups < workers || workers <= 1 {
			for g := 0; g < groups; g++ {
				kernel(g)
			}
			return nil
		}

		chunkSize := (groups + workers - 1) / workers
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			start := w * chunkSize
			end := start + chunkSize
			if end > groups {
				end = groups
			}
			if start >= end {
				break
			}
			wg.Add(1)
			go func(start, end int) {
				defer wg.Done()
				for g := start; g < end; g++ {
					kernel(g)
				}
			}(start, end)
		}
		wg.Wait()
		return nil
	}
}

func (d *CPUDevice) Destroy() {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return
	}
	d.destroyed = true
	d.mu.Unlock()
	d.queue.close()
}

type cpuQueue struct {
	jobs chan func()

	mu     sync.Mutex
	closed bool
	err    error
	done   chan struct{}
}

func newCPUQueue() *cpuQueue {
	q := &cpuQueue{
		jobs: make(chan func(), 256),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *cpuQueue) run() {
	defer close(q.done)
	for job := range q.jobs {
		job()
	}
}

func (q *cpuQueue) enqueue(job func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrDeviceDestroyed
	}
	q.jobs <- job
	return nil
}

func (q *cpuQueue) recordErr(err error) {
	q.mu.Lock()
	if q.err == nil {
		q.err = err
	}
	q.mu.Unlock()
}

func (q *cpuQueue) WriteBuffer(b *Buffer, offset int, data []byte) error {
	if b == nil || b.Destroyed() {
		return ErrBufferDestroyed
	}
	if offset%4 != 0 || len(data)%4 != 0 {
		return ErrUnaligned
	}
	if offset < 0 || offset+len(data) > b.Size() {
		return fmt.Errorf("%w: %d+%d > %d (%s)", ErrOutOfRange, offset, len(data), b.Size(), b.Label())
	}
	staged := make([]byte, len(data))
	copy(staged, data)
	return q.enqueue(func() {
		if b.Destroyed() {
			q.recordErr(ErrBufferDestroyed)
			return
		}
		b.write(offset, staged)
	})
}

func (q *cpuQueue) Submit(cmds ...Command) {
	for _, cmd := range cmds {
		cmd := cmd
		err := q.enqueue(func() {
			if err := cmd(); err != nil {
				logx.L().Warn("device command failed", "err", err)
				q.recordErr(err)
			}
		})
		if err != nil {
			logx.L().Warn("submit after destroy dropped", "err", err)
			return
		}
	}
}

func (q *cpuQueue) OnSubmittedWorkDone(ctx context.Context) error {
	signal := make(chan struct{})
	if err := q.enqueue(func() { close(signal) }); err != nil {
		return err
	}
	select {
	case <-signal:
	case <-ctx.Done():
		return ctx.Err()
	}

	q.mu.Lock()
	err := q.err
	q.err = nil
	q.mu.Unlock()
	return err
}

func (q *cpuQueue) ReadBuffer(ctx context.Context, b *Buffer) ([]byte, error) {
	if b == nil || b.Destroyed() {
		return nil, ErrBufferDestroyed
	}
	if err := q.OnSubmittedWorkDone(ctx); err != nil {
		return nil, err
	}
	return b.bytes(), nil
}

func (q *cpuQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	<-q.done
}
