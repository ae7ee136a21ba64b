package gpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/san-kum/vecfield/internal/logx"
)

// ErrManagerClosed is returned by a BufferManager after DestroyAll.
var ErrManagerClosed = errors.New("gpu: buffer manager destroyed")

// BufferManager owns every buffer created on a device. Buffers handed back
// through RecycleBuffer are reused for descriptors with the same size and
// usage.
type BufferManager struct {
	dev Device

	mu     sync.Mutex
	live   map[uint64]*Buffer
	pool   map[poolKey][]*Buffer
	closed bool
}

// ManagerStats reports buffer counts and bytes.
type ManagerStats struct {
	Live        int
	Pooled      int
	LiveBytes   int
	PooledBytes int
}

func NewBufferManager(dev Device) *BufferManager {
	return &BufferManager{
		dev:  dev,
		live: make(map[uint64]*Buffer),
		pool: make(map[poolKey][]*Buffer),
	}
}

func (m *BufferManager) Device() Device { return m.dev }

func (m *BufferManager) CreateBuffer(desc BufferDescriptor) (*Buffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}

	key := desc.key()
	if idle := m.pool[key]; len(idle) > 0 {
		b := idle[len(idle)-1]
		m.pool[key] = idle[:len(idle)-1]
		m.live[b.ID()] = b
		return b, nil
	}

	b, err := m.dev.CreateBuffer(desc)
	if err != nil {
		logx.L().Error("buffer allocation failed", "label", desc.Label, "size", desc.Size, "err", err)
		return nil, fmt.Errorf("create buffer %q: %w", desc.Label, err)
	}
	m.live[b.ID()] = b
	return b, nil
}

// CreateVectorBuffer allocates room for count vector records.
func (m *BufferManager) CreateVectorBuffer(count int) (*Buffer, error) {
	return m.CreateBuffer(BufferDescriptor{
		Size:  count * VectorRecordSize,
		Usage: UsageStorage | UsageVertex | UsageCopyDst | UsageCopySrc,
		Label: "vectors",
	})
}

// CreateUniformBuffer allocates floatCount slots rounded up to 16 bytes.
func (m *BufferManager) CreateUniformBuffer(floatCount int) (*Buffer, error) {
	return m.CreateBuffer(BufferDescriptor{
		Size:  AlignFloats(floatCount) * 4,
		Usage: UsageUniform | UsageCopyDst,
		Label: "uniforms",
	})
}

// UpdateBuffer enqueues a write of data at byte offset. The write lands on
// the device timeline; wait on the queue before reading the buffer back.
func (m *BufferManager) UpdateBuffer(b *Buffer, data []float32, offset int) error {
	if err := m.dev.Queue().WriteBuffer(b, offset, EncodeFloats(data)); err != nil {
		return fmt.Errorf("update buffer %q: %w", b.Label(), err)
	}
	return nil
}

// RecycleBuffer returns b to the idle pool.
func (m *BufferManager) RecycleBuffer(b *Buffer) {
	if b == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	if _, ok := m.live[b.ID()]; !ok {
		return
	}
	delete(m.live, b.ID())
	key := b.Descriptor().key()
	m.pool[key] = append(m.pool[key], b)
}

// DestroyAll releases every live and pooled buffer. Calls after the first
// are no-ops.
func (m *BufferManager) DestroyAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true

	n := 0
	for id, b := range m.live {
		m.dev.DestroyBuffer(b)
		delete(m.live, id)
		n++
	}
	for key, idle := range m.pool {
		for _, b := range idle {
			m.dev.DestroyBuffer(b)
			n++
		}
		delete(m.pool, key)
	}
	logx.L().Debug("buffers destroyed", "count", n)
}

func (m *BufferManager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var s ManagerStats
	for _, b := range m.live {
		s.Live++
		s.LiveBytes += b.Size()
	}
	for _, idle := range m.pool {
		for _, b := range idle {
			s.Pooled++
			s.PooledBytes += b.Size()
		}
	}
	return s
}
