// Package gpu provides the compute device abstraction and the buffer manager
// that owns every device-resident buffer.
//
// A [Device] creates buffers and exposes an ordered, asynchronous [Queue].
// Buffer writes and compute dispatches are enqueued and run on the device
// timeline; the caller only blocks when it needs results:
//
//	dev := gpu.AutoSelect()
//	bm := gpu.NewBufferManager(dev)
//	buf, _ := bm.CreateVectorBuffer(rows * cols)
//	_ = bm.UpdateBuffer(buf, floats, 0)
//	dev.Queue().Submit(dev.Dispatch(groups, kernel))
//	_ = dev.Queue().OnSubmittedWorkDone(ctx) // before reading pixels or buffers
//
// # Backends
//
//   - CPU: work-groups fanned out over worker goroutines, queue drained by
//     its own goroutine
//
// # Memory layouts
//
// Vector records are four packed float32 values per glyph
// (baseX, baseY, angle, length). The uniform record is padded to 16 bytes.
package gpu
