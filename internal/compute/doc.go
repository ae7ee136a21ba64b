// Package compute dispatches the active motion kernel over the vector buffer.
//
// A [Dispatcher] rounds the glyph count up to whole work-groups of
// [WorkGroupSize] and submits one device command per frame:
//
//	d := compute.NewDispatcher(dev, anim.Wave, compute.Options{Seed: 7})
//	d.SetGrid(cols, rows*cols)
//	_ = d.Dispatch(vectors, uniforms)
//
// Kernels read the uniform buffer on the device timeline, so the frame's
// uniform write must be enqueued before Dispatch. Neighbor kernels such as
// flocking read a copy of the previous frame taken before any record is
// rewritten.
package compute
