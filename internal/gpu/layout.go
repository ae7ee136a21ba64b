package gpu

import (
	"encoding/binary"
	"math"
)

// Vector record layout: baseX, baseY, angle, length.
const (
	VectorFloats     = 4
	VectorRecordSize = VectorFloats * 4

	FieldBaseX  = 0
	FieldBaseY  = 1
	FieldAngle  = 2
	FieldLength = 3
)

// UniformFloatCount is the number of float32 slots in the uniform record.
const UniformFloatCount = 20

// Uniforms is the per-frame record shared by every kernel and the renderer.
type Uniforms struct {
	Aspect float32
	Time   float32
	Zoom   float32
	Speed  float32

	// Params holds frequency, amplitude, elasticity and maxLength.
	Params [4]float32
	Color  [4]float32

	GradientType  float32
	GradientAngle float32
	GradientStops float32
	GradientScope float32

	Mouse       [2]float32
	MouseActive float32
	Seed        float32
}

// Floats packs u into slot order, padded to a multiple of four floats.
func (u Uniforms) Floats() []float32 {
	out := make([]float32, AlignFloats(UniformFloatCount))
	out[0], out[1], out[2], out[3] = u.Aspect, u.Time, u.Zoom, u.Speed
	copy(out[4:8], u.Params[:])
	copy(out[8:12], u.Color[:])
	out[12], out[13], out[14], out[15] = u.GradientType, u.GradientAngle, u.GradientStops, u.GradientScope
	out[16], out[17] = u.Mouse[0], u.Mouse[1]
	out[18] = u.MouseActive
	out[19] = u.Seed
	return out
}

// Marshal encodes u as little-endian bytes.
func (u Uniforms) Marshal() []byte {
	return EncodeFloats(u.Floats())
}

// DecodeUniforms reads a uniform record back from its slots.
func DecodeUniforms(f []float32) Uniforms {
	var u Uniforms
	if len(f) < UniformFloatCount {
		return u
	}
	u.Aspect, u.Time, u.Zoom, u.Speed = f[0], f[1], f[2], f[3]
	copy(u.Params[:], f[4:8])
	copy(u.Color[:], f[8:12])
	u.GradientType, u.GradientAngle, u.GradientStops, u.GradientScope = f[12], f[13], f[14], f[15]
	u.Mouse = [2]float32{f[16], f[17]}
	u.MouseActive = f[18]
	u.Seed = f[19]
	return u
}

// AlignFloats rounds n up to a multiple of 4 (16 bytes).
func AlignFloats(n int) int {
	return (n + 3) &^ 3
}

// EncodeFloats converts float32 values to little-endian bytes.
func EncodeFloats(f []float32) []byte {
	out := make([]byte, len(f)*4)
	for i, v := range f {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// DecodeFloats converts little-endian bytes to float32 values.
func DecodeFloats(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
