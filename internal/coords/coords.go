// Package coords converts between screen, normalized and clip space and
// generates glyph grid layouts.
//
// Normalized space is Y-up and spans [-aspect, aspect] × [-1, 1]. All
// simulation math happens there; rendering projects it onto pixels.
//
// Every function in this package is pure.
package coords

import "github.com/chewxy/math32"

// Viewport is a pixel rectangle with its origin at the top-left corner.
type Viewport struct {
	Width  float32
	Height float32
}

// Aspect returns width/height, or 1 for a degenerate viewport.
func (v Viewport) Aspect() float32 {
	if v.Width <= 0 || v.Height <= 0 {
		return 1
	}
	return v.Width / v.Height
}

// Point is a position in normalized space.
type Point struct {
	X, Y float32
}

// ScreenToNormalized maps pixel coordinates into normalized space.
func ScreenToNormalized(x, y float32, vp Viewport) Point {
	aspect := vp.Aspect()
	if vp.Width <= 0 || vp.Height <= 0 {
		return Point{}
	}
	nx := (x/vp.Width)*2 - 1
	ny := 1 - (y/vp.Height)*2
	return Point{X: nx * aspect, Y: ny}
}

// NormalizedToScreen is the inverse of ScreenToNormalized, with zoom applied
// around the origin.
func NormalizedToScreen(p Point, vp Viewport, zoom float32) (float32, float32) {
	aspect := vp.Aspect()
	if zoom == 0 {
		zoom = 1
	}
	nx := p.X * zoom / aspect
	ny := p.Y * zoom
	return (nx + 1) * 0.5 * vp.Width, (1 - ny) * 0.5 * vp.Height
}

// NormalizedToClip maps normalized space onto clip space [-1, 1]².
func NormalizedToClip(p Point, aspect float32) Point {
	if aspect == 0 {
		aspect = 1
	}
	return Point{X: p.X / aspect, Y: p.Y}
}

// ClipToNormalized is the inverse of NormalizedToClip.
func ClipToNormalized(p Point, aspect float32) Point {
	return Point{X: p.X * aspect, Y: p.Y}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float32 {
	return math32.Hypot(b.X-a.X, b.Y-a.Y)
}

// Angle returns the direction from a to b in radians.
func Angle(a, b Point) float32 {
	return math32.Atan2(b.Y-a.Y, b.X-a.X)
}

// Lerp interpolates linearly between a and b.
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
