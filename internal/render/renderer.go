package render

import (
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/gogpu/gg"

	"github.com/san-kum/vecfield/internal/coords"
	"github.com/san-kum/vecfield/internal/gpu"
	"github.com/san-kum/vecfield/internal/logx"
)

// Style is everything the renderer needs besides the per-frame buffers.
type Style struct {
	Shape      Shape
	Width      float64
	Color      gg.RGBA
	Background gg.RGBA
	Gradient   Gradient
	Trails     TrailConfig
}

func DefaultStyle() Style {
	return Style{
		Shape:      ShapeLine,
		Width:      2,
		Color:      gg.RGBA{R: 0.35, G: 0.8, B: 1, A: 1},
		Background: gg.RGBA{R: 0.02, G: 0.02, B: 0.05, A: 1},
		Trails:     TrailConfig{Length: 6, Fade: FadeLinear, Decay: 0.6},
	}
}

// Renderer rasterizes the vector field with gg.
type Renderer struct {
	mu     sync.Mutex
	width  int
	height int
	style  Style
	trails *Trails
}

func NewRenderer(width, height int, style Style) (*Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSurface, width, height)
	}
	return &Renderer{
		width:  width,
		height: height,
		style:  style,
		trails: NewTrails(style.Trails.Length, 0),
	}, nil
}

func (r *Renderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

// Resize changes the surface size. Trail history is kept.
func (r *Renderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSurface, width, height)
	}
	r.mu.Lock()
	r.width, r.height = width, height
	r.mu.Unlock()
	return nil
}

func (r *Renderer) Style() Style {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.style
}

func (r *Renderer) SetStyle(s Style) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.Trails.Length != r.style.Trails.Length {
		r.trails.Reset(s.Trails.Length, r.trails.Count())
	}
	r.style = s
}

// AdvanceTrails records the angles just drawn. Call once per simulated frame,
// after Render, so the next frame shows them as its most recent trail.
func (r *Renderer) AdvanceTrails(vectors []float32, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.style.Trails.Enabled {
		r.trails.Push(vectors, count)
	}
}

// ClearTrails drops trail history, for example after the grid changes.
func (r *Renderer) ClearTrails() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trails.Reset(r.style.Trails.Length, 0)
}

type glyphGeom struct {
	x, y   float64
	length float64
}

// Render draws count glyphs from vectors. When transparent is set the
// background is left clear; geometry is identical either way.
func (r *Renderer) Render(vectors []float32, count int, u gpu.Uniforms, transparent bool) (*image.RGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(vectors) < count*gpu.VectorFloats {
		return nil, fmt.Errorf("render: %d floats for %d glyphs", len(vectors), count)
	}

	dc := gg.NewContext(r.width, r.height)
	defer dc.Close()
	if transparent {
		dc.Clear()
	} else {
		dc.ClearWithColor(r.style.Background)
	}

	zoom := float64(u.Zoom)
	if zoom <= 0 {
		zoom = 1
	}
	scale := float64(u.Params[3])
	if scale <= 0 {
		scale = 1
	}
	vp := coords.Viewport{Width: float32(r.width), Height: float32(r.height)}
	halfH := float64(r.height) / 2

	dc.SetLineWidth(r.style.Width)
	dc.SetLineCap(gg.LineCapRound)

	var field gg.Brush
	if r.style.Gradient.Enabled() && r.style.Gradient.Scope == ScopeField {
		field = r.fieldBrush(1)
	}

	var failed int
	for i := 0; i < count; i++ {
		rec := vectors[i*gpu.VectorFloats : (i+1)*gpu.VectorFloats]
		sx, sy := coords.NormalizedToScreen(coords.Point{X: rec[gpu.FieldBaseX], Y: rec[gpu.FieldBaseY]}, vp, float32(zoom))
		g := glyphGeom{
			x:      float64(sx),
			y:      float64(sy),
			length: float64(rec[gpu.FieldLength]) * scale * zoom * halfH,
		}

		if r.style.Trails.Enabled {
			for age := r.trails.Len(); age >= 1; age-- {
				a, ok := r.trails.At(i, age)
				if !ok {
					continue
				}
				if err := r.drawGlyph(dc, g, float64(a), r.style.Trails.Opacity(age), field); err != nil {
					failed++
				}
			}
		}
		if err := r.drawGlyph(dc, g, float64(rec[gpu.FieldAngle]), 1, field); err != nil {
			failed++
		}
	}
	if failed > 0 {
		logx.L().Warn("glyphs failed to rasterize", "count", failed)
	}

	img, ok := dc.Image().(*image.RGBA)
	if !ok {
		return nil, fmt.Errorf("render: unexpected image type %T", dc.Image())
	}
	return img, nil
}

func (r *Renderer) fieldBrush(alpha float64) gg.Brush {
	w, h := float64(r.width), float64(r.height)
	cx, cy := w/2, h/2
	half := math.Hypot(w, h) / 2
	g := r.style.Gradient
	dx, dy := math.Cos(g.Angle)*half, -math.Sin(g.Angle)*half
	return g.brush(cx-dx, cy-dy, cx+dx, cy+dy, half, alpha)
}

func (r *Renderer) setPaint(dc *gg.Context, g glyphGeom, tipX, tipY, alpha float64, field gg.Brush) {
	grad := r.style.Gradient
	switch {
	case field != nil && alpha == 1:
		dc.SetStrokeBrush(field)
	case field != nil:
		dc.SetStrokeBrush(r.fieldBrush(alpha))
	case grad.Enabled():
		dc.SetStrokeBrush(grad.brush(g.x, g.y, tipX, tipY, g.length, alpha))
	default:
		c := r.style.Color
		dc.SetRGBA(c.R, c.G, c.B, c.A*alpha)
	}
}

// drawGlyph draws one shape. Screen space is y-down, so the direction of
// angle a is (cos a, -sin a).
func (r *Renderer) drawGlyph(dc *gg.Context, g glyphGeom, a, alpha float64, field gg.Brush) error {
	if alpha <= 0 || g.length <= 0 {
		return nil
	}
	dx, dy := math.Cos(a), -math.Sin(a)
	tipX, tipY := g.x+dx*g.length, g.y+dy*g.length
	r.setPaint(dc, g, tipX, tipY, alpha, field)

	switch r.style.Shape {
	case ShapeTriangle:
		half := g.length * 0.3
		px, py := -dy*half, dx*half
		dc.MoveTo(tipX, tipY)
		dc.LineTo(g.x+px, g.y+py)
		dc.LineTo(g.x-px, g.y-py)
		dc.ClosePath()
		return dc.Fill()
	case ShapeArc:
		screen := math.Atan2(dy, dx)
		dc.DrawArc(g.x, g.y, g.length*0.5, screen-0.6, screen+0.6)
		return dc.Stroke()
	case ShapeCircle:
		cx, cy := g.x+dx*g.length*0.5, g.y+dy*g.length*0.5
		dc.DrawCircle(cx, cy, math.Max(g.length*0.2, r.style.Width/2))
		return dc.Fill()
	default:
		dc.MoveTo(g.x, g.y)
		dc.LineTo(tipX, tipY)
		return dc.Stroke()
	}
}
