// Package export writes glyph fields in formats other than raster images.
package export

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/gogpu/gg"

	"github.com/san-kum/vecfield/internal/coords"
	"github.com/san-kum/vecfield/internal/gpu"
	"github.com/san-kum/vecfield/internal/render"
)

// SVGOptions mirrors the raster renderer's inputs.
type SVGOptions struct {
	Width, Height int
	Zoom          float32
	// Scale multiplies each record's length, like the max length parameter.
	Scale       float32
	Shape       render.Shape
	StrokeWidth float64
	Color       gg.RGBA
	Background  gg.RGBA
	// Transparent omits the background rectangle.
	Transparent bool
}

func hex(c gg.RGBA) string {
	to8 := func(v float64) int { return int(math.Round(math.Max(0, math.Min(1, v)) * 255)) }
	return fmt.Sprintf("#%02x%02x%02x", to8(c.R), to8(c.G), to8(c.B))
}

// FieldSVG writes one SVG element per glyph, using the same placement as
// the raster renderer: screen y points down, so angle a runs along
// (cos a, -sin a).
func FieldSVG(w io.Writer, vectors []float32, opts SVGOptions) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("export: invalid size %dx%d", opts.Width, opts.Height)
	}
	zoom := float64(opts.Zoom)
	if zoom <= 0 {
		zoom = 1
	}
	scale := float64(opts.Scale)
	if scale <= 0 {
		scale = 1
	}
	vp := coords.Viewport{Width: float32(opts.Width), Height: float32(opts.Height)}
	halfH := float64(opts.Height) / 2

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
`, opts.Width, opts.Height, opts.Width, opts.Height)
	if !opts.Transparent {
		fmt.Fprintf(bw, "<rect width=\"100%%\" height=\"100%%\" fill=\"%s\"/>\n", hex(opts.Background))
	}
	color := hex(opts.Color)
	fmt.Fprintf(bw, "<g stroke=\"%s\" fill=\"%s\" stroke-width=\"%.2f\" stroke-linecap=\"round\" opacity=\"%.3f\">\n",
		color, color, opts.StrokeWidth, opts.Color.A)

	for i := 0; i+gpu.VectorFloats <= len(vectors); i += gpu.VectorFloats {
		sx, sy := coords.NormalizedToScreen(coords.Point{X: vectors[i+gpu.FieldBaseX], Y: vectors[i+gpu.FieldBaseY]}, vp, float32(zoom))
		x, y := float64(sx), float64(sy)
		length := float64(vectors[i+gpu.FieldLength]) * scale * zoom * halfH
		if length <= 0 {
			continue
		}
		a := float64(vectors[i+gpu.FieldAngle])
		dx, dy := math.Cos(a), -math.Sin(a)
		tipX, tipY := x+dx*length, y+dy*length

		switch opts.Shape {
		case render.ShapeTriangle:
			half := length * 0.3
			px, py := -dy*half, dx*half
			fmt.Fprintf(bw, "<polygon stroke=\"none\" points=\"%.2f,%.2f %.2f,%.2f %.2f,%.2f\"/>\n",
				tipX, tipY, x+px, y+py, x-px, y-py)
		case render.ShapeCircle:
			r := math.Max(length*0.2, opts.StrokeWidth/2)
			fmt.Fprintf(bw, "<circle stroke=\"none\" cx=\"%.2f\" cy=\"%.2f\" r=\"%.2f\"/>\n",
				x+dx*length*0.5, y+dy*length*0.5, r)
		case render.ShapeArc:
			r := length * 0.5
			screen := math.Atan2(dy, dx)
			x0, y0 := x+r*math.Cos(screen-0.6), y+r*math.Sin(screen-0.6)
			x1, y1 := x+r*math.Cos(screen+0.6), y+r*math.Sin(screen+0.6)
			fmt.Fprintf(bw, "<path fill=\"none\" d=\"M%.2f,%.2f A%.2f,%.2f 0 0 1 %.2f,%.2f\"/>\n",
				x0, y0, r, r, x1, y1)
		default:
			fmt.Fprintf(bw, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\"/>\n", x, y, tipX, tipY)
		}
	}

	bw.WriteString("</g>\n</svg>\n")
	return bw.Flush()
}
