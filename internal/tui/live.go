package tui

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/san-kum/vecfield/internal/coords"
	"github.com/san-kum/vecfield/internal/engine"
	"github.com/san-kum/vecfield/internal/gpu"
)

const (
	width       = 70
	height      = 20
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

var arrows = [8]rune{'→', '↗', '↑', '↖', '←', '↙', '↓', '↘'}

// arrow picks the rune closest to angle, measured counter-clockwise from +x.
func arrow(angle float32) rune {
	a := math.Mod(float64(angle), 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	i := int(math.Round(a/(math.Pi/4))) % len(arrows)
	return arrows[i]
}

// Canvas rasterizes glyphs as arrow runes, one cell per glyph.
type Canvas struct {
	w, h  int
	cells [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{}
	c.Resize(w, h)
	return c
}

func (c *Canvas) Resize(w, h int) {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	c.w, c.h = w, h
	c.cells = make([][]rune, h)
	for i := range c.cells {
		c.cells[i] = make([]rune, w)
	}
}

func (c *Canvas) Size() (int, int) { return c.w, c.h }

func (c *Canvas) clear() {
	for y := range c.cells {
		for x := range c.cells[y] {
			c.cells[y][x] = ' '
		}
	}
}

func (c *Canvas) set(x, y int, r rune) {
	if x >= 0 && x < c.w && y >= 0 && y < c.h {
		c.cells[y][x] = r
	}
}

// Draw maps each record's base position into the canvas. Terminal cells
// are about twice as tall as wide, which the aspect argument absorbs.
func (c *Canvas) Draw(vectors []float32, aspect, zoom float32) {
	c.clear()
	vp := coords.Viewport{Width: float32(c.w - 1), Height: float32(c.h - 1)}
	for i := 0; i+gpu.VectorFloats <= len(vectors); i += gpu.VectorFloats {
		p := coords.Point{X: vectors[i+gpu.FieldBaseX] / aspect * vp.Aspect(), Y: vectors[i+gpu.FieldBaseY]}
		x, y := coords.NormalizedToScreen(p, vp, zoom)
		c.set(int(x+0.5), int(y+0.5), arrow(vectors[i+gpu.FieldAngle]))
	}
}

func (c *Canvas) Lines() []string {
	out := make([]string, len(c.cells))
	for i, row := range c.cells {
		out[i] = string(row)
	}
	return out
}

func (c *Canvas) String() string {
	return strings.Join(c.Lines(), "\n")
}

// LiveRenderer prints the field to a plain terminal after each engine
// frame, at most frameRate times per second.
type LiveRenderer struct {
	eng       *engine.Engine
	out       io.Writer
	frameRate int
	lastFrame time.Time
	canvas    *Canvas
}

func NewLiveRenderer(eng *engine.Engine, out io.Writer, frameRate int) *LiveRenderer {
	if frameRate <= 0 {
		frameRate = 15
	}
	return &LiveRenderer{
		eng:       eng,
		out:       out,
		frameRate: frameRate,
		canvas:    NewCanvas(width, height),
	}
}

func (r *LiveRenderer) OnFrame(info engine.FrameInfo) {
	elapsed := time.Since(r.lastFrame)
	if elapsed < time.Second/time.Duration(r.frameRate) {
		return
	}
	r.lastFrame = time.Now()

	vectors, err := r.eng.Vectors(context.Background())
	if err != nil {
		return
	}
	cfg := r.eng.Config()
	r.canvas.Draw(vectors, cfg.Aspect(), cfg.Zoom)
	r.render(info)
}

func (r *LiveRenderer) render(info engine.FrameInfo) {
	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(fmt.Sprintf("  %s  t=%.2fs  frame %d  %s\n", info.Kind, info.Time, info.Index, info.Elapsed.Round(time.Microsecond)))
	b.WriteString("  " + strings.Repeat("-", width) + "\n")
	for _, row := range r.canvas.Lines() {
		b.WriteString("  ")
		b.WriteString(row)
		b.WriteString("\n")
	}
	b.WriteString("  " + strings.Repeat("-", width) + "\n")
	fmt.Fprint(r.out, b.String())
}

func (r *LiveRenderer) Start() { fmt.Fprint(r.out, hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Fprint(r.out, showCursor) }
