package gui

import (
	"image"
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// upload copies the post-processed frame into the field texture,
// recreating the texture when the surface size changes.
func (a *App) upload(frame *image.RGBA) {
	if frame == nil {
		return
	}
	w, h := frame.Rect.Dx(), frame.Rect.Dy()
	if !a.hasTex || w != a.texW || h != a.texH {
		if a.hasTex {
			rl.UnloadTexture(a.tex)
		}
		a.tex = rl.LoadTextureFromImage(rl.NewImageFromImage(frame))
		rl.SetTextureFilter(a.tex, rl.FilterBilinear)
		a.texW, a.texH, a.hasTex = w, h, true
	}
	a.pixels = toPixels(frame, a.pixels)
	rl.UpdateTexture(a.tex, a.pixels)
}

// toPixels repacks frame into dst, reusing its capacity.
func toPixels(frame *image.RGBA, dst []color.RGBA) []color.RGBA {
	w, h := frame.Rect.Dx(), frame.Rect.Dy()
	n := w * h
	if cap(dst) < n {
		dst = make([]color.RGBA, n)
	}
	dst = dst[:n]
	for y := 0; y < h; y++ {
		row := frame.Pix[y*frame.Stride:]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+4]
			dst[y*w+x] = color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
		}
	}
	return dst
}

// fitRect letterboxes a srcW×srcH surface into the window.
func fitRect(winW, winH, srcW, srcH float32) rl.Rectangle {
	if srcW <= 0 || srcH <= 0 {
		return rl.Rectangle{}
	}
	scale := min(winW/srcW, winH/srcH)
	w, h := srcW*scale, srcH*scale
	return rl.Rectangle{X: (winW - w) / 2, Y: (winH - h) / 2, Width: w, Height: h}
}

// toSurface maps a window position inside dst back to surface pixels.
func toSurface(x, y float32, dst rl.Rectangle, srcW, srcH float32) (float32, float32, bool) {
	if dst.Width <= 0 || dst.Height <= 0 {
		return 0, 0, false
	}
	if x < dst.X || y < dst.Y || x > dst.X+dst.Width || y > dst.Y+dst.Height {
		return 0, 0, false
	}
	return (x - dst.X) / dst.Width * srcW, (y - dst.Y) / dst.Height * srcH, true
}

func (a *App) drawField() {
	if !a.hasTex {
		return
	}
	src := rl.Rectangle{Width: float32(a.texW), Height: float32(a.texH)}
	dst := fitRect(float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight()), src.Width, src.Height)
	rl.DrawTexturePro(a.tex, src, dst, rl.NewVector2(0, 0), 0, rl.White)
}

// DrawTelemetry plots recent frame times in the bottom-right corner.
func (a *App) DrawTelemetry() {
	if len(a.Telemetry) < 2 {
		return
	}
	const w, h = 200, 60
	x0 := float32(rl.GetScreenWidth() - w - 20)
	y0 := float32(rl.GetScreenHeight() - h - 20)

	hi := 1.0
	for _, v := range a.Telemetry {
		hi = max(hi, v)
	}
	points := make([]rl.Vector2, len(a.Telemetry))
	for i, v := range a.Telemetry {
		px := x0 + float32(i)/float32(maxTiming-1)*w
		py := y0 + h - float32(v/hi)*h
		points[i] = rl.NewVector2(px, py)
	}
	rl.DrawLineStrip(points, ColAccent)
	a.drawText("frame ms", int(x0), int(y0)-16, 12, ColTextDim)
}
