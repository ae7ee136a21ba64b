package post

import (
	"image"
	"runtime"
	"sync"

	"github.com/chewxy/math32"
)

// Frame is a floating point RGBA image, four channels per pixel in [0, 1].
type Frame struct {
	W, H int
	Pix  []float32
}

func NewFrame(w, h int) *Frame {
	return &Frame{W: w, H: h, Pix: make([]float32, w*h*4)}
}

func FromImage(img *image.RGBA) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy())
	parallelRows(f.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			src := img.Pix[y*img.Stride : y*img.Stride+f.W*4]
			dst := f.Pix[y*f.W*4 : (y+1)*f.W*4]
			for i, v := range src {
				dst[i] = float32(v) / 255
			}
		}
	})
	return f
}

func (f *Frame) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.W, f.H))
	parallelRows(f.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			src := f.Pix[y*f.W*4 : (y+1)*f.W*4]
			dst := img.Pix[y*img.Stride : y*img.Stride+f.W*4]
			for i, v := range src {
				dst[i] = uint8(clamp01(v)*255 + 0.5)
			}
		}
	})
	return img
}

func (f *Frame) at(x, y, ch int) float32 {
	if x < 0 {
		x = 0
	} else if x >= f.W {
		x = f.W - 1
	}
	if y < 0 {
		y = 0
	} else if y >= f.H {
		y = f.H - 1
	}
	return f.Pix[(y*f.W+x)*4+ch]
}

// sample reads channel ch at a fractional position, clamped to the edges.
func (f *Frame) sample(x, y float32, ch int) float32 {
	fx, fy := math32.Floor(x), math32.Floor(y)
	ix, iy := int(fx), int(fy)
	tx, ty := x-fx, y-fy
	a := f.at(ix, iy, ch) + (f.at(ix+1, iy, ch)-f.at(ix, iy, ch))*tx
	b := f.at(ix, iy+1, ch) + (f.at(ix+1, iy+1, ch)-f.at(ix, iy+1, ch))*tx
	return a + (b-a)*ty
}

func clamp01(v float32) float32 {
	return math32.Max(0, math32.Min(1, v))
}

// parallelRows splits [0, n) into contiguous chunks across CPUs.
func parallelRows(n int, fn func(start, end int)) {
	const minChunk = 16
	workers := runtime.NumCPU()
	if n <= minChunk || workers <= 1 {
		fn(0, n)
		return
	}
	if n/minChunk < workers {
		workers = n / minChunk
	}

	chunkSize := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			break
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}
