package post

import (
	"errors"
	"fmt"
	"math"

	"github.com/chewxy/math32"
)

// Knee is the soft-threshold width of the bright-pass.
const Knee = 0.5

const epsilon = 1e-4

var ErrBlurQuality = errors.New("post: blur quality must be 5, 9 or 13 taps")

// Luminance uses Rec. 709 weights.
func Luminance(r, g, b float32) float32 {
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// BrightContribution is the multiplier the bright-pass applies to a pixel of
// luminance lum. It is zero below threshold-Knee and ramps quadratically
// through the knee.
func BrightContribution(lum, threshold float32) float32 {
	soft := math32.Max(0, math32.Min(2*Knee, lum-threshold+Knee))
	soft = soft * soft / (4*Knee + epsilon)
	return math32.Max(soft, lum-threshold) / math32.Max(lum, epsilon)
}

// BrightPass keeps only the light above threshold.
func BrightPass(src *Frame, threshold float32) *Frame {
	dst := NewFrame(src.W, src.H)
	parallelRows(src.H, func(y0, y1 int) {
		for i := y0 * src.W * 4; i < y1*src.W*4; i += 4 {
			r, g, b := src.Pix[i], src.Pix[i+1], src.Pix[i+2]
			c := BrightContribution(Luminance(r, g, b), threshold)
			dst.Pix[i] = r * c
			dst.Pix[i+1] = g * c
			dst.Pix[i+2] = b * c
			dst.Pix[i+3] = src.Pix[i+3] * math32.Min(1, c)
		}
	})
	return dst
}

// GaussianWeights returns a normalized kernel of taps weights with
// sigma = (taps-1)/4.
func GaussianWeights(taps int) ([]float32, error) {
	if taps != 5 && taps != 9 && taps != 13 {
		return nil, fmt.Errorf("%w: got %d", ErrBlurQuality, taps)
	}
	sigma := float64(taps-1) / 4
	half := taps / 2
	w := make([]float64, taps)
	var sum float64
	for i := range w {
		x := float64(i - half)
		w[i] = math.Exp(-x * x / (2 * sigma * sigma))
		sum += w[i]
	}
	out := make([]float32, taps)
	for i := range w {
		out[i] = float32(w[i] / sum)
	}
	return out, nil
}

// Blur runs one direction of the separable Gaussian. step is the distance in
// texels between taps.
func Blur(src *Frame, weights []float32, step float32, horizontal bool) *Frame {
	dst := NewFrame(src.W, src.H)
	half := len(weights) / 2
	if step <= 0 {
		step = 1
	}
	parallelRows(src.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < src.W; x++ {
				var acc [4]float32
				for k, w := range weights {
					off := float32(k-half) * step
					sx, sy := float32(x), float32(y)
					if horizontal {
						sx += off
					} else {
						sy += off
					}
					for ch := 0; ch < 4; ch++ {
						acc[ch] += w * src.sample(sx, sy, ch)
					}
				}
				copy(dst.Pix[(y*src.W+x)*4:], acc[:])
			}
		}
	})
	return dst
}

// ChromaticAberration pushes red outward and blue inward along the radius
// from the center. The shift reaches intensity*maxOffset pixels at the
// corners.
func ChromaticAberration(src *Frame, intensity, maxOffset float32) *Frame {
	dst := NewFrame(src.W, src.H)
	cx, cy := float32(src.W)/2, float32(src.H)/2
	corner := math32.Hypot(cx, cy)
	if corner == 0 {
		copy(dst.Pix, src.Pix)
		return dst
	}
	shift := intensity * maxOffset
	parallelRows(src.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < src.W; x++ {
				px, py := float32(x)+0.5, float32(y)+0.5
				dx, dy := (px-cx)/corner*shift, (py-cy)/corner*shift
				i := (y*src.W + x) * 4
				dst.Pix[i] = src.sample(float32(x)+dx, float32(y)+dy, 0)
				dst.Pix[i+1] = src.Pix[i+1]
				dst.Pix[i+2] = src.sample(float32(x)-dx, float32(y)-dy, 2)
				dst.Pix[i+3] = src.Pix[i+3]
			}
		}
	})
	return dst
}

func smoothstep(e0, e1, x float32) float32 {
	if e1 == e0 {
		if x < e0 {
			return 0
		}
		return 1
	}
	t := clamp01((x - e0) / (e1 - e0))
	return t * t * (3 - 2*t)
}

// VignetteFactor is the darkening multiplier at normalized radius d, where
// d = 1 at the corners.
func VignetteFactor(d, intensity, softness float32) float32 {
	edge := math32.Max(0, 1-softness)
	return 1 - intensity*smoothstep(edge, 1, d)
}

// Grade applies exposure, contrast, saturation and brightness in that order.
func Grade(r, g, b float32, t Tone) (float32, float32, float32) {
	exp := math32.Pow(2, t.Exposure)
	r, g, b = r*exp, g*exp, b*exp

	r = (r-0.5)*t.Contrast + 0.5
	g = (g-0.5)*t.Contrast + 0.5
	b = (b-0.5)*t.Contrast + 0.5

	lum := Luminance(r, g, b)
	r = lum + (r-lum)*t.Saturation
	g = lum + (g-lum)*t.Saturation
	b = lum + (b-lum)*t.Saturation

	return r + t.Brightness, g + t.Brightness, b + t.Brightness
}

// Combine adds the bloom, then applies the vignette and tone grading, each
// only when enabled. bloom may be nil.
func Combine(src, bloom *Frame, s Settings) *Frame {
	dst := NewFrame(src.W, src.H)
	cx, cy := float32(src.W)/2, float32(src.H)/2
	corner := math32.Max(math32.Hypot(cx, cy), epsilon)
	parallelRows(src.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < src.W; x++ {
				i := (y*src.W + x) * 4
				r, g, b, a := src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3]
				if bloom != nil {
					k := s.Bloom.Intensity
					r += bloom.Pix[i] * k
					g += bloom.Pix[i+1] * k
					b += bloom.Pix[i+2] * k
					a = math32.Max(a, clamp01(bloom.Pix[i+3]*k))
				}
				if s.Vignette.Enabled {
					d := math32.Hypot(float32(x)+0.5-cx, float32(y)+0.5-cy) / corner
					v := VignetteFactor(d, s.Vignette.Intensity, s.Vignette.Softness)
					r, g, b = r*v, g*v, b*v
				}
				if s.Tone.Enabled {
					r, g, b = Grade(r, g, b, s.Tone)
				}
				dst.Pix[i] = clamp01(r)
				dst.Pix[i+1] = clamp01(g)
				dst.Pix[i+2] = clamp01(b)
				dst.Pix[i+3] = clamp01(a)
			}
		}
	})
	return dst
}
