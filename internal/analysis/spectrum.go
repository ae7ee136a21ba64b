package analysis

import (
	"errors"
	"math"
	"math/cmplx"
)

var ErrTooFewSamples = errors.New("analysis: need at least 4 samples")

// FFT is a radix-2 transform. len(data) must be a power of two.
func FFT(data []float64) []complex128 {
	n := len(data)
	if n <= 1 {
		result := make([]complex128, n)
		for i := range data {
			result[i] = complex(data[i], 0)
		}
		return result
	}

	even := make([]float64, n/2)
	odd := make([]float64, n/2)
	for i := 0; i < n/2; i++ {
		even[i] = data[2*i]
		odd[i] = data[2*i+1]
	}

	feven := FFT(even)
	fodd := FFT(odd)

	result := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
		result[k] = feven[k] + w*fodd[k]
		result[k+n/2] = feven[k] - w*fodd[k]
	}
	return result
}

// PowerSpectrum returns magnitudes of the non-negative frequency bins of
// data with its mean removed, zero-padded to a power of two.
func PowerSpectrum(data []float64) []float64 {
	padded := make([]float64, nextPow2(len(data)))
	var mean float64
	for _, v := range data {
		mean += v
	}
	if len(data) > 0 {
		mean /= float64(len(data))
	}
	for i, v := range data {
		padded[i] = v - mean
	}

	fft := FFT(padded)
	ps := make([]float64, len(fft)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(fft[i])
	}
	return ps
}

// DominantFrequency returns the frequency in Hz of the strongest
// non-zero bin, refined by parabolic interpolation between neighbors.
// Angles should be unwrapped first when they cross ±π.
func DominantFrequency(samples []float64, sampleRate float64) (float64, error) {
	if len(samples) < 4 {
		return 0, ErrTooFewSamples
	}
	ps := PowerSpectrum(samples)
	peak := 1
	for i := 2; i < len(ps); i++ {
		if ps[i] > ps[peak] {
			peak = i
		}
	}
	if ps[peak] == 0 {
		return 0, nil
	}

	bin := float64(peak)
	if peak+1 < len(ps) {
		a, b, c := ps[peak-1], ps[peak], ps[peak+1]
		if d := a - 2*b + c; d != 0 {
			bin += 0.5 * (a - c) / d
		}
	}
	n := float64(2 * len(ps))
	return bin * sampleRate / n, nil
}

// Unwrap removes 2π jumps between consecutive angles.
func Unwrap(angles []float64) []float64 {
	out := make([]float64, len(angles))
	var offset float64
	for i, a := range angles {
		if i > 0 {
			d := a + offset - out[i-1]
			offset -= 2 * math.Pi * math.Round(d/(2*math.Pi))
		}
		out[i] = a + offset
	}
	return out
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
