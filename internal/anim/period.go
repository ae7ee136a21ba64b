package anim

import "math"

// Period returns the exact period in seconds of k's motion, or ok=false when
// the motion never repeats exactly. Noise, drift, chaotic, neighbor and
// pointer kinds are never periodic. speed <= 0 and zero rates have no period.
func Period(k Kind, p Params, speed float64) (seconds float64, ok bool) {
	if speed <= 0 || !k.Valid() {
		return 0, false
	}
	v := &variants[k]
	if v.rates == nil {
		return 0, false
	}
	scale := v.unitScale
	if scale == 0 {
		scale = 1
	}

	for i, rate := range v.rates(p) {
		denom := math.Abs(rate) * speed * scale
		if denom == 0 {
			return 0, false
		}
		term := 2 * math.Pi / denom
		if i == 0 {
			seconds = term
			continue
		}
		seconds = lcm(seconds, term)
	}
	if seconds <= 0 || math.IsInf(seconds, 0) || math.IsNaN(seconds) {
		return 0, false
	}
	return seconds, true
}

// lcm combines two periods as |a*b| / gcd(round(a), round(b)). The result
// is never shorter than either input.
func lcm(a, b float64) float64 {
	g := gcd(int64(math.Round(a)), int64(math.Round(b)))
	hi := math.Max(a, b)
	if g == 0 {
		return hi
	}
	return math.Max(math.Abs(a*b)/float64(g), hi)
}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// LoopDuration returns the smallest whole number of periods that is at
// least minSeconds long.
func LoopDuration(period, minSeconds float64) float64 {
	if period <= 0 {
		return minSeconds
	}
	n := math.Ceil(minSeconds / period)
	if n < 1 {
		n = 1
	}
	return n * period
}
