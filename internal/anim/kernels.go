package anim

import (
	"github.com/chewxy/math32"
	"github.com/san-kum/vecfield/internal/coords"
)

const (
	twoPi = 2 * math32.Pi

	recordStride = 4
	angleSlot    = 2
)

// Input is everything a kernel may read for one glyph.
type Input struct {
	Index int
	X, Y  float32

	Time   float32
	Speed  float32
	Params Params
	Aspect float32

	Mouse       coords.Point
	MouseActive bool
	Seed        uint32

	// Prev is a snapshot of the previous frame's vector records. Only
	// neighbor kernels read it.
	Prev  []float32
	Cols  int
	Count int
}

func (in *Input) t() float32 { return in.Time * in.Speed }

func (in *Input) polar() (r, theta float32) {
	return math32.Hypot(in.X, in.Y), math32.Atan2(in.Y, in.X)
}

// Angle evaluates the kernel for k, wrapped to [-pi, pi].
func Angle(k Kind, in *Input) float32 {
	if !k.Valid() {
		return 0
	}
	return math32.Remainder(variants[k].angle(in), twoPi)
}

type variant struct {
	name     string
	label    string
	defaults Params
	angle    func(in *Input) float32

	// rates returns the angular rates of the sinusoidal terms per unit of
	// scaled time. nil means the motion has no exact period.
	rates     func(p Params) []float64
	unitScale float64

	pointer   bool
	neighbors bool
}

func single(p Params) []float64 { return []float64{float64(p.Frequency)} }

func multiples(ms ...float64) func(Params) []float64 {
	return func(p Params) []float64 {
		out := make([]float64, len(ms))
		for i, m := range ms {
			out[i] = float64(p.Frequency) * m
		}
		return out
	}
}

func def(f, a, e float32) Params {
	return Params{Frequency: f, Amplitude: a, Elasticity: e, MaxLength: 1}
}

var variants = [...]variant{
	Wave:      {name: "wave", label: "Wave", defaults: def(1, 0.8, 1), angle: waveAngle, rates: single},
	Spin:      {name: "spin", label: "Spin", defaults: def(0.5, 0.5, 0.5), angle: spinAngle, rates: single},
	Pulse:     {name: "pulse", label: "Pulse", defaults: def(2, 0.6, 1), angle: pulseAngle, rates: single},
	Ripple:    {name: "ripple", label: "Ripple", defaults: def(3, 0.7, 1), angle: rippleAngle, rates: single},
	Spiral:    {name: "spiral", label: "Spiral", defaults: def(1, 0.4, 1), angle: spiralAngle, rates: single, unitScale: 0.5},
	Radial:    {name: "radial", label: "Radial", defaults: def(1, 1, 0), angle: radialAngle, rates: single},
	Pendulum:  {name: "pendulum", label: "Pendulum", defaults: def(1.5, 0.9, 1), angle: pendulumAngle, rates: single},
	Breathe:   {name: "breathe", label: "Breathe", defaults: def(0.8, 1.2, 0.5), angle: breatheAngle, rates: single},
	Orbit:     {name: "orbit", label: "Orbit", defaults: def(1, 0.6, 0.5), angle: orbitAngle, rates: single},
	Heartbeat: {name: "heartbeat", label: "Heartbeat", defaults: def(2.5, 1, 1), angle: heartbeatAngle, rates: single},
	Tide:      {name: "tide", label: "Tide", defaults: def(1, 0.7, 1.5), angle: tideAngle, rates: single, unitScale: 0.25},
	Sweep:     {name: "sweep", label: "Sweep", defaults: def(1, 1.5, 1), angle: sweepAngle, rates: single},
	Checker:   {name: "checker", label: "Checker", defaults: def(1, 0.8, 1), angle: checkerAngle, rates: single},

	Interference: {name: "interference", label: "Interference", defaults: def(2, 0.9, 1), angle: interferenceAngle, rates: multiples(1, 1.5)},
	TripleWave:   {name: "triple-wave", label: "Triple Wave", defaults: def(1, 0.8, 1), angle: tripleWaveAngle, rates: multiples(1, 2, 3)},
	Lissajous:    {name: "lissajous", label: "Lissajous", defaults: def(0.5, 0.5, 1), angle: lissajousAngle, rates: multiples(3, 2)},
	Harmonics:    {name: "harmonics", label: "Harmonics", defaults: def(1, 0.8, 1), angle: harmonicsAngle, rates: multiples(1, 2, 3, 4)},
	Kaleidoscope: {name: "kaleidoscope", label: "Kaleidoscope", defaults: def(0.7, 0.6, 1), angle: kaleidoscopeAngle, rates: single},
	Beat:         {name: "beat", label: "Beat", defaults: def(2, 1, 0.5), angle: beatAngle, rates: beatRates},
	Moire:        {name: "moire", label: "Moire", defaults: def(0.5, 0.8, 1), angle: moireAngle, rates: multiples(1, 1.1)},
	Rosette:      {name: "rosette", label: "Rosette", defaults: def(1, 0.7, 1), angle: rosetteAngle, rates: multiples(1, 0.5)},

	FlowField:        {name: "flow-field", label: "Flow Field", defaults: def(1, 1, 1.5), angle: flowFieldAngle},
	Storm:            {name: "storm", label: "Storm", defaults: def(1, 0.8, 2), angle: stormAngle},
	ChaoticAttractor: {name: "chaotic-attractor", label: "Chaotic Attractor", defaults: def(1, 0.3, 1), angle: attractorAngle},
	Turbulence:       {name: "turbulence", label: "Turbulence", defaults: def(1, 1, 1), angle: turbulenceAngle},
	Drift:            {name: "drift", label: "Drift", defaults: def(1, 1, 1), angle: driftAngle},
	RandomWalk:       {name: "random-walk", label: "Random Walk", defaults: def(1, 1, 0), angle: randomWalkAngle},
	Flocking:         {name: "flocking", label: "Flocking", defaults: def(1, 1, 2), angle: flockingAngle, neighbors: true},
	VortexGrowth:     {name: "vortex-growth", label: "Vortex Growth", defaults: def(1, 1, 0.5), angle: vortexGrowthAngle},
	MouseFollow:      {name: "mouse-follow", label: "Mouse Follow", defaults: def(1, 0.3, 1), angle: mouseFollowAngle, pointer: true},
}

// Every kind has exactly one variant.
var (
	_ [NumKinds - len(variants)]struct{}
	_ [len(variants) - NumKinds]struct{}
)

func waveAngle(in *Input) float32 {
	p := in.Params
	return p.Amplitude * math32.Sin(p.Frequency*in.t()+(in.X+in.Y*0.5)*p.Elasticity*math32.Pi)
}

func spinAngle(in *Input) float32 {
	p := in.Params
	r, _ := in.polar()
	return p.Frequency*in.t() + (in.X-in.Y)*p.Elasticity + p.Amplitude*r
}

func pulseAngle(in *Input) float32 {
	p := in.Params
	r, theta := in.polar()
	return theta + p.Amplitude*math32.Sin(p.Frequency*in.t()-r*p.Elasticity*4)
}

func rippleAngle(in *Input) float32 {
	p := in.Params
	r, theta := in.polar()
	return theta + math32.Pi/2 + p.Amplitude*math32.Sin(p.Frequency*in.t()-r*p.Elasticity*12)*math32.Exp(-r*0.5)
}

func spiralAngle(in *Input) float32 {
	p := in.Params
	r, theta := in.polar()
	return theta + math32.Pi/2 + p.Amplitude + r*p.Elasticity*2 + 0.5*p.Frequency*in.t()
}

func radialAngle(in *Input) float32 {
	p := in.Params
	r, theta := in.polar()
	return theta + p.Amplitude*math32.Sin(p.Frequency*in.t()+r*p.Elasticity)*r
}

func pendulumAngle(in *Input) float32 {
	p := in.Params
	return -math32.Pi/2 + p.Amplitude*math32.Sin(p.Frequency*in.t()+in.X*p.Elasticity)
}

func breatheAngle(in *Input) float32 {
	p := in.Params
	r, theta := in.polar()
	return theta + p.Amplitude*0.5*(1+math32.Sin(p.Frequency*in.t()+r*p.Elasticity))
}

func orbitAngle(in *Input) float32 {
	p := in.Params
	r, theta := in.polar()
	return theta + math32.Pi/2 + p.Amplitude*math32.Sin(p.Frequency*in.t()+r*p.Elasticity*twoPi)
}

func heartbeatAngle(in *Input) float32 {
	p := in.Params
	r, theta := in.polar()
	s := math32.Max(0, math32.Sin(p.Frequency*in.t()))
	s *= s
	s *= s
	return theta + p.Amplitude*s*(1-math32.Min(1, r*p.Elasticity*0.3))
}

func tideAngle(in *Input) float32 {
	p := in.Params
	return p.Amplitude * math32.Sin(0.25*p.Frequency*in.t()+in.Y*p.Elasticity*2)
}

func sweepAngle(in *Input) float32 {
	p := in.Params
	_, theta := in.polar()
	beam := math32.Max(0, math32.Cos(theta-p.Frequency*in.t()))
	beam = math32.Pow(beam, 1+3*p.Elasticity)
	return theta + math32.Pi/2 + p.Amplitude*beam
}

func checkerAngle(in *Input) float32 {
	p := in.Params
	scale := p.Elasticity * 4
	c := int(math32.Floor(in.X*scale)) + int(math32.Floor(in.Y*scale))
	sign := float32(1)
	base := float32(0)
	if ((c%2)+2)%2 == 1 {
		sign = -1
		base = math32.Pi / 2
	}
	return base + sign*p.Amplitude*math32.Sin(p.Frequency*in.t())
}

func interferenceAngle(in *Input) float32 {
	p := in.Params
	t := in.t()
	sx := in.Aspect * 0.5
	d1 := math32.Hypot(in.X+sx, in.Y)
	d2 := math32.Hypot(in.X-sx, in.Y)
	k := p.Elasticity * 10
	return p.Amplitude * 0.5 * (math32.Sin(p.Frequency*t-d1*k) + math32.Sin(1.5*p.Frequency*t-d2*k))
}

func tripleWaveAngle(in *Input) float32 {
	p := in.Params
	t := in.t()
	k := p.Elasticity * math32.Pi
	s := math32.Sin(p.Frequency*t+in.X*k) +
		0.5*math32.Sin(2*p.Frequency*t+in.Y*k) +
		0.33*math32.Sin(3*p.Frequency*t+(in.X+in.Y)*k)
	return p.Amplitude * s / 1.83
}

func lissajousAngle(in *Input) float32 {
	p := in.Params
	t := in.t()
	k := p.Elasticity * math32.Pi
	vx := math32.Sin(3*p.Frequency*t + in.X*k)
	vy := math32.Sin(2*p.Frequency*t + in.Y*k)
	return math32.Atan2(vy, vx) + p.Amplitude*(in.X+in.Y)*0.25
}

func harmonicsAngle(in *Input) float32 {
	p := in.Params
	t := in.t()
	r, _ := in.polar()
	var s float32
	for n := float32(1); n <= 4; n++ {
		s += math32.Sin(n*(p.Frequency*t+r*p.Elasticity)) / n
	}
	return p.Amplitude * s
}

func kaleidoscopeAngle(in *Input) float32 {
	p := in.Params
	r, theta := in.polar()
	const seg = twoPi / 6
	folded := math32.Mod(theta+math32.Pi, seg)
	if folded > seg/2 {
		folded = seg - folded
	}
	return theta + folded*6 + p.Amplitude*math32.Sin(p.Frequency*in.t()+r*p.Elasticity*3)
}

func beatRates(p Params) []float64 {
	return []float64{float64(p.Frequency), float64(p.Frequency + p.Elasticity)}
}

func beatAngle(in *Input) float32 {
	p := in.Params
	t := in.t()
	return p.Amplitude * 0.5 * (math32.Sin(p.Frequency*t+in.X*math32.Pi) + math32.Sin((p.Frequency+p.Elasticity)*t+in.Y*math32.Pi))
}

func moireAngle(in *Input) float32 {
	p := in.Params
	t := in.t()
	r, theta := in.polar()
	k := p.Elasticity * 20
	return theta + p.Amplitude*math32.Sin(p.Frequency*t+r*k)*math32.Sin(1.1*p.Frequency*t+in.X*k*1.05)
}

func rosetteAngle(in *Input) float32 {
	p := in.Params
	t := in.t()
	r, theta := in.polar()
	return theta + math32.Pi/2 + p.Amplitude*math32.Sin(5*theta+p.Frequency*t)*math32.Cos(0.5*p.Frequency*t+r*p.Elasticity)
}

func flowFieldAngle(in *Input) float32 {
	p := in.Params
	n := Noise3(in.X*p.Elasticity, in.Y*p.Elasticity, in.t()*p.Frequency*0.2, in.Seed)
	return n * twoPi * p.Amplitude
}

func stormAngle(in *Input) float32 {
	p := in.Params
	t := in.t()
	r, theta := in.polar()
	n := FBM(in.X*p.Elasticity+t*p.Frequency*0.1, in.Y*p.Elasticity, t*p.Frequency*0.3, 3, in.Seed)
	swirl := (theta + math32.Pi/2) * (1 - math32.Min(1, r*0.3))
	return swirl + (n-0.5)*4*p.Amplitude
}

// attractorAngle follows a few steps of a Clifford map whose first
// coefficient wanders with noise.
func attractorAngle(in *Input) float32 {
	p := in.Params
	t := in.t()
	drift := Noise3(0, 0, t*p.Frequency*0.05, in.Seed) - 0.5
	ca := -1.4 + 0.3*math32.Sin(0.1*p.Frequency*t) + drift*p.Amplitude
	cb, cc, cd := float32(1.6), float32(1.0), float32(0.7)

	x, y := in.X*p.Elasticity, in.Y*p.Elasticity
	px, py := x, y
	for i := 0; i < 4; i++ {
		px, py = x, y
		x = math32.Sin(ca*py) + cc*math32.Cos(ca*px)
		y = math32.Sin(cb*px) + cd*math32.Cos(cb*py)
	}
	return math32.Atan2(y-py, x-px)
}

func turbulenceAngle(in *Input) float32 {
	p := in.Params
	n := FBM(in.X*p.Elasticity*2, in.Y*p.Elasticity*2, in.t()*p.Frequency*0.3, 4, in.Seed)
	return n * twoPi * p.Amplitude * 1.5
}

func driftAngle(in *Input) float32 {
	p := in.Params
	t := in.t()
	n := Noise3(in.X*p.Elasticity+t*p.Frequency*0.2, in.Y*p.Elasticity+t*p.Frequency*0.1, 0, in.Seed)
	return n*twoPi*p.Amplitude + t*p.Frequency*0.05
}

func randomWalkAngle(in *Input) float32 {
	p := in.Params
	step := in.t() * p.Frequency
	i := math32.Floor(step)
	frac := smooth(step - i)
	h0 := Hash01(int32(in.Index), int32(i), 0, in.Seed)
	h1 := Hash01(int32(in.Index), int32(i)+1, 0, in.Seed)
	jitter := Hash01(int32(in.Index), 0, 1, in.Seed) * p.Elasticity
	return (lerp(h0, h1, frac) + jitter) * twoPi * p.Amplitude
}

// flockingAngle aligns each glyph with its grid neighbours from the previous
// frame while a noise heading keeps the field moving.
func flockingAngle(in *Input) float32 {
	p := in.Params
	wander := Noise3(in.X*1.5, in.Y*1.5, in.t()*p.Frequency*0.1, in.Seed) * twoPi * p.Amplitude
	if in.Cols <= 0 || in.Count <= 0 || len(in.Prev) < in.Count*recordStride {
		return wander
	}

	rows := (in.Count + in.Cols - 1) / in.Cols
	row, col := in.Index/in.Cols, in.Index%in.Cols
	var sx, sy float32
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			r, c := row+dr, col+dc
			if r < 0 || r >= rows || c < 0 || c >= in.Cols {
				continue
			}
			j := r*in.Cols + c
			if j >= in.Count {
				continue
			}
			a := in.Prev[j*recordStride+angleSlot]
			sx += math32.Cos(a)
			sy += math32.Sin(a)
		}
	}
	if sx == 0 && sy == 0 {
		return wander
	}

	w := 1 / (1 + p.Elasticity)
	align := math32.Atan2(sy, sx)
	vx := math32.Cos(align)*(1-w) + math32.Cos(wander)*w
	vy := math32.Sin(align)*(1-w) + math32.Sin(wander)*w
	return math32.Atan2(vy, vx)
}

func vortexGrowthAngle(in *Input) float32 {
	p := in.Params
	r, theta := in.polar()
	twist := p.Elasticity * r * p.Frequency * in.t() * 0.5
	return theta + math32.Pi/2 + p.Amplitude*twist
}

func mouseFollowAngle(in *Input) float32 {
	p := in.Params
	var tx, ty float32
	if in.MouseActive {
		tx, ty = in.Mouse.X, in.Mouse.Y
	}
	dx, dy := tx-in.X, ty-in.Y
	d := math32.Hypot(dx, dy)
	wobble := p.Amplitude * math32.Sin(p.Frequency*in.t()+d*p.Elasticity*5) * 0.5
	return math32.Atan2(dy, dx) + wobble
}
