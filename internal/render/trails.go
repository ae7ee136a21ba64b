package render

import "math"

// TrailConfig controls motion trails.
type TrailConfig struct {
	Enabled bool
	Length  int
	Fade    Fade
	// Decay is the per-step opacity factor for exponential fades.
	Decay float64
}

// Opacity returns the alpha multiplier for a trail sample age steps old,
// where age 1 is the previous frame.
func (c TrailConfig) Opacity(age int) float64 {
	if age <= 0 {
		return 1
	}
	if age > c.Length {
		return 0
	}
	switch c.Fade {
	case FadeExponential:
		d := c.Decay
		if d <= 0 || d >= 1 {
			d = 0.6
		}
		return math.Pow(d, float64(age))
	default:
		return 1 - float64(age)/float64(c.Length+1)
	}
}

// Trails keeps the last Length angles of every glyph in a ring.
type Trails struct {
	length int
	count  int
	ring   []float32
	head   int
	filled int
}

func NewTrails(length, count int) *Trails {
	t := &Trails{}
	t.Reset(length, count)
	return t
}

// Reset clears history and resizes the ring.
func (t *Trails) Reset(length, count int) {
	if length < 0 {
		length = 0
	}
	t.length, t.count = length, count
	t.head, t.filled = 0, 0
	if n := length * count; cap(t.ring) >= n {
		t.ring = t.ring[:n]
	} else {
		t.ring = make([]float32, n)
	}
}

func (t *Trails) Len() int   { return t.filled }
func (t *Trails) Count() int { return t.count }

// Push records the current angle of every glyph from a vector buffer.
func (t *Trails) Push(vectors []float32, count int) {
	if t.length == 0 {
		return
	}
	if count != t.count {
		t.Reset(t.length, count)
	}
	row := t.ring[t.head*t.count : (t.head+1)*t.count]
	for i := 0; i < count && i*4+2 < len(vectors); i++ {
		row[i] = vectors[i*4+2]
	}
	t.head = (t.head + 1) % t.length
	if t.filled < t.length {
		t.filled++
	}
}

// At returns glyph i's angle age steps back (1 = most recent push).
func (t *Trails) At(i, age int) (float32, bool) {
	if age < 1 || age > t.filled || i < 0 || i >= t.count {
		return 0, false
	}
	slot := (t.head - age + t.length) % t.length
	return t.ring[slot*t.count+i], true
}
