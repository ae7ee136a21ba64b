package coords

import (
	"math"
	"testing"
)

func TestScreenToNormalized(t *testing.T) {
	vp := Viewport{Width: 800, Height: 400}

	tests := []struct {
		name  string
		x, y  float32
		wantX float32
		wantY float32
	}{
		{"center", 400, 200, 0, 0},
		{"top-left", 0, 0, -2, 1},
		{"bottom-right", 800, 400, 2, -1},
		{"top-right", 800, 0, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ScreenToNormalized(tt.x, tt.y, vp)
			if math.Abs(float64(p.X-tt.wantX)) > 1e-6 || math.Abs(float64(p.Y-tt.wantY)) > 1e-6 {
				t.Errorf("ScreenToNormalized(%v, %v) = %v, want (%v, %v)", tt.x, tt.y, p, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestNormalizedToScreenInverse(t *testing.T) {
	vp := Viewport{Width: 1280, Height: 720}
	for _, p := range []Point{{0, 0}, {1, 0.5}, {-1.5, -0.9}} {
		x, y := NormalizedToScreen(p, vp, 1)
		back := ScreenToNormalized(x, y, vp)
		if math.Abs(float64(back.X-p.X)) > 1e-4 || math.Abs(float64(back.Y-p.Y)) > 1e-4 {
			t.Errorf("round trip of %v gave %v", p, back)
		}
	}
}

func TestClipRoundTrip(t *testing.T) {
	p := Point{X: 1.2, Y: -0.4}
	c := NormalizedToClip(p, 1.5)
	if math.Abs(float64(c.X-0.8)) > 1e-6 {
		t.Errorf("clip x = %v, want 0.8", c.X)
	}
	back := ClipToNormalized(c, 1.5)
	if math.Abs(float64(back.X-p.X)) > 1e-6 || back.Y != p.Y {
		t.Errorf("ClipToNormalized = %v, want %v", back, p)
	}
}

func TestHelpers(t *testing.T) {
	if d := Distance(Point{0, 0}, Point{3, 4}); d != 5 {
		t.Errorf("Distance = %v, want 5", d)
	}
	if a := Angle(Point{0, 0}, Point{0, 1}); math.Abs(float64(a)-math.Pi/2) > 1e-6 {
		t.Errorf("Angle = %v, want pi/2", a)
	}
	if v := Lerp(2, 4, 0.25); v != 2.5 {
		t.Errorf("Lerp = %v, want 2.5", v)
	}
}

func TestGridCount(t *testing.T) {
	tests := []struct {
		rows, cols int
	}{
		{1, 1},
		{15, 20},
		{7, 3},
		{64, 64},
	}

	for _, tt := range tests {
		fixed := GenerateFixedGrid(tt.rows, tt.cols, 1.6, 0)
		uniform := GenerateUniformGrid(tt.rows, tt.cols, 1.6)
		if len(fixed) != tt.rows*tt.cols {
			t.Errorf("fixed %dx%d: got %d points", tt.rows, tt.cols, len(fixed))
		}
		if len(uniform) != tt.rows*tt.cols {
			t.Errorf("uniform %dx%d: got %d points", tt.rows, tt.cols, len(uniform))
		}
	}
}

func TestGridDeterministic(t *testing.T) {
	a := GenerateFixedGrid(15, 20, 1.777, 0.05)
	b := GenerateFixedGrid(15, 20, 1.777, 0.05)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("fixed grid differs at %d: %v vs %v", i, a[i], b[i])
		}
	}

	u1 := GenerateUniformGrid(9, 11, 1.5)
	u2 := GenerateUniformGrid(9, 11, 1.5)
	for i := range u1 {
		if u1[i] != u2[i] {
			t.Fatalf("uniform grid differs at %d: %v vs %v", i, u1[i], u2[i])
		}
	}
}

func TestUniformGridSpansSpace(t *testing.T) {
	aspect := float32(1.5)
	pts := GenerateUniformGrid(4, 5, aspect)

	first, last := pts[0], pts[len(pts)-1]
	if first.X != -aspect || first.Y != 1 {
		t.Errorf("first point = %v, want (-1.5, 1)", first)
	}
	if math.Abs(float64(last.X-aspect)) > 1e-6 || last.Y != -1 {
		t.Errorf("last point = %v, want (1.5, -1)", last)
	}
}

func TestFixedGridCentered(t *testing.T) {
	pts := GenerateFixedGrid(3, 3, 1, 0.5)
	center := pts[4]
	if center.X != 0 || center.Y != 0 {
		t.Errorf("center = %v, want origin", center)
	}
	if pts[1].X-pts[0].X != 0.5 {
		t.Errorf("spacing = %v, want 0.5", pts[1].X-pts[0].X)
	}
}

func TestFixedGridDerivedSpacingFits(t *testing.T) {
	aspect := float32(2)
	pts := GenerateFixedGrid(10, 40, aspect, 0)
	for _, p := range pts {
		if p.X < -aspect || p.X > aspect || p.Y < -1 || p.Y > 1 {
			t.Fatalf("point %v outside normalized space", p)
		}
	}
}

func TestGridEmpty(t *testing.T) {
	if pts := GenerateFixedGrid(0, 5, 1, 0); pts != nil {
		t.Error("expected nil for zero rows")
	}
	if pts := GenerateUniformGrid(5, 0, 1); pts != nil {
		t.Error("expected nil for zero cols")
	}
}
