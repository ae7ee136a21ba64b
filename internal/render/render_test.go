package render

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/gg"

	"github.com/san-kum/vecfield/internal/gpu"
)

func oneGlyph(angle float32) []float32 {
	return []float32{0, 0, angle, 0.5}
}

func testUniforms() gpu.Uniforms {
	return gpu.Uniforms{Aspect: 1, Zoom: 1, Speed: 1, Params: [4]float32{1, 1, 1, 1}}
}

func TestRenderLineOrientation(t *testing.T) {
	style := DefaultStyle()
	style.Width = 4
	r, err := NewRenderer(100, 100, style)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		angle float32
		hitX  int
		hitY  int
		missX int
		missY int
	}{
		{"right", 0, 65, 50, 35, 50},
		{"up", math.Pi / 2, 50, 35, 50, 65},
		{"left", math.Pi, 35, 50, 65, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := r.Render(oneGlyph(tt.angle), 1, testUniforms(), false)
			if err != nil {
				t.Fatal(err)
			}
			if b := img.RGBAAt(tt.hitX, tt.hitY).B; b < 200 {
				t.Errorf("pixel on glyph has B=%d, want glyph color", b)
			}
			if b := img.RGBAAt(tt.missX, tt.missY).B; b > 40 {
				t.Errorf("pixel behind glyph has B=%d, want background", b)
			}
		})
	}
}

func TestRenderTransparent(t *testing.T) {
	r, _ := NewRenderer(64, 64, DefaultStyle())

	opaque, err := r.Render(oneGlyph(0), 1, testUniforms(), false)
	if err != nil {
		t.Fatal(err)
	}
	transp, err := r.Render(oneGlyph(0), 1, testUniforms(), true)
	if err != nil {
		t.Fatal(err)
	}

	if a := opaque.RGBAAt(2, 2).A; a != 255 {
		t.Errorf("opaque corner alpha = %d", a)
	}
	if a := transp.RGBAAt(2, 2).A; a != 0 {
		t.Errorf("transparent corner alpha = %d", a)
	}
	if a := transp.RGBAAt(45, 32).A; a == 0 {
		t.Error("glyph missing from transparent render")
	}
}

func TestRenderAllShapes(t *testing.T) {
	for _, shape := range []Shape{ShapeLine, ShapeTriangle, ShapeArc, ShapeCircle} {
		style := DefaultStyle()
		style.Shape = shape
		r, _ := NewRenderer(80, 80, style)
		img, err := r.Render(oneGlyph(0), 1, testUniforms(), true)
		if err != nil {
			t.Fatalf("%v: %v", shape, err)
		}
		var covered int
		for i := 3; i < len(img.Pix); i += 4 {
			if img.Pix[i] > 0 {
				covered++
			}
		}
		if covered == 0 {
			t.Errorf("%v drew nothing", shape)
		}
	}
}

func TestRenderRejectsShortBuffer(t *testing.T) {
	r, _ := NewRenderer(10, 10, DefaultStyle())
	if _, err := r.Render(make([]float32, 4), 2, testUniforms(), false); err == nil {
		t.Error("expected error for short vector buffer")
	}
	if _, err := NewRenderer(0, 10, DefaultStyle()); !errors.Is(err, ErrInvalidSurface) {
		t.Errorf("err = %v", err)
	}
}

func TestGradientStops(t *testing.T) {
	red := gg.RGBA{R: 1, A: 1}
	blue := gg.RGBA{B: 1, A: 1}

	g, err := NewGradient(GradientLinear, ScopeGlyph, 0,
		ColorStop{Color: blue, Position: 1},
		ColorStop{Color: red, Position: 0},
	)
	if err != nil {
		t.Fatal(err)
	}
	stops := g.Stops()
	if stops[0].Position != 0 || stops[1].Position != 1 {
		t.Errorf("stops not sorted: %+v", stops)
	}

	if err := g.AddStop(ColorStop{Color: red, Position: 0.5}); err != nil {
		t.Fatal(err)
	}
	if got := g.Stops()[1].Position; got != 0.5 {
		t.Errorf("middle stop = %v", got)
	}
	for i := 0; i < 3; i++ {
		if err := g.AddStop(ColorStop{Color: blue, Position: 0.1 * float64(i)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.AddStop(ColorStop{Color: blue, Position: 0.9}); !errors.Is(err, ErrStopCount) {
		t.Errorf("7th stop: err = %v", err)
	}
	if d := g.Descriptor(); d[2] != 6 {
		t.Errorf("descriptor stop count = %v", d[2])
	}

	for len(g.Stops()) > MinStops {
		if err := g.RemoveStop(0); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.RemoveStop(0); !errors.Is(err, ErrStopCount) {
		t.Errorf("removing below minimum: err = %v", err)
	}

	if _, err := NewGradient(GradientRadial, ScopeField, 0, ColorStop{Color: red}); !errors.Is(err, ErrStopCount) {
		t.Errorf("single stop: err = %v", err)
	}
	if _, err := NewGradient(GradientRadial, ScopeField, 0, ColorStop{Color: red}, ColorStop{Color: red, Position: 1.5}); !errors.Is(err, ErrStopPosition) {
		t.Errorf("bad position: err = %v", err)
	}
}

func TestRenderWithGradients(t *testing.T) {
	stops := []ColorStop{{Color: gg.RGBA{R: 1, A: 1}, Position: 0}, {Color: gg.RGBA{G: 1, A: 1}, Position: 1}}
	for _, scope := range []GradientScope{ScopeGlyph, ScopeField} {
		for _, typ := range []GradientType{GradientLinear, GradientRadial} {
			g, err := NewGradient(typ, scope, math.Pi/4, stops...)
			if err != nil {
				t.Fatal(err)
			}
			style := DefaultStyle()
			style.Gradient = g
			style.Width = 4
			r, _ := NewRenderer(100, 100, style)
			img, err := r.Render(oneGlyph(0), 1, testUniforms(), true)
			if err != nil {
				t.Fatalf("%v/%v: %v", scope, typ, err)
			}
			if img.RGBAAt(65, 50).A == 0 {
				t.Errorf("%v/%v: glyph not drawn", scope, typ)
			}
		}
	}
}

func TestTrailOpacity(t *testing.T) {
	lin := TrailConfig{Length: 3, Fade: FadeLinear}
	want := []float64{1, 0.75, 0.5, 0.25, 0}
	for age, w := range want {
		if got := lin.Opacity(age); math.Abs(got-w) > 1e-9 {
			t.Errorf("linear Opacity(%d) = %v, want %v", age, got, w)
		}
	}

	exp := TrailConfig{Length: 4, Fade: FadeExponential, Decay: 0.5}
	if got := exp.Opacity(2); got != 0.25 {
		t.Errorf("exponential Opacity(2) = %v", got)
	}
	if exp.Opacity(1) <= exp.Opacity(2) {
		t.Error("exponential fade not decaying")
	}
}

func TestTrailsRing(t *testing.T) {
	tr := NewTrails(3, 2)
	for step := 1; step <= 5; step++ {
		tr.Push([]float32{0, 0, float32(step), 1, 0, 0, float32(step * 10), 1}, 2)
	}
	if tr.Len() != 3 {
		t.Fatalf("Len = %d, want 3", tr.Len())
	}
	tests := []struct {
		glyph, age int
		want       float32
	}{
		{0, 1, 5},
		{0, 3, 3},
		{1, 2, 40},
	}
	for _, tt := range tests {
		got, ok := tr.At(tt.glyph, tt.age)
		if !ok || got != tt.want {
			t.Errorf("At(%d, %d) = %v, %v; want %v", tt.glyph, tt.age, got, ok, tt.want)
		}
	}
	if _, ok := tr.At(0, 4); ok {
		t.Error("age beyond length should be absent")
	}

	tr.Push(make([]float32, 12), 3)
	if tr.Len() != 1 || tr.Count() != 3 {
		t.Errorf("count change should reset history, Len=%d Count=%d", tr.Len(), tr.Count())
	}
}

func TestRendererTrailsDrawHistory(t *testing.T) {
	style := DefaultStyle()
	style.Width = 4
	style.Trails = TrailConfig{Enabled: true, Length: 2, Fade: FadeLinear}
	r, _ := NewRenderer(100, 100, style)

	r.AdvanceTrails(oneGlyph(math.Pi/2), 1)
	img, err := r.Render(oneGlyph(0), 1, testUniforms(), true)
	if err != nil {
		t.Fatal(err)
	}
	if img.RGBAAt(50, 35).A == 0 {
		t.Error("trail of previous heading not drawn")
	}

	r.ClearTrails()
	img, _ = r.Render(oneGlyph(0), 1, testUniforms(), true)
	if img.RGBAAt(50, 35).A != 0 {
		t.Error("trail drawn after ClearTrails")
	}
}

func TestParseShape(t *testing.T) {
	for _, s := range []Shape{ShapeLine, ShapeTriangle, ShapeArc, ShapeCircle} {
		got, err := ParseShape(s.String())
		if err != nil || got != s {
			t.Errorf("ParseShape(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseShape("hexagon"); !errors.Is(err, ErrUnknownShape) {
		t.Errorf("err = %v", err)
	}
}
