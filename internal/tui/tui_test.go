package tui

import (
	"context"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/vecfield/internal/anim"
	"github.com/san-kum/vecfield/internal/engine"
	"github.com/san-kum/vecfield/internal/record"
)

func TestArrow(t *testing.T) {
	tests := []struct {
		angle float32
		want  rune
	}{
		{0, '→'},
		{math.Pi / 2, '↑'},
		{math.Pi, '←'},
		{-math.Pi / 2, '↓'},
		{math.Pi / 4, '↗'},
		{2 * math.Pi, '→'},
		{0.1, '→'},
	}
	for _, tt := range tests {
		if got := arrow(tt.angle); got != tt.want {
			t.Errorf("arrow(%v) = %q, want %q", tt.angle, got, tt.want)
		}
	}
}

func TestCanvasDraw(t *testing.T) {
	c := NewCanvas(11, 5)
	// One glyph at the origin pointing up, one at the top-left corner.
	vectors := []float32{
		0, 0, math.Pi / 2, 0.05,
		-2, 1, 0, 0.05,
	}
	c.Draw(vectors, 2, 1)

	lines := c.Lines()
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5", len(lines))
	}
	if r := []rune(lines[2])[5]; r != '↑' {
		t.Errorf("center cell = %q, want '↑'", r)
	}
	if r := []rune(lines[0])[0]; r != '→' {
		t.Errorf("corner cell = %q, want '→'", r)
	}
}

func TestCanvasIgnoresOutOfBounds(t *testing.T) {
	c := NewCanvas(4, 4)
	c.Draw([]float32{50, 50, 0, 0.05}, 1, 1)
	if strings.TrimSpace(c.String()) != "" {
		t.Errorf("expected empty canvas, got %q", c.String())
	}
}

func TestCanvasResize(t *testing.T) {
	c := NewCanvas(0, -1)
	if w, h := c.Size(); w != 1 || h != 1 {
		t.Errorf("Size = %dx%d, want 1x1", w, h)
	}
	c.Resize(30, 8)
	if w, h := c.Size(); w != 30 || h != 8 {
		t.Errorf("Size = %dx%d, want 30x8", w, h)
	}
}

func newTestModel(t *testing.T) model {
	t.Helper()
	cfg := engine.DefaultConfig()
	cfg.Rows, cfg.Cols = 3, 4
	cfg.Width, cfg.Height = 64, 36
	cfg.Post.Enabled = false
	eng, err := engine.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(eng.Close)
	rec := record.DefaultConfig()
	rec.Backend = record.BackendFrames
	return newModel(eng, Options{FPS: 30, Recording: rec, OutDir: t.TempDir()})
}

func press(m model, key string) model {
	var msg tea.KeyMsg
	switch key {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, _ := m.Update(msg)
	return next.(model)
}

func TestModelKeys(t *testing.T) {
	m := newTestModel(t)

	m = press(m, " ")
	if !m.eng.Paused() {
		t.Error("space should pause")
	}
	m = press(m, " ")
	if m.eng.Paused() {
		t.Error("second space should resume")
	}

	m = press(m, "tab")
	if k := m.eng.Config().Kind; k != anim.Spin {
		t.Errorf("kind after tab = %v, want spin", k)
	}

	before := m.eng.Config().Params.Frequency
	m = press(m, "up")
	if got := m.eng.Config().Params.Frequency; math.Abs(float64(got-before-anim.ParamSpecs[0].Step)) > 1e-5 {
		t.Errorf("frequency = %v, want %v", got, before+anim.ParamSpecs[0].Step)
	}

	m = press(m, "right")
	if m.paramCursor != 1 {
		t.Errorf("cursor = %d, want 1", m.paramCursor)
	}
	amp := m.eng.Config().Params.Amplitude
	m = press(m, "down")
	if got := m.eng.Config().Params.Amplitude; got >= amp {
		t.Errorf("amplitude %v did not decrease from %v", got, amp)
	}

	zoom := m.eng.Config().Zoom
	m = press(m, "+")
	if m.eng.Config().Zoom <= zoom {
		t.Error("+ should zoom in")
	}
}

func TestModelRecordToggle(t *testing.T) {
	m := newTestModel(t)

	m = press(m, "r")
	if s := m.eng.Recorder().State(); s != record.StateRecording {
		t.Fatalf("state = %v, want recording", s)
	}
	next, _ := m.Update(tickMsg{})
	m = next.(model)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	m = next.(model)
	if cmd == nil || !m.stopping {
		t.Fatal("expected a finalize command")
	}
	msg, ok := cmd().(savedMsg)
	if !ok {
		t.Fatal("finalize did not return savedMsg")
	}
	if msg.err != nil {
		t.Fatalf("finalize: %v", msg.err)
	}
	if !strings.HasSuffix(msg.path, ".zip") {
		t.Errorf("path = %q, want .zip output", msg.path)
	}

	next, _ = m.Update(msg)
	if next.(model).stopping {
		t.Error("stopping flag should clear")
	}
}

func TestModelResetsFailedRecorder(t *testing.T) {
	m := newTestModel(t)
	rec := m.eng.Recorder()
	if err := rec.Start(m.opts.Recording); err != nil {
		t.Fatal(err)
	}
	// Nothing captured, so every finalize strategy comes back empty.
	if _, err := rec.Stop(context.Background()); err == nil {
		t.Fatal("stop with no frames should fail")
	}
	if s := rec.State(); s != record.StateError {
		t.Fatalf("state = %v, want error", s)
	}

	m = press(m, "r")
	if s := rec.State(); s != record.StateIdle {
		t.Errorf("state after r = %v, want idle", s)
	}
	if !strings.Contains(m.message, "recorder reset") {
		t.Errorf("message = %q", m.message)
	}
}

func TestModelTickRendersCanvas(t *testing.T) {
	m := newTestModel(t)
	m.canvas.Resize(40, 12)
	next, cmd := m.Update(tickMsg{})
	m = next.(model)
	if cmd == nil {
		t.Fatal("tick should schedule the next tick")
	}
	if len(m.history) != 1 {
		t.Errorf("history len = %d, want 1", len(m.history))
	}
	if strings.TrimSpace(m.canvas.String()) == "" {
		t.Error("canvas is empty after a frame")
	}
	if !strings.Contains(m.View(), "Wave") {
		t.Error("view should name the current kind")
	}
}

func TestGetTheme(t *testing.T) {
	if got := GetTheme("ocean"); got.Name != "ocean" {
		t.Errorf("GetTheme(ocean) = %q", got.Name)
	}
	if got := GetTheme("nope"); got.Name != ThemeAurora.Name {
		t.Errorf("unknown theme fell back to %q, want aurora", got.Name)
	}
	if n := len(ThemeNames()); n != len(Themes) {
		t.Errorf("ThemeNames has %d entries, want %d", n, len(Themes))
	}
}
