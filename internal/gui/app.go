package gui

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/san-kum/vecfield/internal/anim"
	"github.com/san-kum/vecfield/internal/engine"
	"github.com/san-kum/vecfield/internal/logx"
	"github.com/san-kum/vecfield/internal/record"
)

// Theme Colors (Monochrome Hyper-Minimalist)
var (
	ColBg      = rl.NewColor(10, 10, 10, 255)
	ColAccent  = rl.NewColor(180, 180, 180, 255)
	ColSelect  = rl.NewColor(255, 255, 255, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColRecord  = rl.NewColor(230, 60, 60, 255)
)

const (
	fontPath    = "/usr/share/fonts/liberation/LiberationMono-Regular.ttf"
	maxTiming   = 200
	messageTime = 3 * time.Second
)

// Options configures the window.
type Options struct {
	Width     int32
	Height    int32
	FPS       int32
	Recording record.Config
	OutDir    string
}

type saveResult struct {
	what string
	path string
	err  error
}

type App struct {
	eng  *engine.Engine
	opts Options

	Font    rl.Font
	tex     rl.Texture2D
	texW    int
	texH    int
	pixels  []color.RGBA
	hasTex  bool
	ShowHUD bool

	ParamSel  int
	Telemetry []float64

	message      string
	messageUntil time.Time
	saves        chan saveResult
	stopping     bool
}

// initWindow opens a resizable window sized to the render surface.
func initWindow(opts Options) {
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(opts.Width, opts.Height, "vecfield")
	rl.SetTargetFPS(opts.FPS)
	rl.SetExitKey(0)
}

// loadFont loads Liberation Mono when installed and falls back to the
// raylib default font.
func loadFont() rl.Font {
	if _, err := os.Stat(fontPath); err != nil {
		return rl.GetFontDefault()
	}
	font := rl.LoadFontEx(fontPath, 32, nil, 0)
	rl.SetTextureFilter(font.Texture, rl.FilterBilinear)
	return font
}

func NewApp(eng *engine.Engine, opts Options) *App {
	return &App{
		eng:       eng,
		opts:      opts,
		Font:      loadFont(),
		ShowHUD:   true,
		Telemetry: make([]float64, 0, maxTiming),
		saves:     make(chan saveResult, 4),
	}
}

// Run opens the window and drives eng until the window is closed. The
// engine is not closed.
func Run(eng *engine.Engine, opts Options) error {
	opts = withDefaults(opts, eng.Config())
	initWindow(opts)
	defer rl.CloseWindow()

	app := NewApp(eng, opts)
	defer app.unload()
	return app.RunLoop(context.Background())
}

func withDefaults(opts Options, cfg engine.Config) Options {
	if opts.Width <= 0 {
		opts.Width = int32(cfg.Width)
	}
	if opts.Height <= 0 {
		opts.Height = int32(cfg.Height)
	}
	if opts.FPS <= 0 {
		opts.FPS = engine.DefaultFPS
	}
	if opts.OutDir == "" {
		opts.OutDir = "."
	}
	return opts
}

func (a *App) RunLoop(ctx context.Context) error {
	for !rl.WindowShouldClose() {
		if rl.IsKeyPressed(rl.KeyQ) {
			break
		}
		if err := a.Update(ctx); err != nil {
			return err
		}
		a.Draw()
	}
	if st := a.eng.Recorder().State(); st == record.StateRecording || st == record.StatePaused {
		res := a.finishRecording()
		if res.err != nil {
			logx.L().Warn("recording lost on exit", "err", res.err)
		}
	}
	return nil
}

func (a *App) Update(ctx context.Context) error {
	a.drainSaves()
	a.handleInput()

	start := time.Now()
	frame, err := a.eng.Frame(ctx, float64(rl.GetFrameTime()))
	if err != nil {
		return err
	}
	a.pushTiming(float64(time.Since(start).Microseconds()) / 1000)
	a.upload(frame)
	return nil
}

func (a *App) pushTiming(ms float64) {
	a.Telemetry = append(a.Telemetry, ms)
	if len(a.Telemetry) > maxTiming {
		a.Telemetry = a.Telemetry[1:]
	}
}

func (a *App) handleInput() {
	a.trackPointer()

	cfg := a.eng.Config()
	switch {
	case rl.IsKeyPressed(rl.KeySpace):
		a.eng.TogglePause()
	case rl.IsKeyPressed(rl.KeyTab):
		if err := a.eng.SetKind(cfg.Kind.Next()); err != nil {
			a.flash(err.Error())
		}
	case rl.IsKeyPressed(rl.KeyLeft):
		a.ParamSel = (a.ParamSel + len(anim.ParamSpecs) - 1) % len(anim.ParamSpecs)
	case rl.IsKeyPressed(rl.KeyRight):
		a.ParamSel = (a.ParamSel + 1) % len(anim.ParamSpecs)
	case rl.IsKeyPressed(rl.KeyR):
		a.toggleRecording()
	case rl.IsKeyPressed(rl.KeyS):
		a.snapshot()
	case rl.IsKeyPressed(rl.KeyH):
		a.ShowHUD = !a.ShowHUD
	}

	if rl.IsKeyDown(rl.KeyUp) {
		a.adjust(cfg, 1)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		a.adjust(cfg, -1)
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		a.eng.SetZoom(cfg.Zoom * (1 + 0.1*wheel))
	}
}

func (a *App) adjust(cfg engine.Config, dir float32) {
	spec := anim.ParamSpecs[a.ParamSel]
	v := cfg.Params.Array()[a.ParamSel] + dir*spec.Step
	a.eng.SetParams(cfg.Params.Set(a.ParamSel, v))
}

// trackPointer feeds the mouse to pointer-driven kinds while it is over
// the field.
func (a *App) trackPointer() {
	cfg := a.eng.Config()
	if !cfg.Kind.UsesPointer() {
		return
	}
	dst := fitRect(float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight()), float32(cfg.Width), float32(cfg.Height))
	m := rl.GetMousePosition()
	x, y, ok := toSurface(m.X, m.Y, dst, float32(cfg.Width), float32(cfg.Height))
	if !ok {
		a.eng.ClearPointer()
		return
	}
	a.eng.SetPointer(x, y)
}

func (a *App) flash(msg string) {
	a.message = msg
	a.messageUntil = time.Now().Add(messageTime)
}

func (a *App) toggleRecording() {
	rec := a.eng.Recorder()
	switch rec.State() {
	case record.StateIdle:
		if err := rec.Start(a.opts.Recording); err != nil {
			a.flash(err.Error())
			return
		}
		a.flash("recording")
	case record.StateRecording, record.StatePaused:
		if a.stopping {
			return
		}
		a.stopping = true
		a.flash("finalizing...")
		go func() { a.saves <- a.finishRecording() }()
	case record.StateError:
		if err := rec.Reset(); err != nil {
			logx.L().Warn("recorder reset failed", "err", err)
			a.flash(err.Error())
			return
		}
		a.flash("recorder reset")
	}
}

func (a *App) finishRecording() saveResult {
	rec := a.eng.Recorder()
	if _, err := rec.Stop(context.Background()); err != nil {
		return saveResult{what: "recording", err: err}
	}
	path := filepath.Join(a.opts.OutDir, rec.OutputName())
	f, err := os.Create(path)
	if err != nil {
		return saveResult{what: "recording", err: err}
	}
	defer f.Close()
	if _, err := rec.WriteTo(f); err != nil {
		return saveResult{what: "recording", err: err}
	}
	return saveResult{what: "recording", path: path}
}

func (a *App) snapshot() {
	data, err := a.eng.Snapshot(context.Background(), false)
	if err != nil {
		a.flash(err.Error())
		return
	}
	path := filepath.Join(a.opts.OutDir, fmt.Sprintf("snapshot-%s.png", time.Now().Format("20060102-150405")))
	if err := os.WriteFile(path, data, 0644); err != nil {
		a.flash(err.Error())
		return
	}
	a.flash("saved " + path)
}

func (a *App) drainSaves() {
	for {
		select {
		case res := <-a.saves:
			a.stopping = false
			if res.err != nil {
				logx.L().Error("save failed", "what", res.what, "err", res.err)
				a.flash(fmt.Sprintf("%s failed: %v", res.what, res.err))
			} else {
				logx.L().Info("saved", "what", res.what, "path", res.path)
				a.flash("saved " + res.path)
			}
		default:
			return
		}
	}
}

func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	a.drawField()
	if a.ShowHUD {
		a.DrawHUD()
		a.DrawTelemetry()
	}

	rl.EndDrawing()
}

func (a *App) DrawHUD() {
	cfg := a.eng.Config()
	y := 20
	a.drawText(cfg.Kind.Label(), 20, y, 22, ColSelect)
	y += 30

	status := "running"
	if a.eng.Paused() {
		status = "paused"
	}
	a.drawText(fmt.Sprintf("%s  t=%.2fs  %d FPS", status, a.eng.Time(), rl.GetFPS()), 20, y, 14, ColText)
	y += 20
	if p, ok := anim.Period(cfg.Kind, cfg.Params, float64(cfg.Speed)); ok {
		a.drawText(fmt.Sprintf("period %.2fs", p), 20, y, 14, ColTextDim)
	} else {
		a.drawText("aperiodic", 20, y, 14, ColTextDim)
	}
	y += 26

	values := cfg.Params.Array()
	for i, spec := range anim.ParamSpecs {
		col := ColTextDim
		prefix := "  "
		if i == a.ParamSel {
			col, prefix = ColAccent, "> "
		}
		a.drawText(fmt.Sprintf("%s%-11s %6.2f", prefix, spec.Name, values[i]), 20, y, 14, col)
		y += 18
	}

	rec := a.eng.Recorder()
	if st := rec.State(); st == record.StateRecording || st == record.StatePaused {
		s := rec.Stats()
		rl.DrawCircle(int32(rl.GetScreenWidth()-30), 30, 8, ColRecord)
		a.drawText(fmt.Sprintf("%s %d frames", s.Duration.Round(time.Second), s.FrameCount),
			rl.GetScreenWidth()-180, 22, 14, ColText)
	}

	if a.message != "" && time.Now().Before(a.messageUntil) {
		a.drawText(a.message, 20, rl.GetScreenHeight()-30, 14, ColAccent)
	}
}

func (a *App) drawText(text string, x, y int, size int, color rl.Color) {
	rl.DrawTextEx(a.Font, text, rl.NewVector2(float32(x), float32(y)), float32(size), 1, color)
}

func (a *App) unload() {
	if a.hasTex {
		rl.UnloadTexture(a.tex)
	}
}
