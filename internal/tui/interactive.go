package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/vecfield/internal/anim"
	"github.com/san-kum/vecfield/internal/engine"
	"github.com/san-kum/vecfield/internal/logx"
	"github.com/san-kum/vecfield/internal/record"
)

const historyLen = 60

// Options configures the interactive view.
type Options struct {
	FPS       int
	Recording record.Config
	// OutDir receives recordings and snapshots.
	OutDir string
	// Theme names one of Themes.
	Theme string
}

type model struct {
	eng  *engine.Engine
	opts Options
	st   styles

	canvas      *Canvas
	paramCursor int
	history     []float64
	lastTick    time.Time
	fps         float64
	message     string
	stopping    bool

	width  int
	height int
}

func newModel(eng *engine.Engine, opts Options) model {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.OutDir == "" {
		opts.OutDir = "."
	}
	return model{
		eng:     eng,
		opts:    opts,
		st:      GetTheme(opts.Theme).styles(),
		canvas:  NewCanvas(width, height),
		history: make([]float64, 0, historyLen),
		width:   100,
		height:  30,
	}
}

type tickMsg time.Time

type savedMsg struct {
	what string
	path string
	err  error
}

func (m model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.opts.FPS), func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd { return m.tick() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.canvas.Resize(max(m.width-40, 20), max(m.height-4, 8))
		return m, nil
	case tickMsg:
		return m.step(time.Time(msg))
	case savedMsg:
		m.stopping = false
		if msg.err != nil {
			m.message = m.st.record.Render(fmt.Sprintf("%s failed: %v", msg.what, msg.err))
		} else {
			m.message = m.st.running.Render(fmt.Sprintf("%s saved to %s", msg.what, msg.path))
		}
		return m, nil
	}
	return m, nil
}

func (m model) step(now time.Time) (model, tea.Cmd) {
	delta := 0.0
	if !m.lastTick.IsZero() {
		delta = now.Sub(m.lastTick).Seconds()
		if delta > 0 {
			m.fps = 1 / delta
		}
	}
	m.lastTick = now

	start := time.Now()
	if _, err := m.eng.Frame(context.Background(), delta); err != nil {
		m.message = m.st.record.Render(err.Error())
		return m, m.tick()
	}
	m.history = append(m.history, float64(time.Since(start).Microseconds())/1000)
	if len(m.history) > historyLen {
		m.history = m.history[1:]
	}

	if vectors, err := m.eng.Vectors(context.Background()); err == nil {
		cfg := m.eng.Config()
		m.canvas.Draw(vectors, cfg.Aspect(), cfg.Zoom)
	}
	return m, m.tick()
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	cfg := m.eng.Config()
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		if m.eng.TogglePause() {
			m.message = m.st.paused.Render("paused")
		} else {
			m.message = ""
		}
	case "tab":
		if err := m.eng.SetKind(cfg.Kind.Next()); err != nil {
			m.message = m.st.record.Render(err.Error())
		}
	case "shift+tab":
		prev := anim.Kind((int(cfg.Kind) + anim.NumKinds - 1) % anim.NumKinds)
		if err := m.eng.SetKind(prev); err != nil {
			m.message = m.st.record.Render(err.Error())
		}
	case "left", "h":
		m.paramCursor = (m.paramCursor + len(anim.ParamSpecs) - 1) % len(anim.ParamSpecs)
	case "right", "l":
		m.paramCursor = (m.paramCursor + 1) % len(anim.ParamSpecs)
	case "up", "k":
		m.adjust(cfg, 1)
	case "down", "j":
		m.adjust(cfg, -1)
	case "+", "=":
		m.eng.SetZoom(cfg.Zoom * 1.1)
	case "-":
		m.eng.SetZoom(cfg.Zoom / 1.1)
	case "r":
		return m.toggleRecording()
	case "s":
		return m, m.snapshot()
	}
	return m, nil
}

func (m model) adjust(cfg engine.Config, dir float32) {
	spec := anim.ParamSpecs[m.paramCursor]
	v := cfg.Params.Array()[m.paramCursor] + dir*spec.Step
	m.eng.SetParams(cfg.Params.Set(m.paramCursor, v))
}

func (m model) toggleRecording() (model, tea.Cmd) {
	rec := m.eng.Recorder()
	switch rec.State() {
	case record.StateIdle:
		if err := rec.Start(m.opts.Recording); err != nil {
			m.message = m.st.record.Render(err.Error())
			return m, nil
		}
		m.message = m.st.record.Render("● recording")
		return m, nil
	case record.StateRecording, record.StatePaused:
		if m.stopping {
			return m, nil
		}
		m.stopping = true
		m.message = m.st.paused.Render("finalizing...")
		return m, m.finishRecording()
	case record.StateError:
		if err := rec.Reset(); err != nil {
			logx.L().Warn("recorder reset failed", "err", err)
			m.message = m.st.record.Render(err.Error())
			return m, nil
		}
		m.message = m.st.muted.Render("recorder reset")
	}
	return m, nil
}

func (m model) finishRecording() tea.Cmd {
	rec := m.eng.Recorder()
	dir := m.opts.OutDir
	return func() tea.Msg {
		if _, err := rec.Stop(context.Background()); err != nil {
			return savedMsg{what: "recording", err: err}
		}
		path := filepath.Join(dir, rec.OutputName())
		f, err := os.Create(path)
		if err != nil {
			return savedMsg{what: "recording", err: err}
		}
		defer f.Close()
		if _, err := rec.WriteTo(f); err != nil {
			return savedMsg{what: "recording", err: err}
		}
		return savedMsg{what: "recording", path: path}
	}
}

func (m model) snapshot() tea.Cmd {
	eng := m.eng
	dir := m.opts.OutDir
	return func() tea.Msg {
		data, err := eng.Snapshot(context.Background(), false)
		if err != nil {
			return savedMsg{what: "snapshot", err: err}
		}
		path := filepath.Join(dir, fmt.Sprintf("snapshot-%s.png", time.Now().Format("20060102-150405")))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return savedMsg{what: "snapshot", err: err}
		}
		logx.L().Info("snapshot written", "path", path)
		return savedMsg{what: "snapshot", path: path}
	}
}

func (m model) View() string {
	field := m.st.panel.Render(m.st.field.Render(m.canvas.String()))
	side := m.st.panel.Render(m.sidePanel())
	body := lipgloss.JoinHorizontal(lipgloss.Top, field, side)

	var b strings.Builder
	b.WriteString(body + "\n")
	if m.message != "" {
		b.WriteString("  " + m.message + "\n")
	}
	b.WriteString(m.st.muted.Render("  space pause  tab kind  ←→ param  ↑↓ adjust  ± zoom  r record  s snapshot  q quit") + "\n")
	return b.String()
}

func (m model) sidePanel() string {
	cfg := m.eng.Config()
	var b strings.Builder

	statusIcon := m.st.running.Render("●")
	statusText := m.st.running.Render("running")
	if m.eng.Paused() {
		statusIcon = m.st.paused.Render("○")
		statusText = m.st.paused.Render("paused")
	}
	b.WriteString(fmt.Sprintf("%s %s  %s\n", statusIcon, m.st.title.Render(cfg.Kind.Label()), statusText))

	period := m.st.muted.Render("aperiodic")
	if p, ok := anim.Period(cfg.Kind, cfg.Params, float64(cfg.Speed)); ok {
		period = m.st.text.Render(fmt.Sprintf("%.2fs", p))
	}
	b.WriteString(fmt.Sprintf("%s %s  %s %s\n",
		m.st.muted.Render("t"), m.st.text.Render(fmt.Sprintf("%.2fs", m.eng.Time())),
		m.st.muted.Render("period"), period))
	b.WriteString(fmt.Sprintf("%s %s  %s %s\n",
		m.st.muted.Render("glyphs"), m.st.text.Render(fmt.Sprint(cfg.VectorCount())),
		m.st.muted.Render("fps"), m.st.text.Render(fmt.Sprintf("%.0f", m.fps))))
	b.WriteString(m.st.dimmer.Render(strings.Repeat("─", 28)) + "\n")

	values := cfg.Params.Array()
	for i, spec := range anim.ParamSpecs {
		val := fmt.Sprintf("%7.2f", values[i])
		if i == m.paramCursor {
			b.WriteString(m.st.title.Render("▸ ") + m.st.text.Render(fmt.Sprintf("%-11s", spec.Name)) + m.st.value.Render(val) + "\n")
		} else {
			b.WriteString("  " + m.st.muted.Render(fmt.Sprintf("%-11s", spec.Name)) + m.st.muted.Render(val) + "\n")
		}
	}
	b.WriteString(m.st.dimmer.Render(strings.Repeat("─", 28)) + "\n")

	b.WriteString(m.recordingStatus() + "\n")

	if len(m.history) > 1 {
		b.WriteString(asciigraph.Plot(m.history,
			asciigraph.Height(5),
			asciigraph.Width(22),
			asciigraph.Precision(1),
			asciigraph.Caption("frame ms")))
	}
	return b.String()
}

func (m model) recordingStatus() string {
	rec := m.eng.Recorder()
	state := rec.State()
	switch state {
	case record.StateRecording, record.StatePaused:
		s := rec.Stats()
		return fmt.Sprintf("%s %s %s\n%s",
			m.st.record.Render("●"), m.st.text.Render(state.String()),
			m.st.muted.Render(s.Duration.Round(100*time.Millisecond).String()),
			m.st.muted.Render(fmt.Sprintf("%d frames  ~%.1f MB  %.0f fps", s.FrameCount, float64(s.EstimatedSize)/1e6, s.CurrentFPS)))
	case record.StateError:
		return m.st.record.Render("recording failed, r to reset")
	case record.StateProcessing:
		return m.st.paused.Render("finalizing")
	}
	return m.st.muted.Render("not recording")
}

// Run starts the interactive view and blocks until the user quits.
func Run(eng *engine.Engine, opts Options) error {
	p := tea.NewProgram(newModel(eng, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
