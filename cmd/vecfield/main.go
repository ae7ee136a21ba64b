package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/vecfield/internal/anim"
	"github.com/san-kum/vecfield/internal/config"
	"github.com/san-kum/vecfield/internal/engine"
	"github.com/san-kum/vecfield/internal/export"
	"github.com/san-kum/vecfield/internal/gui"
	"github.com/san-kum/vecfield/internal/logx"
	"github.com/san-kum/vecfield/internal/record"
	"github.com/san-kum/vecfield/internal/tui"
)

var (
	dataDir    string
	configFile string
	logLevel   string
	preset     string
	kindName   string
	rows       int
	cols       int
	width      int
	height     int
	speed      float32
	zoom       float32
	seed       uint32
	// Headless runs
	frames        int
	runFPS        int
	at            float64
	recordSeconds float64
	loopMin       float64
	loop          bool
	recordOut     string
	snapshotOut   string
	transparent   bool
	// Recording
	format  string
	quality string
	backend string
	// Live view
	frameRate int
	plain     bool
	theme     string
	// Artifacts and traces
	name         string
	restore      bool
	restoreOut   string
	glyph        int
	traceSeconds float64
	traceFPS     int
)

// main registers every command and runs the live view when no subcommand
// is given.
func main() {
	rootCmd := &cobra.Command{
		Use:   "vecfield",
		Short: "animated vector glyph fields",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logx.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logx.ParseLevel(logLevel),
			})))
		},
		RunE: runLive,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".vecfield", "artifact directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	addFieldFlags(rootCmd)
	rootCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate")
	rootCmd.Flags().StringVar(&theme, "theme", tui.ThemeAurora.Name, "color theme")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "render frames headless and print stats",
		RunE:  runHeadless,
	}
	addFieldFlags(runCmd)
	runCmd.Flags().IntVar(&frames, "frames", 120, "frames to render")
	runCmd.Flags().IntVar(&runFPS, "fps", engine.DefaultFPS, "simulated frame rate")

	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "capture the animation to a video, gif or frame archive",
		RunE:  runRecord,
	}
	addFieldFlags(recordCmd)
	recordCmd.Flags().Float64Var(&recordSeconds, "seconds", 5, "capture length")
	recordCmd.Flags().BoolVar(&loop, "loop", false, "round the length up to a whole number of periods")
	recordCmd.Flags().StringVar(&format, "format", "", "output format (mp4, webm, gif)")
	recordCmd.Flags().StringVar(&quality, "quality", "", "quality (low, medium, high, max)")
	recordCmd.Flags().StringVar(&backend, "backend", "", "encoder backend (auto, gif, ffmpeg, frames)")
	recordCmd.Flags().StringVarP(&recordOut, "out", "o", "", "output file")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "write a PNG (or SVG with a .svg output) of the field at a point in time",
		RunE:  runSnapshot,
	}
	addFieldFlags(snapshotCmd)
	snapshotCmd.Flags().Float64Var(&at, "at", 0, "animation time in seconds")
	snapshotCmd.Flags().BoolVar(&transparent, "transparent", false, "draw glyphs only, no background or post effects")
	snapshotCmd.Flags().StringVarP(&snapshotOut, "out", "o", "snapshot.png", "output file")

	periodCmd := &cobra.Command{
		Use:   "period [kind]",
		Short: "print the loop period of a kind",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPeriod,
	}
	addFieldFlags(periodCmd)
	periodCmd.Flags().Float64Var(&loopMin, "min", 3, "minimum loop length")

	kindsCmd := &cobra.Command{
		Use:   "kinds",
		Short: "list animation kinds",
		RunE:  listKinds,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [kind]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "interactive terminal view",
		RunE:  runLive,
	}
	addFieldFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate")
	liveCmd.Flags().BoolVar(&plain, "plain", false, "print frames without the interactive UI")
	liveCmd.Flags().StringVar(&theme, "theme", tui.ThemeAurora.Name, fmt.Sprintf("color theme %v", tui.ThemeNames()))

	guiCmd := &cobra.Command{
		Use:   "gui",
		Short: "open the field in a desktop window",
		RunE:  runGUI,
	}
	addFieldFlags(guiCmd)

	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "render to a point in time and store the result",
		RunE:  saveArtifact,
	}
	addFieldFlags(saveCmd)
	saveCmd.Flags().Float64Var(&at, "at", 0, "animation time in seconds")
	saveCmd.Flags().StringVar(&name, "name", "", "artifact name")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored artifacts",
		RunE:  listArtifacts,
	}

	showCmd := &cobra.Command{
		Use:   "show [id]",
		Short: "print artifact metadata, optionally re-rendering it",
		Args:  cobra.ExactArgs(1),
		RunE:  showArtifact,
	}
	showCmd.Flags().BoolVar(&restore, "restore", false, "restore the stored vectors and render a PNG")
	showCmd.Flags().StringVarP(&restoreOut, "out", "o", "restored.png", "output file for --restore")

	traceCmd := &cobra.Command{
		Use:   "trace",
		Short: "plot one glyph's angle over time",
		RunE:  runTrace,
	}
	addFieldFlags(traceCmd)
	traceCmd.Flags().IntVar(&glyph, "glyph", 0, "glyph index")
	traceCmd.Flags().Float64Var(&traceSeconds, "seconds", 4, "trace length")
	traceCmd.Flags().IntVar(&traceFPS, "fps", 30, "samples per second")

	rootCmd.AddCommand(runCmd, recordCmd, snapshotCmd, periodCmd, kindsCmd, presetsCmd,
		liveCmd, guiCmd, saveCmd, listCmd, showCmd, traceCmd)
	rootCmd.AddCommand(automationCommands()...)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addFieldFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&kindName, "kind", "k", "", "animation kind (see `vecfield kinds`)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.IntVar(&rows, "rows", config.DefaultRows, "grid rows")
	f.IntVar(&cols, "cols", config.DefaultCols, "grid columns")
	f.IntVar(&width, "width", config.DefaultWidth, "surface width")
	f.IntVar(&height, "height", config.DefaultHeight, "surface height")
	f.Float32Var(&speed, "speed", config.DefaultSpeed, "time multiplier")
	f.Float32Var(&zoom, "zoom", config.DefaultZoom, "view zoom")
	f.Uint32Var(&seed, "seed", 0, "noise seed")
}

// loadConfig builds the effective config: defaults, then the preset, then
// the config file, then any flag set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		kind := kindName
		if kind == "" {
			kind = anim.Wave.String()
		}
		p := config.GetPreset(kind, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(kind))
		}
		c := *p
		cfg = &c
	}

	if configFile != "" {
		fileCfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = fileCfg
	}

	flags := cmd.Flags()
	if flags.Changed("kind") {
		k, err := anim.ParseKind(kindName)
		if err != nil {
			return nil, err
		}
		if k != cfg.Animation.Kind {
			cfg.Animation.Kind = k
			cfg.Animation.Params = nil
		}
	}
	if flags.Changed("rows") {
		cfg.Grid.Rows = rows
	}
	if flags.Changed("cols") {
		cfg.Grid.Cols = cols
	}
	if flags.Changed("width") {
		cfg.Surface.Width = width
	}
	if flags.Changed("height") {
		cfg.Surface.Height = height
	}
	if flags.Changed("speed") {
		cfg.Animation.Speed = speed
	}
	if flags.Changed("zoom") {
		cfg.Animation.Zoom = zoom
	}
	if flags.Changed("seed") {
		cfg.Animation.Seed = seed
		cfg.Animation.AutoSeed = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newEngine(cfg *config.Config) (*engine.Engine, error) {
	ec, err := cfg.Engine()
	if err != nil {
		return nil, err
	}
	return engine.New(ec)
}

// watchConfig feeds edits of --config into eng. The returned func stops
// watching.
func watchConfig(eng *engine.Engine) (func(), error) {
	if configFile == "" {
		return func() {}, nil
	}
	w, err := config.Watch(configFile, func(c *config.Config) {
		ec, err := c.Engine()
		if err == nil {
			err = eng.ApplyConfig(ec)
		}
		if err != nil {
			logx.L().Warn("config reload rejected", "path", configFile, "err", err)
			return
		}
		logx.L().Info("config reloaded", "path", configFile, "kind", ec.Kind)
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = w.Close() }, nil
}

func runHeadless(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sched := engine.NewScheduler(eng, runFPS)
	start := time.Now()
	n, err := sched.Step(ctx, frames, sched.Interval().Seconds())
	elapsed := time.Since(start)
	if err != nil {
		return err
	}

	ec := eng.Config()
	bs := eng.BufferStats()
	ps := eng.PostStats()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "kind\t%s\n", ec.Kind.Label())
	fmt.Fprintf(w, "glyphs\t%d (%dx%d)\n", ec.VectorCount(), ec.Rows, ec.Cols)
	fmt.Fprintf(w, "frames\t%d\n", n)
	fmt.Fprintf(w, "animation time\t%.3fs\n", eng.Time())
	fmt.Fprintf(w, "wall time\t%s (%.1f fps)\n", elapsed.Round(time.Millisecond), float64(n)/elapsed.Seconds())
	fmt.Fprintf(w, "seed\t%d\n", eng.Seed())
	fmt.Fprintf(w, "buffers\t%d live, %d pooled, %d bytes\n", bs.Live, bs.Pooled, bs.LiveBytes)
	fmt.Fprintf(w, "post passes\t%+v\n", ps)
	if p, ok := anim.Period(ec.Kind, ec.Params, float64(ec.Speed)); ok {
		fmt.Fprintf(w, "period\t%.3fs\n", p)
	} else {
		fmt.Fprintf(w, "period\taperiodic\n")
	}
	return w.Flush()
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rc := cfg.Recording
	if cmd.Flags().Changed("format") {
		if rc.Format, err = record.ParseFormat(format); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("quality") {
		rc.Quality = record.Quality(strings.ToLower(quality))
	}
	if cmd.Flags().Changed("backend") {
		if rc.Backend, err = record.ParseBackend(backend); err != nil {
			return err
		}
	}
	if recordOut != "" {
		rc.FileName = filepath.Base(recordOut)
	}
	p, err := rc.Resolve()
	if err != nil {
		return err
	}

	length := recordSeconds
	if loop {
		period, ok := anim.Period(cfg.Animation.Kind, cfg.Params(), float64(cfg.Animation.Speed))
		if !ok {
			return fmt.Errorf("%s is not periodic; drop --loop", cfg.Animation.Kind)
		}
		length = anim.LoopDuration(period, recordSeconds)
		fmt.Fprintf(os.Stderr, "period %.3fs, recording %.3fs\n", period, length)
	}
	n := int(math.Ceil(length * float64(p.FPS)))

	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	rec := eng.Recorder()
	if err := rec.Start(rc); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sched := engine.NewScheduler(eng, p.FPS)
	// Time advances before each frame, so the last frame lands on length.
	if _, err := sched.Step(ctx, n, 1/float64(p.FPS)); err != nil && ctx.Err() == nil {
		return err
	}

	if _, err := rec.Stop(context.Background()); err != nil {
		return err
	}
	path := recordOut
	if path == "" {
		path = rec.OutputName()
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	written, err := rec.WriteTo(f)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d frames, %d bytes)\n", path, n, written)
	return nil
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx := context.Background()
	eng.Seek(at)
	if _, err := eng.Frame(ctx, 0); err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(snapshotOut), ".svg") {
		return writeSVG(ctx, eng, snapshotOut)
	}
	data, err := eng.Snapshot(ctx, transparent)
	if err != nil {
		return err
	}
	if err := os.WriteFile(snapshotOut, data, 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", snapshotOut)
	return nil
}

// writeSVG exports the current glyphs as vector shapes. Post effects and
// trails have no SVG equivalent and are left out.
func writeSVG(ctx context.Context, eng *engine.Engine, path string) error {
	vectors, err := eng.Vectors(ctx)
	if err != nil {
		return err
	}
	ec := eng.Config()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	err = export.FieldSVG(f, vectors, export.SVGOptions{
		Width:       ec.Width,
		Height:      ec.Height,
		Zoom:        ec.Zoom,
		Scale:       ec.Params.MaxLength,
		Shape:       ec.Shape,
		StrokeWidth: ec.VectorWidth,
		Color:       ec.Color,
		Background:  ec.Background,
		Transparent: transparent,
	})
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func runPeriod(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		if err := cmd.Flags().Set("kind", args[0]); err != nil {
			return err
		}
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	k, params := cfg.Animation.Kind, cfg.Params()
	period, ok := anim.Period(k, params, float64(cfg.Animation.Speed))
	if !ok {
		fmt.Printf("%s: aperiodic\n", k)
		return nil
	}
	fmt.Printf("%s: period %.4fs, loop %.4fs (>= %.1fs)\n", k, period, anim.LoopDuration(period, loopMin), loopMin)
	return nil
}

func listKinds(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tLABEL\tPERIODIC\tPOINTER\tNEIGHBORS\tDEFAULTS")
	for _, k := range anim.All() {
		fmt.Fprintf(w, "%s\t%s\t%v\t%v\t%v\t%s\n",
			k, k.Label(), k.Periodic(), k.UsesPointer(), k.NeedsNeighbors(), k.Defaults())
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	kinds := config.PresetKinds()
	if len(args) == 1 {
		kinds = []string{args[0]}
	}
	for _, k := range kinds {
		presets := config.ListPresets(k)
		if len(presets) == 0 {
			fmt.Printf("no presets for kind: %s\n", k)
			continue
		}
		fmt.Printf("presets for %s:\n", k)
		for _, p := range presets {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	unwatch, err := watchConfig(eng)
	if err != nil {
		return err
	}
	defer unwatch()

	if !plain {
		return tui.Run(eng, tui.Options{FPS: frameRate, Recording: cfg.Recording, OutDir: ".", Theme: theme})
	}

	live := tui.NewLiveRenderer(eng, os.Stdout, frameRate)
	eng.AddObserver(live)
	live.Start()
	defer live.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := engine.NewScheduler(eng, frameRate).Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runGUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	unwatch, err := watchConfig(eng)
	if err != nil {
		return err
	}
	defer unwatch()

	return gui.Run(eng, gui.Options{Recording: cfg.Recording, OutDir: "."})
}
