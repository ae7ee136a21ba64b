package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/vecfield/internal/analysis"
	"github.com/san-kum/vecfield/internal/anim"
	"github.com/san-kum/vecfield/internal/engine"
	"github.com/san-kum/vecfield/internal/storage"
)

func openStore() (*storage.Store, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

func saveArtifact(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openStore()
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
	vectors, err := eng.Vectors(ctx)
	if err != nil {
		return err
	}
	png, err := eng.Snapshot(ctx, false)
	if err != nil {
		return err
	}
	thumb, err := storage.Thumbnail(png, storage.ThumbnailWidth)
	if err != nil {
		return err
	}

	// Keep the seed that actually ran so a restore reproduces noise kinds.
	cfg.Animation.Seed = eng.Seed()
	cfg.Animation.AutoSeed = false

	id, err := st.Save(&storage.Artifact{
		Meta:      storage.Metadata{Name: name, CaptureTime: eng.Time()},
		Config:    cfg,
		Vectors:   vectors,
		Thumbnail: thumb,
	})
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func listArtifacts(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	metas, err := st.List()
	if err != nil {
		return err
	}

	if len(metas) == 0 {
		fmt.Println("no artifacts found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tKIND\tTIME\tAT\tGRID\tSEED")
	for _, m := range metas {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%dx%d\t%d\n",
			m.ID,
			m.Name,
			m.Kind,
			m.Timestamp.Format("2006-01-02 15:04:05"),
			m.CaptureTime,
			m.Rows, m.Cols,
			m.Seed,
		)
	}
	return w.Flush()
}

func showArtifact(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	a, err := st.Load(args[0])
	if err != nil {
		return err
	}
	if err := storage.WriteJSON(os.Stdout, a.Meta); err != nil {
		return err
	}
	if !restore {
		return nil
	}

	vectors, err := st.LoadVectors(args[0])
	if err != nil {
		return err
	}
	eng, err := newEngine(a.Config)
	if err != nil {
		return err
	}
	defer eng.Close()

	// Restored positions and the stored clock reproduce the captured frame.
	if err := eng.UpdateVectorBuffer(vectors); err != nil {
		return err
	}
	eng.Seek(a.Meta.CaptureTime)
	ctx := context.Background()
	if _, err := eng.Frame(ctx, 0); err != nil {
		return err
	}
	data, err := eng.Snapshot(ctx, false)
	if err != nil {
		return err
	}
	if err := os.WriteFile(restoreOut, data, 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", restoreOut)
	return nil
}

func runTrace(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	ec := eng.Config()
	if glyph < 0 || glyph >= ec.VectorCount() {
		return fmt.Errorf("glyph %d out of range [0, %d)", glyph, ec.VectorCount())
	}

	ctx := context.Background()
	sched := engine.NewScheduler(eng, traceFPS)
	n := int(traceSeconds * float64(traceFPS))
	data := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if _, err := sched.Step(ctx, 1, sched.Interval().Seconds()); err != nil {
			return err
		}
		angles, err := eng.Angles(ctx)
		if err != nil {
			return err
		}
		data = append(data, float64(angles[glyph]))
	}
	if len(data) == 0 {
		return fmt.Errorf("no samples: --seconds and --fps must be positive")
	}

	caption := fmt.Sprintf("%s glyph %d angle (rad) over %.1fs", ec.Kind, glyph, traceSeconds)
	fmt.Println(asciigraph.Plot(analysis.Unwrap(data),
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	))
	fmt.Println()

	// sin(angle) repeats whenever the glyph does and never wraps.
	signal := make([]float64, len(data))
	for i, a := range data {
		signal[i] = math.Sin(a)
	}
	if f, err := analysis.DominantFrequency(signal, float64(traceFPS)); err == nil && f > 0 {
		fmt.Printf("measured period  %.3fs (%.3f Hz)\n", 1/f, f)
	}
	if p, ok := anim.Period(ec.Kind, ec.Params, float64(ec.Speed)); ok {
		fmt.Printf("analytic period  %.3fs\n", p)
	} else {
		fmt.Println("analytic period  aperiodic")
	}
	return nil
}
