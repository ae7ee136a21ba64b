package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/vecfield/internal/anim"
	"github.com/san-kum/vecfield/internal/automation"
)

var (
	sweepKind  string
	sweepParam string
	sweepMin   float32
	sweepMax   float32
	sweepSteps int
	recordPlay bool
	playFPS    int
	playOut    string
)

func automationCommands() []*cobra.Command {
	playCmd := &cobra.Command{
		Use:   "play [scenario.yaml]",
		Short: "play a scripted scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  playScenario,
	}
	addFieldFlags(playCmd)
	playCmd.Flags().IntVar(&playFPS, "fps", 30, "frame rate")
	playCmd.Flags().BoolVar(&recordPlay, "record", false, "record the whole scenario")
	playCmd.Flags().StringVarP(&playOut, "out", "o", "", "recording output file")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "tabulate loop periods across a parameter range",
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVarP(&sweepKind, "kind", "k", anim.Wave.String(), "animation kind")
	sweepCmd.Flags().StringVar(&sweepParam, "param", "frequency", "parameter to vary")
	sweepCmd.Flags().Float32Var(&sweepMin, "min", 0.5, "first value")
	sweepCmd.Flags().Float32Var(&sweepMax, "max", 3, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 6, "number of values")
	sweepCmd.Flags().Float32Var(&speed, "speed", 1, "time multiplier")

	return []*cobra.Command{playCmd, sweepCmd}
}

func playScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	rec := eng.Recorder()
	if recordPlay {
		rc := cfg.Recording
		if playOut != "" {
			rc.FileName = filepath.Base(playOut)
		}
		if err := rec.Start(rc); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, runErr := automation.RunScenario(ctx, sc, eng, playFPS)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tKIND\tFRAMES\tTIME\tSNAPSHOT")
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%d\t%.2fs\t%s\n", i+1, r.Kind, r.Frames, r.Time, r.Snapshot)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if runErr != nil && ctx.Err() == nil {
		return runErr
	}

	if !recordPlay {
		return nil
	}
	if _, err := rec.Stop(context.Background()); err != nil {
		return err
	}
	path := playOut
	if path == "" {
		path = rec.OutputName()
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := rec.WriteTo(f); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	k, err := anim.ParseKind(sweepKind)
	if err != nil {
		return err
	}
	results, err := automation.RunSweep(&automation.ParameterSweep{
		Kind:      k,
		ParamName: sweepParam,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepSteps,
		Speed:     float64(speed),
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tPERIOD\tLOOP (>= %.0fs)\n", sweepParam, automation.MinLoop)
	for _, r := range results {
		if !r.Periodic {
			fmt.Fprintf(w, "%.3f\t-\t-\n", r.ParamValue)
			continue
		}
		fmt.Fprintf(w, "%.3f\t%.3fs\t%.3fs\n", r.ParamValue, r.Period, r.Loop)
	}
	return w.Flush()
}
