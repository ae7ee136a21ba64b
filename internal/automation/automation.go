// Package automation plays scripted scenarios on an engine and sweeps a
// parameter across a range.
package automation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/vecfield/internal/anim"
	"github.com/san-kum/vecfield/internal/engine"
	"github.com/san-kum/vecfield/internal/logx"
)

var ErrEmptyScenario = errors.New("automation: scenario has no steps")

// Scenario is a scripted sequence of animation steps.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step runs one kind for Duration seconds. Params are keyed by slot name
// (frequency, amplitude, elasticity, max_length) and override the kind's
// defaults. A zero Speed keeps the current speed.
type Step struct {
	Kind     anim.Kind          `yaml:"kind"`
	Duration float64            `yaml:"duration"`
	Speed    float32            `yaml:"speed,omitempty"`
	Params   map[string]float32 `yaml:"params,omitempty"`
	// SaveAs writes a PNG snapshot when the step ends.
	SaveAs string `yaml:"save_as,omitempty"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}

func (s *Scenario) Validate() error {
	if len(s.Steps) == 0 {
		return ErrEmptyScenario
	}
	for i, step := range s.Steps {
		if !step.Kind.Valid() {
			return fmt.Errorf("step %d: %w", i+1, anim.ErrUnknownKind)
		}
		if step.Duration <= 0 {
			return fmt.Errorf("step %d: duration %v must be positive", i+1, step.Duration)
		}
		if _, err := step.params(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

func (s Step) params() (anim.Params, error) {
	p := s.Kind.Defaults()
	for name, v := range s.Params {
		slot := slotIndex(name)
		if slot < 0 {
			return p, fmt.Errorf("unknown parameter %q", name)
		}
		p = p.Set(slot, v)
	}
	return p.Clamp(), nil
}

func slotIndex(name string) int {
	for i, spec := range anim.ParamSpecs {
		if spec.Name == name {
			return i
		}
	}
	return -1
}

// StepResult reports what one step rendered.
type StepResult struct {
	Kind   anim.Kind
	Frames int
	// Time is the animation clock when the step ended.
	Time     float64
	Snapshot string
}

// RunScenario plays every step in order at fps, starting each step at
// animation time zero.
func RunScenario(ctx context.Context, scenario *Scenario, eng *engine.Engine, fps int) ([]StepResult, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	sched := engine.NewScheduler(eng, fps)
	delta := sched.Interval().Seconds()
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		logx.L().Info("scenario step", "step", i+1, "of", len(scenario.Steps), "kind", step.Kind)

		cfg := eng.Config()
		cfg.Kind = step.Kind
		cfg.Params, _ = step.params()
		if step.Speed > 0 {
			cfg.Speed = step.Speed
		}
		if err := eng.ApplyConfig(cfg); err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		eng.Seek(0)

		n := int(math.Round(step.Duration / delta))
		done, err := sched.Step(ctx, n, delta)
		res := StepResult{Kind: step.Kind, Frames: done, Time: eng.Time()}
		if err != nil {
			return append(results, res), fmt.Errorf("step %d run: %w", i+1, err)
		}

		if step.SaveAs != "" {
			data, err := eng.Snapshot(ctx, false)
			if err != nil {
				return append(results, res), fmt.Errorf("step %d snapshot: %w", i+1, err)
			}
			if err := os.WriteFile(step.SaveAs, data, 0644); err != nil {
				return append(results, res), fmt.Errorf("step %d snapshot: %w", i+1, err)
			}
			res.Snapshot = step.SaveAs
		}
		results = append(results, res)
	}
	return results, nil
}

// ParameterSweep varies one slot of a kind's parameters over a range.
type ParameterSweep struct {
	Kind      anim.Kind
	ParamName string
	ParamMin  float32
	ParamMax  float32
	NumSteps  int
	Speed     float64
}

// SweepResult holds the analytic loop timing at one parameter value.
type SweepResult struct {
	ParamValue float32
	Period     float64
	Periodic   bool
	// Loop is the shortest whole-period loop of at least MinLoop seconds.
	Loop float64
}

// MinLoop is the shortest loop RunSweep reports.
const MinLoop = 3.0

// RunSweep evaluates the periodicity analyzer across the sweep range.
func RunSweep(sweep *ParameterSweep) ([]SweepResult, error) {
	if !sweep.Kind.Valid() {
		return nil, anim.ErrUnknownKind
	}
	slot := slotIndex(sweep.ParamName)
	if slot < 0 {
		return nil, fmt.Errorf("automation: unknown parameter %q", sweep.ParamName)
	}
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("automation: sweep needs at least 2 steps, got %d", sweep.NumSteps)
	}
	speed := sweep.Speed
	if speed == 0 {
		speed = 1
	}

	base := sweep.Kind.Defaults()
	paramStep := (sweep.ParamMax - sweep.ParamMin) / float32(sweep.NumSteps-1)
	results := make([]SweepResult, 0, sweep.NumSteps)
	for i := 0; i < sweep.NumSteps; i++ {
		val := sweep.ParamMin + float32(i)*paramStep
		p := base.Set(slot, val)
		period, ok := anim.Period(sweep.Kind, p, speed)
		r := SweepResult{ParamValue: val, Period: period, Periodic: ok}
		if ok {
			r.Loop = anim.LoopDuration(period, MinLoop)
		}
		results = append(results, r)
	}
	return results, nil
}
