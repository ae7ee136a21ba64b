package engine

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"time"

	"github.com/san-kum/vecfield/internal/logx"
)

// DefaultFPS is the scheduler rate when none is given.
const DefaultFPS = 60

// Scheduler drives an Engine. It owns its clock and checks a cancel flag
// at every frame boundary; a frame in progress always completes.
type Scheduler struct {
	eng      *Engine
	interval time.Duration
	maxDelta float64
	now      func() time.Time
	onFrame  func(*image.RGBA)

	cancelled atomic.Bool
	running   atomic.Bool
}

type SchedulerOption func(*Scheduler)

// WithFrameHook calls fn with every frame the scheduler produces.
func WithFrameHook(fn func(*image.RGBA)) SchedulerOption {
	return func(s *Scheduler) { s.onFrame = fn }
}

func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

func NewScheduler(e *Engine, fps int, opts ...SchedulerOption) *Scheduler {
	if fps <= 0 {
		fps = DefaultFPS
	}
	interval := time.Second / time.Duration(fps)
	s := &Scheduler{
		eng:      e,
		interval: interval,
		// A stalled frame must not make the field jump.
		maxDelta: 4 * interval.Seconds(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Interval() time.Duration { return s.interval }

// Cancel stops the loop at the next frame boundary.
func (s *Scheduler) Cancel() { s.cancelled.Store(true) }

func (s *Scheduler) Cancelled() bool { return s.cancelled.Load() }
func (s *Scheduler) Running() bool   { return s.running.Load() }

// Run renders frames on a ticker, passing wall-clock deltas, until Cancel,
// ctx cancellation or a frame error. Cancel and a closed engine return nil.
func (s *Scheduler) Run(ctx context.Context) error {
	s.running.Store(true)
	defer s.running.Store(false)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	last := s.now()
	for {
		if s.cancelled.Load() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if s.cancelled.Load() {
			return nil
		}

		now := s.now()
		delta := now.Sub(last).Seconds()
		last = now
		if delta > s.maxDelta {
			delta = s.maxDelta
		}
		if err := s.frame(ctx, delta); err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}
	}
}

// Step renders n frames back to back with a fixed delta, for headless
// capture. It honors Cancel and ctx between frames.
func (s *Scheduler) Step(ctx context.Context, n int, delta float64) (int, error) {
	s.running.Store(true)
	defer s.running.Store(false)

	for i := 0; i < n; i++ {
		if s.cancelled.Load() {
			return i, nil
		}
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := s.frame(ctx, delta); err != nil {
			return i, err
		}
	}
	return n, nil
}

func (s *Scheduler) frame(ctx context.Context, delta float64) error {
	img, err := s.eng.Frame(ctx, delta)
	if err != nil {
		logx.L().Warn("frame failed", "err", err)
		return err
	}
	if s.onFrame != nil {
		s.onFrame(img)
	}
	return nil
}
