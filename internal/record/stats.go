package record

import "time"

func (r *Recorder) startPollerLocked() {
	stop := make(chan struct{})
	done := make(chan struct{})
	r.pollStop, r.pollDone = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(r.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				r.mu.Lock()
				r.refreshStatsLocked()
				s := r.stats
				r.mu.Unlock()
				if r.onStats != nil {
					r.onStats(s)
				}
			}
		}
	}()
}

func (r *Recorder) stopPoller() {
	r.mu.Lock()
	stop, done := r.pollStop, r.pollDone
	r.pollStop, r.pollDone = nil, nil
	r.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// refreshStatsLocked recomputes stats. Paused time does not count toward
// the duration.
func (r *Recorder) refreshStatsLocked() {
	now := r.now()
	paused := r.pausedTotal
	if r.state == StatePaused && !r.pausedAt.IsZero() {
		paused += now.Sub(r.pausedAt)
	}
	dur := now.Sub(r.started) - paused
	if dur < 0 {
		dur = 0
	}

	var fps float64
	if elapsed := now.Sub(r.lastPoll).Seconds(); elapsed > 0 {
		fps = float64(r.frames-r.lastFrames) / elapsed
	}
	r.lastPoll, r.lastFrames = now, r.frames

	r.stats = Stats{
		Duration:      dur,
		FrameCount:    r.frames,
		EstimatedSize: int64(float64(r.preset.Bitrate) / 8 * dur.Seconds()),
		CurrentFPS:    fps,
	}
}
