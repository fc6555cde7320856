package service

import (
	"sync"
	"time"

	"helioserve/internal/services/movies/domain"
)

// Tracker is the live state of a job being sequenced
type Tracker struct {
	mu      sync.Mutex
	job     domain.Job
	started time.Time
}

// NewTracker starts tracking j as running
func NewTracker(j domain.Job, now time.Time) *Tracker {
	j = j.Clone()
	j.State = domain.StateRunning
	j.Progress = 0
	return &Tracker{job: j, started: now}
}

// Advance records done frames and returns the new ETA
// the ETA is the mean time per finished frame times the frames left
func (t *Tracker) Advance(done int, now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.job.Progress = done
	t.job.ETA = 0
	if done > 0 && done < t.job.FrameCount {
		per := now.Sub(t.started) / time.Duration(done)
		t.job.ETA = per * time.Duration(t.job.FrameCount-done)
	}
	return t.job.ETA
}

// Warn appends warnings
func (t *Tracker) Warn(ws ...domain.Warning) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.job.Warnings = append(t.job.Warnings, ws...)
}

// Finish moves the job to a terminal state, the first terminal state wins
func (t *Tracker) Finish(state domain.State, output, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.job.State.Terminal() {
		return
	}
	t.job.State = state
	t.job.Output = output
	t.job.Error = errMsg
	t.job.ETA = 0
}

// Snapshot returns a copy of the job
func (t *Tracker) Snapshot() domain.Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.job.Clone()
}
