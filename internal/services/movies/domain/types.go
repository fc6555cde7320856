// Package domain holds movie job types and the ports the movie pipeline consumes
package domain

import (
	"slices"
	"time"

	"helioserve/internal/core/region"
	renderdomain "helioserve/internal/services/render/domain"
)

// State is the lifecycle of a movie job
type State string

// Job states, queued -> running -> completed | failed
const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transition is possible
func (s State) Terminal() bool { return s == StateCompleted || s == StateFailed }

// Warning codes
const (
	WarnCadenceExceedsMaximum = "cadence_exceeds_maximum"
	WarnFrameFailed           = "frame_failed"
	WarnLayerFailed           = "layer_failed"
)

// ErrCancelled is the error text a cancelled job ends with
const ErrCancelled = "cancelled"

// Warning is a non fatal note attached to a job, Frame is set for per frame notes
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Frame   *int   `json:"frame,omitempty"`
}

// FrameWarning builds a Warning for frame i
func FrameWarning(code, msg string, i int) Warning {
	return Warning{Code: code, Message: msg, Frame: &i}
}

// Request is what a job renders, persisted as submitted after layer defaults are applied
type Request struct {
	Layers    []renderdomain.Layer `json:"layers"`
	Start     time.Time            `json:"start"`
	ROI       region.ROI           `json:"roi"`
	Scale     float64              `json:"scale"`
	Sharpen   bool                 `json:"sharpen"`
	FrameRate float64              `json:"frame_rate"`
}

// Composite returns the frame request for observation time t
func (r Request) Composite(t time.Time) renderdomain.CompositeRequest {
	return renderdomain.CompositeRequest{
		Layers:  r.Layers,
		Time:    t,
		ROI:     r.ROI,
		Scale:   r.Scale,
		Sharpen: r.Sharpen,
	}
}

// Plan is the resolved time series of a job
type Plan struct {
	Start      time.Time
	Cadence    time.Duration
	FrameCount int
}

// At is the observation time of frame i
func (p Plan) At(i int) time.Time { return p.Start.Add(time.Duration(i) * p.Cadence) }

// Job is a persisted movie job
type Job struct {
	ID         string
	Request    Request
	State      State
	FrameCount int
	Cadence    time.Duration
	Progress   int
	ETA        time.Duration
	Warnings   []Warning
	Error      string
	Output     string

	LeasedBy       string
	LeaseExpiresAt *time.Time

	CreatedAt  time.Time
	UpdatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// Plan returns the job's time series
func (j Job) Plan() Plan {
	return Plan{Start: j.Request.Start, Cadence: j.Cadence, FrameCount: j.FrameCount}
}

// Clone copies the job so callers can not alias its slices
func (j Job) Clone() Job {
	j.Warnings = slices.Clone(j.Warnings)
	j.Request.Layers = slices.Clone(j.Request.Layers)
	return j
}

// Status is the client view of a job
type Status struct {
	JobID          string     `json:"job_id"`
	State          State      `json:"state"`
	Progress       int        `json:"progress"`
	FrameCount     int        `json:"frame_count"`
	CadenceSeconds int64      `json:"cadence_seconds"`
	ETASeconds     int64      `json:"eta_seconds"`
	Warnings       []Warning  `json:"warnings"`
	Error          string     `json:"error,omitempty"`
	Output         string     `json:"output,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// Status converts a job to its client view
func (j Job) Status() Status {
	w := j.Warnings
	if w == nil {
		w = []Warning{}
	}
	return Status{
		JobID:          j.ID,
		State:          j.State,
		Progress:       j.Progress,
		FrameCount:     j.FrameCount,
		CadenceSeconds: int64(j.Cadence / time.Second),
		ETASeconds:     int64(j.ETA.Round(time.Second) / time.Second),
		Warnings:       slices.Clone(w),
		Error:          j.Error,
		Output:         j.Output,
		CreatedAt:      j.CreatedAt,
		StartedAt:      j.StartedAt,
		FinishedAt:     j.FinishedAt,
	}
}
