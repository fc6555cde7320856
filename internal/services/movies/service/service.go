// Package service plans movie jobs, sequences their frames and runs the lease based worker
package service

import (
	"context"
	"sync"
	"time"

	"helioserve/internal/adapters/telemetry"
	perr "helioserve/internal/platform/errors"
	"helioserve/internal/platform/logger"
	"helioserve/internal/services/movies/domain"
	renderservice "helioserve/internal/services/render/service"

	"github.com/google/uuid"
)

// Service defines the movie service contract
type Service interface{ domain.ServicePort }

// Config tunes planning and the worker
type Config struct {
	MaxFrames    int
	MaxDimension int
	FrameRate    float64

	Workers      int
	PollInterval time.Duration
	LeaseTTL     time.Duration
	// ProgressEvery throttles progress writes to the store
	ProgressEvery time.Duration

	WorkDir   string
	OutputDir string
	Ext       string
	Elide     bool
}

// Deps are the ports the movie service consumes, Events may be nil
type Deps struct {
	Store   domain.Store
	Frames  domain.Frames
	Layers  domain.Layers
	Encoder domain.Encoder
	Events  *telemetry.Buffer
}

type run struct {
	cancel  context.CancelFunc
	tracker *Tracker
}

// Svc implements Service and the worker loop
type Svc struct {
	store   domain.Store
	frames  domain.Frames
	layers  domain.Layers
	encoder domain.Encoder
	events  *telemetry.Buffer
	cfg     Config

	workerID string
	now      func() time.Time
	wake     chan struct{}

	mu      sync.Mutex
	running map[string]*run
}

var _ Service = (*Svc)(nil)

// New creates the movie service
func New(d Deps, cfg Config) *Svc {
	if d.Store == nil {
		panic("movies.Service requires a non nil Store")
	}
	if d.Frames == nil || d.Layers == nil {
		panic("movies.Service requires non nil Frames and Layers")
	}
	if d.Encoder == nil {
		panic("movies.Service requires a non nil Encoder")
	}
	if cfg.MaxFrames <= 0 {
		cfg.MaxFrames = 300
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = 4096
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 15
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = time.Minute
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = time.Second
	}
	return &Svc{
		store:    d.Store,
		frames:   d.Frames,
		layers:   d.Layers,
		encoder:  d.Encoder,
		events:   d.Events,
		cfg:      cfg,
		workerID: uuid.NewString(),
		now:      func() time.Time { return time.Now().UTC() },
		wake:     make(chan struct{}, 1),
		running:  map[string]*run{},
	}
}

// WorkerID identifies this process in leases
func (s *Svc) WorkerID() string { return s.workerID }

// Submit validates and plans a movie and queues it
func (s *Svc) Submit(ctx context.Context, in domain.SubmitInput) (domain.SubmitOutput, error) {
	layers, err := s.layers.ResolveLayers(ctx, in.Layers)
	if err != nil {
		return domain.SubmitOutput{}, err
	}
	if len(renderservice.Visible(layers)) == 0 {
		return domain.SubmitOutput{}, perr.NoVisibleLayersf("movie has no visible layers")
	}
	if in.Scale <= 0 {
		return domain.SubmitOutput{}, perr.WithField(perr.InvalidArgf("scale must be positive"), "scale")
	}
	if !in.ROI.Valid() {
		return domain.SubmitOutput{}, perr.WithField(perr.InvalidArgf("roi must have positive width and height"), "roi")
	}
	if sz := in.ROI.CanvasSize(in.Scale); sz.X > s.cfg.MaxDimension || sz.Y > s.cfg.MaxDimension {
		return domain.SubmitOutput{}, perr.WithField(
			perr.InvalidArgf("frame of %dx%d exceeds the maximum dimension %d", sz.X, sz.Y, s.cfg.MaxDimension), "roi")
	}

	plan, warnings, err := Plan(PlanInput{
		Start:      in.Start,
		End:        in.End,
		Cadence:    time.Duration(in.CadenceSeconds) * time.Second,
		FrameCount: in.FrameCount,
	}, s.cfg.MaxFrames)
	if err != nil {
		return domain.SubmitOutput{}, err
	}

	now := s.now()
	j := domain.Job{
		ID: uuid.NewString(),
		Request: domain.Request{
			Layers:    layers,
			Start:     plan.Start,
			ROI:       in.ROI,
			Scale:     in.Scale,
			Sharpen:   in.Sharpen,
			FrameRate: in.FrameRate,
		},
		State:      domain.StateQueued,
		FrameCount: plan.FrameCount,
		Cadence:    plan.Cadence,
		Warnings:   warnings,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Create(ctx, j); err != nil {
		return domain.SubmitOutput{}, err
	}
	logger.C(ctx).Info().
		Str("job_id", j.ID).
		Int("frames", j.FrameCount).
		Dur("cadence", j.Cadence).
		Int("layers", len(layers)).
		Msg("movie queued")

	s.notify()
	if warnings == nil {
		warnings = []domain.Warning{}
	}
	return domain.SubmitOutput{JobID: j.ID, Warnings: warnings}, nil
}

// Status reports a job, live from this process when it runs here
func (s *Svc) Status(ctx context.Context, id string) (domain.Status, error) {
	if r := s.local(id); r != nil {
		return r.tracker.Snapshot().Status(), nil
	}
	j, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Status{}, err
	}
	return j.Status(), nil
}

// Cancel fails a queued or running job, a worker elsewhere notices on its next progress write
func (s *Svc) Cancel(ctx context.Context, id string) (domain.Status, error) {
	j, err := s.store.Cancel(ctx, id)
	if err != nil {
		return domain.Status{}, err
	}
	if r := s.local(id); r != nil {
		r.tracker.Finish(domain.StateFailed, "", domain.ErrCancelled)
		r.cancel()
		snap := r.tracker.Snapshot()
		snap.CreatedAt, snap.FinishedAt = j.CreatedAt, j.FinishedAt
		return snap.Status(), nil
	}
	logger.C(ctx).Info().Str("job_id", id).Msg("movie cancelled")
	return j.Status(), nil
}

func (s *Svc) local(id string) *run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[id]
}

func (s *Svc) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
