package domain

import (
	"context"
	"time"

	renderdomain "helioserve/internal/services/render/domain"
)

// Store persists jobs and hands them to workers
type Store interface {
	Create(ctx context.Context, j Job) error
	Get(ctx context.Context, id string) (Job, error)

	// Lease claims up to limit queued jobs, or running jobs whose lease expired, and marks them running
	Lease(ctx context.Context, workerID string, limit int, leaseFor time.Duration) ([]Job, error)

	// Progress records progress and extends the lease held by workerID
	// false means the job is no longer running under that worker
	Progress(ctx context.Context, id, workerID string, progress int, eta time.Duration, warnings []Warning, leaseFor time.Duration) (bool, error)

	// Finish moves a job running under j.LeasedBy to a terminal state
	// a job that is terminal or leased by another worker is left alone
	Finish(ctx context.Context, j Job) error

	// Cancel fails a queued or running job with ErrCancelled, a terminal job is a conflict
	Cancel(ctx context.Context, id string) (Job, error)
}

// Encoder turns ordered frame files into a movie
type Encoder interface {
	Encode(ctx context.Context, paths []string, frameRate float64, output string) error
}

// Frames builds composite frames
type Frames = renderdomain.FrameBuilder

// Layers applies client layer defaults
type Layers interface {
	ResolveLayers(ctx context.Context, in []renderdomain.LayerInput) ([]renderdomain.Layer, error)
}

// ServicePort is the movie surface exposed over http and the cli
type ServicePort interface {
	Submit(ctx context.Context, in SubmitInput) (SubmitOutput, error)
	Status(ctx context.Context, id string) (Status, error)
	Cancel(ctx context.Context, id string) (Status, error)
}
