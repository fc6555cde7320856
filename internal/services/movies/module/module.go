// Package module wires movie jobs into the API and the worker binary using modkit
package module

import (
	"context"

	"helioserve/internal/adapters/encode"
	"helioserve/internal/adapters/telemetry"
	"helioserve/internal/modkit"
	"helioserve/internal/modkit/httpkit"
	"helioserve/internal/platform/logger"
	"helioserve/internal/services/movies/domain"
	movieshttp "helioserve/internal/services/movies/http"
	"helioserve/internal/services/movies/repo"
	moviessvc "helioserve/internal/services/movies/service"
	renderdomain "helioserve/internal/services/render/domain"
)

// Renderer is what movies need from the render module
type Renderer interface {
	renderdomain.FrameBuilder
	domain.Layers
}

// Module implements modkit.Module for movie jobs
type Module struct {
	modkit.Base
	svc    *moviessvc.Svc
	events *telemetry.Buffer
}

// New builds the movies module over the render pipeline
func New(deps modkit.Deps, render Renderer, opts Options, mopts ...modkit.Option) *Module {
	svc, events := NewService(deps, render, opts)
	m := &Module{svc: svc, events: events}
	m.Cfg = modkit.Build(append([]modkit.Option{
		modkit.WithName("movies"),
		modkit.WithPrefix("/movies"),
		modkit.WithPorts(Ports{Service: svc, Worker: svc}),
	}, mopts...)...)
	m.Routes = func(r httpkit.Router) { movieshttp.Register(r, m.svc) }
	return m
}

// Service returns the movie service
func (m *Module) Service() *moviessvc.Svc { return m.svc }

// Run drives the worker loop and the telemetry flusher until ctx ends
func (m *Module) Run(ctx context.Context) error {
	go m.events.Run(ctx)
	return m.svc.Run(ctx)
}

// NewService assembles the movie service: the postgres job store when deps.PG is set, otherwise memory
func NewService(deps modkit.Deps, render Renderer, opts Options) (*moviessvc.Svc, *telemetry.Buffer) {
	var st domain.Store
	backend := "memory"
	if deps.PG != nil {
		st = repo.NewPG().Bind(deps.PG)
		backend = "postgres"
	} else {
		st = repo.NewMemory()
	}
	enc, ext := NewEncoder(opts)
	events := telemetry.New(deps.CH, moviessvc.FramesTable, telemetry.Options{})

	logger.Named("movies").Info().
		Str("store", backend).
		Str("encoder", opts.Encoder).
		Int("workers", opts.Workers).
		Int("max_frames", opts.MaxFrames).
		Str("output_dir", opts.OutputDir).
		Bool("telemetry", events.Enabled()).
		Msg("movie pipeline ready")

	svc := moviessvc.New(moviessvc.Deps{
		Store:   st,
		Frames:  render,
		Layers:  render,
		Encoder: enc,
		Events:  events,
	}, moviessvc.Config{
		MaxFrames:    opts.MaxFrames,
		MaxDimension: opts.MaxDimension,
		FrameRate:    opts.FrameRate,
		Workers:      opts.Workers,
		PollInterval: opts.PollInterval,
		LeaseTTL:     opts.LeaseTTL,
		WorkDir:      opts.WorkDir,
		OutputDir:    opts.OutputDir,
		Ext:          ext,
		Elide:        opts.Elide,
	})
	return svc, events
}

// NewEncoder returns the configured encoder and the extension of what it writes
func NewEncoder(opts Options) (domain.Encoder, string) {
	if opts.Encoder == "ffmpeg" {
		return encode.FFmpeg{Path: opts.FFmpegPath}, ".mp4"
	}
	return encode.MJPEG{}, ".avi"
}
