// Package module wires tile and composite rendering into the API using modkit
package module

import (
	"context"

	"helioserve/internal/adapters/decode"
	"helioserve/internal/adapters/telemetry"
	"helioserve/internal/adapters/tilecache"
	"helioserve/internal/core/colortable"
	"helioserve/internal/core/instruments"
	"helioserve/internal/modkit"
	"helioserve/internal/modkit/httpkit"
	perr "helioserve/internal/platform/errors"
	"helioserve/internal/platform/logger"
	"helioserve/internal/platform/net/middleware"
	renderhttp "helioserve/internal/services/render/http"
	"helioserve/internal/services/render/domain"
	rendersvc "helioserve/internal/services/render/service"
)

// EventsTable is the clickhouse table render timings go to
const EventsTable = "render_events"

// Module implements modkit.Module for rendering
type Module struct {
	modkit.Base
	svc     *rendersvc.Svc
	events  *telemetry.Buffer
	limiter *middleware.RateLimiter
}

// New builds the render module over the given catalog
func New(deps modkit.Deps, catalog domain.Catalog, opts Options, mopts ...modkit.Option) (*Module, error) {
	svc, events, err := NewService(deps, catalog, opts)
	if err != nil {
		return nil, err
	}
	limiter := middleware.NewRateLimiter(middleware.RateLimitOptions{
		RPS:   opts.RateLimitRPS,
		Burst: opts.RateLimitBurst,
	})

	m := &Module{svc: svc, events: events, limiter: limiter}
	m.Cfg = modkit.Build(append([]modkit.Option{
		modkit.WithName("render"),
		modkit.WithPrefix("/render"),
		modkit.WithMiddlewares(limiter.Middleware),
		modkit.WithPorts(Ports{Frames: svc, Service: svc}),
	}, mopts...)...)
	m.Routes = func(r httpkit.Router) { renderhttp.Register(r, m.svc) }
	return m, nil
}

// Run drives the telemetry flusher and the rate limiter sweeper until ctx ends
func (m *Module) Run(ctx context.Context) {
	go m.limiter.Run(ctx)
	m.events.Run(ctx)
}

// NewService assembles the render service from options, the cli uses it without http
func NewService(deps modkit.Deps, catalog domain.Catalog, opts Options) (*rendersvc.Svc, *telemetry.Buffer, error) {
	log := logger.Named("render")

	table, err := instruments.Load(opts.InstrumentsFile)
	if err != nil {
		return nil, nil, err
	}
	palettes, err := colortable.New(opts.ColorTableDir)
	if err != nil {
		return nil, nil, err
	}
	dec, err := newDecoder(opts)
	if err != nil {
		return nil, nil, err
	}
	cache, err := tilecache.New(tilecache.Options{
		Dir:            opts.CacheDir,
		MemoryEntries:  opts.CacheMemoryEntries,
		ComputeTimeout: 2 * opts.DecodeTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	events := telemetry.New(deps.CH, EventsTable, telemetry.Options{})

	log.Info().
		Int("instruments", table.Len()).
		Int("color_tables", palettes.Len()).
		Str("decoder", opts.Decoder).
		Str("cache_dir", opts.CacheDir).
		Bool("telemetry", events.Enabled()).
		Msg("render pipeline ready")

	svc := rendersvc.New(rendersvc.Deps{
		Catalog:     catalog,
		Instruments: table,
		Palettes:    palettes,
		Decoder:     dec,
		Cache:       cache,
		Events:      events,
	}, rendersvc.Config{
		TileSize:      opts.TileSize,
		MaxLayers:     opts.MaxLayers,
		MaxDimension:  opts.MaxDimension,
		DecodeTimeout: opts.DecodeTimeout,
	})
	return svc, events, nil
}

func newDecoder(opts Options) (domain.Decoder, error) {
	if opts.Decoder != "command" {
		return decode.Raster{}, nil
	}
	if opts.DecoderCommand == "" {
		return nil, perr.InvalidArgf("RENDER_DECODER=command needs RENDER_DECODER_COMMAND")
	}
	return decode.ParseCommand(opts.DecoderCommand)
}

