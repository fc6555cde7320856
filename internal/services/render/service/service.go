// Package service implements single layer rendering, compositing and the cached tile and composite outputs
package service

import (
	"context"
	"time"

	"helioserve/internal/adapters/telemetry"
	"helioserve/internal/core/closest"
	"helioserve/internal/core/raster"
	perr "helioserve/internal/platform/errors"
	"helioserve/internal/platform/logger"
	"helioserve/internal/services/render/domain"
)

// Service defines the render service contract
type Service interface{ domain.ServicePort }

// Config tunes rendering limits
type Config struct {
	TileSize      int
	MaxLayers     int
	MaxDimension  int
	DecodeTimeout time.Duration
}

// Deps are the ports the render service consumes
// Events may be nil, Palettes may be nil to skip colour tables
type Deps struct {
	Catalog     domain.Catalog
	Instruments domain.Instruments
	Palettes    domain.Palettes
	Decoder     domain.Decoder
	Cache       domain.Cache
	Events      *telemetry.Buffer
}

// Svc implements Service
type Svc struct {
	renderer *Renderer
	builder  *Builder
	cache    domain.Cache
	events   *telemetry.Buffer
	cfg      Config
}

var _ Service = (*Svc)(nil)

// New creates the render service
func New(d Deps, cfg Config) *Svc {
	if d.Catalog == nil {
		panic("render.Service requires a non nil Catalog")
	}
	if d.Instruments == nil {
		panic("render.Service requires non nil Instruments")
	}
	if d.Decoder == nil {
		panic("render.Service requires a non nil Decoder")
	}
	if d.Cache == nil {
		panic("render.Service requires a non nil Cache")
	}
	if cfg.TileSize <= 0 {
		cfg.TileSize = 512
	}
	if cfg.MaxLayers <= 0 {
		cfg.MaxLayers = 5
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = 4096
	}
	r := &Renderer{
		Catalog:       d.Catalog,
		Instruments:   d.Instruments,
		Palettes:      d.Palettes,
		Decoder:       d.Decoder,
		DecodeTimeout: cfg.DecodeTimeout,
	}
	return &Svc{
		renderer: r,
		builder:  &Builder{Renderer: r, MaxLayers: cfg.MaxLayers, MaxDimension: cfg.MaxDimension},
		cache:    d.Cache,
		events:   d.Events,
		cfg:      cfg,
	}
}

// Build implements domain.FrameBuilder
func (s *Svc) Build(ctx context.Context, req domain.CompositeRequest) (domain.Frame, error) {
	return s.builder.Build(ctx, req)
}

// RenderTile renders one tile as PNG through the cache
// A decode failure yields a transparent PNG that is not cached, returned with the error
func (s *Svc) RenderTile(ctx context.Context, req domain.TileRequest) (b []byte, err error) {
	start := time.Now()
	key := ""
	defer func() { s.record(ctx, "tile", []int64{req.SourceID}, key, start, b, err) }()

	if req.Size == 0 {
		req.Size = s.cfg.TileSize
	}
	if req.Size < 0 || req.Size > s.cfg.MaxDimension {
		return nil, perr.WithField(perr.InvalidArgf("tile size must be in 1..%d", s.cfg.MaxDimension), "size")
	}

	src, err := s.renderer.Catalog.Source(ctx, req.SourceID)
	if err != nil {
		return nil, err
	}
	e, err := closest.Find(ctx, s.renderer.Catalog, req.SourceID, req.Time)
	if err != nil {
		return nil, err
	}

	key = TileKey(req.SourceID, e.Timestamp, req.Zoom, req.X, req.Y, req.Size)
	layer := domain.Layer{SourceID: src.ID, Visible: true, Opacity: 100, LayeringOrder: src.LayeringOrder}
	w := domain.Window{Tile: &domain.Tile{Zoom: req.Zoom, X: req.X, Y: req.Y, Size: req.Size}}

	return s.cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]byte, error) {
		r, rerr := s.renderer.Draw(ctx, src, e, layer, w)
		if r.Image == nil {
			return nil, rerr
		}
		png, err := raster.EncodePNG(r.Image)
		if err != nil {
			return nil, err
		}
		return png, rerr
	})
}

// RenderComposite builds a composite as PNG through the cache
// A partial decode failure returns the merged PNG uncached with a decode_failure error
func (s *Svc) RenderComposite(ctx context.Context, req domain.CompositeRequest) (b []byte, err error) {
	start := time.Now()
	key := ""
	ids := make([]int64, 0, len(req.Layers))
	defer func() { s.record(ctx, "composite", ids, key, start, b, err) }()

	req, err = s.builder.Normalize(req)
	if err != nil {
		return nil, err
	}
	for _, l := range req.Layers {
		ids = append(ids, l.SourceID)
	}
	picks, err := s.builder.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	key = CompositeKey(req, picks)

	return s.cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]byte, error) {
		frame, err := s.builder.Compose(ctx, req, picks)
		if err != nil {
			return nil, err
		}
		png, err := raster.EncodePNG(frame.Image)
		if err != nil {
			return nil, err
		}
		if frame.Failed() > 0 {
			return png, perr.DecodeFailuref(nil, "%s", summary(frame))
		}
		return png, nil
	})
}

// ResolveLayers applies client defaults: shown, opacity 100 and the source's layering order
func (s *Svc) ResolveLayers(ctx context.Context, in []domain.LayerInput) ([]domain.Layer, error) {
	out := make([]domain.Layer, 0, len(in))
	for _, li := range in {
		src, err := s.renderer.Catalog.Source(ctx, li.SourceID)
		if err != nil {
			return nil, err
		}
		l := domain.Layer{SourceID: src.ID, Visible: true, Opacity: 100, LayeringOrder: src.LayeringOrder}
		if li.Visible != nil {
			l.Visible = *li.Visible
		}
		if li.Opacity != nil {
			l.Opacity = *li.Opacity
		}
		if li.LayeringOrder != nil {
			l.LayeringOrder = *li.LayeringOrder
		}
		out = append(out, l)
	}
	return out, nil
}

// Composite resolves a client request and renders it
func (s *Svc) Composite(ctx context.Context, in domain.CompositeInput) ([]byte, error) {
	layers, err := s.ResolveLayers(ctx, in.Layers)
	if err != nil {
		return nil, err
	}
	return s.RenderComposite(ctx, domain.CompositeRequest{
		Layers:  layers,
		Time:    in.Date,
		ROI:     in.ROI,
		Scale:   in.Scale,
		Sharpen: in.Sharpen,
	})
}

// record ships one render_events row
func (s *Svc) record(ctx context.Context, kind string, ids []int64, key string, start time.Time, b []byte, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case b != nil && perr.IsCode(err, perr.ErrorCodeDecodeFailure):
		outcome = "partial"
	default:
		outcome = perr.CodeOf(err).String()
	}
	d := time.Since(start)
	if outcome != "ok" {
		logger.C(ctx).Debug().Str("kind", kind).Str("outcome", outcome).Dur("took", d).Err(err).Msg("render")
	}
	s.events.Add(ctx,
		time.Now().UTC(),
		kind,
		ids,
		key,
		uint32(d.Milliseconds()),
		uint32(len(b)),
		outcome,
		logger.RequestID(ctx),
	)
}
