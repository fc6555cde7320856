package service

import (
	"context"
	"image"
	"time"

	"helioserve/internal/core/closest"
	"helioserve/internal/core/colortable"
	"helioserve/internal/core/instruments"
	"helioserve/internal/core/raster"
	"helioserve/internal/core/region"
	"helioserve/internal/core/scale"
	perr "helioserve/internal/platform/errors"
	"helioserve/internal/platform/logger"
	catalogdomain "helioserve/internal/services/catalog/domain"
	"helioserve/internal/services/render/domain"
)

// Renderer draws a single layer for a tile or a region of interest
type Renderer struct {
	Catalog       domain.Catalog
	Instruments   domain.Instruments
	Palettes      domain.Palettes
	Decoder       domain.Decoder
	DecodeTimeout time.Duration
}

// Pick is the catalog image a layer resolved to
type Pick struct {
	Source catalogdomain.DataSource
	Entry  closest.Entry
}

// Resolve finds the data source and its image nearest t
func (r *Renderer) Resolve(ctx context.Context, sourceID int64, t time.Time) (Pick, error) {
	src, err := r.Catalog.Source(ctx, sourceID)
	if err != nil {
		return Pick{}, err
	}
	e, err := closest.Find(ctx, r.Catalog, sourceID, t)
	if err != nil {
		return Pick{}, err
	}
	return Pick{Source: src, Entry: e}, nil
}

// Render resolves the image nearest t and draws it into w
// A decode failure returns a transparent canvas with Failed set together with the error
func (r *Renderer) Render(ctx context.Context, layer domain.Layer, t time.Time, w domain.Window) (domain.Rendered, error) {
	p, err := r.Resolve(ctx, layer.SourceID, t)
	if err != nil {
		return domain.Rendered{}, err
	}
	return r.Draw(ctx, p.Source, p.Entry, layer, w)
}

// Draw renders a known entry
func (r *Renderer) Draw(ctx context.Context, src catalogdomain.DataSource, e closest.Entry, layer domain.Layer, w domain.Window) (domain.Rendered, error) {
	out := domain.Rendered{Source: src, Entry: e}

	consts, desired, err := r.constants(src, w)
	if err != nil {
		return out, err
	}

	g := region.Geometry{Width: e.Width, Height: e.Height, NativeScale: e.Scale, RefX: e.RefX, RefY: e.RefY}
	var p region.Placement
	if w.Tile != nil {
		p = region.MapTile(g, desired, w.Tile.Size, w.Tile.X, w.Tile.Y)
	} else {
		p = region.MapROI(g, w.ROI, desired)
	}
	if p.Empty {
		out.Image = raster.Transparent(p.Canvas)
		return out, nil
	}

	img, err := r.decode(ctx, e.FilePath, p.Region)
	if err != nil {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		logger.C(ctx).Warn().Err(err).
			Int64("source_id", src.ID).
			Str("file", e.FilePath).
			Msg("decode failed, rendering transparent")
		out.Image = raster.Transparent(p.Canvas)
		out.Failed = true
		return out, err
	}

	if gray, ok := raster.AsGray(img); ok {
		if pal := r.palette(src, consts); pal != nil {
			img = pal.Apply(gray)
		}
	}

	canvas := raster.Place(p.Canvas, raster.Resize(img, p.Content, p.Enlarge), p.Dst)
	if consts.Coronagraph() {
		cx, cy := p.Center()
		px := consts.RsunArcsec / desired
		raster.Annulus(canvas, cx, cy, consts.Occulter.Inner*px, consts.Occulter.Outer*px)
	}
	raster.Opacity(canvas, layer.Opacity)

	out.Image = canvas
	return out, nil
}

// constants returns the detector constants and the desired arcsec/px for w
// tiles need the pyramid constants, an ROI only uses them for masking and colour
func (r *Renderer) constants(src catalogdomain.DataSource, w domain.Window) (instruments.Constants, float64, error) {
	consts, err := r.Instruments.Lookup(src.Observatory, src.Instrument, src.Detector)
	if w.Tile != nil {
		if err != nil {
			return consts, 0, err
		}
		return consts, scale.Resolve(consts.BaseScale, consts.BaseZoom, w.Tile.Zoom), nil
	}
	if err != nil {
		if !perr.IsCode(err, perr.ErrorCodeNotFound) {
			return consts, 0, err
		}
		consts = instruments.Constants{RsunArcsec: instruments.DefaultRsunArcsec}
	}
	return consts, w.Scale, nil
}

func (r *Renderer) decode(ctx context.Context, path string, reg region.Region) (image.Image, error) {
	if r.DecodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.DecodeTimeout)
		defer cancel()
	}
	img, err := r.Decoder.Decode(ctx, path, reg)
	if err != nil && !perr.IsCode(err, perr.ErrorCodeDecodeFailure) {
		err = perr.DecodeFailuref(err, "decode %s", path)
	}
	return img, err
}

// palette prefers the table named by the detector constants, then guesses from the layer names
func (r *Renderer) palette(src catalogdomain.DataSource, consts instruments.Constants) *colortable.Palette {
	if r.Palettes == nil {
		return nil
	}
	if p, ok := r.Palettes.ByName(consts.ColorTable(src.Measurement)); ok {
		return p
	}
	if p, ok := r.Palettes.Lookup(src.Instrument, src.Detector, src.Measurement); ok {
		return p
	}
	return nil
}
