package service

import (
	"context"
	"fmt"
	"sort"

	"helioserve/internal/core/closest"
	"helioserve/internal/core/raster"
	perr "helioserve/internal/platform/errors"
	"helioserve/internal/services/render/domain"

	"golang.org/x/sync/errgroup"
)

// WarningLayerFailed marks a layer absorbed as transparent after a decode failure
const WarningLayerFailed = "layer_failed"

// Builder stacks layers into one composite frame
type Builder struct {
	Renderer     *Renderer
	MaxLayers    int
	MaxDimension int
}

// Visible drops hidden and fully transparent layers
func Visible(layers []domain.Layer) []domain.Layer {
	out := make([]domain.Layer, 0, len(layers))
	for _, l := range layers {
		if l.Visible && l.Opacity > 0 {
			out = append(out, l)
		}
	}
	return out
}

// Normalize filters the layers, checks limits and fills Width and Height
func (b *Builder) Normalize(req domain.CompositeRequest) (domain.CompositeRequest, error) {
	if !req.ROI.Valid() {
		return req, perr.WithField(perr.InvalidArgf("roi must have positive width and height"), "roi")
	}
	if req.Scale <= 0 {
		return req, perr.WithField(perr.InvalidArgf("scale must be positive"), "scale")
	}
	size := req.ROI.CanvasSize(req.Scale)
	if b.MaxDimension > 0 && (size.X > b.MaxDimension || size.Y > b.MaxDimension) {
		return req, perr.InvalidArgf("composite of %dx%d exceeds %d pixels per side", size.X, size.Y, b.MaxDimension)
	}
	req.Width, req.Height = size.X, size.Y

	req.Layers = Visible(req.Layers)
	if len(req.Layers) == 0 {
		return req, perr.NoVisibleLayersf("no visible layers")
	}
	if b.MaxLayers > 0 && len(req.Layers) > b.MaxLayers {
		return req, perr.WithField(perr.InvalidArgf("at most %d layers, got %d", b.MaxLayers, len(req.Layers)), "layers")
	}
	return req, nil
}

// Resolve picks the image of every layer of a normalized request
func (b *Builder) Resolve(ctx context.Context, req domain.CompositeRequest) ([]Pick, error) {
	picks := make([]Pick, len(req.Layers))
	g, gctx := errgroup.WithContext(ctx)
	for i, l := range req.Layers {
		g.Go(func() error {
			p, err := b.Renderer.Resolve(gctx, l.SourceID, req.Time)
			picks[i] = p
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return picks, nil
}

// Build renders every visible layer concurrently and merges them in layering order
// Decode failures become transparent layers with a warning, all layers failing is a decode_failure
// any other layer error aborts the build
func (b *Builder) Build(ctx context.Context, req domain.CompositeRequest) (domain.Frame, error) {
	req, err := b.Normalize(req)
	if err != nil {
		return domain.Frame{}, err
	}
	picks, err := b.Resolve(ctx, req)
	if err != nil {
		return domain.Frame{}, err
	}
	return b.Compose(ctx, req, picks)
}

// Compose draws a normalized request from picks, one per layer, and merges the layers
func (b *Builder) Compose(ctx context.Context, req domain.CompositeRequest, picks []Pick) (domain.Frame, error) {
	if len(picks) != len(req.Layers) {
		return domain.Frame{}, perr.Internalf("%d picks for %d layers", len(picks), len(req.Layers))
	}
	w := domain.Window{ROI: req.ROI, Scale: req.Scale}

	results := make([]domain.Rendered, len(req.Layers))
	failures := make([]error, len(req.Layers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(req.Layers))
	for i, l := range req.Layers {
		g.Go(func() error {
			r, err := b.Renderer.Draw(gctx, picks[i].Source, picks[i].Entry, l, w)
			results[i] = r
			if err != nil {
				if r.Failed {
					failures[i] = err
					return nil
				}
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Frame{}, err
	}

	order := mergeOrder(req.Layers)
	frame := domain.Frame{Entries: make([]closest.Entry, 0, len(order))}
	for _, i := range order {
		frame.Entries = append(frame.Entries, results[i].Entry)
		if failures[i] != nil {
			frame.Warnings = append(frame.Warnings, domain.Warning{
				Code:     WarningLayerFailed,
				Message:  failures[i].Error(),
				SourceID: req.Layers[i].SourceID,
			})
		}
	}
	if frame.Failed() == len(order) {
		return domain.Frame{}, perr.DecodeFailuref(failures[order[0]], "all %d layers failed to decode", len(order))
	}

	if len(order) == 1 {
		frame.Image = results[0].Image
	} else {
		frame.Image = raster.Transparent(results[order[0]].Image.Bounds().Size())
		for _, i := range order {
			raster.Over(frame.Image, results[i].Image)
		}
	}
	if req.Sharpen {
		frame.Image = raster.Sharpen(frame.Image)
	}
	return frame, nil
}

// mergeOrder returns layer indices ascending by LayeringOrder, ties keep request order
func mergeOrder(layers []domain.Layer) []int {
	idx := make([]int, len(layers))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return layers[idx[a]].LayeringOrder < layers[idx[b]].LayeringOrder
	})
	return idx
}

// summary is a one line description of the frame warnings
func summary(f domain.Frame) string {
	if f.Failed() == 1 {
		return f.Warnings[0].Message
	}
	return fmt.Sprintf("%d of %d layers failed to decode", f.Failed(), len(f.Entries))
}
