package domain

import (
	"context"
	"image"

	"helioserve/internal/core/colortable"
	"helioserve/internal/core/instruments"
	"helioserve/internal/core/region"
	catalogdomain "helioserve/internal/services/catalog/domain"
)

// Catalog is the catalog port the renderer reads from
type Catalog = catalogdomain.CatalogPort

// Decoder reads a region of an image file, Reduce decimations may be applied
type Decoder interface {
	Decode(ctx context.Context, path string, r region.Region) (image.Image, error)
}

// Palettes resolves colour tables
type Palettes interface {
	ByName(name string) (*colortable.Palette, bool)
	Lookup(instrument, detector, measurement string) (*colortable.Palette, bool)
}

// Instruments resolves per detector constants
type Instruments interface {
	Lookup(observatory, instrument, detector string) (instruments.Constants, error)
}

// Cache stores rendered bytes write-once
type Cache interface {
	GetOrCompute(ctx context.Context, key string, fn func(context.Context) ([]byte, error)) ([]byte, error)
	Put(ctx context.Context, key string, b []byte) error
}

// FrameBuilder builds one composite frame, the movie sequencer depends on it
type FrameBuilder interface {
	Build(ctx context.Context, req CompositeRequest) (Frame, error)
}

// ServicePort is the render surface exposed over http, the cli and to movies
// RenderTile and RenderComposite may return usable bytes together with a decode_failure error,
// the bytes are then a transparent or partial image that was not cached
type ServicePort interface {
	FrameBuilder
	RenderTile(ctx context.Context, req TileRequest) ([]byte, error)
	RenderComposite(ctx context.Context, req CompositeRequest) ([]byte, error)
	ResolveLayers(ctx context.Context, in []LayerInput) ([]Layer, error)
	Composite(ctx context.Context, in CompositeInput) ([]byte, error)
}
