package domain

import (
	"time"

	"helioserve/internal/core/region"
	perr "helioserve/internal/platform/errors"
)

// TileQuery is the query half of a tile request, the address comes from the path
type TileQuery struct {
	Date time.Time `query:"date" validate:"required"`
	Size int       `query:"size" validate:"omitempty,min=16,max=4096"`
}

// LayerInput is a layer as clients send it
// Visible and Opacity default to shown at 100, LayeringOrder defaults to the source's
type LayerInput struct {
	SourceID      int64    `json:"source_id" validate:"required,min=1"`
	Visible       *bool    `json:"visible,omitempty"`
	Opacity       *float64 `json:"opacity,omitempty" validate:"omitempty,min=0,max=100"`
	LayeringOrder *int     `json:"layering_order,omitempty"`
}

// CompositeInput is the composite request body
type CompositeInput struct {
	Layers  []LayerInput `json:"layers" validate:"required,min=1,dive"`
	Date    time.Time    `json:"date" validate:"required"`
	ROI     region.ROI   `json:"roi"`
	Scale   float64      `json:"scale" validate:"gt=0"`
	Sharpen bool         `json:"sharpen"`
}

// Check rejects a source listed more than once
func (in CompositeInput) Check() error { return CheckLayers(in.Layers) }

// CheckLayers reports the first data source that appears twice in layers
func CheckLayers(layers []LayerInput) error {
	seen := make(map[int64]struct{}, len(layers))
	for _, l := range layers {
		if _, dup := seen[l.SourceID]; dup {
			return perr.WithField(perr.Newf(perr.ErrorCodeValidation, "source %d is listed more than once", l.SourceID), "layers")
		}
		seen[l.SourceID] = struct{}{}
	}
	return nil
}
