// Package domain holds the render request types and the ports the renderer consumes
package domain

import (
	"image"
	"time"

	"helioserve/internal/core/closest"
	"helioserve/internal/core/region"
	catalogdomain "helioserve/internal/services/catalog/domain"
)

// TileRequest addresses one pyramid tile of a data source
type TileRequest struct {
	SourceID int64
	Zoom     int
	X        int
	Y        int
	Size     int
	Time     time.Time
}

// Layer is one data source taking part in a composite
// Opacity is a percentage, 0 hides the layer
type Layer struct {
	SourceID      int64   `json:"source_id"`
	Visible       bool    `json:"visible"`
	Opacity       float64 `json:"opacity"`
	LayeringOrder int     `json:"layering_order"`
}

// CompositeRequest asks for several layers stacked over one region of interest
// Width and Height are derived from ROI and Scale
type CompositeRequest struct {
	Layers  []Layer    `json:"layers"`
	Time    time.Time  `json:"date"`
	ROI     region.ROI `json:"roi"`
	Scale   float64    `json:"scale"`
	Width   int        `json:"width"`
	Height  int        `json:"height"`
	Sharpen bool       `json:"sharpen"`
}

// Tile is the pyramid half of a Window
type Tile struct {
	Zoom int
	X    int
	Y    int
	Size int
}

// Window selects the output raster: a tile when Tile is set, otherwise ROI at Scale arcsec/px
type Window struct {
	Tile  *Tile
	ROI   region.ROI
	Scale float64
}

// Rendered is one layer drawn onto its canvas
// Failed marks a transparent stand-in for an image the decoder could not read
type Rendered struct {
	Image  *image.RGBA
	Source catalogdomain.DataSource
	Entry  closest.Entry
	Failed bool
}

// Warning describes a layer that was absorbed into a composite as transparent
type Warning struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	SourceID int64  `json:"source_id,omitempty"`
}

// Frame is a merged composite with the entries that made it, in merge order
type Frame struct {
	Image    *image.RGBA
	Entries  []closest.Entry
	Warnings []Warning
}

// Failed reports how many layers were absorbed as transparent
func (f Frame) Failed() int { return len(f.Warnings) }
