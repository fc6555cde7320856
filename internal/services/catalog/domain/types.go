// Package domain holds the image catalog types and ports
package domain

import (
	"fmt"

	"helioserve/internal/core/closest"
)

// DataSource is one (observatory, instrument, detector, measurement) image stream
type DataSource struct {
	ID            int64  `json:"id"`
	Observatory   string `json:"observatory"`
	Instrument    string `json:"instrument"`
	Detector      string `json:"detector"`
	Measurement   string `json:"measurement"`
	LayeringOrder int    `json:"layering_order"`
}

// Name is the human label, eg "SDO AIA AIA 171"
func (d DataSource) Name() string {
	return fmt.Sprintf("%s %s %s %s", d.Observatory, d.Instrument, d.Detector, d.Measurement)
}

// Entry is a catalogued image
type Entry = closest.Entry

// ClosestResult pairs the chosen entry with its source
type ClosestResult struct {
	Source DataSource `json:"source"`
	Entry  Entry      `json:"entry"`
	// DeltaSeconds is entry time minus requested time
	DeltaSeconds float64 `json:"delta_seconds"`
}

// ManifestRow is one line of an import manifest
// Date accepts the observation layouts or unix seconds
type ManifestRow struct {
	Observatory   string  `csv:"observatory"`
	Instrument    string  `csv:"instrument"`
	Detector      string  `csv:"detector"`
	Measurement   string  `csv:"measurement"`
	LayeringOrder int     `csv:"layering_order,omitempty"`
	Date          string  `csv:"date"`
	FilePath      string  `csv:"filepath"`
	Width         int     `csv:"width"`
	Height        int     `csv:"height"`
	Scale         float64 `csv:"scale"`
	RefX          float64 `csv:"ref_x"`
	RefY          float64 `csv:"ref_y"`
}

// ImportResult summarizes a manifest import
type ImportResult struct {
	Sources int `json:"sources"`
	Images  int `json:"images"`
}
