// Package scale converts zoom levels into image scales (arcseconds per pixel)
// and derives the decoder decimation for a requested scale
package scale

import "math"

// Resolve returns the image scale at zoom given the instrument's scale at baseZoom
// each zoom step doubles the scale
func Resolve(baseScale float64, baseZoom, zoom int) float64 {
	return baseScale * math.Pow(2, float64(zoom-baseZoom))
}

// DesiredToActual is the ratio between the requested scale and the file's native scale
// > 1 means the output is coarser than the file, < 1 means it must be enlarged
func DesiredToActual(desired, native float64) float64 {
	return desired / native
}

// Decimation returns the number of power of two reductions the decoder may apply
// and whether the decoded region must be enlarged afterwards
func Decimation(desiredToActual float64) (reduce int, enlarge bool) {
	if desiredToActual < 1 {
		return 0, true
	}
	// floor of log2, guarded against float error just under an exact power of two
	r := int(math.Floor(math.Log2(desiredToActual) + 1e-9))
	return max(0, r), false
}
