// Package region maps a tile address or a region of interest onto the source image
// and describes how the decoded pixels land on the output canvas
package region

import (
	"image"
	"math"
	"strings"

	"helioserve/internal/core/scale"
)

// Geometry is what the mapper needs to know about a source image
// RefX/RefY are the disk centre in file pixels, NativeScale is arcseconds per pixel
type Geometry struct {
	Width       int
	Height      int
	NativeScale float64
	RefX        float64
	RefY        float64
}

// Region is the sub rectangle to decode as fractions of the native dimensions
// Reduce is the number of power of two decimations the decoder may apply
type Region struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Height float64 `json:"height"`
	Width  float64 `json:"width"`
	Reduce int     `json:"reduce"`
}

// Pixels converts the fractional region to a file pixel rectangle for a w x h image
func (r Region) Pixels(w, h int) image.Rectangle {
	x0 := int(math.Round(r.Left * float64(w)))
	y0 := int(math.Round(r.Top * float64(h)))
	x1 := int(math.Round((r.Left + r.Width) * float64(w)))
	y1 := int(math.Round((r.Top + r.Height) * float64(h)))
	return image.Rect(x0, y0, x1, y1).Intersect(image.Rect(0, 0, w, h))
}

// Gravity says which canvas edge partial content is anchored to
type Gravity uint8

// Gravity flags, vertical and horizontal flags combine (South|East is SouthEast)
const (
	Center Gravity = 0
	North  Gravity = 1 << iota
	South
	East
	West
)

// String returns names like "SouthEast" or "Center"
func (g Gravity) String() string {
	if g == Center {
		return "Center"
	}
	var b strings.Builder
	if g&North != 0 {
		b.WriteString("North")
	}
	if g&South != 0 {
		b.WriteString("South")
	}
	if g&East != 0 {
		b.WriteString("East")
	}
	if g&West != 0 {
		b.WriteString("West")
	}
	return b.String()
}

// Placement is the full recipe for one output raster
type Placement struct {
	Region  Region
	Scale   float64 // desired to actual ratio
	Enlarge bool
	Content image.Point     // pixel size of the real content after scaling
	Canvas  image.Point     // output raster size
	Dst     image.Rectangle // where Content lands inside Canvas
	Gravity Gravity
	Empty   bool // nothing of the image falls inside, render transparent without decoding

	centerX, centerY float64
}

// Center returns the disk centre in canvas pixel coordinates
func (p Placement) Center() (x, y float64) { return p.centerX, p.centerY }

// axis is the 1-D tiling of one image dimension
type axis struct {
	count int
	outer float64
	rel   float64
}

func tiling(dim int, rel float64) axis {
	n := int(math.Ceil(float64(dim) / rel))
	if n%2 != 0 {
		n++
	}
	n = max(n, 2)
	return axis{count: n, outer: (float64(dim) - float64(n-2)*rel) / 2, rel: rel}
}

// span returns the file pixel start and length for shifted coordinate s
func (a axis) span(s int) (start, length float64) {
	switch {
	case s == 0:
		return 0, a.outer
	case s == a.count-1:
		return a.outer + float64(s-1)*a.rel, a.outer
	default:
		return a.outer + float64(s-1)*a.rel, a.rel
	}
}

// MapTile maps tile (x, y) of a tileSize grid centred on the image at desiredScale
// x and y are signed, 0,0 is the tile just right of and below the image centre
func MapTile(g Geometry, desiredScale float64, tileSize, x, y int) Placement {
	d2a := scale.DesiredToActual(desiredScale, g.NativeScale)
	rel := float64(tileSize) * d2a
	ax, ay := tiling(g.Width, rel), tiling(g.Height, rel)

	sx, sy := x+ax.count/2, y+ay.count/2
	canvas := image.Pt(tileSize, tileSize)
	if sx < 0 || sx >= ax.count || sy < 0 || sy >= ay.count {
		return Placement{Empty: true, Canvas: canvas, Scale: d2a}
	}

	left, w := ax.span(sx)
	top, h := ay.span(sy)
	reduce, enlarge := scale.Decimation(d2a)

	content := image.Pt(
		min(tileSize, int(math.Round(w/d2a))),
		min(tileSize, int(math.Round(h/d2a))),
	)

	var grav Gravity
	var dx, dy int
	switch sx {
	case 0:
		grav |= East
		dx = tileSize - content.X
	case ax.count - 1:
		grav |= West
	default:
		dx = (tileSize - content.X) / 2
	}
	switch sy {
	case 0:
		grav |= South
		dy = tileSize - content.Y
	case ay.count - 1:
		grav |= North
	default:
		dy = (tileSize - content.Y) / 2
	}
	dst := image.Rectangle{Min: image.Pt(dx, dy), Max: image.Pt(dx+content.X, dy+content.Y)}

	return Placement{
		Region: Region{
			Top:    top / float64(g.Height),
			Left:   left / float64(g.Width),
			Height: h / float64(g.Height),
			Width:  w / float64(g.Width),
			Reduce: reduce,
		},
		Scale:   d2a,
		Enlarge: enlarge,
		Content: content,
		Canvas:  canvas,
		Dst:     dst,
		Gravity: grav,
		centerX: float64(dx) + (g.RefX-left)/d2a,
		centerY: float64(dy) + (g.RefY-top)/d2a,
	}
}

// ROI is a region of interest in arcseconds relative to the disk centre
// Y grows downward like image rows
type ROI struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Valid reports whether the ROI has positive area
func (r ROI) Valid() bool { return r.X1 > r.X0 && r.Y1 > r.Y0 }

// CanvasSize is the output raster size for the ROI at desiredScale
func (r ROI) CanvasSize(desiredScale float64) image.Point {
	return image.Pt(
		int(math.Ceil((r.X1-r.X0)/desiredScale)),
		int(math.Ceil((r.Y1-r.Y0)/desiredScale)),
	)
}

// MapROI maps an arcsecond region of interest onto the image at desiredScale
// parts of the ROI outside the image stay transparent
func MapROI(g Geometry, roi ROI, desiredScale float64) Placement {
	d2a := scale.DesiredToActual(desiredScale, g.NativeScale)
	canvas := roi.CanvasSize(desiredScale)

	// ROI in file pixels
	fx0 := g.RefX + roi.X0/g.NativeScale
	fy0 := g.RefY + roi.Y0/g.NativeScale
	fx1 := g.RefX + roi.X1/g.NativeScale
	fy1 := g.RefY + roi.Y1/g.NativeScale

	cx0, cy0 := math.Max(fx0, 0), math.Max(fy0, 0)
	cx1, cy1 := math.Min(fx1, float64(g.Width)), math.Min(fy1, float64(g.Height))

	p := Placement{
		Canvas:  canvas,
		Scale:   d2a,
		Gravity: Center,
		centerX: -roi.X0 / desiredScale,
		centerY: -roi.Y0 / desiredScale,
	}
	if cx1 <= cx0 || cy1 <= cy0 {
		p.Empty = true
		return p
	}

	reduce, enlarge := scale.Decimation(d2a)
	dx := int(math.Round((cx0 - fx0) / d2a))
	dy := int(math.Round((cy0 - fy0) / d2a))
	content := image.Pt(
		max(1, int(math.Round((cx1-cx0)/d2a))),
		max(1, int(math.Round((cy1-cy0)/d2a))),
	)
	dst := image.Rectangle{Min: image.Pt(dx, dy), Max: image.Pt(dx+content.X, dy+content.Y)}
	dst = dst.Intersect(image.Rectangle{Max: canvas})
	if dst.Empty() {
		p.Empty = true
		return p
	}

	p.Region = Region{
		Top:    cy0 / float64(g.Height),
		Left:   cx0 / float64(g.Width),
		Height: (cy1 - cy0) / float64(g.Height),
		Width:  (cx1 - cx0) / float64(g.Width),
		Reduce: reduce,
	}
	p.Enlarge = enlarge
	p.Content = dst.Size()
	p.Dst = dst
	return p
}
