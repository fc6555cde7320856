// Package raster holds the pixel operations used to build tiles, composites and movie frames
// All outputs are premultiplied *image.RGBA
package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"golang.org/x/image/draw"
)

// Transparent returns a fully transparent canvas of the given size
func Transparent(size image.Point) *image.RGBA {
	return image.NewRGBA(image.Rectangle{Max: size})
}

// ToRGBA returns img as an *image.RGBA anchored at 0,0, copying unless it already is one
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// AsGray returns a single channel view of img when it is a gray raster
// 16-bit gray is narrowed to 8 bits, anything else reports false
func AsGray(img image.Image) (*image.Gray, bool) {
	switch g := img.(type) {
	case *image.Gray:
		return g, true
	case *image.Gray16:
		b := g.Bounds()
		out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				out.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: uint8(g.Gray16At(x, y).Y >> 8)})
			}
		}
		return out, true
	}
	return nil, false
}

// Resize scales src to size, CatmullRom when enlarging and ApproxBiLinear when shrinking
func Resize(src image.Image, size image.Point, enlarge bool) *image.RGBA {
	if src.Bounds().Size() == size {
		return ToRGBA(src)
	}
	out := image.NewRGBA(image.Rectangle{Max: size})
	var k draw.Interpolator = draw.ApproxBiLinear
	if enlarge {
		k = draw.CatmullRom
	}
	k.Scale(out, out.Bounds(), src, src.Bounds(), draw.Src, nil)
	return out
}

// Place draws content onto a transparent canvas at dst
func Place(canvas image.Point, content image.Image, dst image.Rectangle) *image.RGBA {
	out := Transparent(canvas)
	draw.Draw(out, dst, content, content.Bounds().Min, draw.Src)
	return out
}

// Over composites src over dst in place
func Over(dst *image.RGBA, src image.Image) {
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Over)
}

// Opacity scales every premultiplied channel by pct/100, pct >= 100 is a no-op
func Opacity(img *image.RGBA, pct float64) {
	if pct >= 100 {
		return
	}
	f := math.Max(pct, 0) / 100
	for i := range img.Pix {
		img.Pix[i] = uint8(math.Round(float64(img.Pix[i]) * f))
	}
}

// Annulus clears every pixel closer than inner or farther than outer from (cx, cy)
// outer <= 0 disables the outer edge
func Annulus(img *image.RGBA, cx, cy, inner, outer float64) {
	b := img.Bounds()
	in2, out2 := inner*inner, outer*outer
	for y := b.Min.Y; y < b.Max.Y; y++ {
		dy := float64(y) + 0.5 - cy
		for x := b.Min.X; x < b.Max.X; x++ {
			dx := float64(x) + 0.5 - cx
			r2 := dx*dx + dy*dy
			if r2 < in2 || (outer > 0 && r2 > out2) {
				i := img.PixOffset(x, y)
				img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 0, 0, 0, 0
			}
		}
	}
}

var sharpenKernel = [3][3]float64{
	{0, -1, 0},
	{-1, 5, -1},
	{0, -1, 0},
}

// Sharpen applies a 3x3 edge enhancing kernel to the colour channels
// alpha is preserved and colour is clamped to it so the result stays premultiplied
func Sharpen(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(b)
	copy(out.Pix, src.Pix)
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			o := out.PixOffset(x, y)
			a := float64(src.Pix[o+3])
			for c := 0; c < 3; c++ {
				var acc float64
				for ky := -1; ky <= 1; ky++ {
					for kx := -1; kx <= 1; kx++ {
						w := sharpenKernel[ky+1][kx+1]
						if w == 0 {
							continue
						}
						acc += w * float64(src.Pix[src.PixOffset(x+kx, y+ky)+c])
					}
				}
				out.Pix[o+c] = uint8(math.Round(math.Min(math.Max(acc, 0), a)))
			}
		}
	}
	return out
}

// EncodePNG encodes img as PNG
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
