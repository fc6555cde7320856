// Package decode turns a catalogued file plus a fractional region into pixels
// Raster decodes common still formats in process, Command shells out to an external decoder
package decode

import (
	"context"
	"image"
	_ "image/gif"  // register
	_ "image/jpeg" // register
	_ "image/png"  // register
	"os"

	"helioserve/internal/core/raster"
	"helioserve/internal/core/region"
	perr "helioserve/internal/platform/errors"

	_ "golang.org/x/image/bmp"  // register
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register
	_ "golang.org/x/image/webp" // register
)

// Raster decodes png, jpeg, gif, tiff, bmp and webp files
// Gray sources stay gray so colour tables can be applied downstream
type Raster struct{}

// Decode reads path, crops it to r and applies r.Reduce halvings
// the call returns when ctx ends even if the file is still being parsed
func (Raster) Decode(ctx context.Context, path string, r region.Region) (image.Image, error) {
	type result struct {
		img image.Image
		err error
	}
	done := make(chan result, 1)
	go func() {
		img, err := decodeFile(path, r)
		done <- result{img, err}
	}()

	select {
	case <-ctx.Done():
		return nil, perr.DecodeFailuref(ctx.Err(), "decode %s", path)
	case res := <-done:
		return res.img, res.err
	}
}

func decodeFile(path string, r region.Region) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, perr.DecodeFailuref(err, "open %s", path)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, perr.DecodeFailuref(err, "decode %s", path)
	}
	return Extract(img, r)
}

// Extract crops img to the fractional region and decimates it by 2^Reduce
func Extract(img image.Image, r region.Region) (image.Image, error) {
	b := img.Bounds()
	rect := r.Pixels(b.Dx(), b.Dy()).Add(b.Min)
	if rect.Empty() {
		return nil, perr.Newf(perr.ErrorCodeDecodeFailure, "region %+v is empty for %dx%d image", r, b.Dx(), b.Dy())
	}

	size := rect.Size()
	if r.Reduce > 0 {
		f := 1 << r.Reduce
		size = image.Pt(max(1, size.X/f), max(1, size.Y/f))
	}

	var (
		src image.Image = img
		out draw.Image
	)
	if g, ok := raster.AsGray(img); ok {
		if g.Bounds().Min != b.Min {
			rect = rect.Sub(b.Min)
		}
		src, out = g, image.NewGray(image.Rectangle{Max: size})
	} else {
		out = image.NewRGBA(image.Rectangle{Max: size})
	}

	if size == rect.Size() {
		draw.Draw(out, out.Bounds(), src, rect.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(out, out.Bounds(), src, rect, draw.Src, nil)
	}
	return out, nil
}
