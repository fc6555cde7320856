// Package encode turns an ordered list of frame files into a movie
// MJPEG writes an AVI in process, FFmpeg shells out for H.264
package encode

import (
	"image"
	"image/color"
	_ "image/png" // register
	"os"

	perr "helioserve/internal/platform/errors"

	"golang.org/x/image/draw"
)

func readFrame(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

// flatten draws img over opaque black at size, resizing when the frame differs
func flatten(img image.Image, size image.Point) *image.RGBA {
	out := image.NewRGBA(image.Rectangle{Max: size})
	draw.Draw(out, out.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	if img.Bounds().Size() == size {
		draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Over)
		return out
	}
	draw.ApproxBiLinear.Scale(out, out.Bounds(), img, img.Bounds(), draw.Over, nil)
	return out
}

func encodeErr(err error, format string, a ...any) error {
	return perr.Wrapf(err, perr.ErrorCodeEncodeFailure, format, a...)
}
