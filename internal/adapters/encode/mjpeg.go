package encode

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"math"

	"github.com/icza/mjpeg"
)

// MJPEG writes an AVI with Motion JPEG frames
type MJPEG struct {
	// Quality is the JPEG quality 1..100, default 90
	Quality int
}

// Encode implements the movie encoder port
// frames are letterboxed onto black at the size of the first frame
func (m MJPEG) Encode(ctx context.Context, paths []string, frameRate float64, output string) error {
	if len(paths) == 0 {
		return encodeErr(nil, "no frames to encode")
	}
	q := m.Quality
	if q <= 0 || q > 100 {
		q = 90
	}
	fps := int32(max(1, math.Round(frameRate)))

	first, err := readFrame(paths[0])
	if err != nil {
		return encodeErr(err, "read frame %s", paths[0])
	}
	size := first.Bounds().Size()

	w, err := mjpeg.New(output, int32(size.X), int32(size.Y), fps)
	if err != nil {
		return encodeErr(err, "create %s", output)
	}

	var (
		buf  bytes.Buffer
		last string
		jpg  []byte
	)
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			_ = w.Close()
			return encodeErr(err, "encode cancelled at frame %d", i)
		}
		// consecutive repeats of one file reuse its encoded bytes
		if p != last {
			var img image.Image = first
			if i > 0 {
				if img, err = readFrame(p); err != nil {
					_ = w.Close()
					return encodeErr(err, "read frame %s", p)
				}
			}
			buf.Reset()
			if err := jpeg.Encode(&buf, flatten(img, size), &jpeg.Options{Quality: q}); err != nil {
				_ = w.Close()
				return encodeErr(err, "jpeg frame %d", i)
			}
			jpg = append(jpg[:0], buf.Bytes()...)
			last = p
		}
		if err := w.AddFrame(jpg); err != nil {
			_ = w.Close()
			return encodeErr(err, "add frame %d", i)
		}
	}
	if err := w.Close(); err != nil {
		return encodeErr(err, "finalize %s", output)
	}
	return nil
}
