package encode

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	perr "helioserve/internal/platform/errors"
)

func writeFrames(t *testing.T, dir string, n int) []string {
	t.Helper()
	var paths []string
	for i := range n {
		img := image.NewRGBA(image.Rect(0, 0, 16, 8))
		for y := range 8 {
			for x := range 16 {
				img.SetRGBA(x, y, color.RGBA{R: uint8(i * 40), G: uint8(x * 10), B: 20, A: 255})
			}
		}
		p := filepath.Join(dir, "f"+string(rune('a'+i))+".png")
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			t.Fatalf("png: %v", err)
		}
		if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		paths = append(paths, p)
	}
	return paths
}

func TestMJPEGEncode(t *testing.T) {
	dir := t.TempDir()
	frames := writeFrames(t, dir, 3)
	// repeated slots reuse the previous frame
	frames = append(frames, frames[2], frames[2])
	out := filepath.Join(dir, "movie.avi")

	if err := (MJPEG{Quality: 80}).Encode(context.Background(), frames, 15, out); err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("RIFF")) || !bytes.Contains(b[:16], []byte("AVI ")) {
		t.Fatalf("not an AVI container: % x", b[:16])
	}
}

func TestMJPEGErrors(t *testing.T) {
	dir := t.TempDir()

	err := (MJPEG{}).Encode(context.Background(), nil, 15, filepath.Join(dir, "x.avi"))
	if !perr.IsCode(err, perr.ErrorCodeEncodeFailure) {
		t.Fatalf("no frames: want encode_failure, got %v", err)
	}

	err = (MJPEG{}).Encode(context.Background(), []string{filepath.Join(dir, "missing.png")}, 15, filepath.Join(dir, "y.avi"))
	if !perr.IsCode(err, perr.ErrorCodeEncodeFailure) {
		t.Fatalf("missing frame: want encode_failure, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = (MJPEG{}).Encode(ctx, writeFrames(t, dir, 2), 15, filepath.Join(dir, "z.avi"))
	if !perr.IsCode(err, perr.ErrorCodeEncodeFailure) || !perr.IsContext(err) {
		t.Fatalf("cancelled: want encode_failure wrapping context error, got %v", err)
	}
}

func TestFlattenLetterboxesTransparentPixels(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	src.SetRGBA(1, 1, color.RGBA{R: 255, A: 255})

	out := flatten(src, image.Pt(4, 4))
	if got := out.RGBAAt(0, 0); got != (color.RGBA{A: 255}) {
		t.Fatalf("transparent pixel should be opaque black, got %v", got)
	}
	if got := out.RGBAAt(1, 1); got.R != 255 {
		t.Fatalf("opaque pixel lost, got %v", got)
	}
	if got := flatten(src, image.Pt(8, 8)).Bounds().Size(); got != image.Pt(8, 8) {
		t.Fatalf("resize: got %v", got)
	}
}

func TestFFmpegArgs(t *testing.T) {
	args := FFmpeg{}.args(12.5, "/tmp/seq/frame_%05d.png", 23, "medium", "/tmp/out.mp4")
	line := strings.Join(args, " ")
	for _, want := range []string{
		"-framerate 12.5",
		"-i /tmp/seq/frame_%05d.png",
		"-c:v libx264",
		"-crf 23",
		"-pix_fmt yuv420p",
		"-movflags +faststart",
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("args %q missing %q", line, want)
		}
	}
	if args[len(args)-1] != "/tmp/out.mp4" {
		t.Fatalf("output must be last, got %q", args[len(args)-1])
	}
}

func TestFFmpegRunsBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in")
	}
	dir := t.TempDir()
	frames := writeFrames(t, dir, 2)

	// stand-in that copies the first numbered frame to the output path
	script := filepath.Join(dir, "fake-ffmpeg")
	body := "#!/bin/sh\nfor a; do last=$a; done\nfor a; do case $a in *frame_%05d.png) pat=$a;; esac; done\ncp \"$(dirname \"$pat\")/frame_00000.png\" \"$last\"\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("script: %v", err)
	}

	out := filepath.Join(dir, "movie.mp4")
	if err := (FFmpeg{Path: script}).Encode(context.Background(), frames, 10, out); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		t.Fatalf("output missing: %v", err)
	}

	err := (FFmpeg{Path: "false"}).Encode(context.Background(), frames, 10, filepath.Join(dir, "bad.mp4"))
	if !perr.IsCode(err, perr.ErrorCodeEncodeFailure) {
		t.Fatalf("failing binary: want encode_failure, got %v", err)
	}
}
