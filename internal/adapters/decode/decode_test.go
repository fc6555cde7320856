package decode

import (
	"context"
	"image"
	"image/color"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"helioserve/internal/core/region"
	perr "helioserve/internal/platform/errors"
	"helioserve/internal/platform/testkit"
)

func writeGradient(t *testing.T) string {
	t.Helper()
	g := image.NewGray(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			g.SetGray(x, y, color.Gray{Y: uint8(x * 4)})
		}
	}
	path := filepath.Join(t.TempDir(), "src.png")
	if err := os.WriteFile(path, testkit.PNG(t, g), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRasterDecodeCropAndReduce(t *testing.T) {
	path := writeGradient(t)
	ctx := context.Background()

	full, err := Raster{}.Decode(ctx, path, region.Region{Width: 1, Height: 1})
	if err != nil {
		t.Fatalf("decode full: %v", err)
	}
	if _, ok := full.(*image.Gray); !ok {
		t.Fatalf("gray source should decode to *image.Gray, got %T", full)
	}
	if full.Bounds().Size() != image.Pt(64, 32) {
		t.Fatalf("full size = %v", full.Bounds().Size())
	}

	right, err := Raster{}.Decode(ctx, path, region.Region{Left: 0.5, Width: 0.5, Height: 1})
	if err != nil {
		t.Fatalf("decode right half: %v", err)
	}
	if right.Bounds().Size() != image.Pt(32, 32) {
		t.Fatalf("right half size = %v", right.Bounds().Size())
	}
	if v := right.(*image.Gray).GrayAt(0, 0).Y; v != 128 {
		t.Fatalf("crop origin value = %d, want 128", v)
	}

	reduced, err := Raster{}.Decode(ctx, path, region.Region{Width: 1, Height: 1, Reduce: 2})
	if err != nil {
		t.Fatalf("decode reduced: %v", err)
	}
	if reduced.Bounds().Size() != image.Pt(16, 8) {
		t.Fatalf("reduced size = %v", reduced.Bounds().Size())
	}
}

func TestRasterDecodeErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := (Raster{}).Decode(ctx, filepath.Join(t.TempDir(), "nope.png"), region.Region{Width: 1, Height: 1}); !perr.IsCode(err, perr.ErrorCodeDecodeFailure) {
		t.Fatalf("missing file: %v", err)
	}

	junk := filepath.Join(t.TempDir(), "junk.png")
	_ = os.WriteFile(junk, []byte("not an image"), 0o644)
	if _, err := (Raster{}).Decode(ctx, junk, region.Region{Width: 1, Height: 1}); !perr.IsCode(err, perr.ErrorCodeDecodeFailure) {
		t.Fatalf("junk file: %v", err)
	}

	if _, err := (Raster{}).Decode(ctx, writeGradient(t), region.Region{Left: 2, Width: 1, Height: 1}); !perr.IsCode(err, perr.ErrorCodeDecodeFailure) {
		t.Fatalf("empty region: %v", err)
	}
}

func TestExtractRGBA(t *testing.T) {
	src := testkit.Solid(10, 10, color.RGBA{G: 200, A: 255})
	out, err := Extract(src, region.Region{Top: 0.5, Height: 0.5, Width: 1})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if out.Bounds().Size() != image.Pt(10, 5) {
		t.Fatalf("size = %v", out.Bounds().Size())
	}
	if c := testkit.RGBAAt(out, 3, 3); c.G != 200 {
		t.Fatalf("colour = %+v", c)
	}
}

func TestCommandDecoder(t *testing.T) {
	cp, err := exec.LookPath("cp")
	if err != nil {
		t.Skip("cp not available")
	}
	c := Command{Path: cp, Args: []string{"{input}", "{output}"}}
	img, err := c.Decode(context.Background(), writeGradient(t), region.Region{Width: 1, Height: 1})
	if err != nil {
		t.Fatalf("command decode: %v", err)
	}
	if img.Bounds().Dx() != 64 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
}

func TestCommandDecoderTimeout(t *testing.T) {
	sleep, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = Command{Path: sleep, Args: []string{"5"}}.Decode(ctx, "ignored", region.Region{Width: 1, Height: 1})
	if !perr.IsCode(err, perr.ErrorCodeDecodeFailure) {
		t.Fatalf("timeout should be a decode failure, got %v", err)
	}
}

func TestExpandPlaceholders(t *testing.T) {
	c, err := ParseCommand("kdu_expand -i {input} -o {output} -region {{top},{left}},{{height},{width}} -reduce {reduce}")
	if err != nil {
		t.Fatal(err)
	}
	args := c.expand("/in.jp2", "/out.png", region.Region{Top: 0.25, Left: 0.5, Height: 0.25, Width: 0.5, Reduce: 3})
	want := []string{"-i", "/in.jp2", "-o", "/out.png", "-region", "{0.25,0.5},{0.25,0.5}", "-reduce", "3"}
	if len(args) != len(want) {
		t.Fatalf("args = %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("arg %d = %q, want %q", i, args[i], want[i])
		}
	}

	if _, err := ParseCommand("  "); err == nil {
		t.Fatalf("empty command should fail")
	}
}
