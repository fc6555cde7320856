package decode

import (
	"bytes"
	"context"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"helioserve/internal/core/region"
	perr "helioserve/internal/platform/errors"
	"helioserve/internal/platform/logger"
)

// Command runs an external decoder that writes the requested region to a still image
//
// Args may use the placeholders {input} {output} {top} {left} {height} {width} {reduce}
// where the region values are fractions of the full image, for example
//
//	kdu_expand -i {input} -o {output} -region {{top},{left}},{{height},{width}} -reduce {reduce}
type Command struct {
	Path string
	Args []string
	// Ext is the output file extension the tool writes, default ".png"
	Ext string
	// TempDir holds per-call output files, default os.TempDir()
	TempDir string
}

// ParseCommand splits a whitespace separated command line into a Command
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, perr.InvalidArgf("decoder command is empty")
	}
	return Command{Path: fields[0], Args: fields[1:]}, nil
}

// Decode runs the tool under ctx, then reads its output with Raster
// the tool applies crop and reduce itself, so the output is taken whole
func (c Command) Decode(ctx context.Context, path string, r region.Region) (image.Image, error) {
	ext := c.Ext
	if ext == "" {
		ext = ".png"
	}
	dir, err := os.MkdirTemp(c.TempDir, "helioserve-decode-*")
	if err != nil {
		return nil, perr.DecodeFailuref(err, "decoder temp dir")
	}
	defer os.RemoveAll(dir)
	out := filepath.Join(dir, "region"+ext)

	args := c.expand(path, out, r)
	cmd := exec.CommandContext(ctx, c.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		logger.C(ctx).Warn().Err(err).Str("decoder", c.Path).Str("file", path).
			Str("stderr", tail(stderr.String(), 512)).Msg("external decoder failed")
		return nil, perr.DecodeFailuref(err, "decode %s", path)
	}

	return Raster{}.Decode(ctx, out, region.Region{Width: 1, Height: 1})
}

func (c Command) expand(in, out string, r region.Region) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	rep := strings.NewReplacer(
		"{input}", in,
		"{output}", out,
		"{top}", f(r.Top),
		"{left}", f(r.Left),
		"{height}", f(r.Height),
		"{width}", f(r.Width),
		"{reduce}", strconv.Itoa(r.Reduce),
	)
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = rep.Replace(a)
	}
	return args
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
