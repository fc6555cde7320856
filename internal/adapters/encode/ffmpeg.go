package encode

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"helioserve/internal/platform/logger"
)

// FFmpeg encodes H.264 through an ffmpeg binary
type FFmpeg struct {
	Path   string
	CRF    int
	Preset string
}

// Encode links the frames into a numbered sequence and runs ffmpeg on it
func (f FFmpeg) Encode(ctx context.Context, paths []string, frameRate float64, output string) error {
	if len(paths) == 0 {
		return encodeErr(nil, "no frames to encode")
	}
	bin := f.Path
	if bin == "" {
		bin = "ffmpeg"
	}
	crf := f.CRF
	if crf <= 0 || crf > 51 {
		crf = 23
	}
	preset := f.Preset
	if preset == "" {
		preset = "medium"
	}

	seq, err := os.MkdirTemp("", "helioserve-frames-*")
	if err != nil {
		return encodeErr(err, "frame sequence dir")
	}
	defer os.RemoveAll(seq)

	for i, p := range paths {
		dst := filepath.Join(seq, fmt.Sprintf("frame_%05d.png", i))
		abs, err := filepath.Abs(p)
		if err != nil {
			return encodeErr(err, "frame %d", i)
		}
		if err := os.Symlink(abs, dst); err != nil {
			return encodeErr(err, "link frame %d", i)
		}
	}

	args := f.args(frameRate, filepath.Join(seq, "frame_%05d.png"), crf, preset, output)
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.C(ctx).Debug().Str("ffmpeg", bin).Strs("args", args).Msg("encoding movie")
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		logger.C(ctx).Warn().Err(err).Str("stderr", lastBytes(stderr.Bytes(), 1024)).Msg("ffmpeg failed")
		return encodeErr(err, "ffmpeg %s", output)
	}

	if info, err := os.Stat(output); err != nil || info.Size() == 0 {
		return encodeErr(err, "ffmpeg produced no output at %s", output)
	}
	return nil
}

func (f FFmpeg) args(frameRate float64, pattern string, crf int, preset, output string) []string {
	return []string{
		"-y",
		"-framerate", strconv.FormatFloat(frameRate, 'f', -1, 64),
		"-i", pattern,
		"-c:v", "libx264",
		"-preset", preset,
		"-crf", strconv.Itoa(crf),
		"-pix_fmt", "yuv420p",
		// yuv420p needs even dimensions
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-movflags", "+faststart",
		output,
	}
}

func lastBytes(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(b)
}
