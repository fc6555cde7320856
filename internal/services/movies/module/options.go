package module

import (
	"os"
	"path/filepath"
	"time"

	"helioserve/internal/platform/config"
)

// Options controls movie planning, the worker and the encoder
type Options struct {
	MaxFrames    int
	MaxDimension int
	WorkDir      string
	OutputDir    string

	Workers      int
	PollInterval time.Duration
	LeaseTTL     time.Duration

	// Encoder is "mjpeg" (in process AVI) or "ffmpeg" (H.264 MP4 through FFmpegPath)
	Encoder    string
	FFmpegPath string
	FrameRate  float64
	Elide      bool
}

// FromConfig reads MOVIES_ keys, MaxDimension follows RENDER_MAX_DIMENSION
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("MOVIES_")
	tmp := filepath.Join(os.TempDir(), "helioserve")
	return Options{
		MaxFrames:    c.MayPositiveInt("MAX_FRAMES", 300),
		MaxDimension: cfg.Prefix("RENDER_").MayPositiveInt("MAX_DIMENSION", 4096),
		WorkDir:      c.MayPath("WORK_DIR", filepath.Join(tmp, "frames")),
		OutputDir:    c.MayPath("OUTPUT_DIR", filepath.Join(tmp, "movies")),
		Workers:      c.MayPositiveInt("WORKERS", 2),
		PollInterval: c.MayDuration("POLL_INTERVAL", time.Second),
		LeaseTTL:     c.MayDuration("LEASE_TTL", time.Minute),
		Encoder:      c.MayEnum("ENCODER", "mjpeg", "mjpeg", "ffmpeg"),
		FFmpegPath:   c.MayString("FFMPEG_PATH", "ffmpeg"),
		FrameRate:    c.MayFloat64("FRAME_RATE", 15),
		Elide:        c.MayBool("ELIDE_REDUNDANT", true),
	}
}
