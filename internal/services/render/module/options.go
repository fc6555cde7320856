package module

import (
	"time"

	"helioserve/internal/platform/config"
)

// Options controls the render pipeline
type Options struct {
	TileSize      int
	MaxLayers     int
	MaxDimension  int
	DecodeTimeout time.Duration

	// Decoder is "raster" (in process) or "command" (DecoderCommand per region)
	Decoder        string
	DecoderCommand string

	CacheDir           string
	CacheMemoryEntries int

	InstrumentsFile string
	ColorTableDir   string

	// RateLimitRPS <= 0 disables per client limiting of render routes
	RateLimitRPS   float64
	RateLimitBurst int
}

// FromConfig reads RENDER_ keys plus the CORE_API_ rate limit
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("RENDER_")
	api := cfg.Prefix("CORE_API_")
	return Options{
		TileSize:           c.MayPositiveInt("TILE_SIZE", 512),
		MaxLayers:          c.MayPositiveInt("MAX_LAYERS", 5),
		MaxDimension:       c.MayPositiveInt("MAX_DIMENSION", 4096),
		DecodeTimeout:      c.MayDuration("DECODE_TIMEOUT", 30*time.Second),
		Decoder:            c.MayEnum("DECODER", "raster", "raster", "command"),
		DecoderCommand:     c.MayString("DECODER_COMMAND", ""),
		CacheDir:           c.MayPath("CACHE_DIR", ""),
		CacheMemoryEntries: c.MayPositiveInt("CACHE_MEMORY_ENTRIES", 512),
		InstrumentsFile:    c.MayPath("INSTRUMENTS_FILE", ""),
		ColorTableDir:      c.MayPath("COLOR_TABLE_DIR", ""),
		RateLimitRPS:       api.MayFloat64("RATE_LIMIT_RPS", 0),
		RateLimitBurst:     api.MayPositiveInt("RATE_LIMIT_BURST", 20),
	}
}
