package module

import "helioserve/internal/platform/config"

// Options controls where the catalog lives
type Options struct {
	// Manifest seeds the in-memory catalog when postgres is disabled
	Manifest string
}

// FromConfig reads CATALOG_ keys
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CATALOG_")
	return Options{
		Manifest: c.MayString("MANIFEST", ""),
	}
}
