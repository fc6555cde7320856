package store

import (
	"time"

	"helioserve/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	// Guard/boot knobs:
	ConnectRetries int           // default 20
	PingTimeout    time.Duration // default 3s
}

// CHConfig configures clickhouse connectivity
// ClientName/ClientTag end up in system.query_log via the client info products
type CHConfig struct {
	Enabled    bool
	URL        string
	LogSQL     bool
	ClientName string
	ClientTag  string
}

// FromConfig reads SERVICE_PGSQL_ and SERVICE_CLICKHOUSE_ keys, tag names the binary in query logs
// a backend without ENABLED=true stays off and the services fall back to memory or no-op adapters
func FromConfig(root config.Conf, tag string) Config {
	pg := root.Prefix("SERVICE_PGSQL_")
	ch := root.Prefix("SERVICE_CLICKHOUSE_")
	c := Config{
		AppName: "helioserve",
		PG: PGConfig{
			Enabled:     pg.MayBool("ENABLED", false),
			MaxConns:    int32(pg.MayPositiveInt("MAX_CONNS", 4)),
			SlowQueryMs: pg.MayInt("SLOW_MS", 500),
			LogSQL:      pg.MayBool("LOG_SQL", false),
		},
		CH: CHConfig{
			Enabled:    ch.MayBool("ENABLED", false),
			LogSQL:     ch.MayBool("LOG_SQL", false),
			ClientName: "helioserve",
			ClientTag:  tag,
		},
	}
	if c.PG.Enabled {
		c.PG.URL = pg.MustString("URL")
	}
	if c.CH.Enabled {
		c.CH.URL = ch.MustString("URL")
	}
	return c
}
