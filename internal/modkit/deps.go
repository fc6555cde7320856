package modkit

import (
	"helioserve/internal/modkit/repokit"
	"helioserve/internal/platform/config"
	"helioserve/internal/platform/logger"
	"helioserve/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// PG and CH are nil when the store runs without them, modules fall back to memory or no-op adapters
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
}
