// Package module wires meta endpoints into the API
package module

import (
	"time"

	"helioserve/internal/modkit"
	"helioserve/internal/modkit/httpkit"
	"helioserve/internal/modkit/module"
	metahttp "helioserve/internal/services/api/meta/http"
)

// ServiceName is reported by /meta endpoints
const ServiceName = "helioserve-api"

// Module implements modkit.Module for health, readiness and version
type Module struct {
	modkit.Base
	startedAt time.Time
}

// New constructs the meta module, readiness pings deps.PG and deps.CH when they are set
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	m := &Module{startedAt: time.Now()}
	m.Cfg = modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)

	d := metahttp.Deps{ServiceName: ServiceName, StartedAt: m.startedAt, Modules: module.Names}
	// typed nils would defeat the skipped check
	if deps.PG != nil {
		d.PG = deps.PG
	}
	if deps.CH != nil {
		d.CH = deps.CH
	}
	m.Routes = func(r httpkit.Router) { metahttp.Register(r, d) }
	return m
}
