// Package api composes the helioserve HTTP API from its modules
package api

import (
	"context"
	"time"

	"helioserve/internal/platform/config"
	"helioserve/internal/platform/logger"
	phttp "helioserve/internal/platform/net/http"
	"helioserve/internal/platform/store"

	"helioserve/internal/modkit"
	"helioserve/internal/modkit/httpkit"
	"helioserve/internal/modkit/module"
	"helioserve/internal/modkit/swaggerkit"

	metamod "helioserve/internal/services/api/meta/module"
	catalogdomain "helioserve/internal/services/catalog/domain"
	catalogmod "helioserve/internal/services/catalog/module"
	moviesmod "helioserve/internal/services/movies/module"
	rendermod "helioserve/internal/services/render/module"
)

// Options are the API options
type Options struct {
	// Config is the root config, modules read their own prefixes from it
	Config         config.Conf
	Store          *store.Store
	EnableSwagger  bool
	EnableProfiler bool
	CORSOrigins    []string
	RequestTimeout time.Duration

	// InProcessWorker runs the movie worker inside the api process
	InProcessWorker bool
}

// App is the mounted API and the background loops its modules need
type App struct {
	render *rendermod.Module
	movies *moviesmod.Module
	worker bool
}

// Mount builds every module and mounts them onto r under /api/v1
func Mount(r phttp.Router, opt Options) (*App, error) {
	deps := modkit.Deps{
		Log: *logger.Get(),
		Cfg: opt.Config,
	}
	if opt.Store != nil {
		deps.PG = opt.Store.PG
		deps.CH = opt.Store.CH
	}

	catalog, err := catalogmod.New(deps, catalogmod.FromConfig(deps.Cfg))
	if err != nil {
		return nil, err
	}
	render, err := rendermod.New(deps, module.MustPortsOf[catalogdomain.CatalogPort](catalog), rendermod.FromConfig(deps.Cfg))
	if err != nil {
		return nil, err
	}
	movies := moviesmod.New(deps, module.MustPortsOf[moviesmod.Renderer](render), moviesmod.FromConfig(deps.Cfg))

	mods := []module.Module{
		metamod.New(deps),
		catalog,
		render,
		movies,
	}

	stack := httpkit.CommonStack(httpkit.StackOptions{
		CORSOrigins: opt.CORSOrigins,
		Timeout:     opt.RequestTimeout,
	})
	swaggerkit.Mount(r, opt.EnableSwagger)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)
	httpkit.MountAPIV1(r, stack, func(api httpkit.Router) {
		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())
			m.MountRoutes(api)
		}
	})

	return &App{render: render, movies: movies, worker: opt.InProcessWorker}, nil
}

// Run drives telemetry flushing, rate limiter sweeps and, when enabled, the movie worker until ctx ends
func (a *App) Run(ctx context.Context) error {
	go a.render.Run(ctx)
	if !a.worker {
		<-ctx.Done()
		return nil
	}
	logger.C(ctx).Info().Msg("movie worker running in process")
	if err := a.movies.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
