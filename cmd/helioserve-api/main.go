// @title         Helioserve API
// @version       0.1.0
// @description   Solar image tiles, composites and movies

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"helioserve/internal/platform/config"
	"helioserve/internal/platform/logger"
	phttp "helioserve/internal/platform/net/http"
	"helioserve/internal/platform/store"

	"helioserve/internal/services/api"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	// a missing .env is fine, the environment wins either way
	_ = godotenv.Load()

	root := config.New()
	apiCfg := root.Prefix("CORE_API_")
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.FromConfig(root, "api"), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	if err := st.Migrate(ctx); err != nil {
		l.Panic().Err(err).Msg("migrate failed")
	}

	// http server (reads CORE_API_PORT)
	srv := phttp.NewServer(apiCfg)

	app, err := api.Mount(srv.Router(), api.Options{
		Config:          root,
		Store:           st,
		EnableSwagger:   apiCfg.MayBool("ENABLE_SWAGGER", true),
		EnableProfiler:  apiCfg.MayBool("ENABLE_PROFILER", false),
		CORSOrigins:     apiCfg.MayCSV("CORS_ORIGINS", nil),
		RequestTimeout:  apiCfg.MayDuration("REQUEST_TIMEOUT", 0),
		InProcessWorker: root.Prefix("MOVIES_").MayBool("IN_PROCESS_WORKER", st.PG == nil),
	})
	if err != nil {
		l.Panic().Err(err).Msg("api mount failed")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return app.Run(gctx) })
	if err := g.Wait(); err != nil {
		l.Error().Err(err).Msg("helioserve-api stopped")
		os.Exit(1)
	}
}
