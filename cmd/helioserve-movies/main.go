package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"helioserve/internal/modkit"
	"helioserve/internal/modkit/module"
	"helioserve/internal/platform/config"
	"helioserve/internal/platform/logger"
	"helioserve/internal/platform/store"

	catalogdomain "helioserve/internal/services/catalog/domain"
	catalogmod "helioserve/internal/services/catalog/module"
	moviesmod "helioserve/internal/services/movies/module"
	rendermod "helioserve/internal/services/render/module"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	var (
		fWorkers = flag.Int("workers", 0, "concurrent movie jobs (0 = MOVIES_WORKERS)")
		fEncoder = flag.String("encoder", "", "mjpeg | ffmpeg (empty = MOVIES_ENCODER)")
	)
	flag.Parse()

	root := config.New()
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.FromConfig(root, "movies"), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	if st.PG == nil {
		// jobs live in the api process when there is no shared job table
		l.Fatal().Msg("helioserve-movies needs SERVICE_PGSQL_ENABLED=true")
	}

	deps := modkit.Deps{Log: *l, Cfg: root, PG: st.PG, CH: st.CH}

	catalog, err := catalogmod.New(deps, catalogmod.FromConfig(root))
	if err != nil {
		l.Fatal().Err(err).Msg("catalog")
	}
	render, err := rendermod.New(deps, module.MustPortsOf[catalogdomain.CatalogPort](catalog), rendermod.FromConfig(root))
	if err != nil {
		l.Fatal().Err(err).Msg("render")
	}

	opts := moviesmod.FromConfig(root)
	if *fWorkers > 0 {
		opts.Workers = *fWorkers
	}
	if *fEncoder != "" {
		opts.Encoder = *fEncoder
	}
	movies := moviesmod.New(deps, module.MustPortsOf[moviesmod.Renderer](render), opts)

	go render.Run(ctx)
	if err := movies.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		l.Fatal().Err(err).Msg("movie worker failed")
	}
	l.Info().Msg("movie worker stopped")
}
