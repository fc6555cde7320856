package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"helioserve/internal/adapters/telemetry"
	"helioserve/internal/modkit"
	"helioserve/internal/platform/config"
	"helioserve/internal/platform/logger"
	"helioserve/internal/platform/store"
	catalogmod "helioserve/internal/services/catalog/module"
	catalogsvc "helioserve/internal/services/catalog/service"
	rendermod "helioserve/internal/services/render/module"
	rendersvc "helioserve/internal/services/render/service"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "helioctl",
	Short:         "Render solar image tiles, composites and movies",
	Long:          "helioctl runs the helioserve render pipeline in process against the configured catalog.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
		} else {
			_ = godotenv.Load()
		}
		opt := logger.FromEnv()
		opt.Writer = os.Stderr
		if v, _ := cmd.Flags().GetBool("verbose"); v {
			opt.Level = "debug"
		}
		logger.Init(opt)
		return nil
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "helioctl:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("env-file", "", "dotenv file to load (default .env when present)")
	rootCmd.PersistentFlags().String("manifest", "", "CSV manifest for the memory catalog (overrides CATALOG_MANIFEST)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging on stderr")
}

// env is the pipeline a command runs against
type env struct {
	root    config.Conf
	deps    modkit.Deps
	store   *store.Store
	catalog catalogsvc.Service
	render  *rendersvc.Svc
	events  *telemetry.Buffer
}

// open connects the configured stores and assembles catalog and render services
func open(ctx context.Context, cmd *cobra.Command) (*env, error) {
	root := config.New()
	l := logger.Get()

	st, err := store.Open(ctx, store.FromConfig(root, "cli"), store.WithLogger(*l))
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close(ctx)
		return nil, err
	}
	deps := modkit.Deps{Log: *l, Cfg: root, PG: st.PG, CH: st.CH}

	copts := catalogmod.FromConfig(root)
	if m, _ := cmd.Flags().GetString("manifest"); m != "" {
		copts.Manifest = m
	}
	catalog, err := catalogmod.NewService(ctx, deps, copts)
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}
	render, events, err := rendermod.NewService(deps, catalog, rendermod.FromConfig(root))
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}
	return &env{root: root, deps: deps, store: st, catalog: catalog, render: render, events: events}, nil
}

// Close flushes telemetry and closes the stores
func (e *env) Close(ctx context.Context) {
	e.events.Flush(ctx)
	if err := e.store.Close(ctx); err != nil {
		logger.Get().Warn().Err(err).Msg("close store")
	}
}
