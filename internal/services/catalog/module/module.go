// Package module wires the catalog into the API using modkit
package module

import (
	"context"

	"helioserve/internal/modkit"
	"helioserve/internal/modkit/httpkit"
	"helioserve/internal/platform/logger"
	cataloghttp "helioserve/internal/services/catalog/http"
	catalogrepo "helioserve/internal/services/catalog/repo"
	catalogsvc "helioserve/internal/services/catalog/service"
)

// Module implements modkit.Module for the catalog
type Module struct {
	modkit.Base
	svc catalogsvc.Service
}

// New builds the catalog module: postgres when deps.PG is set, otherwise a memory
// catalog optionally seeded from opts.Manifest
func New(deps modkit.Deps, opts Options, mopts ...modkit.Option) (*Module, error) {
	svc, err := NewService(context.Background(), deps, opts)
	if err != nil {
		return nil, err
	}

	m := &Module{svc: svc}
	m.Cfg = modkit.Build(append([]modkit.Option{
		modkit.WithName("catalog"),
		modkit.WithPrefix("/catalog"),
		modkit.WithPorts(Ports{Catalog: svc, Service: svc}),
	}, mopts...)...)
	m.Routes = func(r httpkit.Router) { cataloghttp.Register(r, m.svc) }
	return m, nil
}

// NewService picks the catalog backend from deps
func NewService(ctx context.Context, deps modkit.Deps, opts Options) (catalogsvc.Service, error) {
	if deps.PG != nil {
		return catalogsvc.New(deps.PG, catalogrepo.NewPG()), nil
	}

	svc := catalogsvc.NewMemory(catalogrepo.NewMemory())
	if opts.Manifest == "" {
		logger.Named("catalog").Warn().Msg("postgres disabled and no manifest set, catalog is empty")
		return svc, nil
	}
	rows, err := catalogsvc.ReadManifestFile(opts.Manifest)
	if err != nil {
		return nil, err
	}
	res, err := svc.Import(ctx, rows)
	if err != nil {
		return nil, err
	}
	logger.Named("catalog").Info().Str("manifest", opts.Manifest).Int("images", res.Images).Msg("memory catalog seeded")
	return svc, nil
}
