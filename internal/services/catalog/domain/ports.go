package domain

import (
	"context"
	"time"

	"helioserve/internal/core/closest"
)

// CatalogPort is what the renderer consumes
type CatalogPort interface {
	closest.Index
	LookupDataSource(ctx context.Context, observatory, instrument, detector, measurement string) (int64, error)
	Source(ctx context.Context, id int64) (DataSource, error)
	ListSources(ctx context.Context) ([]DataSource, error)
}

// ServicePort is the browsing and import surface exposed over http and the cli
type ServicePort interface {
	CatalogPort
	Closest(ctx context.Context, sourceID int64, t time.Time) (ClosestResult, error)
	Import(ctx context.Context, rows []ManifestRow) (ImportResult, error)
}
