// Package service implements catalog browsing, nearest-time lookup and manifest import
package service

import (
	"context"
	"time"

	"helioserve/internal/core/closest"
	"helioserve/internal/modkit/repokit"
	perr "helioserve/internal/platform/errors"
	"helioserve/internal/platform/logger"
	"helioserve/internal/services/catalog/domain"
	"helioserve/internal/services/catalog/repo"
)

// Service defines the service contract for the catalog
type Service interface{ domain.ServicePort }

// importChunk bounds the multi-row insert size
const importChunk = 500

// Svc implements Service
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner
}

var _ Service = (*Svc)(nil)

// New creates a postgres backed catalog service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo]) *Svc {
	if db == nil {
		panic("catalog.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("catalog.Service requires a non nil Repo binder")
	}
	return &Svc{Repo: binder.Bind(db), binder: binder, db: db}
}

// NewMemory creates a service over an in-process repo
func NewMemory(r *repo.Memory) *Svc { return &Svc{Repo: r} }

// ListSources returns every data source
func (s *Svc) ListSources(ctx context.Context) ([]domain.DataSource, error) {
	return s.Repo.ListSources(ctx)
}

// Source loads one data source
func (s *Svc) Source(ctx context.Context, id int64) (domain.DataSource, error) {
	return s.Repo.Source(ctx, id)
}

// LookupDataSource resolves names to a source id
func (s *Svc) LookupDataSource(ctx context.Context, observatory, instrument, detector, measurement string) (int64, error) {
	d, err := s.Repo.FindSource(ctx, observatory, instrument, detector, measurement)
	if err != nil {
		return 0, err
	}
	return d.ID, nil
}

// NearestBefore implements closest.Index
func (s *Svc) NearestBefore(ctx context.Context, sourceID int64, t time.Time) (*domain.Entry, error) {
	return s.Repo.NearestBefore(ctx, sourceID, t)
}

// NearestAtOrAfter implements closest.Index
func (s *Svc) NearestAtOrAfter(ctx context.Context, sourceID int64, t time.Time) (*domain.Entry, error) {
	return s.Repo.NearestAtOrAfter(ctx, sourceID, t)
}

// Closest returns the image nearest t together with its source
func (s *Svc) Closest(ctx context.Context, sourceID int64, t time.Time) (domain.ClosestResult, error) {
	src, err := s.Repo.Source(ctx, sourceID)
	if err != nil {
		return domain.ClosestResult{}, err
	}
	e, err := closest.Find(ctx, s.Repo, sourceID, t)
	if err != nil {
		return domain.ClosestResult{}, err
	}
	return domain.ClosestResult{
		Source:       src,
		Entry:        e,
		DeltaSeconds: e.Timestamp.Sub(t).Seconds(),
	}, nil
}

// Import upserts the manifest's sources and inserts its images
// with postgres the whole manifest lands in one transaction
func (s *Svc) Import(ctx context.Context, rows []domain.ManifestRow) (domain.ImportResult, error) {
	entries := make([]domain.Entry, 0, len(rows))
	for i, r := range rows {
		e, err := toEntry(r)
		if err != nil {
			return domain.ImportResult{}, perr.Wrapf(err, perr.CodeOf(err), "manifest row %d", i+2)
		}
		entries = append(entries, e)
	}

	var res domain.ImportResult
	run := func(r repo.Repo) error {
		ids := map[domain.DataSource]int64{}
		distinct := map[int64]struct{}{}
		for i, row := range rows {
			ds := sourceOf(row)
			id, ok := ids[ds]
			if !ok {
				var err error
				if id, err = r.UpsertSource(ctx, ds); err != nil {
					return err
				}
				ids[ds] = id
			}
			distinct[id] = struct{}{}
			entries[i].SourceID = id
		}
		res.Sources = len(distinct)

		for start := 0; start < len(entries); start += importChunk {
			end := min(start+importChunk, len(entries))
			n, err := r.WriteImages(ctx, entries[start:end])
			if err != nil {
				return err
			}
			res.Images += int(n)
		}
		return nil
	}

	var err error
	if s.db != nil {
		err = repokit.WithTx(ctx, s.db, func(q repokit.Queryer) error { return run(s.binder.Bind(q)) })
	} else {
		err = run(s.Repo)
	}
	if err != nil {
		return domain.ImportResult{}, err
	}

	logger.C(ctx).Info().Int("sources", res.Sources).Int("images", res.Images).Int("rows", len(rows)).Msg("catalog import")
	return res, nil
}

func sourceOf(r domain.ManifestRow) domain.DataSource {
	order := r.LayeringOrder
	if order == 0 {
		order = 1
	}
	return domain.DataSource{
		Observatory:   r.Observatory,
		Instrument:    r.Instrument,
		Detector:      r.Detector,
		Measurement:   r.Measurement,
		LayeringOrder: order,
	}
}
