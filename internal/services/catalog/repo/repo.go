// Package repo provides the catalog persistence: postgres and an in-memory variant
package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"helioserve/internal/core/closest"
	"helioserve/internal/modkit/repokit"
	perr "helioserve/internal/platform/errors"
	"helioserve/internal/platform/store"
	"helioserve/internal/services/catalog/domain"
)

// Repo is the catalog persistence surface used by the service layer
type Repo interface {
	closest.Index

	ListSources(ctx context.Context) ([]domain.DataSource, error)
	Source(ctx context.Context, id int64) (domain.DataSource, error)
	FindSource(ctx context.Context, observatory, instrument, detector, measurement string) (domain.DataSource, error)

	// UpsertSource returns the id of the matching source, creating it when missing
	UpsertSource(ctx context.Context, ds domain.DataSource) (int64, error)
	// WriteImages inserts entries, existing (source_id, date) pairs are left untouched
	WriteImages(ctx context.Context, xs []domain.Entry) (int64, error)
}

type (
	// PG is a Postgres implementation of the catalog repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

const sourceCols = `id, observatory, instrument, detector, measurement, layering_order`

func scanSource(r store.Row) (domain.DataSource, error) {
	var d domain.DataSource
	err := r.Scan(&d.ID, &d.Observatory, &d.Instrument, &d.Detector, &d.Measurement, &d.LayeringOrder)
	return d, err
}

const entryCols = `id, source_id, date, filepath, width, height, scale, ref_x, ref_y`

func scanEntry(r store.Row) (domain.Entry, error) {
	var e domain.Entry
	err := r.Scan(&e.ID, &e.SourceID, &e.Timestamp, &e.FilePath, &e.Width, &e.Height, &e.Scale, &e.RefX, &e.RefY)
	e.Timestamp = e.Timestamp.UTC()
	return e, err
}

func (r *queries) ListSources(ctx context.Context) ([]domain.DataSource, error) {
	out, err := store.Many(ctx, r.q, scanSource,
		`SELECT `+sourceCols+` FROM data_sources ORDER BY observatory, instrument, detector, measurement`)
	if err != nil {
		return nil, perr.FromPostgres(err, "list data sources")
	}
	return out, nil
}

func (r *queries) Source(ctx context.Context, id int64) (domain.DataSource, error) {
	d, err := store.One(ctx, r.q, scanSource, `SELECT `+sourceCols+` FROM data_sources WHERE id = $1`, id)
	if perr.Is(err, perr.ErrNotFound) {
		return d, perr.NotFoundf("data source %d not found", id)
	}
	if err != nil {
		return d, perr.FromPostgresf(err, "load data source %d", id)
	}
	return d, nil
}

// FindSource matches names case-insensitively
func (r *queries) FindSource(ctx context.Context, observatory, instrument, detector, measurement string) (domain.DataSource, error) {
	const sql = `
		SELECT ` + sourceCols + `
		  FROM data_sources
		 WHERE lower(observatory) = lower($1)
		   AND lower(instrument)  = lower($2)
		   AND lower(detector)    = lower($3)
		   AND lower(measurement) = lower($4)`
	d, err := store.One(ctx, r.q, scanSource, sql,
		strings.TrimSpace(observatory), strings.TrimSpace(instrument),
		strings.TrimSpace(detector), strings.TrimSpace(measurement))
	if perr.Is(err, perr.ErrNotFound) {
		return d, perr.NotFoundf("no data source %s/%s/%s/%s", observatory, instrument, detector, measurement)
	}
	if err != nil {
		return d, perr.FromPostgres(err, "find data source")
	}
	return d, nil
}

func (r *queries) UpsertSource(ctx context.Context, ds domain.DataSource) (int64, error) {
	const sql = `
		INSERT INTO data_sources (observatory, instrument, detector, measurement, layering_order)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (observatory, instrument, detector, measurement)
		DO UPDATE SET layering_order = EXCLUDED.layering_order
		RETURNING id`
	id, err := store.Scalar[int64](ctx, r.q, sql, ds.Observatory, ds.Instrument, ds.Detector, ds.Measurement, ds.LayeringOrder)
	if err != nil {
		return 0, perr.FromPostgresf(err, "upsert data source %s", ds.Name())
	}
	return id, nil
}

// WriteImages inserts in one multi-row statement
func (r *queries) WriteImages(ctx context.Context, xs []domain.Entry) (int64, error) {
	if len(xs) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO images (source_id, date, filepath, width, height, scale, ref_x, ref_y) VALUES `)
	args := make([]any, 0, len(xs)*8)
	for i, e := range xs {
		if i > 0 {
			sb.WriteByte(',')
		}
		base := i*8 + 1
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base, base+1, base+2, base+3, base+4, base+5, base+6, base+7)
		args = append(args, e.SourceID, e.Timestamp, e.FilePath, e.Width, e.Height, e.Scale, e.RefX, e.RefY)
	}
	sb.WriteString(` ON CONFLICT (source_id, date) DO NOTHING`)

	tag, err := r.q.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, perr.FromPostgres(err, "write images")
	}
	return tag.RowsAffected(), nil
}

// NearestBefore is the bounded ts < t probe over (source_id, date)
func (r *queries) NearestBefore(ctx context.Context, sourceID int64, t time.Time) (*domain.Entry, error) {
	return r.nearest(ctx, `SELECT `+entryCols+` FROM images
		WHERE source_id = $1 AND date < $2 ORDER BY date DESC LIMIT 1`, sourceID, t)
}

// NearestAtOrAfter is the bounded ts >= t probe over (source_id, date)
func (r *queries) NearestAtOrAfter(ctx context.Context, sourceID int64, t time.Time) (*domain.Entry, error) {
	return r.nearest(ctx, `SELECT `+entryCols+` FROM images
		WHERE source_id = $1 AND date >= $2 ORDER BY date ASC LIMIT 1`, sourceID, t)
}

func (r *queries) nearest(ctx context.Context, sql string, sourceID int64, t time.Time) (*domain.Entry, error) {
	xs, err := store.Many(ctx, r.q, scanEntry, sql, sourceID, t.UTC())
	if err != nil {
		return nil, perr.FromPostgresf(err, "nearest image for source %d", sourceID)
	}
	if len(xs) == 0 {
		return nil, nil
	}
	return &xs[0], nil
}
