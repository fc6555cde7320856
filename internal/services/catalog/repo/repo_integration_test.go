//go:build integration_pg

package repo_test

import (
	"context"
	"testing"
	"time"

	"helioserve/internal/core/closest"
	perr "helioserve/internal/platform/errors"
	"helioserve/internal/platform/store/pgtest"
	"helioserve/internal/services/catalog/domain"
	"helioserve/internal/services/catalog/repo"
)

func TestPGCatalog(t *testing.T) {
	db := pgtest.Start(t)
	ctx := context.Background()
	r := repo.NewPG().Bind(db)

	id, err := r.UpsertSource(ctx, domain.DataSource{Observatory: "SDO", Instrument: "AIA", Detector: "AIA", Measurement: "171", LayeringOrder: 1})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	again, err := r.UpsertSource(ctx, domain.DataSource{Observatory: "SDO", Instrument: "AIA", Detector: "AIA", Measurement: "171", LayeringOrder: 2})
	if err != nil || again != id {
		t.Fatalf("second upsert = %d, %v (want %d)", again, err, id)
	}

	found, err := r.FindSource(ctx, "sdo", "aia", "aia", "171")
	if err != nil || found.ID != id || found.LayeringOrder != 2 {
		t.Fatalf("find = %+v, %v", found, err)
	}
	if _, err := r.FindSource(ctx, "SDO", "AIA", "AIA", "94"); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("missing source should be not found, got %v", err)
	}

	t0 := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)
	var xs []domain.Entry
	for i := 0; i < 3; i++ {
		xs = append(xs, domain.Entry{
			SourceID: id, Timestamp: t0.Add(time.Duration(i) * time.Minute),
			FilePath: "/data/aia.png", Width: 4096, Height: 4096, Scale: 0.6, RefX: 2048, RefY: 2048,
		})
	}
	n, err := r.WriteImages(ctx, xs)
	if err != nil || n != 3 {
		t.Fatalf("write = %d, %v", n, err)
	}
	if n, _ := r.WriteImages(ctx, xs[:1]); n != 0 {
		t.Fatalf("duplicate image inserted")
	}

	e, err := closest.Find(ctx, r, id, t0.Add(90*time.Second))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !e.Timestamp.Equal(t0.Add(2 * time.Minute)) {
		t.Fatalf("tie should go to the later image, got %s", e.Timestamp)
	}

	before, err := r.NearestBefore(ctx, id, t0)
	if err != nil || before != nil {
		t.Fatalf("nothing before first image, got %v %v", before, err)
	}

	srcs, err := r.ListSources(ctx)
	if err != nil || len(srcs) != 1 {
		t.Fatalf("list = %v, %v", srcs, err)
	}
}
