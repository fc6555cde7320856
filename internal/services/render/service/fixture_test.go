package service

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"helioserve/internal/adapters/tilecache"
	"helioserve/internal/core/colortable"
	"helioserve/internal/core/instruments"
	"helioserve/internal/core/region"
	perr "helioserve/internal/platform/errors"
	"helioserve/internal/platform/testkit"
	catalogdomain "helioserve/internal/services/catalog/domain"
	catalogrepo "helioserve/internal/services/catalog/repo"
	catalogsvc "helioserve/internal/services/catalog/service"
	"helioserve/internal/services/render/domain"
)

var t0 = time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeDecoder hands out a fresh image per path and counts calls
type fakeDecoder struct {
	mu     sync.Mutex
	calls  map[string]int
	images map[string]func() image.Image
	fail   map[string]bool
}

func newDecoder() *fakeDecoder {
	return &fakeDecoder{calls: map[string]int{}, images: map[string]func() image.Image{}, fail: map[string]bool{}}
}

func (d *fakeDecoder) Decode(_ context.Context, path string, _ region.Region) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[path]++
	if d.fail[path] {
		return nil, errors.New("kdu_expand: corrupt codestream")
	}
	if mk, ok := d.images[path]; ok {
		return mk(), nil
	}
	return testkit.Gray(64, 64, 128), nil
}

func (d *fakeDecoder) count(path string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[path]
}

func solid(c color.RGBA) func() image.Image {
	return func() image.Image { return testkit.Solid(64, 64, c) }
}

type fixture struct {
	svc     *Svc
	catalog *catalogsvc.Svc
	decoder *fakeDecoder
	ids     map[string]int64
}

// row is one catalogued image
type row struct {
	name                       string // fixture handle
	obs, inst, det, meas, path string
	order                      int
	size                       int
	scale                      float64
}

var (
	aia171 = row{"aia171", "SDO", "AIA", "AIA", "171", "/data/aia171.jp2", 1, 1024, 0.6}
	aia304 = row{"aia304", "SDO", "AIA", "AIA", "304", "/data/aia304.jp2", 2, 1024, 0.6}
	c2     = row{"c2", "SOHO", "LASCO", "C2", "white-light", "/data/c2.jp2", 3, 1024, 11.9}
)

func newFixture(t *testing.T, rows ...row) *fixture {
	t.Helper()
	ctx := context.Background()

	cat := catalogsvc.NewMemory(catalogrepo.NewMemory())
	manifest := make([]catalogdomain.ManifestRow, 0, len(rows))
	for _, r := range rows {
		manifest = append(manifest, catalogdomain.ManifestRow{
			Observatory:   r.obs,
			Instrument:    r.inst,
			Detector:      r.det,
			Measurement:   r.meas,
			LayeringOrder: r.order,
			Date:          "2014-01-01T00:00:00.000Z",
			FilePath:      r.path,
			Width:         r.size,
			Height:        r.size,
			Scale:         r.scale,
			RefX:          float64(r.size) / 2,
			RefY:          float64(r.size) / 2,
		})
	}
	if _, err := cat.Import(ctx, manifest); err != nil {
		t.Fatalf("import: %v", err)
	}
	ids := map[string]int64{}
	for _, r := range rows {
		id, err := cat.LookupDataSource(ctx, r.obs, r.inst, r.det, r.meas)
		if err != nil {
			t.Fatalf("lookup %s: %v", r.name, err)
		}
		ids[r.name] = id
	}

	table, err := instruments.Default()
	if err != nil {
		t.Fatalf("instruments: %v", err)
	}
	palettes, err := colortable.New("")
	if err != nil {
		t.Fatalf("palettes: %v", err)
	}
	cache, err := tilecache.New(tilecache.Options{})
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	dec := newDecoder()

	svc := New(Deps{
		Catalog:     cat,
		Instruments: table,
		Palettes:    palettes,
		Decoder:     dec,
		Cache:       cache,
	}, Config{TileSize: 512, MaxLayers: 3, DecodeTimeout: time.Second})

	return &fixture{svc: svc, catalog: cat, decoder: dec, ids: ids}
}

func (f *fixture) layer(name string, order int) domain.Layer {
	return domain.Layer{SourceID: f.ids[name], Visible: true, Opacity: 100, LayeringOrder: order}
}

func wantCode(t *testing.T, err error, code perr.ErrorCode) {
	t.Helper()
	if !perr.IsCode(err, code) {
		t.Fatalf("err = %v, want %s", err, code)
	}
}
