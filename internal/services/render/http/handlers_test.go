package http_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"helioserve/internal/modkit/httpkit"
	perr "helioserve/internal/platform/errors"
	phttp "helioserve/internal/platform/net/http"
	renderhttp "helioserve/internal/services/render/http"
	"helioserve/internal/services/render/domain"

	"github.com/go-chi/chi/v5"
)

var png = []byte("\x89PNG fake")

type fakeRender struct {
	tile      domain.TileRequest
	composite domain.CompositeInput
	err       error
}

func (f *fakeRender) Build(context.Context, domain.CompositeRequest) (domain.Frame, error) {
	return domain.Frame{}, nil
}

func (f *fakeRender) RenderTile(_ context.Context, req domain.TileRequest) ([]byte, error) {
	f.tile = req
	if req.SourceID == 404 {
		return nil, perr.NotFoundf("no such source")
	}
	return png, f.err
}

func (f *fakeRender) RenderComposite(context.Context, domain.CompositeRequest) ([]byte, error) {
	return png, f.err
}

func (f *fakeRender) ResolveLayers(context.Context, []domain.LayerInput) ([]domain.Layer, error) {
	return nil, nil
}

func (f *fakeRender) Composite(_ context.Context, in domain.CompositeInput) ([]byte, error) {
	f.composite = in
	return png, f.err
}

func newServer(svc domain.ServicePort) http.Handler {
	mux := chi.NewRouter()
	httpkit.MountAPIV1(phttp.AdaptChi(mux), httpkit.CommonStack(httpkit.StackOptions{Timeout: time.Second}), func(r httpkit.Router) {
		r.Route("/render", func(rr httpkit.Router) { renderhttp.Register(rr, svc) })
	})
	return mux
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	h.ServeHTTP(rec, req)
	return rec
}

func TestTileRoute(t *testing.T) {
	svc := &fakeRender{}
	h := newServer(svc)

	rec := do(h, http.MethodGet, "/api/v1/render/tiles/14/10/-1/2?date=2014-01-01T00:00:00.000Z&size=256", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	got := svc.tile
	if got.SourceID != 14 || got.Zoom != 10 || got.X != -1 || got.Y != 2 || got.Size != 256 {
		t.Fatalf("request = %+v", got)
	}
	if !got.Time.Equal(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("time = %v", got.Time)
	}

	tests := []struct {
		name string
		path string
		code int
	}{
		{"missing date", "/api/v1/render/tiles/14/10/0/0", http.StatusBadRequest},
		{"bad date", "/api/v1/render/tiles/14/10/0/0?date=yesterday", http.StatusBadRequest},
		{"bad zoom", "/api/v1/render/tiles/14/ten/0/0?date=2014-01-01", http.StatusBadRequest},
		{"tiny size", "/api/v1/render/tiles/14/10/0/0?date=2014-01-01&size=3", http.StatusBadRequest},
		{"unknown source", "/api/v1/render/tiles/404/10/0/0?date=2014-01-01", http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if rec := do(h, http.MethodGet, tc.path, ""); rec.Code != tc.code {
				t.Fatalf("status = %d want %d body=%s", rec.Code, tc.code, rec.Body.String())
			}
		})
	}
}

func TestTileDecodeFailureIsAWarning(t *testing.T) {
	h := newServer(&fakeRender{err: perr.DecodeFailuref(nil, "decode aia.jp2")})

	rec := do(h, http.MethodGet, "/api/v1/render/tiles/14/10/0/0?date=2014-01-01", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get(renderhttp.WarningHeader); got != "decode aia.jp2" {
		t.Fatalf("warning header = %q", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), png) {
		t.Fatalf("placeholder bytes not written")
	}
}

func TestCompositeRoute(t *testing.T) {
	svc := &fakeRender{}
	h := newServer(svc)

	body := `{"layers":[{"source_id":3},{"source_id":4,"opacity":50}],"date":"2014-01-01T00:00:00Z","roi":{"x0":-100,"y0":-100,"x1":100,"y1":100},"scale":2.4}`
	rec := do(h, http.MethodPost, "/api/v1/render/composite", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if len(svc.composite.Layers) != 2 || *svc.composite.Layers[1].Opacity != 50 || svc.composite.Scale != 2.4 {
		t.Fatalf("input = %+v", svc.composite)
	}

	tests := []struct {
		name string
		body string
		code int
	}{
		{"no layers", `{"layers":[],"date":"2014-01-01T00:00:00Z","scale":1}`, http.StatusBadRequest},
		{"opacity over 100", `{"layers":[{"source_id":3,"opacity":120}],"date":"2014-01-01T00:00:00Z","scale":1}`, http.StatusBadRequest},
		{"missing scale", `{"layers":[{"source_id":3}],"date":"2014-01-01T00:00:00Z"}`, http.StatusBadRequest},
		{"repeated source", `{"layers":[{"source_id":3},{"source_id":3,"opacity":50}],"date":"2014-01-01T00:00:00Z","scale":1}`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if rec := do(h, http.MethodPost, "/api/v1/render/composite", tc.body); rec.Code != tc.code {
				t.Fatalf("status = %d want %d body=%s", rec.Code, tc.code, rec.Body.String())
			}
		})
	}

	h = newServer(&fakeRender{err: perr.NoVisibleLayersf("no visible layers")})
	if rec := do(h, http.MethodPost, "/api/v1/render/composite", body); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("no visible layers status = %d", rec.Code)
	}
}
