package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"helioserve/internal/modkit/httpkit"
	phttp "helioserve/internal/platform/net/http"
	metahttp "helioserve/internal/services/api/meta/http"

	"github.com/go-chi/chi/v5"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func get(t *testing.T, d metahttp.Deps, path string, out any) int {
	t.Helper()
	mux := chi.NewRouter()
	httpkit.MountAPIV1(phttp.AdaptChi(mux), nil, func(r httpkit.Router) {
		r.Route("/meta", func(rr httpkit.Router) { metahttp.Register(rr, d) })
	})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/meta"+path, nil))
	env := struct {
		Data any `json:"data"`
	}{Data: out}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s: %v (%s)", path, err, rec.Body.String())
	}
	return rec.Code
}

func TestReady(t *testing.T) {
	cases := []struct {
		name string
		pg   any
		ch   any
		want string
	}{
		{"memory only", nil, nil, "ok"},
		{"all up", pinger{}, pinger{}, "ok"},
		{"clickhouse down", pinger{}, pinger{err: errors.New("connection refused")}, "fail"},
		{"no ping", struct{}{}, nil, "degraded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out metahttp.ReadyResponse
			if code := get(t, metahttp.Deps{ServiceName: "helioserve-api", PG: tc.pg, CH: tc.ch}, "/ready", &out); code != http.StatusOK {
				t.Fatalf("status = %d", code)
			}
			if out.Status != tc.want || len(out.Checks) != 2 {
				t.Fatalf("ready %+v, want %s", out, tc.want)
			}
		})
	}
}

func TestHealthAndService(t *testing.T) {
	d := metahttp.Deps{
		ServiceName: "helioserve-api",
		StartedAt:   time.Now().Add(-time.Minute),
		Modules:     func() []string { return []string{"catalog", "meta"} },
	}

	var h metahttp.HealthResponse
	if code := get(t, d, "/health", &h); code != http.StatusOK || !h.OK || h.Service != "helioserve-api" {
		t.Fatalf("health %d %+v", code, h)
	}
	var s metahttp.ServiceResponse
	if get(t, d, "/service", &s); s.Uptime < 59 || len(s.Modules) != 2 {
		t.Fatalf("service %+v", s)
	}
	var v struct {
		Service string `json:"service"`
		Version string `json:"version"`
	}
	if get(t, d, "/version", &v); v.Service != "helioserve-api" || v.Version == "" {
		t.Fatalf("version %+v", v)
	}
}
