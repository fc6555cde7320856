package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"helioserve/internal/modkit/httpkit"
	perr "helioserve/internal/platform/errors"
	phttp "helioserve/internal/platform/net/http"
	"helioserve/internal/services/movies/domain"
	movieshttp "helioserve/internal/services/movies/http"

	"github.com/go-chi/chi/v5"
)

const jobID = "0b8e6c1e-6f0a-4c57-9d43-2f7c2d3f9a10"

type fakeMovies struct {
	submitted domain.SubmitInput
	state     map[string]domain.State
}

func (f *fakeMovies) Submit(_ context.Context, in domain.SubmitInput) (domain.SubmitOutput, error) {
	f.submitted = in
	return domain.SubmitOutput{JobID: jobID, Warnings: []domain.Warning{}}, nil
}

func (f *fakeMovies) Status(_ context.Context, id string) (domain.Status, error) {
	s, ok := f.state[id]
	if !ok {
		return domain.Status{}, perr.NotFoundf("movie job %s not found", id)
	}
	return domain.Status{JobID: id, State: s, Warnings: []domain.Warning{}}, nil
}

func (f *fakeMovies) Cancel(_ context.Context, id string) (domain.Status, error) {
	s, ok := f.state[id]
	switch {
	case !ok:
		return domain.Status{}, perr.NotFoundf("movie job %s not found", id)
	case s.Terminal():
		return domain.Status{}, perr.Conflictf("movie job %s is already %s", id, s)
	}
	f.state[id] = domain.StateFailed
	return domain.Status{JobID: id, State: domain.StateFailed, Error: domain.ErrCancelled}, nil
}

func newServer(svc domain.ServicePort) http.Handler {
	mux := chi.NewRouter()
	httpkit.MountAPIV1(phttp.AdaptChi(mux), httpkit.CommonStack(httpkit.StackOptions{Timeout: time.Second}), func(r httpkit.Router) {
		r.Route("/movies", func(rr httpkit.Router) { movieshttp.Register(rr, svc) })
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

func TestSubmitRoute(t *testing.T) {
	svc := &fakeMovies{}
	h := newServer(svc)

	body := `{
		"layers": [{"source_id": 14}, {"source_id": 4, "opacity": 60}],
		"start": "2014-01-01T00:00:00Z",
		"cadence_seconds": 60,
		"frame_count": 30,
		"roi": {"x0": -600, "y0": -600, "x1": 600, "y1": 600},
		"scale": 2.4
	}`
	rec := do(h, http.MethodPost, "/api/v1/movies", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var env struct {
		Data domain.SubmitOutput `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.JobID != jobID {
		t.Fatalf("job id %q", env.Data.JobID)
	}
	if len(svc.submitted.Layers) != 2 || *svc.submitted.Layers[1].Opacity != 60 || svc.submitted.FrameCount != 30 {
		t.Fatalf("submitted %+v", svc.submitted)
	}
}

func TestSubmitValidation(t *testing.T) {
	h := newServer(&fakeMovies{})
	cases := []struct {
		name string
		body string
	}{
		{"no layers", `{"layers":[],"start":"2014-01-01T00:00:00Z","cadence_seconds":60,"frame_count":3,"scale":2.4}`},
		{"no cadence", `{"layers":[{"source_id":14}],"start":"2014-01-01T00:00:00Z","frame_count":3,"scale":2.4}`},
		{"repeated source", `{"layers":[{"source_id":14},{"source_id":14}],"start":"2014-01-01T00:00:00Z","cadence_seconds":60,"frame_count":3,"scale":2.4}`},
		{"bad opacity", `{"layers":[{"source_id":14,"opacity":140}],"start":"2014-01-01T00:00:00Z","cadence_seconds":60,"scale":2.4}`},
		{"frame rate too high", `{"layers":[{"source_id":14}],"start":"2014-01-01T00:00:00Z","cadence_seconds":60,"scale":2.4,"frame_rate":240}`},
		{"not json", `{"layers":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(h, http.MethodPost, "/api/v1/movies", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestStatusAndCancelRoutes(t *testing.T) {
	svc := &fakeMovies{state: map[string]domain.State{jobID: domain.StateRunning}}
	h := newServer(svc)

	rec := do(h, http.MethodGet, "/api/v1/movies/"+jobID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var env struct {
		Data domain.Status `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.State != domain.StateRunning {
		t.Fatalf("state %q", env.Data.State)
	}

	cases := []struct {
		name string
		path string
		want int
	}{
		{"cancel running", "/api/v1/movies/" + jobID + "/cancel", http.StatusOK},
		{"cancel again", "/api/v1/movies/" + jobID + "/cancel", http.StatusConflict},
		{"cancel unknown", "/api/v1/movies/nope/cancel", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := do(h, http.MethodPost, tc.path, "")
		if rec.Code != tc.want {
			t.Fatalf("%s: status = %d body=%s", tc.name, rec.Code, rec.Body.String())
		}
	}

	if rec := do(h, http.MethodGet, "/api/v1/movies/nope", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown job status = %d", rec.Code)
	}
}
