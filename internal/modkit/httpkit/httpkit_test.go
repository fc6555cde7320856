package httpkit_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"helioserve/internal/modkit/httpkit"
	phttp "helioserve/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

type closestQuery struct {
	SourceID int64     `query:"source_id" validate:"required,min=1"`
	Date     time.Time `query:"date"      validate:"required"`
}

func newAPI(t *testing.T, mount func(httpkit.Router)) http.Handler {
	t.Helper()
	mux := chi.NewRouter()
	httpkit.MountAPIV1(phttp.AdaptChi(mux), httpkit.CommonStack(httpkit.StackOptions{}), mount)
	return mux
}

func TestGetQueryAndPNG(t *testing.T) {
	h := newAPI(t, func(api httpkit.Router) {
		httpkit.GetQuery(api, "/closest", func(_ *http.Request, q closestQuery) (any, error) {
			return map[string]any{"source_id": q.SourceID, "date": q.Date.Unix()}, nil
		})
		httpkit.Get(api, "/tile", func(*http.Request) (any, error) {
			return httpkit.PNG([]byte{0x89, 'P', 'N', 'G'}), nil
		})
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/closest?source_id=14&date=1388534400", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"date":1388534400`) {
		t.Fatalf("closest: %d %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"request_id"`) {
		t.Fatalf("request id missing from envelope")
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/closest?date=1388534400", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing source_id status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/tile", nil))
	if rr.Header().Get("Content-Type") != "image/png" || rr.Body.Len() != 4 {
		t.Fatalf("tile not raw png: %q %d", rr.Header().Get("Content-Type"), rr.Body.Len())
	}
}

type submitBody struct {
	Frames int `json:"frames" validate:"min=1"`
}

func TestPostJSONAccepted(t *testing.T) {
	h := newAPI(t, func(api httpkit.Router) {
		httpkit.PostJSON(api, "/movies", func(_ *http.Request, in submitBody) (any, error) {
			return httpkit.Accepted(map[string]int{"frames": in.Frames}), nil
		})
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/movies", strings.NewReader(`{"frames":3}`)))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestPathInt(t *testing.T) {
	r := phttp.AdaptChi(chi.NewRouter())
	httpkit.Get(r, "/things/{id}", func(req *http.Request) (any, error) {
		id, err := httpkit.PathInt(req, "id")
		if err != nil {
			return nil, err
		}
		return map[string]int64{"id": id}, nil
	})

	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/42", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"id":42`) {
		t.Fatalf("ok path: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/abc", nil))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `"field":"id"`) {
		t.Fatalf("bad path: %d %s", rec.Code, rec.Body.String())
	}
}
