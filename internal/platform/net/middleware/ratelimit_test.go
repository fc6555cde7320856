package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	perr "helioserve/internal/platform/errors"
	phttp "helioserve/internal/platform/net/http"
	"helioserve/internal/platform/net/middleware"
)

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.RateLimitOptions{RPS: 0.001, Burst: 2})
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/tiles", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	for i := 0; i < 2; i++ {
		if rr := do("10.0.0.1:5000"); rr.Code != http.StatusNoContent {
			t.Fatalf("request %d got %d", i, rr.Code)
		}
	}
	rr := do("10.0.0.1:5001")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("third request got %d want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After")
	}
	var env phttp.Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Code != perr.ErrorCodeTooManyRequests {
		t.Fatalf("code = %v", env.Code)
	}

	// other clients have their own bucket
	if rr := do("10.0.0.2:5000"); rr.Code != http.StatusNoContent {
		t.Fatalf("second client got %d", rr.Code)
	}
}

func TestRateLimiter_DisabledAndSweep(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	off := middleware.NewRateLimiter(middleware.RateLimitOptions{})
	for i := 0; i < 10; i++ {
		rr := httptest.NewRecorder()
		off.Middleware(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("disabled limiter rejected request")
		}
	}

	rl := middleware.NewRateLimiter(middleware.RateLimitOptions{RPS: 1, Burst: 1, IdleAfter: time.Minute})
	rl.Middleware(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if n := rl.Sweep(time.Now()); n != 0 {
		t.Fatalf("fresh bucket swept")
	}
	if n := rl.Sweep(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Fatalf("idle bucket not swept, n=%d", n)
	}
}
