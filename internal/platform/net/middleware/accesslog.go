// Package middleware holds the in house http middlewares
package middleware

import (
	"net/http"
	"time"

	"helioserve/internal/platform/logger"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// AccessLogOptions configures the zerolog access log
type AccessLogOptions struct {
	// Slow marks requests taking >= Slow as warn level, 0 disables slow marking
	Slow time.Duration
}

// renderWarningHeader is set by the render handlers on partial images
const renderWarningHeader = "X-Render-Warning"

// AccessLogZerolog logs one line per request with status, timing, size and content type
// the chi request id is copied onto the logger context so downstream logger.C calls carry it
// a partial tile or composite is logged at warn with the decoder message
func AccessLogZerolog(opt AccessLogOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := chimw.GetReqID(r.Context()); id != "" {
				r = r.WithContext(logger.WithRequest(r.Context(), id))
			}
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			warning := ww.Header().Get(renderWarningHeader)

			log := logger.C(r.Context())
			evt := log.Info()
			if warning != "" || (opt.Slow > 0 && elapsed >= opt.Slow) {
				evt = log.Warn()
			}
			if warning != "" {
				evt = evt.Str("render_warning", warning)
			}
			evt.Int("status", status).
				Dur("elapsed", elapsed).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("content_type", ww.Header().Get("Content-Type")).
				Int("bytes", ww.BytesWritten()).
				Msg("request done")
		})
	}
}
