package middleware

import (
	stdhttp "net/http"
	"runtime/debug"

	perr "helioserve/internal/platform/errors"
	"helioserve/internal/platform/logger"
	pnet "helioserve/internal/platform/net"
	phttp "helioserve/internal/platform/net/http"
)

// RecoverJSON turns a panic into the standard 500 error envelope and logs the stack
// a panic inside a decoder or encoder must not take the whole api down
func RecoverJSON(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == stdhttp.ErrAbortHandler {
				panic(v)
			}
			reqID := pnet.RequestID(r.Context())
			logger.C(r.Context()).Error().
				Interface("panic", v).
				Str("path", r.URL.Path).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if reqID != "" {
				w.Header().Set("X-Request-ID", reqID)
			}
			phttp.RespondError(w, r, perr.PanicErrf("panic recovered"))
		}()
		next.ServeHTTP(w, r)
	})
}
