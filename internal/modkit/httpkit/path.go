package httpkit

import (
	"net/http"
	"strconv"
	"strings"

	perr "helioserve/internal/platform/errors"

	"github.com/go-chi/chi/v5"
)

// PathParam returns a route parameter such as {id}
func PathParam(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}

// PathInt parses an integer route parameter, a bad value is a validation error on that field
func PathInt(r *http.Request, name string) (int64, error) {
	raw := PathParam(r, name)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s must be an integer, got %q", name, raw), name)
	}
	return v, nil
}
