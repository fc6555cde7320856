// Package http provides http transport for tiles and composites
package http

import (
	stdhttp "net/http"

	"helioserve/internal/modkit/httpkit"
	perr "helioserve/internal/platform/errors"
	"helioserve/internal/services/render/domain"
)

// WarningHeader carries the reason a placeholder or partial image was returned
const WarningHeader = "X-Render-Warning"

// Register mounts render endpoints on the given router
func Register(r httpkit.Router, s domain.ServicePort) {
	h := &handlers{svc: s}
	httpkit.GetQuery[domain.TileQuery](r, "/tiles/{sourceID}/{zoom}/{x}/{y}", h.tile)
	httpkit.PostJSON[domain.CompositeInput](r, "/composite", h.composite)
}

type handlers struct{ svc domain.ServicePort }

// @Summary Render one pyramid tile
// @Tags Render
// @Produce png
// @Param sourceID path int true "data source id"
// @Param zoom path int true "zoom level"
// @Param x path int true "tile column, 0 is right of centre"
// @Param y path int true "tile row, 0 is below centre"
// @Param date query string true "observation time"
// @Param size query int false "tile size in pixels"
// @Success 200 {file} binary
// @Failure 404 {object} httpkit.Envelope
// @Router /render/tiles/{sourceID}/{zoom}/{x}/{y} [get]
func (h *handlers) tile(r *stdhttp.Request, in domain.TileQuery) (any, error) {
	req := domain.TileRequest{Size: in.Size, Time: in.Date}
	var err error
	if req.SourceID, err = httpkit.PathInt(r, "sourceID"); err != nil {
		return nil, err
	}
	for name, dst := range map[string]*int{"zoom": &req.Zoom, "x": &req.X, "y": &req.Y} {
		v, err := httpkit.PathInt(r, name)
		if err != nil {
			return nil, err
		}
		*dst = int(v)
	}
	return image(h.svc.RenderTile(r.Context(), req))
}

// @Summary Render a multi layer composite
// @Tags Render
// @Accept json
// @Produce png
// @Param body body domain.CompositeInput true "layers, time and region of interest"
// @Success 200 {file} binary
// @Failure 422 {object} httpkit.Envelope
// @Failure 502 {object} httpkit.Envelope
// @Router /render/composite [post]
func (h *handlers) composite(r *stdhttp.Request, in domain.CompositeInput) (any, error) {
	return image(h.svc.Composite(r.Context(), in))
}

// image turns renderer output into a PNG response
// a decode failure that still produced bytes is a 200 with a warning header
func image(b []byte, err error) (any, error) {
	switch {
	case err == nil:
		return httpkit.PNG(b).WithHeader("Cache-Control", "public, max-age=86400"), nil
	case b != nil && perr.IsCode(err, perr.ErrorCodeDecodeFailure):
		return httpkit.PNG(b).
			WithHeader(WarningHeader, perr.WireFrom(err).Message).
			WithHeader("Cache-Control", "no-store"), nil
	default:
		return nil, err
	}
}
