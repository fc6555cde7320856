// Package http provides http transport for movie jobs
package http

import (
	stdhttp "net/http"

	"helioserve/internal/modkit/httpkit"
	"helioserve/internal/services/movies/domain"
)

// Register mounts movie endpoints on the given router
func Register(r httpkit.Router, s domain.ServicePort) {
	h := &handlers{svc: s}
	httpkit.PostJSON[domain.SubmitInput](r, "/", h.submit)
	httpkit.Get(r, "/{id}", h.status)
	httpkit.Post(r, "/{id}/cancel", h.cancel)
}

type handlers struct{ svc domain.ServicePort }

// @Summary Queue a movie
// @Tags Movies
// @Accept json
// @Produce json
// @Param body body domain.SubmitInput true "layers, time series and region of interest"
// @Success 202 {object} domain.SubmitOutput
// @Failure 400 {object} httpkit.Envelope
// @Failure 422 {object} httpkit.Envelope
// @Router /movies [post]
func (h *handlers) submit(r *stdhttp.Request, in domain.SubmitInput) (any, error) {
	out, err := h.svc.Submit(r.Context(), in)
	if err != nil {
		return nil, err
	}
	return httpkit.Accepted(out), nil
}

// @Summary Movie job status
// @Tags Movies
// @Produce json
// @Param id path string true "job id"
// @Success 200 {object} domain.Status
// @Failure 404 {object} httpkit.Envelope
// @Router /movies/{id} [get]
func (h *handlers) status(r *stdhttp.Request) (any, error) {
	return h.svc.Status(r.Context(), httpkit.PathParam(r, "id"))
}

// @Summary Cancel a queued or running movie
// @Tags Movies
// @Produce json
// @Param id path string true "job id"
// @Success 200 {object} domain.Status
// @Failure 404 {object} httpkit.Envelope
// @Failure 409 {object} httpkit.Envelope
// @Router /movies/{id}/cancel [post]
func (h *handlers) cancel(r *stdhttp.Request) (any, error) {
	return h.svc.Cancel(r.Context(), httpkit.PathParam(r, "id"))
}
