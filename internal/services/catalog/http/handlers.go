// Package http provides http transport for the catalog
package http

import (
	stdhttp "net/http"

	"helioserve/internal/modkit/httpkit"
	"helioserve/internal/services/catalog/domain"
)

// Register mounts catalog endpoints on the given router
func Register(r httpkit.Router, s domain.ServicePort) {
	h := &handlers{svc: s}
	httpkit.Get(r, "/sources", h.list)
	httpkit.GetQuery[domain.LookupInput](r, "/sources/lookup", h.lookup)
	httpkit.Get(r, "/sources/{id}", h.source)
	httpkit.GetQuery[domain.ClosestInput](r, "/closest", h.closest)
}

type handlers struct{ svc domain.ServicePort }

// @Summary List data sources
// @Tags Catalog
// @Produce json
// @Success 200 {array} domain.DataSource
// @Router /catalog/sources [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	return h.svc.ListSources(r.Context())
}

// @Summary Resolve a data source id from its names
// @Tags Catalog
// @Produce json
// @Success 200 {object} domain.LookupOutput
// @Failure 404 {object} httpkit.Envelope
// @Router /catalog/sources/lookup [get]
func (h *handlers) lookup(r *stdhttp.Request, in domain.LookupInput) (any, error) {
	id, err := h.svc.LookupDataSource(r.Context(), in.Observatory, in.Instrument, in.Detector, in.Measurement)
	if err != nil {
		return nil, err
	}
	return domain.LookupOutput{ID: id}, nil
}

func (h *handlers) source(r *stdhttp.Request) (any, error) {
	id, err := httpkit.PathInt(r, "id")
	if err != nil {
		return nil, err
	}
	return h.svc.Source(r.Context(), id)
}

// @Summary Image nearest a time
// @Tags Catalog
// @Produce json
// @Param source_id query int true "data source id"
// @Param date query string true "observation time"
// @Success 200 {object} domain.ClosestResult
// @Failure 404 {object} httpkit.Envelope
// @Router /catalog/closest [get]
func (h *handlers) closest(r *stdhttp.Request, in domain.ClosestInput) (any, error) {
	return h.svc.Closest(r.Context(), in.SourceID, in.Date)
}
