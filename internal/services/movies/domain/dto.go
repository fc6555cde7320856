package domain

import (
	"time"

	"helioserve/internal/core/region"
	renderdomain "helioserve/internal/services/render/domain"
)

// SubmitInput is the movie request body
// either FrameCount or End sets the length of the series
type SubmitInput struct {
	Layers         []renderdomain.LayerInput `json:"layers" validate:"required,min=1,dive"`
	Start          time.Time                 `json:"start" validate:"required"`
	End            *time.Time                `json:"end,omitempty"`
	CadenceSeconds int64                     `json:"cadence_seconds" validate:"required,min=1"`
	FrameCount     int                       `json:"frame_count,omitempty" validate:"omitempty,min=1"`
	ROI            region.ROI                `json:"roi"`
	Scale          float64                   `json:"scale" validate:"gt=0"`
	Sharpen        bool                      `json:"sharpen"`
	FrameRate      float64                   `json:"frame_rate,omitempty" validate:"omitempty,gt=0,max=60"`
}

// Check rejects a source listed more than once
func (in SubmitInput) Check() error { return renderdomain.CheckLayers(in.Layers) }

// SubmitOutput is returned by a successful submit
type SubmitOutput struct {
	JobID    string    `json:"job_id"`
	Warnings []Warning `json:"warnings"`
}
