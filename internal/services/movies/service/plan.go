package service

import (
	"fmt"
	"math"
	"time"

	perr "helioserve/internal/platform/errors"
	"helioserve/internal/services/movies/domain"
)

// PlanInput is the time series part of a movie request
type PlanInput struct {
	Start      time.Time
	End        *time.Time
	Cadence    time.Duration
	FrameCount int
}

// Plan resolves the frame count and cadence of a movie
// A series longer than maxFrames keeps its time span: the cadence is stretched,
// rounded up to the second, and a cadence_exceeds_maximum warning is returned
func Plan(in PlanInput, maxFrames int) (domain.Plan, []domain.Warning, error) {
	if in.Cadence < time.Second {
		return domain.Plan{}, nil, perr.WithField(perr.InvalidArgf("cadence must be at least one second"), "cadence_seconds")
	}
	n := in.FrameCount
	if n <= 0 {
		if in.End == nil {
			return domain.Plan{}, nil, perr.WithField(perr.InvalidArgf("either frame_count or end is required"), "frame_count")
		}
		if in.End.Before(in.Start) {
			return domain.Plan{}, nil, perr.WithField(perr.InvalidArgf("end is before start"), "end")
		}
		n = int(in.End.Sub(in.Start)/in.Cadence) + 1
	}

	p := domain.Plan{Start: in.Start.UTC(), Cadence: in.Cadence, FrameCount: n}
	var warnings []domain.Warning
	if maxFrames > 0 && n > maxFrames {
		secs := math.Ceil(in.Cadence.Seconds() * float64(n) / float64(maxFrames))
		p.Cadence = time.Duration(secs) * time.Second
		p.FrameCount = maxFrames
		msg := fmt.Sprintf("%d frames exceed the maximum of %d, cadence raised from %s to %s",
			n, maxFrames, in.Cadence, p.Cadence)
		warnings = append(warnings, domain.Warning{Code: domain.WarnCadenceExceedsMaximum, Message: msg})
	}
	return p, warnings, nil
}
