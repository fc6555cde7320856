package service

import (
	"testing"
	"time"

	perr "helioserve/internal/platform/errors"
	"helioserve/internal/services/movies/domain"
)

func TestPlan(t *testing.T) {
	end := t0.Add(time.Hour)

	cases := []struct {
		name     string
		in       PlanInput
		max      int
		frames   int
		cadence  time.Duration
		warnings int
	}{
		{"frame count", PlanInput{Start: t0, Cadence: time.Minute, FrameCount: 20}, 300, 20, time.Minute, 0},
		{"end inclusive", PlanInput{Start: t0, End: &end, Cadence: 10 * time.Minute}, 300, 7, 10 * time.Minute, 0},
		{"end same as start", PlanInput{Start: t0, End: &t0, Cadence: time.Minute}, 300, 1, time.Minute, 0},
		{"frame count wins over end", PlanInput{Start: t0, End: &end, Cadence: time.Minute, FrameCount: 3}, 300, 3, time.Minute, 0},
		{"stretched", PlanInput{Start: t0, Cadence: time.Minute, FrameCount: 500}, 150, 150, 200 * time.Second, 1},
		{"stretch rounds up", PlanInput{Start: t0, Cadence: 7 * time.Second, FrameCount: 100}, 30, 30, 24 * time.Second, 1},
		{"at the maximum", PlanInput{Start: t0, Cadence: time.Minute, FrameCount: 150}, 150, 150, time.Minute, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, ws, err := Plan(tc.in, tc.max)
			if err != nil {
				t.Fatalf("plan: %v", err)
			}
			if p.FrameCount != tc.frames || p.Cadence != tc.cadence {
				t.Fatalf("got %d frames every %s, want %d every %s", p.FrameCount, p.Cadence, tc.frames, tc.cadence)
			}
			if len(ws) != tc.warnings {
				t.Fatalf("warnings %+v", ws)
			}
			if tc.warnings > 0 && ws[0].Code != domain.WarnCadenceExceedsMaximum {
				t.Fatalf("warning code %q", ws[0].Code)
			}
			if !p.Start.Equal(t0) {
				t.Fatalf("start %s", p.Start)
			}
		})
	}
}

func TestPlanErrors(t *testing.T) {
	before := t0.Add(-time.Minute)
	cases := []struct {
		name  string
		in    PlanInput
		field string
	}{
		{"zero cadence", PlanInput{Start: t0, FrameCount: 3}, "cadence_seconds"},
		{"sub second cadence", PlanInput{Start: t0, Cadence: time.Millisecond, FrameCount: 3}, "cadence_seconds"},
		{"no length", PlanInput{Start: t0, Cadence: time.Minute}, "frame_count"},
		{"end before start", PlanInput{Start: t0, End: &before, Cadence: time.Minute}, "end"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Plan(tc.in, 300)
			wantCode(t, err, perr.ErrorCodeInvalidArgument)
			if got := perr.WireFrom(err).Field; got != tc.field {
				t.Fatalf("field %q, want %q", got, tc.field)
			}
		})
	}
}

func TestPlanAt(t *testing.T) {
	p := domain.Plan{Start: t0, Cadence: 200 * time.Second, FrameCount: 150}
	if got := p.At(149); !got.Equal(t0.Add(149 * 200 * time.Second)) {
		t.Fatalf("last frame at %s", got)
	}
}
