package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"helioserve/internal/core/closest"
	"helioserve/internal/core/raster"
	perr "helioserve/internal/platform/errors"
	"helioserve/internal/platform/logger"
	"helioserve/internal/services/movies/domain"
	renderdomain "helioserve/internal/services/render/domain"
)

// Frame outcomes reported to OnFrame
const (
	OutcomeWritten = "written"
	OutcomeElided  = "elided"
	OutcomeFailed  = "failed"
)

// FrameEvent describes one finished slot of a sequence
type FrameEvent struct {
	Index    int
	At       time.Time
	Outcome  string
	Took     time.Duration
	Progress int
	ETA      time.Duration
}

// Sequencer renders the frames of a job and encodes them into a movie
type Sequencer struct {
	Frames    domain.Frames
	Encoder   domain.Encoder
	WorkDir   string
	OutputDir string
	// Ext is the output file extension including the dot
	Ext string
	// Elide reuses the previous frame when a slot resolves to the same images
	Elide     bool
	FrameRate float64

	// OnFrame is called after each slot, it must not block for long
	OnFrame func(ctx context.Context, ev FrameEvent)
}

// Result is what a finished sequence produced
type Result struct {
	Output     string
	Paths      []string
	Timestamps []time.Time
	Written    int
}

// Run sequences job, reporting into tr, and returns the encoded movie path
// Cancellation is checked between frames
func (s *Sequencer) Run(ctx context.Context, job domain.Job, tr *Tracker) (Result, error) {
	plan := job.Plan()
	if err := os.MkdirAll(s.WorkDir, 0o755); err != nil {
		return Result{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "movie work dir %s", s.WorkDir)
	}
	// every run gets its own directory, a re-leased job never shares frames with a stale run
	dir, err := os.MkdirTemp(s.WorkDir, job.ID+"-")
	if err != nil {
		return Result{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "movie work dir for %s", job.ID)
	}
	defer os.RemoveAll(dir)

	res := Result{
		Paths:      make([]string, plan.FrameCount),
		Timestamps: make([]time.Time, plan.FrameCount),
	}
	var (
		prev []closest.Entry
		last string
	)
	for i := range plan.FrameCount {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		at := plan.At(i)
		start := time.Now()
		frame, err := s.Frames.Build(ctx, job.Request.Composite(at))

		outcome := OutcomeWritten
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			outcome = OutcomeFailed
			tr.Warn(domain.FrameWarning(domain.WarnFrameFailed, err.Error(), i))
			res.Paths[i] = last
		case s.Elide && last != "" && sameImages(frame.Entries, prev):
			outcome = OutcomeElided
			res.Paths[i] = last
		default:
			p := filepath.Join(dir, fmt.Sprintf("frame_%05d.png", i))
			if err := writePNG(p, frame); err != nil {
				return res, err
			}
			for _, w := range frame.Warnings {
				tr.Warn(domain.FrameWarning(domain.WarnLayerFailed, w.Message, i))
			}
			res.Paths[i] = p
			last, prev = p, frame.Entries
			res.Written++
		}
		res.Timestamps[i] = at

		eta := tr.Advance(i+1, time.Now())
		if s.OnFrame != nil {
			s.OnFrame(ctx, FrameEvent{
				Index:    i,
				At:       at,
				Outcome:  outcome,
				Took:     time.Since(start),
				Progress: i + 1,
				ETA:      eta,
			})
		}
	}

	if res.Written == 0 {
		return res, perr.DecodeFailuref(nil, "none of the %d frames could be rendered", plan.FrameCount)
	}
	// leading failures take the first good frame
	first := slices.IndexFunc(res.Paths, func(p string) bool { return p != "" })
	for i := 0; i < first; i++ {
		res.Paths[i] = res.Paths[first]
	}

	if err := os.MkdirAll(s.OutputDir, 0o755); err != nil {
		return res, perr.Wrapf(err, perr.ErrorCodeEncodeFailure, "movie output dir %s", s.OutputDir)
	}
	out := filepath.Join(s.OutputDir, job.ID+s.Ext)
	rate := job.Request.FrameRate
	if rate <= 0 {
		rate = s.FrameRate
	}
	logger.C(ctx).Info().
		Int("frames", len(res.Paths)).
		Int("written", res.Written).
		Float64("fps", rate).
		Str("output", out).
		Msg("encoding movie")
	// encode under a run private name and publish with a rename
	tmp := filepath.Join(s.OutputDir, "."+filepath.Base(dir)+s.Ext)
	defer os.Remove(tmp)
	if err := s.Encoder.Encode(ctx, res.Paths, rate, tmp); err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if err := os.Rename(tmp, out); err != nil {
		return res, perr.Wrapf(err, perr.ErrorCodeEncodeFailure, "publish movie %s", out)
	}
	res.Output = out
	return res, nil
}

// sameImages reports whether two frames resolved to the same catalog images
func sameImages(a, b []closest.Entry) bool {
	return slices.EqualFunc(a, b, func(x, y closest.Entry) bool { return x.ID == y.ID })
}

func writePNG(path string, frame renderdomain.Frame) error {
	b, err := raster.EncodePNG(frame.Image)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeEncodeFailure, "encode frame %s", path)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "write frame %s", path)
	}
	return nil
}
