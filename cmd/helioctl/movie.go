package main

import (
	"fmt"
	"time"

	perr "helioserve/internal/platform/errors"
	ptime "helioserve/internal/platform/time"
	moviesdomain "helioserve/internal/services/movies/domain"
	moviesmod "helioserve/internal/services/movies/module"

	"github.com/spf13/cobra"
)

var movieCmd = &cobra.Command{
	Use:   "movie",
	Short: "Render a composite time series and encode it into a movie",
	Long:  "The job runs to completion in this process against an in-memory job store and prints its final status.",
	Example: `  helioctl movie --layer 14 --start 2024-05-01T00:00:00Z --end 2024-05-01T06:00:00Z --cadence 10m --encoder ffmpeg`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := cmd.Flags()
		start, err := dateFlag(cmd, "start")
		if err != nil {
			return err
		}
		specs, _ := f.GetStringArray("layer")
		layers, err := parseLayers(specs)
		if err != nil {
			return err
		}
		roiSpec, _ := f.GetString("roi")
		roi, err := parseROI(roiSpec)
		if err != nil {
			return err
		}
		cadence, _ := f.GetDuration("cadence")
		if cadence < time.Second {
			return perr.WithField(perr.InvalidArgf("cadence must be at least 1s"), "cadence")
		}
		frames, _ := f.GetInt("frames")
		scale, _ := f.GetFloat64("scale")
		sharpen, _ := f.GetBool("sharpen")
		fps, _ := f.GetFloat64("fps")

		in := moviesdomain.SubmitInput{
			Layers:         layers,
			Start:          start,
			CadenceSeconds: int64(cadence / time.Second),
			FrameCount:     frames,
			ROI:            roi,
			Scale:          scale,
			Sharpen:        sharpen,
			FrameRate:      fps,
		}
		if s, _ := f.GetString("end"); s != "" {
			end, err := ptime.ParseObservation(s)
			if err != nil {
				return perr.WithField(err, "end")
			}
			in.End = &end
		}

		ctx := cmd.Context()
		e, err := open(ctx, cmd)
		if err != nil {
			return err
		}
		defer e.Close(ctx)

		opts := moviesmod.FromConfig(e.root)
		switch v, _ := f.GetString("encoder"); v {
		case "":
		case "mjpeg", "ffmpeg":
			opts.Encoder = v
		default:
			return perr.WithField(perr.InvalidArgf("unknown encoder %q", v), "encoder")
		}
		if v, _ := f.GetString("out-dir"); v != "" {
			opts.OutputDir = v
		}
		// jobs stay local, a shared postgres queue would hand this process other clients' work
		deps := e.deps
		deps.PG = nil
		svc, events := moviesmod.NewService(deps, e.render, opts)
		defer events.Flush(ctx)

		sub, err := svc.Submit(ctx, in)
		if err != nil {
			return err
		}
		for _, w := range sub.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", w.Code, w.Message)
		}
		if err := svc.Drain(ctx); err != nil {
			return err
		}
		st, err := svc.Status(ctx, sub.JobID)
		if err != nil {
			return err
		}
		if err := printJSON(cmd.OutOrStdout(), st); err != nil {
			return err
		}
		if st.State != moviesdomain.StateCompleted {
			return perr.Newf(perr.ErrorCodeUnknown, "movie %s %s: %s", st.JobID, st.State, st.Error)
		}
		return nil
	},
}

func init() {
	f := movieCmd.Flags()
	f.StringArray("layer", nil, "SOURCE[:OPACITY], repeat for each layer")
	f.String("start", "", "first observation time")
	f.String("end", "", "last observation time, alternative to --frames")
	f.Duration("cadence", 10*time.Minute, "time between frames")
	f.Int("frames", 0, "frame count, alternative to --end")
	f.String("roi", "-1200,-1200,1200,1200", "x0,y0,x1,y1 in arcseconds from disk centre")
	f.Float64("scale", 4.8, "arcseconds per output pixel")
	f.Bool("sharpen", false, "apply an unsharp mask")
	f.Float64("fps", 0, "movie frame rate (default MOVIES_FRAME_RATE)")
	f.String("encoder", "", "mjpeg or ffmpeg (default MOVIES_ENCODER)")
	f.String("out-dir", "", "directory for the movie file (default MOVIES_OUTPUT_DIR)")
	_ = movieCmd.MarkFlagRequired("layer")
	_ = movieCmd.MarkFlagRequired("start")
	rootCmd.AddCommand(movieCmd)
}
