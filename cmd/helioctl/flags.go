package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"helioserve/internal/core/region"
	perr "helioserve/internal/platform/errors"
	ptime "helioserve/internal/platform/time"
	renderdomain "helioserve/internal/services/render/domain"

	"github.com/spf13/cobra"
)

// parseLayer reads SOURCE[:OPACITY], opacity is a percentage
func parseLayer(s string) (renderdomain.LayerInput, error) {
	id, op, hasOp := strings.Cut(strings.TrimSpace(s), ":")
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n < 1 {
		return renderdomain.LayerInput{}, perr.InvalidArgf("layer %q: source id must be a positive integer", s)
	}
	in := renderdomain.LayerInput{SourceID: n}
	if hasOp {
		v, err := strconv.ParseFloat(op, 64)
		if err != nil || v < 0 || v > 100 {
			return renderdomain.LayerInput{}, perr.InvalidArgf("layer %q: opacity must be within 0..100", s)
		}
		in.Opacity = &v
	}
	return in, nil
}

func parseLayers(specs []string) ([]renderdomain.LayerInput, error) {
	if len(specs) == 0 {
		return nil, perr.InvalidArgf("at least one --layer is required")
	}
	out := make([]renderdomain.LayerInput, 0, len(specs))
	for _, s := range specs {
		in, err := parseLayer(s)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	if err := renderdomain.CheckLayers(out); err != nil {
		return nil, err
	}
	return out, nil
}

// parseROI reads x0,y0,x1,y1 in arcseconds
func parseROI(s string) (region.ROI, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return region.ROI{}, perr.InvalidArgf("roi %q: want x0,y0,x1,y1", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return region.ROI{}, perr.InvalidArgf("roi %q: %s is not a number", s, p)
		}
		v[i] = f
	}
	roi := region.ROI{X0: v[0], Y0: v[1], X1: v[2], Y1: v[3]}
	if !roi.Valid() {
		return region.ROI{}, perr.InvalidArgf("roi %q: x1 must exceed x0 and y1 must exceed y0", s)
	}
	return roi, nil
}

func dateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	s, _ := cmd.Flags().GetString(name)
	t, err := ptime.ParseObservation(s)
	if err != nil {
		return time.Time{}, perr.WithField(err, name)
	}
	return t, nil
}

// writeImage stores b at path ("-" is stdout)
// a decode failure that still produced bytes is written and reported as a warning
func writeImage(cmd *cobra.Command, path string, b []byte, err error) error {
	if err != nil {
		if !perr.IsCode(err, perr.ErrorCodeDecodeFailure) || len(b) == 0 {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
	}
	if path == "-" {
		_, werr := cmd.OutOrStdout().Write(b)
		return werr
	}
	if werr := os.WriteFile(path, b, 0o644); werr != nil {
		return werr
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", path, len(b))
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
