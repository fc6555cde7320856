package main

import (
	renderdomain "helioserve/internal/services/render/domain"

	"github.com/spf13/cobra"
)

var compositeCmd = &cobra.Command{
	Use:   "composite",
	Short: "Render a multi-layer composite over a region of interest",
	Example: `  helioctl composite --layer 14 --layer 3:60 --date 2024-05-01T12:00:00Z --roi -1200,-1200,1200,1200 --scale 4.8 -o sun.png`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		t, err := dateFlag(cmd, "date")
		if err != nil {
			return err
		}
		f := cmd.Flags()
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
		scale, _ := f.GetFloat64("scale")
		sharpen, _ := f.GetBool("sharpen")
		out, _ := f.GetString("output")

		ctx := cmd.Context()
		e, err := open(ctx, cmd)
		if err != nil {
			return err
		}
		defer e.Close(ctx)

		b, err := e.render.Composite(ctx, renderdomain.CompositeInput{
			Layers:  layers,
			Date:    t,
			ROI:     roi,
			Scale:   scale,
			Sharpen: sharpen,
		})
		return writeImage(cmd, out, b, err)
	},
}

func init() {
	f := compositeCmd.Flags()
	f.StringArray("layer", nil, "SOURCE[:OPACITY], repeat for each layer")
	f.String("date", "", "observation time")
	f.String("roi", "-1200,-1200,1200,1200", "x0,y0,x1,y1 in arcseconds from disk centre")
	f.Float64("scale", 4.8, "arcseconds per output pixel")
	f.Bool("sharpen", false, "apply an unsharp mask")
	f.StringP("output", "o", "composite.png", "output file, - for stdout")
	_ = compositeCmd.MarkFlagRequired("layer")
	_ = compositeCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(compositeCmd)
}
