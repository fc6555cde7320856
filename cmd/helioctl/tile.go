package main

import (
	renderdomain "helioserve/internal/services/render/domain"

	"github.com/spf13/cobra"
)

var tileCmd = &cobra.Command{
	Use:   "tile",
	Short: "Render one pyramid tile to a PNG",
	Example: `  helioctl tile --source 14 --date 2024-05-01T12:00:00Z --zoom 10 --x 0 --y -1 -o tile.png`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		t, err := dateFlag(cmd, "date")
		if err != nil {
			return err
		}
		f := cmd.Flags()
		source, _ := f.GetInt64("source")
		zoom, _ := f.GetInt("zoom")
		x, _ := f.GetInt("x")
		y, _ := f.GetInt("y")
		size, _ := f.GetInt("size")
		out, _ := f.GetString("output")

		ctx := cmd.Context()
		e, err := open(ctx, cmd)
		if err != nil {
			return err
		}
		defer e.Close(ctx)

		b, err := e.render.RenderTile(ctx, renderdomain.TileRequest{
			SourceID: source,
			Zoom:     zoom,
			X:        x,
			Y:        y,
			Size:     size,
			Time:     t,
		})
		return writeImage(cmd, out, b, err)
	},
}

func init() {
	f := tileCmd.Flags()
	f.Int64("source", 0, "data source id")
	f.String("date", "", "observation time")
	f.Int("zoom", 0, "pyramid zoom level")
	f.Int("x", 0, "tile column, 0 is right of centre")
	f.Int("y", 0, "tile row, 0 is below centre")
	f.Int("size", 0, "tile edge in pixels (default RENDER_TILE_SIZE)")
	f.StringP("output", "o", "tile.png", "output file, - for stdout")
	_ = tileCmd.MarkFlagRequired("source")
	_ = tileCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(tileCmd)
}
