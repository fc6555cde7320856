package main

import (
	"github.com/spf13/cobra"
)

var closestCmd = &cobra.Command{
	Use:   "closest",
	Short: "Print the catalog image closest to a time",
	RunE: func(cmd *cobra.Command, _ []string) error {
		t, err := dateFlag(cmd, "date")
		if err != nil {
			return err
		}
		source, _ := cmd.Flags().GetInt64("source")

		ctx := cmd.Context()
		e, err := open(ctx, cmd)
		if err != nil {
			return err
		}
		defer e.Close(ctx)

		res, err := e.catalog.Closest(ctx, source, t)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	closestCmd.Flags().Int64("source", 0, "data source id")
	closestCmd.Flags().String("date", "", "observation time")
	_ = closestCmd.MarkFlagRequired("source")
	_ = closestCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(closestCmd)
}
