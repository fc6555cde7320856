package main

import (
	catalogsvc "helioserve/internal/services/catalog/service"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and load the image catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <manifest.csv>",
	Short: "Load a CSV manifest of images into the catalog",
	Long:  "Rows are upserted, so importing the same manifest twice leaves the catalog unchanged. Without SERVICE_PGSQL_ENABLED the import only lives for this process.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := catalogsvc.ReadManifestFile(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		e, err := open(ctx, cmd)
		if err != nil {
			return err
		}
		defer e.Close(ctx)

		res, err := e.catalog.Import(ctx, rows)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var catalogSourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List data sources",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		e, err := open(ctx, cmd)
		if err != nil {
			return err
		}
		defer e.Close(ctx)

		list, err := e.catalog.ListSources(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), list)
	},
}

func init() {
	catalogCmd.AddCommand(catalogImportCmd, catalogSourcesCmd)
	rootCmd.AddCommand(catalogCmd)
}
