package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/taskcheck/internal/transfer"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	GroupID: "transfer",
	Short:   "Write every category, task and check as JSON",
	Example: `  taskcheck export > snapshot.json
  taskcheck export -o ~/backups/today.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		ctx := cmd.Context()

		if output == "" || output == "-" {
			snap, err := transfer.Export(ctx, e.store)
			if err != nil {
				return err
			}
			return transfer.WriteJSON(cmd.OutOrStdout(), snap)
		}

		if err := transfer.ExportFile(ctx, e.store, output); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", output)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:     "import FILE",
	GroupID: "transfer",
	Short:   "Merge an export file into the database",
	Long: `Merge an export file into the database. Rows are matched by name:
categories by name, tasks by name within their category, items by name within
their category or task. Matched rows are only overwritten by newer data and
nothing is ever deleted. The whole file is applied or, on any error, none of it.

Use "-" to read from stdin and --legacy for the older format, a JSON array of
categories with their items inlined.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		legacy, _ := cmd.Flags().GetBool("legacy")

		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		importer := transfer.NewImporter(e.store, e.logger("import"))
		var report *transfer.Report
		if legacy {
			report, err = importer.ImportLegacy(cmd.Context(), r)
		} else {
			report, err = importer.ImportReader(cmd.Context(), r)
		}
		if err != nil {
			return fmt.Errorf("import failed, nothing was changed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported: %s\n", report.Summary())
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")
	importCmd.Flags().Bool("legacy", false, "Read the older category-with-items format")

	rootCmd.AddCommand(exportCmd, importCmd)
}
