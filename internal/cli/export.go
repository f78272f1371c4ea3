package cli

import (
	"fmt"

	"tracker/internal/export"

	"github.com/spf13/cobra"
)

func newExportCommand(opts *rootOptions) *cobra.Command {
	var (
		output string
		names  []string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every table into an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(names) == 0 {
				names = opts.app.Tracker.Tables().All()
			}
			if err := export.WriteFile(cmd.Context(), opts.app.Backend.Store, names, output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d tables to %s\n", len(names), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "tracker.xlsx", "destination file")
	cmd.Flags().StringSliceVar(&names, "tables", nil, "tables to export (default all)")
	return cmd
}
