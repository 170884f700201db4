package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"fintrack/internal/reporting"
)

func newExportCmd(a *app) *cobra.Command {
	var month, year, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write --user's expenses as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			uid, err := a.userID(cmd.Context(), store)
			if err != nil {
				return err
			}

			rows, err := a.reports(store).ExportRows(cmd.Context(), uid, month, year)
			if err != nil {
				return err
			}

			toFile := output != "" && output != "-"
			var w io.Writer = cmd.OutOrStdout()
			if toFile {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			if err := reporting.WriteCSV(w, rows); err != nil {
				return err
			}
			if toFile {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d rows to %s\n", len(rows), output)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Month filter, YYYY-MM (wins over --year)")
	cmd.Flags().StringVar(&year, "year", "", "Year filter, YYYY")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file; stdout when empty or -")
	return cmd
}
