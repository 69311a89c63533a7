package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mgajardo/backdesk/internal/domain/customer"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		search string
		out    string
	)
	status := newStatusValue()
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export matching customers as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureSession(cmd.Context()); err != nil {
				return err
			}
			filter := customer.ListFilter{Search: search, Status: status.Filter()}

			dst := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer f.Close()
				dst = f
			}
			n, err := a.engine.ExportCSV(cmd.Context(), filter, dst)
			if err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", n, out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "match against name, email, phone or tax id")
	cmd.Flags().Var(status, "status", "filter by status: active, inactive or all")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to a file instead of stdout")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var commit bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Validate a customer CSV file, optionally committing it",
		Long: `Without --commit the file is parsed and validated locally and nothing is
sent to the service. With --commit the rows are shipped to the directory,
which inserts new customers and updates existing ones matched by email.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !commit {
				report, err := a.engine.Preview(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printImportReport(cmd.OutOrStdout(), report)
				return nil
			}

			if err := a.ensureSession(cmd.Context()); err != nil {
				return err
			}
			report, err := a.engine.Commit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printImportReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&commit, "commit", false, "send the rows to the directory service")
	return cmd
}
