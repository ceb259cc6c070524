package cmd

import (
	"fmt"

	"github.com/agentic-research/gamelist/internal/audit"
	"github.com/spf13/cobra"
)

var listMissing bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [system]",
	Short: "Refresh the existence flag of every catalogued entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, sys, err := openSystem(cmd, args[0])
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		auditor, err := audit.New(a.cat, audit.WithLogger(a.logger))
		if err != nil {
			return err
		}
		report, err := auditor.Reconcile(cmd.Context(), sys.ID, sys.Root)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d checked, %d missing\n", sys.ID, report.Checked, report.Missing.GetCardinality())
		if listMissing {
			for _, id := range report.MissingFileIDs() {
				fmt.Fprintln(out, id)
			}
		}
		return nil
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&listMissing, "list", false, "Print the fileIDs found missing")
	rootCmd.AddCommand(reconcileCmd)
}
