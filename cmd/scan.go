package cmd

import (
	"fmt"
	"time"

	"github.com/agentic-research/gamelist/internal/scan"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan [system]",
	Short: "Add new game files and their folders under a system's root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, sys, err := openSystem(cmd, args[0])
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		s, err := scan.New(a.cat, scan.WithLogger(a.logger))
		if err != nil {
			return err
		}

		start := time.Now()
		res, err := s.Scan(cmd.Context(), sys)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d games, %d folders, %d new (%v)\n",
			sys.ID, res.Games, res.Folders, res.Inserted, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
