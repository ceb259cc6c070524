package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/agentic-research/gamelist/internal/gamelist"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import [system] [gamelist.xml]",
	Short: "Import a gamelist.xml into the catalog",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, sys, err := openSystem(cmd, args[0])
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		src, err := filepath.Abs(args[1])
		if err != nil {
			return err
		}
		b, err := gamelist.New(a.cat, gamelist.WithLogger(a.logger))
		if err != nil {
			return err
		}
		skipped, err := b.ImportFile(cmd.Context(), src, sys)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: imported %s, %d skipped\n", sys.ID, src, skipped)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [system] [gamelist.xml|-]",
	Short: "Export a system's catalog as gamelist.xml",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, sys, err := openSystem(cmd, args[0])
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		b, err := gamelist.New(a.cat, gamelist.WithLogger(a.logger))
		if err != nil {
			return err
		}
		doc, err := b.Export(cmd.Context(), sys)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := doc.Encode(&buf); err != nil {
			return err
		}
		if args[1] == "-" {
			_, err := buf.WriteTo(cmd.OutOrStdout())
			return err
		}
		if err := atomic.WriteFile(args[1], &buf); err != nil {
			return fmt.Errorf("write %s: %w", args[1], err)
		}
		a.logger.Info("wrote %d games and %d folders to %s", len(doc.Games), len(doc.Folders), args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
}
