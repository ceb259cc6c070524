package cmd

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/agentic-research/gamelist/api"
	"github.com/agentic-research/gamelist/internal/catalog"
	"github.com/agentic-research/gamelist/internal/pathid"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"
)

var (
	showJSON  bool
	showQuery string
	newFolder bool
)

// fileIDArg accepts either a stored fileID or a path, relative paths being
// taken against the system root.
func fileIDArg(arg string, sys api.System) string {
	if pathid.IsRelative(arg) {
		return arg
	}
	return pathid.ToFileID(arg, sys.Root)
}

func entryDoc(e *catalog.Entry) map[string]any {
	md := make(map[string]any)
	for k, v := range e.Metadata.Map() {
		md[k] = v
	}
	return map[string]any{
		"fileid":   e.FileID,
		"systemid": e.SystemID,
		"kind":     e.Kind().String(),
		"exists":   e.Exists,
		"metadata": md,
	}
}

var showCmd = &cobra.Command{
	Use:   "show [system] [fileid]",
	Short: "Print the metadata stored for one entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, sys, err := openSystem(cmd, args[0])
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		e, err := a.cat.Get(cmd.Context(), fileIDArg(args[1], sys), sys.ID)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if showQuery != "" {
			x, err := jp.ParseString(showQuery)
			if err != nil {
				return fmt.Errorf("invalid jsonpath '%s': %w", showQuery, err)
			}
			for _, v := range x.Get(entryDoc(e)) {
				if s, ok := v.(string); ok {
					fmt.Fprintln(out, s)
				} else {
					fmt.Fprintln(out, oj.JSON(v, &oj.Options{Sort: true}))
				}
			}
			return nil
		}

		if showJSON {
			fmt.Fprintln(out, oj.JSON(entryDoc(e), &oj.Options{Indent: 2, Sort: true}))
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "fileid\t%s\n", e.FileID)
		fmt.Fprintf(tw, "kind\t%s\n", e.Kind())
		fmt.Fprintf(tw, "exists\t%t\n", e.Exists)
		for _, decl := range e.Metadata.Fields() {
			fmt.Fprintf(tw, "%s\t%s\n", decl.Key, e.Metadata.Get(decl.Key))
		}
		return tw.Flush()
	},
}

var setCmd = &cobra.Command{
	Use:   "set [system] [fileid] key=value...",
	Short: "Write metadata fields of one entry",
	Long: `Set loads the entry, applies every key=value pair and writes the full row
back, marking it present. A missing entry is created as a game, or as a
folder with --folder.`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, sys, err := openSystem(cmd, args[0])
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		ctx := cmd.Context()
		fileID := fileIDArg(args[1], sys)

		var md *catalog.Metadata
		e, err := a.cat.Get(ctx, fileID, sys.ID)
		switch {
		case err == nil:
			md = e.Metadata
		case errors.Is(err, catalog.ErrNotFound):
			kind := api.KindGame
			if newFolder {
				kind = api.KindFolder
			}
			md = a.cat.NewMetadata(kind)
		default:
			return err
		}

		for _, kv := range args[2:] {
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("%w: expected key=value, got %q", catalog.ErrValidation, kv)
			}
			if err := md.Set(key, value); err != nil {
				return err
			}
		}

		if err := a.cat.Set(ctx, fileID, sys.ID, md); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s updated\n", md.Kind, fileID)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list [system]",
	Short: "List the catalogued entries of a system",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, sys, err := openSystem(cmd, args[0])
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		entries, err := a.cat.Entries(cmd.Context(), sys.ID)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, e := range entries {
			state := "ok"
			if !e.Exists {
				state = "missing"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Kind(), state, e.FileID, e.Metadata.Get("name"))
		}
		return tw.Flush()
	},
}

var systemsCmd = &cobra.Command{
	Use:   "systems",
	Short: "List the configured systems",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, sys := range cfg.Systems() {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", sys.ID, sys.Root, strings.Join(sys.Extensions, " "))
		}
		return tw.Flush()
	},
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print the entry as JSON")
	showCmd.Flags().StringVarP(&showQuery, "query", "q", "", "Print the values selected by a JSONPath over the JSON form")
	setCmd.Flags().BoolVar(&newFolder, "folder", false, "Create a missing entry as a folder")

	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(systemsCmd)
}
