package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/theme"
)

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List available themes",
	Long: `List the themes bundled with toastd and the ones found in the user
theme directory. A user theme with a bundled name overrides the bundled one.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := theme.Dir()
		infos, err := theme.List(dir)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSOURCE")
		for _, info := range infos {
			source := info.Path
			switch {
			case info.Overridden:
				source += " (overrides bundled)"
			case info.Bundled:
				source = "bundled"
			}
			fmt.Fprintf(w, "%s\t%s\n", info.Name, source)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nuser themes: %s\n", dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(themesCmd)
}
