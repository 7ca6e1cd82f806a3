package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cppdecl/pkg/formatter"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a C++ file and print its declarations",
	Long: `Parse a C++ source or header file and print the declaration tree together
with the diagnostics produced while recognizing it. The output is human
readable by default, or JSON/YAML for further processing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := parseFile(cmd, args[0])
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		out := cmd.OutOrStdout()
		switch format {
		case "human", "":
			formatter.WriteHuman(out, tree)
		case "json", "yaml":
			if err := formatter.Encode(out, tree, format); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown output format %q (use human, json or yaml)", format)
		}

		if strict, _ := cmd.Flags().GetBool("strict"); strict {
			if err := tree.Err(); err != nil {
				return fmt.Errorf("%s: %d diagnostics: %w", args[0], len(tree.Diagnostics), err)
			}
		}
		return nil
	},
}

func init() {
	parseCmd.Flags().StringP("format", "f", "human", "Output format (human, json, yaml)")
	parseCmd.Flags().Bool("strict", false, "Exit with an error when any diagnostic was produced")
	addParserFlags(parseCmd)
}
