package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cppdecl/pkg/formatter"
)

var formatCmd = &cobra.Command{
	Use:   "format [file]",
	Short: "Print the declaration outline of a C++ file",
	Long: `Reconstruct a C++ file from its declaration tree: doc comments,
signatures, function bodies and nested scopes, with everything the parser
skipped left out. The outline can be passed through clang-format.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := parseFile(cmd, args[0])
		if err != nil {
			return err
		}

		f := formatter.New()
		reconstructed := f.ReconstructCode(tree)

		out := cmd.OutOrStdout()
		if useClang, _ := cmd.Flags().GetBool("clang-format"); useClang {
			formatted, err := f.FormatWithClang(reconstructed)
			if err != nil {
				log.Warn().Err(err).Msg("clang-format failed, printing unformatted outline")
				fmt.Fprint(out, reconstructed)
				return nil
			}
			fmt.Fprint(out, formatted)
			return nil
		}
		fmt.Fprint(out, reconstructed)
		return nil
	},
}

func init() {
	formatCmd.Flags().BoolP("clang-format", "c", false, "Apply clang-format to the output")
	addParserFlags(formatCmd)
}
