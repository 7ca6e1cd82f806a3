package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cppdecl/pkg/formatter"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file] [declaration-path]",
	Short: "Extract one declaration with its context",
	Long: `Extract a single declaration from a parsed file. The path is the
declaration's qualified name, e.g. ns::Class::method; a leading :: selects the
global scope. Optionally the enclosing scope and the sibling declarations are
printed with their bodies elided.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := parseFile(cmd, args[0])
		if err != nil {
			return err
		}

		d := tree.FindDeclaration(args[1])
		if d == nil {
			return fmt.Errorf("declaration not found: %s", args[1])
		}

		includeParent, _ := cmd.Flags().GetBool("parent")
		includeSiblings, _ := cmd.Flags().GetBool("siblings")
		scopeOnly, _ := cmd.Flags().GetBool("scope")
		summary, _ := cmd.Flags().GetBool("summary")

		f := formatter.New()
		var output string
		switch {
		case summary:
			output = f.GetDeclarationSummary(d)
		case scopeOnly:
			output = f.ReconstructScope(d)
		default:
			output = f.ExtractDeclarationContext(d, includeParent, includeSiblings)
		}

		fmt.Fprint(cmd.OutOrStdout(), output)
		return nil
	},
}

func init() {
	extractCmd.Flags().BoolP("parent", "p", false, "Include parent context")
	extractCmd.Flags().BoolP("siblings", "s", false, "Include sibling context")
	extractCmd.Flags().Bool("scope", false, "Extract only the declaration (no context)")
	extractCmd.Flags().Bool("summary", false, "Print a key/value summary instead of code")
	addParserFlags(extractCmd)
}
