package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"cppdecl/pkg/ast"
	"cppdecl/pkg/parser"
	"cppdecl/pkg/token"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens [file]",
	Short: "Print the token stream of a C++ file",
	Long: `Print the tokens the scanner produces for a file, one per line with its
position. With --filtered the stream is shown after preprocessor conditionals
are applied, the way the declaration recognizer sees it; tokens from branches
that could not be decided are marked as guarded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]
		content, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", filename, err)
		}

		filtered, _ := cmd.Flags().GetBool("filtered")
		var tokens []token.Token
		var diags []ast.Diagnostic
		if filtered {
			opts, err := parserOptions(cmd, cfg.Parser)
			if err != nil {
				return err
			}
			tokens, diags = parser.New(opts...).FilterTokens(string(content))
		} else {
			tokenizer := parser.NewTokenizer(string(content))
			tokens = tokenizer.Tokenize()
			diags = tokenizer.Diagnostics()
		}

		out := cmd.OutOrStdout()
		writeTokens(out, tokens)
		for _, d := range diags {
			fmt.Fprintf(out, "%s:%d:%d: %s: %s\n", filename, d.Pos.Line, d.Pos.Column, d.Kind, d.Message)
		}
		return nil
	},
}

func writeTokens(w io.Writer, tokens []token.Token) {
	for _, t := range tokens {
		marker := ""
		if t.Guarded {
			marker = " [guarded]"
		}
		fmt.Fprintf(w, "%6s  %-10s %q%s\n", t.Pos, t.Kind, t.Value, marker)
	}
	fmt.Fprintf(w, "%d tokens\n", len(tokens))
}

func init() {
	tokensCmd.Flags().Bool("filtered", false, "Apply preprocessor conditionals before printing")
	addParserFlags(tokensCmd)
}
