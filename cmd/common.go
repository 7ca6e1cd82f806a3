package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cppdecl/pkg/ast"
	"cppdecl/pkg/config"
	"cppdecl/pkg/parser"
)

// addParserFlags registers the preprocessor and limit flags shared by the
// commands that parse a file
func addParserFlags(c *cobra.Command) {
	c.Flags().StringArrayP("define", "D", nil, "Treat macro as defined (NAME, which means NAME=1, or NAME=VALUE)")
	c.Flags().StringArrayP("undefine", "U", nil, "Treat macro as undefined")
	c.Flags().Bool("strict-conditionals", false, "Drop #if branches whose condition cannot be decided")
	c.Flags().Int("max-tokens", 0, "Token limit per file (0 keeps the configured limit)")
}

// parseDefineFlags turns NAME[=VALUE] arguments into a macro table. A bare
// NAME is defined as 1, as compilers do for -D.
func parseDefineFlags(values []string) (map[string]string, error) {
	defines := make(map[string]string, len(values))
	for _, v := range values {
		name, value, found := strings.Cut(v, "=")
		if !found {
			value = "1"
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid macro definition %q", v)
		}
		defines[name] = value
	}
	return defines, nil
}

// parserOptions merges the configured parser settings with the command flags
func parserOptions(c *cobra.Command, pc config.ParserConfig) ([]parser.Option, error) {
	defineArgs, _ := c.Flags().GetStringArray("define")
	undefined, _ := c.Flags().GetStringArray("undefine")
	strict, _ := c.Flags().GetBool("strict-conditionals")
	maxTokens, _ := c.Flags().GetInt("max-tokens")

	defines, err := parseDefineFlags(defineArgs)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]string, len(pc.Defines)+len(defines))
	for k, v := range pc.Defines {
		merged[k] = v
	}
	for k, v := range defines {
		merged[k] = v
	}
	// -U overrides definitions from the config file
	for _, name := range undefined {
		delete(merged, name)
	}
	if maxTokens == 0 {
		maxTokens = pc.MaxTokens
	}

	opts := []parser.Option{
		parser.WithDefines(merged),
		parser.WithUndefined(append(append([]string{}, pc.Undefined...), undefined...)),
		parser.WithStrictConditionals(strict || pc.StrictConditionals),
		parser.WithLogger(log),
	}
	if maxTokens > 0 {
		opts = append(opts, parser.WithMaxTokens(maxTokens))
	}
	return opts, nil
}

// parseFile reads and parses one file with the command's parser settings
func parseFile(c *cobra.Command, filename string) (*ast.Tree, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	opts, err := parserOptions(c, cfg.Parser)
	if err != nil {
		return nil, err
	}
	tree, err := parser.New(opts...).ParseContext(c.Context(), filename, string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", filename, err)
	}
	return tree, nil
}
