package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"cppdecl/pkg/batch"
	"cppdecl/pkg/config"
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Write a .cppdecl.yaml configuration file",
	Long: `Write a .cppdecl.yaml configuration file with the default settings into
the given directory (the working directory by default). The source tree is
scanned once so that the extension list only names extensions that occur in
the project.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		path := filepath.Join(dir, config.DefaultFiles[0])

		overwrite, _ := cmd.Flags().GetBool("overwrite")
		if _, err := os.Stat(path); err == nil && !overwrite {
			return fmt.Errorf("%s already exists (use --overwrite to replace it)", path)
		}

		c := config.NewDefaultConfig()
		files, err := batch.Discover([]string{dir}, c.Batch.Extensions, c.Batch.Exclude)
		if err != nil {
			return err
		}
		if exts := usedExtensions(files); len(exts) > 0 {
			c.Batch.Extensions = exts
		}

		if err := c.Write(path); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Found %d C/C++ files\nWrote %s\n", len(files), path)
		return nil
	},
}

// usedExtensions returns the sorted distinct extensions of files
func usedExtensions(files []string) []string {
	seen := make(map[string]bool)
	var exts []string
	for _, f := range files {
		ext := filepath.Ext(f)
		if !seen[ext] {
			seen[ext] = true
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	return exts
}

func init() {
	initCmd.Flags().Bool("overwrite", false, "Replace an existing configuration file")
}
