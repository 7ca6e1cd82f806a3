package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"cppdecl/pkg/batch"
	"cppdecl/pkg/index"
)

var batchCmd = &cobra.Command{
	Use:   "batch [dir...]",
	Short: "Parse every C++ file below the given directories",
	Long: `Discover C/C++ sources below the given directories (or files), parse them
in parallel and print a summary per file. With --index the declarations are
stored in the persisted index at that path, and with --store in the index
configured in .cppdecl.yaml, so they can be looked up with 'cppdecl query'.

Examples:
  cppdecl batch src include
  cppdecl batch --workers 8 --index .cppdecl/index .
  cppdecl batch --store src
  cppdecl batch --follow-includes -I include src/main.cpp`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bc := cfg.Batch
		if cmd.Flags().Changed("workers") {
			bc.Workers, _ = cmd.Flags().GetInt("workers")
		}
		if cmd.Flags().Changed("follow-includes") {
			bc.FollowIncludes, _ = cmd.Flags().GetBool("follow-includes")
		}
		includeDirs, _ := cmd.Flags().GetStringArray("include-dir")
		bc.IncludeDirs = append(append([]string{}, bc.IncludeDirs...), includeDirs...)

		timeout, err := bc.Timeout()
		if err != nil {
			return err
		}
		opts, err := parserOptions(cmd, cfg.Parser)
		if err != nil {
			return err
		}

		files, err := batch.Discover(args, bc.Extensions, bc.Exclude)
		if err != nil {
			return err
		}
		log.Info().Int("files", len(files)).Int("workers", bc.Workers).Msg("Starting batch parse")

		results, runErr := batch.Run(cmd.Context(), files, batch.Options{
			Workers:        bc.Workers,
			FileTimeout:    timeout,
			FollowIncludes: bc.FollowIncludes,
			Resolver:       batch.NewDirResolver(bc.IncludeDirs...),
			ParserOptions:  opts,
			Logger:         log,
		})

		out := cmd.OutOrStdout()
		writeBatchResults(out, results)

		indexPath, _ := cmd.Flags().GetString("index")
		if store, _ := cmd.Flags().GetBool("store"); store && indexPath == "" {
			indexPath = cfg.Index.Path
		}
		if indexPath != "" {
			reset := cfg.Index.Reset
			if cmd.Flags().Changed("reset") {
				reset, _ = cmd.Flags().GetBool("reset")
			}
			if err := storeResults(out, indexPath, reset, results); err != nil {
				return err
			}
		}

		if runErr != nil {
			return fmt.Errorf("batch interrupted: %w", runErr)
		}
		return nil
	},
}

func writeBatchResults(w io.Writer, results []batch.Result) {
	for _, r := range results {
		marker := ""
		if r.Included {
			marker = " (included)"
		}
		switch {
		case r.Err != nil && r.Tree == nil:
			fmt.Fprintf(w, "FAIL %s%s: %v\n", r.File, marker, r.Err)
		case r.Err != nil:
			fmt.Fprintf(w, "PART %s%s: %d declarations, %d diagnostics: %v\n",
				r.File, marker, len(r.Tree.Declarations), len(r.Tree.Diagnostics), r.Err)
		default:
			fmt.Fprintf(w, "ok   %s%s: %d declarations, %d diagnostics (%s)\n",
				r.File, marker, len(r.Tree.Declarations), len(r.Tree.Diagnostics), r.Duration.Round(time.Microsecond))
		}
	}

	s := batch.Summarize(results)
	fmt.Fprintf(w, "\n%d files, %d failed, %d declarations, %d diagnostics\n",
		s.Files, s.Failed, s.Declarations, s.Diagnostics)
}

// storeResults saves every parsed tree in the index at path
func storeResults(w io.Writer, path string, reset bool, results []batch.Result) error {
	ix, err := index.Open(path, reset, log)
	if err != nil {
		return err
	}
	defer ix.Close()

	stored := 0
	for _, r := range results {
		if r.Tree == nil {
			continue
		}
		n, err := ix.SaveTree(r.Tree)
		if err != nil {
			return err
		}
		stored += n
	}
	fmt.Fprintf(w, "Indexed %d declarations in %s\n", stored, filepath.Clean(path))
	return nil
}

func init() {
	batchCmd.Flags().IntP("workers", "w", 4, "Number of files parsed in parallel")
	batchCmd.Flags().String("index", "", "Store declarations in the index at this path")
	batchCmd.Flags().Bool("store", false, "Store declarations in the configured index")
	batchCmd.Flags().Bool("reset", false, "Clear the index before storing")
	batchCmd.Flags().Bool("follow-includes", false, "Also parse the files named by #include directives")
	batchCmd.Flags().StringArrayP("include-dir", "I", nil, "Include search directory")
	addParserFlags(batchCmd)
}
