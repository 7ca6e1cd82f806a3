package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cppdecl/pkg/ast"
	"cppdecl/pkg/index"
)

var queryCmd = &cobra.Command{
	Use:   "query [name]",
	Short: "Look up declarations in the index",
	Long: `Look up declarations stored by 'cppdecl batch --index' or '--store'. The name is a
qualified name (ns::Class::method) or an unqualified one, which matches every
declaration with that last segment. Results can be narrowed by file and kind.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := index.Query{}
		if len(args) == 1 {
			q.Name = args[0]
		}
		q.File, _ = cmd.Flags().GetString("file")
		q.Kind, _ = cmd.Flags().GetString("kind")
		if q.Kind != "" {
			if _, ok := ast.ParseDeclKind(q.Kind); !ok {
				return fmt.Errorf("unknown declaration kind %q", q.Kind)
			}
		}
		if q == (index.Query{}) {
			return fmt.Errorf("give a name, --file or --kind")
		}

		path, _ := cmd.Flags().GetString("index")
		if path == "" {
			path = cfg.Index.Path
		}
		ix, err := index.Open(path, false, log)
		if err != nil {
			return err
		}
		defer ix.Close()

		records, err := ix.Find(q)
		if err != nil {
			return err
		}
		writeRecords(cmd.OutOrStdout(), records)
		return nil
	},
}

func writeRecords(w io.Writer, records []index.Record) {
	for _, r := range records {
		fmt.Fprintln(w, r)
		if r.Signature != "" {
			fmt.Fprintf(w, "    %s\n", r.Signature)
		}
		if r.Brief != "" {
			fmt.Fprintf(w, "    %s\n", r.Brief)
		}
	}
	fmt.Fprintf(w, "%d matches\n", len(records))
}

func init() {
	queryCmd.Flags().String("index", "", "Index path (default from config)")
	queryCmd.Flags().String("file", "", "Only declarations from this file")
	queryCmd.Flags().String("kind", "", "Only declarations of this kind (class, function, ...)")
}
