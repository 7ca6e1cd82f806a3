package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"cppdecl/pkg/ast"
)

// DeclarationView is a declaration with its members nested, for structured
// output
type DeclarationView struct {
	ast.Declaration `json:",inline" yaml:",inline"`
	Line            int               `json:"line" yaml:"line"`
	Column          int               `json:"column" yaml:"column"`
	Members         []DeclarationView `json:"members,omitempty" yaml:"members,omitempty"`
}

// TreeView is the structured form of a parse result
type TreeView struct {
	ID           string            `json:"id" yaml:"id"`
	Filename     string            `json:"filename" yaml:"filename"`
	Declarations []DeclarationView `json:"declarations" yaml:"declarations"`
	Diagnostics  []ast.Diagnostic  `json:"diagnostics" yaml:"diagnostics"`
}

// NewTreeView converts a tree into its nested view
func NewTreeView(tree *ast.Tree) TreeView {
	view := TreeView{
		ID:          tree.ID,
		Filename:    tree.Filename,
		Diagnostics: tree.Diagnostics,
	}
	if view.Diagnostics == nil {
		view.Diagnostics = []ast.Diagnostic{}
	}
	for _, d := range tree.Root.Decls {
		view.Declarations = append(view.Declarations, newDeclarationView(d))
	}
	return view
}

func newDeclarationView(d *ast.Declaration) DeclarationView {
	v := DeclarationView{
		Declaration: *d,
		Line:        d.Range.Start.Line,
		Column:      d.Range.Start.Column,
	}
	if d.Scope != nil && d.Scope.Owner == d {
		for _, m := range d.Scope.Decls {
			v.Members = append(v.Members, newDeclarationView(m))
		}
	}
	return v
}

// Encode writes the tree in the given structured format, json or yaml
func Encode(w io.Writer, tree *ast.Tree, format string) error {
	view := NewTreeView(tree)
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(view)
	case "yaml":
		data, err := yaml.Marshal(view)
		if err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("unsupported output format: %s", format)
}

// WriteHuman prints the declaration tree, a per-kind summary and the
// diagnostics in readable form
func WriteHuman(w io.Writer, tree *ast.Tree) {
	fmt.Fprintf(w, "Parsed file: %s\n", tree.Filename)
	fmt.Fprintf(w, "=====================================\n\n")

	for _, d := range tree.Root.Decls {
		printDeclaration(w, d, 0)
	}

	fmt.Fprintf(w, "\nSummary:\n")
	fmt.Fprintf(w, "--------\n")
	fmt.Fprintf(w, "Total declarations: %d\n", len(tree.Declarations))
	for _, line := range kindCounts(tree) {
		fmt.Fprintln(w, line)
	}

	documented := 0
	for _, d := range tree.Declarations {
		if d.Doc != "" {
			documented++
		}
	}
	if len(tree.Declarations) > 0 {
		fmt.Fprintf(w, "Documented: %d (%.1f%%)\n", documented, float64(documented)/float64(len(tree.Declarations))*100)
	}

	if len(tree.Diagnostics) > 0 {
		fmt.Fprintf(w, "\nDiagnostics:\n")
		for _, diag := range tree.Diagnostics {
			fmt.Fprintf(w, "  %s:%s: %s: %s\n", tree.Filename, diag.Pos, diag.Kind, diag.Message)
		}
	}
}

func kindCounts(tree *ast.Tree) []string {
	counts := make(map[ast.DeclKind]int)
	for _, d := range tree.Declarations {
		counts[d.Kind]++
	}
	kinds := make([]ast.DeclKind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	lines := make([]string, 0, len(kinds))
	for _, k := range kinds {
		lines = append(lines, fmt.Sprintf("%s: %d", k, counts[k]))
	}
	return lines
}

func printDeclaration(w io.Writer, d *ast.Declaration, depth int) {
	indent := strings.Repeat("  ", depth)

	name := d.Name
	if name == "" {
		name = "<anonymous>"
	}
	fmt.Fprintf(w, "%s%s: %s", indent, d.Kind, name)
	if d.FullName != d.Name && d.FullName != "" {
		fmt.Fprintf(w, " (%s)", d.FullName)
	}
	if d.Access != ast.AccessUnknown {
		fmt.Fprintf(w, " [%s]", d.Access)
	}
	if d.IsTemplate() {
		fmt.Fprintf(w, " [template]")
	}
	if d.Guarded {
		fmt.Fprintf(w, " [guarded]")
	}
	if d.UnresolvedQualifier {
		fmt.Fprintf(w, " [unresolved]")
	}
	if d.Doc != "" {
		fmt.Fprintf(w, " [documented]")
	}

	fmt.Fprintf(w, "\n%s  Signature: %s\n", indent, d.Signature)
	fmt.Fprintf(w, "%s  Location: Line %d, Column %d\n", indent, d.Range.Start.Line, d.Range.Start.Column)
	if len(d.Bases) > 0 {
		bases := make([]string, len(d.Bases))
		for i, b := range d.Bases {
			bases[i] = b.String()
		}
		fmt.Fprintf(w, "%s  Bases: %s\n", indent, strings.Join(bases, ", "))
	}
	if d.Metrics != nil {
		fmt.Fprintf(w, "%s  Metrics: %d lines, complexity %d\n", indent, d.Metrics.Lines, d.Metrics.Complexity)
	}
	if d.Brief != "" {
		fmt.Fprintf(w, "%s  Brief: %s\n", indent, d.Brief)
	}

	if d.Scope != nil && d.Scope.Owner == d {
		for _, m := range d.Scope.Decls {
			printDeclaration(w, m, depth+1)
		}
	}
}
