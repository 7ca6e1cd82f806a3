// Package formatter renders declaration trees as outlines, summaries and
// context extracts
package formatter

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"cppdecl/pkg/ast"
	"cppdecl/pkg/parser"
)

// Formatter renders declarations back into C++-like outline code
type Formatter struct {
	indentSize int
	useSpaces  bool
}

// New creates a new formatter
func New() *Formatter {
	return &Formatter{
		indentSize: 4,
		useSpaces:  true,
	}
}

// ReconstructCode renders the outline of every top-level declaration
func (f *Formatter) ReconstructCode(tree *ast.Tree) string {
	if tree == nil || tree.Root == nil {
		return ""
	}
	var result strings.Builder
	for _, d := range tree.Root.Decls {
		result.WriteString(f.reconstructDeclaration(d, 0))
	}
	return result.String()
}

// ReconstructScope renders one declaration and, for namespaces and classes,
// its members
func (f *Formatter) ReconstructScope(d *ast.Declaration) string {
	return f.reconstructDeclaration(d, 0)
}

func (f *Formatter) reconstructDeclaration(d *ast.Declaration, depth int) string {
	var result strings.Builder
	indent := f.getIndent(depth)

	if d.Doc != "" {
		result.WriteString(f.formatDocComment(parser.ParseDoxygenComment(d.Doc), depth))
		result.WriteString("\n")
	}
	if d.Template != nil && d.Kind != ast.KindFriend {
		result.WriteString(indent + "template <" + d.Template.Text + ">\n")
	}
	result.WriteString(indent + d.Signature)

	switch d.Kind {
	case ast.KindNamespace:
		result.WriteString(" {\n")
		for _, m := range d.Members() {
			result.WriteString(f.reconstructDeclaration(m, depth+1))
		}
		result.WriteString(indent + "} // namespace " + d.Name)

	case ast.KindClass, ast.KindStruct, ast.KindUnion:
		result.WriteString(" {\n")
		access := defaultAccess(d.Tag)
		for _, m := range d.Members() {
			if m.Access != ast.AccessUnknown && m.Access != access {
				access = m.Access
				result.WriteString(indent + access.String() + ":\n")
			}
			result.WriteString(f.reconstructDeclaration(m, depth+1))
		}
		result.WriteString(indent + "};")

	case ast.KindEnum:
		result.WriteString(" { " + strings.Join(d.Enumerators, ", ") + " };")

	case ast.KindFunction, ast.KindTemplate:
		if d.Body != nil {
			result.WriteString(" " + d.Body.Text)
		} else {
			result.WriteString(";")
		}

	case ast.KindInclude, ast.KindDefine:
		// directives are written as-is

	default:
		if !strings.HasSuffix(d.Signature, ";") {
			result.WriteString(";")
		}
	}

	result.WriteString("\n")
	return result.String()
}

func defaultAccess(tag string) ast.AccessLevel {
	if tag == "class" {
		return ast.AccessPrivate
	}
	return ast.AccessPublic
}

// formatDocComment writes a doc comment in normalized doxygen block form
func (f *Formatter) formatDocComment(doc *parser.DocComment, depth int) string {
	if doc == nil {
		return ""
	}

	var result strings.Builder
	indent := f.getIndent(depth)

	result.WriteString(indent + "/**\n")
	if doc.Brief != "" {
		result.WriteString(indent + " * @brief " + doc.Brief + "\n")
	}
	if doc.Detailed != "" {
		for _, line := range strings.Split(doc.Detailed, "\n") {
			if strings.TrimSpace(line) != "" {
				result.WriteString(indent + " * " + strings.TrimSpace(line) + "\n")
			} else {
				result.WriteString(indent + " *\n")
			}
		}
	}

	if len(doc.Params) > 0 {
		result.WriteString(indent + " *\n")
		for _, name := range sortedKeys(doc.Params) {
			result.WriteString(indent + " * @param " + name + " " + doc.Params[name] + "\n")
		}
	}
	if doc.Returns != "" {
		result.WriteString(indent + " * @return " + doc.Returns + "\n")
	}
	for _, exception := range doc.Throws {
		result.WriteString(indent + " * @throws " + exception + "\n")
	}
	for _, see := range doc.See {
		result.WriteString(indent + " * @see " + see + "\n")
	}
	for _, tag := range sortedKeys(doc.Tags) {
		result.WriteString(indent + " * @" + tag + " " + doc.Tags[tag] + "\n")
	}

	result.WriteString(indent + " */")
	return result.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// getIndent returns the indentation string for the given depth
func (f *Formatter) getIndent(depth int) string {
	if f.useSpaces {
		return strings.Repeat(" ", depth*f.indentSize)
	}
	return strings.Repeat("\t", depth)
}

// FormatWithClang formats the code using clang-format
func (f *Formatter) FormatWithClang(code string) (string, error) {
	tmpFile, err := os.CreateTemp("", "cppdecl-*.hpp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())
	defer tmpFile.Close()

	if _, err := tmpFile.WriteString(code); err != nil {
		return "", fmt.Errorf("failed to write to temp file: %w", err)
	}
	tmpFile.Close()

	output, err := exec.Command("clang-format", tmpFile.Name()).Output()
	if err != nil {
		return "", fmt.Errorf("clang-format failed: %w", err)
	}
	return string(output), nil
}

// ExtractDeclarationContext renders a declaration with optional context: the
// enclosing namespace or class and the other members of the same scope
func (f *Formatter) ExtractDeclarationContext(d *ast.Declaration, includeParent bool, includeSiblings bool) string {
	var result strings.Builder

	if includeParent && d.Owner != nil && d.Owner.Owner != nil {
		result.WriteString("// Parent context:\n")
		result.WriteString(f.formatSignature(d.Owner.Owner))
		result.WriteString("\n\n")
	}

	if includeSiblings && d.Owner != nil {
		result.WriteString("// Sibling context:\n")
		for _, sibling := range d.Owner.Decls {
			if sibling != d {
				result.WriteString(f.formatSignature(sibling))
				result.WriteString("\n")
			}
		}
		result.WriteString("\n")
	}

	result.WriteString("// Target declaration:\n")
	result.WriteString(f.ReconstructScope(d))
	return result.String()
}

// formatSignature renders a declaration on one line with bodies elided
func (f *Formatter) formatSignature(d *ast.Declaration) string {
	switch d.Kind {
	case ast.KindNamespace:
		return d.Signature + " { /* ... */ }"
	case ast.KindClass, ast.KindStruct, ast.KindUnion, ast.KindEnum:
		return d.Signature + " { /* ... */ };"
	case ast.KindInclude, ast.KindDefine:
		return d.Signature
	}
	if strings.HasSuffix(d.Signature, ";") {
		return d.Signature
	}
	return d.Signature + ";"
}

// GetDeclarationSummary returns a key/value summary of a declaration
func (f *Formatter) GetDeclarationSummary(d *ast.Declaration) string {
	var result strings.Builder

	result.WriteString(fmt.Sprintf("Kind: %s\n", d.Kind))
	result.WriteString(fmt.Sprintf("Name: %s\n", d.Name))
	result.WriteString(fmt.Sprintf("Full Name: %s\n", d.FullName))
	result.WriteString(fmt.Sprintf("Signature: %s\n", d.Signature))
	result.WriteString(fmt.Sprintf("Location: %s\n", d.Range.Start))

	if d.Access != ast.AccessUnknown {
		result.WriteString(fmt.Sprintf("Access: %s\n", d.Access))
	}
	if d.IsTemplate() {
		result.WriteString(fmt.Sprintf("Template: <%s>\n", d.Template.Text))
	}
	for _, b := range d.Bases {
		result.WriteString(fmt.Sprintf("Base: %s\n", b))
	}
	if d.Target != "" {
		result.WriteString(fmt.Sprintf("Target: %s\n", d.Target))
	}
	if d.Metrics != nil {
		result.WriteString(fmt.Sprintf("Lines: %d\n", d.Metrics.Lines))
		result.WriteString(fmt.Sprintf("Complexity: %d\n", d.Metrics.Complexity))
	}
	if d.Guarded {
		result.WriteString("Guarded: true\n")
	}
	if d.UnresolvedQualifier {
		result.WriteString("Unresolved Qualifier: true\n")
	}

	result.WriteString(fmt.Sprintf("Has Documentation: %t\n", d.Doc != ""))
	if members := d.Members(); len(members) > 0 {
		result.WriteString(fmt.Sprintf("Members: %d\n", len(members)))
	}

	return result.String()
}
