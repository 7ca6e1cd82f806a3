package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cppdecl/pkg/config"
	"cppdecl/pkg/parser"
)

// run executes the root command with args and returns its output
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseDefineFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    map[string]string
		wantErr bool
	}{
		{"empty", nil, map[string]string{}, false},
		{"name only", []string{"DEBUG"}, map[string]string{"DEBUG": "1"}, false},
		{"empty value", []string{"EMPTY="}, map[string]string{"EMPTY": ""}, false},
		{"name and value", []string{"LEVEL=2", "MODE=a=b"}, map[string]string{"LEVEL": "2", "MODE": "a=b"}, false},
		{"missing name", []string{"=1"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDefineFlags(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParserOptionsMergeFlags(t *testing.T) {
	c := &cobra.Command{Use: "parse"}
	addParserFlags(c)
	require.NoError(t, c.Flags().Set("define", "LEVEL"))
	require.NoError(t, c.Flags().Set("undefine", "LEGACY"))

	opts, err := parserOptions(c, config.ParserConfig{
		Defines: map[string]string{"LEGACY": "1", "MODE": "2"},
	})
	require.NoError(t, err)

	tree, err := parser.Parse("x.hpp", `#if LEVEL
int level;
#endif
#ifdef LEGACY
int legacy;
#endif
#if MODE == 2
int mode;
#endif
`, opts...)
	require.NoError(t, err)

	level := tree.FindDeclaration("level")
	require.NotNil(t, level)
	assert.False(t, level.Guarded, "-D NAME defines NAME as 1")
	assert.Nil(t, tree.FindDeclaration("legacy"), "-U drops a configured define")
	mode := tree.FindDeclaration("mode")
	require.NotNil(t, mode)
	assert.False(t, mode.Guarded)
}

func TestUsedExtensions(t *testing.T) {
	got := usedExtensions([]string{"a/x.hpp", "b.cpp", "c/y.hpp", "d.h"})
	assert.Equal(t, []string{".cpp", ".h", ".hpp"}, got)
}

func TestParseCommand(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "widget.hpp", `namespace ui {
/// A widget.
class Widget {
public:
    void draw();
};
}
#ifdef LEGACY
int legacy;
#endif
`)

	out, err := run(t, "parse", "--format", "human", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Parsed file: "+file)
	assert.Contains(t, out, "Widget")
	assert.Contains(t, out, "[guarded]")

	out, err = run(t, "parse", "--format", "json", "-D", "LEGACY", file)
	require.NoError(t, err)
	var view struct {
		Filename     string `json:"filename"`
		Declarations []struct {
			Name    string `json:"name"`
			Guarded bool   `json:"guarded"`
		} `json:"declarations"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, file, view.Filename)
	require.Len(t, view.Declarations, 2)
	assert.Equal(t, "ui", view.Declarations[0].Name)
	assert.Equal(t, "legacy", view.Declarations[1].Name)
	assert.False(t, view.Declarations[1].Guarded)

	_, err = run(t, "parse", "--format", "xml", file)
	assert.Error(t, err)
}

func TestParseStrict(t *testing.T) {
	dir := t.TempDir()
	clean := writeFile(t, dir, "clean.hpp", "int value;\n")
	broken := writeFile(t, dir, "broken.hpp", "class A {};\nclass A { int x; };\n")

	_, err := run(t, "parse", "--format", "human", "--strict", clean)
	assert.NoError(t, err)

	_, err = run(t, "parse", "--format", "human", "--strict", broken)
	assert.Error(t, err)

	_, err = run(t, "parse", "--format", "human", "--strict=false", broken)
	assert.NoError(t, err)
}

func TestTokensCommand(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "t.hpp", "#if UNKNOWN\nint a;\n#endif\n")

	out, err := run(t, "tokens", "--filtered=false", file)
	require.NoError(t, err)
	assert.Contains(t, out, "DIRECTIVE")
	assert.NotContains(t, out, "[guarded]")

	out, err = run(t, "tokens", "--filtered", file)
	require.NoError(t, err)
	assert.Contains(t, out, "[guarded]")
}

func TestExtractCommand(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "calc.hpp", `namespace math {
class Calc {
public:
    int add(int a, int b) { return a + b; }
    int sub(int a, int b);
};
}
`)

	out, err := run(t, "extract", "--parent", "--siblings", "--scope=false", "--summary=false", file, "math::Calc::add")
	require.NoError(t, err)
	assert.Contains(t, out, "// Parent context:")
	assert.Contains(t, out, "// Sibling context:")
	assert.Contains(t, out, "sub")
	assert.Contains(t, out, "// Target declaration:")

	_, err = run(t, "extract", file, "math::Missing")
	assert.Error(t, err)
}

func TestBatchAndQuery(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/a.hpp", "namespace app {\nclass Widget {};\nvoid run();\n}\n")
	writeFile(t, dir, "src/b.cpp", "int main() { return 0; }\n")
	writeFile(t, dir, "build/gen.hpp", "class Generated {};\n")
	indexPath := filepath.Join(dir, "index")

	out, err := run(t, "batch", "--workers", "2", "--index", indexPath, "--reset", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 files, 0 failed, 4 declarations")
	assert.Contains(t, out, "Indexed 4 declarations")

	out, err = run(t, "query", "--index", indexPath, "--file", "", "--kind", "", "Widget")
	require.NoError(t, err)
	assert.Contains(t, out, "class app::Widget")
	assert.Contains(t, out, "1 matches")

	out, err = run(t, "query", "--index", indexPath, "--kind", "function", "")
	require.NoError(t, err)
	assert.Contains(t, out, "2 matches")

	_, err = run(t, "query", "--index", indexPath, "--kind", "gadget", "Widget")
	assert.Error(t, err)
}

func TestBatchStoresInConfiguredIndex(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/a.hpp", "struct Config {};\n")
	t.Setenv("CPPDECL_INDEX_PATH", filepath.Join(dir, "configured"))

	out, err := run(t, "batch", "--index", "", "--store", "--reset=false", filepath.Join(dir, "src"))
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 1 declarations in "+filepath.Join(dir, "configured"))

	// query reads the same configured index
	out, err = run(t, "query", "--index", "", "--file", "", "--kind", "", "Config")
	require.NoError(t, err)
	assert.Contains(t, out, "struct Config")
	assert.Contains(t, out, "1 matches")
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.hpp", "int a;\n")
	writeFile(t, dir, "b.cc", "int b;\n")

	out, err := run(t, "init", "--overwrite=false", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Found 2 C/C++ files")

	data, err := os.ReadFile(filepath.Join(dir, ".cppdecl.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "- .cc")
	assert.Contains(t, string(data), "- .hpp")

	_, err = run(t, "init", dir)
	assert.Error(t, err, "existing config is kept without --overwrite")

	_, err = run(t, "init", "--overwrite", dir)
	assert.NoError(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cppdecl")
	assert.Contains(t, out, "Commit:")
}

func TestFormatCommand(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "shape.hpp", "namespace geo {\nstruct Point { int x; };\n}\n")

	out, err := run(t, "format", "--clang-format=false", file)
	require.NoError(t, err)
	assert.Contains(t, out, "namespace geo {")
	assert.Contains(t, out, "struct Point")
	assert.Contains(t, out, "} // namespace geo")
}
