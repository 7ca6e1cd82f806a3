package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cppdecl/pkg/parser"
)

// project lays out a small source tree and returns its root
func project(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"a.hpp":           "#include \"b.hpp\"\n#include <sys.hpp>\n#include <missing.hpp>\nclass A {};\n",
		"b.hpp":           "#include \"a.hpp\"\nint b;\n",
		"inc/sys.hpp":     "void sys();\n",
		"src/main.cpp":    "int main() { return 0; }\n",
		"build/gen.hpp":   "int generated;\n",
		"docs/readme.txt": "not C++\n",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestDiscover(t *testing.T) {
	root := project(t)

	files, err := Discover([]string{root}, nil, DefaultExclude)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.hpp"),
		filepath.Join(root, "b.hpp"),
		filepath.Join(root, "inc", "sys.hpp"),
		filepath.Join(root, "src", "main.cpp"),
	}, files)

	headers, err := Discover([]string{root, filepath.Join(root, "a.hpp")}, []string{".hpp"}, []string{"inc", "build"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.hpp"), filepath.Join(root, "b.hpp")}, headers)

	_, err = Discover([]string{filepath.Join(root, "nope")}, nil, nil)
	assert.Error(t, err)
}

func TestDirResolver(t *testing.T) {
	root := project(t)
	r := NewDirResolver(filepath.Join(root, "inc"))
	from := filepath.Join(root, "a.hpp")

	got, ok := r.ResolveQuote(from, "b.hpp")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(root, "b.hpp"), got)

	// quoted includes fall back to the include directories
	got, ok = r.ResolveQuote(from, "sys.hpp")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(root, "inc", "sys.hpp"), got)

	// angled includes never look next to the including file
	_, ok = r.ResolveAngled(from, "b.hpp")
	assert.False(t, ok)

	_, ok = r.ResolveAngled(from, "../inc")
	assert.False(t, ok, "directories are not includes")
}

func TestRunKeepsInputOrder(t *testing.T) {
	root := project(t)
	files, err := Discover([]string{root}, nil, DefaultExclude)
	require.NoError(t, err)

	results, err := Run(context.Background(), files, Options{Workers: 2})
	require.NoError(t, err)
	require.Len(t, results, len(files))
	for i, r := range results {
		assert.Equal(t, files[i], r.File)
		assert.NoError(t, r.Err)
		require.NotNil(t, r.Tree)
		assert.False(t, r.Included)
	}
	assert.NotNil(t, results[0].Tree.FindDeclaration("A"))
}

func TestRunFollowsIncludes(t *testing.T) {
	root := project(t)

	results, err := Run(context.Background(), []string{filepath.Join(root, "a.hpp")}, Options{
		FollowIncludes: true,
		Resolver:       NewDirResolver(filepath.Join(root, "inc")),
	})
	require.NoError(t, err)

	var names []string
	for _, r := range results {
		rel, _ := filepath.Rel(root, r.File)
		names = append(names, rel)
	}
	// b.hpp includes a.hpp back; the cycle is visited once
	assert.Equal(t, []string{"a.hpp", "b.hpp", filepath.Join("inc", "sys.hpp")}, names)
	assert.False(t, results[0].Included)
	assert.True(t, results[1].Included)
	assert.True(t, results[2].Included)
}

func TestRunPassesParserOptions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feature.hpp")
	require.NoError(t, os.WriteFile(path, []byte("#ifdef FEATURE\nint on;\n#else\nint off;\n#endif\n"), 0644))

	results, err := Run(context.Background(), []string{path}, Options{
		ParserOptions: []parser.Option{parser.WithDefines(map[string]string{"FEATURE": ""})},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotNil(t, results[0].Tree.FindDeclaration("on"))
	assert.Nil(t, results[0].Tree.FindDeclaration("off"))
}

func TestRunFailures(t *testing.T) {
	root := project(t)

	results, err := Run(context.Background(), []string{filepath.Join(root, "gone.hpp"), filepath.Join(root, "b.hpp")}, Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.Nil(t, results[0].Tree)
	assert.NoError(t, results[1].Err)

	summary := Summarize(results)
	assert.Equal(t, 2, summary.Files)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Declarations)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, []string{filepath.Join(root, "b.hpp")}, Options{})
	assert.True(t, errors.Is(err, context.Canceled))
}
