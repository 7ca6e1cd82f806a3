package formatter

import (
	"bytes"
	"encoding/json"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"cppdecl/pkg/ast"
	"cppdecl/pkg/parser"
)

const calculatorHeader = `#include <string>

/** @brief Test namespace for formatter testing */
namespace TestNS {

/**
 * @brief A simple calculator class
 * This class provides basic arithmetic operations
 * @ingroup math_utilities
 */
class Calculator : public Base {
public:
    /**
     * @brief Adds two numbers
     * @param a First number
     * @param b Second number
     * @return Sum of a and b
     */
    int add(int a, int b);
    int subtract(int a, int b) { return a - b; }

private:
    int memory_;
};

enum Mode { Fast, Precise };

} // namespace TestNS
`

func parseCalculator(t *testing.T) *ast.Tree {
	t.Helper()
	tree, err := parser.Parse("calculator.hpp", calculatorHeader)
	require.NoError(t, err)
	require.Empty(t, tree.Diagnostics)
	return tree
}

func TestReconstructCode(t *testing.T) {
	result := New().ReconstructCode(parseCalculator(t))

	for _, element := range []string{
		"#include <string>",
		"namespace TestNS {",
		"class Calculator : public Base {",
		"int add ( int a , int b );",
		"int subtract ( int a , int b ) { return a - b ; }",
		"private:\n",
		"int memory_;",
		"enum Mode { Fast, Precise };",
		"} // namespace TestNS",
		"@brief Test namespace",
		"@brief A simple calculator class",
		"@param a First number",
		"@param b Second number",
		"@return Sum of a and b",
		"@ingroup math_utilities",
	} {
		assert.Contains(t, result, element)
	}

	// public is the first explicit access and not the class default
	assert.Contains(t, result, "public:\n")
	assert.Equal(t, "", New().ReconstructCode(nil))
}

func TestReconstructScope(t *testing.T) {
	tree := parseCalculator(t)
	class := tree.FindDeclaration("TestNS::Calculator")
	require.NotNil(t, class)

	result := New().ReconstructScope(class)
	assert.True(t, strings.HasPrefix(result, "/**\n * @brief A simple calculator class"))
	assert.Contains(t, result, "    int add ( int a , int b );")
	assert.True(t, strings.HasSuffix(result, "};\n"))
	assert.NotContains(t, result, "namespace")
}

func TestFormatDocComment(t *testing.T) {
	f := New()
	doc := parser.ParseDoxygenComment("/// Frees the buffer.\n/// @param p the pointer\n/// @since 2.0")

	result := f.formatDocComment(doc, 1)
	assert.Equal(t, strings.Join([]string{
		"    /**",
		"     * @brief Frees the buffer.",
		"     *",
		"     * @param p the pointer",
		"     * @since 2.0",
		"     */",
	}, "\n"), result)

	assert.Equal(t, "", f.formatDocComment(nil, 0))
}

func TestGetIndent(t *testing.T) {
	f := New()
	assert.Equal(t, "", f.getIndent(0))
	assert.Equal(t, "        ", f.getIndent(2))

	tabs := &Formatter{indentSize: 4}
	assert.Equal(t, "\t\t", tabs.getIndent(2))
}

func TestExtractDeclarationContext(t *testing.T) {
	tree := parseCalculator(t)
	add := tree.FindDeclaration("TestNS::Calculator::add")
	require.NotNil(t, add)
	f := New()

	result := f.ExtractDeclarationContext(add, false, false)
	assert.Contains(t, result, "// Target declaration:")
	assert.Contains(t, result, "int add ( int a , int b );")
	assert.NotContains(t, result, "Parent context:")

	withParent := f.ExtractDeclarationContext(add, true, false)
	assert.Contains(t, withParent, "// Parent context:\nclass Calculator : public Base { /* ... */ };")

	withSiblings := f.ExtractDeclarationContext(add, false, true)
	assert.Contains(t, withSiblings, "// Sibling context:")
	assert.Contains(t, withSiblings, "int subtract ( int a , int b );")
	assert.Contains(t, withSiblings, "int memory_;")

	// top-level declarations have no parent to show
	ns := tree.FindDeclaration("TestNS")
	assert.NotContains(t, f.ExtractDeclarationContext(ns, true, false), "Parent context:")
}

func TestGetDeclarationSummary(t *testing.T) {
	tree := parseCalculator(t)
	f := New()

	summary := f.GetDeclarationSummary(tree.FindDeclaration("TestNS::Calculator"))
	for _, element := range []string{
		"Kind: class",
		"Name: Calculator",
		"Full Name: TestNS::Calculator",
		"Base: public Base",
		"Has Documentation: true",
		"Members: 3",
	} {
		assert.Contains(t, summary, element)
	}

	sub := f.GetDeclarationSummary(tree.FindDeclaration("TestNS::Calculator::subtract"))
	assert.Contains(t, sub, "Access: public")
	assert.Contains(t, sub, "Complexity: 2")
	assert.Contains(t, sub, "Has Documentation: false")
}

func TestFormatSignature(t *testing.T) {
	f := New()
	tests := []struct {
		decl     *ast.Declaration
		expected string
	}{
		{&ast.Declaration{Kind: ast.KindNamespace, Signature: "namespace a"}, "namespace a { /* ... */ }"},
		{&ast.Declaration{Kind: ast.KindStruct, Signature: "struct S"}, "struct S { /* ... */ };"},
		{&ast.Declaration{Kind: ast.KindFunction, Signature: "void f ( )"}, "void f ( );"},
		{&ast.Declaration{Kind: ast.KindDefine, Signature: "#define X"}, "#define X"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, f.formatSignature(tt.decl))
	}
}

func TestEncode(t *testing.T) {
	tree := parseCalculator(t)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, tree, "json"))

	var decoded struct {
		Filename     string `json:"filename"`
		Declarations []struct {
			Kind     string `json:"kind"`
			FullName string `json:"fullName"`
			Members  []struct {
				Kind     string `json:"kind"`
				FullName string `json:"fullName"`
			} `json:"members"`
		} `json:"declarations"`
		Diagnostics []interface{} `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "calculator.hpp", decoded.Filename)
	require.Len(t, decoded.Declarations, 2)
	assert.Equal(t, "include", decoded.Declarations[0].Kind)
	assert.Equal(t, "namespace", decoded.Declarations[1].Kind)
	require.Len(t, decoded.Declarations[1].Members, 2)
	assert.Equal(t, "TestNS::Calculator", decoded.Declarations[1].Members[0].FullName)
	assert.NotNil(t, decoded.Diagnostics)

	buf.Reset()
	require.NoError(t, Encode(&buf, tree, "yaml"))
	var generic map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &generic))
	assert.Equal(t, "calculator.hpp", generic["filename"])
	assert.Contains(t, buf.String(), "fullName: TestNS::Calculator::add")

	assert.Error(t, Encode(&buf, tree, "xml"))
}

func TestWriteHuman(t *testing.T) {
	tree, err := parser.Parse("broken.hpp", "class A {};\nclass A {};\n")
	require.NoError(t, err)

	var buf bytes.Buffer
	WriteHuman(&buf, tree)
	out := buf.String()

	assert.Contains(t, out, "Parsed file: broken.hpp")
	assert.Contains(t, out, "class: A")
	assert.Contains(t, out, "Total declarations: 1")
	assert.Contains(t, out, "class: 1")
	assert.Contains(t, out, "Diagnostics:")
	assert.Contains(t, out, "RedefinitionError")
}

func TestFormatWithClang(t *testing.T) {
	if _, err := exec.LookPath("clang-format"); err != nil {
		t.Skip("clang-format not available")
	}

	result, err := New().FormatWithClang("namespace Test{class MyClass{public:void f();};}")
	require.NoError(t, err)
	assert.Contains(t, result, "namespace Test")
	assert.Contains(t, result, "class MyClass")
}
