package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cppdecl/pkg/ast"
)

func mustParse(t *testing.T, content string, opts ...Option) *ast.Tree {
	t.Helper()
	tree, err := Parse("test.hpp", content, opts...)
	require.NoError(t, err)
	require.NotNil(t, tree)
	return tree
}

func TestBasicNamespaceParsing(t *testing.T) {
	content := `namespace TestNamespace {
    class TestClass {
    public:
        void publicMethod();
    private:
        int privateField;
    };
}`

	tree := mustParse(t, content)
	assert.Empty(t, tree.Diagnostics)

	ns := tree.FindDeclaration("TestNamespace")
	require.NotNil(t, ns)
	assert.Equal(t, ast.KindNamespace, ns.Kind)

	class := tree.FindDeclaration("TestNamespace::TestClass")
	require.NotNil(t, class)
	assert.Equal(t, ast.KindClass, class.Kind)

	members := class.Members()
	require.Len(t, members, 2)
	assert.Equal(t, ast.KindFunction, members[0].Kind)
	assert.Equal(t, "publicMethod", members[0].Name)
	assert.Equal(t, ast.AccessPublic, members[0].Access)
	assert.Equal(t, ast.KindVariable, members[1].Kind)
	assert.Equal(t, "privateField", members[1].Name)
	assert.Equal(t, ast.AccessPrivate, members[1].Access)
}

func TestAccessLevelParsing(t *testing.T) {
	content := `class TestClass {
    void implicitPrivate();
public:
    void publicMethod();
    int publicField;
protected:
    void protectedMethod();
};
struct TestStruct {
    int implicitPublic;
};`

	tree := mustParse(t, content)

	tests := []struct {
		path   string
		access ast.AccessLevel
	}{
		{"TestClass::implicitPrivate", ast.AccessPrivate},
		{"TestClass::publicMethod", ast.AccessPublic},
		{"TestClass::publicField", ast.AccessPublic},
		{"TestClass::protectedMethod", ast.AccessProtected},
		{"TestStruct::implicitPublic", ast.AccessPublic},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			d := tree.FindDeclaration(tt.path)
			require.NotNil(t, d)
			assert.Equal(t, tt.access, d.Access)
		})
	}
}

func TestForwardDeclarationsMerge(t *testing.T) {
	tree := mustParse(t, "class A;\nclass A { int x; };\nclass A;\n")

	assert.Empty(t, tree.Diagnostics)
	assert.Empty(t, tree.DeclarationsByKind(ast.KindForward))
	classes := tree.DeclarationsByKind(ast.KindClass)
	require.Len(t, classes, 1)
	assert.Equal(t, "A", classes[0].FullName)
	assert.NotNil(t, classes[0].FindMember("x"))
}

func TestForwardDeclarationOnly(t *testing.T) {
	tree := mustParse(t, "struct MyStruct;\nclass MyClass;\n")

	forwards := tree.DeclarationsByKind(ast.KindForward)
	require.Len(t, forwards, 2)
	assert.Equal(t, "MyStruct", forwards[0].Name)
	assert.Equal(t, "struct", forwards[0].Tag)
	assert.Equal(t, "MyClass", forwards[1].Name)
}

func TestRedefinitionLaterBodyWins(t *testing.T) {
	tree := mustParse(t, "struct S { int a; };\nstruct S { int b; };\n")

	redefs := tree.DiagnosticsOf(ast.DiagRedefinition)
	require.Len(t, redefs, 1)
	assert.True(t, errors.Is(redefs[0], ast.ErrRedefinition))

	s := tree.FindDeclaration("S")
	require.NotNil(t, s)
	assert.NotNil(t, s.FindMember("b"))
	assert.Nil(t, s.FindMember("a"))
	assert.Nil(t, tree.FindDeclaration("S::a"))

	tree = mustParse(t, "class Foo;\nclass Foo { int a; };\nclass Foo { int b; };\n")
	require.Len(t, tree.DiagnosticsOf(ast.DiagRedefinition), 1)
	assert.Nil(t, tree.FindDeclaration("Foo::a"))
	assert.NotNil(t, tree.FindDeclaration("Foo::b"))
	var names []string
	for _, d := range tree.Declarations {
		names = append(names, d.FullName)
	}
	assert.Equal(t, []string{"Foo", "Foo::b"}, names)
}

func TestNamespaceReopening(t *testing.T) {
	tree := mustParse(t, "namespace n { int a; }\nnamespace n { int b; }\nnamespace { int c; }\nnamespace { int d; }\n")

	namespaces := tree.DeclarationsByKind(ast.KindNamespace)
	require.Len(t, namespaces, 2)
	assert.Len(t, namespaces[0].Members(), 2)
	assert.Equal(t, "", namespaces[1].Name)
	assert.Len(t, namespaces[1].Members(), 2)
}

func TestNestedNamespaceDefinition(t *testing.T) {
	tree := mustParse(t, "namespace a::b::c { void f(); }\n")

	assert.Empty(t, tree.Diagnostics)
	f := tree.FindDeclaration("a::b::c::f")
	require.NotNil(t, f)
	assert.Equal(t, ast.KindFunction, f.Kind)
}

func TestQualifiedClassNames(t *testing.T) {
	t.Run("resolved", func(t *testing.T) {
		tree := mustParse(t, "namespace a { class B; }\nclass a::B { int x; };\n")

		assert.Empty(t, tree.Diagnostics)
		b := tree.FindDeclaration("a::B")
		require.NotNil(t, b)
		assert.Equal(t, ast.KindClass, b.Kind)
		assert.False(t, b.UnresolvedQualifier)
		assert.NotNil(t, tree.FindDeclaration("a::B::x"))
	})

	t.Run("unresolved", func(t *testing.T) {
		tree := mustParse(t, "class Abc::Xyz { int m; };\nint after;\n")

		diags := tree.DiagnosticsOf(ast.DiagRecognition)
		require.Len(t, diags, 1)
		assert.Contains(t, diags[0].Message, "Abc")

		xyz := tree.FindDeclaration("Abc::Xyz")
		require.NotNil(t, xyz)
		assert.True(t, xyz.UnresolvedQualifier)
		assert.NotNil(t, tree.FindDeclaration("Abc::Xyz::m"))
		assert.NotNil(t, tree.FindDeclaration("after"))
	})
}

func TestBaseSpecifiers(t *testing.T) {
	tree := mustParse(t, "class D : public B1, protected virtual ns::B2, C<int, 3> {};\n")

	d := tree.FindDeclaration("D")
	require.NotNil(t, d)
	require.Len(t, d.Bases, 3)

	assert.Equal(t, "B1", d.Bases[0].Name)
	assert.Equal(t, ast.AccessPublic, d.Bases[0].Access)

	assert.Equal(t, "ns::B2", d.Bases[1].Name)
	assert.Equal(t, ast.AccessProtected, d.Bases[1].Access)
	assert.True(t, d.Bases[1].Virtual)

	assert.Equal(t, "C", d.Bases[2].Name)
	assert.Equal(t, ast.AccessUnknown, d.Bases[2].Access)
	require.NotNil(t, d.Bases[2].Args)
	assert.Equal(t, "int , 3", d.Bases[2].Args.Text)
}

func TestTemplates(t *testing.T) {
	content := `template<class T> class Box { T v; };
template<> class Box<int> {};
template<typename T> T max(T a, T b);
template<typename T> using Vec = std::vector<T>;
template class Box<long>;
`
	tree := mustParse(t, content)
	assert.Empty(t, tree.Diagnostics)

	box := tree.FindDeclaration("Box")
	require.NotNil(t, box)
	assert.Equal(t, ast.KindClass, box.Kind)
	require.True(t, box.IsTemplate())
	assert.Equal(t, "class T", box.Template.Text)

	special := tree.FindDeclaration("Box<int>")
	require.NotNil(t, special)
	assert.Equal(t, ast.KindClass, special.Kind)
	assert.True(t, special.IsTemplate())

	max := tree.FindDeclaration("max")
	require.NotNil(t, max)
	assert.Equal(t, ast.KindTemplate, max.Kind)

	vec := tree.FindDeclaration("Vec")
	require.NotNil(t, vec)
	assert.Equal(t, ast.KindTemplate, vec.Kind)
	require.NotNil(t, vec.Underlying)

	inst := tree.FindDeclaration("Box<long>")
	require.NotNil(t, inst)
	assert.Equal(t, ast.KindTemplate, inst.Kind)
}

func TestFunctionsAndVariables(t *testing.T) {
	content := `void (*ptof)(const TT& tt);
Foo bar(1);
int x = 1, *y, z[3];
const char kBS[] = "abc";
static int counter(void);
int Foo::method(int a) const { return a; }
bool operator==(const A& a, const A& b);
`
	tree := mustParse(t, content)
	assert.Empty(t, tree.Diagnostics)

	tests := []struct {
		path string
		kind ast.DeclKind
	}{
		{"ptof", ast.KindVariable},
		{"bar", ast.KindVariable},
		{"x", ast.KindVariable},
		{"y", ast.KindVariable},
		{"z", ast.KindVariable},
		{"kBS", ast.KindVariable},
		{"counter", ast.KindFunction},
		{"Foo::method", ast.KindFunction},
		{"operator==", ast.KindFunction},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			d := tree.FindDeclaration(tt.path)
			require.NotNil(t, d)
			assert.Equal(t, tt.kind, d.Kind)
		})
	}
}

func TestBodyMetrics(t *testing.T) {
	content := `int f(int x) {
  if (x) {
    return 1;
  }
  return 0;
}
void g();
`
	tree := mustParse(t, content)

	f := tree.FindDeclaration("f")
	require.NotNil(t, f)
	require.NotNil(t, f.Body)
	require.NotNil(t, f.Metrics)
	assert.Equal(t, 6, f.Metrics.Lines)
	assert.Equal(t, 4, f.Metrics.Complexity)
	assert.True(t, f.IsDefinition())

	g := tree.FindDeclaration("g")
	require.NotNil(t, g)
	assert.Nil(t, g.Metrics)
	assert.False(t, g.IsDefinition())
}

func TestTypedefsAndAliases(t *testing.T) {
	content := `typedef int A, *B;
typedef void(*Setter)(int*, int);
typedef struct { int zz; } AnonStruct;
using S = std::string;
`
	tree := mustParse(t, content)
	assert.Empty(t, tree.Diagnostics)

	tests := []struct {
		name       string
		underlying string
	}{
		{"A", "int"},
		{"B", "int *"},
		{"Setter", "void ( * ) ( int * , int )"},
		{"S", "std :: string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tree.FindDeclaration(tt.name)
			require.NotNil(t, d)
			assert.Equal(t, ast.KindTypedef, d.Kind)
			require.NotNil(t, d.Underlying)
			assert.Equal(t, tt.underlying, d.Underlying.Text)
		})
	}

	anon := tree.FindDeclaration("AnonStruct")
	require.NotNil(t, anon)
	assert.Equal(t, ast.KindTypedef, anon.Kind)
	assert.Len(t, tree.DeclarationsByKind(ast.KindStruct), 1)
}

func TestEnums(t *testing.T) {
	content := `enum class Color : unsigned char { Red, Green = 2, Blue };
enum class Forward : int;
enum { boo };
enum Color c;
`
	tree := mustParse(t, content)
	assert.Empty(t, tree.Diagnostics)

	color := tree.FindDeclaration("Color")
	require.NotNil(t, color)
	assert.Equal(t, ast.KindEnum, color.Kind)
	assert.Equal(t, "enum class", color.Tag)
	assert.Equal(t, []string{"Red", "Green", "Blue"}, color.Enumerators)
	require.NotNil(t, color.Underlying)
	assert.Equal(t, "unsigned char", color.Underlying.Text)

	fwd := tree.FindDeclaration("Forward")
	require.NotNil(t, fwd)
	assert.Equal(t, ast.KindEnumForward, fwd.Kind)

	enums := tree.DeclarationsByKind(ast.KindEnum)
	require.Len(t, enums, 2)
	assert.Equal(t, []string{"boo"}, enums[1].Enumerators)

	c := tree.FindDeclaration("c")
	require.NotNil(t, c)
	assert.Equal(t, ast.KindVariable, c.Kind)
}

func TestTrailingDeclarators(t *testing.T) {
	tree := mustParse(t, "struct { int x; } pt, *ppt;\nstruct P { int y; } p;\n")

	assert.Empty(t, tree.Diagnostics)
	for _, name := range []string{"pt", "ppt", "p"} {
		d := tree.FindDeclaration(name)
		require.NotNil(t, d, name)
		assert.Equal(t, ast.KindVariable, d.Kind)
	}
	assert.Len(t, tree.DeclarationsByKind(ast.KindStruct), 2)
}

func TestFriendsAndUsing(t *testing.T) {
	content := `namespace n { int a; }
using namespace n;
using std::swap;
class A {
  friend class B;
  friend void swap(A&, A&);
};
`
	tree := mustParse(t, content)
	assert.Empty(t, tree.Diagnostics)

	directives := tree.DeclarationsByKind(ast.KindUsingDirective)
	require.Len(t, directives, 1)
	assert.Equal(t, "n", directives[0].Target)

	decls := tree.DeclarationsByKind(ast.KindUsingDeclaration)
	require.Len(t, decls, 1)
	assert.Equal(t, "swap", decls[0].Name)
	assert.Equal(t, "std::swap", decls[0].Target)

	a := tree.FindDeclaration("A")
	require.NotNil(t, a)
	friends := a.Members()
	require.Len(t, friends, 2)
	assert.Equal(t, ast.KindFriend, friends[0].Kind)
	assert.Equal(t, "B", friends[0].Name)
	assert.Equal(t, ast.KindFriend, friends[1].Kind)
	assert.Equal(t, "swap", friends[1].Name)
}

func TestNamespaceAlias(t *testing.T) {
	tree := mustParse(t, "namespace noname { enum nn { bar, }; }\nnamespace wtf = noname;\n")

	assert.Empty(t, tree.Diagnostics)
	alias := tree.FindDeclaration("wtf")
	require.NotNil(t, alias)
	assert.Equal(t, ast.KindNamespaceAlias, alias.Kind)
	assert.Equal(t, "noname", alias.Target)
}

func TestDirectives(t *testing.T) {
	content := `#include <vector>
#include "local.h"
#define MAX(a,b) ((a)>(b)?(a):(b))
#define VERSION 3
int x;
`
	tree := mustParse(t, content)
	assert.Empty(t, tree.Diagnostics)

	includes := tree.DeclarationsByKind(ast.KindInclude)
	require.Len(t, includes, 2)
	assert.Equal(t, "vector", includes[0].Name)
	assert.True(t, includes[0].System)
	assert.Equal(t, "local.h", includes[1].Name)
	assert.False(t, includes[1].System)

	defines := tree.DeclarationsByKind(ast.KindDefine)
	require.Len(t, defines, 2)
	assert.Equal(t, "MAX", defines[0].Name)
	assert.Equal(t, "#define MAX(a,b)", defines[0].Signature)
	assert.Equal(t, "((a)>(b)?(a):(b))", defines[0].Value)
	assert.Equal(t, "VERSION", defines[1].Name)
	assert.Equal(t, "3", defines[1].Value)
}

func TestDocComments(t *testing.T) {
	content := `/// Adds two numbers. Overflow wraps.
int add(int a, int b);

/**
 * @brief A point.
 */
struct Point { int x; };

// plain comment
int plain;
`
	tree := mustParse(t, content)

	add := tree.FindDeclaration("add")
	require.NotNil(t, add)
	assert.Equal(t, "Adds two numbers.", add.Brief)

	point := tree.FindDeclaration("Point")
	require.NotNil(t, point)
	assert.Equal(t, "A point.", point.Brief)

	plain := tree.FindDeclaration("plain")
	require.NotNil(t, plain)
	assert.Empty(t, plain.Doc)
}

func TestMacroStatements(t *testing.T) {
	tree := mustParse(t, "DECLARE_FOO(x)\nQ_OBJECT\nint a;\n")

	others := tree.DeclarationsByKind(ast.KindOther)
	require.Len(t, others, 2)
	assert.Equal(t, "DECLARE_FOO", others[0].Name)
	assert.Equal(t, "Q_OBJECT", others[1].Name)
	assert.NotNil(t, tree.FindDeclaration("a"))
}

func TestMacroBeforeClassName(t *testing.T) {
	tree := mustParse(t, "class DLL_EXPORT Widget : public Base {};\nstatic struct S2 { int v; } s2;\n")

	assert.Empty(t, tree.Diagnostics)
	w := tree.FindDeclaration("Widget")
	require.NotNil(t, w)
	assert.Equal(t, ast.KindClass, w.Kind)
	require.Len(t, w.Attributes, 1)
	assert.Equal(t, "DLL_EXPORT", w.Attributes[0].Text)

	s2 := tree.FindDeclaration("S2")
	require.NotNil(t, s2)
	assert.Equal(t, ast.KindStruct, s2.Kind)
	assert.NotNil(t, tree.FindDeclaration("s2"))
}

func TestConditionalGuarding(t *testing.T) {
	content := `#ifdef FOO
int a;
#endif
int b;
`
	t.Run("undetermined", func(t *testing.T) {
		tree := mustParse(t, content)
		a := tree.FindDeclaration("a")
		require.NotNil(t, a)
		assert.True(t, a.Guarded)
		b := tree.FindDeclaration("b")
		require.NotNil(t, b)
		assert.False(t, b.Guarded)
	})

	t.Run("defined", func(t *testing.T) {
		tree := mustParse(t, content, WithDefines(map[string]string{"FOO": "1"}))
		a := tree.FindDeclaration("a")
		require.NotNil(t, a)
		assert.False(t, a.Guarded)
	})

	t.Run("undefined", func(t *testing.T) {
		tree := mustParse(t, content, WithUndefined([]string{"FOO"}))
		assert.Nil(t, tree.FindDeclaration("a"))
		assert.NotNil(t, tree.FindDeclaration("b"))
	})

	t.Run("strict", func(t *testing.T) {
		tree := mustParse(t, content, WithStrictConditionals(true))
		assert.Nil(t, tree.FindDeclaration("a"))
		assert.NotNil(t, tree.FindDeclaration("b"))
	})
}

func TestIncludeGuardIsCertain(t *testing.T) {
	content := `#ifndef FOO_H
#define FOO_H
int a;
#endif
`
	tree := mustParse(t, content)
	a := tree.FindDeclaration("a")
	require.NotNil(t, a)
	assert.False(t, a.Guarded)
}

func TestRecoveryAndDiagnostics(t *testing.T) {
	t.Run("unmatched brace", func(t *testing.T) {
		tree := mustParse(t, "}\nint a;\n")
		assert.Len(t, tree.DiagnosticsOf(ast.DiagRecognition), 1)
		assert.NotNil(t, tree.FindDeclaration("a"))
	})

	t.Run("missing close brace", func(t *testing.T) {
		tree := mustParse(t, "namespace n {\nint a;\n")
		assert.NotEmpty(t, tree.DiagnosticsOf(ast.DiagRecognition))
		assert.NotNil(t, tree.FindDeclaration("n::a"))
	})

	t.Run("unterminated if", func(t *testing.T) {
		tree := mustParse(t, "#if FOO\nint a;\n")
		diags := tree.DiagnosticsOf(ast.DiagDirective)
		require.Len(t, diags, 1)
		assert.Contains(t, diags[0].Message, "unterminated #if")
	})

	t.Run("lex error", func(t *testing.T) {
		tree := mustParse(t, "int a;\nconst char* s = \"never closed\n")
		assert.NotEmpty(t, tree.DiagnosticsOf(ast.DiagLex))
		assert.NotNil(t, tree.FindDeclaration("a"))
		assert.Error(t, tree.Err())
	})
}

func TestParseContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tree, err := New().ParseContext(ctx, "test.hpp", "int a;\n")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.NotNil(t, tree)
}

func TestParseDeterministic(t *testing.T) {
	content := "namespace a { class B { void f(); }; }\nint x;\n"
	first := mustParse(t, content)
	second := mustParse(t, content)

	require.Equal(t, len(first.Declarations), len(second.Declarations))
	for i := range first.Declarations {
		assert.Equal(t, first.Declarations[i].FullName, second.Declarations[i].FullName)
		assert.Equal(t, first.Declarations[i].Kind, second.Declarations[i].Kind)
	}
}
