package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cppdecl/pkg/ast"
	"cppdecl/pkg/token"
)

func TestEvalCondition(t *testing.T) {
	defines := map[string]string{"ONE": "1", "ZERO": "0", "ALIAS": "ONE", "EMPTY": "", "VER": "0x0305"}
	undefined := map[string]bool{"GONE": true}

	tests := []struct {
		expr  string
		known bool
		truth bool
	}{
		{"1", true, true},
		{"0", true, false},
		{"defined(ONE)", true, true},
		{"defined ONE", true, true},
		{"defined(GONE)", true, false},
		{"defined(UNKNOWN)", false, false},
		{"!defined(GONE)", true, true},
		{"ONE && ZERO", true, false},
		{"ZERO && UNKNOWN", true, false},
		{"ONE || UNKNOWN", true, true},
		{"UNKNOWN || ZERO", false, false},
		{"ALIAS == 1", true, true},
		{"VER >= 0x0300", true, true},
		{"(2 + 3) * 2 == 10", true, true},
		{"GONE", true, false},
		{"EMPTY", false, false},
		{"UNKNOWN > 40305", false, false},
		{"FUNC(1, 2)", false, false},
		{"1 / 0", false, false},
		{"", false, false},
		{"1 +", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			truth, known := evalCondition(tt.expr, defines, undefined).truth()
			assert.Equal(t, tt.known, known)
			if tt.known {
				assert.Equal(t, tt.truth, truth)
			}
		})
	}
}

func filtered(t *testing.T, content string, opts ...Option) ([]token.Token, []ast.Diagnostic) {
	t.Helper()
	tokens, diags := New(opts...).FilterTokens(content)
	var code []token.Token
	for _, tok := range tokens {
		if tok.Kind != token.Comment && tok.Kind != token.Directive && tok.Kind != token.EOF {
			code = append(code, tok)
		}
	}
	return code, diags
}

func values(tokens []token.Token) []string {
	var out []string
	for _, t := range tokens {
		out = append(out, t.Value)
	}
	return out
}

func TestConditionalBranches(t *testing.T) {
	tests := []struct {
		name    string
		content string
		opts    []Option
		want    []string
	}{
		{
			name:    "true branch",
			content: "#if 1\na\n#else\nb\n#endif\n",
			want:    []string{"a"},
		},
		{
			name:    "false branch",
			content: "#if 0\na\n#else\nb\n#endif\n",
			want:    []string{"b"},
		},
		{
			name:    "first undetermined branch only",
			content: "#if FOO\na\n#elif BAR\nb\n#else\nc\n#endif\n",
			want:    []string{"a"},
		},
		{
			name:    "strict skips undetermined",
			content: "#if FOO\na\n#elif 1\nb\n#else\nc\n#endif\n",
			opts:    []Option{WithStrictConditionals(true)},
			want:    []string{"b"},
		},
		{
			name:    "strict skips undetermined ifndef",
			content: "#ifndef FEATURE\na\n#endif\nb\n",
			opts:    []Option{WithStrictConditionals(true)},
			want:    []string{"b"},
		},
		{
			name:    "strict skips undetermined negated defined",
			content: "#if !defined(FEATURE)\na\n#else\nc\n#endif\nb\n",
			opts:    []Option{WithStrictConditionals(true)},
			want:    []string{"c", "b"},
		},
		{
			name:    "strict keeps include guard",
			content: "#ifndef GUARD_H\n// guard\n#define GUARD_H\na\n#endif\n",
			opts:    []Option{WithStrictConditionals(true)},
			want:    []string{"a"},
		},
		{
			name:    "endif inside comment of skipped branch",
			content: "#if 0\n/*\n#endif\n*/\nhidden\n#endif\nvisible\n",
			want:    []string{"visible"},
		},
		{
			name:    "comment closed on the skipped line",
			content: "#if 0\n/* one */ x /* two\n#else\n*/\n#else\nb\n#endif\n",
			want:    []string{"b"},
		},
		{
			name:    "comment markers inside strings",
			content: "#if 0\nconst char* s = \"/*\";\n#else\nb\n#endif\n",
			want:    []string{"b"},
		},
		{
			name:    "elif after false",
			content: "#if 0\na\n#elif 1\nb\n#else\nc\n#endif\n",
			want:    []string{"b"},
		},
		{
			name:    "nested inactive",
			content: "#if 0\n#if 1\na\n#endif\nb\n#endif\nc\n",
			want:    []string{"c"},
		},
		{
			name:    "define seen earlier",
			content: "#define FOO 1\n#if FOO\na\n#else\nb\n#endif\n",
			want:    []string{"a"},
		},
		{
			name:    "undef seen earlier",
			content: "#undef FOO\n#ifdef FOO\na\n#endif\nb\n",
			opts:    []Option{WithDefines(map[string]string{"FOO": ""})},
			want:    []string{"b"},
		},
		{
			name:    "ifndef with known macro",
			content: "#ifndef FOO\na\n#else\nb\n#endif\n",
			opts:    []Option{WithDefines(map[string]string{"FOO": ""})},
			want:    []string{"b"},
		},
		{
			name:    "elifdef",
			content: "#if 0\na\n#elifdef FOO\nb\n#endif\n",
			opts:    []Option{WithDefines(map[string]string{"FOO": ""})},
			want:    []string{"b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, diags := filtered(t, tt.content, tt.opts...)
			assert.Empty(t, diags)
			assert.Equal(t, tt.want, values(code))
		})
	}
}

func TestConditionalGuardedFlag(t *testing.T) {
	code, _ := filtered(t, "#ifdef FOO\na\n#else\nb\n#endif\nc\n#if 1\nd\n#endif\n")

	require.Equal(t, []string{"a", "c", "d"}, values(code))
	assert.True(t, code[0].Guarded)
	assert.False(t, code[1].Guarded)
	assert.False(t, code[2].Guarded)
}

func TestStrictIncludeGuardIsCertain(t *testing.T) {
	code, diags := filtered(t, "#ifndef GUARD_H\n#define GUARD_H\nclass X {};\n#endif\n", WithStrictConditionals(true))
	assert.Empty(t, diags)
	require.NotEmpty(t, code)
	for _, tok := range code {
		assert.False(t, tok.Guarded, tok.Value)
	}

	tree, err := Parse("x.hpp", "#ifndef FEATURE\nclass X {};\n#endif\n#if FEATURE\nclass Y {};\n#endif\n", WithStrictConditionals(true))
	require.NoError(t, err)
	assert.Nil(t, tree.FindDeclaration("X"))
	assert.Nil(t, tree.FindDeclaration("Y"))
	assert.Empty(t, tree.Diagnostics)
}

func TestConditionalElseCertainty(t *testing.T) {
	// the #else of a fully determined chain is certain
	code, _ := filtered(t, "#if 0\na\n#else\nb\n#endif\n")
	require.Len(t, code, 1)
	assert.False(t, code[0].Guarded)
}

func TestIncludeGuardIdioms(t *testing.T) {
	for _, content := range []string{
		"#ifndef H\n#define H\nx\n#endif\n",
		"#if !defined(H)\n#define H\nx\n#endif\n",
		"#if !defined H\n#define H\nx\n#endif\n",
	} {
		code, diags := filtered(t, content)
		assert.Empty(t, diags)
		require.Len(t, code, 1)
		assert.False(t, code[0].Guarded, content)
	}

	// a define of another macro does not make the frame certain
	code, _ := filtered(t, "#ifndef H\n#define OTHER\nx\n#endif\n")
	require.Len(t, code, 1)
	assert.True(t, code[0].Guarded)
}

func TestConditionalDiagnostics(t *testing.T) {
	tests := []struct {
		name    string
		content string
		message string
	}{
		{"stray endif", "a\n#endif\n", "stray #endif"},
		{"else without if", "#else\n", "#else without #if"},
		{"elif without if", "#elif 1\n", "#elif without #if"},
		{"else after else", "#if 1\n#else\n#else\n#endif\n", "#else after #else"},
		{"unterminated", "#if 1\na\n", "unterminated #if"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := filtered(t, tt.content)
			require.Len(t, diags, 1)
			assert.Equal(t, ast.DiagDirective, diags[0].Kind)
			assert.Contains(t, diags[0].Message, tt.message)
		})
	}
}

func TestSplitDirective(t *testing.T) {
	name, rest := splitDirective("#  define FOO(a) /* c */ (a) // tail")
	assert.Equal(t, "define", name)
	assert.Equal(t, "FOO(a)   (a)", rest)

	macro, head, value := splitMacro("FOO(a, b) ((a) + (b))")
	assert.Equal(t, "FOO", macro)
	assert.Equal(t, "FOO(a, b)", head)
	assert.Equal(t, "((a) + (b))", value)
}
