package parser

import (
	"strings"

	"cppdecl/pkg/ast"
	"cppdecl/pkg/token"
)

// parsePreprocessor records #include and #define directives. Conditional
// directives never reach the recognizer; the rest carry no declarations.
func (p *Parser) parsePreprocessor(tok token.Token) {
	name, rest := splitDirective(tok.Value)
	switch name {
	case "include", "include_next", "import":
		p.parseInclude(tok, rest)
	case "define":
		p.parseDefine(tok, rest)
	}
}

// parseInclude handles #include directives
func (p *Parser) parseInclude(tok token.Token, rest string) {
	var path string
	var system bool
	switch {
	case strings.HasPrefix(rest, "<"):
		end := strings.IndexByte(rest, '>')
		if end < 0 {
			p.report(ast.DiagDirective, tok.Pos, "malformed #include %s", rest)
			return
		}
		path, system = rest[1:end], true
	case strings.HasPrefix(rest, "\""):
		end := strings.IndexByte(rest[1:], '"')
		if end < 0 {
			p.report(ast.DiagDirective, tok.Pos, "malformed #include %s", rest)
			return
		}
		path = rest[1 : end+1]
	default:
		// computed include, e.g. #include MACRO_HEADER
		path = rest
	}
	if path == "" {
		p.report(ast.DiagDirective, tok.Pos, "empty #include")
		return
	}
	p.declareDirective(&ast.Declaration{
		Kind:      ast.KindInclude,
		Name:      path,
		Target:    path,
		System:    system,
		Signature: "#include " + rest,
		Guarded:   tok.Guarded,
		Range:     ast.Range{Start: tok.Pos, End: tok.Pos},
	})
}

// parseDefine handles #define directives
func (p *Parser) parseDefine(tok token.Token, rest string) {
	macro, head, value := splitMacro(rest)
	if macro == "" {
		p.report(ast.DiagDirective, tok.Pos, "expected identifier after #define")
		return
	}
	p.declareDirective(&ast.Declaration{
		Kind:      ast.KindDefine,
		Name:      macro,
		Value:     strings.Join(strings.Fields(value), " "),
		Signature: "#define " + head,
		Guarded:   tok.Guarded,
		Range:     ast.Range{Start: tok.Pos, End: tok.Pos},
	})
}

// declareDirective records a directive in the current scope under its own
// unqualified name
func (p *Parser) declareDirective(d *ast.Declaration) {
	d.Path = []string{d.Name}
	d.FullName = d.Name
	p.table.Declare(d)
}
