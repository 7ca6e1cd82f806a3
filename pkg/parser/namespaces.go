package parser

import (
	"cppdecl/pkg/ast"
	"cppdecl/pkg/token"
)

// parseNamespace handles namespace definitions and namespace aliases
func (p *Parser) parseNamespace() {
	start := p.tokenCache.getCurrentPosition()
	p.tokenCache.advance() // consume 'namespace'
	p.parseAttributes()

	// namespace alias: namespace X = A::B;
	if p.tokenCache.peek().Kind == token.Identifier && p.tokenCache.checkAhead(1, "=") {
		p.parseNamespaceAlias(start)
		return
	}

	// C++17 nested namespace definition: namespace a::inline b::c { }
	var names []token.Token
	for p.tokenCache.peek().Kind == token.Identifier {
		names = append(names, p.tokenCache.advance())
		if !p.tokenCache.check("::") {
			break
		}
		p.tokenCache.advance()
		p.tokenCache.match("inline")
	}
	p.parseAttributes()

	if !p.tokenCache.check("{") {
		p.expect("{", "after namespace name")
		p.skipToNextEntity()
		return
	}
	headerEnd := p.tokenCache.getCurrentPosition()
	guarded := p.tokenCache.guardedIn(start, headerEnd)
	p.tokenCache.advance() // consume '{'

	opened := 0
	if len(names) == 0 {
		decl := p.newNamespaceDecl(start, headerEnd, "", guarded)
		scope, reopened := p.table.OpenAnonymousNamespace(decl)
		p.afterOpen(decl, reopened)
		p.enterScope(scope, ast.AccessUnknown)
		opened++
	}
	for _, name := range names {
		decl := p.newNamespaceDecl(start, headerEnd, name.Value, guarded)
		scope, reopened := p.table.OpenNamespace(name.Value, decl)
		p.afterOpen(decl, reopened)
		p.enterScope(scope, ast.AccessUnknown)
		opened++
	}

	p.parseDeclarations(true)
	p.expect("}", "to close namespace")

	for i := 0; i < opened; i++ {
		p.exitScope()
	}
}

func (p *Parser) newNamespaceDecl(start, headerEnd int, name string, guarded bool) *ast.Declaration {
	return &ast.Declaration{
		Kind:      ast.KindNamespace,
		Name:      name,
		Signature: token.Text(p.tokenCache.slice(start, headerEnd)),
		Guarded:   guarded,
		Range:     p.tokenCache.getRangeFromPositions(start, headerEnd),
	}
}

// afterOpen attaches the doc comment of a newly created namespace. A
// reopened namespace keeps its first declaration.
func (p *Parser) afterOpen(decl *ast.Declaration, reopened bool) {
	if reopened {
		return
	}
	p.attachDoc(decl)
	p.logger.Debug().Str("namespace", decl.FullName).Msg("namespace opened")
}

// parseNamespaceAlias handles namespace X = A::B;
func (p *Parser) parseNamespaceAlias(start int) {
	name := p.tokenCache.advance()
	p.tokenCache.advance() // consume '='
	target := p.parseQualifiedName()
	end := p.tokenCache.getCurrentPosition()
	if target.empty() {
		p.report(ast.DiagRecognition, p.tokenCache.peek().Pos, "expected namespace name after '='")
		p.skipToNextEntity()
		return
	}
	p.expect(";", "after namespace alias")

	if scope, ok := p.table.ResolveQualifier(target.String()); ok {
		p.table.AddAlias(name.Value, scope)
	}
	p.declare(&ast.Declaration{
		Kind:      ast.KindNamespaceAlias,
		Name:      name.Value,
		Target:    target.String(),
		Signature: token.Text(p.tokenCache.slice(start, end)),
		Guarded:   p.tokenCache.guardedIn(start, end),
		Range:     p.tokenCache.getRangeFromPositions(start, end-1),
	})
}
