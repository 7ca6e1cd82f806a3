package parser

import (
	"cppdecl/pkg/ast"
	"cppdecl/pkg/token"
)

// qtSections are the Qt keywords that may follow or replace an access
// specifier in a class body
var qtSections = map[string]bool{
	"slots": true, "Q_SLOTS": true, "signals": true, "Q_SIGNALS": true,
}

// isAccessSpecifier reports whether the current tokens form an access
// specifier label
func (p *Parser) isAccessSpecifier() bool {
	t := p.tokenCache.peek()
	switch {
	case t.Is("public") || t.Is("protected") || t.Is("private"):
		if p.tokenCache.checkAhead(1, ":") {
			return true
		}
		next := p.tokenCache.peekAhead(1)
		return next.Kind == token.Identifier && qtSections[next.Value] && p.tokenCache.checkAhead(2, ":")
	case t.Kind == token.Identifier && qtSections[t.Value]:
		return p.isInsideClass() && p.tokenCache.checkAhead(1, ":")
	}
	return false
}

// parseAccessSpecifier handles access specifier labels
func (p *Parser) parseAccessSpecifier() {
	accessToken := p.tokenCache.advance()
	if p.tokenCache.peek().Kind == token.Identifier {
		p.tokenCache.advance() // Qt slots
	}
	p.tokenCache.match(":")

	var accessLevel ast.AccessLevel
	switch accessToken.Value {
	case "public":
		accessLevel = ast.AccessPublic
	case "private":
		accessLevel = ast.AccessPrivate
	case "protected":
		accessLevel = ast.AccessProtected
	default:
		// Qt signals are public members
		accessLevel = ast.AccessPublic
	}

	if !p.isInsideClass() {
		p.report(ast.DiagRecognition, accessToken.Pos, "access specifier '%s' outside of a class", accessToken.Value)
		return
	}
	if len(p.accessStack) > 0 {
		p.accessStack[len(p.accessStack)-1] = accessLevel
	}
}
