package parser

import (
	"cppdecl/pkg/ast"
)

// getCurrentAccessLevel returns the current access level
func (p *Parser) getCurrentAccessLevel() ast.AccessLevel {
	if len(p.accessStack) == 0 {
		return ast.AccessUnknown
	}
	return p.accessStack[len(p.accessStack)-1]
}

// isInsideClass returns true if currently inside a class, struct or union
func (p *Parser) isInsideClass() bool {
	switch p.table.Current().Kind {
	case ast.ScopeClass, ast.ScopeStruct, ast.ScopeUnion, ast.ScopeAnonymousClass:
		return true
	}
	return false
}

// declare adds a declaration to the current scope, attaching the pending doc
// comment and the current access level
func (p *Parser) declare(d *ast.Declaration) *ast.Declaration {
	p.attachDoc(d)
	if d.Access == ast.AccessUnknown {
		d.Access = p.getCurrentAccessLevel()
	}
	return p.table.Declare(d)
}

// enterScope pushes a scope with its default access level
func (p *Parser) enterScope(s *ast.ScopeNode, access ast.AccessLevel) {
	p.table.Push(s)
	p.accessStack = append(p.accessStack, access)
}

// exitScope exits the current scope
func (p *Parser) exitScope() {
	p.table.Pop()
	if len(p.accessStack) > 1 {
		p.accessStack = p.accessStack[:len(p.accessStack)-1]
	}
}

// defaultAccess returns the initial access level of a class body
func defaultAccess(tag string) ast.AccessLevel {
	if tag == "class" {
		return ast.AccessPrivate
	}
	return ast.AccessPublic
}
