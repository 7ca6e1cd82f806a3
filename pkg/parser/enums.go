package parser

import (
	"cppdecl/pkg/ast"
	"cppdecl/pkg/token"
)

// parseEnum handles enum declarations. The current token is 'enum'; an
// elaborated "enum E e;" is re-read as a variable.
func (p *Parser) parseEnum(start int, tmpl *ast.Span) {
	d, ok := p.parseEnumSpecifier(start)
	if !ok {
		p.tokenCache.setPosition(start)
		p.parseFunctionOrVariable(start, tmpl)
		return
	}
	if d.Kind == ast.KindEnumForward {
		p.tokenCache.match(";")
		return
	}
	p.parseTrailingDeclarators(start, d)
}

// parseEnumSpecifier parses enum [class|struct] [attrs] [NAME] [: TYPE]
// [{ enumerators }]. A definition leaves the cursor after '}', a forward
// declaration before ';'.
func (p *Parser) parseEnumSpecifier(start int) (*ast.Declaration, bool) {
	p.tokenCache.advance() // consume 'enum'
	tag := "enum"
	if p.tokenCache.check("class") || p.tokenCache.check("struct") {
		tag += " " + p.tokenCache.advance().Value
	}
	attrs := p.parseAttributes()
	namePos := p.tokenCache.peek().Pos
	name := p.parseQualifiedName()
	attrs = append(attrs, p.parseAttributes()...)

	var underlying *ast.Span
	if p.tokenCache.check(":") {
		p.tokenCache.advance()
		typeStart := p.tokenCache.getCurrentPosition()
		for !p.tokenCache.isAtEnd() && !p.tokenCache.check("{") && !p.tokenCache.check(";") {
			if p.tokenCache.check("(") {
				p.skipBalanced()
				continue
			}
			p.tokenCache.advance()
		}
		underlying = ast.NewSpan(p.tokenCache.slice(typeStart, p.tokenCache.getCurrentPosition()))
	}

	isDef := p.tokenCache.check("{")
	if !isDef && (!p.tokenCache.check(";") || name.empty()) {
		return nil, false
	}
	headerEnd := p.tokenCache.getCurrentPosition()

	d := &ast.Declaration{
		Kind:       ast.KindEnumForward,
		Tag:        tag,
		Attributes: attrs,
		Underlying: underlying,
		Signature:  token.Text(p.tokenCache.slice(start, headerEnd)),
		Guarded:    p.tokenCache.guardedIn(start, headerEnd+1),
	}
	owner := p.table.Current()
	if !name.empty() {
		d.Name = name.last().name
		if len(name.segments) > 1 {
			if s, ok := p.table.ResolveQualifier(name.qualifier()); ok {
				owner = s
			} else {
				p.report(ast.DiagRecognition, namePos, "unresolved qualifier '%s' in %s %s", name.qualifier(), tag, name.String())
				d.UnresolvedQualifier = true
				d.Path = append(append(owner.Path(), name.qualifierSegments()...), d.Name)
			}
		}
	}

	if isDef {
		d.Kind = ast.KindEnum
		d.Enumerators = p.parseEnumerators()
	}
	d.Range = p.tokenCache.getRangeFromPositions(start, p.tokenCache.getCurrentPosition()-1)

	p.attachDoc(d)
	if owner == p.table.Current() {
		d.Access = p.getCurrentAccessLevel()
	}
	if d.Name == "" && d.Path == nil {
		d.Path = owner.Path()
	}
	p.table.DeclareIn(owner, d)
	return d, true
}

// parseEnumerators consumes { A, B = 2, C [[deprecated]] } and returns the
// enumerator names
func (p *Parser) parseEnumerators() []string {
	p.tokenCache.advance() // consume '{'
	var names []string
	for !p.tokenCache.isAtEnd() && !p.tokenCache.check("}") {
		p.parseAttributes()
		t := p.tokenCache.peek()
		if t.Kind == token.Identifier {
			names = append(names, t.Value)
			p.tokenCache.advance()
		} else if !t.Is(",") {
			p.report(ast.DiagRecognition, t.Pos, "unexpected '%s' in enumerator list", t.Value)
		}
		// skip the attributes and initializer up to the next enumerator
		for !p.tokenCache.isAtEnd() && !p.tokenCache.check(",") && !p.tokenCache.check("}") {
			if p.tokenCache.check("(") || p.tokenCache.check("[") || p.tokenCache.check("{") {
				p.skipBalanced()
				continue
			}
			if p.tokenCache.check(";") {
				// a missing '}'; leave the rest to the caller
				p.report(ast.DiagRecognition, p.tokenCache.peek().Pos, "expected '}' to close enumerator list")
				return names
			}
			p.tokenCache.advance()
		}
		p.tokenCache.match(",")
	}
	p.expect("}", "to close enumerator list")
	return names
}
