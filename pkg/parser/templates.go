package parser

import (
	"cppdecl/pkg/ast"
	"cppdecl/pkg/token"
)

// parseTemplate handles template declarations, specializations and explicit
// instantiations. The template parameter list is kept as an opaque span.
func (p *Parser) parseTemplate() {
	start := p.tokenCache.getCurrentPosition()
	p.tokenCache.advance() // consume 'template'

	if !p.tokenCache.check("<") {
		p.parseExplicitInstantiation(start)
		return
	}

	var params []token.Token
	var rng ast.Range
	for {
		open := p.tokenCache.peek().Pos
		args, ok := p.parseAngleArgs()
		if !ok {
			p.report(ast.DiagRecognition, open, "unterminated template parameter list")
			p.skipToNextEntity()
			return
		}
		if len(params) == 0 {
			rng.Start = open
		}
		rng.End = p.tokenCache.previous().Pos
		params = append(params, args...)
		// member templates of class templates: template<class T> template<class U>
		if !p.tokenCache.check("template") || !p.tokenCache.checkAhead(1, "<") {
			break
		}
		p.tokenCache.advance()
	}

	tmpl := ast.NewSpan(params)
	if tmpl == nil {
		// template<> introduces an explicit specialization
		tmpl = &ast.Span{Range: rng}
	}
	p.parseTemplatedEntity(start, tmpl)
}

// parseTemplatedEntity parses the entity that follows a template header
func (p *Parser) parseTemplatedEntity(start int, tmpl *ast.Span) {
	if p.tokenCache.isAtEnd() {
		p.report(ast.DiagRecognition, p.tokenCache.peek().Pos, "expected declaration after template header")
		return
	}
	tok := p.tokenCache.peek()
	switch {
	case tok.Is("class"), tok.Is("struct"), tok.Is("union"):
		p.parseClass(start, tmpl)
	case tok.Is("using"):
		p.parseUsing(start, tmpl)
	case tok.Is("friend"):
		p.parseFriend(start, tmpl)
	case tok.Kind == token.Identifier && tok.Value == "concept":
		p.tokenCache.advance()
		p.parseOther(start, p.tokenCache.peek().Value)
	default:
		if n, keyword := p.leadingSpecifiers(); keyword != "" && keyword != "enum" {
			p.tokenCache.setPosition(p.tokenCache.getCurrentPosition() + n)
			p.parseClass(start, tmpl)
			return
		}
		p.parseFunctionOrVariable(start, tmpl)
	}
}

// parseExplicitInstantiation handles "template class X<int>;" and
// "template void f<int>(int);"
func (p *Parser) parseExplicitInstantiation(start int) {
	d := &ast.Declaration{Kind: ast.KindTemplate}
	if p.tokenCache.match("class", "struct", "union") {
		name := p.parseQualifiedName()
		if !name.empty() {
			d.Name = name.last().text()
		}
		p.skipToNextEntity()
	} else {
		declStart := p.tokenCache.getCurrentPosition()
		s := p.scanDeclaration()
		header := p.tokenCache.slice(declStart, s.headerEnd)
		if s.firstParen >= 0 {
			d.Name, _ = functionName(header, s.firstParen-declStart)
		}
		if d.Name == "" {
			if idx := declaratorName(header); idx >= 0 {
				d.Name = header[idx].Value
			}
		}
	}
	end := p.tokenCache.getCurrentPosition()
	d.Signature = token.Text(trimSemicolon(p.tokenCache.slice(start, end)))
	d.Guarded = p.tokenCache.guardedIn(start, end)
	d.Range = p.tokenCache.getRangeFromPositions(start, end-1)
	d.Path = append(p.table.CurrentPath(), d.Name)
	p.declare(d)
}
