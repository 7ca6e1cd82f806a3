package parser

import (
	"cppdecl/pkg/ast"
	"cppdecl/pkg/token"
)

// parseTypedef handles typedef declarations. Every declarator names one
// alias; its underlying type is the declaration with the name removed.
func (p *Parser) parseTypedef() {
	start := p.tokenCache.getCurrentPosition()
	p.tokenCache.advance() // consume 'typedef'
	typeStart := p.tokenCache.getCurrentPosition()

	off := 0
	for p.tokenCache.checkAhead(off, "const") || p.tokenCache.checkAhead(off, "volatile") {
		off++
	}
	tag := p.tokenCache.peekAhead(off)
	if (tag.Is("struct") || tag.Is("class") || tag.Is("union") || tag.Is("enum")) && p.hasBodyAhead(off) {
		p.tokenCache.setPosition(typeStart + off)
		if tag.Is("enum") {
			p.parseEnumSpecifier(typeStart)
		} else {
			p.parseClassSpecifier(typeStart, nil)
		}
		base := p.tokenCache.slice(typeStart, p.tokenCache.getCurrentPosition())
		p.parseTypedefDeclarators(start, base)
		return
	}
	p.parseTypedefDeclarators(start, nil)
}

// hasBodyAhead reports whether the class-key at offset starts a definition
func (p *Parser) hasBodyAhead(offset int) bool {
	inBases := false
	for i := offset + 1; i < offset+256; i++ {
		t := p.tokenCache.peekAhead(i)
		switch {
		case t.Is("{"):
			return true
		case t.Kind == token.EOF, t.Is(";"), t.Is("("), t.Is(")"), t.Is("="), t.Is(","):
			if t.Is(",") && inBases {
				continue
			}
			return false
		case t.Is(":"):
			inBases = true
		case (t.Is("*") || t.Is("&")) && !inBases:
			return false
		}
	}
	return false
}

// parseTypedefDeclarators consumes the declarator list up to ';'. base is
// the already consumed type specifier, if any.
func (p *Parser) parseTypedefDeclarators(start int, base []token.Token) {
	declStart := p.tokenCache.getCurrentPosition()
	s := p.scanDeclaration()
	if !s.terminated {
		p.report(ast.DiagRecognition, p.tokenCache.peek().Pos, "expected ';' after typedef")
	}
	toks := p.tokenCache.slice(declStart, s.headerEnd)
	guarded := p.tokenCache.guardedIn(start, s.headerEnd)
	rng := p.tokenCache.getRangeFromPositions(start, p.tokenCache.getCurrentPosition()-1)

	named := false
	for i, decl := range splitDeclarators(toks) {
		idx := declaratorName(decl)
		if idx < 0 {
			continue
		}
		if i == 0 && base == nil {
			// later declarators share the type written before the first one
			base = decl[:declaratorStart(decl, idx)]
			decl = decl[len(base):]
			idx -= len(base)
		}
		underlying := make([]token.Token, 0, len(base)+len(decl))
		underlying = append(underlying, base...)
		underlying = append(underlying, decl[:idx]...)
		underlying = append(underlying, decl[idx+1:]...)
		p.declare(&ast.Declaration{
			Kind:       ast.KindTypedef,
			Name:       decl[idx].Value,
			Signature:  token.Text(p.tokenCache.slice(start, s.headerEnd)),
			Underlying: ast.NewSpan(underlying),
			Guarded:    guarded,
			Range:      rng,
		})
		named = true
	}
	if !named {
		p.report(ast.DiagRecognition, rng.Start, "typedef declares no name")
	}
}

// declaratorStart returns the index where the declarator holding the name
// at idx begins, skipping back over pointer operators and groups
func declaratorStart(decl []token.Token, idx int) int {
	j := idx
	for j > 0 {
		t := decl[j-1]
		if t.Is("*") || t.Is("&") || t.Is("&&") || t.Is("(") || t.Is("const") || t.Is("volatile") {
			j--
			continue
		}
		// member pointer group C::*
		if t.Is("::") && j >= 2 && decl[j-2].Kind == token.Identifier && j < len(decl) && decl[j].Is("*") {
			j -= 2
			continue
		}
		break
	}
	// a type needs at least one token
	if j == 0 && idx > 0 {
		j = 1
	}
	return j
}

// parseUsing handles using-directives, using-declarations and alias
// declarations. tmpl is set for alias templates.
func (p *Parser) parseUsing(start int, tmpl *ast.Span) {
	p.tokenCache.advance() // consume 'using'

	switch {
	case p.tokenCache.check("namespace"):
		p.tokenCache.advance()
		name := p.parseQualifiedName()
		if name.empty() {
			p.report(ast.DiagRecognition, p.tokenCache.peek().Pos, "expected namespace name after 'using namespace'")
			p.skipToNextEntity()
			return
		}
		p.finishUsing(start, &ast.Declaration{
			Kind:   ast.KindUsingDirective,
			Name:   name.String(),
			Target: name.String(),
			Path:   append(p.table.CurrentPath(), name.String()),
		})
		if ns, ok := p.table.ResolveQualifier(name.String()); ok {
			p.table.AddUsing(ns)
		} else {
			p.logger.Debug().Str("namespace", name.String()).Msg("using-directive names an unknown namespace")
		}

	case p.tokenCache.peek().Kind == token.Identifier && p.isAliasDeclaration():
		name := p.tokenCache.advance()
		attrs := p.parseAttributes()
		p.tokenCache.advance() // consume '='
		typeStart := p.tokenCache.getCurrentPosition()
		s := p.scanDeclaration()
		if !s.terminated {
			p.report(ast.DiagRecognition, p.tokenCache.peek().Pos, "expected ';' after alias declaration")
		}
		d := &ast.Declaration{
			Kind:       ast.KindTypedef,
			Name:       name.Value,
			Template:   tmpl,
			Attributes: attrs,
			Underlying: ast.NewSpan(p.tokenCache.slice(typeStart, s.headerEnd)),
			Signature:  token.Text(p.tokenCache.slice(start, s.headerEnd)),
			Guarded:    p.tokenCache.guardedIn(start, s.headerEnd),
			Range:      p.tokenCache.getRangeFromPositions(start, p.tokenCache.getCurrentPosition()-1),
		}
		if tmpl != nil {
			d.Kind = ast.KindTemplate
		}
		p.declare(d)

	default:
		p.tokenCache.match("enum", "typename")
		nameStart := p.tokenCache.getCurrentPosition()
		name := p.parseQualifiedName()
		target := name.String()
		member := ""
		if !name.empty() {
			member = name.last().name
		}
		if p.tokenCache.check("operator") || (p.tokenCache.check("~") && p.tokenCache.peekAhead(1).Kind == token.Identifier) {
			// using Base::operator=; using Base::~Base;
			opStart := p.tokenCache.getCurrentPosition()
			if p.tokenCache.check("operator") {
				p.skipOperatorName()
			} else {
				p.tokenCache.advance()
				p.tokenCache.advance()
			}
			member = joinName(p.tokenCache.slice(opStart, p.tokenCache.getCurrentPosition()))
			target = joinName(p.tokenCache.slice(nameStart, p.tokenCache.getCurrentPosition()))
		}
		if member == "" {
			t := p.tokenCache.peek()
			p.report(ast.DiagRecognition, t.Pos, "expected name in using-declaration, got '%s'", t.Value)
			p.skipToNextEntity()
			return
		}
		p.tokenCache.match("...")
		p.finishUsing(start, &ast.Declaration{
			Kind:   ast.KindUsingDeclaration,
			Name:   member,
			Target: target,
			Path:   append(p.table.CurrentPath(), member),
		})
	}
}

// isAliasDeclaration reports whether "using NAME [attrs] =" follows
func (p *Parser) isAliasDeclaration() bool {
	i := 1
	for p.tokenCache.checkAhead(i, "[") && p.tokenCache.checkAhead(i+1, "[") {
		i = p.balancedEndAhead(i)
	}
	return p.tokenCache.checkAhead(i, "=")
}

// finishUsing consumes the rest of a using statement and records d
func (p *Parser) finishUsing(start int, d *ast.Declaration) {
	end := p.tokenCache.getCurrentPosition()
	if !p.tokenCache.check(";") {
		t := p.tokenCache.peek()
		p.report(ast.DiagRecognition, t.Pos, "expected ';' after using, got '%s'", t.Value)
		p.skipToNextEntity()
	} else {
		p.tokenCache.advance()
	}
	d.Signature = token.Text(p.tokenCache.slice(start, end))
	d.Guarded = p.tokenCache.guardedIn(start, end)
	d.Range = p.tokenCache.getRangeFromPositions(start, end)
	p.declare(d)
}
