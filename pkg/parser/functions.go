package parser

import (
	"strings"

	"cppdecl/pkg/ast"
	"cppdecl/pkg/token"
)

// complexityKeywords increase the cyclomatic complexity of a body
var complexityKeywords = map[string]bool{
	"case": true, "switch": true, "default": true, "if": true, "else": true,
	"return": true, "goto": true, "try": true, "catch": true, "throw": true,
	"while": true, "do": true, "for": true, "break": true, "continue": true,
}

// groupSkipIdents are followed by a parenthesized group that is never a
// parameter list
var groupSkipIdents = map[string]bool{
	"__attribute__": true, "__declspec": true, "alignas": true, "decltype": true,
	"sizeof": true, "alignof": true, "noexcept": true, "throw": true,
	"__asm__": true, "asm": true, "__typeof__": true, "typeof": true,
}

// declScan is the shape of one declaration found by scanDeclaration. All
// positions are token indices.
type declScan struct {
	start      int
	headerEnd  int // end of the declaration header, exclusive
	firstParen int // first parameter-like '(' at depth 0, or -1
	bodyStart  int // '{' of a function body, or -1
	bodyEnd    int // one past the closing '}'
	attributes []ast.Span
	terminated bool // ended with ';' or a body
}

// scanDeclaration consumes one declaration starting at the current position
// and up to its ';' or function body. Brace initializers, constructor
// initializer lists and attribute groups are skipped by balancing.
func (p *Parser) scanDeclaration() declScan {
	s := declScan{start: p.tokenCache.getCurrentPosition(), firstParen: -1, bodyStart: -1}
	sawAssign := false
	initList := -1

	for !p.tokenCache.isAtEnd() {
		t := p.tokenCache.peek()
		pos := p.tokenCache.getCurrentPosition()
		switch {
		case t.Is(";"):
			s.headerEnd = pos
			if initList >= 0 {
				s.headerEnd = initList
			}
			p.tokenCache.advance()
			s.terminated = true
			return s

		case t.Is("}"):
			s.headerEnd = pos
			return s

		case p.isAttributeStart():
			s.attributes = append(s.attributes, p.parseAttributes()...)

		case t.Is("operator"):
			p.skipOperatorName()

		case (t.Kind == token.Identifier || t.Kind == token.Keyword) && groupSkipIdents[t.Value] &&
			p.tokenCache.checkAhead(1, "("):
			p.tokenCache.advance()
			p.skipBalanced()

		case t.Is("("):
			if s.firstParen < 0 && !sawAssign && initList < 0 {
				s.firstParen = pos
			}
			p.skipBalanced()

		case t.Is("["):
			p.skipBalanced()

		case t.Is("{"):
			prev := p.tokenCache.previous()
			switch {
			case sawAssign || s.firstParen < 0:
				p.skipBalanced()
			case initList >= 0 && (prev.Kind == token.Identifier || prev.Is(">")):
				// member brace-initializer in a constructor initializer list
				p.skipBalanced()
			default:
				s.headerEnd = pos
				if initList >= 0 {
					s.headerEnd = initList
				}
				s.bodyStart = pos
				p.skipBalanced()
				s.bodyEnd = p.tokenCache.getCurrentPosition()
				s.terminated = true
				p.tokenCache.match(";")
				return s
			}

		case t.Is(":"):
			if s.firstParen >= 0 && !sawAssign && initList < 0 {
				initList = pos
			}
			p.tokenCache.advance()

		case t.Is("="):
			sawAssign = true
			p.tokenCache.advance()

		default:
			p.tokenCache.advance()
		}
	}
	s.headerEnd = p.tokenCache.getCurrentPosition()
	return s
}

// skipOperatorName consumes 'operator' and the operator it names
func (p *Parser) skipOperatorName() {
	p.tokenCache.advance() // consume 'operator'
	switch {
	case p.tokenCache.check("(") && p.tokenCache.checkAhead(1, ")"):
		p.tokenCache.advance()
		p.tokenCache.advance()
		return
	case p.tokenCache.check("[") && p.tokenCache.checkAhead(1, "]"):
		p.tokenCache.advance()
		p.tokenCache.advance()
		return
	}
	// symbolic, new/delete[] and conversion operators run up to the '('
	for !p.tokenCache.isAtEnd() && !p.tokenCache.check("(") && !p.tokenCache.check(";") &&
		!p.tokenCache.check("{") {
		if p.tokenCache.check("[") {
			p.skipBalanced()
			continue
		}
		p.tokenCache.advance()
	}
}

// parseFunctionOrVariable recognizes functions, methods, variables and
// anything else that ends in ';' or a function body
func (p *Parser) parseFunctionOrVariable(start int, tmpl *ast.Span) {
	s := p.scanDeclaration()
	header := p.tokenCache.slice(start, s.headerEnd)
	if len(header) == 0 {
		if !s.terminated {
			p.report(ast.DiagRecognition, p.tokenCache.peek().Pos, "unexpected '%s'", p.tokenCache.peek().Value)
			p.skipToNextEntity()
		}
		return
	}
	if !s.terminated {
		p.report(ast.DiagRecognition, p.tokenCache.peek().Pos, "expected ';' after declaration")
	}

	guarded := p.tokenCache.guardedIn(start, s.headerEnd)
	rng := p.tokenCache.getRangeFromPositions(start, p.tokenCache.getCurrentPosition()-1)
	signature := token.Text(header)

	if s.firstParen >= 0 {
		paren := s.firstParen - start
		if name, ok := functionName(header, paren); ok && !looksLikeConstructorCall(header, paren) {
			d := &ast.Declaration{
				Kind:       ast.KindFunction,
				Name:       name,
				Signature:  signature,
				Template:   tmpl,
				Attributes: s.attributes,
				Guarded:    guarded,
				Range:      rng,
			}
			if tmpl != nil {
				d.Kind = ast.KindTemplate
			}
			if s.bodyStart >= 0 {
				body := p.tokenCache.slice(s.bodyStart, s.bodyEnd)
				d.Body = ast.NewSpan(body)
				d.Metrics = bodyMetrics(body)
			}
			p.declareNamed(d)
			return
		}
	}

	declarators := splitDeclarators(header)
	declared := false
	for _, decl := range declarators {
		idx := declaratorName(decl)
		if idx < 0 {
			continue
		}
		d := &ast.Declaration{
			Kind:       ast.KindVariable,
			Name:       decl[idx].Value,
			Signature:  signature,
			Template:   tmpl,
			Attributes: s.attributes,
			Guarded:    guarded,
			Range:      rng,
		}
		if tmpl != nil {
			d.Kind = ast.KindTemplate
		}
		p.declare(d)
		declared = true
	}
	if !declared {
		p.declare(&ast.Declaration{
			Kind:      ast.KindOther,
			Signature: signature,
			Template:  tmpl,
			Guarded:   guarded,
			Range:     rng,
		})
	}
}

// declareNamed declares d, keeping operator names whole in the path
func (p *Parser) declareNamed(d *ast.Declaration) {
	if containsOperator(d.Name) {
		d.Path = append(p.table.CurrentPath(), d.Name)
	}
	p.declare(d)
}

func containsOperator(name string) bool {
	return strings.Contains(name, "operator")
}

// functionName extracts the possibly qualified name in front of the
// parameter list at index paren
func functionName(header []token.Token, paren int) (string, bool) {
	if paren <= 0 {
		return "", false
	}
	// operator names: the 'operator' keyword nearest before the '('
	end := paren
	begin := -1
	for i := paren - 1; i >= 0 && i >= paren-16; i-- {
		if header[i].Is("operator") {
			begin = i
			break
		}
		if header[i].Is(";") || header[i].Is("{") {
			break
		}
	}
	if begin < 0 {
		last := header[paren-1]
		switch {
		case last.Kind == token.Identifier:
			begin = paren - 1
		case last.Is(">"):
			// explicit specialization: name<args>(...)
			begin = matchAngleBack(header, paren-1)
			if begin <= 0 || header[begin-1].Kind != token.Identifier {
				return "", false
			}
			begin--
		default:
			return "", false
		}
		if begin > 0 && header[begin-1].Is("~") {
			begin--
		}
	}
	// qualifier: (IDENT [<...>] ::)*
	for begin >= 2 && header[begin-1].Is("::") {
		prev := begin - 2
		if header[prev].Is(">") {
			open := matchAngleBack(header, prev)
			if open <= 0 || header[open-1].Kind != token.Identifier {
				break
			}
			prev = open - 1
		}
		if header[prev].Kind != token.Identifier {
			break
		}
		begin = prev
	}
	if begin >= 1 && header[begin-1].Is("::") {
		begin--
	}
	return joinName(header[begin:end]), true
}

// matchAngleBack returns the index of the '<' matching the '>' at i
func matchAngleBack(header []token.Token, i int) int {
	depth := 0
	for j := i; j >= 0; j-- {
		switch {
		case header[j].Is(">"):
			depth++
		case header[j].Is(">>"):
			depth += 2
		case header[j].Is("<"):
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

// bodyMetrics measures a function body: the lines it spans and its
// cyclomatic complexity
func bodyMetrics(body []token.Token) *ast.Metrics {
	if len(body) == 0 {
		return nil
	}
	m := &ast.Metrics{
		Lines:      body[len(body)-1].Pos.Line - body[0].Pos.Line + 1,
		Complexity: 1,
	}
	for _, t := range body {
		if t.Kind == token.Keyword && complexityKeywords[t.Value] {
			m.Complexity++
		}
	}
	return m
}
