package parser

import (
	"strings"
	"unicode"

	"cppdecl/pkg/ast"
	"cppdecl/pkg/token"
)

// nameSegment is one segment of a qualified name with its template arguments
type nameSegment struct {
	name    string
	args    []token.Token
	hasArgs bool
}

// text renders the segment with its template arguments
func (s nameSegment) text() string {
	if !s.hasArgs {
		return s.name
	}
	return s.name + "<" + token.Text(s.args) + ">"
}

// qualifiedName is a parsed, possibly qualified, name
type qualifiedName struct {
	global   bool
	segments []nameSegment
}

func (q qualifiedName) empty() bool {
	return len(q.segments) == 0
}

// last returns the final segment
func (q qualifiedName) last() nameSegment {
	return q.segments[len(q.segments)-1]
}

// qualifier renders every segment but the last, template arguments dropped,
// the form the symbol table resolves
func (q qualifiedName) qualifier() string {
	var parts []string
	for _, s := range q.segments[:len(q.segments)-1] {
		parts = append(parts, s.name)
	}
	out := strings.Join(parts, "::")
	if q.global {
		out = "::" + out
	}
	return out
}

// qualifierSegments returns the names of every segment but the last
func (q qualifiedName) qualifierSegments() []string {
	var parts []string
	for _, s := range q.segments[:len(q.segments)-1] {
		parts = append(parts, s.name)
	}
	return parts
}

// String renders the whole name as written
func (q qualifiedName) String() string {
	parts := make([]string, len(q.segments))
	for i, s := range q.segments {
		parts[i] = s.text()
	}
	out := strings.Join(parts, "::")
	if q.global {
		out = "::" + out
	}
	return out
}

// parseQualifiedName parses [::] IDENT [<ARGS>] (:: IDENT [<ARGS>])*. Angle
// brackets after a name are always template brackets.
func (p *Parser) parseQualifiedName() qualifiedName {
	var q qualifiedName
	if p.tokenCache.check("::") && p.tokenCache.peekAhead(1).Kind == token.Identifier {
		p.tokenCache.advance()
		q.global = true
	}
	for {
		if p.tokenCache.check("template") && p.tokenCache.peekAhead(1).Kind == token.Identifier {
			p.tokenCache.advance()
		}
		t := p.tokenCache.peek()
		if t.Kind != token.Identifier {
			break
		}
		p.tokenCache.advance()
		seg := nameSegment{name: t.Value}
		if p.tokenCache.check("<") {
			seg.args, _ = p.parseAngleArgs()
			seg.hasArgs = true
		}
		q.segments = append(q.segments, seg)
		if !p.tokenCache.check("::") {
			break
		}
		next := p.tokenCache.peekAhead(1)
		if next.Kind != token.Identifier && !next.Is("template") {
			break
		}
		p.tokenCache.advance()
	}
	return q
}

// parseAngleArgs consumes a balanced <...> list and returns the tokens
// between the brackets. ">>" closes two levels. Parenthesized groups are
// skipped whole so comparisons inside them do not count.
func (p *Parser) parseAngleArgs() ([]token.Token, bool) {
	if !p.tokenCache.match("<") {
		return nil, false
	}
	var inner []token.Token
	depth := 1
	for !p.tokenCache.isAtEnd() {
		t := p.tokenCache.peek()
		switch {
		case t.Is("(") || t.Is("["):
			inner = append(inner, p.skipBalanced()...)
			continue
		case t.Is(";") || t.Is("{") || t.Is("}"):
			return inner, false
		case t.Is("<"):
			depth++
		case t.Is(">"):
			depth--
		case t.Is(">>"):
			if depth == 2 {
				// the first '>' closes a nested list, the second ours
				p.tokenCache.advance()
				inner = append(inner, token.Token{Kind: token.Punct, Value: ">", Pos: t.Pos, Guarded: t.Guarded})
				return inner, true
			}
			depth -= 2
		}
		p.tokenCache.advance()
		if depth <= 0 {
			return inner, true
		}
		inner = append(inner, t)
	}
	return inner, false
}

// closerFor returns the closing bracket of an opening one
func closerFor(open string) string {
	switch open {
	case "(":
		return ")"
	case "[":
		return "]"
	case "{":
		return "}"
	case "<":
		return ">"
	}
	return ""
}

// skipBalanced consumes the group opened by the current token and returns
// its tokens, delimiters included
func (p *Parser) skipBalanced() []token.Token {
	start := p.tokenCache.getCurrentPosition()
	open := p.tokenCache.peek().Value
	closer := closerFor(open)
	if closer == "" {
		p.tokenCache.advance()
		return p.tokenCache.slice(start, p.tokenCache.getCurrentPosition())
	}
	depth := 0
	for !p.tokenCache.isAtEnd() {
		t := p.tokenCache.advance()
		if t.Is(open) {
			depth++
		} else if t.Is(closer) {
			depth--
			if depth == 0 {
				break
			}
		}
	}
	return p.tokenCache.slice(start, p.tokenCache.getCurrentPosition())
}

// balancedEndAhead returns the offset just past the group that opens at
// offset, without consuming anything
func (p *Parser) balancedEndAhead(offset int) int {
	open := p.tokenCache.peekAhead(offset).Value
	closer := closerFor(open)
	depth := 0
	for i := offset; ; i++ {
		t := p.tokenCache.peekAhead(i)
		if t.Kind == token.EOF {
			return i
		}
		if t.Is(open) {
			depth++
		} else if t.Is(closer) {
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
}

// isAttributeStart reports whether the current token opens an attribute
func (p *Parser) isAttributeStart() bool {
	t := p.tokenCache.peek()
	switch {
	case t.Is("[") && p.tokenCache.checkAhead(1, "["):
		return true
	case t.Is("alignas") && p.tokenCache.checkAhead(1, "("):
		return true
	case t.Kind == token.Identifier && (t.Value == "__attribute__" || t.Value == "__declspec") &&
		p.tokenCache.checkAhead(1, "("):
		return true
	}
	return false
}

// parseAttributes consumes [[...]], __attribute__((...)), __declspec(...)
// and alignas(...) and returns one span per attribute
func (p *Parser) parseAttributes() []ast.Span {
	var spans []ast.Span
	for p.isAttributeStart() {
		start := p.tokenCache.getCurrentPosition()
		if !p.tokenCache.check("[") {
			p.tokenCache.advance()
		}
		p.skipBalanced()
		if s := ast.NewSpan(p.tokenCache.slice(start, p.tokenCache.getCurrentPosition())); s != nil {
			spans = append(spans, *s)
		}
	}
	return spans
}

// specifierKeywords may precede a class or enum keyword at statement start
var specifierKeywords = map[string]bool{
	"static": true, "const": true, "constexpr": true, "inline": true,
	"extern": true, "volatile": true, "thread_local": true, "mutable": true,
	"export": true, "register": true, "typename": true,
}

// leadingSpecifiers looks for a class-key or enum after storage keywords,
// attributes and macro identifiers at the start of a statement. It returns
// the number of tokens before the keyword and the keyword, or "" when the
// statement does not have that shape.
func (p *Parser) leadingSpecifiers() (int, string) {
	n := 0
	for n < 32 {
		t := p.tokenCache.peekAhead(n)
		switch {
		case t.Is("class") || t.Is("struct") || t.Is("union") || t.Is("enum"):
			if n == 0 {
				return 0, ""
			}
			return n, t.Value
		case t.Kind == token.Keyword && specifierKeywords[t.Value]:
			n++
		case t.Is("[") && p.tokenCache.checkAhead(n+1, "["):
			n = p.balancedEndAhead(n)
		case t.Is("alignas") && p.tokenCache.checkAhead(n+1, "("):
			n = p.balancedEndAhead(n + 1)
		case t.Kind == token.Identifier:
			if p.tokenCache.checkAhead(n+1, "(") {
				n = p.balancedEndAhead(n + 1)
			} else {
				n++
			}
			next := p.tokenCache.peekAhead(n)
			if next.Kind != token.Identifier && next.Kind != token.Keyword && !next.Is("[") {
				return 0, ""
			}
		default:
			return 0, ""
		}
	}
	return 0, ""
}

// isMacroName reports whether s looks like a macro: upper case letters,
// digits and underscores with at least one letter
func isMacroName(s string) bool {
	if len(s) < 2 || token.IsKeyword(s) {
		return false
	}
	letter := false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			letter = true
		case unicode.IsDigit(r) || r == '_':
		default:
			return false
		}
	}
	return letter
}

// isMacroStatement reports whether the statement is a bare macro invocation:
// an upper case identifier with an optional argument list, followed by a
// token on a later line
func (p *Parser) isMacroStatement() bool {
	t := p.tokenCache.peek()
	if t.Kind != token.Identifier || !isMacroName(t.Value) {
		return false
	}
	end := 1
	if p.tokenCache.checkAhead(1, "(") {
		end = p.balancedEndAhead(1)
	}
	last := p.tokenCache.peekAhead(end - 1)
	next := p.tokenCache.peekAhead(end)
	if next.Kind == token.EOF || next.Is(";") || next.Is("}") {
		return true
	}
	if next.Is("{") {
		return false
	}
	return next.Pos.Line > last.Pos.Line
}

// parseMacroStatement records a bare macro invocation
func (p *Parser) parseMacroStatement() {
	start := p.tokenCache.getCurrentPosition()
	name := p.tokenCache.advance()
	if p.tokenCache.check("(") {
		p.skipBalanced()
	}
	end := p.tokenCache.getCurrentPosition()
	p.tokenCache.match(";")
	p.declare(&ast.Declaration{
		Kind:      ast.KindOther,
		Name:      name.Value,
		Signature: token.Text(p.tokenCache.slice(start, end)),
		Guarded:   p.tokenCache.guardedIn(start, end),
		Range:     p.tokenCache.getRangeFromPositions(start, end-1),
	})
}

// parseOther records a statement the recognizer does not decompose
func (p *Parser) parseOther(start int, name string) {
	p.skipToNextEntity()
	end := p.tokenCache.getCurrentPosition()
	p.declare(&ast.Declaration{
		Kind:      ast.KindOther,
		Name:      name,
		Signature: token.Text(trimSemicolon(p.tokenCache.slice(start, end))),
		Guarded:   p.tokenCache.guardedIn(start, end),
		Range:     p.tokenCache.getRangeFromPositions(start, end-1),
	})
}

func trimSemicolon(tokens []token.Token) []token.Token {
	if n := len(tokens); n > 0 && tokens[n-1].Is(";") {
		return tokens[:n-1]
	}
	return tokens
}

// joinName renders name tokens the way they are written, without spaces
// around :: and ~ and with spaces between adjacent words
func joinName(tokens []token.Token) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 && isWord(tokens[i-1]) && isWord(t) {
			b.WriteByte(' ')
		}
		b.WriteString(t.Value)
	}
	return b.String()
}

func isWord(t token.Token) bool {
	return t.Kind == token.Identifier || t.Kind == token.Keyword || t.Kind == token.Number
}
