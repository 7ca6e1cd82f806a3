package parser

import (
	"cppdecl/pkg/ast"
	"cppdecl/pkg/token"
)

// contextual keywords that may follow a class name
var classVirtSpecifiers = map[string]bool{"final": true, "sealed": true, "abstract": true}

// parseClass handles class, struct and union declarations and definitions.
// The current token is the class-key; start is the first token of the
// statement. When the class-key turns out to be an elaborated type
// specifier the statement is re-read as a function or variable.
func (p *Parser) parseClass(start int, tmpl *ast.Span) {
	d, ok := p.parseClassSpecifier(start, tmpl)
	if !ok {
		p.tokenCache.setPosition(start)
		p.parseFunctionOrVariable(start, tmpl)
		return
	}
	if d.Kind == ast.KindForward {
		p.tokenCache.match(";")
		return
	}
	p.parseTrailingDeclarators(start, d)
}

// parseClassSpecifier parses class-key attributes name bases and body. For a
// forward declaration the terminating ';' is left unconsumed; for a
// definition the cursor ends after the closing brace. It reports false,
// without rewinding, when no class is declared.
func (p *Parser) parseClassSpecifier(start int, tmpl *ast.Span) (*ast.Declaration, bool) {
	keyIndex := p.tokenCache.getCurrentPosition()
	tag := p.tokenCache.advance().Value

	attrs := prefixAttributes(p.tokenCache.slice(start, keyIndex))
	attrs = append(attrs, p.parseClassAttributes()...)

	namePos := p.tokenCache.peek().Pos
	name := p.parseQualifiedName()
	if !name.empty() && p.tokenCache.peek().Kind == token.Identifier && classVirtSpecifiers[p.tokenCache.peek().Value] {
		p.tokenCache.advance()
	}
	attrs = append(attrs, p.parseAttributes()...)

	var bases []ast.BaseSpec
	if p.tokenCache.check(":") {
		bases = p.parseBaseList()
	}

	isDef := p.tokenCache.check("{")
	switch {
	case isDef:
	case p.tokenCache.check(";") && !name.empty():
	default:
		return nil, false
	}
	headerEnd := p.tokenCache.getCurrentPosition()

	d := &ast.Declaration{
		Kind:       ast.KindForward,
		Tag:        tag,
		Template:   tmpl,
		Attributes: attrs,
		Bases:      bases,
		Signature:  token.Text(p.tokenCache.slice(start, headerEnd)),
		Guarded:    p.tokenCache.guardedIn(start, headerEnd+1),
		Range:      p.tokenCache.getRangeFromPositions(start, headerEnd),
	}
	if isDef {
		d.Kind = classKind(tag)
	}

	owner := p.table.Current()
	unresolved := false
	specialization := false
	if !name.empty() {
		last := name.last()
		d.Name = last.name
		if last.hasArgs {
			d.Name = last.text()
			specialization = true
		}
		if len(name.segments) > 1 {
			if s, ok := p.table.ResolveQualifier(name.qualifier()); ok {
				owner = s
			} else {
				unresolved = true
				p.report(ast.DiagRecognition, namePos,
					"unresolved qualifier '%s' in %s %s", name.qualifier(), tag, name.String())
			}
		}
	}

	p.attachDoc(d)
	if owner == p.table.Current() {
		d.Access = p.getCurrentAccessLevel()
	}

	switch {
	case unresolved:
		d.UnresolvedQualifier = true
		d.Path = append(append(owner.Path(), name.qualifierSegments()...), d.Name)
		p.table.DeclareIn(owner, d)
	case specialization || d.Name == "":
		d.Path = append(owner.Path(), d.Name)
		if d.Name == "" {
			d.Path = owner.Path()
		}
		p.table.DeclareIn(owner, d)
	default:
		rec, err := p.table.DeclareClass(owner, d, isDef)
		p.reportError(err)
		d = rec
	}

	if !isDef {
		return d, true
	}

	scope := p.table.ClassScope(d)
	if unresolved {
		scope.Prefix = name.qualifierSegments()
	}
	p.tokenCache.advance() // consume '{'
	p.enterScope(scope, defaultAccess(tag))
	p.parseDeclarations(true)
	p.exitScope()
	if p.tokenCache.check("}") {
		p.tokenCache.advance()
	}
	d.Range.End = p.tokenCache.previous().Pos
	p.logger.Debug().Str("class", d.FullName).Int("members", len(scope.Decls)).Msg("class parsed")
	return d, true
}

// classKind maps a class-key to the kind of its definition
func classKind(tag string) ast.DeclKind {
	switch tag {
	case "struct":
		return ast.KindStruct
	case "union":
		return ast.KindUnion
	}
	return ast.KindClass
}

// prefixAttributes turns macro identifiers and attributes written before the
// class-key into spans. Storage keywords are dropped.
func prefixAttributes(prefix []token.Token) []ast.Span {
	var spans []ast.Span
	begin := -1
	flush := func(end int) {
		if begin >= 0 {
			if s := ast.NewSpan(prefix[begin:end]); s != nil {
				spans = append(spans, *s)
			}
			begin = -1
		}
	}
	for i, t := range prefix {
		if t.Kind == token.Keyword && specifierKeywords[t.Value] {
			flush(i)
			continue
		}
		if begin < 0 {
			begin = i
		}
	}
	flush(len(prefix))
	return spans
}

// parseClassAttributes consumes attributes and macro identifiers between the
// class-key and the class name, e.g. "class DLL_EXPORT Foo"
func (p *Parser) parseClassAttributes() []ast.Span {
	var spans []ast.Span
	for {
		if p.isAttributeStart() {
			spans = append(spans, p.parseAttributes()...)
			continue
		}
		n := p.macroAttributeLength()
		if n == 0 {
			return spans
		}
		start := p.tokenCache.getCurrentPosition()
		p.tokenCache.setPosition(start + n)
		if s := ast.NewSpan(p.tokenCache.slice(start, start+n)); s != nil {
			spans = append(spans, *s)
		}
	}
}

// macroAttributeLength returns the length of a macro identifier, with its
// argument list, that stands between the class-key and the real name. The
// name must be followed by something that only follows a class name.
func (p *Parser) macroAttributeLength() int {
	t := p.tokenCache.peek()
	if t.Kind != token.Identifier {
		return 0
	}
	n := 1
	if p.tokenCache.checkAhead(1, "(") {
		n = p.balancedEndAhead(1)
	}
	name := p.tokenCache.peekAhead(n)
	if name.Kind != token.Identifier || classVirtSpecifiers[name.Value] {
		return 0
	}
	after := p.tokenCache.peekAhead(n + 1)
	switch {
	case after.Is("{"), after.Is(":"), after.Is("::"), after.Is("<"):
		return n
	case after.Kind == token.Identifier && classVirtSpecifiers[after.Value]:
		return n
	case after.Kind == token.Identifier || after.Is("["):
		// further attributes before the name
		return n
	}
	return 0
}

// parseBaseList parses ": (access|virtual)* NAME [<ARGS>] , ..."
func (p *Parser) parseBaseList() []ast.BaseSpec {
	p.tokenCache.advance() // consume ':'
	var bases []ast.BaseSpec
	for !p.tokenCache.isAtEnd() {
		var b ast.BaseSpec
	specifiers:
		for {
			t := p.tokenCache.peek()
			switch {
			case t.Is("public"):
				b.Access = ast.AccessPublic
			case t.Is("protected"):
				b.Access = ast.AccessProtected
			case t.Is("private"):
				b.Access = ast.AccessPrivate
			case t.Is("virtual"):
				b.Virtual = true
			default:
				break specifiers
			}
			p.tokenCache.advance()
		}

		name := p.parseQualifiedName()
		if name.empty() {
			t := p.tokenCache.peek()
			p.report(ast.DiagRecognition, t.Pos, "expected base class name, got '%s'", t.Value)
			p.skipToBody()
			return bases
		}
		last := &name.segments[len(name.segments)-1]
		if last.hasArgs && len(last.args) > 0 {
			b.Args = ast.NewSpan(last.args)
			last.hasArgs = false
		}
		b.Name = name.String()
		if p.tokenCache.check("(") {
			// base named through a macro call
			p.skipBalanced()
		}
		p.tokenCache.match("...")
		bases = append(bases, b)
		if !p.tokenCache.match(",") {
			break
		}
	}
	if !p.tokenCache.check("{") && !p.tokenCache.check(";") {
		t := p.tokenCache.peek()
		p.report(ast.DiagRecognition, t.Pos, "unexpected '%s' in base list", t.Value)
		p.skipToBody()
	}
	return bases
}

// skipToBody skips to the next '{' or ';' at depth 0 without consuming it
func (p *Parser) skipToBody() {
	for !p.tokenCache.isAtEnd() {
		t := p.tokenCache.peek()
		if t.Is("{") || t.Is(";") || t.Is("}") {
			return
		}
		if t.Is("(") || t.Is("[") {
			p.skipBalanced()
			continue
		}
		p.tokenCache.advance()
	}
}

// parseTrailingDeclarators records the declarators after a class or enum
// body, as in "struct { int x; } a, *b;", and consumes the ';'
func (p *Parser) parseTrailingDeclarators(start int, d *ast.Declaration) {
	if p.tokenCache.match(";") {
		return
	}
	declStart := p.tokenCache.getCurrentPosition()
	s := p.scanDeclaration()
	toks := p.tokenCache.slice(declStart, s.headerEnd)
	if !s.terminated {
		p.report(ast.DiagRecognition, p.tokenCache.peek().Pos, "expected ';' after %s definition", d.Tag)
	}
	typeName := d.Tag + " " + d.Name
	if d.Name == "" {
		typeName = d.Tag + " { }"
	}
	for _, decl := range splitDeclarators(toks) {
		idx := declaratorName(decl)
		if idx < 0 {
			continue
		}
		p.declare(&ast.Declaration{
			Kind:      ast.KindVariable,
			Name:      decl[idx].Value,
			Signature: typeName + " " + token.Text(decl),
			Guarded:   p.tokenCache.guardedIn(start, s.headerEnd),
			Range:     p.tokenCache.getRangeFromPositions(declStart, s.headerEnd),
		})
	}
}

// parseFriend handles friend declarations
func (p *Parser) parseFriend(start int, tmpl *ast.Span) {
	p.tokenCache.advance() // consume 'friend'
	d := &ast.Declaration{Kind: ast.KindFriend, Template: tmpl}

	if p.tokenCache.check("class") || p.tokenCache.check("struct") || p.tokenCache.check("union") {
		p.tokenCache.advance()
		d.Name = p.parseQualifiedName().String()
		p.skipToNextEntity()
		end := p.tokenCache.getCurrentPosition()
		d.Signature = token.Text(trimSemicolon(p.tokenCache.slice(start, end)))
		d.Guarded = p.tokenCache.guardedIn(start, end)
		d.Range = p.tokenCache.getRangeFromPositions(start, end-1)
		d.Path = append(p.table.CurrentPath(), d.Name)
		p.declare(d)
		return
	}

	declStart := p.tokenCache.getCurrentPosition()
	s := p.scanDeclaration()
	header := p.tokenCache.slice(declStart, s.headerEnd)
	if s.firstParen >= 0 {
		if name, ok := functionName(header, s.firstParen-declStart); ok {
			d.Name = name
		}
	}
	if d.Name == "" {
		if idx := declaratorName(header); idx >= 0 {
			d.Name = header[idx].Value
		}
	}
	if s.bodyStart >= 0 {
		body := p.tokenCache.slice(s.bodyStart, s.bodyEnd)
		d.Body = ast.NewSpan(body)
		d.Metrics = bodyMetrics(body)
	}
	d.Signature = token.Text(p.tokenCache.slice(start, s.headerEnd))
	d.Attributes = s.attributes
	d.Guarded = p.tokenCache.guardedIn(start, s.headerEnd)
	d.Range = p.tokenCache.getRangeFromPositions(start, p.tokenCache.getCurrentPosition()-1)
	d.Path = append(p.table.CurrentPath(), d.Name)
	p.declare(d)
}

// parseLinkage handles extern "C" blocks and declarations. A linkage block
// opens no scope.
func (p *Parser) parseLinkage() {
	p.tokenCache.advance() // consume 'extern'
	p.tokenCache.advance() // consume the language string
	if !p.tokenCache.check("{") {
		p.parseDeclaration()
		return
	}
	p.tokenCache.advance()
	p.parseDeclarations(true)
	p.expect("}", "to close linkage specification")
}
