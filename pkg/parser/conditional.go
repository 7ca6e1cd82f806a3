package parser

import (
	"strings"

	"cppdecl/pkg/ast"
	"cppdecl/pkg/token"
)

// condFrame is one open #if/#ifdef/#ifndef chain
type condFrame struct {
	taken   bool // some branch of the chain was taken
	active  bool // tokens of the current branch are forwarded
	certain bool // the current branch's truth value is literally known
	sawElse bool
	// chainCertain is true while every branch condition seen so far in the
	// chain was determined
	chainCertain bool
	pos          token.Position
}

// conditionalTracker filters the scanner's token stream through the
// preprocessor conditionals. Inactive text is skipped line by line, so
// everything it returns belongs to active branches.
type conditionalTracker struct {
	tok       *Tokenizer
	frames    []*condFrame
	defines   map[string]string
	undefined map[string]bool
	strict    bool
	report    func(ast.Diagnostic)

	// guardName and guardFrame track the include-guard idiom: the frame
	// pushed by "#ifndef X" becomes certain when "#define X" follows.
	guardName  string
	guardFrame *condFrame
	done       bool
}

func newConditionalTracker(tok *Tokenizer, defines map[string]string, undefined []string, strict bool, report func(ast.Diagnostic)) *conditionalTracker {
	c := &conditionalTracker{
		tok:       tok,
		defines:   make(map[string]string, len(defines)),
		undefined: make(map[string]bool, len(undefined)),
		strict:    strict,
		report:    report,
	}
	for k, v := range defines {
		c.defines[k] = v
	}
	for _, name := range undefined {
		if _, ok := c.defines[name]; !ok {
			c.undefined[name] = true
		}
	}
	return c
}

// guarded reports whether any open frame is uncertain
func (c *conditionalTracker) guarded() bool {
	for _, f := range c.frames {
		if !f.certain {
			return true
		}
	}
	return false
}

// Depth returns the number of open frames
func (c *conditionalTracker) Depth() int {
	return len(c.frames)
}

// Next returns the next token of an active branch
func (c *conditionalTracker) Next() token.Token {
	for {
		t := c.tok.Next()
		switch t.Kind {
		case token.EOF:
			c.finish()
			return t
		case token.Directive:
			name, rest := splitDirective(t.Value)
			if c.handleConditional(name, rest, t.Pos) {
				continue
			}
			c.handleDefinition(name, rest)
			t.Guarded = c.guarded()
			return t
		case token.Comment:
			t.Guarded = c.guarded()
			return t
		default:
			c.guardFrame = nil
			t.Guarded = c.guarded()
			return t
		}
	}
}

// finish reports frames left open at end of input
func (c *conditionalTracker) finish() {
	if c.done {
		return
	}
	c.done = true
	for i := len(c.frames) - 1; i >= 0; i-- {
		c.report(ast.NewDiagnostic(ast.DiagDirective, c.frames[i].pos, "unterminated #if"))
	}
	c.frames = nil
}

// handleConditional processes #if-family directives and reports whether the
// directive was one of them
func (c *conditionalTracker) handleConditional(name, rest string, pos token.Position) bool {
	switch name {
	case "if":
		v := evalCondition(rest, c.defines, c.undefined)
		c.push(v, pos)
		if guard := negatedDefined(rest); guard != "" && !v.known {
			c.openGuard(guard)
			return true
		}
	case "ifdef":
		c.push(evalDefined(firstWord(rest), c.defines, c.undefined), pos)
	case "ifndef":
		v := evalDefined(firstWord(rest), c.defines, c.undefined)
		if v.known {
			v = boolValue(v.v == 0)
		}
		c.push(v, pos)
		if !v.known {
			c.openGuard(firstWord(rest))
			return true
		}
	case "elif", "elifdef", "elifndef":
		c.elif(name, rest, pos)
	case "else":
		c.elseBranch(pos)
	case "endif":
		if len(c.frames) == 0 {
			c.report(ast.NewDiagnostic(ast.DiagDirective, pos, "stray #endif"))
		} else {
			c.frames = c.frames[:len(c.frames)-1]
		}
	default:
		return false
	}
	c.guardFrame = nil
	c.skipIfInactive()
	return true
}

// openGuard handles an undetermined "#ifndef name" frame that may start an
// include guard. Normally the frame stays active and becomes certain once
// "#define name" follows. In strict mode the frame is inactive, so the next
// line decides: the guard definition makes it active and certain, anything
// else skips the branch.
func (c *conditionalTracker) openGuard(name string) {
	f := c.frames[len(c.frames)-1]
	if !c.strict {
		c.guardName = name
		c.guardFrame = f
		return
	}
	c.guardFrame = nil
	if directive, rest := c.tok.PeekDirective(); directive == "define" && firstWord(rest) == name {
		f.active, f.certain, f.taken, f.chainCertain = true, true, true, true
		return
	}
	c.tok.SkipInactive()
}

func (c *conditionalTracker) push(v condValue, pos token.Position) {
	f := &condFrame{pos: pos, chainCertain: v.known}
	c.enter(f, v)
	c.frames = append(c.frames, f)
}

// enter makes the branch guarded by v the current branch of f
func (c *conditionalTracker) enter(f *condFrame, v condValue) {
	truth, known := v.truth()
	switch {
	case known && truth:
		f.active, f.certain, f.taken = true, true, true
	case known:
		f.active, f.certain = false, true
	case c.strict:
		f.active, f.certain = false, false
	default:
		f.active, f.certain, f.taken = true, false, true
	}
}

func (c *conditionalTracker) elif(name, rest string, pos token.Position) {
	if len(c.frames) == 0 {
		c.report(ast.NewDiagnostic(ast.DiagDirective, pos, "#%s without #if", name))
		return
	}
	f := c.frames[len(c.frames)-1]
	if f.sawElse {
		c.report(ast.NewDiagnostic(ast.DiagDirective, pos, "#%s after #else", name))
	}
	if f.taken {
		f.active = false
		return
	}
	var v condValue
	switch name {
	case "elifdef":
		v = evalDefined(firstWord(rest), c.defines, c.undefined)
	case "elifndef":
		v = evalDefined(firstWord(rest), c.defines, c.undefined)
		if v.known {
			v = boolValue(v.v == 0)
		}
	default:
		v = evalCondition(rest, c.defines, c.undefined)
	}
	f.chainCertain = f.chainCertain && v.known
	c.enter(f, v)
	f.certain = f.certain && f.chainCertain
}

func (c *conditionalTracker) elseBranch(pos token.Position) {
	if len(c.frames) == 0 {
		c.report(ast.NewDiagnostic(ast.DiagDirective, pos, "#else without #if"))
		return
	}
	f := c.frames[len(c.frames)-1]
	if f.sawElse {
		c.report(ast.NewDiagnostic(ast.DiagDirective, pos, "#else after #else"))
	}
	f.sawElse = true
	if f.taken {
		f.active = false
		return
	}
	f.active, f.taken, f.certain = true, true, f.chainCertain
}

// skipIfInactive skips the disabled extent of the innermost frame. The skip
// stops before the directive that ends it, which the next call to Next
// processes.
func (c *conditionalTracker) skipIfInactive() {
	if len(c.frames) == 0 || c.frames[len(c.frames)-1].active {
		return
	}
	c.tok.SkipInactive()
}

// handleDefinition updates the macro sets for #define and #undef
func (c *conditionalTracker) handleDefinition(name, rest string) {
	switch name {
	case "define":
		macro, _, value := splitMacro(rest)
		if macro == "" {
			return
		}
		c.defines[macro] = value
		delete(c.undefined, macro)
		if c.guardFrame != nil && macro == c.guardName {
			c.guardFrame.certain = true
			c.guardFrame.chainCertain = true
		}
	case "undef":
		macro := firstWord(rest)
		if macro != "" {
			delete(c.defines, macro)
			c.undefined[macro] = true
		}
	}
	c.guardFrame = nil
}

// splitDirective returns the directive name and the remaining text with
// comments and line continuations removed
func splitDirective(value string) (string, string) {
	text := strings.TrimSpace(stripComments(strings.TrimPrefix(value, "#")))
	i := 0
	for i < len(text) && isIdentChar(rune(text[i])) {
		i++
	}
	return text[:i], strings.TrimSpace(text[i:])
}

// splitMacro splits the body of a #define into the macro name, the name with
// any parameter list, and the replacement text
func splitMacro(rest string) (string, string, string) {
	i := 0
	for i < len(rest) && isIdentChar(rune(rest[i])) {
		i++
	}
	name := rest[:i]
	j := i
	if j < len(rest) && rest[j] == '(' {
		if end := strings.IndexByte(rest[j:], ')'); end >= 0 {
			j += end + 1
		} else {
			j = len(rest)
		}
	}
	return name, rest[:j], strings.TrimSpace(rest[j:])
}

// negatedDefined returns X for the conditions "!defined(X)" and
// "!defined X", the other spelling of an include guard
func negatedDefined(cond string) string {
	compact := strings.Join(strings.Fields(cond), "")
	if !strings.HasPrefix(compact, "!defined") {
		return ""
	}
	name := strings.TrimPrefix(compact, "!defined")
	if strings.HasPrefix(name, "(") && strings.HasSuffix(name, ")") {
		name = name[1 : len(name)-1]
	}
	for _, r := range name {
		if !isIdentChar(r) {
			return ""
		}
	}
	return name
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// stripComments removes comments and backslash-newline splices from a
// directive line, leaving string literals alone
func stripComments(s string) string {
	s = strings.ReplaceAll(s, "\\\r\n", " ")
	s = strings.ReplaceAll(s, "\\\n", " ")
	var b strings.Builder
	inString := byte(0)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString != 0 {
			b.WriteByte(ch)
			if ch == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if ch == inString {
				inString = 0
			}
			continue
		}
		switch {
		case ch == '"':
			inString = ch
			b.WriteByte(ch)
		case ch == '/' && i+1 < len(s) && s[i+1] == '/':
			return b.String()
		case ch == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return b.String()
			}
			b.WriteByte(' ')
			i += end + 3
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
