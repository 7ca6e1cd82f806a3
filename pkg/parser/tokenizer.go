// Package parser - tokenizer implementation for C++ source files
package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"cppdecl/pkg/ast"
	"cppdecl/pkg/token"
)

// DefaultMaxTokens bounds a single scan to prevent runaway memory use
const DefaultMaxTokens = 2000000

// string and character literal prefixes
var literalPrefixes = map[string]bool{
	"L": true, "u": true, "U": true, "u8": true,
	"R": true, "LR": true, "uR": true, "UR": true, "u8R": true,
}

var puncts3 = []string{"<<=", ">>=", "->*", "...", "<=>"}

var puncts2 = []string{
	"::", "->", ".*", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"++", "--", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "##",
}

// Tokenizer represents the tokenizer state. Tokens are produced lazily by
// Next; the scan is single-pass and forward-only.
type Tokenizer struct {
	input  string
	pos    int // current position in input
	line   int // current line number
	column int // current column number
	start  int // start position of current token

	startPos  token.Position
	bol       bool // only whitespace seen since the last newline
	count     int
	maxTokens int
	done      bool
	diags     []ast.Diagnostic
}

// NewTokenizer creates a new tokenizer
func NewTokenizer(input string) *Tokenizer {
	return &Tokenizer{
		input:     input,
		line:      1,
		column:    1,
		bol:       true,
		maxTokens: DefaultMaxTokens,
	}
}

// SetMaxTokens sets the maximum number of tokens
func (t *Tokenizer) SetMaxTokens(max int) {
	if max > 0 {
		t.maxTokens = max
	}
}

// Diagnostics returns the lex errors recorded so far
func (t *Tokenizer) Diagnostics() []ast.Diagnostic {
	return t.diags
}

// HasErrors returns true if the tokenizer encountered any errors
func (t *Tokenizer) HasErrors() bool {
	return len(t.diags) > 0
}

// Position returns the current scan position
func (t *Tokenizer) Position() token.Position {
	return token.Position{Line: t.line, Column: t.column, Offset: t.pos}
}

// next reads the next rune and advances position
func (t *Tokenizer) next() rune {
	if t.pos >= len(t.input) {
		return 0
	}
	r, w := utf8.DecodeRuneInString(t.input[t.pos:])
	t.pos += w
	if r == '\n' {
		t.line++
		t.column = 1
	} else {
		t.column++
	}
	return r
}

// peek returns the next rune without advancing position
func (t *Tokenizer) peek() rune {
	if t.pos >= len(t.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(t.input[t.pos:])
	return r
}

// peekByte returns the byte n positions ahead, or 0 past the end
func (t *Tokenizer) peekByte(n int) byte {
	if t.pos+n >= len(t.input) {
		return 0
	}
	return t.input[t.pos+n]
}

// emit creates a token from the text scanned since start
func (t *Tokenizer) emit(kind token.Kind) token.Token {
	t.count++
	t.bol = false
	return token.Token{
		Kind:  kind,
		Value: t.input[t.start:t.pos],
		Pos:   t.startPos,
	}
}

// fail records a lex error and stops the scan
func (t *Tokenizer) fail(format string, args ...interface{}) token.Token {
	t.diags = append(t.diags, ast.NewDiagnostic(ast.DiagLex, t.startPos, format, args...))
	t.done = true
	return t.eof()
}

func (t *Tokenizer) eof() token.Token {
	return token.Token{Kind: token.EOF, Pos: t.Position()}
}

// Tokenize drains the tokenizer and returns all tokens including EOF
func (t *Tokenizer) Tokenize() []token.Token {
	var tokens []token.Token
	for {
		tok := t.Next()
		tokens = append(tokens, tok)
		if tok.Kind == token.EOF {
			return tokens
		}
	}
}

// Next scans and returns the next token. After the end of input, or after a
// lex error, it keeps returning EOF.
func (t *Tokenizer) Next() token.Token {
	if t.done {
		return t.eof()
	}
	t.skipWhitespace()
	if t.pos >= len(t.input) {
		t.done = true
		return t.eof()
	}
	if t.count >= t.maxTokens {
		t.startPos = t.Position()
		return t.fail("too many tokens (limit %d)", t.maxTokens)
	}

	t.start = t.pos
	t.startPos = t.Position()
	atLineStart := t.bol
	r := t.next()

	switch {
	case r == '#' && atLineStart:
		return t.scanDirective()
	case r == '/' && t.peek() == '/':
		t.scanLineComment()
		return t.emit(token.Comment)
	case r == '/' && t.peek() == '*':
		t.next()
		if !t.scanBlockComment() {
			return t.fail("unterminated block comment")
		}
		return t.emit(token.Comment)
	case r == '"':
		return t.scanString()
	case r == '\'':
		return t.scanChar()
	case isIdentStart(r):
		return t.scanIdentifier()
	case isDigit(r) || (r == '.' && isDigit(t.peek())):
		return t.scanNumber()
	default:
		return t.scanOperator()
	}
}

// skipWhitespace skips blanks, newlines and backslash-newline splices
func (t *Tokenizer) skipWhitespace() {
	for t.pos < len(t.input) {
		r := t.peek()
		switch {
		case r == '\n':
			t.next()
			t.bol = true
		case r == '\\' && (t.peekByte(1) == '\n' || (t.peekByte(1) == '\r' && t.peekByte(2) == '\n')):
			t.next()
			if t.peek() == '\r' {
				t.next()
			}
			t.next()
		case unicode.IsSpace(r):
			t.next()
		default:
			return
		}
	}
}

// scanLineComment scans until end of line
func (t *Tokenizer) scanLineComment() {
	for t.pos < len(t.input) && t.peek() != '\n' {
		t.next()
	}
	// a trailing \r belongs to the line ending, not the comment
	if t.pos > t.start && t.input[t.pos-1] == '\r' {
		t.pos--
		t.column--
	}
}

// scanBlockComment scans until */, the opening /* already consumed
func (t *Tokenizer) scanBlockComment() bool {
	for {
		r := t.next()
		if r == 0 && t.pos >= len(t.input) {
			return false
		}
		if r == '*' && t.peek() == '/' {
			t.next()
			return true
		}
	}
}

// scanDirective scans a preprocessor line, following continuations and
// swallowing comments that start on it
func (t *Tokenizer) scanDirective() token.Token {
	for t.pos < len(t.input) {
		r := t.peek()
		switch {
		case r == '\n':
			t.trimCR()
			return t.emit(token.Directive)
		case r == '\\' && (t.peekByte(1) == '\n' || (t.peekByte(1) == '\r' && t.peekByte(2) == '\n')):
			t.next()
			if t.peek() == '\r' {
				t.next()
			}
			t.next()
		case r == '/' && t.peekByte(1) == '/':
			t.scanLineComment()
		case r == '/' && t.peekByte(1) == '*':
			t.next()
			t.next()
			if !t.scanBlockComment() {
				return t.fail("unterminated block comment")
			}
		case r == '"':
			t.next()
			for t.pos < len(t.input) {
				c := t.peek()
				if c == '\n' {
					break
				}
				t.next()
				if c == '\\' && t.peek() != '\n' {
					t.next()
					continue
				}
				if c == '"' {
					break
				}
			}
		default:
			t.next()
		}
	}
	return t.emit(token.Directive)
}

func (t *Tokenizer) trimCR() {
	if t.pos > t.start && t.input[t.pos-1] == '\r' {
		t.pos--
		t.column--
	}
}

// scanString scans a string literal, the opening quote already consumed
func (t *Tokenizer) scanString() token.Token {
	for {
		r := t.next()
		if r == 0 && t.pos >= len(t.input) {
			return t.fail("unterminated string literal")
		}
		if r == '\n' {
			return t.fail("unterminated string literal")
		}
		if r == '"' {
			return t.emit(token.String)
		}
		if r == '\\' {
			if t.pos >= len(t.input) {
				return t.fail("unterminated string literal - EOF after escape")
			}
			t.next()
		}
	}
}

// scanRawString scans R"delim( ... )delim", the opening quote consumed
func (t *Tokenizer) scanRawString() token.Token {
	open := strings.IndexByte(t.input[t.pos:], '(')
	if open < 0 || open > 16 {
		return t.fail("malformed raw string literal")
	}
	delim := t.input[t.pos : t.pos+open]
	closing := ")" + delim + "\""
	end := strings.Index(t.input[t.pos+open+1:], closing)
	if end < 0 {
		return t.fail("unterminated raw string literal")
	}
	stop := t.pos + open + 1 + end + len(closing)
	for t.pos < stop {
		t.next()
	}
	return t.emit(token.String)
}

// scanChar scans a character literal, the opening quote already consumed
func (t *Tokenizer) scanChar() token.Token {
	for {
		r := t.next()
		if (r == 0 && t.pos >= len(t.input)) || r == '\n' {
			return t.fail("unterminated character literal")
		}
		if r == '\'' {
			return t.emit(token.Char)
		}
		if r == '\\' {
			if t.pos >= len(t.input) {
				return t.fail("unterminated character literal - EOF after escape")
			}
			t.next()
		}
	}
}

// scanIdentifier scans an identifier, keyword or prefixed literal
func (t *Tokenizer) scanIdentifier() token.Token {
	for isIdentChar(t.peek()) {
		t.next()
	}
	value := t.input[t.start:t.pos]
	if literalPrefixes[value] {
		switch t.peek() {
		case '"':
			t.next()
			if strings.HasSuffix(value, "R") {
				return t.scanRawString()
			}
			return t.scanString()
		case '\'':
			if !strings.HasSuffix(value, "R") {
				t.next()
				return t.scanChar()
			}
		}
	}
	if token.IsKeyword(value) {
		return t.emit(token.Keyword)
	}
	return t.emit(token.Identifier)
}

// scanNumber scans a pp-number: digits, letters, dots, digit separators and
// signed exponents
func (t *Tokenizer) scanNumber() token.Token {
	for {
		r := t.peek()
		prev := t.input[t.pos-1]
		switch {
		case isIdentChar(r) || r == '.':
			t.next()
		case (r == '+' || r == '-') && strings.IndexByte("eEpP", prev) >= 0:
			t.next()
		case r == '\'' && isIdentChar(rune(t.peekByte(1))):
			t.next()
		default:
			return t.emit(token.Number)
		}
	}
}

// scanOperator scans operators and punctuation, longest match first
func (t *Tokenizer) scanOperator() token.Token {
	rest := t.input[t.start:]
	for _, group := range [][]string{puncts3, puncts2} {
		for _, p := range group {
			if strings.HasPrefix(rest, p) {
				for t.pos < t.start+len(p) {
					t.next()
				}
				return t.emit(token.Punct)
			}
		}
	}
	return t.emit(token.Punct)
}

// SkipInactive skips whole lines of a disabled conditional branch without
// tokenizing them. Nested #if/#endif pairs are balanced by depth only, and
// lines that start inside a block comment are never directives. It stops at
// the start of the first depth-0 #elif, #else or #endif line and reports
// whether such a line was found before the end of input.
func (t *Tokenizer) SkipInactive() bool {
	depth := 0
	start := t.pos
	t.skipRestOfLine()
	inComment := commentOpen(t.input[start:t.pos], false)
	for t.pos < len(t.input) {
		lineStart := t.pos
		startLine := t.line
		name := ""
		if !inComment {
			name = t.directiveNameAt(lineStart)
		}
		switch name {
		case "if", "ifdef", "ifndef":
			depth++
		case "endif":
			if depth == 0 {
				t.rewind(lineStart, startLine)
				return true
			}
			depth--
		case "else", "elif", "elifdef", "elifndef":
			if depth == 0 {
				t.rewind(lineStart, startLine)
				return true
			}
		}
		t.skipRestOfLine()
		inComment = commentOpen(t.input[lineStart:t.pos], inComment)
	}
	return false
}

// commentOpen reports whether a block comment is still open after text,
// given whether one was open before it. Quoted strings end at the line end.
func commentOpen(text string, open bool) bool {
	for i := 0; i < len(text); i++ {
		if open {
			if text[i] == '*' && i+1 < len(text) && text[i+1] == '/' {
				open = false
				i++
			}
			continue
		}
		switch text[i] {
		case '/':
			if i+1 < len(text) && text[i+1] == '/' {
				return false
			}
			if i+1 < len(text) && text[i+1] == '*' {
				open = true
				i++
			}
		case '"':
			for i++; i < len(text) && text[i] != '"' && text[i] != '\n'; i++ {
				if text[i] == '\\' {
					i++
				}
			}
		}
	}
	return open
}

// PeekDirective returns the name and text of the directive on the next line
// holding more than blanks or a line comment, without consuming input. Both
// are empty when that line is not a directive.
func (t *Tokenizer) PeekDirective() (string, string) {
	i := t.pos
	for i < len(t.input) && t.input[i] != '\n' {
		i++
	}
	for i < len(t.input) {
		i++
		start := i
		for i < len(t.input) && t.input[i] != '\n' {
			i++
		}
		line := strings.TrimSpace(t.input[start:i])
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if !strings.HasPrefix(line, "#") {
			return "", ""
		}
		return splitDirective(line)
	}
	return "", ""
}

// skipRestOfLine consumes through the next newline, following continuations
func (t *Tokenizer) skipRestOfLine() {
	for t.pos < len(t.input) {
		r := t.next()
		if r == '\\' && t.peek() == '\r' {
			t.next()
		}
		if r == '\\' && t.peek() == '\n' {
			t.next()
			continue
		}
		if r == '\n' {
			break
		}
	}
	t.bol = true
}

// directiveNameAt returns the directive name of the line starting at pos
func (t *Tokenizer) directiveNameAt(pos int) string {
	i := pos
	for i < len(t.input) && (t.input[i] == ' ' || t.input[i] == '\t') {
		i++
	}
	if i >= len(t.input) || t.input[i] != '#' {
		return ""
	}
	i++
	for i < len(t.input) && (t.input[i] == ' ' || t.input[i] == '\t') {
		i++
	}
	j := i
	for j < len(t.input) && isIdentChar(rune(t.input[j])) {
		j++
	}
	return t.input[i:j]
}

func (t *Tokenizer) rewind(pos, line int) {
	t.pos = pos
	t.line = line
	t.column = 1
	t.bol = true
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentChar(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
