// Package token defines the lexical tokens produced by the C++ scanner
package token

import (
	"fmt"
	"strings"
)

// Position represents a position in the source file
type Position struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
	Offset int `json:"offset" yaml:"offset"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Kind represents the lexical class of a token
type Kind int

const (
	EOF Kind = iota
	Error
	Identifier
	Keyword
	Punct
	String
	Char
	Number
	Comment
	Directive
)

var kindNames = map[Kind]string{
	EOF:        "EOF",
	Error:      "ERROR",
	Identifier: "IDENTIFIER",
	Keyword:    "KEYWORD",
	Punct:      "PUNCT",
	String:     "STRING",
	Char:       "CHAR",
	Number:     "NUMBER",
	Comment:    "COMMENT",
	Directive:  "DIRECTIVE",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token represents a single token
type Token struct {
	Kind  Kind
	Value string
	Pos   Position

	// Guarded is set when the token was forwarded from inside a conditional
	// branch whose truth value is not literally known.
	Guarded bool
}

// String returns a string representation of the token
func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return "EOF"
	case Error:
		return fmt.Sprintf("ERROR:%s", t.Value)
	default:
		return fmt.Sprintf("%s:%s", t.Kind, t.Value)
	}
}

// Is reports whether the token is punctuation or a keyword with the given text
func (t Token) Is(value string) bool {
	return (t.Kind == Punct || t.Kind == Keyword) && t.Value == value
}

// IsName reports whether the token can name an entity
func (t Token) IsName() bool {
	return t.Kind == Identifier
}

// Keywords recognized by the scanner. Type keywords are included so that the
// recognizer can tell a builtin type from an unknown macro.
var keywords = map[string]bool{
	"alignas": true, "alignof": true, "auto": true, "bool": true, "break": true,
	"case": true, "catch": true, "char": true, "char8_t": true, "char16_t": true,
	"char32_t": true, "class": true, "const": true, "consteval": true,
	"constexpr": true, "constinit": true, "const_cast": true, "continue": true,
	"decltype": true, "default": true, "delete": true, "do": true, "double": true,
	"dynamic_cast": true, "else": true, "enum": true, "explicit": true,
	"export": true, "extern": true, "false": true, "float": true, "for": true,
	"friend": true, "goto": true, "if": true, "inline": true, "int": true,
	"long": true, "mutable": true, "namespace": true, "new": true,
	"noexcept": true, "nullptr": true, "operator": true, "private": true,
	"protected": true, "public": true, "register": true,
	"reinterpret_cast": true, "return": true, "short": true, "signed": true,
	"sizeof": true, "static": true, "static_assert": true, "static_cast": true,
	"struct": true, "switch": true, "template": true, "this": true,
	"thread_local": true, "throw": true, "true": true, "try": true,
	"typedef": true, "typeid": true, "typename": true, "union": true,
	"unsigned": true, "using": true, "virtual": true, "void": true,
	"volatile": true, "wchar_t": true, "while": true,
}

// IsKeyword reports whether s is a C++ keyword
func IsKeyword(s string) bool {
	return keywords[s]
}

// IsDocComment reports whether a comment token is a doxygen-style comment
func IsDocComment(t Token) bool {
	if t.Kind != Comment {
		return false
	}
	v := t.Value
	if strings.HasPrefix(v, "/**/") {
		return false
	}
	return strings.HasPrefix(v, "///") || strings.HasPrefix(v, "//!") ||
		strings.HasPrefix(v, "/**") || strings.HasPrefix(v, "/*!")
}

// Render joins tokens back into source text that scans to the same token
// sequence. Line comments and directives run to end of line, so they are
// always followed by a newline.
func Render(tokens []Token) string {
	var b strings.Builder
	for i, t := range tokens {
		b.WriteString(t.Value)
		if i == len(tokens)-1 {
			if endsLine(t) {
				b.WriteByte('\n')
			}
			break
		}
		if endsLine(t) || tokens[i+1].Kind == Directive {
			b.WriteByte('\n')
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func endsLine(t Token) bool {
	return t.Kind == Directive || (t.Kind == Comment && strings.HasPrefix(t.Value, "//"))
}

// Text joins token values with single spaces, for human readable signatures
func Text(tokens []Token) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t.Kind == Comment {
			continue
		}
		parts = append(parts, t.Value)
	}
	return strings.Join(parts, " ")
}
