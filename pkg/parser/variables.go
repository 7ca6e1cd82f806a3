package parser

import (
	"cppdecl/pkg/token"
)

// looksLikeConstructorCall reports whether the group at paren holds call
// arguments rather than parameters, as in "Foo bar(1, 2);"
func looksLikeConstructorCall(header []token.Token, paren int) bool {
	if paren+1 >= len(header) {
		return false
	}
	// function pointer declarators are handled as variables
	if isPointerDeclaratorGroup(header, paren) {
		return true
	}
	first := header[paren+1]
	switch first.Kind {
	case token.Number, token.String, token.Char:
		return true
	}
	return first.Is("true") || first.Is("false") || first.Is("nullptr") || first.Is("this")
}

// isPointerDeclaratorGroup reports whether the group at paren starts a
// pointer, reference or member pointer declarator: (*x), (&x), (C::*x)
func isPointerDeclaratorGroup(toks []token.Token, paren int) bool {
	i := paren + 1
	if i >= len(toks) {
		return false
	}
	if toks[i].Is("*") || toks[i].Is("&") || toks[i].Is("&&") || toks[i].Is("^") {
		return true
	}
	for i+1 < len(toks) && toks[i].Kind == token.Identifier && toks[i+1].Is("::") {
		i += 2
	}
	return i > paren+1 && i < len(toks) && toks[i].Is("*")
}

// splitDeclarators splits a declaration at commas outside any brackets.
// Angle brackets opened after a name count as brackets.
func splitDeclarators(toks []token.Token) [][]token.Token {
	var out [][]token.Token
	depth, angle, begin := 0, 0, 0
	for i, t := range toks {
		switch {
		case t.Is("(") || t.Is("[") || t.Is("{"):
			depth++
		case t.Is(")") || t.Is("]") || t.Is("}"):
			depth--
		case t.Is("<") && depth == 0 && i > 0 && toks[i-1].Kind == token.Identifier:
			angle++
		case t.Is(">") && depth == 0 && angle > 0:
			angle--
		case t.Is(">>") && depth == 0 && angle > 0:
			angle -= 2
			if angle < 0 {
				angle = 0
			}
		case t.Is(",") && depth == 0 && angle == 0:
			out = append(out, toks[begin:i])
			begin = i + 1
		}
	}
	return append(out, toks[begin:])
}

// declaratorName returns the index of the declared name in a declarator:
// the identifier before the ')' closing the first (*, (& or (C::* group, or
// else the last identifier at depth 0 before array bounds, an initializer or
// a bit-field width. It returns -1 when there is no name.
func declaratorName(toks []token.Token) int {
	depth, angle := 0, 0
	for i, t := range toks {
		if t.Is("(") && depth == 0 && angle == 0 && isPointerDeclaratorGroup(toks, i) {
			closeIdx := matchParen(toks, i)
			if closeIdx < 0 {
				return -1
			}
			inner := declaratorName(toks[i+1 : closeIdx])
			if inner < 0 {
				return -1
			}
			return i + 1 + inner
		}
		switch {
		case t.Is("(") || t.Is("[") || t.Is("{"):
			depth++
		case t.Is(")") || t.Is("]") || t.Is("}"):
			depth--
		}
	}

	last := -1
	depth, angle = 0, 0
	for i, t := range toks {
		if depth == 0 && angle == 0 {
			if t.Is("=") || t.Is("[") || t.Is(":") || t.Is("{") {
				break
			}
			if t.Kind == token.Identifier && groupSkipIdents[t.Value] {
				break
			}
		}
		switch {
		case t.Is("(") || t.Is("[") || t.Is("{"):
			depth++
		case t.Is(")") || t.Is("]") || t.Is("}"):
			depth--
		case t.Is("<") && depth == 0 && i > 0 && toks[i-1].Kind == token.Identifier:
			angle++
		case t.Is(">") && depth == 0 && angle > 0:
			angle--
		case t.Is(">>") && depth == 0 && angle > 0:
			angle -= 2
			if angle < 0 {
				angle = 0
			}
		case t.Kind == token.Identifier && depth == 0 && angle == 0:
			// the name of a qualified type is not a declarator name
			if i+1 < len(toks) && toks[i+1].Is("::") {
				continue
			}
			last = i
		}
	}
	return last
}

// matchParen returns the index of the ')' matching the '(' at i
func matchParen(toks []token.Token, i int) int {
	depth := 0
	for j := i; j < len(toks); j++ {
		switch {
		case toks[j].Is("("):
			depth++
		case toks[j].Is(")"):
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}
