package parser

import (
	"strconv"
	"strings"

	"cppdecl/pkg/token"
)

/*
   Tri-state evaluation of #if / #elif conditions.

   Only the trivial idioms are decided: integer literals, true/false,
   defined(NAME) / defined NAME, !, &&, ||, comparisons, + - * / % and
   parentheses. Names in the known macro set evaluate to their value when it
   is an integer literal, names known to be undefined evaluate to zero.
   Everything else is undetermined, and undetermined operands propagate
   except where && or || short-circuit on a known operand.
*/

type condValue struct {
	known bool
	v     int64
}

var unknownValue = condValue{}

func knownValue(v int64) condValue {
	return condValue{known: true, v: v}
}

func boolValue(b bool) condValue {
	if b {
		return knownValue(1)
	}
	return knownValue(0)
}

// truth returns the truth value and whether it is known
func (c condValue) truth() (bool, bool) {
	return c.v != 0, c.known
}

type cppExprCtx struct {
	toks      []token.Token
	pos       int
	defines   map[string]string
	undefined map[string]bool
	depth     int
}

func (ctx *cppExprCtx) peek() token.Token {
	if ctx.pos >= len(ctx.toks) {
		return token.Token{Kind: token.EOF}
	}
	return ctx.toks[ctx.pos]
}

func (ctx *cppExprCtx) nextToken() token.Token {
	t := ctx.peek()
	if ctx.pos < len(ctx.toks) {
		ctx.pos++
	}
	return t
}

// evalCondition evaluates the text following #if or #elif
func evalCondition(expr string, defines map[string]string, undefined map[string]bool) condValue {
	return evalConditionDepth(expr, defines, undefined, 0)
}

func evalConditionDepth(expr string, defines map[string]string, undefined map[string]bool, depth int) condValue {
	var toks []token.Token
	for _, t := range NewTokenizer(expr).Tokenize() {
		if t.Kind == token.EOF {
			break
		}
		if t.Kind != token.Comment {
			toks = append(toks, t)
		}
	}
	if len(toks) == 0 {
		return unknownValue
	}
	ctx := &cppExprCtx{toks: toks, defines: defines, undefined: undefined, depth: depth}
	v := ctx.parseOr()
	if ctx.pos != len(ctx.toks) {
		return unknownValue
	}
	return v
}

// evalDefined reports whether a macro name is known to be defined
func evalDefined(name string, defines map[string]string, undefined map[string]bool) condValue {
	if _, ok := defines[name]; ok {
		return knownValue(1)
	}
	if undefined[name] {
		return knownValue(0)
	}
	return unknownValue
}

func (ctx *cppExprCtx) parseOr() condValue {
	l := ctx.parseAnd()
	for ctx.peek().Is("||") {
		ctx.nextToken()
		r := ctx.parseAnd()
		lt, lk := l.truth()
		rt, rk := r.truth()
		switch {
		case (lk && lt) || (rk && rt):
			l = knownValue(1)
		case lk && rk:
			l = knownValue(0)
		default:
			l = unknownValue
		}
	}
	return l
}

func (ctx *cppExprCtx) parseAnd() condValue {
	l := ctx.parseEquality()
	for ctx.peek().Is("&&") {
		ctx.nextToken()
		r := ctx.parseEquality()
		lt, lk := l.truth()
		rt, rk := r.truth()
		switch {
		case (lk && !lt) || (rk && !rt):
			l = knownValue(0)
		case lk && rk:
			l = knownValue(1)
		default:
			l = unknownValue
		}
	}
	return l
}

func (ctx *cppExprCtx) parseEquality() condValue {
	l := ctx.parseRelational()
	for ctx.peek().Is("==") || ctx.peek().Is("!=") {
		op := ctx.nextToken().Value
		r := ctx.parseRelational()
		if !l.known || !r.known {
			l = unknownValue
			continue
		}
		if op == "==" {
			l = boolValue(l.v == r.v)
		} else {
			l = boolValue(l.v != r.v)
		}
	}
	return l
}

func (ctx *cppExprCtx) parseRelational() condValue {
	l := ctx.parseAdditive()
	for {
		t := ctx.peek()
		if !(t.Is("<") || t.Is(">") || t.Is("<=") || t.Is(">=")) {
			return l
		}
		ctx.nextToken()
		r := ctx.parseAdditive()
		if !l.known || !r.known {
			l = unknownValue
			continue
		}
		switch t.Value {
		case "<":
			l = boolValue(l.v < r.v)
		case ">":
			l = boolValue(l.v > r.v)
		case "<=":
			l = boolValue(l.v <= r.v)
		default:
			l = boolValue(l.v >= r.v)
		}
	}
}

func (ctx *cppExprCtx) parseAdditive() condValue {
	l := ctx.parseMultiplicative()
	for ctx.peek().Is("+") || ctx.peek().Is("-") {
		op := ctx.nextToken().Value
		r := ctx.parseMultiplicative()
		if !l.known || !r.known {
			l = unknownValue
			continue
		}
		if op == "+" {
			l = knownValue(l.v + r.v)
		} else {
			l = knownValue(l.v - r.v)
		}
	}
	return l
}

func (ctx *cppExprCtx) parseMultiplicative() condValue {
	l := ctx.parseUnary()
	for ctx.peek().Is("*") || ctx.peek().Is("/") || ctx.peek().Is("%") {
		op := ctx.nextToken().Value
		r := ctx.parseUnary()
		if !l.known || !r.known {
			l = unknownValue
			continue
		}
		switch {
		case op == "*":
			l = knownValue(l.v * r.v)
		case r.v == 0:
			l = unknownValue
		case op == "/":
			l = knownValue(l.v / r.v)
		default:
			l = knownValue(l.v % r.v)
		}
	}
	return l
}

func (ctx *cppExprCtx) parseUnary() condValue {
	t := ctx.peek()
	switch {
	case t.Is("!"):
		ctx.nextToken()
		v := ctx.parseUnary()
		if !v.known {
			return unknownValue
		}
		return boolValue(v.v == 0)
	case t.Is("-"):
		ctx.nextToken()
		v := ctx.parseUnary()
		if !v.known {
			return unknownValue
		}
		return knownValue(-v.v)
	case t.Is("+"):
		ctx.nextToken()
		return ctx.parseUnary()
	case t.Is("~"):
		ctx.nextToken()
		v := ctx.parseUnary()
		if !v.known {
			return unknownValue
		}
		return knownValue(^v.v)
	}
	return ctx.parsePrimary()
}

func (ctx *cppExprCtx) parsePrimary() condValue {
	t := ctx.nextToken()
	switch {
	case t.Is("("):
		v := ctx.parseOr()
		if !ctx.peek().Is(")") {
			ctx.pos = len(ctx.toks) + 1
			return unknownValue
		}
		ctx.nextToken()
		return v
	case t.Kind == token.Number:
		if n, ok := parseIntLiteral(t.Value); ok {
			return knownValue(n)
		}
		return unknownValue
	case t.Is("true"):
		return knownValue(1)
	case t.Is("false"):
		return knownValue(0)
	case t.Kind == token.Identifier && t.Value == "defined":
		paren := ctx.peek().Is("(")
		if paren {
			ctx.nextToken()
		}
		name := ctx.nextToken()
		if name.Kind != token.Identifier && name.Kind != token.Keyword {
			ctx.pos = len(ctx.toks) + 1
			return unknownValue
		}
		if paren {
			if !ctx.peek().Is(")") {
				ctx.pos = len(ctx.toks) + 1
				return unknownValue
			}
			ctx.nextToken()
		}
		return evalDefined(name.Value, ctx.defines, ctx.undefined)
	case t.Kind == token.Identifier || t.Kind == token.Keyword:
		// function-like macro invocation: skip the argument list
		if ctx.peek().Is("(") {
			ctx.skipParens()
			return unknownValue
		}
		return ctx.macroValue(t.Value)
	}
	ctx.pos = len(ctx.toks) + 1
	return unknownValue
}

func (ctx *cppExprCtx) skipParens() {
	depth := 0
	for ctx.pos < len(ctx.toks) {
		t := ctx.nextToken()
		if t.Is("(") {
			depth++
		} else if t.Is(")") {
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

// macroValue evaluates an object-like macro name
func (ctx *cppExprCtx) macroValue(name string) condValue {
	if ctx.undefined[name] {
		return knownValue(0)
	}
	value, ok := ctx.defines[name]
	if !ok || ctx.depth > 8 {
		return unknownValue
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return unknownValue
	}
	return evalConditionDepth(value, ctx.defines, ctx.undefined, ctx.depth+1)
}

// parseIntLiteral parses a C integer literal, ignoring suffixes and digit
// separators
func parseIntLiteral(s string) (int64, bool) {
	s = strings.ReplaceAll(s, "'", "")
	s = strings.TrimRight(s, "uUlL")
	if s == "" {
		return 0, false
	}
	base := 10
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		base, s = 16, s[2:]
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		base, s = 2, s[2:]
	case len(s) > 1 && s[0] == '0':
		base, s = 8, s[1:]
	}
	n, err := strconv.ParseInt(s, base, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
