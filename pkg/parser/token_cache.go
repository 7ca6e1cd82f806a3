package parser

import (
	"context"

	"cppdecl/pkg/ast"
	"cppdecl/pkg/token"
)

// ctxCheckInterval is how many tokens are pulled between context checks
const ctxCheckInterval = 1024

// pendingDirective is a directive seen before the token at index
type pendingDirective struct {
	index int
	tok   token.Token
}

// TokenCache provides lookahead over the filtered token stream. Tokens are
// pulled from the conditional tracker on demand and kept so that spans can
// be sliced out after a construct has been recognized. Comments and
// directives are taken out of the stream: doc comments are remembered for
// the next declaration, directives are queued for the recognizer.
type TokenCache struct {
	source     *conditionalTracker
	tokens     []token.Token
	current    int
	eof        bool
	eofTok     token.Token
	docs       map[int]token.Token
	pendingDoc *token.Token
	directives []pendingDirective

	ctx    context.Context
	pulled int
	err    error
}

// NewTokenCache creates a cursor over the tracker's output
func NewTokenCache(ctx context.Context, source *conditionalTracker) *TokenCache {
	return &TokenCache{
		source: source,
		docs:   make(map[int]token.Token),
		ctx:    ctx,
	}
}

// fill pulls tokens until index i is buffered or the stream ends
func (tc *TokenCache) fill(i int) {
	for len(tc.tokens) <= i && !tc.eof {
		tc.pulled++
		if tc.ctx != nil && tc.pulled%ctxCheckInterval == 0 {
			if err := tc.ctx.Err(); err != nil {
				tc.err = err
				tc.eof = true
				tc.eofTok = token.Token{Kind: token.EOF}
				return
			}
		}
		t := tc.source.Next()
		switch t.Kind {
		case token.EOF:
			tc.eof = true
			tc.eofTok = t
		case token.Comment:
			if token.IsDocComment(t) {
				doc := t
				tc.pendingDoc = &doc
			}
		case token.Directive:
			tc.directives = append(tc.directives, pendingDirective{index: len(tc.tokens), tok: t})
			tc.pendingDoc = nil
		default:
			if tc.pendingDoc != nil {
				tc.docs[len(tc.tokens)] = *tc.pendingDoc
				tc.pendingDoc = nil
			}
			tc.tokens = append(tc.tokens, t)
		}
	}
}

// Err returns the context error that stopped the stream, if any
func (tc *TokenCache) Err() error {
	return tc.err
}

// advance returns the current token and moves to the next
func (tc *TokenCache) advance() token.Token {
	t := tc.peek()
	if !tc.isAtEnd() {
		tc.current++
	}
	return t
}

// isAtEnd checks if we're at the end of tokens
func (tc *TokenCache) isAtEnd() bool {
	return tc.peek().Kind == token.EOF
}

// peek returns the current token without advancing
func (tc *TokenCache) peek() token.Token {
	return tc.peekAhead(0)
}

// previous returns the previous token
func (tc *TokenCache) previous() token.Token {
	if tc.current <= 0 || tc.current > len(tc.tokens) {
		return token.Token{Kind: token.EOF}
	}
	return tc.tokens[tc.current-1]
}

// peekAhead looks ahead by offset tokens
func (tc *TokenCache) peekAhead(offset int) token.Token {
	i := tc.current + offset
	if i < 0 {
		return token.Token{Kind: token.EOF}
	}
	tc.fill(i)
	if i >= len(tc.tokens) {
		return tc.eofTok
	}
	return tc.tokens[i]
}

// getCurrentPosition returns the current position in the token array
func (tc *TokenCache) getCurrentPosition() int {
	return tc.current
}

// setPosition sets the current position (for checkpointing)
func (tc *TokenCache) setPosition(position int) {
	if position < 0 {
		position = 0
	}
	tc.fill(position)
	if position > len(tc.tokens) {
		position = len(tc.tokens)
	}
	tc.current = position
}

// check returns true if the current token is the given punctuator or keyword
func (tc *TokenCache) check(value string) bool {
	return tc.peek().Is(value)
}

// checkAhead is check at an offset
func (tc *TokenCache) checkAhead(offset int, value string) bool {
	return tc.peekAhead(offset).Is(value)
}

// match consumes the current token if it matches any of the given values
func (tc *TokenCache) match(values ...string) bool {
	for _, v := range values {
		if tc.check(v) {
			tc.advance()
			return true
		}
	}
	return false
}

// slice returns the tokens in [start, end)
func (tc *TokenCache) slice(start, end int) []token.Token {
	if end > len(tc.tokens) {
		end = len(tc.tokens)
	}
	if start < 0 {
		start = 0
	}
	if start >= end {
		return nil
	}
	return tc.tokens[start:end]
}

// getRangeFromPositions creates a range from token positions
func (tc *TokenCache) getRangeFromPositions(start, end int) ast.Range {
	if len(tc.tokens) == 0 {
		return ast.Range{}
	}
	if start >= len(tc.tokens) {
		start = len(tc.tokens) - 1
	}
	if end >= len(tc.tokens) {
		end = len(tc.tokens) - 1
	}
	if start < 0 {
		start = 0
	}
	if end < start {
		end = start
	}
	return ast.Range{Start: tc.tokens[start].Pos, End: tc.tokens[end].Pos}
}

// docAt returns the doc comment immediately preceding the token at index
func (tc *TokenCache) docAt(index int) (token.Token, bool) {
	d, ok := tc.docs[index]
	return d, ok
}

// takeDirectives removes and returns the queued directives seen before the
// token at index
func (tc *TokenCache) takeDirectives(index int) []token.Token {
	var out []token.Token
	n := 0
	for _, d := range tc.directives {
		if d.index <= index {
			out = append(out, d.tok)
			n++
		} else {
			break
		}
	}
	tc.directives = tc.directives[n:]
	return out
}

// guardedIn reports whether any token in [start, end) came from an
// uncertain conditional branch
func (tc *TokenCache) guardedIn(start, end int) bool {
	for _, t := range tc.slice(start, end) {
		if t.Guarded {
			return true
		}
	}
	return false
}
