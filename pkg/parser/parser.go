// Package parser implements a streaming, declaration-level C++ parser. It
// scans the source once, filters it through the preprocessor conditionals and
// recognizes declarations by recursive descent, recording problems as
// diagnostics instead of failing.
package parser

import (
	"context"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"cppdecl/pkg/ast"
	"cppdecl/pkg/logger"
	"cppdecl/pkg/symbols"
	"cppdecl/pkg/token"
)

// Parser implements a token-driven declaration recognizer. A Parser holds
// per-parse state and must not be shared between goroutines.
type Parser struct {
	defines            map[string]string
	undefined          []string
	strictConditionals bool
	maxTokens          int
	logger             arbor.ILogger

	tokenCache  *TokenCache
	tree        *ast.Tree
	table       *symbols.Table
	accessStack []ast.AccessLevel
	pendingDoc  *token.Token
	ctx         context.Context
}

// Option configures a Parser
type Option func(*Parser)

// WithDefines seeds the known macro set
func WithDefines(defines map[string]string) Option {
	return func(p *Parser) {
		for k, v := range defines {
			p.defines[k] = v
		}
	}
}

// WithUndefined seeds the set of macros known to be undefined
func WithUndefined(names []string) Option {
	return func(p *Parser) {
		p.undefined = append(p.undefined, names...)
	}
}

// WithStrictConditionals makes undetermined #if branches inactive
func WithStrictConditionals(strict bool) Option {
	return func(p *Parser) {
		p.strictConditionals = strict
	}
}

// WithMaxTokens bounds the number of tokens scanned per unit
func WithMaxTokens(max int) Option {
	return func(p *Parser) {
		p.maxTokens = max
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(logger arbor.ILogger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a new parser instance
func New(opts ...Option) *Parser {
	p := &Parser{
		defines:   make(map[string]string),
		maxTokens: DefaultMaxTokens,
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses one source unit with a fresh parser
func Parse(filename, content string, opts ...Option) (*ast.Tree, error) {
	return New(opts...).Parse(filename, content)
}

// Parse parses one source unit. The error is always nil; problems in the
// input are reported as tree diagnostics.
func (p *Parser) Parse(filename, content string) (*ast.Tree, error) {
	return p.ParseContext(context.Background(), filename, content)
}

// ParseContext parses one source unit, stopping early when ctx is done. On
// cancellation the partial tree is returned together with the context error.
func (p *Parser) ParseContext(ctx context.Context, filename, content string) (*ast.Tree, error) {
	p.ctx = ctx
	p.tree = ast.NewTree(uuid.NewString(), filename)
	p.table = symbols.NewTable(p.tree)
	p.accessStack = []ast.AccessLevel{ast.AccessUnknown}
	p.pendingDoc = nil

	tokenizer := NewTokenizer(content)
	tokenizer.SetMaxTokens(p.maxTokens)
	tracker := newConditionalTracker(tokenizer, p.defines, p.undefined, p.strictConditionals, p.tree.AddDiagnostic)
	p.tokenCache = NewTokenCache(ctx, tracker)

	p.parseDeclarations(false)
	p.flushDirectives()

	// lex errors are collected last so they follow the diagnostics of the
	// text scanned before them
	for _, d := range tokenizer.Diagnostics() {
		p.tree.AddDiagnostic(d)
	}

	if err := p.cancelled(); err != nil {
		p.logger.Warn().Err(err).Str("file", filename).Msg("parse cancelled")
		return p.tree, err
	}

	for _, d := range p.tree.Diagnostics {
		p.logger.Debug().Str("file", filename).Str("diagnostic", d.Error()).Msg("diagnostic")
	}
	p.logger.Debug().
		Str("file", filename).
		Int("declarations", len(p.tree.Declarations)).
		Int("diagnostics", len(p.tree.Diagnostics)).
		Msg("parse complete")
	return p.tree, nil
}

// FilterTokens returns the token stream after conditional filtering, as the
// recognizer sees it, with comments and directives left in place
func (p *Parser) FilterTokens(content string) ([]token.Token, []ast.Diagnostic) {
	var diags []ast.Diagnostic
	tokenizer := NewTokenizer(content)
	tokenizer.SetMaxTokens(p.maxTokens)
	tracker := newConditionalTracker(tokenizer, p.defines, p.undefined, p.strictConditionals, func(d ast.Diagnostic) {
		diags = append(diags, d)
	})
	var tokens []token.Token
	for {
		t := tracker.Next()
		tokens = append(tokens, t)
		if t.Kind == token.EOF {
			break
		}
	}
	return tokens, append(diags, tokenizer.Diagnostics()...)
}

// cancelled returns the context error once the parse has to stop
func (p *Parser) cancelled() error {
	if err := p.tokenCache.Err(); err != nil {
		return err
	}
	if p.ctx != nil {
		return p.ctx.Err()
	}
	return nil
}

// parseDeclarations parses declarations until end of input or, inside a
// body, until the closing brace, which is left for the caller
func (p *Parser) parseDeclarations(inBody bool) {
	for {
		p.flushDirectives()
		if p.cancelled() != nil {
			return
		}
		if p.tokenCache.isAtEnd() {
			if inBody {
				p.report(ast.DiagRecognition, p.tokenCache.peek().Pos, "expected '}' before end of input")
			}
			return
		}
		if p.tokenCache.check("}") {
			if inBody {
				return
			}
			p.report(ast.DiagRecognition, p.tokenCache.peek().Pos, "unmatched '}'")
			p.tokenCache.advance()
			continue
		}

		start := p.tokenCache.getCurrentPosition()
		p.pendingDoc = nil
		if doc, ok := p.tokenCache.docAt(start); ok {
			p.pendingDoc = &doc
		}
		p.parseDeclaration()
		if p.tokenCache.getCurrentPosition() == start {
			p.tokenCache.advance()
		}
	}
}

// parseDeclaration dispatches on the first token of a declaration
func (p *Parser) parseDeclaration() {
	tok := p.tokenCache.peek()
	start := p.tokenCache.getCurrentPosition()

	switch {
	case tok.Is(";"):
		p.tokenCache.advance()
	case tok.Is("namespace"):
		p.parseNamespace()
	case tok.Is("inline") && p.tokenCache.checkAhead(1, "namespace"):
		p.tokenCache.advance()
		p.parseNamespace()
	case tok.Is("template"):
		p.parseTemplate()
	case tok.Is("class"), tok.Is("struct"), tok.Is("union"):
		p.parseClass(start, nil)
	case tok.Is("enum"):
		p.parseEnum(start, nil)
	case tok.Is("typedef"):
		p.parseTypedef()
	case tok.Is("using"):
		p.parseUsing(start, nil)
	case p.isAccessSpecifier():
		p.parseAccessSpecifier()
	case tok.Is("friend"):
		p.parseFriend(start, nil)
	case tok.Is("extern") && p.tokenCache.checkAhead(1, "template"):
		p.tokenCache.advance()
		p.parseTemplate()
	case tok.Is("extern") && p.tokenCache.peekAhead(1).Kind == token.String:
		p.parseLinkage()
	case tok.Is("static_assert"):
		p.parseOther(start, "static_assert")
	default:
		if n, keyword := p.leadingSpecifiers(); keyword != "" {
			p.tokenCache.setPosition(start + n)
			if keyword == "enum" {
				p.parseEnum(start, nil)
			} else {
				p.parseClass(start, nil)
			}
			return
		}
		if p.isMacroStatement() {
			p.parseMacroStatement()
			return
		}
		p.parseFunctionOrVariable(start, nil)
	}
}

// report records a diagnostic
func (p *Parser) report(kind ast.DiagKind, pos token.Position, format string, args ...interface{}) {
	p.tree.AddDiagnostic(ast.NewDiagnostic(kind, pos, format, args...))
}

// reportError records err when it is a diagnostic
func (p *Parser) reportError(err error) {
	if d, ok := err.(ast.Diagnostic); ok {
		p.tree.AddDiagnostic(d)
	}
}

// skipToNextEntity skips to the next ';' at depth 0, consuming it, or stops before an
// unmatched '}'
func (p *Parser) skipToNextEntity() {
	depth := 0
	for !p.tokenCache.isAtEnd() {
		t := p.tokenCache.peek()
		switch {
		case t.Is("(") || t.Is("[") || t.Is("{"):
			depth++
		case t.Is(")") || t.Is("]"):
			if depth > 0 {
				depth--
			}
		case t.Is("}"):
			if depth == 0 {
				return
			}
			depth--
			if depth == 0 {
				p.tokenCache.advance()
				if p.tokenCache.check(";") {
					p.tokenCache.advance()
				}
				return
			}
		case t.Is(";") && depth == 0:
			p.tokenCache.advance()
			return
		}
		p.tokenCache.advance()
	}
}

// expect consumes value or reports a recognition error and recovers
func (p *Parser) expect(value, context string) bool {
	if p.tokenCache.match(value) {
		return true
	}
	t := p.tokenCache.peek()
	if t.Kind == token.EOF {
		p.report(ast.DiagRecognition, t.Pos, "expected '%s' %s, got end of input", value, context)
	} else {
		p.report(ast.DiagRecognition, t.Pos, "expected '%s' %s, got '%s'", value, context, t.Value)
	}
	return false
}

// flushDirectives records the #include and #define directives seen so far
func (p *Parser) flushDirectives() {
	p.tokenCache.peek()
	for _, tok := range p.tokenCache.takeDirectives(p.tokenCache.getCurrentPosition()) {
		p.parsePreprocessor(tok)
	}
}
