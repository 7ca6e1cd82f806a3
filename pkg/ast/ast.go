// Package ast defines the declaration tree produced by the C++ declaration parser
package ast

import (
	"strings"

	"cppdecl/pkg/token"
)

// Range represents a range in the source file
type Range struct {
	Start token.Position `json:"start" yaml:"start"`
	End   token.Position `json:"end" yaml:"end"`
}

// DeclKind tags the variant of a Declaration
type DeclKind int

const (
	KindOther DeclKind = iota
	KindForward
	KindClass
	KindStruct
	KindUnion
	KindNamespace
	KindNamespaceAlias
	KindUsingDirective
	KindUsingDeclaration
	KindTypedef
	KindEnum
	KindEnumForward
	KindFunction
	KindVariable
	KindFriend
	KindTemplate
	KindInclude
	KindDefine
)

var declKindNames = map[DeclKind]string{
	KindOther:            "other",
	KindForward:          "forward-declaration",
	KindClass:            "class",
	KindStruct:           "struct",
	KindUnion:            "union",
	KindNamespace:        "namespace",
	KindNamespaceAlias:   "namespace-alias",
	KindUsingDirective:   "using-directive",
	KindUsingDeclaration: "using-declaration",
	KindTypedef:          "typedef",
	KindEnum:             "enum",
	KindEnumForward:      "enum-forward",
	KindFunction:         "function",
	KindVariable:         "variable",
	KindFriend:           "friend",
	KindTemplate:         "template",
	KindInclude:          "include",
	KindDefine:           "define",
}

func (k DeclKind) String() string {
	if name, ok := declKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseDeclKind maps a kind name back to its DeclKind
func ParseDeclKind(name string) (DeclKind, bool) {
	for k, n := range declKindNames {
		if n == name {
			return k, true
		}
	}
	return KindOther, false
}

// MarshalText renders kinds by name in JSON and YAML output
func (k DeclKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// IsClassLike reports whether the kind is a class, struct, union or a
// forward declaration of one
func (k DeclKind) IsClassLike() bool {
	return k == KindForward || k == KindClass || k == KindStruct || k == KindUnion
}

// AccessLevel represents C++ access levels
type AccessLevel int

const (
	AccessUnknown AccessLevel = iota
	AccessPublic
	AccessProtected
	AccessPrivate
)

func (al AccessLevel) String() string {
	switch al {
	case AccessPublic:
		return "public"
	case AccessProtected:
		return "protected"
	case AccessPrivate:
		return "private"
	default:
		return "unknown"
	}
}

// MarshalText renders access levels by name
func (al AccessLevel) MarshalText() ([]byte, error) {
	return []byte(al.String()), nil
}

// Span is an opaque run of tokens that is recorded but not decomposed
type Span struct {
	Range  Range         `json:"range" yaml:"range"`
	Text   string        `json:"text" yaml:"text"`
	Tokens []token.Token `json:"-" yaml:"-"`
}

// NewSpan builds a span over the given tokens
func NewSpan(tokens []token.Token) *Span {
	if len(tokens) == 0 {
		return nil
	}
	cp := make([]token.Token, len(tokens))
	copy(cp, tokens)
	return &Span{
		Range:  Range{Start: cp[0].Pos, End: cp[len(cp)-1].Pos},
		Text:   token.Text(cp),
		Tokens: cp,
	}
}

// BaseSpec is one entry of a class base list
type BaseSpec struct {
	Access  AccessLevel `json:"access,omitempty" yaml:"access,omitempty"`
	Virtual bool        `json:"virtual,omitempty" yaml:"virtual,omitempty"`
	Name    string      `json:"name" yaml:"name"`
	Args    *Span       `json:"args,omitempty" yaml:"args,omitempty"`
}

// String renders the base as it would appear in source
func (b BaseSpec) String() string {
	var parts []string
	if b.Virtual {
		parts = append(parts, "virtual")
	}
	if b.Access != AccessUnknown {
		parts = append(parts, b.Access.String())
	}
	name := b.Name
	if b.Args != nil {
		name += "<" + b.Args.Text + ">"
	}
	return strings.Join(append(parts, name), " ")
}

// Metrics holds simple measurements of a function body
type Metrics struct {
	Lines      int `json:"lines" yaml:"lines"`
	Complexity int `json:"complexity" yaml:"complexity"`
}

// Declaration is one recognized construct
type Declaration struct {
	Kind     DeclKind    `json:"kind" yaml:"kind"`
	Name     string      `json:"name" yaml:"name"`
	FullName string      `json:"fullName" yaml:"fullName"`
	Path     []string    `json:"-" yaml:"-"`
	Tag      string      `json:"tag,omitempty" yaml:"tag,omitempty"` // class, struct or union keyword
	Access   AccessLevel `json:"access,omitempty" yaml:"access,omitempty"`

	Signature  string     `json:"signature,omitempty" yaml:"signature,omitempty"`
	Bases      []BaseSpec `json:"bases,omitempty" yaml:"bases,omitempty"`
	Template   *Span      `json:"template,omitempty" yaml:"template,omitempty"`
	Body       *Span      `json:"body,omitempty" yaml:"body,omitempty"`
	Attributes []Span     `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Underlying *Span      `json:"underlying,omitempty" yaml:"underlying,omitempty"`

	// Target is the aliased or nominated name, the include path or the
	// qualifier of an out-of-line definition.
	Target      string   `json:"target,omitempty" yaml:"target,omitempty"`
	System      bool     `json:"system,omitempty" yaml:"system,omitempty"`
	Value       string   `json:"value,omitempty" yaml:"value,omitempty"`
	Enumerators []string `json:"enumerators,omitempty" yaml:"enumerators,omitempty"`
	Metrics     *Metrics `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Doc         string   `json:"doc,omitempty" yaml:"doc,omitempty"`
	Brief       string   `json:"brief,omitempty" yaml:"brief,omitempty"`

	Guarded             bool `json:"guarded,omitempty" yaml:"guarded,omitempty"`
	UnresolvedQualifier bool `json:"unresolvedQualifier,omitempty" yaml:"unresolvedQualifier,omitempty"`

	Range Range `json:"range" yaml:"range"`

	// Owner is the scope the declaration belongs to; Scope is the body scope
	// of a namespace or class-like declaration.
	Owner *ScopeNode `json:"-" yaml:"-"`
	Scope *ScopeNode `json:"-" yaml:"-"`
}

// IsDefinition reports whether the declaration carries a body
func (d *Declaration) IsDefinition() bool {
	switch d.Kind {
	case KindClass, KindStruct, KindUnion, KindEnum, KindNamespace:
		return true
	case KindFunction, KindTemplate:
		return d.Body != nil
	}
	return false
}

// IsTemplate reports whether the declaration has a template parameter list
func (d *Declaration) IsTemplate() bool {
	return d.Template != nil
}

// Members returns the declarations inside a namespace or class body
func (d *Declaration) Members() []*Declaration {
	if d.Scope == nil {
		return nil
	}
	return d.Scope.Decls
}

// FindMember finds a direct member by name
func (d *Declaration) FindMember(name string) *Declaration {
	if d.Scope == nil {
		return nil
	}
	return d.Scope.FindDecl(name)
}

// Tree is the result of parsing one source unit
type Tree struct {
	ID           string         `json:"id" yaml:"id"`
	Filename     string         `json:"filename" yaml:"filename"`
	Root         *ScopeNode     `json:"-" yaml:"-"`
	Declarations []*Declaration `json:"-" yaml:"-"` // flat list in recognition order
	Diagnostics  []Diagnostic   `json:"diagnostics" yaml:"diagnostics"`
}

// NewTree creates a new tree with an empty global scope
func NewTree(id, filename string) *Tree {
	return &Tree{
		ID:       id,
		Filename: filename,
		Root:     NewScope(ScopeGlobal, "", nil),
	}
}

// AddDiagnostic appends a diagnostic to the tree
func (t *Tree) AddDiagnostic(d Diagnostic) {
	t.Diagnostics = append(t.Diagnostics, d)
}

// FindDeclaration finds a declaration by its full path
func (t *Tree) FindDeclaration(path string) *Declaration {
	path = strings.TrimPrefix(path, "::")
	if path == "" {
		return nil
	}
	for _, d := range t.Declarations {
		if d.FullName == path {
			return d
		}
	}
	return nil
}

// DeclarationsByKind returns all declarations of a specific kind
func (t *Tree) DeclarationsByKind(kind DeclKind) []*Declaration {
	var out []*Declaration
	for _, d := range t.Declarations {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// DiagnosticsOf returns the diagnostics of one kind
func (t *Tree) DiagnosticsOf(kind DiagKind) []Diagnostic {
	var out []Diagnostic
	for _, d := range t.Diagnostics {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}
