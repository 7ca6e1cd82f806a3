package ast

import "strings"

// ScopeKind represents the kind of a scope body
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeNamespace
	ScopeAnonymousNamespace
	ScopeClass
	ScopeStruct
	ScopeUnion
	ScopeAnonymousClass
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeGlobal:
		return "global"
	case ScopeNamespace:
		return "namespace"
	case ScopeAnonymousNamespace:
		return "anonymous-namespace"
	case ScopeClass:
		return "class"
	case ScopeStruct:
		return "struct"
	case ScopeUnion:
		return "union"
	case ScopeAnonymousClass:
		return "anonymous-class"
	default:
		return "unknown"
	}
}

// IsAnonymous reports whether scopes of this kind have no name segment
func (k ScopeKind) IsAnonymous() bool {
	return k == ScopeAnonymousNamespace || k == ScopeAnonymousClass
}

// IsNamespace reports whether the scope is a namespace body
func (k ScopeKind) IsNamespace() bool {
	return k == ScopeNamespace || k == ScopeAnonymousNamespace
}

// ScopeNode represents one namespace or class body
type ScopeNode struct {
	Kind ScopeKind
	Name string

	// Prefix holds qualifier segments that could not be resolved to a scope,
	// e.g. Abc for "class Abc::Xyz {}" when Abc is unknown.
	Prefix []string

	Parent   *ScopeNode
	Children []*ScopeNode
	Decls    []*Declaration

	// Owner is the namespace or class declaration this scope belongs to
	Owner *Declaration

	// Usings are namespaces nominated by using-directives in this scope
	Usings []*ScopeNode
	// Aliases maps namespace alias names to their target scopes
	Aliases map[string]*ScopeNode

	// Key identifies the scope uniquely, anonymous scopes included
	Key string
}

// NewScope creates a scope node attached to parent
func NewScope(kind ScopeKind, name string, parent *ScopeNode) *ScopeNode {
	s := &ScopeNode{
		Kind:    kind,
		Name:    name,
		Parent:  parent,
		Aliases: make(map[string]*ScopeNode),
	}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

// Path returns the named segments from the global scope to this scope
func (s *ScopeNode) Path() []string {
	var rev [][]string
	for cur := s; cur != nil; cur = cur.Parent {
		var segs []string
		segs = append(segs, cur.Prefix...)
		if cur.Name != "" {
			segs = append(segs, cur.Name)
		}
		if len(segs) > 0 {
			rev = append(rev, segs)
		}
	}
	var path []string
	for i := len(rev) - 1; i >= 0; i-- {
		path = append(path, rev[i]...)
	}
	return path
}

// Qualify builds the full name of a member called name
func (s *ScopeNode) Qualify(name string) string {
	path := s.Path()
	if name != "" {
		path = append(path, name)
	}
	return joinPath(path)
}

// FindChild finds a direct child scope by kind family and name
func (s *ScopeNode) FindChild(name string, namespace bool) *ScopeNode {
	for _, c := range s.Children {
		if c.Name == name && c.Kind.IsNamespace() == namespace && len(c.Prefix) == 0 {
			return c
		}
	}
	return nil
}

// FindDecl finds a direct member declaration by name
func (s *ScopeNode) FindDecl(name string) *Declaration {
	for _, d := range s.Decls {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// AllDeclarations returns the declarations of this scope and all nested
// scopes, depth-first in declaration order
func (s *ScopeNode) AllDeclarations() []*Declaration {
	var out []*Declaration
	for _, d := range s.Decls {
		out = append(out, d)
		if d.Scope != nil && d.Scope.Owner == d {
			out = append(out, d.Scope.AllDeclarations()...)
		}
	}
	return out
}

func joinPath(path []string) string {
	return strings.Join(path, "::")
}
