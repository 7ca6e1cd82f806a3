// Package symbols maintains the scope stack and the indexed record table used
// while recognizing declarations.
package symbols

import (
	"fmt"
	"strings"

	"cppdecl/pkg/ast"
)

type recordKey struct {
	scope string
	name  string
}

// Table is the scope stack plus an index of scopes and class-like records.
// All structural changes to the scope tree go through it.
type Table struct {
	tree    *ast.Tree
	stack   []*ast.ScopeNode
	scopes  map[string]*ast.ScopeNode
	records map[recordKey]*ast.Declaration
	anon    int
}

// NewTable creates a table whose stack holds the tree's global scope
func NewTable(tree *ast.Tree) *Table {
	t := &Table{
		tree:    tree,
		stack:   []*ast.ScopeNode{tree.Root},
		scopes:  map[string]*ast.ScopeNode{"": tree.Root},
		records: make(map[recordKey]*ast.Declaration),
	}
	tree.Root.Key = ""
	return t
}

// Push makes s the current scope
func (t *Table) Push(s *ast.ScopeNode) {
	t.stack = append(t.stack, s)
}

// Pop leaves the current scope. The global scope is never popped.
func (t *Table) Pop() {
	if len(t.stack) > 1 {
		t.stack = t.stack[:len(t.stack)-1]
	}
}

// Current returns the innermost scope
func (t *Table) Current() *ast.ScopeNode {
	return t.stack[len(t.stack)-1]
}

// Depth returns the number of scopes on the stack, the global scope included
func (t *Table) Depth() int {
	return len(t.stack)
}

// CurrentPath returns the named segments of the current scope
func (t *Table) CurrentPath() []string {
	return t.Current().Path()
}

// newScope creates a child scope with a unique key
func (t *Table) newScope(kind ast.ScopeKind, name string, parent *ast.ScopeNode) *ast.ScopeNode {
	s := ast.NewScope(kind, name, parent)
	var key string
	if kind.IsAnonymous() || name == "" {
		t.anon++
		key = fmt.Sprintf("%s::@%d", parent.Key, t.anon)
	} else {
		key = parent.Key + "::" + name
	}
	for i := 2; t.scopes[key] != nil; i++ {
		key = fmt.Sprintf("%s::%s#%d", parent.Key, name, i)
	}
	s.Key = key
	t.scopes[key] = s
	return s
}

// Declare records d as a member of the current scope
func (t *Table) Declare(d *ast.Declaration) *ast.Declaration {
	return t.DeclareIn(t.Current(), d)
}

// DeclareIn records d as a member of scope s. FullName and Path are derived
// from s unless already set.
func (t *Table) DeclareIn(s *ast.ScopeNode, d *ast.Declaration) *ast.Declaration {
	d.Owner = s
	if d.Path == nil {
		d.Path = append(s.Path(), splitName(d.Name)...)
	}
	if d.FullName == "" {
		d.FullName = strings.Join(d.Path, "::")
	}
	s.Decls = append(s.Decls, d)
	t.tree.Declarations = append(t.tree.Declarations, d)
	return d
}

// OpenNamespace reopens the named namespace under the current scope or
// creates it, recording d as its declaration. It reports whether the
// namespace already existed.
func (t *Table) OpenNamespace(name string, d *ast.Declaration) (*ast.ScopeNode, bool) {
	cur := t.Current()
	if s := t.scopes[cur.Key+"::"+name]; s != nil && s.Kind == ast.ScopeNamespace && s.Parent == cur {
		return s, true
	}
	s := t.newScope(ast.ScopeNamespace, name, cur)
	t.attach(cur, s, d)
	return s, false
}

// OpenAnonymousNamespace returns the single anonymous namespace of the
// current scope, creating it on first use
func (t *Table) OpenAnonymousNamespace(d *ast.Declaration) (*ast.ScopeNode, bool) {
	cur := t.Current()
	for _, c := range cur.Children {
		if c.Kind == ast.ScopeAnonymousNamespace {
			return c, true
		}
	}
	s := t.newScope(ast.ScopeAnonymousNamespace, "", cur)
	t.attach(cur, s, d)
	return s, false
}

func (t *Table) attach(owner, s *ast.ScopeNode, d *ast.Declaration) {
	if d == nil {
		return
	}
	t.DeclareIn(owner, d)
	d.Scope = s
	s.Owner = d
}

// Record returns the class-like record named name in scope s
func (t *Table) Record(s *ast.ScopeNode, name string) *ast.Declaration {
	return t.records[recordKey{s.Key, name}]
}

// DeclareClass merges a class-like declaration into the record of the same
// name in scope s. A forward declaration merges into any existing record, a
// body upgrades a forward declaration, and a second body is a redefinition:
// the returned error is a RedefinitionError and the later body wins. The
// returned declaration is the surviving record.
func (t *Table) DeclareClass(s *ast.ScopeNode, d *ast.Declaration, hasBody bool) (*ast.Declaration, error) {
	if d.Name == "" {
		return t.DeclareIn(s, d), nil
	}
	key := recordKey{s.Key, d.Name}
	existing := t.records[key]
	if existing == nil {
		t.records[key] = t.DeclareIn(s, d)
		return d, nil
	}
	if !hasBody {
		if existing.Guarded && !d.Guarded && existing.Kind == ast.KindForward {
			existing.Guarded = false
		}
		return existing, nil
	}

	var err error
	if existing.Kind != ast.KindForward {
		err = ast.NewDiagnostic(ast.DiagRedefinition, d.Range.Start,
			"redefinition of %s", existing.FullName)
		t.resetScope(existing.Scope)
	}
	existing.Kind = d.Kind
	existing.Tag = d.Tag
	existing.Bases = d.Bases
	existing.Template = d.Template
	existing.Attributes = d.Attributes
	existing.Body = d.Body
	existing.Range = d.Range
	existing.Guarded = d.Guarded
	existing.Access = d.Access
	if d.Doc != "" {
		existing.Doc, existing.Brief = d.Doc, d.Brief
	}
	if existing.Scope != nil {
		existing.Scope.Kind = classScopeKind(d)
	}
	return existing, err
}

// resetScope discards the members of a class body that is being redefined
func (t *Table) resetScope(s *ast.ScopeNode) {
	if s == nil {
		return
	}
	for key := range t.records {
		if within(key.scope, s.Key) {
			delete(t.records, key)
		}
	}
	for key := range t.scopes {
		if key != s.Key && within(key, s.Key) {
			delete(t.scopes, key)
		}
	}
	kept := t.tree.Declarations[:0]
	for _, d := range t.tree.Declarations {
		if d.Owner == nil || !within(d.Owner.Key, s.Key) {
			kept = append(kept, d)
		}
	}
	clear(t.tree.Declarations[len(kept):])
	t.tree.Declarations = kept
	s.Children = nil
	s.Decls = nil
	s.Usings = nil
	s.Aliases = make(map[string]*ast.ScopeNode)
}

// within reports whether key names scope or one nested inside it
func within(key, scope string) bool {
	return key == scope || strings.HasPrefix(key, scope+"::")
}

// ClassScope returns the body scope of a class-like record, creating it on
// first use so that forward-declared classes can act as qualifiers
func (t *Table) ClassScope(d *ast.Declaration) *ast.ScopeNode {
	if d.Scope != nil {
		return d.Scope
	}
	owner := d.Owner
	if owner == nil {
		owner = t.Current()
	}
	s := t.newScope(classScopeKind(d), d.Name, owner)
	s.Owner = d
	d.Scope = s
	return s
}

func classScopeKind(d *ast.Declaration) ast.ScopeKind {
	if d.Name == "" {
		return ast.ScopeAnonymousClass
	}
	switch d.Tag {
	case "struct":
		return ast.ScopeStruct
	case "union":
		return ast.ScopeUnion
	}
	return ast.ScopeClass
}

// AddUsing nominates namespace ns in the current scope
func (t *Table) AddUsing(ns *ast.ScopeNode) {
	cur := t.Current()
	for _, u := range cur.Usings {
		if u == ns {
			return
		}
	}
	cur.Usings = append(cur.Usings, ns)
}

// AddAlias registers a namespace alias in the current scope
func (t *Table) AddAlias(name string, target *ast.ScopeNode) {
	t.Current().Aliases[name] = target
}

// ResolveQualifier resolves a possibly qualified scope name such as
// "A::B::C" or "::A::B". The first segment is searched from the current
// scope outwards, the rest inside the scope found so far.
func (t *Table) ResolveQualifier(name string) (*ast.ScopeNode, bool) {
	segs := splitName(name)
	if len(segs) == 0 {
		return nil, false
	}
	var s *ast.ScopeNode
	if strings.HasPrefix(strings.TrimSpace(name), "::") {
		s = t.findScopeIn(t.tree.Root, segs[0], map[*ast.ScopeNode]bool{})
	} else {
		for cur := t.Current(); cur != nil && s == nil; cur = cur.Parent {
			s = t.findScopeIn(cur, segs[0], map[*ast.ScopeNode]bool{})
		}
	}
	for _, seg := range segs[1:] {
		if s == nil {
			break
		}
		s = t.findScopeIn(s, seg, map[*ast.ScopeNode]bool{})
	}
	return s, s != nil
}

// findScopeIn looks for a scope called name visible as a member of s
func (t *Table) findScopeIn(s *ast.ScopeNode, name string, visited map[*ast.ScopeNode]bool) *ast.ScopeNode {
	if visited[s] {
		return nil
	}
	visited[s] = true
	if c := s.FindChild(name, true); c != nil {
		return c
	}
	if rec := t.records[recordKey{s.Key, name}]; rec != nil {
		return t.ClassScope(rec)
	}
	if a, ok := s.Aliases[name]; ok {
		return a
	}
	for _, c := range s.Children {
		if c.Kind.IsAnonymous() {
			if found := t.findScopeIn(c, name, visited); found != nil {
				return found
			}
		}
	}
	for _, u := range s.Usings {
		if found := t.findScopeIn(u, name, visited); found != nil {
			return found
		}
	}
	return nil
}

// Lookup finds a declaration by unqualified or qualified name, searching
// from the current scope outwards
func (t *Table) Lookup(name string) *ast.Declaration {
	segs := splitName(name)
	if len(segs) == 0 {
		return nil
	}
	last := segs[len(segs)-1]
	if len(segs) > 1 || strings.HasPrefix(strings.TrimSpace(name), "::") {
		var s *ast.ScopeNode
		if len(segs) == 1 {
			s = t.tree.Root
		} else {
			prefix := strings.Join(segs[:len(segs)-1], "::")
			if strings.HasPrefix(strings.TrimSpace(name), "::") {
				prefix = "::" + prefix
			}
			var ok bool
			if s, ok = t.ResolveQualifier(prefix); !ok {
				return nil
			}
		}
		return t.findDeclIn(s, last, map[*ast.ScopeNode]bool{})
	}
	for cur := t.Current(); cur != nil; cur = cur.Parent {
		if d := t.findDeclIn(cur, last, map[*ast.ScopeNode]bool{}); d != nil {
			return d
		}
	}
	return nil
}

func (t *Table) findDeclIn(s *ast.ScopeNode, name string, visited map[*ast.ScopeNode]bool) *ast.Declaration {
	if visited[s] {
		return nil
	}
	visited[s] = true
	if d := s.FindDecl(name); d != nil {
		return d
	}
	for _, c := range s.Children {
		if c.Kind.IsAnonymous() {
			if d := t.findDeclIn(c, name, visited); d != nil {
				return d
			}
		}
	}
	for _, u := range s.Usings {
		if d := t.findDeclIn(u, name, visited); d != nil {
			return d
		}
	}
	return nil
}

// splitName splits a qualified name into its non-empty segments
func splitName(name string) []string {
	var out []string
	for _, seg := range strings.Split(name, "::") {
		if seg = strings.TrimSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
