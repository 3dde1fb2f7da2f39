// Package asttest is a minimal, parser-independent ast.Element
// implementation used by the core merge engine's own tests, so they don't
// depend on javasrc's tree-sitter grammar to build fixture trees.
package asttest

import "javamerge/ast"

type metadata struct{ m map[string]interface{} }

func newMetadata() *metadata { return &metadata{m: make(map[string]interface{})} }

func (m *metadata) Get(k string) (interface{}, bool) { v, ok := m.m[k]; return v, ok }
func (m *metadata) Set(k string, v interface{})      { m.m[k] = v }
func (m *metadata) Delete(k string)                  { delete(m.m, k) }
func (m *metadata) Keys() []string {
	out := make([]string, 0, len(m.m))
	for k := range m.m {
		out = append(out, k)
	}
	return out
}

// Node is an in-memory ast.Element: a Kind, its own source text, a parent
// pointer, the role it occupies under that parent, and an ordered table of
// role -> children.
type Node struct {
	kind         ast.Kind
	source       string
	parent       ast.Element
	roleInParent ast.Role
	roleOrder    []ast.Role
	children     map[ast.Role][]ast.Element
	meta         *metadata
	pos          ast.Position
}

// New creates a detached Node of the given kind with the given own source
// text (the text printer.renderText / single-revision shortcutting use).
func New(kind ast.Kind, source string) *Node {
	return &Node{kind: kind, source: source, children: make(map[ast.Role][]ast.Element), meta: newMetadata()}
}

// Add appends child under role on n, setting child's parent/role pointers.
// Role order is first-seen order, matching Roles()'s declared-order
// contract.
func (n *Node) Add(role ast.Role, child *Node) *Node {
	if _, ok := n.children[role]; !ok {
		n.roleOrder = append(n.roleOrder, role)
	}
	child.parent = n
	child.roleInParent = role
	n.children[role] = append(n.children[role], child)
	return n
}

// WithMeta sets a metadata key and returns n, for fluent construction.
func (n *Node) WithMeta(key string, value interface{}) *Node {
	n.meta.Set(key, value)
	return n
}

// WithModifiers sets the MODIFIER content extractor's backing metadata.
func (n *Node) WithModifiers(mods ...ast.Modifier) *Node {
	set := make(map[ast.Modifier]bool, len(mods))
	for _, m := range mods {
		set[m] = true
	}
	return n.WithMeta("modifiers", set)
}

func (n *Node) Kind() ast.Kind         { return n.kind }
func (n *Node) Parent() ast.Element    { return n.parent }
func (n *Node) RoleInParent() ast.Role { return n.roleInParent }
func (n *Node) SetRoleInParent(r ast.Role) { n.roleInParent = r }

func (n *Node) Roles() []ast.Role {
	out := make([]ast.Role, len(n.roleOrder))
	copy(out, n.roleOrder)
	return out
}

func (n *Node) Children(role ast.Role) []ast.Element {
	kids := n.children[role]
	out := make([]ast.Element, len(kids))
	copy(out, kids)
	return out
}

func (n *Node) SetChildren(role ast.Role, children []ast.Element) {
	if _, ok := n.children[role]; !ok {
		n.roleOrder = append(n.roleOrder, role)
	}
	n.children[role] = children
}

// Clone returns a detached copy of n's own fields (kind, source, metadata)
// with no parent and no children, per ast.Element's contract.
func (n *Node) Clone() ast.Element {
	clone := &Node{kind: n.kind, source: n.source, children: make(map[ast.Role][]ast.Element), meta: newMetadata(), pos: n.pos}
	for _, k := range n.meta.Keys() {
		v, _ := n.meta.Get(k)
		clone.meta.Set(k, v)
	}
	return clone
}

func (n *Node) Metadata() ast.Metadata     { return n.meta }
func (n *Node) Position() ast.Position     { return n.pos }
func (n *Node) SetPosition(p ast.Position) { n.pos = p }
func (n *Node) Source() string             { return n.source }
