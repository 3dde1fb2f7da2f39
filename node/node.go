// Package node implements the Node model (spec.md §3.1, §4.1): an
// identity-based wrapper around ast.Element with virtual list-edge,
// role-group, and root nodes.
package node

import "javamerge/ast"

// Kind distinguishes the four Node variants of spec.md §3.1.
type Kind int

const (
	Concrete Kind = iota
	RoleGroup
	ListEdge
	VirtualRoot
)

func (k Kind) String() string {
	switch k {
	case Concrete:
		return "Concrete"
	case RoleGroup:
		return "RoleGroup"
	case ListEdge:
		return "ListEdge"
	case VirtualRoot:
		return "VirtualRoot"
	default:
		return "Unknown"
	}
}

// Node uniquely identifies a position in a source AST. Equality is by Go
// pointer identity: a Factory caches exactly one *Node per (element), per
// (owner, role) role group, or per (owner, side) list edge, so two Nodes are equal iff they are the
// same pointer — the identity-key invariant of spec.md §3.1 falls out of
// Go's map semantics rather than a hand-rolled integer key.
type Node struct {
	id       uint64
	kind     Kind
	element  ast.Element // nil for virtual nodes
	parent   *Node       // nil only for the virtual root
	role     ast.Role    // meaningful for RoleGroup and ListEdge nodes
	isStart  bool        // meaningful for ListEdge nodes
	revision ast.Revision
}

func (n *Node) ID() uint64            { return n.id }
func (n *Node) Kind() Kind            { return n.kind }
func (n *Node) Element() ast.Element  { return n.element }
func (n *Node) Parent() *Node         { return n.parent }
func (n *Node) Role() ast.Role        { return n.role }
func (n *Node) IsStart() bool         { return n.isStart }
func (n *Node) Revision() ast.Revision { return n.revision }

func (n *Node) IsStartEdge() bool { return n.kind == ListEdge && n.isStart }
func (n *Node) IsEndEdge() bool   { return n.kind == ListEdge && !n.isStart }

type listEdgeKey struct {
	owner *Node
	start bool
}

type roleGroupKey struct {
	owner *Node
	role  ast.Role
}

// Factory wraps ast.Element values into Nodes, lazily and idempotently, and
// mints the virtual nodes (list edges, role groups, the root) a single
// merge needs. A Factory is scoped to exactly one merge call: per spec.md
// §5, re-entrance from multiple goroutines is unsafe.
type Factory struct {
	nextID      uint64
	byElement   map[ast.Element]*Node
	roleGroups  map[roleGroupKey]*Node
	listEdges   map[listEdgeKey]*Node
	virtualRoot *Node
}

// NewFactory creates an empty Factory with its virtual root already minted.
func NewFactory() *Factory {
	f := &Factory{
		byElement:  make(map[ast.Element]*Node),
		roleGroups: make(map[roleGroupKey]*Node),
		listEdges:  make(map[listEdgeKey]*Node),
	}
	f.virtualRoot = &Node{id: f.allocID(), kind: VirtualRoot}
	return f
}

func (f *Factory) allocID() uint64 {
	f.nextID++
	return f.nextID
}

// VirtualRoot returns the process-global (per-merge) root node.
func (f *Factory) VirtualRoot() *Node { return f.virtualRoot }

// Wrap idempotently returns the Node for e, creating it (with the given
// parent and revision) on first sight. parent should already be wrapped by
// the caller, which in practice always means a top-down PCS traversal.
func (f *Factory) Wrap(e ast.Element, parent *Node, revision ast.Revision) *Node {
	if e == nil {
		return nil
	}
	if n, ok := f.byElement[e]; ok {
		return n
	}
	n := &Node{
		id:       f.allocID(),
		kind:     Concrete,
		element:  e,
		parent:   parent,
		revision: revision,
	}
	f.byElement[e] = n
	return n
}

// ForceWrap replaces any cached wrapper for e with a fresh Node. Used only
// when cloning elements into the output tree (spec.md §4.1), where a clone
// must not collide with its source element's original wrapper.
func (f *Factory) ForceWrap(e ast.Element, parent *Node, revision ast.Revision) *Node {
	n := &Node{
		id:       f.allocID(),
		kind:     Concrete,
		element:  e,
		parent:   parent,
		revision: revision,
	}
	f.byElement[e] = n
	return n
}

// Lookup returns the already-wrapped Node for e, if any.
func (f *Factory) Lookup(e ast.Element) (*Node, bool) {
	n, ok := f.byElement[e]
	return n, ok
}

// RoleGroup idempotently returns the role-group Node segregating owner's
// children in the given role. Only created for elements whose Roles() has
// more than one entry — see the resolved Open Question in DESIGN.md.
func (f *Factory) RoleGroup(owner *Node, role ast.Role) *Node {
	key := roleGroupKey{owner: owner, role: role}
	if n, ok := f.roleGroups[key]; ok {
		return n
	}
	n := &Node{
		id:       f.allocID(),
		kind:     RoleGroup,
		parent:   owner,
		role:     role,
		revision: owner.revision,
	}
	f.roleGroups[key] = n
	return n
}

// LookupRoleGroup returns the role-group Node for (owner, role) without
// creating one — used by the Spork-tree builder to discover which roles
// owner actually has groups for, without polluting the cache with empty
// groups for roles it never used.
func (f *Factory) LookupRoleGroup(owner *Node, role ast.Role) (*Node, bool) {
	n, ok := f.roleGroups[roleGroupKey{owner: owner, role: role}]
	return n, ok
}

// StartOfChildList idempotently returns the START list-edge node owned by
// owner (a concrete node with a single structural role, or a role-group
// node which already carries its role in its own identity).
func (f *Factory) StartOfChildList(owner *Node) *Node {
	return f.listEdge(owner, true)
}

// EndOfChildList idempotently returns the END list-edge node owned by owner.
func (f *Factory) EndOfChildList(owner *Node) *Node {
	return f.listEdge(owner, false)
}

func (f *Factory) listEdge(owner *Node, start bool) *Node {
	key := listEdgeKey{owner: owner, start: start}
	if n, ok := f.listEdges[key]; ok {
		return n
	}
	n := &Node{
		id:       f.allocID(),
		kind:     ListEdge,
		parent:   owner,
		isStart:  start,
		revision: owner.revision,
	}
	f.listEdges[key] = n
	return n
}

// NeedsRoleGroup reports whether e's structural roles must be segregated
// into per-role role-group nodes rather than hung directly off e's own
// Node. See DESIGN.md for why this is role-count-driven rather than a
// hardcoded kind allowlist.
func NeedsRoleGroup(e ast.Element) bool {
	return len(e.Roles()) > 1
}
