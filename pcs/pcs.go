// Package pcs builds the PCS (Parent/Child/Successor) triples that encode a
// tree's ordered structure (spec.md §3.2, §4.2).
package pcs

import (
	"javamerge/ast"
	"javamerge/node"
)

// Pcs is one adjacency edge in an ordered child list: Root is the owner
// (concrete or role-group) and Predecessor/Successor are adjacent siblings,
// one of which may be a list edge.
type Pcs struct {
	Root        *node.Node
	Predecessor *node.Node
	Successor   *node.Node
	Revision    ast.Revision
}

// Key is Pcs stripped of its Revision field. Per spec.md §3.2, equality and
// hashing of PCS triples ignore revision, so Key is what changeset uses as
// a map key.
type Key struct {
	Root        *node.Node
	Predecessor *node.Node
	Successor   *node.Node
}

func (p Pcs) Key() Key {
	return Key{Root: p.Root, Predecessor: p.Predecessor, Successor: p.Successor}
}

// Build walks root (and everything structurally beneath it) and returns the
// set of PCS triples describing its ordered structure, all tagged with
// revision. root is wrapped as the single element of the factory's
// virtual root's child list (no role is assigned), matching spec.md §3.1's "virtual
// root whose sole child list contains all compilation-unit/module roots."
//
// Build also stamps every visited element's revision metadata entry, so
// later stages (role resolution, single-revision shortcutting) can recover
// provenance directly from the ast.Element without consulting the Node.
func Build(root ast.Element, revision ast.Revision, factory *node.Factory) []Pcs {
	var triples []Pcs

	vroot := factory.VirtualRoot()
	rootNode := factory.Wrap(root, vroot, revision)
	stampRevision(root, revision)

	triples = append(triples, chain(factory, vroot, revision, []*node.Node{rootNode})...)
	triples = append(triples, visit(factory, rootNode, root, revision)...)

	return triples
}

func stampRevision(e ast.Element, revision ast.Revision) {
	e.Metadata().Set(ast.MetaRevision, revision)
}

// visit emits the PCS triples for e's own child lists and recurses into
// each child, wrapping it against owner (e's Node) or, when e exposes more
// than one structural role, against a dedicated role-group Node per role.
func visit(factory *node.Factory, n *node.Node, e ast.Element, revision ast.Revision) []Pcs {
	var triples []Pcs

	roles := e.Roles()
	needsGroups := node.NeedsRoleGroup(e)

	for _, role := range roles {
		owner := n
		if needsGroups {
			owner = factory.RoleGroup(n, role)
		}

		children := e.Children(role)
		childNodes := make([]*node.Node, 0, len(children))
		for _, c := range children {
			cn := factory.Wrap(c, n, revision)
			stampRevision(c, revision)
			childNodes = append(childNodes, cn)
		}

		triples = append(triples, chain(factory, owner, revision, childNodes)...)

		for i, c := range children {
			triples = append(triples, visit(factory, childNodes[i], c, revision)...)
		}
	}

	return triples
}

// chain emits (owner, START, c1), (owner, ci, ci+1)..., (owner, cn, END) —
// or just (owner, START, END) if children is empty, per spec.md §4.2.
func chain(factory *node.Factory, owner *node.Node, revision ast.Revision, children []*node.Node) []Pcs {
	start := factory.StartOfChildList(owner)
	end := factory.EndOfChildList(owner)

	if len(children) == 0 {
		return []Pcs{{Root: owner, Predecessor: start, Successor: end, Revision: revision}}
	}

	triples := make([]Pcs, 0, len(children)+1)
	prev := start
	for _, c := range children {
		triples = append(triples, Pcs{Root: owner, Predecessor: prev, Successor: c, Revision: revision})
		prev = c
	}
	triples = append(triples, Pcs{Root: owner, Predecessor: prev, Successor: end, Revision: revision})
	return triples
}
