// Package match converts element-level Mappings produced by the Differencer
// into the node-level class-representative map (spec.md §3.5, §4.3).
package match

import (
	"javamerge/ast"
	"javamerge/differ"
	"javamerge/node"
)

// ClassRepMap is a surjective map from every node that will ever be
// inserted into T* to its class representative. It is read-only once built.
type ClassRepMap struct {
	rep     map[*node.Node]*node.Node
	members map[*node.Node][]*node.Node
}

// Rep returns n's class representative, defaulting to n itself if n was
// never recorded (e.g. a virtual node minted after construction).
func (c *ClassRepMap) Rep(n *node.Node) *node.Node {
	if r, ok := c.rep[n]; ok {
		return r
	}
	return n
}

// Members returns every node ever unified onto rep (including rep itself):
// the BASE/LEFT/RIGHT occurrences the output-tree builder needs in order to
// compare role-in-parent across revisions (spec.md §4.9 step 3).
func (c *ClassRepMap) Members(rep *node.Node) []*node.Node {
	return c.members[rep]
}

// Identity returns a ClassRepMap that maps every node to itself. Useful for
// tests and for any caller that needs a T* without running real matching.
func Identity() *ClassRepMap {
	return &ClassRepMap{rep: make(map[*node.Node]*node.Node)}
}

// NewForTest builds a ClassRepMap directly from explicit (member, rep)
// pairs, for unit tests of class-rep consumers (e.g. outtree.resolveRole)
// that need fixed membership without running the Differencer + Build
// pipeline.
func NewForTest(pairs ...[2]*node.Node) *ClassRepMap {
	c := &ClassRepMap{}
	for _, p := range pairs {
		c.set(p[0], p[1])
	}
	return c
}

func (c *ClassRepMap) set(n, rep *node.Node) {
	if c.rep == nil {
		c.rep = make(map[*node.Node]*node.Node)
	}
	if c.members == nil {
		c.members = make(map[*node.Node][]*node.Node)
	}
	c.rep[n] = rep
	c.members[rep] = append(c.members[rep], n)
}

// Build implements createClassRepresentatives (spec.md §4.3): it walks
// base/left/right node-by-node, wiring list-edge and role-group nodes to
// the mapping their owning concrete node receives.
func Build(
	factory *node.Factory,
	base, left, right ast.Element,
	baseLeft, baseRight, leftRight differ.Mapping,
) *ClassRepMap {
	c := &ClassRepMap{rep: make(map[*node.Node]*node.Node)}

	c.set(factory.VirtualRoot(), factory.VirtualRoot())

	// 1. Identity on every BASE node (and its virtuals).
	for _, e := range ast.Descendants(base) {
		n, ok := factory.Lookup(e)
		if !ok {
			continue
		}
		c.set(n, n)
		inheritVirtuals(factory, c, n, n)
	}

	// 2. LEFT: map to its BASE match via baseLeft, else self.
	for _, e := range ast.Descendants(left) {
		n, ok := factory.Lookup(e)
		if !ok {
			continue
		}
		if b, found := baseLeft.Src(e); found {
			if bn, ok := factory.Lookup(b); ok {
				c.set(n, bn)
				inheritVirtuals(factory, c, n, bn)
				continue
			}
		}
		c.set(n, n)
		inheritVirtuals(factory, c, n, n)
	}

	// 3. RIGHT: map to its BASE match via baseRight, else self (LEFT↔RIGHT
	// augmentation happens in step 4).
	for _, e := range ast.Descendants(right) {
		n, ok := factory.Lookup(e)
		if !ok {
			continue
		}
		if b, found := baseRight.Src(e); found {
			if bn, ok := factory.Lookup(b); ok {
				c.set(n, bn)
				inheritVirtuals(factory, c, n, bn)
				continue
			}
		}
		c.set(n, n)
		inheritVirtuals(factory, c, n, n)
	}

	// 4. Augment with leftRight, top-down over LEFT.
	augmentLeftRight(factory, c, left, leftRight)

	return c
}

// augmentLeftRight walks LEFT top-down so a node's parent class rep is
// already final by the time the node itself is considered, per spec.md §4.3
// step 4 ("their parents' class reps are already equal").
func augmentLeftRight(factory *node.Factory, c *ClassRepMap, left ast.Element, leftRight differ.Mapping) {
	var walk func(ast.Element)
	walk = func(e ast.Element) {
		ln, ok := factory.Lookup(e)
		if ok && isSelfMapped(c, ln) {
			if r, found := leftRight.Dst(e); found {
				if rn, ok := factory.Lookup(r); ok && isSelfMapped(c, rn) {
					lParent := ln.Parent()
					rParent := rn.Parent()
					if lParent != nil && rParent != nil && c.Rep(lParent) == c.Rep(rParent) {
						c.set(rn, ln)
						inheritVirtuals(factory, c, rn, ln)
					}
				}
			}
		}
		for _, role := range e.Roles() {
			for _, child := range e.Children(role) {
				walk(child)
			}
		}
	}
	walk(left)
}

func isSelfMapped(c *ClassRepMap, n *node.Node) bool {
	return c.Rep(n) == n
}

// inheritVirtuals wires a concrete node's list-edge and role-group virtuals
// to the corresponding virtuals of its class representative (spec.md §3.5
// rule 4): role-group to role-group of the same role, list edge to list
// edge of the same side.
func inheritVirtuals(factory *node.Factory, c *ClassRepMap, n, rep *node.Node) {
	startN, endN := factory.StartOfChildList(n), factory.EndOfChildList(n)
	startRep, endRep := factory.StartOfChildList(rep), factory.EndOfChildList(rep)
	c.set(startN, startRep)
	c.set(endN, endRep)

	for _, role := range rolesOf(n) {
		rgN := factory.RoleGroup(n, role)
		rgRep := factory.RoleGroup(rep, role)
		c.set(rgN, rgRep)

		rgStartN, rgEndN := factory.StartOfChildList(rgN), factory.EndOfChildList(rgN)
		rgStartRep, rgEndRep := factory.StartOfChildList(rgRep), factory.EndOfChildList(rgRep)
		c.set(rgStartN, rgStartRep)
		c.set(rgEndN, rgEndRep)
	}
}

func rolesOf(n *node.Node) []ast.Role {
	e := n.Element()
	if e == nil {
		return nil
	}
	if !node.NeedsRoleGroup(e) {
		return nil
	}
	return e.Roles()
}
