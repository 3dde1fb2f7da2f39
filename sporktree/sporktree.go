// Package sporktree builds the intermediate ("Spork") tree from a resolved
// T* (spec.md §4.8): a rooted tree annotated with per-node revision
// provenance and structural-conflict markers, ready for the output-tree
// builder to materialize into a real AST.
package sporktree

import (
	"javamerge/ast"
	"javamerge/changeset"
	"javamerge/linemerge"
	"javamerge/node"
	"javamerge/pcs"
)

// ConflictType classifies a structural conflict for the handler registry
// (spec.md §4.7).
type ConflictType int

const (
	InsertInsert ConflictType = iota
	InsertDelete
	DeleteDelete
	DeleteEdit
	Move
)

// StructuralHandler may resolve a structural conflict by returning a
// replacement child list, or decline by returning ok=false.
type StructuralHandler func(left, right []*node.Node, conflictType ConflictType) (merged []*node.Node, ok bool)

// Conflict records an irreducible structural disagreement (spec.md §3.6).
type Conflict struct {
	Left       []ast.Element
	Right      []ast.Element
	LineMerge  string
	Conflicted bool
}

// Tree is one node of the intermediate tree. Node is nil for a conflict
// dummy (Conflict is then non-nil).
type Tree struct {
	Node      *node.Node
	Content   ast.RoledValues
	Children  []*Tree
	Revisions map[ast.Revision]bool
	Conflict  *Conflict

	// Role is the structural role this Tree occupies under its parent's
	// output element — the role-group the owning Builder walked to produce
	// it, authoritative over whatever Node.Element().RoleInParent() says
	// about any one contributing revision.
	Role ast.Role

	SingleRevision  bool
	OriginalElement ast.Element
}

// errFallback signals that a child-list region could not be resolved
// structurally (spec.md's MergeError::UnresolvableChildList / MoveConflict)
// and the enclosing subtree must fall back to a whole-subtree line merge.
type errFallback struct {
	left, right []ast.Element
}

func (e *errFallback) Error() string { return "unresolvable child list" }

// Builder constructs Trees over a resolved T*.
type Builder struct {
	delta    *changeset.T
	factory  *node.Factory
	handlers []StructuralHandler
	used     map[*node.Node]bool
}

// NewBuilder creates a Builder over delta (already run through resolve.Run),
// sharing the same node.Factory the PCS builders and matcher used.
func NewBuilder(delta *changeset.T, factory *node.Factory) *Builder {
	return &Builder{delta: delta, factory: factory, used: make(map[*node.Node]bool)}
}

// RegisterHandler adds a StructuralHandler, tried in registration order.
func (b *Builder) RegisterHandler(h StructuralHandler) {
	b.handlers = append(b.handlers, h)
}

// Build constructs the Tree rooted at owner (typically the virtual root).
func (b *Builder) Build(owner *node.Node) *Tree {
	children, err := b.buildChildList(owner)
	if err != nil {
		return fallbackTree(owner, err.(*errFallback))
	}
	return &Tree{
		Node:      owner,
		Children:  children,
		Revisions: unionRevisions(owner, children),
	}
}

func fallbackTree(owner *node.Node, fb *errFallback) *Tree {
	leftText, rightText := joinSource(fb.left), joinSource(fb.right)
	merged, conflicted := linemerge.Merge("", leftText, rightText)
	return &Tree{
		Node: owner,
		Conflict: &Conflict{
			Left:       fb.left,
			Right:      fb.right,
			LineMerge:  merged,
			Conflicted: conflicted,
		},
	}
}

func joinSource(elems []ast.Element) string {
	s := ""
	for i, e := range elems {
		if i > 0 {
			s += "\n"
		}
		s += e.Source()
	}
	return s
}

// buildNode builds the Tree for a single concrete child node, resolving its
// own child lists (transparently flattening any role groups it owns).
func (b *Builder) buildNode(n *node.Node) (*Tree, error) {
	children, err := b.buildChildrenOf(n)
	if err != nil {
		return fallbackTree(n, err.(*errFallback)), nil
	}

	content := ast.RoledValues{}
	if cs := b.delta.Contents(n); len(cs) > 0 {
		content = cs[0].Value
	}

	tree := &Tree{
		Node:      n,
		Content:   content,
		Children:  children,
		Revisions: unionRevisions(n, children),
	}

	if len(tree.Revisions) == 1 && !tree.Revisions[ast.Base] {
		tree.SingleRevision = true
		tree.OriginalElement = n.Element()
	}

	return tree, nil
}

func unionRevisions(n *node.Node, children []*Tree) map[ast.Revision]bool {
	out := make(map[ast.Revision]bool)
	if n != nil && n.Kind() == node.Concrete {
		out[n.Revision()] = true
	}
	for _, c := range children {
		for r := range c.Revisions {
			out[r] = true
		}
	}
	return out
}

// buildChildrenOf builds n's children, transparently flattening any
// role-group lists n owns (spec.md §4.8: "role-group nodes are traversed
// transparently").
func (b *Builder) buildChildrenOf(n *node.Node) ([]*Tree, error) {
	e := n.Element()
	if e == nil {
		return b.buildChildList(n)
	}
	if !node.NeedsRoleGroup(e) {
		kids, err := b.buildChildList(n)
		if err != nil {
			return nil, err
		}
		if roles := e.Roles(); len(roles) == 1 {
			stampRole(kids, roles[0])
		}
		return kids, nil
	}

	var out []*Tree
	for _, role := range e.Roles() {
		rg, ok := b.factory.LookupRoleGroup(n, role)
		if !ok {
			continue
		}
		kids, err := b.buildChildList(rg)
		if err != nil {
			return nil, err
		}
		stampRole(kids, role)
		out = append(out, kids...)
	}
	return out, nil
}

func stampRole(trees []*Tree, role ast.Role) {
	for _, t := range trees {
		t.Role = role
	}
}

func (b *Builder) startEdge(owner *node.Node) *node.Node { return b.factory.StartOfChildList(owner) }

func (b *Builder) isEndEdge(owner, n *node.Node) bool {
	return n == b.factory.EndOfChildList(owner)
}

// buildChildList implements the core chain-walking algorithm of spec.md
// §4.8's build(current): follow predecessor→successor edges from current's
// START list-edge to its END, resolving successor conflicts via the
// registered StructuralHandlers and detecting move conflicts along the way.
func (b *Builder) buildChildList(owner *node.Node) ([]*Tree, error) {
	pred := b.startEdge(owner)

	var out []*Tree
	for {
		nexts := b.delta.ChainFrom(owner, pred)
		if len(nexts) == 0 {
			break
		}
		if len(nexts) == 1 {
			succ := nexts[0].Successor
			if b.isEndEdge(owner, succ) {
				break
			}
			if b.used[succ] {
				return nil, &errFallback{left: []ast.Element{succ.Element()}}
			}
			b.used[succ] = true
			tree, err := b.buildNode(succ)
			if err != nil {
				return nil, err
			}
			out = append(out, tree)
			pred = succ
			continue
		}

		leftNodes, rightNodes, closeSucc, closed := b.extractConflictRegion(owner, nexts)
		if !closed {
			return nil, &errFallback{left: elementsOf(leftNodes), right: elementsOf(rightNodes)}
		}

		if merged, ok := b.resolveConflict(leftNodes, rightNodes); ok {
			for _, mn := range merged {
				if b.used[mn] {
					return nil, &errFallback{left: elementsOf(leftNodes), right: elementsOf(rightNodes)}
				}
				b.used[mn] = true
				tree, err := b.buildNode(mn)
				if err != nil {
					return nil, err
				}
				out = append(out, tree)
			}
		} else {
			out = append(out, conflictChild(leftNodes, rightNodes))
		}

		if b.isEndEdge(owner, closeSucc) {
			break
		}
		pred = lastOrOwner(leftNodes, pred)
	}

	return out, nil
}

func lastOrOwner(nodes []*node.Node, fallback *node.Node) *node.Node {
	if len(nodes) == 0 {
		return fallback
	}
	return nodes[len(nodes)-1]
}

func conflictChild(left, right []*node.Node) *Tree {
	leftEls, rightEls := elementsOf(left), elementsOf(right)
	merged, conflicted := linemerge.Merge("", joinSource(leftEls), joinSource(rightEls))
	return &Tree{
		Conflict: &Conflict{
			Left:       leftEls,
			Right:      rightEls,
			LineMerge:  merged,
			Conflicted: conflicted,
		},
	}
}

func elementsOf(nodes []*node.Node) []ast.Element {
	out := make([]ast.Element, 0, len(nodes))
	for _, n := range nodes {
		if n.Element() != nil {
			out = append(out, n.Element())
		}
	}
	return out
}

// extractConflictRegion resolves a successor conflict at owner (two live
// triples sharing root+predecessor) into the LEFT and RIGHT insertion
// chains, by walking each candidate's own revision forward to the point
// where it rejoins owner's END edge. Only a clean two-way LEFT/RIGHT split
// is modeled — anything else (an inner ambiguity along either walk, or a
// conflict not attributable to exactly one LEFT and one RIGHT edge) is
// reported unresolvable and the caller falls back to a line merge.
func (b *Builder) extractConflictRegion(owner *node.Node, nexts []pcs.Pcs) ([]*node.Node, []*node.Node, *node.Node, bool) {
	if len(nexts) != 2 {
		return nil, nil, nil, false
	}

	var leftStart, rightStart *pcs.Pcs
	for i := range nexts {
		switch nexts[i].Revision {
		case ast.Left:
			leftStart = &nexts[i]
		case ast.Right:
			rightStart = &nexts[i]
		}
	}
	if leftStart == nil || rightStart == nil {
		return nil, nil, nil, false
	}

	leftNodes, leftTerm, ok := b.walkToTerminal(owner, leftStart.Successor)
	if !ok {
		return nil, nil, nil, false
	}
	rightNodes, rightTerm, ok := b.walkToTerminal(owner, rightStart.Successor)
	if !ok {
		return nil, nil, nil, false
	}
	if leftTerm != rightTerm {
		return nil, nil, nil, false
	}
	return leftNodes, rightNodes, leftTerm, true
}

// walkToTerminal follows a single unambiguous predecessor->successor chain
// from start until it reaches owner's END edge, collecting the concrete
// nodes traversed. Returns ok=false if the chain hits a further ambiguity
// (a nested conflict this builder does not attempt to resolve inline).
func (b *Builder) walkToTerminal(owner, start *node.Node) ([]*node.Node, *node.Node, bool) {
	var nodes []*node.Node
	cur := start
	const maxSteps = 4096
	for step := 0; step < maxSteps; step++ {
		if b.isEndEdge(owner, cur) {
			return nodes, cur, true
		}
		nodes = append(nodes, cur)
		next := b.delta.ChainFrom(owner, cur)
		if len(next) != 1 {
			return nil, nil, false
		}
		cur = next[0].Successor
	}
	return nil, nil, false
}

func (b *Builder) resolveConflict(left, right []*node.Node) ([]*node.Node, bool) {
	conflictType := classifyConflict(left, right)
	for _, h := range b.handlers {
		if merged, ok := h(left, right, conflictType); ok {
			return merged, true
		}
	}
	return nil, false
}

// classifyConflict determines which ConflictType (spec.md §4.7) a
// successor-conflict region represents, from the BASE-origin membership of
// each side's proposed chain. A node's Revision() reads as ast.Base exactly
// when match.Build unified it onto its BASE match — regardless of which
// revision's PCS pass first produced the walk — so this needs no extra
// plumbing beyond the node identities extractConflictRegion already walked.
//
// DELETE_DELETE is not reachable through this region-local signal: a
// genuine "both sides deleted the same BASE element" never surfaces as a
// two-way successor conflict in the first place (both chains agree to skip
// it), so the enum value exists for handlers that might be driven off
// T*/baseT directly but this builder never produces it.
func classifyConflict(left, right []*node.Node) ConflictType {
	leftBase, rightBase := anyFromBase(left), anyFromBase(right)

	switch {
	case !leftBase && !rightBase:
		return InsertInsert
	case leftBase && rightBase:
		if allFromBase(left) && allFromBase(right) {
			return Move
		}
		return DeleteEdit
	case leftBase && !rightBase:
		if len(right) == 0 {
			return DeleteEdit
		}
		return InsertDelete
	default:
		if len(left) == 0 {
			return DeleteEdit
		}
		return InsertDelete
	}
}

func anyFromBase(nodes []*node.Node) bool {
	for _, n := range nodes {
		if n.Revision() == ast.Base {
			return true
		}
	}
	return false
}

func allFromBase(nodes []*node.Node) bool {
	if len(nodes) == 0 {
		return false
	}
	for _, n := range nodes {
		if n.Revision() != ast.Base {
			return false
		}
	}
	return true
}
