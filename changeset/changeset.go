// Package changeset implements the T* change set (spec.md §3.4, §4.4): PCS
// triples keyed by class representative, per-node content, and the
// structural-conflict table.
package changeset

import (
	"javamerge/ast"
	"javamerge/match"
	"javamerge/node"
	"javamerge/pcs"
)

// Content binds a RoledValues snapshot to the class-rep predecessor node of
// the PCS it was observed on (spec.md §3.3).
type Content struct {
	Node     *node.Node
	Value    ast.RoledValues
	Revision ast.Revision
}

// GetContent extracts a node's content from its underlying AST element.
// T* never calls the content resolver directly; it is handed this callback
// at construction time so changeset has no dependency on package content.
type GetContent func(n *node.Node) ast.RoledValues

type entry struct {
	pcs     pcs.Pcs
	removed bool
}

// T is the change set (T*).
type T struct {
	classRep   *match.ClassRepMap
	getContent GetContent

	byKey map[pcs.Key]*entry
	order []pcs.Key

	predIndex map[*node.Node]map[pcs.Key]bool
	succIndex map[*node.Node]map[pcs.Key]bool

	contents map[*node.Node][]Content

	conflicts map[pcs.Key]map[pcs.Key]bool
}

// New constructs an empty T* over the given class-rep map.
func New(classRep *match.ClassRepMap, getContent GetContent) *T {
	return &T{
		classRep:   classRep,
		getContent: getContent,
		byKey:      make(map[pcs.Key]*entry),
		predIndex:  make(map[*node.Node]map[pcs.Key]bool),
		succIndex:  make(map[*node.Node]map[pcs.Key]bool),
		contents:   make(map[*node.Node][]Content),
		conflicts:  make(map[pcs.Key]map[pcs.Key]bool),
	}
}

func (t *T) rewrite(p pcs.Pcs) pcs.Pcs {
	return pcs.Pcs{
		Root:        t.classRep.Rep(p.Root),
		Predecessor: t.classRep.Rep(p.Predecessor),
		Successor:   t.classRep.Rep(p.Successor),
		Revision:    p.Revision,
	}
}

// Add rewrites raw through the class-rep map and inserts it into pcs_set,
// predecessor_index, and successor_index; for non-list-edge predecessors it
// also records the Content extracted from the original (pre-rewrite)
// predecessor's element, indexed by the rewritten class-rep predecessor.
func (t *T) Add(raw pcs.Pcs) {
	rewritten := t.rewrite(raw)
	key := rewritten.Key()

	if e, ok := t.byKey[key]; ok {
		e.removed = false
	} else {
		t.byKey[key] = &entry{pcs: rewritten}
		t.order = append(t.order, key)
		t.indexAdd(t.predIndex, rewritten.Predecessor, key)
		t.indexAdd(t.succIndex, rewritten.Successor, key)
	}

	if raw.Predecessor != nil && raw.Predecessor.Kind() == node.Concrete {
		rv := t.getContent(raw.Predecessor)
		repPred := rewritten.Predecessor
		t.contents[repPred] = append(t.contents[repPred], Content{
			Node:     repPred,
			Value:    rv,
			Revision: raw.Revision,
		})
	}
}

// AddAll adds every triple produced by a PCS build pass.
func (t *T) AddAll(triples []pcs.Pcs) {
	for _, raw := range triples {
		t.Add(raw)
	}
}

func (t *T) indexAdd(idx map[*node.Node]map[pcs.Key]bool, n *node.Node, key pcs.Key) {
	if idx[n] == nil {
		idx[n] = make(map[pcs.Key]bool)
	}
	idx[n][key] = true
}

func (t *T) indexRemove(idx map[*node.Node]map[pcs.Key]bool, n *node.Node, key pcs.Key) {
	if m, ok := idx[n]; ok {
		delete(m, key)
	}
}

// Contains reports whether p (after class-rep rewrite) is a live member of
// pcs_set.
func (t *T) Contains(raw pcs.Pcs) bool {
	rewritten := t.rewrite(raw)
	e, ok := t.byKey[rewritten.Key()]
	return ok && !e.removed
}

// ContainsKey reports liveness directly by (already rewritten) Key.
func (t *T) ContainsKey(k pcs.Key) bool {
	e, ok := t.byKey[k]
	return ok && !e.removed
}

// Lookup returns the live Pcs stored for an already-rewritten key.
func (t *T) Lookup(k pcs.Key) (pcs.Pcs, bool) {
	e, ok := t.byKey[k]
	if !ok || e.removed {
		return pcs.Pcs{}, false
	}
	return e.pcs, true
}

// Remove deletes p from pcs_set and both indices (contents are untouched,
// per spec.md §4.4).
func (t *T) Remove(raw pcs.Pcs) {
	rewritten := t.rewrite(raw)
	key := rewritten.Key()
	e, ok := t.byKey[key]
	if !ok || e.removed {
		return
	}
	e.removed = true
	t.indexRemove(t.predIndex, rewritten.Predecessor, key)
	t.indexRemove(t.succIndex, rewritten.Successor, key)
}

// RemoveKey is Remove for an already-rewritten key.
func (t *T) RemoveKey(key pcs.Key) {
	e, ok := t.byKey[key]
	if !ok || e.removed {
		return
	}
	e.removed = true
	t.indexRemove(t.predIndex, key.Predecessor, key)
	t.indexRemove(t.succIndex, key.Successor, key)
}

// Each iterates live triples in insertion order, the deterministic tie-break
// order spec.md §4.5 requires for reproducible conflict resolution.
func (t *T) Each(fn func(pcs.Pcs)) {
	for _, key := range t.order {
		e := t.byKey[key]
		if e.removed {
			continue
		}
		fn(e.pcs)
	}
}

// Keys returns the live keys in insertion order.
func (t *T) Keys() []pcs.Key {
	var out []pcs.Key
	for _, key := range t.order {
		if !t.byKey[key].removed {
			out = append(out, key)
		}
	}
	return out
}

func (t *T) candidatesSharing(idx map[*node.Node]map[pcs.Key]bool, n *node.Node) []pcs.Pcs {
	var out []pcs.Pcs
	for key := range idx[n] {
		if p, ok := t.Lookup(key); ok {
			out = append(out, p)
		}
	}
	return out
}

// GetOtherRoots returns all live triples sharing predecessor or successor
// with p but differing on root.
func (t *T) GetOtherRoots(p pcs.Pcs) []pcs.Pcs {
	key := p.Key()
	var out []pcs.Pcs
	seen := make(map[pcs.Key]bool)
	for _, cand := range t.candidatesSharing(t.predIndex, p.Predecessor) {
		if cand.Key() != key && cand.Root != p.Root && !seen[cand.Key()] {
			seen[cand.Key()] = true
			out = append(out, cand)
		}
	}
	for _, cand := range t.candidatesSharing(t.succIndex, p.Successor) {
		if cand.Key() != key && cand.Root != p.Root && !seen[cand.Key()] {
			seen[cand.Key()] = true
			out = append(out, cand)
		}
	}
	return out
}

// GetOtherPredecessors returns all live triples sharing successor and root
// with p but differing on predecessor.
func (t *T) GetOtherPredecessors(p pcs.Pcs) []pcs.Pcs {
	var out []pcs.Pcs
	for _, cand := range t.candidatesSharing(t.succIndex, p.Successor) {
		if cand.Root == p.Root && cand.Predecessor != p.Predecessor {
			out = append(out, cand)
		}
	}
	return out
}

// GetOtherSuccessors returns all live triples sharing predecessor and root
// with p but differing on successor.
func (t *T) GetOtherSuccessors(p pcs.Pcs) []pcs.Pcs {
	var out []pcs.Pcs
	for _, cand := range t.candidatesSharing(t.predIndex, p.Predecessor) {
		if cand.Root == p.Root && cand.Successor != p.Successor {
			out = append(out, cand)
		}
	}
	return out
}

// ChainFrom returns the live triples rooted at root whose predecessor is
// pred — normally exactly one (the next edge in the chain), more than one
// only where a successor conflict exists.
func (t *T) ChainFrom(root, pred *node.Node) []pcs.Pcs {
	var out []pcs.Pcs
	for _, cand := range t.candidatesSharing(t.predIndex, pred) {
		if cand.Root == root {
			out = append(out, cand)
		}
	}
	return out
}

// ChainTo returns the live triples rooted at root whose successor is succ —
// normally exactly one, more than one only where a predecessor conflict
// exists (the closing edge of a structural-conflict region).
func (t *T) ChainTo(root, succ *node.Node) []pcs.Pcs {
	var out []pcs.Pcs
	for _, cand := range t.candidatesSharing(t.succIndex, succ) {
		if cand.Root == root {
			out = append(out, cand)
		}
	}
	return out
}

// RegisterStructuralConflict is symmetric: registering (a, b) makes
// InStructuralConflict true for both a and b.
func (t *T) RegisterStructuralConflict(a, b pcs.Pcs) {
	ak, bk := a.Key(), b.Key()
	if t.conflicts[ak] == nil {
		t.conflicts[ak] = make(map[pcs.Key]bool)
	}
	if t.conflicts[bk] == nil {
		t.conflicts[bk] = make(map[pcs.Key]bool)
	}
	t.conflicts[ak][bk] = true
	t.conflicts[bk][ak] = true
}

// InStructuralConflict reports whether p has any recorded adversary.
func (t *T) InStructuralConflict(p pcs.Pcs) bool {
	return len(t.conflicts[p.Key()]) > 0
}

// Adversaries returns the keys registered in conflict with p.
func (t *T) Adversaries(p pcs.Pcs) []pcs.Key {
	var out []pcs.Key
	for k := range t.conflicts[p.Key()] {
		out = append(out, k)
	}
	return out
}

// Contents returns the recorded Content multiset for a (class-rep) node.
func (t *T) Contents(n *node.Node) []Content {
	return t.contents[n]
}

// SetContent replaces the recorded Content multiset for a node — used by
// the resolver after per-node content reconciliation collapses it to zero
// or one surviving entries.
func (t *T) SetContent(n *node.Node, set []Content) {
	t.contents[n] = set
}

// ClassRep exposes the underlying class-representative map for callers that
// need to rewrite raw nodes consistently with this T*.
func (t *T) ClassRep() *match.ClassRepMap {
	return t.classRep
}
