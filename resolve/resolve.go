// Package resolve implements the 3DM resolver (spec.md §4.5): it reduces a
// delta change set (BASE ∪ LEFT ∪ RIGHT) to a consistent PCS forest,
// recording structural conflicts it cannot reconcile and collapsing each
// node's content multiset via the content resolver.
package resolve

import (
	"javamerge/ast"
	"javamerge/changeset"
	"javamerge/content"
	"javamerge/node"
	"javamerge/pcs"
)

// Result carries the per-node content-conflict records the resolver could
// not fully clear (spec.md §4.5.1's "emit a content-conflict record at
// output time"). The surviving merged value is always written back into
// delta's content table; Result only tracks what's still in dispute.
type Result struct {
	ContentConflicts map[*node.Node][]content.Conflict
}

// Run executes the procedure of spec.md §4.5 over delta, consulting base
// (a T* built from BASE PCS alone, under the same class-rep map) for the
// base-agreement fast path, and cr for per-node content reconciliation.
func Run(delta, base *changeset.T, cr *content.Resolver) *Result {
	result := &Result{ContentConflicts: make(map[*node.Node][]content.Conflict)}

	delta.Each(func(p pcs.Pcs) {
		if delta.InStructuralConflict(p) {
			return
		}

		reconcileNode(delta, cr, result, p.Predecessor)
		reconcileNode(delta, cr, result, p.Successor)

		var others []pcs.Pcs
		others = append(others, delta.GetOtherRoots(p)...)
		others = append(others, delta.GetOtherPredecessors(p)...)
		others = append(others, delta.GetOtherSuccessors(p)...)

		for _, other := range others {
			switch {
			case base.Contains(other):
				delta.Remove(other)
			case base.Contains(p):
				delta.Remove(p)
			default:
				delta.RegisterStructuralConflict(p, other)
			}
		}
	})

	return result
}

// reconcileNode implements spec.md §4.5.1. Virtual nodes (list edges,
// role groups, the virtual root) never carry content.
func reconcileNode(delta *changeset.T, cr *content.Resolver, result *Result, n *node.Node) {
	if n == nil || n.Kind() != node.Concrete {
		return
	}

	entries := delta.Contents(n)
	if len(entries) <= 1 {
		return
	}

	var basePtr, leftPtr, rightPtr *ast.RoledValues
	for i := range entries {
		switch entries[i].Revision {
		case ast.Base:
			basePtr = &entries[i].Value
		case ast.Left:
			leftPtr = &entries[i].Value
		case ast.Right:
			rightPtr = &entries[i].Value
		}
	}

	merged, conflicts := cr.Reconcile(basePtr, leftPtr, rightPtr)
	delta.SetContent(n, []changeset.Content{{Node: n, Value: merged}})

	if len(conflicts) > 0 {
		result.ContentConflicts[n] = append(result.ContentConflicts[n], conflicts...)
	}
}
