package sporktree

import (
	"javamerge/ast"
	"javamerge/node"
)

// EmptySideHandler implements the optimistic-empty-side policy (spec.md
// §4.7): an INSERT_INSERT conflict where one side inserted nothing resolves
// to the other side's (non-empty) insertions, with no conflict recorded.
func EmptySideHandler(left, right []*node.Node, conflictType ConflictType) ([]*node.Node, bool) {
	if conflictType != InsertInsert {
		return nil, false
	}
	switch {
	case len(left) == 0 && len(right) == 0:
		return nil, true
	case len(left) == 0:
		return right, true
	case len(right) == 0:
		return left, true
	default:
		return nil, false
	}
}

// TypeMemberOrderingHandler implements the type-member-ordering policy
// (spec.md §4.7): when every inserted node is a TYPE_MEMBER, concatenate
// LEFT's insertions before RIGHT's. Deliberately non-commutative: swapping
// LEFT and RIGHT changes the result, which is why this handler is only ever
// applied to a genuine TYPE_MEMBER role group and never to ordering-sensitive
// lists like STATEMENT or ARGUMENT.
func TypeMemberOrderingHandler(left, right []*node.Node, conflictType ConflictType) ([]*node.Node, bool) {
	if conflictType != InsertInsert {
		return nil, false
	}
	if len(left) == 0 || len(right) == 0 {
		return nil, false
	}
	if !allTypeMembers(left) || !allTypeMembers(right) {
		return nil, false
	}
	merged := make([]*node.Node, 0, len(left)+len(right))
	merged = append(merged, left...)
	merged = append(merged, right...)
	return merged, true
}

func allTypeMembers(nodes []*node.Node) bool {
	for _, n := range nodes {
		e := n.Element()
		if e == nil || e.RoleInParent() != ast.RoleTypeMember {
			return false
		}
	}
	return true
}

// RegisterDefaultHandlers wires the two required structural handlers in
// spec.md §4.7's registration order: try the optimistic-empty-side case
// first, since it is unconditionally safe, then fall back to type-member
// ordering for the remaining ambiguous case.
func RegisterDefaultHandlers(b *Builder) {
	b.RegisterHandler(EmptySideHandler)
	b.RegisterHandler(TypeMemberOrderingHandler)
}
