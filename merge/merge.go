// Package merge is the top-level driver (spec.md §4.10): it wires the PCS
// builder, Differencer, class-rep map, change set, 3DM resolver, Spork-tree
// builder, and output-tree builder into the single Merge entry point the
// CLI and batch runner call.
package merge

import (
	"errors"
	"fmt"

	"javamerge/ast"
	"javamerge/changeset"
	"javamerge/content"
	"javamerge/differ"
	"javamerge/match"
	"javamerge/node"
	"javamerge/outtree"
	"javamerge/pcs"
	"javamerge/printer"
	"javamerge/resolve"
	"javamerge/sporktree"
)

// Kind distinguishes MergeError's failure modes (spec.md §7). Conflict is
// recorded inline, not thrown — it never appears as a Kind here, since a
// merge that only produced conflicts still returns a (conflicted) Result,
// not an error.
type Kind int

const (
	ErrUnresolvableChildList Kind = iota
	ErrMoveConflict
	ErrRoleAmbiguity
	ErrInvariantViolation
)

// MergeError wraps a fatal merge failure with its Kind, for callers that
// need to distinguish (e.g.) a bug-indicating invariant violation from an
// ordinary structural limitation.
type MergeError struct {
	Kind Kind
	Err  error
}

func (e *MergeError) Error() string { return fmt.Sprintf("merge: %s: %v", e.Kind, e.Err) }
func (e *MergeError) Unwrap() error { return e.Err }

func (k Kind) String() string {
	switch k {
	case ErrUnresolvableChildList:
		return "unresolvable child list"
	case ErrMoveConflict:
		return "move conflict"
	case ErrRoleAmbiguity:
		return "role ambiguity"
	case ErrInvariantViolation:
		return "invariant violation"
	default:
		return "unknown"
	}
}

// Result is the outcome of a single three-way merge.
type Result struct {
	Root                ast.Element
	Printed             string
	HasConflict         bool
	StructuralConflicts int
	ContentConflicts    int
}

// ExitCode follows the conventional CLI exit-status scheme: 0 clean, 1
// conflicted, 2 fatal error. Callers needing just the process exit status
// can skip inspecting Result/error themselves.
func ExitCode(res *Result, err error) int {
	if err != nil {
		return 2
	}
	if res != nil && res.HasConflict {
		return 1
	}
	return 0
}

// Merge performs a three-way structured merge of base/left/right, already
// parsed into ast.Element trees by a Parser collaborator (javasrc.Parse or
// asttest, in tests). cr, if nil, defaults to content.NewJavaResolver(). It
// registers the two default structural-conflict handlers in their standard
// order; callers that need a config-selected subset or ordering should call
// MergeWithHandlers instead.
func Merge(base, left, right ast.Element, cr *content.Resolver) (*Result, error) {
	return MergeWithHandlers(base, left, right, cr, nil)
}

// MergeWithHandlers is Merge with the structural-conflict handlers supplied
// explicitly, registered with the Spork-tree builder in the given order. A
// nil or empty handlers slice falls back to the standard
// sporktree.RegisterDefaultHandlers order, the same behavior as Merge.
func MergeWithHandlers(base, left, right ast.Element, cr *content.Resolver, handlers []sporktree.StructuralHandler) (*Result, error) {
	if cr == nil {
		cr = content.NewJavaResolver()
	}

	factory := node.NewFactory()
	basePcs := pcs.Build(base, ast.Base, factory)
	leftPcs := pcs.Build(left, ast.Left, factory)
	rightPcs := pcs.Build(right, ast.Right, factory)

	matcher := differ.NewMatcher()
	baseLeft := matcher.MatchFull(base, left)
	baseRight := matcher.MatchFull(base, right)
	leftRight := matcher.MatchTopDown(left, right)

	classRep := match.Build(factory, base, left, right, baseLeft, baseRight, leftRight)

	getContent := func(n *node.Node) ast.RoledValues {
		e := n.Element()
		if e == nil {
			return ast.RoledValues{}
		}
		return cr.Resolve(e)
	}

	baseT := changeset.New(classRep, getContent)
	baseT.AddAll(basePcs)

	delta := changeset.New(classRep, getContent)
	delta.AddAll(basePcs)
	delta.AddAll(leftPcs)
	delta.AddAll(rightPcs)

	result := resolve.Run(delta, baseT, cr)
	recoverRootConflicts(delta, baseT, cr, result)

	root := factory.VirtualRoot()
	builder := sporktree.NewBuilder(delta, factory)
	if len(handlers) == 0 {
		sporktree.RegisterDefaultHandlers(builder)
	} else {
		for _, h := range handlers {
			builder.RegisterHandler(h)
		}
	}
	tree := builder.Build(root)

	var moduleChild *sporktree.Tree
	for _, c := range tree.Children {
		if c.Role == ast.RoleModule || c.Role == "" {
			moduleChild = c
			break
		}
	}
	if moduleChild == nil && len(tree.Children) > 0 {
		moduleChild = tree.Children[0]
	}
	if moduleChild == nil {
		return nil, &MergeError{Kind: ErrInvariantViolation, Err: errors.New("merge produced no root element")}
	}

	out, err := outtree.Build(moduleChild, result.ContentConflicts, delta.ClassRep())
	if err != nil {
		var roleErr *outtree.RoleAmbiguityError
		if errors.As(err, &roleErr) {
			return nil, &MergeError{Kind: ErrRoleAmbiguity, Err: err}
		}
		return nil, &MergeError{Kind: ErrInvariantViolation, Err: err}
	}

	printed := printer.Print(out.Root)

	return &Result{
		Root:                out.Root,
		Printed:             printed,
		HasConflict:         out.HasContentConflict || len(out.StructuralConflicts) > 0,
		StructuralConflicts: len(out.StructuralConflicts),
		ContentConflicts:    countContentConflicts(result),
	}, nil
}

func countContentConflicts(r *resolve.Result) int {
	n := 0
	for _, cs := range r.ContentConflicts {
		n += len(cs)
	}
	return n
}

// recoverRootConflicts implements the single-retry root-conflict recovery
// of spec.md §4.10: a structural conflict whose two sides disagree on Root
// (the same class of node simultaneously kept under two different parents)
// can't be resolved by register_structural_conflict alone, since neither
// side is "the" owner. Purge every PCS triple rooted at either side's Root
// from delta and retry the resolver once; any remaining root conflict after
// that is reported as an ordinary structural conflict.
func recoverRootConflicts(delta, baseT *changeset.T, cr *content.Resolver, result *resolve.Result) {
	conflictingRoots := make(map[*node.Node]bool)
	for _, key := range delta.Keys() {
		p, ok := delta.Lookup(key)
		if !ok {
			continue
		}
		for _, adv := range delta.Adversaries(p) {
			other, ok := delta.Lookup(adv)
			if !ok {
				continue
			}
			if other.Root != p.Root {
				conflictingRoots[p.Root] = true
				conflictingRoots[other.Root] = true
			}
		}
	}
	if len(conflictingRoots) == 0 {
		return
	}

	for _, key := range delta.Keys() {
		p, ok := delta.Lookup(key)
		if ok && conflictingRoots[p.Root] {
			delta.RemoveKey(key)
		}
	}

	retryResult := resolve.Run(delta, baseT, cr)
	for n, cs := range retryResult.ContentConflicts {
		result.ContentConflicts[n] = append(result.ContentConflicts[n], cs...)
	}
}
