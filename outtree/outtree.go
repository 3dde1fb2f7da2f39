// Package outtree materializes a sporktree.Tree into a real, detached
// ast.Element tree (spec.md §4.9): clone each surviving element, write its
// reconciled content back onto the clone, resolve which role it occupies
// under its new parent, and wire structural-conflict dummies into the
// output so the printer can render conflict markers in their place.
package outtree

import (
	"fmt"

	"javamerge/ast"
	"javamerge/content"
	"javamerge/match"
	"javamerge/node"
	"javamerge/sporktree"
)

// RoleAmbiguityError is MergeError::RoleAmbiguity (spec.md §7): more than
// one non-BASE role survived role-in-parent resolution for an element and
// the builder has no principled way to pick between them.
type RoleAmbiguityError struct {
	Element ast.Element
	Roles   []ast.Role
}

func (e *RoleAmbiguityError) Error() string {
	return fmt.Sprintf("role ambiguity for %s: candidates %v", e.Element.Kind(), e.Roles)
}

// Result is the materialized output tree plus the bookkeeping the printer
// and the top-level driver need.
type Result struct {
	Root               ast.Element
	HasContentConflict bool
	StructuralConflicts []*sporktree.Conflict
}

// contentKeys maps a content Role to the metadata key its Java extractor
// reads from, so applying merged content is the extraction table run in
// reverse. Roles with no entry (NAME, VALUE, OPERATOR_KIND, COMMENT_CONTENT)
// carry no independent metadata slot: the printer renders those directly
// from the winning clone's own Source(), and a conflict on them is recorded
// as a content conflict but not separately written back.
var contentKeys = map[ast.Role]string{
	ast.RoleIsImplicit: ast.MetaIsImplicit,
	ast.RoleIsVarargs:  "is_varargs",
	ast.RoleIsInferred: "is_inferred",
	ast.RoleIsUpper:    "is_upper",
	ast.RoleCommentType: "comment_type",
	ast.RoleModifier:   "modifiers",
	ast.RoleIsDefault:  "is_default",
}

// Build materializes tree into a detached ast.Element tree. contentConflicts
// is resolve.Result.ContentConflicts — the per-node content-conflict records
// produced during 3DM resolution, written back onto each clone under
// ast.MetaContentConflict so the printer can render them. cr is the class-rep
// map the same merge built (changeset.T.ClassRep()); it is used only by
// resolveRole to compare role-in-parent across a node's BASE/LEFT/RIGHT
// matches (spec.md §4.9 step 3) and may be nil (falls back to the node's own
// role, as when cr carries no extra information anyway).
func Build(tree *sporktree.Tree, contentConflicts map[*node.Node][]content.Conflict, cr *match.ClassRepMap) (*Result, error) {
	res := &Result{}
	root, err := build(tree, contentConflicts, cr, res)
	if err != nil {
		return nil, err
	}
	res.Root = root
	return res, nil
}

func build(tree *sporktree.Tree, contentConflicts map[*node.Node][]content.Conflict, cr *match.ClassRepMap, res *Result) (ast.Element, error) {
	if tree.Conflict != nil {
		res.StructuralConflicts = append(res.StructuralConflicts, tree.Conflict)
		if tree.Conflict.Conflicted {
			res.HasContentConflict = true
		}
		return dummyElement(tree.Conflict), nil
	}

	if tree.Node == nil || tree.Node.Element() == nil {
		return nil, fmt.Errorf("outtree: non-conflict tree with no element")
	}

	clone := tree.Node.Element().Clone()
	clone.Metadata().Set(ast.MetaStructuralConflict, false)

	conflicts := contentConflicts[tree.Node]
	clone.Metadata().Set(ast.MetaContentConflict, conflicts)
	if len(conflicts) > 0 {
		res.HasContentConflict = true
	}

	if tree.SingleRevision {
		clone.Metadata().Set(ast.MetaSingleRevision, true)
		clone.Metadata().Set(ast.MetaOriginalNode, tree.OriginalElement)
	}

	clone.Metadata().Set(ast.MetaResolvedContent, tree.Content)
	applyContent(clone, tree.Content, res)

	byRole := make(map[ast.Role][]ast.Element)
	var order []ast.Role
	seen := make(map[ast.Role]bool)
	for _, child := range tree.Children {
		childElem, err := build(child, contentConflicts, cr, res)
		if err != nil {
			return nil, err
		}
		role, err := resolveRole(child, cr)
		if err != nil {
			return nil, err
		}
		childElem.SetRoleInParent(role)
		if !seen[role] {
			seen[role] = true
			order = append(order, role)
		}
		byRole[role] = append(byRole[role], childElem)
	}
	for _, role := range order {
		clone.SetChildren(role, byRole[role])
	}

	return clone, nil
}

// roleCandidate is one revision's vote for a child's role-in-parent, used
// only by resolveRole's ambiguity resolution.
type roleCandidate struct {
	role     ast.Role
	revision ast.Revision
}

// resolveRole implements spec.md §4.9 step 3: start from the role the
// Spork-tree builder already attributed the child to (the role-group chain
// it was discovered under), then widen the candidate set with whatever
// role-in-parent the element's BASE/LEFT/RIGHT matches report, drop BASE's
// candidate if others survive, and fail with RoleAmbiguityError if more than
// one non-BASE candidate remains.
func resolveRole(child *sporktree.Tree, cr *match.ClassRepMap) (ast.Role, error) {
	own := child.Role
	if own == "" && child.Node != nil && child.Node.Element() != nil {
		own = child.Node.Element().RoleInParent()
	}

	if child.Node == nil || cr == nil {
		if own == "" {
			return "", &RoleAmbiguityError{Element: elementOf(child), Roles: nil}
		}
		return own, nil
	}

	var candidates []roleCandidate
	seen := make(map[ast.Role]bool)
	add := func(role ast.Role, revision ast.Revision) {
		if role == "" || seen[role] {
			return
		}
		seen[role] = true
		candidates = append(candidates, roleCandidate{role: role, revision: revision})
	}

	add(own, child.Node.Revision())
	for _, m := range cr.Members(child.Node) {
		if m == child.Node || m.Element() == nil {
			continue
		}
		add(m.Element().RoleInParent(), m.Revision())
	}

	if len(candidates) == 0 {
		return "", &RoleAmbiguityError{Element: elementOf(child), Roles: nil}
	}
	if len(candidates) == 1 {
		return candidates[0].role, nil
	}

	var baseRole ast.Role
	hasBaseCandidate := false
	for _, c := range candidates {
		if c.revision == ast.Base {
			baseRole = c.role
			hasBaseCandidate = true
			break
		}
	}
	if hasBaseCandidate {
		filtered := candidates[:0:0]
		for _, c := range candidates {
			if c.role != baseRole {
				filtered = append(filtered, c)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	if len(candidates) == 1 {
		return candidates[0].role, nil
	}

	roles := make([]ast.Role, 0, len(candidates))
	for _, c := range candidates {
		roles = append(roles, c.role)
	}
	return "", &RoleAmbiguityError{Element: elementOf(child), Roles: roles}
}

func elementOf(child *sporktree.Tree) ast.Element {
	if child.Node == nil {
		return nil
	}
	return child.Node.Element()
}

func applyContent(e ast.Element, rv ast.RoledValues, res *Result) {
	for _, p := range rv.Pairs {
		if wb, ok := p.Value.(content.WildcardBound); ok {
			e.Metadata().Set("bound_is_implicit", wb.Implicit)
			e.Metadata().Set("is_upper", wb.Upper)
			continue
		}
		key, ok := contentKeys[p.Role]
		if !ok {
			continue
		}
		e.Metadata().Set(key, p.Value)
	}
}

// dummyElement materializes a structural conflict as a synthetic conflictDummy
// element carrying the diff3-style marker text, so the printer can emit it
// in place without needing to special-case conflicts that have no element
// at all.
func dummyElement(c *sporktree.Conflict) ast.Element {
	d := &conflictDummy{text: c.LineMerge, meta: dummyMeta{}}
	d.meta.Set(ast.MetaStructuralConflict, true)
	d.meta.Set(ast.MetaContentConflict, c.Conflicted)
	return d
}

type conflictDummy struct {
	text         string
	roleInParent ast.Role
	meta         dummyMeta
}

type dummyMeta map[string]interface{}

func (m dummyMeta) Get(k string) (interface{}, bool) { v, ok := m[k]; return v, ok }
func (m dummyMeta) Set(k string, v interface{})      { m[k] = v }
func (m dummyMeta) Delete(k string)                  { delete(m, k) }
func (m dummyMeta) Keys() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func (d *conflictDummy) Kind() ast.Kind                  { return "ConflictDummy" }
func (d *conflictDummy) Parent() ast.Element             { return nil }
func (d *conflictDummy) RoleInParent() ast.Role          { return d.roleInParent }
func (d *conflictDummy) SetRoleInParent(r ast.Role)      { d.roleInParent = r }
func (d *conflictDummy) Roles() []ast.Role               { return nil }
func (d *conflictDummy) Children(ast.Role) []ast.Element { return nil }
func (d *conflictDummy) SetChildren(ast.Role, []ast.Element) {}
func (d *conflictDummy) Clone() ast.Element              { return &conflictDummy{text: d.text, meta: dummyMeta{}} }
func (d *conflictDummy) Metadata() ast.Metadata {
	if d.meta == nil {
		d.meta = dummyMeta{}
	}
	return d.meta
}
func (d *conflictDummy) Position() ast.Position { return ast.Position{} }
func (d *conflictDummy) SetPosition(ast.Position) {}
func (d *conflictDummy) Source() string { return d.text }
