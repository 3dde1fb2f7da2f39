// Package content implements the content resolver and the per-role
// content-conflict handlers (spec.md §4.6, §4.6.1, and the per-node
// reconciliation step of §4.5.1).
package content

import "javamerge/ast"

// Extractor produces the element-kind-specific RoledValue pairs for one
// element (spec.md §4.6's table). The universal IS_IMPLICIT pair is always
// appended by the Resolver itself, so extractors never need to emit it.
type Extractor func(e ast.Element) []ast.RoledValue

// Handler reconciles a single role's conflicting LEFT/RIGHT values. base is
// nil when the node has no BASE counterpart (hasBase is false in that case).
// A Handler returns the merged value and whether the conflict persists.
type Handler func(base, left, right interface{}, hasBase bool) (merged interface{}, stillConflict bool)

// Conflict is a content-conflict record (spec.md §3.6): a role on which no
// handler could reconcile LEFT and RIGHT.
type Conflict struct {
	Role    ast.Role
	Base    interface{}
	HasBase bool
	Left    interface{}
	Right   interface{}
}

// Resolver is the content resolver: element → RoledValues, plus the
// registered ContentConflictHandlers used to reconcile differing values.
type Resolver struct {
	extractors  map[ast.Kind]Extractor
	handlers    map[ast.Role]Handler
	isImplicit  func(ast.Element) bool
}

// NewResolver creates an empty Resolver. Kind extractors and role handlers
// are registered with Register/RegisterHandler at construction time — no
// dynamic discovery, per spec.md §9.
func NewResolver() *Resolver {
	return &Resolver{
		extractors: make(map[ast.Kind]Extractor),
		handlers:   make(map[ast.Role]Handler),
		isImplicit: func(ast.Element) bool { return false },
	}
}

// Register binds an Extractor to an element kind.
func (r *Resolver) Register(kind ast.Kind, ex Extractor) {
	r.extractors[kind] = ex
}

// RegisterHandler binds a ContentConflictHandler to a role.
func (r *Resolver) RegisterHandler(role ast.Role, h Handler) {
	r.handlers[role] = h
}

// UnregisterHandler removes any ContentConflictHandler bound to role, so a
// conflict on it is reported instead of reconciled. Used by config to let a
// javamerge.yaml turn off one of the default handlers.
func (r *Resolver) UnregisterHandler(role ast.Role) {
	delete(r.handlers, role)
}

// HasHandler reports whether role currently has a registered
// ContentConflictHandler.
func (r *Resolver) HasHandler(role ast.Role) bool {
	_, ok := r.handlers[role]
	return ok
}

// SetImplicitPredicate overrides how the universal IS_IMPLICIT pair is
// computed; the default always reports false.
func (r *Resolver) SetImplicitPredicate(fn func(ast.Element) bool) {
	r.isImplicit = fn
}

// Resolve is the pure function element → RoledValues (spec.md §4.6).
func (r *Resolver) Resolve(e ast.Element) ast.RoledValues {
	pairs := []ast.RoledValue{{Role: ast.RoleIsImplicit, Value: r.isImplicit(e)}}
	if ex, ok := r.extractors[e.Kind()]; ok {
		pairs = append(pairs, ex(e)...)
	}
	return ast.RoledValues{Element: e, Pairs: pairs}
}

// Reconcile implements spec.md §4.5.1's per-node content reconciliation
// over the up-to-three Content entries a node can accumulate (one per
// contributing revision). It returns the surviving RoledValues and any
// residual per-role conflicts.
func (r *Resolver) Reconcile(base, left, right *ast.RoledValues) (ast.RoledValues, []Conflict) {
	present := make([]*ast.RoledValues, 0, 3)
	if base != nil {
		present = append(present, base)
	}
	if left != nil {
		present = append(present, left)
	}
	if right != nil {
		present = append(present, right)
	}

	distinct := dedupe(present)
	if len(distinct) == 1 {
		return *distinct[0], nil
	}
	if len(distinct) == 0 {
		return ast.RoledValues{}, nil
	}

	if base != nil {
		filtered := dropEqual(distinct, *base)
		if len(filtered) == 0 {
			return *base, nil
		}
		if len(filtered) == 1 {
			return *filtered[0], nil
		}
		distinct = filtered
	}

	// Exactly the LEFT/RIGHT pair remains (base absent, or both sides
	// diverged from base in different directions).
	l, rr := distinct[0], distinct[1]
	return r.Merge(base, *l, *rr)
}

func dedupe(vs []*ast.RoledValues) []*ast.RoledValues {
	var out []*ast.RoledValues
	for _, v := range vs {
		dup := false
		for _, o := range out {
			if o.Equal(*v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}

func dropEqual(vs []*ast.RoledValues, target ast.RoledValues) []*ast.RoledValues {
	var out []*ast.RoledValues
	for _, v := range vs {
		if !v.Equal(target) {
			out = append(out, v)
		}
	}
	return out
}

// Merge implements spec.md §4.6's positional merge: the i-th pair of LEFT
// and RIGHT must share a role; base (if present) is consulted positionally
// by role as well.
func (r *Resolver) Merge(base *ast.RoledValues, left, right ast.RoledValues) (ast.RoledValues, []Conflict) {
	merged := ast.RoledValues{Pairs: make([]ast.RoledValue, 0, len(left.Pairs))}
	if left.Element != nil {
		merged.Element = left.Element
	} else {
		merged.Element = right.Element
	}

	var conflicts []Conflict

	for i, lp := range left.Pairs {
		if i >= len(right.Pairs) {
			break
		}
		rp := right.Pairs[i]

		if equalValue(lp.Value, rp.Value) {
			merged.Pairs = append(merged.Pairs, ast.RoledValue{Role: lp.Role, Value: lp.Value})
			continue
		}

		var basePair *ast.RoledValue
		if base != nil && i < len(base.Pairs) {
			basePair = &base.Pairs[i]
		}

		switch {
		case basePair != nil && equalValue(basePair.Value, lp.Value):
			merged.Pairs = append(merged.Pairs, ast.RoledValue{Role: lp.Role, Value: rp.Value})
		case basePair != nil && equalValue(basePair.Value, rp.Value):
			merged.Pairs = append(merged.Pairs, ast.RoledValue{Role: lp.Role, Value: lp.Value})
		default:
			var baseVal interface{}
			hasBase := basePair != nil
			if hasBase {
				baseVal = basePair.Value
			}
			handler, ok := r.handlers[lp.Role]
			if !ok {
				merged.Pairs = append(merged.Pairs, ast.RoledValue{Role: lp.Role, Value: lp.Value})
				conflicts = append(conflicts, Conflict{Role: lp.Role, Base: baseVal, HasBase: hasBase, Left: lp.Value, Right: rp.Value})
				continue
			}
			mergedVal, stillConflict := handler(baseVal, lp.Value, rp.Value, hasBase)
			merged.Pairs = append(merged.Pairs, ast.RoledValue{Role: lp.Role, Value: mergedVal})
			if stillConflict {
				conflicts = append(conflicts, Conflict{Role: lp.Role, Base: baseVal, HasBase: hasBase, Left: lp.Value, Right: rp.Value})
			}
		}
	}

	return merged, conflicts
}

func equalValue(a, b interface{}) bool {
	return ast.RoledValues{Pairs: []ast.RoledValue{{Value: a}}}.Equal(
		ast.RoledValues{Pairs: []ast.RoledValue{{Value: b}}},
	)
}
