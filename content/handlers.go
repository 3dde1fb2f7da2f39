package content

import (
	"sort"

	"javamerge/ast"
	"javamerge/linemerge"
)

// ImplicitFlipHandler resolves IS_IMPLICIT (spec.md §4.6 table): a boolean
// that only ever flips true→false (a node becomes explicit once either side
// writes it out). Disagreement always resolves to false — "explicit wins" —
// and never leaves a residual conflict.
func ImplicitFlipHandler(_, left, right interface{}, _ bool) (interface{}, bool) {
	l, _ := left.(bool)
	r, _ := right.(bool)
	return l && r, false
}

// WildcardBound is IS_UPPER's content value for wildcard type arguments:
// whether the wildcard carries no bound at all (a bare "?") and, when it
// does, which direction the bound takes (extends vs super).
type WildcardBound struct {
	Implicit bool
	Upper    bool
}

// WildcardBoundHandler resolves IS_UPPER per spec.md §4.6: compare each
// side's bound implicitness against BASE's. The side that actually toggled
// whether a bound exists at all wins outright — the other side's change (if
// any) was a same-shaped edit elsewhere and loses to the more fundamental
// one. If both sides toggled implicitness, or neither did (both kept an
// explicit bound but disagree on extends vs super), the disagreement is a
// genuine semantic choice and stays a residual conflict; with no BASE match
// at all, the side with an explicit bound wins over the implicit side.
func WildcardBoundHandler(base, left, right interface{}, hasBase bool) (interface{}, bool) {
	l, lok := left.(WildcardBound)
	r, rok := right.(WildcardBound)
	if !lok || !rok {
		return left, true
	}

	if !hasBase {
		if l.Implicit != r.Implicit {
			if !l.Implicit {
				return l, false
			}
			return r, false
		}
		return l, true
	}

	b, _ := base.(WildcardBound)
	leftChanged := l.Implicit != b.Implicit
	rightChanged := r.Implicit != b.Implicit
	switch {
	case leftChanged && !rightChanged:
		return l, false
	case rightChanged && !leftChanged:
		return r, false
	default:
		return l, true
	}
}

// CommentLineMergeHandler resolves COMMENT_CONTENT by running a line-based
// diff3 merge over the comment body (spec.md §4.6 table). stillConflict is
// true whenever the line merge itself produced conflict markers.
func CommentLineMergeHandler(base, left, right interface{}, hasBase bool) (interface{}, bool) {
	l, _ := left.(string)
	r, _ := right.(string)
	var b string
	if hasBase {
		b, _ = base.(string)
	}
	merged, conflicted := linemerge.Merge(b, l, r)
	return merged, conflicted
}

var visibilityModifiers = []ast.Modifier{ast.ModPublic, ast.ModProtected, ast.ModPrivate}

// ModifierHandler resolves MODIFIER sets per spec.md §4.6.1. Visibility is
// resolved as its own singleton sub-problem (at most one of PUBLIC/PROTECTED/
// PRIVATE survives); everything else (ABSTRACT/FINAL and all other keywords)
// is unioned and then filtered so single-sided additions and deletions both
// survive without one masking the other.
func ModifierHandler(base, left, right interface{}, hasBase bool) (interface{}, bool) {
	baseSet, _ := base.(map[ast.Modifier]bool)
	leftSet, _ := left.(map[ast.Modifier]bool)
	rightSet, _ := right.(map[ast.Modifier]bool)
	if !hasBase {
		baseSet = map[ast.Modifier]bool{}
	}

	finalVis, visConflict := mergeVisibility(baseSet, leftSet, rightSet)

	merged := make(map[ast.Modifier]bool)
	if finalVis != "" {
		merged[finalVis] = true
	}
	for _, m := range allModifiers(baseSet, leftSet, rightSet) {
		if isVisibility(m) {
			continue
		}
		if keepModifier(m, baseSet, leftSet, rightSet) {
			merged[m] = true
		}
	}

	return merged, visConflict
}

func isVisibility(m ast.Modifier) bool {
	return m == ast.ModPublic || m == ast.ModProtected || m == ast.ModPrivate
}

func visibilityOf(set map[ast.Modifier]bool) ast.Modifier {
	for _, m := range visibilityModifiers {
		if set[m] {
			return m
		}
	}
	return ""
}

// mergeVisibility implements spec.md §4.6.1's visibility sub-algorithm.
func mergeVisibility(base, left, right map[ast.Modifier]bool) (ast.Modifier, bool) {
	visLeft := visibilityOf(left)
	visRight := visibilityOf(right)
	visBase := visibilityOf(base)

	union := make(map[ast.Modifier]bool)
	if visLeft != "" {
		union[visLeft] = true
	}
	if visRight != "" {
		union[visRight] = true
	}
	if visBase != "" {
		union[visBase] = true
	}

	if len(union) > 1 {
		delete(union, visBase)
	}

	bothChangedDifferently := visLeft != "" && visRight != "" &&
		visLeft != visRight && visLeft != visBase && visRight != visBase

	conflict := len(union) != 1 || bothChangedDifferently

	if len(union) == 1 {
		for m := range union {
			return m, conflict
		}
	}
	// No single survivor (0 or ≥2 after the drop): fall back to LEFT per
	// spec.md §4.6.1 ("on conflict the LEFT visibility is used").
	return visLeft, true
}

func allModifiers(sets ...map[ast.Modifier]bool) []ast.Modifier {
	seen := make(map[ast.Modifier]bool)
	var out []ast.Modifier
	for _, set := range sets {
		for m := range set {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// keepModifier implements the non-visibility filter: kept iff present on
// both LEFT and RIGHT, or present on exactly one of LEFT/RIGHT and absent
// from BASE (a genuine single-sided addition, not a side that merely kept
// what BASE already had while the other side deleted it).
func keepModifier(m ast.Modifier, base, left, right map[ast.Modifier]bool) bool {
	l, r := left[m], right[m]
	if l && r {
		return true
	}
	if l != r {
		return !base[m]
	}
	return false
}

// RegisterDefaultHandlers wires the handlers spec.md §4.6's table mandates.
// NAME, VALUE, and OPERATOR_KIND are deliberately left unregistered — any
// disagreement there is a direct, unmediated content conflict.
func RegisterDefaultHandlers(r *Resolver) {
	r.RegisterHandler(ast.RoleIsImplicit, ImplicitFlipHandler)
	r.RegisterHandler(ast.RoleIsUpper, WildcardBoundHandler)
	r.RegisterHandler(ast.RoleCommentText, CommentLineMergeHandler)
	r.RegisterHandler(ast.RoleModifier, ModifierHandler)
}
