// Package printer re-emits a merged ast.Element tree as Java source text,
// honoring single-revision shortcuts and leaving conflict dummies' already-
// diff3-marked text untouched.
package printer

import (
	"fmt"
	"strings"

	"javamerge/ast"
	"javamerge/content"
)

// Print renders root as Java source. Any subtree flagged MetaSingleRevision
// is emitted verbatim from its recorded original element's Source() rather
// than recursively printed, per spec.md §4.8.1 — untouched subtrees should
// reproduce byte-for-byte, not be reconstructed token by token.
func Print(root ast.Element) string {
	var b strings.Builder
	print1(&b, root, 0)
	return b.String()
}

func print1(b *strings.Builder, e ast.Element, depth int) {
	if e == nil {
		return
	}

	if single, _ := e.Metadata().Get(ast.MetaSingleRevision); single == true {
		if orig, ok := e.Metadata().Get(ast.MetaOriginalNode); ok {
			if origElem, ok := orig.(ast.Element); ok {
				b.WriteString(indent(depth))
				b.WriteString(origElem.Source())
				b.WriteString("\n")
				return
			}
		}
	}

	if e.Kind() == "ConflictDummy" {
		b.WriteString(e.Source())
		b.WriteString("\n")
		return
	}

	if e.Kind() == "CompilationUnit" {
		if pre, _ := e.Metadata().Get("preamble"); pre != nil {
			if s, ok := pre.(string); ok && s != "" {
				b.WriteString(s)
				b.WriteString("\n")
			}
		}
		for _, role := range e.Roles() {
			for _, child := range e.Children(role) {
				print1(b, child, depth)
			}
		}
		return
	}

	if roles := e.Roles(); len(roles) == 0 {
		b.WriteString(indent(depth))
		b.WriteString(renderText(e, false))
		b.WriteString("\n")
		return
	}

	b.WriteString(indent(depth))
	b.WriteString(renderText(e, true))
	b.WriteString("\n")
	for _, role := range e.Roles() {
		for _, child := range e.Children(role) {
			print1(b, child, depth+1)
		}
	}
	b.WriteString(indent(depth))
	b.WriteString("}")
	b.WriteString("\n")
}

// renderText renders an element's own text: for a composite element (one
// with child roles) this is the first line of Source() (all of it when it
// has no newline); for a leaf it's the whole of Source(). Either way, a
// resolved MODIFIER set is re-applied on top (stripping whatever modifier
// tokens the original text already carried) so a clean merge is actually
// reflected in the printed text rather than silently discarded in favor of
// one side's stale token, and a leaf's own NAME/VALUE/OPERATOR_KIND content
// conflict is embedded as a diff3-style marker block around its literal
// token. COMMENT_CONTENT is the one content conflict never re-wrapped here:
// CommentLineMergeHandler already ran a line-based diff3 merge and embedded
// its own markers in the resolved text.
func renderText(e ast.Element, composite bool) string {
	src := e.Source()
	text := src
	if composite {
		if idx := strings.IndexByte(src, '\n'); idx >= 0 {
			text = src[:idx]
		}
	}

	conflicts := contentConflictsOf(e)

	if rv, ok := resolvedContent(e); ok {
		if modsVal, ok := rv.Get(ast.RoleModifier); ok {
			rest := stripLeadingModifiers(text)
			if c, found := conflictFor(conflicts, ast.RoleModifier); found {
				left := renderModifiers(asModifierSet(c.Left)) + rest
				right := renderModifiers(asModifierSet(c.Right)) + rest
				return conflictBlock(left, right)
			}
			return renderModifiers(asModifierSet(modsVal)) + rest
		}
	}

	if !composite {
		if _, found := conflictFor(conflicts, ast.RoleCommentText); found {
			if rv, ok := resolvedContent(e); ok {
				if v, ok := rv.Get(ast.RoleCommentText); ok {
					if s, ok := v.(string); ok {
						return s
					}
				}
			}
		}
		for _, role := range []ast.Role{ast.RoleName, ast.RoleValue, ast.RoleOperatorKind} {
			if c, found := conflictFor(conflicts, role); found {
				return conflictBlock(fmt.Sprint(c.Left), fmt.Sprint(c.Right))
			}
		}
	}

	return text
}

// resolvedContent reads the merged ast.RoledValues the output-tree builder
// recorded for e (outtree.Build), if any.
func resolvedContent(e ast.Element) (ast.RoledValues, bool) {
	v, ok := e.Metadata().Get(ast.MetaResolvedContent)
	if !ok {
		return ast.RoledValues{}, false
	}
	rv, ok := v.(ast.RoledValues)
	return rv, ok
}

// contentConflictsOf reads the residual content.Conflict list the
// output-tree builder stored under MetaContentConflict. A conflict dummy
// element stores a bare bool there instead, so the type assertion simply
// yields no conflicts for it.
func contentConflictsOf(e ast.Element) []content.Conflict {
	v, ok := e.Metadata().Get(ast.MetaContentConflict)
	if !ok {
		return nil
	}
	conflicts, _ := v.([]content.Conflict)
	return conflicts
}

func conflictFor(conflicts []content.Conflict, role ast.Role) (content.Conflict, bool) {
	for _, c := range conflicts {
		if c.Role == role {
			return c, true
		}
	}
	return content.Conflict{}, false
}

func asModifierSet(v interface{}) map[ast.Modifier]bool {
	set, _ := v.(map[ast.Modifier]bool)
	return set
}

// modifierOrder is the canonical rendering order: visibility first (at most
// one of the three is ever set), then the remaining keywords in their usual
// JLS declaration order.
var modifierOrder = []ast.Modifier{
	ast.ModPublic, ast.ModProtected, ast.ModPrivate,
	ast.ModAbstract, ast.ModStatic, ast.ModFinal,
	ast.ModTransient, ast.ModVolatile, ast.ModSynchronized,
	ast.ModNative, ast.ModStrictfp,
}

func renderModifiers(mods map[ast.Modifier]bool) string {
	var b strings.Builder
	for _, m := range modifierOrder {
		if mods[m] {
			b.WriteString(string(m))
			b.WriteString(" ")
		}
	}
	return b.String()
}

// stripLeadingModifiers removes already-present leading modifier keyword
// tokens from header, one space-delimited word at a time. Hand-built test
// fixtures never embed modifier tokens in Source() at all (only in
// metadata), so this is a no-op for them; real parsed source carries the
// original tokens literally and they'd otherwise be duplicated alongside
// the regenerated prefix.
func stripLeadingModifiers(header string) string {
	rest := strings.TrimLeft(header, " \t")
	for {
		word, remainder, found := cutWord(rest)
		if !found || !isModifierWord(word) {
			return rest
		}
		rest = strings.TrimLeft(remainder, " \t")
	}
}

func cutWord(s string) (word, remainder string, found bool) {
	if s == "" {
		return "", "", false
	}
	if idx := strings.IndexAny(s, " \t"); idx >= 0 {
		return s[:idx], s[idx:], true
	}
	return s, "", true
}

func isModifierWord(w string) bool {
	switch ast.Modifier(w) {
	case ast.ModPublic, ast.ModProtected, ast.ModPrivate,
		ast.ModAbstract, ast.ModStatic, ast.ModFinal,
		ast.ModTransient, ast.ModVolatile, ast.ModSynchronized,
		ast.ModNative, ast.ModStrictfp:
		return true
	default:
		return false
	}
}

const (
	markerLeftStart = "<<<<<<< LEFT"
	markerRightEnd  = ">>>>>>> RIGHT"
	markerMid       = "======="
)

// conflictBlock renders a diff3-style conflict marker block around left and
// right's competing text, matching linemerge's marker convention (those
// constants are unexported there, so this is its own copy of the literals).
func conflictBlock(left, right string) string {
	return markerLeftStart + "\n" + left + "\n" + markerMid + "\n" + right + "\n" + markerRightEnd
}

func indent(depth int) string {
	return strings.Repeat("    ", depth)
}

// HasConflictMarkers reports whether text contains a diff3-style
// conflict-start marker ("<<<<<<<"); the other markers are not checked.
func HasConflictMarkers(text string) bool {
	return strings.Contains(text, "<<<<<<<")
}
