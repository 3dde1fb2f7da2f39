package printer

import (
	"strings"
	"testing"

	"javamerge/ast"
	"javamerge/content"
)

type stubMeta struct{ m map[string]interface{} }

func newStubMeta() *stubMeta { return &stubMeta{m: make(map[string]interface{})} }

func (s *stubMeta) Get(k string) (interface{}, bool) { v, ok := s.m[k]; return v, ok }
func (s *stubMeta) Set(k string, v interface{})      { s.m[k] = v }
func (s *stubMeta) Delete(k string)                  { delete(s.m, k) }
func (s *stubMeta) Keys() []string {
	var out []string
	for k := range s.m {
		out = append(out, k)
	}
	return out
}

type stubElement struct {
	kind     ast.Kind
	source   string
	roles    []ast.Role
	children map[ast.Role][]ast.Element
	meta     *stubMeta
}

func newStub(kind ast.Kind, source string) *stubElement {
	return &stubElement{kind: kind, source: source, meta: newStubMeta(), children: map[ast.Role][]ast.Element{}}
}

func (s *stubElement) Kind() ast.Kind                      { return s.kind }
func (s *stubElement) Parent() ast.Element                 { return nil }
func (s *stubElement) RoleInParent() ast.Role              { return "" }
func (s *stubElement) Roles() []ast.Role                   { return s.roles }
func (s *stubElement) Children(r ast.Role) []ast.Element   { return s.children[r] }
func (s *stubElement) SetChildren(r ast.Role, c []ast.Element) { s.children[r] = c }
func (s *stubElement) SetRoleInParent(ast.Role)            {}
func (s *stubElement) Clone() ast.Element                  { return newStub(s.kind, s.source) }
func (s *stubElement) Metadata() ast.Metadata              { return s.meta }
func (s *stubElement) Position() ast.Position              { return ast.Position{} }
func (s *stubElement) SetPosition(ast.Position)            {}
func (s *stubElement) Source() string                      { return s.source }

func TestPrint_LeafEmitsSourceVerbatim(t *testing.T) {
	leaf := newStub(ast.KindLiteral, "42")
	out := Print(leaf)
	if strings.TrimSpace(out) != "42" {
		t.Fatalf("expected %q, got %q", "42", out)
	}
}

func TestPrint_SingleRevisionShortcutUsesOriginalSource(t *testing.T) {
	orig := newStub(ast.KindFieldDeclaration, "int original;")
	e := newStub(ast.KindFieldDeclaration, "int original;")
	e.Metadata().Set(ast.MetaSingleRevision, true)
	e.Metadata().Set(ast.MetaOriginalNode, ast.Element(orig))

	out := Print(e)
	if !strings.Contains(out, "int original;") {
		t.Fatalf("expected original source in output, got %q", out)
	}
}

func TestPrint_ConflictDummyEmitsMarkerTextUntouched(t *testing.T) {
	dummy := newStub("ConflictDummy", "<<<<<<< LEFT\nint a;\n=======\nint b;\n>>>>>>> RIGHT")
	out := Print(dummy)
	if !HasConflictMarkers(out) {
		t.Fatalf("expected conflict markers preserved in output")
	}
}

func TestPrint_CompositeRendersChildrenIndented(t *testing.T) {
	class := newStub(ast.KindClassDeclaration, "class C {")
	class.roles = []ast.Role{ast.RoleTypeMember}
	field := newStub(ast.KindFieldDeclaration, "int x;")
	class.SetChildren(ast.RoleTypeMember, []ast.Element{field})

	out := Print(class)
	if !strings.Contains(out, "class C {") || !strings.Contains(out, "int x;") {
		t.Fatalf("expected header and child in output, got %q", out)
	}
}

func TestPrint_CompilationUnitEmitsPreambleThenMembersUnwrapped(t *testing.T) {
	cu := newStub("CompilationUnit", "package p;\n\nclass C {}")
	cu.roles = []ast.Role{ast.RoleTypeMember}
	cu.Metadata().Set("preamble", "package p;")
	class := newStub(ast.KindClassDeclaration, "class C {")
	cu.SetChildren(ast.RoleTypeMember, []ast.Element{class})

	out := Print(cu)
	if !strings.Contains(out, "package p;") {
		t.Fatalf("expected preamble in output, got %q", out)
	}
	if !strings.Contains(out, "class C {") {
		t.Fatalf("expected member in output, got %q", out)
	}
	if strings.HasPrefix(strings.TrimLeft(out, "\n"), "    ") {
		t.Fatalf("expected compilation unit body unwrapped (no extra indent), got %q", out)
	}
}

func TestPrint_CleanModifierMergeRewritesHeaderFromResolvedContent(t *testing.T) {
	class := newStub(ast.KindClassDeclaration, "class C {")
	resolved := map[ast.Modifier]bool{ast.ModPublic: true, ast.ModFinal: true}
	class.Metadata().Set(ast.MetaResolvedContent, ast.RoledValues{
		Pairs: []ast.RoledValue{{Role: ast.RoleModifier, Value: resolved}},
	})

	out := Print(class)
	if !strings.Contains(out, "public final class C {") {
		t.Fatalf("expected regenerated modifier prefix in header, got %q", out)
	}
}

func TestPrint_ConflictingVisibilityEmbedsMarkersAroundHeader(t *testing.T) {
	class := newStub(ast.KindClassDeclaration, "class C {")
	class.roles = []ast.Role{ast.RoleTypeMember}
	leftMods := map[ast.Modifier]bool{ast.ModPublic: true}
	rightMods := map[ast.Modifier]bool{ast.ModPrivate: true}
	class.Metadata().Set(ast.MetaResolvedContent, ast.RoledValues{
		Pairs: []ast.RoledValue{{Role: ast.RoleModifier, Value: leftMods}},
	})
	class.Metadata().Set(ast.MetaContentConflict, []content.Conflict{
		{Role: ast.RoleModifier, HasBase: true, Left: leftMods, Right: rightMods},
	})

	out := Print(class)
	if !HasConflictMarkers(out) {
		t.Fatalf("expected conflict markers in output, got %q", out)
	}
	if !strings.Contains(out, "public class C {") || !strings.Contains(out, "private class C {") {
		t.Fatalf("expected both candidate headers present, got %q", out)
	}
}

func TestPrint_ConflictingRenameEmbedsMarkersAroundIdentifier(t *testing.T) {
	name := newStub(ast.KindNameExpression, "leftName")
	name.Metadata().Set(ast.MetaContentConflict, []content.Conflict{
		{Role: ast.RoleName, HasBase: true, Left: "leftName", Right: "rightName"},
	})

	out := Print(name)
	if !HasConflictMarkers(out) {
		t.Fatalf("expected conflict markers in output, got %q", out)
	}
	if !strings.Contains(out, "leftName") || !strings.Contains(out, "rightName") {
		t.Fatalf("expected both candidate names present, got %q", out)
	}
}
