package merge

import (
	"strings"
	"testing"

	"javamerge/ast"
	"javamerge/asttest"
	"javamerge/printer"
	"javamerge/sporktree"
)

func buildClass(fields ...*asttest.Node) *asttest.Node {
	root := asttest.New(ast.KindClassDeclaration, "class C {")
	root.WithModifiers(ast.ModPublic)
	for _, f := range fields {
		root.Add(ast.RoleTypeMember, f)
	}
	return root
}

func field(name string, mods ...ast.Modifier) *asttest.Node {
	f := asttest.New(ast.KindFieldDeclaration, "int "+name+";")
	f.WithModifiers(mods...)
	return f
}

// TestMerge_IdenticalTreesProduceNoConflict covers spec.md §8's identity-
// merge property: three independently-built but structurally identical
// trees merge cleanly.
func TestMerge_IdenticalTreesProduceNoConflict(t *testing.T) {
	base := buildClass(field("f1", ast.ModPublic))
	left := buildClass(field("f1", ast.ModPublic))
	right := buildClass(field("f1", ast.ModPublic))

	result, err := Merge(base, left, right, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.HasConflict {
		t.Fatalf("expected no conflict, got %+v", result)
	}
	if !strings.Contains(result.Printed, "int f1;") {
		t.Fatalf("expected surviving field in output, got %q", result.Printed)
	}
}

// TestMerge_OneSidedFieldInsertionNoConflict covers the one-sided-edit
// property: LEFT adds a field, RIGHT leaves its copy identical to BASE.
func TestMerge_OneSidedFieldInsertionNoConflict(t *testing.T) {
	base := buildClass(field("f1", ast.ModPublic))
	left := buildClass(field("f1", ast.ModPublic), field("f2", ast.ModPublic))
	right := buildClass(field("f1", ast.ModPublic))

	result, err := Merge(base, left, right, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.HasConflict {
		t.Fatalf("expected no conflict, got %+v", result)
	}
	if !strings.Contains(result.Printed, "int f2;") {
		t.Fatalf("expected LEFT's inserted field in output, got %q", result.Printed)
	}
}

// TestMerge_ConflictingVisibilityRegistersContentConflict covers spec.md
// §8's conflicting-visibility scenario: LEFT and RIGHT each change the same
// field's visibility to a different value, neither matching BASE.
func TestMerge_ConflictingVisibilityRegistersContentConflict(t *testing.T) {
	base := buildClass(field("f1", ast.ModPublic))
	left := buildClass(field("f1", ast.ModPrivate))
	right := buildClass(field("f1", ast.ModProtected))

	result, err := Merge(base, left, right, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.HasConflict || result.ContentConflicts == 0 {
		t.Fatalf("expected a registered content conflict, got %+v", result)
	}
	if !printer.HasConflictMarkers(result.Printed) {
		t.Fatalf("expected printed output to carry conflict markers around the disputed visibility, got %q", result.Printed)
	}
}

// TestMerge_DisjointTypeMemberInsertionsConcatenateLeftBeforeRight covers
// spec.md §8's insert-insert type-member scenario: both sides add a
// different field at the same position. The type-member-ordering policy
// resolves it without conflict, concatenating LEFT's insertion before
// RIGHT's — a result that would flip if LEFT and RIGHT were swapped.
func TestMerge_DisjointTypeMemberInsertionsConcatenateLeftBeforeRight(t *testing.T) {
	base := buildClass(field("f1", ast.ModPublic))
	left := buildClass(field("f1", ast.ModPublic), field("f2", ast.ModPublic))
	right := buildClass(field("f1", ast.ModPublic), field("f3", ast.ModPublic))

	result, err := Merge(base, left, right, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.HasConflict {
		t.Fatalf("expected the type-member-ordering policy to resolve this without conflict, got %+v", result)
	}

	idx2 := strings.Index(result.Printed, "int f2;")
	idx3 := strings.Index(result.Printed, "int f3;")
	if idx2 < 0 || idx3 < 0 {
		t.Fatalf("expected both insertions in output, got %q", result.Printed)
	}
	if idx2 > idx3 {
		t.Fatalf("expected LEFT's insertion (f2) before RIGHT's (f3), got %q", result.Printed)
	}
}

// TestMergeWithHandlers_OmittingTypeMemberOrderingSurfacesConflict checks
// that the same disjoint-insertion scenario, run with only the
// empty-side policy registered, now reports a structural conflict instead
// of silently concatenating — the handler set a caller supplies is what
// actually runs, not just a preference among a fixed built-in set.
func TestMergeWithHandlers_OmittingTypeMemberOrderingSurfacesConflict(t *testing.T) {
	base := buildClass(field("f1", ast.ModPublic))
	left := buildClass(field("f1", ast.ModPublic), field("f2", ast.ModPublic))
	right := buildClass(field("f1", ast.ModPublic), field("f3", ast.ModPublic))

	result, err := MergeWithHandlers(base, left, right, nil, []sporktree.StructuralHandler{sporktree.EmptySideHandler})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.HasConflict || result.StructuralConflicts == 0 {
		t.Fatalf("expected a structural conflict with type-member-ordering disabled, got %+v", result)
	}
}
