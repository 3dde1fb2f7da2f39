package sporktree

import (
	"testing"

	"javamerge/ast"
	"javamerge/changeset"
	"javamerge/match"
	"javamerge/node"
	"javamerge/pcs"
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
	kind         ast.Kind
	source       string
	roleInParent ast.Role
	meta         *stubMeta
}

func newStub(kind ast.Kind, source string, role ast.Role) *stubElement {
	return &stubElement{kind: kind, source: source, roleInParent: role, meta: newStubMeta()}
}

func (s *stubElement) Kind() ast.Kind                      { return s.kind }
func (s *stubElement) Parent() ast.Element                 { return nil }
func (s *stubElement) RoleInParent() ast.Role               { return s.roleInParent }
func (s *stubElement) Roles() []ast.Role                   { return nil }
func (s *stubElement) Children(ast.Role) []ast.Element     { return nil }
func (s *stubElement) SetChildren(ast.Role, []ast.Element) {}
func (s *stubElement) SetRoleInParent(r ast.Role)          { s.roleInParent = r }
func (s *stubElement) Clone() ast.Element                  { return newStub(s.kind, s.source, s.roleInParent) }
func (s *stubElement) Metadata() ast.Metadata               { return s.meta }
func (s *stubElement) Position() ast.Position               { return ast.Position{} }
func (s *stubElement) SetPosition(ast.Position)             {}
func (s *stubElement) Source() string                       { return s.source }

func getContentFromSource(n *node.Node) ast.RoledValues {
	e := n.Element()
	return ast.RoledValues{Element: e, Pairs: []ast.RoledValue{{Role: ast.RoleName, Value: e.Source()}}}
}

// TestBuild_SingleSidedInsertLinearChain builds a class body with one
// BASE field surviving untouched and one LEFT-only field appended, and
// checks the resulting Tree's children come out in the expected chain
// order with no conflicts.
func TestBuild_SingleSidedInsertLinearChain(t *testing.T) {
	factory := node.NewFactory()
	root := newStub("ClassDeclaration", "class C {}", "")
	rootNode := factory.Wrap(root, factory.VirtualRoot(), ast.Base)

	baseField := newStub("FieldDeclaration", "int foo;", ast.RoleTypeMember)
	leftField := newStub("FieldDeclaration", "int bar;", ast.RoleTypeMember)

	baseNode := factory.Wrap(baseField, rootNode, ast.Base)
	leftNode := factory.Wrap(leftField, rootNode, ast.Left)

	start := factory.StartOfChildList(rootNode)
	end := factory.EndOfChildList(rootNode)

	cr := match.Identity()
	delta := changeset.New(cr, getContentFromSource)
	delta.Add(pcs.Pcs{Root: rootNode, Predecessor: start, Successor: baseNode, Revision: ast.Base})
	delta.Add(pcs.Pcs{Root: rootNode, Predecessor: baseNode, Successor: leftNode, Revision: ast.Left})
	delta.Add(pcs.Pcs{Root: rootNode, Predecessor: leftNode, Successor: end, Revision: ast.Left})

	b := NewBuilder(delta, factory)
	RegisterDefaultHandlers(b)

	tree := b.Build(rootNode)
	if len(tree.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(tree.Children))
	}
	if tree.Children[0].Node != baseNode {
		t.Fatalf("expected first child to be baseNode")
	}
	if tree.Children[1].Node != leftNode {
		t.Fatalf("expected second child to be leftNode")
	}
	if tree.Children[1].Conflict != nil {
		t.Fatalf("expected no conflict on single-sided insert")
	}
}

// TestBuild_EmptySideOptimisticResolution builds an INSERT_INSERT successor
// conflict at the START edge where only LEFT inserted a member and RIGHT's
// chain goes straight to END — the optimistic-empty-side handler should
// pick LEFT's insertion with no conflict.
func TestBuild_EmptySideOptimisticResolution(t *testing.T) {
	factory := node.NewFactory()
	root := newStub("ClassDeclaration", "class C {}", "")
	rootNode := factory.Wrap(root, factory.VirtualRoot(), ast.Base)

	leftField := newStub("FieldDeclaration", "int bar;", ast.RoleTypeMember)
	leftNode := factory.Wrap(leftField, rootNode, ast.Left)

	start := factory.StartOfChildList(rootNode)
	end := factory.EndOfChildList(rootNode)

	cr := match.Identity()
	delta := changeset.New(cr, getContentFromSource)
	// LEFT inserted leftNode between start and end.
	delta.Add(pcs.Pcs{Root: rootNode, Predecessor: start, Successor: leftNode, Revision: ast.Left})
	delta.Add(pcs.Pcs{Root: rootNode, Predecessor: leftNode, Successor: end, Revision: ast.Left})
	// RIGHT never touched this slot: start->end directly.
	delta.Add(pcs.Pcs{Root: rootNode, Predecessor: start, Successor: end, Revision: ast.Right})

	b := NewBuilder(delta, factory)
	RegisterDefaultHandlers(b)

	tree := b.Build(rootNode)
	if len(tree.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(tree.Children))
	}
	if tree.Children[0].Node != leftNode {
		t.Fatalf("expected surviving child to be leftNode")
	}
	if tree.Children[0].Conflict != nil {
		t.Fatalf("expected no conflict: empty-side handler should have resolved this")
	}
}

// TestClassifyConflict_BothSidesFreshIsInsertInsert covers the case neither
// resolveConflict caller test above exercises directly: two sides each
// proposing content with no tie back to BASE.
func TestClassifyConflict_BothSidesFreshIsInsertInsert(t *testing.T) {
	factory := node.NewFactory()
	leftNode := factory.Wrap(newStub("FieldDeclaration", "int l;", ast.RoleTypeMember), nil, ast.Left)
	rightNode := factory.Wrap(newStub("FieldDeclaration", "int r;", ast.RoleTypeMember), nil, ast.Right)

	if got := classifyConflict([]*node.Node{leftNode}, []*node.Node{rightNode}); got != InsertInsert {
		t.Fatalf("expected InsertInsert, got %v", got)
	}
}

// TestClassifyConflict_BothSidesRetainBaseIsMove covers two sides that both
// still thread the same BASE-matched nodes through this region, just
// reordered — a MOVE, not an insertion.
func TestClassifyConflict_BothSidesRetainBaseIsMove(t *testing.T) {
	factory := node.NewFactory()
	baseA := factory.Wrap(newStub("FieldDeclaration", "int a;", ast.RoleTypeMember), nil, ast.Base)
	baseB := factory.Wrap(newStub("FieldDeclaration", "int b;", ast.RoleTypeMember), nil, ast.Base)

	if got := classifyConflict([]*node.Node{baseA, baseB}, []*node.Node{baseB, baseA}); got != Move {
		t.Fatalf("expected Move, got %v", got)
	}
}

// TestClassifyConflict_OneSideDeletesBaseContentIsDeleteEdit covers one side
// keeping a BASE-matched node (possibly edited) while the other side's
// chain through this region is empty (deleted it outright).
func TestClassifyConflict_OneSideDeletesBaseContentIsDeleteEdit(t *testing.T) {
	factory := node.NewFactory()
	baseNode := factory.Wrap(newStub("FieldDeclaration", "int a;", ast.RoleTypeMember), nil, ast.Base)

	if got := classifyConflict([]*node.Node{baseNode}, nil); got != DeleteEdit {
		t.Fatalf("expected DeleteEdit, got %v", got)
	}
}

// TestClassifyConflict_OneSideReplacesBaseContentIsInsertDelete covers one
// side keeping BASE-matched content while the other side's chain through
// this region is entirely new, unrelated content.
func TestClassifyConflict_OneSideReplacesBaseContentIsInsertDelete(t *testing.T) {
	factory := node.NewFactory()
	baseNode := factory.Wrap(newStub("FieldDeclaration", "int a;", ast.RoleTypeMember), nil, ast.Base)
	rightNode := factory.Wrap(newStub("FieldDeclaration", "int r;", ast.RoleTypeMember), nil, ast.Right)

	if got := classifyConflict([]*node.Node{baseNode}, []*node.Node{rightNode}); got != InsertDelete {
		t.Fatalf("expected InsertDelete, got %v", got)
	}
}
