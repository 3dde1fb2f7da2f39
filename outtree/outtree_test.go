package outtree

import (
	"errors"
	"testing"

	"javamerge/ast"
	"javamerge/changeset"
	"javamerge/content"
	"javamerge/match"
	"javamerge/node"
	"javamerge/pcs"
	"javamerge/sporktree"
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
	children     map[ast.Role][]ast.Element
	roles        []ast.Role
	meta         *stubMeta
}

func newStub(kind ast.Kind, source string, role ast.Role) *stubElement {
	return &stubElement{kind: kind, source: source, roleInParent: role, meta: newStubMeta(), children: map[ast.Role][]ast.Element{}}
}

func (s *stubElement) Kind() ast.Kind          { return s.kind }
func (s *stubElement) Parent() ast.Element     { return nil }
func (s *stubElement) RoleInParent() ast.Role  { return s.roleInParent }
func (s *stubElement) Roles() []ast.Role       { return s.roles }
func (s *stubElement) Children(r ast.Role) []ast.Element { return s.children[r] }
func (s *stubElement) SetChildren(r ast.Role, c []ast.Element) {
	if s.children == nil {
		s.children = map[ast.Role][]ast.Element{}
	}
	s.children[r] = c
}
func (s *stubElement) SetRoleInParent(r ast.Role) { s.roleInParent = r }
func (s *stubElement) Clone() ast.Element {
	return &stubElement{kind: s.kind, source: s.source, roleInParent: s.roleInParent, roles: s.roles, meta: newStubMeta(), children: map[ast.Role][]ast.Element{}}
}
func (s *stubElement) Metadata() ast.Metadata   { return s.meta }
func (s *stubElement) Position() ast.Position   { return ast.Position{} }
func (s *stubElement) SetPosition(ast.Position) {}
func (s *stubElement) Source() string           { return s.source }

func getContentFromSource(n *node.Node) ast.RoledValues {
	e := n.Element()
	return ast.RoledValues{Element: e, Pairs: []ast.RoledValue{{Role: ast.RoleName, Value: e.Source()}}}
}

// TestBuild_MaterializesSurvivingFieldUnderResolvedRole builds a class with
// one LEFT-only inserted field and checks the output clone carries it under
// the TYPE_MEMBER role with no conflict markers set.
func TestBuild_MaterializesSurvivingFieldUnderResolvedRole(t *testing.T) {
	factory := node.NewFactory()
	root := newStub("ClassDeclaration", "class C {}", "")
	root.roles = []ast.Role{ast.RoleTypeMember}
	rootNode := factory.Wrap(root, factory.VirtualRoot(), ast.Base)

	leftField := newStub("FieldDeclaration", "int bar;", ast.RoleTypeMember)
	leftNode := factory.Wrap(leftField, rootNode, ast.Left)

	start := factory.StartOfChildList(rootNode)
	end := factory.EndOfChildList(rootNode)

	cr := match.Identity()
	delta := changeset.New(cr, getContentFromSource)
	delta.Add(pcs.Pcs{Root: rootNode, Predecessor: start, Successor: leftNode, Revision: ast.Left})
	delta.Add(pcs.Pcs{Root: rootNode, Predecessor: leftNode, Successor: end, Revision: ast.Left})

	b := sporktree.NewBuilder(delta, factory)
	sporktree.RegisterDefaultHandlers(b)
	tree := b.Build(rootNode)

	result, err := Build(tree, map[*node.Node][]content.Conflict{}, cr)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.HasContentConflict {
		t.Fatalf("expected no content conflict")
	}
	kids := result.Root.Children(ast.RoleTypeMember)
	if len(kids) != 1 {
		t.Fatalf("expected 1 TYPE_MEMBER child, got %d", len(kids))
	}
	if kids[0].Source() != "int bar;" {
		t.Fatalf("expected surviving clone to carry LEFT's source, got %q", kids[0].Source())
	}
}

// TestResolveRole_DropsBaseRoleWhenOtherMatchAgrees covers spec.md §4.9 step
// 3: the element's own (BASE) role is discarded once a LEFT/RIGHT match
// reports a different, agreeing role.
func TestResolveRole_DropsBaseRoleWhenOtherMatchAgrees(t *testing.T) {
	factory := node.NewFactory()
	baseElem := newStub("FieldDeclaration", "int a;", "A")
	leftElem := newStub("FieldDeclaration", "int a;", "B")
	rightElem := newStub("FieldDeclaration", "int a;", "B")

	baseNode := factory.Wrap(baseElem, nil, ast.Base)
	leftNode := factory.Wrap(leftElem, nil, ast.Left)
	rightNode := factory.Wrap(rightElem, nil, ast.Right)

	cr := match.NewForTest(
		[2]*node.Node{baseNode, baseNode},
		[2]*node.Node{leftNode, baseNode},
		[2]*node.Node{rightNode, baseNode},
	)

	role, err := resolveRole(&sporktree.Tree{Node: baseNode}, cr)
	if err != nil {
		t.Fatalf("resolveRole: %v", err)
	}
	if role != "B" {
		t.Fatalf("expected BASE's role dropped in favor of the agreeing match, got %q", role)
	}
}

// TestResolveRole_AmbiguousNonBaseMatchesFail covers the genuine-ambiguity
// path: LEFT and RIGHT matches disagree on role and neither is BASE's own,
// so resolveRole must fail rather than silently pick one.
func TestResolveRole_AmbiguousNonBaseMatchesFail(t *testing.T) {
	factory := node.NewFactory()
	baseElem := newStub("FieldDeclaration", "int a;", "A")
	leftElem := newStub("FieldDeclaration", "int a;", "B")
	rightElem := newStub("FieldDeclaration", "int a;", "C")

	baseNode := factory.Wrap(baseElem, nil, ast.Base)
	leftNode := factory.Wrap(leftElem, nil, ast.Left)
	rightNode := factory.Wrap(rightElem, nil, ast.Right)

	cr := match.NewForTest(
		[2]*node.Node{baseNode, baseNode},
		[2]*node.Node{leftNode, baseNode},
		[2]*node.Node{rightNode, baseNode},
	)

	_, err := resolveRole(&sporktree.Tree{Node: baseNode}, cr)
	var roleErr *RoleAmbiguityError
	if !errors.As(err, &roleErr) {
		t.Fatalf("expected RoleAmbiguityError, got %v", err)
	}
}
