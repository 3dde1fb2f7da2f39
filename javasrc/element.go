package javasrc

import "javamerge/ast"

type metadata struct{ m map[string]interface{} }

func newMetadata() *metadata { return &metadata{m: make(map[string]interface{})} }

func (m *metadata) Get(k string) (interface{}, bool) { v, ok := m.m[k]; return v, ok }
func (m *metadata) Set(k string, v interface{})      { m.m[k] = v }
func (m *metadata) Delete(k string)                  { delete(m.m, k) }
func (m *metadata) Keys() []string {
	out := make([]string, 0, len(m.m))
	for k := range m.m {
		out = append(out, k)
	}
	return out
}

// element is the concrete ast.Element this package produces: a Kind, its
// own verbatim source slice, a parent pointer, the role it occupies there,
// an ordered role->children table, and metadata. Once built it owns its own
// source string rather than referencing the originating tree-sitter tree or
// byte buffer, so it survives past the parse call (Clone, in particular,
// never needs to touch tree-sitter state).
type element struct {
	kind         ast.Kind
	source       string
	parent       ast.Element
	roleInParent ast.Role
	roleOrder    []ast.Role
	children     map[ast.Role][]ast.Element
	meta         *metadata
	pos          ast.Position
}

func newElement(kind ast.Kind, source string) *element {
	return &element{kind: kind, source: source, children: make(map[ast.Role][]ast.Element), meta: newMetadata()}
}

func (e *element) add(role ast.Role, child *element) {
	if _, ok := e.children[role]; !ok {
		e.roleOrder = append(e.roleOrder, role)
	}
	child.parent = e
	child.roleInParent = role
	e.children[role] = append(e.children[role], child)
}

func (e *element) setMeta(key string, value interface{}) *element {
	e.meta.Set(key, value)
	return e
}

func (e *element) Kind() ast.Kind         { return e.kind }
func (e *element) Parent() ast.Element    { return e.parent }
func (e *element) RoleInParent() ast.Role { return e.roleInParent }
func (e *element) SetRoleInParent(r ast.Role) { e.roleInParent = r }

func (e *element) Roles() []ast.Role {
	out := make([]ast.Role, len(e.roleOrder))
	copy(out, e.roleOrder)
	return out
}

func (e *element) Children(role ast.Role) []ast.Element {
	kids := e.children[role]
	out := make([]ast.Element, len(kids))
	copy(out, kids)
	return out
}

func (e *element) SetChildren(role ast.Role, children []ast.Element) {
	if _, ok := e.children[role]; !ok {
		e.roleOrder = append(e.roleOrder, role)
	}
	e.children[role] = children
}

func (e *element) Clone() ast.Element {
	clone := &element{kind: e.kind, source: e.source, children: make(map[ast.Role][]ast.Element), meta: newMetadata(), pos: e.pos}
	for _, k := range e.meta.Keys() {
		v, _ := e.meta.Get(k)
		clone.meta.Set(k, v)
	}
	return clone
}

func (e *element) Metadata() ast.Metadata     { return e.meta }
func (e *element) Position() ast.Position     { return e.pos }
func (e *element) SetPosition(p ast.Position) { e.pos = p }
func (e *element) Source() string             { return e.source }
