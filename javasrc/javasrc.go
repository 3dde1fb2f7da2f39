// Package javasrc is the Parser collaborator (spec.md §6): a best-effort
// projection of a go-tree-sitter Java parse tree into the ast.Element
// contract the merge engine's core operates over. It is not a byte-perfect
// Java grammar implementation — statement bodies are kept as opaque,
// verbatim leaves rather than descended into expression by expression,
// matching the Parser interface's documented best-effort scope.
package javasrc

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"javamerge/ast"
)

const (
	kindCompilationUnit ast.Kind = "CompilationUnit"
	kindTypeReference    ast.Kind = "TypeReference"
	kindStatement        ast.Kind = "Statement"
	kindEnumConstant      ast.Kind = "EnumConstant"
)

// Parser wraps a go-tree-sitter parser configured for Java.
type Parser struct {
	sitter *sitter.Parser
}

// NewParser builds a Parser ready to Parse Java source.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(java.GetLanguage())
	return &Parser{sitter: p}
}

// Parse parses source and returns its compilation-unit element: Roles()
// holds TYPE_MEMBER children for each top-level type declaration (and any
// top-level comment), with the package/import preamble preserved verbatim
// in the "preamble" metadata key for the printer to re-emit ahead of them.
func (p *Parser) Parse(ctx context.Context, source []byte) (ast.Element, error) {
	tree, err := p.sitter.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("javasrc: parse failed: %w", err)
	}
	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("javasrc: empty parse tree")
	}
	return convertProgram(root, source), nil
}

func convertProgram(n *sitter.Node, src []byte) *element {
	cu := newElement(kindCompilationUnit, string(src))
	stampPosition(cu, n)

	var preamble strings.Builder
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "package_declaration", "import_declaration":
			preamble.WriteString(c.Content(src))
			preamble.WriteString("\n")
		case "class_declaration":
			cu.add(ast.RoleTypeMember, convertClassLike(c, src, ast.KindClassDeclaration))
		case "interface_declaration":
			cu.add(ast.RoleTypeMember, convertClassLike(c, src, ast.KindInterfaceDeclaration))
		case "enum_declaration":
			cu.add(ast.RoleTypeMember, convertEnum(c, src))
		case "line_comment", "block_comment":
			cu.add(ast.RoleTypeMember, convertComment(c, src))
		}
	}
	cu.setMeta("preamble", preamble.String())
	return cu
}

// convertClassLike handles class_declaration and interface_declaration,
// which share a modifiers/type_parameters/superclass-or-extends/
// super_interfaces/body shape in the grammar.
func convertClassLike(n *sitter.Node, src []byte, kind ast.Kind) *element {
	e := newElement(kind, n.Content(src))
	stampPosition(e, n)
	e.setMeta("modifiers", findModifiers(n, src))

	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "superclass":
			for _, t := range typeListFrom(c, src, "extends") {
				e.add(ast.RoleSupertype, t)
			}
		case "super_interfaces", "extends_interfaces":
			for _, t := range typeListFrom(c, src, "implements", "extends") {
				e.add(ast.RoleSupertype, t)
			}
		case "type_parameters":
			for _, t := range typeListFrom(c, src, "<", ">") {
				e.add(ast.RoleTypeParameter, t)
			}
		case "class_body", "interface_body":
			convertBody(c, src, e)
		}
	}
	return e
}

func convertEnum(n *sitter.Node, src []byte) *element {
	e := newElement(ast.KindEnumDeclaration, n.Content(src))
	stampPosition(e, n)
	e.setMeta("modifiers", findModifiers(n, src))

	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "super_interfaces":
			for _, t := range typeListFrom(c, src, "implements") {
				e.add(ast.RoleSupertype, t)
			}
		case "enum_body":
			convertEnumBody(c, src, e)
		}
	}
	return e
}

func convertEnumBody(n *sitter.Node, src []byte, into *element) {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "enum_constant":
			into.add(ast.RoleTypeMember, newElement(kindEnumConstant, c.Content(src)))
		case "enum_body_declarations":
			convertBody(c, src, into)
		case "line_comment", "block_comment":
			into.add(ast.RoleTypeMember, convertComment(c, src))
		}
	}
}

// convertBody walks a class_body/interface_body/enum_body_declarations
// node, adding each member under into's TYPE_MEMBER role.
func convertBody(n *sitter.Node, src []byte, into *element) {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "field_declaration":
			into.add(ast.RoleTypeMember, convertField(c, src))
		case "method_declaration":
			into.add(ast.RoleTypeMember, convertMethod(c, src))
		case "constructor_declaration":
			into.add(ast.RoleTypeMember, convertMethod(c, src))
		case "class_declaration":
			into.add(ast.RoleTypeMember, convertClassLike(c, src, ast.KindClassDeclaration))
		case "interface_declaration":
			into.add(ast.RoleTypeMember, convertClassLike(c, src, ast.KindInterfaceDeclaration))
		case "enum_declaration":
			into.add(ast.RoleTypeMember, convertEnum(c, src))
		case "line_comment", "block_comment":
			into.add(ast.RoleTypeMember, convertComment(c, src))
		}
	}
}

// convertField models an entire field_declaration (possibly multiple
// comma-separated declarators) as a single leaf: the merge engine's content
// table only extracts FieldDeclaration's modifiers, so per-declarator
// granularity isn't needed for the scenarios the core resolves.
func convertField(n *sitter.Node, src []byte) *element {
	e := newElement(ast.KindFieldDeclaration, n.Content(src))
	stampPosition(e, n)
	e.setMeta("modifiers", findModifiers(n, src))
	return e
}

func convertMethod(n *sitter.Node, src []byte) *element {
	e := newElement(ast.KindMethodDeclaration, n.Content(src))
	stampPosition(e, n)

	mods, isDefault := findMethodModifiers(n, src)
	e.setMeta("modifiers", mods)
	e.setMeta("is_default", isDefault)

	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "type_parameters":
			for _, t := range typeListFrom(c, src, "<", ">") {
				e.add(ast.RoleTypeParameter, t)
			}
		case "formal_parameters":
			for _, p := range convertParameters(c, src) {
				e.add(ast.RoleParameter, p)
			}
		case "throws":
			for _, t := range typeListFrom(c, src, "throws") {
				e.add(ast.RoleThrows, t)
			}
		case "block":
			for _, s := range convertStatements(c, src) {
				e.add(ast.RoleStatement, s)
			}
		}
	}
	return e
}

func convertParameters(n *sitter.Node, src []byte) []*element {
	var out []*element
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "formal_parameter", "spread_parameter":
			out = append(out, convertParameter(c, src))
		}
	}
	return out
}

func convertParameter(n *sitter.Node, src []byte) *element {
	e := newElement(ast.KindParameter, n.Content(src))
	stampPosition(e, n)

	var name string
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() == "identifier" || c.Type() == "variable_declarator" {
			name = leafName(c, src)
		}
	}
	e.setMeta("name", name)
	e.setMeta("is_varargs", n.Type() == "spread_parameter")
	e.setMeta("is_inferred", false)
	return e
}

// leafName returns c's own text if c is itself an identifier, or the name
// of its first nested identifier otherwise (variable_declarator wraps its
// identifier one level down).
func leafName(c *sitter.Node, src []byte) string {
	if c.Type() == "identifier" {
		return c.Content(src)
	}
	for i := 0; i < int(c.ChildCount()); i++ {
		d := c.Child(i)
		if d.Type() == "identifier" {
			return d.Content(src)
		}
	}
	return c.Content(src)
}

// convertStatements converts a block's direct statement children, keeping
// everything but local variable declarations and comments as opaque,
// verbatim Statement leaves.
func convertStatements(block *sitter.Node, src []byte) []*element {
	var out []*element
	for i := 0; i < int(block.ChildCount()); i++ {
		c := block.Child(i)
		switch c.Type() {
		case "{", "}":
			continue
		case "local_variable_declaration":
			out = append(out, convertLocalVar(c, src))
		case "line_comment", "block_comment":
			out = append(out, convertComment(c, src))
		default:
			out = append(out, leafStatement(c, src))
		}
	}
	return out
}

func leafStatement(n *sitter.Node, src []byte) *element {
	e := newElement(kindStatement, n.Content(src))
	stampPosition(e, n)
	return e
}

// convertLocalVar models a local_variable_declaration (possibly declaring
// several variables) by its first declarator's name, for the same reason
// convertField collapses multi-declarator fields to one leaf.
func convertLocalVar(n *sitter.Node, src []byte) *element {
	e := newElement(ast.KindLocalVariable, n.Content(src))
	stampPosition(e, n)

	var name string
	var inferred bool
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "type_identifier":
			if c.Content(src) == "var" {
				inferred = true
			}
		case "variable_declarator":
			if name == "" {
				name = leafName(c, src)
			}
		}
	}
	e.setMeta("name", name)
	e.setMeta("is_inferred", inferred)
	return e
}

func convertComment(n *sitter.Node, src []byte) *element {
	e := newElement(ast.KindComment, n.Content(src))
	stampPosition(e, n)
	commentType := "line"
	if n.Type() == "block_comment" {
		commentType = "block"
	}
	e.setMeta("comment_type", commentType)
	return e
}

// findModifiers locates n's "modifiers" child, if any, and maps its
// modifier-keyword tokens to ast.Modifier. Annotations inside the modifiers
// node are ignored; they carry no merge-relevant content in this table.
func findModifiers(n *sitter.Node, src []byte) map[ast.Modifier]bool {
	mods, _ := findMethodModifiers(n, src)
	return mods
}

// findMethodModifiers is findModifiers plus the is_default flag methods
// need: Java has no ast.ModDefault, since "default" marks an interface
// method body rather than contributing to the modifier set
// content.ModifierHandler merges.
func findMethodModifiers(n *sitter.Node, src []byte) (map[ast.Modifier]bool, bool) {
	set := map[ast.Modifier]bool{}
	isDefault := false
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() != "modifiers" {
			continue
		}
		for j := 0; j < int(c.ChildCount()); j++ {
			tok := c.Child(j)
			switch tok.Type() {
			case "public":
				set[ast.ModPublic] = true
			case "private":
				set[ast.ModPrivate] = true
			case "protected":
				set[ast.ModProtected] = true
			case "abstract":
				set[ast.ModAbstract] = true
			case "final":
				set[ast.ModFinal] = true
			case "static":
				set[ast.ModStatic] = true
			case "volatile":
				set[ast.ModVolatile] = true
			case "synchronized":
				set[ast.ModSynchronized] = true
			case "transient":
				set[ast.ModTransient] = true
			case "native":
				set[ast.ModNative] = true
			case "strictfp":
				set[ast.ModStrictfp] = true
			case "default":
				isDefault = true
			}
		}
	}
	return set, isDefault
}

// typeListFrom renders n's own text with any of the given leading/trailing
// grammar keywords stripped, then splits the remainder on every comma;
// commas inside generic type arguments are not told apart from separators.
// Tree-sitter-java's superclass/super_interfaces/type_parameters/throws
// nodes vary in whether they wrap a dedicated list node or hold their types
// as direct children, so reconstructing the list from source text rather
// than matching specific child node types keeps this resilient to that
// variance, matching the Parser's best-effort scope.
func typeListFrom(n *sitter.Node, src []byte, strip ...string) []*element {
	text := n.Content(src)
	for _, kw := range strip {
		text = strings.ReplaceAll(text, kw, "")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	parts := strings.Split(text, ",")
	out := make([]*element, 0, len(parts))
	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		out = append(out, newElement(kindTypeReference, p))
	}
	return out
}

func stampPosition(e *element, n *sitter.Node) {
	sp := n.StartPoint()
	ep := n.EndPoint()
	e.SetPosition(ast.Position{
		StartLine: int(sp.Row) + 1,
		StartCol:  int(sp.Column),
		EndLine:   int(ep.Row) + 1,
		EndCol:    int(ep.Column),
		Valid:     true,
	})
}
