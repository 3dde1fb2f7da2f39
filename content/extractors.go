package content

import (
	"strconv"

	"javamerge/ast"
)

// NewJavaResolver builds the Resolver used throughout the merge engine: the
// extractor table and handler table spec.md §4.6's content table describes.
func NewJavaResolver() *Resolver {
	r := NewResolver()
	r.SetImplicitPredicate(func(e ast.Element) bool {
		v, _ := e.Metadata().Get(ast.MetaIsImplicit)
		b, _ := v.(bool)
		return b
	})

	r.Register(ast.KindLiteral, extractValue)
	r.Register(ast.KindNameExpression, extractName)
	r.Register(ast.KindMethodInvocation, extractName)
	r.Register(ast.KindFieldAccess, extractName)
	r.Register(ast.KindAnonymousClass, extractAnonymousName)
	r.Register(ast.KindBinaryOperator, extractOperatorKind)
	r.Register(ast.KindUnaryOperator, extractOperatorKind)
	r.Register(ast.KindAssignOperator, extractOperatorKind)
	r.Register(ast.KindParameter, extractParameter)
	r.Register(ast.KindLocalVariable, extractLocalVariable)
	r.Register(ast.KindWildcardType, extractWildcard)
	r.Register(ast.KindComment, extractComment)
	r.Register(ast.KindMethodDeclaration, extractMethod)
	r.Register(ast.KindClassDeclaration, extractModifiers)
	r.Register(ast.KindInterfaceDeclaration, extractModifiers)
	r.Register(ast.KindEnumDeclaration, extractModifiers)
	r.Register(ast.KindFieldDeclaration, extractModifiers)

	RegisterDefaultHandlers(r)
	return r
}

// extractValue extracts VALUE for literals: the literal's own source text.
func extractValue(e ast.Element) []ast.RoledValue {
	return []ast.RoledValue{{Role: ast.RoleValue, Value: e.Source()}}
}

// extractName extracts NAME for references, invocations, and field access.
func extractName(e ast.Element) []ast.RoledValue {
	return []ast.RoledValue{{Role: ast.RoleName, Value: e.Source()}}
}

// extractAnonymousName normalizes an anonymous class's synthetic numeric
// name (javac assigns these sequentially, so "Outer$1" vs "Outer$2" across
// independently-parsed revisions would otherwise spuriously conflict) down
// to a constant placeholder; ordering among sibling anonymous classes, not
// their synthetic index, is what the merge actually needs to preserve.
func extractAnonymousName(e ast.Element) []ast.RoledValue {
	name := e.Source()
	if _, err := strconv.Atoi(name); err == nil {
		name = "0"
	}
	return []ast.RoledValue{{Role: ast.RoleName, Value: name}}
}

func extractOperatorKind(e ast.Element) []ast.RoledValue {
	return []ast.RoledValue{{Role: ast.RoleOperatorKind, Value: e.Source()}}
}

func extractParameter(e ast.Element) []ast.RoledValue {
	return []ast.RoledValue{
		{Role: ast.RoleName, Value: paramName(e)},
		{Role: ast.RoleIsVarargs, Value: metaBool(e, "is_varargs")},
		{Role: ast.RoleIsInferred, Value: metaBool(e, "is_inferred")},
	}
}

func extractLocalVariable(e ast.Element) []ast.RoledValue {
	return []ast.RoledValue{
		{Role: ast.RoleName, Value: paramName(e)},
		{Role: ast.RoleIsInferred, Value: metaBool(e, "is_inferred")},
	}
}

// extractWildcard extracts IS_UPPER for wildcard type arguments as a
// WildcardBound pair: whether the bound is implicit (a bare "?") alongside
// which direction an explicit bound takes, since WildcardBoundHandler needs
// both to tell "a bound was added/removed" from "extends flipped to super"
// (spec.md §4.6's wildcard-bound algorithm).
func extractWildcard(e ast.Element) []ast.RoledValue {
	bound := WildcardBound{
		Implicit: metaBool(e, "bound_is_implicit"),
		Upper:    metaBool(e, "is_upper"),
	}
	return []ast.RoledValue{{Role: ast.RoleIsUpper, Value: bound}}
}

func extractComment(e ast.Element) []ast.RoledValue {
	commentType, _ := e.Metadata().Get("comment_type")
	ct, _ := commentType.(string)
	return []ast.RoledValue{
		{Role: ast.RoleCommentText, Value: e.Source()},
		{Role: ast.RoleCommentType, Value: ct},
	}
}

func extractMethod(e ast.Element) []ast.RoledValue {
	pairs := extractModifiersPairs(e)
	pairs = append(pairs, ast.RoledValue{Role: ast.RoleIsDefault, Value: metaBool(e, "is_default")})
	return pairs
}

func extractModifiers(e ast.Element) []ast.RoledValue {
	return extractModifiersPairs(e)
}

func extractModifiersPairs(e ast.Element) []ast.RoledValue {
	v, _ := e.Metadata().Get("modifiers")
	set, _ := v.(map[ast.Modifier]bool)
	if set == nil {
		set = map[ast.Modifier]bool{}
	}
	return []ast.RoledValue{{Role: ast.RoleModifier, Value: set}}
}

func paramName(e ast.Element) string {
	v, _ := e.Metadata().Get("name")
	if s, ok := v.(string); ok {
		return s
	}
	return e.Source()
}

func metaBool(e ast.Element, key string) bool {
	v, _ := e.Metadata().Get(key)
	b, _ := v.(bool)
	return b
}
