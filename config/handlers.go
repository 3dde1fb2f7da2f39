package config

import (
	"javamerge/ast"
	"javamerge/content"
	"javamerge/sporktree"
)

// defaultContentHandlers mirrors content.RegisterDefaultHandlers' table, so
// ContentResolver can select a subset of it by role name.
var defaultContentHandlers = map[ast.Role]content.Handler{
	ast.RoleIsImplicit:  content.ImplicitFlipHandler,
	ast.RoleIsUpper:     content.WildcardBoundHandler,
	ast.RoleCommentText: content.CommentLineMergeHandler,
	ast.RoleModifier:    content.ModifierHandler,
}

// structuralHandlersByName mirrors sporktree.RegisterDefaultHandlers' table
// under the names a config file can reference.
var structuralHandlersByName = map[string]sporktree.StructuralHandler{
	"empty_side":           sporktree.EmptySideHandler,
	"type_member_ordering": sporktree.TypeMemberOrderingHandler,
}
