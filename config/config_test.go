package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"javamerge/ast"
	"javamerge/sporktree"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.History.Enabled {
		t.Error("expected history enabled by default")
	}
	if len(cfg.StructuralHandlers) != 2 {
		t.Errorf("expected 2 default structural handlers, got %d", len(cfg.StructuralHandlers))
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "javamerge.yaml")
	content := `
ignore:
  - "vendor/**"
content_handlers:
  MODIFIER: false
history:
  enabled: false
  path: custom/history.db
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.Ignore) != 1 || cfg.Ignore[0] != "vendor/**" {
		t.Errorf("expected ignore override, got %v", cfg.Ignore)
	}
	if cfg.History.Enabled {
		t.Error("expected history disabled by override")
	}
	if cfg.History.Path != "custom/history.db" {
		t.Errorf("expected custom history path, got %q", cfg.History.Path)
	}
	if cfg.ContentHandlers["MODIFIER"] {
		t.Error("expected MODIFIER handler toggled off")
	}
	// untouched defaults should survive the merge
	if !cfg.ContentHandlers["IS_UPPER"] {
		t.Error("expected IS_UPPER handler to remain enabled")
	}
}

func TestConfig_ContentResolverHonorsToggles(t *testing.T) {
	cfg := Default()
	cfg.ContentHandlers["MODIFIER"] = false

	r := cfg.ContentResolver()
	if r.HasHandler(ast.RoleModifier) {
		t.Error("expected MODIFIER handler to be unregistered")
	}
	if !r.HasHandler(ast.RoleIsUpper) {
		t.Error("expected IS_UPPER handler to remain registered")
	}
}

func TestConfig_StructuralHandlerFuncsOrdersAndSkipsUnknown(t *testing.T) {
	cfg := Default()
	cfg.StructuralHandlers = []string{"type_member_ordering", "bogus", "empty_side"}

	handlers := cfg.StructuralHandlerFuncs()
	if len(handlers) != 2 {
		t.Fatalf("expected 2 resolved handlers, got %d", len(handlers))
	}
	if reflect.ValueOf(handlers[0]).Pointer() != reflect.ValueOf(sporktree.TypeMemberOrderingHandler).Pointer() {
		t.Error("expected type_member_ordering first, in configured order")
	}
	if reflect.ValueOf(handlers[1]).Pointer() != reflect.ValueOf(sporktree.EmptySideHandler).Pointer() {
		t.Error("expected empty_side second, in configured order")
	}
}

func TestConfig_SkipMatcherLayersIgnoreOverDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Ignore = []string{"*.generated.java"}

	m, err := cfg.SkipMatcher(dir)
	if err != nil {
		t.Fatalf("SkipMatcher: %v", err)
	}
	if !m.Match("target", true) {
		t.Error("expected default target/ pattern still active")
	}
	if !m.Match("Foo.generated.java", false) {
		t.Error("expected configured ignore pattern to match")
	}
	if m.Match("Foo.java", false) {
		t.Error("expected ordinary source file to not match")
	}
}
