package skiprules

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBasicPatterns(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		isDir   bool
		want    bool
	}{
		{"*.class", "Foo.class", false, true},
		{"*.class", "build/Foo.class", false, true},
		{"*.class", "Foo.java", false, false},

		{"target/", "target", true, true},
		{"target/", "target/classes/Foo.class", false, true},
		{"target/", "src/target", true, true},

		{"/build", "build", true, true},
		{"/build", "src/build", true, false},

		{"**/test", "test", true, true},
		{"**/test", "src/test", true, true},

		{"src/*.java", "src/App.java", false, true},
		{"src/*.java", "src/sub/App.java", false, false},
		{"src/**/*.java", "src/sub/App.java", false, true},
	}

	for _, tt := range tests {
		m := NewMatcher("")
		m.AddPattern(tt.pattern)
		got := m.Match(tt.path, tt.isDir)
		if got != tt.want {
			t.Errorf("pattern %q, path %q (isDir=%v): got %v, want %v",
				tt.pattern, tt.path, tt.isDir, got, tt.want)
		}
	}
}

func TestNegation(t *testing.T) {
	m := NewMatcher("")
	m.AddPattern("*.class")
	m.AddPattern("!Keep.class")

	tests := []struct {
		path string
		want bool
	}{
		{"Foo.class", true},
		{"Keep.class", false},
		{"Bar.class", true},
	}

	for _, tt := range tests {
		if got := m.Match(tt.path, false); got != tt.want {
			t.Errorf("path %q: got %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestCommentsAndBlanks(t *testing.T) {
	m := NewMatcher("")
	m.AddPattern("# a comment")
	m.AddPattern("")
	m.AddPattern("   ")
	m.AddPattern("*.class")

	if len(m.patterns) != 1 {
		t.Fatalf("expected 1 pattern, got %d", len(m.patterns))
	}
	if !m.Match("Foo.class", false) {
		t.Error("expected Foo.class to match")
	}
}

func TestDirOnlyPatterns(t *testing.T) {
	m := NewMatcher("")
	m.AddPattern("target/")

	if !m.Match("target", true) {
		t.Error("expected target (dir) to match")
	}
	if m.Match("target", false) {
		t.Error("expected target (file) to not match")
	}
	if !m.Match("target/classes/Foo.class", false) {
		t.Error("expected target/classes/Foo.class to match")
	}
}

func TestDefaults(t *testing.T) {
	m := NewMatcher("")
	m.LoadDefaults()

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{".git", true, true},
		{"target", true, true},
		{"build", true, true},
		{".gradle", true, true},
		{"Foo.class", false, true},
		{"app.jar", false, true},
		{".DS_Store", false, true},
		{"src/main/java/App.java", false, false},
	}

	for _, tt := range tests {
		if got := m.Match(tt.path, tt.isDir); got != tt.want {
			t.Errorf("path %q (isDir=%v): got %v, want %v", tt.path, tt.isDir, got, tt.want)
		}
	}
}

func TestLoadFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "skiprules-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	gitignore := filepath.Join(tmpDir, ".gitignore")
	content := "# build output\ntarget/\n*.class\n\n!Important.class\n"
	if err := os.WriteFile(gitignore, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewMatcher(tmpDir)
	if err := m.LoadFile(gitignore); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"target", true, true},
		{"target/Foo.class", false, true},
		{"Foo.class", false, true},
		{"Important.class", false, false},
		{"src/App.java", false, false},
	}

	for _, tt := range tests {
		if got := m.Match(tt.path, tt.isDir); got != tt.want {
			t.Errorf("path %q (isDir=%v): got %v, want %v", tt.path, tt.isDir, got, tt.want)
		}
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "skiprules-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	gitignore := "*.log\ntarget/\n"
	if err := os.WriteFile(filepath.Join(tmpDir, ".gitignore"), []byte(gitignore), 0644); err != nil {
		t.Fatal(err)
	}

	javamergeignore := "# keep error logs\n!error.log\n.javamerge-cache/\n"
	if err := os.WriteFile(filepath.Join(tmpDir, ".javamergeignore"), []byte(javamergeignore), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{".git", true, true},
		{"debug.log", false, true},
		{"target", true, true},
		{"error.log", false, false},
		{".javamerge-cache", true, true},
	}

	for _, tt := range tests {
		if got := m.Match(tt.path, tt.isDir); got != tt.want {
			t.Errorf("path %q (isDir=%v): got %v, want %v", tt.path, tt.isDir, got, tt.want)
		}
	}
}

func TestLoadNonexistentFile(t *testing.T) {
	m := NewMatcher("")
	if err := m.LoadFile("/nonexistent/path/.gitignore"); err != nil {
		t.Errorf("expected nil error for nonexistent file, got %v", err)
	}
}
