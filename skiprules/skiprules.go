// Package skiprules provides gitignore-style path filtering for the batch
// merge subcommand, so a directory walk can skip build output, VCS
// metadata, and IDE state without the caller hand-rolling glob checks.
package skiprules

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Pattern is a single compiled skip pattern.
type Pattern struct {
	pattern  string
	negated  bool
	dirOnly  bool
	anchored bool // pattern started with / — matches only from the walk root
}

// Matcher holds compiled skip patterns for one batch-merge root.
type Matcher struct {
	patterns []Pattern
	basePath string
}

// NewMatcher creates an empty Matcher rooted at basePath.
func NewMatcher(basePath string) *Matcher {
	return &Matcher{basePath: basePath}
}

// AddPattern compiles and adds one gitignore-style pattern line.
func (m *Matcher) AddPattern(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	p := Pattern{}
	if strings.HasPrefix(line, "!") {
		p.negated = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = line[1:]
	}
	if !p.anchored && !strings.Contains(line, "/") {
		line = "**/" + line
	}

	p.pattern = line
	m.patterns = append(m.patterns, p)
}

// AddPatterns compiles and adds each pattern line.
func (m *Matcher) AddPatterns(lines []string) {
	for _, line := range lines {
		m.AddPattern(line)
	}
}

// LoadFile adds patterns from a gitignore-style file. A missing file is not
// an error — skip files are optional.
func (m *Matcher) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		m.AddPattern(scanner.Text())
	}
	return scanner.Err()
}

// Match reports whether path (relative to the matcher's base path) should
// be skipped. isDir distinguishes directory-only patterns from file
// patterns, matching the same ambiguity gitignore itself carries.
func (m *Matcher) Match(path string, isDir bool) bool {
	path = filepath.ToSlash(path)
	path = strings.TrimPrefix(path, "./")

	skip := false
	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			if m.matchDirPattern(p.pattern, path) {
				skip = !p.negated
			}
			continue
		}
		if m.matchPattern(p.pattern, path) {
			skip = !p.negated
		}
	}
	return skip
}

func (m *Matcher) matchDirPattern(pattern, path string) bool {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		if m.matchPattern(pattern, strings.Join(parts[:i], "/")) {
			return true
		}
	}
	return false
}

func (m *Matcher) matchPattern(pattern, path string) bool {
	if matched, _ := doublestar.Match(pattern, path); matched {
		return true
	}
	if !strings.HasSuffix(pattern, "/**") {
		if matched, _ := doublestar.Match(pattern+"/**", path); matched {
			return true
		}
	}
	return false
}

// MatchPath stats path under the matcher's base path to resolve isDir, then
// delegates to Match. Falls back to treating path as a file if the stat
// fails (e.g. a dangling symlink encountered mid-walk).
func (m *Matcher) MatchPath(path string) bool {
	full := filepath.Join(m.basePath, path)
	info, err := os.Stat(full)
	if err != nil {
		return m.Match(path, false)
	}
	return m.Match(path, info.IsDir())
}

// LoadDefaults loads the skip patterns a Java batch merge always wants:
// VCS metadata, editor state, and Maven/Gradle build output. Kept narrow
// and Java-specific rather than the general multi-ecosystem list a code
// host's ignore file needs, since this only ever walks Java sources.
func (m *Matcher) LoadDefaults() {
	m.AddPatterns([]string{
		".git/",
		".svn/",
		".hg/",

		".DS_Store",
		"Thumbs.db",
		"*.tmp",
		"*.swp",
		"*.orig",
		"*.bak",

		"target/",
		"build/",
		"out/",
		"bin/",
		".gradle/",
		".mvn/",
		"dependency-reduced-pom.xml",

		"*.class",
		"*.jar",
		"*.war",
		"*.ear",
		"*.iml",
		"*.iws",
		"*.ipr",

		".idea/",
		".vscode/",
		".settings/",
		".classpath",
		".project",
	})
}

// LoadFromDir builds a Matcher for dir, loading defaults, then .gitignore,
// then .javamergeignore (which takes precedence via negation patterns),
// layering default/.gitignore/project-specific rules in that order.
func LoadFromDir(dir string) (*Matcher, error) {
	m := NewMatcher(dir)
	m.LoadDefaults()

	if err := m.LoadFile(filepath.Join(dir, ".gitignore")); err != nil {
		return nil, err
	}
	if err := m.LoadFile(filepath.Join(dir, ".javamergeignore")); err != nil {
		return nil, err
	}
	return m, nil
}

// Compile builds a Matcher directly from an in-memory pattern list, with no default patterns and no
// base path for stat-based directory detection.
func Compile(patterns []string) *Matcher {
	m := NewMatcher("")
	m.AddPatterns(patterns)
	return m
}
