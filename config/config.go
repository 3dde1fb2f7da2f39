// Package config loads the YAML configuration the `javamerge` CLI and
// batch runner read: ignore globs, which content- and structural-conflict
// handlers are active, and history-log settings. A loaded file is merged
// over compiled-in defaults field by field, the same layering
// kai-core/modulematch's rule files and kailab/config's env-var fallback
// give the rest of the corpus.
package config

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"javamerge/ast"
	"javamerge/content"
	"javamerge/skiprules"
	"javamerge/sporktree"
)

// Config is the on-disk shape of javamerge.yaml.
type Config struct {
	// Ignore lists additional gitignore-style globs layered on top of
	// skiprules' built-in defaults for batch directory walks.
	Ignore []string `yaml:"ignore"`

	// ContentHandlers toggles the per-role content-conflict handlers by
	// role name (e.g. "MODIFIER", "COMMENT_CONTENT"). A role set to false
	// is left unhandled, so a conflict on it surfaces instead of being
	// silently reconciled.
	ContentHandlers map[string]bool `yaml:"content_handlers"`

	// StructuralHandlers orders (and can omit) the structural-conflict
	// policies applied before a remaining INSERT_INSERT conflict is
	// reported. Recognized names: "empty_side", "type_member_ordering".
	StructuralHandlers []string `yaml:"structural_handlers"`

	History HistoryConfig `yaml:"history"`
}

// HistoryConfig controls the audit log historylog writes merge runs to.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the compiled-in configuration every loaded file is
// merged over.
func Default() *Config {
	return &Config{
		Ignore: nil,
		ContentHandlers: map[string]bool{
			string(ast.RoleIsImplicit):  true,
			string(ast.RoleIsUpper):     true,
			string(ast.RoleCommentText): true,
			string(ast.RoleModifier):    true,
		},
		StructuralHandlers: []string{"empty_side", "type_member_ordering"},
		History: HistoryConfig{
			Enabled: true,
			Path:    ".javamerge/history.db",
		},
	}
}

// Load reads path as YAML and merges it over Default(). A missing file is
// not an error — javamerge runs on defaults alone when no config exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := mergo.Merge(cfg, loaded, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("config: merging %s over defaults: %w", path, err)
	}

	// mergo never overwrites with a zero value, so an explicit
	// "enabled: false" is applied by hand.
	var explicit struct {
		History struct {
			Enabled *bool `yaml:"enabled"`
		} `yaml:"history"`
	}
	if err := yaml.Unmarshal(data, &explicit); err == nil && explicit.History.Enabled != nil {
		cfg.History.Enabled = *explicit.History.Enabled
	}
	return cfg, nil
}

// SkipMatcher builds the skiprules.Matcher a batch walk rooted at dir
// should use: the package's Java-specific defaults, dir's .gitignore and
// .javamergeignore, then cfg.Ignore layered last so it always wins ties.
func (c *Config) SkipMatcher(dir string) (*skiprules.Matcher, error) {
	m, err := skiprules.LoadFromDir(dir)
	if err != nil {
		return nil, err
	}
	m.AddPatterns(c.Ignore)
	return m, nil
}

// ContentResolver builds the content.Resolver the merge driver uses,
// starting from content.NewJavaResolver() and unregistering any handler
// whose role is toggled off in cfg.ContentHandlers.
func (c *Config) ContentResolver() *content.Resolver {
	r := content.NewJavaResolver()
	for role := range defaultContentHandlers {
		if enabled, set := c.ContentHandlers[string(role)]; set && !enabled {
			r.UnregisterHandler(role)
		}
	}
	return r
}

// StructuralHandlerFuncs resolves cfg.StructuralHandlers' names to the
// actual sporktree.StructuralHandler functions, in the configured order,
// silently skipping unrecognized names (nothing validates the names
// earlier, so an unknown name is simply ignored).
func (c *Config) StructuralHandlerFuncs() []sporktree.StructuralHandler {
	var handlers []sporktree.StructuralHandler
	for _, name := range c.StructuralHandlers {
		if h, ok := structuralHandlersByName[name]; ok {
			handlers = append(handlers, h)
		}
	}
	return handlers
}
