package transfer

import (
	"fmt"
	"path"

	"github.com/gobwas/glob"

	"github.com/felixgeelhaar/afm/internal/domain/integrity"
	"github.com/felixgeelhaar/afm/internal/domain/plugin"
)

// DefaultIgnore lists patterns never published.
var DefaultIgnore = []string{".git", ".hg", ".svn", "__pycache__", "*.pyc", ".DS_Store"}

// Ignore matches relative artifact paths against glob patterns. A pattern
// matches when it matches the whole slash path or its final element, so
// "*.pyc" excludes compiled files at any depth.
type Ignore struct {
	patterns []string
	globs    []glob.Glob
}

// CompileIgnore compiles the patterns with '/' as the separator.
func CompileIgnore(patterns []string) (*Ignore, error) {
	ig := &Ignore{}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		ig.patterns = append(ig.patterns, p)
		ig.globs = append(ig.globs, g)
	}
	return ig, nil
}

// Patterns returns the compiled patterns.
func (ig *Ignore) Patterns() []string {
	return append([]string(nil), ig.patterns...)
}

// Match reports whether rel is ignored.
func (ig *Ignore) Match(rel string) bool {
	base := path.Base(rel)
	for _, g := range ig.globs {
		if g.Match(rel) || g.Match(base) {
			return true
		}
	}
	return false
}

// Filter returns an artifact filter excluding ignored paths. Top-level
// manifests are always kept.
func (ig *Ignore) Filter() integrity.Filter {
	return func(rel string, _ bool) bool {
		if plugin.IsManifestFile(rel) {
			return true
		}
		return !ig.Match(rel)
	}
}
