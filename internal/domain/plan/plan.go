// Package plan provides the resolved plan: exactly one chosen version and
// checksum per plugin name.
package plan

import (
	"errors"
	"fmt"
	"sort"

	"github.com/felixgeelhaar/afm/internal/domain/integrity"
	"github.com/felixgeelhaar/afm/internal/domain/plugin"
	"github.com/felixgeelhaar/afm/internal/domain/version"
)

// ErrDuplicateEntry indicates a second version was added for a plugin name.
var ErrDuplicateEntry = errors.New("plan already contains plugin")

// Entry is one resolved plugin.
type Entry struct {
	Name         string
	Version      version.Version
	Checksum     integrity.Integrity
	Dependencies map[string]version.Constraint
}

// Key returns "name@version".
func (e Entry) Key() string {
	return plugin.Key(e.Name, e.Version)
}

// Edge is a dependency edge between two plan entries.
type Edge struct {
	From       string
	FromVer    version.Version
	To         string
	Constraint version.Constraint
}

// Plan maps plugin names to resolved entries.
type Plan struct {
	entries map[string]Entry
}

// New creates an empty plan.
func New() *Plan {
	return &Plan{entries: make(map[string]Entry)}
}

// Add inserts an entry. A plan holds exactly one version per name.
func (p *Plan) Add(e Entry) error {
	if existing, ok := p.entries[e.Name]; ok {
		return fmt.Errorf("%w: %s (have %s)", ErrDuplicateEntry, e.Key(), existing.Version)
	}
	p.entries[e.Name] = e
	return nil
}

// Get returns the entry for name.
func (p *Plan) Get(name string) (Entry, bool) {
	e, ok := p.entries[name]
	return e, ok
}

// Len returns the number of entries.
func (p *Plan) Len() int {
	return len(p.entries)
}

// Names returns plugin names in sorted order.
func (p *Plan) Names() []string {
	names := make([]string, 0, len(p.entries))
	for name := range p.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries returns the entries sorted by name.
func (p *Plan) Entries() []Entry {
	out := make([]Entry, 0, len(p.entries))
	for _, name := range p.Names() {
		out = append(out, p.entries[name])
	}
	return out
}

// Edges returns every dependency edge, sorted by source then target.
func (p *Plan) Edges() []Edge {
	var edges []Edge
	for _, e := range p.Entries() {
		deps := make([]string, 0, len(e.Dependencies))
		for dep := range e.Dependencies {
			deps = append(deps, dep)
		}
		sort.Strings(deps)
		for _, dep := range deps {
			edges = append(edges, Edge{From: e.Name, FromVer: e.Version, To: dep, Constraint: e.Dependencies[dep]})
		}
	}
	return edges
}

// Unsatisfied returns the edges whose target is missing from the plan or
// resolved to a version the constraint rejects. A valid plan has none.
func (p *Plan) Unsatisfied() []Edge {
	var broken []Edge
	for _, edge := range p.Edges() {
		target, ok := p.entries[edge.To]
		if !ok || !edge.Constraint.Allows(target.Version) {
			broken = append(broken, edge)
		}
	}
	return broken
}

// Equal reports whether two plans choose the same versions and checksums.
func (p *Plan) Equal(other *Plan) bool {
	if p.Len() != other.Len() {
		return false
	}
	for name, e := range p.entries {
		o, ok := other.entries[name]
		if !ok || !e.Version.Equal(o.Version) || !e.Checksum.Equal(o.Checksum) {
			return false
		}
	}
	return true
}

// Order returns plugin names with dependencies before their dependents.
// Cycles do not fail the sort; each detected cycle is returned as the path
// from the re-entered node back to itself.
func (p *Plan) Order() ([]string, [][]string) {
	// State: 0 = unvisited, 1 = visiting, 2 = visited
	state := make(map[string]int)
	result := make([]string, 0, len(p.entries))
	var cycles [][]string
	var currentPath []string

	var visit func(node string)
	visit = func(node string) {
		switch state[node] {
		case 1: // Visiting - cycle detected
			for i, n := range currentPath {
				if n == node {
					cycle := make([]string, len(currentPath[i:])+1)
					copy(cycle, currentPath[i:])
					cycle[len(cycle)-1] = node
					cycles = append(cycles, cycle)
					break
				}
			}
			return
		case 2: // Already visited
			return
		}

		state[node] = 1
		currentPath = append(currentPath, node)

		e := p.entries[node]
		deps := make([]string, 0, len(e.Dependencies))
		for dep := range e.Dependencies {
			if _, ok := p.entries[dep]; ok {
				deps = append(deps, dep)
			}
		}
		sort.Strings(deps)
		for _, dep := range deps {
			visit(dep)
		}

		state[node] = 2
		currentPath = currentPath[:len(currentPath)-1]
		result = append(result, node)
	}

	for _, name := range p.Names() {
		if state[name] == 0 {
			visit(name)
		}
	}
	return result, cycles
}
