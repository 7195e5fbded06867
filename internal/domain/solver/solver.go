// Package solver resolves plugin requests into one concrete version per
// plugin name such that every dependency constraint holds.
package solver

import (
	"fmt"
	"sort"

	"github.com/felixgeelhaar/afm/internal/domain/integrity"
	"github.com/felixgeelhaar/afm/internal/domain/plan"
	"github.com/felixgeelhaar/afm/internal/domain/plugin"
	"github.com/felixgeelhaar/afm/internal/domain/version"
)

// Index is the availability view the solver searches.
type Index interface {
	// ListVersions returns installable versions, highest first.
	ListVersions(name string) []version.Version
	Checksum(name string, v version.Version) (integrity.Integrity, bool)
}

// ManifestSource returns the manifest of a published version.
type ManifestSource interface {
	Manifest(name string, v version.Version) (*plugin.Manifest, error)
}

// Request asks for a plugin, optionally constrained.
type Request struct {
	Name       string
	Constraint version.Constraint
}

// String renders "name constraint".
func (r Request) String() string {
	return r.Name + " " + r.Constraint.String()
}

// RequestsFromMap converts a name to constraint map into requests sorted by name.
func RequestsFromMap(m map[string]version.Constraint) []Request {
	out := make([]Request, 0, len(m))
	for name, c := range m {
		out = append(out, Request{Name: name, Constraint: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Options tune resolution.
type Options struct {
	// Channel narrows candidates; exact pins bypass the channel filter.
	Channel version.Channel
}

// Result is a successful resolution.
type Result struct {
	Plan *plan.Plan
	// Pruned lists the dead ends met and backtracked over on the way to the
	// plan, for diagnostics.
	Pruned []Conflict
	// Cycles lists dependency cycles in the plan. Consistent cycles are allowed.
	Cycles [][]string
}

// Resolve computes a plan for the requests. Candidates are tried highest
// first, plugins are processed alphabetically, and the search backtracks to
// lower versions of earlier choices when a later frontier becomes empty, so
// the first plan found is the maximal one in that order. Backtracking skips
// choices that did not constrain the failing plugin.
//
// Unsatisfiable requests yield *ConflictError. Manifest load failures are
// returned as is.
func Resolve(requests []Request, idx Index, manifests ManifestSource, opts Options) (*Result, error) {
	s := &search{
		idx:       idx,
		manifests: manifests,
		channel:   opts.Channel,
		reqs:      make(map[string][]Requirement),
		from:      make(map[string][]string),
		assigned:  make(map[string]choice),
		seen:      make(map[string]bool),
	}
	if s.channel == "" {
		s.channel = version.ChannelStable
	}

	for _, r := range requests {
		s.reqs[r.Name] = append(s.reqs[r.Name], Requirement{Constraint: r.Constraint})
		s.from[r.Name] = append(s.from[r.Name], "")
	}

	for _, name := range s.pending() {
		if len(s.candidates(name)) == 0 {
			s.record(name)
		}
	}
	if len(s.conflicts) > 0 {
		return nil, &ConflictError{Report: ConflictReport{Conflicts: s.conflicts}}
	}

	ok, _ := s.solve()
	if s.err != nil {
		return nil, s.err
	}
	if !ok {
		return nil, &ConflictError{Report: ConflictReport{Conflicts: s.conflicts}}
	}

	p, err := s.buildPlan()
	if err != nil {
		return nil, err
	}
	_, cycles := p.Order()
	return &Result{Plan: p, Pruned: s.conflicts, Cycles: cycles}, nil
}

type choice struct {
	version  version.Version
	manifest *plugin.Manifest
}

type search struct {
	idx       Index
	manifests ManifestSource
	channel   version.Channel

	reqs     map[string][]Requirement
	// from parallels reqs with the name of each requirer, "" for requests.
	from     map[string][]string
	assigned map[string]choice

	conflicts []Conflict
	seen      map[string]bool
	err       error
}

// pending returns required but unassigned names in alphabetical order.
func (s *search) pending() []string {
	var names []string
	for name, reqs := range s.reqs {
		if len(reqs) == 0 {
			continue
		}
		if _, ok := s.assigned[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// candidates returns the versions of name that satisfy every active
// requirement, highest first. An assigned name yields its assignment or
// nothing.
func (s *search) candidates(name string) []version.Version {
	reqs := s.reqs[name]
	if c, ok := s.assigned[name]; ok {
		if allows(reqs, c.version) {
			return []version.Version{c.version}
		}
		return nil
	}

	var out []version.Version
	for _, v := range s.idx.ListVersions(name) {
		if !s.channel.Admits(v) && !pinned(reqs, v) {
			continue
		}
		if allows(reqs, v) {
			out = append(out, v)
		}
	}
	return out
}

// nameSet holds the assigned plugins a failure depends on.
type nameSet map[string]bool

func (n nameSet) merge(other nameSet) {
	for name := range other {
		n[name] = true
	}
}

// solve assigns the first pending plugin and recurses. On failure it returns
// the assignments that caused it. A level whose own name is not among them
// cannot fix the failure by picking another version, so it returns at once
// and the search jumps back to the latest culprit.
func (s *search) solve() (bool, nameSet) {
	pending := s.pending()
	if len(pending) == 0 {
		return true, nil
	}
	name := pending[0]

	cands := s.candidates(name)
	if len(cands) == 0 {
		s.record(name)
		return false, s.blame(name)
	}

	culprits := s.blame(name)
	for _, v := range cands {
		m, err := s.manifests.Manifest(name, v)
		if err != nil {
			s.err = err
			return false, nil
		}

		s.assign(name, v, m)
		failed := s.forwardCheck(m)
		if failed == nil {
			ok, sub := s.solve()
			if ok {
				return true, nil
			}
			failed = sub
		}
		s.unassign(name, m)
		if s.err != nil {
			return false, nil
		}

		if !failed[name] {
			return false, failed
		}
		delete(failed, name)
		culprits.merge(failed)
	}
	return false, culprits
}

// blame returns the plugins whose manifests constrain name.
func (s *search) blame(name string) nameSet {
	out := make(nameSet)
	for _, requirer := range s.from[name] {
		if requirer != "" {
			out[requirer] = true
		}
	}
	return out
}

func (s *search) assign(name string, v version.Version, m *plugin.Manifest) {
	s.assigned[name] = choice{version: v, manifest: m}
	requirer := plugin.Key(name, v)
	for _, dep := range m.DependencyNames() {
		s.reqs[dep] = append(s.reqs[dep], Requirement{Requirer: requirer, Constraint: m.Dependencies[dep]})
		s.from[dep] = append(s.from[dep], name)
	}
}

// unassign reverts assign. Requirements are stacks, so the ones pushed by
// this manifest are the last entry of each dependency's list.
func (s *search) unassign(name string, m *plugin.Manifest) {
	for _, dep := range m.DependencyNames() {
		reqs := s.reqs[dep]
		s.reqs[dep] = reqs[:len(reqs)-1]
		from := s.from[dep]
		s.from[dep] = from[:len(from)-1]
	}
	delete(s.assigned, name)
}

// forwardCheck returns nil when every dependency of m still has a candidate,
// and otherwise the assignments responsible for the empty frontiers.
func (s *search) forwardCheck(m *plugin.Manifest) nameSet {
	var failed nameSet
	for _, dep := range m.DependencyNames() {
		if len(s.candidates(dep)) > 0 {
			continue
		}
		s.record(dep)
		if failed == nil {
			failed = make(nameSet)
		}
		failed.merge(s.blame(dep))
		if _, ok := s.assigned[dep]; ok {
			failed[dep] = true
		}
	}
	return failed
}

func (s *search) record(name string) {
	c := Conflict{
		Plugin:       name,
		Available:    s.idx.ListVersions(name),
		Requirements: append([]Requirement(nil), s.reqs[name]...),
	}
	key := c.key()
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	s.conflicts = append(s.conflicts, c)
}

func (s *search) buildPlan() (*plan.Plan, error) {
	p := plan.New()
	names := make([]string, 0, len(s.assigned))
	for name := range s.assigned {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c := s.assigned[name]
		sum, ok := s.idx.Checksum(name, c.version)
		if !ok {
			return nil, fmt.Errorf("no checksum published for %s", plugin.Key(name, c.version))
		}
		if err := p.Add(plan.Entry{
			Name:         name,
			Version:      c.version,
			Checksum:     sum,
			Dependencies: c.manifest.Dependencies,
		}); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func allows(reqs []Requirement, v version.Version) bool {
	for _, r := range reqs {
		if !r.Constraint.Allows(v) {
			return false
		}
	}
	return true
}

func pinned(reqs []Requirement, v version.Version) bool {
	for _, r := range reqs {
		if r.Constraint.Pins(v) {
			return true
		}
	}
	return false
}
