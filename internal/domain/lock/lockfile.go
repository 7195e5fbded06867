// Package lock provides the lockfile aggregate: a persisted snapshot of a
// resolved plan plus the requests that produced it.
package lock

import (
	"errors"
	"sort"

	"github.com/felixgeelhaar/afm/internal/domain/integrity"
	"github.com/felixgeelhaar/afm/internal/domain/plan"
	"github.com/felixgeelhaar/afm/internal/domain/version"
)

// FormatVersion is the current lockfile format version.
const FormatVersion = 1

// Lockfile errors.
var (
	ErrLockfileNotFound  = errors.New("lockfile not found")
	ErrLockfileCorrupt   = errors.New("lockfile is corrupt")
	ErrSaveFailed        = errors.New("failed to save lockfile")
	ErrUnsupportedFormat = errors.New("unsupported lockfile format")
)

// Entry is one locked plugin.
type Entry struct {
	Name     string
	Version  version.Version
	Checksum integrity.Integrity
}

// Lockfile is the aggregate root for reproducible installs.
type Lockfile struct {
	format   int
	requests map[string]version.Constraint
	entries  map[string]Entry
}

// FromPlan creates a lockfile from the requests and the plan they resolved to.
func FromPlan(requests map[string]version.Constraint, p *plan.Plan) *Lockfile {
	l := &Lockfile{
		format:   FormatVersion,
		requests: make(map[string]version.Constraint, len(requests)),
		entries:  make(map[string]Entry),
	}
	for name, c := range requests {
		l.requests[name] = c
	}
	if p != nil {
		for _, e := range p.Entries() {
			l.entries[e.Name] = Entry{Name: e.Name, Version: e.Version, Checksum: e.Checksum}
		}
	}
	return l
}

// Format returns the lockfile format version.
func (l *Lockfile) Format() int {
	return l.format
}

// Requests returns a copy of the request set.
func (l *Lockfile) Requests() map[string]version.Constraint {
	out := make(map[string]version.Constraint, len(l.requests))
	for name, c := range l.requests {
		out[name] = c
	}
	return out
}

// RequestNames returns the requested plugin names in sorted order.
func (l *Lockfile) RequestNames() []string {
	names := make([]string, 0, len(l.requests))
	for name := range l.requests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the locked entry for name.
func (l *Lockfile) Get(name string) (Entry, bool) {
	e, ok := l.entries[name]
	return e, ok
}

// Names returns the locked plugin names in sorted order.
func (l *Lockfile) Names() []string {
	names := make([]string, 0, len(l.entries))
	for name := range l.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries returns the locked entries sorted by name.
func (l *Lockfile) Entries() []Entry {
	out := make([]Entry, 0, len(l.entries))
	for _, name := range l.Names() {
		out = append(out, l.entries[name])
	}
	return out
}

// Len returns the number of locked plugins.
func (l *Lockfile) Len() int {
	return len(l.entries)
}

// Plan rebuilds the locked plan. Dependencies are taken from deps when
// provided; the lockfile itself only records versions and checksums.
func (l *Lockfile) Plan(deps func(Entry) map[string]version.Constraint) (*plan.Plan, error) {
	p := plan.New()
	for _, e := range l.Entries() {
		pe := plan.Entry{Name: e.Name, Version: e.Version, Checksum: e.Checksum}
		if deps != nil {
			pe.Dependencies = deps(e)
		}
		if err := p.Add(pe); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Equal reports whether two lockfiles record the same requests and entries.
func (l *Lockfile) Equal(other *Lockfile) bool {
	if l.format != other.format || len(l.requests) != len(other.requests) || len(l.entries) != len(other.entries) {
		return false
	}
	for name, c := range l.requests {
		o, ok := other.requests[name]
		if !ok || o.String() != c.String() {
			return false
		}
	}
	for name, e := range l.entries {
		o, ok := other.entries[name]
		if !ok || !o.Version.Equal(e.Version) || !o.Checksum.Equal(e.Checksum) {
			return false
		}
	}
	return true
}
