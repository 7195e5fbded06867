package lock

import (
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/afm/internal/domain/integrity"
	"github.com/felixgeelhaar/afm/internal/domain/plugin"
	"github.com/felixgeelhaar/afm/internal/domain/version"
)

// Index is the availability view a lockfile is validated against.
type Index interface {
	Has(name string, v version.Version) bool
	Checksum(name string, v version.Version) (integrity.Integrity, bool)
}

// ManifestSource returns the manifest of a published version.
type ManifestSource interface {
	Manifest(name string, v version.Version) (*plugin.Manifest, error)
}

// Reasons a locked edge no longer holds.
const (
	ReasonNotPublished    = "locked version is no longer published"
	ReasonChecksumChanged = "published checksum differs from the locked one"
	ReasonNotLocked       = "dependency is not locked"
	ReasonUnsatisfied     = "locked version does not satisfy the constraint"
)

// BrokenEdge is one locked relation that no longer holds. From is
// "name@version" of the depending plugin, or empty for a direct request.
// Edges about a locked entry itself carry no From or Constraint.
type BrokenEdge struct {
	From       string
	To         string
	Constraint version.Constraint
	Version    version.Version
	Reason     string
}

func (e BrokenEdge) String() string {
	target := e.To
	if !e.Version.IsZero() {
		target = plugin.Key(e.To, e.Version)
	}
	switch {
	case e.Reason == ReasonNotPublished || e.Reason == ReasonChecksumChanged:
		return fmt.Sprintf("%s: %s", target, e.Reason)
	case e.From == "":
		return fmt.Sprintf("request %s %s -> %s: %s", e.To, e.Constraint, target, e.Reason)
	default:
		return fmt.Sprintf("%s -> %s %s (locked %s): %s", e.From, e.To, e.Constraint, target, e.Reason)
	}
}

// StaleLockError reports every locked edge that no longer holds.
type StaleLockError struct {
	Edges []BrokenEdge
}

func (e *StaleLockError) Error() string {
	parts := make([]string, len(e.Edges))
	for i, edge := range e.Edges {
		parts[i] = edge.String()
	}
	return "lockfile is stale: " + strings.Join(parts, "; ")
}

// IsStaleLockError returns true if err is a stale lockfile error.
func IsStaleLockError(err error) bool {
	var staleErr *StaleLockError
	return errors.As(err, &staleErr)
}

// Validate checks that every locked version is still published with the
// locked checksum, that every dependency edge of the locked manifests is
// satisfied by a locked version, and that every request is satisfied.
// It never re-resolves. Manifest load failures are returned as is.
func Validate(l *Lockfile, idx Index, manifests ManifestSource) error {
	var broken []BrokenEdge

	for _, e := range l.Entries() {
		if !idx.Has(e.Name, e.Version) {
			broken = append(broken, BrokenEdge{To: e.Name, Version: e.Version, Reason: ReasonNotPublished})
			continue
		}
		if sum, ok := idx.Checksum(e.Name, e.Version); !ok || !sum.Equal(e.Checksum) {
			broken = append(broken, BrokenEdge{To: e.Name, Version: e.Version, Reason: ReasonChecksumChanged})
			continue
		}

		m, err := manifests.Manifest(e.Name, e.Version)
		if err != nil {
			return err
		}
		from := plugin.Key(e.Name, e.Version)
		for _, dep := range m.DependencyNames() {
			c := m.Dependencies[dep]
			if edge, ok := checkEdge(l, from, dep, c); !ok {
				broken = append(broken, edge)
			}
		}
	}

	for _, name := range l.RequestNames() {
		if edge, ok := checkEdge(l, "", name, l.requests[name]); !ok {
			broken = append(broken, edge)
		}
	}

	if len(broken) > 0 {
		return &StaleLockError{Edges: broken}
	}
	return nil
}

func checkEdge(l *Lockfile, from, to string, c version.Constraint) (BrokenEdge, bool) {
	target, ok := l.Get(to)
	if !ok {
		return BrokenEdge{From: from, To: to, Constraint: c, Reason: ReasonNotLocked}, false
	}
	if !c.Allows(target.Version) {
		return BrokenEdge{From: from, To: to, Constraint: c, Version: target.Version, Reason: ReasonUnsatisfied}, false
	}
	return BrokenEdge{}, true
}
