package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/felixgeelhaar/afm/internal/domain/integrity"
	"github.com/felixgeelhaar/afm/internal/domain/plan"
	"github.com/felixgeelhaar/afm/internal/domain/version"
)

// Change is one plugin's transition between the installed set and a plan.
// From is zero for additions; To and Checksum are zero for removals.
type Change struct {
	Name     string
	From     version.Version
	To       version.Version
	Checksum integrity.Integrity
}

func (c Change) String() string {
	switch {
	case c.From.IsZero():
		return fmt.Sprintf("+ %s@%s", c.Name, c.To)
	case c.To.IsZero():
		return fmt.Sprintf("- %s@%s", c.Name, c.From)
	case c.From.Equal(c.To):
		return fmt.Sprintf("~ %s@%s", c.Name, c.To)
	default:
		return fmt.Sprintf("~ %s %s -> %s", c.Name, c.From, c.To)
	}
}

// Diff partitions the names of the installed set and a plan. Each list is
// sorted by name.
type Diff struct {
	Added     []Change
	Updated   []Change
	Removed   []Change
	Unchanged []Change
}

// IsEmpty reports whether applying the diff would touch the disk.
func (d Diff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// String renders the changes one per line.
func (d Diff) String() string {
	var b strings.Builder
	for _, list := range [][]Change{d.Added, d.Updated, d.Removed} {
		for _, c := range list {
			b.WriteString(c.String())
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Compute compares installed records to a plan. An entry is unchanged only
// when both version and checksum match, so a republished checksum forces a
// refetch.
func Compute(current map[string]Record, target *plan.Plan) Diff {
	var d Diff
	for _, e := range target.Entries() {
		c := Change{Name: e.Name, To: e.Version, Checksum: e.Checksum}
		r, ok := current[e.Name]
		switch {
		case !ok:
			d.Added = append(d.Added, c)
		case r.Version.Equal(e.Version) && (e.Checksum.IsZero() || r.Checksum.Equal(e.Checksum)):
			c.From = r.Version
			c.Checksum = r.Checksum
			d.Unchanged = append(d.Unchanged, c)
		default:
			c.From = r.Version
			d.Updated = append(d.Updated, c)
		}
	}

	names := make([]string, 0, len(current))
	for name := range current {
		if _, ok := target.Get(name); !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		d.Removed = append(d.Removed, Change{Name: name, From: current[name].Version})
	}
	return d
}

// Diff compares the installed set to target.
func (s *Store) Diff(target *plan.Plan) Diff {
	return Compute(s.Current(), target)
}
