package solver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/afm/internal/domain/version"
)

// Requirement is one (requirer, constraint) pair narrowing a plugin's frontier.
type Requirement struct {
	// Requirer is "name@version" of the depending plugin, or empty for a
	// direct request.
	Requirer   string
	Constraint version.Constraint
}

// String renders the requirement for reports.
func (r Requirement) String() string {
	requirer := r.Requirer
	if requirer == "" {
		requirer = "request"
	}
	return fmt.Sprintf("%s requires %s", requirer, r.Constraint)
}

// Conflict describes a plugin whose candidate frontier became empty.
type Conflict struct {
	Plugin       string
	Available    []version.Version
	Requirements []Requirement
}

// String renders a one-line summary.
func (c Conflict) String() string {
	reqs := make([]string, len(c.Requirements))
	for i, r := range c.Requirements {
		reqs[i] = r.String()
	}
	return fmt.Sprintf("%s: %s (available: %s)", c.Plugin, strings.Join(reqs, ", "), availableString(c.Available))
}

func (c Conflict) key() string {
	var b strings.Builder
	b.WriteString(c.Plugin)
	for _, r := range c.Requirements {
		b.WriteString("|")
		b.WriteString(r.Requirer)
		b.WriteString(":")
		b.WriteString(r.Constraint.String())
	}
	return b.String()
}

func availableString(versions []version.Version) string {
	if len(versions) == 0 {
		return "none"
	}
	parts := make([]string, len(versions))
	for i, v := range versions {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

// ConflictReport enumerates every empty frontier met during resolution.
type ConflictReport struct {
	Conflicts []Conflict
}

// Plugins returns the names of the conflicting plugins in report order,
// without duplicates.
func (r ConflictReport) Plugins() []string {
	seen := make(map[string]bool)
	var names []string
	for _, c := range r.Conflicts {
		if !seen[c.Plugin] {
			seen[c.Plugin] = true
			names = append(names, c.Plugin)
		}
	}
	return names
}

// String renders the report across multiple lines.
func (r ConflictReport) String() string {
	var b strings.Builder
	for i, c := range r.Conflicts {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "no version of %q satisfies all requirements:\n", c.Plugin)
		for _, req := range c.Requirements {
			fmt.Fprintf(&b, "  %s\n", req)
		}
		fmt.Fprintf(&b, "  available: %s\n", availableString(c.Available))
	}
	return b.String()
}

// ConflictError indicates no assignment satisfies every constraint.
type ConflictError struct {
	Report ConflictReport
}

func (e *ConflictError) Error() string {
	parts := make([]string, len(e.Report.Conflicts))
	for i, c := range e.Report.Conflicts {
		parts[i] = c.String()
	}
	return "dependency conflict: " + strings.Join(parts, "; ")
}

// IsConflictError returns true if err is a resolution conflict.
func IsConflictError(err error) bool {
	var conflictErr *ConflictError
	return errors.As(err, &conflictErr)
}
