package app

import (
	"github.com/felixgeelhaar/afm/internal/domain/integrity"
	"github.com/felixgeelhaar/afm/internal/domain/lock"
	"github.com/felixgeelhaar/afm/internal/domain/plan"
	"github.com/felixgeelhaar/afm/internal/domain/registry"
	"github.com/felixgeelhaar/afm/internal/domain/solver"
	"github.com/felixgeelhaar/afm/internal/domain/store"
	"github.com/felixgeelhaar/afm/internal/domain/version"
)

// Result describes a resolve and apply run.
type Result struct {
	Plan     *plan.Plan
	Diff     store.Diff
	Lockfile *lock.Lockfile
	// Pruned lists candidates the solver backtracked over.
	Pruned []solver.Conflict
	Cycles [][]string
	// Warnings lists registry versions excluded for missing artifacts.
	Warnings []*registry.IndexInconsistencyError
}

// Installed is one row of List.
type Installed struct {
	Name     string
	Version  version.Version
	Checksum integrity.Integrity
	// Locked is the lockfile version, zero when the plugin is not locked.
	Locked version.Version
	// Requested is the direct request constraint; Direct is false for
	// plugins installed only as dependencies.
	Requested version.Constraint
	Direct    bool
}

// RemotePlugin is one row of RemoteList.
type RemotePlugin struct {
	Name     string
	Latest   version.Version
	Channels map[string]string
	Versions []version.Version
}

// VerifyReport collects every problem Verify found.
type VerifyReport struct {
	// LockMissing is set when there is no lockfile to validate.
	LockMissing bool
	Stale       *lock.StaleLockError
	Issues      []store.Issue
	Warnings    []*registry.IndexInconsistencyError
}

// OK reports whether nothing needs attention.
func (r *VerifyReport) OK() bool {
	return r.Stale == nil && len(r.Issues) == 0
}
