package app

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/afm/internal/domain/lock"
	"github.com/felixgeelhaar/afm/internal/domain/solver"
	"github.com/felixgeelhaar/afm/internal/domain/version"
	"github.com/felixgeelhaar/afm/internal/ports"
)

// Install adds reqs to the recorded request set, resolves it, materializes
// the plan and rewrites the lockfile. A request for an already requested
// name replaces its constraint. With no reqs the recorded set is
// re-resolved.
func (m *Manager) Install(ctx context.Context, reqs []solver.Request) (*Result, error) {
	requests, _, err := m.requests(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range reqs {
		requests[r.Name] = r.Constraint
	}
	return m.run(ctx, requests)
}

// InstallFrozen materializes the lockfile exactly. A lockfile that no longer
// matches the registry fails with *lock.StaleLockError and nothing is
// touched.
func (m *Manager) InstallFrozen(ctx context.Context) (*Result, error) {
	lf, err := m.lockRepo.Load(ctx, m.cfg.LockfilePath())
	if err != nil {
		return nil, err
	}
	snap, err := m.registry.Open(ctx)
	if err != nil {
		return nil, err
	}
	if err := lock.Validate(lf, snap, snap); err != nil {
		return nil, err
	}

	p, err := lf.Plan(func(e lock.Entry) map[string]version.Constraint {
		mf, err := snap.Manifest(e.Name, e.Version)
		if err != nil {
			return nil
		}
		return mf.Dependencies
	})
	if err != nil {
		return nil, err
	}

	diff, err := m.store.Apply(ctx, p)
	if err != nil {
		return nil, err
	}
	return &Result{Plan: p, Diff: diff, Lockfile: lf, Warnings: snap.Warnings()}, nil
}

// Update re-resolves the request set without regard to the installed
// versions. With a name, that plugin must be installed; with a non-zero pin
// it is requested at exactly that version.
func (m *Manager) Update(ctx context.Context, name string, pin version.Version) (*Result, error) {
	if name == "" && !pin.IsZero() {
		return nil, ErrPinWithoutName
	}
	requests, _, err := m.requests(ctx)
	if err != nil {
		return nil, err
	}
	if name != "" {
		if _, ok := m.store.Get(name); !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotInstalled, name)
		}
		if !pin.IsZero() {
			requests[name] = version.Exact(pin)
		}
	}
	return m.run(ctx, requests)
}

// Uninstall drops names from the request set and re-resolves; dependencies
// nothing else needs are removed with them.
func (m *Manager) Uninstall(ctx context.Context, names ...string) (*Result, error) {
	requests, err := m.requestsOrInstalled(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if _, ok := requests[name]; ok {
			delete(requests, name)
			continue
		}
		if _, ok := m.store.Get(name); ok {
			return nil, fmt.Errorf("%w: %s is installed as a dependency", ErrNotRequested, name)
		}
		return nil, fmt.Errorf("%w: %s", ErrNotInstalled, name)
	}

	res, err := m.run(ctx, requests)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if _, ok := res.Plan.Get(name); ok {
			ports.Log(ctx).Info(ctx, "plugin kept as a dependency", ports.F("plugin", name))
		}
	}
	return res, nil
}

// Lock rewrites the lockfile from the installed versions without
// transferring anything. The request set comes from the existing lockfile,
// or from the installed plugins when there is none.
func (m *Manager) Lock(ctx context.Context) (*Result, error) {
	requests, err := m.requestsOrInstalled(ctx)
	if err != nil {
		return nil, err
	}
	records := m.store.Records()

	reqs := solver.RequestsFromMap(requests)
	for _, r := range records {
		reqs = append(reqs, solver.Request{Name: r.Name, Constraint: version.Exact(r.Version)})
	}

	snap, err := m.registry.Open(ctx)
	if err != nil {
		return nil, err
	}
	res, err := solver.Resolve(reqs, snap, snap, solver.Options{Channel: m.channel})
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if e, ok := res.Plan.Get(r.Name); ok && !e.Checksum.Equal(r.Checksum) {
			ports.Log(ctx).Warn(ctx, "installed checksum differs from the registry",
				ports.F("plugin", r.Key()),
				ports.F("installed", r.Checksum.String()),
				ports.F("published", e.Checksum.String()))
		}
	}

	out := lock.FromPlan(requests, res.Plan)
	if err := m.lockRepo.Save(ctx, m.cfg.LockfilePath(), out); err != nil {
		return nil, err
	}
	return &Result{
		Plan:     res.Plan,
		Lockfile: out,
		Pruned:   res.Pruned,
		Cycles:   res.Cycles,
		Warnings: snap.Warnings(),
	}, nil
}

// run is the full pipeline: snapshot, resolve, apply, write the lockfile.
// The lockfile is written only after the store matches the plan.
func (m *Manager) run(ctx context.Context, requests map[string]version.Constraint) (*Result, error) {
	log := ports.Log(ctx)

	snap, err := m.registry.Open(ctx)
	if err != nil {
		return nil, err
	}

	res, err := solver.Resolve(solver.RequestsFromMap(requests), snap, snap, solver.Options{Channel: m.channel})
	if err != nil {
		return nil, err
	}
	for _, c := range res.Pruned {
		log.Debug(ctx, "backtracked over candidate", ports.F("conflict", c.String()))
	}

	diff, err := m.store.Apply(ctx, res.Plan)
	if err != nil {
		return nil, err
	}

	lf := lock.FromPlan(requests, res.Plan)
	if err := m.lockRepo.Save(ctx, m.cfg.LockfilePath(), lf); err != nil {
		return nil, err
	}
	log.Info(ctx, "plugins resolved",
		ports.F("plugins", res.Plan.Len()),
		ports.F("added", len(diff.Added)),
		ports.F("updated", len(diff.Updated)),
		ports.F("removed", len(diff.Removed)))

	return &Result{
		Plan:     res.Plan,
		Diff:     diff,
		Lockfile: lf,
		Pruned:   res.Pruned,
		Cycles:   res.Cycles,
		Warnings: snap.Warnings(),
	}, nil
}
