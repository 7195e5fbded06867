package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/afm/internal/domain/lock"
	"github.com/felixgeelhaar/afm/internal/domain/registry"
	"github.com/felixgeelhaar/afm/internal/domain/transfer"
	"github.com/felixgeelhaar/afm/internal/domain/version"
	"github.com/felixgeelhaar/afm/internal/ports"
)

// Publish copies a plugin directory into the registry. An empty name or
// zero version means "as the manifest declares".
func (m *Manager) Publish(ctx context.Context, dir, name string, v version.Version) (*transfer.PublishResult, error) {
	return m.transfer.Publish(ctx, dir, name, v)
}

// List returns the installed plugins joined with the lockfile.
func (m *Manager) List(ctx context.Context) ([]Installed, error) {
	lf, err := m.loadLock(ctx)
	if err != nil {
		return nil, err
	}

	var requests map[string]version.Constraint
	if lf != nil {
		requests = lf.Requests()
	}

	records := m.store.Records()
	out := make([]Installed, 0, len(records))
	for _, r := range records {
		row := Installed{Name: r.Name, Version: r.Version, Checksum: r.Checksum}
		if lf != nil {
			if e, ok := lf.Get(r.Name); ok {
				row.Locked = e.Version
			}
		}
		if c, ok := requests[r.Name]; ok {
			row.Requested = c
			row.Direct = true
		}
		out = append(out, row)
	}
	return out, nil
}

// RemoteList describes the registry. With names, only those plugins are
// listed and an unknown name fails with registry.ErrPluginNotFound.
func (m *Manager) RemoteList(ctx context.Context, names ...string) ([]RemotePlugin, []*registry.IndexInconsistencyError, error) {
	snap, err := m.registry.Open(ctx)
	if err != nil {
		return nil, nil, err
	}

	if len(names) == 0 {
		names = snap.Names()
	}
	out := make([]RemotePlugin, 0, len(names))
	for _, name := range names {
		entry, ok := snap.Entry(name)
		if !ok {
			return nil, nil, notFound(snap, name)
		}
		row := RemotePlugin{
			Name:     name,
			Channels: entry.Channels,
			Versions: snap.ListVersions(name),
		}
		if latest, ok := snap.Latest(name, m.channel); ok {
			row.Latest = latest
		}
		out = append(out, row)
	}
	return out, snap.Warnings(), nil
}

// notFound wraps registry.ErrPluginNotFound with close indexed names.
func notFound(snap *registry.Snapshot, name string) error {
	if suggestions := snap.Suggest(name); len(suggestions) > 0 {
		return fmt.Errorf("%w: %s (did you mean %s?)", registry.ErrPluginNotFound, name, strings.Join(suggestions, ", "))
	}
	return fmt.Errorf("%w: %s", registry.ErrPluginNotFound, name)
}

// Verify validates the lockfile against the registry and re-hashes the
// installed plugins. Findings go into the report; the error is reserved for
// failures to perform the checks.
func (m *Manager) Verify(ctx context.Context) (*VerifyReport, error) {
	report := &VerifyReport{}

	snap, err := m.registry.Open(ctx)
	if err != nil {
		return nil, err
	}
	report.Warnings = snap.Warnings()

	lf, err := m.loadLock(ctx)
	if err != nil {
		return nil, err
	}
	if lf == nil {
		report.LockMissing = true
	} else if err := lock.Validate(lf, snap, snap); err != nil {
		var stale *lock.StaleLockError
		if !errors.As(err, &stale) {
			return nil, err
		}
		report.Stale = stale
	}

	report.Issues, err = m.store.Verify(ctx)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Clean removes staging and trash directories abandoned in the plugin
// directory and in the registry.
func (m *Manager) Clean(ctx context.Context) ([]string, error) {
	removed, err := m.store.Cleanup(ctx)
	if err != nil {
		return removed, err
	}

	pluginsRoot := filepath.Join(m.registry.Root(), registry.PluginsDir)
	if !m.fs.IsDir(pluginsRoot) {
		return removed, nil
	}
	entries, err := m.fs.ReadDir(pluginsRoot)
	if err != nil {
		return removed, err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		swept, err := transfer.Sweep(m.fs, filepath.Join(pluginsRoot, e.Name()))
		for _, path := range swept {
			ports.Log(ctx).Info(ctx, "removed abandoned directory", ports.F("path", path))
		}
		removed = append(removed, swept...)
		if err != nil {
			return removed, err
		}
	}
	return removed, nil
}
