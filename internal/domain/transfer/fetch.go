package transfer

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/afm/internal/domain/integrity"
	"github.com/felixgeelhaar/afm/internal/domain/plugin"
	"github.com/felixgeelhaar/afm/internal/domain/version"
	"github.com/felixgeelhaar/afm/internal/ports"
)

// Fetch copies name@v from the registry into dest and verifies it against
// the published checksum sidecar.
func (t *Transfer) Fetch(ctx context.Context, name string, v version.Version, dest string) (integrity.Integrity, error) {
	return t.FetchExpect(ctx, name, v, dest, integrity.Integrity{})
}

// FetchExpect is Fetch with an expected checksum, typically taken from a
// plan or lockfile. A zero expected value falls back to the sidecar; a
// non-zero one must also match the sidecar.
//
// The artifact set is copied into a staging directory next to dest,
// re-hashed, and renamed over dest only on a match. On any failure dest is
// left as it was and the staging directory is removed. A crash leaves at
// most a staging directory, which Cleanup-style callers can remove.
func (t *Transfer) FetchExpect(ctx context.Context, name string, v version.Version, dest string, expected integrity.Integrity) (integrity.Integrity, error) {
	if err := ctx.Err(); err != nil {
		return integrity.Integrity{}, err
	}
	key := plugin.Key(name, v)
	log := ports.Log(ctx).With(ports.F("plugin", key))

	lc, err := newLifecycle(key, func(p Phase) {
		log.Debug(ctx, "fetch phase", ports.F("phase", string(p)))
		if t.hook != nil {
			t.hook(name, v, p)
		}
	})
	if err != nil {
		return integrity.Integrity{}, err
	}
	defer lc.stop()

	sum, err := t.fetch(lc, name, v, dest, expected)
	if err != nil {
		log.Warn(ctx, "fetch aborted", ports.F("error", lc.failure))
		return integrity.Integrity{}, err
	}
	return sum, nil
}

func (t *Transfer) fetch(lc *lifecycle, name string, v version.Version, dest string, expected integrity.Integrity) (integrity.Integrity, error) {
	lc.send(eventStage)

	src := t.registry.VersionDir(name, v)
	if !t.fs.IsDir(src) {
		return integrity.Integrity{}, lc.fail(fmt.Errorf("%w: %s has no artifacts", ErrNotPublished, plugin.Key(name, v)))
	}
	published, err := t.registry.ReadChecksum(name, v)
	if err != nil {
		return integrity.Integrity{}, lc.fail(fmt.Errorf("%w: %s has no checksum sidecar: %w", ErrNotPublished, plugin.Key(name, v), err))
	}
	if expected.IsZero() {
		expected = published
	} else if !expected.Equal(published) {
		return integrity.Integrity{}, lc.fail(&IntegrityError{Name: name, Version: v, Expected: expected, Actual: published})
	}

	files, err := integrity.Files(src, nil)
	if err != nil {
		return integrity.Integrity{}, lc.fail(fmt.Errorf("failed to list artifacts: %w", err))
	}

	staging := siblingPath(dest, StagingPrefix)
	cleanup := func() { _ = t.fs.RemoveAll(staging) }

	if err := t.copyTree(src, staging, files); err != nil {
		cleanup()
		return integrity.Integrity{}, lc.fail(fmt.Errorf("failed to stage %s: %w", plugin.Key(name, v), err))
	}
	lc.send(eventStaged)

	actual, _, err := integrity.Tree(expected.Algorithm(), staging, nil)
	if err != nil {
		cleanup()
		return integrity.Integrity{}, lc.fail(fmt.Errorf("failed to hash staged artifacts: %w", err))
	}
	if !actual.Equal(expected) {
		cleanup()
		return integrity.Integrity{}, lc.fail(&IntegrityError{Name: name, Version: v, Expected: expected, Actual: actual})
	}
	lc.send(eventVerified)

	if err := t.swapIn(staging, dest); err != nil {
		cleanup()
		return integrity.Integrity{}, lc.fail(fmt.Errorf("failed to commit %s: %w", plugin.Key(name, v), err))
	}
	if !t.fs.IsDir(dest) {
		return integrity.Integrity{}, lc.fail(fmt.Errorf("failed to commit %s: %s missing after rename", plugin.Key(name, v), dest))
	}
	lc.send(eventCommitted)
	return actual, nil
}

// Remove deletes dir by renaming it to a trash sibling first, so a crash
// never leaves a half-deleted plugin under its real name.
func (t *Transfer) Remove(ctx context.Context, dir string) error {
	if !t.fs.Exists(dir) {
		return nil
	}
	trash := siblingPath(dir, TrashPrefix)
	if err := t.fs.Rename(dir, trash); err != nil {
		return fmt.Errorf("failed to stage removal of %s: %w", dir, err)
	}
	if err := t.fs.RemoveAll(trash); err != nil {
		ports.Log(ctx).Warn(ctx, "left trash directory behind",
			ports.F("path", trash), ports.F("error", err))
	}
	return nil
}
