package app

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/afm/internal/adapters/filesystem"
	"github.com/felixgeelhaar/afm/internal/domain/lock"
	"github.com/felixgeelhaar/afm/internal/domain/solver"
	"github.com/felixgeelhaar/afm/internal/domain/transfer"
	"github.com/felixgeelhaar/afm/internal/domain/version"
	"github.com/felixgeelhaar/afm/internal/testutil"
	"github.com/felixgeelhaar/afm/internal/testutil/mocks"
)

// backtrackRegistry publishes a@1.0.0 -> b ^1.0.0, a@1.2.0 -> b ^2.0.0 and
// b at 1.0.0 and 1.5.0.
func backtrackRegistry(e *env) {
	e.b.WithPlugin("a", "1.0.0", map[string]string{"b": "^1.0.0"}).
		WithPlugin("a", "1.2.0", map[string]string{"b": "^2.0.0"}).
		WithPlugin("b", "1.0.0", nil).
		WithPlugin("b", "1.5.0", nil)
}

func TestInstall_BacktracksToMaximalPlan(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	backtrackRegistry(e)
	m := e.manager(t)

	res, err := m.Install(context.Background(), requests(t, "a@>=1.0.0"))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"a": "1.0.0", "b": "1.5.0"}, installedVersions(m))
	assert.Equal(t, []string{"a", "b"}, res.Plan.Names())
	assert.Len(t, res.Diff.Added, 2)

	require.NotEmpty(t, res.Pruned)
	assert.Equal(t, "b", res.Pruned[0].Plugin)

	for _, r := range m.Store().Records() {
		testutil.AssertTreeChecksum(t, r.Checksum, m.Store().PluginPath(r.Name))
	}
	testutil.AssertFileContains(t, e.cfg.LockfilePath(), "version: 1.5.0")
}

func TestInstall_ConflictTouchesNothing(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.b.WithPlugin("a", "1.0.0", map[string]string{"b": "^2.0.0"}).
		WithPlugin("b", "1.0.0", nil)
	m := e.manager(t)

	_, err := m.Install(context.Background(), requests(t, "a"))
	require.Error(t, err)
	assert.True(t, solver.IsConflictError(err))

	assert.Empty(t, m.Store().Current())
	testutil.AssertNotExists(t, e.cfg.LockfilePath())
	testutil.AssertNotExists(t, e.cfg.PluginDir)
}

func TestInstall_IdempotentWithByteIdenticalLockfile(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	backtrackRegistry(e)
	e.b.WithPlugin("cache", "0.4.0", nil)
	m := e.manager(t)
	ctx := context.Background()

	_, err := m.Install(ctx, requests(t, "a@>=1.0.0", "cache"))
	require.NoError(t, err)
	first := e.lockBytes(t)

	res, err := e.manager(t).Install(ctx, nil)
	require.NoError(t, err)
	assert.True(t, res.Diff.IsEmpty())
	assert.Equal(t, first, e.lockBytes(t))
}

func TestInstall_ExtendsRequestSet(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.b.WithPlugin("weather", "1.0.0", nil).
		WithPlugin("weather", "2.0.0", nil).
		WithPlugin("cache", "0.4.0", nil)
	m := e.manager(t)
	ctx := context.Background()

	_, err := m.Install(ctx, requests(t, "weather@^1.0.0"))
	require.NoError(t, err)
	res, err := m.Install(ctx, requests(t, "cache"))
	require.NoError(t, err)

	assert.Equal(t, []string{"cache", "weather"}, res.Lockfile.RequestNames())
	assert.Equal(t, map[string]string{"cache": "0.4.0", "weather": "1.0.0"}, installedVersions(m))

	res, err = m.Install(ctx, requests(t, "weather@^2.0.0"))
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", installedVersions(m)["weather"])
	require.Len(t, res.Diff.Updated, 1)
}

func TestInstall_TamperedArtifactWritesNoLockfile(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.b.WithPlugin("weather", "1.0.0", nil).Tamper("weather", "1.0.0", "plugin.py", "evil")
	m := e.manager(t)

	_, err := m.Install(context.Background(), requests(t, "weather"))
	require.Error(t, err)
	assert.True(t, transfer.IsIntegrityError(err))

	assert.Empty(t, m.Store().Current())
	testutil.AssertNotExists(t, e.cfg.LockfilePath())
}

func TestInstallFrozen_ReproducesLockedVersions(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	backtrackRegistry(e)
	ctx := context.Background()

	_, err := e.manager(t).Install(ctx, requests(t, "a"))
	require.NoError(t, err)

	// A fresh machine with the same lockfile after b gained a release.
	require.NoError(t, os.RemoveAll(e.cfg.PluginDir))
	require.NoError(t, os.Remove(e.cfg.RecordsPath()))
	e.b.WithPlugin("b", "1.9.0", nil)

	m := e.manager(t)
	res, err := m.InstallFrozen(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1.0.0", "b": "1.5.0"}, installedVersions(m))
	assert.Len(t, res.Diff.Added, 2)

	deps := res.Plan.Entries()[0].Dependencies
	assert.Contains(t, deps, "b")
}

func TestInstallFrozen_StaleLockfile(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	backtrackRegistry(e)
	ctx := context.Background()

	_, err := e.manager(t).Install(ctx, requests(t, "a"))
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(e.cfg.PluginDir))
	require.NoError(t, os.Remove(e.cfg.RecordsPath()))

	e.b.DropArtifacts("b", "1.5.0")

	m := e.manager(t)
	_, err = m.InstallFrozen(ctx)
	require.Error(t, err)
	assert.True(t, lock.IsStaleLockError(err))

	var stale *lock.StaleLockError
	require.ErrorAs(t, err, &stale)
	require.NotEmpty(t, stale.Edges)
	assert.Equal(t, "b", stale.Edges[0].To)
	assert.Empty(t, m.Store().Current())
}

func TestInstallFrozen_NoLockfile(t *testing.T) {
	t.Parallel()

	_, err := newEnv(t).manager(t).InstallFrozen(context.Background())
	assert.ErrorIs(t, err, lock.ErrLockfileNotFound)
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.b.WithPlugin("weather", "1.0.0", nil)
	m := e.manager(t)
	ctx := context.Background()

	_, err := m.Install(ctx, requests(t, "weather@^1.0.0"))
	require.NoError(t, err)

	e.b.WithPlugin("weather", "1.1.0", nil)
	res, err := m.Update(ctx, "weather", version.Version{})
	require.NoError(t, err)
	require.Len(t, res.Diff.Updated, 1)
	assert.Equal(t, "1.1.0", installedVersions(m)["weather"])

	res, err = m.Update(ctx, "weather", version.MustParse("1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", installedVersions(m)["weather"])
	pinned, ok := res.Lockfile.Requests()["weather"].ExactVersion()
	require.True(t, ok)
	assert.Equal(t, "1.0.0", pinned.String())

	res, err = m.Update(ctx, "", version.Version{})
	require.NoError(t, err)
	assert.True(t, res.Diff.IsEmpty(), "the pin is part of the request set")
}

func TestUpdate_Errors(t *testing.T) {
	t.Parallel()

	m := newEnv(t).manager(t)
	ctx := context.Background()

	_, err := m.Update(ctx, "weather", version.Version{})
	assert.ErrorIs(t, err, ErrNotInstalled)

	_, err = m.Update(ctx, "", version.MustParse("1.0.0"))
	assert.ErrorIs(t, err, ErrPinWithoutName)
}

func TestUninstall_RemovesOrphanedDependencies(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.b.WithPlugin("weather", "1.0.0", map[string]string{"http": "^0.3.0"}).
		WithPlugin("http", "0.3.1", nil).
		WithPlugin("cache", "0.4.0", nil)
	m := e.manager(t)
	ctx := context.Background()

	_, err := m.Install(ctx, requests(t, "weather", "cache"))
	require.NoError(t, err)

	_, err = m.Uninstall(ctx, "http")
	assert.ErrorIs(t, err, ErrNotRequested)
	_, err = m.Uninstall(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotInstalled)

	res, err := m.Uninstall(ctx, "weather")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"http", "weather"}, names(res.Diff.Removed))
	assert.Equal(t, map[string]string{"cache": "0.4.0"}, installedVersions(m))
	assert.Equal(t, []string{"cache"}, res.Lockfile.RequestNames())
	testutil.AssertNotExists(t, m.Store().PluginPath("http"))

	res, err = m.Uninstall(ctx, "cache")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Plan.Len())
	assert.Empty(t, m.Store().Current())
}

func TestUninstall_KeepsPluginStillRequired(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.b.WithPlugin("weather", "1.0.0", map[string]string{"http": "^0.3.0"}).
		WithPlugin("http", "0.3.1", nil)
	m := e.manager(t)
	ctx := context.Background()

	_, err := m.Install(ctx, requests(t, "weather", "http"))
	require.NoError(t, err)

	res, err := m.Uninstall(ctx, "http")
	require.NoError(t, err)
	assert.Empty(t, res.Diff.Removed)
	_, ok := res.Plan.Get("http")
	assert.True(t, ok)
}

func TestUninstall_WithoutLockfile(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.b.WithPlugin("weather", "1.0.0", map[string]string{"http": "^0.3.0"}).
		WithPlugin("http", "0.3.1", nil).
		WithPlugin("cache", "0.4.0", nil)
	m := e.manager(t)
	ctx := context.Background()

	_, err := m.Install(ctx, requests(t, "weather", "cache"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(e.cfg.LockfilePath()))

	// Installed plugins stand in for the lost request set.
	res, err := m.Uninstall(ctx, "weather")
	require.NoError(t, err)
	assert.Equal(t, []string{"weather"}, names(res.Diff.Removed))
	assert.Equal(t, map[string]string{"cache": "0.4.0", "http": "0.3.1"}, installedVersions(m))
	assert.Equal(t, []string{"cache", "http"}, res.Lockfile.RequestNames())

	_, err = m.Uninstall(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotInstalled)
}

func TestLock_PinsInstalledVersionsWithoutTransfer(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.b.WithPlugin("weather", "1.0.0", map[string]string{"http": "^0.3.0"}).
		WithPlugin("http", "0.3.1", nil)
	ctx := context.Background()

	_, err := e.manager(t).Install(ctx, requests(t, "weather"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(e.cfg.LockfilePath()))

	e.b.WithPlugin("weather", "1.1.0", map[string]string{"http": "^0.3.0"})

	fs := mocks.NewFileSystem(filesystem.NewRealFileSystem())
	m := e.manager(t, WithFileSystem(fs))

	res, err := m.Lock(ctx)
	require.NoError(t, err)
	assert.Zero(t, fs.CallCount(mocks.OpCopyFile))
	assert.Zero(t, fs.CallCount(mocks.OpRename))

	entry, ok := res.Lockfile.Get("weather")
	require.True(t, ok)
	assert.Equal(t, "1.0.0", entry.Version.String())
	assert.Equal(t, []string{"http", "weather"}, res.Lockfile.RequestNames())
	first := e.lockBytes(t)

	_, err = m.Lock(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, e.lockBytes(t))

	_, err = m.InstallFrozen(ctx)
	require.NoError(t, err)
}

func TestLock_KeepsRecordedRequests(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.b.WithPlugin("weather", "1.0.0", map[string]string{"http": "^0.3.0"}).
		WithPlugin("http", "0.3.1", nil)
	m := e.manager(t)
	ctx := context.Background()

	_, err := m.Install(ctx, requests(t, "weather@^1.0.0"))
	require.NoError(t, err)
	before := e.lockBytes(t)

	res, err := m.Lock(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"weather"}, res.Lockfile.RequestNames())
	assert.Equal(t, before, e.lockBytes(t))
}
