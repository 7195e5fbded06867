package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/afm/internal/domain/registry"
	"github.com/felixgeelhaar/afm/internal/domain/store"
	"github.com/felixgeelhaar/afm/internal/domain/version"
	"github.com/felixgeelhaar/afm/internal/testutil"
)

func names(changes []store.Change) []string {
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.Name)
	}
	return out
}

func TestPublish_ThenInstall(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.cfg.Ignore = []string{"*.md"}
	m := e.manager(t)
	ctx := context.Background()

	src := testutil.WritePluginDir(t, filepath.Join(t.TempDir(), "weather"), testutil.PluginSource{
		Name:    "weather",
		Version: "1.0.0",
		Files:   map[string]string{"plugin.py": "x", "README.md": "docs"},
	})

	pub, err := m.Publish(ctx, src, "weather", version.Version{})
	require.NoError(t, err)
	assert.NotContains(t, pub.Files, "README.md")

	_, err = m.Install(ctx, requests(t, "weather"))
	require.NoError(t, err)
	r, ok := m.Store().Get("weather")
	require.True(t, ok)
	assert.True(t, r.Checksum.Equal(pub.Checksum))
	testutil.AssertNotExists(t, filepath.Join(m.Store().PluginPath("weather"), "README.md"))
}

func TestList(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.b.WithPlugin("weather", "1.0.0", map[string]string{"http": "^0.3.0"}).
		WithPlugin("http", "0.3.1", nil)
	m := e.manager(t)
	ctx := context.Background()

	rows, err := m.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = m.Install(ctx, requests(t, "weather@^1.0.0"))
	require.NoError(t, err)

	rows, err = m.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "http", rows[0].Name)
	assert.False(t, rows[0].Direct)
	assert.Equal(t, "0.3.1", rows[0].Locked.String())

	assert.Equal(t, "weather", rows[1].Name)
	assert.True(t, rows[1].Direct)
	assert.Equal(t, "^1.0.0", rows[1].Requested.String())
	assert.False(t, rows[1].Checksum.IsZero())
}

func TestRemoteList(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.b.WithPlugin("weather", "1.0.0", nil).
		WithPlugin("weather", "1.1.0-beta.1", nil).
		WithPlugin("http", "0.3.1", nil).
		WithPlugin("http", "0.4.0", nil).
		DropArtifacts("http", "0.4.0").
		WithChannel("weather", version.ChannelBeta, "1.1.0-beta.1")
	m := e.manager(t)
	ctx := context.Background()

	rows, warnings, err := m.RemoteList(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, warnings, 1)
	assert.Equal(t, "http", warnings[0].Name)

	assert.Equal(t, "http", rows[0].Name)
	assert.Equal(t, "0.3.1", rows[0].Latest.String())
	require.Len(t, rows[0].Versions, 1)

	assert.Equal(t, "weather", rows[1].Name)
	assert.Equal(t, "1.0.0", rows[1].Latest.String(), "stable channel skips pre-releases")
	assert.Equal(t, "1.1.0-beta.1", rows[1].Channels["beta"])
	assert.Len(t, rows[1].Versions, 2)

	rows, _, err = m.RemoteList(ctx, "weather")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, _, err = m.RemoteList(ctx, "missing")
	assert.ErrorIs(t, err, registry.ErrPluginNotFound)

	_, _, err = m.RemoteList(ctx, "wether")
	require.ErrorIs(t, err, registry.ErrPluginNotFound)
	assert.Contains(t, err.Error(), "did you mean weather?")
}

func TestVerify(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.b.WithPlugin("weather", "1.0.0", map[string]string{"http": "^0.3.0"}).
		WithPlugin("http", "0.3.1", nil)
	m := e.manager(t)
	ctx := context.Background()

	report, err := m.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, report.LockMissing)
	assert.True(t, report.OK())

	_, err = m.Install(ctx, requests(t, "weather"))
	require.NoError(t, err)

	report, err = m.Verify(ctx)
	require.NoError(t, err)
	assert.False(t, report.LockMissing)
	assert.True(t, report.OK())

	testutil.WriteTempFile(t, m.Store().PluginPath("http"), "patched.py", "x")
	e.b.DropArtifacts("weather", "1.0.0")

	report, err = m.Verify(ctx)
	require.NoError(t, err)
	assert.False(t, report.OK())
	require.NotNil(t, report.Stale)
	assert.Equal(t, "weather", report.Stale.Edges[0].To)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, store.IssueModified, report.Issues[0].Kind)
	assert.Len(t, report.Warnings, 1)
}

func TestClean(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.b.WithPlugin("weather", "1.0.0", nil)
	m := e.manager(t)
	ctx := context.Background()

	_, err := m.Install(ctx, requests(t, "weather"))
	require.NoError(t, err)

	testutil.WriteTempDir(t, e.cfg.PluginDir, ".staging-weather-1")
	testutil.WriteTempFile(t, m.Registry().PluginDir("weather"), ".staging-1.1.0-2/plugin.py", "x")
	testutil.WriteTempDir(t, m.Registry().PluginDir("orphan"), ".trash-0.1.0-3")

	removed, err := m.Clean(ctx)
	require.NoError(t, err)
	assert.Len(t, removed, 3)
	testutil.AssertNoHiddenEntries(t, e.cfg.PluginDir)
	testutil.AssertNoHiddenEntries(t, m.Registry().PluginDir("weather"))
	testutil.AssertDirExists(t, m.Store().PluginPath("weather"))

	removed, err = m.Clean(ctx)
	require.NoError(t, err)
	assert.Empty(t, removed)
}
